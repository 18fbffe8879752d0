// Package textgen calls the text generation proxy that writes pedagogical
// narratives.
package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/miescuela/backend/internal/domain/report"
	"github.com/miescuela/backend/internal/infrastructure/logger"
	"github.com/miescuela/backend/internal/infrastructure/telemetry"
)

// Ensure ProxyGenerator implements report.TextGenerator
var _ report.TextGenerator = (*ProxyGenerator)(nil)

// maxResponseBytes bounds the proxy response body
const maxResponseBytes = 1 << 20

// ErrEmptyCompletion is returned when the proxy answers without any text
var ErrEmptyCompletion = errors.New("text generation returned no content")

// ProxyConfig contains configuration for the generation proxy client
type ProxyConfig struct {
	// Endpoint is the URL the prompt is POSTed to
	Endpoint string
	// APIKey is sent as a bearer token when set
	APIKey string
	// Timeout bounds one generation request
	// Default: 60s
	Timeout time.Duration
	// HTTPClient overrides the default client
	HTTPClient *http.Client
	// Logger for request logging
	Logger *zap.Logger
}

// ProxyGenerator produces narratives by POSTing prompts to an HTTP proxy in
// front of a language model
type ProxyGenerator struct {
	config *ProxyConfig
	client *http.Client
	logger *zap.Logger
}

// NewProxyGenerator creates a new proxy backed text generator
func NewProxyGenerator(config *ProxyConfig) (*ProxyGenerator, error) {
	if config == nil || strings.TrimSpace(config.Endpoint) == "" {
		return nil, errors.New("text generation endpoint is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &ProxyGenerator{
		config: config,
		client: client,
		logger: log,
	}, nil
}

type proxyRequest struct {
	System string               `json:"system"`
	User   string               `json:"user"`
	Meta   report.NarrativeMeta `json:"meta"`
}

// proxyResponse accepts both the proxy's own {text} shape and a raw
// chat-completions body
type proxyResponse struct {
	Text    string `json:"text"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (r proxyResponse) content() string {
	if text := strings.TrimSpace(r.Text); text != "" {
		return text
	}
	if len(r.Choices) > 0 {
		return strings.TrimSpace(r.Choices[0].Message.Content)
	}
	return ""
}

// Generate sends the prompt and returns the generated narrative
func (g *ProxyGenerator) Generate(ctx context.Context, prompt report.NarrativePrompt) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "textgen.generate",
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.url", g.config.Endpoint))
	defer span.End()

	text, err := g.generate(ctx, prompt)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}
	telemetry.SetAttribute(span, "textgen.chars", len(text))
	telemetry.SetOK(span)
	return text, nil
}

func (g *ProxyGenerator) generate(ctx context.Context, prompt report.NarrativePrompt) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	body, err := json.Marshal(proxyRequest{
		System: prompt.System,
		User:   prompt.User,
		Meta:   prompt.Meta,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("text generation request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read generation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.WithLogger(ctx, g.logger).Warn("text generation proxy returned an error",
			zap.Int("status", resp.StatusCode),
			zap.Duration("duration", time.Since(start)))
		return "", fmt.Errorf("text generation proxy returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed proxyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	text := parsed.content()
	if text == "" {
		return "", ErrEmptyCompletion
	}

	logger.WithLogger(ctx, g.logger).Debug("narrative generated",
		zap.Int("chars", len(text)),
		zap.Duration("duration", time.Since(start)))

	return text, nil
}
