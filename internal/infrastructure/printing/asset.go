package printing

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

// HeaderImageArea is where the letterhead logo is drawn, in millimeters
var HeaderImageArea = Rect{X: 14, Y: 10, W: 22, H: 22}

// HeaderClearance is the smallest top margin that keeps body text below the
// letterhead logo
func HeaderClearance() float64 {
	return HeaderImageArea.Y + HeaderImageArea.H
}

// HeaderAsset is a decoded header image ready to be embedded in a PDF.
// Type is the fpdf image type: "PNG", "JPG" or "GIF".
type HeaderAsset struct {
	Name   string
	Type   string
	Data   []byte
	Width  int
	Height int
}

// AssetResolverConfig contains configuration for the header asset resolver
type AssetResolverConfig struct {
	// Source is a file path or an http(s) URL
	Source string
	// FetchTimeout bounds a single load. Default: 5s
	FetchTimeout time.Duration
	// MaxBytes caps the size of the raw image. Default: 5 MiB
	MaxBytes int64
	// HTTPClient is used for http(s) sources. Default: http.DefaultClient
	HTTPClient *http.Client
	// Logger for operations
	Logger *zap.Logger
}

// AssetResolver loads the header image once per process and shares it between
// exports. Concurrent loads of the same source are collapsed into one.
// Failed loads are not cached, so a later export tries again.
type AssetResolver struct {
	config *AssetResolverConfig
	client *http.Client
	logger *zap.Logger

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string]*HeaderAsset
}

// NewAssetResolver creates a new header asset resolver
func NewAssetResolver(config *AssetResolverConfig) *AssetResolver {
	if config == nil {
		config = &AssetResolverConfig{}
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 5 * time.Second
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = 5 << 20
	}

	client := config.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AssetResolver{
		config: config,
		client: client,
		logger: logger,
		cache:  make(map[string]*HeaderAsset),
	}
}

// Resolve returns the configured header image
func (r *AssetResolver) Resolve(ctx context.Context) (*HeaderAsset, error) {
	return r.ResolveSource(ctx, r.config.Source)
}

// ResolveSource returns the header image at source, loading it on first use
func (r *AssetResolver) ResolveSource(ctx context.Context, source string) (*HeaderAsset, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, NewAssetLoadError("no header image configured", nil)
	}

	r.mu.RLock()
	cached, ok := r.cache[source]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	// The shared load outlives any single caller; it is bounded by FetchTimeout.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(source, func() (any, error) {
		asset, err := r.load(loadCtx, source)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[source] = asset
		r.mu.Unlock()
		return asset, nil
	})

	select {
	case <-ctx.Done():
		return nil, NewAssetLoadError("header image load cancelled", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		asset := res.Val.(*HeaderAsset)
		r.logger.Debug("header image resolved",
			zap.String("source", source),
			zap.String("type", asset.Type),
			zap.Bool("shared", res.Shared))
		return asset, nil
	}
}

func (r *AssetResolver) load(ctx context.Context, source string) (*HeaderAsset, error) {
	ctx, cancel := context.WithTimeout(ctx, r.config.FetchTimeout)
	defer cancel()

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = r.fetch(ctx, source)
	} else {
		data, err = r.readFile(ctx, source)
	}
	if err != nil {
		return nil, err
	}

	asset, err := decodeHeaderAsset(data)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	asset.Name = "header-" + hex.EncodeToString(sum[:8])

	r.logger.Info("header image loaded",
		zap.String("source", source),
		zap.String("type", asset.Type),
		zap.Int("width", asset.Width),
		zap.Int("height", asset.Height))
	return asset, nil
}

func (r *AssetResolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewAssetLoadError("invalid header image URL", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, NewAssetLoadError("failed to fetch header image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewAssetLoadError(fmt.Sprintf("header image request returned status %d", resp.StatusCode), nil)
	}
	return r.readLimited(resp.Body)
}

func (r *AssetResolver) readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewAssetLoadError("header image load cancelled", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, NewAssetLoadError("failed to open header image", err)
	}
	defer f.Close()
	return r.readLimited(f)
}

func (r *AssetResolver) readLimited(src io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(src, r.config.MaxBytes+1))
	if err != nil {
		return nil, NewAssetLoadError("failed to read header image", err)
	}
	if int64(len(data)) > r.config.MaxBytes {
		return nil, NewAssetLoadError(fmt.Sprintf("header image exceeds %d bytes", r.config.MaxBytes), nil)
	}
	if len(data) == 0 {
		return nil, NewAssetLoadError("header image is empty", nil)
	}
	return data, nil
}

// decodeHeaderAsset checks that data is an image the PDF backend can embed.
// PNG, JPEG and GIF are embedded as is; WebP, BMP and TIFF are re-encoded
// as PNG.
func decodeHeaderAsset(data []byte) (*HeaderAsset, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, NewAssetLoadError("unrecognized header image format", err)
	}

	asset := &HeaderAsset{Data: data, Width: cfg.Width, Height: cfg.Height}
	switch format {
	case "png":
		asset.Type = "PNG"
	case "jpeg":
		asset.Type = "JPG"
	case "gif":
		asset.Type = "GIF"
	default:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, NewAssetLoadError("failed to decode "+format+" header image", err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, NewAssetLoadError("failed to convert header image to PNG", err)
		}
		asset.Type = "PNG"
		asset.Data = buf.Bytes()
	}
	return asset, nil
}
