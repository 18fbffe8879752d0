package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	reportapp "github.com/miescuela/backend/internal/application/report"
	"github.com/miescuela/backend/internal/domain/report"
	"github.com/miescuela/backend/internal/infrastructure/config"
	"github.com/miescuela/backend/internal/infrastructure/logger"
	"github.com/miescuela/backend/internal/infrastructure/printing"
	"github.com/miescuela/backend/internal/infrastructure/storage"
	"github.com/miescuela/backend/internal/infrastructure/telemetry"
	"github.com/miescuela/backend/internal/infrastructure/textgen"
)

const (
	kindStructured = "structured"
	kindNarrative  = "narrative"
)

type options struct {
	configPath string
	inputPath  string
	kind       string
	textPath   string
	generate   bool
	outPath    string
	cleanup    bool
	logLevel   string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a config.toml (default: search ., ./config, /etc/miescuela)")
	flag.StringVar(&opts.inputPath, "input", "", "JSON request file, - for stdin")
	flag.StringVar(&opts.kind, "kind", kindStructured, "Report kind (structured, narrative)")
	flag.StringVar(&opts.textPath, "text", "", "Narrative text file, overrides the text field of the request")
	flag.BoolVar(&opts.generate, "generate", false, "Generate the narrative from the request entries")
	flag.StringVar(&opts.outPath, "out", "", "Write the PDF to this path instead of storing it")
	flag.BoolVar(&opts.cleanup, "cleanup", false, "Remove stored reports older than storage.retention and exit")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	flag.Parse()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "reportgen: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		// the process exits right after this; push what the export recorded
		if providers.Enabled() {
			if err := providers.Flush(context.Background()); err != nil {
				log.Warn("Failed to flush telemetry", zap.Error(err))
			}
		}
		if err := providers.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewReportMetrics(telemetry.ReportMetricsConfig{
		Meter:  providers.ReportMeter(),
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize report metrics: %w", err)
	}

	store, err := newStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	if opts.cleanup {
		if cfg.Storage.Retention <= 0 {
			return fmt.Errorf("storage.retention is not set")
		}
		deleted, err := store.CleanupOlderThan(ctx, cfg.Storage.Retention)
		if err != nil {
			return fmt.Errorf("failed to clean up reports: %w", err)
		}
		log.Info("Old reports removed",
			zap.Int("deleted", deleted),
			zap.Duration("retention", cfg.Storage.Retention))
		return nil
	}

	service, err := newExportService(cfg, store, metrics, log)
	if err != nil {
		return err
	}

	input, err := readInput(opts.inputPath)
	if err != nil {
		return err
	}

	switch {
	case opts.generate:
		var req reportapp.GenerateNarrativeRequest
		if err := decode(input, &req); err != nil {
			return err
		}
		return printJSON(service.GenerateAndExportNarrative(ctx, req))

	case opts.kind == kindStructured:
		var req reportapp.ExportEntriesRequest
		if err := decode(input, &req); err != nil {
			return err
		}
		if opts.outPath != "" {
			return writePreview(opts.outPath, func() (*reportapp.RenderedReport, error) {
				return service.PreviewEntries(ctx, req)
			})
		}
		return printJSON(service.ExportEntries(ctx, req))

	case opts.kind == kindNarrative:
		var req reportapp.ExportNarrativeRequest
		if len(input) > 0 {
			if err := decode(input, &req); err != nil {
				return err
			}
		}
		if opts.textPath != "" {
			text, err := os.ReadFile(opts.textPath)
			if err != nil {
				return fmt.Errorf("failed to read text file: %w", err)
			}
			req.Text = string(text)
		}
		if opts.outPath != "" {
			return writePreview(opts.outPath, func() (*reportapp.RenderedReport, error) {
				return service.PreviewNarrative(ctx, req)
			})
		}
		return printJSON(service.ExportNarrative(ctx, req))

	default:
		return fmt.Errorf("unknown report kind %q (want %s or %s)", opts.kind, kindStructured, kindNarrative)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func newStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (printing.PDFStorage, error) {
	switch cfg.Storage.Backend {
	case config.StorageBackendS3:
		s3Storage, err := storage.NewS3ReportStorage(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithPresignExpiration(cfg.Storage.PresignExpiration))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare bucket %s: %w", s3Storage.GetBucket(), err)
		}
		return s3Storage, nil
	default:
		fsStorage, err := printing.NewFileSystemStorage(&printing.FileSystemStorageConfig{
			BasePath: cfg.Storage.BasePath,
			BaseURL:  cfg.Storage.BaseURL,
			Logger:   log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file system storage: %w", err)
		}
		return fsStorage, nil
	}
}

func newExportService(cfg *config.Config, store printing.PDFStorage, metrics *telemetry.ReportMetrics, log *zap.Logger) (*reportapp.ExportService, error) {
	geometry, err := cfg.PageGeometry()
	if err != nil {
		return nil, fmt.Errorf("invalid page geometry: %w", err)
	}

	svcCfg := &reportapp.ExportServiceConfig{
		Geometry:         geometry,
		Institution:      cfg.Report.Institution,
		Locale:           cfg.Report.Locale,
		HeaderMode:       report.HeaderMode(cfg.Report.HeaderMode),
		FontFamily:       cfg.Report.FontFamily,
		LineHeightFactor: cfg.Layout.LineHeightFactor,
		EntryReserve:     cfg.Layout.PageBreakReserve,
		Creator:          cfg.App.Name,
		Storage:          store,
		Metrics:          metrics,
		Logger:           log,
	}

	if cfg.Asset.HeaderImage != "" {
		svcCfg.Header = printing.NewAssetResolver(&printing.AssetResolverConfig{
			Source:       cfg.Asset.HeaderImage,
			FetchTimeout: cfg.Asset.FetchTimeout,
			MaxBytes:     cfg.Asset.MaxBytes,
			Logger:       log,
		})
	}

	if cfg.TextGen.Endpoint != "" {
		generator, err := textgen.NewProxyGenerator(&textgen.ProxyConfig{
			Endpoint: cfg.TextGen.Endpoint,
			APIKey:   cfg.TextGen.APIKey,
			Timeout:  cfg.TextGen.Timeout,
			Logger:   log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize text generation: %w", err)
		}
		svcCfg.Generator = generator
	}

	service, err := reportapp.NewExportService(svcCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize export service: %w", err)
	}
	return service, nil
}

func readInput(path string) ([]byte, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		return data, nil
	}
}

func decode(data []byte, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("an -input request file is required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid request JSON: %w", err)
	}
	return nil
}

func writePreview(path string, render func() (*reportapp.RenderedReport, error)) error {
	rendered, err := render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, rendered.PDF, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("%s: %d pages, saved as %s\n", rendered.Filename, rendered.Document.PageCount(), path)
	return nil
}

func printJSON(resp *reportapp.ExportResponse, err error) error {
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
