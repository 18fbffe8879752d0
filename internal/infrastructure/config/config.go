package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/miescuela/backend/internal/domain/report"
	"github.com/miescuela/backend/internal/infrastructure/printing"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. MIESCUELA_STORAGE_BASE_PATH for storage.base_path
const EnvPrefix = "MIESCUELA"

// Storage backends
const (
	StorageBackendFileSystem = "filesystem"
	StorageBackendS3         = "s3"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Report    ReportConfig
	Layout    LayoutConfig
	Asset     AssetConfig
	Storage   StorageConfig
	TextGen   TextGenConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// ReportConfig holds the presentation settings of exported reports
type ReportConfig struct {
	Institution string // letterhead title line, e.g. "MiEscuela 4.0"
	Locale      string // BCP 47 tag used for entry dates
	HeaderMode  string // first_page or every_page
	FontFamily  string // PDF core font family
}

// LayoutConfig holds page geometry and measurement settings
type LayoutConfig struct {
	PaperSize        string
	Orientation      string
	MarginTop        float64
	MarginRight      float64
	MarginBottom     float64
	MarginLeft       float64
	LineHeightFactor float64
	// PageBreakReserve is the space kept free below the cursor before a
	// structured entry starts, in millimeters
	PageBreakReserve float64
}

// AssetConfig holds header image settings
type AssetConfig struct {
	HeaderImage  string // file path or http(s) URL; empty disables the image
	FetchTimeout time.Duration
	MaxBytes     int64
}

// StorageConfig holds report storage settings
type StorageConfig struct {
	Backend string // filesystem or s3

	// File system backend
	BasePath string
	BaseURL  string

	// S3 backend (AWS S3 or any S3-compatible service such as MinIO)
	Endpoint          string
	Region            string
	Bucket            string
	AccessKey         string
	SecretKey         string
	UseSSL            bool
	UsePathStyle      bool
	Prefix            string
	PresignExpiration time.Duration

	// Retention removes stored reports older than this (0 keeps them forever)
	Retention time.Duration
}

// TextGenConfig holds the narrative text generation proxy settings
type TextGenConfig struct {
	Endpoint string // POST endpoint of the generation proxy; empty disables generation
	APIKey   string
	Timeout  time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces and metrics
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
}

// Load loads configuration from config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with MIESCUELA_ prefix (e.g., MIESCUELA_LOG_LEVEL)
// 2. config.toml in ., ./config or /etc/miescuela
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/miescuela")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}
	return load(v)
}

// LoadFile loads configuration from an explicit TOML file, still applying
// environment overrides
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Numeric layout defaults go through viper so an explicit 0 is kept
	v.SetDefault("layout.margin_top", 15.0)
	v.SetDefault("layout.margin_right", 15.0)
	v.SetDefault("layout.margin_bottom", 15.0)
	v.SetDefault("layout.margin_left", 15.0)
	v.SetDefault("layout.line_height_factor", printing.DefaultLineHeightFactor)
	v.SetDefault("layout.page_break_reserve", 40.0)
	v.SetDefault("telemetry.sampling_ratio", 1.0)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Report: ReportConfig{
			Institution: v.GetString("report.institution"),
			Locale:      v.GetString("report.locale"),
			HeaderMode:  v.GetString("report.header_mode"),
			FontFamily:  v.GetString("report.font_family"),
		},
		Layout: LayoutConfig{
			PaperSize:        v.GetString("layout.paper_size"),
			Orientation:      v.GetString("layout.orientation"),
			MarginTop:        v.GetFloat64("layout.margin_top"),
			MarginRight:      v.GetFloat64("layout.margin_right"),
			MarginBottom:     v.GetFloat64("layout.margin_bottom"),
			MarginLeft:       v.GetFloat64("layout.margin_left"),
			LineHeightFactor: v.GetFloat64("layout.line_height_factor"),
			PageBreakReserve: v.GetFloat64("layout.page_break_reserve"),
		},
		Asset: AssetConfig{
			HeaderImage:  v.GetString("asset.header_image"),
			FetchTimeout: v.GetDuration("asset.fetch_timeout"),
			MaxBytes:     v.GetInt64("asset.max_bytes"),
		},
		Storage: StorageConfig{
			Backend:           v.GetString("storage.backend"),
			BasePath:          v.GetString("storage.base_path"),
			BaseURL:           v.GetString("storage.base_url"),
			Endpoint:          v.GetString("storage.endpoint"),
			Region:            v.GetString("storage.region"),
			Bucket:            v.GetString("storage.bucket"),
			AccessKey:         v.GetString("storage.access_key"),
			SecretKey:         v.GetString("storage.secret_key"),
			UseSSL:            v.GetBool("storage.use_ssl"),
			UsePathStyle:      v.GetBool("storage.use_path_style"),
			Prefix:            v.GetString("storage.prefix"),
			PresignExpiration: v.GetDuration("storage.presign_expiration"),
			Retention:         v.GetDuration("storage.retention"),
		},
		TextGen: TextGenConfig{
			Endpoint: v.GetString("textgen.endpoint"),
			APIKey:   v.GetString("textgen.api_key"),
			Timeout:  v.GetDuration("textgen.timeout"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable
func Default() *Config {
	cfg := &Config{
		Layout: LayoutConfig{
			MarginTop:        15,
			MarginRight:      15,
			MarginBottom:     15,
			MarginLeft:       15,
			LineHeightFactor: printing.DefaultLineHeightFactor,
			PageBreakReserve: 40,
		},
		Telemetry: TelemetryConfig{SamplingRatio: 1.0},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "miescuela-reports"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}
	if cfg.Report.Institution == "" {
		cfg.Report.Institution = "MiEscuela 4.0"
	}
	if cfg.Report.Locale == "" {
		cfg.Report.Locale = "es-AR"
	}
	if cfg.Report.HeaderMode == "" {
		cfg.Report.HeaderMode = string(report.HeaderModeFirstPage)
	}
	if cfg.Report.FontFamily == "" {
		cfg.Report.FontFamily = printing.DefaultFontFamily
	}
	if cfg.Layout.PaperSize == "" {
		cfg.Layout.PaperSize = string(report.PaperSizeA4)
	}
	if cfg.Layout.Orientation == "" {
		cfg.Layout.Orientation = string(report.OrientationPortrait)
	}
	if cfg.Asset.FetchTimeout == 0 {
		cfg.Asset.FetchTimeout = 5 * time.Second
	}
	if cfg.Asset.MaxBytes == 0 {
		cfg.Asset.MaxBytes = 5 << 20 // 5MB
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageBackendFileSystem
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./reports"
	}
	if cfg.Storage.BaseURL == "" {
		cfg.Storage.BaseURL = "/reports"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.PresignExpiration == 0 {
		cfg.Storage.PresignExpiration = 15 * time.Minute
	}
	if cfg.TextGen.Timeout == 0 {
		cfg.TextGen.Timeout = 60 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "miescuela-reports"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	geometry, err := c.PageGeometry()
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	mode := report.HeaderMode(c.Report.HeaderMode)
	if !mode.IsValid() {
		return fmt.Errorf("report.header_mode must be %q or %q, got %q",
			report.HeaderModeFirstPage, report.HeaderModeEveryPage, c.Report.HeaderMode)
	}
	// a letterhead repeated on every page must not overlap the text
	headerBottom := printing.HeaderClearance()
	if mode == report.HeaderModeEveryPage && geometry.Margins.Top < headerBottom {
		return fmt.Errorf("layout.margin_top must be at least %.0fmm when report.header_mode is %q",
			headerBottom, report.HeaderModeEveryPage)
	}

	if !printing.IsCoreFontFamily(c.Report.FontFamily) {
		return fmt.Errorf("report.font_family must be a PDF core font (Helvetica, Times, Courier), got %q", c.Report.FontFamily)
	}
	if _, err := report.NewDateFormatter(c.Report.Locale); err != nil {
		return fmt.Errorf("report.locale is not a valid language tag: %w", err)
	}

	if c.Layout.LineHeightFactor <= 0 {
		return fmt.Errorf("layout.line_height_factor must be positive")
	}
	if c.Layout.PageBreakReserve < 0 || c.Layout.PageBreakReserve >= geometry.UsableHeight() {
		return fmt.Errorf("layout.page_break_reserve must be between 0 and the usable page height (%.1fmm)", geometry.UsableHeight())
	}

	if c.Asset.MaxBytes < 0 {
		return fmt.Errorf("asset.max_bytes cannot be negative")
	}

	switch c.Storage.Backend {
	case StorageBackendFileSystem:
	case StorageBackendS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q",
			StorageBackendFileSystem, StorageBackendS3, c.Storage.Backend)
	}
	if c.Storage.Retention < 0 {
		return fmt.Errorf("storage.retention cannot be negative")
	}

	if c.TextGen.Endpoint != "" {
		u, err := url.Parse(c.TextGen.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("textgen.endpoint must be an http(s) URL, got %q", c.TextGen.Endpoint)
		}
	}

	if c.App.Env == "production" {
		if c.Storage.Backend == StorageBackendS3 && (c.Storage.AccessKey == "" || c.Storage.SecretKey == "") {
			return fmt.Errorf("storage.access_key and storage.secret_key are required in production")
		}
		if c.TextGen.Endpoint != "" && strings.HasPrefix(c.TextGen.Endpoint, "http://") {
			return fmt.Errorf("textgen.endpoint must use https in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// PageGeometry builds the page geometry described by the layout settings
func (c *Config) PageGeometry() (report.PageGeometry, error) {
	margins, err := report.NewMargins(c.Layout.MarginTop, c.Layout.MarginRight, c.Layout.MarginBottom, c.Layout.MarginLeft)
	if err != nil {
		return report.PageGeometry{}, err
	}
	return report.NewPageGeometry(
		report.PaperSize(strings.ToUpper(c.Layout.PaperSize)),
		report.Orientation(strings.ToUpper(c.Layout.Orientation)),
		margins,
	)
}
