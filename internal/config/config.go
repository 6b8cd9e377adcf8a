package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dgallion1/pdflayout/internal/sources"
	"github.com/dgallion1/pdflayout/internal/store"
)

type Config struct {
	DownloadsDir string `mapstructure:"downloads_dir"`
	OutputPath   string `mapstructure:"output_path"`
	SourcesFile  string `mapstructure:"sources_file"`

	// Sources listed inline in the config file. Nil means none were
	// configured; an empty list is an explicit empty batch.
	Sources []sources.Source `mapstructure:"sources"`

	HTTP   HTTPConfig
	Log    LogConfig
	Server ServerConfig
	Export ExportConfig
	S3     S3Config
}

// HTTPConfig controls the downloader.
type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	UserAgent  string        `mapstructure:"user_agent"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Port       string        `mapstructure:"port"`
	APIKey     string        `mapstructure:"api_key"`
	QueueSize  int           `mapstructure:"queue_size"`
	JobTTL     time.Duration `mapstructure:"job_ttl"`
	ResultsDir string        `mapstructure:"results_dir"`
}

// ExportConfig holds optional extra outputs.
type ExportConfig struct {
	TablesXLSX string `mapstructure:"tables_xlsx"`
}

// S3Config holds the optional S3 results upload target. Uploads are
// enabled when Bucket is set.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Enabled reports whether results should be uploaded.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

// Store converts to the store package's settings.
func (c S3Config) Store() store.S3Config {
	return store.S3Config{
		Region:    c.Region,
		Bucket:    c.Bucket,
		Key:       c.Key,
		Endpoint:  c.Endpoint,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
	}
}

const envPrefix = "PDFLAYOUT"

// Load reads configuration from an optional YAML file and environment
// variables with the PDFLAYOUT_ prefix. Environment wins over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("downloads_dir", "samples/pdfs")
	v.SetDefault("output_path", "samples/processed_results.json")
	v.SetDefault("sources_file", "")

	v.SetDefault("http.timeout", "0s")
	v.SetDefault("http.user_agent", "pdflayout/1.0")
	v.SetDefault("http.max_retries", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.port", "8090")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.queue_size", 100)
	v.SetDefault("server.job_ttl", "1h")
	v.SetDefault("server.results_dir", "samples/jobs")

	v.SetDefault("export.tables_xlsx", "")

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.key", "processed_results.json")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"downloads_dir":      "PDFLAYOUT_DOWNLOADS_DIR",
		"output_path":        "PDFLAYOUT_OUTPUT_PATH",
		"sources_file":       "PDFLAYOUT_SOURCES_FILE",
		"http.timeout":       "PDFLAYOUT_HTTP_TIMEOUT",
		"http.user_agent":    "PDFLAYOUT_HTTP_USER_AGENT",
		"http.max_retries":   "PDFLAYOUT_HTTP_MAX_RETRIES",
		"log.level":          "PDFLAYOUT_LOG_LEVEL",
		"log.format":         "PDFLAYOUT_LOG_FORMAT",
		"server.port":        "PDFLAYOUT_SERVER_PORT",
		"server.api_key":     "PDFLAYOUT_SERVER_API_KEY",
		"server.queue_size":  "PDFLAYOUT_SERVER_QUEUE_SIZE",
		"server.job_ttl":     "PDFLAYOUT_SERVER_JOB_TTL",
		"server.results_dir": "PDFLAYOUT_SERVER_RESULTS_DIR",
		"export.tables_xlsx": "PDFLAYOUT_EXPORT_TABLES_XLSX",
		"s3.region":          "PDFLAYOUT_S3_REGION",
		"s3.bucket":          "PDFLAYOUT_S3_BUCKET",
		"s3.key":             "PDFLAYOUT_S3_KEY",
		"s3.endpoint":        "PDFLAYOUT_S3_ENDPOINT",
		"s3.access_key":      "PDFLAYOUT_S3_ACCESS_KEY",
		"s3.secret_key":      "PDFLAYOUT_S3_SECRET_KEY",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		DownloadsDir: v.GetString("downloads_dir"),
		OutputPath:   v.GetString("output_path"),
		SourcesFile:  v.GetString("sources_file"),
	}
	if err := v.UnmarshalKey("sources", &cfg.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if v.IsSet("sources") && cfg.Sources == nil {
		cfg.Sources = []sources.Source{}
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Filename == "" {
			cfg.Sources[i].Filename = sources.FilenameFromURL(cfg.Sources[i].URL)
		}
	}
	cfg.HTTP = HTTPConfig{
		Timeout:    v.GetDuration("http.timeout"),
		UserAgent:  v.GetString("http.user_agent"),
		MaxRetries: v.GetInt("http.max_retries"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Server = ServerConfig{
		Port:       v.GetString("server.port"),
		APIKey:     v.GetString("server.api_key"),
		QueueSize:  v.GetInt("server.queue_size"),
		JobTTL:     v.GetDuration("server.job_ttl"),
		ResultsDir: v.GetString("server.results_dir"),
	}
	cfg.Export = ExportConfig{
		TablesXLSX: v.GetString("export.tables_xlsx"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Key:       v.GetString("s3.key"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
	}

	if cfg.Server.QueueSize <= 0 {
		cfg.Server.QueueSize = 100
	}
	if cfg.Server.JobTTL <= 0 {
		cfg.Server.JobTTL = time.Hour
	}
	return cfg, nil
}

// Validate checks settings needed by every command.
func (c *Config) Validate() error {
	if c.DownloadsDir == "" {
		return errors.New("downloads_dir is required")
	}
	if c.OutputPath == "" {
		return errors.New("output_path is required")
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative, got %s", c.HTTP.Timeout)
	}
	if c.HTTP.MaxRetries < 0 {
		return fmt.Errorf("http.max_retries must not be negative, got %d", c.HTTP.MaxRetries)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text", "console":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	if c.S3.Enabled() && c.S3.Key == "" {
		return errors.New("s3.key is required when s3.bucket is set")
	}
	return nil
}

// ValidateServe additionally checks settings needed by the HTTP API.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.APIKey == "" {
		return errors.New("PDFLAYOUT_SERVER_API_KEY is required")
	}
	if c.Server.ResultsDir == "" {
		return errors.New("server.results_dir is required")
	}
	return nil
}

// ResolveSources picks the batch to run: the manifest file if one is set,
// then sources listed in the config (even an empty list), then the
// built-in sample batch. Entries are not validated; each bad one fails
// in its own download.
func (c *Config) ResolveSources() ([]sources.Source, error) {
	if c.SourcesFile != "" {
		return sources.LoadManifest(c.SourcesFile)
	}
	if c.Sources != nil {
		return c.Sources, nil
	}
	return sources.Defaults(), nil
}

// NewLogger builds the process logger. "console" is accepted as an alias
// for text.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(l.Format) {
	case "text", "console":
		return slog.New(slog.NewTextHandler(w, opts))
	default:
		return slog.New(slog.NewJSONHandler(w, opts))
	}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return level, nil
}
