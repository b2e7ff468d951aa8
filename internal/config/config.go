// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.alexandria/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive values (the PostgreSQL password) are masked in MarshalJSON and
// String, so a logged Config never leaks credentials. Validation uses
// sentinel errors checkable with errors.Is.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required model API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidTimeout indicates a timeout setting is non-positive.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidChunking indicates chunk size/overlap values are out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidUpload indicates upload limits or directories are invalid.
	ErrInvalidUpload = errors.New("invalid upload configuration")

	// ErrInvalidWorkers indicates worker pool sizing is out of range.
	ErrInvalidWorkers = errors.New("invalid worker configuration")

	// ErrInvalidScanner indicates scanner settings are out of range.
	ErrInvalidScanner = errors.New("invalid scanner configuration")

	// ErrInvalidSearch indicates search defaults are out of range.
	ErrInvalidSearch = errors.New("invalid search configuration")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the password is missing or weak.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the SSL mode is not supported.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogleAI = "googleai"
	ProviderOllama   = "ollama"
)

// Config stores application configuration.
// SECURITY: sensitive fields are masked in MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider        string        `mapstructure:"provider" json:"provider"`     // "googleai" (default) or "ollama"
	ModelName       string        `mapstructure:"model_name" json:"model_name"` // answer generation model
	EmbedderModel   string        `mapstructure:"embedder_model" json:"embedder_model"`
	OllamaHost      string        `mapstructure:"ollama_host" json:"ollama_host"`
	GenerateTimeout time.Duration `mapstructure:"generate_timeout" json:"generate_timeout"`

	// Chunking
	ChunkSize    int `mapstructure:"chunk_size" json:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Uploads
	UploadDir     string `mapstructure:"upload_dir" json:"upload_dir"`
	MaxFileSizeMB int64  `mapstructure:"max_file_size_mb" json:"max_file_size_mb"`

	// Ingestion worker pool
	WorkerCount   int `mapstructure:"worker_count" json:"worker_count"`
	QueueCapacity int `mapstructure:"queue_capacity" json:"queue_capacity"`

	// Directory scanner
	ScanInterval     time.Duration `mapstructure:"scan_interval" json:"scan_interval"`
	WatchDirectories []string      `mapstructure:"watch_directories" json:"watch_directories"`
	HardDelete       bool          `mapstructure:"hard_delete" json:"hard_delete"` // remove rows instead of soft-deleting

	// Search defaults
	DefaultSearchLimit  int     `mapstructure:"default_search_limit" json:"default_search_limit"`
	SimilarityThreshold float64 `mapstructure:"similarity_threshold" json:"similarity_threshold"`

	// HTTP server
	ListenAddr string `mapstructure:"listen_addr" json:"listen_addr"`

	// Logging
	LogLevel string `mapstructure:"log_level" json:"log_level"` // debug, info, warn, error
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Storage (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`
}

// Load reads configuration with priority env > file > defaults.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".alexandria")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL wins over individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("provider", ProviderGoogleAI)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("embedder_model", "gemini-embedding-001")
	viper.SetDefault("ollama_host", "http://localhost:11434")
	viper.SetDefault("generate_timeout", "30s")

	viper.SetDefault("chunk_size", 1000)
	viper.SetDefault("chunk_overlap", 200)

	viper.SetDefault("upload_dir", "./uploads")
	viper.SetDefault("max_file_size_mb", 100)

	viper.SetDefault("worker_count", 4)
	viper.SetDefault("queue_capacity", 64)

	viper.SetDefault("scan_interval", "5m")
	viper.SetDefault("watch_directories", []string{})
	viper.SetDefault("hard_delete", false)

	viper.SetDefault("default_search_limit", 10)
	viper.SetDefault("similarity_threshold", 0.7)

	viper.SetDefault("listen_addr", ":8080")

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "alexandria")
	viper.SetDefault("postgres_password", "alexandria_dev_password")
	viper.SetDefault("postgres_db_name", "alexandria")
	viper.SetDefault("postgres_ssl_mode", "disable")
}

// bindEnvVariables binds runtime override variables explicitly.
// GEMINI_API_KEY is read directly by Genkit, not through Viper; Validate
// only checks its presence for the googleai provider.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "ALEXANDRIA_PROVIDER")
	mustBind("model_name", "ALEXANDRIA_MODEL_NAME")
	mustBind("embedder_model", "ALEXANDRIA_EMBEDDER_MODEL")
	mustBind("ollama_host", "ALEXANDRIA_OLLAMA_HOST")
	mustBind("upload_dir", "ALEXANDRIA_UPLOAD_DIR")
	mustBind("listen_addr", "ALEXANDRIA_LISTEN_ADDR")
	mustBind("log_level", "ALEXANDRIA_LOG_LEVEL")
	mustBind("watch_directories", "ALEXANDRIA_WATCH_DIRECTORIES")
}

// maskedValue uses full-width blocks so masked output can never be a
// substring of the real secret.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 chars or fewer
// are fully masked; longer ones keep the first and last two characters.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields. When adding new secrets to Config,
// mask them here.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// FullModelName returns the provider-qualified model reference for Genkit,
// e.g. "googleai/gemini-2.5-flash" or "ollama/llama3.3".
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}

// SlogLevel maps the configured log level name to a slog.Level.
// Unknown names fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MaxFileSizeBytes returns the upload size limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
