package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file at the repository root.
const FileName = "bankfeed.yaml"

// Config represents the top-level bankfeed.yaml configuration.
type Config struct {
	Parse   ParseConfig   `yaml:"parse"`
	Import  ImportConfig  `yaml:"import"`
	Logging LoggingConfig `yaml:"logging"`
	Server  ServerConfig  `yaml:"server"`
	Git     GitConfig     `yaml:"git"`
}

// ParseConfig controls statement decoding.
type ParseConfig struct {
	DefaultFormat    string `yaml:"default_format"` // "auto", "bai2", "mt940" or "camt053"
	ValidateBalances bool   `yaml:"validate_balances"`
}

// ImportConfig controls the import directory workflow. Paths are relative
// to the repository root.
type ImportConfig struct {
	Dir          string   `yaml:"dir"`
	ProcessedDir string   `yaml:"processed_dir"`
	OutputDir    string   `yaml:"output_dir"`
	OutputFormat string   `yaml:"output_format"`
	Extensions   []string `yaml:"extensions"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig controls the HTTP endpoint.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a bankfeed.yaml file from disk. Keys missing from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault reads path if it exists and returns defaults otherwise.
// Environment overrides are applied in both cases.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		cfg = Default()
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Parse: ParseConfig{
			DefaultFormat:    "auto",
			ValidateBalances: false,
		},
		Import: ImportConfig{
			Dir:          "import",
			ProcessedDir: "import/processed",
			OutputDir:    "statements",
			OutputFormat: "json",
			Extensions:   []string{".bai", ".bai2", ".mt940", ".sta", ".xml"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    10 << 20,
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Bankfeed Importer",
			AuthorEmail: "importer@bankfeed.local",
		},
	}
}

// Environment variables that override file settings.
const (
	EnvLogLevel        = "BANKFEED_LOG_LEVEL"
	EnvDefaultFormat   = "BANKFEED_DEFAULT_FORMAT"
	EnvOutputFormat    = "BANKFEED_OUTPUT_FORMAT"
	EnvServerHost      = "BANKFEED_SERVER_HOST"
	EnvServerPort      = "BANKFEED_SERVER_PORT"
	EnvShutdownTimeout = "BANKFEED_SHUTDOWN_TIMEOUT"
	EnvMaxBodyBytes    = "BANKFEED_MAX_BODY_BYTES"
)

// ApplyEnv loads .env from the working directory when present and copies
// BANKFEED_* variables over cfg. Variables already set in the process
// environment win over .env.
func ApplyEnv(cfg *Config) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}

	setString(&cfg.Logging.Level, EnvLogLevel)
	setString(&cfg.Parse.DefaultFormat, EnvDefaultFormat)
	setString(&cfg.Import.OutputFormat, EnvOutputFormat)
	setString(&cfg.Server.Host, EnvServerHost)
	setString(&cfg.Server.Port, EnvServerPort)

	if v := os.Getenv(EnvShutdownTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvShutdownTimeout, v, err)
		}
		cfg.Server.ShutdownTimeout = d
	}
	if v := os.Getenv(EnvMaxBodyBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", EnvMaxBodyBytes, v, err)
		}
		cfg.Server.MaxBodyBytes = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
