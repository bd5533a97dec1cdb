// Package config loads pipeline configuration from defaults, a YAML file
// and AIP_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents configuration stored in ~/.config/aip/config.yml.
type Config struct {
	DBPath        string `yaml:"db_path" json:"db_path" envconfig:"DB_PATH"`
	BatchSize     int    `yaml:"batch_size" json:"batch_size" envconfig:"BATCH_SIZE"`
	LogLevel      string `yaml:"log_level" json:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat     string `yaml:"log_format" json:"log_format" envconfig:"LOG_FORMAT"` // json or console
	CorpusPattern string `yaml:"corpus_pattern" json:"corpus_pattern" envconfig:"CORPUS_PATTERN"`
	HTTPAddr      string `yaml:"http_addr" json:"http_addr" envconfig:"HTTP_ADDR"`
	Schedule      string `yaml:"schedule,omitempty" json:"schedule,omitempty" envconfig:"SCHEDULE"` // cron spec for repeated ingestion
	MetricsFile   string `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty" envconfig:"METRICS_FILE"`

	S3 S3Config `yaml:"s3" json:"s3" envconfig:"S3"`
}

// S3Config locates a Semantic Scholar corpus in an S3-compatible bucket.
type S3Config struct {
	Bucket            string  `yaml:"bucket,omitempty" json:"bucket,omitempty" envconfig:"BUCKET"`
	Prefix            string  `yaml:"prefix,omitempty" json:"prefix,omitempty" envconfig:"PREFIX"`
	Region            string  `yaml:"region,omitempty" json:"region,omitempty" envconfig:"REGION"`
	Endpoint          string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty" envconfig:"ENDPOINT"` // empty for AWS
	AccessKey         string  `yaml:"access_key,omitempty" json:"-" envconfig:"ACCESS_KEY"`
	SecretKey         string  `yaml:"secret_key,omitempty" json:"-" envconfig:"SECRET_KEY"`
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty" json:"requests_per_second,omitempty" envconfig:"REQUESTS_PER_SECOND"`
}

const (
	// ConfigDir is the directory name under XDG_CONFIG_HOME.
	ConfigDir = "aip"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "AIP"
)

// Configuration errors.
var (
	ErrBadBatchSize = errors.New("batch_size must be positive")
	ErrBadLogFormat = errors.New("log_format must be json or console")
	ErrBadRate      = errors.New("s3.requests_per_second must not be negative")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DBPath:        "aip.db",
		BatchSize:     1000,
		LogLevel:      "info",
		LogFormat:     "json",
		CorpusPattern: `s2-corpus-\d+`,
		HTTPAddr:      ":8080",
		S3: S3Config{
			Region:            "us-west-2",
			RequestsPerSecond: 5,
		},
	}
}

// Path returns the path to the config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/aip/config.yml.
func Path() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, ConfigDir, ConfigFile)
}

// Load builds the configuration. An explicit path must exist; the default
// path may be absent. Environment variables override the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = Path()
	}
	if path != "" {
		if err := cfg.mergeFile(path, explicit); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.DBPath = ExpandTilde(cfg.DBPath)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that have no usable fallback.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: %d", ErrBadBatchSize, c.BatchSize)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("%w: %q", ErrBadLogFormat, c.LogFormat)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.S3.RequestsPerSecond < 0 {
		return ErrBadRate
	}
	return nil
}

// ExpandTilde expands ~ to the user's home directory.
func ExpandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
