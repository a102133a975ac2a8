package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config struct for environment variables, FETCHD_ prefixed.
type Config struct {
	DownloadDir string `envconfig:"DOWNLOAD_DIR" default:"downloads"`
	Overwrite   bool   `envconfig:"OVERWRITE" default:"false"`

	ChunkSize             int   `envconfig:"CHUNK_SIZE" default:"32768"`
	ProgressIntervalBytes int64 `envconfig:"PROGRESS_INTERVAL_BYTES" default:"262144"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`
	// LogFile enables rotated file logging when set; empty logs to stdout.
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"50"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"3"`

	Web struct {
		BindAddress     string        `split_words:"true" default:"0.0.0.0:9090"`
		ReadTimeout     time.Duration `split_words:"true" default:"30s"`
		WriteTimeout    time.Duration `split_words:"true" default:"30s"`
		IdleTimeout     time.Duration `split_words:"true" default:"120s"`
		ShutdownTimeout time.Duration `split_words:"true" default:"30s"`
	}
}

// Load reads environment variables and populates the Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("fetchd", &cfg); err != nil {
		return nil, fmt.Errorf("error processing env: %w", err)
	}

	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
