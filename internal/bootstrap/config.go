package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/Alqudimi/wifi-network-manager/config"
)

// InitLogger initializes the structured logger and installs it as the default.
// Development mode logs text at debug level; otherwise JSON at info.
func InitLogger(isDev bool) *slog.Logger {
	logger := NewLogger(os.Stdout, isDev)
	slog.SetDefault(logger)
	return logger
}

// NewLogger builds the process logger writing to w.
func NewLogger(w io.Writer, isDev bool) *slog.Logger {
	if isDev {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}
