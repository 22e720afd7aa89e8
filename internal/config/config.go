// Package config loads taxonomist settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"go-simpler.org/env"

	"github.com/pbaille/taxonomist/internal/labels"
)

// AppName names the per-user data directory
const AppName = "taxonomist"

type Config struct {
	DataDir   string `env:"TAXONOMIST_DATA_DIR"`
	DBPath    string `env:"TAXONOMIST_DB_PATH"`
	Addr      string `env:"TAXONOMIST_ADDR" default:":8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.DataDir == "" {
		dir, err := DefaultDataDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "journal.db")
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// DefaultDataDir returns the platform's per-user config directory for taxonomist
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// LabelsDir returns the directory label set files are read from
func (c *Config) LabelsDir() string {
	return labels.DefaultDir(c.DataDir)
}

// LogPath returns the log file used while the terminal UI owns the screen
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, AppName+".log")
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.Addr == "" {
		return fmt.Errorf("TAXONOMIST_ADDR must not be empty")
	}

	return nil
}
