// Package logging configures the process-wide go-ethereum logger: console
// output, or a rotating JSON file handler instead when the config names a
// file, driven by a small YAML config file external to the main watchtower
// config.
package logging

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

// Config is the schema of logging_config.yaml.
type Config struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Setup reads the YAML config at path (if it exists) and installs the
// resulting handler as go-ethereum's root logger. A missing file is not an
// error: the watchtower falls back to a plain terminal logger at info
// level.
func Setup(path string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	level := parseLevel(cfg.Level)

	var handler slog.Handler
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		handler = log.JSONHandlerWithLevel(rotator, level)
	} else {
		useColor := isatty.IsTerminal(os.Stderr.Fd())
		handler = log.NewTerminalHandlerWithLevel(os.Stderr, level, useColor)
	}

	log.SetDefault(log.NewLogger(handler))
	return nil
}

func parseLevel(s string) slog.Level {
	switch s {
	case "trace":
		return log.LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "crit":
		return log.LevelCrit
	default:
		return slog.LevelInfo
	}
}

func loadConfig(path string) (Config, error) {
	cfg := Config{Level: "info"}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read logging config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse logging config %q: %w", path, err)
	}
	return cfg, nil
}
