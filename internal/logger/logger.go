// Package logger provides structured logging for podmgr.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tuanbt/podmgr/internal/config"
)

// NewSystemLogger creates the main logger for line-oriented CLI runs.
func NewSystemLogger(cfg *config.Config) (*slog.Logger, error) {
	level := ParseLevel(cfg.LogLevel)

	// Ensure log directory exists
	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, err
	}

	logPath := filepath.Join(cfg.LogDirectory, "podmgr.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	// Multi-writer: file + stderr, stdout stays clean for command output
	multiWriter := io.MultiWriter(os.Stderr, file)

	handler := slog.NewJSONHandler(multiWriter, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler), nil
}

// NewEmbeddedLogger creates a logger that ONLY writes to file, so the TUI
// owns the terminal.
func NewEmbeddedLogger(cfg *config.Config) (*slog.Logger, error) {
	level := ParseLevel(cfg.LogLevel)

	if err := os.MkdirAll(cfg.LogDirectory, 0755); err != nil {
		return nil, err
	}

	logPath := filepath.Join(cfg.LogDirectory, "podmgr.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler), nil
}

// NewConsoleLogger creates a simple console-only logger.
func NewConsoleLogger(cfg *config.Config) *slog.Logger {
	level := ParseLevel(cfg.LogLevel)

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(handler)
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
