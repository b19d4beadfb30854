// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package logger holds the process-wide slog logger. Records are JSON and go
// to $XDG_STATE_HOME/blender-engine/app.log, and to stderr outside the TUI.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LevelEnvVar selects the minimum log level (debug, info, warn, error).
const LevelEnvVar = "BLENDER_ENGINE_LOG_LEVEL"

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// LogFilePath returns the application log file, creating nothing.
func LogFilePath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "blender-engine", "app.log"), nil
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New returns a JSON logger writing to w at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func openLogFile() (*os.File, error) {
	path, err := LogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	// Left open for the lifetime of the process.
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
}

// InitLogger installs the default logger. The TUI owns the terminal, so with
// tui set records only reach the log file.
func InitLogger(tui bool) {
	var writers []io.Writer
	if f, err := openLogFile(); err != nil {
		fmt.Fprintf(os.Stderr, "File logging disabled: %v\n", err)
	} else {
		writers = append(writers, f)
	}
	if !tui || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	l := New(io.MultiWriter(writers...), ParseLevel(os.Getenv(LevelEnvVar)))
	SetLogger(l)
	l.Debug("Logging configured", "tui", tui, "writers", len(writers))
}

// SetLogger replaces the default logger, mainly for tests.
func SetLogger(l *slog.Logger) {
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
}

// Logger returns the default logger, installing the CLI one on first use.
func Logger() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		InitLogger(false)
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Info(msg string, args ...any)  { Logger().Info(msg, args...) }
func Warn(msg string, args ...any)  { Logger().Warn(msg, args...) }
func Error(msg string, args ...any) { Logger().Error(msg, args...) }
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }
