// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"io"
	"log/slog"
	"os"
)

// Logger is the process-wide logger used by the CLI. Libraries take an injected
// *slog.Logger and fall back to this one through DefaultLogger.
var Logger *slog.Logger

// InitLogger initializes the global logger writing to stderr.
// Set SWALLET_DEBUG=1 to enable debug logging.
func InitLogger() {
	Logger = NewLogger(os.Stderr, os.Getenv("SWALLET_DEBUG") != "")
}

// NewLogger builds a text logger without timestamps for clean CLI output.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(handler)
}

// DefaultLogger returns the global logger, or a discarding logger if InitLogger was never called.
func DefaultLogger() *slog.Logger {
	if Logger != nil {
		return Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Debug logs a debug message (only shown when SWALLET_DEBUG is set)
func Debug(msg string, args ...any) {
	DefaultLogger().Debug(msg, args...)
}
