// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package audit records vault lifecycle events (create, unlock, export, sign)
// as JSON lines. Events carry addresses and outcomes, never secrets or passwords.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/fsutil"
)

// Actions recorded by the vault.
const (
	ActionCreate         = "vault.create"
	ActionImport         = "vault.import"
	ActionUnlock         = "vault.unlock"
	ActionClear          = "vault.clear"
	ActionExport         = "vault.export"
	ActionChangePassword = "vault.change_password"
	ActionSign           = "tx.sign"
)

// Logger records audit events.
type Logger interface {
	Record(ctx context.Context, action, address string, err error)
	Close() error
}

// Event is one parsed audit line.
type Event struct {
	ID      string    `json:"id"`
	Time    time.Time `json:"time"`
	Action  string    `json:"msg"`
	Success bool      `json:"success"`
	Address string    `json:"address,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// NoOpLogger discards events.
type NoOpLogger struct{}

func (NoOpLogger) Record(context.Context, string, string, error) {}
func (NoOpLogger) Close() error                                 { return nil }

// FileLogger appends events to a file with owner-only permissions.
type FileLogger struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	logger *slog.Logger
}

// NewFileLogger opens path for appending, creating it and its directory if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	if path == "" {
		return nil, fmt.Errorf("audit log path is required")
	}
	if err := fsutil.MkdirAll(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, fsutil.FilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return &FileLogger{
		path:   path,
		file:   file,
		logger: slog.New(slog.NewJSONHandler(file, nil)),
	}, nil
}

// Record appends one event.
func (l *FileLogger) Record(ctx context.Context, action, address string, err error) {
	attrs := []slog.Attr{
		slog.String("id", uuid.NewString()),
		slog.Bool("success", err == nil),
	}
	if address != "" {
		attrs = append(attrs, slog.String("address", address))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.LogAttrs(ctx, slog.LevelInfo, action, attrs...)
}

// Close closes the file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// QueryOptions filters ReadEvents.
type QueryOptions struct {
	Action  string
	Since   time.Time
	// Success filters by outcome when non-nil.
	Success *bool
	Limit   int
}

// ReadEvents parses the audit file at path, newest last. Unparseable lines are skipped.
func ReadEvents(path string, opts QueryOptions) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if opts.Action != "" && e.Action != opts.Action {
			continue
		}
		if !opts.Since.IsZero() && e.Time.Before(opts.Since) {
			continue
		}
		if opts.Success != nil && e.Success != *opts.Success {
			continue
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	if opts.Limit > 0 && len(events) > opts.Limit {
		events = events[len(events)-opts.Limit:]
	}
	return events, nil
}
