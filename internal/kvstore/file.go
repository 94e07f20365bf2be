// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/fsutil"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/util"
)

// DefaultDebounce is how long the file watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// FileStore stores each key as a file in a directory with owner-only
// permissions. Writes are atomic (temp file + rename).
type FileStore struct {
	dir      string
	debounce time.Duration
	logger   *slog.Logger
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithDebounce overrides the watcher debounce delay.
func WithDebounce(d time.Duration) FileOption {
	return func(f *FileStore) { f.debounce = d }
}

// WithLogger sets the logger used for watcher errors.
func WithLogger(l *slog.Logger) FileOption {
	return func(f *FileStore) { f.logger = l }
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, opts ...FileOption) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("kvstore: file store directory is required")
	}
	if err := fsutil.MkdirAll(dir); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	f := &FileStore{dir: dir, debounce: DefaultDebounce, logger: util.DefaultLogger()}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Dir returns the directory backing the store.
func (f *FileStore) Dir() string { return f.dir }

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, key)
}

func (f *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (f *FileStore) Set(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := fsutil.AtomicWriteFile(f.path(key), value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := os.Remove(f.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }

// Watch reports keys created, modified, removed or renamed in the store
// directory by any process. Events for a key are debounced.
func (f *FileStore) Watch(ctx context.Context, onChange func(key string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch store directory: %w", err)
	}

	f.logger.Debug("watching vault store", "dir", f.dir)

	go func() {
		defer func() { _ = watcher.Close() }()

		var mu sync.Mutex
		timers := make(map[string]*time.Timer)
		defer func() {
			mu.Lock()
			for _, t := range timers {
				t.Stop()
			}
			mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				key := filepath.Base(event.Name)
				// Atomic writes go through hidden temp files
				if strings.HasPrefix(key, ".") || ValidateKey(key) != nil {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}

				mu.Lock()
				if t, ok := timers[key]; ok {
					t.Stop()
				}
				timers[key] = time.AfterFunc(f.debounce, func() {
					if ctx.Err() == nil {
						onChange(key)
					}
				})
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.Warn("vault store watcher error", "error", err)
			}
		}
	}()

	return nil
}
