// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/fsutil"
)

// Overwrite deleted content so removed envelopes do not linger in free pages.
const sqliteDBOptions = "_secure_delete=on&_txlock=exclusive&_busy_timeout=5000"

var sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

type sqliteEntry struct {
	Key       string `db:"key"`
	Value     []byte `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// SQLiteStore keeps entries in a single-table SQLite database.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
}

func sqliteConnectionURL(path string) string {
	return fmt.Sprintf("file:%s?%s", path, sqliteDBOptions)
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("kvstore: sqlite path is required")
	}
	if err := fsutil.MkdirAll(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", sqliteConnectionURL(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; the vault is single-session.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	if err := os.Chmod(path, fsutil.FilePerm); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	var value []byte
	err := s.db.GetContext(ctx, &value, "SELECT value FROM entries WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	entry := sqliteEntry{Key: key, Value: value, UpdatedAt: time.Now().Unix()}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO entries (key, value, updated_at) VALUES (:key, :value, :updated_at)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		entry)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
