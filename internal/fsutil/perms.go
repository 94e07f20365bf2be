// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package fsutil provides filesystem helpers for the wallet data directory.
// Vault files hold encrypted secrets and are kept owner-only (0600 files,
// 0700 dirs).
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirPerm is the permission mode for data directories.
const DirPerm os.FileMode = 0700

// FilePerm is the permission mode for data files.
const FilePerm os.FileMode = 0600

// MkdirAll creates a directory and all parents with owner-only permissions.
// Unlike os.MkdirAll, this explicitly sets permissions after creation to
// bypass umask restrictions.
func MkdirAll(path string) error {
	if err := os.MkdirAll(path, DirPerm); err != nil {
		return err
	}
	return os.Chmod(path, DirPerm)
}

// WriteFile writes data to a file with owner-only permissions.
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, FilePerm); err != nil {
		return err
	}
	return os.Chmod(path, FilePerm)
}

// AtomicWriteFile writes data to a temp file in the same directory, syncs it
// and renames it over path. Readers never observe a partial file.
func AtomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := tmp.Chmod(FilePerm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
