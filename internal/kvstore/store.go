// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package kvstore provides the persistence the vault is injected with.
//
// A Store is a flat byte-valued key-value map. The vault only ever stores
// ciphertext envelopes and public addresses in it, so backends need no
// encryption of their own. Backends that can observe changes made by other
// processes also implement Watcher.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound indicates the key has no value.
var ErrNotFound = errors.New("kvstore: key not found")

// ErrInvalidKey indicates a key that cannot be stored safely by every backend.
var ErrInvalidKey = errors.New("kvstore: invalid key")

// Store is a minimal key-value store.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// Watcher is implemented by stores that report external modifications.
// onChange is called with the affected key, possibly from another goroutine.
// Watching stops when ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, onChange func(key string)) error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-][A-Za-z0-9_.-]{0,127}$`)

// ValidateKey rejects keys that are empty, too long, hidden, or contain path separators.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Has reports whether key has a value.
func Has(ctx context.Context, s Store, key string) (bool, error) {
	_, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
