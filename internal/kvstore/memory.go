// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package kvstore

import (
	"context"
	"sync"
)

// MemoryStore keeps values in process memory. Used for tests and ephemeral
// sessions. It notifies watchers synchronously after every Set and Delete.
type MemoryStore struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers []func(key string)
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	watchers := append([]func(string){}, m.watchers...)
	m.mu.Unlock()

	notify(watchers, key)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	_, existed := m.data[key]
	delete(m.data, key)
	watchers := append([]func(string){}, m.watchers...)
	m.mu.Unlock()

	if existed {
		notify(watchers, key)
	}
	return nil
}

// Watch registers onChange until ctx is cancelled.
func (m *MemoryStore) Watch(ctx context.Context, onChange func(key string)) error {
	m.mu.Lock()
	m.watchers = append(m.watchers, onChange)
	idx := len(m.watchers) - 1
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		m.watchers[idx] = nil
		m.mu.Unlock()
	}()
	return nil
}

// Close drops all values.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.data {
		clear(v)
		delete(m.data, k)
	}
	return nil
}

func notify(watchers []func(string), key string) {
	for _, fn := range watchers {
		if fn != nil {
			fn(key)
		}
	}
}
