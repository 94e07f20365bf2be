// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"sync"
	"testing"
)

func TestStringRegistry_Basic(t *testing.T) {
	r := NewStringRegistry[int]()

	if !r.Set("a", 1) {
		t.Error("expected Set to return true for new key")
	}
	if r.Set("a", 2) {
		t.Error("expected Set to return false for existing key")
	}

	v, ok := r.Get("a")
	if !ok || v != 1 {
		t.Errorf("expected Get(a) = (1, true), got (%d, %v)", v, ok)
	}

	if _, ok := r.Get("nonexistent"); ok {
		t.Error("expected Get(nonexistent) to return false")
	}
	if !r.Has("a") || r.Has("b") {
		t.Error("Has reports wrong membership")
	}
}

func TestStringRegistry_MustSetPanicsOnDuplicate(t *testing.T) {
	r := NewStringRegistry[string]()
	r.MustSet("chacha20", "x")

	defer func() {
		if recover() == nil {
			t.Error("expected MustSet to panic on duplicate key")
		}
	}()
	r.MustSet("chacha20", "y")
}

func TestStringRegistry_KeysSorted(t *testing.T) {
	r := NewStringRegistry[int]()
	r.Set("sqlite", 3)
	r.Set("file", 1)
	r.Set("memory", 2)

	keys := r.Keys()
	expected := []string{"file", "memory", "sqlite"}
	if len(keys) != len(expected) {
		t.Fatalf("expected %d keys, got %d", len(expected), len(keys))
	}
	for i, k := range keys {
		if k != expected[i] {
			t.Errorf("expected keys[%d] = %s, got %s", i, expected[i], k)
		}
	}
}

func TestStringRegistry_Concurrent(t *testing.T) {
	r := NewStringRegistry[int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r.Set(string(rune('a'+n%26)), n)
			r.Keys()
		}(i)
	}
	wg.Wait()

	if got := len(r.Keys()); got != 26 {
		t.Errorf("expected 26 distinct keys, got %d", got)
	}
}
