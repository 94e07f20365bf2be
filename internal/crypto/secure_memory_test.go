// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"bytes"
	"errors"
	"sync"
	"testing"
)

func TestZeroBytes(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"single byte", []byte{0xFF}},
		{"derived key", bytes.Repeat([]byte{0xAB}, KeyLen)},
		{"secret text", []byte("SBPQUZ6G4FZNWFHKUWC5BEYWF6R52E3SEP7R3GWYSM2XTKGF5LNTWW4R")},
		{"large buffer", bytes.Repeat([]byte{0xEF}, 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ZeroBytes(tt.data)
			for i, b := range tt.data {
				if b != 0 {
					t.Fatalf("byte at index %d is not zero: got %d", i, b)
				}
			}
		})
	}
}

func TestZeroBytes_EmptyAndNil(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("ZeroBytes panicked: %v", r)
		}
	}()
	ZeroBytes(nil)
	ZeroBytes([]byte{})
}

func TestSecureString_CopiesInput(t *testing.T) {
	input := []byte("correct horse battery staple")
	s := NewSecureStringFromBytes(input)
	ZeroBytes(input)

	if s.Reveal() != "correct horse battery staple" {
		t.Errorf("SecureString should hold its own copy, got %q", s.Reveal())
	}
	if s.Len() != 28 {
		t.Errorf("expected length 28, got %d", s.Len())
	}
}

func TestSecureString_WithBytes(t *testing.T) {
	s := NewSecureStringFromBytes([]byte("secret"))

	var seen []byte
	err := s.WithBytes(func(b []byte) error {
		seen = append(seen, b...)
		return nil
	})
	if err != nil {
		t.Fatalf("WithBytes returned error: %v", err)
	}
	if string(seen) != "secret" {
		t.Errorf("expected 'secret', got %q", seen)
	}

	sentinel := errors.New("boom")
	if err := s.WithBytes(func([]byte) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("WithBytes should propagate callback error, got %v", err)
	}
}

func TestSecureString_Destroy(t *testing.T) {
	s := NewSecureStringFromBytes([]byte("secret"))
	s.Destroy()

	if !s.IsEmpty() {
		t.Error("SecureString should be empty after Destroy")
	}
	if s.Reveal() != "" {
		t.Error("Reveal after Destroy should return an empty string")
	}
	called := false
	_ = s.WithBytes(func(b []byte) error {
		called = true
		if b != nil {
			t.Error("WithBytes after Destroy should pass nil")
		}
		return nil
	})
	if !called {
		t.Error("WithBytes should still invoke the callback")
	}
	// Destroy twice must not panic
	s.Destroy()
}

func TestSecureString_NilAndZeroValue(t *testing.T) {
	if !NewSecureStringFromBytes(nil).IsEmpty() {
		t.Error("nil input should produce empty SecureString")
	}
	var zero SecureString
	if !zero.IsEmpty() {
		t.Error("zero value should be empty")
	}
}

func TestSecureString_ConcurrentAccess(t *testing.T) {
	s := NewSecureStringFromBytes([]byte("shared"))
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithBytes(func(b []byte) error {
				_ = len(b)
				return nil
			})
		}()
	}
	wg.Wait()
	s.Destroy()
}
