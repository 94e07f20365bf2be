// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// fastParams returns cheap parameters so the suite stays quick.
func fastParams() []KDFParams {
	return []KDFParams{
		{Algorithm: AlgPBKDF2, Iterations: 1000, Unsafe: true},
		{Algorithm: AlgScrypt, N: 1024, R: 8, P: 1, Unsafe: true},
		{Algorithm: AlgArgon2id, Time: 1, Memory: 1024, Threads: 1, Unsafe: true},
	}
}

func TestKDF_DeterministicFixedLength(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, SaltLen)

	for _, p := range fastParams() {
		t.Run(p.Algorithm, func(t *testing.T) {
			kdf, err := NewKDF(p)
			if err != nil {
				t.Fatalf("NewKDF failed: %v", err)
			}

			for _, password := range []string{"", "a", "password123", strings.Repeat("long", 500)} {
				k1, err := kdf.Derive([]byte(password), salt)
				if err != nil {
					t.Fatalf("Derive failed: %v", err)
				}
				k2, _ := kdf.Derive([]byte(password), salt)

				if len(k1) != KeyLen {
					t.Errorf("key length = %d, want %d (password len %d)", len(k1), KeyLen, len(password))
				}
				if !bytes.Equal(k1, k2) {
					t.Error("derivation is not deterministic")
				}
			}
		})
	}
}

func TestKDF_SaltAndPasswordChangeKey(t *testing.T) {
	for _, p := range fastParams() {
		t.Run(p.Algorithm, func(t *testing.T) {
			kdf, _ := NewKDF(p)
			saltA := bytes.Repeat([]byte{1}, SaltLen)
			saltB := bytes.Repeat([]byte{2}, SaltLen)

			k1, _ := kdf.Derive([]byte("password"), saltA)
			k2, _ := kdf.Derive([]byte("password"), saltB)
			k3, _ := kdf.Derive([]byte("Password"), saltA)

			if bytes.Equal(k1, k2) {
				t.Error("different salts produced the same key")
			}
			if bytes.Equal(k1, k3) {
				t.Error("different passwords produced the same key")
			}
		})
	}
}

func TestKDF_DefaultIsPBKDF2With100kRounds(t *testing.T) {
	p := DefaultKDF().Params()
	if p.Algorithm != AlgPBKDF2 || p.Iterations != 100000 {
		t.Errorf("unexpected default KDF params: %+v", p)
	}

	key, err := DefaultKDF().Derive([]byte("password"), make([]byte, SaltLen))
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	if len(key) != KeyLen {
		t.Errorf("expected %d byte key, got %d", KeyLen, len(key))
	}
}

func TestKDF_RejectsBadSalt(t *testing.T) {
	kdf, _ := NewKDF(fastParams()[0])
	if _, err := kdf.Derive([]byte("pw"), make([]byte, 8)); !errors.Is(err, ErrInvalidSalt) {
		t.Errorf("expected ErrInvalidSalt, got %v", err)
	}
}

func TestNewKDF_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params KDFParams
	}{
		{"unknown algorithm", KDFParams{Algorithm: "md5"}},
		{"weak pbkdf2", KDFParams{Algorithm: AlgPBKDF2, Iterations: 100}},
		{"zero pbkdf2", KDFParams{Algorithm: AlgPBKDF2, Iterations: 0, Unsafe: true}},
		{"scrypt N not power of two", KDFParams{Algorithm: AlgScrypt, N: 30000, R: 8, P: 1}},
		{"weak scrypt", KDFParams{Algorithm: AlgScrypt, N: 1024, R: 8, P: 1}},
		{"scrypt zero r", KDFParams{Algorithm: AlgScrypt, N: DefaultScryptN, R: 0, P: 1}},
		{"argon2 low memory", KDFParams{Algorithm: AlgArgon2id, Time: 1, Memory: 1024, Threads: 1}},
		{"argon2 zero threads", KDFParams{Algorithm: AlgArgon2id, Time: 1, Memory: DefaultArgon2Memory}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewKDF(tt.params); err == nil {
				t.Errorf("expected NewKDF(%+v) to fail", tt.params)
			}
		})
	}
}

func TestNewKDF_CostCeilings(t *testing.T) {
	tests := []struct {
		name   string
		params KDFParams
	}{
		{"pbkdf2 iterations", KDFParams{Algorithm: AlgPBKDF2, Iterations: 2147483647}},
		{"scrypt N", KDFParams{Algorithm: AlgScrypt, N: 1 << 21, R: 1, P: 1}},
		{"scrypt memory", KDFParams{Algorithm: AlgScrypt, N: 1 << 20, R: 16, P: 1}},
		{"scrypt p", KDFParams{Algorithm: AlgScrypt, N: DefaultScryptN, R: 8, P: 1 << 20}},
		{"argon2 memory", KDFParams{Algorithm: AlgArgon2id, Time: 1, Memory: 4294967295, Threads: 1}},
		{"argon2 time", KDFParams{Algorithm: AlgArgon2id, Time: 1 << 30, Memory: DefaultArgon2Memory, Threads: 1}},
		{"argon2 threads", KDFParams{Algorithm: AlgArgon2id, Time: 1, Memory: DefaultArgon2Memory, Threads: 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, unsafe := range []bool{false, true} {
				p := tt.params
				p.Unsafe = unsafe
				if _, err := NewKDF(p); !errors.Is(err, ErrKDFCost) {
					t.Errorf("NewKDF(%+v): expected ErrKDFCost, got %v", p, err)
				}
			}
		})
	}

	// At the ceiling is still accepted
	if _, err := NewKDF(KDFParams{Algorithm: AlgScrypt, N: 1 << 20, R: 8, P: 1}); err != nil {
		t.Errorf("scrypt at ceiling rejected: %v", err)
	}
}

func TestDefaultParams_RoundTripThroughNewKDF(t *testing.T) {
	for _, alg := range []string{AlgPBKDF2, AlgScrypt, AlgArgon2id} {
		p := DefaultParams(alg)
		kdf, err := NewKDF(p)
		if err != nil {
			t.Fatalf("default params for %s rejected: %v", alg, err)
		}
		if kdf.Params() != p {
			t.Errorf("Params() = %+v, want %+v", kdf.Params(), p)
		}
	}
}
