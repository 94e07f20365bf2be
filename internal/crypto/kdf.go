// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package crypto turns a wallet password into a symmetric key and uses it to
// encrypt the account secret for local persistence.
//
// Three key derivation functions are supported. PBKDF2-SHA256 with 100,000
// rounds is the default and matches the browser wallet; it is iterated but not
// memory-hard. scrypt and Argon2id keep the same (password, salt) -> 32-byte
// key contract and should be preferred for new vaults. The parameters used for
// an encryption are recorded in its envelope so decryption never depends on
// current configuration.
package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

const (
	// SaltLen is the length of the random salt drawn for every encryption.
	SaltLen = 16
	// KeyLen is the derived key length (256-bit) regardless of password length.
	KeyLen = 32
)

// KDF algorithm names as stored in envelopes and config files.
const (
	AlgPBKDF2   = "pbkdf2-sha256"
	AlgScrypt   = "scrypt"
	AlgArgon2id = "argon2id"
)

// Defaults and lower bounds
const (
	DefaultPBKDF2Iterations = 100000
	minPBKDF2Iterations     = 10000

	DefaultScryptN = 1 << 15
	DefaultScryptR = 8
	DefaultScryptP = 1
	minScryptN     = 1 << 14

	// Argon2id parameters (OWASP recommended)
	DefaultArgon2Time    = 1
	DefaultArgon2Memory  = 64 * 1024 // 64 MB
	DefaultArgon2Threads = 4
	minArgon2Memory      = 16 * 1024
)

// Upper bounds. Parameters are read back from stored envelopes, so these hold
// even for Unsafe params.
const (
	maxPBKDF2Iterations = 10000000

	maxScryptN      = 1 << 20
	maxScryptMemory = 1 << 30 // 128 * N * r bytes
	maxScryptP      = 16

	maxArgon2Time    = 16
	maxArgon2Memory  = 4 * 1024 * 1024 // 4 GiB
	maxArgon2Threads = 64
)

var (
	// ErrInvalidSalt is returned when a salt of the wrong length is supplied.
	ErrInvalidSalt = errors.New("salt must be 16 bytes")

	// ErrKDFCost is returned when parameters exceed the derivation cost ceilings.
	ErrKDFCost = errors.New("key derivation parameters exceed limits")
)

// KDFParams fully describes a derivation. It is serialized into the vault
// envelope alongside the salt.
type KDFParams struct {
	Algorithm  string `json:"algorithm"`
	Iterations int    `json:"iterations,omitempty"`
	N          int    `json:"n,omitempty"`
	R          int    `json:"r,omitempty"`
	P          int    `json:"p,omitempty"`
	Time       uint32 `json:"time,omitempty"`
	Memory     uint32 `json:"memory,omitempty"`
	Threads    uint8  `json:"threads,omitempty"`

	// Unsafe skips the lower-bound checks. Upper bounds still apply.
	Unsafe bool `json:"-"`
}

// KDF derives a KeyLen-byte key from a password and salt.
// Caller is responsible for zeroing the returned key when done.
type KDF interface {
	Derive(password, salt []byte) ([]byte, error)
	Params() KDFParams
}

// NewKDF builds a KDF from params, validating them.
func NewKDF(p KDFParams) (KDF, error) {
	switch p.Algorithm {
	case AlgPBKDF2:
		if p.Iterations <= 0 || (!p.Unsafe && p.Iterations < minPBKDF2Iterations) {
			return nil, fmt.Errorf("pbkdf2 iterations must be at least %d, got %d", minPBKDF2Iterations, p.Iterations)
		}
		if p.Iterations > maxPBKDF2Iterations {
			return nil, fmt.Errorf("%w: pbkdf2 iterations %d > %d", ErrKDFCost, p.Iterations, maxPBKDF2Iterations)
		}
		return pbkdf2KDF{iterations: p.Iterations}, nil

	case AlgScrypt:
		if p.N <= 1 || p.N&(p.N-1) != 0 {
			return nil, fmt.Errorf("scrypt N must be a power of two greater than 1, got %d", p.N)
		}
		if !p.Unsafe && p.N < minScryptN {
			return nil, fmt.Errorf("scrypt N must be at least %d, got %d", minScryptN, p.N)
		}
		if p.R <= 0 || p.P <= 0 {
			return nil, fmt.Errorf("scrypt r and p must be positive")
		}
		if p.N > maxScryptN || p.P > maxScryptP || p.R > maxScryptMemory/128/p.N {
			return nil, fmt.Errorf("%w: scrypt N=%d r=%d p=%d", ErrKDFCost, p.N, p.R, p.P)
		}
		return scryptKDF{n: p.N, r: p.R, p: p.P}, nil

	case AlgArgon2id:
		if p.Time == 0 || p.Threads == 0 {
			return nil, fmt.Errorf("argon2id time and threads must be positive")
		}
		if p.Memory == 0 || (!p.Unsafe && p.Memory < minArgon2Memory) {
			return nil, fmt.Errorf("argon2id memory must be at least %d KiB, got %d", minArgon2Memory, p.Memory)
		}
		if p.Time > maxArgon2Time || p.Memory > maxArgon2Memory || p.Threads > maxArgon2Threads {
			return nil, fmt.Errorf("%w: argon2id time=%d memory=%d KiB threads=%d", ErrKDFCost, p.Time, p.Memory, p.Threads)
		}
		return argon2idKDF{time: p.Time, memory: p.Memory, threads: p.Threads}, nil

	default:
		return nil, fmt.Errorf("unsupported key derivation algorithm %q", p.Algorithm)
	}
}

// DefaultKDF returns PBKDF2-SHA256 with 100,000 rounds.
func DefaultKDF() KDF {
	return pbkdf2KDF{iterations: DefaultPBKDF2Iterations}
}

// DefaultParams returns the default parameters for the named algorithm.
func DefaultParams(algorithm string) KDFParams {
	switch algorithm {
	case AlgScrypt:
		return KDFParams{Algorithm: AlgScrypt, N: DefaultScryptN, R: DefaultScryptR, P: DefaultScryptP}
	case AlgArgon2id:
		return KDFParams{Algorithm: AlgArgon2id, Time: DefaultArgon2Time, Memory: DefaultArgon2Memory, Threads: DefaultArgon2Threads}
	default:
		return KDFParams{Algorithm: AlgPBKDF2, Iterations: DefaultPBKDF2Iterations}
	}
}

func checkSalt(salt []byte) error {
	if len(salt) != SaltLen {
		return ErrInvalidSalt
	}
	return nil
}

type pbkdf2KDF struct {
	iterations int
}

func (k pbkdf2KDF) Derive(password, salt []byte) ([]byte, error) {
	if err := checkSalt(salt); err != nil {
		return nil, err
	}
	return pbkdf2.Key(password, salt, k.iterations, KeyLen, sha256.New), nil
}

func (k pbkdf2KDF) Params() KDFParams {
	return KDFParams{Algorithm: AlgPBKDF2, Iterations: k.iterations}
}

type scryptKDF struct {
	n, r, p int
}

func (k scryptKDF) Derive(password, salt []byte) ([]byte, error) {
	if err := checkSalt(salt); err != nil {
		return nil, err
	}
	key, err := scrypt.Key(password, salt, k.n, k.r, k.p, KeyLen)
	if err != nil {
		return nil, fmt.Errorf("scrypt derivation failed: %w", err)
	}
	return key, nil
}

func (k scryptKDF) Params() KDFParams {
	return KDFParams{Algorithm: AlgScrypt, N: k.n, R: k.r, P: k.p}
}

type argon2idKDF struct {
	time    uint32
	memory  uint32
	threads uint8
}

func (k argon2idKDF) Derive(password, salt []byte) ([]byte, error) {
	if err := checkSalt(salt); err != nil {
		return nil, err
	}
	return argon2.IDKey(password, salt, k.time, k.memory, k.threads, KeyLen), nil
}

func (k argon2idKDF) Params() KDFParams {
	return KDFParams{Algorithm: AlgArgon2id, Time: k.time, Memory: k.memory, Threads: k.threads}
}
