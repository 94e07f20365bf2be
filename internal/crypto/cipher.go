// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/util"
)

// Cipher suite names as stored in envelopes and config files.
const (
	CipherChaCha20 = "chacha20"
	CipherAESGCM   = "aes-256-gcm"
)

var (
	// ErrDecryptFailed indicates an authenticated cipher rejected the ciphertext
	// (wrong key or corrupted data).
	ErrDecryptFailed = errors.New("failed to decrypt data")

	// ErrInvalidKeyLength indicates the key is not KeyLen bytes.
	ErrInvalidKeyLength = errors.New("invalid symmetric key length")
)

// Cipher encrypts and decrypts a payload with a derived key.
type Cipher interface {
	// Name returns the suite name recorded in envelopes.
	Name() string

	// Authenticated reports whether Decrypt detects a wrong key or tampering.
	// Unauthenticated suites return garbage of the same length instead.
	Authenticated() bool

	Encrypt(plaintext, key []byte) ([]byte, error)
	Decrypt(ciphertext, key []byte) ([]byte, error)
}

var ciphers = util.NewStringRegistry[Cipher]()

func init() {
	ciphers.MustSet(CipherChaCha20, streamCipher{})
	ciphers.MustSet(CipherAESGCM, gcmCipher{})
}

// CipherByName looks up a registered cipher suite.
func CipherByName(name string) (Cipher, error) {
	c, ok := ciphers.Get(name)
	if !ok {
		return nil, fmt.Errorf("unsupported cipher %q (available: %v)", name, ciphers.Keys())
	}
	return c, nil
}

// DefaultCipher returns the authenticated AES-256-GCM suite.
func DefaultCipher() Cipher {
	return gcmCipher{}
}

// streamCipher is ChaCha20 without authentication. Output length equals input
// length. The nonce is fixed at zero: every derived key is used for exactly
// one encryption because the salt is fresh each time.
type streamCipher struct{}

func (streamCipher) Name() string        { return CipherChaCha20 }
func (streamCipher) Authenticated() bool { return false }

func (streamCipher) Encrypt(plaintext, key []byte) ([]byte, error) {
	return xorStream(plaintext, key)
}

func (streamCipher) Decrypt(ciphertext, key []byte) ([]byte, error) {
	return xorStream(ciphertext, key)
}

func xorStream(in, key []byte) ([]byte, error) {
	if len(key) != KeyLen {
		return nil, ErrInvalidKeyLength
	}
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	out := make([]byte, len(in))
	c.XORKeyStream(out, in)
	return out, nil
}

// gcmCipher is AES-256-GCM. Output is nonce (12 bytes) + ciphertext + tag (16 bytes).
type gcmCipher struct{}

func (gcmCipher) Name() string        { return CipherAESGCM }
func (gcmCipher) Authenticated() bool { return true }

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLen {
		return nil, ErrInvalidKeyLength
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func (gcmCipher) Encrypt(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (gcmCipher) Decrypt(ciphertext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize()+gcm.Overhead() {
		return nil, ErrDecryptFailed
	}
	nonce := ciphertext[:gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
