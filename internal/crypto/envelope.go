// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// EnvelopeVersion is the current vault envelope format.
const EnvelopeVersion = 1

// ErrMalformedEnvelope indicates the persisted blob cannot be parsed.
var ErrMalformedEnvelope = errors.New("malformed encrypted envelope")

// Envelope is the persisted form of an encrypted secret.
// Data is base64(salt ‖ ciphertext); the salt is always the first SaltLen bytes.
type Envelope struct {
	EnvelopeVersion int       `json:"envelope_version"`
	KDF             KDFParams `json:"kdf"`
	Cipher          string    `json:"cipher"`
	Data            string    `json:"data"`
}

// IsEnvelope checks if data appears to be in envelope format
func IsEnvelope(data []byte) bool {
	var env Envelope
	return json.Unmarshal(data, &env) == nil && env.EnvelopeVersion > 0
}

// Seal encrypts plaintext under a key derived from password with a fresh salt.
// The derived key is zeroed before returning.
func Seal(plaintext, password []byte, kdf KDF, c Cipher) ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	key, err := kdf.Derive(password, salt)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(key)

	ciphertext, err := c.Encrypt(plaintext, key)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, 0, SaltLen+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, ciphertext...)

	env := Envelope{
		EnvelopeVersion: EnvelopeVersion,
		KDF:             kdf.Params(),
		Cipher:          c.Name(),
		Data:            base64.StdEncoding.EncodeToString(blob),
	}
	return json.MarshalIndent(env, "", "  ")
}

// Open parses an envelope and decrypts it with password.
//
// With an authenticated cipher a wrong password returns ErrDecryptFailed. With
// an unauthenticated cipher it returns same-length garbage and no error; the
// caller detects it by validating the plaintext format.
func Open(data, password []byte) ([]byte, error) {
	env, err := ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	return env.Open(password)
}

// ParseEnvelope decodes and validates the envelope structure without decrypting.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.EnvelopeVersion != EnvelopeVersion {
		return nil, fmt.Errorf("%w: envelope_version %d not supported (expected %d)",
			ErrMalformedEnvelope, env.EnvelopeVersion, EnvelopeVersion)
	}
	if _, err := env.split(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Salt returns the salt stored in the envelope.
func (e *Envelope) Salt() ([]byte, error) {
	parts, err := e.split()
	if err != nil {
		return nil, err
	}
	return parts[0], nil
}

// Ciphertext returns the ciphertext stored in the envelope.
func (e *Envelope) Ciphertext() ([]byte, error) {
	parts, err := e.split()
	if err != nil {
		return nil, err
	}
	return parts[1], nil
}

func (e *Envelope) split() ([2][]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return [2][]byte{}, fmt.Errorf("%w: failed to decode data: %v", ErrMalformedEnvelope, err)
	}
	if len(blob) <= SaltLen {
		return [2][]byte{}, fmt.Errorf("%w: data too short", ErrMalformedEnvelope)
	}
	return [2][]byte{blob[:SaltLen], blob[SaltLen:]}, nil
}

// Open derives the key with the stored parameters and salt, then decrypts.
func (e *Envelope) Open(password []byte) ([]byte, error) {
	// Vaults written under older minimums still open; the cost ceilings
	// are never relaxed.
	p := e.KDF
	p.Unsafe = true
	kdf, err := NewKDF(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}
	c, err := CipherByName(e.Cipher)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	parts, err := e.split()
	if err != nil {
		return nil, err
	}

	key, err := kdf.Derive(password, parts[0])
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(key)

	return c.Decrypt(parts[1], key)
}
