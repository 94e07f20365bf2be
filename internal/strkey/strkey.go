// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package strkey implements the canonical text form of account keys:
// base32(version ‖ payload ‖ crc16), unpadded. The version byte fixes the
// leading character ('G' for account IDs, 'S' for secret seeds) and the
// checksum makes typos and wrong-password garbage detectable.
package strkey

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
)

// VersionByte identifies what a strkey encodes.
type VersionByte byte

const (
	VersionAccountID VersionByte = 6 << 3  // G...
	VersionSeed      VersionByte = 18 << 3 // S...
)

// PayloadLen is the length of an ed25519 public key or seed.
const PayloadLen = 32

// EncodedLen is the length of an encoded 32-byte payload.
const EncodedLen = 56

var (
	ErrInvalidEncoding = errors.New("strkey: invalid base32 encoding")
	ErrInvalidLength   = errors.New("strkey: invalid length")
	ErrInvalidVersion  = errors.New("strkey: unexpected version byte")
	ErrInvalidChecksum = errors.New("strkey: checksum mismatch")
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func (v VersionByte) String() string {
	switch v {
	case VersionAccountID:
		return "account-id"
	case VersionSeed:
		return "seed"
	default:
		return fmt.Sprintf("version(%d)", byte(v))
	}
}

// Encode returns the text form of payload under version.
func Encode(version VersionByte, payload []byte) (string, error) {
	text, err := EncodeBytes(version, payload)
	if err != nil {
		return "", err
	}
	return string(text), nil
}

// EncodeBytes is Encode returning a byte slice, so seed text can be zeroed
// by the caller.
func EncodeBytes(version VersionByte, payload []byte) ([]byte, error) {
	if len(payload) != PayloadLen {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidLength, len(payload), PayloadLen)
	}
	raw := make([]byte, 0, 1+PayloadLen+2)
	raw = append(raw, byte(version))
	raw = append(raw, payload...)
	raw = binary.LittleEndian.AppendUint16(raw, crc16(raw))
	defer wipe(raw)

	text := make([]byte, encoding.EncodedLen(len(raw)))
	encoding.Encode(text, raw)
	return text, nil
}

// MustEncode is Encode for payloads already known to be the right length.
func MustEncode(version VersionByte, payload []byte) string {
	s, err := Encode(version, payload)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses text and returns its payload, checking version and checksum.
// The returned slice is owned by the caller; for seeds, zero it when done.
func Decode(version VersionByte, text string) ([]byte, error) {
	return DecodeBytes(version, []byte(text))
}

// DecodeBytes is Decode for text held in a byte slice. Seeds should be decoded
// this way so no immutable copy of the secret text is made.
func DecodeBytes(version VersionByte, text []byte) ([]byte, error) {
	if len(text) != EncodedLen {
		return nil, fmt.Errorf("%w: %d characters, want %d", ErrInvalidLength, len(text), EncodedLen)
	}
	raw := make([]byte, encoding.DecodedLen(len(text)))
	defer wipe(raw)
	n, err := encoding.Decode(raw, text)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	if n != 1+PayloadLen+2 {
		return nil, ErrInvalidLength
	}

	body, sum := raw[:n-2], raw[n-2:n]
	if binary.LittleEndian.Uint16(sum) != crc16(body) {
		return nil, ErrInvalidChecksum
	}
	if VersionByte(body[0]) != version {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrInvalidVersion, VersionByte(body[0]), version)
	}

	payload := make([]byte, PayloadLen)
	copy(payload, body[1:])
	return payload, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// IsValid reports whether text decodes under version.
func IsValid(version VersionByte, text string) bool {
	p, err := Decode(version, text)
	wipe(p)
	return err == nil
}
