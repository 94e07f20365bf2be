// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keypair provides ed25519 account keys in their canonical text form.
//
// A Full keypair holds the secret seed and can sign. A FromAddress keypair
// holds only the public key and can verify. Both expose the 4-byte signature
// hint used to match detached signatures to signers.
package keypair

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	algocrypto "github.com/algorand/go-algorand-sdk/v2/crypto"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/crypto"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/strkey"
)

var (
	// ErrInvalidSecret indicates text that is not a well-formed secret seed.
	ErrInvalidSecret = errors.New("invalid secret key")

	// ErrInvalidAddress indicates text that is not a well-formed account address.
	ErrInvalidAddress = errors.New("invalid account address")

	// ErrInvalidSignature indicates a signature that does not verify.
	ErrInvalidSignature = errors.New("signature verification failed")
)

// HintLen is the size of a signature hint.
const HintLen = 4

// Hint is the last four bytes of a public key.
type Hint [HintLen]byte

// KP is satisfied by both Full and FromAddress.
type KP interface {
	Address() string
	PublicKey() ed25519.PublicKey
	Hint() Hint
	Verify(message, signature []byte) error
}

// FromAddress is a verify-only keypair.
type FromAddress struct {
	address string
	pub     ed25519.PublicKey
}

// Full is a keypair holding the secret seed.
type Full struct {
	FromAddress
	priv ed25519.PrivateKey
}

// Random generates a new keypair from the system CSPRNG.
func Random() (*Full, error) {
	account := algocrypto.GenerateAccount()
	defer crypto.ZeroBytes(account.PrivateKey)
	return FromRawSeed(account.PrivateKey.Seed())
}

// FromRawSeed builds a keypair from a 32-byte seed. The seed is copied.
func FromRawSeed(seed []byte) (*Full, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidSecret, ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return &Full{
		FromAddress: FromAddress{address: strkey.MustEncode(strkey.VersionAccountID, pub), pub: pub},
		priv:        priv,
	}, nil
}

// ParseSecret decodes an S... secret seed.
func ParseSecret(text string) (*Full, error) {
	return ParseSecretBytes([]byte(text))
}

// ParseSecretBytes is ParseSecret for secret text the caller will zero.
// text is not retained.
func ParseSecretBytes(text []byte) (*Full, error) {
	seed, err := strkey.DecodeBytes(strkey.VersionSeed, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}
	defer crypto.ZeroBytes(seed)
	return FromRawSeed(seed)
}

// ParseAddress decodes a G... address and checks that it is a point on the curve.
func ParseAddress(text string) (*FromAddress, error) {
	pub, err := strkey.Decode(strkey.VersionAccountID, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return nil, fmt.Errorf("%w: not an ed25519 public key", ErrInvalidAddress)
	}
	return &FromAddress{address: text, pub: ed25519.PublicKey(pub)}, nil
}

// MustParseAddress is ParseAddress for constants and tests.
func MustParseAddress(text string) *FromAddress {
	kp, err := ParseAddress(text)
	if err != nil {
		panic(err)
	}
	return kp
}

// Address returns the G... text form.
func (kp *FromAddress) Address() string { return kp.address }

// PublicKey returns the raw public key.
func (kp *FromAddress) PublicKey() ed25519.PublicKey { return kp.pub }

// Hint returns the signature hint.
func (kp *FromAddress) Hint() Hint {
	var h Hint
	copy(h[:], kp.pub[len(kp.pub)-HintLen:])
	return h
}

// Verify checks an ed25519 signature over message.
func (kp *FromAddress) Verify(message, signature []byte) error {
	if len(signature) != ed25519.SignatureSize || !ed25519.Verify(kp.pub, message, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// Equal reports whether two keypairs share a public key.
func (kp *FromAddress) Equal(other KP) bool {
	return other != nil && bytes.Equal(kp.pub, other.PublicKey())
}

// Public returns the verify-only half.
func (kp *Full) Public() *FromAddress {
	pub := &kp.FromAddress
	return &FromAddress{address: pub.address, pub: pub.pub}
}

// Sign signs message. Panics if the keypair has been zeroed.
func (kp *Full) Sign(message []byte) []byte {
	if kp.priv == nil {
		panic("keypair: sign with zeroed key")
	}
	return ed25519.Sign(kp.priv, message)
}

// Secret returns the S... text form as a fresh byte slice the caller must zero.
func (kp *Full) Secret() []byte {
	seed := kp.priv.Seed()
	defer crypto.ZeroBytes(seed)
	text, err := strkey.EncodeBytes(strkey.VersionSeed, seed)
	if err != nil {
		panic(err)
	}
	return text
}

// RawSeed returns a copy of the 32-byte seed the caller must zero.
func (kp *Full) RawSeed() []byte {
	return kp.priv.Seed()
}

// Zero overwrites the private key. The keypair cannot sign afterwards.
func (kp *Full) Zero() {
	crypto.ZeroBytes(kp.priv)
	kp.priv = nil
}
