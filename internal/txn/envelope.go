// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package txn

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/google/uuid"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/keypair"
)

// DecoratedSignature is a detached signature with the signer's hint.
type DecoratedSignature struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Hint      keypair.Hint `codec:"hint"`
	Signature []byte       `codec:"sig"`
}

// Envelope carries a transaction and the signatures collected so far.
// It is the unit exchanged between independent signers.
type Envelope struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	// ID correlates copies of the same envelope held by different signers.
	ID string `codec:"id"`

	// Network is the passphrase the signatures commit to.
	Network string `codec:"net"`

	Tx         Transaction          `codec:"tx"`
	Signatures []DecoratedSignature `codec:"sigs"`
}

// NewEnvelope validates tx and wraps it for signing on the given network.
func NewEnvelope(tx Transaction, passphrase string) (*Envelope, error) {
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	if passphrase == "" {
		return nil, fmt.Errorf("network passphrase is required")
	}
	return &Envelope{
		ID:      uuid.NewString(),
		Network: passphrase,
		Tx:      tx,
	}, nil
}

// Hash returns the transaction hash on the envelope's network.
func (e *Envelope) Hash() [32]byte {
	return e.Tx.Hash(e.Network)
}

// Sign signs the transaction hash with kp and appends the signature.
// Signing twice with the same key does not add a second signature.
func (e *Envelope) Sign(kp *keypair.Full) DecoratedSignature {
	hash := e.Hash()
	sig := DecoratedSignature{Hint: kp.Hint(), Signature: kp.Sign(hash[:])}
	e.AddSignature(sig)
	return sig
}

// AddSignature appends sig unless an identical signature is already attached.
// It does not verify; authorization does.
func (e *Envelope) AddSignature(sig DecoratedSignature) bool {
	for _, existing := range e.Signatures {
		if existing.Hint == sig.Hint && bytes.Equal(existing.Signature, sig.Signature) {
			return false
		}
	}
	e.Signatures = append(e.Signatures, sig)
	return true
}

// Clone returns a deep copy of the signature list with the same transaction.
func (e *Envelope) Clone() *Envelope {
	c := *e
	c.Signatures = make([]DecoratedSignature, len(e.Signatures))
	for i, s := range e.Signatures {
		c.Signatures[i] = DecoratedSignature{Hint: s.Hint, Signature: append([]byte(nil), s.Signature...)}
	}
	return &c
}

// Merge adds other's signatures to e. Both must carry the same transaction
// on the same network.
func (e *Envelope) Merge(other *Envelope) (int, error) {
	if other.Network != e.Network {
		return 0, ErrNetworkMismatch
	}
	if other.Hash() != e.Hash() {
		return 0, fmt.Errorf("%w: envelopes carry different transactions", ErrMalformedEnvelope)
	}
	added := 0
	for _, sig := range other.Signatures {
		if e.AddSignature(sig) {
			added++
		}
	}
	return added, nil
}

// EncodeEnvelope returns the base64 msgpack form of e.
func EncodeEnvelope(e *Envelope) string {
	return base64.StdEncoding.EncodeToString(msgpack.Encode(e))
}

// DecodeEnvelope parses the output of EncodeEnvelope.
func DecodeEnvelope(text string) (*Envelope, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode base64: %v", ErrMalformedEnvelope, err)
	}
	var e Envelope
	if err := msgpack.Decode(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: failed to decode msgpack: %v", ErrMalformedEnvelope, err)
	}
	if e.Network == "" {
		return nil, fmt.Errorf("%w: missing network", ErrMalformedEnvelope)
	}
	if err := e.Tx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	for i, s := range e.Signatures {
		if len(s.Signature) != 64 {
			return nil, fmt.Errorf("%w: signature %d is %d bytes", ErrSignatureMalformed, i, len(s.Signature))
		}
	}
	return &e, nil
}
