// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package txn models transactions as far as authorization needs them:
// operations and their threshold classes, a canonical hash, and envelopes
// carrying detached signatures between independent signers.
//
// The ledger's XDR wire format is out of scope. Transactions are hashed over
// their canonical msgpack encoding, so hashes are stable across processes
// running this code but are not ledger transaction IDs.
package txn

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/keypair"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/strkey"
)

const (
	// MaxOperations is the ledger limit on operations per transaction.
	MaxOperations = 100

	// MaxSignatures is the ledger limit on signatures per envelope.
	MaxSignatures = 20

	// BaseFee is the minimum fee per operation, in stroops.
	BaseFee = 100
)

// Validation errors
var (
	ErrNoOperations       = errors.New("transaction has no operations")
	ErrTooManyOperations  = fmt.Errorf("transaction has more than %d operations", MaxOperations)
	ErrUnknownOperation   = errors.New("unknown operation type")
	ErrInvalidSource      = errors.New("invalid source account")
	ErrInvalidDestination = errors.New("invalid destination account")
	ErrFeeTooLow          = errors.New("fee below minimum")
	ErrInvalidTimeBounds  = errors.New("invalid time bounds")
	ErrMalformedEnvelope  = errors.New("malformed transaction envelope")
	ErrNetworkMismatch    = errors.New("envelope network does not match")
	ErrSignatureMalformed = errors.New("malformed signature")
)

// Operation is one ledger operation. Only the fields relevant to the
// operation's type are set.
type Operation struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Type OperationType `codec:"type"`

	// Source overrides the transaction source for this operation.
	Source      string            `codec:"src"`
	Destination string            `codec:"dst"`
	Asset       string            `codec:"asset"`
	Amount      int64             `codec:"amt"`
	Params      map[string]string `codec:"params"`
}

// TimeBounds limits when a transaction is valid, in unix seconds. Zero MaxTime means no upper bound.
type TimeBounds struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	MinTime uint64 `codec:"min"`
	MaxTime uint64 `codec:"max"`
}

// Transaction is an ordered list of operations from a source account.
type Transaction struct {
	_struct struct{} `codec:",omitempty,omitemptyarray"`

	Source     string      `codec:"src"`
	Fee        uint32      `codec:"fee"`
	Sequence   int64       `codec:"seq"`
	Memo       string      `codec:"memo"`
	TimeBounds *TimeBounds `codec:"tb"`
	Operations []Operation `codec:"ops"`
}

// Validate checks structural well-formedness.
func (tx *Transaction) Validate() error {
	if _, err := keypair.ParseAddress(tx.Source); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if len(tx.Operations) == 0 {
		return ErrNoOperations
	}
	if len(tx.Operations) > MaxOperations {
		return ErrTooManyOperations
	}
	for i, op := range tx.Operations {
		if !op.Type.Known() {
			return fmt.Errorf("%w: operation %d has type %q", ErrUnknownOperation, i, op.Type)
		}
		if op.Source != "" {
			if _, err := keypair.ParseAddress(op.Source); err != nil {
				return fmt.Errorf("%w: operation %d: %v", ErrInvalidSource, i, err)
			}
		}
		if op.Destination != "" && !strkey.IsValid(strkey.VersionAccountID, op.Destination) {
			return fmt.Errorf("%w: operation %d: %s", ErrInvalidDestination, i, op.Destination)
		}
	}
	if minFee := uint64(BaseFee) * uint64(len(tx.Operations)); uint64(tx.Fee) < minFee {
		return fmt.Errorf("%w: %d < %d", ErrFeeTooLow, tx.Fee, minFee)
	}
	if tb := tx.TimeBounds; tb != nil && tb.MaxTime != 0 && tb.MaxTime < tb.MinTime {
		return ErrInvalidTimeBounds
	}
	return nil
}

// ThresholdClass is the highest class among the transaction's operations.
func (tx *Transaction) ThresholdClass() (ThresholdClass, error) {
	if len(tx.Operations) == 0 {
		return 0, ErrNoOperations
	}
	class := Low
	for _, op := range tx.Operations {
		if c := Classify(op.Type); c > class {
			class = c
		}
	}
	return class, nil
}

// Hash returns sha256(sha256(passphrase) ‖ "TX" ‖ canonical encoding).
// Signatures are made over this value.
func (tx *Transaction) Hash(passphrase string) [32]byte {
	network := sha256.Sum256([]byte(passphrase))
	payload := make([]byte, 0, 64)
	payload = append(payload, network[:]...)
	payload = append(payload, "TX"...)
	payload = append(payload, msgpack.Encode(tx)...)
	return sha256.Sum256(payload)
}
