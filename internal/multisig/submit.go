// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package multisig

import (
	"context"
	"errors"
	"fmt"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
)

// Account is the slice of ledger account state authorization needs.
// Signers lists every signer the ledger reports, the account's own key included.
type Account struct {
	Address    string
	Sequence   int64
	Thresholds Thresholds
	Signers    []Signer
}

// AccountLoader fetches account state from the ledger.
type AccountLoader interface {
	LoadAccount(ctx context.Context, address string) (*Account, error)
}

// Submitter sends an authorized envelope to the network and returns its hash.
type Submitter interface {
	Submit(ctx context.Context, env *txn.Envelope) (string, error)
}

// RegistryFromAccount builds a registry from loaded account state. The
// account's own key takes its weight from the signer list; absent means 0.
func RegistryFromAccount(acct *Account) (*Registry, error) {
	var master uint8
	for _, s := range acct.Signers {
		if s.Address == acct.Address {
			master = s.Weight
		}
	}
	r, err := NewRegistry(acct.Address, master, acct.Thresholds)
	if err != nil {
		return nil, err
	}
	for _, s := range acct.Signers {
		if s.Address == acct.Address {
			continue
		}
		if err := r.SetSigner(s.Address, s.Weight); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadAccountRegistry loads address through loader and builds its registry.
func LoadAccountRegistry(ctx context.Context, loader AccountLoader, address string) (*Registry, *Account, error) {
	acct, err := loader.LoadAccount(ctx, address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load account %s: %w", address, err)
	}
	r, err := RegistryFromAccount(acct)
	if err != nil {
		return nil, nil, err
	}
	return r, acct, nil
}

// Submit hands an authorized envelope to s exactly once. Any failure is
// returned as a *NetworkRejection; there are no retries.
func Submit(ctx context.Context, s Submitter, a *Authorized) (string, error) {
	if a == nil || a.Envelope == nil {
		return "", errors.New("nothing to submit: transaction is not authorized")
	}
	hash, err := s.Submit(ctx, a.Envelope.Clone())
	if err != nil {
		var rej *NetworkRejection
		if errors.As(err, &rej) {
			return "", rej
		}
		return "", &NetworkRejection{Err: err}
	}
	return hash, nil
}
