// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"context"
	"fmt"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/audit"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/crypto"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
)

// PromptFunc asks the user for the vault password. The returned slice is zeroed after use.
type PromptFunc func() ([]byte, error)

// Signer signs envelopes with the vault key, asking for the password on every call.
// No password or key material survives between calls.
type Signer struct {
	vault  *Vault
	prompt PromptFunc
}

// NewSigner returns a Signer over vault.
func NewSigner(vault *Vault, prompt PromptFunc) *Signer {
	return &Signer{vault: vault, prompt: prompt}
}

// SignEnvelope prompts, unlocks, signs env, and locks again.
func (s *Signer) SignEnvelope(ctx context.Context, env *txn.Envelope) (txn.DecoratedSignature, error) {
	password, err := s.prompt()
	if err != nil {
		return txn.DecoratedSignature{}, fmt.Errorf("failed to get password: %w", err)
	}
	defer crypto.ZeroBytes(password)

	var sig txn.DecoratedSignature
	err = s.vault.WithUnlocked(ctx, password, func(u *Unlocked) error {
		sig, err = u.SignEnvelope(env)
		return err
	})
	address, _ := s.vault.StoredAddress(ctx)
	s.vault.audit.Record(ctx, audit.ActionSign, address, err)
	if err != nil {
		return txn.DecoratedSignature{}, err
	}
	s.vault.logger.Info("transaction signed", "address", address, "envelope", env.ID)
	return sig, nil
}
