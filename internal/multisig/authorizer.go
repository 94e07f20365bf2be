// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package multisig

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/util"
)

// Authorized is a transaction whose attached signatures meet its threshold.
type Authorized struct {
	// Envelope carries every attached signature, duplicates included.
	Envelope *txn.Envelope

	// Weight is the summed weight of distinct signers.
	Weight int

	// Required is the threshold weight the transaction needed.
	Required int

	Class txn.ThresholdClass

	// Signers are the distinct contributing addresses in attachment order.
	Signers []string
}

// Authorizer checks signatures against one account's registry on one network.
type Authorizer struct {
	registry   *Registry
	passphrase string
	logger     *slog.Logger
}

// NewAuthorizer returns an authorizer. A nil logger uses util.DefaultLogger.
func NewAuthorizer(registry *Registry, passphrase string, logger *slog.Logger) *Authorizer {
	if logger == nil {
		logger = util.DefaultLogger()
	}
	return &Authorizer{registry: registry, passphrase: passphrase, logger: logger}
}

// Registry returns the signer registry in use.
func (a *Authorizer) Registry() *Registry { return a.registry }

// Authorize decides whether signatures authorize tx.
//
// Checks run in order: every signature must come from a registered signer
// with non-zero weight (ErrUnrecognizedSigner); distinct signers' weights
// must reach the threshold of the transaction's highest operation class
// (ErrInsufficientWeight); and no more than txn.MaxSignatures may be
// attached (ErrTooManySignatures).
func (a *Authorizer) Authorize(tx txn.Transaction, signatures []txn.DecoratedSignature) (*Authorized, error) {
	env, err := txn.NewEnvelope(tx, a.passphrase)
	if err != nil {
		return nil, err
	}
	env.Signatures = append(env.Signatures, signatures...)
	return a.AuthorizeEnvelope(env)
}

// AuthorizeEnvelope is Authorize for a transaction and signatures already in
// an envelope. The envelope is not modified.
func (a *Authorizer) AuthorizeEnvelope(env *txn.Envelope) (*Authorized, error) {
	if env.Network != a.passphrase {
		return nil, txn.ErrNetworkMismatch
	}
	required, class, err := a.resolve(&env.Tx)
	if err != nil {
		return nil, err
	}

	hash := env.Hash()
	weight := 0
	seen := make(map[string]bool)
	var signers []string
	for i, sig := range env.Signatures {
		addr, w, ok := a.registry.match(hash[:], sig)
		if !ok {
			a.logger.Debug("authorization failed", "reason", "unrecognized signer", "index", i, "hint", fmt.Sprintf("%x", sig.Hint))
			return nil, fmt.Errorf("%w: signature %d (hint %x)", ErrUnrecognizedSigner, i, sig.Hint)
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		signers = append(signers, addr)
		weight += int(w)
	}

	if weight < required {
		a.logger.Debug("authorization failed", "reason", "insufficient weight", "weight", weight, "required", required, "class", class)
		return nil, fmt.Errorf("%w: have %d, need %d for %s threshold", ErrInsufficientWeight, weight, required, class)
	}
	if len(env.Signatures) > txn.MaxSignatures {
		return nil, fmt.Errorf("%w: %d attached", ErrTooManySignatures, len(env.Signatures))
	}

	a.logger.Debug("transaction authorized", "id", env.ID, "weight", weight, "required", required, "class", class)
	return &Authorized{
		Envelope: env.Clone(),
		Weight:   weight,
		Required: required,
		Class:    class,
		Signers:  signers,
	}, nil
}

// resolve checks tx belongs to the registry account and returns its required weight.
func (a *Authorizer) resolve(tx *txn.Transaction) (int, txn.ThresholdClass, error) {
	if tx.Source != a.registry.Account() {
		return 0, 0, fmt.Errorf("%w: %s", ErrAccountMismatch, tx.Source)
	}
	for i, op := range tx.Operations {
		if op.Source != "" && op.Source != a.registry.Account() {
			return 0, 0, fmt.Errorf("%w: operation %d source %s", ErrAccountMismatch, i, op.Source)
		}
	}
	return a.registry.RequiredWeight(tx)
}

// IsAuthorizationFailure reports whether err is one of the authorization outcomes
// rather than a malformed input.
func IsAuthorizationFailure(err error) bool {
	return errors.Is(err, ErrUnrecognizedSigner) ||
		errors.Is(err, ErrInsufficientWeight) ||
		errors.Is(err, ErrTooManySignatures)
}
