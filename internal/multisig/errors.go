// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package multisig

import (
	"errors"
	"fmt"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
)

var (
	// ErrUnrecognizedSigner indicates a signature that no registered signer
	// with non-zero weight produced. It fails the whole attempt.
	ErrUnrecognizedSigner = errors.New("signature from unrecognized signer")

	// ErrInsufficientWeight indicates the distinct signers' weights sum below the threshold.
	ErrInsufficientWeight = errors.New("insufficient signature weight")

	// ErrTooManySignatures indicates more signatures than the ledger accepts.
	ErrTooManySignatures = fmt.Errorf("more than %d signatures attached", txn.MaxSignatures)

	// ErrTooManySigners indicates a registry with more additional signers than an account may hold.
	ErrTooManySigners = fmt.Errorf("more than %d signers", MaxSigners)

	// ErrAccountMismatch indicates a transaction whose source is not the registry's account.
	ErrAccountMismatch = errors.New("transaction source does not match signer registry account")

	// ErrSessionClosed indicates a signature offered to an authorized or rejected session.
	ErrSessionClosed = errors.New("authorization session is closed")

	// ErrNetworkRejection matches any *NetworkRejection.
	ErrNetworkRejection = errors.New("transaction rejected by network")
)

// NetworkRejection carries a submission failure through unchanged.
// Nothing in this package retries; a sequence conflict means the caller must
// rebuild the transaction.
type NetworkRejection struct {
	// Code is the ledger result code when known, e.g. "tx_bad_auth" or "tx_bad_seq".
	Code string
	Err  error
}

func (e *NetworkRejection) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("transaction rejected by network (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("transaction rejected by network: %v", e.Err)
}

func (e *NetworkRejection) Unwrap() error { return e.Err }

// Is matches ErrNetworkRejection.
func (e *NetworkRejection) Is(target error) bool { return target == ErrNetworkRejection }
