// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package keystore owns the wallet's encrypted secret key.
//
// A Vault persists two entries in an injected kvstore.Store: the public
// address and the password-sealed secret envelope. The plaintext secret is
// never written. Unlocking yields an explicit Unlocked value that holds the
// seed in an encrypted memory enclave until Lock is called; nothing is cached
// inside the Vault itself.
//
// Password verification depends on the cipher. With aes-256-gcm a wrong
// password fails authentication. With chacha20 it produces garbage that fails
// secret key checksum validation. Both surface as ErrInvalidPassword.
package keystore

import (
	"errors"
)

// Persisted entry names.
const (
	EntryAddress    = "walletAddress"
	EntrySecretBlob = "walletSecretBlob"
)

// DefaultMinPasswordLength is the shortest password Create and Import accept.
const DefaultMinPasswordLength = 8

// Common keystore errors
var (
	// ErrVaultNotFound indicates no vault has been created or imported
	ErrVaultNotFound = errors.New("no wallet vault found")

	// ErrVaultExists indicates create or import would overwrite an existing vault
	ErrVaultExists = errors.New("a wallet vault already exists")

	// ErrInvalidPassword indicates the password does not decrypt the vault
	ErrInvalidPassword = errors.New("invalid password")

	// ErrInvalidKeyFormat indicates an imported secret key is malformed or fails its checksum
	ErrInvalidKeyFormat = errors.New("invalid secret key format")

	// ErrWeakPassword indicates a new password shorter than the configured minimum
	ErrWeakPassword = errors.New("password too short")

	// ErrLocked indicates use of an Unlocked value after Lock
	ErrLocked = errors.New("wallet is locked")
)
