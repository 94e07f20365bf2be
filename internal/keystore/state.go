// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/keypair"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
)

// Locked is the observable state of a vault that has not been unlocked.
type Locked struct {
	Address string
}

// Unlocked holds a decrypted secret until Lock is called.
// The seed lives in a memguard enclave and is only opened for each signature.
type Unlocked struct {
	address string
	public  *keypair.FromAddress

	mu      sync.Mutex
	enclave *memguard.Enclave
}

func newUnlocked(kp *keypair.Full) *Unlocked {
	// NewEnclave wipes the seed slice
	return &Unlocked{
		address: kp.Address(),
		public:  kp.Public(),
		enclave: memguard.NewEnclave(kp.RawSeed()),
	}
}

// Address returns the wallet's public address.
func (u *Unlocked) Address() string { return u.address }

// Public returns the verification half of the key.
func (u *Unlocked) Public() *keypair.FromAddress { return u.public }

// Sign signs message with the wallet key.
func (u *Unlocked) Sign(message []byte) ([]byte, error) {
	var sig []byte
	err := u.withKeypair(func(kp *keypair.Full) error {
		sig = kp.Sign(message)
		return nil
	})
	return sig, err
}

// SignEnvelope signs env's transaction hash and attaches the signature.
func (u *Unlocked) SignEnvelope(env *txn.Envelope) (txn.DecoratedSignature, error) {
	var sig txn.DecoratedSignature
	err := u.withKeypair(func(kp *keypair.Full) error {
		sig = env.Sign(kp)
		return nil
	})
	return sig, err
}

// Lock discards the secret. Further signing returns ErrLocked.
func (u *Unlocked) Lock() Locked {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.enclave = nil
	return Locked{Address: u.address}
}

// IsLocked reports whether Lock has been called.
func (u *Unlocked) IsLocked() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.enclave == nil
}

// withKeypair opens the enclave for the duration of fn and wipes everything after.
func (u *Unlocked) withKeypair(fn func(*keypair.Full) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.enclave == nil {
		return ErrLocked
	}

	buf, err := u.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open key enclave: %w", err)
	}
	defer buf.Destroy()

	kp, err := keypair.FromRawSeed(buf.Bytes())
	if err != nil {
		return err
	}
	defer kp.Zero()
	return fn(kp)
}
