// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package keystore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/audit"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/crypto"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/keypair"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/kvstore"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/util"
)

// Options configures a Vault. Zero values select defaults.
type Options struct {
	// KDF derives keys for new encryptions. Defaults to crypto.DefaultKDF.
	KDF crypto.KDF

	// Cipher encrypts new envelopes. Defaults to crypto.DefaultCipher.
	Cipher crypto.Cipher

	// MinPasswordLength defaults to DefaultMinPasswordLength.
	MinPasswordLength int

	Logger *slog.Logger
	Audit  audit.Logger
}

// Vault manages the persisted wallet secret.
type Vault struct {
	store     kvstore.Store
	kdf       crypto.KDF
	cipher    crypto.Cipher
	minPwdLen int
	logger    *slog.Logger
	audit     audit.Logger

	// Cached public address; invalidated by Clear and by store watch events
	cacheLock  sync.RWMutex
	address    string
	cacheValid bool
}

// New returns a Vault persisting to store.
func New(store kvstore.Store, opts Options) *Vault {
	v := &Vault{
		store:     store,
		kdf:       opts.KDF,
		cipher:    opts.Cipher,
		minPwdLen: opts.MinPasswordLength,
		logger:    opts.Logger,
		audit:     opts.Audit,
	}
	if v.kdf == nil {
		v.kdf = crypto.DefaultKDF()
	}
	if v.cipher == nil {
		v.cipher = crypto.DefaultCipher()
	}
	if v.minPwdLen <= 0 {
		v.minPwdLen = DefaultMinPasswordLength
	}
	if v.logger == nil {
		v.logger = util.DefaultLogger()
	}
	if v.audit == nil {
		v.audit = audit.NoOpLogger{}
	}
	return v
}

// Create generates a new keypair, seals it under password and persists it.
func (v *Vault) Create(ctx context.Context, password []byte) (string, error) {
	kp, err := keypair.Random()
	if err != nil {
		return "", fmt.Errorf("failed to generate keypair: %w", err)
	}
	defer kp.Zero()

	err = v.persistNew(ctx, kp, password)
	v.audit.Record(ctx, audit.ActionCreate, kp.Address(), err)
	if err != nil {
		return "", err
	}
	v.logger.Info("wallet created", "address", kp.Address())
	return kp.Address(), nil
}

// Import decodes the S... secret text and stores it like Create.
// Surrounding whitespace is ignored. The caller still owns and zeroes secret.
func (v *Vault) Import(ctx context.Context, secret, password []byte) (string, error) {
	kp, err := keypair.ParseSecretBytes(bytes.TrimSpace(secret))
	if err != nil {
		v.audit.Record(ctx, audit.ActionImport, "", ErrInvalidKeyFormat)
		return "", fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	defer kp.Zero()

	err = v.persistNew(ctx, kp, password)
	v.audit.Record(ctx, audit.ActionImport, kp.Address(), err)
	if err != nil {
		return "", err
	}
	v.logger.Info("wallet imported", "address", kp.Address())
	return kp.Address(), nil
}

func (v *Vault) persistNew(ctx context.Context, kp *keypair.Full, password []byte) error {
	if len(password) < v.minPwdLen {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, v.minPwdLen)
	}
	exists, err := v.hasBlob(ctx)
	if err != nil {
		return err
	}
	if exists {
		return ErrVaultExists
	}
	return v.persist(ctx, kp, password)
}

// persist seals kp's secret and writes both entries. The secret blob is
// written first so a crash never leaves an address without a secret.
func (v *Vault) persist(ctx context.Context, kp *keypair.Full, password []byte) error {
	secret := kp.Secret()
	defer crypto.ZeroBytes(secret)

	sealed, err := crypto.Seal(secret, password, v.kdf, v.cipher)
	if err != nil {
		return fmt.Errorf("failed to encrypt secret key: %w", err)
	}
	if err := v.store.Set(ctx, EntrySecretBlob, sealed); err != nil {
		return fmt.Errorf("failed to store secret key: %w", err)
	}
	if err := v.store.Set(ctx, EntryAddress, []byte(kp.Address())); err != nil {
		return fmt.Errorf("failed to store address: %w", err)
	}
	v.setCachedAddress(kp.Address())
	return nil
}

// Unlock decrypts the vault. The caller must Lock the result when done.
func (v *Vault) Unlock(ctx context.Context, password []byte) (*Unlocked, error) {
	kp, err := v.open(ctx, password)
	if err != nil {
		v.audit.Record(ctx, audit.ActionUnlock, v.cachedOrEmpty(ctx), err)
		return nil, err
	}
	defer kp.Zero()

	v.audit.Record(ctx, audit.ActionUnlock, kp.Address(), nil)
	v.logger.Debug("wallet unlocked", "address", kp.Address())
	return newUnlocked(kp), nil
}

// open loads and decrypts the secret, checking it against the stored address.
func (v *Vault) open(ctx context.Context, password []byte) (*keypair.Full, error) {
	blob, err := v.store.Get(ctx, EntrySecretBlob)
	if errors.Is(err, kvstore.ErrNotFound) {
		return nil, ErrVaultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vault: %w", err)
	}

	plaintext, err := crypto.Open(blob, password)
	if errors.Is(err, crypto.ErrDecryptFailed) {
		return nil, ErrInvalidPassword
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt vault: %w", err)
	}
	defer crypto.ZeroBytes(plaintext)

	kp, err := keypair.ParseSecretBytes(plaintext)
	if err != nil {
		return nil, ErrInvalidPassword
	}

	stored, ok := v.StoredAddress(ctx)
	if ok && stored != kp.Address() {
		kp.Zero()
		return nil, ErrInvalidPassword
	}
	return kp, nil
}

// WithUnlocked unlocks, runs fn, and locks again whatever fn returns.
func (v *Vault) WithUnlocked(ctx context.Context, password []byte, fn func(*Unlocked) error) error {
	u, err := v.Unlock(ctx, password)
	if err != nil {
		return err
	}
	defer u.Lock()
	return fn(u)
}

// Export reveals the secret key text. The caller must Destroy the result.
func (v *Vault) Export(ctx context.Context, password []byte) (*crypto.SecureString, error) {
	kp, err := v.open(ctx, password)
	v.audit.Record(ctx, audit.ActionExport, v.cachedOrEmpty(ctx), err)
	if err != nil {
		return nil, err
	}
	defer kp.Zero()

	secret := kp.Secret()
	defer crypto.ZeroBytes(secret)
	return crypto.NewSecureStringFromBytes(secret), nil
}

// ChangePassword re-seals the secret under newPassword with a fresh salt.
func (v *Vault) ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error {
	err := v.changePassword(ctx, oldPassword, newPassword)
	v.audit.Record(ctx, audit.ActionChangePassword, v.cachedOrEmpty(ctx), err)
	return err
}

func (v *Vault) changePassword(ctx context.Context, oldPassword, newPassword []byte) error {
	if len(newPassword) < v.minPwdLen {
		return fmt.Errorf("%w: must be at least %d characters", ErrWeakPassword, v.minPwdLen)
	}
	kp, err := v.open(ctx, oldPassword)
	if err != nil {
		return err
	}
	defer kp.Zero()
	return v.persist(ctx, kp, newPassword)
}

// Clear deletes both entries and the cached address. It succeeds when nothing is stored.
func (v *Vault) Clear(ctx context.Context) error {
	address := v.cachedOrEmpty(ctx)
	err := v.clear(ctx)
	v.audit.Record(ctx, audit.ActionClear, address, err)
	return err
}

func (v *Vault) clear(ctx context.Context) error {
	v.invalidate()
	if err := v.store.Delete(ctx, EntrySecretBlob); err != nil {
		return fmt.Errorf("failed to delete secret key: %w", err)
	}
	if err := v.store.Delete(ctx, EntryAddress); err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	v.invalidate()
	v.logger.Info("wallet cleared")
	return nil
}

// HasVault reports whether a sealed secret is stored. No password needed.
func (v *Vault) HasVault(ctx context.Context) bool {
	ok, err := v.hasBlob(ctx)
	if err != nil {
		v.logger.Warn("failed to check vault", "error", err)
	}
	return ok
}

func (v *Vault) hasBlob(ctx context.Context) (bool, error) {
	ok, err := kvstore.Has(ctx, v.store, EntrySecretBlob)
	if err != nil {
		return false, fmt.Errorf("failed to check vault: %w", err)
	}
	return ok, nil
}

// StoredAddress returns the persisted public address. No password needed.
func (v *Vault) StoredAddress(ctx context.Context) (string, bool) {
	v.cacheLock.RLock()
	if v.cacheValid {
		addr := v.address
		v.cacheLock.RUnlock()
		return addr, addr != ""
	}
	v.cacheLock.RUnlock()

	data, err := v.store.Get(ctx, EntryAddress)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			v.logger.Warn("failed to read stored address", "error", err)
			return "", false
		}
		v.setCachedAddress("")
		return "", false
	}
	addr := string(data)
	v.setCachedAddress(addr)
	return addr, addr != ""
}

// Watch invalidates the cached address when another process changes the
// vault entries. It is a no-op for stores that cannot watch.
func (v *Vault) Watch(ctx context.Context) error {
	w, ok := v.store.(kvstore.Watcher)
	if !ok {
		return nil
	}
	return w.Watch(ctx, func(key string) {
		if key == EntryAddress || key == EntrySecretBlob {
			v.logger.Debug("vault changed externally", "entry", key)
			v.invalidate()
		}
	})
}

func (v *Vault) setCachedAddress(addr string) {
	v.cacheLock.Lock()
	defer v.cacheLock.Unlock()
	v.address = addr
	v.cacheValid = true
}

func (v *Vault) invalidate() {
	v.cacheLock.Lock()
	defer v.cacheLock.Unlock()
	v.address = ""
	v.cacheValid = false
}

func (v *Vault) cachedOrEmpty(ctx context.Context) string {
	addr, _ := v.StoredAddress(ctx)
	return addr
}
