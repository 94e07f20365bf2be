// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package wallet assembles a vault and its collaborators from configuration.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/audit"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/crypto"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/keystore"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/kvstore"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/multisig"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/util"
)

// Wallet bundles an opened vault with the resources that must be closed with it.
type Wallet struct {
	Config util.Config
	Store  kvstore.Store
	Vault  *keystore.Vault
	Audit  audit.Logger
	Logger *slog.Logger
}

// Open builds the store, KDF, cipher and audit log described by cfg.
// When the store supports it and cfg.Store.Watch is set, the vault watches
// for external changes until ctx is cancelled.
func Open(ctx context.Context, cfg util.Config, logger *slog.Logger) (*Wallet, error) {
	if logger == nil {
		logger = util.DefaultLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	kdf, err := NewKDF(cfg.KDF)
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.CipherByName(cfg.Cipher)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	var auditLog audit.Logger = audit.NoOpLogger{}
	if cfg.AuditLog != "" {
		fl, err := audit.NewFileLogger(cfg.AuditLog)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		auditLog = fl
	}

	vault := keystore.New(store, keystore.Options{
		KDF:               kdf,
		Cipher:            cipher,
		MinPasswordLength: cfg.MinPasswordLength,
		Logger:            logger,
		Audit:             auditLog,
	})

	if cfg.Store.Watch {
		if err := vault.Watch(ctx); err != nil {
			logger.Warn("vault watcher not started", "error", err)
		}
	}

	return &Wallet{
		Config: cfg,
		Store:  store,
		Vault:  vault,
		Audit:  auditLog,
		Logger: logger,
	}, nil
}

// Close releases the store and the audit log.
func (w *Wallet) Close() error {
	return errors.Join(w.Store.Close(), w.Audit.Close())
}

// Passphrase returns the configured network passphrase.
func (w *Wallet) Passphrase() string {
	return w.Config.Passphrase()
}

// Authorizer loads a signer registry from a YAML file and binds it to the
// configured network.
func (w *Wallet) Authorizer(registryPath string) (*multisig.Authorizer, error) {
	reg, err := multisig.LoadRegistry(registryPath)
	if err != nil {
		return nil, err
	}
	return multisig.NewAuthorizer(reg, w.Passphrase(), w.Logger), nil
}

// NewStore opens the configured storage backend.
func NewStore(ctx context.Context, cfg util.StoreConfig, logger *slog.Logger) (kvstore.Store, error) {
	if logger == nil {
		logger = util.DefaultLogger()
	}
	switch cfg.Backend {
	case "memory":
		return kvstore.NewMemoryStore(), nil
	case "file", "":
		return kvstore.NewFileStore(cfg.Dir, kvstore.WithLogger(logger))
	case "sqlite":
		s, err := kvstore.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Debug("opened sqlite store", "path", s.Path())
		return s, nil
	case "redis":
		return kvstore.NewRedisStore(ctx, kvstore.RedisOptions{
			Addr:   cfg.RedisAddr,
			Prefix: cfg.RedisPrefix,
		})
	case "s3":
		return kvstore.NewS3Store(ctx, kvstore.S3Options{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			UseSSL:          cfg.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewKDF converts the configured algorithm and cost parameters.
func NewKDF(cfg util.KDFConfig) (crypto.KDF, error) {
	p := crypto.DefaultParams(cfg.Algorithm)
	switch cfg.Algorithm {
	case crypto.AlgPBKDF2:
		p.Iterations = cfg.Iterations
	case crypto.AlgScrypt:
		p.N, p.R, p.P = cfg.ScryptN, cfg.ScryptR, cfg.ScryptP
	case crypto.AlgArgon2id:
		p.Time, p.Memory, p.Threads = cfg.Argon2Time, cfg.Argon2Memory, cfg.Argon2Threads
	default:
		return nil, fmt.Errorf("unknown kdf algorithm %q", cfg.Algorithm)
	}
	kdf, err := crypto.NewKDF(p)
	if err != nil {
		return nil, fmt.Errorf("invalid kdf settings: %w", err)
	}
	return kdf, nil
}
