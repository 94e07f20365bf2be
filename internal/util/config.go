// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Network passphrases mixed into every transaction hash.
const (
	TestnetPassphrase = "Test SDF Network ; September 2015"
	MainnetPassphrase = "Public Global Stellar Network ; September 2015"
)

// StoreConfig selects where the encrypted vault is persisted.
type StoreConfig struct {
	Backend     string   `yaml:"backend" description:"Vault storage backend (file, sqlite, redis, s3, memory)" default:"file"`
	Dir         string   `yaml:"dir" description:"Directory for the file backend (relative to data dir)" default:"vault"`
	SQLitePath  string   `yaml:"sqlite_path" description:"Database path for the sqlite backend (relative to data dir)" default:"vault.db"`
	RedisAddr   string   `yaml:"redis_addr" description:"host:port for the redis backend"`
	RedisPrefix string   `yaml:"redis_prefix" description:"Key prefix for the redis backend" default:"swallet:"`
	Watch       bool     `yaml:"watch" description:"Watch the file backend for external changes" default:"true"`
	S3          S3Config `yaml:"s3"`
}

// S3Config configures the s3 backend. Credentials fall back to the
// SWALLET_S3_ACCESS_KEY and SWALLET_S3_SECRET_KEY environment variables.
type S3Config struct {
	Endpoint        string `yaml:"endpoint" description:"host:port of the S3-compatible service"`
	Region          string `yaml:"region" description:"Bucket region"`
	Bucket          string `yaml:"bucket" description:"Bucket holding the vault objects" default:"swallet"`
	Prefix          string `yaml:"prefix" description:"Object key prefix" default:"vault"`
	AccessKeyID     string `yaml:"access_key_id" description:"Access key (prefer SWALLET_S3_ACCESS_KEY)"`
	SecretAccessKey string `yaml:"secret_access_key" description:"Secret key (prefer SWALLET_S3_SECRET_KEY)"`
	UseSSL          bool   `yaml:"use_ssl" description:"Connect over TLS" default:"true"`
}

// KDFConfig selects the password key derivation function for new encryptions.
// Existing vaults always decrypt with the parameters recorded in their envelope.
type KDFConfig struct {
	Algorithm     string `yaml:"algorithm" description:"pbkdf2-sha256, scrypt or argon2id" default:"pbkdf2-sha256"`
	Iterations    int    `yaml:"iterations" description:"PBKDF2 iteration count" default:"100000"`
	ScryptN       int    `yaml:"scrypt_n" description:"scrypt cost parameter N" default:"32768"`
	ScryptR       int    `yaml:"scrypt_r" description:"scrypt block size r" default:"8"`
	ScryptP       int    `yaml:"scrypt_p" description:"scrypt parallelism p" default:"1"`
	Argon2Time    uint32 `yaml:"argon2_time" description:"Argon2id iterations" default:"1"`
	Argon2Memory  uint32 `yaml:"argon2_memory" description:"Argon2id memory in KiB" default:"65536"`
	Argon2Threads uint8  `yaml:"argon2_threads" description:"Argon2id parallelism" default:"4"`
}

// Config holds swallet configuration settings
type Config struct {
	Network           string `yaml:"network" description:"Network (testnet, mainnet)" default:"testnet"`
	NetworkPassphrase string `yaml:"network_passphrase" description:"Override the network passphrase (private networks)"`
	Cipher            string `yaml:"cipher" description:"Vault cipher (aes-256-gcm, chacha20)" default:"aes-256-gcm"`
	MinPasswordLength int    `yaml:"min_password_length" description:"Minimum password length for new vaults" default:"8"`
	AuditLog          string `yaml:"audit_log" description:"Audit log path (relative to data dir, empty disables)" default:"audit.log"`
	LockMemory        bool   `yaml:"lock_memory" description:"Lock process memory and disable core dumps" default:"true"`

	PasswordCommandArgv []string          `yaml:"password_command_argv" description:"Helper that stores the wallet password for unattended use"`
	PasswordCommandEnv  map[string]string `yaml:"password_command_env" description:"Environment passed to the password helper"`
	Store               StoreConfig       `yaml:"store"`
	KDF                 KDFConfig         `yaml:"kdf"`
}

// DefaultConfig returns the default configuration for runtime use.
func DefaultConfig() Config {
	return Config{
		Network:           "testnet",
		Cipher:            "aes-256-gcm",
		MinPasswordLength: 8,
		AuditLog:          "audit.log",
		LockMemory:        true,
		Store: StoreConfig{
			Backend:     "file",
			Dir:         "vault",
			SQLitePath:  "vault.db",
			RedisPrefix: "swallet:",
			Watch:       true,
			S3: S3Config{
				Bucket: "swallet",
				Prefix: "vault",
				UseSSL: true,
			},
		},
		KDF: KDFConfig{
			Algorithm:     "pbkdf2-sha256",
			Iterations:    100000,
			ScryptN:       32768,
			ScryptR:       8,
			ScryptP:       1,
			Argon2Time:    1,
			Argon2Memory:  64 * 1024,
			Argon2Threads: 4,
		},
	}
}

// PasswordCommand returns the configured password helper.
func (c Config) PasswordCommand() PasswordCommand {
	return PasswordCommand{Argv: c.PasswordCommandArgv, Env: c.PasswordCommandEnv}
}

// Passphrase returns the network passphrase used for transaction hashing.
func (c Config) Passphrase() string {
	if c.NetworkPassphrase != "" {
		return c.NetworkPassphrase
	}
	if c.Network == "mainnet" {
		return MainnetPassphrase
	}
	return TestnetPassphrase
}

// GetDataDir returns the data directory.
// Resolution order: -d flag > SWALLET_DATA env var > ~/.swallet
func GetDataDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envDir := os.Getenv("SWALLET_DATA"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".swallet")
}

// GetConfigPath returns the path to the config file in the data directory.
// Returns empty string if dataDir is empty.
func GetConfigPath(dataDir string) string {
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, "config.yaml")
}

// LoadConfig loads config.yaml from the data directory and resolves relative
// store paths against it.
func LoadConfig(dataDir string) (Config, error) {
	config, err := LoadConfigFromPath(GetConfigPath(dataDir))
	if err != nil {
		return config, err
	}

	config.Store.Dir = ResolvePath(config.Store.Dir, dataDir)
	config.Store.SQLitePath = ResolvePath(config.Store.SQLitePath, dataDir)
	config.AuditLog = ResolvePath(config.AuditLog, dataDir)
	if len(config.PasswordCommandArgv) > 0 {
		config.PasswordCommandArgv[0] = ResolvePath(config.PasswordCommandArgv[0], dataDir)
	}
	if v := os.Getenv("SWALLET_S3_ACCESS_KEY"); v != "" {
		config.Store.S3.AccessKeyID = v
	}
	if v := os.Getenv("SWALLET_S3_SECRET_KEY"); v != "" {
		config.Store.S3.SecretAccessKey = v
	}
	return config, nil
}

// LoadConfigFromPath loads configuration from the specified path.
// If path is empty or the file doesn't exist, returns default config.
func LoadConfigFromPath(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay config file values
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate rejects settings that cannot produce a working vault.
func (c Config) Validate() error {
	switch c.Network {
	case "testnet", "mainnet":
	default:
		return fmt.Errorf("invalid network '%s' in config (must be testnet or mainnet)", c.Network)
	}

	switch c.Store.Backend {
	case "file", "sqlite", "memory":
	case "redis":
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required when store.backend is redis")
		}
	case "s3":
		if c.Store.S3.Endpoint == "" || c.Store.S3.Bucket == "" {
			return fmt.Errorf("store.s3.endpoint and store.s3.bucket are required when store.backend is s3")
		}
	default:
		return fmt.Errorf("invalid store backend '%s' (must be file, sqlite, redis, s3 or memory)", c.Store.Backend)
	}

	if c.MinPasswordLength < 1 {
		return fmt.Errorf("min_password_length must be at least 1")
	}
	return nil
}

// ResolvePath returns path unchanged if absolute or empty, otherwise joins it to baseDir.
// A leading ~/ expands to the user's home directory.
func ResolvePath(path, baseDir string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
