// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

//go:build unix

// Package security hardens the process that holds wallet secrets.
package security

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// LockMemory locks all current and future pages so decrypted keys are never swapped to disk.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("mlockall failed: %w (grant it with: sudo setcap cap_ipc_lock+ep %s)", err, os.Args[0])
	}
	return nil
}

// DisableCoreDumps prevents a crash from writing key material to a core file.
func DisableCoreDumps() error {
	if err := unix.Setrlimit(unix.RLIMIT_CORE, &unix.Rlimit{Cur: 0, Max: 0}); err != nil {
		return fmt.Errorf("failed to disable core dumps: %w", err)
	}
	return nil
}

// Harden applies both protections. Failures are logged, not fatal: an
// unprivileged user still gets a working wallet.
func Harden(logger *slog.Logger) {
	if err := DisableCoreDumps(); err != nil {
		logger.Warn("core dumps remain enabled", "error", err)
	}
	if err := LockMemory(); err != nil {
		logger.Warn("memory not locked", "error", err)
	}
}
