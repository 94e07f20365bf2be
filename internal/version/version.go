// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package version reports the swallet build. Values are injected with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Example: go build -ldflags "-X github.com/dravynn/Stellar-Wallet-Africa/internal/version.Version=0.3.0"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns the --version line.
func String() string {
	return fmt.Sprintf("swallet %s (commit: %s, built: %s, %s/%s)",
		Version, GitCommit, BuildTime, runtime.GOOS, runtime.GOARCH)
}
