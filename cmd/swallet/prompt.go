// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/crypto"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/keystore"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/util"
)

// stdinReader is a shared reader for non-terminal stdin
var stdinReader *bufio.Reader

// readPassword reads a line without echo. Non-terminal stdin is read as a plain line
// so passwords can be piped in scripts.
func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)

	fd := int(os.Stdin.Fd()) // #nosec G115 - file descriptors are small integers
	if term.IsTerminal(fd) {
		return term.ReadPassword(fd)
	}

	if stdinReader == nil {
		stdinReader = bufio.NewReader(os.Stdin)
	}
	line, err := stdinReader.ReadBytes('\n')
	if err != nil && len(line) == 0 {
		return nil, err
	}
	trimmed := bytes.TrimRight(line, "\r\n")
	out := append([]byte(nil), trimmed...)
	crypto.ZeroBytes(line)
	return out, nil
}

// readNewPassword asks twice and requires both entries to match.
func readNewPassword(prompt string) ([]byte, error) {
	password, err := readPassword(prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		crypto.ZeroBytes(password)
		return nil, fmt.Errorf("failed to read confirmation: %w", err)
	}
	defer crypto.ZeroBytes(confirm)

	if !bytes.Equal(password, confirm) {
		crypto.ZeroBytes(password)
		return nil, fmt.Errorf("passwords do not match")
	}
	return password, nil
}

// unlockPrompt reads the wallet password from the configured helper, or
// from the terminal when none is set.
func unlockPrompt(ctx context.Context, config util.Config) keystore.PromptFunc {
	helper := config.PasswordCommand()
	if !helper.Configured() {
		return func() ([]byte, error) { return readPassword("Wallet password: ") }
	}
	return func() ([]byte, error) { return helper.Read(ctx) }
}
