// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// swallet-pass-file is a password helper that keeps the wallet password in a
// plaintext file with owner-only permissions.
//
//	swallet-pass-file read  <file>   print the stored password
//	swallet-pass-file write <file>   store the password read from stdin, then print it back
//
// DEV ONLY: use a secrets manager in production.
//
// config.yaml:
//
//	password_command_argv: ["/usr/local/bin/swallet-pass-file", "/home/me/.swallet/password"]
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/fsutil"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: swallet-pass-file <read|write> <file>\n")
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "swallet-pass-file: %v\n", err)
		os.Exit(1)
	}
}

func run(verb, path string, in io.Reader, out io.Writer) error {
	switch verb {
	case "read":
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err

	case "write":
		password, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if err := fsutil.AtomicWriteFile(path, password); err != nil {
			return err
		}
		stored, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = out.Write(stored)
		return err

	default:
		return fmt.Errorf("unknown verb %q (expected read or write)", verb)
	}
}
