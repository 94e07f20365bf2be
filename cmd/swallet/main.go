// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/awnumar/memguard"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/security"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/util"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/version"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/wallet"
)

func usage() {
	fmt.Fprintf(os.Stderr, "swallet - Stellar wallet key custody and multi-signature authorization\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] create\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] import\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] unlock\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] address\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] status\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] export\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] changepass\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] clear [--yes]\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] sign <tx.json|envelope-file> [-o out]\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] authorize <signers.yaml> <envelope-file>...\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] inspect <tx.json|envelope-file>\n")
	fmt.Fprintf(os.Stderr, "  swallet [-d path] audit [--action name] [--failed] [-n count]\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	fmt.Fprintf(os.Stderr, "  -d path              Data directory (or set SWALLET_DATA, default ~/.swallet)\n")
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  swallet create\n")
	fmt.Fprintf(os.Stderr, "  swallet sign payment.json -o payment.env\n")
	fmt.Fprintf(os.Stderr, "  swallet authorize signers.yaml alice.env bob.env\n")
}

func main() {
	// Handle early-exit flags before any other processing
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" {
			fmt.Println(version.String())
			os.Exit(0)
		}
	}

	flag.Usage = usage
	dataDirFlag := flag.String("d", "", "Data directory (or set SWALLET_DATA)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	util.InitLogger()

	// Wipe enclaves on Ctrl-C before exiting
	memguard.CatchInterrupt()
	defer memguard.Purge()

	dataDir := util.GetDataDir(*dataDirFlag)
	if dataDir == "" {
		fatal(fmt.Errorf("cannot determine data directory; use -d or set SWALLET_DATA"))
	}
	config, err := util.LoadConfig(dataDir)
	if err != nil {
		fatal(err)
	}
	if config.LockMemory {
		security.Harden(util.Logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx, config, args); err != nil {
		cancel()
		fatal(err)
	}
}

func run(ctx context.Context, config util.Config, args []string) error {
	command, rest := args[0], args[1:]

	// Commands that never touch the vault
	switch command {
	case "inspect":
		if len(rest) < 1 {
			return usageError("swallet inspect <tx.json|envelope-file>")
		}
		return cmdInspect(config, rest[0])
	case "audit":
		return cmdAudit(config, rest)
	}

	w, err := wallet.Open(ctx, config, util.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	switch command {
	case "create":
		return cmdCreate(ctx, w)
	case "import":
		return cmdImport(ctx, w)
	case "unlock":
		return cmdUnlock(ctx, w)
	case "address":
		return cmdAddress(ctx, w)
	case "status":
		return cmdStatus(ctx, w)
	case "export":
		return cmdExport(ctx, w)
	case "changepass":
		return cmdChangepass(ctx, w)
	case "clear":
		return cmdClear(ctx, w, len(rest) > 0 && rest[0] == "--yes")
	case "sign":
		return cmdSign(ctx, w, rest)
	case "authorize":
		if len(rest) < 2 {
			return usageError("swallet authorize <signers.yaml> <envelope-file>...")
		}
		return cmdAuthorize(w, rest[0], rest[1:])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func usageError(line string) error {
	return fmt.Errorf("usage: %s", line)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("Error:"), err)
	memguard.SafeExit(1)
}
