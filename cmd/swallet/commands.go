// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dravynn/Stellar-Wallet-Africa/internal/audit"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/crypto"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/fsutil"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/keystore"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/multisig"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/txn"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/util"
	"github.com/dravynn/Stellar-Wallet-Africa/internal/wallet"
)

func cmdCreate(ctx context.Context, w *wallet.Wallet) error {
	printTitle("Create Wallet")
	if w.Vault.HasVault(ctx) {
		return fmt.Errorf("%w; run 'swallet clear' first to replace it", keystore.ErrVaultExists)
	}

	fmt.Printf("Choose a password of at least %d characters.\n", w.Config.MinPasswordLength)
	fmt.Println("It cannot be recovered. Keep an exported copy of the secret key offline.")
	fmt.Println()

	password, err := readNewPassword("Password: ")
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(password)

	address, err := w.Vault.Create(ctx, password)
	if err != nil {
		return err
	}
	printOK("Wallet created")
	printField("Address", address)
	storeWithHelper(ctx, w, password)
	return nil
}

func cmdImport(ctx context.Context, w *wallet.Wallet) error {
	printTitle("Import Wallet")
	if w.Vault.HasVault(ctx) {
		return fmt.Errorf("%w; run 'swallet clear' first to replace it", keystore.ErrVaultExists)
	}

	secret, err := readPassword("Secret key (S...): ")
	if err != nil {
		return fmt.Errorf("failed to read secret key: %w", err)
	}
	defer crypto.ZeroBytes(secret)

	password, err := readNewPassword("New password: ")
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(password)

	address, err := w.Vault.Import(ctx, secret, password)
	if err != nil {
		return err
	}
	printOK("Wallet imported")
	printField("Address", address)
	storeWithHelper(ctx, w, password)
	return nil
}

// storeWithHelper hands a new password to the configured helper. Failure is
// reported but does not undo the vault change.
func storeWithHelper(ctx context.Context, w *wallet.Wallet, password []byte) {
	helper := w.Config.PasswordCommand()
	if !helper.Configured() {
		return
	}
	if err := helper.Write(ctx, password); err != nil {
		fmt.Println(lockedStyle.Render("⚠ Could not store the password via password_command_argv:"))
		fmt.Printf("  %v\n", err)
		fmt.Println("  Store it in your secrets backend manually.")
		return
	}
	printOK("Password stored via password helper")
}

// cmdUnlock verifies the password without keeping the key.
func cmdUnlock(ctx context.Context, w *wallet.Wallet) error {
	password, err := unlockPrompt(ctx, w.Config)()
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(password)

	u, err := w.Vault.Unlock(ctx, password)
	if err != nil {
		return err
	}
	locked := u.Lock()
	printOK("Password accepted")
	printField("Address", locked.Address)
	return nil
}

func cmdAddress(ctx context.Context, w *wallet.Wallet) error {
	address, ok := w.Vault.StoredAddress(ctx)
	if !ok {
		return keystore.ErrVaultNotFound
	}
	fmt.Println(address)
	return nil
}

func cmdStatus(ctx context.Context, w *wallet.Wallet) error {
	printTitle("Wallet Status")
	cfg := w.Config

	if address, ok := w.Vault.StoredAddress(ctx); ok {
		printField("Vault", lockedStyle.Render("locked"))
		printField("Address", address)
	} else {
		printField("Vault", "none")
	}
	printField("Network", cfg.Network)
	printField("Backend", cfg.Store.Backend)
	printField("Cipher", cfg.Cipher)
	printField("KDF", cfg.KDF.Algorithm)
	if cfg.AuditLog != "" {
		printField("Audit log", cfg.AuditLog)
	} else {
		printField("Audit log", "disabled")
	}
	return nil
}

func cmdExport(ctx context.Context, w *wallet.Wallet) error {
	printTitle("Export Secret Key")
	fmt.Println("Anyone holding this key controls the account.")
	fmt.Println()

	password, err := readPassword("Wallet password: ")
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(password)

	secret, err := w.Vault.Export(ctx, password)
	if err != nil {
		return err
	}
	defer secret.Destroy()

	fmt.Println(secretStyle.Render(secret.Reveal()))
	fmt.Println()
	fmt.Println("SECURITY: Clear your terminal scrollback after copying this key.")
	return nil
}

func cmdChangepass(ctx context.Context, w *wallet.Wallet) error {
	printTitle("Change Password")
	oldPassword, err := readPassword("Current password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	defer crypto.ZeroBytes(oldPassword)

	newPassword, err := readNewPassword("New password: ")
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(newPassword)

	if err := w.Vault.ChangePassword(ctx, oldPassword, newPassword); err != nil {
		return err
	}
	printOK("Password changed")
	storeWithHelper(ctx, w, newPassword)
	return nil
}

func cmdClear(ctx context.Context, w *wallet.Wallet, confirmed bool) error {
	address, ok := w.Vault.StoredAddress(ctx)
	if ok && !confirmed {
		fmt.Printf("This permanently deletes the key for %s.\n", address)
		fmt.Print("Type 'yes' to continue: ")
		if stdinReader == nil {
			stdinReader = bufio.NewReader(os.Stdin)
		}
		line, _ := stdinReader.ReadString('\n')
		if strings.TrimSpace(line) != "yes" {
			return errors.New("aborted")
		}
	}
	if err := w.Vault.Clear(ctx); err != nil {
		return err
	}
	printOK("Wallet cleared")
	return nil
}

func cmdSign(ctx context.Context, w *wallet.Wallet, args []string) error {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	out := fs.String("o", "", "Write the signed envelope to this file instead of stdout")
	if err := fs.Parse(reorderFlags(args)); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError("swallet sign <tx.json|envelope-file> [-o out]")
	}

	env, err := txn.ParseEnvelopeFile(fs.Arg(0), w.Passphrase())
	if err != nil {
		return err
	}

	signer := keystore.NewSigner(w.Vault, unlockPrompt(ctx, w.Config))
	sig, err := signer.SignEnvelope(ctx, env)
	if err != nil {
		return err
	}
	util.Debug("signature attached", "hint", hex.EncodeToString(sig.Hint[:]))

	encoded := txn.EncodeEnvelope(env)
	if *out == "" {
		fmt.Println(encoded)
		return nil
	}
	if err := fsutil.AtomicWriteFile(*out, []byte(encoded+"\n")); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	printOK("Signed envelope written to %s (%d signature(s))", *out, len(env.Signatures))
	return nil
}

// cmdAuthorize merges envelope copies from independent signers and checks
// them against the signer registry.
func cmdAuthorize(w *wallet.Wallet, registryPath string, files []string) error {
	authorizer, err := w.Authorizer(registryPath)
	if err != nil {
		return err
	}

	var merged *txn.Envelope
	for _, path := range files {
		env, err := txn.ParseEnvelopeFile(path, w.Passphrase())
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if merged == nil {
			merged = env
			continue
		}
		if _, err := merged.Merge(env); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	printTitle("Authorization")
	authorized, err := authorizer.AuthorizeEnvelope(merged)
	if err != nil {
		if multisig.IsAuthorizationFailure(err) {
			if session, serr := authorizer.ResumeSession(txn.EncodeEnvelope(merged)); serr == nil {
				printField("State", session.State())
				printField("Weight", fmt.Sprintf("%d / %d", session.Weight(), session.Required()))
			}
		}
		return err
	}

	printOK("Authorized")
	printField("Class", authorized.Class)
	printField("Weight", fmt.Sprintf("%d / %d", authorized.Weight, authorized.Required))
	printField("Signers", strings.Join(authorized.Signers, "\n"+strings.Repeat(" ", 15)))
	fmt.Println()
	fmt.Println(txn.EncodeEnvelope(authorized.Envelope))
	return nil
}

func cmdInspect(config util.Config, path string) error {
	env, err := txn.ParseEnvelopeFile(path, config.Passphrase())
	if err != nil {
		return err
	}
	tx := env.Tx
	hash := env.Hash()

	printTitle("Transaction")
	printField("Envelope", env.ID)
	printField("Network", env.Network)
	printField("Hash", hex.EncodeToString(hash[:]))
	printField("Source", tx.Source)
	printField("Sequence", tx.Sequence)
	printField("Fee", util.FormatAmountWithDecimals(int64(tx.Fee), util.StroopDecimals)+" XLM")
	if tx.Memo != "" {
		printField("Memo", tx.Memo)
	}
	if class, err := tx.ThresholdClass(); err == nil {
		printField("Threshold", class)
	}

	fmt.Println()
	for i, op := range tx.Operations {
		line := fmt.Sprintf("%d. %s", i+1, op.Type)
		if op.Amount != 0 {
			line += fmt.Sprintf(" %s %s", util.FormatAmountWithDecimals(op.Amount, util.StroopDecimals), op.Asset)
		}
		if op.Destination != "" {
			line += " -> " + op.Destination
		}
		if op.Source != "" {
			line += fmt.Sprintf(" (source %s)", op.Source)
		}
		fmt.Println(line)
	}

	fmt.Println()
	printField("Signatures", len(env.Signatures))
	for _, sig := range env.Signatures {
		fmt.Printf("  hint %s\n", hex.EncodeToString(sig.Hint[:]))
	}
	return nil
}

func cmdAudit(config util.Config, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	action := fs.String("action", "", "Only show this action (e.g. vault.unlock)")
	failed := fs.Bool("failed", false, "Only show failures")
	limit := fs.Int("n", 20, "Show at most this many recent events")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if config.AuditLog == "" {
		return errors.New("audit logging is disabled (audit_log is empty)")
	}

	opts := audit.QueryOptions{Action: *action, Limit: *limit}
	if *failed {
		f := false
		opts.Success = &f
	}
	events, err := audit.ReadEvents(config.AuditLog, opts)
	if err != nil {
		return err
	}
	for _, e := range events {
		status := okStyle.Render("ok")
		if !e.Success {
			status = errorStyle.Render("failed")
		}
		line := fmt.Sprintf("%s  %-22s %s", e.Time.Local().Format("2006-01-02 15:04:05"), e.Action, status)
		if e.Address != "" {
			line += "  " + e.Address
		}
		if e.Error != "" {
			line += "  " + e.Error
		}
		fmt.Println(line)
	}
	return nil
}

// reorderFlags moves flags ahead of positional arguments so both
// "sign tx.json -o out" and "sign -o out tx.json" work.
func reorderFlags(args []string) []string {
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)
			if !strings.Contains(arg, "=") && i+1 < len(args) {
				flags = append(flags, args[i+1])
				i++
			}
			continue
		}
		positional = append(positional, arg)
	}
	return append(flags, positional...)
}
