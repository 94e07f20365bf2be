// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package util

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

const (
	// PasswordCommandTimeout bounds a single helper invocation.
	PasswordCommandTimeout = 5 * time.Second

	maxPasswordOutput = 8 * 1024
)

// ErrPasswordCommand prefixes every helper failure.
var ErrPasswordCommand = errors.New("password_command")

// PasswordCommand runs an external helper that stores the wallet password,
// for unattended signing. The helper is invoked as
//
//	argv[0] <read|write> argv[1:]...
//
// "read" prints the password. "write" receives a new password on stdin and
// prints it back. One trailing newline is stripped; "base64:" and "hex:"
// prefixes are decoded. The helper's stderr is discarded and it never
// inherits the caller's environment.
type PasswordCommand struct {
	Argv []string
	Env  map[string]string
}

// Configured reports whether a helper is set.
func (c PasswordCommand) Configured() bool { return len(c.Argv) > 0 }

// Read returns the stored password. The caller must zero it.
func (c PasswordCommand) Read(ctx context.Context) ([]byte, error) {
	return c.run(ctx, "read", nil)
}

// Write stores password through the helper and checks the echoed value.
func (c PasswordCommand) Write(ctx context.Context, password []byte) error {
	echo, err := c.run(ctx, "write", password)
	if err != nil {
		return err
	}
	defer zeroBytes(echo)
	if subtle.ConstantTimeCompare(echo, password) != 1 {
		return fmt.Errorf("%w: write: helper echoed a different value", ErrPasswordCommand)
	}
	return nil
}

// Validate checks argv[0] without running it.
func (c PasswordCommand) Validate() error {
	if !c.Configured() {
		return fmt.Errorf("%w: argv must be non-empty", ErrPasswordCommand)
	}
	return checkHelperBinary(c.Argv[0])
}

func (c PasswordCommand) run(ctx context.Context, verb string, stdin []byte) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, PasswordCommandTimeout)
	defer cancel()

	args := append([]string{verb}, c.Argv[1:]...)
	cmd := exec.Command(c.Argv[0], args...) //nolint:gosec // validated above
	cmd.Env = helperEnv(c.Env)
	// Own process group so a timeout also kills the helper's children
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if len(stdin) > 0 {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	cmd.Stderr = io.Discard

	var stdout bytes.Buffer
	defer func() {
		zeroBytes(stdout.Bytes())
		stdout.Reset()
	}()
	capped := &cappedWriter{w: &stdout, remaining: maxPasswordOutput}
	cmd.Stdout = capped

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start: %v", ErrPasswordCommand, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%w: %s failed: %v", ErrPasswordCommand, verb, err)
		}
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		<-done
		return nil, fmt.Errorf("%w: %s timed out: %v", ErrPasswordCommand, verb, ctx.Err())
	}

	if capped.overflow {
		return nil, fmt.Errorf("%w: output exceeds %d bytes", ErrPasswordCommand, maxPasswordOutput)
	}
	return decodeHelperOutput(stdout.Bytes())
}

// decodeHelperOutput returns a fresh slice; out itself is zeroed by the caller.
func decodeHelperOutput(out []byte) ([]byte, error) {
	if bytes.HasSuffix(out, []byte("\n")) {
		out = bytes.TrimSuffix(out[:len(out)-1], []byte("\r"))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: empty output", ErrPasswordCommand)
	}
	if bytes.IndexByte(out, 0) >= 0 {
		return nil, fmt.Errorf("%w: output contains NUL bytes", ErrPasswordCommand)
	}

	switch {
	case bytes.HasPrefix(out, []byte("base64:")):
		enc := out[len("base64:"):]
		dec := make([]byte, base64.StdEncoding.DecodedLen(len(enc)))
		n, err := base64.StdEncoding.Decode(dec, enc)
		if err != nil {
			zeroBytes(dec)
			return nil, fmt.Errorf("%w: invalid base64 output", ErrPasswordCommand)
		}
		return dec[:n], nil
	case bytes.HasPrefix(out, []byte("hex:")):
		enc := out[len("hex:"):]
		dec := make([]byte, hex.DecodedLen(len(enc)))
		n, err := hex.Decode(dec, enc)
		if err != nil {
			zeroBytes(dec)
			return nil, fmt.Errorf("%w: invalid hex output", ErrPasswordCommand)
		}
		return dec[:n], nil
	}
	return append([]byte(nil), out...), nil
}

// checkHelperBinary requires an absolute path to an executable that is not
// group or world writable.
func checkHelperBinary(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%w: %q must be an absolute path", ErrPasswordCommand, path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPasswordCommand, err)
	}
	perm := info.Mode().Perm()
	switch {
	case info.IsDir():
		return fmt.Errorf("%w: %s is a directory", ErrPasswordCommand, path)
	case perm&0111 == 0:
		return fmt.Errorf("%w: %s is not executable (mode %04o)", ErrPasswordCommand, path, perm)
	case perm&0022 != 0:
		return fmt.Errorf("%w: %s is group or world writable (mode %04o)", ErrPasswordCommand, path, perm)
	}
	return nil
}

func helperEnv(declared map[string]string) []string {
	env := make([]string, 0, len(declared))
	for k, v := range declared {
		env = append(env, k+"="+v)
	}
	return env
}

func zeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}

// cappedWriter drops everything past its limit but reports full writes, so
// the helper never sees a short write.
type cappedWriter struct {
	w         io.Writer
	remaining int
	overflow  bool
}

func (c *cappedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n > c.remaining {
		p = p[:c.remaining]
		c.overflow = true
	}
	if len(p) > 0 {
		written, err := c.w.Write(p)
		c.remaining -= written
		if err != nil {
			return written, err
		}
	}
	return n, nil
}
