// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileLogger_RecordAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	ctx := context.Background()
	l.Record(ctx, ActionCreate, "GABC", nil)
	l.Record(ctx, ActionUnlock, "GABC", errors.New("invalid password"))
	l.Record(ctx, ActionUnlock, "GABC", nil)
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("audit log mode = %v, want 0600", info.Mode().Perm())
	}

	all, err := ReadEvents(path, QueryOptions{})
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 events, got %d", len(all))
	}
	if all[0].Action != ActionCreate || !all[0].Success || all[0].ID == "" || all[0].Time.IsZero() {
		t.Errorf("unexpected first event: %+v", all[0])
	}

	failed := false
	unlockFailures, _ := ReadEvents(path, QueryOptions{Action: ActionUnlock, Success: &failed})
	if len(unlockFailures) != 1 || unlockFailures[0].Error != "invalid password" {
		t.Errorf("unexpected unlock failures: %+v", unlockFailures)
	}

	last, _ := ReadEvents(path, QueryOptions{Limit: 1})
	if len(last) != 1 || last[0].Action != ActionUnlock || !last[0].Success {
		t.Errorf("unexpected last event: %+v", last)
	}
}

func TestReadEvents_MissingFile(t *testing.T) {
	events, err := ReadEvents(filepath.Join(t.TempDir(), "none.log"), QueryOptions{})
	if err != nil || events != nil {
		t.Errorf("expected no events and no error, got %v, %v", events, err)
	}
}

func TestFileLogger_NeverWritesSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, _ := NewFileLogger(path)
	l.Record(context.Background(), ActionExport, "GABC", nil)
	_ = l.Close()

	data, _ := os.ReadFile(path)
	line := string(data)
	for _, field := range []string{"password", "secret", "seed"} {
		if strings.Contains(line, field) {
			t.Errorf("audit line contains %q: %s", field, line)
		}
	}
}
