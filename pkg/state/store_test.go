package state

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "last_sync.json"))
	cursors, err := store.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(cursors) != 0 {
		t.Errorf("expected empty mapping, got %v", cursors)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "data", "last_sync.json"))

	want := map[string]string{
		"acc_personal": "2025-01-10T12:30:00Z",
		"acc_joint":    "2025-01-09T08:00:00Z",
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Load returned %d cursors, expected %d", len(got), len(want))
	}
	for account, cursor := range want {
		if got[account] != cursor {
			t.Errorf("cursor[%s] = %q, expected %q", account, got[account], cursor)
		}
	}
}

func TestSetMergesExistingCursors(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "last_sync.json"))

	if err := store.Set("acc_personal", "2025-01-10T12:30:00Z"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("acc_joint", "2025-01-11T09:00:00Z"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("acc_personal", "2025-01-12T10:00:00Z"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cursors, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cursors["acc_personal"] != "2025-01-12T10:00:00Z" {
		t.Errorf("acc_personal = %q", cursors["acc_personal"])
	}
	if cursors["acc_joint"] != "2025-01-11T09:00:00Z" {
		t.Errorf("acc_joint cursor lost on unrelated Set: %q", cursors["acc_joint"])
	}
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_sync.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewStore(path).Load()
	var corrupt *CorruptError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Load = %v, expected CorruptError", err)
	}
	if corrupt.Path != path {
		t.Errorf("CorruptError.Path = %q, expected %q", corrupt.Path, path)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "last_sync.json"))
	if err := store.Save(map[string]string{"acc_personal": "2025-01-10T12:30:00Z"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "last_sync.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contains %v, expected only last_sync.json", names)
	}
}

func TestEffectiveSince(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	cursors := map[string]string{"acc_personal": "2025-01-10T12:30:00Z"}

	tests := []struct {
		name         string
		accountID    string
		overrideDays int
		lookbackDays int
		expected     string
	}{
		{"stored cursor wins", "acc_personal", 0, 7, "2025-01-10T12:30:00Z"},
		{"override beats cursor", "acc_personal", 30, 7, "2024-12-16T12:00:00Z"},
		{"no cursor falls back to lookback", "acc_joint", 0, 7, "2025-01-08T12:00:00Z"},
		{"override without cursor", "acc_joint", 2, 7, "2025-01-13T12:00:00Z"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveSince(cursors, tt.accountID, tt.overrideDays, tt.lookbackDays, now)
			if got != tt.expected {
				t.Errorf("EffectiveSince = %q, expected %q", got, tt.expected)
			}
		})
	}
}
