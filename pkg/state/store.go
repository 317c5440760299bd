// Package state persists per-account sync cursors.
//
// The cursor file is a flat JSON object mapping Monzo account ids to
// the ISO-8601 created timestamp of the newest transaction that was
// part of a successfully acknowledged post for that account.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CorruptError indicates the persisted cursor file exists but does not
// parse as the expected flat account->timestamp object.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("corrupt sync state file %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// Store reads and writes the cursor file.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the cursor mapping. A missing file is not an error and
// yields an empty mapping.
func (s *Store) Load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read sync state: %w", err)
	}

	cursors := map[string]string{}
	if err := json.Unmarshal(data, &cursors); err != nil {
		return nil, &CorruptError{Path: s.path, Err: err}
	}
	return cursors, nil
}

// Save atomically replaces the cursor file with the given mapping. The
// write goes to a temp file in the same directory followed by a rename,
// so a crash mid-write can never leave a torn file behind.
func (s *Store) Save(cursors map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(cursors, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".last_sync-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Set updates the cursor for a single account and persists the merged
// mapping atomically. Existing cursors for other accounts are kept.
func (s *Store) Set(accountID, cursor string) error {
	cursors, err := s.Load()
	if err != nil {
		return err
	}
	cursors[accountID] = cursor
	return s.Save(cursors)
}

// EffectiveSince resolves the fetch-window start for an account from
// an already loaded cursor mapping: an explicit override window for
// this run beats the stored cursor, which beats the default lookback.
// Overrides only affect the returned value and are never persisted.
func EffectiveSince(cursors map[string]string, accountID string, overrideDays, lookbackDays int, now time.Time) string {
	if overrideDays > 0 {
		return daysAgo(now, overrideDays)
	}
	if cursor := cursors[accountID]; cursor != "" {
		return cursor
	}
	return daysAgo(now, lookbackDays)
}

func daysAgo(now time.Time, days int) string {
	return now.UTC().AddDate(0, 0, -days).Format(time.RFC3339)
}
