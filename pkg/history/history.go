package history

import (
	"database/sql"
	"fmt"
	"time"
)

// PostRecord is one posted transaction.
type PostRecord struct {
	AccountID      string
	ExternalID     string
	Date           string
	Amount         string
	AssetID        int64
	Classification string
	PostedAt       time.Time
}

// RecordPosted inserts a batch of posted records in one transaction.
// Re-recording an already known external_id refreshes its row instead
// of duplicating it, so retried syncs stay idempotent here too.
func (d *DB) RecordPosted(records []PostRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO post_history (account_id, external_id, txn_date, amount, asset_id, classification)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			txn_date = excluded.txn_date,
			amount = excluded.amount,
			asset_id = excluded.asset_id,
			classification = excluded.classification,
			posted_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.AccountID, r.ExternalID, r.Date, r.Amount, r.AssetID, r.Classification); err != nil {
			return fmt.Errorf("failed to record %s: %w", r.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit history batch: %w", err)
	}
	return nil
}

// Stats summarizes the post history.
type Stats struct {
	TotalPosted  int64
	ByAccount    map[string]int64
	ByClass      map[string]int64
	LastPostedAt sql.NullString
}

// GetStats aggregates the post history.
func (d *DB) GetStats() (*Stats, error) {
	stats := &Stats{
		ByAccount: make(map[string]int64),
		ByClass:   make(map[string]int64),
	}

	row := d.db.QueryRow(`SELECT COUNT(*), MAX(posted_at) FROM post_history`)
	if err := row.Scan(&stats.TotalPosted, &stats.LastPostedAt); err != nil {
		return nil, fmt.Errorf("failed to read totals: %w", err)
	}

	rows, err := d.db.Query(`SELECT account_id, COUNT(*) FROM post_history GROUP BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read per-account counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var account string
		var count int64
		if err := rows.Scan(&account, &count); err != nil {
			return nil, fmt.Errorf("failed to scan account count: %w", err)
		}
		stats.ByAccount[account] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	classRows, err := d.db.Query(`SELECT classification, COUNT(*) FROM post_history GROUP BY classification`)
	if err != nil {
		return nil, fmt.Errorf("failed to read per-class counts: %w", err)
	}
	defer classRows.Close()
	for classRows.Next() {
		var class string
		var count int64
		if err := classRows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("failed to scan class count: %w", err)
		}
		stats.ByClass[class] = count
	}
	return stats, classRows.Err()
}
