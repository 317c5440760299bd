// Package history records posted transactions in SQLite. The engine
// writes to it best-effort after each committed batch; the stats
// command reads it back.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const schema = `
-- Post history table
-- One row per transaction posted to Lunch Money, keyed by external_id.
CREATE TABLE IF NOT EXISTS post_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id TEXT NOT NULL,          -- Monzo account id
    external_id TEXT NOT NULL,         -- idempotency key sent to Lunch Money
    txn_date TEXT NOT NULL,            -- YYYY-MM-DD
    amount TEXT NOT NULL,              -- major units, decimal string
    asset_id INTEGER NOT NULL,         -- Lunch Money asset id
    classification TEXT NOT NULL,      -- ordinary / internal_transfer / pot_transfer
    posted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(external_id)
);

CREATE INDEX IF NOT EXISTS idx_post_history_account
    ON post_history(account_id);

CREATE INDEX IF NOT EXISTS idx_post_history_date
    ON post_history(txn_date);
`

// DB wraps the SQLite connection for the post history.
type DB struct {
	db *sql.DB
}

// Open opens (and if needed creates) the history database, enabling
// WAL mode, and initializes the schema.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
