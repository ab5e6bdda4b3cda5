// Package db provides SQLite database management for import history and
// per-source cursor metadata.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Import history table
-- Tracks which external transactions have been written to the ledger.
-- The external identifier namespace is scoped per source.
CREATE TABLE IF NOT EXISTS import_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,              -- 'stripe', 'sumup' or 'bankfeed'
    external_id TEXT NOT NULL,         -- ID from the source (or derived hash)
    entry_date TEXT NOT NULL,          -- YYYY-MM-DD
    amount TEXT NOT NULL,              -- Primary amount, decimal string
    ledger_file TEXT NOT NULL,         -- Path to the ledger file written to
    imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(source, external_id)
);

CREATE INDEX IF NOT EXISTS idx_import_history_source_id
    ON import_history(source, external_id);

CREATE INDEX IF NOT EXISTS idx_import_history_date
    ON import_history(entry_date);

-- Import metadata table
-- Stores key-value metadata about import runs (e.g. last-run cursors).
CREATE TABLE IF NOT EXISTS import_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
