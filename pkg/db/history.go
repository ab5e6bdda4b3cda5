package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Source identifies the external transaction source of an import record.
type Source string

const (
	SourceStripe   Source = "stripe"
	SourceSumUp    Source = "sumup"
	SourceBankFeed Source = "bankfeed"
)

// ImportRecord represents one imported ledger entry in the history table.
type ImportRecord struct {
	ID         int64
	Source     Source
	ExternalID string
	EntryDate  string // YYYY-MM-DD
	Amount     string // Primary amount, decimal string
	LedgerFile string
	ImportedAt time.Time
}

// ImportHistory manages import history operations.
type ImportHistory struct {
	conn *Connection
}

// NewImportHistory creates a new ImportHistory instance.
func NewImportHistory(conn *Connection) *ImportHistory {
	return &ImportHistory{conn: conn}
}

// IsImported checks if an external transaction has already been imported.
func (h *ImportHistory) IsImported(source Source, externalID string) (bool, error) {
	query := `
		SELECT COUNT(*) as count FROM import_history
		WHERE source = ? AND external_id = ?
	`

	var count int
	err := h.conn.QueryRow(query, string(source), externalID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if imported: %w", err)
	}

	return count > 0, nil
}

// Record inserts an import record. The insert ignores conflicts on the
// (source, external_id) uniqueness, so a record that lost the race to a
// concurrent run reports inserted == false instead of an error.
func (h *ImportHistory) Record(record ImportRecord) (bool, error) {
	query := `
		INSERT OR IGNORE INTO import_history (source, external_id, entry_date, amount, ledger_file)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := h.conn.Exec(query,
		string(record.Source),
		record.ExternalID,
		record.EntryDate,
		record.Amount,
		record.LedgerFile,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record import: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// GetRecord retrieves an import record by external identifier.
// Returns nil if no record exists.
func (h *ImportHistory) GetRecord(source Source, externalID string) (*ImportRecord, error) {
	query := `
		SELECT id, source, external_id, entry_date, amount, ledger_file, imported_at
		FROM import_history
		WHERE source = ? AND external_id = ?
	`

	var record ImportRecord
	var sourceStr string

	err := h.conn.QueryRow(query, string(source), externalID).Scan(
		&record.ID,
		&sourceStr,
		&record.ExternalID,
		&record.EntryDate,
		&record.Amount,
		&record.LedgerFile,
		&record.ImportedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import record: %w", err)
	}

	record.Source = Source(sourceStr)
	return &record, nil
}

// Delete deletes an import record.
// Use case: compensate a failed ledger append, or force re-import.
func (h *ImportHistory) Delete(source Source, externalID string) (bool, error) {
	query := `DELETE FROM import_history WHERE source = ? AND external_id = ?`

	result, err := h.conn.Exec(query, string(source), externalID)
	if err != nil {
		return false, fmt.Errorf("failed to delete import record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rows > 0, nil
}

// SourceStats represents import statistics for one source.
type SourceStats struct {
	Source     Source
	Total      int
	LastImport sql.NullString
}

// GetStats retrieves import statistics per source.
func (h *ImportHistory) GetStats() ([]SourceStats, error) {
	var stats []SourceStats

	for _, source := range []Source{SourceStripe, SourceSumUp, SourceBankFeed} {
		var s SourceStats
		s.Source = source

		err := h.conn.QueryRow(
			`SELECT COUNT(*) FROM import_history WHERE source = ?`, string(source),
		).Scan(&s.Total)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s import count: %w", source, err)
		}

		err = h.conn.QueryRow(
			`SELECT MAX(imported_at) FROM import_history WHERE source = ?`, string(source),
		).Scan(&s.LastImport)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to get %s last import time: %w", source, err)
		}

		stats = append(stats, s)
	}

	return stats, nil
}

// GetMetadata retrieves a metadata value.
// Returns empty string if the key does not exist.
func (h *ImportHistory) GetMetadata(key string) (string, error) {
	query := `SELECT value FROM import_metadata WHERE key = ?`

	var value string
	err := h.conn.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (h *ImportHistory) SetMetadata(key, value string) error {
	query := `
		INSERT INTO import_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := h.conn.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
