// Package pathutil provides centralized path management for ledger files and
// the import-history database.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathResolver manages paths for ledger files, the accounts file, and the
// import-history database.
type PathResolver struct {
	ledgerRoot   string
	databasePath string
	accountsPath string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// LedgerRoot is the root directory for all ledger files.
	LedgerRoot string
	// DatabasePath is the path to the SQLite database file for import history.
	DatabasePath string
	// AccountsPath is the path to the account declarations file.
	AccountsPath string
}

// New creates a new PathResolver with the given configuration.
// If DatabasePath is empty, it defaults to {LedgerRoot}/.import/history.db.
// If AccountsPath is empty, it defaults to {LedgerRoot}/accounts.beancount.
func New(config Config) *PathResolver {
	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.LedgerRoot, ".import", "history.db")
	}

	accountsPath := config.AccountsPath
	if accountsPath == "" {
		accountsPath = filepath.Join(config.LedgerRoot, "accounts.beancount")
	}

	return &PathResolver{
		ledgerRoot:   config.LedgerRoot,
		databasePath: dbPath,
		accountsPath: accountsPath,
	}
}

// GetLedgerRoot returns the ledger root directory.
func (p *PathResolver) GetLedgerRoot() string {
	return p.ledgerRoot
}

// GetDatabasePath returns the database file path.
func (p *PathResolver) GetDatabasePath() string {
	return p.databasePath
}

// GetAccountsPath returns the account declarations file path.
func (p *PathResolver) GetAccountsPath() string {
	return p.accountsPath
}

// GetYearDir returns the directory path for a year.
// Example: ~/accounting/ledger/2024
func (p *PathResolver) GetYearDir(year string) string {
	return filepath.Join(p.ledgerRoot, year)
}

// GetMonthFilePath returns the file path for a month.
// yearMonth should be in YYYY-MM format.
// Example: ~/accounting/ledger/2024/2024-01.beancount
func (p *PathResolver) GetMonthFilePath(yearMonth string) (string, error) {
	parts := strings.Split(yearMonth, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return "", fmt.Errorf("invalid year-month format: %s. Expected YYYY-MM", yearMonth)
	}

	year := parts[0]
	yearDir := p.GetYearDir(year)
	filename := fmt.Sprintf("%s.beancount", yearMonth)

	return filepath.Join(yearDir, filename), nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	dir := filepath.Dir(filePath)
	return p.EnsureDir(dir)
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
