// Package cmd provides CLI commands for ledger-import.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nottinghack/ledger-import/pkg/config"
	"github.com/nottinghack/ledger-import/pkg/db"
	"github.com/nottinghack/ledger-import/pkg/ledger"
	"github.com/nottinghack/ledger-import/pkg/mapping"
	"github.com/nottinghack/ledger-import/pkg/pathutil"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledger-import",
	Short: "Import payment-processor transactions into the ledger",
	Long: `ledger-import brings transactions from external payment sources into
the double-entry ledger, without creating duplicate entries on repeated runs.

One subcommand per source:
- stripe: card-gateway balance events, fetched since the last import
- sumup: point-of-sale settlement batches, fetched since the last import
- bankfeed: pre-scraped bank statement lines read from stdin

Deduplication state and per-source cursors live in a SQLite history
database next to the ledger files.

Example:
  ledger-import stripe --since 2024-01-01
  ledger-import sumup --dry-run
  tsbscrape | ledger-import bankfeed
  ledger-import stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(stripeCmd)
	rootCmd.AddCommand(sumupCmd)
	rootCmd.AddCommand(bankfeedCmd)
	rootCmd.AddCommand(statsCmd)
}

// getConfigFile returns the config file path override, if any.
func getConfigFile() string {
	return cfgFile
}

// exitOnError handles fatal errors and exits.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}

// runEnv bundles the collaborators every importer run needs.
type runEnv struct {
	cfg      *config.Config
	mapping  *mapping.Mapping
	conn     *db.Connection
	history  *db.ImportHistory
	accounts *ledger.AccountSet
	repo     *ledger.FileSystemRepository
}

// openEnv loads configuration, the account mapping, the import-history
// database and the ledger account set. Callers must Close() the env.
func openEnv(required ...[]string) *runEnv {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	required = append(required, []string{"ledger", "root"})
	if err := cfg.Validate(required...); err != nil {
		exitOnError(err, "invalid configuration")
	}

	m, err := mapping.Load(cfg.Ledger.MappingFile)
	exitOnError(err, "failed to load account mapping")

	pathResolver := pathutil.New(pathutil.Config{
		LedgerRoot:   cfg.Ledger.Root,
		DatabasePath: cfg.Ledger.DBPath,
		AccountsPath: cfg.Ledger.AccountsFile,
	})

	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)
	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")

	accounts, err := ledger.LoadAccounts(pathResolver.GetAccountsPath())
	if err != nil {
		conn.Close()
		exitOnError(err, "failed to load ledger accounts")
	}

	return &runEnv{
		cfg:      cfg,
		mapping:  m,
		conn:     conn,
		history:  db.NewImportHistory(conn),
		accounts: accounts,
		repo:     ledger.NewFileSystemRepository(pathResolver),
	}
}

// Close releases the env's database connection.
func (e *runEnv) Close() {
	e.conn.Close()
}

// cursorLookback is how far behind the stored cursor each fetch starts, so
// transactions that landed around the previous run are not missed. Dedup
// makes the overlap harmless.
const cursorLookback = 24 * time.Hour

// resolveSince works out the fetch cut-off for a source: an explicit --since
// date wins, otherwise the stored last-run cursor minus the lookback, and the
// epoch start on a first run. The cursor is owned here, not by the clients.
func resolveSince(history *db.ImportHistory, source db.Source, sinceFlag string) (time.Time, error) {
	if sinceFlag != "" {
		t, err := time.Parse("2006-01-02", sinceFlag)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid --since date %q: %w", sinceFlag, err)
		}
		return t, nil
	}

	value, err := history.GetMetadata("last_run:" + string(source))
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}

	lastRun, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored cursor %q for %s: %w", value, source, err)
	}

	return lastRun.Add(-cursorLookback), nil
}

// updateCursor stores the last-run cursor for a source.
func updateCursor(history *db.ImportHistory, source db.Source) {
	key := "last_run:" + string(source)
	if err := history.SetMetadata(key, time.Now().UTC().Format(time.RFC3339)); err != nil {
		slog.Error("Failed to update last-run cursor", "source", source, "error", err)
	}
}
