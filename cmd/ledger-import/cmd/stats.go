package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nottinghack/ledger-import/pkg/config"
	"github.com/nottinghack/ledger-import/pkg/db"
	"github.com/nottinghack/ledger-import/pkg/pathutil"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display import statistics",
	Long: `Display statistics about imported transactions.

Shows, per source:
- Total number of imported entries
- Last import timestamp

Example:
  ledger-import stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	slog.Info("Loading configuration")

	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"ledger", "root"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	pathResolver := pathutil.New(pathutil.Config{
		LedgerRoot:   cfg.Ledger.Root,
		DatabasePath: cfg.Ledger.DBPath,
		AccountsPath: cfg.Ledger.AccountsFile,
	})

	dbPath := pathResolver.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)

	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	history := db.NewImportHistory(conn)

	stats, err := history.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Import Statistics ===")
	for _, s := range stats {
		fmt.Printf("%-10s %6d entries", s.Source, s.Total)
		if s.LastImport.Valid {
			fmt.Printf("   last import: %s", s.LastImport.String)
		} else {
			fmt.Printf("   last import: (never)")
		}
		fmt.Println()
	}
	fmt.Println()
}
