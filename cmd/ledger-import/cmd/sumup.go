package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nottinghack/ledger-import/pkg/db"
	"github.com/nottinghack/ledger-import/pkg/importer"
	"github.com/nottinghack/ledger-import/pkg/sumup"
)

var (
	sumupSince  string
	sumupDryRun bool
)

// sumupCmd represents the sumup command.
var sumupCmd = &cobra.Command{
	Use:   "sumup",
	Short: "Import point-of-sale settlement batches",
	Long: `Import settlement batches from the POS service into the ledger.

Each batch becomes one entry: the net deposit into the holding account,
the aggregated batch fee, and the gross income. Batches whose amounts do
not satisfy gross = net + fee are rejected as data errors.

An expired access token is exchanged for a new pair using the refresh
token exactly once; a second authorization failure ends the run.

Example:
  ledger-import sumup
  ledger-import sumup --since 2024-01-01 --dry-run`,
	Run: runSumUp,
}

func init() {
	sumupCmd.Flags().StringVar(&sumupSince, "since", "", "Fetch cut-off (YYYY-MM-DD); default is the last import")
	sumupCmd.Flags().BoolVar(&sumupDryRun, "dry-run", false, "Check and print entries without persisting")
}

func runSumUp(cmd *cobra.Command, args []string) {
	slog.Info("Starting POS import", "since", sumupSince, "dry_run", sumupDryRun)

	env := openEnv(
		[]string{"sumup", "clientId"},
		[]string{"sumup", "clientSecret"},
		[]string{"sumup", "tokenPath"},
	)
	defer env.Close()

	if err := env.mapping.SumUp.Validate("sumup"); err != nil {
		exitOnError(err, "invalid account mapping")
	}

	since, err := resolveSince(env.history, db.SourceSumUp, sumupSince)
	exitOnError(err, "failed to resolve fetch cut-off")

	client, err := sumup.NewClient(sumup.ClientConfig{
		APIURL:       env.cfg.SumUp.APIURL,
		ClientID:     env.cfg.SumUp.ClientID,
		ClientSecret: env.cfg.SumUp.ClientSecret,
		TokenStore:   sumup.NewTokenStore(env.cfg.SumUp.TokenPath),
		Timeout:      30 * time.Second,
	})
	exitOnError(err, "failed to initialize POS client")

	slog.Info("Fetching settlements", "since", since.Format(time.RFC3339))
	settlements, err := client.ListSettlements(since)
	exitOnError(err, "failed to fetch settlements")
	slog.Info("Fetched settlements", "count", len(settlements))

	converter := sumup.NewConverter(env.mapping.SumUp)
	committer := &importer.Committer{
		Source:   db.SourceSumUp,
		History:  env.history,
		Files:    env.repo,
		Accounts: env.accounts,
		Currency: env.cfg.Ledger.Currency,
		DryRun:   sumupDryRun,
	}

	summary := importer.RunSummary{Fetched: len(settlements)}
	for _, settlement := range settlements {
		entry, err := converter.Convert(settlement)
		if err != nil {
			// Inconsistent batch data: skip that batch, keep the run going.
			var inconsistent *importer.MappingInconsistencyError
			if errors.As(err, &inconsistent) {
				slog.Error("Skipping inconsistent settlement", "batch_id", settlement.ID, "error", err)
				summary.Failed++
				continue
			}
			exitOnError(err, "failed to map settlement")
		}

		status, err := committer.Commit(*entry)
		if err != nil {
			var unbalanced *importer.UnbalancedEntryError
			if errors.As(err, &unbalanced) {
				slog.Error("Skipping unbalanced entry", "batch_id", settlement.ID, "error", err)
				summary.Failed++
				continue
			}
			exitOnError(err, "failed to commit entry")
		}

		summary.Count(status)
		slog.Info("Committed settlement", "batch_id", settlement.ID, "status", status.String())
	}

	fmt.Printf("sumup import: %s\n", summary.String())

	if !sumupDryRun && summary.Clean() {
		updateCursor(env.history, db.SourceSumUp)
	}
	if !summary.Clean() {
		os.Exit(1)
	}
}
