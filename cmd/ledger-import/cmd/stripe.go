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
	"github.com/nottinghack/ledger-import/pkg/stripe"
)

var (
	stripeSince  string
	stripeDryRun bool
)

// stripeCmd represents the stripe command.
var stripeCmd = &cobra.Command{
	Use:   "stripe",
	Short: "Import card-gateway transactions",
	Long: `Import balance events from the card gateway into the ledger.

This command:
1. Fetches balance events created since the last import (or --since)
2. Maps charges, fees and refunds to balanced ledger entries
3. Skips events whose gateway transaction ID is already imported
4. Appends new entries to the monthly ledger files

Example:
  ledger-import stripe
  ledger-import stripe --since 2024-01-01 --dry-run`,
	Run: runStripe,
}

func init() {
	stripeCmd.Flags().StringVar(&stripeSince, "since", "", "Fetch cut-off (YYYY-MM-DD); default is the last import")
	stripeCmd.Flags().BoolVar(&stripeDryRun, "dry-run", false, "Check and print entries without persisting")
}

func runStripe(cmd *cobra.Command, args []string) {
	slog.Info("Starting card-gateway import", "since", stripeSince, "dry_run", stripeDryRun)

	env := openEnv([]string{"stripe", "apiKey"})
	defer env.Close()

	if err := env.mapping.Stripe.Validate("stripe"); err != nil {
		exitOnError(err, "invalid account mapping")
	}

	since, err := resolveSince(env.history, db.SourceStripe, stripeSince)
	exitOnError(err, "failed to resolve fetch cut-off")

	client := stripe.NewClient(stripe.ClientConfig{
		APIURL:  env.cfg.Stripe.APIURL,
		APIKey:  env.cfg.Stripe.APIKey,
		Timeout: 30 * time.Second,
	})

	slog.Info("Fetching balance events", "since", since.Format(time.RFC3339))
	events, err := client.ListEvents(since)
	exitOnError(err, "failed to fetch balance events")
	slog.Info("Fetched balance events", "count", len(events))

	converter := stripe.NewConverter(env.mapping.Stripe)
	committer := &importer.Committer{
		Source:   db.SourceStripe,
		History:  env.history,
		Files:    env.repo,
		Accounts: env.accounts,
		Currency: env.cfg.Ledger.Currency,
		DryRun:   stripeDryRun,
	}

	summary := importer.RunSummary{Fetched: len(events)}
	for _, event := range events {
		entry, err := converter.Convert(event)
		if err != nil {
			slog.Error("Skipping event", "event_id", event.ID, "error", err)
			summary.Failed++
			continue
		}
		if entry == nil {
			slog.Info("Skipped event", "event_id", event.ID, "type", event.Type)
			continue
		}

		status, err := committer.Commit(*entry)
		if err != nil {
			var unbalanced *importer.UnbalancedEntryError
			if errors.As(err, &unbalanced) {
				slog.Error("Skipping unbalanced entry", "event_id", event.ID, "error", err)
				summary.Failed++
				continue
			}
			exitOnError(err, "failed to commit entry")
		}

		summary.Count(status)
		slog.Info("Committed event", "event_id", event.ID, "status", status.String())
	}

	fmt.Printf("stripe import: %s\n", summary.String())

	if !stripeDryRun && summary.Clean() {
		updateCursor(env.history, db.SourceStripe)
	}
	if !summary.Clean() {
		os.Exit(1)
	}
}
