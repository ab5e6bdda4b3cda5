// Package bankfeed imports pre-scraped bank-statement lines into the ledger.
// Unlike the API importers it does not poll anything: the external scraper
// pushes batches of structured lines, either through ImportBatch directly or
// as one JSON object per line on the CLI's stdin.
package bankfeed

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nottinghack/ledger-import/pkg/importer"
	"github.com/nottinghack/ledger-import/pkg/ledger"
	"github.com/nottinghack/ledger-import/pkg/mapping"
)

// StatementLine is one parsed bank-statement row handed over by the scraper.
// Amount is signed in major units; positive means money into the account.
type StatementLine struct {
	Date        string          `json:"date"` // YYYY-MM-DD
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// ExternalID derives the deduplication key for a statement line. The feed
// provides no native transaction ID, so the key is a SHA-256 of the
// date/description/amount composite. Two genuinely distinct transactions
// with identical date, amount and description are indistinguishable and
// dedupe to one entry; that is a documented limitation of the feed, not
// something this importer tries to fix.
func (l StatementLine) ExternalID() string {
	composite := fmt.Sprintf("%s:%s;%s", l.Date, l.Description, l.Amount.StringFixed(2))
	sum := sha256.Sum256([]byte(composite))
	return hex.EncodeToString(sum[:])
}

// Importer maps statement lines to ledger entries and commits them.
type Importer struct {
	Accounts mapping.BankAccounts
	Commit   *importer.Committer
}

// New creates a bank-feed importer.
func New(accounts mapping.BankAccounts, committer *importer.Committer) *Importer {
	return &Importer{Accounts: accounts, Commit: committer}
}

// ImportBatch imports a batch of statement lines and returns the run
// summary the scraper receives back. A bad line is logged and counted as
// failed; the rest of the batch still commits.
func (im *Importer) ImportBatch(lines []StatementLine) importer.RunSummary {
	summary := importer.RunSummary{Fetched: len(lines)}

	for _, line := range lines {
		entry, matched, err := im.convert(line)
		if err != nil {
			slog.Error("Skipping statement line", "description", line.Description, "error", err)
			summary.Failed++
			continue
		}

		status, err := im.Commit.Commit(*entry)
		if err != nil {
			slog.Error("Failed to commit statement line",
				"external_id", entry.ExternalID, "error", err)
			summary.Failed++
			continue
		}

		if !matched && status != importer.SkippedDuplicate {
			// Still imported, but needs a human eye.
			slog.Warn("Unmatched statement line flagged for review",
				"description", line.Description,
				"amount", line.Amount.StringFixed(2),
				"account", entry.Postings[1].Account)
			summary.Flagged++
		}

		summary.Count(status)
		slog.Info("Committed statement line",
			"external_id", entry.ExternalID, "status", status.String())
	}

	return summary
}

// convert maps one statement line to a ledger entry. The boolean reports
// whether a classification rule matched.
func (im *Importer) convert(line StatementLine) (*ledger.Entry, bool, error) {
	date, err := time.Parse("2006-01-02", line.Date)
	if err != nil {
		return nil, false, fmt.Errorf("unparseable statement date %q: %w", line.Date, err)
	}

	target, matched := im.Accounts.Classify(line.Description, line.Amount)

	return &ledger.Entry{
		Date:        date,
		Description: line.Description,
		ExternalID:  line.ExternalID(),
		Postings:    im.postings(line.Amount, target),
	}, matched, nil
}

// postings builds the posting list for a classified statement line. Most
// lines post two ways, asset against target; rent and membership lines can
// split further.
func (im *Importer) postings(amount decimal.Decimal, target string) []ledger.Posting {
	asset := ledger.Posting{Account: im.Accounts.Asset, Amount: amount}

	rent := im.Accounts.RentSplit
	if rent.Enabled() && target == rent.Account {
		combined := rent.Share.Add(rent.SecondShare.Decimal)
		// A payment above the combined rent covers both units plus the
		// electricity recharge.
		if amount.Neg().GreaterThan(combined) {
			return []ledger.Posting{
				asset,
				{Account: rent.Account, Amount: rent.Share.Decimal},
				{Account: rent.SecondAccount, Amount: rent.SecondShare.Decimal},
				{Account: rent.ExcessAccount, Amount: amount.Neg().Sub(combined)},
			}
		}
	}

	membership := im.Accounts.Membership
	if membership.Enabled() && target == membership.Account {
		minimum := membership.AuditMinimum.Decimal
		switch {
		case amount.LessThan(minimum):
			// Payments below the audit minimum count as donations.
			return []ledger.Posting{
				asset,
				{Account: membership.DonationsAccount, Amount: amount.Neg()},
			}
		case amount.GreaterThan(minimum):
			// Membership is capped at the minimum; the excess is a donation.
			return []ledger.Posting{
				asset,
				{Account: membership.Account, Amount: minimum.Neg()},
				{Account: membership.DonationsAccount, Amount: amount.Sub(minimum).Neg()},
			}
		}
	}

	return []ledger.Posting{
		asset,
		{Account: target, Amount: amount.Neg()},
	}
}

// ReadLines reads statement lines from r, one JSON object per line, the
// contract the scraper uses when piping into the CLI.
func ReadLines(r io.Reader) ([]StatementLine, error) {
	var lines []StatementLine

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var line StatementLine
		if err := json.Unmarshal(raw, &line); err != nil {
			return nil, fmt.Errorf("invalid statement JSON on line %d: %w", lineNo, err)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read statement input: %w", err)
	}

	return lines, nil
}
