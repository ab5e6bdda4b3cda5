package importer

import (
	"fmt"
	"io"
	"os"

	"github.com/nottinghack/ledger-import/pkg/db"
	"github.com/nottinghack/ledger-import/pkg/ledger"
)

// CommitStatus is the outcome of committing one entry.
type CommitStatus int

const (
	// Inserted means the entry was persisted to the ledger.
	Inserted CommitStatus = iota
	// SkippedDuplicate means an entry with the same external identifier
	// already exists; the ledger was not modified.
	SkippedDuplicate
	// WouldInsert means a dry run passed every check short of persisting.
	WouldInsert
)

// String returns a human-readable name for the status.
func (s CommitStatus) String() string {
	switch s {
	case Inserted:
		return "inserted"
	case SkippedDuplicate:
		return "skipped-duplicate"
	case WouldInsert:
		return "would-insert"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// History is the subset of import-history operations the committer needs.
type History interface {
	IsImported(source db.Source, externalID string) (bool, error)
	Record(record db.ImportRecord) (bool, error)
	Delete(source db.Source, externalID string) (bool, error)
}

// Files is the subset of ledger file operations the committer needs.
type Files interface {
	AppendEntry(yearMonth, entry string) error
	MonthFilePath(yearMonth string) string
}

// Committer performs the shared commit stage: check for an existing entry
// with the same external identifier, validate the double-entry invariant,
// and persist. One Committer serves one source for one run.
type Committer struct {
	Source   db.Source
	History  History
	Files    Files
	Accounts *ledger.AccountSet
	Currency string

	// DryRun performs every check but skips the final persist, writing the
	// rendered entry to Out instead.
	DryRun bool
	Out    io.Writer
}

// Commit checks and persists a single entry.
//
// An entry is never partially written: the history row is inserted first and
// deleted again if the ledger append fails, so a re-run retries the entry.
// Content differences under an already-imported identifier lose silently;
// the first imported entry wins.
func (c *Committer) Commit(entry ledger.Entry) (CommitStatus, error) {
	for _, posting := range entry.Postings {
		if !c.Accounts.Has(posting.Account) {
			return 0, &AccountNotFoundError{Account: posting.Account, ExternalID: entry.ExternalID}
		}
	}

	if entry.ExternalID == "" {
		return 0, fmt.Errorf("%s: entry %q has no external identifier", c.Source, entry.Description)
	}
	if !entry.Balanced() {
		return 0, &UnbalancedEntryError{ExternalID: entry.ExternalID, Sum: entry.Balance()}
	}

	monthKey := entry.MonthKey()
	formatted := ledger.FormatEntry(entry, c.Currency)

	if c.DryRun {
		imported, err := c.History.IsImported(c.Source, entry.ExternalID)
		if err != nil {
			return 0, fmt.Errorf("%s: failed to check history for %s: %w", c.Source, entry.ExternalID, err)
		}
		if imported {
			return SkippedDuplicate, nil
		}

		out := c.Out
		if out == nil {
			out = os.Stdout
		}
		fmt.Fprintf(out, "[DRY RUN] Would append to %s:\n%s", c.Files.MonthFilePath(monthKey), formatted)
		return WouldInsert, nil
	}

	inserted, err := c.History.Record(db.ImportRecord{
		Source:     c.Source,
		ExternalID: entry.ExternalID,
		EntryDate:  entry.Date.Format("2006-01-02"),
		Amount:     primaryAmount(entry),
		LedgerFile: c.Files.MonthFilePath(monthKey),
	})
	if err != nil {
		return 0, fmt.Errorf("%s: failed to record %s in history: %w", c.Source, entry.ExternalID, err)
	}
	if !inserted {
		return SkippedDuplicate, nil
	}

	if err := c.Files.AppendEntry(monthKey, formatted); err != nil {
		// Roll the history row back so the entry is retried next run.
		if _, delErr := c.History.Delete(c.Source, entry.ExternalID); delErr != nil {
			return 0, fmt.Errorf("%s: failed to append %s to ledger: %v (history rollback also failed: %w)",
				c.Source, entry.ExternalID, err, delErr)
		}
		return 0, fmt.Errorf("%s: failed to append %s to ledger: %w", c.Source, entry.ExternalID, err)
	}

	return Inserted, nil
}

// primaryAmount picks the amount recorded in the history table: the first
// posting's amount, which by mapping convention is the holding-account line.
func primaryAmount(entry ledger.Entry) string {
	if len(entry.Postings) == 0 {
		return "0"
	}
	return entry.Postings[0].Amount.StringFixed(2)
}
