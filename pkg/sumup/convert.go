package sumup

import (
	"fmt"
	"time"

	"github.com/nottinghack/ledger-import/pkg/db"
	"github.com/nottinghack/ledger-import/pkg/importer"
	"github.com/nottinghack/ledger-import/pkg/ledger"
	"github.com/nottinghack/ledger-import/pkg/mapping"
)

// Converter maps settlement batches to ledger entries.
type Converter struct {
	accounts mapping.SourceAccounts
}

// NewConverter creates a new Converter for the configured account roles.
func NewConverter(accounts mapping.SourceAccounts) *Converter {
	return &Converter{accounts: accounts}
}

// Convert maps one settlement batch to a three-line ledger entry: the net
// deposit into the holding account, the batch fee, and the gross income.
// The amounts must satisfy gross = net + fee exactly; anything else is a
// data error, never silently corrected. The batch ID is the deduplication
// key.
func (c *Converter) Convert(s Settlement) (*ledger.Entry, error) {
	if !s.Gross.Equal(s.Net.Add(s.Fee)) {
		return nil, &importer.MappingInconsistencyError{
			Source:     string(db.SourceSumUp),
			ExternalID: s.ID,
			Reason: fmt.Sprintf("gross %s != net %s + fee %s",
				s.Gross.StringFixed(2), s.Net.StringFixed(2), s.Fee.StringFixed(2)),
		}
	}

	settledAt, err := time.Parse(time.RFC3339, s.SettledAt)
	if err != nil {
		return nil, &importer.MappingInconsistencyError{
			Source:     string(db.SourceSumUp),
			ExternalID: s.ID,
			Reason:     fmt.Sprintf("unparseable settlement time %q", s.SettledAt),
		}
	}

	postings := []ledger.Posting{
		{Account: c.accounts.Holding, Amount: s.Net},
	}
	if !s.Fee.IsZero() {
		postings = append(postings, ledger.Posting{Account: c.accounts.Fees, Amount: s.Fee})
	}
	postings = append(postings, ledger.Posting{Account: c.accounts.Income, Amount: s.Gross.Neg()})

	return &ledger.Entry{
		Date:        settledAt,
		Description: description(s),
		ExternalID:  s.ID,
		Postings:    postings,
	}, nil
}

func description(s Settlement) string {
	if s.Reference != "" {
		return fmt.Sprintf("SumUp settlement %s", s.Reference)
	}
	return fmt.Sprintf("SumUp settlement %s", s.ID)
}
