// Package ledger provides the double-entry transaction model and plain-text
// ledger file operations for imported transactions.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceEpsilon is the tolerance for the double-entry balance check,
// half a minor unit.
var BalanceEpsilon = decimal.New(5, -3)

// Posting represents one account line (debit or credit) within an entry.
type Posting struct {
	Account string
	Amount  decimal.Decimal
	Memo    string
}

// Entry represents a balanced set of postings recorded against a date and
// description. ExternalID carries the source-provided identifier used to
// detect already-imported transactions.
type Entry struct {
	Date        time.Time
	Description string
	ExternalID  string
	Postings    []Posting
}

// Balance returns the signed sum of all posting amounts.
func (e *Entry) Balance() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range e.Postings {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// Balanced reports whether the posting amounts sum to zero within
// BalanceEpsilon.
func (e *Entry) Balanced() bool {
	return e.Balance().Abs().LessThanOrEqual(BalanceEpsilon)
}

// Validate checks that the entry is structurally sound: it carries an
// external identifier, has at least two postings, and satisfies the
// double-entry balance invariant.
func (e *Entry) Validate() error {
	if e.ExternalID == "" {
		return fmt.Errorf("entry %q has no external identifier", e.Description)
	}
	if len(e.Postings) < 2 {
		return fmt.Errorf("entry %s has %d postings, need at least 2", e.ExternalID, len(e.Postings))
	}
	if !e.Balanced() {
		return fmt.Errorf("entry %s does not balance: sum is %s", e.ExternalID, e.Balance())
	}
	return nil
}

// MonthKey returns the YYYY-MM key of the monthly ledger file the entry
// belongs to.
func (e *Entry) MonthKey() string {
	return e.Date.Format("2006-01")
}
