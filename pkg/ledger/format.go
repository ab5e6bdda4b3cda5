package ledger

import (
	"fmt"
	"strings"
)

// accountColumn is the column amounts are aligned to in formatted entries.
const accountColumn = 60

// FormatEntry formats an entry as Beancount-style plain text. The external
// identifier is written as an external-id metadata line so the ledger file
// itself records the deduplication key.
func FormatEntry(e Entry, currency string) string {
	var sb strings.Builder

	// Transaction header
	sb.WriteString(e.Date.Format("2006-01-02"))
	sb.WriteString(fmt.Sprintf(" * %q\n", e.Description))
	sb.WriteString(fmt.Sprintf("  external-id: %q\n", e.ExternalID))

	// Postings
	for _, posting := range e.Postings {
		sb.WriteString("  ")
		sb.WriteString(posting.Account)

		amount := posting.Amount.StringFixed(2)
		spaces := accountColumn - len(posting.Account) - len(amount)
		if spaces < 1 {
			spaces = 1
		}
		sb.WriteString(strings.Repeat(" ", spaces))
		sb.WriteString(amount)
		sb.WriteString(" ")
		sb.WriteString(currency)

		if posting.Memo != "" {
			sb.WriteString(fmt.Sprintf(" ; %s", posting.Memo))
		}

		sb.WriteString("\n")
	}

	return sb.String()
}
