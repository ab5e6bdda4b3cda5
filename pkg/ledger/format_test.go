package ledger

import (
	"strings"
	"testing"
	"time"
)

func TestFormatEntry(t *testing.T) {
	e := Entry{
		Date:        time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Description: "Stripe: donation",
		ExternalID:  "ch_1",
		Postings: []Posting{
			{Account: "Assets:Current Assets:Stripe", Amount: amt("12.50")},
			{Account: "Income:Donations", Amount: amt("-12.50"), Memo: "donor ref"},
		},
	}

	got := FormatEntry(e, "GBP")
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")

	if len(lines) != 4 {
		t.Fatalf("FormatEntry() produced %d lines, expected 4:\n%s", len(lines), got)
	}
	if lines[0] != `2024-01-05 * "Stripe: donation"` {
		t.Errorf("header line = %q", lines[0])
	}
	if strings.TrimSpace(lines[1]) != `external-id: "ch_1"` {
		t.Errorf("metadata line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "Assets:Current Assets:Stripe") || !strings.Contains(lines[2], "12.50 GBP") {
		t.Errorf("first posting line = %q", lines[2])
	}
	if !strings.Contains(lines[3], "-12.50 GBP ; donor ref") {
		t.Errorf("second posting line = %q", lines[3])
	}
}

func TestFormatEntryAlignment(t *testing.T) {
	e := Entry{
		Date:       time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		ExternalID: "x",
		Postings: []Posting{
			{Account: strings.Repeat("A", 70), Amount: amt("1.00")},
			{Account: "B", Amount: amt("-1.00")},
		},
	}

	got := FormatEntry(e, "GBP")
	// Over-long account names still get at least one separating space.
	if strings.Contains(got, "A1.00") {
		t.Errorf("amount not separated from account: %q", got)
	}
}
