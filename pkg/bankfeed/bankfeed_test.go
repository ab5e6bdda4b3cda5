package bankfeed

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/nottinghack/ledger-import/pkg/db"
	"github.com/nottinghack/ledger-import/pkg/importer"
	"github.com/nottinghack/ledger-import/pkg/ledger"
	"github.com/nottinghack/ledger-import/pkg/mapping"
)

var testAccounts = mapping.BankAccounts{
	Asset:       "Assets:Current Assets:TSB",
	MiscExpense: "Expenses:Miscellaneous",
	MiscIncome:  "Income:Miscellaneous",
	Rules: []mapping.Rule{
		{Pattern: "DONATION-REF", Account: "Income:Donations"},
		{Pattern: "STRIPE PAYMENTS UK", Account: "Assets:Current Assets:Stripe"},
	},
}

// fakeHistory is an in-memory History.
type fakeHistory struct {
	records map[string]db.ImportRecord
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{records: make(map[string]db.ImportRecord)}
}

func (h *fakeHistory) key(source db.Source, externalID string) string {
	return string(source) + "/" + externalID
}

func (h *fakeHistory) IsImported(source db.Source, externalID string) (bool, error) {
	_, ok := h.records[h.key(source, externalID)]
	return ok, nil
}

func (h *fakeHistory) Record(record db.ImportRecord) (bool, error) {
	k := h.key(record.Source, record.ExternalID)
	if _, ok := h.records[k]; ok {
		return false, nil
	}
	h.records[k] = record
	return true, nil
}

func (h *fakeHistory) Delete(source db.Source, externalID string) (bool, error) {
	k := h.key(source, externalID)
	if _, ok := h.records[k]; !ok {
		return false, nil
	}
	delete(h.records, k)
	return true, nil
}

// fakeFiles collects appended entries per month.
type fakeFiles struct {
	appended map[string][]string
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{appended: make(map[string][]string)}
}

func (f *fakeFiles) AppendEntry(yearMonth, entry string) error {
	f.appended[yearMonth] = append(f.appended[yearMonth], entry)
	return nil
}

func (f *fakeFiles) MonthFilePath(yearMonth string) string {
	return yearMonth + ".beancount"
}

func newTestImporter(history *fakeHistory, files *fakeFiles) *Importer {
	accounts := ledger.NewAccountSet(
		"Assets:Current Assets:TSB",
		"Assets:Current Assets:Stripe",
		"Expenses:Miscellaneous",
		"Income:Miscellaneous",
		"Income:Donations",
	)
	committer := &importer.Committer{
		Source:   db.SourceBankFeed,
		History:  history,
		Files:    files,
		Accounts: accounts,
		Currency: "GBP",
	}
	return New(testAccounts, committer)
}

func TestImportBatchMatchedRule(t *testing.T) {
	history := newFakeHistory()
	files := newFakeFiles()
	im := newTestImporter(history, files)

	line := StatementLine{
		Date:        "2024-03-14",
		Amount:      amt("20.00"),
		Description: "DONATION-REF123",
	}

	summary := im.ImportBatch([]StatementLine{line})

	if summary.Inserted != 1 || summary.Failed != 0 || summary.Flagged != 0 {
		t.Fatalf("summary = %s", summary.String())
	}

	entries := files.appended["2024-03"]
	if len(entries) != 1 {
		t.Fatalf("appended %d entries to 2024-03", len(entries))
	}
	if !strings.Contains(entries[0], "Income:Donations") {
		t.Errorf("entry credits wrong account:\n%s", entries[0])
	}
	if !strings.Contains(entries[0], "Assets:Current Assets:TSB") {
		t.Errorf("entry missing asset posting:\n%s", entries[0])
	}

	imported, err := history.IsImported(db.SourceBankFeed, line.ExternalID())
	if err != nil || !imported {
		t.Errorf("IsImported = %v, %v", imported, err)
	}
}

func TestImportBatchUnmatchedFlagged(t *testing.T) {
	tests := []struct {
		name    string
		line    StatementLine
		account string
	}{
		{
			name:    "unmatched credit",
			line:    StatementLine{Date: "2024-03-14", Amount: amt("15.00"), Description: "UNKNOWN PAYER"},
			account: "Income:Miscellaneous",
		},
		{
			name:    "unmatched debit",
			line:    StatementLine{Date: "2024-03-15", Amount: amt("-42.00"), Description: "CARD PURCHASE 9921"},
			account: "Expenses:Miscellaneous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			history := newFakeHistory()
			files := newFakeFiles()
			im := newTestImporter(history, files)

			summary := im.ImportBatch([]StatementLine{tt.line})

			if summary.Inserted != 1 || summary.Flagged != 1 {
				t.Fatalf("summary = %s", summary.String())
			}
			entries := files.appended[tt.line.Date[:7]]
			if len(entries) != 1 || !strings.Contains(entries[0], tt.account) {
				t.Errorf("entry not booked to %s: %v", tt.account, entries)
			}
		})
	}
}

func splitAccounts() mapping.BankAccounts {
	accounts := testAccounts
	accounts.Rules = append(accounts.Rules,
		mapping.Rule{Pattern: "BIZSPACE", Account: "Expenses:Bizspace Rent:F6"},
		mapping.Rule{Pattern: "MEMBERSHIP", Account: "Income:Membership Payments"},
	)
	accounts.RentSplit = mapping.RentSplit{
		Account:       "Expenses:Bizspace Rent:F6",
		Share:         mappingAmount("630.00"),
		SecondAccount: "Expenses:Bizspace Rent:G4,5,6",
		SecondShare:   mappingAmount("350.00"),
		ExcessAccount: "Expenses:Electricity",
	}
	accounts.Membership = mapping.MembershipSplit{
		Account:          "Income:Membership Payments",
		AuditMinimum:     mappingAmount("15.00"),
		DonationsAccount: "Income:Donations",
	}
	return accounts
}

func mappingAmount(s string) mapping.Amount {
	return mapping.Amount{Decimal: amt(s)}
}

func TestConvertRentSplit(t *testing.T) {
	im := New(splitAccounts(), nil)

	tests := []struct {
		name   string
		amount string
		want   []struct {
			account string
			amount  string
		}
	}{
		{
			name:   "combined payment pre-split",
			amount: "-1200.00",
			want: []struct {
				account string
				amount  string
			}{
				{"Assets:Current Assets:TSB", "-1200.00"},
				{"Expenses:Bizspace Rent:F6", "630.00"},
				{"Expenses:Bizspace Rent:G4,5,6", "350.00"},
				{"Expenses:Electricity", "220.00"},
			},
		},
		{
			name:   "exact combined rent posts normally",
			amount: "-980.00",
			want: []struct {
				account string
				amount  string
			}{
				{"Assets:Current Assets:TSB", "-980.00"},
				{"Expenses:Bizspace Rent:F6", "980.00"},
			},
		},
		{
			name:   "single unit rent posts normally",
			amount: "-630.00",
			want: []struct {
				account string
				amount  string
			}{
				{"Assets:Current Assets:TSB", "-630.00"},
				{"Expenses:Bizspace Rent:F6", "630.00"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := StatementLine{Date: "2024-03-01", Amount: amt(tt.amount), Description: "BIZSPACE RENT"}

			entry, matched, err := im.convert(line)
			if err != nil {
				t.Fatalf("convert() error: %v", err)
			}
			if !matched {
				t.Error("rent line did not match a rule")
			}
			if len(entry.Postings) != len(tt.want) {
				t.Fatalf("postings = %d, want %d", len(entry.Postings), len(tt.want))
			}
			for i, w := range tt.want {
				if entry.Postings[i].Account != w.account || !entry.Postings[i].Amount.Equal(amt(w.amount)) {
					t.Errorf("posting %d = %s %s, want %s %s",
						i, entry.Postings[i].Account, entry.Postings[i].Amount, w.account, w.amount)
				}
			}
			if !entry.Balanced() {
				t.Errorf("rent entry does not balance: %s", entry.Balance())
			}
		})
	}
}

func TestConvertMembershipAuditMinimum(t *testing.T) {
	im := New(splitAccounts(), nil)

	tests := []struct {
		name   string
		amount string
		want   []struct {
			account string
			amount  string
		}
	}{
		{
			name:   "below minimum counts as donation",
			amount: "10.00",
			want: []struct {
				account string
				amount  string
			}{
				{"Assets:Current Assets:TSB", "10.00"},
				{"Income:Donations", "-10.00"},
			},
		},
		{
			name:   "at minimum posts normally",
			amount: "15.00",
			want: []struct {
				account string
				amount  string
			}{
				{"Assets:Current Assets:TSB", "15.00"},
				{"Income:Membership Payments", "-15.00"},
			},
		},
		{
			name:   "above minimum capped with excess to donations",
			amount: "25.00",
			want: []struct {
				account string
				amount  string
			}{
				{"Assets:Current Assets:TSB", "25.00"},
				{"Income:Membership Payments", "-15.00"},
				{"Income:Donations", "-10.00"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := StatementLine{Date: "2024-03-01", Amount: amt(tt.amount), Description: "MEMBERSHIP J SMITH"}

			entry, _, err := im.convert(line)
			if err != nil {
				t.Fatalf("convert() error: %v", err)
			}
			if len(entry.Postings) != len(tt.want) {
				t.Fatalf("postings = %d, want %d", len(entry.Postings), len(tt.want))
			}
			for i, w := range tt.want {
				if entry.Postings[i].Account != w.account || !entry.Postings[i].Amount.Equal(amt(w.amount)) {
					t.Errorf("posting %d = %s %s, want %s %s",
						i, entry.Postings[i].Account, entry.Postings[i].Amount, w.account, w.amount)
				}
			}
			if !entry.Balanced() {
				t.Errorf("membership entry does not balance: %s", entry.Balance())
			}
		})
	}
}

func TestImportBatchDuplicateNotReflagged(t *testing.T) {
	history := newFakeHistory()
	files := newFakeFiles()
	im := newTestImporter(history, files)

	line := StatementLine{Date: "2024-03-14", Amount: amt("15.00"), Description: "UNKNOWN PAYER"}

	first := im.ImportBatch([]StatementLine{line})
	second := im.ImportBatch([]StatementLine{line})

	if first.Flagged != 1 {
		t.Errorf("first run flagged = %d", first.Flagged)
	}
	if second.Skipped != 1 || second.Flagged != 0 {
		t.Errorf("second run summary = %s, expected duplicate without re-flag", second.String())
	}
	if len(files.appended["2024-03"]) != 1 {
		t.Errorf("appended %d entries, expected 1", len(files.appended["2024-03"]))
	}
}

func TestImportBatchBadDateContinues(t *testing.T) {
	history := newFakeHistory()
	files := newFakeFiles()
	im := newTestImporter(history, files)

	lines := []StatementLine{
		{Date: "14/03/2024", Amount: amt("5.00"), Description: "BAD DATE"},
		{Date: "2024-03-14", Amount: amt("20.00"), Description: "DONATION-REF123"},
	}

	summary := im.ImportBatch(lines)

	if summary.Fetched != 2 || summary.Failed != 1 || summary.Inserted != 1 {
		t.Fatalf("summary = %s", summary.String())
	}
	if summary.Clean() {
		t.Error("Clean() = true on a run with a failed line")
	}
}

func TestExternalID(t *testing.T) {
	base := StatementLine{Date: "2024-03-14", Amount: amt("20.00"), Description: "DONATION-REF123"}

	if got, again := base.ExternalID(), base.ExternalID(); got != again {
		t.Errorf("ExternalID not deterministic: %q vs %q", got, again)
	}
	if len(base.ExternalID()) != 64 {
		t.Errorf("ExternalID length = %d, expected hex SHA-256", len(base.ExternalID()))
	}

	changed := base
	changed.Amount = amt("20.01")
	if changed.ExternalID() == base.ExternalID() {
		t.Error("amount change did not change the external ID")
	}

	// StringFixed normalisation: 20 and 20.00 are the same transaction.
	rescaled := base
	rescaled.Amount = decimal.NewFromInt(20)
	if rescaled.ExternalID() != base.ExternalID() {
		t.Error("equal amounts at different scales produced different external IDs")
	}
}

func TestReadLines(t *testing.T) {
	input := `{"date": "2024-03-14", "amount": "20.00", "description": "DONATION-REF123"}

{"date": "2024-03-15", "amount": "-42.00", "description": "CARD PURCHASE 9921"}
`

	lines, err := ReadLines(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadLines() error: %v", err)
	}

	if len(lines) != 2 {
		t.Fatalf("got %d lines, expected 2 with blank line skipped", len(lines))
	}
	if lines[0].Description != "DONATION-REF123" || !lines[0].Amount.Equal(amt("20.00")) {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if !lines[1].Amount.Equal(amt("-42.00")) {
		t.Errorf("line 1 = %+v", lines[1])
	}
}

func TestReadLinesInvalidJSON(t *testing.T) {
	_, err := ReadLines(strings.NewReader(`{"date": "2024-03-14"`))
	if err == nil {
		t.Fatal("ReadLines() accepted truncated JSON")
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error does not name the offending line: %v", err)
	}
}

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
