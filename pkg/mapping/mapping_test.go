package mapping

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

const testMappingYAML = `
stripe:
  holding: "Assets:Current Assets:Stripe"
  income: "Income:Donations"
  trading: "Income:Snackspace"
  fees: "Expenses:Bank Service Charge"
  miscellaneous: "Expenses:Miscellaneous"

sumup:
  holding: "Assets:Current Assets:SumUp"
  income: "Income:Snackspace"
  fees: "Expenses:Bank Service Charge"
  miscellaneous: "Expenses:Miscellaneous"

bank:
  asset: "Assets:Current Assets:TSB Account"
  misc_expense: "Expenses:Miscellaneous"
  misc_income: "Income:Miscellaneous"
  rules:
    - pattern: "DONATION-REF"
      account: "Income:Donations"
    - pattern: "stripe payments uk"
      account: "Assets:Current Assets:Stripe"
  rent_split:
    account: "Expenses:Bizspace Rent:F6"
    share: "630.00"
    second_account: "Expenses:Bizspace Rent:G4,5,6"
    second_share: "350.00"
    excess_account: "Expenses:Electricity"
  membership:
    account: "Income:Membership Payments"
    audit_minimum: "15.00"
    donations_account: "Income:Donations"
`

func loadTestMapping(t *testing.T) *Mapping {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	if err := os.WriteFile(path, []byte(testMappingYAML), 0644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return m
}

func TestLoad(t *testing.T) {
	m := loadTestMapping(t)

	if m.Stripe.Holding != "Assets:Current Assets:Stripe" {
		t.Errorf("stripe holding = %q", m.Stripe.Holding)
	}
	if m.SumUp.Income != "Income:Snackspace" {
		t.Errorf("sumup income = %q", m.SumUp.Income)
	}
	if len(m.Bank.Rules) != 2 {
		t.Errorf("bank rules = %d, expected 2", len(m.Bank.Rules))
	}
	if !m.Bank.RentSplit.Share.Equal(decimal.RequireFromString("630.00")) {
		t.Errorf("rent share = %s", m.Bank.RentSplit.Share)
	}
	if !m.Bank.Membership.AuditMinimum.Equal(decimal.RequireFromString("15.00")) {
		t.Errorf("audit minimum = %s", m.Bank.Membership.AuditMinimum)
	}
}

func TestLoadBadAmount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	content := "bank:\n  membership:\n    account: \"Income:Membership Payments\"\n    audit_minimum: \"fifteen\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted a non-numeric amount")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() on missing file returned no error")
	}
}

func TestSourceAccountsValidate(t *testing.T) {
	m := loadTestMapping(t)

	if err := m.Stripe.Validate("stripe"); err != nil {
		t.Errorf("Validate() on complete mapping: %v", err)
	}

	incomplete := m.SumUp
	incomplete.Holding = ""
	incomplete.Fees = ""
	err := incomplete.Validate("sumup")
	if err == nil {
		t.Fatal("Validate() accepted missing roles")
	}
	for _, role := range []string{"holding", "fees"} {
		if !strings.Contains(err.Error(), role) {
			t.Errorf("Validate() error %q does not name missing role %q", err, role)
		}
	}
}

func TestIncomeFor(t *testing.T) {
	m := loadTestMapping(t)

	tests := []struct {
		name     string
		hint     string
		expected string
	}{
		{"no hint", "", "Income:Donations"},
		{"trading hint", "snackspace", "Income:Snackspace"},
		{"trading hint uppercase", "SNACKSPACE", "Income:Snackspace"},
		{"unknown hint", "membership", "Income:Donations"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Stripe.IncomeFor(tt.hint); got != tt.expected {
				t.Errorf("IncomeFor(%q) = %q, expected %q", tt.hint, got, tt.expected)
			}
		})
	}

	// Without a trading account the hint falls back to the default income.
	noTrading := m.SumUp
	if got := noTrading.IncomeFor("snackspace"); got != "Income:Snackspace" {
		t.Errorf("IncomeFor() without trading account = %q", got)
	}
}

func TestBankClassify(t *testing.T) {
	m := loadTestMapping(t)

	tests := []struct {
		name        string
		description string
		amount      string
		account     string
		matched     bool
	}{
		{"donor reference", "DONATION-REF123 J SMITH", "20.00", "Income:Donations", true},
		{"case-insensitive match", "Stripe Payments UK Ltd STRIPE", "39.04", "Assets:Current Assets:Stripe", true},
		{"unmatched inflow", "UNKNOWN TRANSFER", "15.00", "Income:Miscellaneous", false},
		{"unmatched outflow", "CARD PURCHASE 1234", "-9.99", "Expenses:Miscellaneous", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			if err != nil {
				t.Fatal(err)
			}
			account, matched := m.Bank.Classify(tt.description, amount)
			if account != tt.account || matched != tt.matched {
				t.Errorf("Classify(%q, %s) = (%q, %v), expected (%q, %v)",
					tt.description, tt.amount, account, matched, tt.account, tt.matched)
			}
		})
	}
}

func TestBankValidate(t *testing.T) {
	m := loadTestMapping(t)

	if err := m.Bank.Validate(); err != nil {
		t.Errorf("Validate() on complete bank mapping: %v", err)
	}

	missing := m.Bank
	missing.Asset = ""
	if err := missing.Validate(); err == nil {
		t.Error("Validate() accepted missing asset account")
	}

	badRule := m.Bank
	badRule.Rules = append([]Rule{}, badRule.Rules...)
	badRule.Rules = append(badRule.Rules, Rule{Pattern: "X"})
	if err := badRule.Validate(); err == nil {
		t.Error("Validate() accepted rule without account")
	}

	badRent := m.Bank
	badRent.RentSplit.ExcessAccount = ""
	if err := badRent.Validate(); err == nil {
		t.Error("Validate() accepted rent_split without excess_account")
	}

	badMembership := m.Bank
	badMembership.Membership.AuditMinimum = Amount{}
	if err := badMembership.Validate(); err == nil {
		t.Error("Validate() accepted membership without a positive audit_minimum")
	}
}
