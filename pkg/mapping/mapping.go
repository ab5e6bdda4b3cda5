// Package mapping provides the account-role configuration that decides which
// ledger accounts each source's transactions are posted to, plus the
// description-based classification rules for the bank feed.
package mapping

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// SourceAccounts holds the account roles for a payment-processor source.
type SourceAccounts struct {
	// Holding is the asset account for funds in transit at the processor.
	Holding string `yaml:"holding"`
	// Income is the default income account for charges.
	Income string `yaml:"income"`
	// Trading is the income account used when a charge carries a trading
	// classification hint (e.g. snackspace sales). Optional; falls back to
	// Income.
	Trading string `yaml:"trading"`
	// Fees is the expense account for processing fees.
	Fees string `yaml:"fees"`
	// Miscellaneous is the account refunds and unclassifiable amounts go to.
	Miscellaneous string `yaml:"miscellaneous"`
}

// Rule maps a description pattern to a target account. Patterns are matched
// case-insensitively as substrings; the first matching rule wins.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Account string `yaml:"account"`
}

// Amount is a decimal amount in the mapping file, written as a string
// ("630.00").
type Amount struct {
	decimal.Decimal
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *Amount) UnmarshalYAML(value *yaml.Node) error {
	d, err := decimal.NewFromString(value.Value)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", value.Value, err)
	}
	a.Decimal = d
	return nil
}

// RentSplit pre-splits a combined rent payment. A payment classified to
// Account whose magnitude exceeds Share + SecondShare covers two units plus
// the electricity recharge: Share goes to Account, SecondShare to
// SecondAccount, and the remainder to ExcessAccount. Smaller rent payments
// post normally.
type RentSplit struct {
	Account       string `yaml:"account"`
	Share         Amount `yaml:"share"`
	SecondAccount string `yaml:"second_account"`
	SecondShare   Amount `yaml:"second_share"`
	ExcessAccount string `yaml:"excess_account"`
}

// Enabled reports whether the split is configured.
func (r RentSplit) Enabled() bool {
	return r.Account != ""
}

// MembershipSplit applies the membership audit minimum. A payment classified
// to Account below AuditMinimum counts as a donation, not membership; a
// payment above it is capped at the minimum with the excess booked to
// DonationsAccount.
type MembershipSplit struct {
	Account          string `yaml:"account"`
	AuditMinimum     Amount `yaml:"audit_minimum"`
	DonationsAccount string `yaml:"donations_account"`
}

// Enabled reports whether the split is configured.
func (m MembershipSplit) Enabled() bool {
	return m.Account != ""
}

// BankAccounts holds the account roles and classification rules for the
// bank-statement feed.
type BankAccounts struct {
	// Asset is the bank's asset account every statement line touches.
	Asset string `yaml:"asset"`
	// MiscExpense receives unmatched outgoing amounts.
	MiscExpense string `yaml:"misc_expense"`
	// MiscIncome receives unmatched incoming amounts.
	MiscIncome string `yaml:"misc_income"`
	Rules      []Rule `yaml:"rules"`

	// RentSplit and Membership are optional multi-posting splits applied
	// after classification.
	RentSplit  RentSplit       `yaml:"rent_split"`
	Membership MembershipSplit `yaml:"membership"`
}

// Mapping is the complete account-role configuration loaded from YAML.
type Mapping struct {
	Stripe SourceAccounts `yaml:"stripe"`
	SumUp  SourceAccounts `yaml:"sumup"`
	Bank   BankAccounts   `yaml:"bank"`
}

// Load reads a Mapping from a YAML configuration file.
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}

	return &m, nil
}

// Validate checks that all required roles for a source are configured.
// Returns an error naming every missing role.
func (a SourceAccounts) Validate(source string) error {
	var missing []string
	if a.Holding == "" {
		missing = append(missing, "holding")
	}
	if a.Income == "" {
		missing = append(missing, "income")
	}
	if a.Fees == "" {
		missing = append(missing, "fees")
	}
	if a.Miscellaneous == "" {
		missing = append(missing, "miscellaneous")
	}
	if len(missing) > 0 {
		return fmt.Errorf("mapping for %s is missing account roles: %s", source, strings.Join(missing, ", "))
	}
	return nil
}

// IncomeFor returns the income account for a classification hint.
func (a SourceAccounts) IncomeFor(hint string) string {
	if a.Trading != "" && strings.EqualFold(hint, "snackspace") {
		return a.Trading
	}
	return a.Income
}

// Validate checks that all required bank roles are configured and every rule
// is complete.
func (b BankAccounts) Validate() error {
	var missing []string
	if b.Asset == "" {
		missing = append(missing, "asset")
	}
	if b.MiscExpense == "" {
		missing = append(missing, "misc_expense")
	}
	if b.MiscIncome == "" {
		missing = append(missing, "misc_income")
	}
	if len(missing) > 0 {
		return fmt.Errorf("mapping for bank is missing account roles: %s", strings.Join(missing, ", "))
	}
	for i, rule := range b.Rules {
		if rule.Pattern == "" || rule.Account == "" {
			return fmt.Errorf("bank rule %d is incomplete: pattern and account are both required", i)
		}
	}
	if b.RentSplit.Enabled() {
		if b.RentSplit.SecondAccount == "" || b.RentSplit.ExcessAccount == "" {
			return fmt.Errorf("bank rent_split is incomplete: second_account and excess_account are required")
		}
		if !b.RentSplit.Share.IsPositive() || !b.RentSplit.SecondShare.IsPositive() {
			return fmt.Errorf("bank rent_split is incomplete: share and second_share must be positive amounts")
		}
	}
	if b.Membership.Enabled() {
		if b.Membership.DonationsAccount == "" {
			return fmt.Errorf("bank membership is incomplete: donations_account is required")
		}
		if !b.Membership.AuditMinimum.IsPositive() {
			return fmt.Errorf("bank membership is incomplete: audit_minimum must be a positive amount")
		}
	}
	return nil
}

// Classify returns the target account for a statement line. The boolean
// reports whether a configured rule matched; unmatched lines fall back to
// the miscellaneous account for the amount's direction and should be flagged
// for manual review.
func (b BankAccounts) Classify(description string, amount decimal.Decimal) (string, bool) {
	desc := strings.ToLower(description)
	for _, rule := range b.Rules {
		if strings.Contains(desc, strings.ToLower(rule.Pattern)) {
			return rule.Account, true
		}
	}

	if amount.IsNegative() {
		return b.MiscExpense, false
	}
	return b.MiscIncome, false
}
