package stripe

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nottinghack/ledger-import/pkg/ledger"
	"github.com/nottinghack/ledger-import/pkg/mapping"
)

// Converter maps gateway balance events to ledger entries.
type Converter struct {
	accounts mapping.SourceAccounts
}

// NewConverter creates a new Converter for the configured account roles.
func NewConverter(accounts mapping.SourceAccounts) *Converter {
	return &Converter{accounts: accounts}
}

// Convert maps one gateway event to a ledger entry. Events that are not
// imported (payouts, which arrive through the bank feed, and unknown types)
// return nil with no error.
//
// The gateway's own transaction ID is the deduplication key, used verbatim.
func (c *Converter) Convert(event Event) (*ledger.Entry, error) {
	switch event.Type {
	case EventCharge:
		gross := minorUnits(event.Amount)
		income := c.accounts.IncomeFor(event.Metadata["type"])

		return &ledger.Entry{
			Date:        event.CreatedAt(),
			Description: description(event),
			ExternalID:  event.ID,
			Postings: []ledger.Posting{
				{Account: c.accounts.Holding, Amount: gross},
				{Account: income, Amount: gross.Neg()},
			},
		}, nil

	case EventAdjustment:
		gross := minorUnits(event.Amount)
		net := minorUnits(event.Net)
		fee := minorUnits(event.Fee)

		// A negative adjustment is money clawed back; a positive one is
		// income, classified by the underlying charge's hint.
		target := c.accounts.Miscellaneous
		if !net.IsNegative() {
			target = c.accounts.IncomeFor(event.Metadata["type"])
		}

		postings := []ledger.Posting{
			{Account: c.accounts.Holding, Amount: net},
		}
		if !fee.IsZero() {
			postings = append(postings, ledger.Posting{Account: c.accounts.Fees, Amount: fee})
		}
		postings = append(postings, ledger.Posting{Account: target, Amount: gross.Neg()})

		return &ledger.Entry{
			Date:        event.CreatedAt(),
			Description: description(event),
			ExternalID:  event.ID,
			Postings:    postings,
		}, nil

	case EventFee:
		fee := minorUnits(event.Amount).Abs()

		return &ledger.Entry{
			Date:        event.CreatedAt(),
			Description: description(event),
			ExternalID:  event.ID,
			Postings: []ledger.Posting{
				{Account: c.accounts.Fees, Amount: fee},
				{Account: c.accounts.Holding, Amount: fee.Neg()},
			},
		}, nil

	case EventRefund:
		amount := minorUnits(event.Amount).Abs()

		return &ledger.Entry{
			Date:        event.CreatedAt(),
			Description: description(event),
			ExternalID:  event.ID,
			Postings: []ledger.Posting{
				{Account: c.accounts.Miscellaneous, Amount: amount},
				{Account: c.accounts.Holding, Amount: amount.Neg()},
			},
		}, nil

	case EventPayout:
		// Payouts are recorded when they show up in the bank feed.
		return nil, nil

	default:
		return nil, nil
	}
}

// minorUnits converts a minor-unit amount (pence) to a decimal amount.
func minorUnits(v int64) decimal.Decimal {
	return decimal.New(v, -2)
}

func description(event Event) string {
	if event.Description != "" {
		return fmt.Sprintf("Stripe: %s", event.Description)
	}
	return fmt.Sprintf("Stripe %s %s", event.Type, event.ID)
}
