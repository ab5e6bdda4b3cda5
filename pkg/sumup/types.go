// Package sumup provides the point-of-sale settlement API client and the
// mapping from settlement batches to ledger entries.
package sumup

import "github.com/shopspring/decimal"

// Settlement statuses reported by the POS service. Only successful batches
// are imported.
const (
	StatusSuccessful = "SUCCESSFUL"
)

// Settlement represents one settlement batch: a deposit into the holding
// account plus the aggregated processing fees for the batch. Amounts are
// signed decimals in major units and must satisfy gross = net + fee.
type Settlement struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	SettledAt string          `json:"settled_at"` // RFC 3339
	Gross     decimal.Decimal `json:"gross"`
	Fee       decimal.Decimal `json:"fee"`
	Net       decimal.Decimal `json:"net"`
	Reference string          `json:"reference,omitempty"`
}

// settlementList represents the service's list response.
type settlementList struct {
	Items []Settlement `json:"items"`
}

// tokenResponse represents the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// apiError represents an error response from the POS service.
type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
