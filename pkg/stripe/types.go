// Package stripe provides the card-gateway API client and the mapping from
// gateway balance events to ledger entries.
package stripe

import "time"

// Event types reported by the gateway. Each event is an independent
// transaction with its own unique identifier; a charge that is later
// refunded shows up as two events, each imported on its own, so the net
// ledger effect is correct without cross-referencing.
const (
	EventCharge     = "charge"
	EventAdjustment = "adjustment"
	EventRefund     = "refund"
	EventFee        = "fee"
	EventPayout     = "payout"
)

// Event represents one balance transaction fetched from the gateway.
// Amounts are in minor units (pence).
type Event struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Amount      int64             `json:"amount"`
	Fee         int64             `json:"fee"`
	Net         int64             `json:"net"`
	Created     int64             `json:"created"` // Unix timestamp
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// CreatedAt returns the event creation time.
func (e Event) CreatedAt() time.Time {
	return time.Unix(e.Created, 0).UTC()
}

// eventList represents the gateway's paginated list response.
type eventList struct {
	Data    []Event `json:"data"`
	HasMore bool    `json:"has_more"`
}

// apiError represents an error response from the gateway.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
