// Package importer provides the commit stage shared by all transaction
// sources: deduplication against the import history, double-entry
// validation, and atomic persistence into the ledger.
package importer

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AuthenticationError indicates the source rejected our credentials.
// Fatal for the importer's run.
type AuthenticationError struct {
	Source string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: authentication failed: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed", e.Source)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// TransientFetchError indicates a network-level fetch failure. Fatal for the
// run; the user re-runs later, no in-process retry.
type TransientFetchError struct {
	Source string
	Err    error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: fetch failed: %v", e.Source, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// MappingInconsistencyError indicates source data that cannot be mapped to a
// balanced entry (e.g. gross != net + fee). A data error, never silently
// corrected; the offending transaction is skipped and logged.
type MappingInconsistencyError struct {
	Source     string
	ExternalID string
	Reason     string
}

func (e *MappingInconsistencyError) Error() string {
	return fmt.Sprintf("%s: transaction %s: inconsistent data: %s", e.Source, e.ExternalID, e.Reason)
}

// UnbalancedEntryError indicates an entry whose postings do not sum to zero
// within the balance epsilon. Fatal for that single entry only.
type UnbalancedEntryError struct {
	ExternalID string
	Sum        decimal.Decimal
}

func (e *UnbalancedEntryError) Error() string {
	return fmt.Sprintf("entry %s is not balanced: postings sum to %s", e.ExternalID, e.Sum)
}

// AccountNotFoundError indicates an entry referencing an account that is not
// declared in the ledger. Importers never create accounts.
type AccountNotFoundError struct {
	Account    string
	ExternalID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("entry %s references unknown account %q", e.ExternalID, e.Account)
}
