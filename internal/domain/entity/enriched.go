package entity

import (
	"github.com/shopspring/decimal"
)

// EnrichedTransaction is a Transaction augmented with the line-item detail
// and resolved names needed to render an invoice. LineItems is never empty:
// when no parseable form data exists the enrichment engine substitutes a
// single default item equal to the transaction amount and clears IsEnriched.
type EnrichedTransaction struct {
	Transaction

	LineItems          []LineItem
	RequestorName      string
	ApproverName       string
	ResolvedDivision   Division
	CrossDivisionTotal decimal.Decimal   // Sum of ledger amounts sharing OrderID
	AdditionalInfo     map[string]string // Per-form-type extras (destination, ISBN, ...)

	IsEnriched bool     // False when the default line item was substituted
	Warnings   []string // Non-fatal enrichment diagnostics
}

// Warn records a non-fatal enrichment diagnostic
func (e *EnrichedTransaction) Warn(message string) {
	e.Warnings = append(e.Warnings, message)
}

// LineItemTotal returns the combined total of all line items
func (e *EnrichedTransaction) LineItemTotal() decimal.Decimal {
	return SumLineItems(e.LineItems)
}
