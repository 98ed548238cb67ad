package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// GroupKey identifies a set of transactions that may share one invoice
type GroupKey struct {
	OrderID  string
	Division Division
	FormType FormType
}

// String renders the key for logging and map diagnostics
func (k GroupKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.OrderID, k.Division.Code(), k.FormType.Code())
}

// Group is an ephemeral collection of enriched transactions sharing a
// GroupKey. It exists only for the duration of one processing pass.
type Group struct {
	Key     GroupKey
	Members []*EnrichedTransaction
}

// KeyFor derives the grouping key for an enriched transaction
func KeyFor(tx *EnrichedTransaction) GroupKey {
	return GroupKey{
		OrderID:  tx.OrderID,
		Division: tx.ResolvedDivision,
		FormType: tx.FormType,
	}
}

// TotalAmount returns the combined ledger amount of all members
func (g *Group) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, member := range g.Members {
		total = total.Add(member.Amount)
	}
	return total
}

// LineItemCount returns the combined number of line items across members
func (g *Group) LineItemCount() int {
	count := 0
	for _, member := range g.Members {
		count += len(member.LineItems)
	}
	return count
}

// IsBatch reports whether this group should render as one combined invoice.
// A group batches only when its form type allows it and it holds more than
// one transaction; a lone transaction invoices singly even on a batchable
// form.
func (g *Group) IsBatch() bool {
	return g.Key.FormType.IsBatchable() && g.Key.OrderID != "" && len(g.Members) > 1
}
