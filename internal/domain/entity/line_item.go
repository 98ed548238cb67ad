package entity

import (
	"github.com/shopspring/decimal"
)

// MaxItemSlots is the number of item slots a multi-item form carries
const MaxItemSlots = 5

// DefaultItemDescription is used when a form slot has no usable description
const DefaultItemDescription = "Purchase request item"

// LineItem is one priced unit within a transaction. ItemNumber preserves the
// 1-based slot position from the source form, so a row whose third slot was
// left blank yields items numbered 1, 2, 4, 5.
type LineItem struct {
	ItemNumber  int             // 1-based slot position within the source form
	ItemID      string          // Vendor SKU/ASIN or a synthetic identifier
	Description string          // Item description from the form
	Quantity    int             // Positive unit count
	UnitPrice   decimal.Decimal // Price per unit
	TotalPrice  decimal.Decimal // Extended price as reported by the form
}

// Reconcile enforces TotalPrice == Quantity * UnitPrice by deriving whichever
// of the two prices is missing. When both are present and disagree, the
// form-reported total wins and the unit price is recomputed from it; the
// reported total is what the approver actually signed off on.
// Returns true when the item had to be adjusted.
func (li *LineItem) Reconcile() bool {
	if li.Quantity <= 0 {
		return false
	}
	qty := decimal.NewFromInt(int64(li.Quantity))

	switch {
	case li.TotalPrice.IsZero() && !li.UnitPrice.IsZero():
		li.TotalPrice = li.UnitPrice.Mul(qty)
		return true
	case li.UnitPrice.IsZero() && !li.TotalPrice.IsZero():
		li.UnitPrice = li.TotalPrice.Div(qty).Round(2)
		return true
	case !li.UnitPrice.Mul(qty).Equal(li.TotalPrice) && !li.TotalPrice.IsZero():
		li.UnitPrice = li.TotalPrice.Div(qty).Round(2)
		return true
	}
	return false
}

// DefaultLineItem builds the single synthetic line item used when a
// transaction's form row cannot be found or parsed. Its total equals the
// ledger amount so the invoice still balances.
func DefaultLineItem(tx *Transaction) LineItem {
	description := tx.Description
	if description == "" {
		description = DefaultItemDescription
	}
	return LineItem{
		ItemNumber:  1,
		ItemID:      "MISC-1",
		Description: description,
		Quantity:    1,
		UnitPrice:   tx.Amount,
		TotalPrice:  tx.Amount,
	}
}

// SumLineItems returns the combined total price of the given items
func SumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}
