package enrich

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// warehouseSlot is the per-slot input for warehouseRow
type warehouseSlot struct {
	itemID      string
	quantity    string
	description string
	totalPrice  string
}

// warehouseRow builds a form row with the split column layout: id/quantity
// pairs in one block, description/total pairs in a later block.
func warehouseRow(slots ...warehouseSlot) *persistence.FormRow {
	values := make([]string, 2+entity.MaxItemSlots*4)
	values[0] = "2/9/2026 9:00:00"
	values[1] = "sam.smith@school.org"
	for i, slot := range slots {
		values[2+i*2] = slot.itemID
		values[2+i*2+1] = slot.quantity
		values[12+i*2] = slot.description
		values[12+i*2+1] = slot.totalPrice
	}
	return &persistence.FormRow{ResponseRef: "resp-2", Values: values}
}

func TestWarehouseParserParse(t *testing.T) {
	parser := NewWarehouseParser()
	tx := &entity.Transaction{TransactionID: "T2", FormType: entity.FormWarehouse}

	t.Run("Derives unit price from total", func(t *testing.T) {
		row := warehouseRow(
			warehouseSlot{"SKU1", "4", "Widget", "$40.00"},
		)

		outcome, err := parser.Parse(tx, row)
		require.NoError(t, err)
		require.Len(t, outcome.LineItems, 1)

		item := outcome.LineItems[0]
		assert.Equal(t, "SKU1", item.ItemID)
		assert.Equal(t, "Widget", item.Description)
		assert.Equal(t, 4, item.Quantity)
		assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("10.00")))
		assert.True(t, item.TotalPrice.Equal(decimal.RequireFromString("40.00")))
	})

	t.Run("Matches split blocks by slot order", func(t *testing.T) {
		row := warehouseRow(
			warehouseSlot{"SKU1", "2", "Paper towels", "24.00"},
			warehouseSlot{"SKU2", "1", "Coffee", "18.50"},
			warehouseSlot{"SKU3", "3", "Cleaner", "15.00"},
		)

		outcome, err := parser.Parse(tx, row)
		require.NoError(t, err)
		require.Len(t, outcome.LineItems, 3)
		assert.Equal(t, "Paper towels", outcome.LineItems[0].Description)
		assert.Equal(t, "Coffee", outcome.LineItems[1].Description)
		assert.Equal(t, "Cleaner", outcome.LineItems[2].Description)
	})

	t.Run("Skips incomplete slots but preserves numbering", func(t *testing.T) {
		row := warehouseRow(
			warehouseSlot{"SKU1", "1", "Kept", "5.00"},
			warehouseSlot{"", "2", "No item ID", "10.00"},
			warehouseSlot{"SKU3", "0", "No quantity", "10.00"},
			warehouseSlot{"SKU4", "2", "", "10.00"},
			warehouseSlot{"SKU5", "1", "Also kept", "7.00"},
		)

		outcome, err := parser.Parse(tx, row)
		require.NoError(t, err)
		require.Len(t, outcome.LineItems, 2)
		assert.Equal(t, 1, outcome.LineItems[0].ItemNumber)
		assert.Equal(t, 5, outcome.LineItems[1].ItemNumber)
	})

	t.Run("Missing row fails with parse error", func(t *testing.T) {
		_, err := parser.Parse(tx, &persistence.FormRow{})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrFormRowNotFound)
	})
}
