package enrich

import (
	"strings"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// WarehouseParser parses the warehouse club form. Its slots are split across
// two column blocks: itemId/quantity pairs first, description/total pairs
// later, in matching slot order. The form has no unit-price column, so unit
// price is always derived as total/quantity.
type WarehouseParser struct {
	schema *FormSchema
}

// NewWarehouseParser creates the parser with its field schema
func NewWarehouseParser() *WarehouseParser {
	return &WarehouseParser{schema: warehouseSchema()}
}

// FormType implements FormParser
func (p *WarehouseParser) FormType() entity.FormType {
	return entity.FormWarehouse
}

// Parse keeps a slot only when item ID, a positive quantity and a
// description are all present. Slot numbers are preserved.
func (p *WarehouseParser) Parse(tx *entity.Transaction, row *persistence.FormRow) (*ParseOutcome, error) {
	if err := requireRow(tx, entity.FormWarehouse, row); err != nil {
		return nil, err
	}

	outcome := &ParseOutcome{
		AdditionalInfo: map[string]string{
			"submitter": p.schema.Value(row, fieldSubmitter),
		},
	}

	for slot := 1; slot <= entity.MaxItemSlots; slot++ {
		itemID := strings.TrimSpace(p.schema.Value(row, slotField(slot, "itemId")))
		quantity := entity.ParseQuantity(p.schema.Value(row, slotField(slot, "quantity")))
		description := strings.TrimSpace(p.schema.Value(row, slotField(slot, "description")))
		if itemID == "" || quantity <= 0 || description == "" {
			continue
		}

		item := entity.LineItem{
			ItemNumber:  slot,
			ItemID:      itemID,
			Description: description,
			Quantity:    quantity,
			TotalPrice:  entity.ParseMoney(p.schema.Value(row, slotField(slot, "totalPrice"))),
		}
		item.Reconcile()
		outcome.LineItems = append(outcome.LineItems, item)
	}

	if len(outcome.LineItems) == 0 {
		outcome.warn("no populated item slots on form row")
	}
	return outcome, nil
}
