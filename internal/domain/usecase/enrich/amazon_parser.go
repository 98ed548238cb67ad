package enrich

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// asinPattern extracts the 10-character vendor item ID from a product URL,
// e.g. ".../dp/B0C1234XYZ" or ".../gp/product/B0C1234XYZ"
var asinPattern = regexp.MustCompile(`/(?:dp|gp/product|product)/([A-Z0-9]{10})(?:[/?]|$)`)

// AmazonParser parses the multi-item vendor form: up to five contiguous item
// slots, each carrying description, url, quantity, unit price and total price.
type AmazonParser struct {
	schema *FormSchema
}

// NewAmazonParser creates the parser with its field schema
func NewAmazonParser() *AmazonParser {
	return &AmazonParser{schema: amazonSchema()}
}

// FormType implements FormParser
func (p *AmazonParser) FormType() entity.FormType {
	return entity.FormAmazon
}

// Parse reads each item slot, keeping a slot only when it has a non-empty
// description and a positive quantity. Slot numbers are preserved: a row
// with an empty third slot yields items numbered 1, 2, 4, 5.
func (p *AmazonParser) Parse(tx *entity.Transaction, row *persistence.FormRow) (*ParseOutcome, error) {
	if err := requireRow(tx, entity.FormAmazon, row); err != nil {
		return nil, err
	}

	outcome := &ParseOutcome{
		AdditionalInfo: map[string]string{
			"submitter": p.schema.Value(row, fieldSubmitter),
		},
	}

	for slot := 1; slot <= entity.MaxItemSlots; slot++ {
		description := strings.TrimSpace(p.schema.Value(row, slotField(slot, "description")))
		quantity := entity.ParseQuantity(p.schema.Value(row, slotField(slot, "quantity")))
		if description == "" || quantity <= 0 {
			continue
		}

		item := entity.LineItem{
			ItemNumber:  slot,
			ItemID:      extractItemID(p.schema.Value(row, slotField(slot, "url")), slot),
			Description: description,
			Quantity:    quantity,
			UnitPrice:   entity.ParseMoney(p.schema.Value(row, slotField(slot, "unitPrice"))),
			TotalPrice:  entity.ParseMoney(p.schema.Value(row, slotField(slot, "totalPrice"))),
		}
		if item.Reconcile() {
			outcome.warn(fmt.Sprintf("slot %d prices reconciled against reported total", slot))
		}
		outcome.LineItems = append(outcome.LineItems, item)
	}

	if len(outcome.LineItems) == 0 {
		outcome.warn("no populated item slots on form row")
	}
	return outcome, nil
}

// extractItemID pulls a vendor item ID out of the product URL, falling back
// to a synthetic per-slot identifier when no recognizable pattern is present
func extractItemID(url string, slot int) string {
	if matches := asinPattern.FindStringSubmatch(strings.TrimSpace(url)); matches != nil {
		return matches[1]
	}
	return fmt.Sprintf("AMZ-%d", slot)
}
