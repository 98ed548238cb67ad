package enrich

import (
	"fmt"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// Field schemas describe each form family's positional layout declaratively.
// Parsers address fields by name, never by bare offset, so the layout of a
// form lives in exactly one place.

// FieldSpec names a single positional field in a form row
type FieldSpec struct {
	Name   string
	Offset int
}

// FormSchema is the ordered field layout for one form type
type FormSchema struct {
	Form    entity.FormType
	Fields  []FieldSpec
	offsets map[string]int
}

// NewFormSchema builds a schema from an ordered field list
func NewFormSchema(form entity.FormType, fields ...FieldSpec) *FormSchema {
	offsets := make(map[string]int, len(fields))
	for _, field := range fields {
		offsets[field.Name] = field.Offset
	}
	return &FormSchema{Form: form, Fields: fields, offsets: offsets}
}

// Value reads the named field out of a row. Unknown names and short rows
// both read as "", matching the degrade-don't-fail parsing contract.
func (s *FormSchema) Value(row *persistence.FormRow, name string) string {
	offset, ok := s.offsets[name]
	if !ok {
		return ""
	}
	return row.Field(offset)
}

// slotField names a per-slot field on a multi-item form, e.g. "item3.quantity"
func slotField(slot int, name string) string {
	return fmt.Sprintf("item%d.%s", slot, name)
}

// Shared leading columns on every form: intake timestamp and submitter email
const (
	fieldTimestamp = "timestamp"
	fieldSubmitter = "submitter"
)

// amazonSchema lays out the Amazon form: two leading columns, then five
// contiguous item slots of (description, url, quantity, unitPrice,
// totalPrice) each.
func amazonSchema() *FormSchema {
	fields := []FieldSpec{
		{fieldTimestamp, 0},
		{fieldSubmitter, 1},
	}
	const base, stride = 2, 5
	for slot := 1; slot <= entity.MaxItemSlots; slot++ {
		offset := base + (slot-1)*stride
		fields = append(fields,
			FieldSpec{slotField(slot, "description"), offset},
			FieldSpec{slotField(slot, "url"), offset + 1},
			FieldSpec{slotField(slot, "quantity"), offset + 2},
			FieldSpec{slotField(slot, "unitPrice"), offset + 3},
			FieldSpec{slotField(slot, "totalPrice"), offset + 4},
		)
	}
	return NewFormSchema(entity.FormAmazon, fields...)
}

// warehouseSchema lays out the Warehouse form. Unlike Amazon, the slots are
// split: itemId/quantity pairs occupy one contiguous block, description/
// totalPrice pairs a later block, in the same slot order. There is no
// independent unit-price column.
func warehouseSchema() *FormSchema {
	fields := []FieldSpec{
		{fieldTimestamp, 0},
		{fieldSubmitter, 1},
	}
	const idBlock, descBlock = 2, 12
	for slot := 1; slot <= entity.MaxItemSlots; slot++ {
		fields = append(fields,
			FieldSpec{slotField(slot, "itemId"), idBlock + (slot-1)*2},
			FieldSpec{slotField(slot, "quantity"), idBlock + (slot-1)*2 + 1},
		)
	}
	for slot := 1; slot <= entity.MaxItemSlots; slot++ {
		fields = append(fields,
			FieldSpec{slotField(slot, "description"), descBlock + (slot-1)*2},
			FieldSpec{slotField(slot, "totalPrice"), descBlock + (slot-1)*2 + 1},
		)
	}
	return NewFormSchema(entity.FormWarehouse, fields...)
}

// adminSchema lays out the Admin/miscellaneous purchase form
func adminSchema() *FormSchema {
	return NewFormSchema(entity.FormAdmin,
		FieldSpec{fieldTimestamp, 0},
		FieldSpec{fieldSubmitter, 1},
		FieldSpec{"description", 2},
		FieldSpec{"totalCost", 3},
		FieldSpec{"rationale", 4},
		FieldSpec{"fileRef", 5},
	)
}

// fieldTripSchema lays out the Field Trip request form
func fieldTripSchema() *FormSchema {
	return NewFormSchema(entity.FormFieldTrip,
		FieldSpec{fieldTimestamp, 0},
		FieldSpec{fieldSubmitter, 1},
		FieldSpec{"destination", 2},
		FieldSpec{"tripDate", 3},
		FieldSpec{"studentCount", 4},
		FieldSpec{"totalCost", 5},
		FieldSpec{"transportation", 6},
	)
}

// curriculumSchema lays out the Curriculum & Instruction resource form
func curriculumSchema() *FormSchema {
	return NewFormSchema(entity.FormCurriculum,
		FieldSpec{fieldTimestamp, 0},
		FieldSpec{fieldSubmitter, 1},
		FieldSpec{"resourceName", 2},
		FieldSpec{"curriculumType", 3},
		FieldSpec{"isbn", 4},
		FieldSpec{"resourceUrl", 5},
		FieldSpec{"totalCost", 6},
	)
}
