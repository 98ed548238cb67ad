package enrich

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// The single-item forms (Admin, Field Trip, Curriculum) always synthesize
// exactly one line item. Each sub-type has its own description rule and
// additional-info payload; only Field Trip carries a quantity other than 1.

// AdminParser parses the administrative/miscellaneous purchase form
type AdminParser struct {
	schema *FormSchema
}

// NewAdminParser creates the parser with its field schema
func NewAdminParser() *AdminParser {
	return &AdminParser{schema: adminSchema()}
}

// FormType implements FormParser
func (p *AdminParser) FormType() entity.FormType {
	return entity.FormAdmin
}

// Parse synthesizes the single admin line item
func (p *AdminParser) Parse(tx *entity.Transaction, row *persistence.FormRow) (*ParseOutcome, error) {
	if err := requireRow(tx, entity.FormAdmin, row); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(p.schema.Value(row, "description"))
	if description == "" {
		description = entity.DefaultItemDescription
	}
	total := entity.ParseMoney(p.schema.Value(row, "totalCost"))

	return &ParseOutcome{
		LineItems: []entity.LineItem{{
			ItemNumber:  1,
			ItemID:      "ADM-1",
			Description: description,
			Quantity:    1,
			UnitPrice:   total,
			TotalPrice:  total,
		}},
		AdditionalInfo: map[string]string{
			"rationale": strings.TrimSpace(p.schema.Value(row, "rationale")),
			"fileRef":   strings.TrimSpace(p.schema.Value(row, "fileRef")),
		},
	}, nil
}

// FieldTripParser parses the field trip request form. Quantity is the
// student count and unit price is the per-student cost.
type FieldTripParser struct {
	schema *FormSchema
}

// NewFieldTripParser creates the parser with its field schema
func NewFieldTripParser() *FieldTripParser {
	return &FieldTripParser{schema: fieldTripSchema()}
}

// FormType implements FormParser
func (p *FieldTripParser) FormType() entity.FormType {
	return entity.FormFieldTrip
}

// Parse synthesizes the single field trip line item
func (p *FieldTripParser) Parse(tx *entity.Transaction, row *persistence.FormRow) (*ParseOutcome, error) {
	if err := requireRow(tx, entity.FormFieldTrip, row); err != nil {
		return nil, err
	}

	outcome := &ParseOutcome{}
	destination := strings.TrimSpace(p.schema.Value(row, "destination"))
	if destination == "" {
		destination = "destination not specified"
		outcome.warn("field trip form has no destination")
	}

	total := entity.ParseMoney(p.schema.Value(row, "totalCost"))
	students := entity.ParseQuantity(p.schema.Value(row, "studentCount"))
	unitPrice := total
	if students > 1 {
		unitPrice = total.Div(decimal.NewFromInt(int64(students))).Round(2)
	} else if students == 0 {
		students = 1
		outcome.warn("field trip form has no student count, defaulting to 1")
	}

	outcome.LineItems = []entity.LineItem{{
		ItemNumber:  1,
		ItemID:      "TRIP-1",
		Description: "Field Trip: " + destination,
		Quantity:    students,
		UnitPrice:   unitPrice,
		TotalPrice:  total,
	}}
	outcome.AdditionalInfo = map[string]string{
		"destination":    destination,
		"tripDate":       strings.TrimSpace(p.schema.Value(row, "tripDate")),
		"transportation": strings.TrimSpace(p.schema.Value(row, "transportation")),
	}
	return outcome, nil
}

// CurriculumParser parses the curriculum & instruction resource form
type CurriculumParser struct {
	schema *FormSchema
}

// NewCurriculumParser creates the parser with its field schema
func NewCurriculumParser() *CurriculumParser {
	return &CurriculumParser{schema: curriculumSchema()}
}

// FormType implements FormParser
func (p *CurriculumParser) FormType() entity.FormType {
	return entity.FormCurriculum
}

// Parse synthesizes the single curriculum line item
func (p *CurriculumParser) Parse(tx *entity.Transaction, row *persistence.FormRow) (*ParseOutcome, error) {
	if err := requireRow(tx, entity.FormCurriculum, row); err != nil {
		return nil, err
	}

	outcome := &ParseOutcome{}
	resourceName := strings.TrimSpace(p.schema.Value(row, "resourceName"))
	if resourceName == "" {
		resourceName = "resource not specified"
		outcome.warn("curriculum form has no resource name")
	}
	total := entity.ParseMoney(p.schema.Value(row, "totalCost"))

	outcome.LineItems = []entity.LineItem{{
		ItemNumber:  1,
		ItemID:      "CI-1",
		Description: "Curriculum: " + resourceName,
		Quantity:    1,
		UnitPrice:   total,
		TotalPrice:  total,
	}}
	outcome.AdditionalInfo = map[string]string{
		"curriculumType": strings.TrimSpace(p.schema.Value(row, "curriculumType")),
		"isbn":           strings.TrimSpace(p.schema.Value(row, "isbn")),
		"resourceUrl":    strings.TrimSpace(p.schema.Value(row, "resourceUrl")),
	}
	return outcome, nil
}
