package enrich

import (
	"strings"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// ParseOutcome is the normalized result of parsing one form row
type ParseOutcome struct {
	LineItems      []entity.LineItem
	AdditionalInfo map[string]string
	Warnings       []string
}

// warn appends a parser diagnostic to the outcome
func (o *ParseOutcome) warn(message string) {
	o.Warnings = append(o.Warnings, message)
}

// FormParser converts one raw form row into normalized line items.
// Parsers degrade on bad field data and return an error only when the row
// itself is unusable; the error is always a *errs.ParseError so the failure
// path is visible in the signature.
type FormParser interface {
	FormType() entity.FormType
	Parse(tx *entity.Transaction, row *persistence.FormRow) (*ParseOutcome, error)
}

// ParserRegistry dispatches transactions to the parser for their form type
type ParserRegistry struct {
	parsers map[entity.FormType]FormParser
}

// NewParserRegistry builds a registry holding the full parser set
func NewParserRegistry() *ParserRegistry {
	registry := &ParserRegistry{parsers: make(map[entity.FormType]FormParser)}
	registry.register(NewAmazonParser())
	registry.register(NewWarehouseParser())
	registry.register(NewAdminParser())
	registry.register(NewFieldTripParser())
	registry.register(NewCurriculumParser())
	return registry
}

func (r *ParserRegistry) register(parser FormParser) {
	r.parsers[parser.FormType()] = parser
}

// Lookup returns the parser for a form type, matching case-insensitively.
// Unknown form types (including FormOther) have no parser; the enrichment
// engine substitutes the default line item for those.
func (r *ParserRegistry) Lookup(form entity.FormType) (FormParser, bool) {
	parser, ok := r.parsers[entity.FormType(strings.ToLower(string(form)))]
	return parser, ok
}

// requireRow is the shared parser precondition: a missing row is the one
// condition that fails parsing outright
func requireRow(tx *entity.Transaction, form entity.FormType, row *persistence.FormRow) error {
	if row == nil || len(row.Values) == 0 {
		return errs.NewParseError(tx.TransactionID, string(form), "form row missing or empty", errs.ErrFormRowNotFound)
	}
	return nil
}
