package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ReprocessPrefix marks invoice IDs allocated during a reprocessing run
const ReprocessPrefix = "REP-"

// invoiceIDPattern matches {DivisionCode}-{FormCode}-{MMDD}-{NN}, with an
// optional REP- prefix and a sequence of two or more digits.
var invoiceIDPattern = regexp.MustCompile(`^(REP-)?([A-Z]{2})-([A-Z]{2,3})-(\d{4})-(\d{2,})$`)

// InvoiceID is the parsed form of an invoice identifier. Sequence numbers
// are unique within a (division, form, date) tuple; that uniqueness is the
// allocator's correctness property.
type InvoiceID struct {
	Reprocessed  bool
	DivisionCode string
	FormCode     string
	MonthDay     string // MMDD from the transaction's processed date
	Sequence     int
}

// NewInvoiceID builds an identifier for the given tuple
func NewInvoiceID(division Division, form FormType, processedOn time.Time, sequence int) InvoiceID {
	return InvoiceID{
		DivisionCode: division.Code(),
		FormCode:     form.Code(),
		MonthDay:     processedOn.Format("0102"),
		Sequence:     sequence,
	}
}

// String renders the canonical identifier, e.g. "US-AMZ-0209-01".
// Sequence numbers render as two digits and expand naturally past 99.
func (id InvoiceID) String() string {
	var b strings.Builder
	if id.Reprocessed {
		b.WriteString(ReprocessPrefix)
	}
	fmt.Fprintf(&b, "%s-%s-%s-%02d", id.DivisionCode, id.FormCode, id.MonthDay, id.Sequence)
	return b.String()
}

// Prefix returns the identifier without its sequence component, e.g.
// "US-AMZ-0209-". All IDs for one (division, form, date) tuple share it.
func (id InvoiceID) Prefix() string {
	prefix := fmt.Sprintf("%s-%s-%s-", id.DivisionCode, id.FormCode, id.MonthDay)
	if id.Reprocessed {
		return ReprocessPrefix + prefix
	}
	return prefix
}

// ParseInvoiceID parses a canonical invoice identifier string
func ParseInvoiceID(raw string) (InvoiceID, error) {
	matches := invoiceIDPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if matches == nil {
		return InvoiceID{}, fmt.Errorf("malformed invoice ID %q", raw)
	}
	sequence, err := strconv.Atoi(matches[5])
	if err != nil {
		return InvoiceID{}, fmt.Errorf("malformed invoice sequence in %q: %w", raw, err)
	}
	return InvoiceID{
		Reprocessed:  matches[1] != "",
		DivisionCode: matches[2],
		FormCode:     matches[3],
		MonthDay:     matches[4],
		Sequence:     sequence,
	}, nil
}
