package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormType identifies the purchase-request form a transaction originated from
type FormType string

// Known form types
const (
	FormAmazon     FormType = "amazon"
	FormWarehouse  FormType = "warehouse"
	FormAdmin      FormType = "admin"
	FormFieldTrip  FormType = "fieldtrip"
	FormCurriculum FormType = "curriculum"
	FormOther      FormType = "other"
)

// Division identifies the school division that owns a transaction
type Division string

// School divisions
const (
	DivisionUpperSchool Division = "Upper School"
	DivisionLowerSchool Division = "Lower School"
	DivisionKinderhaus  Division = "Kinderhaus"
	DivisionAdmin       Division = "Administration"
)

// formCodes maps each form type to the short code embedded in invoice IDs
var formCodes = map[FormType]string{
	FormAmazon:     "AMZ",
	FormWarehouse:  "PCW",
	FormAdmin:      "AD",
	FormFieldTrip:  "FT",
	FormCurriculum: "CI",
	FormOther:      "OTH",
}

// divisionCodes maps each division to the short code embedded in invoice IDs
var divisionCodes = map[Division]string{
	DivisionUpperSchool: "US",
	DivisionLowerSchool: "LS",
	DivisionKinderhaus:  "KK",
	DivisionAdmin:       "AD",
}

// NormalizeFormType maps a raw form-type string to a known FormType.
// Unknown or empty values fall back to FormOther so a malformed ledger row
// can still be processed as a single-item invoice.
func NormalizeFormType(raw string) (FormType, bool) {
	switch FormType(strings.ToLower(strings.TrimSpace(raw))) {
	case FormAmazon:
		return FormAmazon, true
	case FormWarehouse:
		return FormWarehouse, true
	case FormAdmin:
		return FormAdmin, true
	case FormFieldTrip, "field trip", "field-trip":
		return FormFieldTrip, true
	case FormCurriculum:
		return FormCurriculum, true
	case FormOther:
		return FormOther, true
	default:
		return FormOther, false
	}
}

// Code returns the invoice-ID form code for the form type
func (f FormType) Code() string {
	if code, ok := formCodes[f]; ok {
		return code
	}
	return formCodes[FormOther]
}

// IsBatchable reports whether transactions of this form type may be combined
// into a single invoice document when they share an order and division.
// Only the multi-item vendor forms batch; everything else invoices singly.
func (f FormType) IsBatchable() bool {
	return f == FormAmazon || f == FormWarehouse
}

// NormalizeDivision maps a raw division string to a known Division.
// Unrecognized values fall back to Administration.
func NormalizeDivision(raw string) (Division, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "upper school", "us":
		return DivisionUpperSchool, true
	case "lower school", "ls":
		return DivisionLowerSchool, true
	case "kinderhaus", "kk":
		return DivisionKinderhaus, true
	case "administration", "admin", "ad":
		return DivisionAdmin, true
	default:
		return DivisionAdmin, false
	}
}

// Code returns the invoice-ID division code for the division
func (d Division) Code() string {
	if code, ok := divisionCodes[d]; ok {
		return code
	}
	return divisionCodes[DivisionAdmin]
}

// Transaction represents one purchase request resolved to a ledger row.
// TransactionID is assigned at intake and never changes; the invoice fields
// are written exactly once when an invoice is generated for the row.
type Transaction struct {
	TransactionID string          // Unique external identifier, immutable
	OrderID       string          // Optional grouping key shared by co-batched transactions
	ProcessedOn   time.Time       // When the request was approved into the ledger
	Requestor     string          // Identity reference of the requesting staff member
	Approver      string          // Identity reference of the approving staff member
	Organization  string          // Raw division/organization string from the ledger
	FormType      FormType        // Which purchase-request form produced this row
	Amount        decimal.Decimal // Approved transaction amount
	Description   string          // Free-text summary from the ledger
	FiscalQuarter string          // Fiscal quarter label, e.g. "Q3"

	// Invoice fields, empty until an invoice has been generated
	InvoiceGenerated string // Non-empty marker once invoiced (timestamp string)
	InvoiceID        string // Allocated invoice identifier
	InvoiceURL       string // Storage URL of the rendered invoice
}

// Invoiced reports whether this transaction already carries an invoice
// marker. Invoiced transactions must never be allocated a second ID.
func (t *Transaction) Invoiced() bool {
	return t.InvoiceGenerated != ""
}

// Division resolves the transaction's organization string to a division
func (t *Transaction) Division() Division {
	division, _ := NormalizeDivision(t.Organization)
	return division
}
