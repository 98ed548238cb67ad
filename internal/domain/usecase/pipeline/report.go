package pipeline

import (
	"time"

	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
)

// InvoiceRecord summarizes one invoice produced by a run
type InvoiceRecord struct {
	InvoiceID    string
	URL          string
	Template     string
	Transactions []string
	TotalAmount  string
}

// RunReport is the outcome of one pipeline pass. It distinguishes "N
// transactions failed, run otherwise succeeded" from "run aborted entirely"
// for the operator-facing notification layer.
type RunReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	TransactionsRead int
	Invoices         []InvoiceRecord
	Failures         []*errs.TransactionFailure
	SweptClaims      int

	Aborted    bool
	AbortError string
}

// RecordFailure files a per-transaction failure
func (r *RunReport) RecordFailure(transactionID string, err error) {
	r.Failures = append(r.Failures, &errs.TransactionFailure{TransactionID: transactionID, Err: err})
}

// Succeeded reports whether the run completed, regardless of individual
// transaction failures
func (r *RunReport) Succeeded() bool {
	return !r.Aborted
}
