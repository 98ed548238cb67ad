package error

import (
	"errors"
	"fmt"
)

// Error codes for run reports and API responses
const (
	// 4xxx - data/allocation errors scoped to one transaction
	CodeInvalidAmount       = 4001
	CodeUnknownFormType     = 4002
	CodeFormRowNotFound     = 4003
	CodeAlreadyInvoiced     = 4004
	CodeInvoiceIDTaken      = 4005
	CodeSequenceExhausted   = 4006
	CodeAllocationExhausted = 4007

	// 5xxx - run-level failures
	CodeLedgerUnavailable = 5001
	CodeStoreUnavailable  = 5002
	CodeInternal          = 5000
)

// Base error types
var (
	// ErrInvalidAmount is returned when a ledger amount is outside the accepted range
	ErrInvalidAmount = errors.New("amount outside accepted range")

	// ErrUnknownFormType is returned when a ledger row names a form type we do not recognize
	ErrUnknownFormType = errors.New("unknown form type")

	// ErrFormRowNotFound is returned when the originating form submission cannot be located
	ErrFormRowNotFound = errors.New("form row not found")

	// ErrQueueEntryNotFound is returned when no intake queue entry matches a transaction
	ErrQueueEntryNotFound = errors.New("queue entry not found")

	// ErrAlreadyInvoiced is returned when allocation is attempted for a transaction
	// that already carries an invoice marker
	ErrAlreadyInvoiced = errors.New("transaction already invoiced")

	// ErrInvoiceIDTaken is returned when a candidate ID turns out to be recorded
	// or claimed between the sequence scan and the final claim
	ErrInvoiceIDTaken = errors.New("invoice ID already taken")

	// ErrLockContention is returned when the named lock for a candidate ID is
	// held by another in-flight allocation
	ErrLockContention = errors.New("candidate ID locked by another allocation")

	// ErrSequenceExhausted is returned when every sequence number up to the
	// configured daily maximum is already in use for a tuple
	ErrSequenceExhausted = errors.New("daily invoice sequence exhausted")

	// ErrAllocationExhausted is returned after the allocator has used up its
	// retry budget without claiming an ID
	ErrAllocationExhausted = errors.New("invoice ID allocation retries exhausted")

	// ErrLedgerUnavailable is returned when the ledger store cannot be reached;
	// this aborts the whole run
	ErrLedgerUnavailable = errors.New("ledger store unavailable")

	// ErrStoreUnavailable is returned when a supporting store (forms, directory,
	// claims) cannot be reached
	ErrStoreUnavailable = errors.New("backing store unavailable")

	// ErrNotFound is returned when a generic resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInternal is returned for unexpected failures
	ErrInternal = errors.New("internal error")
)

// ErrorCode returns the standardized code for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrUnknownFormType):
		return CodeUnknownFormType
	case errors.Is(err, ErrFormRowNotFound), errors.Is(err, ErrQueueEntryNotFound):
		return CodeFormRowNotFound
	case errors.Is(err, ErrAlreadyInvoiced):
		return CodeAlreadyInvoiced
	case errors.Is(err, ErrInvoiceIDTaken), errors.Is(err, ErrLockContention):
		return CodeInvoiceIDTaken
	case errors.Is(err, ErrSequenceExhausted):
		return CodeSequenceExhausted
	case errors.Is(err, ErrAllocationExhausted):
		return CodeAllocationExhausted
	case errors.Is(err, ErrLedgerUnavailable):
		return CodeLedgerUnavailable
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternal
	}
}

// IsRetryable reports whether an allocation failure is worth another attempt.
// Contention and stale-candidate races resolve themselves; exhaustion and
// structural failures do not.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockContention) || errors.Is(err, ErrInvoiceIDTaken)
}

// IsFatalForRun reports whether an error should abort the entire run rather
// than just the transaction that hit it
func IsFatalForRun(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable) || errors.Is(err, ErrStoreUnavailable)
}

// ParseError describes a failure to parse a form row. Parsers return it as a
// value; it never escapes the enrichment engine, which degrades to the
// default line item instead.
type ParseError struct {
	TransactionID string
	FormType      string
	Reason        string
	Err           error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failure for transaction %s (form %s): %s - %v",
		e.TransactionID, e.FormType, e.Reason, e.Err)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Err
}

// LogFields returns structured logging fields
func (e *ParseError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "parse_error",
		"transaction_id": e.TransactionID,
		"form_type":      e.FormType,
		"reason":         e.Reason,
		"error":          e.Err.Error(),
	}
}

// NewParseError creates a ParseError
func NewParseError(transactionID, formType, reason string, err error) *ParseError {
	return &ParseError{TransactionID: transactionID, FormType: formType, Reason: reason, Err: err}
}

// AllocationError describes a failed invoice-ID allocation for one
// transaction, including how far the allocator got before giving up
type AllocationError struct {
	TransactionID string
	LastCandidate string
	Attempts      int
	Err           error
}

// Error implements the error interface
func (e *AllocationError) Error() string {
	return fmt.Sprintf("invoice ID allocation failed for transaction %s after %d attempts (last candidate %s): %v",
		e.TransactionID, e.Attempts, e.LastCandidate, e.Err)
}

// Unwrap returns the underlying error
func (e *AllocationError) Unwrap() error {
	return e.Err
}

// LogFields returns structured logging fields
func (e *AllocationError) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "allocation_error",
		"transaction_id": e.TransactionID,
		"last_candidate": e.LastCandidate,
		"attempts":       e.Attempts,
		"error":          e.Err.Error(),
		"error_code":     ErrorCode(e.Err),
	}
}

// NewAllocationError creates an AllocationError
func NewAllocationError(transactionID, lastCandidate string, attempts int, err error) error {
	return &AllocationError{
		TransactionID: transactionID,
		LastCandidate: lastCandidate,
		Attempts:      attempts,
		Err:           err,
	}
}

// TransactionFailure pairs a transaction with the error that stopped it,
// for run reports that distinguish "N failed" from "run aborted"
type TransactionFailure struct {
	TransactionID string
	Err           error
}

// Error implements the error interface
func (e *TransactionFailure) Error() string {
	return fmt.Sprintf("transaction %s failed: %v", e.TransactionID, e.Err)
}

// Unwrap returns the underlying error
func (e *TransactionFailure) Unwrap() error {
	return e.Err
}

// LogFields returns structured logging fields
func (e *TransactionFailure) LogFields() map[string]any {
	return map[string]any{
		"error_type":     "transaction_failure",
		"transaction_id": e.TransactionID,
		"error":          e.Err.Error(),
		"error_code":     ErrorCode(e.Err),
	}
}
