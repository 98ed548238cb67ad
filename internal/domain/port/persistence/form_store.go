package persistence

import (
	"context"
	"time"
)

// QueueEntry links a ledger transaction back to its original form submission
type QueueEntry struct {
	TransactionID string
	ResponseRef   string // Reference into the form response store
	Requestor     string
	SubmittedAt   time.Time
}

// FormRow is one raw, positionally encoded purchase-request submission.
// Values are addressed by the per-form-type field schemas; the store itself
// knows nothing about their meaning.
type FormRow struct {
	ResponseRef string
	SubmittedAt time.Time
	Values      []string
}

// Field returns the value at a positional offset, or "" when the row is
// shorter than the schema expects. Short rows are routine: trailing empty
// columns are often trimmed at intake.
func (r *FormRow) Field(offset int) string {
	if offset < 0 || offset >= len(r.Values) {
		return ""
	}
	return r.Values[offset]
}

// FormStore defines access to the intake queue and raw form submissions
type FormStore interface {
	// FindQueueEntryByTransactionID locates the intake queue entry for a
	// transaction
	//
	// Possible errors:
	// - ErrQueueEntryNotFound: if no entry matches the transaction
	// - ErrStoreUnavailable: if the store cannot be reached
	FindQueueEntryByTransactionID(ctx context.Context, transactionID string) (*QueueEntry, error)

	// FindFormRowByResponseRef retrieves the raw form row behind a queue entry
	//
	// Possible errors:
	// - ErrFormRowNotFound: if the reference does not resolve
	// - ErrStoreUnavailable: if the store cannot be reached
	FindFormRowByResponseRef(ctx context.Context, responseRef string) (*FormRow, error)

	// FindFormRowByIdentityAndTime is the fallback lookup: the most recent row
	// submitted by the given identity within the window around approxTime.
	//
	// Possible errors:
	// - ErrFormRowNotFound: if nothing matches within the window
	// - ErrStoreUnavailable: if the store cannot be reached
	FindFormRowByIdentityAndTime(ctx context.Context, identity string, approxTime time.Time, window time.Duration) (*FormRow, error)
}
