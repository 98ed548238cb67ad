package persistence

import (
	"context"
	"time"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
)

// LedgerStore defines access to the authoritative transaction record store.
// The ledger is one of only two shared mutable resources in the system (the
// other is the claim store); all cross-run coordination happens through it.
type LedgerStore interface {
	// ReadUnresolved returns transactions that have not yet been invoiced
	//
	// Possible errors:
	// - ErrLedgerUnavailable: if the store cannot be reached (fatal for the run)
	ReadUnresolved(ctx context.Context) ([]*entity.Transaction, error)

	// FindByOrderID returns all transactions sharing an order ID, across
	// divisions. Used to compute cross-division order totals.
	//
	// Possible errors:
	// - ErrLedgerUnavailable: if the store cannot be reached
	FindByOrderID(ctx context.Context, orderID string) ([]*entity.Transaction, error)

	// MarkInvoiced writes the invoice fields for a transaction. Called exactly
	// once per transaction, after rendering succeeds.
	//
	// Possible errors:
	// - ErrNotFound: if no transaction with the given ID exists
	// - ErrAlreadyInvoiced: if the transaction already carries an invoice marker
	// - ErrLedgerUnavailable: if the store cannot be reached
	MarkInvoiced(ctx context.Context, transactionID, invoiceID, url string) error

	// ExistsInvoiceID reports whether an invoice ID is already recorded in the
	// ledger. Used for the under-lock re-verify step during allocation.
	//
	// Possible errors:
	// - ErrLedgerUnavailable: if the store cannot be reached
	ExistsInvoiceID(ctx context.Context, invoiceID string) (bool, error)

	// ScanInvoiceSequences returns the sequence numbers already used for IDs
	// with the given prefix, scanning only rows processed after the cutoff.
	// Results may be stale; callers must re-verify before claiming.
	//
	// Possible errors:
	// - ErrLedgerUnavailable: if the store cannot be reached
	ScanInvoiceSequences(ctx context.Context, prefix string, since time.Time) ([]int, error)
}
