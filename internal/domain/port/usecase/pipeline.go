package usecase

import (
	"context"
	"time"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
)

// Enricher turns a ledger transaction into a render-ready enriched form.
// Enrichment is idempotent: enriching the same transaction twice yields
// value-equal line items.
type Enricher interface {
	Enrich(ctx context.Context, tx *entity.Transaction) (*entity.EnrichedTransaction, error)
}

// RouteResult partitions one pass's transactions by invoicing mode
type RouteResult struct {
	Batchable []*entity.EnrichedTransaction
	Single    []*entity.EnrichedTransaction
	Errors    []error
}

// Router classifies and groups enriched transactions. Routing never fails;
// in the worst case everything routes to Single.
type Router interface {
	Route(transactions []*entity.EnrichedTransaction) RouteResult
	Group(batchable []*entity.EnrichedTransaction) map[entity.GroupKey]*entity.Group
}

// Allocator claims a unique invoice ID for a transaction tuple.
// Two concurrent allocations for the same (division, form, date) tuple
// never receive the same final ID.
type Allocator interface {
	Allocate(ctx context.Context, tx *entity.EnrichedTransaction) (entity.InvoiceID, error)
}

// Invoice is the assembled, render-ready invoice data structure handed to
// the external renderer
type Invoice struct {
	InvoiceID     string
	Template      string
	Division      entity.Division
	FormType      entity.FormType
	IssuedOn      time.Time
	RequestorName string
	ApproverName  string
	LineItems     []entity.LineItem
	TotalAmount   string
	Transactions  []string // Member transaction IDs, ordered
	Metadata      map[string]string
}

// Renderer is the external rendering/storage collaborator. It accepts an
// assembled invoice and returns the storage URL of the rendered document.
type Renderer interface {
	Render(ctx context.Context, invoice *Invoice) (string, error)
}
