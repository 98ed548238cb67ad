package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/usecase"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/assemble"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/route"
)

// Runner drives one full pipeline pass: read unresolved ledger rows, enrich,
// route, allocate IDs, assemble and file invoices. Failures stay scoped to
// their transaction; only an unreachable store aborts the run. Multiple
// runners may execute concurrently against the same shared stores.
type Runner struct {
	ledger    persistence.LedgerStore
	claims    persistence.ClaimStore
	enricher  usecase.Enricher
	router    usecase.Router
	batcher   *route.Batcher
	allocator usecase.Allocator
	assembler *assemble.Assembler

	timeProvider core.TimeProvider
	logger       core.Logger
}

// NewRunner wires a pipeline runner
func NewRunner(
	ledger persistence.LedgerStore,
	claims persistence.ClaimStore,
	enricher usecase.Enricher,
	router usecase.Router,
	batcher *route.Batcher,
	allocator usecase.Allocator,
	assembler *assemble.Assembler,
	timeProvider core.TimeProvider,
	logger core.Logger,
) *Runner {
	return &Runner{
		ledger:       ledger,
		claims:       claims,
		enricher:     enricher,
		router:       router,
		batcher:      batcher,
		allocator:    allocator,
		assembler:    assembler,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Run executes one pipeline pass and returns its report. The returned error
// is non-nil only when the run aborted structurally; per-transaction
// failures live in the report.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: r.timeProvider.Now(),
	}
	defer func() {
		report.FinishedAt = r.timeProvider.Now()
	}()

	r.logger.Info("Pipeline run started", map[string]any{"run_id": report.RunID})

	// Expired claims are leases, not records; sweep them opportunistically
	// at the start of each pass
	if swept, err := r.claims.SweepExpired(ctx); err != nil {
		r.logger.Warn("Claim sweep failed, continuing", map[string]any{
			"run_id": report.RunID,
			"error":  err.Error(),
		})
	} else {
		report.SweptClaims = swept
	}

	transactions, err := r.ledger.ReadUnresolved(ctx)
	if err != nil {
		return r.abort(report, err)
	}
	report.TransactionsRead = len(transactions)

	enriched := make([]*entity.EnrichedTransaction, 0, len(transactions))
	for _, tx := range transactions {
		if tx.Invoiced() {
			// At-most-once invoicing: a marker means another run got here first
			continue
		}
		result, err := r.enricher.Enrich(ctx, tx)
		if err != nil {
			if errs.IsFatalForRun(err) {
				return r.abort(report, err)
			}
			report.RecordFailure(tx.TransactionID, err)
			continue
		}
		enriched = append(enriched, result)
	}

	routed := r.router.Route(enriched)
	for _, err := range routed.Errors {
		r.logger.Warn("Routing diagnostic", map[string]any{
			"run_id": report.RunID,
			"error":  err.Error(),
		})
	}

	for _, group := range route.SortedGroups(r.router.Group(routed.Batchable)) {
		for _, batch := range r.batcher.Split(group) {
			r.processBatch(ctx, batch, report)
		}
	}
	for _, tx := range routed.Single {
		batch := &route.Batch{Key: entity.KeyFor(tx), Members: []*entity.EnrichedTransaction{tx}}
		r.processBatch(ctx, batch, report)
	}

	r.logger.Info("Pipeline run finished", map[string]any{
		"run_id":   report.RunID,
		"read":     report.TransactionsRead,
		"invoices": len(report.Invoices),
		"failed":   len(report.Failures),
	})
	return report, nil
}

// processBatch allocates an ID for one batch and assembles its invoice.
// Any failure is recorded against every member transaction and the run
// moves on.
func (r *Runner) processBatch(ctx context.Context, batch *route.Batch, report *RunReport) {
	first := batch.Members[0]

	invoiceID, err := r.allocator.Allocate(ctx, first)
	if err != nil {
		r.recordBatchFailure(batch, report, err)
		return
	}

	invoice := r.assembler.Build(batch, invoiceID)
	url, err := r.assembler.Finalize(ctx, batch, invoice)
	if err != nil {
		r.recordBatchFailure(batch, report, err)
		return
	}

	report.Invoices = append(report.Invoices, InvoiceRecord{
		InvoiceID:    invoice.InvoiceID,
		URL:          url,
		Template:     invoice.Template,
		Transactions: invoice.Transactions,
		TotalAmount:  invoice.TotalAmount,
	})
}

func (r *Runner) recordBatchFailure(batch *route.Batch, report *RunReport, err error) {
	for _, member := range batch.Members {
		report.RecordFailure(member.TransactionID, err)
	}
	r.logger.Error("Batch failed", map[string]any{
		"group":        batch.Key.String(),
		"transactions": len(batch.Members),
		"error":        err.Error(),
	})
}

func (r *Runner) abort(report *RunReport, err error) (*RunReport, error) {
	report.Aborted = true
	report.AbortError = err.Error()
	r.logger.Error("Pipeline run aborted", map[string]any{
		"run_id": report.RunID,
		"error":  err.Error(),
	})
	return report, err
}
