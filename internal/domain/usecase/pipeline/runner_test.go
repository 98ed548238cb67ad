package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/usecase"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/allocate"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/assemble"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/route"
	lockadapter "github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/lock"
	timeadapter "github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/time"
)

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) SetLevel(_ core.LogLevel)         {}
func (nopLogger) Debug(_ string, _ map[string]any) {}
func (nopLogger) Info(_ string, _ map[string]any)  {}
func (nopLogger) Warn(_ string, _ map[string]any)  {}
func (nopLogger) Error(_ string, _ map[string]any) {}
func (nopLogger) Flush() error                     { return nil }

// fakeLedger backs the whole run: unresolved rows in, invoice markers out
type fakeLedger struct {
	unresolved []*entity.Transaction
	readErr    error
	marked     map[string]string // transaction ID -> invoice ID
	urls       map[string]string // transaction ID -> document URL
}

func newFakeLedger(unresolved ...*entity.Transaction) *fakeLedger {
	return &fakeLedger{
		unresolved: unresolved,
		marked:     make(map[string]string),
		urls:       make(map[string]string),
	}
}

func (l *fakeLedger) ReadUnresolved(context.Context) ([]*entity.Transaction, error) {
	if l.readErr != nil {
		return nil, l.readErr
	}
	return l.unresolved, nil
}

func (l *fakeLedger) FindByOrderID(context.Context, string) ([]*entity.Transaction, error) {
	return nil, nil
}

func (l *fakeLedger) MarkInvoiced(_ context.Context, transactionID, invoiceID, url string) error {
	l.marked[transactionID] = invoiceID
	l.urls[transactionID] = url
	return nil
}

func (l *fakeLedger) ExistsInvoiceID(_ context.Context, invoiceID string) (bool, error) {
	for _, id := range l.marked {
		if id == invoiceID {
			return true, nil
		}
	}
	return false, nil
}

func (l *fakeLedger) ScanInvoiceSequences(_ context.Context, prefix string, _ time.Time) ([]int, error) {
	var sequences []int
	for _, id := range l.marked {
		if parsed, err := entity.ParseInvoiceID(id); err == nil && parsed.Prefix() == prefix {
			sequences = append(sequences, parsed.Sequence)
		}
	}
	return sequences, nil
}

// fakeEnricher serves pre-built enrichments and tracks which IDs it saw
type fakeEnricher struct {
	results map[string]*entity.EnrichedTransaction
	fail    map[string]error
	seen    []string
}

func (e *fakeEnricher) Enrich(_ context.Context, tx *entity.Transaction) (*entity.EnrichedTransaction, error) {
	e.seen = append(e.seen, tx.TransactionID)
	if err, ok := e.fail[tx.TransactionID]; ok {
		return nil, err
	}
	return e.results[tx.TransactionID], nil
}

// failingAllocator rejects every allocation with a fixed error
type failingAllocator struct{ err error }

func (a *failingAllocator) Allocate(context.Context, *entity.EnrichedTransaction) (entity.InvoiceID, error) {
	return entity.InvoiceID{}, a.err
}

// failingClaims simulates an unreachable claim store for the sweep
type failingClaims struct{ persistence.ClaimStore }

func (failingClaims) SweepExpired(context.Context) (int, error) {
	return 0, errs.ErrStoreUnavailable
}

// stubRenderer returns a URL derived from the invoice ID
type stubRenderer struct{ rendered []string }

func (r *stubRenderer) Render(_ context.Context, invoice *usecase.Invoice) (string, error) {
	r.rendered = append(r.rendered, invoice.InvoiceID)
	return "https://docs/invoices/" + invoice.InvoiceID + ".pdf", nil
}

func ledgerTx(id, orderID string, form entity.FormType, amount string) *entity.Transaction {
	return &entity.Transaction{
		TransactionID: id,
		OrderID:       orderID,
		ProcessedOn:   time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC),
		Organization:  "Upper School",
		FormType:      form,
		Amount:        decimal.RequireFromString(amount),
	}
}

func enrichedFrom(tx *entity.Transaction, items ...entity.LineItem) *entity.EnrichedTransaction {
	return &entity.EnrichedTransaction{
		Transaction:      *tx,
		ResolvedDivision: entity.DivisionUpperSchool,
		RequestorName:    "Jane Doe",
		ApproverName:     "Mark Hall",
		LineItems:        items,
	}
}

func lineItem(number, quantity int, total string) entity.LineItem {
	totalPrice := decimal.RequireFromString(total)
	return entity.LineItem{
		ItemNumber: number,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		UnitPrice:  totalPrice.Div(decimal.NewFromInt(int64(quantity))).Round(2),
	}
}

type runnerFixture struct {
	ledger   *fakeLedger
	enricher *fakeEnricher
	renderer *stubRenderer
	claims   persistence.ClaimStore
	runner   *Runner
}

// newRunnerFixture wires a runner with a real router, batcher, allocator
// (memory locks and claims) and assembler around the fakes
func newRunnerFixture(ledger *fakeLedger, enricher *fakeEnricher) *runnerFixture {
	tp := timeadapter.NewRealTimeProvider()
	locks := lockadapter.NewMemoryLockProvider(tp)
	claims := lockadapter.NewMemoryClaimStore(tp)
	renderer := &stubRenderer{}

	cfg := allocate.DefaultConfig()
	cfg.Backoff = allocate.BackoffConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond}
	allocator := allocate.NewAllocator(ledger, locks, claims, &mapCache{data: map[string]any{}}, tp, nopLogger{}, cfg)

	fixture := &runnerFixture{ledger: ledger, enricher: enricher, renderer: renderer, claims: claims}
	fixture.runner = NewRunner(
		ledger,
		claims,
		enricher,
		route.NewRouter(nopLogger{}),
		route.NewBatcher(25, nopLogger{}),
		allocator,
		assemble.NewAssembler(ledger, renderer, tp, nopLogger{}),
		tp,
		nopLogger{},
	)
	return fixture
}

type mapCache struct{ data map[string]any }

func (c *mapCache) Get(key string) (any, bool) { value, ok := c.data[key]; return value, ok }
func (c *mapCache) Set(key string, value any, _ time.Duration) { c.data[key] = value }
func (c *mapCache) Delete(key string)                          { delete(c.data, key) }

func TestRunnerRun(t *testing.T) {
	ctx := context.Background()

	t.Run("Full pass produces batch and single invoices", func(t *testing.T) {
		t1 := ledgerTx("T1", "114-2233", entity.FormAmazon, "239.98")
		t2 := ledgerTx("T2", "114-2233", entity.FormAmazon, "60.00")
		t3 := ledgerTx("T3", "", entity.FormAdmin, "45.00")
		ledger := newFakeLedger(t1, t2, t3)

		enricher := &fakeEnricher{results: map[string]*entity.EnrichedTransaction{
			"T1": enrichedFrom(t1, lineItem(1, 2, "239.98")),
			"T2": enrichedFrom(t2, lineItem(1, 1, "60.00")),
			"T3": enrichedFrom(t3, lineItem(1, 1, "45.00")),
		}}
		fixture := newRunnerFixture(ledger, enricher)

		report, err := fixture.runner.Run(ctx)
		require.NoError(t, err)
		assert.True(t, report.Succeeded())
		assert.NotEmpty(t, report.RunID)
		assert.Equal(t, 3, report.TransactionsRead)
		assert.Empty(t, report.Failures)

		require.Len(t, report.Invoices, 2)
		batch := report.Invoices[0]
		assert.Equal(t, "US-AMZ-0209-01", batch.InvoiceID)
		assert.Equal(t, "vendor-batch", batch.Template)
		assert.Equal(t, []string{"T1", "T2"}, batch.Transactions)
		assert.Equal(t, "299.98", batch.TotalAmount)

		single := report.Invoices[1]
		assert.Equal(t, "US-AD-0209-01", single.InvoiceID)
		assert.Equal(t, "admin", single.Template)
		assert.Equal(t, []string{"T3"}, single.Transactions)

		assert.Equal(t, "US-AMZ-0209-01", ledger.marked["T1"])
		assert.Equal(t, "US-AMZ-0209-01", ledger.marked["T2"])
		assert.Equal(t, "US-AD-0209-01", ledger.marked["T3"])
		assert.Equal(t, "https://docs/invoices/US-AMZ-0209-01.pdf", ledger.urls["T1"])
	})

	t.Run("Already invoiced rows are skipped before enrichment", func(t *testing.T) {
		done := ledgerTx("T1", "", entity.FormAdmin, "45.00")
		done.InvoiceGenerated = "2026-02-08 12:00:00"
		fresh := ledgerTx("T2", "", entity.FormAdmin, "30.00")
		ledger := newFakeLedger(done, fresh)

		enricher := &fakeEnricher{results: map[string]*entity.EnrichedTransaction{
			"T2": enrichedFrom(fresh, lineItem(1, 1, "30.00")),
		}}
		fixture := newRunnerFixture(ledger, enricher)

		report, err := fixture.runner.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"T2"}, enricher.seen)
		assert.NotContains(t, ledger.marked, "T1")
		require.Len(t, report.Invoices, 1)
	})

	t.Run("Enrichment failure is scoped to its transaction", func(t *testing.T) {
		t1 := ledgerTx("T1", "", entity.FormAdmin, "45.00")
		t2 := ledgerTx("T2", "", entity.FormAdmin, "30.00")
		ledger := newFakeLedger(t1, t2)

		enricher := &fakeEnricher{
			results: map[string]*entity.EnrichedTransaction{
				"T2": enrichedFrom(t2, lineItem(1, 1, "30.00")),
			},
			fail: map[string]error{"T1": errs.ErrFormRowNotFound},
		}
		fixture := newRunnerFixture(ledger, enricher)

		report, err := fixture.runner.Run(ctx)
		require.NoError(t, err)
		assert.True(t, report.Succeeded())
		require.Len(t, report.Failures, 1)
		assert.Equal(t, "T1", report.Failures[0].TransactionID)
		require.Len(t, report.Invoices, 1)
		assert.Equal(t, []string{"T2"}, report.Invoices[0].Transactions)
	})

	t.Run("Unreachable store aborts the run", func(t *testing.T) {
		t1 := ledgerTx("T1", "", entity.FormAdmin, "45.00")
		ledger := newFakeLedger(t1)
		enricher := &fakeEnricher{fail: map[string]error{"T1": errs.ErrStoreUnavailable}}
		fixture := newRunnerFixture(ledger, enricher)

		report, err := fixture.runner.Run(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
		assert.True(t, report.Aborted)
		assert.NotEmpty(t, report.AbortError)
		assert.Empty(t, report.Invoices)
	})

	t.Run("Ledger read failure aborts the run", func(t *testing.T) {
		ledger := newFakeLedger()
		ledger.readErr = errs.ErrLedgerUnavailable
		fixture := newRunnerFixture(ledger, &fakeEnricher{})

		report, err := fixture.runner.Run(ctx)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrLedgerUnavailable)
		assert.True(t, report.Aborted)
	})

	t.Run("Allocation failure records every batch member", func(t *testing.T) {
		t1 := ledgerTx("T1", "114-2233", entity.FormAmazon, "10.00")
		t2 := ledgerTx("T2", "114-2233", entity.FormAmazon, "20.00")
		ledger := newFakeLedger(t1, t2)
		enricher := &fakeEnricher{results: map[string]*entity.EnrichedTransaction{
			"T1": enrichedFrom(t1, lineItem(1, 1, "10.00")),
			"T2": enrichedFrom(t2, lineItem(1, 1, "20.00")),
		}}

		fixture := newRunnerFixture(ledger, enricher)
		tp := timeadapter.NewRealTimeProvider()
		fixture.runner = NewRunner(
			ledger,
			lockadapter.NewMemoryClaimStore(tp),
			enricher,
			route.NewRouter(nopLogger{}),
			route.NewBatcher(25, nopLogger{}),
			&failingAllocator{err: errs.ErrSequenceExhausted},
			assemble.NewAssembler(ledger, fixture.renderer, tp, nopLogger{}),
			tp,
			nopLogger{},
		)

		report, err := fixture.runner.Run(ctx)
		require.NoError(t, err)
		assert.True(t, report.Succeeded())
		assert.Empty(t, report.Invoices)
		require.Len(t, report.Failures, 2)
		assert.Empty(t, ledger.marked)
	})

	t.Run("Claim sweep failure does not stop the run", func(t *testing.T) {
		t1 := ledgerTx("T1", "", entity.FormAdmin, "45.00")
		ledger := newFakeLedger(t1)
		enricher := &fakeEnricher{results: map[string]*entity.EnrichedTransaction{
			"T1": enrichedFrom(t1, lineItem(1, 1, "45.00")),
		}}

		fixture := newRunnerFixture(ledger, enricher)
		tp := timeadapter.NewRealTimeProvider()
		cfg := allocate.DefaultConfig()
		cfg.Backoff = allocate.BackoffConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond}
		claims := lockadapter.NewMemoryClaimStore(tp)
		allocator := allocate.NewAllocator(ledger, lockadapter.NewMemoryLockProvider(tp), claims,
			&mapCache{data: map[string]any{}}, tp, nopLogger{}, cfg)
		fixture.runner = NewRunner(
			ledger,
			failingClaims{ClaimStore: claims},
			enricher,
			route.NewRouter(nopLogger{}),
			route.NewBatcher(25, nopLogger{}),
			allocator,
			assemble.NewAssembler(ledger, fixture.renderer, tp, nopLogger{}),
			tp,
			nopLogger{},
		)

		report, err := fixture.runner.Run(ctx)
		require.NoError(t, err)
		assert.True(t, report.Succeeded())
		assert.Zero(t, report.SweptClaims)
		require.Len(t, report.Invoices, 1)
	})
}
