package assemble

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
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/usecase"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/route"
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

// recordingLedger captures MarkInvoiced calls
type recordingLedger struct {
	marked map[string]string // transaction ID -> invoice ID
	fail   bool
}

func newRecordingLedger() *recordingLedger {
	return &recordingLedger{marked: make(map[string]string)}
}

func (l *recordingLedger) ReadUnresolved(context.Context) ([]*entity.Transaction, error) {
	return nil, nil
}

func (l *recordingLedger) FindByOrderID(context.Context, string) ([]*entity.Transaction, error) {
	return nil, nil
}

func (l *recordingLedger) MarkInvoiced(_ context.Context, transactionID, invoiceID, _ string) error {
	if l.fail {
		return errs.ErrLedgerUnavailable
	}
	l.marked[transactionID] = invoiceID
	return nil
}

func (l *recordingLedger) ExistsInvoiceID(context.Context, string) (bool, error) {
	return false, nil
}

func (l *recordingLedger) ScanInvoiceSequences(context.Context, string, time.Time) ([]int, error) {
	return nil, nil
}

// stubRenderer returns a fixed URL
type stubRenderer struct {
	url  string
	err  error
	last *usecase.Invoice
}

func (r *stubRenderer) Render(_ context.Context, invoice *usecase.Invoice) (string, error) {
	r.last = invoice
	if r.err != nil {
		return "", r.err
	}
	return r.url, nil
}

func member(id string, items ...entity.LineItem) *entity.EnrichedTransaction {
	return &entity.EnrichedTransaction{
		Transaction: entity.Transaction{
			TransactionID: id,
			OrderID:       "114-2233",
			FormType:      entity.FormAmazon,
		},
		ResolvedDivision: entity.DivisionUpperSchool,
		RequestorName:    "Jane Doe",
		ApproverName:     "Mark Hall",
		LineItems:        items,
		AdditionalInfo:   map[string]string{"submitter": "jane.doe@school.org"},
	}
}

func item(number int, total string) entity.LineItem {
	return entity.LineItem{
		ItemNumber: number,
		Quantity:   1,
		TotalPrice: decimal.RequireFromString(total),
	}
}

func batchKey() entity.GroupKey {
	return entity.GroupKey{
		OrderID:  "114-2233",
		Division: entity.DivisionUpperSchool,
		FormType: entity.FormAmazon,
	}
}

func TestAssemblerBuild(t *testing.T) {
	assembler := NewAssembler(newRecordingLedger(), &stubRenderer{url: "https://docs/1"}, timeadapter.NewRealTimeProvider(), nopLogger{})
	invoiceID := entity.NewInvoiceID(entity.DivisionUpperSchool, entity.FormAmazon, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), 1)

	t.Run("Multi-member batch", func(t *testing.T) {
		first := member("T1", item(1, "10.00"), item(2, "5.00"))
		first.CrossDivisionTotal = decimal.RequireFromString("45.00")
		batch := &route.Batch{
			Key:     batchKey(),
			Members: []*entity.EnrichedTransaction{first, member("T2", item(1, "30.00"))},
		}

		invoice := assembler.Build(batch, invoiceID)

		assert.Equal(t, "US-AMZ-0209-01", invoice.InvoiceID)
		assert.Equal(t, "vendor-batch", invoice.Template)
		assert.Equal(t, []string{"T1", "T2"}, invoice.Transactions)
		require.Len(t, invoice.LineItems, 3)
		assert.Equal(t, "45.00", invoice.TotalAmount)
		assert.Equal(t, "Jane Doe", invoice.RequestorName)
		assert.Equal(t, "114-2233", invoice.Metadata["orderId"])
		assert.Equal(t, "45.00", invoice.Metadata["crossDivisionTotal"])
	})

	t.Run("Single-member batch uses the single template", func(t *testing.T) {
		batch := &route.Batch{
			Key:     batchKey(),
			Members: []*entity.EnrichedTransaction{member("T1", item(1, "10.00"))},
		}
		invoice := assembler.Build(batch, invoiceID)
		assert.Equal(t, "vendor-single", invoice.Template)
	})

	t.Run("Form-specific single templates", func(t *testing.T) {
		for form, expected := range map[entity.FormType]string{
			entity.FormAdmin:      "admin",
			entity.FormFieldTrip:  "field-trip",
			entity.FormCurriculum: "curriculum",
			entity.FormOther:      "generic",
		} {
			m := member("T1", item(1, "10.00"))
			m.FormType = form
			batch := &route.Batch{
				Key:     entity.GroupKey{Division: entity.DivisionUpperSchool, FormType: form},
				Members: []*entity.EnrichedTransaction{m},
			}
			assert.Equal(t, expected, assembler.Build(batch, invoiceID).Template, "form %s", form)
		}
	})
}

func TestAssemblerFinalize(t *testing.T) {
	ctx := context.Background()
	invoiceID := entity.NewInvoiceID(entity.DivisionUpperSchool, entity.FormAmazon, time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC), 1)

	t.Run("Marks every member and fills invoice fields", func(t *testing.T) {
		ledger := newRecordingLedger()
		renderer := &stubRenderer{url: "https://docs/invoices/US-AMZ-0209-01.pdf"}
		assembler := NewAssembler(ledger, renderer, timeadapter.NewRealTimeProvider(), nopLogger{})

		members := []*entity.EnrichedTransaction{
			member("T1", item(1, "10.00")),
			member("T2", item(1, "5.00")),
		}
		batch := &route.Batch{Key: batchKey(), Members: members}
		invoice := assembler.Build(batch, invoiceID)

		url, err := assembler.Finalize(ctx, batch, invoice)
		require.NoError(t, err)
		assert.Equal(t, renderer.url, url)

		assert.Equal(t, "US-AMZ-0209-01", ledger.marked["T1"])
		assert.Equal(t, "US-AMZ-0209-01", ledger.marked["T2"])
		for _, m := range members {
			assert.True(t, m.Invoiced())
			assert.Equal(t, "US-AMZ-0209-01", m.InvoiceID)
			assert.Equal(t, url, m.InvoiceURL)
		}
	})

	t.Run("Already invoiced member is skipped", func(t *testing.T) {
		ledger := newRecordingLedger()
		assembler := NewAssembler(ledger, &stubRenderer{url: "https://docs/2"}, timeadapter.NewRealTimeProvider(), nopLogger{})

		done := member("T1", item(1, "10.00"))
		done.InvoiceGenerated = "2026-02-08 12:00:00"
		done.InvoiceID = "US-AMZ-0208-02"
		batch := &route.Batch{Key: batchKey(), Members: []*entity.EnrichedTransaction{done, member("T2", item(1, "5.00"))}}
		invoice := assembler.Build(batch, invoiceID)

		_, err := assembler.Finalize(ctx, batch, invoice)
		require.NoError(t, err)

		assert.NotContains(t, ledger.marked, "T1")
		assert.Equal(t, "US-AMZ-0208-02", done.InvoiceID, "existing marker untouched")
		assert.Contains(t, ledger.marked, "T2")
	})

	t.Run("Render failure leaves the ledger untouched", func(t *testing.T) {
		ledger := newRecordingLedger()
		assembler := NewAssembler(ledger, &stubRenderer{err: errs.ErrStoreUnavailable}, timeadapter.NewRealTimeProvider(), nopLogger{})

		batch := &route.Batch{Key: batchKey(), Members: []*entity.EnrichedTransaction{member("T1", item(1, "10.00"))}}
		invoice := assembler.Build(batch, invoiceID)

		_, err := assembler.Finalize(ctx, batch, invoice)
		require.Error(t, err)
		assert.Empty(t, ledger.marked)
	})
}
