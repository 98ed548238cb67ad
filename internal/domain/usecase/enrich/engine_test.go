package enrich

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

func newTestEngine(forms *mockFormStore, ledger *mockLedgerStore, directory *mockDirectoryStore) *Engine {
	return NewEngine(forms, ledger, directory, newTestCache(), nopLogger{}, DefaultConfig())
}

func baseTransaction() *entity.Transaction {
	return &entity.Transaction{
		TransactionID: "T1",
		OrderID:       "",
		ProcessedOn:   time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC),
		Requestor:     "jane.doe@school.org",
		Approver:      "mark.hall@school.org",
		Organization:  "Upper School",
		FormType:      entity.FormAmazon,
		Amount:        decimal.RequireFromString("239.98"),
		Description:   "Amazon order for lab",
	}
}

func TestEngineEnrich(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy path through the intake queue", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(&persistence.QueueEntry{TransactionID: "T1", ResponseRef: "resp-1"}, nil)
		forms.On("FindFormRowByResponseRef", ctx, "resp-1").
			Return(amazonRow([5]string{"USB-C Hub", "", "2", "119.99", "239.98"}), nil)
		directory.On("LookupDisplayName", ctx, "jane.doe@school.org").
			Return(&persistence.DisplayName{FirstName: "Jane", LastName: "Doe"}, nil)
		directory.On("LookupDisplayName", ctx, "mark.hall@school.org").
			Return(&persistence.DisplayName{FirstName: "Mark", LastName: "Hall"}, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)

		assert.True(t, enriched.IsEnriched)
		require.Len(t, enriched.LineItems, 1)
		assert.Equal(t, "Jane Doe", enriched.RequestorName)
		assert.Equal(t, "Mark Hall", enriched.ApproverName)
		assert.Equal(t, entity.DivisionUpperSchool, enriched.ResolvedDivision)
		assert.True(t, enriched.LineItemTotal().Equal(decimal.RequireFromString("239.98")))
		forms.AssertExpectations(t)
	})

	t.Run("Falls back to identity and time proximity", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(nil, errs.ErrQueueEntryNotFound)
		forms.On("FindFormRowByIdentityAndTime", ctx, "jane.doe@school.org", tx.ProcessedOn, engine.cfg.FallbackWindow).
			Return(amazonRow([5]string{"USB-C Hub", "", "2", "119.99", "239.98"}), nil)
		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)
		assert.True(t, enriched.IsEnriched)
		forms.AssertExpectations(t)
	})

	t.Run("Substitutes default item when no form row matches", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(nil, errs.ErrQueueEntryNotFound)
		forms.On("FindFormRowByIdentityAndTime", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errs.ErrFormRowNotFound)
		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)

		assert.False(t, enriched.IsEnriched)
		require.Len(t, enriched.LineItems, 1)
		assert.Equal(t, "MISC-1", enriched.LineItems[0].ItemID)
		assert.True(t, enriched.LineItemTotal().Equal(tx.Amount), "default item keeps the invoice balanced")
		assert.NotEmpty(t, enriched.Warnings)
	})

	t.Run("Unknown form type degrades to other", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()
		tx.FormType = "mystery-form"

		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)

		assert.Equal(t, entity.FormOther, enriched.FormType)
		assert.False(t, enriched.IsEnriched)
		assert.NotEmpty(t, enriched.Warnings)
		// No parser for "other", so the form store is never consulted
		forms.AssertNotCalled(t, "FindQueueEntryByTransactionID", mock.Anything, mock.Anything)
	})

	t.Run("Directory miss uses the heuristic name", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(nil, errs.ErrQueueEntryNotFound)
		forms.On("FindFormRowByIdentityAndTime", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errs.ErrFormRowNotFound)
		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe", enriched.RequestorName)
		assert.Equal(t, "Mark Hall", enriched.ApproverName)
	})

	t.Run("Cross-division total sums order siblings", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()
		tx.OrderID = "114-2233"

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(nil, errs.ErrQueueEntryNotFound)
		forms.On("FindFormRowByIdentityAndTime", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errs.ErrFormRowNotFound)
		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)
		ledger.On("FindByOrderID", ctx, "114-2233").Return([]*entity.Transaction{
			{Amount: decimal.RequireFromString("239.98")},
			{Amount: decimal.RequireFromString("60.02")},
		}, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)
		assert.True(t, enriched.CrossDivisionTotal.Equal(decimal.RequireFromString("300.00")))

		// Second enrichment of the same order hits the cache
		tx2 := baseTransaction()
		tx2.TransactionID = "T2"
		tx2.OrderID = "114-2233"
		forms.On("FindQueueEntryByTransactionID", ctx, "T2").
			Return(nil, errs.ErrQueueEntryNotFound)

		_, err = engine.Enrich(ctx, tx2)
		require.NoError(t, err)
		ledger.AssertNumberOfCalls(t, "FindByOrderID", 1)
	})

	t.Run("Unavailable store aborts enrichment", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(nil, errs.ErrStoreUnavailable)

		_, err := engine.Enrich(ctx, tx)
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrStoreUnavailable)
	})

	t.Run("Enriching twice yields value-equal line items", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(&persistence.QueueEntry{TransactionID: "T1", ResponseRef: "resp-1"}, nil)
		forms.On("FindFormRowByResponseRef", ctx, "resp-1").
			Return(amazonRow(
				[5]string{"USB-C Hub", "https://www.amazon.com/dp/B0C1234XYZ", "2", "119.99", "239.98"},
				[5]string{"HDMI Cable", "", "3", "8.50", "25.50"},
			), nil)
		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)

		// First pass runs with a cold cache, the repeat with a warm one
		first, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)
		second, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)

		assert.Equal(t, first.LineItems, second.LineItems)
		assert.Equal(t, first.RequestorName, second.RequestorName)
		assert.Equal(t, first.Warnings, second.Warnings)
	})

	t.Run("Line items beyond the cap are dropped with a warning", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		cfg := DefaultConfig()
		cfg.MaxLineItems = 2
		engine := NewEngine(forms, ledger, directory, newTestCache(), nopLogger{}, cfg)
		tx := baseTransaction()

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(&persistence.QueueEntry{TransactionID: "T1", ResponseRef: "resp-1"}, nil)
		forms.On("FindFormRowByResponseRef", ctx, "resp-1").
			Return(amazonRow(
				[5]string{"USB-C Hub", "", "2", "119.99", "239.98"},
				[5]string{"HDMI Cable", "", "3", "8.50", "25.50"},
				[5]string{"Mouse Pad", "", "1", "6.00", "6.00"},
			), nil)
		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)

		require.Len(t, enriched.LineItems, 2)
		assert.Equal(t, 1, enriched.LineItems[0].ItemNumber, "earliest slots survive the cap")
		assert.Equal(t, 2, enriched.LineItems[1].ItemNumber)
		assert.Contains(t, enriched.Warnings, "1 line items beyond cap dropped")
	})

	t.Run("Long description truncates on a rune boundary", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		cfg := DefaultConfig()
		cfg.MaxDescriptionLength = 12
		engine := NewEngine(forms, ledger, directory, newTestCache(), nopLogger{}, cfg)
		tx := baseTransaction()
		tx.Description = "Crème brûlée supplies for the bake sale"

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(nil, errs.ErrQueueEntryNotFound)
		forms.On("FindFormRowByIdentityAndTime", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errs.ErrFormRowNotFound)
		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)

		assert.Equal(t, "Crème brûlée", enriched.Description)
		assert.True(t, utf8.ValidString(enriched.Description))
		assert.Contains(t, enriched.Warnings, "description truncated")
	})

	t.Run("Amount outside range warns without rejecting", func(t *testing.T) {
		forms := new(mockFormStore)
		ledger := new(mockLedgerStore)
		directory := new(mockDirectoryStore)
		engine := newTestEngine(forms, ledger, directory)
		tx := baseTransaction()
		tx.Amount = decimal.RequireFromString("99999.00")

		forms.On("FindQueueEntryByTransactionID", ctx, "T1").
			Return(nil, errs.ErrQueueEntryNotFound)
		forms.On("FindFormRowByIdentityAndTime", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errs.ErrFormRowNotFound)
		directory.On("LookupDisplayName", ctx, mock.Anything).Return(nil, nil)

		enriched, err := engine.Enrich(ctx, tx)
		require.NoError(t, err)
		assert.NotEmpty(t, enriched.Warnings)
	})
}
