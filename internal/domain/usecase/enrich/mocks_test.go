package enrich

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// Test doubles for the persistence ports used by the enrichment engine.

type mockFormStore struct {
	mock.Mock
}

func (m *mockFormStore) FindQueueEntryByTransactionID(ctx context.Context, transactionID string) (*persistence.QueueEntry, error) {
	args := m.Called(ctx, transactionID)
	entry, _ := args.Get(0).(*persistence.QueueEntry)
	return entry, args.Error(1)
}

func (m *mockFormStore) FindFormRowByResponseRef(ctx context.Context, responseRef string) (*persistence.FormRow, error) {
	args := m.Called(ctx, responseRef)
	row, _ := args.Get(0).(*persistence.FormRow)
	return row, args.Error(1)
}

func (m *mockFormStore) FindFormRowByIdentityAndTime(ctx context.Context, identity string, approxTime time.Time, window time.Duration) (*persistence.FormRow, error) {
	args := m.Called(ctx, identity, approxTime, window)
	row, _ := args.Get(0).(*persistence.FormRow)
	return row, args.Error(1)
}

type mockLedgerStore struct {
	mock.Mock
}

func (m *mockLedgerStore) ReadUnresolved(ctx context.Context) ([]*entity.Transaction, error) {
	args := m.Called(ctx)
	transactions, _ := args.Get(0).([]*entity.Transaction)
	return transactions, args.Error(1)
}

func (m *mockLedgerStore) FindByOrderID(ctx context.Context, orderID string) ([]*entity.Transaction, error) {
	args := m.Called(ctx, orderID)
	transactions, _ := args.Get(0).([]*entity.Transaction)
	return transactions, args.Error(1)
}

func (m *mockLedgerStore) MarkInvoiced(ctx context.Context, transactionID, invoiceID, url string) error {
	args := m.Called(ctx, transactionID, invoiceID, url)
	return args.Error(0)
}

func (m *mockLedgerStore) ExistsInvoiceID(ctx context.Context, invoiceID string) (bool, error) {
	args := m.Called(ctx, invoiceID)
	return args.Bool(0), args.Error(1)
}

func (m *mockLedgerStore) ScanInvoiceSequences(ctx context.Context, prefix string, since time.Time) ([]int, error) {
	args := m.Called(ctx, prefix, since)
	sequences, _ := args.Get(0).([]int)
	return sequences, args.Error(1)
}

type mockDirectoryStore struct {
	mock.Mock
}

func (m *mockDirectoryStore) LookupDisplayName(ctx context.Context, identity string) (*persistence.DisplayName, error) {
	args := m.Called(ctx, identity)
	name, _ := args.Get(0).(*persistence.DisplayName)
	return name, args.Error(1)
}

// testCache is a TTL-less cache good enough for engine tests
type testCache struct {
	data map[string]any
}

func newTestCache() *testCache {
	return &testCache{data: make(map[string]any)}
}

func (c *testCache) Get(key string) (any, bool) {
	value, ok := c.data[key]
	return value, ok
}

func (c *testCache) Set(key string, value any, _ time.Duration) {
	c.data[key] = value
}

func (c *testCache) Delete(key string) {
	delete(c.data, key)
}

// nopLogger discards everything
type nopLogger struct{}

func (nopLogger) SetLevel(_ core.LogLevel)         {}
func (nopLogger) Debug(_ string, _ map[string]any) {}
func (nopLogger) Info(_ string, _ map[string]any)  {}
func (nopLogger) Warn(_ string, _ map[string]any)  {}
func (nopLogger) Error(_ string, _ map[string]any) {}
func (nopLogger) Flush() error                     { return nil }
