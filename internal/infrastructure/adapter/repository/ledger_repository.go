package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/model"
)

// LedgerRepository implements the LedgerStore port on GORM/Postgres
type LedgerRepository struct {
	db     *gorm.DB
	logger core.Logger
}

// NewLedgerRepository creates a ledger repository
func NewLedgerRepository(db *gorm.DB, logger core.Logger) *LedgerRepository {
	return &LedgerRepository{db: db, logger: logger}
}

// ReadUnresolved returns transactions without an invoice marker, oldest first
func (r *LedgerRepository) ReadUnresolved(ctx context.Context) ([]*entity.Transaction, error) {
	var rows []model.LedgerTransaction
	err := r.db.WithContext(ctx).
		Where("invoice_generated = ''").
		Order("processed_on ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: reading unresolved transactions: %s", errs.ErrLedgerUnavailable, err.Error())
	}

	transactions := make([]*entity.Transaction, 0, len(rows))
	for i := range rows {
		transactions = append(transactions, toEntity(&rows[i]))
	}
	return transactions, nil
}

// FindByOrderID returns all transactions sharing an order ID
func (r *LedgerRepository) FindByOrderID(ctx context.Context, orderID string) ([]*entity.Transaction, error) {
	var rows []model.LedgerTransaction
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: reading order %s: %s", errs.ErrLedgerUnavailable, orderID, err.Error())
	}

	transactions := make([]*entity.Transaction, 0, len(rows))
	for i := range rows {
		transactions = append(transactions, toEntity(&rows[i]))
	}
	return transactions, nil
}

// MarkInvoiced writes the invoice fields exactly once. The WHERE clause on
// the empty marker makes the write conditional, so a row that lost the race
// to another run reports ErrAlreadyInvoiced instead of being overwritten.
func (r *LedgerRepository) MarkInvoiced(ctx context.Context, transactionID, invoiceID, url string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.LedgerTransaction{}).
		Where("transaction_id = ? AND invoice_generated = ''", transactionID).
		Updates(map[string]any{
			"invoice_generated": now.Format("2006-01-02 15:04:05"),
			"invoice_id":        invoiceID,
			"invoice_url":       url,
			"updated_at":        now,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: marking %s invoiced: %s", errs.ErrLedgerUnavailable, transactionID, result.Error.Error())
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// No row updated: either the transaction is unknown or already invoiced
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&model.LedgerTransaction{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("%w: checking %s: %s", errs.ErrLedgerUnavailable, transactionID, err.Error())
	}
	if count == 0 {
		return errs.ErrNotFound
	}
	return errs.ErrAlreadyInvoiced
}

// ExistsInvoiceID reports whether an invoice ID is recorded in the ledger
func (r *LedgerRepository) ExistsInvoiceID(ctx context.Context, invoiceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.LedgerTransaction{}).
		Where("invoice_id = ?", invoiceID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: checking invoice ID %s: %s", errs.ErrLedgerUnavailable, invoiceID, err.Error())
	}
	return count > 0, nil
}

// ScanInvoiceSequences returns the sequence numbers used for IDs with the
// given prefix among rows processed after the cutoff. The bounded window
// keeps the scan cheap; allocation re-verifies exact candidates anyway.
func (r *LedgerRepository) ScanInvoiceSequences(ctx context.Context, prefix string, since time.Time) ([]int, error) {
	var invoiceIDs []string
	err := r.db.WithContext(ctx).
		Model(&model.LedgerTransaction{}).
		Where("invoice_id LIKE ? AND processed_on >= ?", prefix+"%", since).
		Pluck("invoice_id", &invoiceIDs).Error
	if err != nil {
		return nil, fmt.Errorf("%w: scanning sequences for %s: %s", errs.ErrLedgerUnavailable, prefix, err.Error())
	}

	sequences := make([]int, 0, len(invoiceIDs))
	for _, id := range invoiceIDs {
		suffix := strings.TrimPrefix(id, prefix)
		if sequence, err := strconv.Atoi(suffix); err == nil {
			sequences = append(sequences, sequence)
		}
	}
	return sequences, nil
}

// toEntity converts a database row to the domain transaction
func toEntity(row *model.LedgerTransaction) *entity.Transaction {
	formType, _ := entity.NormalizeFormType(row.FormType)
	return &entity.Transaction{
		TransactionID:    row.TransactionID,
		OrderID:          row.OrderID,
		ProcessedOn:      row.ProcessedOn,
		Requestor:        row.Requestor,
		Approver:         row.Approver,
		Organization:     row.Organization,
		FormType:         formType,
		Amount:           row.Amount,
		Description:      row.Description,
		FiscalQuarter:    row.FiscalQuarter,
		InvoiceGenerated: row.InvoiceGenerated,
		InvoiceID:        row.InvoiceID,
		InvoiceURL:       row.InvoiceURL,
	}
}

// isNotFound reports whether an error is gorm's record-not-found
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
