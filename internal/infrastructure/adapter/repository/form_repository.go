package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/model"
)

// FormRepository implements the FormStore port on GORM/Postgres
type FormRepository struct {
	db     *gorm.DB
	logger core.Logger
}

// NewFormRepository creates a form repository
func NewFormRepository(db *gorm.DB, logger core.Logger) *FormRepository {
	return &FormRepository{db: db, logger: logger}
}

// FindQueueEntryByTransactionID locates the intake queue entry for a
// transaction
func (r *FormRepository) FindQueueEntryByTransactionID(ctx context.Context, transactionID string) (*persistence.QueueEntry, error) {
	var row model.FormQueueEntry
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&row).Error
	if isNotFound(err) {
		return nil, errs.ErrQueueEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading queue entry for %s: %s", errs.ErrStoreUnavailable, transactionID, err.Error())
	}

	return &persistence.QueueEntry{
		TransactionID: row.TransactionID,
		ResponseRef:   row.ResponseRef,
		Requestor:     row.Requestor,
		SubmittedAt:   row.SubmittedAt,
	}, nil
}

// FindFormRowByResponseRef retrieves the raw form row behind a queue entry
func (r *FormRepository) FindFormRowByResponseRef(ctx context.Context, responseRef string) (*persistence.FormRow, error) {
	var row model.FormResponseRow
	err := r.db.WithContext(ctx).
		Where("response_ref = ?", responseRef).
		First(&row).Error
	if isNotFound(err) {
		return nil, errs.ErrFormRowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading form row %s: %s", errs.ErrStoreUnavailable, responseRef, err.Error())
	}
	return decodeFormRow(&row)
}

// FindFormRowByIdentityAndTime is the fallback lookup: the most recent
// submission by the given identity within the window at or before approxTime.
// Forms precede ledger approval, so the search never looks past it.
func (r *FormRepository) FindFormRowByIdentityAndTime(ctx context.Context, identity string, approxTime time.Time, window time.Duration) (*persistence.FormRow, error) {
	var row model.FormResponseRow
	err := r.db.WithContext(ctx).
		Where("submitter = ? AND submitted_at BETWEEN ? AND ?",
			identity, approxTime.Add(-window), approxTime).
		Order("submitted_at DESC").
		First(&row).Error
	if isNotFound(err) {
		return nil, errs.ErrFormRowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: fallback form lookup for %s: %s", errs.ErrStoreUnavailable, identity, err.Error())
	}
	return decodeFormRow(&row)
}

// decodeFormRow unpacks the JSON-encoded positional value list
func decodeFormRow(row *model.FormResponseRow) (*persistence.FormRow, error) {
	var values []string
	if row.Values != "" {
		if err := json.Unmarshal([]byte(row.Values), &values); err != nil {
			return nil, fmt.Errorf("%w: decoding form row %s: %s", errs.ErrStoreUnavailable, row.ResponseRef, err.Error())
		}
	}
	return &persistence.FormRow{
		ResponseRef: row.ResponseRef,
		SubmittedAt: row.SubmittedAt,
		Values:      values,
	}, nil
}
