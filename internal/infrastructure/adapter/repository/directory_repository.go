package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/model"
)

// DirectoryRepository implements the DirectoryStore port on GORM/Postgres
type DirectoryRepository struct {
	db *gorm.DB
}

// NewDirectoryRepository creates a directory repository
func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// LookupDisplayName returns the display name for an identity, or nil when
// the directory has no entry. A miss is expected for departed staff; the
// enrichment engine falls back to its heuristic.
func (r *DirectoryRepository) LookupDisplayName(ctx context.Context, identity string) (*persistence.DisplayName, error) {
	var row model.DirectoryUser
	err := r.db.WithContext(ctx).
		Where("identity = ?", identity).
		First(&row).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: directory lookup for %s: %s", errs.ErrStoreUnavailable, identity, err.Error())
	}
	return &persistence.DisplayName{
		FirstName: row.FirstName,
		LastName:  row.LastName,
	}, nil
}
