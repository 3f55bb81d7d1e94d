package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// GormHistoryRepository implements history.Repository using GORM
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new GormHistoryRepository
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// Append persists entries in order
func (r *GormHistoryRepository) Append(ctx context.Context, entries ...history.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// FindByRecord returns the entries for one record, oldest first
func (r *GormHistoryRepository) FindByRecord(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind, recordID uuid.UUID) ([]history.Entry, error) {
	var entries []history.Entry
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND kind = ? AND record_id = ?", accountID, kind, recordID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
