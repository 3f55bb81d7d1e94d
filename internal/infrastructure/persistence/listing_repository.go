package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// GormListingRepository implements listing.Repository using GORM
type GormListingRepository struct {
	db *gorm.DB
}

// NewGormListingRepository creates a new GormListingRepository
func NewGormListingRepository(db *gorm.DB) *GormListingRepository {
	return &GormListingRepository{db: db}
}

// FindByID finds a listing by ID within an account
func (r *GormListingRepository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*listing.Record, error) {
	var rec listing.Record
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, id).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByExternalID finds a listing by its marketplace item ID
func (r *GormListingRepository) FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*listing.Record, error) {
	var rec listing.Record
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindByExternalIDs bulk-loads existing listings keyed by external ID
func (r *GormListingRepository) FindByExternalIDs(ctx context.Context, accountID uuid.UUID, externalIDs []string) (map[string]*listing.Record, error) {
	result := make(map[string]*listing.Record, len(externalIDs))
	if len(externalIDs) == 0 {
		return result, nil
	}

	const chunkSize = 500
	for start := 0; start < len(externalIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(externalIDs) {
			end = len(externalIDs)
		}
		var recs []listing.Record
		if err := r.db.WithContext(ctx).
			Where("account_id = ? AND external_id IN ?", accountID, externalIDs[start:end]).
			Find(&recs).Error; err != nil {
			return nil, err
		}
		for i := range recs {
			result[recs[i].ExternalID] = &recs[i]
		}
	}
	return result, nil
}

// ExistsByExternalID reports whether a listing with the external ID exists
func (r *GormListingRepository) ExistsByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&listing.Record{}).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll lists listings for an account with optional status filtering
func (r *GormListingRepository) FindAll(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]listing.Record, int64, error) {
	base := applyRecordFilters(
		r.db.WithContext(ctx).Model(&listing.Record{}).Where("account_id = ?", accountID),
		filter,
	)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []listing.Record
	query := applyPagination(base.Session(&gorm.Session{}), filter, listingSortColumns)
	if err := query.Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// CountByStatus returns record counts grouped by status
func (r *GormListingRepository) CountByStatus(ctx context.Context, accountID uuid.UUID) (map[string]int, error) {
	var rows []statusCount
	if err := r.db.WithContext(ctx).Model(&listing.Record{}).
		Select("status, count(*) as count").
		Where("account_id = ?", accountID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Save creates or updates a single listing and its pending history
func (r *GormListingRepository) Save(ctx context.Context, rec *listing.Record) error {
	entries := rec.TakeHistory()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(rec).Error; err != nil {
			return err
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// CommitBatch atomically writes one batch of inserts and updates together with
// their status history
func (r *GormListingRepository) CommitBatch(ctx context.Context, accountID uuid.UUID, inserts, updates []*listing.Record, entries []history.Entry) error {
	if len(inserts) == 0 && len(updates) == 0 && len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(inserts) > 0 {
			if err := tx.Create(&inserts).Error; err != nil {
				return err
			}
		}
		for _, rec := range updates {
			res := tx.Model(&listing.Record{}).
				Where("account_id = ? AND id = ? AND version = ?", accountID, rec.ID, rec.Version).
				Updates(map[string]interface{}{
					"title":              rec.Title,
					"price":              rec.Price,
					"currency":           rec.Currency,
					"quantity_available": rec.QuantityAvailable,
					"quantity_sold":      rec.QuantitySold,
					"watch_count":        rec.WatchCount,
					"view_count":         rec.ViewCount,
					"status":             rec.Status,
					"version":            rec.Version + 1,
					"updated_at":         rec.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Listing was modified by another transaction")
			}
		}
		if len(entries) > 0 {
			if err := tx.Create(&entries).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

var listingSortColumns = map[string]bool{
	"created_at":         true,
	"updated_at":         true,
	"external_id":        true,
	"status":             true,
	"price":              true,
	"quantity_available": true,
}
