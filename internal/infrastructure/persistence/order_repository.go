package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by ID within an account
func (r *GormOrderRepository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*order.Record, error) {
	var rec order.Record
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

// FindByExternalID finds an order by its marketplace-assigned ID
func (r *GormOrderRepository) FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*order.Record, error) {
	var rec order.Record
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

// FindByExternalIDs bulk-loads existing orders keyed by external ID
func (r *GormOrderRepository) FindByExternalIDs(ctx context.Context, accountID uuid.UUID, externalIDs []string) (map[string]*order.Record, error) {
	result := make(map[string]*order.Record, len(externalIDs))
	if len(externalIDs) == 0 {
		return result, nil
	}

	// Chunk the IN clause to stay under the driver's parameter limit
	const chunkSize = 500
	for start := 0; start < len(externalIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(externalIDs) {
			end = len(externalIDs)
		}
		var recs []order.Record
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

// ExistsByExternalID reports whether an order with the external ID exists
func (r *GormOrderRepository) ExistsByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&order.Record{}).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAll lists orders for an account with optional status filtering
func (r *GormOrderRepository) FindAll(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]order.Record, int64, error) {
	base := applyRecordFilters(
		r.db.WithContext(ctx).Model(&order.Record{}).Where("account_id = ?", accountID),
		filter,
	)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recs []order.Record
	query := applyPagination(base.Session(&gorm.Session{}), filter, orderSortColumns)
	if err := query.Find(&recs).Error; err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// CountByStatus returns record counts grouped by status
func (r *GormOrderRepository) CountByStatus(ctx context.Context, accountID uuid.UUID) (map[string]int, error) {
	var rows []statusCount
	if err := r.db.WithContext(ctx).Model(&order.Record{}).
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

// Save creates or updates a single order and its pending history
func (r *GormOrderRepository) Save(ctx context.Context, rec *order.Record) error {
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
func (r *GormOrderRepository) CommitBatch(ctx context.Context, accountID uuid.UUID, inserts, updates []*order.Record, entries []history.Entry) error {
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
			res := tx.Model(&order.Record{}).
				Where("account_id = ? AND id = ? AND version = ?", accountID, rec.ID, rec.Version).
				Updates(map[string]interface{}{
					"buyer_name":      rec.BuyerName,
					"buyer_email":     rec.BuyerEmail,
					"total_amount":    rec.TotalAmount,
					"currency":        rec.Currency,
					"status":          rec.Status,
					"carrier":         rec.Carrier,
					"tracking_number": rec.TrackingNumber,
					"ordered_at":      rec.OrderedAt,
					"shipped_at":      rec.ShippedAt,
					"delivered_at":    rec.DeliveredAt,
					"notes":           rec.Notes,
					"version":         rec.Version + 1,
					"updated_at":      rec.UpdatedAt,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return shared.NewDomainError("OPTIMISTIC_LOCK_FAILED", "Order was modified by another transaction")
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

// statusCount is the scan target for grouped status counts
type statusCount struct {
	Status string
	Count  int
}

var orderSortColumns = map[string]bool{
	"created_at":   true,
	"updated_at":   true,
	"ordered_at":   true,
	"external_id":  true,
	"status":       true,
	"total_amount": true,
}

// applyRecordFilters applies the shared record filters without pagination
func applyRecordFilters(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "statuses":
			if statuses, ok := value.([]string); ok && len(statuses) > 0 {
				query = query.Where("status IN ?", statuses)
			}
		case "external_id":
			query = query.Where("external_id = ?", value)
		case "updated_since":
			if t, ok := value.(time.Time); ok {
				query = query.Where("updated_at >= ?", t)
			}
		}
	}
	return query
}

// applyPagination applies ordering and pagination. Sort columns are
// whitelisted to keep user input out of the ORDER BY clause.
func applyPagination(query *gorm.DB, filter shared.Filter, sortable map[string]bool) *gorm.DB {
	orderBy := filter.OrderBy
	if !sortable[orderBy] {
		orderBy = "created_at"
	}
	orderDir := "DESC"
	if strings.ToLower(filter.OrderDir) == "asc" {
		orderDir = "ASC"
	}
	return query.
		Order(orderBy + " " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.Limit())
}
