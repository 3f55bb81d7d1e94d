package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerhub/backend/internal/domain/account"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// GormAccountRepository implements account.Repository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by ID
func (r *GormAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var acc account.Account
	if err := r.db.WithContext(ctx).First(&acc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// FindAll lists accounts
func (r *GormAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]account.Account, error) {
	query := r.db.WithContext(ctx).Model(&account.Account{})
	if active, ok := filter.Filters["active"]; ok {
		query = query.Where("active = ?", active)
	}
	var accs []account.Account
	if err := query.
		Order("created_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&accs).Error; err != nil {
		return nil, err
	}
	return accs, nil
}

// Save creates or updates an account
func (r *GormAccountRepository) Save(ctx context.Context, acc *account.Account) error {
	return r.db.WithContext(ctx).Save(acc).Error
}
