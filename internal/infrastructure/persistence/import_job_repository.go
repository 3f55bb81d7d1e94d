package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sellerhub/backend/internal/domain/importjob"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// GormImportJobRepository implements importjob.Repository using GORM
type GormImportJobRepository struct {
	db *gorm.DB
}

// NewGormImportJobRepository creates a new GormImportJobRepository
func NewGormImportJobRepository(db *gorm.DB) *GormImportJobRepository {
	return &GormImportJobRepository{db: db}
}

// FindByID finds an import job by ID within an account
func (r *GormImportJobRepository) FindByID(ctx context.Context, accountID, id uuid.UUID) (*importjob.Job, error) {
	var job importjob.Job
	if err := r.db.WithContext(ctx).
		Where("account_id = ? AND id = ?", accountID, id).
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// FindByAccount lists import jobs for an account, newest first
func (r *GormImportJobRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]importjob.Job, int64, error) {
	base := r.db.WithContext(ctx).Model(&importjob.Job{}).Where("account_id = ?", accountID)
	for key, value := range filter.Filters {
		switch key {
		case "kind":
			base = base.Where("kind = ?", value)
		case "phase":
			base = base.Where("phase = ?", value)
		}
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []importjob.Job
	if err := base.Session(&gorm.Session{}).
		Order("started_at DESC").
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// Save creates or updates an import job
func (r *GormImportJobRepository) Save(ctx context.Context, job *importjob.Job) error {
	return r.db.WithContext(ctx).Save(job).Error
}
