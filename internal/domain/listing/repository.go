package listing

import (
	"context"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// Repository provides account-scoped access to listing records
type Repository interface {
	// FindByID finds a listing by ID within an account
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*Record, error)
	// FindByExternalID finds a listing by its marketplace-assigned item ID
	FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*Record, error)
	// FindByExternalIDs bulk-loads existing listings keyed by external ID
	FindByExternalIDs(ctx context.Context, accountID uuid.UUID, externalIDs []string) (map[string]*Record, error)
	// ExistsByExternalID reports whether a listing with the external ID exists
	ExistsByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (bool, error)
	// FindAll lists listings for an account with optional status filtering
	FindAll(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]Record, int64, error)
	// CountByStatus returns record counts grouped by status
	CountByStatus(ctx context.Context, accountID uuid.UUID) (map[string]int, error)
	// Save creates or updates a single listing and its pending history
	Save(ctx context.Context, rec *Record) error
	// CommitBatch atomically writes one batch of inserts and updates together
	// with their status history
	CommitBatch(ctx context.Context, accountID uuid.UUID, inserts, updates []*Record, entries []history.Entry) error
}
