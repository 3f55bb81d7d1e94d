package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// Repository provides account-scoped access to order records
type Repository interface {
	// FindByID finds an order by ID within an account
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*Record, error)
	// FindByExternalID finds an order by its marketplace-assigned ID
	FindByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (*Record, error)
	// FindByExternalIDs bulk-loads existing orders keyed by external ID
	FindByExternalIDs(ctx context.Context, accountID uuid.UUID, externalIDs []string) (map[string]*Record, error)
	// ExistsByExternalID reports whether an order with the external ID exists
	ExistsByExternalID(ctx context.Context, accountID uuid.UUID, externalID string) (bool, error)
	// FindAll lists orders for an account with optional status filtering
	FindAll(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]Record, int64, error)
	// CountByStatus returns record counts grouped by status
	CountByStatus(ctx context.Context, accountID uuid.UUID) (map[string]int, error)
	// Save creates or updates a single order and its pending history
	Save(ctx context.Context, rec *Record) error
	// CommitBatch atomically writes one batch of inserts and updates together
	// with their status history. All-or-nothing for the batch, independent of
	// other batches.
	CommitBatch(ctx context.Context, accountID uuid.UUID, inserts, updates []*Record, entries []history.Entry) error
}
