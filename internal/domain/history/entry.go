// Package history records status transitions as an immutable, append-only
// audit trail. Entries are created exactly once per transition by the state
// machine performing it and are never mutated or deleted.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/shared"
)

// SystemActor is the actor recorded for transitions performed by the engine
// itself (imports, inventory-driven auto-transitions).
const SystemActor = "system"

// Entry is one recorded status transition
type Entry struct {
	ID         uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID  uuid.UUID         `gorm:"type:uuid;not null;index:idx_status_history_record,priority:1" json:"account_id"`
	Kind       shared.EntityKind `gorm:"type:varchar(16);not null;index:idx_status_history_record,priority:2" json:"kind"`
	RecordID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_status_history_record,priority:3" json:"record_id"`
	FromStatus *string           `gorm:"type:varchar(32)" json:"from_status,omitempty"`
	ToStatus   string            `gorm:"type:varchar(32);not null" json:"to_status"`
	Reason     string            `gorm:"type:varchar(500)" json:"reason,omitempty"`
	Actor      string            `gorm:"type:varchar(64);not null" json:"actor"`
	System     bool              `gorm:"not null;default:false" json:"system"`
	CreatedAt  time.Time         `json:"created_at"`
}

// TableName returns the table name for GORM
func (Entry) TableName() string {
	return "status_history"
}

// NewEntry creates a transition entry. fromStatus is nil for record creation.
func NewEntry(accountID uuid.UUID, kind shared.EntityKind, recordID uuid.UUID, fromStatus *string, toStatus, reason, actor string, system bool) Entry {
	if actor == "" {
		actor = SystemActor
		system = true
	}
	return Entry{
		ID:         uuid.New(),
		AccountID:  accountID,
		Kind:       kind,
		RecordID:   recordID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
		Reason:     reason,
		Actor:      actor,
		System:     system,
		CreatedAt:  time.Now(),
	}
}

// Repository provides append-only access to status history
type Repository interface {
	// Append persists entries; callers batching writes should prefer the
	// record repositories' CommitBatch, which appends in the same transaction.
	Append(ctx context.Context, entries ...Entry) error
	// FindByRecord returns the entries for one record, oldest first
	FindByRecord(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind, recordID uuid.UUID) ([]Entry, error)
}
