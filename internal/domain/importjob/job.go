// Package importjob tracks one reconciliation run from parsed rows to a
// durable, itemized outcome.
package importjob

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/shared"
)

// Phase represents the current phase of an import job. Phases advance in a
// fixed forward sequence; failed is an absorbing state reachable from any
// non-terminal phase.
type Phase string

const (
	PhaseParsing      Phase = "parsing"
	PhaseValidating   Phase = "validating"
	PhaseTransforming Phase = "transforming"
	PhasePersisting   Phase = "persisting"
	PhaseFinalizing   Phase = "finalizing"
	PhaseCompleted    Phase = "completed"
	PhaseFailed       Phase = "failed"
)

// FailureReasonCancelled is recorded when a job is cancelled between batches
const FailureReasonCancelled = "cancelled"

var phaseOrder = map[Phase]int{
	PhaseParsing:      0,
	PhaseValidating:   1,
	PhaseTransforming: 2,
	PhasePersisting:   3,
	PhaseFinalizing:   4,
	PhaseCompleted:    5,
}

// IsValid checks if the phase is valid
func (p Phase) IsValid() bool {
	if p == PhaseFailed {
		return true
	}
	_, ok := phaseOrder[p]
	return ok
}

// IsTerminal returns true if the job can no longer advance
func (p Phase) IsTerminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

// Job is one reconciliation run. Terminal once completed or failed, never
// reused.
type Job struct {
	shared.AccountAggregateRoot
	Kind          shared.EntityKind `gorm:"type:varchar(16);not null"`
	Phase         Phase             `gorm:"type:varchar(16);not null"`
	TotalRows     int               `gorm:"not null;default:0"`
	Inserted      int               `gorm:"not null;default:0"`
	Updated       int               `gorm:"not null;default:0"`
	Duplicates    int               `gorm:"not null;default:0"`
	Errored       int               `gorm:"not null;default:0"`
	FailureReason string            `gorm:"type:varchar(500)"`
	StartedAt     time.Time         `gorm:"not null"`
	FinishedAt    *time.Time
}

// TableName returns the table name for GORM
func (Job) TableName() string {
	return "import_jobs"
}

// New creates a job in the parsing phase
func New(accountID uuid.UUID, kind shared.EntityKind) (*Job, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTITY_KIND", fmt.Sprintf("Unknown entity kind %q", kind))
	}
	return &Job{
		AccountAggregateRoot: shared.NewAccountAggregateRoot(accountID),
		Kind:                 kind,
		Phase:                PhaseParsing,
		StartedAt:            time.Now(),
	}, nil
}

// Advance moves the job to the next phase. Only forward moves are allowed and
// terminal phases never advance.
func (j *Job) Advance(target Phase) error {
	if j.Phase.IsTerminal() {
		return shared.NewDomainError("JOB_TERMINAL", fmt.Sprintf("Job already %s", j.Phase))
	}
	cur, curOK := phaseOrder[j.Phase]
	next, nextOK := phaseOrder[target]
	if !curOK || !nextOK || next <= cur {
		return shared.NewDomainError("INVALID_PHASE",
			fmt.Sprintf("Cannot move job from %s to %s", j.Phase, target))
	}
	j.Phase = target
	j.UpdatedAt = time.Now()
	if target == PhaseCompleted {
		now := time.Now()
		j.FinishedAt = &now
	}
	return nil
}

// Fail moves the job to the failed absorbing state with a reason
func (j *Job) Fail(reason string) {
	if j.Phase.IsTerminal() {
		return
	}
	now := time.Now()
	j.Phase = PhaseFailed
	j.FailureReason = reason
	j.FinishedAt = &now
	j.UpdatedAt = now
}

// SetCounts records the job summary counts
func (j *Job) SetCounts(total, inserted, updated, duplicates, errored int) {
	j.TotalRows = total
	j.Inserted = inserted
	j.Updated = updated
	j.Duplicates = duplicates
	j.Errored = errored
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true once the job is completed or failed
func (j *Job) IsTerminal() bool {
	return j.Phase.IsTerminal()
}

// Duration returns how long the job has been running, or its total runtime
// once finished.
func (j *Job) Duration() time.Duration {
	if j.FinishedAt != nil {
		return j.FinishedAt.Sub(j.StartedAt)
	}
	return time.Since(j.StartedAt)
}

// Repository provides access to import jobs
type Repository interface {
	FindByID(ctx context.Context, accountID, id uuid.UUID) (*Job, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]Job, int64, error)
	Save(ctx context.Context, job *Job) error
}
