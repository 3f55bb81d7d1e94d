package reconcile

import (
	"time"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/importjob"
	"github.com/sellerhub/backend/internal/domain/shared"
	"github.com/sellerhub/backend/internal/infrastructure/csvimport"
)

// JobSummary is the user-facing outcome of one reconciliation run. A run
// with row errors but no fatal error still reports the completed phase;
// partial success is a first-class outcome.
type JobSummary struct {
	JobID      uuid.UUID               `json:"job_id"`
	AccountID  uuid.UUID               `json:"account_id"`
	Kind       shared.EntityKind       `json:"kind"`
	Phase      importjob.Phase         `json:"phase"`
	TotalRows  int                     `json:"total_rows"`
	Inserted   int                     `json:"inserted"`
	Updated    int                     `json:"updated"`
	Duplicates int                     `json:"duplicates"`
	Errored    int                     `json:"errored"`
	Errors     []csvimport.RowError    `json:"errors,omitempty"`
	Warnings   []csvimport.RowWarning  `json:"warnings,omitempty"`
	Truncated  bool                    `json:"truncated,omitempty"`
	Duration   time.Duration           `json:"duration"`
	FailReason string                  `json:"failure_reason,omitempty"`
}

// newJobSummary builds a summary from the job's terminal state
func newJobSummary(job *importjob.Job, errs []csvimport.RowError, warnings []csvimport.RowWarning, truncated bool) *JobSummary {
	return &JobSummary{
		JobID:      job.ID,
		AccountID:  job.AccountID,
		Kind:       job.Kind,
		Phase:      job.Phase,
		TotalRows:  job.TotalRows,
		Inserted:   job.Inserted,
		Updated:    job.Updated,
		Duplicates: job.Duplicates,
		Errored:    job.Errored,
		Errors:     errs,
		Warnings:   warnings,
		Truncated:  truncated,
		Duration:   job.Duration(),
		FailReason: job.FailureReason,
	}
}
