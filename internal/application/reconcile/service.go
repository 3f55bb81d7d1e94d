// Package reconcile implements the bulk reconciliation engine: it ingests a
// CSV snapshot for one account, validates and transforms each row, classifies
// records against the store, and persists them in atomic batches while
// driving the order and listing state machines.
package reconcile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerhub/backend/internal/domain/importjob"
	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/domain/shared"
	"github.com/sellerhub/backend/internal/infrastructure/config"
	"github.com/sellerhub/backend/internal/infrastructure/csvimport"
	"github.com/sellerhub/backend/internal/infrastructure/lock"
)

// JobFatalError aborts a whole run: unreadable input, unreachable store, or
// an unacquirable account lock. Row-level and batch-level errors never
// surface as JobFatalError; they reduce the success counts instead.
type JobFatalError struct {
	Reason string
	Err    error
}

// Error implements the error interface
func (e *JobFatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Unwrap returns the underlying error
func (e *JobFatalError) Unwrap() error {
	return e.Err
}

// IsJobFatal reports whether err is a JobFatalError
func IsJobFatal(err error) bool {
	var fatal *JobFatalError
	return errors.As(err, &fatal)
}

// Service orchestrates import jobs through their phases. Jobs for the same
// account are serialized by a per-account advisory lock; jobs for different
// accounts run concurrently.
type Service struct {
	jobs     importjob.Repository
	orders   order.Repository
	listings listing.Repository
	locker   lock.AccountLocker
	notifier shared.ChangeNotifier
	cfg      config.ImportConfig
	logger   *zap.Logger

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
}

// NewService creates a new reconciliation Service
func NewService(jobs importjob.Repository, orders order.Repository, listings listing.Repository,
	locker lock.AccountLocker, notifier shared.ChangeNotifier, cfg config.ImportConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		jobs:     jobs,
		orders:   orders,
		listings: listings,
		locker:   locker,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		running:  make(map[uuid.UUID]context.CancelFunc),
	}
}

// Run executes one reconciliation job synchronously and returns its summary.
// Only a JobFatalError is returned as an error; a run with row errors still
// completes.
func (s *Service) Run(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind, data []byte, actor string) (*JobSummary, error) {
	job, err := importjob.New(accountID, kind)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, &JobFatalError{Reason: "failed to create import job", Err: err}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.register(job.ID, cancel)
	defer s.unregister(job.ID)

	return s.runJob(runCtx, job, data, actor)
}

// Start creates a job and executes it in the background, returning the job
// immediately for status polling
func (s *Service) Start(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind, data []byte, actor string) (*importjob.Job, error) {
	job, err := importjob.New(accountID, kind)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, &JobFatalError{Reason: "failed to create import job", Err: err}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.register(job.ID, cancel)

	go func() {
		defer s.unregister(job.ID)
		if _, err := s.runJob(runCtx, job, data, actor); err != nil {
			s.logger.Error("import job failed",
				zap.String("job_id", job.ID.String()),
				zap.String("account_id", accountID.String()),
				zap.Error(err))
		}
	}()
	return job, nil
}

// Cancel requests cancellation of a running job. The job stops before its
// next batch; batches in flight complete or fail atomically. The job must
// belong to the account; knowing a job ID is not enough to cancel it.
func (s *Service) Cancel(ctx context.Context, accountID, jobID uuid.UUID) error {
	if _, err := s.jobs.FindByID(ctx, accountID, jobID); err != nil {
		return err
	}
	s.mu.Lock()
	cancel, ok := s.running[jobID]
	s.mu.Unlock()
	if !ok {
		return shared.ErrNotFound
	}
	cancel()
	s.logger.Info("import job cancellation requested",
		zap.String("job_id", jobID.String()),
		zap.String("account_id", accountID.String()))
	return nil
}

// GetJob returns a snapshot of one import job
func (s *Service) GetJob(ctx context.Context, accountID, jobID uuid.UUID) (*importjob.Job, error) {
	return s.jobs.FindByID(ctx, accountID, jobID)
}

// ListJobs lists an account's import jobs, newest first
func (s *Service) ListJobs(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]importjob.Job, int64, error) {
	return s.jobs.FindByAccount(ctx, accountID, filter)
}

func (s *Service) register(jobID uuid.UUID, cancel context.CancelFunc) {
	s.mu.Lock()
	s.running[jobID] = cancel
	s.mu.Unlock()
}

func (s *Service) unregister(jobID uuid.UUID) {
	s.mu.Lock()
	if cancel, ok := s.running[jobID]; ok {
		cancel()
		delete(s.running, jobID)
	}
	s.mu.Unlock()
}

// runJob drives one job through parsing, validating, transforming,
// persisting and finalizing. Committed batches stay committed on failure;
// there is no cross-batch rollback.
func (s *Service) runJob(ctx context.Context, job *importjob.Job, data []byte, actor string) (*JobSummary, error) {
	log := s.logger.With(
		zap.String("job_id", job.ID.String()),
		zap.String("account_id", job.AccountID.String()),
		zap.String("kind", job.Kind.String()))

	rows, err := s.parse(job, data)
	if err != nil {
		return nil, s.fail(job, log, "failed to parse import file", err)
	}
	job.TotalRows = len(rows)
	if s.cfg.MaxRows > 0 && len(rows) > s.cfg.MaxRows {
		return nil, s.fail(job, log,
			fmt.Sprintf("file has %d rows, exceeding the %d row limit", len(rows), s.cfg.MaxRows), nil)
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		return nil, s.fail(job, log, "failed to persist import job", err)
	}
	log.Info("import file parsed", zap.Int("rows", len(rows)))

	accountLock, err := s.locker.Acquire(ctx, job.AccountID, s.cfg.LockTTL, s.cfg.LockWaitTimeout)
	if err != nil {
		return nil, s.fail(job, log, "failed to acquire account lock", err)
	}
	defer func() {
		if err := accountLock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Warn("failed to release account lock", zap.Error(err))
		}
	}()

	if err := s.advance(ctx, job, importjob.PhaseValidating); err != nil {
		return nil, s.fail(job, log, "failed to advance job phase", err)
	}
	validator := NewValidator(s.orders, s.listings, s.cfg.MaxErrors)
	vr, err := validator.Validate(ctx, job.AccountID, job.Kind, rows)
	if err != nil {
		return nil, s.fail(job, log, "validation lookup failed", err)
	}
	log.Info("rows validated",
		zap.Int("valid", len(vr.ValidRows)),
		zap.Int("errored", vr.ErrorRows()),
		zap.Int("warnings", len(vr.Warnings)))

	if err := s.advance(ctx, job, importjob.PhaseTransforming); err != nil {
		return nil, s.fail(job, log, "failed to advance job phase", err)
	}

	allErrors := append([]csvimport.RowError{}, vr.Errors...)
	persister := NewPersister(s.orders, s.listings, s.notifier, s.logger,
		s.cfg.BatchSize, s.cfg.WorkerCount, s.cfg.BatchesPerSecond)
	refresh := func(ctx context.Context) error {
		return accountLock.Refresh(ctx, s.cfg.LockTTL)
	}

	var (
		inserted, updated, duplicates, errored int
		persistErr                             error
	)

	switch job.Kind {
	case shared.KindOrder:
		inputs, transformErrs := NewTransformer(actor).TransformOrders(vr.ValidRows, job.AccountID)
		allErrors = append(allErrors, transformErrs...)

		if err := s.advance(ctx, job, importjob.PhasePersisting); err != nil {
			return nil, s.fail(job, log, "failed to advance job phase", err)
		}
		resolver := NewOrderResolver(s.orders, actor)
		res, err := resolver.Resolve(ctx, job.AccountID, inputs)
		if err != nil {
			return nil, s.fail(job, log, "dedup resolution failed", err)
		}
		allErrors = append(allErrors, res.Failures...)
		duplicates = res.Unchanged

		pr, err := persister.PersistOrders(ctx, job.AccountID, res.Dirty(), refresh)
		persistErr = err
		inserted, updated = pr.Inserted, pr.Updated
		allErrors = append(allErrors, pr.Failures...)
		errored = vr.ErrorRows() + len(transformErrs) + len(res.Failures) + len(pr.Failures)

	case shared.KindListing:
		inputs, transformErrs := NewTransformer(actor).TransformListings(vr.ValidRows, job.AccountID)
		allErrors = append(allErrors, transformErrs...)

		if err := s.advance(ctx, job, importjob.PhasePersisting); err != nil {
			return nil, s.fail(job, log, "failed to advance job phase", err)
		}
		resolver := NewListingResolver(s.listings, actor)
		res, err := resolver.Resolve(ctx, job.AccountID, inputs)
		if err != nil {
			return nil, s.fail(job, log, "dedup resolution failed", err)
		}
		allErrors = append(allErrors, res.Failures...)
		duplicates = res.Unchanged

		pr, err := persister.PersistListings(ctx, job.AccountID, res.Dirty(), refresh)
		persistErr = err
		inserted, updated = pr.Inserted, pr.Updated
		allErrors = append(allErrors, pr.Failures...)
		errored = vr.ErrorRows() + len(transformErrs) + len(res.Failures) + len(pr.Failures)
	}

	job.SetCounts(job.TotalRows, inserted, updated, duplicates, errored)

	if persistErr != nil {
		// Cancelled between batches; committed batches stay committed
		job.Fail(importjob.FailureReasonCancelled)
		if err := s.jobs.Save(context.WithoutCancel(ctx), job); err != nil {
			log.Error("failed to persist cancelled job", zap.Error(err))
		}
		log.Info("import job cancelled",
			zap.Int("inserted", inserted),
			zap.Int("updated", updated))
		return newJobSummary(job, capErrors(allErrors, s.cfg.MaxErrors), vr.Warnings, vr.IsTruncated), nil
	}

	if err := s.advance(ctx, job, importjob.PhaseFinalizing); err != nil {
		return nil, s.fail(job, log, "failed to advance job phase", err)
	}
	if err := s.advance(ctx, job, importjob.PhaseCompleted); err != nil {
		return nil, s.fail(job, log, "failed to advance job phase", err)
	}

	log.Info("import job completed",
		zap.Int("total_rows", job.TotalRows),
		zap.Int("inserted", inserted),
		zap.Int("updated", updated),
		zap.Int("duplicates", duplicates),
		zap.Int("errored", errored),
		zap.Duration("duration", job.Duration()))

	return newJobSummary(job, capErrors(allErrors, s.cfg.MaxErrors), vr.Warnings, vr.IsTruncated), nil
}

// parse reads the CSV header and all rows
func (s *Service) parse(job *importjob.Job, data []byte) ([]*csvimport.Row, error) {
	parser, err := csvimport.NewParser(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}

	var required []string
	switch job.Kind {
	case shared.KindOrder:
		required = OrderRequiredColumns()
	case shared.KindListing:
		required = ListingRequiredColumns()
	}
	if missing := parser.MissingHeaders(required); len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %v", missing)
	}
	return parser.ReadAllRows()
}

// advance moves the job to the next phase and persists it
func (s *Service) advance(ctx context.Context, job *importjob.Job, phase importjob.Phase) error {
	if err := job.Advance(phase); err != nil {
		return err
	}
	return s.jobs.Save(ctx, job)
}

// fail marks the job failed, persists it, and wraps the cause
func (s *Service) fail(job *importjob.Job, log *zap.Logger, reason string, cause error) error {
	job.Fail(reason)
	if err := s.jobs.Save(context.Background(), job); err != nil {
		log.Error("failed to persist failed job", zap.Error(err))
	}
	log.Error("import job failed", zap.String("reason", reason), zap.Error(cause))
	return &JobFatalError{Reason: reason, Err: cause}
}

// capErrors bounds the itemized error list reported to the caller
func capErrors(errs []csvimport.RowError, max int) []csvimport.RowError {
	if max <= 0 || len(errs) <= max {
		return errs
	}
	return errs[:max]
}
