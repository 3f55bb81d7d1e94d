// Package records serves the console's read and manual-edit paths over
// reconciled records: listing, detail, history, status summaries, and
// user-driven status transitions.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/domain/shared"
	"github.com/sellerhub/backend/internal/infrastructure/cache"
)

// Service exposes record queries and manual status transitions
type Service struct {
	orders   order.Repository
	listings listing.Repository
	history  history.Repository
	cache    *cache.RedisRecordCache
	notifier shared.ChangeNotifier
	logger   *zap.Logger
}

// NewService creates a new records Service. cache may be nil; summaries are
// then computed on every call.
func NewService(orders order.Repository, listings listing.Repository, hist history.Repository,
	summaryCache *cache.RedisRecordCache, notifier shared.ChangeNotifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orders:   orders,
		listings: listings,
		history:  hist,
		cache:    summaryCache,
		notifier: notifier,
		logger:   logger,
	}
}

// ListOrders returns a page of an account's orders
func (s *Service) ListOrders(ctx context.Context, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[order.Record], error) {
	recs, total, err := s.orders.FindAll(ctx, accountID, filter)
	if err != nil {
		return shared.Paginated[order.Record]{}, err
	}
	return shared.NewPaginated(recs, total, filter.Page, filter.PageSize), nil
}

// GetOrder returns one order
func (s *Service) GetOrder(ctx context.Context, accountID, id uuid.UUID) (*order.Record, error) {
	return s.orders.FindByID(ctx, accountID, id)
}

// ListListings returns a page of an account's listings
func (s *Service) ListListings(ctx context.Context, accountID uuid.UUID, filter shared.Filter) (shared.Paginated[listing.Record], error) {
	recs, total, err := s.listings.FindAll(ctx, accountID, filter)
	if err != nil {
		return shared.Paginated[listing.Record]{}, err
	}
	return shared.NewPaginated(recs, total, filter.Page, filter.PageSize), nil
}

// GetListing returns one listing
func (s *Service) GetListing(ctx context.Context, accountID, id uuid.UUID) (*listing.Record, error) {
	return s.listings.FindByID(ctx, accountID, id)
}

// History returns the status history for one record, oldest first
func (s *Service) History(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind, recordID uuid.UUID) ([]history.Entry, error) {
	return s.history.FindByRecord(ctx, accountID, kind, recordID)
}

// Summary returns per-status counts for one account and kind, served from
// cache when available
func (s *Service) Summary(ctx context.Context, accountID uuid.UUID, kind shared.EntityKind) (*cache.StatusSummary, error) {
	if s.cache != nil {
		summary, err := s.cache.GetSummary(ctx, accountID, kind)
		if err == nil {
			return summary, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("summary cache read failed", zap.Error(err))
		}
	}

	var (
		counts map[string]int
		err    error
	)
	switch kind {
	case shared.KindOrder:
		counts, err = s.orders.CountByStatus(ctx, accountID)
	case shared.KindListing:
		counts, err = s.listings.CountByStatus(ctx, accountID)
	default:
		return nil, shared.NewDomainError("INVALID_ENTITY_KIND", "Unknown entity kind")
	}
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	summary := &cache.StatusSummary{
		AccountID:  accountID,
		Kind:       kind.String(),
		Counts:     counts,
		Total:      total,
		ComputedAt: time.Now(),
	}
	if s.cache != nil {
		if err := s.cache.SetSummary(ctx, summary); err != nil {
			s.logger.Warn("summary cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}

// TransitionOrder performs a user-driven order status transition
func (s *Service) TransitionOrder(ctx context.Context, accountID, id uuid.UUID, target order.Status, reason, actor string) (*order.Record, error) {
	rec, err := s.orders.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if err := rec.TransitionTo(target, reason, actor); err != nil {
		return nil, err
	}
	// Write through the version-guarded batch path so a concurrent import
	// cannot silently overwrite the manual transition.
	if err := s.orders.CommitBatch(ctx, accountID, nil, []*order.Record{rec}, rec.TakeHistory()); err != nil {
		return nil, err
	}
	rec.IncrementVersion()
	s.notifier.Notify(ctx, shared.NewChangeEvent(shared.KindOrder, rec.ID, accountID,
		shared.ChangeStatusChanged, []string{order.FieldStatus}))
	return rec, nil
}

// TransitionListing performs a user-driven listing status transition
func (s *Service) TransitionListing(ctx context.Context, accountID, id uuid.UUID, target listing.Status, reason, actor string) (*listing.Record, error) {
	rec, err := s.listings.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	if err := rec.TransitionTo(target, reason, actor); err != nil {
		return nil, err
	}
	if err := s.listings.CommitBatch(ctx, accountID, nil, []*listing.Record{rec}, rec.TakeHistory()); err != nil {
		return nil, err
	}
	rec.IncrementVersion()
	s.notifier.Notify(ctx, shared.NewChangeEvent(shared.KindListing, rec.ID, accountID,
		shared.ChangeStatusChanged, []string{listing.FieldStatus}))
	return rec, nil
}

// RecordListingSale records a marketplace sale against a listing, running the
// inventory auto-transition rule in the same write
func (s *Service) RecordListingSale(ctx context.Context, accountID, id uuid.UUID, quantity int) (*listing.Record, error) {
	rec, err := s.listings.FindByID(ctx, accountID, id)
	if err != nil {
		return nil, err
	}
	statusBefore := rec.Status
	if err := rec.RecordSale(quantity); err != nil {
		return nil, err
	}
	if err := s.listings.CommitBatch(ctx, accountID, nil, []*listing.Record{rec}, rec.TakeHistory()); err != nil {
		return nil, err
	}
	rec.IncrementVersion()

	changeType := shared.ChangeUpdated
	fields := []string{listing.FieldQuantity, listing.FieldSold}
	if rec.Status != statusBefore {
		changeType = shared.ChangeStatusChanged
		fields = append(fields, listing.FieldStatus)
	}
	s.notifier.Notify(ctx, shared.NewChangeEvent(shared.KindListing, rec.ID, accountID, changeType, fields))
	return rec, nil
}
