package reconcile

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/domain/shared"
	"github.com/sellerhub/backend/internal/infrastructure/csvimport"
)

// PersistResult summarizes one persisting phase
type PersistResult struct {
	Inserted         int
	Updated          int
	Failures         []csvimport.RowError
	BatchesCommitted int
	BatchesFailed    int
}

// Persister writes resolved records in bounded batches. Each batch commits
// atomically and independently: a failed batch is reported and skipped while
// the remaining batches proceed. Batches are dispatched to a small worker
// pool and paced by a rate limiter so a long import does not monopolize the
// store. Cancellation is honored between batches only; an in-flight batch
// always completes or fails atomically.
type Persister struct {
	orders    order.Repository
	listings  listing.Repository
	notifier  shared.ChangeNotifier
	logger    *zap.Logger
	batchSize int
	workers   int
	limiter   *rate.Limiter
}

// NewPersister creates a new Persister. batchesPerSecond <= 0 disables
// pacing.
func NewPersister(orders order.Repository, listings listing.Repository, notifier shared.ChangeNotifier,
	logger *zap.Logger, batchSize, workers int, batchesPerSecond float64) *Persister {
	if batchSize < 1 {
		batchSize = 100
	}
	if workers < 1 {
		workers = 4
	}
	var limiter *rate.Limiter
	if batchesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(batchesPerSecond), 1)
	}
	return &Persister{
		orders:    orders,
		listings:  listings,
		notifier:  notifier,
		logger:    logger,
		batchSize: batchSize,
		workers:   workers,
		limiter:   limiter,
	}
}

// batch is one atomic unit of work, already split by kind
type batch struct {
	seq           int
	orderInserts  []*order.Record
	orderUpdates  []*order.Record
	listInserts   []*listing.Record
	listUpdates   []*listing.Record
	entries       []history.Entry
	events        []shared.ChangeEvent
	lines         []int
	inserts, upds int
}

func (b *batch) size() int {
	return b.inserts + b.upds
}

// PersistOrders writes the dirty resolved orders. refresh is called before
// each batch dispatch to extend the account lock; its errors are logged, not
// fatal. Returns ctx.Err() when cancelled between batches.
func (p *Persister) PersistOrders(ctx context.Context, accountID uuid.UUID, items []*ResolvedOrder, refresh func(context.Context) error) (*PersistResult, error) {
	batches := make([]*batch, 0, len(items)/p.batchSize+1)
	current := &batch{seq: len(batches)}
	for _, item := range items {
		if current.size() >= p.batchSize {
			batches = append(batches, current)
			current = &batch{seq: len(batches)}
		}
		entries := item.Record.TakeHistory()
		current.entries = append(current.entries, entries...)
		current.lines = append(current.lines, firstLine(item.Lines))
		current.events = append(current.events, orderEvent(item))
		if item.IsInsert {
			current.orderInserts = append(current.orderInserts, item.Record)
			current.inserts++
		} else {
			current.orderUpdates = append(current.orderUpdates, item.Record)
			current.upds++
		}
	}
	if current.size() > 0 {
		batches = append(batches, current)
	}

	return p.run(ctx, accountID, batches, refresh, func(ctx context.Context, b *batch) error {
		return p.orders.CommitBatch(ctx, accountID, b.orderInserts, b.orderUpdates, b.entries)
	})
}

// PersistListings writes the dirty resolved listings
func (p *Persister) PersistListings(ctx context.Context, accountID uuid.UUID, items []*ResolvedListing, refresh func(context.Context) error) (*PersistResult, error) {
	batches := make([]*batch, 0, len(items)/p.batchSize+1)
	current := &batch{seq: len(batches)}
	for _, item := range items {
		if current.size() >= p.batchSize {
			batches = append(batches, current)
			current = &batch{seq: len(batches)}
		}
		entries := item.Record.TakeHistory()
		current.entries = append(current.entries, entries...)
		current.lines = append(current.lines, firstLine(item.Lines))
		current.events = append(current.events, listingEvent(item))
		if item.IsInsert {
			current.listInserts = append(current.listInserts, item.Record)
			current.inserts++
		} else {
			current.listUpdates = append(current.listUpdates, item.Record)
			current.upds++
		}
	}
	if current.size() > 0 {
		batches = append(batches, current)
	}

	return p.run(ctx, accountID, batches, refresh, func(ctx context.Context, b *batch) error {
		return p.listings.CommitBatch(ctx, accountID, b.listInserts, b.listUpdates, b.entries)
	})
}

// run dispatches batches to the worker pool in formation order
func (p *Persister) run(ctx context.Context, accountID uuid.UUID, batches []*batch, refresh func(context.Context) error, commit func(context.Context, *batch) error) (*PersistResult, error) {
	result := &PersistResult{}
	if len(batches) == 0 {
		return result, nil
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
		ch = make(chan *batch)
	)

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range ch {
				p.commitBatch(ctx, accountID, b, commit, result, &mu)
			}
		}()
	}

	var cancelled error
	for _, b := range batches {
		// Cancellation is only honored here, between batches
		if err := ctx.Err(); err != nil {
			cancelled = err
			break
		}
		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				cancelled = err
				break
			}
		}
		if refresh != nil {
			if err := refresh(ctx); err != nil {
				p.logger.Warn("failed to refresh account lock",
					zap.String("account_id", accountID.String()),
					zap.Error(err))
			}
		}
		ch <- b
	}
	close(ch)
	wg.Wait()

	return result, cancelled
}

// commitBatch commits one batch and records the outcome. The commit runs
// detached from the job's cancellation so an in-flight batch is never
// aborted mid-transaction.
func (p *Persister) commitBatch(ctx context.Context, accountID uuid.UUID, b *batch, commit func(context.Context, *batch) error, result *PersistResult, mu *sync.Mutex) {
	commitCtx := context.WithoutCancel(ctx)
	err := commit(commitCtx, b)

	mu.Lock()
	defer mu.Unlock()

	if err != nil {
		p.logger.Error("batch commit failed",
			zap.String("account_id", accountID.String()),
			zap.Int("batch", b.seq),
			zap.Int("records", b.size()),
			zap.Error(err))
		result.BatchesFailed++
		for _, line := range b.lines {
			result.Failures = append(result.Failures, csvimport.NewRowError(line, "",
				csvimport.ErrCodeBatchCommit, fmt.Sprintf("batch commit failed: %v", err)))
		}
		return
	}

	result.BatchesCommitted++
	result.Inserted += b.inserts
	result.Updated += b.upds
	p.notifier.Notify(commitCtx, b.events...)
}

func orderEvent(item *ResolvedOrder) shared.ChangeEvent {
	return shared.NewChangeEvent(shared.KindOrder, item.Record.ID, item.Record.AccountID,
		changeType(item.IsInsert, item.StatusChanged), eventFields(item.ChangedFields, item.StatusChanged))
}

func listingEvent(item *ResolvedListing) shared.ChangeEvent {
	return shared.NewChangeEvent(shared.KindListing, item.Record.ID, item.Record.AccountID,
		changeType(item.IsInsert, item.StatusChanged), eventFields(item.ChangedFields, item.StatusChanged))
}

func changeType(isInsert, statusChanged bool) shared.ChangeType {
	switch {
	case isInsert:
		return shared.ChangeCreated
	case statusChanged:
		return shared.ChangeStatusChanged
	default:
		return shared.ChangeUpdated
	}
}

func eventFields(changed []string, statusChanged bool) []string {
	if !statusChanged {
		return changed
	}
	return append(append([]string{}, changed...), "status")
}

func firstLine(lines []int) int {
	if len(lines) == 0 {
		return 0
	}
	return lines[0]
}
