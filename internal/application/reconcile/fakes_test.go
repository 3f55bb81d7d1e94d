package reconcile

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// fakeOrderRepository is a map-backed order.Repository for exercising the
// pipeline without a database.
type fakeOrderRepository struct {
	mu      sync.Mutex
	byExtID map[string]*order.Record
	entries []history.Entry
	commits int
	// commitErr, when set, decides per commit whether the batch fails
	commitErr func(commit int) error
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{byExtID: make(map[string]*order.Record)}
}

func (f *fakeOrderRepository) seed(recs ...*order.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range recs {
		rec.TakeHistory()
		f.byExtID[rec.ExternalID] = rec
	}
}

func (f *fakeOrderRepository) FindByID(_ context.Context, _, id uuid.UUID) (*order.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.byExtID {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeOrderRepository) FindByExternalID(_ context.Context, _ uuid.UUID, externalID string) (*order.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.byExtID[externalID]; ok {
		return rec, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeOrderRepository) FindByExternalIDs(_ context.Context, _ uuid.UUID, externalIDs []string) (map[string]*order.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*order.Record)
	for _, id := range externalIDs {
		if rec, ok := f.byExtID[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (f *fakeOrderRepository) ExistsByExternalID(_ context.Context, _ uuid.UUID, externalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byExtID[externalID]
	return ok, nil
}

func (f *fakeOrderRepository) FindAll(_ context.Context, _ uuid.UUID, _ shared.Filter) ([]order.Record, int64, error) {
	return nil, 0, nil
}

func (f *fakeOrderRepository) CountByStatus(_ context.Context, _ uuid.UUID) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, rec := range f.byExtID {
		counts[rec.Status.String()]++
	}
	return counts, nil
}

func (f *fakeOrderRepository) Save(_ context.Context, rec *order.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, rec.TakeHistory()...)
	f.byExtID[rec.ExternalID] = rec
	return nil
}

func (f *fakeOrderRepository) CommitBatch(_ context.Context, _ uuid.UUID, inserts, updates []*order.Record, entries []history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	if f.commitErr != nil {
		if err := f.commitErr(f.commits); err != nil {
			return err
		}
	}
	for _, rec := range inserts {
		f.byExtID[rec.ExternalID] = rec
	}
	for _, rec := range updates {
		rec.Version++
		f.byExtID[rec.ExternalID] = rec
	}
	f.entries = append(f.entries, entries...)
	return nil
}

// historyFor returns the persisted history entries for one record
func (f *fakeOrderRepository) historyFor(recordID uuid.UUID) []history.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []history.Entry
	for _, e := range f.entries {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out
}

// fakeListingRepository is the listing twin of fakeOrderRepository
type fakeListingRepository struct {
	mu        sync.Mutex
	byExtID   map[string]*listing.Record
	entries   []history.Entry
	commits   int
	commitErr func(commit int) error
}

func newFakeListingRepository() *fakeListingRepository {
	return &fakeListingRepository{byExtID: make(map[string]*listing.Record)}
}

func (f *fakeListingRepository) seed(recs ...*listing.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range recs {
		rec.TakeHistory()
		f.byExtID[rec.ExternalID] = rec
	}
}

func (f *fakeListingRepository) FindByID(_ context.Context, _, id uuid.UUID) (*listing.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.byExtID {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeListingRepository) FindByExternalID(_ context.Context, _ uuid.UUID, externalID string) (*listing.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.byExtID[externalID]; ok {
		return rec, nil
	}
	return nil, shared.ErrNotFound
}

func (f *fakeListingRepository) FindByExternalIDs(_ context.Context, _ uuid.UUID, externalIDs []string) (map[string]*listing.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*listing.Record)
	for _, id := range externalIDs {
		if rec, ok := f.byExtID[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (f *fakeListingRepository) ExistsByExternalID(_ context.Context, _ uuid.UUID, externalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byExtID[externalID]
	return ok, nil
}

func (f *fakeListingRepository) FindAll(_ context.Context, _ uuid.UUID, _ shared.Filter) ([]listing.Record, int64, error) {
	return nil, 0, nil
}

func (f *fakeListingRepository) CountByStatus(_ context.Context, _ uuid.UUID) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[string]int)
	for _, rec := range f.byExtID {
		counts[rec.Status.String()]++
	}
	return counts, nil
}

func (f *fakeListingRepository) Save(_ context.Context, rec *listing.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, rec.TakeHistory()...)
	f.byExtID[rec.ExternalID] = rec
	return nil
}

func (f *fakeListingRepository) CommitBatch(_ context.Context, _ uuid.UUID, inserts, updates []*listing.Record, entries []history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits++
	if f.commitErr != nil {
		if err := f.commitErr(f.commits); err != nil {
			return err
		}
	}
	for _, rec := range inserts {
		f.byExtID[rec.ExternalID] = rec
	}
	for _, rec := range updates {
		rec.Version++
		f.byExtID[rec.ExternalID] = rec
	}
	f.entries = append(f.entries, entries...)
	return nil
}

func (f *fakeListingRepository) historyFor(recordID uuid.UUID) []history.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []history.Entry
	for _, e := range f.entries {
		if e.RecordID == recordID {
			out = append(out, e)
		}
	}
	return out
}

// fakeNotifier captures published change events
type fakeNotifier struct {
	mu     sync.Mutex
	events []shared.ChangeEvent
}

func (f *fakeNotifier) Notify(_ context.Context, events ...shared.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
}

func (f *fakeNotifier) published() []shared.ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]shared.ChangeEvent{}, f.events...)
}

func (f *fakeNotifier) byType() map[shared.ChangeType]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[shared.ChangeType]int)
	for _, ev := range f.events {
		counts[ev.Type]++
	}
	return counts
}

var (
	_ order.Repository      = (*fakeOrderRepository)(nil)
	_ listing.Repository    = (*fakeListingRepository)(nil)
	_ shared.ChangeNotifier = (*fakeNotifier)(nil)
)
