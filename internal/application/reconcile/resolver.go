package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sellerhub/backend/internal/domain/listing"
	"github.com/sellerhub/backend/internal/domain/order"
	"github.com/sellerhub/backend/internal/infrastructure/csvimport"
)

// ResolvedOrder is one order record classified for persistence. Rows in the
// same file sharing an external id collapse onto one resolved record, later
// rows' values winning.
type ResolvedOrder struct {
	Record        *order.Record
	IsInsert      bool
	ChangedFields []string
	StatusChanged bool
	Lines         []int

	changed map[string]bool
}

// Dirty reports whether the record carries any change worth writing
func (r *ResolvedOrder) Dirty() bool {
	return r.IsInsert || len(r.ChangedFields) > 0 || r.StatusChanged
}

func (r *ResolvedOrder) markChanged(fields ...string) {
	for _, f := range fields {
		if !r.changed[f] {
			r.changed[f] = true
			r.ChangedFields = append(r.ChangedFields, f)
		}
	}
}

// OrderResolution is the outcome of resolving one job's order inputs
type OrderResolution struct {
	Items     []*ResolvedOrder
	Unchanged int
	Failures  []csvimport.RowError
}

// Dirty returns the resolved orders that need writing, in input order
func (res *OrderResolution) Dirty() []*ResolvedOrder {
	dirty := make([]*ResolvedOrder, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Dirty() {
			dirty = append(dirty, item)
		}
	}
	return dirty
}

// OrderResolver classifies transformed order inputs as inserts, updates, or
// no-op duplicates against the store
type OrderResolver struct {
	orders order.Repository
	actor  string
}

// NewOrderResolver creates a new OrderResolver
func NewOrderResolver(orders order.Repository, actor string) *OrderResolver {
	return &OrderResolver{orders: orders, actor: actor}
}

// Resolve bulk-loads existing records and classifies every input. Invalid
// status transitions are recorded as failures; the affected record's
// non-status fields still update.
func (r *OrderResolver) Resolve(ctx context.Context, accountID uuid.UUID, inputs []OrderInput) (*OrderResolution, error) {
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.Record.ExternalID)
	}
	existing, err := r.orders.FindByExternalIDs(ctx, accountID, ids)
	if err != nil {
		return nil, err
	}

	res := &OrderResolution{}
	pending := make(map[string]*ResolvedOrder, len(inputs))

	for i := range inputs {
		in := &inputs[i]
		extID := in.Record.ExternalID

		item, ok := pending[extID]
		if !ok {
			if rec, found := existing[extID]; found {
				item = &ResolvedOrder{Record: rec, changed: make(map[string]bool)}
			} else {
				item = &ResolvedOrder{Record: in.Record, IsInsert: true, changed: make(map[string]bool)}
			}
			pending[extID] = item
			res.Items = append(res.Items, item)
		}
		item.Lines = append(item.Lines, in.LineNumber)

		if !item.IsInsert || ok {
			// Merge row values onto the already-resolved record
			diff := item.Record.FieldDiff(in.Record)
			item.Record.ApplyFields(in.Record, diff)
			item.markChanged(diff...)
		}

		r.applyStatus(item, in, res)

		if item.IsInsert {
			if in.ShippedAt != nil {
				item.Record.ShippedAt = in.ShippedAt
			}
			if in.DeliveredAt != nil {
				item.Record.DeliveredAt = in.DeliveredAt
			}
		}
	}

	for _, item := range res.Items {
		if !item.Dirty() {
			res.Unchanged++
		}
	}
	return res, nil
}

// applyStatus runs the row's explicit status through the state machine
func (r *OrderResolver) applyStatus(item *ResolvedOrder, in *OrderInput, res *OrderResolution) {
	if in.TargetStatus == nil || *in.TargetStatus == item.Record.Status {
		return
	}
	if err := item.Record.TransitionTo(*in.TargetStatus, "imported", r.actor); err != nil {
		res.Failures = append(res.Failures, csvimport.NewRowError(in.LineNumber, ColStatus,
			csvimport.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot transition order %s from %s to %s",
				item.Record.ExternalID, item.Record.Status, *in.TargetStatus)))
		return
	}
	item.StatusChanged = true
}

// ResolvedListing is one listing record classified for persistence
type ResolvedListing struct {
	Record        *listing.Record
	IsInsert      bool
	ChangedFields []string
	StatusChanged bool
	Lines         []int

	changed map[string]bool
}

// Dirty reports whether the record carries any change worth writing
func (r *ResolvedListing) Dirty() bool {
	return r.IsInsert || len(r.ChangedFields) > 0 || r.StatusChanged
}

func (r *ResolvedListing) markChanged(fields ...string) {
	for _, f := range fields {
		if !r.changed[f] {
			r.changed[f] = true
			r.ChangedFields = append(r.ChangedFields, f)
		}
	}
}

// ListingResolution is the outcome of resolving one job's listing inputs
type ListingResolution struct {
	Items     []*ResolvedListing
	Unchanged int
	Failures  []csvimport.RowError
}

// Dirty returns the resolved listings that need writing, in input order
func (res *ListingResolution) Dirty() []*ResolvedListing {
	dirty := make([]*ResolvedListing, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Dirty() {
			dirty = append(dirty, item)
		}
	}
	return dirty
}

// ListingResolver classifies transformed listing inputs against the store
type ListingResolver struct {
	listings listing.Repository
	actor    string
}

// NewListingResolver creates a new ListingResolver
func NewListingResolver(listings listing.Repository, actor string) *ListingResolver {
	return &ListingResolver{listings: listings, actor: actor}
}

// Resolve bulk-loads existing records and classifies every input. Quantity
// updates run the inventory auto-transition rule while merging, so a quantity
// column alone can change a listing's status.
func (r *ListingResolver) Resolve(ctx context.Context, accountID uuid.UUID, inputs []ListingInput) (*ListingResolution, error) {
	ids := make([]string, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.Record.ExternalID)
	}
	existing, err := r.listings.FindByExternalIDs(ctx, accountID, ids)
	if err != nil {
		return nil, err
	}

	res := &ListingResolution{}
	pending := make(map[string]*ResolvedListing, len(inputs))

	for i := range inputs {
		in := &inputs[i]
		extID := in.Record.ExternalID

		item, ok := pending[extID]
		if !ok {
			if rec, found := existing[extID]; found {
				item = &ResolvedListing{Record: rec, changed: make(map[string]bool)}
			} else {
				item = &ResolvedListing{Record: in.Record, IsInsert: true, changed: make(map[string]bool)}
			}
			pending[extID] = item
			res.Items = append(res.Items, item)
		}
		item.Lines = append(item.Lines, in.LineNumber)

		if !item.IsInsert || ok {
			statusBefore := item.Record.Status
			diff := item.Record.FieldDiff(in.Record)
			item.Record.ApplyFields(in.Record, diff)
			item.markChanged(diff...)
			if item.Record.Status != statusBefore {
				// Inventory auto-transition fired inside ApplyFields
				item.StatusChanged = true
			}
		}

		r.applyStatus(item, in, res)
	}

	for _, item := range res.Items {
		if !item.Dirty() {
			res.Unchanged++
		}
	}
	return res, nil
}

// applyStatus runs the row's explicit status through the state machine
func (r *ListingResolver) applyStatus(item *ResolvedListing, in *ListingInput, res *ListingResolution) {
	if in.TargetStatus == nil || *in.TargetStatus == item.Record.Status {
		return
	}
	if err := item.Record.TransitionTo(*in.TargetStatus, "imported", r.actor); err != nil {
		res.Failures = append(res.Failures, csvimport.NewRowError(in.LineNumber, ColStatus,
			csvimport.ErrCodeInvalidTransition,
			fmt.Sprintf("cannot transition listing %s from %s to %s",
				item.Record.ExternalID, item.Record.Status, *in.TargetStatus)))
		return
	}
	item.StatusChanged = true
}
