package listing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sellerhub/backend/internal/domain/history"
	"github.com/sellerhub/backend/internal/domain/shared"
)

// Field names reported in diffs and change events
const (
	FieldTitle      = "title"
	FieldPrice      = "price"
	FieldCurrency   = "currency"
	FieldQuantity   = "quantity_available"
	FieldSold       = "quantity_sold"
	FieldWatchCount = "watch_count"
	FieldViewCount  = "view_count"
	FieldStatus     = "status"
)

// Record represents one marketplace listing owned by an account.
// (AccountID, ExternalID) is unique and QuantityAvailable never goes negative.
type Record struct {
	shared.AccountAggregateRoot
	ExternalID        string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_listing_account_external,priority:2"`
	Title             string          `gorm:"type:varchar(300);not null"`
	Price             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency          string          `gorm:"type:varchar(3);not null;default:'USD'"`
	QuantityAvailable int             `gorm:"not null;default:0"`
	QuantitySold      int             `gorm:"not null;default:0"`
	WatchCount        int             `gorm:"not null;default:0"`
	ViewCount         int             `gorm:"not null;default:0"`
	Status            Status          `gorm:"type:varchar(32);not null"`

	pendingHistory []history.Entry `gorm:"-"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "listing_records"
}

// New creates a new listing record in the initial status and records the
// creation history entry (nil -> initial status).
func New(accountID uuid.UUID, externalID, title string, price decimal.Decimal, quantity int, actor string) (*Record, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External item ID cannot be empty")
	}
	if len(externalID) > 64 {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External item ID cannot exceed 64 characters")
	}
	if title == "" {
		return nil, shared.NewDomainError("INVALID_TITLE", "Listing title cannot be empty")
	}
	if price.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Listing price cannot be negative")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity available cannot be negative")
	}

	rec := &Record{
		AccountAggregateRoot: shared.NewAccountAggregateRoot(accountID),
		ExternalID:           externalID,
		Title:                title,
		Price:                price,
		Currency:             "USD",
		QuantityAvailable:    quantity,
		Status:               InitialStatus,
	}
	rec.recordHistory(nil, InitialStatus, "imported", actor)
	return rec, nil
}

// TransitionTo moves the listing to target if the transition table allows it.
// Exactly one history entry is appended per successful transition.
func (r *Record) TransitionTo(target Status, reason, actor string) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown listing status %q", target))
	}
	if !r.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.ErrInvalidTransition.Code,
			fmt.Sprintf("Cannot transition listing from %s to %s", r.Status, target))
	}
	if target == StatusActive && r.QuantityAvailable == 0 {
		return shared.NewDomainError(shared.ErrInvalidTransition.Code,
			"Cannot activate a listing with no stock")
	}

	from := r.Status.String()
	r.Status = target
	r.UpdatedAt = time.Now()
	r.recordHistory(&from, target, reason, actor)
	return nil
}

// SetQuantity updates QuantityAvailable and runs the inventory auto-transition
// rule synchronously: active listings dropping to zero stock become
// out_of_stock, out_of_stock listings regaining stock become active. The
// caller must persist the quantity and any resulting transition in the same
// unit of work so stock and status never disagree.
func (r *Record) SetQuantity(quantity int) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity available cannot be negative")
	}

	prev := r.QuantityAvailable
	r.QuantityAvailable = quantity
	r.UpdatedAt = time.Now()

	if quantity == prev {
		return nil
	}

	switch {
	case quantity == 0 && r.Status == StatusActive:
		from := r.Status.String()
		r.Status = StatusOutOfStock
		r.recordHistory(&from, StatusOutOfStock, "quantity available dropped to zero", history.SystemActor)
	case quantity > 0 && r.Status == StatusOutOfStock:
		from := r.Status.String()
		r.Status = StatusActive
		r.recordHistory(&from, StatusActive, "quantity available restored", history.SystemActor)
	}
	return nil
}

// RecordSale decrements available quantity and increments quantity sold,
// applying the same auto-transition rule as SetQuantity.
func (r *Record) RecordSale(quantity int) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Sale quantity must be positive")
	}
	if quantity > r.QuantityAvailable {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Sale quantity exceeds available quantity")
	}
	r.QuantitySold += quantity
	return r.SetQuantity(r.QuantityAvailable - quantity)
}

// FieldDiff returns the names of fields whose values differ from in,
// ignoring timestamps and status.
func (r *Record) FieldDiff(in *Record) []string {
	var changed []string
	if r.Title != in.Title {
		changed = append(changed, FieldTitle)
	}
	if !r.Price.Equal(in.Price) {
		changed = append(changed, FieldPrice)
	}
	if r.Currency != in.Currency {
		changed = append(changed, FieldCurrency)
	}
	if r.QuantityAvailable != in.QuantityAvailable {
		changed = append(changed, FieldQuantity)
	}
	if r.QuantitySold != in.QuantitySold {
		changed = append(changed, FieldSold)
	}
	if r.WatchCount != in.WatchCount {
		changed = append(changed, FieldWatchCount)
	}
	if r.ViewCount != in.ViewCount {
		changed = append(changed, FieldViewCount)
	}
	return changed
}

// ApplyFields overwrites the named non-status fields with values from in.
// Quantity changes route through SetQuantity so the auto-transition rule runs.
func (r *Record) ApplyFields(in *Record, fields []string) {
	for _, f := range fields {
		switch f {
		case FieldTitle:
			r.Title = in.Title
		case FieldPrice:
			r.Price = in.Price
		case FieldCurrency:
			r.Currency = in.Currency
		case FieldQuantity:
			// in was built by the transformer, so its quantity is non-negative
			_ = r.SetQuantity(in.QuantityAvailable)
		case FieldSold:
			r.QuantitySold = in.QuantitySold
		case FieldWatchCount:
			r.WatchCount = in.WatchCount
		case FieldViewCount:
			r.ViewCount = in.ViewCount
		}
	}
	if len(fields) > 0 {
		r.UpdatedAt = time.Now()
	}
}

// recordHistory appends a pending history entry for the transition
func (r *Record) recordHistory(from *string, to Status, reason, actor string) {
	system := actor == "" || actor == history.SystemActor
	r.pendingHistory = append(r.pendingHistory,
		history.NewEntry(r.AccountID, shared.KindListing, r.ID, from, to.String(), reason, actor, system))
}

// PendingHistory returns the history entries accumulated since the last take
func (r *Record) PendingHistory() []history.Entry {
	return r.pendingHistory
}

// TakeHistory returns and clears the pending history entries
func (r *Record) TakeHistory() []history.Entry {
	entries := r.pendingHistory
	r.pendingHistory = nil
	return entries
}
