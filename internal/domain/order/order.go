package order

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
	FieldBuyerName   = "buyer_name"
	FieldBuyerEmail  = "buyer_email"
	FieldTotalAmount = "total_amount"
	FieldCurrency    = "currency"
	FieldCarrier     = "carrier"
	FieldTracking    = "tracking_number"
	FieldOrderedAt   = "ordered_at"
	FieldNotes       = "notes"
	FieldStatus      = "status"
)

// Record represents one marketplace order owned by an account.
// (AccountID, ExternalID) is unique; field updates flow through the
// reconciliation resolver, status updates through TransitionTo.
type Record struct {
	shared.AccountAggregateRoot
	ExternalID     string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_order_account_external,priority:2"`
	BuyerName      string          `gorm:"type:varchar(200);not null"`
	BuyerEmail     string          `gorm:"type:varchar(254)"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency       string          `gorm:"type:varchar(3);not null;default:'USD'"`
	Status         Status          `gorm:"type:varchar(32);not null"`
	Carrier        string          `gorm:"type:varchar(100)"`
	TrackingNumber string          `gorm:"type:varchar(100)"`
	OrderedAt      time.Time       `gorm:"not null"`
	ShippedAt      *time.Time
	DeliveredAt    *time.Time
	Notes          string `gorm:"type:varchar(1000)"`

	pendingHistory []history.Entry `gorm:"-"`
}

// TableName returns the table name for GORM
func (Record) TableName() string {
	return "order_records"
}

// New creates a new order record in the initial status and records the
// creation history entry (nil -> initial status).
func New(accountID uuid.UUID, externalID, buyerName string, total decimal.Decimal, orderedAt time.Time, actor string) (*Record, error) {
	if accountID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ACCOUNT", "Account ID cannot be empty")
	}
	if externalID == "" {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External order ID cannot be empty")
	}
	if len(externalID) > 64 {
		return nil, shared.NewDomainError("INVALID_EXTERNAL_ID", "External order ID cannot exceed 64 characters")
	}
	if buyerName == "" {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer name cannot be empty")
	}
	if total.IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Order total cannot be negative")
	}
	if orderedAt.IsZero() {
		return nil, shared.NewDomainError("INVALID_ORDER_DATE", "Order date cannot be empty")
	}

	rec := &Record{
		AccountAggregateRoot: shared.NewAccountAggregateRoot(accountID),
		ExternalID:           externalID,
		BuyerName:            buyerName,
		TotalAmount:          total,
		Currency:             "USD",
		Status:               InitialStatus,
		OrderedAt:            orderedAt,
	}
	rec.recordHistory(nil, InitialStatus, "imported", actor)
	return rec, nil
}

// TransitionTo moves the order to target if the transition table allows it.
// Entering shipped/delivered stamps the corresponding timestamp. Exactly one
// history entry is appended per successful transition.
func (r *Record) TransitionTo(target Status, reason, actor string) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", target))
	}
	if !r.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.ErrInvalidTransition.Code,
			fmt.Sprintf("Cannot transition order from %s to %s", r.Status, target))
	}

	from := r.Status.String()
	now := time.Now()
	r.Status = target
	switch target {
	case StatusShipped:
		r.ShippedAt = &now
	case StatusDelivered:
		r.DeliveredAt = &now
	}
	r.UpdatedAt = now
	r.recordHistory(&from, target, reason, actor)
	return nil
}

// FieldDiff returns the names of fields whose values differ from in,
// ignoring timestamps and status. The status field is compared separately by
// the caller because it mutates only through TransitionTo.
func (r *Record) FieldDiff(in *Record) []string {
	var changed []string
	if r.BuyerName != in.BuyerName {
		changed = append(changed, FieldBuyerName)
	}
	if r.BuyerEmail != in.BuyerEmail {
		changed = append(changed, FieldBuyerEmail)
	}
	if !r.TotalAmount.Equal(in.TotalAmount) {
		changed = append(changed, FieldTotalAmount)
	}
	if r.Currency != in.Currency {
		changed = append(changed, FieldCurrency)
	}
	if r.Carrier != in.Carrier {
		changed = append(changed, FieldCarrier)
	}
	if r.TrackingNumber != in.TrackingNumber {
		changed = append(changed, FieldTracking)
	}
	if !r.OrderedAt.Equal(in.OrderedAt) {
		changed = append(changed, FieldOrderedAt)
	}
	if r.Notes != in.Notes {
		changed = append(changed, FieldNotes)
	}
	return changed
}

// ApplyFields overwrites the named non-status fields with values from in
func (r *Record) ApplyFields(in *Record, fields []string) {
	for _, f := range fields {
		switch f {
		case FieldBuyerName:
			r.BuyerName = in.BuyerName
		case FieldBuyerEmail:
			r.BuyerEmail = in.BuyerEmail
		case FieldTotalAmount:
			r.TotalAmount = in.TotalAmount
		case FieldCurrency:
			r.Currency = in.Currency
		case FieldCarrier:
			r.Carrier = in.Carrier
		case FieldTracking:
			r.TrackingNumber = in.TrackingNumber
		case FieldOrderedAt:
			r.OrderedAt = in.OrderedAt
		case FieldNotes:
			r.Notes = in.Notes
		}
	}
	if len(fields) > 0 {
		r.UpdatedAt = time.Now()
	}
}

// SetNotes replaces the free-form notes field
func (r *Record) SetNotes(notes string) {
	r.Notes = notes
	r.UpdatedAt = time.Now()
}

// recordHistory appends a pending history entry for the transition
func (r *Record) recordHistory(from *string, to Status, reason, actor string) {
	system := actor == "" || actor == history.SystemActor
	r.pendingHistory = append(r.pendingHistory,
		history.NewEntry(r.AccountID, shared.KindOrder, r.ID, from, to.String(), reason, actor, system))
}

// PendingHistory returns the history entries accumulated since the last take
func (r *Record) PendingHistory() []history.Entry {
	return r.pendingHistory
}

// TakeHistory returns and clears the pending history entries. The persister
// writes them in the same transaction as the record itself.
func (r *Record) TakeHistory() []history.Entry {
	entries := r.pendingHistory
	r.pendingHistory = nil
	return entries
}
