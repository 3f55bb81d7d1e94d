package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies the kind of record an operation targets
type EntityKind string

const (
	KindOrder   EntityKind = "order"
	KindListing EntityKind = "listing"
)

// IsValid checks if the entity kind is valid
func (k EntityKind) IsValid() bool {
	switch k {
	case KindOrder, KindListing:
		return true
	}
	return false
}

// String returns the string representation of EntityKind
func (k EntityKind) String() string {
	return string(k)
}

// ChangeType classifies how a record changed
type ChangeType string

const (
	ChangeCreated       ChangeType = "created"
	ChangeUpdated       ChangeType = "updated"
	ChangeStatusChanged ChangeType = "status_changed"
)

// ChangeEvent is a per-record change notification. It is ephemeral: the core
// publishes it after a committed write and never persists it.
type ChangeEvent struct {
	ID            uuid.UUID  `json:"id"`
	Kind          EntityKind `json:"kind"`
	RecordID      uuid.UUID  `json:"record_id"`
	AccountID     uuid.UUID  `json:"account_id"`
	Type          ChangeType `json:"type"`
	ChangedFields []string   `json:"changed_fields,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// NewChangeEvent creates a change event stamped with the current time
func NewChangeEvent(kind EntityKind, recordID, accountID uuid.UUID, changeType ChangeType, changedFields []string) ChangeEvent {
	return ChangeEvent{
		ID:            uuid.New(),
		Kind:          kind,
		RecordID:      recordID,
		AccountID:     accountID,
		Type:          changeType,
		ChangedFields: changedFields,
		OccurredAt:    time.Now(),
	}
}

// ChangeHandler consumes change events. Handler failures must never propagate
// back into the write path that produced the event.
type ChangeHandler interface {
	// HandleChange processes one change event
	HandleChange(ctx context.Context, event ChangeEvent) error
	// ChangeTypes returns the change types this handler is interested in.
	// An empty slice means the handler receives all events.
	ChangeTypes() []ChangeType
}

// ChangeNotifier publishes change events to registered handlers
type ChangeNotifier interface {
	// Notify publishes one or more change events, fire-and-forget
	Notify(ctx context.Context, events ...ChangeEvent)
}

// ChangeSubscriber registers handlers for change events
type ChangeSubscriber interface {
	// Subscribe registers a handler for specific change types.
	// If no change types are provided, the handler receives all events.
	Subscribe(handler ChangeHandler, changeTypes ...ChangeType)
	// Unsubscribe removes a handler from the subscription list
	Unsubscribe(handler ChangeHandler)
}

// ChangeBus combines notifier and subscriber capabilities
type ChangeBus interface {
	ChangeNotifier
	ChangeSubscriber
}
