package order

// Status represents the lifecycle status of a marketplace order
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
	StatusRefunded   Status = "refunded"
)

// InitialStatus is the status assigned to newly imported orders that carry no
// explicit status column.
const InitialStatus = StatusPending

// IsValid checks if the status is a valid order Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned, StatusRefunded:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusPending:
		return target == StatusConfirmed || target == StatusCancelled
	case StatusConfirmed:
		return target == StatusProcessing || target == StatusCancelled
	case StatusProcessing:
		return target == StatusShipped || target == StatusCancelled
	case StatusShipped:
		return target == StatusDelivered || target == StatusReturned
	case StatusDelivered:
		return target == StatusReturned
	case StatusReturned:
		return target == StatusRefunded
	case StatusCancelled, StatusRefunded:
		return false // Terminal states
	}
	return false
}

// IsTerminal returns true if no transition leaves this status
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusRefunded
}
