package listing

// Status represents the lifecycle status of a marketplace listing
type Status string

const (
	StatusDraft      Status = "draft"
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusOutOfStock Status = "out_of_stock"
	StatusSold       Status = "sold"
	StatusEnded      Status = "ended"
	StatusSuspended  Status = "suspended"
)

// InitialStatus is the status assigned to newly imported listings that carry
// no explicit status column.
const InitialStatus = StatusDraft

// IsValid checks if the status is a valid listing Status
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusInactive, StatusOutOfStock,
		StatusSold, StatusEnded, StatusSuspended:
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
	case StatusDraft:
		return target == StatusActive || target == StatusInactive
	case StatusActive:
		return target == StatusInactive || target == StatusSold ||
			target == StatusEnded || target == StatusOutOfStock
	case StatusInactive:
		return target == StatusActive || target == StatusEnded
	case StatusOutOfStock:
		return target == StatusActive || target == StatusInactive
	case StatusSuspended:
		return target == StatusActive || target == StatusInactive
	case StatusSold, StatusEnded:
		return false // Terminal for the reconciliation engine
	}
	return false
}

// IsTerminal returns true if no transition leaves this status
func (s Status) IsTerminal() bool {
	return s == StatusSold || s == StatusEnded
}
