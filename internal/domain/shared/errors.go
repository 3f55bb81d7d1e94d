package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInvalidTransition   = NewDomainError("INVALID_TRANSITION", "Status transition not allowed from current status")
	ErrAccountInactive     = NewDomainError("ACCOUNT_INACTIVE", "Account is not active")
	ErrLockNotAcquired     = NewDomainError("LOCK_NOT_ACQUIRED", "Could not acquire account lock")
)

// IsInvalidTransition reports whether err is an invalid status transition error
func IsInvalidTransition(err error) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == ErrInvalidTransition.Code
}
