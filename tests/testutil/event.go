// Package testutil provides common test utilities for the seller hub backend.
package testutil

import (
	"context"
	"sync"

	"github.com/sellerhub/backend/internal/domain/shared"
)

// MockChangeHandler is a mock implementation of shared.ChangeHandler for
// asserting on published change notifications.
type MockChangeHandler struct {
	mu          sync.Mutex
	changeTypes []shared.ChangeType
	handled     []shared.ChangeEvent
	err         error
}

// NewMockChangeHandler creates a new mock change handler. With no change
// types it receives all events.
func NewMockChangeHandler(changeTypes ...shared.ChangeType) *MockChangeHandler {
	return &MockChangeHandler{
		changeTypes: changeTypes,
		handled:     make([]shared.ChangeEvent, 0),
	}
}

// ChangeTypes returns the change types this handler subscribes to.
func (h *MockChangeHandler) ChangeTypes() []shared.ChangeType {
	return h.changeTypes
}

// HandleChange records an event.
func (h *MockChangeHandler) HandleChange(ctx context.Context, event shared.ChangeEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

// Handled returns all handled events.
func (h *MockChangeHandler) Handled() []shared.ChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]shared.ChangeEvent, len(h.handled))
	copy(result, h.handled)
	return result
}

// HandledCount returns the number of handled events.
func (h *MockChangeHandler) HandledCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.handled)
}

// CountByType returns handled event counts grouped by change type.
func (h *MockChangeHandler) CountByType() map[shared.ChangeType]int {
	h.mu.Lock()
	defer h.mu.Unlock()
	counts := make(map[shared.ChangeType]int)
	for _, ev := range h.handled {
		counts[ev.Type]++
	}
	return counts
}

// SetError sets the error to return from HandleChange.
func (h *MockChangeHandler) SetError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Reset clears all handled events.
func (h *MockChangeHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = make([]shared.ChangeEvent, 0)
	h.err = nil
}

var _ shared.ChangeHandler = (*MockChangeHandler)(nil)
