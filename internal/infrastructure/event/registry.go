package event

import (
	"sync"

	"github.com/sellerhub/backend/internal/domain/shared"
)

// HandlerRegistry tracks change handlers by change type. A handler registered
// with no types receives all events.
type HandlerRegistry struct {
	mu       sync.RWMutex
	byType   map[shared.ChangeType][]shared.ChangeHandler
	catchAll []shared.ChangeHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		byType: make(map[shared.ChangeType][]shared.ChangeHandler),
	}
}

// Register adds a handler for the given change types
func (r *HandlerRegistry) Register(handler shared.ChangeHandler, changeTypes ...shared.ChangeType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(changeTypes) == 0 {
		r.catchAll = append(r.catchAll, handler)
		return
	}
	for _, t := range changeTypes {
		r.byType[t] = append(r.byType[t], handler)
	}
}

// Unregister removes a handler from all subscriptions
func (r *HandlerRegistry) Unregister(handler shared.ChangeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t, handlers := range r.byType {
		r.byType[t] = removeHandler(handlers, handler)
	}
	r.catchAll = removeHandler(r.catchAll, handler)
}

// HandlersFor returns the handlers interested in a change type
func (r *HandlerRegistry) HandlersFor(changeType shared.ChangeType) []shared.ChangeHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	typed := r.byType[changeType]
	result := make([]shared.ChangeHandler, 0, len(typed)+len(r.catchAll))
	result = append(result, typed...)
	result = append(result, r.catchAll...)
	return result
}

func removeHandler(handlers []shared.ChangeHandler, target shared.ChangeHandler) []shared.ChangeHandler {
	out := handlers[:0]
	for _, h := range handlers {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}
