// Package event delivers record change notifications to registered
// subscribers. Delivery is fire-and-forget: a failing or panicking subscriber
// is logged and skipped, never failing the write path that emitted the event.
package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/sellerhub/backend/internal/domain/shared"
)

// InMemoryChangeBus implements shared.ChangeBus with synchronous in-process
// dispatch.
type InMemoryChangeBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
}

// NewInMemoryChangeBus creates a new in-memory change bus
func NewInMemoryChangeBus(logger *zap.Logger) *InMemoryChangeBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryChangeBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Notify publishes events to all registered handlers. Handler errors are
// logged and swallowed.
func (b *InMemoryChangeBus) Notify(ctx context.Context, events ...shared.ChangeEvent) {
	for _, ev := range events {
		for _, handler := range b.registry.HandlersFor(ev.Type) {
			if err := b.dispatch(ctx, handler, ev); err != nil {
				b.logger.Error("change handler failed",
					zap.String("change_type", string(ev.Type)),
					zap.String("kind", string(ev.Kind)),
					zap.String("record_id", ev.RecordID.String()),
					zap.Error(err),
				)
			}
		}
	}
}

// Subscribe registers a handler for specific change types
func (b *InMemoryChangeBus) Subscribe(handler shared.ChangeHandler, changeTypes ...shared.ChangeType) {
	if len(changeTypes) == 0 {
		changeTypes = handler.ChangeTypes()
	}
	b.registry.Register(handler, changeTypes...)
	b.logger.Debug("change handler subscribed", zap.Int("types", len(changeTypes)))
}

// Unsubscribe removes a handler
func (b *InMemoryChangeBus) Unsubscribe(handler shared.ChangeHandler) {
	b.registry.Unregister(handler)
}

// dispatch delivers one event to one handler, recovering panics
func (b *InMemoryChangeBus) dispatch(ctx context.Context, handler shared.ChangeHandler, ev shared.ChangeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("change handler panicked",
				zap.String("change_type", string(ev.Type)),
				zap.Any("panic", r),
			)
		}
	}()
	return handler.HandleChange(ctx, ev)
}

// Ensure InMemoryChangeBus implements ChangeBus
var _ shared.ChangeBus = (*InMemoryChangeBus)(nil)
