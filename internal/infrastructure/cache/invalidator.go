package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/sellerhub/backend/internal/domain/shared"
)

// SummaryInvalidator drops cached summaries when records change. It is a
// change-event subscriber; failures here never reach the write path.
type SummaryInvalidator struct {
	cache  *RedisRecordCache
	logger *zap.Logger
}

// NewSummaryInvalidator creates a new SummaryInvalidator
func NewSummaryInvalidator(cache *RedisRecordCache, logger *zap.Logger) *SummaryInvalidator {
	return &SummaryInvalidator{cache: cache, logger: logger}
}

// HandleChange invalidates the summary for the changed record's account
func (i *SummaryInvalidator) HandleChange(ctx context.Context, event shared.ChangeEvent) error {
	if err := i.cache.Invalidate(ctx, event.AccountID, event.Kind); err != nil {
		i.logger.Warn("failed to invalidate summary cache",
			zap.String("account_id", event.AccountID.String()),
			zap.String("kind", event.Kind.String()),
			zap.Error(err))
		return err
	}
	return nil
}

// ChangeTypes returns an empty slice: every change invalidates the summary
func (i *SummaryInvalidator) ChangeTypes() []shared.ChangeType {
	return nil
}
