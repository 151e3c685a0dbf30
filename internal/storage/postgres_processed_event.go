package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
)

// InsertProcessedEvent attempts to record an event fingerprint in the
// idempotency ledger. It returns true when this call inserted the row and
// false when the fingerprint was already present. The unique index on
// event_id is the only concurrency-control primitive: race losers see zero
// rows affected, not an error.
func (r *PostgresRepo) InsertProcessedEvent(ctx context.Context, record model.ProcessedEvent) (bool, error) {
	if record.EventID == "" {
		return false, fmt.Errorf("%w: event_id is required", apperrors.ErrBadRequest)
	}
	if record.ProcessedAt.IsZero() {
		record.ProcessedAt = utils.Now()
	}

	var inserted bool
	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).Create(&record)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		inserted = result.RowsAffected > 0
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "InsertProcessedEvent Commit", operation)
	observer.ObserveDbOperationDuration("insert", "processed_event", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to insert processed event after retries",
			zap.String("event_id", record.EventID), zap.Error(commitErr))
		return false, commitErr // Already wrapped
	}

	return inserted, nil
}

// DeleteProcessedEventsBefore prunes ledger rows older than the cutoff and
// returns the number of rows removed. Used by the retention sweeper.
func (r *PostgresRepo) DeleteProcessedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("processed_at < ?", cutoff).
			Delete(&model.ProcessedEvent{})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		deleted = result.RowsAffected
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "DeleteProcessedEventsBefore Commit", operation)
	observer.ObserveDbOperationDuration("delete", "processed_event", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to prune processed events after retries",
			zap.Time("cutoff", cutoff), zap.Error(commitErr))
		return 0, commitErr // Already wrapped
	}

	return deleted, nil
}
