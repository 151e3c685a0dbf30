package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
)

// SaveQualificationRecord upserts the qualification row for a conversation.
// Redelivery outside the idempotency window updates the row in place rather
// than creating a duplicate.
func (r *PostgresRepo) SaveQualificationRecord(ctx context.Context, record model.QualificationRecord) error {
	if record.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", apperrors.ErrBadRequest)
	}
	record.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns(record.GetUpdatableFields()),
		}).Create(&record)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveQualificationRecord Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "qualification_record", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save qualification record after retries",
			zap.String("conversation_id", record.ConversationID), zap.Error(commitErr))
		return commitErr // Already wrapped
	}

	return nil
}

// SaveProductInterestRecord upserts the product interest row for a conversation.
func (r *PostgresRepo) SaveProductInterestRecord(ctx context.Context, record model.ProductInterestRecord) error {
	if record.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", apperrors.ErrBadRequest)
	}
	record.UpdatedAt = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns(record.GetUpdatableFields()),
		}).Create(&record)

		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveProductInterestRecord Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "product_interest_record", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save product interest record after retries",
			zap.String("conversation_id", record.ConversationID), zap.Error(commitErr))
		return commitErr // Already wrapped
	}

	return nil
}

// UnionVideoShowcase merges newly shown video titles into the conversation's
// showcase row. The row is locked for the read-modify-write so two
// concurrent deliveries both land in the final set, neither overwrites the
// other.
func (r *PostgresRepo) UnionVideoShowcase(ctx context.Context, record model.VideoShowcaseRecord, titles []string) error {
	if record.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", apperrors.ErrBadRequest)
	}
	if len(titles) == 0 {
		return nil
	}

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.VideoShowcaseRecord
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ?", record.ConversationID).
			First(&existing).Error

		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: failed to lock video showcase row: %w", apperrors.ErrDatabase, findErr)
				return txErr
			}
			shown, marshalErr := json.Marshal(unionTitles(nil, titles))
			if marshalErr != nil {
				txErr = fmt.Errorf("%w: failed to marshal videos_shown: %w", apperrors.ErrBadRequest, marshalErr)
				return txErr
			}
			record.VideosShown = shown
			record.UpdatedAt = utils.Now()
			if createErr := tx.Create(&record).Error; createErr != nil {
				txErr = raceOnDuplicate(checkConstraintViolation(createErr))
				return txErr
			}
		} else {
			var current []string
			if len(existing.VideosShown) > 0 {
				if unmarshalErr := json.Unmarshal(existing.VideosShown, &current); unmarshalErr != nil {
					logger.FromContext(ctx).Warn("Discarding unreadable videos_shown value",
						zap.String("conversation_id", record.ConversationID), zap.Error(unmarshalErr))
					current = nil
				}
			}
			merged, marshalErr := json.Marshal(unionTitles(current, titles))
			if marshalErr != nil {
				txErr = fmt.Errorf("%w: failed to marshal videos_shown: %w", apperrors.ErrBadRequest, marshalErr)
				return txErr
			}

			updateFields := map[string]interface{}{
				"videos_shown": merged,
				"received_at":  record.ReceivedAt,
				"updated_at":   utils.Now(),
			}
			if record.ObjectiveName != "" {
				updateFields["objective_name"] = record.ObjectiveName
			}
			if len(record.RawPayload) > 0 {
				updateFields["raw_payload"] = record.RawPayload
			}
			if updateErr := tx.Model(&existing).Updates(updateFields).Error; updateErr != nil {
				txErr = checkConstraintViolation(updateErr)
				return txErr
			}
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = checkConstraintViolation(commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UnionVideoShowcase Commit", operation)
	observer.ObserveDbOperationDuration("union", "video_showcase_record", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to union video showcase after retries",
			zap.String("conversation_id", record.ConversationID), zap.Error(commitErr))
		return commitErr // Already wrapped
	}

	return nil
}

// unionTitles appends new titles to existing ones, deduplicating while
// preserving first-seen order.
func unionTitles(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]string, 0, len(existing)+len(incoming))
	for _, lists := range [][]string{existing, incoming} {
		for _, title := range lists {
			if title == "" {
				continue
			}
			if _, dup := seen[title]; dup {
				continue
			}
			seen[title] = struct{}{}
			out = append(out, title)
		}
	}
	return out
}

// UpsertCtaTracking creates or updates the CTA row for a conversation.
// Shown and clicked timestamps keep their first value, the URL keeps the
// value the handler resolved (admin precedence is applied before this call).
func (r *PostgresRepo) UpsertCtaTracking(ctx context.Context, record model.CtaTrackingRecord) error {
	if record.ConversationID == "" {
		return fmt.Errorf("%w: conversation_id is required", apperrors.ErrBadRequest)
	}

	operation := func() error {
		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.CtaTrackingRecord
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ?", record.ConversationID).
			First(&existing).Error

		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: failed to lock cta tracking row: %w", apperrors.ErrDatabase, findErr)
				return txErr
			}
			record.UpdatedAt = utils.Now()
			if createErr := tx.Create(&record).Error; createErr != nil {
				txErr = raceOnDuplicate(checkConstraintViolation(createErr))
				return txErr
			}
		} else {
			updateFields := map[string]interface{}{
				"received_at": record.ReceivedAt,
				"updated_at":  utils.Now(),
			}
			if record.ShownAt != nil && existing.ShownAt == nil {
				updateFields["shown_at"] = record.ShownAt
			}
			if record.ClickedAt != nil && existing.ClickedAt == nil {
				updateFields["clicked_at"] = record.ClickedAt
			}
			if record.CtaURL != "" {
				updateFields["cta_url"] = record.CtaURL
			}
			if record.ObjectiveName != "" {
				updateFields["objective_name"] = record.ObjectiveName
			}
			if len(record.RawPayload) > 0 {
				updateFields["raw_payload"] = record.RawPayload
			}
			if updateErr := tx.Model(&existing).Updates(updateFields).Error; updateErr != nil {
				txErr = checkConstraintViolation(updateErr)
				return txErr
			}
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = checkConstraintViolation(commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertCtaTracking Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "cta_tracking_record", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert cta tracking after retries",
			zap.String("conversation_id", record.ConversationID), zap.Error(commitErr))
		return commitErr // Already wrapped
	}

	return nil
}
