package storage

import (
	"context"
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

// UpsertConversationDetail creates or updates the conversation row keyed by
// conversation_id. The existing row is locked and merged field by field so
// out-of-order deliveries cannot blank out data an earlier event persisted.
func (r *PostgresRepo) UpsertConversationDetail(ctx context.Context, detail model.ConversationDetail) error {
	if detail.ConversationID == "" {
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

		var existing model.ConversationDetail
		findErr := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ?", detail.ConversationID).
			First(&existing).Error

		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				txErr = fmt.Errorf("%w: failed to lock conversation row: %w", apperrors.ErrDatabase, findErr)
				return txErr
			}
			detail.UpdatedAt = utils.Now()
			if createErr := tx.Create(&detail).Error; createErr != nil {
				txErr = raceOnDuplicate(checkConstraintViolation(createErr))
				return txErr
			}
		} else {
			existing.Merge(&detail)
			existing.UpdatedAt = utils.Now()
			if saveErr := tx.Save(&existing).Error; saveErr != nil {
				txErr = checkConstraintViolation(saveErr)
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
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertConversationDetail Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "conversation_detail", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert conversation detail after retries",
			zap.String("conversation_id", detail.ConversationID), zap.Error(commitErr))
		return commitErr // Already wrapped
	}

	return nil
}

// FindConversationDetail loads the conversation row by its external id.
func (r *PostgresRepo) FindConversationDetail(ctx context.Context, conversationID string) (*model.ConversationDetail, error) {
	var detail model.ConversationDetail
	operation := func() error {
		result := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&detail)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindConversationDetail", operation)
	observer.ObserveDbOperationDuration("find", "conversation_detail", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find conversation detail after retries",
			zap.String("conversation_id", conversationID), zap.Error(findErr))
		return nil, findErr // Already wrapped
	}

	return &detail, nil
}
