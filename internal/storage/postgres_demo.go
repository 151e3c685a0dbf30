package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
)

// FindDemoByID loads a demo row.
func (r *PostgresRepo) FindDemoByID(ctx context.Context, demoID string) (*model.Demo, error) {
	var demo model.Demo
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", demoID).First(&demo)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindDemoByID", operation)
	observer.ObserveDbOperationDuration("find", "demo", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find demo after retries",
			zap.String("demo_id", demoID), zap.Error(findErr))
		return nil, findErr // Already wrapped
	}

	return &demo, nil
}

// FindDemoByConversationID resolves the demo owning a conversation by
// reading through the conversation_details row the start-of-conversation
// flow created. Returns ErrNotFound when the conversation is unknown or its
// demo row is gone.
func (r *PostgresRepo) FindDemoByConversationID(ctx context.Context, conversationID string) (*model.Demo, error) {
	var demo model.Demo
	operation := func() error {
		result := r.db.WithContext(ctx).
			Joins("JOIN conversation_details ON conversation_details.demo_id = demos.id").
			Where("conversation_details.conversation_id = ?", conversationID).
			First(&demo)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindDemoByConversationID", operation)
	observer.ObserveDbOperationDuration("find_by_conversation", "demo", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to resolve demo by conversation after retries",
			zap.String("conversation_id", conversationID), zap.Error(findErr))
		return nil, findErr // Already wrapped
	}

	return &demo, nil
}

// IncrementDemoCounter bumps one of the demo's denormalized analytics
// counters atomically.
func (r *PostgresRepo) IncrementDemoCounter(ctx context.Context, demoID string, kind model.CounterKind) error {
	column, ok := counterColumn(kind)
	if !ok {
		return fmt.Errorf("%w: unknown counter kind %q", apperrors.ErrBadRequest, kind)
	}

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.Demo{}).
			Where("id = ?", demoID).
			UpdateColumn(column, gorm.Expr(column+" + 1"))
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: demo %s", apperrors.ErrNotFound, demoID)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "IncrementDemoCounter Commit", operation)
	observer.ObserveDbOperationDuration("increment", "demo", time.Since(startTime), commitErr)

	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to increment demo counter after retries",
			zap.String("demo_id", demoID), zap.String("counter", string(kind)), zap.Error(commitErr))
		return commitErr // Already wrapped
	}

	return nil
}

// counterColumn validates the counter kind against the known columns so the
// gorm.Expr interpolation can never receive an arbitrary string.
func counterColumn(kind model.CounterKind) (string, bool) {
	switch kind {
	case model.CounterConversationsCompleted, model.CounterQualifiedLeads,
		model.CounterVideosShown, model.CounterCtaClicks:
		return string(kind), true
	}
	return "", false
}
