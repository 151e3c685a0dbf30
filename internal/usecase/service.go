package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/notify"
	"github.com/Valbows/NewDomo-sub006/internal/sanitize"
	"github.com/Valbows/NewDomo-sub006/internal/storage"
	"github.com/Valbows/NewDomo-sub006/internal/validator"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
)

// EventService performs the persistence side effects the handlers request:
// conversation upserts, per-objective analytics rows, counter bumps and live
// feed notifications. It is the single write path of the pipeline.
type EventService struct {
	conversationRepo storage.ConversationRepo
	analyticsRepo    storage.AnalyticsRepo
	demoRepo         storage.DemoRepo
	sanitizer        *sanitize.Sanitizer
	notifier         notify.Notifier
	worker           IAnalyticsWorker
}

// NewEventService creates the ingestion write service.
func NewEventService(
	conversationRepo storage.ConversationRepo,
	analyticsRepo storage.AnalyticsRepo,
	demoRepo storage.DemoRepo,
	sanitizer *sanitize.Sanitizer,
	notifier notify.Notifier,
	worker IAnalyticsWorker,
) *EventService {
	if notifier == nil {
		notifier = notify.NewNoopNotifier()
	}
	return &EventService{
		conversationRepo: conversationRepo,
		analyticsRepo:    analyticsRepo,
		demoRepo:         demoRepo,
		sanitizer:        sanitizer,
		notifier:         notifier,
		worker:           worker,
	}
}

// UpsertConversation persists a conversation lifecycle patch. The owning
// demo is taken from the update when the payload carried one, otherwise
// resolved through the existing conversation row; an unresolvable demo is
// accepted and skipped so provider retries are never provoked.
func (s *EventService) UpsertConversation(ctx context.Context, update model.ConversationUpdate) error {
	if err := validator.Validate(update); err != nil {
		return err
	}
	log := logger.FromContext(ctx).With(zap.String("conversation_id", update.ConversationID))

	detail := model.ConversationDetail{
		ConversationID:  update.ConversationID,
		DemoID:          update.DemoID,
		Status:          update.Status,
		StartedAt:       update.StartedAt,
		CompletedAt:     update.CompletedAt,
		DurationSeconds: update.DurationSeconds,
	}

	if detail.DemoID == "" {
		existing, err := s.conversationRepo.FindConversationDetail(ctx, update.ConversationID)
		switch {
		case err == nil && existing.DemoID != "":
			detail.DemoID = existing.DemoID
		case err == nil || errors.Is(err, apperrors.ErrNotFound):
			log.Warn("Cannot resolve owning demo for conversation, skipping lifecycle write",
				zap.Error(apperrors.ErrUnresolvedConversation))
			return nil
		default:
			return fmt.Errorf("failed to resolve owning demo: %w", err)
		}
	}

	if update.Transcript != nil {
		transcript, err := toJSON(update.Transcript)
		if err != nil {
			return fmt.Errorf("%w: failed to encode transcript: %v", apperrors.ErrValidation, err)
		}
		detail.Transcript = transcript
	}
	if update.Perception != nil {
		perception, err := toJSON(update.Perception)
		if err != nil {
			return fmt.Errorf("%w: failed to encode perception analysis: %v", apperrors.ErrValidation, err)
		}
		detail.PerceptionAnalysis = perception
	}

	if err := s.conversationRepo.UpsertConversationDetail(ctx, detail); err != nil {
		return err
	}

	if update.Status == model.ConversationStatusCompleted {
		s.submitCounter(ctx, detail.DemoID, model.CounterConversationsCompleted)
	}
	s.publish(ctx, notify.Notification{
		Kind:           notify.KindConversationUpdated,
		ConversationID: update.ConversationID,
		DemoID:         detail.DemoID,
		ReceivedAt:     update.ReceivedAt,
	})
	return nil
}

// SaveQualification persists a qualification capture.
func (s *EventService) SaveQualification(ctx context.Context, data model.QualificationData) error {
	if err := validator.Validate(data); err != nil {
		return err
	}
	demoID := s.resolveDemoID(ctx, data.ConversationID)

	raw, err := s.sanitizedJSON(data.RawPayload)
	if err != nil {
		return err
	}
	record := model.QualificationRecord{
		ConversationID: data.ConversationID,
		DemoID:         demoID,
		ObjectiveName:  data.ObjectiveName,
		FirstName:      data.FirstName,
		LastName:       data.LastName,
		Email:          data.Email,
		Position:       data.Position,
		RawPayload:     raw,
		ReceivedAt:     data.ReceivedAt,
	}

	if err := s.analyticsRepo.SaveQualificationRecord(ctx, record); err != nil {
		return err
	}

	s.submitCounter(ctx, demoID, model.CounterQualifiedLeads)
	s.publish(ctx, notify.Notification{
		Kind:           notify.KindQualification,
		ConversationID: data.ConversationID,
		DemoID:         demoID,
		ReceivedAt:     data.ReceivedAt,
	})
	return nil
}

// SaveProductInterest persists a product-interest capture.
func (s *EventService) SaveProductInterest(ctx context.Context, data model.ProductInterestData) error {
	if err := validator.Validate(data); err != nil {
		return err
	}
	demoID := s.resolveDemoID(ctx, data.ConversationID)

	raw, err := s.sanitizedJSON(data.RawPayload)
	if err != nil {
		return err
	}
	painPoints, err := toJSON(data.PainPoints)
	if err != nil {
		return fmt.Errorf("%w: failed to encode pain points: %v", apperrors.ErrValidation, err)
	}
	record := model.ProductInterestRecord{
		ConversationID:  data.ConversationID,
		DemoID:          demoID,
		ObjectiveName:   data.ObjectiveName,
		PrimaryInterest: data.PrimaryInterest,
		PainPoints:      painPoints,
		RawPayload:      raw,
		ReceivedAt:      data.ReceivedAt,
	}

	if err := s.analyticsRepo.SaveProductInterestRecord(ctx, record); err != nil {
		return err
	}

	s.publish(ctx, notify.Notification{
		Kind:           notify.KindProductInterest,
		ConversationID: data.ConversationID,
		DemoID:         demoID,
		ReceivedAt:     data.ReceivedAt,
	})
	return nil
}

// RecordVideosShown unions newly shown titles into the showcase record.
func (s *EventService) RecordVideosShown(ctx context.Context, data model.VideoShowcaseData) error {
	if err := validator.Validate(data); err != nil {
		return err
	}
	if len(data.Titles) == 0 {
		logger.FromContext(ctx).Warn("Video showcase event without titles, skipping",
			zap.String("conversation_id", data.ConversationID))
		return nil
	}

	demoID := s.resolveDemoID(ctx, data.ConversationID)

	raw, err := s.sanitizedJSON(data.RawPayload)
	if err != nil {
		return err
	}
	record := model.VideoShowcaseRecord{
		ConversationID: data.ConversationID,
		DemoID:         demoID,
		ObjectiveName:  data.ObjectiveName,
		RawPayload:     raw,
		ReceivedAt:     data.ReceivedAt,
	}

	if err := s.analyticsRepo.UnionVideoShowcase(ctx, record, data.Titles); err != nil {
		return err
	}

	s.submitCounter(ctx, demoID, model.CounterVideosShown)
	s.publish(ctx, notify.Notification{
		Kind:           notify.KindVideoShown,
		ConversationID: data.ConversationID,
		DemoID:         demoID,
		ReceivedAt:     data.ReceivedAt,
	})
	return nil
}

// RecordCtaEvent persists a CTA display or click. The URL stored is the one
// actually presented: the admin-configured demo URL takes precedence over
// both the demo-metadata default and whatever the provider echoed back.
func (s *EventService) RecordCtaEvent(ctx context.Context, data model.CtaEventData) error {
	if err := validator.Validate(data); err != nil {
		return err
	}
	demoID := ""
	ctaURL := data.RequestedURL
	if demo, err := s.demoRepo.FindDemoByConversationID(ctx, data.ConversationID); err == nil {
		demoID = demo.ID
		if resolved := demo.ResolveCtaURL(); resolved != "" {
			ctaURL = resolved
		}
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		logger.FromContext(ctx).Warn("Failed to resolve demo for CTA event", zap.Error(err))
	}

	raw, err := s.sanitizedJSON(data.RawPayload)
	if err != nil {
		return err
	}
	record := model.CtaTrackingRecord{
		ConversationID: data.ConversationID,
		DemoID:         demoID,
		ObjectiveName:  data.ObjectiveName,
		CtaURL:         ctaURL,
		RawPayload:     raw,
		ReceivedAt:     data.ReceivedAt,
	}
	if data.Shown {
		shownAt := data.ReceivedAt
		record.ShownAt = &shownAt
	}
	if data.Clicked {
		clickedAt := data.ReceivedAt
		record.ClickedAt = &clickedAt
	}

	if err := s.analyticsRepo.UpsertCtaTracking(ctx, record); err != nil {
		return err
	}

	kind := notify.KindCtaShown
	if data.Clicked {
		kind = notify.KindCtaClicked
		s.submitCounter(ctx, demoID, model.CounterCtaClicks)
	}
	s.publish(ctx, notify.Notification{
		Kind:           kind,
		ConversationID: data.ConversationID,
		DemoID:         demoID,
		ReceivedAt:     data.ReceivedAt,
	})
	return nil
}

// resolveDemoID looks up the owning demo through the conversation row.
// Best effort: analytics rows are written even when no demo is resolvable
// yet, out-of-order delivery backfills the ownership later.
func (s *EventService) resolveDemoID(ctx context.Context, conversationID string) string {
	demo, err := s.demoRepo.FindDemoByConversationID(ctx, conversationID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			logger.FromContext(ctx).Warn("Failed to resolve owning demo",
				zap.String("conversation_id", conversationID), zap.Error(err))
		}
		return ""
	}
	return demo.ID
}

// submitCounter queues a best-effort counter bump for the owning demo.
func (s *EventService) submitCounter(ctx context.Context, demoID string, kind model.CounterKind) {
	if s.worker == nil || demoID == "" {
		return
	}
	task := AnalyticsTaskData{
		Ctx:    context.WithoutCancel(ctx),
		DemoID: demoID,
		Kind:   kind,
	}
	if err := s.worker.SubmitTask(task); err != nil {
		logger.FromContext(ctx).Warn("Failed to submit counter bump",
			zap.String("demo_id", demoID),
			zap.String("counter_kind", string(kind)),
			zap.Error(err))
	}
}

// publish emits a live feed notification. Failures are logged, never
// surfaced to the webhook path.
func (s *EventService) publish(ctx context.Context, notification notify.Notification) {
	if err := s.notifier.PublishNotification(ctx, notification); err != nil {
		logger.FromContext(ctx).Warn("Failed to publish notification",
			zap.String("kind", notification.Kind), zap.Error(err))
	}
}

// sanitizedJSON runs the archival sanitization pass and encodes the result.
func (s *EventService) sanitizedJSON(payload map[string]interface{}) (datatypes.JSON, error) {
	if payload == nil {
		return nil, nil
	}
	value := s.sanitizer.Sanitize(payload)
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode raw payload: %v", apperrors.ErrValidation, err)
	}
	return datatypes.JSON(data), nil
}

func toJSON(v interface{}) (datatypes.JSON, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
