package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"go.uber.org/zap"
)

// AnalyticsService defines the interface for objective analytics persistence
type AnalyticsService interface {
	SaveQualification(ctx context.Context, data model.QualificationData) error
	SaveProductInterest(ctx context.Context, data model.ProductInterestData) error
	RecordVideosShown(ctx context.Context, data model.VideoShowcaseData) error
	RecordCtaEvent(ctx context.Context, data model.CtaEventData) error
}

// ObjectiveHandler processes objective-completion events, dispatching on the
// objective name. Payloads that also carry transcript or perception data
// additionally run the lifecycle concern; the two persistence paths fail
// independently.
type ObjectiveHandler struct {
	analytics AnalyticsService
	lifecycle LifecycleService
}

// NewObjectiveHandler creates a new objective-completion event handler
func NewObjectiveHandler(analytics AnalyticsService, lifecycle LifecycleService) *ObjectiveHandler {
	return &ObjectiveHandler{
		analytics: analytics,
		lifecycle: lifecycle,
	}
}

// HandleEvent processes objective-completion events
func (h *ObjectiveHandler) HandleEvent(ctx context.Context, eventType model.EventType, event *model.InboundEvent) error {
	requestID := uuid.NewString()
	ctx = logger.WithRequestID(ctx, requestID)

	objectiveName := event.ResolveObjectiveName()
	log := logger.FromContext(ctx).With(zap.String("objective_name", objectiveName))
	ctx = logger.WithLogger(ctx, log)
	log.Info("Processing objective completion")

	partial := &apperrors.PartialIngestionError{}

	// Lifecycle concern first: transcript or perception data riding along
	// on an objective event is persisted even when the analytics row fails.
	if update := ExtractConversationUpdate(eventType, event); update.HasContent() {
		if err := h.lifecycle.UpsertConversation(ctx, update); err != nil {
			log.Error("Failed to upsert conversation detail", zap.Error(err))
			partial.Add(model.ConversationDetail{}.TableName(), err)
		}
	}

	var err error
	switch objectiveName {
	case model.ObjectiveGreetingQualification:
		err = h.handleQualification(ctx, event, objectiveName)
		if err != nil {
			partial.Add(model.QualificationRecord{}.TableName(), err)
		}
	case model.ObjectiveProductInterest:
		err = h.handleProductInterest(ctx, event, objectiveName)
		if err != nil {
			partial.Add(model.ProductInterestRecord{}.TableName(), err)
		}
	case model.ObjectiveVideoShowcase:
		err = h.handleVideoShowcase(ctx, event, objectiveName)
		if err != nil {
			partial.Add(model.VideoShowcaseRecord{}.TableName(), err)
		}
	case model.ObjectiveCtaDisplay:
		err = h.handleCtaDisplay(ctx, event, objectiveName)
		if err != nil {
			partial.Add(model.CtaTrackingRecord{}.TableName(), err)
		}
	default:
		// Forward compatibility: new objectives the provider introduces are
		// accepted without error.
		log.Warn("Unknown objective name, accepting without persistence")
	}
	if err != nil {
		log.Error("Objective handler failed", zap.Error(err))
	}

	return partial.OrNil()
}

// handleQualification persists the contact fields captured by the greeting
// and qualification objective.
func (h *ObjectiveHandler) handleQualification(ctx context.Context, event *model.InboundEvent, objectiveName string) error {
	if event.ConversationID == "" {
		return fmt.Errorf("%w: qualification event missing conversation id", apperrors.ErrBadRequest)
	}
	vars, ok := event.OutputVariables()
	if !ok {
		return fmt.Errorf("%w: qualification event missing output variables", apperrors.ErrBadRequest)
	}

	data := model.QualificationData{
		ConversationID: event.ConversationID,
		ObjectiveName:  objectiveName,
		FirstName:      stringVar(vars, "first_name"),
		LastName:       stringVar(vars, "last_name"),
		Email:          stringVar(vars, "email"),
		Position:       stringVar(vars, "position", "job_title"),
		RawPayload:     event.Raw,
		ReceivedAt:     event.ReceivedAt,
	}

	logger.FromContext(ctx).Info("Processing qualification capture",
		zap.String("conversation_id", data.ConversationID))
	return h.analytics.SaveQualification(ctx, data)
}

// handleProductInterest persists the findings of the product-interest
// discovery objective.
func (h *ObjectiveHandler) handleProductInterest(ctx context.Context, event *model.InboundEvent, objectiveName string) error {
	if event.ConversationID == "" {
		return fmt.Errorf("%w: product interest event missing conversation id", apperrors.ErrBadRequest)
	}
	vars, _ := event.OutputVariables()

	data := model.ProductInterestData{
		ConversationID:  event.ConversationID,
		ObjectiveName:   objectiveName,
		PrimaryInterest: stringVar(vars, "primary_interest", "interest"),
		PainPoints:      stringListVar(vars, "pain_points"),
		RawPayload:      event.Raw,
		ReceivedAt:      event.ReceivedAt,
	}

	logger.FromContext(ctx).Info("Processing product interest capture",
		zap.String("conversation_id", data.ConversationID))
	return h.analytics.SaveProductInterest(ctx, data)
}

// handleVideoShowcase unions newly shown video titles into the showcase
// record for the conversation.
func (h *ObjectiveHandler) handleVideoShowcase(ctx context.Context, event *model.InboundEvent, objectiveName string) error {
	if event.ConversationID == "" {
		return fmt.Errorf("%w: video showcase event missing conversation id", apperrors.ErrBadRequest)
	}
	vars, _ := event.OutputVariables()
	titles := stringListVar(vars, "videos_shown", "video_titles", "video_title", "videos")

	data := model.VideoShowcaseData{
		ConversationID: event.ConversationID,
		ObjectiveName:  objectiveName,
		Titles:         titles,
		RawPayload:     event.Raw,
		ReceivedAt:     event.ReceivedAt,
	}

	logger.FromContext(ctx).Info("Processing video showcase capture",
		zap.Strings("titles", titles))
	return h.analytics.RecordVideosShown(ctx, data)
}

// handleCtaDisplay records that the call-to-action was presented.
func (h *ObjectiveHandler) handleCtaDisplay(ctx context.Context, event *model.InboundEvent, objectiveName string) error {
	if event.ConversationID == "" {
		return fmt.Errorf("%w: cta display event missing conversation id", apperrors.ErrBadRequest)
	}
	vars, _ := event.OutputVariables()

	data := model.CtaEventData{
		ConversationID: event.ConversationID,
		ObjectiveName:  objectiveName,
		RequestedURL:   stringVar(vars, "cta_url", "url"),
		Shown:          true,
		RawPayload:     event.Raw,
		ReceivedAt:     event.ReceivedAt,
	}

	logger.FromContext(ctx).Info("Processing CTA display",
		zap.String("conversation_id", data.ConversationID))
	return h.analytics.RecordCtaEvent(ctx, data)
}
