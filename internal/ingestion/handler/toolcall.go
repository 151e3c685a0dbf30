package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"go.uber.org/zap"
)

// ToolCallHandler processes tool invocation events: video playback and CTA
// display/click side effects reported by the conversation provider.
type ToolCallHandler struct {
	analytics AnalyticsService
	lifecycle LifecycleService
}

// NewToolCallHandler creates a new tool-call event handler
func NewToolCallHandler(analytics AnalyticsService, lifecycle LifecycleService) *ToolCallHandler {
	return &ToolCallHandler{
		analytics: analytics,
		lifecycle: lifecycle,
	}
}

// HandleEvent processes tool-call events
func (h *ToolCallHandler) HandleEvent(ctx context.Context, eventType model.EventType, event *model.InboundEvent) error {
	requestID := uuid.NewString()
	ctx = logger.WithRequestID(ctx, requestID)

	toolName := event.ResolveToolName()
	log := logger.FromContext(ctx).With(zap.String("tool_name", toolName))
	ctx = logger.WithLogger(ctx, log)
	log.Info("Processing tool call")

	if event.ConversationID == "" {
		// Tool beacons without a conversation key cannot be attributed.
		// Accepted, not retried.
		log.Warn("Tool call without conversation id, skipping")
		return nil
	}

	partial := &apperrors.PartialIngestionError{}

	if update := ExtractConversationUpdate(eventType, event); update.HasContent() {
		if err := h.lifecycle.UpsertConversation(ctx, update); err != nil {
			log.Error("Failed to upsert conversation detail", zap.Error(err))
			partial.Add(model.ConversationDetail{}.TableName(), err)
		}
	}

	args := event.ToolArguments()
	var err error
	switch toolName {
	case model.ToolShowVideo, model.ToolFetchVideo:
		err = h.handleVideoTool(ctx, event, args)
		if err != nil {
			partial.Add(model.VideoShowcaseRecord{}.TableName(), err)
		}
	case model.ToolShowCta:
		err = h.handleCtaTool(ctx, event, args, true, false)
		if err != nil {
			partial.Add(model.CtaTrackingRecord{}.TableName(), err)
		}
	case model.ToolCtaClicked:
		err = h.handleCtaTool(ctx, event, args, false, true)
		if err != nil {
			partial.Add(model.CtaTrackingRecord{}.TableName(), err)
		}
	default:
		// Unknown tools are accepted; the provider adds tools faster than
		// the analytics schema grows.
		log.Warn("Unknown tool name, accepting without persistence")
	}
	if err != nil {
		log.Error("Tool-call handler failed", zap.Error(err))
	}

	return partial.OrNil()
}

// handleVideoTool unions the shown video title(s) into the showcase record.
func (h *ToolCallHandler) handleVideoTool(ctx context.Context, event *model.InboundEvent, args map[string]interface{}) error {
	titles := stringListVar(args, "video_title", "video_titles", "title", "videos")

	data := model.VideoShowcaseData{
		ConversationID: event.ConversationID,
		ObjectiveName:  model.ObjectiveVideoShowcase,
		Titles:         titles,
		RawPayload:     event.Raw,
		ReceivedAt:     event.ReceivedAt,
	}

	logger.FromContext(ctx).Info("Recording videos shown", zap.Strings("titles", titles))
	return h.analytics.RecordVideosShown(ctx, data)
}

// handleCtaTool records a CTA display or click beacon.
func (h *ToolCallHandler) handleCtaTool(ctx context.Context, event *model.InboundEvent, args map[string]interface{}, shown, clicked bool) error {
	data := model.CtaEventData{
		ConversationID: event.ConversationID,
		ObjectiveName:  model.ObjectiveCtaDisplay,
		RequestedURL:   stringVar(args, "cta_url", "url"),
		Shown:          shown,
		Clicked:        clicked,
		RawPayload:     event.Raw,
		ReceivedAt:     event.ReceivedAt,
	}

	logger.FromContext(ctx).Info("Recording CTA event",
		zap.Bool("shown", shown), zap.Bool("clicked", clicked))
	return h.analytics.RecordCtaEvent(ctx, data)
}
