package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"go.uber.org/zap"
)

// LifecycleService defines the interface for conversation lifecycle persistence
type LifecycleService interface {
	UpsertConversation(ctx context.Context, update model.ConversationUpdate) error
}

// LifecycleHandler processes conversation lifecycle events: start, completion,
// end, transcript delivery and perception analysis.
type LifecycleHandler struct {
	service LifecycleService
}

// NewLifecycleHandler creates a new lifecycle event handler
func NewLifecycleHandler(service LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{
		service: service,
	}
}

// HandleEvent processes lifecycle events
func (h *LifecycleHandler) HandleEvent(ctx context.Context, eventType model.EventType, event *model.InboundEvent) error {
	requestID := uuid.NewString()
	ctx = logger.WithRequestID(ctx, requestID)

	log := logger.FromContext(ctx)
	log.Info("Processing lifecycle event", zap.String("type", string(eventType)))

	if event.ConversationID == "" {
		// Without a key there is nothing to upsert. Accepted, not retried.
		log.Warn("Lifecycle event without conversation id, skipping")
		return nil
	}

	update := ExtractConversationUpdate(eventType, event)
	if !update.HasContent() {
		log.Info("Lifecycle event carries no persistable data, skipping")
		return nil
	}

	return h.service.UpsertConversation(ctx, update)
}

// ExtractConversationUpdate builds the conversation patch an event implies.
// Exported because objective and tool-call events may carry transcript or
// perception data alongside their analytics payload and those handlers run
// the same lifecycle concern.
func ExtractConversationUpdate(eventType model.EventType, event *model.InboundEvent) model.ConversationUpdate {
	update := model.ConversationUpdate{
		ConversationID: event.ConversationID,
		DemoID:         event.ResolveDemoID(),
		ReceivedAt:     event.ReceivedAt,
	}

	// Prefer the provider-reported event time over the delivery time so
	// delayed redeliveries do not skew conversation timestamps.
	occurredAt := event.OccurredAt()

	switch eventType {
	case model.EventConversationStarted:
		update.Status = model.ConversationStatusActive
		update.StartedAt = &occurredAt
	case model.EventConversationCompleted:
		update.Status = model.ConversationStatusCompleted
		update.CompletedAt = &occurredAt
	case model.EventConversationEnded:
		update.Status = model.ConversationStatusEnded
		update.CompletedAt = &occurredAt
	}

	update.DurationSeconds = event.ResolveDuration()

	if transcript, ok := event.Transcript(); ok {
		update.Transcript = transcript
	}
	if perception, ok := event.Perception(); ok {
		update.Perception = perception
	}

	return update
}
