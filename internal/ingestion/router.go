package ingestion

import (
	"context"

	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
	"go.uber.org/zap"
)

// EventHandler defines a function that processes a decoded webhook event
type EventHandler func(ctx context.Context, eventType model.EventType, event *model.InboundEvent) error

// Router routes events to the appropriate handler based on event type
type Router struct {
	// Map of base event type to handler
	handlers map[model.EventType]EventHandler
	// Default handler for unknown event types
	defaultHandler EventHandler
}

// NewRouter creates a new event router
func NewRouter() *Router {
	return &Router{
		handlers: make(map[model.EventType]EventHandler),
	}
}

// Register registers a handler for an event type
func (r *Router) Register(eventType model.EventType, handler EventHandler) {
	r.handlers[eventType] = handler
}

// RegisterDefault registers a default handler for unknown event types
func (r *Router) RegisterDefault(handler EventHandler) {
	r.defaultHandler = handler
}

// Route routes an event to the appropriate handler
func (r *Router) Route(ctx context.Context, event *model.InboundEvent) error {
	log := logger.FromContext(ctx)

	// Add event metadata to the log context
	log = log.With(
		zap.String("event_type", event.EventType),
		zap.String("conversation_id", event.ConversationID),
	)
	ctx = logger.WithLogger(ctx, log)

	eventType, found := event.Type()
	if !found {
		// Let the default handler logic below decide what to do with it.
		log.Warn("Could not map to a known base event type", zap.String("raw_type", event.EventType))
	}

	log.Info("Event received",
		zap.String("payload_size", utils.ByteCountSI(len(event.RawBody))),
		zap.String("base_type", string(eventType)),
	)

	handler, ok := r.handlers[eventType]

	// Use default handler if no specific handler found
	if !ok && r.defaultHandler != nil {
		log.Warn("No specific handler for event type, using default")
		return r.defaultHandler(ctx, eventType, event)
	} else if !ok {
		log.Error("No handler registered for event type")
		return nil
	}

	return handler(ctx, eventType, event)
}
