package handler

import (
	"context"

	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"go.uber.org/zap"
)

// UnknownEventHandler accepts event types the pipeline does not recognize.
// The provider introduces new types without notice; rejecting them would
// only trigger retry storms upstream.
type UnknownEventHandler struct{}

// NewUnknownEventHandler creates the default handler for unrecognized events
func NewUnknownEventHandler() *UnknownEventHandler {
	return &UnknownEventHandler{}
}

// HandleEvent logs and accepts the event without persistence
func (h *UnknownEventHandler) HandleEvent(ctx context.Context, eventType model.EventType, event *model.InboundEvent) error {
	logger.FromContext(ctx).Warn("Accepting unrecognized event type without persistence",
		zap.String("raw_type", event.EventType))
	return nil
}
