package handler

import (
	"context"

	"github.com/Valbows/NewDomo-sub006/internal/model"
)

// EventHandlerInterface defines the common interface for event handlers
type EventHandlerInterface interface {
	// HandleEvent processes a decoded webhook event
	HandleEvent(ctx context.Context, eventType model.EventType, event *model.InboundEvent) error
}

// Ensure the handlers implement the interface
var _ EventHandlerInterface = (*LifecycleHandler)(nil)
var _ EventHandlerInterface = (*ObjectiveHandler)(nil)
var _ EventHandlerInterface = (*ToolCallHandler)(nil)
var _ EventHandlerInterface = (*UnknownEventHandler)(nil)
