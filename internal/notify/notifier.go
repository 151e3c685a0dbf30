package notify

import (
	"context"
	"time"
)

// Notification is the compact post-ingestion message published for the
// dashboard's live feed. It carries identifiers only, never payload data.
type Notification struct {
	Kind           string    `json:"kind"`
	ConversationID string    `json:"conversation_id"`
	DemoID         string    `json:"demo_id,omitempty"`
	ReceivedAt     time.Time `json:"received_at"`
}

// Notification kinds
const (
	KindConversationUpdated = "conversation_updated"
	KindQualification       = "qualification"
	KindProductInterest     = "product_interest"
	KindVideoShown          = "video_shown"
	KindCtaShown            = "cta_shown"
	KindCtaClicked          = "cta_clicked"
)

// Notifier publishes ingestion notifications. Implementations are best
// effort; callers never fail an ingestion on a publish error.
type Notifier interface {
	PublishNotification(ctx context.Context, notification Notification) error
	Close()
}

// NoopNotifier stands in when the live feed is disabled.
type NoopNotifier struct{}

// Ensure NoopNotifier implements Notifier
var _ Notifier = (*NoopNotifier)(nil)

// NewNoopNotifier creates a notifier that drops every notification.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

// PublishNotification discards the notification
func (n *NoopNotifier) PublishNotification(ctx context.Context, notification Notification) error {
	return nil
}

// Close is a no-op
func (n *NoopNotifier) Close() {}
