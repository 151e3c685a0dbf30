package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"go.uber.org/zap"
)

// JetStreamNotifier publishes ingestion notifications to a NATS JetStream
// stream consumed by the dashboard's realtime feed.
type JetStreamNotifier struct {
	nc            *nats.Conn
	js            nats.JetStreamContext
	subjectPrefix string
}

// Ensure JetStreamNotifier implements Notifier
var _ Notifier = (*JetStreamNotifier)(nil)

// NewJetStreamNotifier connects to NATS and ensures the notification stream
// exists.
func NewJetStreamNotifier(ctx context.Context, url, stream, subjectPrefix string) (*JetStreamNotifier, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Log.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, s *nats.Subscription, err error) {
			logger.Log.Error("NATS error", zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect: %w", apperrors.ErrNATS, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("%w: failed to create JetStream context: %w", apperrors.ErrNATS, err)
	}

	notifier := &JetStreamNotifier{
		nc:            nc,
		js:            js,
		subjectPrefix: subjectPrefix,
	}
	if err := notifier.setupStream(ctx, stream); err != nil {
		nc.Close()
		return nil, err
	}
	return notifier, nil
}

// setupStream ensures the notification stream exists
func (n *JetStreamNotifier) setupStream(ctx context.Context, stream string) error {
	log := logger.FromContext(ctx)

	streamConfig := &nats.StreamConfig{
		Name:      stream,
		Subjects:  []string{n.subjectPrefix + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	}

	info, err := n.js.StreamInfo(stream)
	if err != nil && !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("%w: failed to get stream info for '%s': %w", apperrors.ErrNATS, stream, err)
	}

	if info == nil {
		if _, err := n.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("%w: failed to add stream '%s': %w", apperrors.ErrNATS, stream, err)
		}
		log.Info("Created notification stream",
			zap.String("name", stream),
			zap.Any("subjects", streamConfig.Subjects),
		)
	}
	return nil
}

// PublishNotification publishes one notification to <subjectPrefix>.<demoID>
func (n *JetStreamNotifier) PublishNotification(ctx context.Context, notification Notification) error {
	log := logger.FromContext(ctx)

	data, err := json.Marshal(notification)
	if err != nil {
		observer.IncNotifierPublish("error")
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	demoID := notification.DemoID
	if demoID == "" {
		demoID = "unresolved"
	}
	subject := fmt.Sprintf("%s.%s", n.subjectPrefix, demoID)

	if _, err := n.js.Publish(subject, data); err != nil {
		observer.IncNotifierPublish("error")
		return fmt.Errorf("%w: failed to publish notification to '%s': %w", apperrors.ErrNATS, subject, err)
	}

	observer.IncNotifierPublish("success")
	log.Debug("Published notification",
		zap.String("subject", subject),
		zap.String("kind", notification.Kind),
	)
	return nil
}

// Close closes the NATS connection
func (n *JetStreamNotifier) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}
