package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/storage"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"go.uber.org/zap"
)

// Guard enforces at-most-once processing for event families with
// non-idempotent side effects. It records an event id in the processed-event
// ledger before the handlers run; a redelivery hits the unique index and is
// reported as a duplicate.
type Guard struct {
	ledger storage.LedgerRepo
}

// NewGuard creates a guard backed by the given ledger repository.
func NewGuard(ledger storage.LedgerRepo) *Guard {
	return &Guard{ledger: ledger}
}

// Fingerprint derives a stable identity for an event. The provider-assigned
// event id is used when present; otherwise the identity is a digest over the
// event type, conversation id, the family discriminator and the payload
// content, so two different tool calls in one conversation never collide
// while byte-different redeliveries of the same event still match.
func Fingerprint(event *model.InboundEvent) string {
	if id := event.ResolveEventID(); id != "" {
		return id
	}

	eventType, _ := event.Type()
	discriminator := ""
	switch eventType {
	case model.EventObjectiveCompleted:
		discriminator = event.ResolveObjectiveName()
	case model.EventToolCall:
		discriminator = event.ResolveToolName()
	}

	payload, ok := event.OutputVariables()
	if !ok {
		if len(event.Properties) > 0 {
			payload = event.Properties
		} else {
			payload = event.Data
		}
	}
	// json.Marshal sorts map keys, so equal payloads digest identically
	// regardless of the key order on the wire.
	canonical, err := json.Marshal(payload)
	if err != nil {
		canonical = event.RawBody
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s",
		eventType, event.ConversationID, discriminator, canonical)))
	return hex.EncodeToString(sum[:])
}

// ShouldProcess records the event in the ledger and reports whether the
// handlers should run. A duplicate returns (id, true, nil). A ledger failure
// returns the error; callers decide whether to process anyway.
func (g *Guard) ShouldProcess(ctx context.Context, event *model.InboundEvent) (string, bool, error) {
	eventID := Fingerprint(event)

	eventType, _ := event.Type()
	inserted, err := g.ledger.InsertProcessedEvent(ctx, model.ProcessedEvent{
		EventID:     eventID,
		EventType:   string(eventType),
		ProcessedAt: event.ReceivedAt,
	})
	if err != nil {
		return eventID, false, fmt.Errorf("failed to record event in ledger: %w", err)
	}
	if !inserted {
		logger.FromContext(ctx).Info("Duplicate event delivery, skipping",
			zap.String("ledger_event_id", eventID))
		return eventID, true, nil
	}
	return eventID, false, nil
}
