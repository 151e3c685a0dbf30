package ingestion

import (
	"context"
	"time"

	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
	"go.uber.org/zap"
)

// Pipeline is the processing entry point for a decoded webhook event: it
// runs the idempotency guard for the event families that need one, then
// dispatches to the registered handlers.
type Pipeline struct {
	guard  *Guard
	router *Router
}

// NewPipeline creates a pipeline over the given guard and router.
func NewPipeline(guard *Guard, router *Router) *Pipeline {
	return &Pipeline{guard: guard, router: router}
}

// Process runs one event through the pipeline. A duplicate delivery is a
// successful no-op. A ledger failure is logged and the event is processed
// anyway; dropping deliveries on a degraded ledger would lose data that the
// upsert-style persistence tolerates replaying.
func (p *Pipeline) Process(ctx context.Context, event *model.InboundEvent) error {
	start := utils.Now()
	log := logger.FromContext(ctx)

	eventType, _ := event.Type()
	if eventType.RequiresIdempotencyGuard() {
		eventID, duplicate, err := p.guard.ShouldProcess(ctx, event)
		if err != nil {
			log.Warn("Idempotency ledger unavailable, processing without guard",
				zap.String("ledger_event_id", eventID),
				zap.Error(err))
		} else if duplicate {
			observer.IncDuplicateEvent(string(eventType))
			observer.ObservePipelineDuration(string(eventType), time.Since(start))
			return nil
		}
	}

	err := p.router.Route(ctx, event)
	observer.ObservePipelineDuration(string(eventType), time.Since(start))
	return err
}
