package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/config"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/internal/storage"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
)

// AnalyticsTaskData holds the necessary data for a counter-bump task.
type AnalyticsTaskData struct {
	Ctx    context.Context // Context derived for the task, NOT the original request context
	DemoID string
	Kind   model.CounterKind
}

// IAnalyticsWorker defines the interface for the counter worker pool.
type IAnalyticsWorker interface {
	SubmitTask(taskData AnalyticsTaskData) error
	Stop()
}

// AnalyticsWorker manages the worker pool that bumps the denormalized demo
// counters off the webhook path. Counter bumps are best effort; a lost bump
// never fails an ingestion.
type AnalyticsWorker struct {
	pool       *ants.PoolWithFunc
	demoRepo   storage.DemoRepo
	cfg        config.AnalyticsWorkerPoolConfig
	baseLogger *zap.Logger
}

// Ensure AnalyticsWorker implements IAnalyticsWorker
var _ IAnalyticsWorker = (*AnalyticsWorker)(nil)

// NewAnalyticsWorker creates and initializes a new counter worker pool.
func NewAnalyticsWorker(
	cfg config.AnalyticsWorkerPoolConfig,
	demoRepo storage.DemoRepo,
	baseLogger *zap.Logger,
) (*AnalyticsWorker, error) {
	worker := &AnalyticsWorker{
		demoRepo:   demoRepo,
		cfg:        cfg,
		baseLogger: baseLogger.Named("analytics_worker"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		taskData, ok := i.(AnalyticsTaskData)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		worker.processAnalyticsTask(taskData)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false), // Block when the queue is full, bounded by MaxBlockingTasks
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in analytics worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analytics worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("Analytics worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
		zap.Duration("max_block_time", cfg.MaxBlock),
	)
	return worker, nil
}

// SubmitTask submits a new counter-bump task to the worker pool.
func (w *AnalyticsWorker) SubmitTask(taskData AnalyticsTaskData) error {
	start := time.Now()
	observer.IncAnalyticsTasksSubmitted()
	observer.SetAnalyticsQueueLength(w.pool.Waiting()) // Approximate queue length

	err := w.pool.Invoke(taskData)

	duration := time.Since(start)

	if err != nil {
		w.baseLogger.Warn("Failed to submit analytics task to pool",
			zap.String("demo_id", taskData.DemoID),
			zap.String("counter_kind", string(taskData.Kind)),
			zap.Duration("submit_duration", duration),
			zap.Error(err),
		)
		observer.IncAnalyticsTasksProcessed("submit_error")
		if errors.Is(err, ants.ErrPoolOverload) {
			return fmt.Errorf("analytics pool overload: %w", err)
		}
		return fmt.Errorf("failed to invoke analytics task: %w", err)
	}

	w.baseLogger.Debug("Successfully submitted analytics task",
		zap.String("demo_id", taskData.DemoID),
		zap.String("counter_kind", string(taskData.Kind)),
		zap.Duration("submit_duration", duration),
	)
	return nil
}

// processAnalyticsTask contains the actual logic executed by a worker goroutine.
func (w *AnalyticsWorker) processAnalyticsTask(taskData AnalyticsTaskData) {
	log := logger.FromContextOr(taskData.Ctx, w.baseLogger).With(
		zap.String("task_demo_id", taskData.DemoID),
		zap.String("task_counter_kind", string(taskData.Kind)),
	)

	start := time.Now()
	status := "success"

	log.Debug("Processing analytics task")

	if taskData.DemoID == "" {
		log.Debug("Skipping analytics task: no demo id")
		observer.IncAnalyticsTasksProcessed("skipped_no_demo")
		return
	}

	err := w.demoRepo.IncrementDemoCounter(taskData.Ctx, taskData.DemoID, taskData.Kind)
	if errors.Is(err, apperrors.ErrNotFound) {
		// The demo was deleted between resolution and the bump. Not retried.
		log.Warn("Skipping analytics task: demo no longer exists")
		status = "skipped_demo_missing"
	} else if err != nil {
		log.Error("Error bumping demo counter", zap.Error(err))
		status = "failure_counter_bump"
	}

	duration := time.Since(start)
	observer.IncAnalyticsTasksProcessed(status)

	log.Debug("Finished processing analytics task", zap.Duration("duration", duration), zap.String("final_status", status))
}

// Stop gracefully shuts down the worker pool.
func (w *AnalyticsWorker) Stop() {
	if w.pool != nil {
		w.baseLogger.Info("Releasing analytics worker pool")
		start := time.Now()
		w.pool.Release()
		w.baseLogger.Info("Analytics worker pool released", zap.Duration("duration", time.Since(start)))
	}
}
