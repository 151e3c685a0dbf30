package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/Valbows/NewDomo-sub006/internal/auth"
	"github.com/Valbows/NewDomo-sub006/internal/config"
	"github.com/Valbows/NewDomo-sub006/internal/ingestion"
	"github.com/Valbows/NewDomo-sub006/internal/ingestion/handler"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/notify"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/internal/sanitize"
	"github.com/Valbows/NewDomo-sub006/internal/server"
	"github.com/Valbows/NewDomo-sub006/internal/storage"
	"github.com/Valbows/NewDomo-sub006/internal/usecase"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	// Set timezone to UTC
	time.Local = time.UTC

	// Load configuration, validated as part of loading
	cfg, err := config.LoadConfig("")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	metricsEnabled := cfg.Metrics.Enabled
	observer.InitMetrics(metricsEnabled)

	logger.Log.Info("Starting Demo Events Ingestor",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Server.Port),
		zap.String("nats_url", cfg.NATS.URL),
	)

	// Initialize repository
	postgresRepo, err := storage.NewPostgresRepo(cfg.Database.PostgresDSN, cfg.Database.PostgresAutoMigrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize Postgres repository", zap.Error(err))
	}

	// Initialize the live feed publisher, disabled without a NATS URL
	var notifier notify.Notifier = notify.NewNoopNotifier()
	if cfg.NATS.URL != "" {
		setupCtx, setupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		jsNotifier, err := notify.NewJetStreamNotifier(setupCtx, cfg.NATS.URL, cfg.NATS.Stream, cfg.NATS.SubjectPrefix)
		setupCancel()
		if err != nil {
			logger.Log.Fatal("Failed to initialize JetStream notifier", zap.Error(err))
		}
		notifier = jsNotifier
	} else {
		logger.Log.Info("Live feed publisher disabled, no NATS URL configured")
	}

	// Create analytics counter worker pool
	analyticsWorker, err := usecase.NewAnalyticsWorker(
		cfg.WorkerPools.Analytics,
		postgresRepo,
		logger.Log,
	)
	if err != nil {
		logger.Log.Fatal("Failed to initialize analytics worker pool", zap.Error(err))
	}

	// Create service, injecting the worker pool and notifier
	sanitizer := sanitize.New(sanitize.Options{
		SensitiveKeys: cfg.Sanitizer.SensitiveKeys,
		MaxArrayLen:   cfg.Sanitizer.MaxArrayLen,
		MaxObjectKeys: cfg.Sanitizer.MaxObjectKeys,
	})
	service := usecase.NewEventService(postgresRepo, postgresRepo, postgresRepo, sanitizer, notifier, analyticsWorker)

	// Wire handlers and the event router
	lifecycleHandler := handler.NewLifecycleHandler(service)
	objectiveHandler := handler.NewObjectiveHandler(service, service)
	toolCallHandler := handler.NewToolCallHandler(service, service)

	router := ingestion.NewRouter()
	for _, et := range []model.EventType{
		model.EventConversationStarted,
		model.EventConversationCompleted,
		model.EventConversationEnded,
		model.EventTranscriptionReady,
		model.EventPerceptionAnalysis,
	} {
		router.Register(et, lifecycleHandler.HandleEvent)
	}
	router.Register(model.EventObjectiveCompleted, objectiveHandler.HandleEvent)
	router.Register(model.EventToolCall, toolCallHandler.HandleEvent)
	router.RegisterDefault(handler.NewUnknownEventHandler().HandleEvent)

	pipeline := ingestion.NewPipeline(ingestion.NewGuard(postgresRepo), router)

	// Create webhook server
	verifier := auth.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Token, cfg.Webhook.AllowUnverified)
	webhookServer := server.NewServer(strconv.Itoa(cfg.Server.Port), verifier, pipeline, postgresRepo, logger.Log)

	// Register metrics handler if enabled BEFORE starting the server
	if metricsEnabled {
		webhookServer.RegisterMetricsHandler(promhttp.Handler())
		logger.Log.Info("Metrics endpoint enabled", zap.String("path", "/metrics"), zap.Int("port", cfg.Server.Port))
	} else {
		logger.Log.Info("Metrics endpoint disabled", zap.String("environment", cfg.Environment))
	}

	webhookServer.Start()

	logger.Log.Info("Webhook endpoint available",
		zap.String("webhook", fmt.Sprintf("http://localhost:%d/webhook", cfg.Server.Port)),
		zap.String("health", fmt.Sprintf("http://localhost:%d/health", cfg.Server.Port)),
		zap.String("readiness", fmt.Sprintf("http://localhost:%d/ready", cfg.Server.Port)),
	)

	// Start the ledger retention sweeper
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	sweeper := usecase.NewRetentionSweeper(cfg.Retention, postgresRepo, logger.Log)
	utils.SafeGo(func() {
		sweeper.Run(mainCtx)
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("Panic in retention sweeper",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
	})

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Log.Info("Received termination signal", zap.String("signal", sig.String()))

	mainCancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", 30*time.Second))

	var wg sync.WaitGroup
	wg.Add(3)

	// Shutdown webhook server first so no new deliveries arrive
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping webhook server")
		start := time.Now()
		if err := webhookServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping webhook server", zap.Error(err))
		} else {
			logger.Log.Info("[shutdown] Webhook server stopped",
				zap.Duration("duration", time.Since(start)))
		}
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping webhook server",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Shutdown analytics worker pool
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Stopping analytics worker pool")
		start := time.Now()
		analyticsWorker.Stop()
		logger.Log.Info("[shutdown] Analytics worker pool stopped",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while stopping analytics worker pool",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Close the notifier and the database
	utils.SafeGo(func() {
		defer wg.Done()
		logger.Log.Info("[shutdown] Closing notifier and database connections")
		start := time.Now()
		notifier.Close()
		if err := postgresRepo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error closing Postgres connection", zap.Error(err))
		}
		logger.Log.Info("[shutdown] Connections closed",
			zap.Duration("duration", time.Since(start)))
	}, func(r interface{}, stack []byte) {
		logger.Log.Error("[shutdown] Panic while closing connections",
			zap.Any("panic", r),
			zap.ByteString("stack", stack),
		)
		wg.Done()
	})

	// Wait for all components with a timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("Graceful shutdown complete")
	case <-shutdownCtx.Done():
		logger.Log.Warn("Graceful shutdown timed out")
	}
}
