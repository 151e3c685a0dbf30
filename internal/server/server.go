package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/auth"
	"github.com/Valbows/NewDomo-sub006/internal/ingestion"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
	"go.uber.org/zap"
)

// maxBodyBytes caps webhook bodies. The provider's largest payloads
// (full transcripts) stay well under this.
const maxBodyBytes = 1 << 20

// Pinger reports storage liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the webhook HTTP entry point. It owns authentication and the
// ack-always response policy; everything after decode belongs to the
// pipeline.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	verifier   *auth.Verifier
	pipeline   *ingestion.Pipeline
	pinger     Pinger
	logger     *zap.Logger
}

// HealthResponse is the response structure for health check endpoints
type HealthResponse struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// AckResponse is the body returned for every accepted webhook delivery
type AckResponse struct {
	Received bool `json:"received"`
}

// NewServer creates the webhook server.
func NewServer(port string, verifier *auth.Verifier, pipeline *ingestion.Pipeline, pinger Pinger, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	server := &Server{
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		mux:      mux,
		verifier: verifier,
		pipeline: pipeline,
		pinger:   pinger,
		logger:   logger,
	}

	mux.HandleFunc("/webhook", server.handleWebhook)
	mux.HandleFunc("/health", server.handleHealth)
	mux.HandleFunc("/ready", server.handleReady)

	return server
}

// RegisterMetricsHandler adds the /metrics endpoint handler.
// Should only be called if metrics are enabled.
func (s *Server) RegisterMetricsHandler(handler http.Handler) {
	s.logger.Info("Registering /metrics endpoint")
	s.mux.Handle("/metrics", handler)
}

// Handler exposes the mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins the HTTP server
func (s *Server) Start() {
	go func() {
		s.logger.Info("Starting webhook server", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Webhook server error", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping webhook server")
	return s.httpServer.Shutdown(ctx)
}

// handleWebhook is the provider callback endpoint. Response policy: 401
// only for a failed credential check, 400 only for a body that is not
// JSON, 413 for a body over the size cap, 200 for everything else.
// Handler failures are contained so the provider never retries payloads
// that cannot self-heal.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()
	log := s.logger.With(zap.String("request_id", requestID))
	ctx := logger.WithLogger(r.Context(), log)
	ctx = logger.WithRequestID(ctx, requestID)

	receivedAt := utils.Now()

	rawBody, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn("Failed to read webhook body", zap.Error(err))
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			observer.IncWebhookDelivery("unknown", "oversized")
			utils.WriteJSONResponse(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return
		}
		observer.IncWebhookDelivery("unknown", "body_error")
		http.Error(w, "unreadable request body", http.StatusBadRequest)
		return
	}

	result := s.verifier.Verify(rawBody, r.Header, r.URL.Query())
	if !result.Valid {
		log.Warn("Webhook authentication failed", zap.String("method", string(result.Method)))
		observer.IncAuthFailure(string(result.Method))
		observer.IncWebhookDelivery("unknown", "unauthorized")
		utils.WriteJSONResponse(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	event, err := model.DecodeInboundEvent(rawBody, receivedAt)
	if err != nil {
		log.Warn("Malformed webhook body", zap.Error(err))
		observer.IncWebhookDelivery("unknown", "malformed")
		utils.WriteJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}

	eventType, _ := event.Type()
	outcome := "success"
	process := utils.WrapWithRecovery(func() error {
		return s.pipeline.Process(ctx, event)
	})
	if err := process(); err != nil {
		// Contained: logged and counted, still acknowledged.
		log.Error("Event processing failed",
			zap.String("event_type", event.EventType),
			zap.String("conversation_id", event.ConversationID),
			zap.Error(err))
		outcome = "handler_error"

		var partial *apperrors.PartialIngestionError
		if errors.As(err, &partial) {
			outcome = "partial_ingestion"
			for _, table := range partial.Tables() {
				observer.IncPartialIngestion(table)
			}
		}
	}
	observer.IncWebhookDelivery(string(eventType), outcome)

	utils.WriteJSONResponse(w, http.StatusOK, AckResponse{Received: true})
}

// handleHealth handles the /health endpoint for liveness probes
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "UP",
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// handleReady handles the /ready endpoint for readiness probes
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("Readiness check failed", zap.Error(err))
			utils.WriteJSONResponse(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "NOT_READY",
				Details: map[string]string{"database": err.Error()},
			})
			return
		}
	}

	resp := HealthResponse{
		Status: "READY",
		Details: map[string]string{
			"timestamp": utils.FormatISO8601(utils.Now()),
		},
	}

	utils.WriteJSONResponse(w, http.StatusOK, resp)
}
