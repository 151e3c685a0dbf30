package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/Valbows/NewDomo-sub006/internal/auth"
	"github.com/Valbows/NewDomo-sub006/internal/ingestion"
	"github.com/Valbows/NewDomo-sub006/internal/ingestion/handler"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test-webhook-secret"

// fakeLedger is an in-memory processed-event ledger
type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{seen: make(map[string]bool)}
}

func (f *fakeLedger) InsertProcessedEvent(ctx context.Context, record model.ProcessedEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.seen[record.EventID] {
		return false, nil
	}
	f.seen[record.EventID] = true
	return true, nil
}

func (f *fakeLedger) DeleteProcessedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// fakeServices records the persistence operations the handlers request
type fakeServices struct {
	mu             sync.Mutex
	qualifications []model.QualificationData
	conversations  []model.ConversationUpdate
	failNext       error
}

func (f *fakeServices) UpsertConversation(ctx context.Context, update model.ConversationUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations = append(f.conversations, update)
	return nil
}

func (f *fakeServices) SaveQualification(ctx context.Context, data model.QualificationData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.qualifications = append(f.qualifications, data)
	return nil
}

func (f *fakeServices) SaveProductInterest(ctx context.Context, data model.ProductInterestData) error {
	return nil
}

func (f *fakeServices) RecordVideosShown(ctx context.Context, data model.VideoShowcaseData) error {
	return nil
}

func (f *fakeServices) RecordCtaEvent(ctx context.Context, data model.CtaEventData) error {
	return nil
}

func newTestServer(t *testing.T, services *fakeServices) (*Server, *fakeLedger) {
	t.Helper()

	ledger := newFakeLedger()
	guard := ingestion.NewGuard(ledger)

	lifecycleHandler := handler.NewLifecycleHandler(services)
	objectiveHandler := handler.NewObjectiveHandler(services, services)
	toolCallHandler := handler.NewToolCallHandler(services, services)

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

	pipeline := ingestion.NewPipeline(guard, router)

	verifier := auth.NewVerifier(testSecret, "", false)
	srv := NewServer("0", verifier, pipeline, nil, zaptest.NewLogger(t))
	return srv, ledger
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(srv *Server, body, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhook_QualificationEventPersisted(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	body := `{"event_type":"application.objective_completed","conversation_id":"conv-1","event_id":"evt-1","properties":{"objective_name":"greeting_and_qualification","output_variables":{"first_name":"John","email":"john@x.com"}}}`
	rec := postWebhook(srv, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())

	require.Len(t, services.qualifications, 1)
	assert.Equal(t, "conv-1", services.qualifications[0].ConversationID)
	assert.Equal(t, "John", services.qualifications[0].FirstName)
	assert.Equal(t, "john@x.com", services.qualifications[0].Email)
}

func TestWebhook_DuplicateDeliveryIsNoOp(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	body := `{"event_type":"application.objective_completed","conversation_id":"conv-1","event_id":"evt-dup","properties":{"objective_name":"greeting_and_qualification","output_variables":{"first_name":"John"}}}`

	first := postWebhook(srv, body, sign(body))
	second := postWebhook(srv, body, sign(body))

	// Both deliveries are acknowledged, only one row is written.
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Len(t, services.qualifications, 1)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	services := &fakeServices{}
	srv, ledger := newTestServer(t, services)

	body := `{"event_type":"application.objective_completed","conversation_id":"conv-1","event_id":"evt-2","properties":{"objective_name":"greeting_and_qualification","output_variables":{"first_name":"John"}}}`
	rec := postWebhook(srv, body, "sha256="+strings.Repeat("0", 64))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, services.qualifications)
	assert.Empty(t, ledger.seen, "nothing runs after a failed credential check")
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	body := `{"event_type":"application.objective_completed","conversation_id":"conv-1"}`
	rec := postWebhook(srv, body, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhook_MalformedJSONRejected(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	body := `{"event_type": not-json`
	rec := postWebhook(srv, body, sign(body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhook_OversizedBodyRejectedWith413(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	// Past the cap. Signed so the size check, not authentication,
	// is the thing under test.
	body := `{"pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	rec := postWebhook(srv, body, sign(body))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, services.qualifications)
}

func TestWebhook_HandlerFailureStillAcked(t *testing.T) {
	services := &fakeServices{failNext: errors.New("constraint violation")}
	srv, _ := newTestServer(t, services)

	body := `{"event_type":"application.objective_completed","conversation_id":"conv-1","event_id":"evt-3","properties":{"objective_name":"greeting_and_qualification","output_variables":{"first_name":"John"}}}`
	rec := postWebhook(srv, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
}

func TestWebhook_PartialIngestionFailureCounted(t *testing.T) {
	observer.InitMetrics(true)
	t.Cleanup(func() { observer.InitMetrics(false) })

	services := &fakeServices{failNext: errors.New("constraint violation")}
	srv, _ := newTestServer(t, services)

	counter := observer.PartialIngestionsTotal.WithLabelValues("qualification_records")
	before := testutil.ToFloat64(counter)

	body := `{"event_type":"application.objective_completed","conversation_id":"conv-1","event_id":"evt-pi","properties":{"objective_name":"greeting_and_qualification","output_variables":{"first_name":"John"}}}`
	rec := postWebhook(srv, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestWebhook_UnknownEventTypeAcked(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	body := `{"event_type":"system.replica_joined","conversation_id":"conv-1"}`
	rec := postWebhook(srv, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, services.conversations)
}

func TestWebhook_LifecycleEventRouted(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	body := `{"event_type":"system.conversation_started","conversation_id":"conv-9","properties":{"demo_id":"demo-1"}}`
	rec := postWebhook(srv, body, sign(body))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, services.conversations, 1)
	assert.Equal(t, "demo-1", services.conversations[0].DemoID)
	assert.Equal(t, model.ConversationStatusActive, services.conversations[0].Status)
}

func TestWebhook_MethodNotAllowed(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	services := &fakeServices{}
	srv, _ := newTestServer(t, services)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "UP")
}

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestReadyEndpoint(t *testing.T) {
	verifier := auth.NewVerifier(testSecret, "", false)
	pipeline := ingestion.NewPipeline(ingestion.NewGuard(newFakeLedger()), ingestion.NewRouter())

	t.Run("ready", func(t *testing.T) {
		srv := NewServer("0", verifier, pipeline, &fakePinger{}, zaptest.NewLogger(t))
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		srv := NewServer("0", verifier, pipeline, &fakePinger{err: errors.New("connection refused")}, zaptest.NewLogger(t))
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
