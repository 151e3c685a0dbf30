package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/internal/notify"
	"github.com/Valbows/NewDomo-sub006/internal/sanitize"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"go.uber.org/zap/zaptest"
)

// MockConversationRepo mocks storage.ConversationRepo
type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) UpsertConversationDetail(ctx context.Context, detail model.ConversationDetail) error {
	args := m.Called(ctx, detail)
	return args.Error(0)
}

func (m *MockConversationRepo) FindConversationDetail(ctx context.Context, conversationID string) (*model.ConversationDetail, error) {
	args := m.Called(ctx, conversationID)
	if detail, ok := args.Get(0).(*model.ConversationDetail); ok {
		return detail, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockAnalyticsRepo mocks storage.AnalyticsRepo
type MockAnalyticsRepo struct {
	mock.Mock
}

func (m *MockAnalyticsRepo) SaveQualificationRecord(ctx context.Context, record model.QualificationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAnalyticsRepo) SaveProductInterestRecord(ctx context.Context, record model.ProductInterestRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockAnalyticsRepo) UnionVideoShowcase(ctx context.Context, record model.VideoShowcaseRecord, titles []string) error {
	args := m.Called(ctx, record, titles)
	return args.Error(0)
}

func (m *MockAnalyticsRepo) UpsertCtaTracking(ctx context.Context, record model.CtaTrackingRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockDemoRepo mocks storage.DemoRepo
type MockDemoRepo struct {
	mock.Mock
}

func (m *MockDemoRepo) FindDemoByID(ctx context.Context, demoID string) (*model.Demo, error) {
	args := m.Called(ctx, demoID)
	if demo, ok := args.Get(0).(*model.Demo); ok {
		return demo, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDemoRepo) FindDemoByConversationID(ctx context.Context, conversationID string) (*model.Demo, error) {
	args := m.Called(ctx, conversationID)
	if demo, ok := args.Get(0).(*model.Demo); ok {
		return demo, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDemoRepo) IncrementDemoCounter(ctx context.Context, demoID string, kind model.CounterKind) error {
	args := m.Called(ctx, demoID, kind)
	return args.Error(0)
}

// MockLedgerRepo mocks storage.LedgerRepo
type MockLedgerRepo struct {
	mock.Mock
}

func (m *MockLedgerRepo) InsertProcessedEvent(ctx context.Context, record model.ProcessedEvent) (bool, error) {
	args := m.Called(ctx, record)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepo) DeleteProcessedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

// MockNotifier mocks notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) PublishNotification(ctx context.Context, notification notify.Notification) error {
	args := m.Called(ctx, notification)
	return args.Error(0)
}

func (m *MockNotifier) Close() {
	m.Called()
}

// MockWorker mocks IAnalyticsWorker
type MockWorker struct {
	mock.Mock
}

func (m *MockWorker) SubmitTask(taskData AnalyticsTaskData) error {
	args := m.Called(taskData)
	return args.Error(0)
}

func (m *MockWorker) Stop() {
	m.Called()
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	return logger.WithLogger(context.Background(), zaptest.NewLogger(t))
}

func testSanitizer() *sanitize.Sanitizer {
	return sanitize.New(sanitize.Options{})
}
