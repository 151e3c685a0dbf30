package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/Valbows/NewDomo-sub006/internal/model"
	"github.com/Valbows/NewDomo-sub006/pkg/logger"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
	"go.uber.org/zap/zaptest"
)

// MockLifecycleService mocks the conversation persistence service
type MockLifecycleService struct {
	mock.Mock
}

func (m *MockLifecycleService) UpsertConversation(ctx context.Context, update model.ConversationUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// MockAnalyticsService mocks the objective analytics service
type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) SaveQualification(ctx context.Context, data model.QualificationData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockAnalyticsService) SaveProductInterest(ctx context.Context, data model.ProductInterestData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockAnalyticsService) RecordVideosShown(ctx context.Context, data model.VideoShowcaseData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockAnalyticsService) RecordCtaEvent(ctx context.Context, data model.CtaEventData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	return logger.WithLogger(context.Background(), zaptest.NewLogger(t))
}

func decodeTestEvent(t *testing.T, body string) *model.InboundEvent {
	t.Helper()
	event, err := model.DecodeInboundEvent([]byte(body), utils.Now())
	if err != nil {
		t.Fatalf("failed to decode test event: %v", err)
	}
	return event
}
