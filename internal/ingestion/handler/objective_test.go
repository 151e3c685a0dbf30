package handler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/Valbows/NewDomo-sub006/internal/apperrors"
	"github.com/Valbows/NewDomo-sub006/internal/model"
)

func TestObjectiveHandler_Qualification_NestedVariables(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"application.objective_completed","conversation_id":"conv-1","properties":{"objective_name":"greeting_and_qualification","output_variables":{"first_name":"John","email":"john@x.com"}}}`)

	mockAnalytics.On("SaveQualification", mock.Anything, mock.MatchedBy(func(data model.QualificationData) bool {
		return data.ConversationID == "conv-1" &&
			data.FirstName == "John" &&
			data.Email == "john@x.com" &&
			data.ObjectiveName == model.ObjectiveGreetingQualification
	})).Return(nil)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.NoError(t, err)
	mockAnalytics.AssertExpectations(t)
	mockLifecycle.AssertNotCalled(t, "UpsertConversation", mock.Anything, mock.Anything)
}

func TestObjectiveHandler_Qualification_FlatVariables(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"objective_completed","conversation_id":"conv-2","objective_name":"greeting_and_qualification","properties":{"first_name":"Ada","last_name":"Lovelace","position":"Engineer"}}`)

	mockAnalytics.On("SaveQualification", mock.Anything, mock.MatchedBy(func(data model.QualificationData) bool {
		return data.FirstName == "Ada" && data.LastName == "Lovelace" && data.Position == "Engineer"
	})).Return(nil)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.NoError(t, err)
	mockAnalytics.AssertExpectations(t)
}

func TestObjectiveHandler_Qualification_MissingOutputVariables(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"objective_completed","conversation_id":"conv-3","objective_name":"greeting_and_qualification"}`)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.Error(t, err)
	assert.True(t, apperrors.IsBadRequestError(err))
	mockAnalytics.AssertNotCalled(t, "SaveQualification", mock.Anything, mock.Anything)
}

func TestObjectiveHandler_Qualification_MissingConversationID(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"objective_completed","objective_name":"greeting_and_qualification","properties":{"output_variables":{"first_name":"John"}}}`)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.Error(t, err)
	assert.True(t, apperrors.IsBadRequestError(err))
}

func TestObjectiveHandler_ProductInterest(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"objective_completed","conversation_id":"conv-4","properties":{"objective_name":"product_interest_discovery","output_variables":{"primary_interest":"automation","pain_points":["manual reporting","slow onboarding"]}}}`)

	mockAnalytics.On("SaveProductInterest", mock.Anything, mock.MatchedBy(func(data model.ProductInterestData) bool {
		return data.PrimaryInterest == "automation" && len(data.PainPoints) == 2
	})).Return(nil)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.NoError(t, err)
	mockAnalytics.AssertExpectations(t)
}

func TestObjectiveHandler_VideoShowcase(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"objective_completed","conversation_id":"conv-5","properties":{"objective_name":"demo_video_showcase","output_variables":{"videos_shown":["Onboarding","Pricing"]}}}`)

	mockAnalytics.On("RecordVideosShown", mock.Anything, mock.MatchedBy(func(data model.VideoShowcaseData) bool {
		return len(data.Titles) == 2 && data.Titles[0] == "Onboarding"
	})).Return(nil)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.NoError(t, err)
	mockAnalytics.AssertExpectations(t)
}

func TestObjectiveHandler_CtaDisplay(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"objective_completed","conversation_id":"conv-6","properties":{"objective_name":"cta_display","output_variables":{"cta_url":"https://example.com/book"}}}`)

	mockAnalytics.On("RecordCtaEvent", mock.Anything, mock.MatchedBy(func(data model.CtaEventData) bool {
		return data.Shown && !data.Clicked && data.RequestedURL == "https://example.com/book"
	})).Return(nil)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.NoError(t, err)
	mockAnalytics.AssertExpectations(t)
}

func TestObjectiveHandler_UnknownObjectiveAccepted(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"objective_completed","conversation_id":"conv-7","properties":{"objective_name":"sentiment_survey","output_variables":{"score":"8"}}}`)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.NoError(t, err)
	mockAnalytics.AssertNotCalled(t, "SaveQualification", mock.Anything, mock.Anything)
}

func TestObjectiveHandler_LifecycleConcernRunsAlongside(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	// Transcript data riding on an objective event is persisted too.
	event := decodeTestEvent(t, `{"event_type":"objective_completed","conversation_id":"conv-8","transcript":[{"role":"user","content":"hi"}],"properties":{"objective_name":"greeting_and_qualification","output_variables":{"first_name":"John"}}}`)

	mockLifecycle.On("UpsertConversation", mock.Anything, mock.MatchedBy(func(update model.ConversationUpdate) bool {
		return update.Transcript != nil
	})).Return(nil)
	mockAnalytics.On("SaveQualification", mock.Anything, mock.Anything).Return(nil)

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.NoError(t, err)
	mockLifecycle.AssertExpectations(t)
	mockAnalytics.AssertExpectations(t)
}

func TestObjectiveHandler_PartialFailureIsolation(t *testing.T) {
	mockAnalytics := new(MockAnalyticsService)
	mockLifecycle := new(MockLifecycleService)
	handler := NewObjectiveHandler(mockAnalytics, mockLifecycle)

	event := decodeTestEvent(t, `{"event_type":"objective_completed","conversation_id":"conv-9","transcript":[{"role":"user","content":"hi"}],"properties":{"objective_name":"greeting_and_qualification","output_variables":{"first_name":"John"}}}`)

	// The lifecycle write succeeds, the qualification write fails. The
	// handler must report the partial failure, not roll back the upsert.
	mockLifecycle.On("UpsertConversation", mock.Anything, mock.Anything).Return(nil)
	mockAnalytics.On("SaveQualification", mock.Anything, mock.Anything).Return(errors.New("constraint violation"))

	err := handler.HandleEvent(testContext(t), model.EventObjectiveCompleted, event)

	assert.Error(t, err)
	assert.True(t, apperrors.IsPartialIngestion(err))

	var partial *apperrors.PartialIngestionError
	assert.True(t, errors.As(err, &partial))
	assert.Equal(t, []string{"qualification_records"}, partial.Tables())
	mockLifecycle.AssertExpectations(t)
}
