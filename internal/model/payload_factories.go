package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/Valbows/NewDomo-sub006/pkg/utils"
)

func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// --- Webhook Payload Factories ---
//
// Used by tests across packages to simulate the provider's envelope shapes.
// Each factory returns a raw payload map so tests can mutate or re-nest
// fields before marshalling.

// NewQualificationEventPayload creates an objective_completed payload for the
// greeting-and-qualification objective using the properties.output_variables shape.
func NewQualificationEventPayload(conversationID string) map[string]interface{} {
	if conversationID == "" {
		conversationID = "conv-" + gofakeit.LetterN(8)
	}
	return map[string]interface{}{
		"event_type":      string(EventObjectiveCompleted),
		"conversation_id": conversationID,
		"objective_name":  ObjectiveGreetingQualification,
		"properties": map[string]interface{}{
			"output_variables": map[string]interface{}{
				"first_name": gofakeit.FirstName(),
				"last_name":  gofakeit.LastName(),
				"email":      gofakeit.Email(),
				"position":   gofakeit.JobTitle(),
			},
		},
	}
}

// NewProductInterestEventPayload creates an objective_completed payload for
// the product-interest objective using the data.output_variables shape.
func NewProductInterestEventPayload(conversationID string) map[string]interface{} {
	if conversationID == "" {
		conversationID = "conv-" + gofakeit.LetterN(8)
	}
	return map[string]interface{}{
		"event_type":      string(EventObjectiveCompleted),
		"conversation_id": conversationID,
		"objective_name":  ObjectiveProductInterest,
		"data": map[string]interface{}{
			"output_variables": map[string]interface{}{
				"primary_interest": gofakeit.BuzzWord(),
				"pain_points":      []interface{}{gofakeit.HackerPhrase(), gofakeit.HackerPhrase()},
			},
		},
	}
}

// NewVideoToolCallPayload creates a tool_call payload reporting videos shown.
func NewVideoToolCallPayload(conversationID string, titles ...string) map[string]interface{} {
	if conversationID == "" {
		conversationID = "conv-" + gofakeit.LetterN(8)
	}
	if len(titles) == 0 {
		titles = []string{gofakeit.MovieName()}
	}
	shown := make([]interface{}, 0, len(titles))
	for _, t := range titles {
		shown = append(shown, t)
	}
	return map[string]interface{}{
		"event_type":      "application." + string(EventToolCall),
		"conversation_id": conversationID,
		"tool_name":       ToolShowVideo,
		"properties": map[string]interface{}{
			"video_title": shown,
		},
	}
}

// NewCtaToolCallPayload creates a tool_call payload for a CTA display or click.
func NewCtaToolCallPayload(conversationID, tool string) map[string]interface{} {
	if conversationID == "" {
		conversationID = "conv-" + gofakeit.LetterN(8)
	}
	return map[string]interface{}{
		"event_type":      string(EventToolCall),
		"conversation_id": conversationID,
		"tool_name":       tool,
		"properties": map[string]interface{}{
			"cta_url": gofakeit.URL(),
		},
	}
}

// NewTranscriptionReadyPayload creates a lifecycle payload carrying a
// transcript under data.transcript.
func NewTranscriptionReadyPayload(conversationID string) map[string]interface{} {
	if conversationID == "" {
		conversationID = "conv-" + gofakeit.LetterN(8)
	}
	return map[string]interface{}{
		"event_type": "application." + string(EventTranscriptionReady),
		"data": map[string]interface{}{
			"conversation_id": conversationID,
			"transcript": []interface{}{
				map[string]interface{}{"role": "assistant", "content": gofakeit.Sentence(8)},
				map[string]interface{}{"role": "user", "content": gofakeit.Sentence(6)},
			},
		},
	}
}

// MarshalPayload serializes a factory payload, panicking on failure since
// factory output is always marshallable.
func MarshalPayload(payload map[string]interface{}) []byte {
	return utils.MustMarshalJSON(payload)
}
