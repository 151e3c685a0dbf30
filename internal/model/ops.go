package model

import "time"

// The structs below are what handlers extract out of the loosely-typed
// webhook envelope. Services consume them to perform the persistence
// operations; they never reference the envelope itself.

// ConversationUpdate carries lifecycle, transcript and perception data for
// one conversation-details upsert.
type ConversationUpdate struct {
	ConversationID  string `validate:"required"`
	DemoID          string
	Status          string
	StartedAt       *time.Time
	CompletedAt     *time.Time
	DurationSeconds int
	Transcript      interface{}
	Perception      interface{}
	ReceivedAt      time.Time
}

// HasContent reports whether the update carries anything worth persisting.
func (u ConversationUpdate) HasContent() bool {
	return u.Status != "" || u.Transcript != nil || u.Perception != nil ||
		u.StartedAt != nil || u.CompletedAt != nil || u.DurationSeconds > 0 ||
		u.DemoID != ""
}

// QualificationData is the extracted result of a greeting-and-qualification
// objective completion.
type QualificationData struct {
	ConversationID string `validate:"required"`
	ObjectiveName  string
	FirstName      string
	LastName       string
	Email          string `validate:"omitempty,email"`
	Position       string
	RawPayload     map[string]interface{}
	ReceivedAt     time.Time
}

// ProductInterestData is the extracted result of a product-interest
// discovery objective completion.
type ProductInterestData struct {
	ConversationID  string `validate:"required"`
	ObjectiveName   string
	PrimaryInterest string
	PainPoints      []string
	RawPayload      map[string]interface{}
	ReceivedAt      time.Time
}

// VideoShowcaseData carries newly shown video titles for one conversation.
type VideoShowcaseData struct {
	ConversationID string `validate:"required"`
	ObjectiveName  string
	Titles         []string
	RawPayload     map[string]interface{}
	ReceivedAt     time.Time
}

// CtaEventData carries a CTA display or click beacon. RequestedURL is the
// URL the provider reported; the service applies the admin-configured
// precedence before persisting.
type CtaEventData struct {
	ConversationID string `validate:"required"`
	ObjectiveName  string
	RequestedURL   string
	Shown          bool
	Clicked        bool
	RawPayload     map[string]interface{}
	ReceivedAt     time.Time
}
