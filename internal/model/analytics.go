package model

import (
	"time"

	"gorm.io/datatypes"
)

// QualificationRecord stores the contact fields captured by the
// greeting-and-qualification objective, one row per conversation.
type QualificationRecord struct {
	ID             int64          `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationID string         `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex"`
	DemoID         string         `json:"demo_id,omitempty" gorm:"column:demo_id;index"`
	ObjectiveName  string         `json:"objective_name,omitempty" gorm:"column:objective_name"`
	FirstName      string         `json:"first_name,omitempty" gorm:"column:first_name"`
	LastName       string         `json:"last_name,omitempty" gorm:"column:last_name"`
	Email          string         `json:"email,omitempty" gorm:"column:email"`
	Position       string         `json:"position,omitempty" gorm:"column:position"`
	RawPayload     datatypes.JSON `json:"raw_payload,omitempty" gorm:"type:jsonb;column:raw_payload"`
	ReceivedAt     time.Time      `json:"received_at,omitempty" gorm:"column:received_at"`
	CreatedAt      time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (QualificationRecord) TableName() string {
	return "qualification_records"
}

// GetUpdatableFields returns the column names updated during an ON CONFLICT
// clause. Excludes primary key, conversation id and creation timestamp.
func (q *QualificationRecord) GetUpdatableFields() []string {
	return []string{
		"demo_id", "objective_name", "first_name", "last_name", "email",
		"position", "raw_payload", "received_at", "updated_at",
	}
}

// ProductInterestRecord stores the findings of the product-interest
// discovery objective, one row per conversation.
type ProductInterestRecord struct {
	ID              int64          `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationID  string         `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex"`
	DemoID          string         `json:"demo_id,omitempty" gorm:"column:demo_id;index"`
	ObjectiveName   string         `json:"objective_name,omitempty" gorm:"column:objective_name"`
	PrimaryInterest string         `json:"primary_interest,omitempty" gorm:"column:primary_interest"`
	PainPoints      datatypes.JSON `json:"pain_points,omitempty" gorm:"type:jsonb;column:pain_points"`
	RawPayload      datatypes.JSON `json:"raw_payload,omitempty" gorm:"type:jsonb;column:raw_payload"`
	ReceivedAt      time.Time      `json:"received_at,omitempty" gorm:"column:received_at"`
	CreatedAt       time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (ProductInterestRecord) TableName() string {
	return "product_interest_records"
}

// GetUpdatableFields returns the column names updated during an ON CONFLICT
// clause.
func (p *ProductInterestRecord) GetUpdatableFields() []string {
	return []string{
		"demo_id", "objective_name", "primary_interest", "pain_points",
		"raw_payload", "received_at", "updated_at",
	}
}

// VideoShowcaseRecord accumulates the deduplicated set of videos shown
// during a conversation. New titles union into VideosShown, they never
// overwrite it.
type VideoShowcaseRecord struct {
	ID             int64          `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationID string         `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex"`
	DemoID         string         `json:"demo_id,omitempty" gorm:"column:demo_id;index"`
	ObjectiveName  string         `json:"objective_name,omitempty" gorm:"column:objective_name"`
	VideosShown    datatypes.JSON `json:"videos_shown,omitempty" gorm:"type:jsonb;column:videos_shown"`
	RawPayload     datatypes.JSON `json:"raw_payload,omitempty" gorm:"type:jsonb;column:raw_payload"`
	ReceivedAt     time.Time      `json:"received_at,omitempty" gorm:"column:received_at"`
	CreatedAt      time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (VideoShowcaseRecord) TableName() string {
	return "video_showcase_records"
}

// CtaTrackingRecord stores call-to-action display and click tracking for a
// conversation, including the URL actually presented.
type CtaTrackingRecord struct {
	ID             int64          `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationID string         `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex"`
	DemoID         string         `json:"demo_id,omitempty" gorm:"column:demo_id;index"`
	ObjectiveName  string         `json:"objective_name,omitempty" gorm:"column:objective_name"`
	CtaURL         string         `json:"cta_url,omitempty" gorm:"column:cta_url"`
	ShownAt        *time.Time     `json:"shown_at,omitempty" gorm:"column:shown_at"`
	ClickedAt      *time.Time     `json:"clicked_at,omitempty" gorm:"column:clicked_at"`
	RawPayload     datatypes.JSON `json:"raw_payload,omitempty" gorm:"type:jsonb;column:raw_payload"`
	ReceivedAt     time.Time      `json:"received_at,omitempty" gorm:"column:received_at"`
	CreatedAt      time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (CtaTrackingRecord) TableName() string {
	return "cta_tracking_records"
}
