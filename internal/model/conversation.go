package model

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation status values
const (
	ConversationStatusActive    = "active"
	ConversationStatusCompleted = "completed"
	ConversationStatusEnded     = "ended"
)

// ConversationDetail holds one row per external conversation. Mutated
// incrementally as lifecycle, transcript and perception events arrive.
type ConversationDetail struct {
	ID                 int64          `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	ConversationID     string         `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex"`
	DemoID             string         `json:"demo_id" gorm:"column:demo_id;index"`
	Transcript         datatypes.JSON `json:"transcript,omitempty" gorm:"type:jsonb;column:transcript"`
	PerceptionAnalysis datatypes.JSON `json:"perception_analysis,omitempty" gorm:"type:jsonb;column:perception_analysis"`
	Status             string         `json:"status,omitempty" gorm:"column:status"`
	StartedAt          *time.Time     `json:"started_at,omitempty" gorm:"column:started_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty" gorm:"column:completed_at"`
	DurationSeconds    int            `json:"duration_seconds,omitempty" gorm:"column:duration_seconds"`
	CreatedAt          time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (ConversationDetail) TableName() string {
	return "conversation_details"
}

// Merge copies the populated fields of patch onto c. Zero-valued patch
// fields leave the existing value untouched so that a transcript-only
// event cannot blank out earlier perception data, and vice versa.
func (c *ConversationDetail) Merge(patch *ConversationDetail) {
	if patch.DemoID != "" {
		c.DemoID = patch.DemoID
	}
	if len(patch.Transcript) > 0 {
		c.Transcript = patch.Transcript
	}
	if len(patch.PerceptionAnalysis) > 0 {
		c.PerceptionAnalysis = patch.PerceptionAnalysis
	}
	if patch.Status != "" {
		c.Status = patch.Status
	}
	if patch.StartedAt != nil {
		c.StartedAt = patch.StartedAt
	}
	if patch.CompletedAt != nil {
		c.CompletedAt = patch.CompletedAt
	}
	if patch.DurationSeconds > 0 {
		c.DurationSeconds = patch.DurationSeconds
	}
}
