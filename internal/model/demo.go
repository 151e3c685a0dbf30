package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Demo is owned by the surrounding application. The pipeline reads it to
// resolve conversation ownership and the configured CTA URL, and only
// writes the denormalized analytics counters.
type Demo struct {
	ID                     string         `json:"id" gorm:"column:id;primaryKey"`
	Name                   string         `json:"name,omitempty" gorm:"column:name"`
	CtaURL                 string         `json:"cta_url,omitempty" gorm:"column:cta_url"`
	Metadata               datatypes.JSON `json:"metadata,omitempty" gorm:"type:jsonb;column:metadata"`
	ConversationsCompleted int64          `json:"conversations_completed,omitempty" gorm:"column:conversations_completed;default:0"`
	QualifiedLeads         int64          `json:"qualified_leads,omitempty" gorm:"column:qualified_leads;default:0"`
	VideosShown            int64          `json:"videos_shown,omitempty" gorm:"column:videos_shown;default:0"`
	CtaClicks              int64          `json:"cta_clicks,omitempty" gorm:"column:cta_clicks;default:0"`
	CreatedAt              time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Demo) TableName() string {
	return "demos"
}

// ResolveCtaURL returns the URL a CTA event should record. The
// admin-configured URL takes precedence over the metadata default.
func (d *Demo) ResolveCtaURL() string {
	if d.CtaURL != "" {
		return d.CtaURL
	}
	if len(d.Metadata) == 0 {
		return ""
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(d.Metadata, &meta); err != nil {
		return ""
	}
	if url, ok := meta["cta_url"].(string); ok {
		return url
	}
	if url, ok := meta["default_cta_url"].(string); ok {
		return url
	}
	return ""
}

// CounterKind names a denormalized demo counter bumped by the analytics
// worker after a successful ingestion.
type CounterKind string

const (
	CounterConversationsCompleted CounterKind = "conversations_completed"
	CounterQualifiedLeads         CounterKind = "qualified_leads"
	CounterVideosShown            CounterKind = "videos_shown"
	CounterCtaClicks              CounterKind = "cta_clicks"
)
