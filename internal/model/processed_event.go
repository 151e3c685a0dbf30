package model

import "time"

// ProcessedEvent is one row of the idempotency ledger. The unique insert on
// event_id is what authorizes a handler to run its side effects; rows are
// never updated and may be pruned by the retention sweeper.
type ProcessedEvent struct {
	ID          int64     `json:"-" gorm:"column:id;primaryKey;autoIncrement"`
	EventID     string    `json:"event_id" gorm:"column:event_id;uniqueIndex"`
	EventType   string    `json:"event_type,omitempty" gorm:"column:event_type"`
	ProcessedAt time.Time `json:"processed_at" gorm:"column:processed_at"`
}

// TableName specifies the table name for GORM.
func (ProcessedEvent) TableName() string {
	return "processed_events"
}
