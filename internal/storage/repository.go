package storage

import (
	"context"
	"time"

	"github.com/Valbows/NewDomo-sub006/internal/model"
)

// ConversationRepo persists conversation lifecycle, transcript and
// perception data.
type ConversationRepo interface {
	UpsertConversationDetail(ctx context.Context, detail model.ConversationDetail) error
	FindConversationDetail(ctx context.Context, conversationID string) (*model.ConversationDetail, error)
}

// AnalyticsRepo persists the per-objective analytics rows.
type AnalyticsRepo interface {
	SaveQualificationRecord(ctx context.Context, record model.QualificationRecord) error
	SaveProductInterestRecord(ctx context.Context, record model.ProductInterestRecord) error
	UnionVideoShowcase(ctx context.Context, record model.VideoShowcaseRecord, titles []string) error
	UpsertCtaTracking(ctx context.Context, record model.CtaTrackingRecord) error
}

// LedgerRepo is the idempotency ledger.
type LedgerRepo interface {
	InsertProcessedEvent(ctx context.Context, record model.ProcessedEvent) (bool, error)
	DeleteProcessedEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// DemoRepo resolves demo ownership and maintains the denormalized counters.
type DemoRepo interface {
	FindDemoByID(ctx context.Context, demoID string) (*model.Demo, error)
	FindDemoByConversationID(ctx context.Context, conversationID string) (*model.Demo, error)
	IncrementDemoCounter(ctx context.Context, demoID string, kind model.CounterKind) error
}

var (
	_ ConversationRepo = (*PostgresRepo)(nil)
	_ AnalyticsRepo    = (*PostgresRepo)(nil)
	_ LedgerRepo       = (*PostgresRepo)(nil)
	_ DemoRepo         = (*PostgresRepo)(nil)
)
