package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Valbows/NewDomo-sub006/internal/config"
	"github.com/Valbows/NewDomo-sub006/internal/observer"
	"github.com/Valbows/NewDomo-sub006/internal/storage"
	"github.com/Valbows/NewDomo-sub006/pkg/utils"
)

// RetentionSweeper periodically prunes processed-event ledger rows older
// than the configured maximum age. Rows outside the redelivery window only
// cost storage; the dedup guarantee applies within the window.
type RetentionSweeper struct {
	ledger storage.LedgerRepo
	cfg    config.RetentionConfig
	log    *zap.Logger
}

// NewRetentionSweeper creates a ledger retention sweeper.
func NewRetentionSweeper(cfg config.RetentionConfig, ledger storage.LedgerRepo, log *zap.Logger) *RetentionSweeper {
	return &RetentionSweeper{
		ledger: ledger,
		cfg:    cfg,
		log:    log.Named("retention_sweeper"),
	}
}

// Enabled reports whether a maximum age is configured.
func (s *RetentionSweeper) Enabled() bool {
	return s.cfg.LedgerMaxAge > 0
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *RetentionSweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		s.log.Info("Ledger retention sweeper disabled, no max age configured")
		return
	}

	s.log.Info("Ledger retention sweeper started",
		zap.Duration("max_age", s.cfg.LedgerMaxAge),
		zap.Duration("interval", s.cfg.SweepInterval),
	)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Ledger retention sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce deletes ledger rows older than now minus the max age.
func (s *RetentionSweeper) SweepOnce(ctx context.Context) {
	defer utils.RecoverWithLog(ctx, "ledger retention sweep")

	cutoff := utils.Now().Add(-s.cfg.LedgerMaxAge)

	pruned, err := s.ledger.DeleteProcessedEventsBefore(ctx, cutoff)
	if err != nil {
		s.log.Error("Ledger sweep failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return
	}

	observer.AddLedgerRowsPruned(pruned)
	if pruned > 0 {
		s.log.Info("Pruned processed-event ledger",
			zap.Time("cutoff", cutoff),
			zap.Int64("rows", pruned),
		)
	}
}
