package jobs

import (
	"context"

	"go.uber.org/zap"

	"crm-system/internal/repositories"
	"crm-system/pkg/metrics"
)

// OrphanSweeper removes reminder events whose lead no longer exists.
type OrphanSweeper struct {
	events  repositories.CalendarEventRepositoryInterface
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewOrphanSweeper(events repositories.CalendarEventRepositoryInterface, m *metrics.Metrics, logger *zap.Logger) *OrphanSweeper {
	return &OrphanSweeper{events: events, metrics: m, logger: logger}
}

func (s *OrphanSweeper) Name() string { return "orphan_sweeper" }

func (s *OrphanSweeper) Run(ctx context.Context) (int, error) {
	n, err := s.events.DeleteOrphanReminders(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("orphan reminders removed", zap.Int64("count", n))
	}
	s.metrics.RecordOrphansSwept(n)
	return int(n), nil
}
