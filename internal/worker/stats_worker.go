package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/alertx/alertx/internal/domain"
	"github.com/alertx/alertx/internal/observability/metrics"
)

// StatsWorker periodically refreshes the per-status report gauges from the
// store. Reports have no expiry, so the loop only reads.
type StatsWorker struct {
	reports  domain.ReportRepository
	logger   *slog.Logger
	interval time.Duration

	// statuses seen on previous ticks, so gauges for drained statuses
	// drop back to zero
	seen map[string]struct{}
}

// NewStatsWorker creates a new stats worker
func NewStatsWorker(reports domain.ReportRepository, logger *slog.Logger, interval time.Duration) *StatsWorker {
	return &StatsWorker{
		reports:  reports,
		logger:   logger,
		interval: interval,
		seen:     map[string]struct{}{},
	}
}

// Start begins the refresh loop
func (w *StatsWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stats worker started", slog.Duration("interval", w.interval))

	w.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stats worker stopped")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsWorker) refresh(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	counts, err := w.reports.CountByStatus(rctx)
	if err != nil {
		w.logger.Error("failed to refresh report stats", slog.String("error", err.Error()))
		return
	}

	for status := range w.seen {
		if _, ok := counts[status]; !ok {
			metrics.SetReportsByStatus(status, 0)
		}
	}
	for status, count := range counts {
		metrics.SetReportsByStatus(status, count)
		w.seen[status] = struct{}{}
	}
}
