package delivery

import (
	"context"
	"time"

	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
	pkgerrors "github.com/partsmatch/partsmatch-backend/pkg/errors"
)

// statsRepo is the read-only slice of the delivery repository the reporter uses.
type statsRepo interface {
	CountByStatus(ctx context.Context) (map[enums.DeliveryStatus]int64, error)
	ListProcessedSince(ctx context.Context, cutoff time.Time) ([]ProcessedTiming, error)
	ListOverduePending(ctx context.Context, now time.Time) ([]time.Time, error)
}

// QueueStats is the operational snapshot served by the admin stats endpoint.
type QueueStats struct {
	StatusCounts         map[enums.DeliveryStatus]int64 `json:"status_counts"`
	ProcessedInWindow    int                            `json:"processed_in_window"`
	AvgProcessingDelayMS int64                          `json:"avg_processing_delay_ms"`
	OverduePending       int                            `json:"overdue_pending"`
	AvgOverdueAgeMS      int64                          `json:"avg_overdue_age_ms"`
	WindowHours          float64                        `json:"window_hours"`
}

// StatsReporter computes read-only queue health numbers. It never mutates
// queue entries.
type StatsReporter struct {
	repo statsRepo
	cfg  config.DeliveryConfig
	now  func() time.Time
}

// NewStatsReporter builds a reporter over the delivery repository.
func NewStatsReporter(repo statsRepo, cfg config.DeliveryConfig, now func() time.Time) (*StatsReporter, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stats reporter requires a queue repository")
	}
	if now == nil {
		now = time.Now
	}
	return &StatsReporter{repo: repo, cfg: cfg, now: now}, nil
}

// Report assembles the current snapshot.
func (s *StatsReporter) Report(ctx context.Context) (*QueueStats, error) {
	now := s.now().UTC()
	window := s.cfg.StatsWindow
	if window <= 0 {
		window = 24 * time.Hour
	}

	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "counting queue entries")
	}

	processed, err := s.repo.ListProcessedSince(ctx, now.Add(-window))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading processed timings")
	}

	overdue, err := s.repo.ListOverduePending(ctx, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading overdue entries")
	}

	stats := &QueueStats{
		StatusCounts:      counts,
		ProcessedInWindow: len(processed),
		OverduePending:    len(overdue),
		WindowHours:       window.Hours(),
	}

	if len(processed) > 0 {
		var total time.Duration
		for _, p := range processed {
			total += p.ProcessedAt.Sub(p.ScheduledDeliveryTime)
		}
		stats.AvgProcessingDelayMS = (total / time.Duration(len(processed))).Milliseconds()
	}

	if len(overdue) > 0 {
		var total time.Duration
		for _, scheduled := range overdue {
			total += now.Sub(scheduled)
		}
		stats.AvgOverdueAgeMS = (total / time.Duration(len(overdue))).Milliseconds()
	}

	return stats, nil
}
