package telemetry

import (
	"context"
	"log/slog"
	"time"
)

const (
	// defaultMinimumForAnalytics is the sample count below which Stats
	// results are flagged low-confidence; configurable via Service.
	defaultMinimumForAnalytics = 100
	defaultSeriesLimit         = 500
	maxHoursLookback           = 168 // 7 days, matches historical_stats clamp in C8
)

// Service wraps a Store, applying the minimum-for-analytics
// low-confidence flag and default limits the tools layer (C8) relies
// on.
type Service struct {
	store               Store
	minimumForAnalytics int
	log                 *slog.Logger
}

// NewService constructs a Service. minimumForAnalytics <= 0 uses the
// spec's default of 100.
func NewService(store Store, minimumForAnalytics int, log *slog.Logger) *Service {
	if minimumForAnalytics <= 0 {
		minimumForAnalytics = defaultMinimumForAnalytics
	}
	return &Service{store: store, minimumForAnalytics: minimumForAnalytics, log: log.With("component", "telemetry.service")}
}

// Append appends one sample, deriving flow flags if the caller hasn't.
func (s *Service) Append(ctx context.Context, record Record) error {
	record.DeriveFlowFlags()
	return s.store.Append(ctx, record)
}

// Latest returns the most recent sample for source.
func (s *Service) Latest(ctx context.Context, source string) (Record, bool, error) {
	return s.store.Latest(ctx, source)
}

// Stats returns aggregate stats over the given lookback window,
// flagging low confidence when the sample count is below the
// configured minimum. The aggregates are returned regardless — a
// zero-count window yields a well-formed, zeroed block.
func (s *Service) Stats(ctx context.Context, source string, lookback time.Duration) (Stats, error) {
	stats, err := s.store.Stats(ctx, source, lookback)
	if err != nil {
		return Stats{}, err
	}
	stats.LowConfidence = stats.Count < s.minimumForAnalytics
	return stats, nil
}

// Series returns ordered records over the lookback window, replacing a
// non-positive limit with defaultSeriesLimit. No upper bound is applied.
func (s *Service) Series(ctx context.Context, source string, lookback time.Duration, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultSeriesLimit
	}
	return s.store.Series(ctx, source, lookback, limit)
}

// ClampHours restricts an hours parameter to the [1, 168] range the
// historical_stats/time_series tools enforce.
func ClampHours(hours int) int {
	if hours < 1 {
		return 1
	}
	if hours > maxHoursLookback {
		return maxHoursLookback
	}
	return hours
}
