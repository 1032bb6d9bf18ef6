package telemetry

import (
	"context"
	"time"
)

// Store persists and queries energy telemetry samples.
type Store interface {
	// Append inserts a record, idempotent on (source, timestamp).
	Append(ctx context.Context, record Record) error
	// Latest returns the most recent record for source, or
	// (Record{}, false) if none exist.
	Latest(ctx context.Context, source string) (Record, bool, error)
	// Stats aggregates records for source within the half-open window
	// [now-lookback, now).
	Stats(ctx context.Context, source string, lookback time.Duration) (Stats, error)
	// Series returns up to limit records for source within the
	// half-open window, ordered oldest to newest.
	Series(ctx context.Context, source string, lookback time.Duration, limit int) ([]Record, error)
	// Prune deletes raw records older than the retention cutoff.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
}
