package telemetryrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
)

// MemoryStore is a dependency-free telemetry.Store for tests and
// local development, keyed by (source, timestamp) for idempotence.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[int64]telemetry.Record // source -> unix nano -> record
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[int64]telemetry.Record)}
}

func (m *MemoryStore) Append(_ context.Context, rec telemetry.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bySource, ok := m.records[rec.Source]
	if !ok {
		bySource = make(map[int64]telemetry.Record)
		m.records[rec.Source] = bySource
	}
	key := rec.Timestamp.UnixNano()
	if _, exists := bySource[key]; exists {
		return nil
	}
	rec.DeriveFlowFlags()
	bySource[key] = rec
	return nil
}

func (m *MemoryStore) Latest(_ context.Context, source string) (telemetry.Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bySource := m.records[source]
	var (
		latest telemetry.Record
		found  bool
	)
	for _, rec := range bySource {
		if !found || rec.Timestamp.After(latest.Timestamp) {
			latest = rec
			found = true
		}
	}
	return latest, found, nil
}

func (m *MemoryStore) window(source string, lookback time.Duration) []telemetry.Record {
	bySource := m.records[source]
	now := time.Now()
	from := now.Add(-lookback)
	out := make([]telemetry.Record, 0, len(bySource))
	for _, rec := range bySource {
		if !rec.Timestamp.Before(from) && rec.Timestamp.Before(now) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (m *MemoryStore) Stats(_ context.Context, source string, lookback time.Duration) (telemetry.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.window(source, lookback)

	var stats telemetry.Stats
	stats.Count = len(records)
	if len(records) == 0 {
		return stats, nil
	}

	acc := func(get func(telemetry.Record) float64) telemetry.MetricStats {
		sum, min, max := 0.0, get(records[0]), get(records[0])
		for _, r := range records {
			v := get(r)
			sum += v
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		return telemetry.MetricStats{Avg: sum / float64(len(records)), Min: min, Max: max}
	}

	stats.SOC = acc(func(r telemetry.Record) float64 { return r.BatterySOC })
	stats.BatteryPower = acc(func(r telemetry.Record) float64 { return r.BatteryPower })
	stats.PVPower = acc(func(r telemetry.Record) float64 { return r.PVPower })
	stats.LoadPower = acc(func(r telemetry.Record) float64 { return r.LoadPower })
	stats.GridPower = acc(func(r telemetry.Record) float64 { return r.GridPower })
	return stats, nil
}

func (m *MemoryStore) Series(_ context.Context, source string, lookback time.Duration, limit int) ([]telemetry.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	records := m.window(source, lookback)
	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}

func (m *MemoryStore) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed int64
	for source, bySource := range m.records {
		for key, rec := range bySource {
			if rec.Timestamp.Before(olderThan) {
				delete(bySource, key)
				removed++
			}
		}
		if len(bySource) == 0 {
			delete(m.records, source)
		}
	}
	return removed, nil
}

var _ telemetry.Store = (*MemoryStore)(nil)
