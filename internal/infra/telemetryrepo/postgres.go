// Package telemetryrepo adapts internal/domain/telemetry.Store to
// concrete storage: Postgres for production, an in-memory store for
// tests.
package telemetryrepo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
)

// PostgresStore implements telemetry.Store over a shared
// pgxpool.Pool, grounded on the same pool.Exec/QueryRow idiom as
// internal/infra/kbrepo.PostgresStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (r *PostgresStore) Append(ctx context.Context, rec telemetry.Record) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO telemetry_records
			(source, ts, battery_soc, battery_power, pv_power, load_power, grid_power)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (source, ts) DO NOTHING
	`, rec.Source, rec.Timestamp, rec.BatterySOC, rec.BatteryPower, rec.PVPower, rec.LoadPower, rec.GridPower)
	return err
}

func (r *PostgresStore) Latest(ctx context.Context, source string) (telemetry.Record, bool, error) {
	var rec telemetry.Record
	rec.Source = source
	err := r.pool.QueryRow(ctx, `
		SELECT ts, battery_soc, battery_power, pv_power, load_power, grid_power
		FROM telemetry_records
		WHERE source = $1
		ORDER BY ts DESC
		LIMIT 1
	`, source).Scan(&rec.Timestamp, &rec.BatterySOC, &rec.BatteryPower, &rec.PVPower, &rec.LoadPower, &rec.GridPower)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return telemetry.Record{}, false, nil
		}
		return telemetry.Record{}, false, err
	}
	rec.DeriveFlowFlags()
	return rec, true, nil
}

func (r *PostgresStore) Stats(ctx context.Context, source string, lookback time.Duration) (telemetry.Stats, error) {
	var stats telemetry.Stats
	row := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COALESCE(AVG(battery_soc), 0), COALESCE(MIN(battery_soc), 0), COALESCE(MAX(battery_soc), 0),
			COALESCE(AVG(battery_power), 0), COALESCE(MIN(battery_power), 0), COALESCE(MAX(battery_power), 0),
			COALESCE(AVG(pv_power), 0), COALESCE(MIN(pv_power), 0), COALESCE(MAX(pv_power), 0),
			COALESCE(AVG(load_power), 0), COALESCE(MIN(load_power), 0), COALESCE(MAX(load_power), 0),
			COALESCE(AVG(grid_power), 0), COALESCE(MIN(grid_power), 0), COALESCE(MAX(grid_power), 0)
		FROM telemetry_records
		WHERE source = $1 AND ts >= $2 AND ts < $3
	`, source, time.Now().Add(-lookback), time.Now())
	err := row.Scan(
		&stats.Count,
		&stats.SOC.Avg, &stats.SOC.Min, &stats.SOC.Max,
		&stats.BatteryPower.Avg, &stats.BatteryPower.Min, &stats.BatteryPower.Max,
		&stats.PVPower.Avg, &stats.PVPower.Min, &stats.PVPower.Max,
		&stats.LoadPower.Avg, &stats.LoadPower.Min, &stats.LoadPower.Max,
		&stats.GridPower.Avg, &stats.GridPower.Min, &stats.GridPower.Max,
	)
	return stats, err
}

func (r *PostgresStore) Series(ctx context.Context, source string, lookback time.Duration, limit int) ([]telemetry.Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ts, battery_soc, battery_power, pv_power, load_power, grid_power
		FROM telemetry_records
		WHERE source = $1 AND ts >= $2 AND ts < $3
		ORDER BY ts ASC
		LIMIT $4
	`, source, time.Now().Add(-lookback), time.Now(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []telemetry.Record
	for rows.Next() {
		rec := telemetry.Record{Source: source}
		if err := rows.Scan(&rec.Timestamp, &rec.BatterySOC, &rec.BatteryPower, &rec.PVPower, &rec.LoadPower, &rec.GridPower); err != nil {
			return nil, err
		}
		rec.DeriveFlowFlags()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *PostgresStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM telemetry_records WHERE ts < $1`, olderThan)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ telemetry.Store = (*PostgresStore)(nil)
