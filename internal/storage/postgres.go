// Package storage implements the durable history gateway on Postgres. It is
// a write-behind sink and read-through source for historical queries only;
// in-memory state remains the source of truth for serving and alerting.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// HistoryRepo persists accepted readings to the sensor_history table.
// Implements ingest.HistoryStore.
type HistoryRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewHistoryRepo creates a repository over an open connection pool.
func NewHistoryRepo(db *sql.DB, logger *slog.Logger) *HistoryRepo {
	return &HistoryRepo{db: db, logger: logger}
}

const createTableStmt = `
CREATE TABLE IF NOT EXISTS sensor_history (
	id              BIGSERIAL PRIMARY KEY,
	zone_id         TEXT             NOT NULL,
	node_id         TEXT             NOT NULL,
	reading_ts      BIGINT           NOT NULL,
	temp_c          DOUBLE PRECISION NOT NULL,
	hum_pct         DOUBLE PRECISION NOT NULL,
	mq2             DOUBLE PRECISION NOT NULL,
	mq135           DOUBLE PRECISION NOT NULL,
	sound_db        DOUBLE PRECISION NOT NULL,
	fire_risk_index INTEGER          NOT NULL,
	recorded_at     TIMESTAMPTZ      NOT NULL
);
CREATE INDEX IF NOT EXISTS sensor_history_recorded_at_idx
	ON sensor_history (recorded_at DESC)`

// EnsureSchema creates the history table and its index if absent.
func (r *HistoryRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableStmt); err != nil {
		return fmt.Errorf("ensure sensor_history schema: %w", err)
	}
	return nil
}

const appendStmt = `
INSERT INTO sensor_history
	(zone_id, node_id, reading_ts, temp_c, hum_pct, mq2, mq135, sound_db, fire_risk_index, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// Append durably stores one accepted reading.
func (r *HistoryRepo) Append(ctx context.Context, rec domain.HistoryRecord) error {
	_, err := r.db.ExecContext(ctx, appendStmt,
		rec.ZoneID, rec.NodeID, rec.Timestamp,
		rec.TempC, rec.HumPct, rec.MQ2, rec.MQ135, rec.SoundDB,
		rec.FireRiskIndex, rec.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("append history record: %w", err)
	}
	return nil
}

const recentStmt = `
SELECT zone_id, node_id, reading_ts, temp_c, hum_pct, mq2, mq135, sound_db, fire_risk_index, recorded_at
FROM sensor_history
ORDER BY recorded_at DESC
LIMIT $1`

// Recent returns the newest records, ordered by recording time descending.
func (r *HistoryRepo) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("history query limit must be positive, got %d", limit)
	}

	rows, err := r.db.QueryContext(ctx, recentStmt, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	records := make([]domain.HistoryRecord, 0, limit)
	for rows.Next() {
		var rec domain.HistoryRecord
		if err := rows.Scan(
			&rec.ZoneID, &rec.NodeID, &rec.Timestamp,
			&rec.TempC, &rec.HumPct, &rec.MQ2, &rec.MQ135, &rec.SoundDB,
			&rec.FireRiskIndex, &rec.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return records, nil
}

// Ping reports whether the durable store is reachable. Used by readiness
// checks.
func (r *HistoryRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
