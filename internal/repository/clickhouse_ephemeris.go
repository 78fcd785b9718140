package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"AstroOverlap/internal/domain/models"
	domrepo "AstroOverlap/internal/domain/repository"
	applogger "AstroOverlap/pkg/logger"
)

const insertChunk = 2000

// EphemerisSchema returns the DDL for the ephemeris table. ReplacingMergeTree
// keyed by (body, t) makes reseeding a range idempotent.
func EphemerisSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    body LowCardinality(String),
    t    DateTime64(3, 'UTC'),
    lon  Float64
) ENGINE = ReplacingMergeTree
ORDER BY (body, t)`, table),
	}
}

// ClickHouseEphemeris stores sidereal longitude samples in ClickHouse and
// serves them back by range.
type ClickHouseEphemeris struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHouseEphemeris(db *sql.DB, table string, l *applogger.Logger) *ClickHouseEphemeris {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseEphemeris{db: db, table: table, l: l}
}

func (s *ClickHouseEphemeris) StoreBatch(ctx context.Context, samples []models.EphemerisSample) error {
	for start := 0; start < len(samples); start += insertChunk {
		end := min(start+insertChunk, len(samples))

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*3)
		for _, smp := range samples[start:end] {
			if smp.Body == "" || smp.T.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?)")
			args = append(args, smp.Body, smp.T.UTC(), smp.Longitude)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (body, t, lon) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse ephemeris insert error",
				applogger.String("table", s.table),
				applogger.Int("rows", len(values)),
				applogger.Error(err),
			)
			return fmt.Errorf("store ephemeris: %w", err)
		}
	}
	return nil
}

// LoadRange returns the samples of body within [from, to] ordered by time.
func (s *ClickHouseEphemeris) LoadRange(ctx context.Context, body string, from, to time.Time) ([]models.EphemerisSample, error) {
	start := time.Now()
	q := fmt.Sprintf("SELECT t, lon FROM %s FINAL WHERE body = ? AND t >= ? AND t <= ? ORDER BY t ASC", s.table)
	rows, err := s.db.QueryContext(ctx, q, body, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("load ephemeris %s: %w", body, err)
	}
	defer rows.Close()

	out := make([]models.EphemerisSample, 0, 1024)
	for rows.Next() {
		smp := models.EphemerisSample{Body: body}
		if err := rows.Scan(&smp.T, &smp.Longitude); err != nil {
			return nil, fmt.Errorf("scan ephemeris %s: %w", body, err)
		}
		smp.T = smp.T.UTC()
		out = append(out, smp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ephemeris %s: %w", body, err)
	}
	s.l.Debug("clickhouse ephemeris loaded",
		applogger.String("body", body),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out, nil
}

func (s *ClickHouseEphemeris) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseEphemeris) Close() error { return nil }

var _ domrepo.EphemerisStore = (*ClickHouseEphemeris)(nil)
