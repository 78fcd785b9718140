package repository

import (
	"context"
	"time"

	"AstroOverlap/internal/domain/models"
)

// PositionProvider returns a body's sidereal ecliptic longitude in [0,360).
// Implementations must be deterministic for a given instant and body.
type PositionProvider interface {
	Name() string
	Longitude(ctx context.Context, t time.Time, body models.Body) (float64, error)
}

// Preloader is implemented by providers that fetch a range up front (tables, remote series).
// The engine calls Preload once per body before scanning.
type Preloader interface {
	Preload(ctx context.Context, body models.Body, from, to time.Time) error
}

type ResultPublisher interface {
	Publish(ctx context.Context, resp *models.OverlapResponse) error
	Close() error
}

type Metrics interface {
	RecordQuery(status string)
	RecordSearch(body, outcome string, steps int64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
