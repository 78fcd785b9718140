package repository

import (
	"context"
	"time"

	"AstroOverlap/internal/domain/models"
)

// EphemerisStore persists tabulated longitudes for table-backed providers.
type EphemerisStore interface {
	StoreBatch(ctx context.Context, samples []models.EphemerisSample) error
	LoadRange(ctx context.Context, body string, from, to time.Time) ([]models.EphemerisSample, error)
	Health(ctx context.Context) error
	Close() error
}
