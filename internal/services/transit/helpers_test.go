package transit

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"AstroOverlap/internal/domain/models"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// linearProvider moves every body at a constant rate from lon0 at t0.
type linearProvider struct {
	lon0      float64
	degPerDay float64
	calls     atomic.Int64
}

func (p *linearProvider) Name() string { return "linear" }

func (p *linearProvider) Longitude(_ context.Context, t time.Time, _ models.Body) (float64, error) {
	p.calls.Add(1)
	days := t.Sub(t0).Hours() / 24
	return models.NormalizeDegrees(p.lon0 + p.degPerDay*days), nil
}

// blipProvider reports inside for instants strictly within (from, to) and outside otherwise.
type blipProvider struct {
	from, to        time.Time
	inside, outside float64
}

func (p blipProvider) Name() string { return "blip" }

func (p blipProvider) Longitude(_ context.Context, t time.Time, _ models.Body) (float64, error) {
	if t.After(p.from) && t.Before(p.to) {
		return p.inside, nil
	}
	return p.outside, nil
}

type failingProvider struct{ after int64 }

var errEphemeris = errors.New("ephemeris offline")

func (p *failingProvider) Name() string { return "failing" }

func (p *failingProvider) Longitude(context.Context, time.Time, models.Body) (float64, error) {
	if p.after <= 0 {
		return 0, errEphemeris
	}
	p.after--
	return 10, nil
}

var testBody = models.Body{Name: "Synthetic", MaxSpeed: 1}

func days(n float64) time.Duration { return time.Duration(n * float64(24*time.Hour)) }
