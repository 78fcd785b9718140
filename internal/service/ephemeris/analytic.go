// Package ephemeris provides sidereal longitude sources for the transit finder.
//
// Analytic computes positions from closed-form series and needs no data files.
// SeriesProvider serves positions from tabulated samples loaded on demand.
package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AstroOverlap/internal/domain/models"
	domrepo "AstroOverlap/internal/domain/repository"
)

// ErrUnsupportedBody is returned for ephemeris codes a provider cannot compute.
var ErrUnsupportedBody = errors.New("ephemeris: unsupported body")

// Analytic is a low-precision sidereal ephemeris (Lahiri ayanamsa).
// Accuracy is a few hundredths of a degree for 1800-2050. It is stateless
// and safe for concurrent use.
type Analytic struct{}

// NewAnalytic creates the analytic provider.
func NewAnalytic() *Analytic { return &Analytic{} }

func (a *Analytic) Name() string { return "analytic" }

// Longitude returns the sidereal longitude of body at t, in [0,360).
func (a *Analytic) Longitude(_ context.Context, t time.Time, body models.Body) (float64, error) {
	lon, err := a.Sidereal(t, body.Code)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (code %d)", err, body.Name, body.Code)
	}
	return models.NormalizeDegrees(lon + body.Offset), nil
}

// Sidereal returns the sidereal longitude for an ephemeris code.
func (a *Analytic) Sidereal(t time.Time, code models.BodyCode) (float64, error) {
	T := centuries(t)
	switch code {
	case models.CodeSun:
		return norm360(sunApparent(T) - lahiri(T)), nil
	case models.CodeMoon:
		return norm360(moonLongitude(T) - lahiri(T)), nil
	case models.CodeMeanNode:
		return norm360(meanNode(T) - lahiri(T)), nil
	}

	planet, ok := planets[code]
	if !ok {
		return 0, ErrUnsupportedBody
	}
	// J2000 ecliptic longitudes are already fixed to the stars; only the epoch ayanamsa applies.
	return norm360(geocentricLongitude(planet, T) - lahiriJ2000), nil
}

// Tropical returns the longitude of date without the ayanamsa correction.
func (a *Analytic) Tropical(t time.Time, code models.BodyCode) (float64, error) {
	lon, err := a.Sidereal(t, code)
	if err != nil {
		return 0, err
	}
	return norm360(lon + lahiri(centuries(t))), nil
}

var planets = map[models.BodyCode]orbit{
	models.CodeMercury: mercuryOrbit,
	models.CodeVenus:   venusOrbit,
	models.CodeMars:    marsOrbit,
	models.CodeJupiter: jupiterOrbit,
	models.CodeSaturn:  saturnOrbit,
}

// Sample tabulates body longitudes over [from, to] at interval.
func Sample(ctx context.Context, p domrepo.PositionProvider, body models.Body, from, to time.Time, interval time.Duration) ([]models.EphemerisSample, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("ephemeris: sample interval must be positive, got %s", interval)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("ephemeris: range end %s before start %s", to, from)
	}
	n := int(to.Sub(from)/interval) + 1
	out := make([]models.EphemerisSample, 0, n)
	for t := from; !t.After(to); t = t.Add(interval) {
		if len(out)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		lon, err := p.Longitude(ctx, t, body)
		if err != nil {
			return nil, err
		}
		out = append(out, models.EphemerisSample{Body: body.Name, T: t.UTC(), Longitude: lon})
	}
	return out, nil
}
