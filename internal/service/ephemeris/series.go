package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"AstroOverlap/internal/domain/models"
	applogger "AstroOverlap/pkg/logger"
)

const maxSegments = 8

var (
	// ErrOutOfRange means an instant falls outside the tabulated samples.
	ErrOutOfRange = errors.New("ephemeris: instant outside tabulated range")
	// ErrNoSamples means a loader returned nothing for the requested range.
	ErrNoSamples = errors.New("ephemeris: no samples")
)

// Series is a time-ordered table of one body's longitudes.
type Series struct {
	times []time.Time
	lons  []float64
}

// NewSeries sorts samples by time and drops duplicate instants.
func NewSeries(samples []models.EphemerisSample) (*Series, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	sorted := make([]models.EphemerisSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].T.Before(sorted[j].T) })

	s := &Series{
		times: make([]time.Time, 0, len(sorted)),
		lons:  make([]float64, 0, len(sorted)),
	}
	for _, smp := range sorted {
		if n := len(s.times); n > 0 && s.times[n-1].Equal(smp.T) {
			continue
		}
		s.times = append(s.times, smp.T)
		s.lons = append(s.lons, models.NormalizeDegrees(smp.Longitude))
	}
	return s, nil
}

func (s *Series) Len() int { return len(s.times) }

func (s *Series) Start() time.Time { return s.times[0] }

func (s *Series) End() time.Time { return s.times[len(s.times)-1] }

// Covers reports whether [from, to] lies inside the table.
func (s *Series) Covers(from, to time.Time) bool {
	return !from.Before(s.Start()) && !to.After(s.End())
}

// At interpolates linearly between the neighbouring samples, taking the
// short way around the 360° wrap.
func (s *Series) At(t time.Time) (float64, error) {
	if t.Before(s.Start()) || t.After(s.End()) {
		return 0, fmt.Errorf("%w: %s not in [%s, %s]", ErrOutOfRange,
			t.UTC().Format(time.RFC3339), s.Start().Format(time.RFC3339), s.End().Format(time.RFC3339))
	}
	i := sort.Search(len(s.times), func(i int) bool { return !s.times[i].Before(t) })
	if s.times[i].Equal(t) {
		return s.lons[i], nil
	}
	t0, t1 := s.times[i-1], s.times[i]
	l0, l1 := s.lons[i-1], s.lons[i]
	d := l1 - l0
	if d > 180 {
		d -= 360
	} else if d < -180 {
		d += 360
	}
	frac := float64(t.Sub(t0)) / float64(t1.Sub(t0))
	return models.NormalizeDegrees(l0 + frac*d), nil
}

// RangeLoader fetches tabulated samples for one body.
type RangeLoader interface {
	LoadRange(ctx context.Context, body string, from, to time.Time) ([]models.EphemerisSample, error)
}

// RangeLoaderFunc adapts a function to RangeLoader.
type RangeLoaderFunc func(ctx context.Context, body string, from, to time.Time) ([]models.EphemerisSample, error)

func (f RangeLoaderFunc) LoadRange(ctx context.Context, body string, from, to time.Time) ([]models.EphemerisSample, error) {
	return f(ctx, body, from, to)
}

// SeriesProvider serves longitudes from series fetched through a RangeLoader.
// Preload fetches a whole search range; a lookup outside the loaded range
// fetches a chunk starting at the requested instant. Each body keeps up to
// maxSegments loaded ranges, so searches over different years do not evict each other.
type SeriesProvider struct {
	name   string
	loader RangeLoader
	chunk  time.Duration
	margin time.Duration
	logger *applogger.Logger

	mu     sync.RWMutex
	series map[string][]*Series
}

// SeriesOption configures a SeriesProvider.
type SeriesOption func(*SeriesProvider)

// WithChunk sets how much is fetched on a lookup miss.
func WithChunk(d time.Duration) SeriesOption {
	return func(p *SeriesProvider) {
		if d > 0 {
			p.chunk = d
		}
	}
}

// WithMargin widens every fetch on both sides so interpolation has neighbours.
func WithMargin(d time.Duration) SeriesOption {
	return func(p *SeriesProvider) {
		if d >= 0 {
			p.margin = d
		}
	}
}

func WithSeriesLogger(l *applogger.Logger) SeriesOption {
	return func(p *SeriesProvider) { p.logger = l }
}

// NewSeriesProvider creates a provider named name over loader.
func NewSeriesProvider(name string, loader RangeLoader, opts ...SeriesOption) *SeriesProvider {
	p := &SeriesProvider{
		name:   name,
		loader: loader,
		chunk:  31 * 24 * time.Hour,
		margin: 24 * time.Hour,
		series: make(map[string][]*Series),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *SeriesProvider) Name() string { return p.name }

// Preload loads [from, to] for body unless it is already covered.
func (p *SeriesProvider) Preload(ctx context.Context, body models.Body, from, to time.Time) error {
	if p.covering(seriesKey(body), from, to) != nil {
		return nil
	}
	_, err := p.load(ctx, body, from, to)
	return err
}

// Longitude returns the interpolated sidereal longitude plus the body offset.
func (p *SeriesProvider) Longitude(ctx context.Context, t time.Time, body models.Body) (float64, error) {
	s := p.covering(seriesKey(body), t, t)
	if s == nil {
		var err error
		if s, err = p.load(ctx, body, t, t.Add(p.chunk)); err != nil {
			return 0, err
		}
	}

	lon, err := s.At(t)
	if err != nil {
		return 0, err
	}
	return models.NormalizeDegrees(lon + body.Offset), nil
}

// covering returns a loaded series for key spanning [from, to], newest first.
func (p *SeriesProvider) covering(key string, from, to time.Time) *Series {
	p.mu.RLock()
	defer p.mu.RUnlock()
	segs := p.series[key]
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i].Covers(from, to) {
			return segs[i]
		}
	}
	return nil
}

func (p *SeriesProvider) load(ctx context.Context, body models.Body, from, to time.Time) (*Series, error) {
	key := seriesKey(body)
	from, to = from.Add(-p.margin), to.Add(p.margin)
	samples, err := p.loader.LoadRange(ctx, key, from, to)
	if err != nil {
		return nil, fmt.Errorf("%s: load %s: %w", p.name, key, err)
	}
	s, err := NewSeries(samples)
	if err != nil {
		return nil, fmt.Errorf("%s: load %s: %w", p.name, key, err)
	}

	p.mu.Lock()
	old := p.series[key]
	segs := make([]*Series, 0, len(old)+1)
	for _, o := range old {
		if !s.Covers(o.Start(), o.End()) {
			segs = append(segs, o)
		}
	}
	segs = append(segs, s)
	if len(segs) > maxSegments {
		segs = segs[len(segs)-maxSegments:]
	}
	p.series[key] = segs
	p.mu.Unlock()

	if p.logger != nil {
		p.logger.Debug("ephemeris series loaded",
			applogger.String("provider", p.name),
			applogger.String("body", key),
			applogger.Int("samples", s.Len()),
			applogger.Int("segments", len(segs)),
			applogger.Time("from", s.Start()),
			applogger.Time("to", s.End()),
		)
	}
	return s, nil
}

// seriesKey maps a body to the table it is read from. Offset bodies share their base
// body's table (Ketu is read from Rahu's samples).
func seriesKey(body models.Body) string {
	if body.Offset != 0 && body.Code == models.CodeMeanNode {
		return "Rahu"
	}
	return body.Name
}
