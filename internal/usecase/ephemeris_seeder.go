package usecase

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"AstroOverlap/internal/domain/models"
	domrepo "AstroOverlap/internal/domain/repository"
	"AstroOverlap/internal/service/ephemeris"
	applogger "AstroOverlap/pkg/logger"
)

// EphemerisSeeder tabulates a provider into an EphemerisStore so that
// table-backed providers can serve the range later.
type EphemerisSeeder struct {
	source    domrepo.PositionProvider
	store     domrepo.EphemerisStore
	interval  time.Duration
	batchSize int
	workers   int
	logger    *applogger.Logger
}

type SeederOption func(*EphemerisSeeder)

func WithSampleInterval(d time.Duration) SeederOption {
	return func(s *EphemerisSeeder) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithBatchSize(n int) SeederOption {
	return func(s *EphemerisSeeder) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSeederWorkers bounds how many bodies are tabulated concurrently.
func WithSeederWorkers(n int) SeederOption {
	return func(s *EphemerisSeeder) {
		if n > 0 {
			s.workers = n
		}
	}
}

func WithSeederLogger(l *applogger.Logger) SeederOption {
	return func(s *EphemerisSeeder) {
		if l != nil {
			s.logger = l
		}
	}
}

func NewEphemerisSeeder(source domrepo.PositionProvider, store domrepo.EphemerisStore, opts ...SeederOption) *EphemerisSeeder {
	s := &EphemerisSeeder{
		source:    source,
		store:     store,
		interval:  time.Hour,
		batchSize: 5000,
		workers:   4,
		logger:    applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedReport counts the samples written per body.
type SeedReport struct {
	From    time.Time        `json:"from"`
	To      time.Time        `json:"to"`
	Samples map[string]int64 `json:"samples"`
}

// Seed tabulates bodies over [from, to]. Offset bodies (Ketu) are served from
// their base body's table, so the base body is stored in their place, once.
func (s *EphemerisSeeder) Seed(ctx context.Context, bodies []models.Body, from, to time.Time) (*SeedReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: seed range end %s before start %s", models.ErrInvalidWindow, to, from)
	}

	todo := make([]models.Body, 0, len(bodies))
	seen := make(map[models.BodyCode]bool, len(bodies))
	for _, b := range bodies {
		b = models.BaseBody(b)
		if seen[b.Code] {
			continue
		}
		seen[b.Code] = true
		todo = append(todo, b)
	}

	counts := make([]int64, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, b := range todo {
		g.Go(func() error {
			n, err := s.seedBody(gctx, b, from, to)
			counts[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &SeedReport{From: from, To: to, Samples: make(map[string]int64, len(todo))}
	for i, b := range todo {
		rep.Samples[b.Name] = counts[i]
	}
	return rep, nil
}

func (s *EphemerisSeeder) seedBody(ctx context.Context, body models.Body, from, to time.Time) (int64, error) {
	span := s.interval * time.Duration(s.batchSize)
	var written int64
	for chunkStart := from; !chunkStart.After(to); chunkStart = chunkStart.Add(span) {
		chunkEnd := chunkStart.Add(span - s.interval)
		if chunkEnd.After(to) {
			chunkEnd = to
		}
		samples, err := ephemeris.Sample(ctx, s.source, body, chunkStart, chunkEnd, s.interval)
		if err != nil {
			return written, fmt.Errorf("sample %s: %w", body.Name, err)
		}
		if err := s.store.StoreBatch(ctx, samples); err != nil {
			return written, fmt.Errorf("store %s: %w", body.Name, err)
		}
		written += int64(len(samples))
	}
	s.logger.Info("ephemeris seeded",
		applogger.String("body", body.Name),
		applogger.Int64("samples", written),
		applogger.Time("from", from),
		applogger.Time("to", to),
	)
	return written, nil
}
