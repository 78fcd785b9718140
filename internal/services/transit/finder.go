// Package transit locates sign occupancy windows and intersects them.
//
// The finder is a discretized edge detector: it samples a body's longitude at a fixed
// step and reports the first sampled ingress into the target sign followed by the first
// sampled egress. Occupancies shorter than the step can be missed entirely; callers pick
// the step through a ResolutionPolicy.
package transit

import (
	"context"
	"fmt"
	"time"

	"AstroOverlap/internal/domain/models"
	domrepo "AstroOverlap/internal/domain/repository"
)

// ctxCheckEvery bounds how many samples run between context checks.
const ctxCheckEvery = 4096

// Scan is the outcome of one window search.
type Scan struct {
	Interval models.SignInterval
	Steps    int64
}

// Finder searches a SearchWindow for one body's first complete sign occupancy.
// A Finder holds no per-search state and may be shared across goroutines
// if its provider and trace hook are safe for concurrent use.
type Finder struct {
	provider domrepo.PositionProvider
	maxSteps int64
	refineTo time.Duration
	trace    models.TraceFunc
}

// FinderOption configures a Finder.
type FinderOption func(*Finder)

// WithMaxSteps caps the number of samples per search. Zero disables the cap.
func WithMaxSteps(n int64) FinderOption {
	return func(f *Finder) {
		if n >= 0 {
			f.maxSteps = n
		}
	}
}

// WithRefinement bisects each detected crossing down to precision d. Zero disables it.
func WithRefinement(d time.Duration) FinderOption {
	return func(f *Finder) {
		if d > 0 {
			f.refineTo = d
		}
	}
}

// WithTrace installs a hook called for every sampled step.
func WithTrace(fn models.TraceFunc) FinderOption {
	return func(f *Finder) { f.trace = fn }
}

// NewFinder creates a Finder over provider.
func NewFinder(provider domrepo.PositionProvider, opts ...FinderOption) *Finder {
	f := &Finder{provider: provider}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// With returns a copy of f with extra options applied.
func (f *Finder) With(opts ...FinderOption) *Finder {
	cp := *f
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// FindWindow returns the first complete occupancy of target by body inside w,
// or ErrWindowNotFound.
func (f *Finder) FindWindow(ctx context.Context, body models.Body, target models.Sign, w models.SearchWindow) (models.SignInterval, error) {
	s, err := f.Scan(ctx, body, target, w)
	if err != nil {
		return models.SignInterval{}, err
	}
	return s.Interval, nil
}

// Scan is FindWindow plus the number of samples taken. Steps is meaningful on
// ErrWindowNotFound too.
func (f *Finder) Scan(ctx context.Context, body models.Body, target models.Sign, w models.SearchWindow) (Scan, error) {
	var res Scan
	if err := w.Validate(); err != nil {
		return res, err
	}
	if !target.Valid() {
		return res, fmt.Errorf("%w: index %d", models.ErrUnknownSign, int(target))
	}
	if f.maxSteps > 0 && w.Steps() > f.maxSteps {
		return res, fmt.Errorf("%w: %s needs %d steps at %dm, limit %d",
			ErrSearchBudget, body.Name, w.Steps(), w.StepMinutes, f.maxSteps)
	}

	step := w.Step()
	t := w.Start
	_, prev, err := f.signAt(ctx, body, t)
	if err != nil {
		return res, err
	}

	var entry time.Time
	entered := false
	for !t.After(w.End) {
		if res.Steps%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		lon, cur, err := f.signAt(ctx, body, t)
		if err != nil {
			return res, err
		}
		res.Steps++

		switch {
		case !entered && cur == target && prev != target:
			entered = true
			entry = t
			f.emit(models.TraceEntry, body, target, t, lon, cur, res.Steps)
			if f.refineTo > 0 {
				if entry, err = f.refine(ctx, body, target, t.Add(-step), t); err != nil {
					return res, err
				}
			}
		case entered && cur != target && prev == target:
			exit := t
			f.emit(models.TraceExit, body, target, t, lon, cur, res.Steps)
			if f.refineTo > 0 {
				if exit, err = f.refine(ctx, body, target, t.Add(-step), t); err != nil {
					return res, err
				}
			}
			res.Interval = models.SignInterval{Entry: entry, Exit: exit}
			return res, nil
		default:
			f.emit(models.TraceSample, body, target, t, lon, cur, res.Steps)
		}

		prev = cur
		t = t.Add(step)
	}

	return res, fmt.Errorf("%w: %s in %s between %s and %s at %dm", ErrWindowNotFound,
		body.Name, target, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), w.StepMinutes)
}

// refine narrows the bracket (lo, hi] to the first instant whose membership in target
// matches hi's. lo and hi must straddle a change of membership.
func (f *Finder) refine(ctx context.Context, body models.Body, target models.Sign, lo, hi time.Time) (time.Time, error) {
	_, hiSign, err := f.signAt(ctx, body, hi)
	if err != nil {
		return hi, err
	}
	want := hiSign == target
	for hi.Sub(lo) > f.refineTo {
		mid := lo.Add(hi.Sub(lo) / 2)
		_, s, err := f.signAt(ctx, body, mid)
		if err != nil {
			return hi, err
		}
		if (s == target) == want {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi, nil
}

func (f *Finder) signAt(ctx context.Context, body models.Body, t time.Time) (float64, models.Sign, error) {
	lon, err := f.provider.Longitude(ctx, t, body)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %s at %s: %w", ErrProviderFailure, body.Name, t.UTC().Format(time.RFC3339), err)
	}
	return lon, models.SignOf(lon), nil
}

func (f *Finder) emit(kind models.TraceKind, body models.Body, target models.Sign, t time.Time, lon float64, s models.Sign, n int64) {
	if f.trace == nil {
		return
	}
	f.trace(models.TraceEvent{
		Kind:      kind,
		Body:      body.Name,
		Target:    target,
		Instant:   t,
		Longitude: lon,
		Sign:      s,
		Step:      n,
	})
}
