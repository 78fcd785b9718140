package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"AstroOverlap/internal/domain/models"
	domrepo "AstroOverlap/internal/domain/repository"
	"AstroOverlap/internal/services/transit"
	applogger "AstroOverlap/pkg/logger"
	"AstroOverlap/pkg/metrics"
)

const defaultPaddingDays = 60

// Target is one resolved body/sign pair of a query.
type Target struct {
	Body        models.Body
	Sign        models.Sign
	StepMinutes int // zero means the resolution policy decides
}

// Query is a structurally valid overlap request.
type Query struct {
	Year        int
	PaddingDays int
	Targets     []Target
}

// OverlapEngine locates each target's first sign occupancy inside the padded year
// and intersects them.
type OverlapEngine struct {
	provider    domrepo.PositionProvider
	finder      *transit.Finder
	policy      transit.ResolutionPolicy
	astro       *models.AstroConfig
	metrics     domrepo.Metrics
	logger      *applogger.Logger
	parallel    bool
	maxParallel int
	paddingDays int
}

type EngineOption func(*OverlapEngine)

func WithPolicy(p transit.ResolutionPolicy) EngineOption {
	return func(e *OverlapEngine) {
		if p != nil {
			e.policy = p
		}
	}
}

func WithFinderOptions(opts ...transit.FinderOption) EngineOption {
	return func(e *OverlapEngine) { e.finder = e.finder.With(opts...) }
}

// WithParallel searches bodies concurrently. Results are identical to a serial run.
func WithParallel(on bool) EngineOption {
	return func(e *OverlapEngine) { e.parallel = on }
}

// WithMaxParallel bounds concurrent searches in parallel mode.
func WithMaxParallel(n int) EngineOption {
	return func(e *OverlapEngine) {
		if n > 0 {
			e.maxParallel = n
		}
	}
}

func WithDefaultPadding(days int) EngineOption {
	return func(e *OverlapEngine) {
		if days > 0 {
			e.paddingDays = days
		}
	}
}

func WithEngineMetrics(m domrepo.Metrics) EngineOption {
	return func(e *OverlapEngine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func WithEngineLogger(l *applogger.Logger) EngineOption {
	return func(e *OverlapEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

func NewOverlapEngine(provider domrepo.PositionProvider, astro *models.AstroConfig, opts ...EngineOption) *OverlapEngine {
	if astro == nil {
		astro = &models.AstroConfig{SiderealMode: models.SiderealLahiri, CivilZone: time.UTC, ZoneName: "UTC"}
	}
	e := &OverlapEngine{
		provider:    provider,
		finder:      transit.NewFinder(provider),
		policy:      transit.DefaultPolicy(),
		astro:       astro,
		metrics:     metrics.Nop{},
		logger:      applogger.Nop(),
		maxParallel: runtime.GOMAXPROCS(0),
		paddingDays: defaultPaddingDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Provider exposes the position source, for callers that sample it directly.
func (e *OverlapEngine) Provider() domrepo.PositionProvider { return e.provider }

// StepFor is the scan step the policy assigns to body, in minutes.
func (e *OverlapEngine) StepFor(body models.Body) int { return e.policy.StepMinutes(body) }

// Key identifies the query's result independent of name spelling and request id.
func (q Query) Key() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d|%d", q.Year, q.PaddingDays)
	for _, t := range q.Targets {
		fmt.Fprintf(&b, "|%s:%d:%d", t.Body.Name, t.Sign, t.StepMinutes)
	}
	return b.String()
}

// Resolve checks every body and sign name before any search runs.
func (e *OverlapEngine) Resolve(req *models.OverlapRequest) (Query, error) {
	q := Query{Year: req.Year, PaddingDays: req.PaddingDays}
	if q.PaddingDays <= 0 {
		q.PaddingDays = e.paddingDays
	}
	seen := make(map[string]bool, len(req.Targets))
	for _, t := range req.Targets {
		body, err := models.LookupBody(t.Body)
		if err != nil {
			return Query{}, err
		}
		if seen[body.Name] {
			return Query{}, fmt.Errorf("%w: %s", models.ErrDuplicateBody, body.Name)
		}
		seen[body.Name] = true
		sign, err := models.ParseSign(t.Sign)
		if err != nil {
			return Query{}, err
		}
		q.Targets = append(q.Targets, Target{Body: body, Sign: sign, StepMinutes: t.StepMinutes})
	}
	if len(q.Targets) == 0 {
		return Query{}, fmt.Errorf("%w: no targets", models.ErrUnknownBody)
	}
	return q, nil
}

// ComputeOverlap resolves and runs req.
func (e *OverlapEngine) ComputeOverlap(ctx context.Context, req *models.OverlapRequest) (*models.OverlapResult, error) {
	q, err := e.Resolve(req)
	if err != nil {
		e.metrics.RecordError("invalid_request")
		return nil, err
	}
	return e.Compute(ctx, q, nil)
}

type bodyOutcome struct {
	window models.BodyWindow
	steps  int64
	err    error
}

// Compute runs one search per target. trace, when set, receives every sampled step;
// in parallel mode it is called from several goroutines.
func (e *OverlapEngine) Compute(ctx context.Context, q Query, trace models.TraceFunc) (*models.OverlapResult, error) {
	start := time.Now()
	finder := e.finder
	if trace != nil {
		finder = finder.With(transit.WithTrace(trace))
	}

	outcomes := make([]bodyOutcome, len(q.Targets))
	if e.parallel && len(q.Targets) > 1 {
		e.searchParallel(ctx, finder, q, outcomes)
	} else {
		for i, t := range q.Targets {
			if outcomes[i] = e.search(ctx, finder, q, t); outcomes[i].err != nil {
				break
			}
		}
	}

	missing, err := firstStop(outcomes)
	if err != nil {
		e.metrics.RecordError(errorKind(err))
		e.logger.Error("overlap search failed", applogger.Int("year", q.Year), applogger.Error(err))
		return nil, err
	}

	res := e.assemble(q, outcomes, missing)
	e.metrics.RecordQuery(string(res.Status))
	e.metrics.RecordLatency("overlap", time.Since(start).Seconds())
	e.logger.Info("overlap computed",
		applogger.Int("year", q.Year),
		applogger.Int("targets", len(q.Targets)),
		applogger.String("status", string(res.Status)),
		applogger.Duration("took", time.Since(start)),
	)
	return res, nil
}

// searchParallel runs every target concurrently. A target that stops the query
// (no window or an error) cancels only the targets after it in request order,
// so the first stop in request order is the one a serial run would report.
func (e *OverlapEngine) searchParallel(ctx context.Context, finder *transit.Finder, q Query, outcomes []bodyOutcome) {
	ctxs := make([]context.Context, len(q.Targets))
	cancels := make([]context.CancelFunc, len(q.Targets))
	for i := range q.Targets {
		ctxs[i], cancels[i] = context.WithCancel(ctx)
	}
	defer func() {
		for _, cancel := range cancels {
			cancel()
		}
	}()

	var g errgroup.Group
	g.SetLimit(e.maxParallel)
	for i, t := range q.Targets {
		g.Go(func() error {
			if err := ctxs[i].Err(); err != nil {
				outcomes[i] = bodyOutcome{err: err}
				return nil
			}
			outcomes[i] = e.search(ctxs[i], finder, q, t)
			if outcomes[i].err != nil {
				for _, cancel := range cancels[i+1:] {
					cancel()
				}
			}
			return nil
		})
	}
	// each outcome carries its own error
	_ = g.Wait()
}

// firstStop returns the first target in request order without a window, or the
// first error. Targets after it were skipped or cancelled and are ignored.
func firstStop(outcomes []bodyOutcome) (missing int, err error) {
	for i, o := range outcomes {
		switch {
		case o.err == nil:
		case errors.Is(o.err, transit.ErrWindowNotFound):
			return i, nil
		default:
			return -1, o.err
		}
	}
	return -1, nil
}

func (e *OverlapEngine) search(ctx context.Context, finder *transit.Finder, q Query, t Target) bodyOutcome {
	step := t.StepMinutes
	if step <= 0 {
		step = e.policy.StepMinutes(t.Body)
	}
	w := models.YearWindow(q.Year, q.PaddingDays, step)

	if pl, ok := e.provider.(domrepo.Preloader); ok {
		if err := pl.Preload(ctx, t.Body, w.Start, w.End); err != nil {
			e.metrics.RecordSearch(t.Body.Name, "error", 0)
			return bodyOutcome{err: fmt.Errorf("%w: preload %s: %w", transit.ErrProviderFailure, t.Body.Name, err)}
		}
	}

	began := time.Now()
	scan, err := finder.Scan(ctx, t.Body, t.Sign, w)
	out := bodyOutcome{
		window: models.BodyWindow{Body: t.Body.Name, Sign: t.Sign.String(), StepMinutes: step, Window: scan.Interval},
		steps:  scan.Steps,
		err:    err,
	}

	outcome := "found"
	switch {
	case err == nil:
	case errors.Is(err, transit.ErrWindowNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	e.metrics.RecordSearch(t.Body.Name, outcome, scan.Steps)
	e.metrics.RecordLatency("window_search", time.Since(began).Seconds())

	if e.logger.DebugEnabled() {
		fields := []applogger.Field{
			applogger.String("body", t.Body.Name),
			applogger.String("sign", t.Sign.String()),
			applogger.Int("step_minutes", step),
			applogger.Int64("steps", scan.Steps),
			applogger.String("outcome", outcome),
		}
		if err == nil {
			fields = append(fields,
				applogger.Time("entry", scan.Interval.Entry),
				applogger.Time("exit", scan.Interval.Exit))
		}
		e.logger.Debug("window search", fields...)
	}
	return out
}

// assemble builds the result from outcomes in request order. missing is the index
// of the first target without a window, or -1.
func (e *OverlapEngine) assemble(q Query, outcomes []bodyOutcome, missing int) *models.OverlapResult {
	loc := e.astro.CivilZone
	res := &models.OverlapResult{Zone: e.astro.ZoneName, Year: q.Year}
	if missing >= 0 {
		res.Status = models.StatusInsufficientData
		res.MissingBody = q.Targets[missing].Body.Name
		return res
	}

	windows := make(map[string]models.SignInterval, len(outcomes))
	for _, o := range outcomes {
		windows[o.window.Body] = o.window.Window
		bw := o.window
		bw.Window = bw.Window.In(loc)
		res.Windows = append(res.Windows, bw)
	}

	common, ok := transit.Intersect(windows)
	if !ok {
		res.Status = models.StatusNoOverlap
		return res
	}
	local := common.In(loc)
	res.Status = models.StatusOverlap
	res.Start = &local.Entry
	res.End = &local.Exit
	return res
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, transit.ErrProviderFailure):
		return "provider"
	case errors.Is(err, transit.ErrSearchBudget):
		return "search_budget"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}

// IsRequestError reports errors caused by the request itself rather than the system.
func IsRequestError(err error) bool {
	return errors.Is(err, models.ErrUnknownBody) ||
		errors.Is(err, models.ErrUnknownSign) ||
		errors.Is(err, models.ErrDuplicateBody) ||
		errors.Is(err, models.ErrInvalidWindow) ||
		errors.Is(err, transit.ErrSearchBudget)
}
