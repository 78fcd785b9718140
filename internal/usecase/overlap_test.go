package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"AstroOverlap/internal/domain/models"
	"AstroOverlap/internal/services/transit"
	"AstroOverlap/pkg/metrics"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type motion struct{ lon0, degPerDay float64 }

// scriptedSky moves each named body linearly from its position at epoch.
type scriptedSky struct {
	bodies map[string]motion
	fail   map[string]error
	calls  atomic.Int64

	mu        sync.Mutex
	preloaded map[string][2]time.Time
}

func (s *scriptedSky) Name() string { return "scripted" }

func (s *scriptedSky) Longitude(_ context.Context, t time.Time, b models.Body) (float64, error) {
	s.calls.Add(1)
	if err := s.fail[b.Name]; err != nil {
		return 0, err
	}
	m := s.bodies[b.Name]
	days := t.Sub(epoch).Hours() / 24
	return models.NormalizeDegrees(m.lon0 + m.degPerDay*days), nil
}

type preloadingSky struct{ *scriptedSky }

func (s preloadingSky) Preload(_ context.Context, b models.Body, from, to time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preloaded == nil {
		s.preloaded = map[string][2]time.Time{}
	}
	s.preloaded[b.Name] = [2]time.Time{from, to}
	return nil
}

func date(m time.Month, d int) time.Time { return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC) }

func request(targets ...string) *models.OverlapRequest {
	req := &models.OverlapRequest{Year: 2024, PaddingDays: 60}
	for i := 0; i+1 < len(targets); i += 2 {
		req.Targets = append(req.Targets, models.BodyTarget{Body: targets[i], Sign: targets[i+1]})
	}
	return req
}

// Sun occupies Taurus Jan 31 - Mar 1.
var sunTaurus = motion{lon0: 0, degPerDay: 1}

func newEngine(t *testing.T, sky *scriptedSky, opts ...EngineOption) *OverlapEngine {
	t.Helper()
	astro, err := models.NewAstroConfig(models.SiderealLahiri, "UTC")
	require.NoError(t, err)
	return NewOverlapEngine(sky, astro, opts...)
}

func TestComputeOverlap_Overlap(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{
		"Sun":  sunTaurus,
		"Mars": {lon0: 10, degPerDay: 0.5}, // Taurus Feb 10 - Apr 10
	}}
	res, err := newEngine(t, sky).ComputeOverlap(context.Background(), request("Sun", "Taurus", "Mars", "Taurus"))
	require.NoError(t, err)

	require.Equal(t, models.StatusOverlap, res.Status)
	require.True(t, res.Found())
	assert.True(t, res.Start.Equal(date(2, 10)), "start %v", res.Start)
	assert.True(t, res.End.Equal(date(3, 1)), "end %v", res.End)
	assert.Empty(t, res.MissingBody)

	require.Len(t, res.Windows, 2)
	assert.Equal(t, "Sun", res.Windows[0].Body)
	assert.Equal(t, "Taurus", res.Windows[0].Sign)
	assert.Equal(t, 10, res.Windows[0].StepMinutes)
	assert.True(t, res.Windows[0].Window.Entry.Equal(date(1, 31)))
	assert.True(t, res.Windows[1].Window.Exit.Equal(date(4, 10)))

	for _, w := range res.Windows {
		assert.False(t, res.Start.Before(w.Window.Entry))
		assert.False(t, res.End.After(w.Window.Exit))
	}
}

func TestComputeOverlap_CivilZone(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{"Sun": sunTaurus, "Mars": {lon0: 10, degPerDay: 0.5}}}
	astro, err := models.NewAstroConfig("", "+05:30")
	require.NoError(t, err)

	res, err := NewOverlapEngine(sky, astro).ComputeOverlap(context.Background(), request("Sun", "Taurus", "Mars", "Taurus"))
	require.NoError(t, err)
	require.Equal(t, models.StatusOverlap, res.Status)

	assert.True(t, res.Start.Equal(date(2, 10)))
	assert.Equal(t, 5, res.Start.Hour())
	assert.Equal(t, 30, res.Start.Minute())
	assert.Equal(t, "+05:30", res.Zone)
	_, off := res.Windows[0].Window.Entry.Zone()
	assert.Equal(t, 5*3600+30*60, off)
}

func TestComputeOverlap_TouchingIsNoOverlap(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{
		"Sun":  sunTaurus,
		"Mars": {lon0: 0, degPerDay: 0.5}, // enters Taurus Mar 1, the instant the Sun leaves
	}}
	res, err := newEngine(t, sky).ComputeOverlap(context.Background(), request("Sun", "Taurus", "Mars", "Taurus"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusNoOverlap, res.Status)
	assert.False(t, res.Found())
	assert.Nil(t, res.Start)
	assert.Nil(t, res.End)
	assert.Len(t, res.Windows, 2)
}

func TestComputeOverlap_InsufficientData(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{
		"Sun":     sunTaurus,
		"Jupiter": {lon0: 100, degPerDay: 0.01}, // never reaches Taurus
		"Mars":    {lon0: 10, degPerDay: 0.5},
	}}
	req := request("Sun", "Taurus", "Jupiter", "Taurus", "Mars", "Taurus")

	res, err := newEngine(t, sky).ComputeOverlap(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInsufficientData, res.Status)
	assert.Equal(t, "Jupiter", res.MissingBody)
	assert.Nil(t, res.Start)
	assert.Empty(t, res.Windows)
}

func TestComputeOverlap_InsufficientDataShortCircuits(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{
		"Jupiter": {lon0: 100, degPerDay: 0.01},
		"Moon":    {lon0: 0, degPerDay: 13},
	}}
	_, err := newEngine(t, sky).ComputeOverlap(context.Background(), request("Jupiter", "Taurus", "Moon", "Taurus"))
	require.NoError(t, err)

	jupiterOnly := &scriptedSky{bodies: sky.bodies}
	_, err = newEngine(t, jupiterOnly).ComputeOverlap(context.Background(), request("Jupiter", "Taurus"))
	require.NoError(t, err)
	assert.Equal(t, jupiterOnly.calls.Load(), sky.calls.Load(), "Moon is never searched")
}

func TestComputeOverlap_ParallelMatchesSerial(t *testing.T) {
	bodies := map[string]motion{
		"Sun":     sunTaurus,
		"Mars":    {lon0: 10, degPerDay: 0.5},
		"Venus":   {lon0: 350, degPerDay: 1.2},
		"Jupiter": {lon0: 100, degPerDay: 0.01},
	}
	boom := errors.New("boom")
	cases := []struct {
		name   string
		req    *models.OverlapRequest
		fail   map[string]error
		status models.OverlapStatus
	}{
		{name: "overlap", req: request("Sun", "Taurus", "Mars", "Taurus", "Venus", "Taurus"), status: models.StatusOverlap},
		{name: "missing in the middle", req: request("Sun", "Taurus", "Jupiter", "Taurus", "Mars", "Taurus"), status: models.StatusInsufficientData},
		{name: "no overlap", req: request("Mars", "Gemini", "Sun", "Aries"), status: models.StatusNoOverlap},
		{
			name:   "missing before a failing body",
			req:    request("Jupiter", "Taurus", "Mars", "Taurus"),
			fail:   map[string]error{"Mars": boom},
			status: models.StatusInsufficientData,
		},
		{
			name: "failing body before a missing one",
			req:  request("Mars", "Taurus", "Jupiter", "Taurus"),
			fail: map[string]error{"Mars": boom},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			serial, serr := newEngine(t, &scriptedSky{bodies: bodies, fail: tc.fail}).
				ComputeOverlap(context.Background(), tc.req)
			parallel, perr := newEngine(t, &scriptedSky{bodies: bodies, fail: tc.fail}, WithParallel(true), WithMaxParallel(2)).
				ComputeOverlap(context.Background(), tc.req)

			if tc.status == "" {
				require.ErrorIs(t, serr, boom)
				require.ErrorIs(t, perr, boom)
				return
			}
			require.NoError(t, serr)
			require.NoError(t, perr)
			assert.Equal(t, tc.status, serial.Status)
			assert.Equal(t, serial, parallel)
		})
	}
}

func TestComputeOverlap_StructuralErrorsFailFast(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{"Sun": sunTaurus}}
	e := newEngine(t, sky)

	_, err := e.ComputeOverlap(context.Background(), request("Sun", "Taurus", "Pluto", "Aries"))
	require.ErrorIs(t, err, models.ErrUnknownBody)
	assert.True(t, IsRequestError(err))

	_, err = e.ComputeOverlap(context.Background(), request("Sun", "Taurus", "Moon", "Ophiuchus"))
	require.ErrorIs(t, err, models.ErrUnknownSign)

	_, err = e.ComputeOverlap(context.Background(), request("Sun", "Taurus", "sun", "Aries"))
	require.ErrorIs(t, err, models.ErrDuplicateBody)

	_, err = e.ComputeOverlap(context.Background(), request())
	require.Error(t, err)

	assert.Zero(t, sky.calls.Load())
}

func TestComputeOverlap_ProviderFailure(t *testing.T) {
	boom := errors.New("ephemeris file missing")
	for _, parallel := range []bool{false, true} {
		sky := &scriptedSky{
			bodies: map[string]motion{"Sun": sunTaurus, "Mars": {lon0: 10, degPerDay: 0.5}},
			fail:   map[string]error{"Mars": boom},
		}
		res, err := newEngine(t, sky, WithParallel(parallel)).ComputeOverlap(context.Background(), request("Sun", "Taurus", "Mars", "Taurus"))
		require.Nil(t, res)
		require.ErrorIs(t, err, transit.ErrProviderFailure)
		require.ErrorIs(t, err, boom)
		assert.False(t, IsRequestError(err))
	}
}

func TestComputeOverlap_StepBudget(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{"Sun": sunTaurus}}
	e := newEngine(t, sky, WithFinderOptions(transit.WithMaxSteps(1000)))

	_, err := e.ComputeOverlap(context.Background(), request("Sun", "Taurus"))
	require.ErrorIs(t, err, transit.ErrSearchBudget)
	assert.True(t, IsRequestError(err))
}

func TestComputeOverlap_StepOverrideAndPreload(t *testing.T) {
	sky := preloadingSky{&scriptedSky{bodies: map[string]motion{"Sun": sunTaurus, "Mars": {lon0: 10, degPerDay: 0.5}}}}
	req := request("Sun", "Taurus", "Mars", "Taurus")
	req.Targets[1].StepMinutes = 60

	astro, err := models.NewAstroConfig("", "UTC")
	require.NoError(t, err)
	res, err := NewOverlapEngine(sky, astro, WithPolicy(transit.FixedPolicy(30))).ComputeOverlap(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 30, res.Windows[0].StepMinutes)
	assert.Equal(t, 60, res.Windows[1].StepMinutes)

	want := models.YearWindow(2024, 60, 1)
	require.Contains(t, sky.preloaded, "Mars")
	assert.True(t, sky.preloaded["Mars"][0].Equal(want.Start))
	assert.True(t, sky.preloaded["Mars"][1].Equal(want.End))
}

func TestCompute_Trace(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{"Sun": sunTaurus, "Mars": {lon0: 10, degPerDay: 0.5}}}
	e := newEngine(t, sky, WithParallel(true))
	q, err := e.Resolve(request("Sun", "Taurus", "Mars", "Taurus"))
	require.NoError(t, err)

	var mu sync.Mutex
	crossings := map[string][]models.TraceKind{}
	_, err = e.Compute(context.Background(), q, func(ev models.TraceEvent) {
		if ev.Kind == models.TraceSample {
			return
		}
		mu.Lock()
		crossings[ev.Body] = append(crossings[ev.Body], ev.Kind)
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Equal(t, []models.TraceKind{models.TraceEntry, models.TraceExit}, crossings["Sun"])
	assert.Equal(t, []models.TraceKind{models.TraceEntry, models.TraceExit}, crossings["Mars"])
}

func TestCompute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sky := &scriptedSky{bodies: map[string]motion{"Sun": sunTaurus, "Mars": {lon0: 10, degPerDay: 0.5}}}

	_, err := newEngine(t, sky, WithParallel(true)).ComputeOverlap(ctx, request("Sun", "Taurus", "Mars", "Taurus"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestComputeOverlap_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)
	sky := &scriptedSky{bodies: map[string]motion{"Sun": sunTaurus, "Jupiter": {lon0: 100, degPerDay: 0.01}}}
	e := newEngine(t, sky, WithEngineMetrics(rec))

	_, err := e.ComputeOverlap(context.Background(), request("Sun", "Taurus", "Jupiter", "Taurus"))
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "astro_window_searches_total", "astro_overlap_queries_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
