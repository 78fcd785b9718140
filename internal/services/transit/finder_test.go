package transit

import (
	"context"
	"testing"
	"time"

	"AstroOverlap/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindWindow_LinearBody(t *testing.T) {
	p := &linearProvider{lon0: 25, degPerDay: 1}
	f := NewFinder(p)
	w := models.SearchWindow{Start: t0, End: t0.Add(days(40)), StepMinutes: 60}

	got, err := f.FindWindow(context.Background(), testBody, models.Taurus, w)
	require.NoError(t, err)
	assert.True(t, got.Entry.Equal(t0.Add(days(5))), "entry %v", got.Entry)
	assert.True(t, got.Exit.Equal(t0.Add(days(35))), "exit %v", got.Exit)
	assert.True(t, got.Entry.Before(got.Exit))
}

func TestFindWindow_BoundaryBelongsToHigherSign(t *testing.T) {
	// lon hits exactly 30.0 on a sample: that sample is already Taurus.
	p := &linearProvider{lon0: 29, degPerDay: 1}
	f := NewFinder(p)
	w := models.SearchWindow{Start: t0, End: t0.Add(days(3)), StepMinutes: 24 * 60}

	_, err := f.FindWindow(context.Background(), testBody, models.Aries, w)
	require.ErrorIs(t, err, ErrWindowNotFound)

	s, err := f.Scan(context.Background(), testBody, models.Taurus, models.SearchWindow{
		Start: t0, End: t0.Add(days(40)), StepMinutes: 24 * 60,
	})
	require.NoError(t, err)
	assert.True(t, s.Interval.Entry.Equal(t0.Add(days(1))))
	assert.True(t, s.Interval.Exit.Equal(t0.Add(days(31))))
}

func TestFindWindow_AlreadyInsideAtStartIsNotAnEntry(t *testing.T) {
	p := &linearProvider{lon0: 35, degPerDay: 1}
	f := NewFinder(p)
	w := models.SearchWindow{Start: t0, End: t0.Add(days(40)), StepMinutes: 60}

	_, err := f.FindWindow(context.Background(), testBody, models.Taurus, w)
	require.ErrorIs(t, err, ErrWindowNotFound)
}

func TestFindWindow_EntryWithoutExitIsNotFound(t *testing.T) {
	p := &linearProvider{lon0: 25, degPerDay: 1}
	f := NewFinder(p)
	w := models.SearchWindow{Start: t0, End: t0.Add(days(20)), StepMinutes: 60}

	_, err := f.FindWindow(context.Background(), testBody, models.Taurus, w)
	require.ErrorIs(t, err, ErrWindowNotFound)
}

func TestFindWindow_StopsAtFirstExit(t *testing.T) {
	p := &linearProvider{lon0: 25, degPerDay: 1}
	f := NewFinder(p)
	// Window long enough for a second lap through Taurus.
	w := models.SearchWindow{Start: t0, End: t0.Add(days(800)), StepMinutes: 60}

	s, err := f.Scan(context.Background(), testBody, models.Taurus, w)
	require.NoError(t, err)
	assert.True(t, s.Interval.Exit.Equal(t0.Add(days(35))))
	assert.Equal(t, int64(35*24+1), s.Steps)
	assert.Equal(t, s.Steps+1, p.calls.Load(), "one extra call seeds the previous sign")
}

func TestFindWindow_AliasingBetweenSamplesIsNotFound(t *testing.T) {
	// Occupancy lasts 20 minutes, strictly between two hourly samples.
	p := blipProvider{
		from:    t0.Add(90 * time.Minute),
		to:      t0.Add(110 * time.Minute),
		inside:  45,
		outside: 15,
	}
	w := models.SearchWindow{Start: t0, End: t0.Add(6 * time.Hour), StepMinutes: 60}

	_, err := NewFinder(p).FindWindow(context.Background(), testBody, models.Taurus, w)
	require.ErrorIs(t, err, ErrWindowNotFound)

	w.StepMinutes = 10
	got, err := NewFinder(p).FindWindow(context.Background(), testBody, models.Taurus, w)
	require.NoError(t, err)
	assert.True(t, got.Entry.Equal(t0.Add(100*time.Minute)))
	assert.True(t, got.Exit.Equal(t0.Add(110*time.Minute)))
}

func TestFindWindow_Deterministic(t *testing.T) {
	p := &linearProvider{lon0: 3, degPerDay: 13.2}
	f := NewFinder(p)
	w := models.SearchWindow{Start: t0, End: t0.Add(days(60)), StepMinutes: 2}

	first, err := f.FindWindow(context.Background(), testBody, models.Leo, w)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := f.FindWindow(context.Background(), testBody, models.Leo, w)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFindWindow_ProviderFailure(t *testing.T) {
	w := models.SearchWindow{Start: t0, End: t0.Add(days(2)), StepMinutes: 60}

	_, err := NewFinder(&failingProvider{}).FindWindow(context.Background(), testBody, models.Taurus, w)
	require.ErrorIs(t, err, ErrProviderFailure)
	require.ErrorIs(t, err, errEphemeris)

	_, err = NewFinder(&failingProvider{after: 5}).FindWindow(context.Background(), testBody, models.Taurus, w)
	require.ErrorIs(t, err, ErrProviderFailure)
}

func TestFindWindow_Validation(t *testing.T) {
	f := NewFinder(&linearProvider{degPerDay: 1})

	_, err := f.FindWindow(context.Background(), testBody, models.Taurus,
		models.SearchWindow{Start: t0, End: t0.Add(-time.Hour), StepMinutes: 10})
	require.ErrorIs(t, err, models.ErrInvalidWindow)

	_, err = f.FindWindow(context.Background(), testBody, models.Taurus,
		models.SearchWindow{Start: t0, End: t0.Add(time.Hour), StepMinutes: 0})
	require.ErrorIs(t, err, models.ErrInvalidWindow)

	_, err = f.FindWindow(context.Background(), testBody, models.Sign(12),
		models.SearchWindow{Start: t0, End: t0.Add(time.Hour), StepMinutes: 10})
	require.ErrorIs(t, err, models.ErrUnknownSign)
}

func TestFindWindow_StepBudget(t *testing.T) {
	p := &linearProvider{lon0: 25, degPerDay: 1}
	f := NewFinder(p, WithMaxSteps(100))
	w := models.SearchWindow{Start: t0, End: t0.Add(days(40)), StepMinutes: 60}

	_, err := f.FindWindow(context.Background(), testBody, models.Taurus, w)
	require.ErrorIs(t, err, ErrSearchBudget)
	assert.Zero(t, p.calls.Load(), "budget is checked before sampling")
}

func TestFindWindow_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewFinder(&linearProvider{lon0: 25, degPerDay: 1})
	w := models.SearchWindow{Start: t0, End: t0.Add(days(40)), StepMinutes: 60}

	_, err := f.FindWindow(ctx, testBody, models.Taurus, w)
	require.ErrorIs(t, err, context.Canceled)
}

func TestFindWindow_Refinement(t *testing.T) {
	// Crosses 30° at t0+5d+30m and 60° at t0+35d+30m.
	p := &linearProvider{lon0: 25 - 0.5/24, degPerDay: 1}
	w := models.SearchWindow{Start: t0, End: t0.Add(days(40)), StepMinutes: 60}
	entryAt := t0.Add(days(5) + 30*time.Minute)
	exitAt := t0.Add(days(35) + 30*time.Minute)

	coarse, err := NewFinder(p).FindWindow(context.Background(), testBody, models.Taurus, w)
	require.NoError(t, err)
	assert.True(t, coarse.Entry.Equal(t0.Add(days(5)+time.Hour)))

	fine, err := NewFinder(p, WithRefinement(time.Minute)).FindWindow(context.Background(), testBody, models.Taurus, w)
	require.NoError(t, err)
	assert.False(t, fine.Entry.Before(entryAt))
	assert.LessOrEqual(t, fine.Entry.Sub(entryAt), time.Minute)
	assert.False(t, fine.Exit.Before(exitAt))
	assert.LessOrEqual(t, fine.Exit.Sub(exitAt), time.Minute)
}

func TestFindWindow_RefinementKeepsAliasingSafety(t *testing.T) {
	p := blipProvider{from: t0.Add(90 * time.Minute), to: t0.Add(110 * time.Minute), inside: 45, outside: 15}
	w := models.SearchWindow{Start: t0, End: t0.Add(6 * time.Hour), StepMinutes: 60}

	_, err := NewFinder(p, WithRefinement(time.Second)).FindWindow(context.Background(), testBody, models.Taurus, w)
	require.ErrorIs(t, err, ErrWindowNotFound)
}

func TestFindWindow_Trace(t *testing.T) {
	var events []models.TraceEvent
	f := NewFinder(&linearProvider{lon0: 25, degPerDay: 1}, WithTrace(func(ev models.TraceEvent) {
		events = append(events, ev)
	}))
	w := models.SearchWindow{Start: t0, End: t0.Add(days(40)), StepMinutes: 24 * 60}

	s, err := f.Scan(context.Background(), testBody, models.Taurus, w)
	require.NoError(t, err)
	require.Len(t, events, int(s.Steps))

	kinds := map[models.TraceKind]int{}
	for _, ev := range events {
		kinds[ev.Kind]++
		assert.Equal(t, "Synthetic", ev.Body)
	}
	assert.Equal(t, 1, kinds[models.TraceEntry])
	assert.Equal(t, 1, kinds[models.TraceExit])
	assert.Equal(t, models.TraceExit, events[len(events)-1].Kind)
	assert.Equal(t, models.Gemini, events[len(events)-1].Sign)
}
