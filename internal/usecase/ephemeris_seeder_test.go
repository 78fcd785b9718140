package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AstroOverlap/internal/domain/models"
)

type memoryStore struct {
	mu      sync.Mutex
	batches map[string][]int
	rows    map[string][]models.EphemerisSample
	fail    error
}

func (s *memoryStore) StoreBatch(_ context.Context, samples []models.EphemerisSample) error {
	if s.fail != nil {
		return s.fail
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rows == nil {
		s.rows = map[string][]models.EphemerisSample{}
		s.batches = map[string][]int{}
	}
	for _, smp := range samples {
		s.rows[smp.Body] = append(s.rows[smp.Body], smp)
	}
	if len(samples) > 0 {
		s.batches[samples[0].Body] = append(s.batches[samples[0].Body], len(samples))
	}
	return nil
}

func (s *memoryStore) LoadRange(context.Context, string, time.Time, time.Time) ([]models.EphemerisSample, error) {
	return nil, nil
}

func (s *memoryStore) Health(context.Context) error { return nil }
func (s *memoryStore) Close() error                  { return nil }

func bodies(t *testing.T, names ...string) []models.Body {
	t.Helper()
	out := make([]models.Body, 0, len(names))
	for _, n := range names {
		b, err := models.LookupBody(n)
		require.NoError(t, err)
		out = append(out, b)
	}
	return out
}

func TestEphemerisSeeder_ChunksAndSkipsOffsetBodies(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{
		"Sun":  {lon0: 0, degPerDay: 1},
		"Rahu": {lon0: 356, degPerDay: -0.05},
	}}
	store := &memoryStore{}
	seeder := NewEphemerisSeeder(sky, store, WithSampleInterval(time.Hour), WithBatchSize(5), WithSeederWorkers(2))

	from, to := epoch, epoch.Add(10*time.Hour)
	rep, err := seeder.Seed(context.Background(), bodies(t, "Sun", "Rahu", "Ketu", "Sun"), from, to)
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"Sun": 11, "Rahu": 11}, rep.Samples)
	assert.Equal(t, []int{5, 5, 1}, store.batches["Sun"])
	assert.NotContains(t, store.rows, "Ketu")

	sun := store.rows["Sun"]
	sort.Slice(sun, func(i, j int) bool { return sun[i].T.Before(sun[j].T) })
	assert.True(t, sun[0].T.Equal(from))
	assert.True(t, sun[len(sun)-1].T.Equal(to))
	assert.InDelta(t, 10.0/24, sun[len(sun)-1].Longitude, 1e-9)

	// Rahu starts at 356 and regresses, so it never wraps here
	assert.InDelta(t, 356.0, store.rows["Rahu"][0].Longitude, 1e-9)
}

func TestEphemerisSeeder_OffsetBodySeedsItsBase(t *testing.T) {
	sky := &scriptedSky{bodies: map[string]motion{
		"Rahu": {lon0: 10, degPerDay: -0.05},
	}}
	store := &memoryStore{}
	seeder := NewEphemerisSeeder(sky, store, WithSampleInterval(time.Hour))

	rep, err := seeder.Seed(context.Background(), bodies(t, "Ketu"), epoch, epoch.Add(3*time.Hour))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"Rahu": 4}, rep.Samples)
	require.Len(t, store.rows["Rahu"], 4)
	assert.NotContains(t, store.rows, "Ketu")
	// stored unshifted; Ketu is derived on read
	assert.InDelta(t, 10.0, store.rows["Rahu"][0].Longitude, 1e-9)
}

func TestEphemerisSeeder_StoreFailure(t *testing.T) {
	boom := errors.New("clickhouse down")
	sky := &scriptedSky{bodies: map[string]motion{"Sun": sunTaurus}}
	seeder := NewEphemerisSeeder(sky, &memoryStore{fail: boom})

	_, err := seeder.Seed(context.Background(), bodies(t, "Sun"), epoch, epoch.Add(48*time.Hour))
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "store Sun")
}

func TestEphemerisSeeder_ProviderFailure(t *testing.T) {
	boom := errors.New("no data")
	sky := &scriptedSky{fail: map[string]error{"Moon": boom}}
	seeder := NewEphemerisSeeder(sky, &memoryStore{})

	_, err := seeder.Seed(context.Background(), bodies(t, "Moon"), epoch, epoch.Add(time.Hour))
	require.ErrorIs(t, err, boom)
}

func TestEphemerisSeeder_InvalidRange(t *testing.T) {
	seeder := NewEphemerisSeeder(&scriptedSky{}, &memoryStore{})
	_, err := seeder.Seed(context.Background(), bodies(t, "Sun"), epoch, epoch.Add(-time.Hour))
	require.ErrorIs(t, err, models.ErrInvalidWindow)
}

func TestEphemerisSeeder_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seeder := NewEphemerisSeeder(&scriptedSky{bodies: map[string]motion{"Sun": sunTaurus}}, &memoryStore{})
	_, err := seeder.Seed(ctx, bodies(t, "Sun"), epoch, epoch.Add(24*time.Hour))
	require.ErrorIs(t, err, context.Canceled)
}
