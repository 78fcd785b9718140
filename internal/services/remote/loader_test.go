package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"AstroOverlap/internal/domain/models"
	"AstroOverlap/internal/service/ephemeris"
	xhttp "AstroOverlap/pkg/http"
)

var t0 = time.Date(2024, 4, 13, 0, 0, 0, 0, time.UTC)

// sidecar serves a Sun moving 1°/day from 359° at t0, on an hourly grid.
func sidecar(t *testing.T, failFirst int32) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.URL.Path != rangePath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if n <= failFirst {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		var req RangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Body == "Unknown" {
			http.Error(w, "unknown body", http.StatusBadRequest)
			return
		}
		type sample struct {
			T   time.Time `json:"t"`
			Lon float64   `json:"lon"`
		}
		var out struct {
			Samples []sample `json:"samples"`
		}
		step := time.Duration(req.Interval) * time.Second
		for at := req.From.Truncate(step); !at.After(req.To); at = at.Add(step) {
			days := at.Sub(t0).Hours() / 24
			out.Samples = append(out.Samples, sample{T: at, Lon: models.NormalizeDegrees(359 + days)})
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestLoaderLoadRange(t *testing.T) {
	ts, _ := sidecar(t, 0)
	l := NewLoader(ts.URL+"/", xhttp.NewClient(), time.Hour)

	got, err := l.LoadRange(context.Background(), "Sun", t0, t0.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "Sun", got[0].Body)
	assert.InDelta(t, 359.0, got[0].Longitude, 1e-9)
	assert.True(t, got[3].T.Equal(t0.Add(3*time.Hour)))
}

func TestLoaderRejectsBadRequest(t *testing.T) {
	ts, calls := sidecar(t, 0)
	l := NewLoader(ts.URL, xhttp.NewClient(xhttp.WithRetry(3, time.Millisecond)), time.Hour)

	_, err := l.LoadRange(context.Background(), "Unknown", t0, t0.Add(time.Hour))
	var se *xhttp.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestLoaderNotInitialized(t *testing.T) {
	_, err := NewLoader("", nil, 0).LoadRange(context.Background(), "Sun", t0, t0)
	require.Error(t, err)
}

func TestLoaderRejectsOutOfRangeLongitude(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"samples":[{"t":"2024-04-13T00:00:00Z","lon":360.5}]}`)
	}))
	defer ts.Close()

	_, err := NewLoader(ts.URL, xhttp.NewClient(), time.Hour).LoadRange(context.Background(), "Sun", t0, t0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestProviderRetriesAndInterpolatesAcrossWrap(t *testing.T) {
	ts, calls := sidecar(t, 1)
	p := NewProvider(ts.URL, time.Second, 3, time.Hour, 48*time.Hour, nil)
	assert.Equal(t, "remote", p.Name())

	sun, err := models.LookupBody("Sun")
	require.NoError(t, err)

	require.NoError(t, p.Preload(context.Background(), sun, t0, t0.Add(48*time.Hour)))
	assert.EqualValues(t, 2, atomic.LoadInt32(calls), "one retry after the 503")

	// 359° at t0, 0° at t0+24h: the halfway point is 359.5°
	lon, err := p.Longitude(context.Background(), t0.Add(12*time.Hour), sun)
	require.NoError(t, err)
	assert.InDelta(t, 359.5, lon, 1e-9)
	assert.Equal(t, models.Pisces, models.SignOf(lon))

	lon, err = p.Longitude(context.Background(), t0.Add(30*time.Hour), sun)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, lon, 1e-9)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls), "served from the preloaded series")
}

var _ ephemeris.RangeLoader = (*Loader)(nil)
