// Package remote reads tabulated sidereal longitudes from an HTTP ephemeris
// service, such as a Swiss Ephemeris sidecar.
package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"AstroOverlap/internal/domain/models"
	"AstroOverlap/internal/service/ephemeris"
	xhttp "AstroOverlap/pkg/http"
	applogger "AstroOverlap/pkg/logger"
)

const rangePath = "/v1/ephemeris/range"

// RangeRequest is the body POSTed to the service.
type RangeRequest struct {
	Body     string    `json:"body"`
	Sidereal string    `json:"sidereal"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Interval int64     `json:"interval_seconds"`
}

type rangeResponse struct {
	Samples []struct {
		T   time.Time `json:"t"`
		Lon float64   `json:"lon"`
	} `json:"samples"`
}

// Loader implements ephemeris.RangeLoader over HTTP.
type Loader struct {
	baseURL  string
	client   *xhttp.Client
	interval time.Duration
	sidereal string
}

func NewLoader(baseURL string, client *xhttp.Client, interval time.Duration) *Loader {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Loader{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   client,
		interval: interval,
		sidereal: models.SiderealLahiri,
	}
}

func (l *Loader) LoadRange(ctx context.Context, body string, from, to time.Time) ([]models.EphemerisSample, error) {
	if l.client == nil || l.baseURL == "" {
		return nil, errors.New("remote ephemeris client not initialized")
	}
	req := RangeRequest{
		Body:     body,
		Sidereal: l.sidereal,
		From:     from.UTC(),
		To:       to.UTC(),
		Interval: int64(l.interval / time.Second),
	}
	var resp rangeResponse
	if err := l.client.PostJSON(ctx, l.baseURL+rangePath, req, &resp); err != nil {
		return nil, fmt.Errorf("post %s: %w", rangePath, err)
	}

	out := make([]models.EphemerisSample, 0, len(resp.Samples))
	for _, s := range resp.Samples {
		if s.Lon < 0 || s.Lon >= 360 {
			return nil, fmt.Errorf("remote ephemeris: %s longitude %.6f out of range at %s", body, s.Lon, s.T)
		}
		out = append(out, models.EphemerisSample{Body: body, T: s.T.UTC(), Longitude: s.Lon})
	}
	return out, nil
}

// NewProvider builds a SeriesProvider named "remote" over a Loader with retry.
func NewProvider(baseURL string, timeout time.Duration, attempts int, interval, chunk time.Duration, l *applogger.Logger) *ephemeris.SeriesProvider {
	client := xhttp.NewClient(
		xhttp.WithTimeout(timeout),
		xhttp.WithRetry(attempts, 100*time.Millisecond),
	)
	return ephemeris.NewSeriesProvider("remote", NewLoader(baseURL, client, interval),
		ephemeris.WithChunk(chunk),
		ephemeris.WithSeriesLogger(l),
	)
}

var _ ephemeris.RangeLoader = (*Loader)(nil)
