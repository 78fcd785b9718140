package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"AstroOverlap/internal/domain/models"
	domrepo "AstroOverlap/internal/domain/repository"
	icache "AstroOverlap/internal/service/cache"
	"AstroOverlap/internal/service/metrics"
	"AstroOverlap/internal/service/ratelimit"
	"AstroOverlap/internal/services/transit"
	"AstroOverlap/internal/usecase"
	xhttp "AstroOverlap/pkg/http"
	applogger "AstroOverlap/pkg/logger"
	"AstroOverlap/pkg/util"
)

// Engine is what the handlers need from usecase.OverlapEngine.
type Engine interface {
	Resolve(req *models.OverlapRequest) (usecase.Query, error)
	Compute(ctx context.Context, q usecase.Query, trace models.TraceFunc) (*models.OverlapResult, error)
	Provider() domrepo.PositionProvider
	StepFor(body models.Body) int
}

// OverlapHandler serves the overlap API.
type OverlapHandler struct {
	engine   Engine
	zone     string
	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
	l        *applogger.Logger
}

func NewOverlapHandler(engine Engine, astro *models.AstroConfig, l *applogger.Logger) *OverlapHandler {
	metrics.Register()
	if l == nil {
		l = applogger.Nop()
	}
	return &OverlapHandler{
		engine: engine,
		zone:   astro.ZoneName,
		l:      l.With(applogger.String("component", "overlap_api")),
	}
}

// SetCache enables response caching.
func (h *OverlapHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	h.cacheTTL = ttl
}

// SetRateLimiter limits overlap computations per client IP.
func (h *OverlapHandler) SetRateLimiter(rl *ratelimit.Limiter) { h.rl = rl }

func (h *OverlapHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/overlap", h.Overlap)
	g.GET("/overlap/stream", h.Stream)
	g.GET("/signs", h.Signs)
	g.GET("/bodies", h.Bodies)
	g.GET("/positions", h.Positions)
}

// Overlap computes the common sign occupancy of the requested bodies.
func (h *OverlapHandler) Overlap(c echo.Context) error {
	const endpoint = "overlap"
	start := time.Now()
	defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.allow(c) {
		metrics.APIErrors.WithLabelValues(endpoint, "rate_limited").Inc()
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many overlap requests"))
	}

	req := &models.OverlapRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "invalid_request").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}
	q, err := h.engine.Resolve(req)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint, "invalid_request").Inc()
		return xhttp.AppErrorResponse(c, toAppError(err))
	}

	ctx := c.Request().Context()
	key := icache.Key("overlap", h.zone, q.Key())
	if res, ok := h.cached(ctx, key); ok {
		return xhttp.SuccessResponse(c, &models.OverlapResponse{ID: req.ID, Result: res})
	}

	res, err := h.engine.Compute(ctx, q, nil)
	if err != nil {
		metrics.APIErrors.WithLabelValues(endpoint, errorKind(err)).Inc()
		if !usecase.IsRequestError(err) {
			h.l.Error("overlap compute error", applogger.Int("year", q.Year), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, toAppError(err))
	}
	h.store(ctx, key, res)
	return xhttp.SuccessResponse(c, &models.OverlapResponse{ID: req.ID, Result: res})
}

type signInfo struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	StartDegree float64 `json:"start_degree"`
}

func (h *OverlapHandler) Signs(c echo.Context) error {
	out := make([]signInfo, 0, models.SignCount)
	for i, name := range models.SignNames() {
		s := models.Sign(i)
		out = append(out, signInfo{Index: i, Name: name, StartDegree: s.StartDegree()})
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

type bodyInfo struct {
	models.Body
	StepMinutes int `json:"step_minutes"`
}

func (h *OverlapHandler) Bodies(c echo.Context) error {
	bodies := models.KnownBodies()
	out := make([]bodyInfo, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, bodyInfo{Body: b, StepMinutes: h.engine.StepFor(b)})
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

type position struct {
	Body      string    `json:"body"`
	Instant   time.Time `json:"instant"`
	Longitude float64   `json:"longitude"`
	Sign      string    `json:"sign"`
	Degree    float64   `json:"degree_in_sign"`
}

// Positions reports sidereal longitudes at ?at= (default now) for ?bodies= (default all).
func (h *OverlapHandler) Positions(c echo.Context) error {
	const endpoint = "positions"
	at := util.ParseTimeDefault(c.QueryParam("at"), time.Now().UTC())
	names := xhttp.QueryList(c, "bodies")
	var bodies []models.Body
	if len(names) == 0 {
		bodies = models.KnownBodies()
	} else {
		for _, n := range names {
			b, err := models.LookupBody(n)
			if err != nil {
				metrics.APIErrors.WithLabelValues(endpoint, "invalid_request").Inc()
				return xhttp.AppErrorResponse(c, toAppError(err))
			}
			bodies = append(bodies, b)
		}
	}

	provider := h.engine.Provider()
	out := make([]position, 0, len(bodies))
	for _, b := range bodies {
		lon, err := provider.Longitude(c.Request().Context(), at, b)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint, "provider").Inc()
			h.l.Error("positions provider error", applogger.String("body", b.Name), applogger.Error(err))
			return xhttp.AppErrorResponse(c, toAppError(errors.Join(transit.ErrProviderFailure, err)))
		}
		s := models.SignOf(lon)
		out = append(out, position{
			Body:      b.Name,
			Instant:   at,
			Longitude: round(lon, 6),
			Sign:      s.String(),
			Degree:    round(lon-s.StartDegree(), 6),
		})
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

func (h *OverlapHandler) allow(c echo.Context) bool {
	if h.rl == nil || h.rl.Allow(c.RealIP()) {
		return true
	}
	metrics.RateLimited.Inc()
	if d := h.rl.RetryAfter(c.RealIP()); d > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.Seconds()))))
	}
	h.l.Warn("overlap rate limited", applogger.String("remote", c.RealIP()))
	return false
}

func (h *OverlapHandler) cached(ctx context.Context, key string) (*models.OverlapResult, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(ctx, key)
	if err != nil {
		h.l.Warn("overlap cache get error", applogger.Error(err))
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	var res models.OverlapResult
	if err := json.Unmarshal(b, &res); err != nil {
		h.l.Warn("overlap cache decode error", applogger.String("key", key), applogger.Error(err))
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	return &res, true
}

func (h *OverlapHandler) store(ctx context.Context, key string, res *models.OverlapResult) {
	if h.cache == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := h.cache.SetBytes(ctx, key, b, h.cacheTTL); err != nil {
		h.l.Warn("overlap cache set error", applogger.Error(err))
	}
}

func toAppError(err error) *xhttp.AppError {
	switch {
	case usecase.IsRequestError(err):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, transit.ErrProviderFailure):
		return xhttp.BadGatewayError("ephemeris provider failed").WithError(err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return xhttp.ServiceUnavailableError("overlap computation cancelled").WithError(err)
	default:
		return xhttp.InternalError("overlap computation failed").WithError(err)
	}
}

func errorKind(err error) string {
	switch {
	case usecase.IsRequestError(err):
		return "invalid_request"
	case errors.Is(err, transit.ErrProviderFailure):
		return "provider"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal"
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
