package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	xhttp "AstroOverlap/pkg/http"
)

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
}

func NewHealthHandler(timeout time.Duration, checks ...HealthCheck) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{checks: checks, timeout: timeout}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

// Health answers 200 when every check passes and 503 otherwise, listing each check.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	status := http.StatusOK
	report := make(map[string]string, len(h.checks))
	for _, chk := range h.checks {
		if err := chk.Check(ctx); err != nil {
			report[chk.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		report[chk.Name] = "ok"
	}
	return xhttp.DataResponse(c, status, report)
}
