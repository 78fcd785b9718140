package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "AstroOverlap/pkg/logger"
)

// RequestLogging logs HTTP requests at debug, client errors at warn and server errors at error.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)
			if err != nil {
				// let echo's error handler settle the final status first
				c.Error(err)
			}

			fields := []applogger.Field{
				applogger.String("method", req.Method),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Duration("latency_ms", time.Since(start)),
			}
			switch {
			case res.Status >= 500:
				l.Error("http request", append(fields, applogger.Error(err))...)
			case res.Status >= 400:
				l.Warn("http request", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
