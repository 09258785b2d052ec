package api

import (
	"errors"
	"net/http"
	"time"

	"reservas/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// requestLogger writes one access log line per request and records it in the
// HTTP metrics, labelled by route template rather than raw path.
func requestLogger(logger *zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}
			dur := time.Since(start)

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.ObserveHTTP(c.Request().Method, route, status, dur)

			evt := logger.Info()
			if status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", status).
				Dur("dur", dur).
				Msg("http request")
			return nil
		}
	}
}
