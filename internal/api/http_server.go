// Package api exposes the reservation service over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"reservas/internal/config"
	"reservas/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// ReadinessProbe reports whether the backing store can be read.
type ReadinessProbe func(ctx context.Context) error

// HTTPServer serves the reservation REST API and, optionally, the browser UI.
type HTTPServer struct {
	cfg     config.HTTPConfig
	service domain.ReservationService
	ready   ReadinessProbe
	echo    *echo.Echo
	api     *echo.Group
	server  *http.Server
	logger  zerolog.Logger
}

type Option func(*HTTPServer)

// WithReadiness sets the probe used by /readyz. Without one the server is
// always reported ready.
func WithReadiness(probe ReadinessProbe) Option {
	return func(s *HTTPServer) { s.ready = probe }
}

// WithRecentEvents exposes GET {prefix}/events/recent backed by src.
func WithRecentEvents(src RecentEventsSource) Option {
	return func(s *HTTPServer) {
		if src == nil {
			return
		}
		h := &eventHandlers{source: src, logger: &s.logger}
		s.api.GET("/events/recent", h.recent)
	}
}

// WithUI mounts the given file system at "/" when the config enables it.
func WithUI(assets fs.FS) Option {
	return func(s *HTTPServer) {
		if s.cfg.ServeUI && assets != nil {
			s.echo.StaticFS("/", assets)
		}
	}
}

func NewHTTPServer(cfg config.HTTPConfig, svc domain.ReservationService, logger *zerolog.Logger, opts ...Option) *HTTPServer {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "http").Logger()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &HTTPServer{cfg: cfg, service: svc, echo: e, logger: l}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(requestLogger(&srv.logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))
	if cfg.RateLimit.RPS > 0 {
		e.Use(newRateLimiter(cfg.RateLimit).middleware())
	}

	e.GET("/healthz", srv.handleHealth)
	e.GET("/readyz", srv.handleReady)

	h := &reservationHandlers{service: svc, logger: &srv.logger}
	g := e.Group(cfg.Prefix)
	srv.api = g
	g.GET("/reservations", h.list)
	g.POST("/reservations", h.create)
	g.GET("/reservations/:id", h.get)
	g.PUT("/reservations/:id", h.update)
	g.DELETE("/reservations/:id", h.delete)
	g.GET("/export/reservations.xlsx", h.export)

	for _, opt := range opts {
		opt(srv)
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler returns the routed handler, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.echo
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Str("prefix", s.cfg.Prefix).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *HTTPServer) handleReady(c echo.Context) error {
	if s.ready == nil {
		return c.String(http.StatusOK, "ready")
	}
	if err := s.ready(c.Request().Context()); err != nil {
		s.logger.Warn().Err(err).Msg("readiness check failed")
		return c.String(http.StatusServiceUnavailable, "not ready")
	}
	return c.String(http.StatusOK, "ready")
}
