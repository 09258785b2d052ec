package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reservas/internal/api"
	"reservas/internal/config"
	"reservas/internal/events"
	"reservas/internal/logging"
	"reservas/internal/metrics"
	"reservas/internal/service"
	"reservas/internal/store"
	"reservas/internal/web"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, base, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}
	logger := logging.Component(base, "api-main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileStore := store.NewFileStore(cfg.Store.Path, base)
	if err := fileStore.EnsureExists(ctx); err != nil {
		logger.Error().Err(err).Str("store_path", cfg.Store.Path).Msg("init store")
		return err
	}

	bus := events.NewEventBus(base)
	sink, recent, err := initEventSink(ctx, cfg, base, &logger)
	if err != nil {
		return err
	}
	if sink != nil {
		bus.Attach(sink)
		defer (func() { _ = sink.Close() })()
	}

	svc := service.NewReservationService(fileStore, bus, base)

	httpServer := api.NewHTTPServer(cfg.HTTP, svc, base,
		api.WithReadiness(func(ctx context.Context) error {
			_, err := fileStore.Load(ctx)
			return err
		}),
		api.WithRecentEvents(recent),
		api.WithUI(web.Assets()),
	)

	go store.NewBackupService(fileStore, cfg.Backup, base).Start(ctx)

	startMetrics(ctx, cfg, &logger)

	return serve(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, baseLogger, closer, nil
}

// initEventSink picks the external sink for change events. Broker sinks fall
// back to the log when the broker stops answering. The Redis sink also serves
// the recent-events endpoint.
func initEventSink(ctx context.Context, cfg *config.Config, base, logger *zerolog.Logger) (events.Sink, api.RecentEventsSource, error) {
	fallback := events.NewLogSink(base)

	switch cfg.Events.Sink {
	case config.SinkRedis:
		client := events.NewRedisClient(cfg.Redis)
		if err := events.Ping(ctx, client); err != nil {
			logger.Warn().Err(err).Msg("redis connection failed, events go to log until it recovers")
		} else {
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
		}
		primary := events.NewRedisSink(client, cfg.Events.Channel)
		return events.NewFailoverSink(primary, fallback, base), primary, nil

	case config.SinkAMQP:
		primary, err := events.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			logger.Warn().Err(err).Msg("amqp connection failed, events go to log")
			return fallback, nil, nil
		}
		logger.Info().Str("queue", cfg.AMQP.Queue).Msg("amqp connected")
		return events.NewFailoverSink(primary, fallback, base), nil, nil

	case config.SinkNone:
		return fallback, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown event sink %q", cfg.Events.Sink)
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
