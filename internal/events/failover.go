package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSink sends to primary until it fails, then to fallback. The primary
// is tried again once recoveryInterval has passed since the last failure.
type FailoverSink struct {
	primary  Sink
	fallback Sink
	logger   zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverSink(primary, fallback Sink, logger *zerolog.Logger) *FailoverSink {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "event-failover").Logger()
	}
	return &FailoverSink{
		primary:  primary,
		fallback: fallback,
		logger:   l,
	}
}

func (s *FailoverSink) Send(ctx context.Context, event *Event) error {
	if !s.isDown.Load() || s.recoveryDue() {
		err := s.primary.Send(ctx, event)
		if err == nil {
			if s.isDown.Swap(false) {
				s.logger.Info().Msg("Primary event sink recovered")
			}
			return nil
		}
		s.logger.Error().Err(err).Msg("Primary event sink failed, falling back")
		s.markDown()
	}

	return s.fallback.Send(ctx, event)
}

func (s *FailoverSink) Close() error {
	err := s.primary.Close()
	if ferr := s.fallback.Close(); err == nil {
		err = ferr
	}
	return err
}

func (s *FailoverSink) recoveryDue() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastCheck) > recoveryInterval
}

func (s *FailoverSink) markDown() {
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
	s.isDown.Store(true)
}

// LogSink writes events to the logger. It is the fallback when no broker is reachable.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger *zerolog.Logger) *LogSink {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "event-log").Logger()
	}
	return &LogSink{logger: l}
}

func (s *LogSink) Send(_ context.Context, event *Event) error {
	payload := []byte(event.Payload)
	if len(payload) == 0 {
		payload = []byte("null")
	}
	s.logger.Info().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		RawJSON("payload", payload).
		Msg("reservation event")
	return nil
}

func (s *LogSink) Close() error { return nil }
