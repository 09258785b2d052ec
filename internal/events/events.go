package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"reservas/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	EventReservationCreated = "reservation_created"
	EventReservationUpdated = "reservation_updated"
	EventReservationDeleted = "reservation_deleted"
)

// ReservationEventPayload is the snapshot sent to event consumers. Reservation
// is nil for deletions; Removed reports whether the id existed.
type ReservationEventPayload struct {
	ReservationID string              `json:"reservationId"`
	Reservation   *models.Reservation `json:"reservation,omitempty"`
	Removed       bool                `json:"removed,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// EventHandler reacts to an event.
type EventHandler func(ctx context.Context, event *Event) error

// Sink delivers events outside the process.
type Sink interface {
	Send(ctx context.Context, event *Event) error
	Close() error
}

const anyEvent = "*"

// EventBus provides in-process pub/sub for events. Handlers run synchronously
// in subscription order; a failing handler is logged and does not stop the rest.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "events").Logger()
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: l}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler that receives every event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	b.Subscribe(anyEvent, handler)
}

// Attach forwards every event to the sink.
func (b *EventBus) Attach(sink Sink) {
	b.SubscribeAll(sink.Send)
}

func (b *EventBus) Dispatch(ctx context.Context, event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[anyEvent]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Warn().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("event handler failed")
		}
	}
}

// Publish serializes the payload and dispatches it.
func (b *EventBus) Publish(ctx context.Context, eventType string, payload any) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}

	b.Dispatch(ctx, &event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now().UTC()}, nil
}
