package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reservas/internal/domain"
	"reservas/internal/events"
	"reservas/internal/metrics"
	"reservas/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound    = errors.New("reservation not found")
	ErrInvalidBody = errors.New("invalid reservation body")
)

const maxIDAttempts = 5

// ReservationService runs every operation as load, mutate, save against the
// store. Nothing serializes concurrent writers.
type ReservationService struct {
	store  domain.ReservationStore
	events domain.EventPublisher
	logger zerolog.Logger

	now   func() time.Time
	newID func() (string, error)
}

func NewReservationService(store domain.ReservationStore, publisher domain.EventPublisher, logger *zerolog.Logger) *ReservationService {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "reservations").Logger()
	}
	return &ReservationService{
		store:  store,
		events: publisher,
		logger: l,
		now:    time.Now,
		newID:  newUUIDv7,
	}
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *ReservationService) List(ctx context.Context, filter models.Filter) ([]models.Reservation, error) {
	list, err := s.load(ctx, "list")
	if err != nil {
		return nil, err
	}
	metrics.IncOperation("list", "ok")
	if filter.IsZero() {
		return list, nil
	}
	return filter.Apply(list), nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*models.Reservation, error) {
	list, err := s.load(ctx, "get")
	if err != nil {
		return nil, err
	}

	idx := indexOf(list, id)
	if idx < 0 {
		metrics.IncOperation("get", "not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	metrics.IncOperation("get", "ok")
	r := list[idx]
	return &r, nil
}

// Create assigns id, status and creation time, overriding any client values.
func (s *ReservationService) Create(ctx context.Context, patch models.Patch) (*models.Reservation, error) {
	list, err := s.load(ctx, "create")
	if err != nil {
		return nil, err
	}

	var r models.Reservation
	if err := r.Apply(patch); err != nil {
		metrics.IncOperation("create", "invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}

	r.ID, err = s.uniqueID(list)
	if err != nil {
		metrics.IncOperation("create", "error")
		return nil, fmt.Errorf("generate id: %w", err)
	}
	r.Status = models.StatusConfirmada
	delete(r.Extra, models.FieldStatus)
	r.DataCriacao = s.now().UTC().Format(models.TimestampLayout)

	list = append(list, r)
	if err := s.save(ctx, "create", list); err != nil {
		return nil, err
	}

	metrics.IncOperation("create", "ok")
	s.logger.Info().Str("reservation_id", r.ID).Msg("reservation created")
	created := r.Clone()
	s.publish(ctx, events.EventReservationCreated, events.ReservationEventPayload{ReservationID: r.ID, Reservation: &created})
	return &r, nil
}

// Update overlays the supplied fields on the stored record. Omitted fields
// keep their values; id and dataCriacao never change.
func (s *ReservationService) Update(ctx context.Context, id string, patch models.Patch) (*models.Reservation, error) {
	list, err := s.load(ctx, "update")
	if err != nil {
		return nil, err
	}

	idx := indexOf(list, id)
	if idx < 0 {
		metrics.IncOperation("update", "not_found")
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := list[idx].Clone()
	if err := updated.Apply(patch); err != nil {
		metrics.IncOperation("update", "invalid")
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	list[idx] = updated

	if err := s.save(ctx, "update", list); err != nil {
		return nil, err
	}

	metrics.IncOperation("update", "ok")
	s.logger.Info().Str("reservation_id", id).Msg("reservation updated")
	snapshot := updated.Clone()
	s.publish(ctx, events.EventReservationUpdated, events.ReservationEventPayload{ReservationID: id, Reservation: &snapshot})
	return &updated, nil
}

// Delete removes the reservation if present. Unknown ids are not an error and
// the collection is saved either way.
func (s *ReservationService) Delete(ctx context.Context, id string) error {
	list, err := s.load(ctx, "delete")
	if err != nil {
		return err
	}

	kept := make([]models.Reservation, 0, len(list))
	for _, r := range list {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	removed := len(kept) != len(list)

	if err := s.save(ctx, "delete", kept); err != nil {
		return err
	}

	metrics.IncOperation("delete", "ok")
	s.logger.Info().Str("reservation_id", id).Bool("removed", removed).Msg("reservation deleted")
	s.publish(ctx, events.EventReservationDeleted, events.ReservationEventPayload{ReservationID: id, Removed: removed})
	return nil
}

func (s *ReservationService) load(ctx context.Context, op string) ([]models.Reservation, error) {
	list, err := s.store.Load(ctx)
	if err != nil {
		metrics.IncOperation(op, "error")
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	metrics.SetStoreSize(len(list))
	return list, nil
}

func (s *ReservationService) save(ctx context.Context, op string, list []models.Reservation) error {
	if err := s.store.Save(ctx, list); err != nil {
		metrics.IncOperation(op, "error")
		return fmt.Errorf("save reservations: %w", err)
	}
	metrics.SetStoreSize(len(list))
	return nil
}

func (s *ReservationService) publish(ctx context.Context, eventType string, payload events.ReservationEventPayload) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("publish event failed")
	}
}

func (s *ReservationService) uniqueID(list []models.Reservation) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return "", err
		}
		if indexOf(list, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("no unique id after %d attempts", maxIDAttempts)
}

func indexOf(list []models.Reservation, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
