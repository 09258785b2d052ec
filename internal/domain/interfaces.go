package domain

import (
	"context"

	"reservas/internal/models"
)

// ReservationStore loads and saves the whole reservation collection.
type ReservationStore interface {
	Load(ctx context.Context) ([]models.Reservation, error)
	Save(ctx context.Context, list []models.Reservation) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type ReservationService interface {
	List(ctx context.Context, filter models.Filter) ([]models.Reservation, error)
	Get(ctx context.Context, id string) (*models.Reservation, error)
	Create(ctx context.Context, patch models.Patch) (*models.Reservation, error)
	Update(ctx context.Context, id string, patch models.Patch) (*models.Reservation, error)
	Delete(ctx context.Context, id string) error
}
