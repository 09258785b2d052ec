package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"reservas/internal/events"
	"reservas/internal/models"
	"reservas/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context) ([]models.Reservation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *mockStore) Save(ctx context.Context, list []models.Reservation) error {
	return m.Called(ctx, list).Error(0)
}

type recordedEvent struct {
	Type    string
	Payload events.ReservationEventPayload
}

type recordingPublisher struct {
	events []recordedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, recordedEvent{Type: eventType, Payload: payload.(events.ReservationEventPayload)})
	return nil
}

func newFileService(t *testing.T) (*ReservationService, *recordingPublisher) {
	t.Helper()
	logger := zerolog.Nop()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "db.json"), &logger)
	require.NoError(t, fs.EnsureExists(context.Background()))
	pub := &recordingPublisher{}
	return NewReservationService(fs, pub, &logger), pub
}

func patchOf(t *testing.T, body string) models.Patch {
	t.Helper()
	var p models.Patch
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

const anaBody = `{"nomeHospede":"Ana","email":"a@x.com","quarto":"101","tipoQuarto":"single","dataEntrada":"2024-01-10","dataSaida":"2024-01-12"}`

func TestReservationService_Scenario(t *testing.T) {
	svc, pub := newFileService(t)
	svc.now = func() time.Time { return time.Date(2024, 1, 5, 12, 30, 0, 0, time.FixedZone("BRT", -3*3600)) }
	ctx := context.Background()

	created, err := svc.Create(ctx, patchOf(t, anaBody))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StatusConfirmada, created.Status)
	assert.Equal(t, "2024-01-05T15:30:00.000Z", created.DataCriacao)
	assert.Equal(t, "Ana", created.NomeHospede)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := svc.Update(ctx, created.ID, patchOf(t, `{"status":"cancelada"}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelada, updated.Status)
	expected := *created
	expected.Status = models.StatusCancelada
	assert.Equal(t, &expected, updated)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.Len(t, pub.events, 3)
	assert.Equal(t, events.EventReservationCreated, pub.events[0].Type)
	assert.Equal(t, events.EventReservationUpdated, pub.events[1].Type)
	assert.Equal(t, events.EventReservationDeleted, pub.events[2].Type)
	assert.True(t, pub.events[2].Payload.Removed)
}

func TestReservationService_CreateOverridesServerFields(t *testing.T) {
	svc, _ := newFileService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, patchOf(t, `{"id":"mine","status":"cancelada","dataCriacao":"yesterday","nomeHospede":"Beto","vip":true}`))
	require.NoError(t, err)
	assert.NotEqual(t, "mine", created.ID)
	assert.Equal(t, models.StatusConfirmada, created.Status)
	assert.NotEqual(t, "yesterday", created.DataCriacao)
	_, err = time.Parse(models.TimestampLayout, created.DataCriacao)
	assert.NoError(t, err)
	assert.JSONEq(t, `true`, string(created.Extra["vip"]))
}

func TestReservationService_UniqueIDs(t *testing.T) {
	svc, _ := newFileService(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		r, err := svc.Create(ctx, patchOf(t, fmt.Sprintf(`{"nomeHospede":"guest %d"}`, i)))
		require.NoError(t, err)
		assert.False(t, seen[r.ID], "duplicate id %s", r.ID)
		seen[r.ID] = true
	}

	list, err := svc.List(ctx, models.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 20)
	assert.Equal(t, "guest 0", list[0].NomeHospede, "insertion order is preserved")
	assert.Equal(t, "guest 19", list[19].NomeHospede)
}

func TestReservationService_IDCollisionRetries(t *testing.T) {
	svc, _ := newFileService(t)
	ctx := context.Background()

	ids := []string{"a", "a", "b"}
	svc.newID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}

	first, err := svc.Create(ctx, models.Patch{})
	require.NoError(t, err)
	second, err := svc.Create(ctx, models.Patch{})
	require.NoError(t, err)

	assert.Equal(t, "a", first.ID)
	assert.Equal(t, "b", second.ID)

	svc.newID = func() (string, error) { return "a", nil }
	_, err = svc.Create(ctx, models.Patch{})
	assert.Error(t, err)
}

func TestReservationService_UpdateMergesOnlySuppliedFields(t *testing.T) {
	svc, _ := newFileService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, patchOf(t, anaBody))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, patchOf(t, `{"quarto":"202","id":"hijack","dataCriacao":"x","andar":2}`))
	require.NoError(t, err)
	assert.Equal(t, "202", updated.Quarto)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.DataCriacao, updated.DataCriacao)
	assert.Equal(t, "Ana", updated.NomeHospede)
	assert.Equal(t, "single", updated.TipoQuarto)
	assert.Equal(t, models.StatusConfirmada, updated.Status)
	assert.JSONEq(t, `2`, string(updated.Extra["andar"]))

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, stored)
}

func TestReservationService_NotFound(t *testing.T) {
	svc, pub := newFileService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Update(ctx, "missing", patchOf(t, `{"status":"cancelada"}`))
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, svc.Delete(ctx, "missing"), "delete is idempotent")
	require.Len(t, pub.events, 1)
	assert.False(t, pub.events[0].Payload.Removed)
}

func TestReservationService_MalformedValuesStoredAsIs(t *testing.T) {
	svc, _ := newFileService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, patchOf(t, `{"quarto":101,"status":7}`))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmada, created.Status)
	assert.NotContains(t, created.Extra, models.FieldStatus)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.JSONEq(t, `101`, string(stored.Extra[models.FieldQuarto]))

	updated, err := svc.Update(ctx, created.ID, patchOf(t, `{"quarto":"202"}`))
	require.NoError(t, err)
	assert.Equal(t, "202", updated.Quarto)
	assert.NotContains(t, updated.Extra, models.FieldQuarto)
}

func TestReservationService_InvalidBody(t *testing.T) {
	svc, _ := newFileService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, models.Patch{"quarto": json.RawMessage(`{bad`)})
	assert.ErrorIs(t, err, ErrInvalidBody)

	created, err := svc.Create(ctx, patchOf(t, anaBody))
	require.NoError(t, err)

	_, err = svc.Update(ctx, created.ID, models.Patch{"email": json.RawMessage(`nope`)})
	assert.ErrorIs(t, err, ErrInvalidBody)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", stored.Email)
}

func TestReservationService_ListFilter(t *testing.T) {
	svc, _ := newFileService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, patchOf(t, `{"nomeHospede":"Ana"}`))
	require.NoError(t, err)
	beto, err := svc.Create(ctx, patchOf(t, `{"nomeHospede":"Beto"}`))
	require.NoError(t, err)
	_, err = svc.Update(ctx, beto.ID, patchOf(t, `{"status":"cancelada"}`))
	require.NoError(t, err)

	list, err := svc.List(ctx, models.Filter{Search: "an", Status: models.StatusAll})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ana", list[0].NomeHospede)

	list, err = svc.List(ctx, models.Filter{Status: models.StatusCancelada})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Beto", list[0].NomeHospede)
}

func TestReservationService_StoreErrors(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("LoadFailure", func(t *testing.T) {
		ms := new(mockStore)
		ms.On("Load", mock.Anything).Return(nil, fmt.Errorf("%w: disk gone", store.ErrStoreIO))
		svc := NewReservationService(ms, nil, &logger)

		_, err := svc.List(ctx, models.Filter{})
		assert.ErrorIs(t, err, store.ErrStoreIO)
		_, err = svc.Create(ctx, models.Patch{})
		assert.ErrorIs(t, err, store.ErrStoreIO)
		assert.ErrorIs(t, svc.Delete(ctx, "x"), store.ErrStoreIO)
		ms.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("ParseFailure", func(t *testing.T) {
		ms := new(mockStore)
		ms.On("Load", mock.Anything).Return(nil, fmt.Errorf("%w: bad json", store.ErrStoreParse))
		svc := NewReservationService(ms, nil, &logger)

		_, err := svc.Get(ctx, "x")
		assert.ErrorIs(t, err, store.ErrStoreParse)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("SaveFailure", func(t *testing.T) {
		ms := new(mockStore)
		pub := &recordingPublisher{}
		ms.On("Load", mock.Anything).Return([]models.Reservation{}, nil)
		ms.On("Save", mock.Anything, mock.MatchedBy(func(list []models.Reservation) bool { return len(list) == 1 })).
			Return(fmt.Errorf("%w: read-only", store.ErrStoreIO)).Once()
		svc := NewReservationService(ms, pub, &logger)

		_, err := svc.Create(ctx, patchOf(t, anaBody))
		assert.ErrorIs(t, err, store.ErrStoreIO)
		assert.Empty(t, pub.events, "no event for a failed write")
		ms.AssertExpectations(t)
	})

	t.Run("DeleteSavesEvenWhenAbsent", func(t *testing.T) {
		ms := new(mockStore)
		existing := []models.Reservation{{ID: "keep"}}
		ms.On("Load", mock.Anything).Return(existing, nil)
		ms.On("Save", mock.Anything, []models.Reservation{{ID: "keep"}}).Return(nil).Once()
		svc := NewReservationService(ms, nil, &logger)

		assert.NoError(t, svc.Delete(ctx, "missing"))
		ms.AssertExpectations(t)
	})
}

func TestReservationService_PublishFailureDoesNotFailWrite(t *testing.T) {
	logger := zerolog.Nop()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "db.json"), &logger)
	require.NoError(t, fs.EnsureExists(context.Background()))
	svc := NewReservationService(fs, &recordingPublisher{err: errors.New("broker down")}, &logger)

	created, err := svc.Create(context.Background(), patchOf(t, anaBody))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestReservationService_WithEventBus(t *testing.T) {
	logger := zerolog.Nop()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "db.json"), &logger)
	require.NoError(t, fs.EnsureExists(context.Background()))

	bus := events.NewEventBus(&logger)
	var got []string
	bus.SubscribeAll(func(_ context.Context, e *events.Event) error {
		got = append(got, e.Type)
		return nil
	})

	svc := NewReservationService(fs, bus, &logger)
	created, err := svc.Create(context.Background(), patchOf(t, anaBody))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), created.ID))

	assert.Equal(t, []string{events.EventReservationCreated, events.EventReservationDeleted}, got)
}
