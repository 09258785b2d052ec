package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Send(ctx context.Context, event *Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockSink) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestFailoverSink(t *testing.T) {
	primary := new(mockSink)
	fallback := new(mockSink)
	logger := zerolog.Nop()
	sink := NewFailoverSink(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		e := &Event{ID: "1"}
		primary.On("Send", ctx, e).Return(nil).Once()

		assert.NoError(t, sink.Send(ctx, e))
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		e := &Event{ID: "2"}
		primary.On("Send", ctx, e).Return(errors.New("fail")).Once()
		fallback.On("Send", ctx, e).Return(nil).Once()

		assert.NoError(t, sink.Send(ctx, e))
		assert.True(t, sink.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownSkipsPrimary", func(t *testing.T) {
		e := &Event{ID: "3"}
		fallback.On("Send", ctx, e).Return(nil).Once()

		assert.NoError(t, sink.Send(ctx, e))
		primary.AssertNotCalled(t, "Send", ctx, e)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		sink.lastCheck = time.Now().Add(-2 * time.Minute)
		e := &Event{ID: "4"}
		primary.On("Send", ctx, e).Return(nil).Once()

		assert.NoError(t, sink.Send(ctx, e))
		assert.False(t, sink.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		sink.isDown.Store(true)
		sink.lastCheck = time.Now().Add(-2 * time.Minute)
		e := &Event{ID: "5"}
		primary.On("Send", ctx, e).Return(errors.New("still fail")).Once()
		fallback.On("Send", ctx, e).Return(nil).Once()

		assert.NoError(t, sink.Send(ctx, e))
		assert.True(t, sink.isDown.Load())
		assert.WithinDuration(t, time.Now(), sink.lastCheck, time.Second)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("Close", func(t *testing.T) {
		primary.On("Close").Return(nil).Once()
		fallback.On("Close").Return(errors.New("close fail")).Once()

		assert.EqualError(t, sink.Close(), "close fail")
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
