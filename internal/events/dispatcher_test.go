package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInMemoryDispatcherJoinsHandlerErrors(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls int32
	d.Subscribe(EventAppointmentBooked, func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	})
	d.Subscribe(EventAppointmentBooked, func(context.Context, Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventAppointmentBooked, 1, 1, time.Now(), nil))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, int32(2), calls)
}

func TestAsyncDispatcherDeliversAndDrains(t *testing.T) {
	d := NewAsyncDispatcher(AsyncOptions{Workers: 2, QueueSize: 8}, zap.NewNop())
	delivered := make(chan int64, 4)
	d.Subscribe(EventAppointmentBooked, func(_ context.Context, e Event) error {
		delivered <- e.AppointmentID
		return nil
	})
	d.Start()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, d.Publish(context.Background(), NewEvent(EventAppointmentBooked, i, 1, time.Now(), nil)))
	}
	require.NoError(t, d.Close(context.Background()))
	close(delivered)

	var got []int64
	for id := range delivered {
		got = append(got, id)
	}
	assert.ElementsMatch(t, []int64{1, 2, 3}, got)
}

func TestAsyncDispatcherLogsHandlerFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewAsyncDispatcher(AsyncOptions{Workers: 1}, zap.New(core))
	d.Subscribe(EventAppointmentBooked, func(context.Context, Event) error {
		return errors.New("notification store down")
	})
	d.Start()

	require.NoError(t, d.Publish(context.Background(), NewEvent(EventAppointmentBooked, 9, 1, time.Now(), nil)))
	require.NoError(t, d.Close(context.Background()))

	entries := logs.FilterMessage("event handler failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(9), entries[0].ContextMap()["appointment_id"])
}

func TestAsyncDispatcherBoundsHandlerRuntime(t *testing.T) {
	d := NewAsyncDispatcher(AsyncOptions{Workers: 1, HandlerTimeout: 20 * time.Millisecond}, zap.NewNop())
	got := make(chan error, 1)
	d.Subscribe(EventAppointmentBooked, func(ctx context.Context, _ Event) error {
		<-ctx.Done()
		got <- ctx.Err()
		return ctx.Err()
	})
	d.Start()
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventAppointmentBooked, 1, 1, time.Now(), nil)))

	select {
	case err := <-got:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("handler was not cancelled")
	}
	require.NoError(t, d.Close(context.Background()))
}

func TestAsyncDispatcherDropsWhenFull(t *testing.T) {
	d := NewAsyncDispatcher(AsyncOptions{Workers: 1, QueueSize: 1}, zap.NewNop())
	// Not started: the queue fills after one event.
	require.NoError(t, d.Publish(context.Background(), NewEvent(EventAppointmentBooked, 1, 1, time.Now(), nil)))
	err := d.Publish(context.Background(), NewEvent(EventAppointmentBooked, 2, 1, time.Now(), nil))
	assert.ErrorIs(t, err, ErrDispatcherFull)
	require.NoError(t, d.Close(context.Background()))
}
