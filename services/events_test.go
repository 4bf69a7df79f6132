package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherIsolatesHandlerFailures(t *testing.T) {
	d := NewDispatcher(quietLogger(), false)

	var reached int32
	d.Subscribe("panics", func(context.Context, Event) error { panic("boom") })
	d.Subscribe("fails", func(context.Context, Event) error { return errors.New("nope") })
	d.Subscribe("works", func(context.Context, Event) error {
		atomic.AddInt32(&reached, 1)
		return nil
	})

	assert.NotPanics(t, func() {
		d.Publish(context.Background(), Event{Kind: EventTripCreated})
	})
	assert.EqualValues(t, 1, atomic.LoadInt32(&reached))
}

func TestDispatcherFiltersByKind(t *testing.T) {
	d := NewDispatcher(quietLogger(), false)

	var got []EventKind
	d.Subscribe("expenses", func(_ context.Context, ev Event) error {
		got = append(got, ev.Kind)
		return nil
	}, EventExpenseCreated, EventExpenseDeleted)

	for _, k := range []EventKind{EventTripCreated, EventExpenseCreated, EventSettlementUpdated, EventExpenseDeleted} {
		d.Publish(context.Background(), Event{Kind: k})
	}
	assert.Equal(t, []EventKind{EventExpenseCreated, EventExpenseDeleted}, got)
}

func TestAsyncDispatcherOutlivesRequestContext(t *testing.T) {
	d := NewDispatcher(quietLogger(), true)

	var handled int32
	var ctxErr atomic.Value
	d.Subscribe("slow", func(ctx context.Context, ev Event) error {
		if err := ctx.Err(); err != nil {
			ctxErr.Store(err)
		}
		assert.False(t, ev.OccurredAt.IsZero())
		atomic.AddInt32(&handled, 1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Publish(ctx, Event{Kind: EventInvitationSent})
	d.Publish(ctx, Event{Kind: EventInvitationAccepted})
	d.Wait()

	assert.EqualValues(t, 2, atomic.LoadInt32(&handled))
	assert.Nil(t, ctxErr.Load())
}
