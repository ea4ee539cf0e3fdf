package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCounts(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	noop := func(Context) {}

	r.Register(EventReady, noop)
	r.Register(EventReady, noop)
	r.Register(EventError, noop)

	assert.Equal(t, 2, r.Len(EventReady))
	assert.Equal(t, 1, r.Len(EventError))
	assert.Equal(t, 0, r.Len(EventActivityJoin))
}

func TestHandleUnregisterRemovesOnlyItsHandler(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	var calls []string
	first := r.Register(EventReady, func(Context) { calls = append(calls, "first") })
	r.Register(EventReady, func(Context) { calls = append(calls, "second") })
	r.Register(EventReady, func(Context) { calls = append(calls, "third") })

	first.Unregister()
	assert.Equal(t, 2, r.Len(EventReady))

	n := r.Handle(EventReady, json.RawMessage(`{}`))
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"second", "third"}, calls)

	first.Unregister()
	assert.Equal(t, 2, r.Len(EventReady), "second unregister is a no-op")

	var nilHandle *Handle
	assert.NotPanics(t, nilHandle.Unregister)
}

func TestForgottenHandleStaysRegistered(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	func() {
		_ = r.Register(EventActivityJoin, func(Context) {})
	}()
	assert.Equal(t, 1, r.Len(EventActivityJoin))
}

func TestRegistryRunsInRegistrationOrder(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	var order []int
	for i := 0; i < 5; i++ {
		r.Register(EventActivitySpectate, func(Context) { order = append(order, i) })
	}
	r.Handle(EventActivitySpectate, nil)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestRegistryRecoversHandlerPanic(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	ran := false
	r.Register(EventError, func(Context) { panic("boom") })
	r.Register(EventError, func(Context) { ran = true })

	assert.NotPanics(t, func() { r.Handle(EventError, nil) })
	assert.True(t, ran, "handlers after a panicking one still run")
}

func TestUnregisterFromInsideHandler(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	calls := 0
	var h *Handle
	h = r.Register(EventActivityJoinRequest, func(Context) {
		calls++
		h.Unregister()
	})

	r.Handle(EventActivityJoinRequest, nil)
	r.Handle(EventActivityJoinRequest, nil)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, r.Len(EventActivityJoinRequest))
}

func TestContextDecode(t *testing.T) {
	ctx := Context{Event: EventReady, Data: json.RawMessage(`{"v":1,"user":{"id":"42","username":"wumpus"}}`)}

	var ready ReadyEvent
	require.NoError(t, ctx.Decode(&ready))
	assert.Equal(t, 1, ready.V)
	assert.Equal(t, "wumpus", ready.User.Username)

	assert.ErrorIs(t, Context{Event: EventReady}.Decode(&ready), ErrMissingField)
	assert.ErrorIs(t, Context{Event: EventReady, Data: json.RawMessage(`null`)}.Decode(&ready), ErrMissingField)
	assert.ErrorIs(t, Context{Event: EventReady, Data: json.RawMessage(`[1]`)}.Decode(&ready), ErrDecode)
}

func TestBlockUntilEvent(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	go func() {
		for r.Len(EventActivityJoin) == 0 {
			time.Sleep(time.Millisecond)
		}
		r.Handle(EventActivityJoin, json.RawMessage(`{"secret":"s3cr3t"}`))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := r.BlockUntilEvent(ctx, EventActivityJoin)
	require.NoError(t, err)

	var join ActivityJoinEvent
	require.NoError(t, got.Decode(&join))
	assert.Equal(t, "s3cr3t", join.Secret)
	assert.Equal(t, 0, r.Len(EventActivityJoin), "temporary handler removed")
}

func TestBlockUntilEventContextDone(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.BlockUntilEvent(ctx, EventReady)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, r.Len(EventReady))
}

func TestHandlersGetTheirOwnData(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	var seen string
	r.Register(EventActivityJoin, func(ctx Context) {
		for i := range ctx.Data {
			ctx.Data[i] = 'x'
		}
	})
	r.Register(EventActivityJoin, func(ctx Context) { seen = string(ctx.Data) })

	data := json.RawMessage(`{"secret":"s"}`)
	r.Handle(EventActivityJoin, data)
	assert.Equal(t, `{"secret":"s"}`, seen)
	assert.Equal(t, `{"secret":"s"}`, string(data))
}

func TestHandleIdentityIsPerRegistration(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	calls := 0
	fn := func(Context) { calls++ }
	first := r.Register(EventReady, fn)
	second := r.Register(EventReady, fn)
	assert.Equal(t, EventReady, second.Event())

	first.Unregister()
	assert.Equal(t, 1, r.Len(EventReady))
	r.Handle(EventReady, nil)
	assert.Equal(t, 1, calls)

	second.Unregister()
	assert.Equal(t, 0, r.Len(EventReady))
}

func TestEventValid(t *testing.T) {
	for _, evt := range Events {
		assert.True(t, evt.Valid(), evt)
	}
	assert.False(t, Event("GUILD_CREATE").Valid())
	assert.False(t, Event("").Valid())
}
