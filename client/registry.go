package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"weak"

	"github.com/rs/zerolog"
)

// Context is what a handler receives for one event.
type Context struct {
	Event Event
	Data  json.RawMessage
}

// Decode unmarshals the event data into v.
func (c Context) Decode(v any) error {
	if len(c.Data) == 0 || string(c.Data) == "null" {
		return fmt.Errorf("%w: %s data", ErrMissingField, c.Event)
	}
	if err := json.Unmarshal(c.Data, v); err != nil {
		return fmt.Errorf("%w: %s data: %w", ErrDecode, c.Event, err)
	}
	return nil
}

type Handler func(Context)

type handlerEntry struct {
	fn Handler
}

// Registry maps events to handlers. Dispatch takes the read lock only long
// enough to copy the handler list, so handlers may register or unregister
// from inside a callback.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Event][]*handlerEntry
	log      zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		handlers: make(map[Event][]*handlerEntry),
		log:      logger.With().Str("component", "registry").Logger(),
	}
}

// Handle is returned by Register. It only holds weak references, so it never
// keeps the registry or the handler alive; the entry pointer is the handler's
// identity. A handle that is never unregistered stays registered for the
// registry's lifetime.
type Handle struct {
	event    Event
	registry weak.Pointer[Registry]
	entry    weak.Pointer[handlerEntry]
}

func (h *Handle) Event() Event { return h.event }

// Unregister removes exactly the handler this handle was issued for.
// Calling it again, or after the registry is gone, does nothing.
func (h *Handle) Unregister() {
	if h == nil {
		return
	}
	r, entry := h.registry.Value(), h.entry.Value()
	if r == nil || entry == nil {
		return
	}
	r.remove(h.event, entry)
}

func (r *Registry) Register(event Event, fn Handler) *Handle {
	entry := &handlerEntry{fn: fn}

	r.mu.Lock()
	r.handlers[event] = append(r.handlers[event], entry)
	r.mu.Unlock()

	return &Handle{
		event:    event,
		registry: weak.Make(r),
		entry:    weak.Make(entry),
	}
}

func (r *Registry) remove(event Event, target *handlerEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.handlers[event]
	for i, e := range list {
		if e != target {
			continue
		}
		next := make([]*handlerEntry, 0, len(list)-1)
		next = append(next, list[:i]...)
		next = append(next, list[i+1:]...)
		if len(next) == 0 {
			delete(r.handlers, event)
		} else {
			r.handlers[event] = next
		}
		return true
	}
	return false
}

// Len returns how many handlers are registered for event.
func (r *Registry) Len(event Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

// Handle runs every handler for event in registration order and returns how
// many ran. Each handler gets its own copy of data.
func (r *Registry) Handle(event Event, data json.RawMessage) int {
	r.mu.RLock()
	list := r.handlers[event]
	r.mu.RUnlock()

	for _, e := range list {
		r.invoke(e, Context{Event: event, Data: bytes.Clone(data)})
	}
	return len(list)
}

func (r *Registry) invoke(e *handlerEntry, ctx Context) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error().Str("event", string(ctx.Event)).Interface("panic", p).Msg("event handler panicked")
		}
	}()
	e.fn(ctx)
}

// BlockUntilEvent waits for the next occurrence of event.
func (r *Registry) BlockUntilEvent(ctx context.Context, event Event) (Context, error) {
	got := make(chan Context, 1)
	h := r.Register(event, func(c Context) {
		select {
		case got <- c:
		default:
		}
	})
	defer h.Unregister()

	select {
	case c := <-got:
		return c, nil
	case <-ctx.Done():
		return Context{}, ctx.Err()
	}
}
