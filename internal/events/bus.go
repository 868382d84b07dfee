// Package events is the in-process publish/subscribe registry that
// decouples side-effectful reactions (logging, broker forwarding,
// future notification channels) from the core mutation logic.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Wildcard subscribes a handler to every published event.
const Wildcard = "*"

// Event is a named notification with a structured payload. Events are
// ephemeral: created at publication, consumed by the currently
// registered handlers and then discarded.
type Event struct {
	Name    string
	Payload map[string]any
	At      time.Time
}

// Handler consumes a published event. A handler that returns an error
// or panics is isolated: the failure is logged and neither reaches the
// publisher nor stops the remaining handlers.
type Handler func(ctx context.Context, evt Event) error

// Bus dispatches events synchronously to handlers in registration
// order. Publication is strictly a post-commit, best-effort step: it
// can never make the triggering operation fail.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for the named event. Multiple handlers
// per name are allowed and run in registration order. Pass Wildcard to
// receive every event.
func (b *Bus) Subscribe(name string, h Handler) {
	if h == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish invokes all handlers registered for the event's name, then
// all wildcard handlers. It returns after every handler has run.
// Publishing with zero registered handlers is a no-op.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now()
	}

	b.mu.RLock()
	named := b.handlers[evt.Name]
	wild := b.handlers[Wildcard]
	handlers := make([]Handler, 0, len(named)+len(wild))
	handlers = append(handlers, named...)
	if evt.Name != Wildcard {
		handlers = append(handlers, wild...)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := b.invoke(ctx, h, evt); err != nil {
			b.logger.Error("event handler failed",
				"event", evt.Name,
				"error", err,
			)
		}
	}
}

func (b *Bus) invoke(ctx context.Context, h Handler, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, evt)
}
