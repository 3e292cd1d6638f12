package services

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// Dispatcher fans an event out to registered handlers. Delivery is
// synchronous on the publishing goroutine and follows registration order. A
// handler that panics is logged and skipped; the remaining handlers still run.
type Dispatcher[E fmt.Stringer] struct {
	mu       sync.RWMutex
	handlers []*subscription[E]
	logger   *slog.Logger
	name     string
}

// NewDispatcher creates a dispatcher; name tags its log lines
func NewDispatcher[E fmt.Stringer](name string, logger *slog.Logger) *Dispatcher[E] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher[E]{
		logger: logger.With("dispatcher", name),
		name:   name,
	}
}

type subscription[E fmt.Stringer] struct {
	id string
	fn func(E)
	d  *Dispatcher[E]
}

func (s *subscription[E]) ID() string {
	return s.id
}

// Unsubscribe removes the handler. Calling it more than once is harmless.
func (s *subscription[E]) Unsubscribe() {
	s.d.remove(s.id)
}

// Subscribe appends a handler
func (d *Dispatcher[E]) Subscribe(fn func(E)) ports.Subscription {
	sub := &subscription[E]{id: uuid.NewString(), fn: fn, d: d}

	d.mu.Lock()
	d.handlers = append(d.handlers, sub)
	d.mu.Unlock()

	return sub
}

func (d *Dispatcher[E]) remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, h := range d.handlers {
		if h.id == id {
			d.handlers = append(d.handlers[:i:i], d.handlers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered handlers
func (d *Dispatcher[E]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers)
}

// Publish delivers the event to a snapshot of the current handlers. Handlers
// may subscribe or unsubscribe while being called.
func (d *Dispatcher[E]) Publish(event E) {
	d.mu.RLock()
	snapshot := make([]*subscription[E], len(d.handlers))
	copy(snapshot, d.handlers)
	d.mu.RUnlock()

	for _, h := range snapshot {
		d.deliver(h, event)
	}
}

func (d *Dispatcher[E]) deliver(h *subscription[E], event E) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Handler panicked",
				slog.String("subscription", h.id),
				slog.String("event", event.String()),
				slog.Any("panic", r),
			)
		}
	}()
	h.fn(event)
}
