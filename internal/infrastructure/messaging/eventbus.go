// Package messaging implements the in-memory event bus used to fan merged
// state changes out to view-layer listeners. The merger publishes an event
// after every applied snapshot or optimistic local mutation; calendar and
// statistics views re-render on those events instead of polling.
package messaging

import (
	"errors"
	"sync"
	"time"

	"log/slog"
)

// EventType identifies what changed in the merged state.
type EventType string

const (
	// EventParticipationMerged fires after a participation snapshot or
	// optimistic participation edit is folded into merged state.
	EventParticipationMerged EventType = "participation.merged"

	// EventStudyHoursMerged fires after a study-hours change.
	EventStudyHoursMerged EventType = "study_hours.merged"

	// EventGoalsMerged fires after a goal collection change.
	EventGoalsMerged EventType = "goals.merged"

	// EventScheduleMerged fires after a per-date schedule change.
	EventScheduleMerged EventType = "schedule.merged"

	// EventRosterChanged fires when a participant is tracked or untracked.
	EventRosterChanged EventType = "roster.changed"
)

// Event describes one merged-state change.
type Event struct {
	Type       EventType
	UserID     string // empty for schedule/roster-wide events
	Date       string // date key when the change is date-scoped
	OccurredAt time.Time
}

// Handler processes one event. Handlers must not mutate merged state.
type Handler func(Event)

// ErrBusClosed is returned when operations are attempted on a closed bus.
var ErrBusClosed = errors.New("event bus is closed")

// Bus is a synchronous in-memory event bus. Delivery happens on the
// publisher's goroutine, which keeps ordering identical to merge order.
type Bus struct {
	mu          sync.RWMutex
	handlers    map[EventType][]Handler
	allHandlers []Handler
	logger      *slog.Logger
	closed      bool
}

// NewBus creates a new event bus.
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[EventType][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *Bus) SubscribeAll(handler Handler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish delivers an event to all subscribed handlers.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrBusClosed
	}
	handlers := make([]Handler, 0, len(b.handlers[event.Type])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.Type]...)
	handlers = append(handlers, b.allHandlers...)
	b.mu.RUnlock()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	for _, handler := range handlers {
		handler(event)
	}
	return nil
}

// Close shuts down the bus. Publish and Subscribe fail afterwards.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.logger.Info("event bus closed")
	return nil
}
