// Package hooks lets observers follow turns and the gateway lifecycle
// without the orchestrator knowing who listens.
package hooks

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/soyeahso/caselink/internal/logging"
)

// Turn and gateway events.
const (
	EventTurnReceived  = "turn_received"
	EventTurnCompleted = "turn_completed"
	EventTurnFailed    = "turn_failed"
	EventGatewayStart  = "gateway_start"
	EventGatewayStop   = "gateway_stop"
)

// AllEvents lists every event the orchestrator and gateway emit.
var AllEvents = []string{
	EventTurnReceived,
	EventTurnCompleted,
	EventTurnFailed,
	EventGatewayStart,
	EventGatewayStop,
}

// TurnEvents are the per-turn subset of AllEvents.
var TurnEvents = []string{EventTurnReceived, EventTurnCompleted, EventTurnFailed}

// Payload is what a handler receives. Data never carries answers, prompts
// or model text; emitters put ids, counts and durations in it.
type Payload struct {
	Event string         `json:"event"`
	Time  time.Time      `json:"time"`
	Data  map[string]any `json:"data,omitempty"`
}

// Handler observes one event. Errors are logged and otherwise ignored.
type Handler func(ctx context.Context, p Payload) error

type registration struct {
	name string
	fn   Handler
}

// Manager holds registrations and dispatches events to them.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]registration
	now      func() time.Time
	log      *logging.Logger
}

// NewManager creates an empty manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]registration),
		now:      time.Now,
		log:      log.Sub("hooks"),
	}
}

// On registers fn for event under name. A second registration with the
// same name replaces the first in place.
func (m *Manager) On(event, name string, fn Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	regs := m.handlers[event]
	if i := slices.IndexFunc(regs, func(r registration) bool { return r.name == name }); i >= 0 {
		regs[i].fn = fn
	} else {
		m.handlers[event] = append(regs, registration{name: name, fn: fn})
	}
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// Off removes the handler registered under name and reports whether one
// existed.
func (m *Manager) Off(event, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.handlers[event])
	m.handlers[event] = slices.DeleteFunc(m.handlers[event], func(r registration) bool { return r.name == name })
	if len(m.handlers[event]) == 0 {
		delete(m.handlers, event)
	}
	return len(m.handlers[event]) != before
}

// Emit runs the handlers for event in registration order on the caller's
// goroutine. A handler that fails or panics is logged and the rest still
// run; the emitter never sees the failure.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	m.mu.RLock()
	regs := slices.Clone(m.handlers[event])
	m.mu.RUnlock()

	if len(regs) == 0 {
		return
	}

	p := Payload{Event: event, Time: m.now(), Data: data}
	for _, r := range regs {
		if err := invoke(ctx, r.fn, p); err != nil {
			m.log.Warn().Err(err).Str("event", event).Str("handler", r.name).Msg("hook failed")
		}
	}
}

func invoke(ctx context.Context, fn Handler, p Payload) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v", v)
		}
	}()
	return fn(ctx, p)
}

// Count returns how many handlers event has.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the events with at least one handler, sorted.
func (m *Manager) Events() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]string, 0, len(m.handlers))
	for event, regs := range m.handlers {
		if len(regs) > 0 {
			events = append(events, event)
		}
	}
	slices.Sort(events)
	return events
}
