// Package eventstest provides an in-memory emitter for service tests.
package eventstest

import (
	"context"
	"sync"

	"github.com/odyssey-erp/pressroom/internal/events"
)

// Recorder captures emitted events.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

// Emit implements events.Emitter.
func (r *Recorder) Emit(_ context.Context, evts ...events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evts...)
}

// Events returns a copy of everything emitted so far.
func (r *Recorder) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the emitted events with the given name.
func (r *Recorder) Named(name events.Name) []events.Event {
	var out []events.Event
	for _, evt := range r.Events() {
		if evt.Name == name {
			out = append(out, evt)
		}
	}
	return out
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
