// Package events implements the type-indexed listener registry domain
// mutations publish through. Dispatch walks supertypes declared by the
// event type itself (via the optional Parents method), since a systems
// language without a runtime class hierarchy has no other way to express
// "deliver to listeners of this type or any of its declared ancestors" —
// the same substitution spec.md §9 calls for.
//
// The registry is keyed by reflect.Type and swapped with the same
// copy-on-write CAS discipline properties.PersistentProperties uses for its
// backing map: Publish reads the registry once at entry and dispatches from
// that snapshot, so a concurrent Subscribe never affects an in-flight
// dispatch.
package events

import (
	"context"
	"reflect"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jbellassai/koncentric/mtrace"
)

// Event is any domain event a listener may handle. Parents, if
// implemented, declares the event's supertypes for dispatch purposes; an
// event with no Parents method is dispatched only to listeners registered
// for its own concrete type.
type Event interface{}

// Parented is implemented by event types that declare supertypes other
// event kinds can be dispatched as. A listener registered against a
// supertype fires for every Event whose type is that supertype or has it
// in its transitive Parents() closure.
type Parented interface {
	Parents() []reflect.Type
}

// Handler is the suspending callback a Listener invokes when its declared
// event type matches a published event. Handlers run inside the
// transaction Publish was called with; a returned error propagates out of
// Publish and aborts the remaining dispatch.
type Handler func(ctx context.Context, tx any, event Event) error

// Listener pairs the event type it consumes with the handler to invoke.
// Subscribe/Unsubscribe/IsSubscribed key on the Listener's pointer
// identity, not on any value equality of its fields, so two distinct
// Listener values with identical fields are never confused.
type Listener struct {
	EventType reflect.Type
	Handle    Handler
}

// Manager is the type-indexed listener registry. The zero value is not
// usable; construct with NewManager.
type Manager struct {
	registry atomic.Pointer[map[reflect.Type][]*Listener]
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	m := &Manager{}
	empty := map[reflect.Type][]*Listener{}
	m.registry.Store(&empty)

	return m
}

// Subscribe adds listener to the registry under its declared EventType.
// Duplicates are permitted; insertion order is preserved for deterministic
// dispatch.
func (m *Manager) Subscribe(listener *Listener) {
	for {
		old := m.registry.Load()
		next := make(map[reflect.Type][]*Listener, len(*old)+1)

		for k, v := range *old {
			next[k] = v
		}

		next[listener.EventType] = append(append([]*Listener(nil), next[listener.EventType]...), listener)

		if m.registry.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Unsubscribe removes every entry referring to listener by pointer
// identity.
func (m *Manager) Unsubscribe(listener *Listener) {
	for {
		old := m.registry.Load()
		next := make(map[reflect.Type][]*Listener, len(*old))

		for k, v := range *old {
			filtered := make([]*Listener, 0, len(v))

			for _, l := range v {
				if l != listener {
					filtered = append(filtered, l)
				}
			}

			if len(filtered) > 0 {
				next[k] = filtered
			}
		}

		if m.registry.CompareAndSwap(old, &next) {
			return
		}
	}
}

// UnsubscribeAll clears the registry.
func (m *Manager) UnsubscribeAll() {
	empty := map[reflect.Type][]*Listener{}
	m.registry.Store(&empty)
}

// IsSubscribed reports whether listener (by pointer identity) is present in
// the registry.
func (m *Manager) IsSubscribed(listener *Listener) bool {
	for _, v := range *m.registry.Load() {
		for _, l := range v {
			if l == listener {
				return true
			}
		}
	}

	return false
}

// Publish dispatches event to every listener whose declared type equals
// eventType or is a strict supertype of it, sequentially in registration
// order, within tx. No listener fires more than once per Publish even if it
// matches through more than one declared-parent path. A listener error
// propagates out of Publish and stops the remaining dispatch.
func (m *Manager) Publish(ctx context.Context, tx any, event Event, eventType reflect.Type) error {
	ctx, span := mtrace.FromContext(ctx).Start(ctx, "events.Publish")
	defer span.End()
	span.SetAttributes(attribute.String("event.type", eventType.String()))

	registry := *m.registry.Load()

	seen := make(map[*Listener]bool)

	for _, t := range typeClosure(eventType) {
		for _, listener := range registry[t] {
			if seen[listener] {
				continue
			}

			seen[listener] = true

			if err := listener.Handle(ctx, tx, event); err != nil {
				return err
			}
		}
	}

	return nil
}

// typeClosure returns eventType followed by the transitive closure of its
// declared parents, each appearing once, in declaration order.
func typeClosure(eventType reflect.Type) []reflect.Type {
	order := []reflect.Type{eventType}
	seen := map[reflect.Type]bool{eventType: true}

	frontier := []reflect.Type{eventType}
	for len(frontier) > 0 {
		var next []reflect.Type

		for _, t := range frontier {
			parents := parentsOf(t)
			for _, p := range parents {
				if seen[p] {
					continue
				}

				seen[p] = true
				order = append(order, p)
				next = append(next, p)
			}
		}

		frontier = next
	}

	return order
}

func parentsOf(t reflect.Type) []reflect.Type {
	zero := reflect.New(t).Elem().Interface()

	if parented, ok := zero.(Parented); ok {
		return parented.Parents()
	}

	return nil
}
