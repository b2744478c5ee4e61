// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"fmt"
	"sync"
)

// Dispatcher routes payloads of type T to handlers keyed by event
// identifiers of type E.
type Dispatcher[E comparable, T any] struct {
	mu       sync.RWMutex
	handlers map[E][]func(T)
}

// New returns an empty dispatcher.
func New[E comparable, T any]() *Dispatcher[E, T] {
	return &Dispatcher[E, T]{handlers: make(map[E][]func(T))}
}

// On appends handler to the handlers for event.
func (d *Dispatcher[E, T]) On(event E, handler func(T)) {
	if handler == nil {
		panic(fmt.Sprintf("dispatch: nil handler for event %v", event))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[event] = append(d.handlers[event], handler)
}

// Dispatch invokes every handler registered for event, in registration
// order, and returns how many ran. Handlers registered during dispatch
// run from the next Dispatch on.
func (d *Dispatcher[E, T]) Dispatch(event E, payload T) int {
	d.mu.RLock()
	handlers := d.handlers[event]
	d.mu.RUnlock()

	for _, handler := range handlers {
		handler(payload)
	}
	return len(handlers)
}

// Has reports whether any handler is registered for event.
func (d *Dispatcher[E, T]) Has(event E) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[event]) > 0
}

// Clear removes every handler for event.
func (d *Dispatcher[E, T]) Clear(event E) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, event)
}

// Handle registers a handler taking A for event. convert maps each
// payload to A; payloads it rejects are skipped and reported to
// onMismatch, if set.
func Handle[E comparable, T, A any](d *Dispatcher[E, T], event E, convert func(T) (A, bool), handler func(A), onMismatch func(E, T)) {
	d.On(event, func(payload T) {
		argument, ok := convert(payload)
		if !ok {
			if onMismatch != nil {
				onMismatch(event, payload)
			}
			return
		}
		handler(argument)
	})
}

// As is a converter for [Handle] that type-asserts an interface
// payload to A.
func As[T, A any](payload T) (A, bool) {
	argument, ok := any(payload).(A)
	return argument, ok
}
