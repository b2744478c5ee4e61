// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dispatch routes events to handlers registered per event
// identifier.
//
// A [Dispatcher] maps each identifier to an ordered list of handlers
// and invokes them in registration order. The event payload type is
// fixed per dispatcher; [Handle] registers a handler for a narrower
// type with a converter, so a handler's signature is checked once at
// registration rather than on every event.
//
//	events := dispatch.New[Lifecycle, Event]()
//	events.On(Connected, func(event Event) { ... })
//	events.Dispatch(Connected, event)
//
// A Dispatcher is safe for concurrent use. Handlers run on the
// goroutine that calls Dispatch and may register further handlers.
package dispatch
