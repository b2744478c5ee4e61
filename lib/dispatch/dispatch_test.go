// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"slices"
	"sync"
	"testing"
)

type eventCode uint16

const (
	connected eventCode = iota + 1
	received
	closed
)

type connectedEvent struct{ remote string }
type receivedEvent struct{ length int }

func TestDispatcher_RegistrationOrder(t *testing.T) {
	t.Parallel()

	events := New[eventCode, string]()
	var calls []string
	events.On(connected, func(payload string) { calls = append(calls, "first:"+payload) })
	events.On(connected, func(payload string) { calls = append(calls, "second:"+payload) })
	events.On(closed, func(payload string) { calls = append(calls, "closed:"+payload) })

	if ran := events.Dispatch(connected, "peer"); ran != 2 {
		t.Errorf("Dispatch ran %d handlers, want 2", ran)
	}
	if !slices.Equal(calls, []string{"first:peer", "second:peer"}) {
		t.Fatalf("calls = %v", calls)
	}
	if ran := events.Dispatch(received, "nobody"); ran != 0 {
		t.Errorf("Dispatch with no handlers ran %d", ran)
	}
}

func TestDispatcher_HasAndClear(t *testing.T) {
	t.Parallel()

	events := New[eventCode, int]()
	if events.Has(received) {
		t.Fatal("Has on empty dispatcher")
	}
	events.On(received, func(int) {})
	if !events.Has(received) {
		t.Fatal("Has after On")
	}
	events.Clear(received)
	if events.Has(received) || events.Dispatch(received, 1) != 0 {
		t.Fatal("Clear left handlers behind")
	}
}

func TestDispatcher_RegisterDuringDispatch(t *testing.T) {
	t.Parallel()

	events := New[eventCode, int]()
	late := 0
	events.On(received, func(int) {
		events.On(received, func(int) { late++ })
	})

	events.Dispatch(received, 0)
	if late != 0 {
		t.Fatal("handler registered during dispatch ran in the same dispatch")
	}
	events.Dispatch(received, 0)
	if late != 1 {
		t.Fatalf("late handler ran %d times, want 1", late)
	}
}

func TestHandle_TypedHandlers(t *testing.T) {
	t.Parallel()

	events := New[eventCode, any]()
	var remotes []string
	var lengths []int
	var mismatched []eventCode

	mismatch := func(event eventCode, _ any) { mismatched = append(mismatched, event) }
	Handle(events, connected, As[any, connectedEvent], func(event connectedEvent) {
		remotes = append(remotes, event.remote)
	}, mismatch)
	Handle(events, received, As[any, receivedEvent], func(event receivedEvent) {
		lengths = append(lengths, event.length)
	}, mismatch)

	events.Dispatch(connected, connectedEvent{remote: "10.0.0.1:7891"})
	events.Dispatch(received, receivedEvent{length: 42})
	events.Dispatch(received, connectedEvent{remote: "wrong payload"})

	if !slices.Equal(remotes, []string{"10.0.0.1:7891"}) {
		t.Errorf("remotes = %v", remotes)
	}
	if !slices.Equal(lengths, []int{42}) {
		t.Errorf("lengths = %v", lengths)
	}
	if !slices.Equal(mismatched, []eventCode{received}) {
		t.Errorf("mismatched = %v", mismatched)
	}
}

func TestDispatcher_NilHandlerPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("On(nil) did not panic")
		}
	}()
	New[eventCode, int]().On(connected, nil)
}

func TestDispatcher_Concurrent(t *testing.T) {
	t.Parallel()

	events := New[eventCode, int]()
	var mu sync.Mutex
	total := 0
	events.On(received, func(n int) {
		mu.Lock()
		total += n
		mu.Unlock()
	})

	var group sync.WaitGroup
	for range 8 {
		group.Add(1)
		go func() {
			defer group.Done()
			for range 100 {
				events.Dispatch(received, 1)
			}
		}()
	}
	group.Wait()
	if total != 800 {
		t.Errorf("total = %d, want 800", total)
	}
}
