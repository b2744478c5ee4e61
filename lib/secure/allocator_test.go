// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"testing"

	"github.com/bureau-foundation/lsmp/lib/secret"
)

// testAllocator returns an allocator over a private arena so that each
// test can assert on its own statistics.
func testAllocator(t *testing.T) (Allocator[byte], *secret.Arena) {
	t.Helper()
	arena := secret.NewArena(secret.Default().Platform(), secret.ArenaOptions{})
	return NewAllocator[byte](arena), arena
}

func requireNoLiveBytes(t *testing.T, arena *secret.Arena) {
	t.Helper()
	if stats := arena.Stats(); stats.LiveBytes != 0 || stats.Allocations != stats.Frees {
		t.Fatalf("arena leaked: %+v", stats)
	}
}

func TestAllocator_TypedAllocation(t *testing.T) {
	t.Parallel()

	bytesAllocator, arena := testAllocator(t)
	words := Rebind[uint64](bytesAllocator)

	elements, err := words.Allocate(10)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if len(elements) != 10 || cap(elements) != 10 {
		t.Fatalf("len=%d cap=%d", len(elements), cap(elements))
	}
	for index, value := range elements {
		if value != 0 {
			t.Fatalf("element %d = %d, want 0", index, value)
		}
	}
	if live := arena.Stats().LiveBytes; live != 80 {
		t.Errorf("LiveBytes = %d, want 80", live)
	}

	for index := range elements {
		elements[index] = ^uint64(index)
	}
	words.Check(elements)
	words.Deallocate(elements[:3])
	requireNoLiveBytes(t, arena)
}

func TestAllocator_ZeroAndNegative(t *testing.T) {
	t.Parallel()

	allocator, arena := testAllocator(t)
	empty, err := allocator.Allocate(0)
	if err != nil {
		t.Fatalf("Allocate(0): %v", err)
	}
	allocator.Deallocate(empty)
	allocator.Deallocate(nil)
	requireNoLiveBytes(t, arena)

	if _, err := allocator.Allocate(-1); err == nil {
		t.Error("Allocate(-1) should fail")
	}
	if _, err := Rebind[int64](allocator).Allocate(int(^uint(0) >> 2)); err == nil {
		t.Error("overflowing Allocate should fail")
	}
}

func TestAllocator_Equality(t *testing.T) {
	t.Parallel()

	var zero Allocator[byte]
	explicit := NewAllocator[byte](secret.Default())
	if !zero.Equal(explicit) {
		t.Error("zero-value allocator differs from the default arena allocator")
	}
	if !Equivalent(zero, Rebind[float64](explicit)) {
		t.Error("rebinding changed the arena")
	}

	private, _ := testAllocator(t)
	if zero.Equal(private) {
		t.Error("allocators over different arenas compare equal")
	}
}
