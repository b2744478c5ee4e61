// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"fmt"
	"math"
	"unsafe"

	"github.com/bureau-foundation/lsmp/lib/secret"
)

// Scalar is the set of element types that may live in arena memory:
// fixed-size values containing no pointers.
type Scalar interface {
	~bool | ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 |
		~int64 | ~uint64 | ~int | ~uint | ~float32 | ~float64
}

// Allocator obtains typed storage from an arena. The zero value uses
// the process-wide arena.
type Allocator[T Scalar] struct {
	arena *secret.Arena
}

// NewAllocator returns an allocator drawing from arena. Nil means
// secret.Default().
func NewAllocator[T Scalar](arena *secret.Arena) Allocator[T] {
	return Allocator[T]{arena: arena}
}

// Rebind returns an allocator for another element type that uses the
// same arena as a.
func Rebind[U, T Scalar](a Allocator[T]) Allocator[U] {
	return Allocator[U]{arena: a.arena}
}

// Arena returns the arena a allocates from.
func (a Allocator[T]) Arena() *secret.Arena {
	if a.arena == nil {
		return secret.Default()
	}
	return a.arena
}

func elementSize[T Scalar]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Allocate returns n zeroed elements. The slice's length and capacity
// are both n, and it must be released with Deallocate.
func (a Allocator[T]) Allocate(n int) ([]T, error) {
	size := elementSize[T]()
	if n < 0 {
		return nil, fmt.Errorf("secure: negative element count %d", n)
	}
	if n > math.MaxInt/size {
		return nil, fmt.Errorf("secure: %d elements of %d bytes overflow", n, size)
	}
	region, err := a.Arena().Allocate(n * size)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(region))), n), nil
}

// Deallocate verifies, wipes, and releases storage returned by
// Allocate. elements may have been resliced to a shorter length but
// must start where Allocate's result started and keep its capacity.
func (a Allocator[T]) Deallocate(elements []T) {
	if unsafe.SliceData(elements) == nil {
		return
	}
	a.Arena().Free(regionOf(elements))
}

// Check verifies the guards around storage returned by Allocate.
func (a Allocator[T]) Check(elements []T) {
	if unsafe.SliceData(elements) == nil {
		return
	}
	a.Arena().Check(regionOf(elements))
}

// Equal reports whether memory allocated by a may be released by b.
// Allocators over the same arena are interchangeable.
func (a Allocator[T]) Equal(b Allocator[T]) bool {
	return a.Arena() == b.Arena()
}

// Equivalent is Equal across element types.
func Equivalent[T, U Scalar](a Allocator[T], b Allocator[U]) bool {
	return a.Arena() == b.Arena()
}

// regionOf returns the byte view of the whole allocation behind
// elements.
func regionOf[T Scalar](elements []T) []byte {
	elements = elements[:cap(elements)]
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(elements))), len(elements)*elementSize[T]())
}
