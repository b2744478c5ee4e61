// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"fmt"
)

// minimumGrowth is the smallest capacity, in bytes, a growing vector
// allocates. Each allocation costs two guard pages, so tiny steps are
// wasteful.
const minimumGrowth = 64

// Vector is a growable array whose elements live in arena memory. The
// zero value is an empty vector using the process-wide arena.
type Vector[T Scalar] struct {
	allocator Allocator[T]
	storage   []T
	length    int
}

// NewVector returns an empty vector with room for capacity elements.
func NewVector[T Scalar](allocator Allocator[T], capacity int) (*Vector[T], error) {
	vector := &Vector[T]{allocator: allocator}
	if err := vector.Reserve(capacity); err != nil {
		return nil, err
	}
	return vector, nil
}

// Len returns the number of elements.
func (v *Vector[T]) Len() int { return v.length }

// Cap returns the number of elements the vector holds without growing.
func (v *Vector[T]) Cap() int { return len(v.storage) }

// At returns element index. It panics if index is out of range.
func (v *Vector[T]) At(index int) T {
	return v.storage[:v.length][index]
}

// Set replaces element index. It panics if index is out of range.
func (v *Vector[T]) Set(index int, value T) {
	v.storage[:v.length][index] = value
}

// Slice returns the elements as a slice aliasing arena memory. Its
// capacity is clipped so appends cannot write past the length.
func (v *Vector[T]) Slice() []T {
	return v.storage[:v.length:v.length]
}

// Reserve ensures room for at least capacity elements in total.
func (v *Vector[T]) Reserve(capacity int) error {
	if capacity <= len(v.storage) {
		return nil
	}
	storage, err := v.allocator.Allocate(capacity)
	if err != nil {
		return fmt.Errorf("secure: growing vector to %d elements: %w", capacity, err)
	}
	copy(storage, v.storage[:v.length])
	v.release()
	v.storage = storage
	return nil
}

// grow makes room for extra more elements.
func (v *Vector[T]) grow(extra int) error {
	need := v.length + extra
	if need < v.length {
		return fmt.Errorf("secure: vector length overflows")
	}
	if need <= len(v.storage) {
		return nil
	}
	capacity := max(need, 2*len(v.storage), minimumGrowth/elementSize[T]())
	return v.Reserve(capacity)
}

// Append adds values to the end.
func (v *Vector[T]) Append(values ...T) error {
	if err := v.grow(len(values)); err != nil {
		return err
	}
	copy(v.storage[v.length:], values)
	v.length += len(values)
	return nil
}

// push appends values that are known to fit in the current capacity.
func (v *Vector[T]) push(values []T) {
	copy(v.storage[v.length:v.length+len(values)], values)
	v.length += len(values)
}

// Insert inserts values before element index, shifting later elements.
func (v *Vector[T]) Insert(index int, values ...T) error {
	if index < 0 || index > v.length {
		return fmt.Errorf("secure: insert index %d out of range [0,%d]", index, v.length)
	}
	if err := v.grow(len(values)); err != nil {
		return err
	}
	copy(v.storage[index+len(values):], v.storage[index:v.length])
	copy(v.storage[index:], values)
	v.length += len(values)
	return nil
}

// Delete removes elements [start, end) and zeroes the vacated tail.
func (v *Vector[T]) Delete(start, end int) {
	if start < 0 || end > v.length || start > end {
		panic(fmt.Sprintf("secure: delete range [%d,%d) out of range [0,%d]", start, end, v.length))
	}
	copy(v.storage[start:], v.storage[end:v.length])
	newLength := v.length - (end - start)
	clear(v.storage[newLength:v.length])
	v.length = newLength
}

// Truncate shortens the vector to length elements and zeroes the rest.
func (v *Vector[T]) Truncate(length int) {
	if length < 0 || length > v.length {
		panic(fmt.Sprintf("secure: truncate length %d out of range [0,%d]", length, v.length))
	}
	clear(v.storage[length:v.length])
	v.length = length
}

// Reset removes every element, zeroing them, but keeps the storage.
func (v *Vector[T]) Reset() { v.Truncate(0) }

// Clone returns an independent copy using the same allocator.
func (v *Vector[T]) Clone() (*Vector[T], error) {
	clone, err := NewVector(v.allocator, v.length)
	if err != nil {
		return nil, err
	}
	copy(clone.storage, v.storage[:v.length])
	clone.length = v.length
	return clone, nil
}

// Check verifies the guards around the vector's storage.
func (v *Vector[T]) Check() {
	v.allocator.Check(v.storage)
}

// Close wipes and releases the storage. The vector is empty afterwards
// and may be reused.
func (v *Vector[T]) Close() error {
	v.release()
	v.storage = nil
	v.length = 0
	return nil
}

func (v *Vector[T]) release() {
	if v.storage != nil {
		v.allocator.Deallocate(v.storage)
	}
}
