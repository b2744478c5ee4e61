// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/subtle"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// Buffer holds sensitive data in guarded arena memory: locked against
// swapping, excluded from core dumps, bracketed by inaccessible canary
// pages, and wiped on close. The bytes never live on the Go heap.
//
// A Buffer must not be copied after creation. Use Close to release the
// memory when the secret is no longer needed. After Close, any access
// to the buffer's contents panics.
type Buffer struct {
	mu     sync.Mutex
	arena  *Arena
	data   []byte
	closed bool
}

// New allocates a zero-filled buffer of the given size from the
// default arena. Size zero yields an empty but valid buffer.
//
// The caller must call Close when the secret is no longer needed.
func New(size int) (*Buffer, error) {
	return defaultArena.NewBuffer(size)
}

// NewBuffer allocates a zero-filled buffer of the given size from a.
func (a *Arena) NewBuffer(size int) (*Buffer, error) {
	data, err := a.Allocate(size)
	if err != nil {
		return nil, err
	}
	return &Buffer{arena: a, data: data}, nil
}

// NewFromBytes creates a secret buffer from existing data. The source
// bytes are copied into guarded memory and then zeroed in place, so
// the caller's original slice no longer holds the secret.
func NewFromBytes(source []byte) (*Buffer, error) {
	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	clear(data)
	runtime.KeepAlive(data)
}

// Bytes returns the secret data. The returned slice points directly
// into guarded memory; do not hold references to it beyond the lifetime
// of the Buffer. Panics if the buffer has been closed.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data
}

// String returns the secret data as a string. The string is a heap
// copy (Go strings are immutable and must live on the heap), so use it
// only at API boundaries that require strings. Prefer Bytes.
//
// Panics if the buffer has been closed.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}
	return string(b.data)
}

// Len returns the size of the secret data.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.data)
}

// Equal reports whether the buffer holds exactly other, in time that
// depends only on the lengths.
func (b *Buffer) Equal(other []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}
	if len(b.data) != len(other) {
		return false
	}
	return subtle.ConstantTimeCompare(b.data, other) == 1
}

// WriteTo writes the secret to w directly from guarded memory.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	data := b.Bytes()
	written, err := w.Write(data)
	if err == nil && written != len(data) {
		err = io.ErrShortWrite
	}
	return int64(written), err
}

// Check verifies the buffer's guard canaries and terminates the process
// if either was overwritten.
func (b *Buffer) Check() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: check of closed buffer")
	}
	b.arena.Check(b.data)
}

// Close verifies the guards, wipes the memory, and returns it to the
// operating system. Close is idempotent and always returns nil; a
// damaged guard terminates the process instead of returning.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.arena.Free(b.data)
	b.data = nil
	return nil
}

// GoString keeps fmt's %#v from printing the contents.
func (b *Buffer) GoString() string {
	return fmt.Sprintf("secret.Buffer{len: %d}", b.Len())
}
