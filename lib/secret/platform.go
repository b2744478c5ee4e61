// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"os"
)

// Access is the protection level applied to a region of arena memory.
type Access int

const (
	// AccessNone makes the pages fault on any read or write.
	AccessNone Access = iota
	// AccessRead permits reads only.
	AccessRead
	// AccessReadWrite permits reads and writes.
	AccessReadWrite
)

func (a Access) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessRead:
		return "read"
	case AccessReadWrite:
		return "read-write"
	default:
		return "unknown"
	}
}

// Platform abstracts the operating system primitives the arena needs.
// Every region passed to Protect, Lock, Unlock, and Unmap is either a
// whole mapping returned by Map or a page-aligned subslice of one.
type Platform interface {
	// PageSize returns the virtual memory page size in bytes.
	PageSize() int

	// Guarded reports whether Map returns page-aligned memory that
	// Protect can act on. When false, the arena skips padding and
	// guard-page protection but still writes and checks canaries.
	Guarded() bool

	// Map returns size bytes of fresh read-write memory.
	Map(size int) ([]byte, error)

	// Protect changes the access permissions of region.
	Protect(region []byte, access Access) error

	// Lock pins region in physical memory and, where the kernel
	// supports it, excludes it from core dumps.
	Lock(region []byte) error

	// Unlock reverses Lock.
	Unlock(region []byte) error

	// Unmap releases a mapping returned by Map.
	Unmap(region []byte) error
}

// ErrLockUnsupported is returned by platforms that cannot pin memory.
var ErrLockUnsupported = errors.New("secret: memory locking not supported on this platform")

// heapPlatform is the reduced-protection fallback for systems without
// anonymous mmap in golang.org/x/sys/unix. Memory comes from the Go
// heap, so there is no alignment, no page protection, and no locking.
// Canaries are still written and verified on free.
type heapPlatform struct {
	pageSize int
}

// NewHeapPlatform returns the reduced-protection fallback platform.
// Allocations made through it are canary-checked and wiped on free but
// are not guard-paged, not locked, and not excluded from core dumps.
func NewHeapPlatform() Platform {
	return heapPlatform{pageSize: os.Getpagesize()}
}

func (p heapPlatform) PageSize() int { return p.pageSize }

func (heapPlatform) Guarded() bool { return false }

func (heapPlatform) Map(size int) ([]byte, error) {
	return make([]byte, size), nil
}

func (heapPlatform) Protect([]byte, Access) error { return nil }

func (heapPlatform) Lock([]byte) error { return ErrLockUnsupported }

func (heapPlatform) Unlock([]byte) error { return nil }

func (heapPlatform) Unmap([]byte) error { return nil }
