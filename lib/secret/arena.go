// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/bureau-foundation/lsmp/lib/process"
)

const (
	// GarbageByte fills fresh and released arena memory. User memory is
	// therefore zero-initialized.
	GarbageByte byte = 0x00

	// CanaryByte fills both guard regions of every allocation.
	CanaryByte byte = 0xFF
)

// Arena is the guarded allocator behind every secure container. Each
// allocation is laid out as
//
//	+---------------+-----------+---------+----------------+
//	| leading guard | user data | padding | trailing guard |
//	+---------------+-----------+---------+----------------+
//
// where each guard is one page filled with [CanaryByte] and, on guarded
// platforms, mapped with no access so that any overrun faults at the
// instruction that causes it. Padding rounds the user region up to a
// page boundary so the trailing guard starts on one.
//
// An Arena holds no per-allocation state and takes no locks. Calls on
// different regions may run concurrently from any goroutine; calls on
// the same region must be serialized by the caller.
type Arena struct {
	platform Platform
	pageSize int
	guarded  bool

	logger      atomic.Pointer[slog.Logger]
	requireLock atomic.Bool

	// abort terminates the process on canary corruption. Tests replace
	// it to observe corruption without exiting.
	abort func(message string)

	degradedOnce sync.Once

	allocations  atomic.Uint64
	frees        atomic.Uint64
	liveBytes    atomic.Int64
	lockFailures atomic.Uint64
}

// ArenaOptions configures a new [Arena].
type ArenaOptions struct {
	// Logger receives diagnostics. Nil means slog.Default() at the time
	// of each log call.
	Logger *slog.Logger

	// RequireLock makes Allocate fail when the platform cannot lock a
	// new region, instead of continuing with swappable memory.
	RequireLock bool
}

// Stats is a snapshot of arena counters.
type Stats struct {
	Allocations  uint64
	Frees        uint64
	LiveBytes    int64
	LockFailures uint64
}

var defaultArena = NewArena(defaultPlatform(), ArenaOptions{})

// Default returns the process-wide arena backed by the best platform
// available on this operating system.
func Default() *Arena { return defaultArena }

// Allocate allocates size bytes from the default arena.
func Allocate(size int) ([]byte, error) { return defaultArena.Allocate(size) }

// Free releases a region obtained from [Allocate].
func Free(region []byte) { defaultArena.Free(region) }

// Check verifies the guards of a region obtained from [Allocate].
func Check(region []byte) { defaultArena.Check(region) }

// NewArena returns an arena drawing memory from platform.
func NewArena(platform Platform, options ArenaOptions) *Arena {
	arena := &Arena{
		platform: platform,
		pageSize: platform.PageSize(),
		guarded:  platform.Guarded(),
		abort:    process.Abort,
	}
	if options.Logger != nil {
		arena.logger.Store(options.Logger)
	}
	arena.requireLock.Store(options.RequireLock)
	return arena
}

// SetLogger replaces the arena's logger. Nil restores slog.Default().
func (a *Arena) SetLogger(logger *slog.Logger) {
	a.logger.Store(logger)
}

// Guarded reports whether allocations from this arena get
// inaccessible guard pages.
func (a *Arena) Guarded() bool { return a.guarded }

// Platform returns the platform the arena draws memory from.
func (a *Arena) Platform() Platform { return a.platform }

// PageSize returns the size of each guard region.
func (a *Arena) PageSize() int { return a.pageSize }

// Stats returns a snapshot of the arena counters.
func (a *Arena) Stats() Stats {
	return Stats{
		Allocations:  a.allocations.Load(),
		Frees:        a.frees.Load(),
		LiveBytes:    a.liveBytes.Load(),
		LockFailures: a.lockFailures.Load(),
	}
}

func (a *Arena) log() *slog.Logger {
	if logger := a.logger.Load(); logger != nil {
		return logger
	}
	return slog.Default()
}

// layout describes one allocation. Offsets are relative to the base of
// the mapping.
type layout struct {
	size    int
	guard   int
	padding int
	total   int
}

func (l layout) trailingStart() int { return l.guard + l.size + l.padding }

func (a *Arena) layoutFor(size int) layout {
	padding := 0
	if a.guarded {
		if remainder := size % a.pageSize; remainder != 0 {
			padding = a.pageSize - remainder
		}
	}
	return layout{
		size:    size,
		guard:   a.pageSize,
		padding: padding,
		total:   size + padding + 2*a.pageSize,
	}
}

// Allocate returns a zero-filled region of exactly size bytes whose
// capacity equals its length. The region must be released with Free,
// passing the same slice: the layout is recomputed from its address and
// length, so a resliced region is a contract violation.
//
// Size zero is valid and still reserves both guard pages.
func (a *Arena) Allocate(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("secret: allocation size must not be negative, got %d", size)
	}
	if size > math.MaxInt-3*a.pageSize {
		return nil, fmt.Errorf("secret: allocation size %d overflows the guarded layout", size)
	}

	l := a.layoutFor(size)
	allocation, err := a.platform.Map(l.total)
	if err != nil {
		return nil, fmt.Errorf("secret: mapping %d bytes: %w", l.total, err)
	}
	if !a.guarded {
		a.degradedOnce.Do(func() {
			a.log().Warn("secret: guard pages unavailable on this platform, canaries are checked on free only")
		})
	}

	if err := a.platform.Lock(allocation); err != nil {
		a.lockFailures.Add(1)
		if a.requireLock.Load() {
			if unmapErr := a.platform.Unmap(allocation); unmapErr != nil {
				a.log().Debug("secret: unmapping after lock failure", "error", unmapErr)
			}
			return nil, fmt.Errorf("secret: locking %d bytes: %w", l.total, err)
		}
		a.log().Debug("secret: memory lock failed, continuing with swappable memory",
			"bytes", l.total, "error", err)
	}

	fill(allocation, GarbageByte)
	fill(allocation[:l.guard], CanaryByte)
	fill(allocation[l.trailingStart():], CanaryByte)
	a.protectGuards(allocation, l, AccessNone)

	a.allocations.Add(1)
	a.liveBytes.Add(int64(size))
	return userRegion(allocation, l), nil
}

// userRegion returns the user bytes of a mapping. The pointer is built
// from the base so a zero-size region still starts after the leading
// guard; a zero-capacity reslice would keep the base pointer instead.
func userRegion(allocation []byte, l layout) []byte {
	data := unsafe.Add(unsafe.Pointer(unsafe.SliceData(allocation)), l.guard)
	return unsafe.Slice((*byte)(data), l.size)
}

// Free verifies both guards of region and releases it. A damaged guard
// terminates the process. On success the whole mapping, guards
// included, is overwritten with [GarbageByte], unlocked, and unmapped.
// Freeing a nil slice does nothing.
func (a *Arena) Free(region []byte) {
	if unsafe.SliceData(region) == nil {
		return
	}
	l := a.layoutFor(len(region))
	allocation := allocationOf(region, l)

	a.protectGuards(allocation, l, AccessRead)
	if !guardsIntact(allocation, l) {
		a.corrupted("free", l)
		return
	}

	if a.guarded {
		if err := a.platform.Protect(allocation, AccessReadWrite); err != nil {
			a.log().Debug("secret: restoring write access before wipe", "error", err)
		}
	}
	fill(allocation, GarbageByte)

	if err := a.platform.Unlock(allocation); err != nil && a.guarded {
		a.log().Debug("secret: memory unlock failed", "bytes", l.total, "error", err)
	}
	if err := a.platform.Unmap(allocation); err != nil {
		a.log().Debug("secret: unmap failed", "bytes", l.total, "error", err)
	}

	a.frees.Add(1)
	a.liveBytes.Add(-int64(l.size))
}

// Check verifies both guards of a live region without releasing it. A
// damaged guard terminates the process, exactly as in Free.
func (a *Arena) Check(region []byte) {
	if unsafe.SliceData(region) == nil {
		return
	}
	l := a.layoutFor(len(region))
	allocation := allocationOf(region, l)

	a.protectGuards(allocation, l, AccessRead)
	intact := guardsIntact(allocation, l)
	a.protectGuards(allocation, l, AccessNone)
	if !intact {
		a.corrupted("check", l)
	}
}

func (a *Arena) protectGuards(allocation []byte, l layout, access Access) {
	if !a.guarded {
		return
	}
	if err := a.platform.Protect(allocation[:l.guard], access); err != nil {
		a.log().Debug("secret: protecting leading guard", "access", access.String(), "error", err)
	}
	if err := a.platform.Protect(allocation[l.trailingStart():], access); err != nil {
		a.log().Debug("secret: protecting trailing guard", "access", access.String(), "error", err)
	}
}

func (a *Arena) corrupted(operation string, l layout) {
	a.log().Error("secret: memory canary corrupted",
		"operation", operation,
		"size", l.size,
		"guard_bytes", l.guard)
	a.abort("secret: memory canary corrupted")
}

// allocationOf reconstructs the whole mapping around a user region.
func allocationOf(region []byte, l layout) []byte {
	base := unsafe.Add(unsafe.Pointer(unsafe.SliceData(region)), -l.guard)
	return unsafe.Slice((*byte)(base), l.total)
}

func guardsIntact(allocation []byte, l layout) bool {
	return filledWith(allocation[:l.guard], CanaryByte) &&
		filledWith(allocation[l.trailingStart():], CanaryByte)
}

func filledWith(region []byte, value byte) bool {
	for _, b := range region {
		if b != value {
			return false
		}
	}
	return true
}

func fill(region []byte, value byte) {
	if value == 0 {
		clear(region)
	} else {
		for index := range region {
			region[index] = value
		}
	}
	runtime.KeepAlive(region)
}
