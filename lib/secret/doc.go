// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides guarded memory for sensitive data such as
// keys, tokens, and message plaintext.
//
// [Arena] is the page-granular allocator underneath everything. Each
// allocation gets an anonymous mapping outside the Go heap laid out as
// leading guard page, user data, padding to a page boundary, trailing
// guard page. The mapping is locked against swap (mlock), excluded from
// core dumps (MADV_DONTDUMP on Linux), and zero-filled. Both guard
// pages are filled with [CanaryByte] and mapped with no access, so a
// linear overrun faults at once. On [Arena.Free] the guards are made
// readable and compared against the canary; any mismatch logs and
// terminates the process through lib/process.Abort. A corrupted secure
// region means confidentiality is already lost, and nothing may keep
// running after that, so corruption is never reported as an error.
// After a clean check the whole mapping is wiped, unlocked, and
// unmapped.
//
// OS calls sit behind [Platform] (map, protect, lock, unlock, unmap).
// The mmap platform is used on Linux, macOS, and the BSDs. Elsewhere
// [NewHeapPlatform] provides reduced protection: canaries are still
// written and verified, but there is no padding, no page protection,
// and no locking. The arena logs that downgrade once.
//
// Memory locking is best effort by default. [Initialize] (or
// [ArenaOptions].RequireLock) turns a failed mlock into an allocation
// error instead.
//
// [Buffer] is the owned, closeable box for one secret:
//
//   - [New] -- allocates a zero-filled buffer of a given size
//   - [NewFromBytes] -- copies into guarded memory, zeros the source
//   - [NewFromReader] -- reads exactly n bytes straight into guarded memory
//   - [ReadFromPath] -- reads a file or stdin, trims whitespace
//
// Access via [Buffer.Bytes] (slice into guarded memory) or
// [Buffer.String] (heap copy for API boundaries). [Buffer.Equal] uses
// constant-time comparison. [Buffer.WriteTo] implements io.WriterTo.
// After Close, any access panics. Close is idempotent.
//
// The arena takes no locks: calls on different regions are safe from
// any goroutine, calls on the same region are the caller's to
// serialize.
//
// Depends on golang.org/x/sys/unix and lib/process.
package secret
