// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// minimumLockLimit is the RLIMIT_MEMLOCK below which Initialize warns.
// Every allocation locks at least three pages, so a 64 KiB limit is
// exhausted after a handful of small secrets.
const minimumLockLimit = 1 << 20

// InitOptions configures [Initialize].
type InitOptions struct {
	// Logger becomes the default arena's logger when non-nil.
	Logger *slog.Logger

	// RequireLock makes allocations from the default arena fail when
	// memory cannot be locked.
	RequireLock bool
}

var (
	initOnce  sync.Once
	initError error
)

// Initialize prepares the process for handling secrets. It runs once;
// later calls return the first result without doing anything.
//
// It applies options to the default arena, confirms that the system
// random source produces bytes, and warns when RLIMIT_MEMLOCK is too
// small for locking to succeed. The returned error reports a broken
// random source. The arena works regardless, but guarantees supplied
// by cryptographic layers built on top of it do not hold.
//
// Call Initialize from main before the first allocation.
func Initialize(options InitOptions) error {
	initOnce.Do(func() {
		initError = initialize(options)
	})
	return initError
}

func initialize(options InitOptions) error {
	if options.Logger != nil {
		defaultArena.SetLogger(options.Logger)
	}
	defaultArena.requireLock.Store(options.RequireLock)
	logger := defaultArena.log()

	if limit, ok := memlockLimit(); ok && limit < minimumLockLimit {
		logger.Warn("secret: RLIMIT_MEMLOCK is low, secure memory may be swappable",
			"limit_bytes", limit,
			"recommended_bytes", minimumLockLimit)
	}
	if !defaultArena.Guarded() {
		logger.Warn("secret: platform has no guard page support, using reduced protection")
	}

	sample := make([]byte, 32)
	defer Zero(sample)
	if _, err := io.ReadFull(rand.Reader, sample); err != nil {
		return fmt.Errorf("secret: system random source unavailable: %w", err)
	}
	return nil
}
