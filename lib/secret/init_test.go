// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import "testing"

func TestInitialize_Idempotent(t *testing.T) {
	first := Initialize(InitOptions{})
	if first != nil {
		t.Fatalf("Initialize failed: %v", first)
	}

	// Options on later calls are ignored.
	second := Initialize(InitOptions{RequireLock: true})
	if second != first {
		t.Errorf("second Initialize returned %v, want %v", second, first)
	}
	if defaultArena.requireLock.Load() {
		t.Error("second Initialize must not change the arena policy")
	}
}
