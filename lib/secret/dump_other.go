// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package secret

// No portable dump exclusion outside Linux; MAP_NOCORE and friends are
// not exposed uniformly by golang.org/x/sys.
func excludeFromDump([]byte) error { return nil }

func memlockLimit() (uint64, bool) { return 0, false }
