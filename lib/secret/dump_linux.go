// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import "golang.org/x/sys/unix"

func excludeFromDump(region []byte) error {
	return unix.Madvise(region, unix.MADV_DONTDUMP)
}

// memlockLimit returns the soft RLIMIT_MEMLOCK in bytes.
func memlockLimit() (uint64, bool) {
	var limit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &limit); err != nil {
		return 0, false
	}
	return limit.Cur, true
}
