// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package secret

import (
	"errors"

	"golang.org/x/sys/unix"
)

// mmapPlatform allocates anonymous private mappings outside the Go
// heap. The garbage collector never scans, copies, or relocates them.
type mmapPlatform struct {
	pageSize int
}

func defaultPlatform() Platform {
	return mmapPlatform{pageSize: unix.Getpagesize()}
}

func (p mmapPlatform) PageSize() int { return p.pageSize }

func (mmapPlatform) Guarded() bool { return true }

func (mmapPlatform) Map(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
}

func (mmapPlatform) Protect(region []byte, access Access) error {
	prot := unix.PROT_NONE
	switch access {
	case AccessRead:
		prot = unix.PROT_READ
	case AccessReadWrite:
		prot = unix.PROT_READ | unix.PROT_WRITE
	}
	return unix.Mprotect(region, prot)
}

// Lock attempts both mlock and dump exclusion even when the first one
// fails; the returned error joins whatever went wrong.
func (mmapPlatform) Lock(region []byte) error {
	return errors.Join(unix.Mlock(region), excludeFromDump(region))
}

func (mmapPlatform) Unlock(region []byte) error {
	return unix.Munlock(region)
}

func (mmapPlatform) Unmap(region []byte) error {
	return unix.Munmap(region)
}
