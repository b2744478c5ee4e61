// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "fmt"

// exitUsage is the conventional exit status for command line misuse.
const exitUsage = 2

// usageError reports bad flags or arguments. main exits with
// [exitUsage] when run returns one.
type usageError struct {
	err error
}

func usage(format string, args ...any) *usageError {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// ExitCode implements the interface main checks on returned errors.
func (e *usageError) ExitCode() int { return exitUsage }
