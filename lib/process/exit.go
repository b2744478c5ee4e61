// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"os"
)

// ExitCorruption is the exit status used by [Abort]. It matches the
// status a shell reports for a process killed by SIGABRT (128+6).
const ExitCorruption = 134

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run() where the structured logger may not be
// initialized.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// Abort writes "fatal: message" to stderr and exits immediately with
// [ExitCorruption]. Deferred functions do not run.
func Abort(message string) {
	fmt.Fprintf(os.Stderr, "fatal: %s\n", message)
	os.Exit(ExitCorruption)
}
