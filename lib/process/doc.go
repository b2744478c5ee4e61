// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process centralizes the two legitimate raw-stderr exits in
// the repository:
//
//   - [Fatal] reports an error from a binary's run() when the structured
//     logger may not be initialized, and exits with status 1.
//   - [Abort] terminates the process after an unrecoverable integrity
//     failure, such as a corrupted guard canary in lib/secret. It exits
//     with [ExitCorruption] and never returns. It is deliberately not a
//     panic: panics can be recovered, and nothing may continue running
//     once secure memory has been overrun.
//
// This package has no repository-internal dependencies.
package process
