// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for LSMP packages.
//
// [RequireReceive], [RequireNoReceive], [RequireSend], and
// [RequireClosed] encapsulate the timeout safety valve pattern (select
// with time.After fallback) so that tests of callbacks and goroutines
// never hang and never need direct time.After calls. [Eventually] polls
// a condition for state that has no channel to wait on.
//
// [TCPPair] opens a loopback TCP connection for transport tests that
// need real socket behavior. [Pattern] produces deterministic payload
// bytes.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no LSMP-internal dependencies.
package testutil
