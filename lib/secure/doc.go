// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secure provides containers whose storage comes exclusively
// from the guarded arena in lib/secret.
//
// [Allocator] is the adapter every container draws memory through: it
// turns element counts into arena byte sizes and hands back typed
// slices. Nothing else allocates. Growth copies into a fresh arena
// region and releases the old one, which the arena verifies and wipes,
// so no stale copy of a secret is left behind in freed memory.
//
// The containers are:
//
//   - [Vector], a growable array of fixed-size elements;
//   - [String], a growable byte string;
//   - [Map], an ordered byte-string to byte-string map whose keys,
//     values, and index all live in the arena;
//   - [Value], a JSON document tree whose strings, numbers, and object
//     keys are [String] values, parsed by [ParseJSON] and encoded by
//     [Value.AppendTo].
//
// Element types are restricted to [Scalar] kinds. Arena memory is
// invisible to the garbage collector, so storing Go pointers in it
// would let the collector free what they reference. A [Value] keeps
// its tree structure on the Go heap for the same reason; only the
// contents are in the arena.
//
// None of the containers are safe for concurrent use. Every container
// must be closed; Close wipes and releases its storage and is
// idempotent. Slices returned by accessors alias arena memory and are
// invalidated by the next mutation or by Close.
package secure
