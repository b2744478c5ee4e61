// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport carries LSMP packets over stream connections.
//
// A [Conn] owns one net.Conn and exposes blocking packet I/O
// ([Conn.ReadPacket], [Conn.SendPacket]) alongside callback-based
// asynchronous I/O ([Conn.AsyncReadPacket], [Conn.AsyncSendPacket],
// [Conn.CancelAsync]). Every frame is the four-byte marker "LSMP", a
// little-endian 64-bit payload length, and the payload; see
// lib/packet. Received payloads are returned in [secret.Buffer] values
// allocated from the guarded arena, so packet contents never sit in
// ordinary heap memory.
//
// Reads and sends are independent directions. Within a direction:
//
//   - blocking calls serialize on a per-direction lock, so whole frames
//     never interleave;
//   - at most one asynchronous operation is outstanding, and issuing a
//     second one fails with a reentrancy error delivered synchronously
//     to its callback;
//   - a blocking call made while an asynchronous operation is pending
//     fails with a reentrancy error without touching the socket.
//
// Reads are assembled by one explicit state machine (awaiting marker,
// awaiting length, awaiting payload) driven by partial read
// completions. Both the blocking and asynchronous paths use it.
//
// The package fails closed. A marker mismatch, an oversized declared
// length, a stream error in the middle of a frame, or a call to
// CancelAsync with an operation pending leaves the stream position
// unknown; the Conn then refuses every further packet operation with
// [ErrDesynchronized] until it is closed. There are no read timeouts:
// callers needing a deadline pair a timer with CancelAsync.
//
// Failures are reported as [*Error] carrying a [Kind]. Use [IsFraming], [IsReentrancy], and [IsTransport] to
// classify them, and errors.Is with the package sentinels or the
// lib/packet sentinels for specific causes.
//
// A [Listener] binds a TCP address and produces Conns from blocking
// ([Listener.Accept]), callback ([Listener.AcceptAsync]), or
// serve-loop ([Listener.Serve]) acceptance. [Dial] opens outbound
// connections. [Conn.SendValue] and [Conn.ReadValue] exchange
// CBOR-encoded values as packet payloads.
package transport
