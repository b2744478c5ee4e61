// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package packet defines the LSMP wire frame and its pure encode and
// decode logic. It performs no I/O; the transport package drives it
// over a byte stream.
//
// A frame is a 12-byte header followed by the payload:
//
//	+-----------------+--------------------------+-----------------+
//	| magic "LSMP" 4B | length uint64 LE 8B      | payload length B |
//	+-----------------+--------------------------+-----------------+
//
// The length always equals the exact payload byte count and is never
// inferred from the stream. There is no checksum and no compression.
// The length is little-endian regardless of host byte order.
//
// A magic mismatch ([ErrMissingMarker]) is a framing error: the stream
// is out of step with the protocol and must not be trusted again until
// its owner discards or explicitly resynchronizes it.
//
// The framer itself places no bound on the declared length. [Limits]
// is the bound the layer above applies before allocating for an
// incoming payload; transport enforces it on every connection.
package packet
