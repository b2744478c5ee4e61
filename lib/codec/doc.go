// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR configuration for structured LSMP
// payloads.
//
// LSMP frames carry opaque bytes. When both ends exchange structured
// values (handshakes, control messages, application records) they
// encode them with this package so every producer emits identical bytes
// for identical data. The encoder uses Core Deterministic Encoding (RFC
// 8949 §4.2). The decoder rejects duplicate map keys and deep nesting,
// since payloads come from the network.
//
// For ordinary values:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For values that must not linger on the heap, encode straight into a
// [secret.Buffer] and send its bytes:
//
//	buffer, err := codec.MarshalToBuffer(value)
//	defer buffer.Close()
//	err = conn.SendPacket(buffer.Bytes())
//
// Struct types use `cbor` tags. fxamacker/cbor falls back to `json`
// tags when no `cbor` tag is present; never put both on one field.
package codec
