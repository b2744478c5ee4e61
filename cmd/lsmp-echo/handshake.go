// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/bureau-foundation/lsmp/lib/version"
	"github.com/bureau-foundation/lsmp/transport"
)

// hello is the optional first message in each direction. It is a CBOR
// value carried as an ordinary packet, so a peer that skips the
// handshake simply sees one more packet.
type hello struct {
	Protocol        string `cbor:"protocol"`
	Binary          string `cbor:"binary"`
	Version         string `cbor:"version"`
	MaxPayloadBytes uint64 `cbor:"max_payload_bytes"`
}

func localHello(maxPayloadBytes uint64) hello {
	return hello{
		Protocol:        version.Protocol,
		Binary:          binaryName,
		Version:         version.Short(),
		MaxPayloadBytes: maxPayloadBytes,
	}
}

// clientHandshake sends our hello, then reads the server's.
func clientHandshake(conn *transport.Conn, local hello) (hello, error) {
	if err := conn.SendValue(local); err != nil {
		return hello{}, fmt.Errorf("sending hello: %w", err)
	}
	return readHello(conn)
}

// serverHandshake reads the client's hello, then answers with ours.
func serverHandshake(conn *transport.Conn, local hello) (hello, error) {
	peer, err := readHello(conn)
	if err != nil {
		return hello{}, err
	}
	if err := conn.SendValue(local); err != nil {
		return hello{}, fmt.Errorf("sending hello: %w", err)
	}
	return peer, nil
}

func readHello(conn *transport.Conn) (hello, error) {
	var peer hello
	if err := conn.ReadValue(&peer); err != nil {
		return hello{}, fmt.Errorf("reading hello: %w", err)
	}
	if peer.Protocol != version.Protocol {
		return hello{}, fmt.Errorf("peer speaks %q, want %q", peer.Protocol, version.Protocol)
	}
	return peer, nil
}
