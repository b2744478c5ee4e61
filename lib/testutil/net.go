// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"testing"
)

// TCPPair returns both ends of a loopback TCP connection. Both are
// closed when the test completes.
func TCPPair(t testing.TB) (client, server net.Conn) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening on loopback: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	acceptErr := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			acceptErr <- err
			return
		}
		accepted <- conn
	}()

	client, err = net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("dialing loopback listener: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	select {
	case server = <-accepted:
	case err := <-acceptErr:
		t.Fatalf("accepting loopback connection: %v", err)
	}
	t.Cleanup(func() { server.Close() })
	return client, server
}

// Pattern returns n deterministic bytes that differ across offsets and
// seeds, for payloads whose corruption or truncation must be visible.
func Pattern(n int, seed byte) []byte {
	data := make([]byte, n)
	state := uint32(seed)*2654435761 + 1
	for index := range data {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		data[index] = byte(state)
	}
	return data
}
