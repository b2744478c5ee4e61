// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/lsmp/lib/packet"
	"github.com/bureau-foundation/lsmp/lib/secret"
	"github.com/bureau-foundation/lsmp/lib/testutil"
	"github.com/bureau-foundation/lsmp/transport"
)

const testTimeout = 5 * time.Second

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startServer runs handler behind a loopback listener until the test
// ends and returns the listener address.
func startServer(t *testing.T, handler func(context.Context, *transport.Listener) error) string {
	t.Helper()
	listener, err := transport.Listen("127.0.0.1:0", transport.Options{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- handler(ctx, listener) }()
	t.Cleanup(func() {
		cancel()
		if err := testutil.RequireReceive(t, done, testTimeout, "server did not stop"); err != nil {
			t.Errorf("server returned %v", err)
		}
	})
	return listener.Address()
}

func startEchoServer(t *testing.T, handshake bool) string {
	t.Helper()
	server := &echoServer{
		events:    newEvents(discardLogger()),
		handshake: handshake,
		local:     localHello(1 << 20),
	}
	return startServer(t, server.serve)
}

func dialClient(t *testing.T, address string, async, handshake bool) *echoClient {
	t.Helper()
	conn, err := transport.Dial(context.Background(), address, transport.Options{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &echoClient{
		conn:      conn,
		events:    newEvents(discardLogger()),
		async:     async,
		handshake: handshake,
		local:     localHello(1 << 20),
	}
}

func newPayload(t *testing.T, data []byte) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromBytes(append([]byte(nil), data...))
	if err != nil {
		t.Fatalf("NewFromBytes failed: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

func TestEcho_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, test := range []struct {
		name      string
		async     bool
		handshake bool
	}{
		{name: "sync"},
		{name: "async", async: true},
		{name: "sync with handshake", handshake: true},
		{name: "async with handshake", async: true, handshake: true},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			address := startEchoServer(t, test.handshake)
			client := dialClient(t, address, test.async, test.handshake)

			payload := newPayload(t, testutil.Pattern(3000, 7))
			verified, err := client.run(payload, 4)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if verified != 4 {
				t.Errorf("verified %d echoes, want 4", verified)
			}
		})
	}
}

func TestEcho_EmptyPayload(t *testing.T) {
	t.Parallel()

	for _, async := range []bool{false, true} {
		name := "sync"
		if async {
			name = "async"
		}
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			address := startEchoServer(t, false)
			client := dialClient(t, address, async, false)

			verified, err := client.run(newPayload(t, nil), 3)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if verified != 3 {
				t.Errorf("verified %d echoes, want 3", verified)
			}
		})
	}
}

func TestEcho_ServerSurvivesRawEmptyFrame(t *testing.T) {
	t.Parallel()

	address := startEchoServer(t, false)
	conn, err := net.Dial("tcp", address)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	// "LSMP" followed by a zero length and no payload.
	frame := packet.Encode(nil)
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(testTimeout))
	echoed := make([]byte, len(frame))
	if _, err := io.ReadFull(conn, echoed); err != nil {
		t.Fatalf("reading echo: %v", err)
	}
	if !bytes.Equal(echoed, frame) {
		t.Fatalf("echo = %x, want %x", echoed, frame)
	}

	// The server is still serving after releasing the empty payload.
	client := dialClient(t, address, false, false)
	if _, err := client.run(newPayload(t, []byte("after")), 1); err != nil {
		t.Fatalf("run after empty frame failed: %v", err)
	}
}

func TestEcho_ServerRejectsMissingHandshake(t *testing.T) {
	t.Parallel()

	// A server that expects a hello reads the client's first raw packet
	// as one and rejects it, then closes the session.
	address := startEchoServer(t, true)
	client := dialClient(t, address, false, false)

	payload := newPayload(t, []byte("not a hello"))
	if _, err := client.run(payload, 1); err == nil {
		t.Fatal("expected failure when the server expects a handshake")
	}
}

func TestEcho_DetectsMismatch(t *testing.T) {
	t.Parallel()

	address := startServer(t, func(ctx context.Context, listener *transport.Listener) error {
		return listener.Serve(ctx, func(conn *transport.Conn) {
			defer conn.Close()
			payload, err := conn.ReadPacket()
			if err != nil {
				return
			}
			tampered := append([]byte(nil), payload.Bytes()...)
			payload.Close()
			tampered[0] ^= 0x01
			conn.SendPacket(tampered)
		})
	})
	client := dialClient(t, address, false, false)

	payload := newPayload(t, []byte("correct horse"))
	verified, err := client.run(payload, 1)
	if !errors.Is(err, errEchoMismatch) {
		t.Fatalf("expected echo mismatch, got %v", err)
	}
	if verified != 0 {
		t.Errorf("verified = %d, want 0", verified)
	}
}

func TestEcho_ServerCountsPackets(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var closed []disconnectedEvent

	server := &echoServer{events: newEvents(discardLogger()), local: localHello(0)}
	server.events.On(eventDisconnected, func(payload any) {
		mu.Lock()
		defer mu.Unlock()
		closed = append(closed, payload.(disconnectedEvent))
	})
	address := startServer(t, server.serve)

	client := dialClient(t, address, true, false)
	if _, err := client.run(newPayload(t, []byte("x")), 3); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	client.conn.Close()

	testutil.Eventually(t, testTimeout, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(closed) == 1
	}, "server never reported the session closed")

	mu.Lock()
	defer mu.Unlock()
	if closed[0].packets != 3 || closed[0].err != nil {
		t.Errorf("server session ended with %+v, want 3 packets and no error", closed[0])
	}
}

func TestEcho_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	listener, err := transport.Listen("127.0.0.1:0", transport.Options{Logger: discardLogger()})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	server := &echoServer{events: newEvents(discardLogger()), local: localHello(0)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.serve(ctx, listener) }()

	// An idle session blocks in ReadPacket; cancel must still end it.
	client := dialClient(t, listener.Address(), false, false)
	if _, err := client.run(newPayload(t, []byte("ping")), 1); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, testTimeout, "serve did not return after cancel"); err != nil {
		t.Errorf("serve returned %v, want nil", err)
	}
}

func TestEvents_WrongPayloadTypeIsLogged(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&output, nil))
	events := newEvents(logger)

	if ran := events.Dispatch(eventPacket, "not a packet event"); ran != 1 {
		t.Fatalf("Dispatch ran %d handlers, want 1", ran)
	}
	if !strings.Contains(output.String(), "wrong type") || !strings.Contains(output.String(), `"event":"packet"`) {
		t.Errorf("unexpected log output: %s", output.String())
	}
}

func TestEvents_PacketLogOmitsContent(t *testing.T) {
	t.Parallel()

	var output bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&output, &slog.HandlerOptions{Level: slog.LevelDebug}))
	events := newEvents(logger)

	content := []byte("super secret value")
	events.Dispatch(eventPacket, packetEvent{
		remote:      "127.0.0.1:1",
		length:      len(content),
		fingerprint: fingerprint(content),
	})
	if strings.Contains(output.String(), string(content)) {
		t.Fatalf("payload content leaked into logs: %s", output.String())
	}
	if !strings.Contains(output.String(), fingerprint(content)) {
		t.Errorf("fingerprint missing from logs: %s", output.String())
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	first := fingerprint([]byte("alpha"))
	if len(first) != 2*fingerprintBytes {
		t.Errorf("fingerprint length = %d, want %d", len(first), 2*fingerprintBytes)
	}
	if fingerprint([]byte("alpha")) != first {
		t.Error("fingerprint is not stable within a process")
	}
	if fingerprint([]byte("alphb")) == first {
		t.Error("different payloads share a fingerprint")
	}
}
