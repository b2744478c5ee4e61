// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/lsmp/lib/dispatch"
)

// sessionEvent identifies a point in a connection's life.
type sessionEvent int

const (
	eventConnected sessionEvent = iota
	eventHandshake
	eventPacket
	eventDisconnected
)

func (e sessionEvent) String() string {
	switch e {
	case eventConnected:
		return "connected"
	case eventHandshake:
		return "handshake"
	case eventPacket:
		return "packet"
	case eventDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Each event carries its own payload type. The dispatcher is keyed on
// [sessionEvent] and carries any; [dispatch.Handle] binds the concrete
// type at registration.

type connectedEvent struct {
	remote string
}

type handshakeEvent struct {
	remote string
	peer   hello
}

type packetEvent struct {
	remote      string
	sequence    int
	length      int
	fingerprint string
}

type disconnectedEvent struct {
	remote  string
	packets int
	err     error
}

type events = dispatch.Dispatcher[sessionEvent, any]

// newEvents returns a dispatcher with the logging handlers installed.
// Callers may register more handlers on it.
func newEvents(logger *slog.Logger) *events {
	d := dispatch.New[sessionEvent, any]()
	mismatch := func(event sessionEvent, payload any) {
		logger.Error("lsmp-echo: event payload has the wrong type",
			"event", event.String(), "type", fmt.Sprintf("%T", payload))
	}

	dispatch.Handle(d, eventConnected, dispatch.As[any, connectedEvent], func(e connectedEvent) {
		logger.Info("connection opened", "remote", e.remote)
	}, mismatch)

	dispatch.Handle(d, eventHandshake, dispatch.As[any, handshakeEvent], func(e handshakeEvent) {
		logger.Info("handshake complete",
			"remote", e.remote,
			"peer_binary", e.peer.Binary,
			"peer_version", e.peer.Version,
			"peer_protocol", e.peer.Protocol,
			"peer_max_payload_bytes", e.peer.MaxPayloadBytes)
	}, mismatch)

	dispatch.Handle(d, eventPacket, dispatch.As[any, packetEvent], func(e packetEvent) {
		logger.Debug("packet",
			"remote", e.remote,
			"sequence", e.sequence,
			"length", e.length,
			"fingerprint", e.fingerprint)
	}, mismatch)

	dispatch.Handle(d, eventDisconnected, dispatch.As[any, disconnectedEvent], func(e disconnectedEvent) {
		if e.err != nil {
			logger.Warn("connection closed with error",
				"remote", e.remote, "packets", e.packets, "error", e.err)
			return
		}
		logger.Info("connection closed", "remote", e.remote, "packets", e.packets)
	}, mismatch)

	return d
}
