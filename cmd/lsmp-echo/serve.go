// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/lsmp/transport"
)

func runServe(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var listen string
	var handshake bool

	flagSet := pflag.NewFlagSet(binaryName+" serve", pflag.ContinueOnError)
	common.add(flagSet)
	flagSet.StringVar(&listen, "listen", "", "address to listen on (overrides config listen)")
	flagSet.BoolVar(&handshake, "handshake", false, "exchange a CBOR hello before echoing")

	if done, err := parseFlags(flagSet, args, stderr); done || err != nil {
		return err
	}

	env, err := common.setup(stderr)
	if err != nil {
		return err
	}
	if listen != "" {
		env.config.Listen = listen
	}
	if env.config.Listen == "" {
		return usage("no listen address: set listen in the config or pass --listen")
	}

	listener, err := transport.Listen(env.config.Listen, env.transportOptions())
	if err != nil {
		return err
	}
	defer listener.Close()

	fmt.Fprintf(stdout, "listening on %s\n", listener.Address())
	server := &echoServer{
		events:    newEvents(env.logger),
		handshake: handshake,
		local:     localHello(env.config.Transport.MaxPayloadBytes),
	}
	return server.serve(ctx, listener)
}

// echoServer writes every packet it receives back to the sender.
type echoServer struct {
	events    *events
	handshake bool
	local     hello
}

// serve runs until ctx is canceled. Canceling ctx also closes every
// open session, so serve returns once their handlers finish.
func (s *echoServer) serve(ctx context.Context, listener *transport.Listener) error {
	return listener.Serve(ctx, func(conn *transport.Conn) {
		s.session(ctx, conn)
	})
}

func (s *echoServer) session(ctx context.Context, conn *transport.Conn) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	remote := conn.RemoteAddr().String()
	s.events.Dispatch(eventConnected, connectedEvent{remote: remote})
	packets, err := s.echo(conn, remote)
	s.events.Dispatch(eventDisconnected, disconnectedEvent{remote: remote, packets: packets, err: err})
}

// echo returns how many packets were echoed. A peer hanging up between
// packets, or the session being closed, is a clean end.
func (s *echoServer) echo(conn *transport.Conn, remote string) (int, error) {
	if s.handshake {
		peer, err := serverHandshake(conn, s.local)
		if err != nil {
			return 0, err
		}
		s.events.Dispatch(eventHandshake, handshakeEvent{remote: remote, peer: peer})
	}

	for sequence := 0; ; sequence++ {
		payload, err := conn.ReadPacket()
		if err != nil {
			if transport.IsPeerGone(err) {
				return sequence, nil
			}
			return sequence, err
		}
		s.events.Dispatch(eventPacket, packetEvent{
			remote:      remote,
			sequence:    sequence,
			length:      payload.Len(),
			fingerprint: fingerprint(payload.Bytes()),
		})
		err = conn.SendPacket(payload.Bytes())
		payload.Close()
		if err != nil {
			return sequence, err
		}
	}
}
