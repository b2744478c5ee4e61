// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/lsmp/lib/secret"
	"github.com/bureau-foundation/lsmp/lib/secure"
	"github.com/bureau-foundation/lsmp/transport"
)

// errEchoMismatch reports an echo that differs from what was sent.
var errEchoMismatch = errors.New("echo does not match the sent payload")

func runSend(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var connect, filePath string
	var prompt, async, handshake, asJSON bool
	var count int

	flagSet := pflag.NewFlagSet(binaryName+" send", pflag.ContinueOnError)
	common.add(flagSet)
	flagSet.StringVar(&connect, "connect", "", "address to connect to (overrides config connect)")
	flagSet.StringVar(&filePath, "file", "", `read the secret from this file, or "-" for stdin`)
	flagSet.BoolVar(&prompt, "prompt", false, "read the secret from a terminal prompt without echo")
	flagSet.BoolVar(&async, "async", false, "use asynchronous send and receive")
	flagSet.BoolVar(&handshake, "handshake", false, "exchange a CBOR hello before sending")
	flagSet.BoolVar(&asJSON, "json", false, "parse the secret as JSON (comments allowed) and send its canonical encoding")
	flagSet.IntVar(&count, "count", 1, "number of times to send the secret")

	if done, err := parseFlags(flagSet, args, stderr); done || err != nil {
		return err
	}
	if (filePath == "") == !prompt {
		return usage("exactly one of --file and --prompt is required")
	}
	if count < 1 {
		return usage("--count must be at least 1, got %d", count)
	}

	env, err := common.setup(stderr)
	if err != nil {
		return err
	}
	if connect != "" {
		env.config.Connect = connect
	}
	if env.config.Connect == "" {
		return usage("no connect address: set connect in the config or pass --connect")
	}

	var raw *secret.Buffer
	if prompt {
		raw, err = promptSecret(os.Stdin, stderr)
	} else {
		raw, err = secret.ReadFromPath(filePath)
	}
	if err != nil {
		return fmt.Errorf("reading secret: %w", err)
	}
	var payload sealed = raw
	if asJSON {
		payload, err = canonicalJSON(raw)
		raw.Close()
		if err != nil {
			return fmt.Errorf("parsing secret as JSON: %w", err)
		}
	}
	defer payload.Close()

	conn, err := transport.Dial(ctx, env.config.Connect, env.transportOptions())
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	sender := &echoClient{
		conn:      conn,
		events:    newEvents(env.logger),
		async:     async,
		handshake: handshake,
		local:     localHello(env.config.Transport.MaxPayloadBytes),
	}
	verified, err := sender.run(payload, count)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d of %d echoes verified (%d bytes, fingerprint %s)\n",
		verified, count, payload.Len(), fingerprint(payload.Bytes()))
	return nil
}

// promptSecret reads a line from the terminal on input without echo.
func promptSecret(input *os.File, stderr io.Writer) (*secret.Buffer, error) {
	fileDescriptor := int(input.Fd())
	if !term.IsTerminal(fileDescriptor) {
		return nil, usage("no terminal available for --prompt (use --file)")
	}

	fmt.Fprint(stderr, "Secret: ")
	data, err := term.ReadPassword(fileDescriptor)
	fmt.Fprintln(stderr)
	if err != nil {
		return nil, fmt.Errorf("reading secret from terminal: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("secret is empty")
	}

	buffer, err := secret.NewFromBytes(data)
	if err != nil {
		secret.Zero(data)
		return nil, err
	}
	return buffer, nil
}

// sealed is a payload held in guarded memory.
type sealed interface {
	Bytes() []byte
	Len() int
	Close() error
}

// canonicalJSON parses raw as JSON or JSONC and returns its canonical
// compact encoding. Every intermediate stays in guarded memory.
func canonicalJSON(raw *secret.Buffer) (*secure.String, error) {
	value, err := secure.ParseJSON(raw.Bytes())
	if err != nil {
		return nil, err
	}
	defer value.Close()

	encoded, err := secure.NewString(secure.Allocator[byte]{}, raw.Len())
	if err != nil {
		return nil, err
	}
	if err := value.AppendTo(encoded); err != nil {
		encoded.Close()
		return nil, err
	}
	return encoded, nil
}

// echoClient sends one payload repeatedly and checks each echo.
type echoClient struct {
	conn      *transport.Conn
	events    *events
	async     bool
	handshake bool
	local     hello
}

// run returns how many echoes matched before the first failure.
func (c *echoClient) run(payload sealed, count int) (verified int, err error) {
	remote := c.conn.RemoteAddr().String()
	c.events.Dispatch(eventConnected, connectedEvent{remote: remote})
	defer func() {
		c.events.Dispatch(eventDisconnected, disconnectedEvent{remote: remote, packets: verified, err: err})
	}()

	if c.handshake {
		peer, err := clientHandshake(c.conn, c.local)
		if err != nil {
			return 0, err
		}
		c.events.Dispatch(eventHandshake, handshakeEvent{remote: remote, peer: peer})
	}

	for sequence := range count {
		echo, err := c.roundTrip(payload.Bytes())
		if err != nil {
			return verified, fmt.Errorf("packet %d: %w", sequence, err)
		}
		c.events.Dispatch(eventPacket, packetEvent{
			remote:      remote,
			sequence:    sequence,
			length:      echo.Len(),
			fingerprint: fingerprint(echo.Bytes()),
		})
		matched := echo.Equal(payload.Bytes())
		echo.Close()
		if !matched {
			return verified, fmt.Errorf("packet %d: %w", sequence, errEchoMismatch)
		}
		verified++
	}
	return verified, nil
}

func (c *echoClient) roundTrip(payload []byte) (*secret.Buffer, error) {
	if !c.async {
		if err := c.conn.SendPacket(payload); err != nil {
			return nil, err
		}
		return c.conn.ReadPacket()
	}

	type received struct {
		buffer *secret.Buffer
		err    error
	}
	reads := make(chan received, 1)
	sends := make(chan error, 1)

	// Both directions are in flight at once. The read is posted first so
	// the echo has somewhere to land.
	c.conn.AsyncReadPacket(func(buffer *secret.Buffer, err error) {
		reads <- received{buffer: buffer, err: err}
	})
	c.conn.AsyncSendPacket(payload, func(err error) {
		sends <- err
	})

	sendErr := <-sends
	if sendErr != nil {
		// No echo is coming. Release the pending read.
		c.conn.CancelAsync()
	}
	result := <-reads
	if sendErr != nil {
		if result.buffer != nil {
			result.buffer.Close()
		}
		return nil, sendErr
	}
	return result.buffer, result.err
}
