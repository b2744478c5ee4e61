// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"

	"github.com/bureau-foundation/lsmp/lib/packet"
	"github.com/bureau-foundation/lsmp/lib/secret"
)

// AsyncReadPacket starts reading one packet and returns immediately.
// callback runs exactly once, on another goroutine, with either the
// payload or an error. If a read is already in flight, or the
// connection is closed or desynchronized, callback runs before
// AsyncReadPacket returns and the pending read is unaffected.
//
// The payload buffer belongs to the callback, which must Close it.
func (c *Conn) AsyncReadPacket(callback func(*secret.Buffer, error)) {
	const op = "async read packet"
	if err := c.beginAsync(op, &c.read); err != nil {
		callback(nil, err)
		return
	}

	go func() {
		defer c.inflight.Done()

		c.readMu.Lock()
		payload, err := c.readFrame(op, func(stage readStage) {
			c.asyncStage.Store(int32(stage))
		})
		c.readMu.Unlock()
		c.asyncStage.Store(int32(stageIdle))

		if c.endAsync(&c.read, c.conn.SetReadDeadline) {
			if payload != nil {
				payload.Close()
				payload = nil
			}
			err = cancellation(op, err)
		}
		callback(payload, err)
	}()
}

// AsyncSendPacket copies the frame for payload into secure memory and
// returns immediately; the caller may reuse payload at once. The frame
// is written with a single write on another goroutine, and callback
// runs exactly once with its result. Oversized payloads, reentrancy,
// and closed-connection failures are reported before AsyncSendPacket
// returns, without touching the stream.
func (c *Conn) AsyncSendPacket(payload []byte, callback func(error)) {
	const op = "async send packet"
	if err := c.limits.Check(uint64(len(payload))); err != nil {
		callback(newError(KindFraming, op, err))
		return
	}

	frame, err := secret.New(packet.HeaderSize + len(payload))
	if err != nil {
		callback(newError(KindTransport, op, fmt.Errorf("allocating frame: %w", err)))
		return
	}
	packet.PutHeader(frame.Bytes(), uint64(len(payload)))
	copy(frame.Bytes()[packet.HeaderSize:], payload)

	if err := c.beginAsync(op, &c.write); err != nil {
		frame.Close()
		callback(err)
		return
	}

	go func() {
		defer c.inflight.Done()
		defer frame.Close()

		c.writeMu.Lock()
		n, writeErr := c.conn.Write(frame.Bytes())
		c.writeMu.Unlock()

		var result error
		switch {
		case c.endAsync(&c.write, c.conn.SetWriteDeadline):
			result = cancellation(op, writeErr)
		case writeErr != nil:
			if n > 0 {
				c.desynchronize(op, writeErr)
			}
			result = newError(KindTransport, op, writeErr)
		}
		callback(result)
	}()
}

// cancellation builds the error delivered to a canceled operation.
func cancellation(op string, cause error) error {
	if cause == nil || isDeadline(cause) {
		return newError(KindTransport, op, ErrCanceled)
	}
	return newError(KindTransport, op, fmt.Errorf("%w: %w", ErrCanceled, cause))
}
