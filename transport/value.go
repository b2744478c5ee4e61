// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"github.com/bureau-foundation/lsmp/lib/codec"
)

// SendValue encodes v as CBOR in secure memory and sends it as one
// packet.
func (c *Conn) SendValue(v any) error {
	buffer, err := codec.MarshalToBuffer(v)
	if err != nil {
		return newError(KindTransport, "send value", err)
	}
	defer buffer.Close()
	return c.SendPacket(buffer.Bytes())
}

// ReadValue reads one packet and decodes its CBOR payload into v. A
// payload that does not decode is a framing failure of the value layer
// only; the stream itself stays synchronized.
func (c *Conn) ReadValue(v any) error {
	payload, err := c.ReadPacket()
	if err != nil {
		return err
	}
	defer payload.Close()
	if err := codec.UnmarshalBuffer(payload, v); err != nil {
		return newError(KindFraming, "read value", err)
	}
	return nil
}
