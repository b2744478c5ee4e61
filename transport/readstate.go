// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"math"

	"github.com/bureau-foundation/lsmp/lib/packet"
	"github.com/bureau-foundation/lsmp/lib/secret"
)

// readStage is the position of a frame read within the wire format.
type readStage int32

const (
	stageIdle readStage = iota
	stageAwaitingMagic
	stageAwaitingLength
	stageAwaitingPayload
)

func (s readStage) String() string {
	switch s {
	case stageIdle:
		return "idle"
	case stageAwaitingMagic:
		return "awaiting-magic"
	case stageAwaitingLength:
		return "awaiting-length"
	case stageAwaitingPayload:
		return "awaiting-payload"
	default:
		return fmt.Sprintf("readStage(%d)", int32(s))
	}
}

var errMachineIdle = errors.New("read state machine advanced while idle")

// readMachine assembles one frame from an arbitrary sequence of partial
// read completions. The caller reads into want() and reports how many
// bytes arrived with advance(); advance is the only transition function
// and performs at most one transition per call. Both the blocking and
// the asynchronous read paths drive the same machine.
type readMachine struct {
	limits packet.Limits

	stage   readStage
	header  [packet.HeaderSize]byte
	filled  int
	length  uint64
	payload *secret.Buffer

	// started is set once any byte of the frame has been consumed.
	started bool
}

func newReadMachine(limits packet.Limits) *readMachine {
	return &readMachine{limits: limits, stage: stageAwaitingMagic}
}

// want returns the slice the next read must fill. It is never empty
// while the machine is active.
func (m *readMachine) want() []byte {
	switch m.stage {
	case stageAwaitingMagic:
		return m.header[m.filled:packet.MagicSize]
	case stageAwaitingLength:
		return m.header[packet.MagicSize+m.filled : packet.HeaderSize]
	case stageAwaitingPayload:
		return m.payload.Bytes()[m.filled:]
	default:
		return nil
	}
}

// advance records that n bytes of want() were filled. It returns done
// once the payload is complete. On error the machine is idle and any
// partial payload has been released.
func (m *readMachine) advance(n int) (done bool, err error) {
	if n > 0 {
		m.started = true
	}
	m.filled += n

	switch m.stage {
	case stageAwaitingMagic:
		if m.filled < packet.MagicSize {
			return false, nil
		}
		if err := packet.DecodeHeader(m.header[:packet.MagicSize]); err != nil {
			m.stage = stageIdle
			return false, err
		}
		m.stage, m.filled = stageAwaitingLength, 0
		return false, nil

	case stageAwaitingLength:
		if m.filled < packet.LengthSize {
			return false, nil
		}
		length, err := packet.DecodeLength(m.header[packet.MagicSize:])
		if err != nil {
			m.stage = stageIdle
			return false, err
		}
		if err := m.limits.Check(length); err != nil {
			m.stage = stageIdle
			return false, err
		}
		if length > math.MaxInt-packet.HeaderSize {
			m.stage = stageIdle
			return false, fmt.Errorf("%w: %d bytes", packet.ErrTooLarge, length)
		}
		payload, err := secret.New(int(length))
		if err != nil {
			m.stage = stageIdle
			return false, fmt.Errorf("allocating %d byte payload: %w", length, err)
		}
		m.length, m.payload, m.filled = length, payload, 0
		if length == 0 {
			m.stage = stageIdle
			return true, nil
		}
		m.stage = stageAwaitingPayload
		return false, nil

	case stageAwaitingPayload:
		if uint64(m.filled) < m.length {
			return false, nil
		}
		m.stage = stageIdle
		return true, nil

	default:
		return false, errMachineIdle
	}
}

// take hands the completed payload to the caller.
func (m *readMachine) take() *secret.Buffer {
	payload := m.payload
	m.payload = nil
	return payload
}

// abandon releases a partial payload after a failed read.
func (m *readMachine) abandon() {
	if m.payload != nil {
		m.payload.Close()
		m.payload = nil
	}
	m.stage = stageIdle
}

// framingFailure reports whether err came from the frame contents
// rather than the stream.
func framingFailure(err error) bool {
	return errors.Is(err, packet.ErrMissingMarker) || errors.Is(err, packet.ErrTooLarge)
}
