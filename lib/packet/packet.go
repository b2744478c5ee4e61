// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packet

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// MagicSize is the size of the frame marker.
	MagicSize = 4
	// LengthSize is the size of the payload length field.
	LengthSize = 8
	// HeaderSize is the size of marker plus length.
	HeaderSize = MagicSize + LengthSize
)

// Magic is the marker that starts every frame.
var Magic = [MagicSize]byte{'L', 'S', 'M', 'P'}

var (
	// ErrMissingMarker means the first four bytes of a frame are not
	// [Magic].
	ErrMissingMarker = errors.New("packet: missing start marker")

	// ErrTooLarge means a payload length exceeds the configured limit.
	ErrTooLarge = errors.New("packet: payload too large")

	// ErrShortFrame means a buffer ends before the frame it describes.
	ErrShortFrame = errors.New("packet: short frame")

	// ErrTrailingBytes means a buffer holds more than one frame.
	ErrTrailingBytes = errors.New("packet: trailing bytes after frame")
)

// Encode returns the complete frame for payload.
func Encode(payload []byte) []byte {
	frame := make([]byte, 0, HeaderSize+len(payload))
	frame = AppendHeader(frame, uint64(len(payload)))
	return append(frame, payload...)
}

// AppendHeader appends the marker and the little-endian length to dst.
func AppendHeader(dst []byte, length uint64) []byte {
	dst = append(dst, Magic[:]...)
	return binary.LittleEndian.AppendUint64(dst, length)
}

// PutHeader writes the header for a payload of the given length into
// the first [HeaderSize] bytes of dst.
func PutHeader(dst []byte, length uint64) {
	copy(dst[:MagicSize], Magic[:])
	binary.LittleEndian.PutUint64(dst[MagicSize:HeaderSize], length)
}

// DecodeHeader validates the marker at the start of a frame. marker
// must hold at least [MagicSize] bytes; only the first four are read.
func DecodeHeader(marker []byte) error {
	if len(marker) < MagicSize {
		return ErrShortFrame
	}
	if [MagicSize]byte(marker[:MagicSize]) != Magic {
		return ErrMissingMarker
	}
	return nil
}

// DecodeLength reads the payload length from the [LengthSize] bytes
// that follow the marker.
func DecodeLength(field []byte) (uint64, error) {
	if len(field) < LengthSize {
		return 0, ErrShortFrame
	}
	return binary.LittleEndian.Uint64(field[:LengthSize]), nil
}

// Decode parses one complete frame and returns a view of its payload.
// The payload aliases frame.
func Decode(frame []byte) ([]byte, error) {
	if err := DecodeHeader(frame); err != nil {
		return nil, err
	}
	length, err := DecodeLength(frame[MagicSize:])
	if err != nil {
		return nil, err
	}
	body := frame[HeaderSize:]
	if uint64(len(body)) < length {
		return nil, fmt.Errorf("%w: header declares %d payload bytes, %d present", ErrShortFrame, length, len(body))
	}
	if uint64(len(body)) > length {
		return nil, fmt.Errorf("%w: %d extra bytes", ErrTrailingBytes, uint64(len(body))-length)
	}
	return body, nil
}

// Limits bounds payload sizes accepted above the framing layer.
type Limits struct {
	// MaxPayloadBytes is the largest payload accepted. Zero disables
	// the bound.
	MaxPayloadBytes uint64
}

// DefaultMaxPayloadBytes is the payload bound used by [DefaultLimits].
const DefaultMaxPayloadBytes = 16 << 20

// DefaultLimits returns the default payload bound.
func DefaultLimits() Limits {
	return Limits{MaxPayloadBytes: DefaultMaxPayloadBytes}
}

// Check returns [ErrTooLarge] when length exceeds the limit.
func (l Limits) Check(length uint64) error {
	if l.MaxPayloadBytes != 0 && length > l.MaxPayloadBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, length, l.MaxPayloadBytes)
	}
	return nil
}
