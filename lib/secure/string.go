// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secure

import (
	"bytes"
	"crypto/subtle"
	"io"
	"strconv"
)

// String is a growable byte string in arena memory. The zero value is
// an empty string using the process-wide arena.
type String struct {
	bytes Vector[byte]
}

// NewString returns an empty string with room for capacity bytes.
func NewString(allocator Allocator[byte], capacity int) (*String, error) {
	s := &String{bytes: Vector[byte]{allocator: allocator}}
	if err := s.bytes.Reserve(capacity); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStringFrom copies data into a new string. The caller remains
// responsible for wiping data.
func NewStringFrom(allocator Allocator[byte], data []byte) (*String, error) {
	s, err := NewString(allocator, len(data))
	if err != nil {
		return nil, err
	}
	if err := s.bytes.Append(data...); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Len returns the length in bytes.
func (s *String) Len() int { return s.bytes.Len() }

// Bytes returns the contents, aliasing arena memory.
func (s *String) Bytes() []byte { return s.bytes.Slice() }

// String returns a heap copy of the contents. Use it only for values
// that are not secret.
func (s *String) String() string { return string(s.bytes.Slice()) }

// GoString keeps the contents out of %#v output.
func (s *String) GoString() string {
	return "secure.String{len: " + strconv.Itoa(s.Len()) + "}"
}

// Append appends data.
func (s *String) Append(data []byte) error { return s.bytes.Append(data...) }

// AppendString appends text.
func (s *String) AppendString(text string) error {
	if err := s.bytes.grow(len(text)); err != nil {
		return err
	}
	storage := s.bytes.storage
	copy(storage[s.bytes.length:], text)
	s.bytes.length += len(text)
	return nil
}

// AppendByte appends one byte.
func (s *String) AppendByte(b byte) error { return s.bytes.Append(b) }

// Write implements io.Writer.
func (s *String) Write(data []byte) (int, error) {
	if err := s.Append(data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// WriteTo implements io.WriterTo without copying out of arena memory.
func (s *String) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(s.Bytes())
	return int64(n), err
}

// Equal reports whether the contents equal other, in time that
// depends only on the lengths.
func (s *String) Equal(other []byte) bool {
	return subtle.ConstantTimeCompare(s.Bytes(), other) == 1
}

// Compare orders strings bytewise.
func (s *String) Compare(other *String) int {
	return bytes.Compare(s.Bytes(), other.Bytes())
}

// Truncate shortens the string to length bytes and zeroes the rest.
func (s *String) Truncate(length int) { s.bytes.Truncate(length) }

// Reset empties the string, zeroing it, and keeps the storage.
func (s *String) Reset() { s.bytes.Reset() }

// Clone returns an independent copy.
func (s *String) Clone() (*String, error) {
	vector, err := s.bytes.Clone()
	if err != nil {
		return nil, err
	}
	return &String{bytes: *vector}, nil
}

// Check verifies the guards around the string's storage.
func (s *String) Check() { s.bytes.Check() }

// Close wipes and releases the storage.
func (s *String) Close() error { return s.bytes.Close() }
