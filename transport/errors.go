// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// Kind classifies a transport failure.
type Kind int

const (
	// KindTransport is an I/O failure of the underlying stream: reset,
	// broken pipe, resolution or accept failure, cancellation.
	KindTransport Kind = iota

	// KindFraming means a frame or its payload violates the protocol:
	// a wrong marker, a length over the limit, or a value that does not
	// decode. Failures on the receive path that leave the stream
	// position unknown also desynchronize the connection.
	KindFraming

	// KindReentrancy means an incompatible operation was already in
	// flight in the same direction. Nothing touched the socket; the
	// call may be retried after the in-flight operation completes.
	KindReentrancy
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFraming:
		return "framing"
	case KindReentrancy:
		return "reentrancy"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrReentrant is wrapped by every reentrancy failure.
	ErrReentrant = errors.New("operation already in flight")

	// ErrCanceled is wrapped by the failure delivered to an
	// asynchronous operation's callback after CancelAsync.
	ErrCanceled = errors.New("asynchronous operation canceled")

	// ErrClosed is returned by operations on a closed connection or
	// listener.
	ErrClosed = errors.New("connection closed")

	// ErrDesynchronized is returned by every packet operation after a
	// framing failure, an interrupted write, or a cancellation left the
	// stream position unknown.
	ErrDesynchronized = errors.New("stream desynchronized")
)

// Error is the failure type returned and delivered by [Conn] and
// [Listener].
type Error struct {
	Kind Kind
	// Op names the operation, e.g. "read packet".
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "transport: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func kindOf(err error) (Kind, bool) {
	var transportErr *Error
	if errors.As(err, &transportErr) {
		return transportErr.Kind, true
	}
	return 0, false
}

// IsFraming reports whether err is a framing failure.
func IsFraming(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindFraming
}

// IsReentrancy reports whether err is a reentrancy failure.
func IsReentrancy(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindReentrancy
}

// IsTransport reports whether err is a stream I/O failure.
func IsTransport(err error) bool {
	kind, ok := kindOf(err)
	return ok && kind == KindTransport
}

// IsPeerGone reports whether err is an orderly end of the connection:
// the peer hung up between packets, or the connection was closed
// locally. A broken pipe or reset from a full close on the peer side
// counts too. ErrUnexpectedEOF in the middle of a frame does not.
func IsPeerGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, ErrClosed) {
		return true
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EPIPE || errno == syscall.ECONNRESET
	}
	return false
}
