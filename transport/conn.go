// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/lsmp/lib/packet"
	"github.com/bureau-foundation/lsmp/lib/secret"
)

// opKind is the operation currently owning one direction of a Conn.
type opKind int

const (
	opIdle opKind = iota
	opSync
	opAsync
)

func (k opKind) String() string {
	switch k {
	case opIdle:
		return "idle"
	case opSync:
		return "sync"
	case opAsync:
		return "async"
	default:
		return fmt.Sprintf("opKind(%d)", int(k))
	}
}

// direction is the operation state of one half of a Conn. Blocking
// callers queue on the direction's I/O lock, so several may be counted
// at once; an asynchronous operation excludes everything else.
type direction struct {
	name     string
	op       opKind
	blocking int
	canceled bool
}

// Options configures a [Conn] or [Listener].
type Options struct {
	// Limits bounds the payload length accepted from the peer. Nil
	// means packet.DefaultLimits().
	Limits *packet.Limits

	// Logger receives connection diagnostics. Nil means slog.Default().
	Logger *slog.Logger

	// DialTimeout bounds connection establishment in [Dial]. Zero means
	// only the context deadline applies.
	DialTimeout time.Duration
}

func (o Options) limits() packet.Limits {
	if o.Limits == nil {
		return packet.DefaultLimits()
	}
	return *o.Limits
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// Conn carries LSMP packets over one stream connection, which it owns
// exclusively.
//
// Each direction is serialized independently. Blocking reads hold the
// read lock for a whole frame and blocking sends hold the write lock
// for a whole frame, so bytes of two frames never interleave within a
// direction, while a read and a send may proceed concurrently. At most
// one asynchronous read and one asynchronous send may be outstanding.
// A blocking call in a direction that has an asynchronous operation
// pending fails with a reentrancy error without touching the stream.
//
// Asynchronous operations run on their own goroutine and invoke their
// callback exactly once. Callbacks may issue the next asynchronous
// operation in the same direction but must not call Close.
//
// Once a framing failure, an interrupted frame, or a cancellation
// leaves the stream position unknown, every further packet operation
// fails with [ErrDesynchronized]. The only remaining use of the Conn is
// Close.
type Conn struct {
	conn   net.Conn
	limits packet.Limits
	logger *slog.Logger

	readMu  sync.Mutex
	writeMu sync.Mutex

	// stateMu guards read and write.
	stateMu sync.Mutex
	read    direction
	write   direction

	closed         atomic.Bool
	desynchronized atomic.Bool

	// asyncStage is the stage of the pending asynchronous read, exposed
	// for observation only.
	asyncStage atomic.Int32

	inflight sync.WaitGroup
}

// New wraps an established stream connection. The Conn takes ownership
// of conn and closes it in Close.
func New(conn net.Conn, options Options) *Conn {
	logger := options.logger().With("remote", conn.RemoteAddr().String())
	return &Conn{
		conn:   conn,
		limits: options.limits(),
		logger: logger,
		read:   direction{name: "read"},
		write:  direction{name: "send"},
	}
}

// Dial opens a TCP connection to address and wraps it.
func Dial(ctx context.Context, address string, options Options) (*Conn, error) {
	dialer := net.Dialer{Timeout: options.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, newError(KindTransport, "dial", err)
	}
	return New(conn, options), nil
}

// LocalAddr returns the local network address.
func (c *Conn) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// RemoteAddr returns the peer's network address.
func (c *Conn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

// Desynchronized reports whether the stream position is unknown.
func (c *Conn) Desynchronized() bool { return c.desynchronized.Load() }

// usable reports why no new operation may start, if any.
func (c *Conn) usable(op string) error {
	if c.closed.Load() {
		return newError(KindTransport, op, ErrClosed)
	}
	if c.desynchronized.Load() {
		return newError(KindFraming, op, ErrDesynchronized)
	}
	return nil
}

func (c *Conn) desynchronize(op string, cause error) {
	if c.desynchronized.CompareAndSwap(false, true) {
		c.logger.Warn("transport: connection desynchronized", "operation", op, "error", cause)
	}
}

// beginBlocking registers a blocking operation in d. It fails without
// side effects while an asynchronous operation owns d.
func (c *Conn) beginBlocking(op string, d *direction) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if d.op == opAsync {
		return newError(KindReentrancy, op, fmt.Errorf("%w: async %s pending", ErrReentrant, d.name))
	}
	if err := c.usable(op); err != nil {
		return err
	}
	d.op = opSync
	d.blocking++
	return nil
}

func (c *Conn) endBlocking(d *direction) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	d.blocking--
	if d.blocking == 0 {
		d.op = opIdle
	}
}

// beginAsync claims d for an asynchronous operation. Any operation
// already in d, blocking or not, makes it fail.
func (c *Conn) beginAsync(op string, d *direction) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if d.op != opIdle {
		return newError(KindReentrancy, op, fmt.Errorf("%w: %s %s pending", ErrReentrant, d.op, d.name))
	}
	if err := c.usable(op); err != nil {
		return err
	}
	d.op = opAsync
	d.canceled = false
	c.inflight.Add(1)
	return nil
}

// endAsync releases d and reports whether the operation was canceled.
// The deadline CancelAsync used to interrupt it is cleared.
func (c *Conn) endAsync(d *direction, clearDeadline func(time.Time) error) bool {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	canceled := d.canceled
	d.op = opIdle
	d.canceled = false
	if canceled {
		if err := clearDeadline(time.Time{}); err != nil {
			c.logger.Debug("transport: clearing deadline", "direction", d.name, "error", err)
		}
	}
	return canceled
}

// ReadPacket blocks until one whole packet has been received and
// returns its payload in secure memory. The caller owns the buffer and
// must Close it.
func (c *Conn) ReadPacket() (*secret.Buffer, error) {
	const op = "read packet"
	if err := c.beginBlocking(op, &c.read); err != nil {
		return nil, err
	}
	defer c.endBlocking(&c.read)

	c.readMu.Lock()
	defer c.readMu.Unlock()

	// State may have changed while queued behind another reader.
	if err := c.usable(op); err != nil {
		return nil, err
	}
	return c.readFrame(op, nil)
}

// readFrame drives a fresh state machine until one frame completes. The
// caller owns the read direction. onStage, if set, observes every
// transition that leaves the frame incomplete.
func (c *Conn) readFrame(op string, onStage func(readStage)) (*secret.Buffer, error) {
	machine := newReadMachine(c.limits)
	if onStage != nil {
		onStage(machine.stage)
	}
	for {
		n, readErr := c.conn.Read(machine.want())
		if n > 0 {
			done, err := machine.advance(n)
			if err != nil {
				machine.abandon()
				return nil, c.readFailure(op, machine, err)
			}
			if done {
				return machine.take(), nil
			}
			if onStage != nil {
				onStage(machine.stage)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) && machine.started {
				readErr = io.ErrUnexpectedEOF
			}
			machine.abandon()
			return nil, c.readFailure(op, machine, readErr)
		}
	}
}

func (c *Conn) readFailure(op string, machine *readMachine, err error) error {
	if framingFailure(err) {
		c.desynchronize(op, err)
		return newError(KindFraming, op, err)
	}
	if machine.started {
		c.desynchronize(op, err)
	}
	return newError(KindTransport, op, err)
}

// SendPacket blocks until the whole frame for payload has been written:
// marker, length, then payload. A payload over the connection's limit
// is rejected before anything is written.
func (c *Conn) SendPacket(payload []byte) error {
	const op = "send packet"
	if err := c.limits.Check(uint64(len(payload))); err != nil {
		return newError(KindFraming, op, err)
	}
	if err := c.beginBlocking(op, &c.write); err != nil {
		return err
	}
	defer c.endBlocking(&c.write)

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.usable(op); err != nil {
		return err
	}

	var header [packet.HeaderSize]byte
	packet.PutHeader(header[:], uint64(len(payload)))

	written := false
	for _, part := range [][]byte{header[:packet.MagicSize], header[packet.MagicSize:], payload} {
		if len(part) == 0 {
			continue
		}
		n, err := c.conn.Write(part)
		if n > 0 {
			written = true
		}
		if err != nil {
			if written {
				c.desynchronize(op, err)
			}
			return newError(KindTransport, op, err)
		}
	}
	return nil
}

// CancelAsync cancels the pending asynchronous read and send, if any.
// Each canceled operation's callback fires with an error wrapping
// [ErrCanceled], and the connection becomes desynchronized. With
// nothing pending, CancelAsync does nothing.
func (c *Conn) CancelAsync() {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	canceled := false
	past := time.Unix(1, 0)
	if c.read.op == opAsync && !c.read.canceled {
		c.read.canceled = true
		canceled = true
		if err := c.conn.SetReadDeadline(past); err != nil {
			c.logger.Debug("transport: interrupting pending read", "error", err)
		}
	}
	if c.write.op == opAsync && !c.write.canceled {
		c.write.canceled = true
		canceled = true
		if err := c.conn.SetWriteDeadline(past); err != nil {
			c.logger.Debug("transport: interrupting pending send", "error", err)
		}
	}
	if canceled {
		c.desynchronize("cancel", ErrCanceled)
	}
}

// Close cancels pending asynchronous operations, closes the stream, and
// waits until every outstanding callback has returned. It is safe to
// call more than once.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.CancelAsync()
	err := c.conn.Close()
	c.inflight.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return newError(KindTransport, "close", err)
	}
	return nil
}

// isDeadline reports whether err is the result of an expired deadline.
func isDeadline(err error) bool {
	return errors.Is(err, os.ErrDeadlineExceeded)
}
