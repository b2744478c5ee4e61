// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// Listener accepts inbound TCP connections and wraps each in a [Conn]
// configured with the listener's options.
type Listener struct {
	listener net.Listener
	options  Options

	closeOnce sync.Once
	closeErr  error
	inflight  sync.WaitGroup
}

// Listen binds address (e.g. "127.0.0.1:7891", or ":0" for a random
// port).
func Listen(address string, options Options) (*Listener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, newError(KindTransport, "listen", err)
	}
	return NewListener(listener, options), nil
}

// NewListener wraps an already bound listener. The Listener takes
// ownership of it.
func NewListener(listener net.Listener, options Options) *Listener {
	return &Listener{listener: listener, options: options}
}

// Accept blocks until a peer connects.
func (l *Listener) Accept() (*Conn, error) {
	conn, err := l.listener.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			err = ErrClosed
		}
		return nil, newError(KindTransport, "accept", err)
	}
	return New(conn, l.options), nil
}

// AcceptAsync accepts one connection on another goroutine and passes
// it, or the failure, to callback. callback runs exactly once, after
// the accept itself has finished, so it may call Close.
func (l *Listener) AcceptAsync(callback func(*Conn, error)) {
	l.inflight.Add(1)
	go func() {
		conn, err := l.Accept()
		l.inflight.Done()
		callback(conn, err)
	}()
}

// Serve accepts connections until ctx is canceled or the listener is
// closed, running handler on its own goroutine for each. Any other
// accept failure is logged and retried with a growing delay. handler owns
// the connection. Serve returns nil on ctx cancellation or Close, and
// waits for running handlers before returning.
func (l *Listener) Serve(ctx context.Context, handler func(*Conn)) error {
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	var handlers sync.WaitGroup
	defer handlers.Wait()

	logger := l.options.logger()
	var backoff time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			// Accept failures such as ECONNABORTED or EMFILE concern one
			// peer or a momentary resource limit, not the listener.
			backoff = nextAcceptBackoff(backoff)
			logger.Warn("transport: accept failed, retrying",
				"error", err, "backoff", backoff.String())
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			continue
		}
		backoff = 0
		logger.Debug("transport: accepted connection", "remote", conn.RemoteAddr().String())
		handlers.Add(1)
		go func() {
			defer handlers.Done()
			handler(conn)
		}()
	}
}

// Accept retry delays double from the minimum up to the maximum.
const (
	minimumAcceptBackoff = 5 * time.Millisecond
	maximumAcceptBackoff = time.Second
)

func nextAcceptBackoff(previous time.Duration) time.Duration {
	if previous == 0 {
		return minimumAcceptBackoff
	}
	return min(2*previous, maximumAcceptBackoff)
}

// Address returns the bound address in "host:port" form.
func (l *Listener) Address() string {
	return l.listener.Addr().String()
}

// Close stops accepting. Pending Accept and AcceptAsync calls fail with
// [ErrClosed]; Close waits for pending AcceptAsync accepts to return but
// not for their callbacks, which may still be running.
func (l *Listener) Close() error {
	l.closeOnce.Do(func() {
		if err := l.listener.Close(); err != nil {
			l.closeErr = newError(KindTransport, "close listener", err)
		}
	})
	l.inflight.Wait()
	return l.closeErr
}
