// Package transport declares the capability boundary to the authenticated
// packet transport. The lite-client consumes connections through these
// interfaces only; the handshake, encryption and framing behind them are
// someone else's problem.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by operations on a connection that has been shut
// down locally.
var ErrClosed = errors.New("connection is closed")

// Conn is one established, authenticated connection to a lite-server.
// Requests on a single Conn are strictly sequential: SendRequest matches
// exactly one reply to one request, and the caller must not issue a second
// request before the first returns.
type Conn interface {
	// SendRequest transmits one serialized query and blocks until the
	// matching reply, a transport failure, or ctx is done.
	SendRequest(ctx context.Context, req []byte) ([]byte, error)

	// Ping issues a liveness probe bounded by timeout.
	Ping(ctx context.Context, timeout time.Duration) error

	// IsBroken is a cheap, non-blocking check of the connection-local
	// broken flag the transport sets on fatal I/O errors.
	IsBroken() bool

	// Close tears the connection down. Safe to call more than once.
	Close() error
}

// Dialer establishes new connections. Implementations carry the server
// address, key material and socket timeouts with them.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}
