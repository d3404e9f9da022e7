// Package mock provides a scripted in-memory transport for tests: a dialer
// whose connections answer requests through a caller-supplied handler and
// count everything they are asked to do.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tonlite/tonlite/transport"
)

// Handler produces the serialized reply for one serialized request.
type Handler func(req []byte) ([]byte, error)

// Conn is a scripted transport connection.
type Conn struct {
	mtx     sync.Mutex
	handler Handler
	broken  bool
	closed  bool
	pingErr error

	requests int
	pings    int
}

var _ transport.Conn = (*Conn)(nil)

// NewConn builds a connection answering through handler.
func NewConn(handler Handler) *Conn {
	return &Conn{handler: handler}
}

func (c *Conn) SendRequest(ctx context.Context, req []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return nil, transport.ErrClosed
	}
	c.requests++
	handler := c.handler
	c.mtx.Unlock()

	return handler(req)
}

func (c *Conn) Ping(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.pings++
	if c.closed {
		return transport.ErrClosed
	}
	return c.pingErr
}

func (c *Conn) IsBroken() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.broken
}

func (c *Conn) Close() error {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.closed = true
	return nil
}

// SetBroken flips the connection-local broken flag, the way the real
// transport does on a fatal I/O error.
func (c *Conn) SetBroken() {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.broken = true
}

// SetPingErr makes subsequent liveness probes fail.
func (c *Conn) SetPingErr(err error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.pingErr = err
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.closed
}

// Requests reports how many requests the connection served.
func (c *Conn) Requests() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.requests
}

// Pings reports how many liveness probes the connection served.
func (c *Conn) Pings() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.pings
}

// Dialer hands out scripted connections sharing one handler.
type Dialer struct {
	mtx     sync.Mutex
	handler Handler
	err     error
	conns   []*Conn
}

var _ transport.Dialer = (*Dialer)(nil)

// NewDialer builds a dialer whose connections answer through handler.
func NewDialer(handler Handler) *Dialer {
	return &Dialer{handler: handler}
}

func (d *Dialer) Dial(ctx context.Context) (transport.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	conn := NewConn(d.handler)
	d.conns = append(d.conns, conn)
	return conn, nil
}

// SetError makes subsequent dials fail.
func (d *Dialer) SetError(err error) {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	d.err = err
}

// Dials reports how many connections were established.
func (d *Dialer) Dials() int {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return len(d.conns)
}

// Conns snapshots the connections established so far, in dial order.
func (d *Dialer) Conns() []*Conn {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]*Conn(nil), d.conns...)
}
