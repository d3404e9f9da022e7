package liteclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/creachadair/taskgroup"
	"golang.org/x/sync/semaphore"

	"github.com/tonlite/tonlite/libs/log"
	"github.com/tonlite/tonlite/transport"
)

// connManager owns the connection lifecycle: dialing, liveness probing and
// the broken-flag check. It never retries; retry policy lives with the
// pool's checkout.
type connManager struct {
	logger      log.Logger
	dialer      transport.Dialer
	pingTimeout time.Duration
	metrics     *Metrics
}

func (m *connManager) connect(ctx context.Context) (transport.Conn, error) {
	conn, err := m.dialer.Dial(ctx)
	if err != nil {
		m.logger.Error("failed to connect", "err", err)
		return nil, err
	}
	m.metrics.Connections.Add(1)
	return conn, nil
}

// isValid probes an idle connection before it is handed out again.
func (m *connManager) isValid(ctx context.Context, conn transport.Conn) error {
	if m.hasBroken(conn) {
		return errors.New("connection is flagged broken")
	}
	ctx, cancel := context.WithTimeout(ctx, m.pingTimeout)
	defer cancel()
	if err := conn.Ping(ctx, m.pingTimeout); err != nil {
		m.logger.Debug("liveness probe failed", "err", err)
		return err
	}
	return nil
}

func (m *connManager) hasBroken(conn transport.Conn) bool {
	return conn.IsBroken()
}

func (m *connManager) discard(conn transport.Conn) {
	_ = conn.Close()
	m.metrics.Connections.Add(-1)
}

// pool is a bounded set of live connections handed out under a checkout
// discipline. A semaphore bounds concurrent holders; idle connections wait
// in a buffered channel and broken ones are replaced lazily on checkout.
type pool struct {
	manager         *connManager
	checkoutTimeout time.Duration

	holders *semaphore.Weighted
	idle    chan transport.Conn

	mtx    sync.Mutex
	closed bool
}

func newPool(ctx context.Context, manager *connManager, max, minIdle int, checkoutTimeout time.Duration) (*pool, error) {
	p := &pool{
		manager:         manager,
		checkoutTimeout: checkoutTimeout,
		holders:         semaphore.NewWeighted(int64(max)),
		idle:            make(chan transport.Conn, max),
	}

	// dial the minimum idle set eagerly so the first queries do not pay
	// connection setup latency
	g := taskgroup.New(nil)
	for i := 0; i < minIdle; i++ {
		g.Go(func() error {
			conn, err := manager.connect(ctx)
			if err != nil {
				return err
			}
			p.idle <- conn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.Close()
		return nil, ErrConnection{Reason: err}
	}
	return p, nil
}

// Checkout hands out one connection for exclusive use. It blocks until a
// connection is available or the pool timeout elapses. Idle connections
// are probed first; ones that fail are discarded and replaced.
func (p *pool) Checkout(ctx context.Context) (transport.Conn, error) {
	p.mtx.Lock()
	closed := p.closed
	p.mtx.Unlock()
	if closed {
		return nil, ErrConnection{Reason: errors.New("pool is closed")}
	}

	ctx, cancel := context.WithTimeout(ctx, p.checkoutTimeout)
	defer cancel()

	if err := p.holders.Acquire(ctx, 1); err != nil {
		return nil, ErrConnection{Reason: fmt.Errorf("checkout: %w", err)}
	}

	for {
		select {
		case conn := <-p.idle:
			if err := p.manager.isValid(ctx, conn); err != nil {
				p.manager.discard(conn)
				continue
			}
			return conn, nil
		default:
		}

		conn, err := p.manager.connect(ctx)
		if err != nil {
			p.holders.Release(1)
			return nil, ErrConnection{Reason: err}
		}
		return conn, nil
	}
}

// Release returns a checked-out connection. Broken connections are closed
// here and replaced lazily by the next checkout.
func (p *pool) Release(conn transport.Conn) {
	if conn == nil {
		return
	}
	defer p.holders.Release(1)

	p.mtx.Lock()
	closed := p.closed
	p.mtx.Unlock()

	if closed || p.manager.hasBroken(conn) {
		p.manager.discard(conn)
		return
	}
	select {
	case p.idle <- conn:
	default:
		p.manager.discard(conn)
	}
}

// Close shuts the idle set down. Checked-out connections are closed as
// they are released.
func (p *pool) Close() {
	p.mtx.Lock()
	if p.closed {
		p.mtx.Unlock()
		return
	}
	p.closed = true
	p.mtx.Unlock()

	for {
		select {
		case conn := <-p.idle:
			p.manager.discard(conn)
		default:
			return
		}
	}
}
