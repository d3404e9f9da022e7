// Package liteclient is the query/verification engine: a pooled-connection
// request layer with bounded retry on the server's transient not-ready
// condition, a time-windowed cache of the chain head used to pin queries to
// a consistent view, and the trustless verifier that confirms an account's
// state is the one actually committed in that view before exposing it.
package liteclient

import (
	"context"
	"fmt"

	"github.com/tonlite/tonlite/cell"
	"github.com/tonlite/tonlite/config"
	"github.com/tonlite/tonlite/libs/log"
	"github.com/tonlite/tonlite/tl"
	"github.com/tonlite/tonlite/transport"
	"github.com/tonlite/tonlite/types"
)

// MaxTransactionCount bounds one transaction-history page.
const MaxTransactionCount = 255

// Client is a trustless lite-client over one lite-server. It is safe for
// concurrent use; requests on different pooled connections proceed in
// parallel.
type Client struct {
	logger  log.Logger
	metrics *Metrics
	pool    *pool
	head    *lastBlockCache
}

// Option sets an optional parameter on the Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger log.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics sets the metrics collector. Defaults to no-op metrics.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New validates cfg, dials the minimum idle connection set through dialer
// and returns a ready client.
func New(ctx context.Context, cfg *config.Config, dialer transport.Dialer, opts ...Option) (*Client, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	c := &Client{
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
		head:    newLastBlockCache(cfg.LastBlockThreshold),
	}
	for _, opt := range opts {
		opt(c)
	}

	manager := &connManager{
		logger:      c.logger,
		dialer:      dialer,
		pingTimeout: cfg.PingTimeout,
		metrics:     c.metrics,
	}
	p, err := newPool(ctx, manager, cfg.MaxConnections, cfg.MinIdleConnections, cfg.PoolTimeout)
	if err != nil {
		return nil, err
	}
	c.pool = p
	return c, nil
}

// Close shuts the connection pool down.
func (c *Client) Close() {
	c.pool.Close()
}

// lastBlock returns the pinning block id, refreshing the chain-head cache
// through the given connection when it is stale.
func (c *Client) lastBlock(ctx context.Context, conn transport.Conn) (types.BlockID, error) {
	return c.head.get(ctx, func(ctx context.Context) (types.BlockID, error) {
		c.metrics.HeadRefreshes.Add(1)
		reply, err := performQuery[*tl.MasterchainInfo](ctx, c, conn, tl.GetMasterchainInfo{})
		if err != nil {
			return types.BlockID{}, err
		}
		if reply.NotReady {
			return types.BlockID{}, ErrNotReady
		}
		c.logger.Debug("refreshed chain head", "block", reply.Data.Last.String())
		return reply.Data.Last, nil
	})
}

// GetAccountState returns the account's committed record along with the
// lt/hash of its latest transaction, verified against the current chain
// head. The account bytes are never exposed before the accompanying proof
// confirms they are the ones committed in the pinned block.
func (c *Client) GetAccountState(ctx context.Context, addr types.Address) (*types.AccountStats, *types.Account, error) {
	conn, err := c.pool.Checkout(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer c.pool.Release(conn)

	lastID, err := c.lastBlock(ctx, conn)
	if err != nil {
		return nil, nil, err
	}

	reply, err := performQuery[*tl.AccountState](ctx, c, conn, tl.GetAccountState{ID: lastID, Account: addr})
	if err != nil {
		return nil, nil, err
	}

	state := reply.Data
	if reply.NotReady {
		// the server is behind our view; walk back over heads we saw
		// recently, oldest candidates last, and take the first answer
		state = nil
		for _, prev := range c.head.cachedBlocks() {
			if prev.SeqNo >= lastID.SeqNo {
				continue
			}
			c.logger.Debug("falling back to older head", "block", prev.String())
			r, err := performQuery[*tl.AccountState](ctx, c, conn, tl.GetAccountState{ID: prev, Account: addr})
			if err != nil {
				return nil, nil, err
			}
			if !r.NotReady {
				state = r.Data
				break
			}
		}
		if state == nil {
			return nil, nil, ErrNotReady
		}
	}

	return c.verifyAccountState(addr, state)
}

// verifyAccountState is the trust boundary: it accepts the server's raw
// answer and releases the account record only after the proof confirms it
// is committed in the pinned block.
func (c *Client) verifyAccountState(addr types.Address, state *tl.AccountState) (*types.AccountStats, *types.Account, error) {
	account, err := types.DecodeAccount(state.State)
	if err != nil {
		c.logger.Debug("account state not live", "err", err)
		return nil, nil, ErrAccountNotFound
	}

	roots, err := cell.FromBOCMultiRoot(state.Proof)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAccountStateProof, err)
	}
	if len(roots) != 2 {
		return nil, nil, fmt.Errorf("%w: got %d proof roots, want 2", ErrInvalidAccountStateProof, len(roots))
	}

	proof, err := cell.ParseMerkleProof(roots[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAccountStateProof, err)
	}
	stateRoot, err := proof.Virtualize()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAccountStateProof, err)
	}

	shardState, err := types.DecodeShardState(stateRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAccountStateProof, err)
	}

	shardAccount, err := shardState.LookupAccount(addr.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidAccountStateProof, err)
	}
	if shardAccount == nil {
		return nil, nil, ErrAccountNotFound
	}

	stats := &types.AccountStats{
		LastTransactionLT:   shardAccount.LastTransactionLT,
		LastTransactionHash: shardAccount.LastTransactionHash,
		GenLT:               shardState.GenLT,
		GenUtime:            shardState.GenUtime,
	}
	return stats, account, nil
}

// GetTransactions returns up to count transaction records walking back
// from the (lt, hash) anchor, oldest first. An empty history is a normal
// outcome and yields an empty list.
func (c *Client) GetTransactions(ctx context.Context, addr types.Address, count uint32, lt uint64, hash []byte) ([]*types.Transaction, error) {
	if count > MaxTransactionCount {
		return nil, fmt.Errorf("transaction count %d exceeds maximum %d", count, MaxTransactionCount)
	}

	conn, err := c.pool.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Release(conn)

	reply, err := performQuery[*tl.TransactionList](ctx, c, conn, tl.GetTransactions{
		Count:   count,
		Account: addr,
		LT:      lt,
		Hash:    hash,
	})
	if err != nil {
		return nil, err
	}
	if reply.NotReady {
		return nil, ErrNotReady
	}

	// querying before an account's first transaction is a normal boundary
	if len(reply.Data.Transactions) == 0 {
		return []*types.Transaction{}, nil
	}

	cells, err := cell.FromBOCMultiRoot(reply.Data.Transactions)
	if err != nil {
		return nil, fmt.Errorf("transaction list: %w", err)
	}

	// wire order is newest-first
	txs := make([]*types.Transaction, 0, len(cells))
	for i := len(cells) - 1; i >= 0; i-- {
		tx, err := types.DecodeTransaction(cells[i])
		if err != nil {
			return nil, fmt.Errorf("transaction list: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// SendMessage relays an externally built message. Success means the server
// accepted it for processing, not that it was included in a block.
func (c *Client) SendMessage(ctx context.Context, payload []byte) error {
	conn, err := c.pool.Checkout(ctx)
	if err != nil {
		return err
	}
	defer c.pool.Release(conn)

	reply, err := performQuery[*tl.SendMsgStatus](ctx, c, conn, tl.SendMessage{Body: payload})
	if err != nil {
		return err
	}
	if reply.NotReady {
		return ErrNotReady
	}
	c.logger.Debug("message accepted", "status", reply.Data.Status)
	return nil
}
