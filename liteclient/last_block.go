package liteclient

import (
	"context"
	"sync"
	"time"

	"github.com/tonlite/tonlite/types"
)

// lastBlockHistory bounds the ring of previously seen chain heads kept for
// the fallback search.
const lastBlockHistory = 16

// lastBlockCache holds the most recently fetched chain head. Refreshes are
// serialized under the mutex: two callers racing past the staleness check
// still produce a single network request, with the loser observing the
// winner's result. The fetch outcome is cached whether it succeeded or
// not, so a failing server is also asked at most once per threshold.
type lastBlockCache struct {
	threshold time.Duration

	mtx       sync.Mutex
	fetchedAt time.Time
	last      types.BlockID
	lastErr   error
	history   []types.BlockID // most-recent-first
}

func newLastBlockCache(threshold time.Duration) *lastBlockCache {
	return &lastBlockCache{threshold: threshold}
}

// get returns the cached head if it is fresh enough, otherwise refreshes
// it through fetch. Before the cached entry is overwritten a previously
// successful head is pushed into the history ring, whether or not the
// new fetch succeeded, so a failing refresh cannot drop it from the
// fallback search.
func (lb *lastBlockCache) get(ctx context.Context, fetch func(context.Context) (types.BlockID, error)) (types.BlockID, error) {
	lb.mtx.Lock()
	defer lb.mtx.Unlock()

	if !lb.fetchedAt.IsZero() && time.Since(lb.fetchedAt) < lb.threshold {
		return lb.last, lb.lastErr
	}

	id, err := fetch(ctx)
	if lb.lastErr == nil && !lb.last.IsZero() && (err != nil || lb.last.SeqNo != id.SeqNo) {
		lb.history = append([]types.BlockID{lb.last}, lb.history...)
		if len(lb.history) > lastBlockHistory {
			lb.history = lb.history[:lastBlockHistory]
		}
	}

	lb.fetchedAt = time.Now()
	lb.last = id
	lb.lastErr = err
	return id, err
}

// cachedBlocks snapshots the previously seen heads, most recent first. It
// feeds the account-state fallback search and nothing else.
func (lb *lastBlockCache) cachedBlocks() []types.BlockID {
	lb.mtx.Lock()
	defer lb.mtx.Unlock()
	return append([]types.BlockID(nil), lb.history...)
}
