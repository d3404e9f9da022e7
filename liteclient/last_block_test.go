package liteclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonlite/tonlite/types"
)

func TestLastBlockCacheHistoryBounded(t *testing.T) {
	lb := newLastBlockCache(0)

	next := uint32(0)
	fetch := func(context.Context) (types.BlockID, error) {
		next++
		return testHead(next), nil
	}

	for i := 0; i < lastBlockHistory+10; i++ {
		_, err := lb.get(context.Background(), fetch)
		require.NoError(t, err)
	}

	history := lb.cachedBlocks()
	require.Len(t, history, lastBlockHistory)

	// most recent first, and the current head is not part of the history
	assert.EqualValues(t, next-1, history[0].SeqNo)
	for i := 1; i < len(history); i++ {
		assert.Equal(t, history[i-1].SeqNo-1, history[i].SeqNo)
	}
}

func TestLastBlockCacheKeepsHeadAcrossFailedRefresh(t *testing.T) {
	lb := newLastBlockCache(0)

	ok := func(context.Context) (types.BlockID, error) {
		return testHead(7), nil
	}
	fail := func(context.Context) (types.BlockID, error) {
		return types.BlockID{}, ErrNotReady
	}

	_, err := lb.get(context.Background(), ok)
	require.NoError(t, err)

	// a refresh that fails must not lose the last successful head from
	// the fallback history
	_, err = lb.get(context.Background(), fail)
	require.ErrorIs(t, err, ErrNotReady)

	history := lb.cachedBlocks()
	require.Len(t, history, 1)
	assert.EqualValues(t, 7, history[0].SeqNo)
}

func TestLastBlockCacheCachesFailures(t *testing.T) {
	lb := newLastBlockCache(time.Minute)

	calls := 0
	fetch := func(context.Context) (types.BlockID, error) {
		calls++
		return types.BlockID{}, ErrNotReady
	}

	for i := 0; i < 3; i++ {
		_, err := lb.get(context.Background(), fetch)
		assert.ErrorIs(t, err, ErrNotReady)
	}
	assert.Equal(t, 1, calls)
}
