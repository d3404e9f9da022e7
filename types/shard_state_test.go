package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonlite/tonlite/cell"
)

// testShardAccount is one entry to place into a fixture account index.
type testShardAccount struct {
	id       []byte
	lastLT   uint64
	lastHash []byte
	pruned   bool // replace the whole subtree holding this entry by its digest
}

// buildShardStateFixture assembles a ShardStateUnsplit cell with a two-entry
// account index: entries[0] must have an id starting with a 0 bit and
// entries[1] with a 1 bit, so they land left and right of the root fork.
func buildShardStateFixture(t *testing.T, genLT uint64, genUtime uint32, entries [2]testShardAccount) *cell.Cell {
	t.Helper()
	require.Zero(t, entries[0].id[0]&0x80, "first entry must sort left")
	require.NotZero(t, entries[1].id[0]&0x80, "second entry must sort right")

	var leaves [2]*cell.Cell
	for i, e := range entries {
		leaf := cell.BeginCell()
		// hml_long$10 n:(#<= 255) stored in 8 bits, then the 255 remaining key bits
		leaf.MustStoreUint(0b10, 2).MustStoreUint(255, 8)
		storeKeyBits(leaf, e.id, 1, 255)
		storeZeroDepthBalance(leaf)
		// account_descr$_ account:^Account last_trans_hash:bits256 last_trans_lt:uint64
		account := cell.BeginCell().MustStoreBit(true).MustStoreUint(uint64(i), 32).EndCell()
		leaf.MustStoreRef(cell.PruneBranch(account))
		leaf.MustStoreSlice(e.lastHash, 256)
		leaf.MustStoreUint(e.lastLT, 64)

		leaves[i] = leaf.EndCell()
		if e.pruned {
			leaves[i] = cell.PruneBranch(leaves[i])
		}
	}

	// root edge: hml_short$0 with an empty unary label, then the fork
	edge := cell.BeginCell().MustStoreUint(0b00, 2)
	edge.MustStoreRef(leaves[0]).MustStoreRef(leaves[1])
	storeZeroDepthBalance(edge)

	// ahme_root$1 root:^(HashmapAug 256 ShardAccount DepthBalanceInfo) extra:Y
	accounts := cell.BeginCell().MustStoreBit(true).MustStoreRef(edge.EndCell())
	storeZeroDepthBalance(accounts)

	ss := cell.BeginCell().
		MustStoreUint(0x9023afe2, 32). // shard_state#9023afe2
		MustStoreInt(-239, 32).        // global_id
		MustStoreUint(0, 2).           // shard_ident$00
		MustStoreUint(0, 6).           // shard_pfx_bits
		MustStoreInt(-1, 32).          // workchain_id
		MustStoreUint(1<<63, 64).      // shard_prefix
		MustStoreUint(4242, 32).       // seq_no
		MustStoreUint(1, 32).          // vert_seq_no
		MustStoreUint(uint64(genUtime), 32).
		MustStoreUint(genLT, 64).
		MustStoreUint(4000, 32). // min_ref_mc_seqno
		MustStoreRef(cell.PruneBranch(cell.BeginCell().MustStoreUint(0, 8).EndCell())). // out_msg_queue_info
		MustStoreBit(false). // before_split
		MustStoreRef(accounts.EndCell())

	return ss.EndCell()
}

func storeZeroDepthBalance(b *cell.Builder) {
	b.MustStoreUint(0, 5) // split_depth
	b.MustStoreUint(0, 4) // zero grams
	b.MustStoreBit(false) // no extra currencies
}

func storeKeyBits(b *cell.Builder, key []byte, from, n uint) {
	for i := from; i < from+n; i++ {
		b.MustStoreBit(key[i/8]&(1<<(7-i%8)) != 0)
	}
}

func TestShardStateLookupThroughProof(t *testing.T) {
	left := testShardAccount{id: testKey(0x11), lastLT: 777, lastHash: testKey(0xaa)}
	right := testShardAccount{id: testKey(0xee), lastLT: 888, lastHash: testKey(0xbb)}

	stateRoot := buildShardStateFixture(t, 123456, 1700000000, [2]testShardAccount{left, right})

	// the proof travels as a merkle-proof cell committing to the state root
	proof, err := cell.ParseMerkleProof(cell.WrapMerkleProof(stateRoot))
	require.NoError(t, err)
	virtualized, err := proof.Virtualize()
	require.NoError(t, err)

	ss, err := DecodeShardState(virtualized)
	require.NoError(t, err)
	assert.EqualValues(t, -239, ss.GlobalID)
	assert.EqualValues(t, -1, ss.Shard.Workchain)
	assert.EqualValues(t, 4242, ss.SeqNo)
	assert.EqualValues(t, 123456, ss.GenLT)
	assert.EqualValues(t, 1700000000, ss.GenUtime)

	for _, e := range []testShardAccount{left, right} {
		got, err := ss.LookupAccount(e.id)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, e.lastLT, got.LastTransactionLT)
		assert.EqualValues(t, e.lastHash, got.LastTransactionHash.Bytes())
	}
}

func TestShardStateLookupAbsentKey(t *testing.T) {
	left := testShardAccount{id: testKey(0x11), lastLT: 1, lastHash: testKey(0xaa)}
	right := testShardAccount{id: testKey(0xee), lastLT: 2, lastHash: testKey(0xbb)}
	stateRoot := buildShardStateFixture(t, 1, 1, [2]testShardAccount{left, right})

	ss, err := DecodeShardState(stateRoot)
	require.NoError(t, err)

	// same first bit as the left entry, diverges inside its label
	absent := testKey(0x11)
	absent[31] ^= 0x01
	got, err := ss.LookupAccount(absent)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestShardStateLookupIntoPrunedBranchFails(t *testing.T) {
	left := testShardAccount{id: testKey(0x11), lastLT: 1, lastHash: testKey(0xaa)}
	right := testShardAccount{id: testKey(0xee), lastLT: 2, lastHash: testKey(0xbb), pruned: true}
	stateRoot := buildShardStateFixture(t, 1, 1, [2]testShardAccount{left, right})

	ss, err := DecodeShardState(stateRoot)
	require.NoError(t, err)

	// the left entry is present in the proof
	got, err := ss.LookupAccount(left.id)
	require.NoError(t, err)
	require.NotNil(t, got)

	// the right one was pruned away: the lookup must fail, not report absence
	_, err = ss.LookupAccount(right.id)
	assert.ErrorIs(t, err, ErrMalformedShardState)
}

func TestDecodeShardStateRejectsBadTag(t *testing.T) {
	c := cell.BeginCell().MustStoreUint(0xdeadbeef, 32).EndCell()
	_, err := DecodeShardState(c)
	assert.ErrorIs(t, err, ErrMalformedShardState)
}

func TestDecodeShardStateSurvivesWireRoundTrip(t *testing.T) {
	left := testShardAccount{id: testKey(0x11), lastLT: 10, lastHash: testKey(0xaa)}
	right := testShardAccount{id: testKey(0xee), lastLT: 20, lastHash: testKey(0xbb)}
	stateRoot := buildShardStateFixture(t, 5, 6, [2]testShardAccount{left, right})

	parsed, err := cell.FromBOC(cell.WrapMerkleProof(stateRoot).ToBOC())
	require.NoError(t, err)

	proof, err := cell.ParseMerkleProof(parsed)
	require.NoError(t, err)
	virtualized, err := proof.Virtualize()
	require.NoError(t, err)

	ss, err := DecodeShardState(virtualized)
	require.NoError(t, err)

	got, err := ss.LookupAccount(left.id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.EqualValues(t, 10, got.LastTransactionLT)
}
