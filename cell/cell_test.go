package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceReadsBackWhatBuilderStored(t *testing.T) {
	ref := BeginCell().MustStoreUint(0xdead, 16).EndCell()

	c := BeginCell().
		MustStoreUint(0x9023afe2, 32).
		MustStoreInt(-239, 32).
		MustStoreBit(true).
		MustStoreUint(5, 3).
		MustStoreSlice([]byte{0xaa, 0xbb, 0xcc}, 24).
		MustStoreRef(ref).
		EndCell()

	s, err := c.BeginParse()
	require.NoError(t, err)

	tag, err := s.LoadUint(32)
	require.NoError(t, err)
	assert.EqualValues(t, 0x9023afe2, tag)

	neg, err := s.LoadInt(32)
	require.NoError(t, err)
	assert.EqualValues(t, -239, neg)

	bit, err := s.LoadBit()
	require.NoError(t, err)
	assert.True(t, bit)

	small, err := s.LoadUint(3)
	require.NoError(t, err)
	assert.EqualValues(t, 5, small)

	raw, err := s.LoadSlice(24)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, raw)

	child, err := s.LoadRef()
	require.NoError(t, err)
	v, err := child.LoadUint(16)
	require.NoError(t, err)
	assert.EqualValues(t, 0xdead, v)

	assert.Zero(t, s.BitsLeft())
	assert.Zero(t, s.RefsLeft())

	_, err = s.LoadBit()
	assert.ErrorIs(t, err, ErrNotEnoughData)
	_, err = s.LoadRef()
	assert.ErrorIs(t, err, ErrNoMoreRefs)
}

func TestLoadCoins(t *testing.T) {
	c := BeginCell().
		MustStoreUint(2, 4).          // two bytes follow
		MustStoreUint(0x0102, 16).    // 258 nanotons
		MustStoreUint(0, 4).          // zero grams
		EndCell()

	s, err := c.BeginParse()
	require.NoError(t, err)

	v, err := s.LoadCoins()
	require.NoError(t, err)
	assert.EqualValues(t, 258, v.Uint64())

	zero, err := s.LoadCoins()
	require.NoError(t, err)
	assert.True(t, zero.IsZero())
}

func TestBOCRoundTrip(t *testing.T) {
	shared := BeginCell().MustStoreUint(7, 7).EndCell() // odd bit count
	left := BeginCell().MustStoreUint(1, 8).MustStoreRef(shared).EndCell()
	right := BeginCell().MustStoreUint(2, 8).MustStoreRef(shared).EndCell()
	root := BeginCell().
		MustStoreUint(0xffff, 21).
		MustStoreRef(left).
		MustStoreRef(right).
		EndCell()

	parsed, err := FromBOC(root.ToBOC())
	require.NoError(t, err)

	assert.Equal(t, root.Hash(), parsed.Hash())
	assert.Equal(t, root.BitsSize(), parsed.BitsSize())
	assert.Equal(t, 2, parsed.RefsNum())

	s, err := parsed.BeginParse()
	require.NoError(t, err)
	v, err := s.LoadUint(21)
	require.NoError(t, err)
	assert.EqualValues(t, 0xffff, v)
}

func TestBOCMultiRoot(t *testing.T) {
	a := BeginCell().MustStoreUint(1, 8).EndCell()
	b := BeginCell().MustStoreUint(2, 8).EndCell()

	boc := ToBOCMultiRoot(a, b)

	roots, err := FromBOCMultiRoot(boc)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, a.Hash(), roots[0].Hash())
	assert.Equal(t, b.Hash(), roots[1].Hash())

	_, err = FromBOC(boc)
	assert.ErrorIs(t, err, ErrInvalidBOC)
}

func TestBOCRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x00},
		{0xb5, 0xee, 0x9c},
		{0xb5, 0xee, 0x9c, 0x72},
		{0xb5, 0xee, 0x9c, 0x72, 0x01, 0x01},
	}
	for _, bz := range cases {
		_, err := FromBOCMultiRoot(bz)
		assert.ErrorIs(t, err, ErrInvalidBOC)
	}
}

func TestBOCRejectsHugeCellCount(t *testing.T) {
	// a header claiming ~4 billion cells in a 23-byte input must fail
	// cleanly, not size an arena from the claim
	data := []byte{
		0xb5, 0xee, 0x9c, 0x72, // magic
		0x04,                   // no index, no crc, 4-byte refs
		0x01,                   // 1-byte offsets
		0xff, 0xff, 0xff, 0xfe, // cells
		0x00, 0x00, 0x00, 0x01, // roots
		0x00, 0x00, 0x00, 0x00, // absent
		0x00,                   // payload size
		0x00, 0x00, 0x00, 0x00, // root index
	}
	_, err := FromBOCMultiRoot(data)
	assert.ErrorIs(t, err, ErrInvalidBOC)
}

func TestBOCChecksumCatchesBitFlips(t *testing.T) {
	root := BeginCell().MustStoreUint(0xabcdef, 24).EndCell()
	boc := root.ToBOC()

	for i := range boc {
		mutated := append([]byte(nil), boc...)
		mutated[i] ^= 0x01
		_, err := FromBOCMultiRoot(mutated)
		assert.Error(t, err, "flip at byte %d must not decode cleanly", i)
	}
}

func TestPrunedBranchRefusesReads(t *testing.T) {
	sub := BeginCell().MustStoreUint(42, 32).EndCell()
	pruned := PruneBranch(sub)

	// digest and depth survive the pruning
	assert.Equal(t, sub.Hash(), pruned.Hash())
	assert.Equal(t, sub.Depth(), pruned.Depth())

	_, err := pruned.BeginParse()
	assert.ErrorIs(t, err, ErrPrunedBranchAccess)

	parent := BeginCell().MustStoreRef(pruned).EndCell()
	s, err := parent.BeginParse()
	require.NoError(t, err)
	_, err = s.LoadRef()
	assert.ErrorIs(t, err, ErrPrunedBranchAccess)

	// skipping past a pruned field the caller does not need is fine
	s, err = parent.BeginParse()
	require.NoError(t, err)
	require.NoError(t, s.SkipRef())
}

func TestPruningPreservesParentHash(t *testing.T) {
	leafA := BeginCell().MustStoreUint(1, 64).EndCell()
	leafB := BeginCell().MustStoreUint(2, 64).EndCell()
	full := BeginCell().MustStoreUint(3, 8).MustStoreRef(leafA).MustStoreRef(leafB).EndCell()
	partial := BeginCell().MustStoreUint(3, 8).MustStoreRef(leafA).MustStoreRef(PruneBranch(leafB)).EndCell()

	assert.Equal(t, full.Hash(), partial.Hash())
	assert.Equal(t, full.Depth(), partial.Depth())
}

func TestMerkleProofVirtualize(t *testing.T) {
	leaf := BeginCell().MustStoreUint(77, 16).EndCell()
	state := BeginCell().MustStoreUint(9, 8).MustStoreRef(leaf).EndCell()

	proofCell := WrapMerkleProof(state)

	p, err := ParseMerkleProof(proofCell)
	require.NoError(t, err)

	root, err := p.Virtualize()
	require.NoError(t, err)
	assert.Equal(t, state.Hash(), root.Hash())

	// round trip through the wire form keeps the proof valid
	parsed, err := FromBOC(proofCell.ToBOC())
	require.NoError(t, err)
	p2, err := ParseMerkleProof(parsed)
	require.NoError(t, err)
	_, err = p2.Virtualize()
	require.NoError(t, err)
}

func TestMerkleProofRejectsWrongSubtree(t *testing.T) {
	genuine := BeginCell().MustStoreUint(1, 32).EndCell()
	forged := BeginCell().MustStoreUint(2, 32).EndCell()

	proofCell := WrapMerkleProof(genuine)
	proofCell.refs[0] = forged // substitute the subtree under the commitment

	p, err := ParseMerkleProof(proofCell)
	require.NoError(t, err)
	_, err = p.Virtualize()
	assert.ErrorIs(t, err, ErrProofHashMismatch)
}

func TestMerkleProofRejectsWrongDepth(t *testing.T) {
	leaf := BeginCell().MustStoreUint(5, 8).EndCell()
	state := BeginCell().MustStoreRef(leaf).EndCell()

	proofCell := WrapMerkleProof(state)
	proofCell.data[34] ^= 0x01 // corrupt the recorded depth

	p, err := ParseMerkleProof(proofCell)
	require.NoError(t, err)
	_, err = p.Virtualize()
	assert.ErrorIs(t, err, ErrProofDepthMismatch)
}

func TestParseMerkleProofRejectsOrdinaryCell(t *testing.T) {
	_, err := ParseMerkleProof(BeginCell().MustStoreUint(3, 8).EndCell())
	assert.ErrorIs(t, err, ErrNotMerkleProof)
}
