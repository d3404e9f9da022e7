package tl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonlite/tonlite/types"
)

func TestCRCNormalizesDeclarations(t *testing.T) {
	assert.Equal(t,
		CRC("liteServer.transactionList ids:(vector tonNode.blockIdExt) transactions:bytes = liteServer.TransactionList"),
		CRC("liteServer.transactionList ids:vector tonNode.blockIdExt transactions:bytes = liteServer.TransactionList;"),
	)
	assert.NotEqual(t,
		CRC("liteServer.sendMessage body:bytes = liteServer.SendMsgStatus"),
		CRC("liteServer.sendMsgStatus status:int = liteServer.SendMsgStatus"),
	)
}

func TestBytesPadding(t *testing.T) {
	for _, ln := range []int{0, 1, 3, 4, 5, 253, 254, 255, 1000} {
		w := &Writer{}
		payload := make([]byte, ln)
		for i := range payload {
			payload[i] = byte(i)
		}
		w.WriteBytes(payload)

		require.Zero(t, len(w.Bytes())%4, "length %d must pad to 4", ln)

		got, err := NewReader(w.Bytes()).ReadBytes()
		require.NoError(t, err)
		assert.Equal(t, payload, got, "length %d", ln)
	}
}

func TestReaderTruncation(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02})
	_, err := r.ReadUint32()
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = NewReader([]byte{0x05, 0xaa, 0xbb}).ReadBytes()
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestQueryEnvelopeRoundTrip(t *testing.T) {
	inner := mustSerialize(t, GetMasterchainInfo{})
	raw := mustSerialize(t, Query{Data: inner})

	var q Query
	require.NoError(t, Parse(&q, raw))
	assert.Equal(t, inner, q.Data)
}

func TestAccountStateRoundTrip(t *testing.T) {
	orig := &AccountState{
		ID:         testBlockID(100),
		ShardBlock: testBlockID(90),
		ShardProof: []byte{1, 2, 3},
		Proof:      []byte{4, 5, 6, 7},
		State:      []byte{8},
	}

	var got AccountState
	require.NoError(t, Parse(&got, mustSerialize(t, orig)))
	assert.Equal(t, *orig, got)
}

func TestTransactionListRoundTrip(t *testing.T) {
	orig := &TransactionList{
		IDs:          []types.BlockID{testBlockID(1), testBlockID(2)},
		Transactions: []byte{0xb5, 0xee},
	}

	var got TransactionList
	require.NoError(t, Parse(&got, mustSerialize(t, orig)))
	assert.Equal(t, orig.IDs, got.IDs)
	assert.Equal(t, orig.Transactions, got.Transactions)
}

func TestSerializeReportsOversizedHash(t *testing.T) {
	_, err := Serialize(GetTransactions{
		Count:   1,
		Account: types.Address{Workchain: 0, ID: make([]byte, 33)},
		Hash:    make([]byte, 33),
	})
	assert.Error(t, err)
}

func TestTransactionListRejectsHugeVectorCount(t *testing.T) {
	// a reply claiming ~4 billion ids in an otherwise empty vector must
	// fail as truncated, not preallocate from the claimed count
	w := &Writer{}
	w.WriteUint32(idTransactionList)
	w.WriteUint32(idVector)
	w.WriteUint32(0xfffffffe)
	require.NoError(t, w.Err())

	var list TransactionList
	assert.ErrorIs(t, Parse(&list, w.Bytes()), ErrTruncated)
}

func TestParseRejectsWrongConstructor(t *testing.T) {
	raw := mustSerialize(t, &Error{Code: 651, Message: "not ready"})

	var info MasterchainInfo
	err := Parse(&info, raw)
	assert.Error(t, err)

	var srvErr Error
	require.NoError(t, Parse(&srvErr, raw))
	assert.EqualValues(t, 651, srvErr.Code)
	assert.Equal(t, "not ready", srvErr.Message)
}

func mustSerialize(t *testing.T, m Marshaler) []byte {
	t.Helper()
	raw, err := Serialize(m)
	require.NoError(t, err)
	return raw
}

func testBlockID(seqNo uint32) types.BlockID {
	root := make([]byte, 32)
	file := make([]byte, 32)
	root[0] = byte(seqNo)
	file[0] = byte(seqNo) + 1
	return types.BlockID{
		Workchain: -1,
		Shard:     1 << 63,
		SeqNo:     seqNo,
		RootHash:  root,
		FileHash:  file,
	}
}
