package types

import (
	"errors"
	"fmt"

	"github.com/tonlite/tonlite/cell"
	"github.com/tonlite/tonlite/libs/bytes"
)

const shardStateUnsplitTag = 0x9023afe2

// ErrMalformedShardState wraps every structural failure while decoding a
// proven shard state or walking its account index.
var ErrMalformedShardState = errors.New("malformed shard state")

// ShardState is the proven subset of one shard's state at one block,
// reconstructed from a virtualized proof root. Only the fields this client
// needs are decoded; everything behind pruned branches stays untouched.
type ShardState struct {
	GlobalID      int32
	Shard         ShardIdent
	SeqNo         uint32
	VertSeqNo     uint32
	GenUtime      uint32
	GenLT         uint64
	MinRefMcSeqNo uint32

	accounts *cell.Cell
}

// ShardIdent locates the shard within its workchain.
type ShardIdent struct {
	PrefixBits uint8
	Workchain  int32
	Prefix     uint64
}

// ShardAccount is one committed entry of the account index: the reference
// to the account record plus the lt/hash of its latest transaction.
type ShardAccount struct {
	LastTransactionLT   uint64
	LastTransactionHash bytes.HexBytes
}

// DecodeShardState reads an unsplit shard state from a virtualized proof
// root. Fields before the account index are decoded eagerly; the index
// itself is kept as a cell and only descended on lookup.
func DecodeShardState(root *cell.Cell) (*ShardState, error) {
	s, err := root.BeginParse()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShardState, err)
	}

	tag, err := s.LoadUint(32)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShardState, err)
	}
	if tag != shardStateUnsplitTag {
		return nil, fmt.Errorf("%w: unexpected tag %#x", ErrMalformedShardState, tag)
	}

	var ss ShardState
	if err := decodeShardStateFields(s, &ss); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShardState, err)
	}
	return &ss, nil
}

func decodeShardStateFields(s *cell.Slice, ss *ShardState) error {
	globalID, err := s.LoadInt(32)
	if err != nil {
		return err
	}
	ss.GlobalID = int32(globalID)

	// shard_ident$00 shard_pfx_bits:(#<= 60) workchain_id:int32 shard_prefix:uint64
	identTag, err := s.LoadUint(2)
	if err != nil {
		return err
	}
	if identTag != 0 {
		return fmt.Errorf("bad shard_ident tag %d", identTag)
	}
	pfxBits, err := s.LoadUint(6)
	if err != nil {
		return err
	}
	if pfxBits > 60 {
		return fmt.Errorf("shard prefix bits %d out of range", pfxBits)
	}
	wc, err := s.LoadInt(32)
	if err != nil {
		return err
	}
	prefix, err := s.LoadUint(64)
	if err != nil {
		return err
	}
	ss.Shard = ShardIdent{PrefixBits: uint8(pfxBits), Workchain: int32(wc), Prefix: prefix}

	seqNo, err := s.LoadUint(32)
	if err != nil {
		return err
	}
	vertSeqNo, err := s.LoadUint(32)
	if err != nil {
		return err
	}
	genUtime, err := s.LoadUint(32)
	if err != nil {
		return err
	}
	genLT, err := s.LoadUint(64)
	if err != nil {
		return err
	}
	minRefMc, err := s.LoadUint(32)
	if err != nil {
		return err
	}
	ss.SeqNo = uint32(seqNo)
	ss.VertSeqNo = uint32(vertSeqNo)
	ss.GenUtime = uint32(genUtime)
	ss.GenLT = genLT
	ss.MinRefMcSeqNo = uint32(minRefMc)

	// out_msg_queue_info:^OutMsgQueueInfo - typically pruned, never needed
	if err := s.SkipRef(); err != nil {
		return err
	}

	// before_split:(## 1)
	if _, err := s.LoadBit(); err != nil {
		return err
	}

	// accounts:^ShardAccounts
	accounts, err := s.LoadRefCell()
	if err != nil {
		return err
	}
	ss.accounts = accounts
	return nil
}

// LookupAccount searches the proven account index for the given 32-byte
// account id. Absence is reported as (nil, nil); any descent into a pruned
// branch or structural violation is an error, because it means the proof
// does not actually cover the asked-for account.
func (ss *ShardState) LookupAccount(id []byte) (*ShardAccount, error) {
	if len(id) != 32 {
		return nil, fmt.Errorf("%w: account id must be 32 bytes", ErrMalformedShardState)
	}

	leaf, err := lookupAugDict(ss.accounts, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShardState, err)
	}
	if leaf == nil {
		return nil, nil
	}

	// account_descr$_ account:^Account last_trans_hash:bits256 last_trans_lt:uint64
	if err := leaf.SkipRef(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShardState, err)
	}
	hash, err := leaf.LoadSlice(256)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShardState, err)
	}
	lt, err := leaf.LoadUint(64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedShardState, err)
	}

	return &ShardAccount{
		LastTransactionLT:   lt,
		LastTransactionHash: hash,
	}, nil
}
