package types

import (
	"fmt"

	"github.com/tonlite/tonlite/libs/bytes"
)

// BlockID identifies exactly one block: workchain, shard mask, sequence
// number and the two digests (tree-of-cells root and serialized file).
// It is a value type; queries are pinned to one and retries fall back
// across them by descending sequence number.
type BlockID struct {
	Workchain int32
	Shard     uint64
	SeqNo     uint32
	RootHash  bytes.HexBytes
	FileHash  bytes.HexBytes
}

// IsZero reports whether the id has been populated at all.
func (id BlockID) IsZero() bool {
	return id.SeqNo == 0 && len(id.RootHash) == 0 && len(id.FileHash) == 0
}

func (id BlockID) String() string {
	return fmt.Sprintf("(%d,%016x,%d):%s", id.Workchain, id.Shard, id.SeqNo, id.RootHash.String())
}
