package cell

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	tonbytes "github.com/tonlite/tonlite/libs/bytes"
)

// Proof verification failures. All of them mean the server's answer is not
// committed to the root the caller trusts; none of them may be retried or
// downgraded.
var (
	ErrProofHashMismatch  = errors.New("merkle proof hash does not match its subtree")
	ErrProofDepthMismatch = errors.New("merkle proof depth does not match its subtree")
	ErrNotMerkleProof     = errors.New("cell is not a merkle proof")
)

// MerkleProof is a parsed merkle-proof cell: a claimed digest plus the
// partial subtree standing in for the full one. Until Virtualize has
// succeeded nothing under the proof may be trusted.
type MerkleProof struct {
	ProofHash  tonbytes.HexBytes
	ProofDepth uint16

	root *Cell
}

// ParseMerkleProof interprets c as a merkle-proof cell.
func ParseMerkleProof(c *Cell) (*MerkleProof, error) {
	if c.typ != MerkleProofType {
		return nil, fmt.Errorf("%w: got %s cell", ErrNotMerkleProof, c.typ)
	}

	return &MerkleProof{
		ProofHash:  append([]byte(nil), c.data[1:33]...),
		ProofDepth: binary.BigEndian.Uint16(c.data[33:35]),
		root:       c.refs[0],
	}, nil
}

// Virtualize checks the proof subtree against the claimed digest and, on
// success, releases the proven root for descent. Pruned branches below it
// keep refusing reads, so a later lookup cannot silently wander outside
// the proven region.
func (p *MerkleProof) Virtualize() (*Cell, error) {
	if !bytes.Equal(p.root.Hash(), p.ProofHash) {
		return nil, ErrProofHashMismatch
	}
	if p.root.Depth() != p.ProofDepth {
		return nil, ErrProofDepthMismatch
	}
	return p.root, nil
}
