package cell

import "encoding/binary"

// PruneBranch replaces a subtree by its digest: the returned pruned-branch
// cell hashes and serializes exactly like c does from the outside, but any
// attempt to read through it fails. This is how a prover cuts the parts of
// a state tree the verifier did not ask about.
func PruneBranch(c *Cell) *Cell {
	data := make([]byte, 36)
	data[0] = 1 // pruned branch tag
	data[1] = 1 // level mask
	copy(data[2:34], c.Hash())
	binary.BigEndian.PutUint16(data[34:36], c.Depth())

	return &Cell{
		typ:  PrunedBranchType,
		bits: 288,
		data: data,
	}
}

// WrapMerkleProof commits to root: the returned merkle-proof cell records
// the subtree's digest and depth so a verifier can check them before
// descending.
func WrapMerkleProof(root *Cell) *Cell {
	data := make([]byte, 35)
	data[0] = 3 // merkle proof tag
	copy(data[1:33], root.Hash())
	binary.BigEndian.PutUint16(data[33:35], root.Depth())

	return &Cell{
		typ:  MerkleProofType,
		bits: 280,
		data: data,
		refs: []*Cell{root},
	}
}
