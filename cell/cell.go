package cell

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tonlite/tonlite/libs/bytes"
)

// MaxRefs is the maximum number of child references a single cell may carry.
const MaxRefs = 4

// Type discriminates ordinary cells from the exotic kinds that appear
// inside merkle proofs.
type Type uint8

const (
	OrdinaryType Type = iota
	PrunedBranchType
	LibraryType
	MerkleProofType
	MerkleUpdateType
)

func (t Type) String() string {
	switch t {
	case OrdinaryType:
		return "ordinary"
	case PrunedBranchType:
		return "pruned_branch"
	case LibraryType:
		return "library"
	case MerkleProofType:
		return "merkle_proof"
	case MerkleUpdateType:
		return "merkle_update"
	default:
		return "unknown"
	}
}

var (
	// ErrNotEnoughData is returned when a read runs past the end of a
	// cell's payload.
	ErrNotEnoughData = errors.New("not enough data in cell")

	// ErrNoMoreRefs is returned when a read asks for a child reference
	// the cell does not have.
	ErrNoMoreRefs = errors.New("no more references in cell")

	// ErrPrunedBranchAccess is returned when a lookup tries to descend
	// into a branch that was pruned out of a merkle proof. The data is
	// simply not present; callers must treat this as "outside the proof",
	// never as an empty result.
	ErrPrunedBranchAccess = errors.New("attempt to load data from a pruned branch")

	// ErrTooBigValue is returned when a write does not fit the requested
	// bit width.
	ErrTooBigValue = errors.New("value does not fit the requested bit width")

	// ErrTooMuchData is returned when a cell payload would exceed 1023 bits.
	ErrTooMuchData = errors.New("cell payload exceeds 1023 bits")

	// ErrTooManyRefs is returned when a cell would carry more than 4 refs.
	ErrTooManyRefs = errors.New("cell cannot carry more than 4 references")
)

// Cell is one node of a content-addressed tree: an opaque bit payload plus
// up to 4 child references. Cells are produced either by a Builder or by
// deserializing a bag-of-cells batch; in both cases the reference graph is
// acyclic by construction (batch references may only point forward).
type Cell struct {
	typ  Type
	bits uint
	data []byte
	refs []*Cell

	// memoized representation hash and depth
	hash  []byte
	depth uint16
}

// Type reports the cell kind.
func (c *Cell) Type() Type { return c.typ }

// BitsSize reports the payload length in bits.
func (c *Cell) BitsSize() uint { return c.bits }

// RefsNum reports the number of child references.
func (c *Cell) RefsNum() int { return len(c.refs) }

// MustPeekRef returns the i-th child without any pruning check. It is
// intended for structural walks (serialization, dumping); verification
// paths must go through Slice.LoadRef instead.
func (c *Cell) MustPeekRef(i int) *Cell { return c.refs[i] }

// BeginParse opens a reader over the cell payload. Only ordinary cells hold
// caller-visible data; parsing any exotic cell fails, and a pruned branch
// fails with ErrPrunedBranchAccess so the caller can tell "outside the
// proof" apart from malformed data.
func (c *Cell) BeginParse() (*Slice, error) {
	switch c.typ {
	case OrdinaryType:
		return &Slice{cell: c}, nil
	case PrunedBranchType:
		return nil, ErrPrunedBranchAccess
	default:
		return nil, fmt.Errorf("cannot parse %s cell as data", c.typ)
	}
}

// Hash returns the canonical representation hash of the cell as seen by a
// proof verifier: a pruned branch contributes the digest recorded in its
// payload, every other cell hashes its own header, payload and the hashes
// and depths of its children.
func (c *Cell) Hash() bytes.HexBytes {
	if c.hash != nil {
		return c.hash
	}

	if c.typ == PrunedBranchType {
		c.hash = append([]byte(nil), c.data[2:34]...)
		return c.hash
	}

	repr := make([]byte, 0, 2+len(c.data)+len(c.refs)*34)
	repr = append(repr, c.reprDescriptors()...)
	repr = append(repr, c.paddedData()...)
	for _, ref := range c.refs {
		var d [2]byte
		binary.BigEndian.PutUint16(d[:], ref.Depth())
		repr = append(repr, d[:]...)
	}
	for _, ref := range c.refs {
		repr = append(repr, ref.Hash()...)
	}

	h := sha256.Sum256(repr)
	c.hash = h[:]
	return c.hash
}

// Depth returns the cell's tree depth; a pruned branch answers with the
// depth recorded in its payload so proof hashing stays consistent with the
// full tree it was cut from.
func (c *Cell) Depth() uint16 {
	if c.depth != 0 || len(c.refs) == 0 && c.typ != PrunedBranchType {
		return c.depth
	}

	if c.typ == PrunedBranchType {
		c.depth = binary.BigEndian.Uint16(c.data[34:36])
		return c.depth
	}

	var d uint16
	for _, ref := range c.refs {
		if rd := ref.Depth(); rd > d {
			d = rd
		}
	}
	c.depth = d + 1
	return c.depth
}

// levelMask reports the cell's de Brujn level mask: pruned branches carry
// theirs in the payload, a merkle proof hides one level of its child, and
// ordinary cells inherit the union of their children's.
func (c *Cell) levelMask() byte {
	switch c.typ {
	case PrunedBranchType:
		return c.data[1]
	case MerkleProofType, MerkleUpdateType:
		var m byte
		for _, ref := range c.refs {
			m |= ref.levelMask()
		}
		return m >> 1
	default:
		var m byte
		for _, ref := range c.refs {
			m |= ref.levelMask()
		}
		return m
	}
}

func (c *Cell) descriptors() (d1, d2 byte) {
	d1 = byte(len(c.refs)) | c.levelMask()<<5
	if c.typ != OrdinaryType {
		d1 |= 0x08
	}
	d2 = byte(c.bits/8) + byte((c.bits+7)/8)
	return d1, d2
}

// reprDescriptors are the descriptors used for hashing: the verifier hashes
// at virtualization level zero, so the level mask is not part of the digest.
func (c *Cell) reprDescriptors() []byte {
	d1 := byte(len(c.refs))
	if c.typ != OrdinaryType {
		d1 |= 0x08
	}
	d2 := byte(c.bits/8) + byte((c.bits+7)/8)
	return []byte{d1, d2}
}

// paddedData returns the payload padded to a whole number of bytes with the
// standard completion tag (a single 1 bit followed by zeros).
func (c *Cell) paddedData() []byte {
	data := append([]byte(nil), c.data...)
	if c.bits%8 != 0 {
		data[len(data)-1] |= 1 << (7 - c.bits%8)
	}
	return data
}
