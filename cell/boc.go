package cell

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math/bits"
)

// ErrInvalidBOC wraps every bag-of-cells framing failure.
var ErrInvalidBOC = errors.New("invalid bag of cells")

var bocMagic = [4]byte{0xb5, 0xee, 0x9c, 0x72}

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// rawCell is one arena record of a deserialized batch. Children are
// positional indices into the same batch, never pointers, so any decodable
// batch is acyclic by construction.
type rawCell struct {
	special bool
	bits    uint
	data    []byte
	refs    []int
}

// FromBOC deserializes a bag of cells carrying exactly one root.
func FromBOC(data []byte) (*Cell, error) {
	roots, err := FromBOCMultiRoot(data)
	if err != nil {
		return nil, err
	}
	if len(roots) != 1 {
		return nil, fmt.Errorf("%w: expected single root, got %d", ErrInvalidBOC, len(roots))
	}
	return roots[0], nil
}

// FromBOCMultiRoot deserializes a length-prefixed bag of cells into its
// ordered batch of cells and returns the declared roots. The decoder is
// total over arbitrary input: any framing violation yields ErrInvalidBOC.
func FromBOCMultiRoot(data []byte) ([]*Cell, error) {
	r := &byteReader{data: data}

	magic, err := r.take(4)
	if err != nil || [4]byte(magic) != bocMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidBOC)
	}

	flags, err := r.byte()
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidBOC)
	}
	var (
		hasIdx       = flags&0x80 != 0
		hasCrc       = flags&0x40 != 0
		hasCacheBits = flags&0x20 != 0
		refSize      = int(flags & 0x07)
	)
	if flags&0x18 != 0 || refSize < 1 || refSize > 4 {
		return nil, fmt.Errorf("%w: bad flags byte %#x", ErrInvalidBOC, flags)
	}
	if hasCacheBits && !hasIdx {
		return nil, fmt.Errorf("%w: cache bits without index", ErrInvalidBOC)
	}

	offSize, err := r.byte()
	if err != nil || offSize < 1 || offSize > 8 {
		return nil, fmt.Errorf("%w: bad offset size", ErrInvalidBOC)
	}

	cellsNum, err := r.uint(refSize)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidBOC)
	}
	rootsNum, err := r.uint(refSize)
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidBOC)
	}
	absentNum, err := r.uint(refSize)
	if err != nil || absentNum != 0 {
		return nil, fmt.Errorf("%w: absent cells are not supported", ErrInvalidBOC)
	}
	if rootsNum == 0 || rootsNum > cellsNum {
		return nil, fmt.Errorf("%w: bad root count %d of %d cells", ErrInvalidBOC, rootsNum, cellsNum)
	}
	// every encoded cell takes at least its two descriptor bytes, so a
	// count the remaining input cannot hold is rejected before anything
	// is sized from it
	if cellsNum*2 > uint64(r.left()) {
		return nil, fmt.Errorf("%w: %d cells cannot fit %d remaining bytes", ErrInvalidBOC, cellsNum, r.left())
	}

	dataSize, err := r.uint(int(offSize))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidBOC)
	}

	rootIdx := make([]uint64, rootsNum)
	for i := range rootIdx {
		if rootIdx[i], err = r.uint(refSize); err != nil {
			return nil, fmt.Errorf("%w: truncated root list", ErrInvalidBOC)
		}
		if rootIdx[i] >= cellsNum {
			return nil, fmt.Errorf("%w: root index out of range", ErrInvalidBOC)
		}
	}

	if hasIdx {
		if _, err = r.take(int(cellsNum) * int(offSize)); err != nil {
			return nil, fmt.Errorf("%w: truncated index", ErrInvalidBOC)
		}
	}

	payload, err := r.take(int(dataSize))
	if err != nil {
		return nil, fmt.Errorf("%w: truncated cell data", ErrInvalidBOC)
	}

	if hasCrc {
		sum, err := r.take(4)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated checksum", ErrInvalidBOC)
		}
		if crc32.Checksum(data[:r.pos-4], crcTable) != binary.LittleEndian.Uint32(sum) {
			return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidBOC)
		}
	}

	if r.left() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidBOC, r.left())
	}

	arena, err := parseBatch(payload, int(cellsNum), refSize)
	if err != nil {
		return nil, err
	}

	cells, err := linkBatch(arena)
	if err != nil {
		return nil, err
	}

	roots := make([]*Cell, rootsNum)
	for i, ri := range rootIdx {
		roots[i] = cells[ri]
	}
	return roots, nil
}

// parseBatch reads the depth-first cell records into the arena form.
func parseBatch(payload []byte, cellsNum, refSize int) ([]rawCell, error) {
	r := &byteReader{data: payload}
	arena := make([]rawCell, cellsNum)

	for i := 0; i < cellsNum; i++ {
		d1, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated cell %d", ErrInvalidBOC, i)
		}
		d2, err := r.byte()
		if err != nil {
			return nil, fmt.Errorf("%w: truncated cell %d", ErrInvalidBOC, i)
		}

		refsNum := int(d1 & 0x07)
		if refsNum > MaxRefs {
			return nil, fmt.Errorf("%w: cell %d claims %d refs", ErrInvalidBOC, i, refsNum)
		}

		dataLen := (int(d2) + 1) / 2
		raw, err := r.take(dataLen)
		if err != nil {
			return nil, fmt.Errorf("%w: truncated cell %d payload", ErrInvalidBOC, i)
		}

		bitLen := uint(d2/2) * 8
		if d2%2 != 0 {
			last := raw[dataLen-1]
			if last == 0 {
				return nil, fmt.Errorf("%w: cell %d has empty completion tag", ErrInvalidBOC, i)
			}
			bitLen += 7 - uint(bits.TrailingZeros8(last))
		}

		refs := make([]int, refsNum)
		for j := range refs {
			ref, err := r.uint(refSize)
			if err != nil {
				return nil, fmt.Errorf("%w: truncated cell %d refs", ErrInvalidBOC, i)
			}
			// forward-only references keep the batch acyclic
			if ref <= uint64(i) || ref >= uint64(cellsNum) {
				return nil, fmt.Errorf("%w: cell %d ref %d out of order", ErrInvalidBOC, i, ref)
			}
			refs[j] = int(ref)
		}

		data := append([]byte(nil), raw[:(bitLen+7)/8]...)
		if bitLen%8 != 0 {
			// strip the completion tag; BitsSize is authoritative
			data[len(data)-1] &^= 1 << (7 - bitLen%8)
		}

		arena[i] = rawCell{
			special: d1&0x08 != 0,
			bits:    bitLen,
			data:    data,
			refs:    refs,
		}
	}

	if r.left() != 0 {
		return nil, fmt.Errorf("%w: %d trailing payload bytes", ErrInvalidBOC, r.left())
	}
	return arena, nil
}

// linkBatch resolves arena indices into cells, classifying and validating
// exotic cells. Linking runs back to front so every reference target is
// already built.
func linkBatch(arena []rawCell) ([]*Cell, error) {
	cells := make([]*Cell, len(arena))
	for i := len(arena) - 1; i >= 0; i-- {
		rc := arena[i]

		refs := make([]*Cell, len(rc.refs))
		for j, ri := range rc.refs {
			refs[j] = cells[ri]
		}

		typ := OrdinaryType
		if rc.special {
			var err error
			if typ, err = classifyExotic(rc, i); err != nil {
				return nil, err
			}
		}

		cells[i] = &Cell{
			typ:  typ,
			bits: rc.bits,
			data: rc.data,
			refs: refs,
		}
	}
	return cells, nil
}

func classifyExotic(rc rawCell, idx int) (Type, error) {
	if rc.bits < 8 {
		return 0, fmt.Errorf("%w: exotic cell %d has no type byte", ErrInvalidBOC, idx)
	}
	switch Type(rc.data[0]) {
	case Type(1): // pruned branch
		if rc.bits != 288 || rc.data[1] != 1 || len(rc.refs) != 0 {
			return 0, fmt.Errorf("%w: malformed pruned branch at %d", ErrInvalidBOC, idx)
		}
		return PrunedBranchType, nil
	case Type(2): // library reference
		if rc.bits != 264 || len(rc.refs) != 0 {
			return 0, fmt.Errorf("%w: malformed library cell at %d", ErrInvalidBOC, idx)
		}
		return LibraryType, nil
	case Type(3): // merkle proof
		if rc.bits != 280 || len(rc.refs) != 1 {
			return 0, fmt.Errorf("%w: malformed merkle proof at %d", ErrInvalidBOC, idx)
		}
		return MerkleProofType, nil
	case Type(4): // merkle update
		if rc.bits != 552 || len(rc.refs) != 2 {
			return 0, fmt.Errorf("%w: malformed merkle update at %d", ErrInvalidBOC, idx)
		}
		return MerkleUpdateType, nil
	default:
		return 0, fmt.Errorf("%w: unknown exotic cell type %d at %d", ErrInvalidBOC, rc.data[0], idx)
	}
}

type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) left() int { return len(r.data) - r.pos }

func (r *byteReader) take(n int) ([]byte, error) {
	if n < 0 || r.left() < n {
		return nil, ErrInvalidBOC
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) uint(size int) (uint64, error) {
	raw, err := r.take(size)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range raw {
		v = v<<8 | uint64(b)
	}
	return v, nil
}
