package cell

import (
	"encoding/binary"
	"hash/crc32"
)

// ToBOC serializes the cell (with everything reachable from it) into the
// standard bag-of-cells form with a trailing checksum.
func (c *Cell) ToBOC() []byte {
	return ToBOCMultiRoot(c)
}

// ToBOCMultiRoot serializes a batch with the given roots. The emitted order
// is a topological one, so every reference points forward, matching what
// FromBOCMultiRoot demands on the way back in.
func ToBOCMultiRoot(roots ...*Cell) []byte {
	order := topoOrder(roots)

	index := make(map[*Cell]int, len(order))
	for i, c := range order {
		index[c] = i
	}

	refSize := bytesForValue(uint64(len(order)))

	var payloadSize uint64
	for _, c := range order {
		payloadSize += uint64(2 + len(c.data) + len(c.refs)*refSize)
	}
	offSize := bytesForValue(payloadSize)

	out := make([]byte, 0, 16+len(roots)*refSize+int(payloadSize)+4)
	out = append(out, bocMagic[:]...)
	out = append(out, 0x40|byte(refSize)) // crc, no index
	out = append(out, byte(offSize))
	out = appendUint(out, uint64(len(order)), refSize)
	out = appendUint(out, uint64(len(roots)), refSize)
	out = appendUint(out, 0, refSize) // no absent cells
	out = appendUint(out, payloadSize, offSize)
	for _, r := range roots {
		out = appendUint(out, uint64(index[r]), refSize)
	}

	for _, c := range order {
		d1, d2 := c.descriptors()
		out = append(out, d1, d2)
		out = append(out, c.paddedData()...)
		for _, ref := range c.refs {
			out = appendUint(out, uint64(index[ref]), refSize)
		}
	}

	var sum [4]byte
	binary.LittleEndian.PutUint32(sum[:], crc32.Checksum(out, crcTable))
	return append(out, sum[:]...)
}

// topoOrder lists every reachable cell so that parents precede children
// (reverse DFS postorder over the reference DAG, deduplicated).
func topoOrder(roots []*Cell) []*Cell {
	var (
		order []*Cell
		seen  = map[*Cell]bool{}
		walk  func(c *Cell)
	)
	walk = func(c *Cell) {
		if seen[c] {
			return
		}
		seen[c] = true
		for _, ref := range c.refs {
			walk(ref)
		}
		order = append(order, c)
	}
	for _, r := range roots {
		walk(r)
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func bytesForValue(v uint64) int {
	n := 1
	for v >= 1<<(8*n) {
		n++
	}
	return n
}

func appendUint(out []byte, v uint64, size int) []byte {
	for i := size - 1; i >= 0; i-- {
		out = append(out, byte(v>>(8*i)))
	}
	return out
}
