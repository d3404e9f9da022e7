package cell

import (
	"github.com/holiman/uint256"
)

// Slice is a bit-granular reader over one cell's payload and references.
// Reads consume; a Slice is not safe for concurrent use.
type Slice struct {
	cell   *Cell
	bitPos uint
	refPos int
}

// BitsLeft reports the number of unread payload bits.
func (s *Slice) BitsLeft() uint { return s.cell.bits - s.bitPos }

// RefsLeft reports the number of unread child references.
func (s *Slice) RefsLeft() int { return len(s.cell.refs) - s.refPos }

// LoadBit consumes a single bit.
func (s *Slice) LoadBit() (bool, error) {
	if s.BitsLeft() < 1 {
		return false, ErrNotEnoughData
	}
	bit := s.cell.data[s.bitPos/8]&(1<<(7-s.bitPos%8)) != 0
	s.bitPos++
	return bit, nil
}

// LoadUint consumes sz bits (sz <= 64) as a big-endian unsigned integer.
func (s *Slice) LoadUint(sz uint) (uint64, error) {
	if s.BitsLeft() < sz {
		return 0, ErrNotEnoughData
	}

	var v uint64
	for i := uint(0); i < sz; i++ {
		bit, _ := s.LoadBit()
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

// LoadInt consumes sz bits as a big-endian two's-complement signed integer.
func (s *Slice) LoadInt(sz uint) (int64, error) {
	v, err := s.LoadUint(sz)
	if err != nil {
		return 0, err
	}
	if sz < 64 && v&(1<<(sz-1)) != 0 {
		v |= ^uint64(0) << sz
	}
	return int64(v), nil
}

// LoadSlice consumes sz bits and returns them packed most-significant-first
// into ceil(sz/8) bytes.
func (s *Slice) LoadSlice(sz uint) ([]byte, error) {
	if s.BitsLeft() < sz {
		return nil, ErrNotEnoughData
	}

	out := make([]byte, (sz+7)/8)
	for i := uint(0); i < sz; i++ {
		bit, _ := s.LoadBit()
		if bit {
			out[i/8] |= 1 << (7 - i%8)
		}
	}
	return out, nil
}

// LoadVarUint consumes a variable-length unsigned integer: a ceil(log2(sz))
// bit byte count followed by that many bytes. Grams use sz = 16.
func (s *Slice) LoadVarUint(sz uint) (*uint256.Int, error) {
	lnBits := uint(bitsLen(sz - 1))
	ln, err := s.LoadUint(lnBits)
	if err != nil {
		return nil, err
	}

	raw, err := s.LoadSlice(uint(ln) * 8)
	if err != nil {
		return nil, err
	}

	v := new(uint256.Int)
	v.SetBytes(raw)
	return v, nil
}

// LoadCoins consumes a Grams amount.
func (s *Slice) LoadCoins() (*uint256.Int, error) {
	return s.LoadVarUint(16)
}

// LoadRefCell consumes the next child reference. Descending into a pruned
// branch fails with ErrPrunedBranchAccess.
func (s *Slice) LoadRefCell() (*Cell, error) {
	if s.RefsLeft() < 1 {
		return nil, ErrNoMoreRefs
	}
	ref := s.cell.refs[s.refPos]
	s.refPos++
	if ref.typ == PrunedBranchType {
		return nil, ErrPrunedBranchAccess
	}
	return ref, nil
}

// LoadRef consumes the next child reference and opens a reader over it.
func (s *Slice) LoadRef() (*Slice, error) {
	ref, err := s.LoadRefCell()
	if err != nil {
		return nil, err
	}
	return ref.BeginParse()
}

// SkipBits discards sz bits.
func (s *Slice) SkipBits(sz uint) error {
	if s.BitsLeft() < sz {
		return ErrNotEnoughData
	}
	s.bitPos += sz
	return nil
}

// SkipRef discards the next child reference without touching it, so a
// pruned branch in a field the caller does not need is not an error.
func (s *Slice) SkipRef() error {
	if s.RefsLeft() < 1 {
		return ErrNoMoreRefs
	}
	s.refPos++
	return nil
}

func bitsLen(v uint) int {
	n := 0
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}
