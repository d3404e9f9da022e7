package types

import (
	"fmt"

	"github.com/tonlite/tonlite/cell"
)

// lookupAugDict walks an augmented hashmap (HashmapAugE 256 ShardAccount
// DepthBalanceInfo) down to the leaf for key. It returns the leaf slice
// positioned at the value, nil if the key is provably absent, or an error
// if the walk is malformed or leaves the proven region.
func lookupAugDict(root *cell.Cell, key []byte) (*cell.Slice, error) {
	s, err := root.BeginParse()
	if err != nil {
		return nil, err
	}

	// ahme_empty$0 / ahme_root$1 root:^(HashmapAug n X Y) extra:Y
	nonEmpty, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	if !nonEmpty {
		return nil, nil
	}

	node, err := s.LoadRef()
	if err != nil {
		return nil, err
	}

	keyBits := keyBitReader{data: key, size: uint(len(key)) * 8}
	for {
		label, err := readHmLabel(node, keyBits.left())
		if err != nil {
			return nil, err
		}

		matched, err := keyBits.consumePrefix(label)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, nil
		}

		if keyBits.left() == 0 {
			// ahmn_leaf$_ extra:Y value:X
			if err := skipDepthBalance(node); err != nil {
				return nil, err
			}
			return node, nil
		}

		// ahmn_fork$_ left:^(HashmapAug ...) right:^(HashmapAug ...) extra:Y
		branch, err := keyBits.consumeBit()
		if err != nil {
			return nil, err
		}
		if branch {
			if err := node.SkipRef(); err != nil {
				return nil, err
			}
		}
		next, err := node.LoadRef()
		if err != nil {
			return nil, err
		}
		node = next
	}
}

// readHmLabel decodes an HmLabel with at most maxLen key bits remaining and
// returns the label as a bit string.
func readHmLabel(s *cell.Slice, maxLen uint) ([]bool, error) {
	short, err := s.LoadBit()
	if err != nil {
		return nil, err
	}

	if !short {
		// hml_short$0 len:(Unary ~n) s:(n * Bit)
		var n uint
		for {
			bit, err := s.LoadBit()
			if err != nil {
				return nil, err
			}
			if !bit {
				break
			}
			n++
		}
		return loadLabelBits(s, n, maxLen)
	}

	long, err := s.LoadBit()
	if err != nil {
		return nil, err
	}

	lenBits := uintBitsLen(maxLen)
	if !long {
		// hml_long$10 n:(#<= m) s:(n * Bit)
		n, err := s.LoadUint(lenBits)
		if err != nil {
			return nil, err
		}
		return loadLabelBits(s, uint(n), maxLen)
	}

	// hml_same$11 v:Bit n:(#<= m)
	v, err := s.LoadBit()
	if err != nil {
		return nil, err
	}
	n, err := s.LoadUint(lenBits)
	if err != nil {
		return nil, err
	}
	if uint(n) > maxLen {
		return nil, fmt.Errorf("label of %d bits exceeds remaining key of %d", n, maxLen)
	}
	label := make([]bool, n)
	for i := range label {
		label[i] = v
	}
	return label, nil
}

func loadLabelBits(s *cell.Slice, n, maxLen uint) ([]bool, error) {
	if n > maxLen {
		return nil, fmt.Errorf("label of %d bits exceeds remaining key of %d", n, maxLen)
	}
	label := make([]bool, n)
	for i := range label {
		bit, err := s.LoadBit()
		if err != nil {
			return nil, err
		}
		label[i] = bit
	}
	return label, nil
}

// skipDepthBalance jumps over the DepthBalanceInfo augmentation:
// split_depth:(#<= 30) balance:CurrencyCollection.
func skipDepthBalance(s *cell.Slice) error {
	if err := s.SkipBits(5); err != nil {
		return err
	}
	return skipCurrencyCollection(s)
}

// skipCurrencyCollection jumps over grams:Grams other:ExtraCurrencyCollection.
func skipCurrencyCollection(s *cell.Slice) error {
	if _, err := s.LoadCoins(); err != nil {
		return err
	}
	hasExtra, err := s.LoadBit()
	if err != nil {
		return err
	}
	if hasExtra {
		return s.SkipRef()
	}
	return nil
}

// keyBitReader walks the lookup key most-significant bit first.
type keyBitReader struct {
	data []byte
	size uint
	pos  uint
}

func (k *keyBitReader) left() uint { return k.size - k.pos }

func (k *keyBitReader) consumeBit() (bool, error) {
	if k.left() == 0 {
		return false, fmt.Errorf("lookup key exhausted")
	}
	bit := k.data[k.pos/8]&(1<<(7-k.pos%8)) != 0
	k.pos++
	return bit, nil
}

// consumePrefix matches label against the next key bits. A mismatch means
// the key is absent from the dictionary, not that the walk failed.
func (k *keyBitReader) consumePrefix(label []bool) (bool, error) {
	for _, want := range label {
		got, err := k.consumeBit()
		if err != nil {
			return false, err
		}
		if got != want {
			return false, nil
		}
	}
	return true, nil
}

func uintBitsLen(v uint) uint {
	var n uint
	for v > 0 {
		n++
		v >>= 1
	}
	return n
}
