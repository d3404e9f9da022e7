package cell

// MaxPayloadBits is the payload capacity of a single cell.
const MaxPayloadBits = 1023

// Builder assembles one cell bit by bit. The zero value is ready to use.
type Builder struct {
	bits uint
	data []byte
	refs []*Cell
}

// BeginCell starts a fresh builder.
func BeginCell() *Builder {
	return &Builder{}
}

// StoreBit appends a single bit.
func (b *Builder) StoreBit(v bool) error {
	if b.bits+1 > MaxPayloadBits {
		return ErrTooMuchData
	}
	if b.bits%8 == 0 {
		b.data = append(b.data, 0)
	}
	if v {
		b.data[b.bits/8] |= 1 << (7 - b.bits%8)
	}
	b.bits++
	return nil
}

// StoreUint appends v as a big-endian unsigned integer of sz bits.
func (b *Builder) StoreUint(v uint64, sz uint) error {
	if sz < 64 && v >= 1<<sz {
		return ErrTooBigValue
	}
	if b.bits+sz > MaxPayloadBits {
		return ErrTooMuchData
	}
	for i := sz; i > 0; i-- {
		if err := b.StoreBit(v&(1<<(i-1)) != 0); err != nil {
			return err
		}
	}
	return nil
}

// StoreInt appends v as a big-endian two's-complement integer of sz bits.
func (b *Builder) StoreInt(v int64, sz uint) error {
	return b.StoreUint(uint64(v)&(^uint64(0)>>(64-sz)), sz)
}

// StoreSlice appends the first sz bits of data (most-significant-first).
func (b *Builder) StoreSlice(data []byte, sz uint) error {
	if uint(len(data))*8 < sz {
		return ErrNotEnoughData
	}
	if b.bits+sz > MaxPayloadBits {
		return ErrTooMuchData
	}
	for i := uint(0); i < sz; i++ {
		if err := b.StoreBit(data[i/8]&(1<<(7-i%8)) != 0); err != nil {
			return err
		}
	}
	return nil
}

// StoreRef appends a child reference.
func (b *Builder) StoreRef(c *Cell) error {
	if len(b.refs) >= MaxRefs {
		return ErrTooManyRefs
	}
	b.refs = append(b.refs, c)
	return nil
}

// MustStoreBit is StoreBit that panics on overflow, for fixtures and
// literals whose size is known at the call site.
func (b *Builder) MustStoreBit(v bool) *Builder {
	if err := b.StoreBit(v); err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) MustStoreUint(v uint64, sz uint) *Builder {
	if err := b.StoreUint(v, sz); err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) MustStoreInt(v int64, sz uint) *Builder {
	if err := b.StoreInt(v, sz); err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) MustStoreSlice(data []byte, sz uint) *Builder {
	if err := b.StoreSlice(data, sz); err != nil {
		panic(err)
	}
	return b
}

func (b *Builder) MustStoreRef(c *Cell) *Builder {
	if err := b.StoreRef(c); err != nil {
		panic(err)
	}
	return b
}

// BitsUsed reports the number of bits stored so far.
func (b *Builder) BitsUsed() uint { return b.bits }

// EndCell seals the builder into an ordinary cell.
func (b *Builder) EndCell() *Cell {
	return &Cell{
		typ:  OrdinaryType,
		bits: b.bits,
		data: append([]byte(nil), b.data...),
		refs: append([]*Cell(nil), b.refs...),
	}
}
