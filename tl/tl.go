// Package tl implements the subset of the TL binary serialization the
// lite-server protocol speaks: boxed records tagged by the CRC32 of their
// scheme declaration, little-endian fixed integers, padded byte strings
// and boxed vectors.
package tl

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

var (
	// ErrTruncated is returned when a reply ends before its declared fields.
	ErrTruncated = errors.New("truncated tl payload")

	// ErrBadString is returned for a malformed padded byte string.
	ErrBadString = errors.New("malformed tl string")
)

// Request is a serializable function call paired with its expected reply.
// The wire schema is closed and known at build time, so the executor is
// generic over this pair instead of dispatching dynamically.
type Request[R any] interface {
	Marshaler
	// Reply allocates the reply this function resolves to.
	Reply() R
}

// Marshaler appends a record's boxed form.
type Marshaler interface {
	MarshalTL(w *Writer)
}

// Unmarshaler reads a record's fields, the constructor id having been
// consumed by the caller.
type Unmarshaler interface {
	UnmarshalTL(r *Reader) error
	// ConstructorID is the boxed tag the record is declared with.
	ConstructorID() uint32
}

// CRC computes a constructor id from its scheme declaration, e.g.
// "liteServer.error code:int message:string = liteServer.Error".
// Deriving ids from the declarations keeps them in lockstep with the
// published scheme instead of hand-copied magic numbers.
func CRC(scheme string) uint32 {
	scheme = strings.NewReplacer("(", "", ")", "", ";", "").Replace(scheme)
	return crc32.ChecksumIEEE([]byte(scheme))
}

// Writer appends TL-encoded fields to a buffer. The first field failure
// sticks; callers check Err once at the end.
type Writer struct {
	buf []byte
	err error
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

// Err reports the first write failure, if any.
func (w *Writer) Err() error { return w.err }

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteInt32(v int32) { w.WriteUint32(uint32(v)) }

func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteInt256 writes a 256-bit digest as 32 raw bytes; shorter input is
// zero-padded on the left so a zero hash can be spelled nil.
func (w *Writer) WriteInt256(v []byte) {
	if len(v) > 32 {
		if w.err == nil {
			w.err = fmt.Errorf("int256 field of %d bytes", len(v))
		}
		return
	}
	var fixed [32]byte
	copy(fixed[32-len(v):], v)
	w.buf = append(w.buf, fixed[:]...)
}

// WriteBytes writes a length-prefixed string padded to 4 bytes.
func (w *Writer) WriteBytes(v []byte) {
	if len(v) < 0xfe {
		w.buf = append(w.buf, byte(len(v)))
	} else {
		w.buf = append(w.buf, 0xfe, byte(len(v)), byte(len(v)>>8), byte(len(v)>>16))
	}
	w.buf = append(w.buf, v...)
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

// Reader consumes TL-encoded fields from a buffer.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Left reports the number of unread bytes.
func (r *Reader) Left() int { return len(r.buf) - r.pos }

func (r *Reader) take(n int) ([]byte, error) {
	if r.Left() < n {
		return nil, ErrTruncated
	}
	out := r.buf[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	raw, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	raw, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(raw), nil
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadInt256() ([]byte, error) {
	raw, err := r.take(32)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), raw...), nil
}

func (r *Reader) ReadBytes() ([]byte, error) {
	first, err := r.take(1)
	if err != nil {
		return nil, err
	}

	ln := int(first[0])
	read := 1
	if ln == 0xff {
		return nil, ErrBadString
	}
	if ln == 0xfe {
		raw, err := r.take(3)
		if err != nil {
			return nil, err
		}
		ln = int(raw[0]) | int(raw[1])<<8 | int(raw[2])<<16
		read = 4
	}

	data, err := r.take(ln)
	if err != nil {
		return nil, err
	}
	for (read+ln)%4 != 0 {
		if _, err := r.take(1); err != nil {
			return nil, err
		}
		read++
	}
	return append([]byte(nil), data...), nil
}

// Serialize renders a record in boxed form: constructor id then fields.
func Serialize(m Marshaler) ([]byte, error) {
	w := &Writer{}
	m.MarshalTL(w)
	if w.err != nil {
		return nil, w.err
	}
	return w.Bytes(), nil
}

// Parse reads a boxed record of a known type, failing if the constructor id
// does not match.
func Parse(m Unmarshaler, data []byte) error {
	r := NewReader(data)
	id, err := r.ReadUint32()
	if err != nil {
		return err
	}
	if id != m.ConstructorID() {
		return fmt.Errorf("unexpected constructor %#x, want %#x", id, m.ConstructorID())
	}
	return m.UnmarshalTL(r)
}
