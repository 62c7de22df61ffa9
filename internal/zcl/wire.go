package zcl

import (
	"encoding/binary"
	"fmt"
)

// Reader is a bounded little-endian read cursor over a byte slice.
// A failed read leaves the cursor where it was.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a cursor positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.off }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

func (r *Reader) need(n int) error {
	if n < 0 || r.Len() < n {
		return fmt.Errorf("zcl: read %d bytes at offset %d, have %d: %w", n, r.off, r.Len(), ErrShortBuffer)
	}
	return nil
}

// Uint8 reads one byte.
func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

// Uint16 reads a little-endian 16-bit value.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// Uint32 reads a little-endian 32-bit value.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// UintN reads an n-byte (1..8) little-endian unsigned integer.
func (r *Reader) UintN(n int) (uint64, error) {
	if n < 1 || n > 8 {
		return 0, fmt.Errorf("zcl: integer width %d: %w", n, ErrInvalidType)
	}
	if err := r.need(n); err != nil {
		return 0, err
	}
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(r.buf[r.off+i])
	}
	r.off += n
	return v, nil
}

// IntN reads an n-byte (1..8) little-endian two's complement integer and sign-extends it.
func (r *Reader) IntN(n int) (int64, error) {
	u, err := r.UintN(n)
	if err != nil {
		return 0, err
	}
	shift := uint(64 - 8*n)
	return int64(u<<shift) >> shift, nil
}

// Bytes returns the next n bytes. The result aliases the underlying buffer.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return b, nil
}

// Rest consumes and returns every unread byte.
func (r *Reader) Rest() []byte {
	b := r.buf[r.off:len(r.buf):len(r.buf)]
	r.off = len(r.buf)
	return b
}

// ShortString reads a string with a 1-byte length prefix. ok is false for the
// 0xFF invalid-string sentinel.
func (r *Reader) ShortString() (b []byte, ok bool, err error) {
	return r.lengthPrefixed(1)
}

// LongString reads a string with a 2-byte length prefix. ok is false for the
// 0xFFFF invalid-string sentinel.
func (r *Reader) LongString() (b []byte, ok bool, err error) {
	return r.lengthPrefixed(2)
}

func (r *Reader) lengthPrefixed(width int) ([]byte, bool, error) {
	start := r.off
	n, err := r.UintN(width)
	if err != nil {
		return nil, false, err
	}
	if n == 1<<(8*width)-1 {
		return nil, false, nil
	}
	b, err := r.Bytes(int(n))
	if err != nil {
		r.off = start
		return nil, false, err
	}
	return b, true, nil
}

// Writer is a bounded little-endian write cursor over a caller-supplied buffer.
// It never grows the buffer; a failed write leaves the cursor where it was.
type Writer struct {
	buf []byte
	off int
}

// NewWriter returns a cursor that writes into buf[0:len(buf)].
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Bytes returns the written portion of the buffer.
func (w *Writer) Bytes() []byte { return w.buf[:w.off] }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return w.off }

// Available returns the remaining capacity.
func (w *Writer) Available() int { return len(w.buf) - w.off }

// Truncate rewinds the cursor to n bytes.
func (w *Writer) Truncate(n int) {
	if n >= 0 && n <= w.off {
		w.off = n
	}
}

func (w *Writer) room(n int) error {
	if w.Available() < n {
		return fmt.Errorf("zcl: write %d bytes at offset %d, room for %d: %w", n, w.off, w.Available(), ErrShortBuffer)
	}
	return nil
}

// PutUint8 writes one byte.
func (w *Writer) PutUint8(v uint8) error {
	if err := w.room(1); err != nil {
		return err
	}
	w.buf[w.off] = v
	w.off++
	return nil
}

// PutUint16 writes a little-endian 16-bit value.
func (w *Writer) PutUint16(v uint16) error {
	if err := w.room(2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(w.buf[w.off:], v)
	w.off += 2
	return nil
}

// PutUint32 writes a little-endian 32-bit value.
func (w *Writer) PutUint32(v uint32) error {
	if err := w.room(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(w.buf[w.off:], v)
	w.off += 4
	return nil
}

// PutUintN writes v as an n-byte little-endian unsigned integer.
// Values that do not fit in n bytes fail with ErrOverflow.
func (w *Writer) PutUintN(n int, v uint64) error {
	if n < 1 || n > 8 {
		return fmt.Errorf("zcl: integer width %d: %w", n, ErrInvalidType)
	}
	if n < 8 && v>>(8*uint(n)) != 0 {
		return fmt.Errorf("zcl: value 0x%X does not fit in %d bytes: %w", v, n, ErrOverflow)
	}
	if err := w.room(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		w.buf[w.off+i] = byte(v >> (8 * uint(i)))
	}
	w.off += n
	return nil
}

// PutIntN writes v as an n-byte two's complement integer.
func (w *Writer) PutIntN(n int, v int64) error {
	if n < 1 || n > 8 {
		return fmt.Errorf("zcl: integer width %d: %w", n, ErrInvalidType)
	}
	if n < 8 {
		lo := int64(-1) << (8*uint(n) - 1)
		if v < lo || v > ^lo {
			return fmt.Errorf("zcl: value %d does not fit in %d signed bytes: %w", v, n, ErrOverflow)
		}
	}
	mask := uint64(1)<<(8*uint(n)) - 1
	if n == 8 {
		mask = ^uint64(0)
	}
	return w.PutUintN(n, uint64(v)&mask)
}

// PutBytes writes b verbatim.
func (w *Writer) PutBytes(b []byte) error {
	if err := w.room(len(b)); err != nil {
		return err
	}
	w.off += copy(w.buf[w.off:], b)
	return nil
}

// PutShortString writes b with a 1-byte length prefix; ok=false writes the 0xFF sentinel.
func (w *Writer) PutShortString(b []byte, ok bool) error {
	return w.putLengthPrefixed(1, b, ok)
}

// PutLongString writes b with a 2-byte length prefix; ok=false writes the 0xFFFF sentinel.
func (w *Writer) PutLongString(b []byte, ok bool) error {
	return w.putLengthPrefixed(2, b, ok)
}

func (w *Writer) putLengthPrefixed(width int, b []byte, ok bool) error {
	limit := 1<<(8*width) - 1
	if !ok {
		return w.PutUintN(width, uint64(limit))
	}
	if len(b) >= limit {
		return fmt.Errorf("zcl: string of %d bytes exceeds %d: %w", len(b), limit-1, ErrOverflow)
	}
	if err := w.room(width + len(b)); err != nil {
		return err
	}
	_ = w.PutUintN(width, uint64(len(b)))
	return w.PutBytes(b)
}
