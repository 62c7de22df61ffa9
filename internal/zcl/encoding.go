package zcl

import (
	"fmt"
	"math"

	"github.com/x448/float16"
)

// DecodeValue reads a value of type t from r. On failure r is not advanced.
func DecodeValue(r *Reader, t DataType) (Value, error) {
	start := r.off
	v, err := decodeValue(r, t)
	if err != nil {
		r.off = start
		return Value{}, err
	}
	return v, nil
}

func decodeValue(r *Reader, t DataType) (Value, error) {
	ti := t.info()
	switch ti.kind {
	case kindNull:
		return Null(), nil
	case kindBool:
		b, err := r.Uint8()
		if err != nil {
			return Value{}, err
		}
		if b > 1 {
			// only 0x00, 0x01 and the 0xFF sentinel are defined
			return Invalid(t), nil
		}
		return Value{typ: t, num: uint64(b)}, nil
	case kindUnsigned:
		n, err := r.UintN(ti.size)
		return Value{typ: t, num: n}, err
	case kindSigned:
		n, err := r.IntN(ti.size)
		return Int(t, n), err
	case kindFloat:
		return decodeFloat(r, t)
	case kindString:
		var (
			b   []byte
			ok  bool
			err error
		)
		if isLongString(t) {
			b, ok, err = r.LongString()
		} else {
			b, ok, err = r.ShortString()
		}
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Invalid(t), nil
		}
		return Octets(t, b), nil
	case kindKey:
		b, err := r.Bytes(16)
		if err != nil {
			return Value{}, err
		}
		return Octets(t, b), nil
	case kindCollection:
		return decodeCollection(r, t)
	}
	return Value{}, fmt.Errorf("zcl: decode type 0x%02X: %w", uint8(t), ErrInvalidType)
}

func decodeFloat(r *Reader, t DataType) (Value, error) {
	switch t {
	case TypeFloat16:
		bits, err := r.Uint16()
		if err != nil {
			return Value{}, err
		}
		return Float(t, float64(float16.Frombits(bits).Float32())), nil
	case TypeFloat32:
		bits, err := r.Uint32()
		if err != nil {
			return Value{}, err
		}
		return Float(t, float64(math.Float32frombits(bits))), nil
	}
	bits, err := r.UintN(8)
	if err != nil {
		return Value{}, err
	}
	return Float(t, math.Float64frombits(bits)), nil
}

func decodeCollection(r *Reader, t DataType) (Value, error) {
	elem := TypeNoData
	if t != TypeStruct {
		b, err := r.Uint8()
		if err != nil {
			return Value{}, err
		}
		elem = DataType(b)
		if !elem.Valid() {
			return Value{}, fmt.Errorf("zcl: %s element type 0x%02X: %w", t, b, ErrInvalidType)
		}
	}
	count, err := r.Uint16()
	if err != nil {
		return Value{}, err
	}
	if count == 0xFFFF {
		v := Invalid(t)
		v.elem = elem
		return v, nil
	}
	elems := make([]Value, 0, min(int(count), r.Len()))
	for i := 0; i < int(count); i++ {
		et := elem
		if t == TypeStruct {
			b, err := r.Uint8()
			if err != nil {
				return Value{}, err
			}
			et = DataType(b)
		}
		e, err := decodeValue(r, et)
		if err != nil {
			return Value{}, fmt.Errorf("zcl: %s element %d: %w", t, i, err)
		}
		elems = append(elems, e)
	}
	return Value{typ: t, elem: elem, elems: elems}, nil
}

// EncodeValue writes v to w in ZCL wire format. On failure w is not advanced.
func EncodeValue(w *Writer, v Value) error {
	start := w.off
	if err := encodeValue(w, v); err != nil {
		w.off = start
		return err
	}
	return nil
}

func encodeValue(w *Writer, v Value) error {
	t := v.typ
	ti := t.info()
	switch ti.kind {
	case kindNull:
		return nil
	case kindBool:
		if !v.Fits() {
			return fmt.Errorf("zcl: bool value 0x%02X: %w", v.num, ErrOverflow)
		}
		return w.PutUint8(uint8(v.num))
	case kindUnsigned:
		return w.PutUintN(ti.size, v.num)
	case kindSigned:
		return w.PutIntN(ti.size, int64(v.num))
	case kindFloat:
		f := v.Float()
		switch t {
		case TypeFloat16:
			return w.PutUint16(float16.Fromfloat32(float32(f)).Bits())
		case TypeFloat32:
			return w.PutUint32(math.Float32bits(float32(f)))
		}
		return w.PutUintN(8, math.Float64bits(f))
	case kindString:
		if isLongString(t) {
			return w.PutLongString(v.raw, !v.invalid)
		}
		return w.PutShortString(v.raw, !v.invalid)
	case kindKey:
		if len(v.raw) != 16 {
			return fmt.Errorf("zcl: key of %d bytes: %w", len(v.raw), ErrOverflow)
		}
		return w.PutBytes(v.raw)
	case kindCollection:
		return encodeCollection(w, v)
	}
	return fmt.Errorf("zcl: encode type 0x%02X: %w", uint8(t), ErrInvalidType)
}

func encodeCollection(w *Writer, v Value) error {
	if v.typ != TypeStruct {
		if err := w.PutUint8(uint8(v.elem)); err != nil {
			return err
		}
	}
	if v.invalid {
		return w.PutUint16(0xFFFF)
	}
	if len(v.elems) >= 0xFFFF {
		return fmt.Errorf("zcl: %s of %d elements: %w", v.typ, len(v.elems), ErrOverflow)
	}
	if err := w.PutUint16(uint16(len(v.elems))); err != nil {
		return err
	}
	for i, e := range v.elems {
		if v.typ == TypeStruct {
			if err := w.PutUint8(uint8(e.typ)); err != nil {
				return err
			}
		} else if e.typ != v.elem {
			return fmt.Errorf("zcl: %s element %d is %s, want %s: %w", v.typ, i, e.typ, v.elem, ErrInvalidType)
		}
		if err := encodeValue(w, e); err != nil {
			return err
		}
	}
	return nil
}

// Marshal encodes v into a newly allocated slice.
func Marshal(v Value) ([]byte, error) {
	w := NewWriter(make([]byte, v.Size()))
	if err := EncodeValue(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes a single value of type t that must occupy all of b.
func Unmarshal(t DataType, b []byte) (Value, error) {
	r := NewReader(b)
	v, err := DecodeValue(r, t)
	if err != nil {
		return Value{}, err
	}
	if r.Len() != 0 {
		return Value{}, fmt.Errorf("zcl: %d bytes after %s value: %w", r.Len(), t, ErrTrailingBytes)
	}
	return v, nil
}
