package zcl

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strings"
)

// Value is a tagged ZCL attribute value. The zero Value is the null value of type nodata.
//
// Integers of every width, enums, bitmaps, time types, identifiers and IEEE
// addresses share a 64-bit slot; floats keep their float64 bits; strings and
// 128-bit keys keep raw bytes; collections keep their elements.
type Value struct {
	typ     DataType
	num     uint64
	raw     []byte
	elem    DataType
	elems   []Value
	invalid bool // absent string or collection (length 0xFF / 0xFFFF)
}

// Null returns the nodata value.
func Null() Value { return Value{} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{typ: TypeBool}
	if b {
		v.num = 1
	}
	return v
}

// Uint returns an unsigned value of type t (uint, enum, bitmap, data, time,
// identifier or EUI64 types).
func Uint(t DataType, n uint64) Value { return Value{typ: t, num: n} }

// Int returns a signed value of type t.
func Int(t DataType, n int64) Value { return Value{typ: t, num: uint64(n)} }

// Float returns a floating point value of type t.
func Float(t DataType, f float64) Value { return Value{typ: t, num: math.Float64bits(f)} }

// Str returns a character string value of type t.
func Str(t DataType, s string) Value { return Value{typ: t, raw: []byte(s)} }

// Octets returns an octet string value of type t. b is copied.
func Octets(t DataType, b []byte) Value {
	return Value{typ: t, raw: append([]byte{}, b...)}
}

// Key returns a 128-bit security key value.
func Key(k [16]byte) Value { return Value{typ: TypeKey128, raw: append([]byte{}, k[:]...)} }

// IEEE returns an EUI64 value.
func IEEE(addr uint64) Value { return Uint(TypeEUI64, addr) }

// Array returns an array of elements of type elem.
func Array(elem DataType, vs ...Value) Value { return collection(TypeArray, elem, vs) }

// Set returns a set of elements of type elem.
func Set(elem DataType, vs ...Value) Value { return collection(TypeSet, elem, vs) }

// Bag returns a bag of elements of type elem.
func Bag(elem DataType, vs ...Value) Value { return collection(TypeBag, elem, vs) }

// Struct returns a structure whose members carry their own types.
func Struct(vs ...Value) Value { return collection(TypeStruct, TypeNoData, vs) }

func collection(t, elem DataType, vs []Value) Value {
	return Value{typ: t, elem: elem, elems: append([]Value{}, vs...)}
}

// Shorthands used by the cluster tables.
func U8(n uint8) Value { return Uint(TypeUint8, uint64(n)) }
func U16(n uint16) Value { return Uint(TypeUint16, uint64(n)) }
func U24(n uint32) Value { return Uint(TypeUint24, uint64(n)) }
func U32(n uint32) Value { return Uint(TypeUint32, uint64(n)) }
func U48(n uint64) Value { return Uint(TypeUint48, n) }
func S8(n int8) Value { return Int(TypeInt8, int64(n)) }
func S16(n int16) Value { return Int(TypeInt16, int64(n)) }
func S24(n int32) Value { return Int(TypeInt24, int64(n)) }
func S32(n int32) Value { return Int(TypeInt32, int64(n)) }
func E8(n uint8) Value { return Uint(TypeEnum8, uint64(n)) }
func E16(n uint16) Value { return Uint(TypeEnum16, uint64(n)) }
func M8(n uint8) Value { return Uint(TypeBitmap8, uint64(n)) }
func M16(n uint16) Value { return Uint(TypeBitmap16, uint64(n)) }
func M32(n uint32) Value { return Uint(TypeBitmap32, uint64(n)) }
func CharStr(s string) Value { return Str(TypeCharStr, s) }

// Invalid returns the invalid/unknown sentinel for t. Types without a
// sentinel (bitmaps, data) return the zero value of t.
func Invalid(t DataType) Value {
	v := Value{typ: t}
	switch t.info().kind {
	case kindBool:
		v.num = 0xFF
	case kindUnsigned:
		if hasInvalidSentinel(t) {
			v.num = unsignedMax(t)
		}
	case kindSigned:
		lo, _ := signedRange(t)
		v.num = uint64(lo)
	case kindFloat:
		v.num = math.Float64bits(math.NaN())
	case kindString, kindCollection:
		v.invalid = true
	case kindKey:
		v.raw = bytes.Repeat([]byte{0xFF}, 16)
	}
	return v
}

// Type returns the value's data type.
func (v Value) Type() DataType { return v.typ }

// ElemType returns the element type of an array, set or bag.
func (v Value) ElemType() DataType { return v.elem }

// Elems returns the members of a collection.
func (v Value) Elems() []Value { return v.elems }

// Len returns the number of bytes of a string or the number of members of a collection.
func (v Value) Len() int {
	if v.typ.info().kind == kindCollection {
		return len(v.elems)
	}
	return len(v.raw)
}

// Uint returns the value as an unsigned integer.
func (v Value) Uint() uint64 {
	switch v.typ.info().kind {
	case kindSigned:
		return uint64(v.Int())
	case kindFloat:
		return uint64(v.Float())
	}
	return v.num
}

// Int returns the value as a signed integer.
func (v Value) Int() int64 {
	switch v.typ.info().kind {
	case kindSigned:
		shift := uint(64 - 8*TypeSize(v.typ))
		return int64(v.num<<shift) >> shift
	case kindFloat:
		return int64(v.Float())
	}
	return int64(v.num)
}

// Float returns the value as a float64.
func (v Value) Float() float64 {
	switch v.typ.info().kind {
	case kindFloat:
		return math.Float64frombits(v.num)
	case kindSigned:
		return float64(v.Int())
	}
	return float64(v.num)
}

// Bool returns the boolean value. Numeric values are true when non-zero.
func (v Value) Bool() bool {
	if v.typ == TypeBool {
		return v.num == 1
	}
	return v.num != 0
}

// Bytes returns the raw bytes of a string or key value.
func (v Value) Bytes() []byte { return v.raw }

// Str returns the raw bytes of a string value as a Go string.
func (v Value) Str() string { return string(v.raw) }

// IsNull reports whether v is the nodata value.
func (v Value) IsNull() bool { return v.typ == TypeNoData }

// IsInvalid reports whether v is the invalid/unknown sentinel of its type.
func (v Value) IsInvalid() bool {
	switch v.typ.info().kind {
	case kindBool:
		return v.num == 0xFF
	case kindUnsigned:
		return hasInvalidSentinel(v.typ) && v.num == unsignedMax(v.typ)
	case kindSigned:
		lo, _ := signedRange(v.typ)
		return v.Int() == lo
	case kindFloat:
		return math.IsNaN(v.Float())
	case kindString, kindCollection:
		return v.invalid
	case kindKey:
		return len(v.raw) == 16 && bytes.Equal(v.raw, bytes.Repeat([]byte{0xFF}, 16))
	}
	return false
}

// Equal reports whether v and o have the same type and value. Invalid
// sentinels compare equal only to themselves.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	vi, oi := v.IsInvalid(), o.IsInvalid()
	if vi || oi {
		return vi == oi
	}
	switch v.typ.info().kind {
	case kindFloat:
		return v.Float() == o.Float()
	case kindString, kindKey:
		return bytes.Equal(v.raw, o.raw)
	case kindCollection:
		if v.elem != o.elem || len(v.elems) != len(o.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	case kindSigned:
		return v.Int() == o.Int()
	}
	return v.num == o.num
}

// Compare orders two numeric values. ok is false when either value is an
// invalid sentinel or the values are not numerically comparable.
func (v Value) Compare(o Value) (c int, ok bool) {
	if !v.IsNumeric() || !o.IsNumeric() || v.IsInvalid() || o.IsInvalid() {
		return 0, false
	}
	vk, ek := v.typ.info().kind, o.typ.info().kind
	switch {
	case vk == kindFloat || ek == kindFloat:
		return cmp.Compare(v.Float(), o.Float()), true
	case vk == kindSigned || ek == kindSigned:
		if vk == kindUnsigned && v.num > math.MaxInt64 {
			return 1, true
		}
		if ek == kindUnsigned && o.num > math.MaxInt64 {
			return -1, true
		}
		return cmp.Compare(v.Int(), o.Int()), true
	}
	return cmp.Compare(v.num, o.num), true
}

// IsNumeric reports whether v carries an integer, enum, bitmap, time or float value.
func (v Value) IsNumeric() bool {
	switch v.typ.info().kind {
	case kindUnsigned, kindSigned, kindFloat:
		return true
	}
	return false
}

// InRange reports whether v lies within [lo, hi]. A null bound is open.
func (v Value) InRange(lo, hi Value) bool {
	if !lo.IsNull() {
		if c, ok := v.Compare(lo); !ok || c < 0 {
			return false
		}
	}
	if !hi.IsNull() {
		if c, ok := v.Compare(hi); !ok || c > 0 {
			return false
		}
	}
	return true
}

// Fits reports whether v's value is representable in its type's width.
func (v Value) Fits() bool {
	switch v.typ.info().kind {
	case kindUnsigned:
		return v.num <= unsignedMax(v.typ)
	case kindSigned:
		lo, hi := signedRange(v.typ)
		n := int64(v.num)
		return n >= lo && n <= hi
	case kindBool:
		return v.num <= 1 || v.num == 0xFF
	case kindString:
		if isLongString(v.typ) {
			return len(v.raw) < 0xFFFF
		}
		return len(v.raw) < 0xFF
	case kindKey:
		return len(v.raw) == 16
	case kindCollection:
		return len(v.elems) < 0xFFFF
	}
	return true
}

// Size returns the encoded size of v in bytes, including any length prefix.
func (v Value) Size() int {
	ti := v.typ.info()
	if ti.size >= 0 {
		return ti.size
	}
	switch ti.kind {
	case kindString:
		prefix := 1
		if isLongString(v.typ) {
			prefix = 2
		}
		if v.invalid {
			return prefix
		}
		return prefix + len(v.raw)
	case kindCollection:
		n := 2
		if v.typ != TypeStruct {
			n++
		}
		for _, e := range v.elems {
			n += e.Size()
			if v.typ == TypeStruct {
				n++
			}
		}
		return n
	}
	return 0
}

// Delta returns |v - o| for numeric values.
func (v Value) Delta(o Value) float64 {
	return math.Abs(v.Float() - o.Float())
}

func (v Value) String() string {
	if v.IsInvalid() {
		return fmt.Sprintf("%s(invalid)", v.typ)
	}
	switch v.typ.info().kind {
	case kindNull:
		return "null"
	case kindBool:
		return fmt.Sprintf("%t", v.Bool())
	case kindSigned:
		return fmt.Sprintf("%s(%d)", v.typ, v.Int())
	case kindFloat:
		return fmt.Sprintf("%s(%g)", v.typ, v.Float())
	case kindString:
		if isCharString(v.typ) {
			return fmt.Sprintf("%q", v.raw)
		}
		return fmt.Sprintf("%s(%X)", v.typ, v.raw)
	case kindKey:
		return fmt.Sprintf("key(%X)", v.raw)
	case kindCollection:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return fmt.Sprintf("%s[%s]", v.typ, strings.Join(parts, " "))
	}
	if v.typ == TypeEUI64 {
		return fmt.Sprintf("%016X", v.num)
	}
	return fmt.Sprintf("%s(0x%X)", v.typ, v.num)
}

// As converts v to type t, keeping its numeric or string value. It fails with
// ErrInvalidType for unrelated kinds and ErrOverflow when the value does not fit.
func (v Value) As(t DataType) (Value, error) {
	if v.typ == t {
		return v, nil
	}
	if v.IsInvalid() {
		return Invalid(t), nil
	}
	vk, tk := v.typ.info().kind, t.info().kind
	var out Value
	switch {
	case tk == kindUnsigned && (vk == kindUnsigned || vk == kindBool):
		out = Uint(t, v.num)
	case tk == kindUnsigned && vk == kindSigned:
		if v.Int() < 0 {
			return Value{}, fmt.Errorf("zcl: %s to %s: %w", v, t, ErrOverflow)
		}
		out = Uint(t, uint64(v.Int()))
	case tk == kindSigned && vk == kindUnsigned:
		if v.num > math.MaxInt64 {
			return Value{}, fmt.Errorf("zcl: %s to %s: %w", v, t, ErrOverflow)
		}
		out = Int(t, int64(v.num))
	case tk == kindSigned && vk == kindSigned:
		out = Int(t, v.Int())
	case tk == kindFloat && (vk == kindUnsigned || vk == kindSigned || vk == kindFloat):
		out = Float(t, v.Float())
	case tk == kindBool && vk == kindUnsigned:
		out = Bool(v.num != 0)
	case tk == kindString && vk == kindString:
		out = Octets(t, v.raw)
	default:
		return Value{}, fmt.Errorf("zcl: %s to %s: %w", v.typ, t, ErrInvalidType)
	}
	if !out.Fits() {
		return Value{}, fmt.Errorf("zcl: %s to %s: %w", v, t, ErrOverflow)
	}
	return out, nil
}
