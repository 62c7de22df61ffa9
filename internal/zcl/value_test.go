package zcl

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueInvalidSentinels(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		wire []byte
	}{
		{"uint8", Invalid(TypeUint8), []byte{0xFF}},
		{"uint24", Invalid(TypeUint24), []byte{0xFF, 0xFF, 0xFF}},
		{"int16", Invalid(TypeInt16), []byte{0x00, 0x80}},
		{"bool", Invalid(TypeBool), []byte{0xFF}},
		{"enum8", Invalid(TypeEnum8), []byte{0xFF}},
		{"string", Invalid(TypeCharStr), []byte{0xFF}},
		{"eui64", Invalid(TypeEUI64), []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.v.IsInvalid())
			b, err := Marshal(tt.v)
			require.NoError(t, err)
			assert.Equal(t, tt.wire, b)
			back, err := Unmarshal(tt.v.Type(), b)
			require.NoError(t, err)
			assert.True(t, back.IsInvalid())
			assert.True(t, back.Equal(tt.v))
		})
	}
}

func TestBoolUndefinedOctetsDecodeInvalid(t *testing.T) {
	for _, b := range []byte{0x02, 0x7F, 0xFE} {
		v, err := Unmarshal(TypeBool, []byte{b})
		require.NoError(t, err)
		assert.True(t, v.IsInvalid(), "0x%02X", b)
		out, err := Marshal(v)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF}, out)
	}
	v, err := Unmarshal(TypeBool, []byte{0x01})
	require.NoError(t, err)
	assert.True(t, v.Bool())
}

func TestValueEqualTreatsSentinelAsUnordered(t *testing.T) {
	inv := Invalid(TypeUint16)
	assert.True(t, inv.Equal(Invalid(TypeUint16)))
	assert.False(t, inv.Equal(U16(0)))
	assert.False(t, U16(0).Equal(inv))

	_, ok := inv.Compare(U16(1))
	assert.False(t, ok)
	_, ok = Float(TypeFloat32, math.NaN()).Compare(Float(TypeFloat32, 1))
	assert.False(t, ok)
}

func TestValueEqualRequiresSameType(t *testing.T) {
	assert.False(t, U8(1).Equal(E8(1)))
	assert.True(t, S16(-5).Equal(Int(TypeInt16, -5)))
	assert.True(t, CharStr("abc").Equal(Str(TypeCharStr, "abc")))
	assert.False(t, CharStr("abc").Equal(CharStr("abd")))
}

func TestValueCompareMixedSign(t *testing.T) {
	c, ok := S16(-1).Compare(U16(0))
	require.True(t, ok)
	assert.Equal(t, -1, c)

	c, ok = U16(300).Compare(S8(100))
	require.True(t, ok)
	assert.Equal(t, 1, c)

	c, ok = Float(TypeFloat32, 2.5).Compare(U8(2))
	require.True(t, ok)
	assert.Equal(t, 1, c)
}

func TestValueInRange(t *testing.T) {
	lo, hi := S16(0x0954), S16(0x0BB8)
	assert.True(t, S16(0x0A28).InRange(lo, hi))
	assert.True(t, S16(0x0954).InRange(lo, hi))
	assert.False(t, S16(0x0953).InRange(lo, hi))
	assert.False(t, S16(0x0BB9).InRange(lo, hi))
	assert.True(t, S16(-300).InRange(Null(), hi))
	assert.False(t, Invalid(TypeInt16).InRange(lo, hi))
}

func TestValueSize(t *testing.T) {
	assert.Equal(t, 0, Null().Size())
	assert.Equal(t, 3, U24(1).Size())
	assert.Equal(t, 16, Key([16]byte{}).Size())
	assert.Equal(t, 4, CharStr("abc").Size())
	assert.Equal(t, 5, Str(TypeCharStr16, "abc").Size())
	assert.Equal(t, 1, Invalid(TypeOctetStr).Size())
	// element type + count + 2 x uint16
	assert.Equal(t, 7, Array(TypeUint16, U16(1), U16(2)).Size())
	// count + (type, value) x 2
	assert.Equal(t, 2+2+3, Struct(U8(1), U16(2)).Size())
}

func TestValueRoundTripAllTypes(t *testing.T) {
	values := []Value{
		Null(),
		Bool(true),
		Uint(TypeData8, 0x5A),
		Uint(TypeData40, 0x0102030405),
		M16(0x8001),
		M32(0xDEADBEEF),
		Uint(TypeBitmap64, math.MaxUint64),
		U8(0),
		U16(0xFFFE),
		U24(0x123456),
		U32(0xFFFFFFFE),
		Uint(TypeUint40, 0xFF00FF00FF),
		U48(0x0000FFFFFFFF),
		Uint(TypeUint56, 1),
		Uint(TypeUint64, 0x0102030405060708),
		S8(-127),
		S16(-1000),
		S24(-8388607),
		S32(math.MaxInt32),
		Int(TypeInt40, -549755813887),
		Int(TypeInt48, 1),
		Int(TypeInt56, -2),
		Int(TypeInt64, math.MaxInt64),
		E8(3),
		E16(0x0102),
		Float(TypeFloat16, -2),
		Float(TypeFloat32, 21.5),
		Float(TypeFloat64, 1e-300),
		Octets(TypeOctetStr, []byte{0x00, 0xFF, 0x10}),
		CharStr("lumi.sensor"),
		Octets(TypeOctetStr16, make([]byte, 300)),
		Str(TypeCharStr16, ""),
		Array(TypeUint8, U8(1), U8(2), U8(3)),
		Set(TypeCharStr, CharStr("a"), CharStr("bc")),
		Bag(TypeInt16),
		Struct(U8(7), CharStr("x"), Bool(false)),
		Uint(TypeToD, 0x0C1E0000),
		Uint(TypeDate, 0x7B0A0F03),
		Uint(TypeUTC, 0x2A000000),
		Uint(TypeClusterID, 0x0402),
		Uint(TypeAttrID, 0x4000),
		Uint(TypeBACnetOID, 0x00C00001),
		IEEE(0x00124B0001020304),
		Key([16]byte{0x5A, 0x69, 0x67, 0x42, 0x65, 0x65, 0x41, 0x6C, 0x6C, 0x69, 0x61, 0x6E, 0x63, 0x65, 0x30, 0x39}),
	}
	for _, v := range values {
		t.Run(v.Type().String(), func(t *testing.T) {
			b, err := Marshal(v)
			require.NoError(t, err)
			assert.Len(t, b, v.Size())
			back, err := Unmarshal(v.Type(), b)
			require.NoError(t, err)
			assert.True(t, back.Equal(v), "got %v, want %v", back, v)
		})
	}
}

func TestCollectionInvalidCount(t *testing.T) {
	v, err := Unmarshal(TypeArray, []byte{uint8(TypeUint8), 0xFF, 0xFF})
	require.NoError(t, err)
	assert.True(t, v.IsInvalid())
	assert.Equal(t, TypeUint8, v.ElemType())

	b, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, []byte{uint8(TypeUint8), 0xFF, 0xFF}, b)
}

func TestCollectionElementTypeMismatch(t *testing.T) {
	_, err := Marshal(Array(TypeUint8, U8(1), U16(2)))
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestValueAs(t *testing.T) {
	v, err := Uint(TypeUint64, 200).As(TypeUint8)
	require.NoError(t, err)
	assert.True(t, v.Equal(U8(200)))

	_, err = Uint(TypeUint64, 300).As(TypeUint8)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = S8(-1).As(TypeUint16)
	assert.ErrorIs(t, err, ErrOverflow)

	v, err = U8(5).As(TypeInt16)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int())

	v, err = Uint(TypeUint64, 1).As(TypeBool)
	require.NoError(t, err)
	assert.True(t, v.Bool())

	_, err = CharStr("x").As(TypeUint8)
	assert.ErrorIs(t, err, ErrInvalidType)

	v, err = Invalid(TypeUint16).As(TypeUint8)
	require.NoError(t, err)
	assert.True(t, v.IsInvalid())
}

func TestValueInterface(t *testing.T) {
	assert.Equal(t, true, Bool(true).Interface())
	assert.Equal(t, uint64(42), U8(42).Interface())
	assert.Equal(t, int64(-3), S16(-3).Interface())
	assert.Equal(t, "abc", CharStr("abc").Interface())
	assert.Equal(t, "00ff", Octets(TypeOctetStr, []byte{0x00, 0xFF}).Interface())
	assert.Equal(t, "00124B0001020304", IEEE(0x00124B0001020304).Interface())
	assert.Nil(t, Invalid(TypeUint8).Interface())

	b, err := S16(2150).MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "2150", string(b))
}
