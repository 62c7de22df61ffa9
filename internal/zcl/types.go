package zcl

import "fmt"

// DataType is a ZCL attribute data type identifier.
type DataType uint8

// ZCL data type IDs
const (
	TypeNoData     DataType = 0x00
	TypeData8      DataType = 0x08
	TypeData16     DataType = 0x09
	TypeData24     DataType = 0x0A
	TypeData32     DataType = 0x0B
	TypeData40     DataType = 0x0C
	TypeData48     DataType = 0x0D
	TypeData56     DataType = 0x0E
	TypeData64     DataType = 0x0F
	TypeBool       DataType = 0x10
	TypeBitmap8    DataType = 0x18
	TypeBitmap16   DataType = 0x19
	TypeBitmap24   DataType = 0x1A
	TypeBitmap32   DataType = 0x1B
	TypeBitmap40   DataType = 0x1C
	TypeBitmap48   DataType = 0x1D
	TypeBitmap56   DataType = 0x1E
	TypeBitmap64   DataType = 0x1F
	TypeUint8      DataType = 0x20
	TypeUint16     DataType = 0x21
	TypeUint24     DataType = 0x22
	TypeUint32     DataType = 0x23
	TypeUint40     DataType = 0x24
	TypeUint48     DataType = 0x25
	TypeUint56     DataType = 0x26
	TypeUint64     DataType = 0x27
	TypeInt8       DataType = 0x28
	TypeInt16      DataType = 0x29
	TypeInt24      DataType = 0x2A
	TypeInt32      DataType = 0x2B
	TypeInt40      DataType = 0x2C
	TypeInt48      DataType = 0x2D
	TypeInt56      DataType = 0x2E
	TypeInt64      DataType = 0x2F
	TypeEnum8      DataType = 0x30
	TypeEnum16     DataType = 0x31
	TypeFloat16    DataType = 0x38
	TypeFloat32    DataType = 0x39
	TypeFloat64    DataType = 0x3A
	TypeOctetStr   DataType = 0x41
	TypeCharStr    DataType = 0x42
	TypeOctetStr16 DataType = 0x43
	TypeCharStr16  DataType = 0x44
	TypeArray      DataType = 0x48
	TypeStruct     DataType = 0x4C
	TypeSet        DataType = 0x50
	TypeBag        DataType = 0x51
	TypeToD        DataType = 0xE0 // Time of Day
	TypeDate       DataType = 0xE1
	TypeUTC        DataType = 0xE2
	TypeClusterID  DataType = 0xE8
	TypeAttrID     DataType = 0xE9
	TypeBACnetOID  DataType = 0xEA
	TypeEUI64      DataType = 0xF0
	TypeKey128     DataType = 0xF1
	TypeUnknown    DataType = 0xFF
)

// kind groups data types that share a Go representation.
type kind uint8

const (
	kindInvalid kind = iota
	kindNull
	kindBool
	kindUnsigned
	kindSigned
	kindFloat
	kindString
	kindCollection
	kindKey
)

type typeInfo struct {
	name   string
	size   int // fixed wire size, -1 for variable
	kind   kind
	analog bool
}

var typeTable = map[DataType]typeInfo{
	TypeNoData:     {"nodata", 0, kindNull, false},
	TypeData8:      {"data8", 1, kindUnsigned, false},
	TypeData16:     {"data16", 2, kindUnsigned, false},
	TypeData24:     {"data24", 3, kindUnsigned, false},
	TypeData32:     {"data32", 4, kindUnsigned, false},
	TypeData40:     {"data40", 5, kindUnsigned, false},
	TypeData48:     {"data48", 6, kindUnsigned, false},
	TypeData56:     {"data56", 7, kindUnsigned, false},
	TypeData64:     {"data64", 8, kindUnsigned, false},
	TypeBool:       {"bool", 1, kindBool, false},
	TypeBitmap8:    {"map8", 1, kindUnsigned, false},
	TypeBitmap16:   {"map16", 2, kindUnsigned, false},
	TypeBitmap24:   {"map24", 3, kindUnsigned, false},
	TypeBitmap32:   {"map32", 4, kindUnsigned, false},
	TypeBitmap40:   {"map40", 5, kindUnsigned, false},
	TypeBitmap48:   {"map48", 6, kindUnsigned, false},
	TypeBitmap56:   {"map56", 7, kindUnsigned, false},
	TypeBitmap64:   {"map64", 8, kindUnsigned, false},
	TypeUint8:      {"uint8", 1, kindUnsigned, true},
	TypeUint16:     {"uint16", 2, kindUnsigned, true},
	TypeUint24:     {"uint24", 3, kindUnsigned, true},
	TypeUint32:     {"uint32", 4, kindUnsigned, true},
	TypeUint40:     {"uint40", 5, kindUnsigned, true},
	TypeUint48:     {"uint48", 6, kindUnsigned, true},
	TypeUint56:     {"uint56", 7, kindUnsigned, true},
	TypeUint64:     {"uint64", 8, kindUnsigned, true},
	TypeInt8:       {"int8", 1, kindSigned, true},
	TypeInt16:      {"int16", 2, kindSigned, true},
	TypeInt24:      {"int24", 3, kindSigned, true},
	TypeInt32:      {"int32", 4, kindSigned, true},
	TypeInt40:      {"int40", 5, kindSigned, true},
	TypeInt48:      {"int48", 6, kindSigned, true},
	TypeInt56:      {"int56", 7, kindSigned, true},
	TypeInt64:      {"int64", 8, kindSigned, true},
	TypeEnum8:      {"enum8", 1, kindUnsigned, false},
	TypeEnum16:     {"enum16", 2, kindUnsigned, false},
	TypeFloat16:    {"semi", 2, kindFloat, true},
	TypeFloat32:    {"single", 4, kindFloat, true},
	TypeFloat64:    {"double", 8, kindFloat, true},
	TypeOctetStr:   {"octstr", -1, kindString, false},
	TypeCharStr:    {"string", -1, kindString, false},
	TypeOctetStr16: {"octstr16", -1, kindString, false},
	TypeCharStr16:  {"string16", -1, kindString, false},
	TypeArray:      {"array", -1, kindCollection, false},
	TypeStruct:     {"struct", -1, kindCollection, false},
	TypeSet:        {"set", -1, kindCollection, false},
	TypeBag:        {"bag", -1, kindCollection, false},
	TypeToD:        {"ToD", 4, kindUnsigned, true},
	TypeDate:       {"date", 4, kindUnsigned, true},
	TypeUTC:        {"UTC", 4, kindUnsigned, true},
	TypeClusterID:  {"clusterId", 2, kindUnsigned, false},
	TypeAttrID:     {"attribId", 2, kindUnsigned, false},
	TypeBACnetOID:  {"bacOID", 4, kindUnsigned, false},
	TypeEUI64:      {"EUI64", 8, kindUnsigned, false},
	TypeKey128:     {"key128", 16, kindKey, false},
}

func (t DataType) info() typeInfo {
	if ti, ok := typeTable[t]; ok {
		return ti
	}
	return typeInfo{name: fmt.Sprintf("0x%02X", uint8(t)), size: -1, kind: kindInvalid}
}

// Valid reports whether t is a known ZCL data type.
func (t DataType) Valid() bool { return t.info().kind != kindInvalid }

func (t DataType) String() string { return t.info().name }

// TypeSize returns the fixed size in bytes of a ZCL type, or -1 for variable-length types.
func TypeSize(t DataType) int { return t.info().size }

// TypeName returns a human-readable name for a ZCL type.
func TypeName(t DataType) string { return t.info().name }

// IsAnalog reports whether t is an analog type. Reportable change is only
// carried on the wire for analog types.
func IsAnalog(t DataType) bool { return t.info().analog }

// IsReportableType reports whether attributes of type t may be reported:
// numeric, boolean, enum, bitmap, time and octet/char string types.
func IsReportableType(t DataType) bool {
	switch t.info().kind {
	case kindBool, kindSigned, kindFloat, kindString:
		return true
	case kindUnsigned:
		return !isDataType(t) && t != TypeClusterID && t != TypeAttrID && t != TypeBACnetOID && t != TypeEUI64
	}
	return false
}

// IsDiscrete reports whether t is a discrete (non-analog) scalar type.
func IsDiscrete(t DataType) bool {
	ti := t.info()
	return !ti.analog && ti.kind != kindInvalid && ti.kind != kindCollection
}

func isDataType(t DataType) bool { return t >= TypeData8 && t <= TypeData64 }

func isLongString(t DataType) bool { return t == TypeOctetStr16 || t == TypeCharStr16 }

func isCharString(t DataType) bool { return t == TypeCharStr || t == TypeCharStr16 }

// hasInvalidSentinel reports whether t reserves an invalid value.
func hasInvalidSentinel(t DataType) bool {
	switch t.info().kind {
	case kindUnsigned:
		return !isDataType(t) && !(t >= TypeBitmap8 && t <= TypeBitmap64)
	case kindSigned, kindBool, kindFloat, kindString, kindCollection, kindKey:
		return true
	}
	return false
}

// unsignedMax returns the largest value representable in t's width.
func unsignedMax(t DataType) uint64 {
	n := TypeSize(t)
	if n >= 8 {
		return ^uint64(0)
	}
	return 1<<(8*uint(n)) - 1
}

// signedRange returns the representable range for a signed type.
func signedRange(t DataType) (lo, hi int64) {
	n := TypeSize(t)
	lo = int64(-1) << (8*uint(n) - 1)
	return lo, ^lo
}
