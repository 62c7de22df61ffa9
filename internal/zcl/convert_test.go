package zcl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromInterfaceAndBack(t *testing.T) {
	v, err := FromInterface(TypeUint16, float64(300))
	require.NoError(t, err)
	assert.Equal(t, U16(300), v)
	assert.Equal(t, uint64(300), v.Interface())

	v, err = FromInterface(TypeEUI64, "0x00124B0001020304")
	require.NoError(t, err)
	assert.Equal(t, "00124B0001020304", v.Interface())

	v, err = FromInterface(TypeUint8, nil)
	require.NoError(t, err)
	assert.True(t, v.IsInvalid())
	assert.Nil(t, v.Interface())

	_, err = FromInterface(TypeUint8, float64(256))
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = FromInterface(TypeUint8, "x")
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestArgsFromMap(t *testing.T) {
	params := []Param{
		{Name: "Level", Type: TypeUint8},
		{Name: "Count", Type: TypeUint8, LengthOf: "Zones"},
		{Name: "Zones", Count: "Count", Records: []Param{
			{Name: "ZoneID", Type: TypeUint8},
			{Name: "Label", Type: TypeCharStr},
		}},
		{Name: "IDs", Type: TypeUint16, List: true, Rest: true},
	}
	args, err := ArgsFromMap(params, map[string]any{
		"Level": float64(10),
		"Count": float64(99),
		"Zones": []any{map[string]any{"ZoneID": float64(3), "Label": "door"}},
		"IDs":   []any{float64(1), float64(2)},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(10), args.Uint("Level"))
	assert.False(t, args.Has("Count"))
	require.Len(t, args.Records("Zones"), 1)
	assert.Equal(t, "door", args.Records("Zones")[0].Value("Label").Str())
	assert.Len(t, args.Value("IDs").Elems(), 2)

	m := args.Map()
	assert.Equal(t, uint64(10), m["Level"])
	assert.Equal(t, []any{map[string]any{"ZoneID": uint64(3), "Label": "door"}}, m["Zones"])
	assert.Equal(t, []any{uint64(1), uint64(2)}, m["IDs"])

	_, err = ArgsFromMap(params, map[string]any{"Bogus": 1})
	assert.ErrorIs(t, err, ErrInvalidField)
	_, err = ArgsFromMap(params, map[string]any{"Zones": "nope"})
	assert.ErrorIs(t, err, ErrInvalidField)
}
