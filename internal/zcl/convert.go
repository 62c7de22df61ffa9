package zcl

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Interface returns v as a plain Go value suitable for JSON, Lua and MQTT
// payloads. Invalid sentinels become nil.
func (v Value) Interface() any {
	if v.IsInvalid() {
		return nil
	}
	switch v.typ.info().kind {
	case kindNull:
		return nil
	case kindBool:
		return v.Bool()
	case kindSigned:
		return v.Int()
	case kindFloat:
		return v.Float()
	case kindString:
		if isCharString(v.typ) {
			return string(v.raw)
		}
		return hex.EncodeToString(v.raw)
	case kindKey:
		return hex.EncodeToString(v.raw)
	case kindCollection:
		out := make([]any, len(v.elems))
		for i, e := range v.elems {
			out[i] = e.Interface()
		}
		return out
	}
	if v.typ == TypeEUI64 {
		return fmt.Sprintf("%016X", v.num)
	}
	return v.num
}

// MarshalJSON encodes v through Interface.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FromInterface converts a Go value (as decoded from JSON, YAML or Lua) into
// a Value of type t. A nil input yields the invalid sentinel.
func FromInterface(t DataType, x any) (Value, error) {
	if x == nil {
		return Invalid(t), nil
	}
	var v Value
	switch t.info().kind {
	case kindNull:
		return Null(), nil
	case kindBool:
		b, ok := toBool(x)
		if !ok {
			return Value{}, fmt.Errorf("zcl: cannot convert %T to bool: %w", x, ErrInvalidType)
		}
		v = Bool(b)
	case kindUnsigned:
		if s, ok := x.(string); ok && t == TypeEUI64 {
			n, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
			if err != nil {
				return Value{}, fmt.Errorf("zcl: EUI64 %q: %w", s, ErrInvalidType)
			}
			return IEEE(n), nil
		}
		n, ok := toUint64(x)
		if !ok {
			return Value{}, fmt.Errorf("zcl: cannot convert %T to %s: %w", x, t, ErrInvalidType)
		}
		v = Uint(t, n)
	case kindSigned:
		n, ok := toInt64(x)
		if !ok {
			return Value{}, fmt.Errorf("zcl: cannot convert %T to %s: %w", x, t, ErrInvalidType)
		}
		v = Int(t, n)
	case kindFloat:
		f, ok := toFloat64(x)
		if !ok {
			return Value{}, fmt.Errorf("zcl: cannot convert %T to %s: %w", x, t, ErrInvalidType)
		}
		v = Float(t, f)
	case kindString, kindKey:
		b, err := toBytes(t, x)
		if err != nil {
			return Value{}, err
		}
		v = Octets(t, b)
	default:
		return Value{}, fmt.Errorf("zcl: cannot convert %T to %s: %w", x, t, ErrInvalidType)
	}
	if !v.Fits() {
		return Value{}, fmt.Errorf("zcl: %v out of range for %s: %w", x, t, ErrOverflow)
	}
	return v, nil
}

func toBytes(t DataType, x any) ([]byte, error) {
	switch val := x.(type) {
	case []byte:
		return val, nil
	case string:
		if isCharString(t) {
			return []byte(val), nil
		}
		b, err := hex.DecodeString(val)
		if err != nil {
			return nil, fmt.Errorf("zcl: %s hex %q: %w", t, val, ErrInvalidType)
		}
		return b, nil
	}
	return nil, fmt.Errorf("zcl: cannot convert %T to %s: %w", x, t, ErrInvalidType)
}

func toBool(v any) (bool, bool) {
	switch val := v.(type) {
	case bool:
		return val, true
	case float64:
		return val != 0, true
	case int:
		return val != 0, true
	case int64:
		return val != 0, true
	case string:
		b, err := strconv.ParseBool(val)
		return b, err == nil
	}
	return false, false
}

func toUint64(v any) (uint64, bool) {
	switch val := v.(type) {
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	case int:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case int64:
		if val < 0 {
			return 0, false
		}
		return uint64(val), true
	case float64:
		if val < 0 || val != math.Trunc(val) {
			return 0, false
		}
		return uint64(val), true
	case json.Number:
		n, err := strconv.ParseUint(val.String(), 0, 64)
		return n, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case int:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case float64:
		if val > math.MaxInt64 || val < math.MinInt64 || val != math.Trunc(val) {
			return 0, false
		}
		return int64(val), true
	case json.Number:
		n, err := val.Int64()
		return n, err == nil
	}
	return 0, false
}

// ArgsFromMap converts a decoded JSON, YAML or Lua table into command fields
// laid out by params. Auto-computed length fields are skipped; keys that name
// no field are an error.
func ArgsFromMap(params []Param, m map[string]any) (Args, error) {
	known := make(map[string]bool, len(params))
	var out Args
	for i := range params {
		p := &params[i]
		known[p.Name] = true
		x, ok := m[p.Name]
		if !ok || p.LengthOf != "" {
			continue
		}
		switch {
		case p.Records != nil:
			items, ok := x.([]any)
			if !ok {
				return nil, fmt.Errorf("zcl: field %s wants a list of records, got %T: %w", p.Name, x, ErrInvalidField)
			}
			recs := make([]Args, 0, len(items))
			for _, item := range items {
				rm, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("zcl: field %s record is %T: %w", p.Name, item, ErrInvalidField)
				}
				rec, err := ArgsFromMap(p.Records, rm)
				if err != nil {
					return nil, err
				}
				recs = append(recs, rec)
			}
			out = append(out, Arg{Name: p.Name, Records: recs})
		case p.List:
			items, ok := x.([]any)
			if !ok {
				return nil, fmt.Errorf("zcl: field %s wants a list, got %T: %w", p.Name, x, ErrInvalidField)
			}
			vs := make([]Value, 0, len(items))
			for _, item := range items {
				v, err := FromInterface(p.Type, item)
				if err != nil {
					return nil, fmt.Errorf("zcl: field %s: %w", p.Name, err)
				}
				vs = append(vs, v)
			}
			out = append(out, Arg{Name: p.Name, Value: Array(p.Type, vs...)})
		case p.Raw:
			b, err := toBytes(TypeOctetStr, x)
			if err != nil {
				return nil, fmt.Errorf("zcl: field %s: %w", p.Name, err)
			}
			out = append(out, Arg{Name: p.Name, Value: Octets(TypeOctetStr, b)})
		default:
			v, err := FromInterface(p.Type, x)
			if err != nil {
				return nil, fmt.Errorf("zcl: field %s: %w", p.Name, err)
			}
			out = append(out, Arg{Name: p.Name, Value: v})
		}
	}
	for k := range m {
		if !known[k] {
			return nil, fmt.Errorf("zcl: no field %s: %w", k, ErrInvalidField)
		}
	}
	return out, nil
}

// Map returns the fields as plain Go values keyed by name.
func (a Args) Map() map[string]any {
	m := make(map[string]any, len(a))
	for _, arg := range a {
		if arg.Records != nil {
			recs := make([]any, len(arg.Records))
			for i, r := range arg.Records {
				recs[i] = r.Map()
			}
			m[arg.Name] = recs
			continue
		}
		m[arg.Name] = arg.Value.Interface()
	}
	return m
}
