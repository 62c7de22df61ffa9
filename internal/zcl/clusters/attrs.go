// Package clusters holds the static ZCL cluster tables: attribute
// descriptors with their defaults and bounds, and command payload schemas.
package clusters

import "zcl-node/internal/zcl"

type attrOption func(*zcl.AttributeDef)

// attr builds an attribute descriptor. Without options the default is the
// zero value of the type and the attribute is unbounded.
func attr(id uint16, name string, t zcl.DataType, access zcl.Access, opts ...attrOption) zcl.AttributeDef {
	a := zcl.AttributeDef{ID: id, Name: name, Type: t, Access: access}
	for _, o := range opts {
		o(&a)
	}
	return a
}

func def(v zcl.Value) attrOption {
	return func(a *zcl.AttributeDef) { a.Default = v }
}

func bounds(lo, hi zcl.Value) attrOption {
	return func(a *zcl.AttributeDef) { a.Min, a.Max = lo, hi }
}

// invalidOK lets writes store the invalid sentinel, and makes it the default
// when none was given.
func invalidOK() attrOption {
	return func(a *zcl.AttributeDef) {
		a.AllowInvalid = true
		if a.Default.IsNull() {
			a.Default = zcl.Invalid(a.Type)
		}
	}
}

func report(min, max uint16, change zcl.Value) attrOption {
	return func(a *zcl.AttributeDef) {
		a.Report = &zcl.ReportDefaults{Min: min, Max: max, Change: change}
	}
}

func mfr(code uint16) attrOption {
	return func(a *zcl.AttributeDef) {
		a.Manufacturer = code
		a.Access |= zcl.AccessManuf
	}
}

// clusterRevision is the global attribute every cluster carries.
func clusterRevision(rev uint16) zcl.AttributeDef {
	return attr(0xFFFD, "ClusterRevision", zcl.TypeUint16, zcl.AccessRead|zcl.AccessSingle, def(zcl.U16(rev)))
}

// measurement builds the layout shared by the 0x04xx measurement clusters:
// MeasuredValue, MinMeasuredValue, MaxMeasuredValue and Tolerance.
func measurement(id uint16, name string, t zcl.DataType, lo, hi zcl.Value, tolerance zcl.Value, extra ...zcl.AttributeDef) zcl.ClusterDef {
	c := zcl.ClusterDef{
		ID:   id,
		Name: name,
		Attributes: []zcl.AttributeDef{
			attr(0x0000, "MeasuredValue", t, zcl.AccessRP, invalidOK(), report(1, 300, changeFor(t))),
			attr(0x0001, "MinMeasuredValue", t, zcl.AccessRead, invalidOK(), bounds(lo, hi)),
			attr(0x0002, "MaxMeasuredValue", t, zcl.AccessRead, invalidOK(), bounds(lo, hi)),
			attr(0x0003, "Tolerance", tolerance.Type(), zcl.AccessRP, bounds(zeroOf(tolerance.Type()), tolerance)),
			clusterRevision(3),
		},
	}
	c.Attributes = append(c.Attributes, extra...)
	return c
}

func changeFor(t zcl.DataType) zcl.Value {
	switch t {
	case zcl.TypeFloat32:
		return zcl.Float(t, 1)
	case zcl.TypeInt16:
		return zcl.S16(10)
	}
	return zcl.Uint(t, 1)
}

func zeroOf(t zcl.DataType) zcl.Value {
	if t == zcl.TypeFloat32 {
		return zcl.Float(t, 0)
	}
	return zcl.Uint(t, 0)
}
