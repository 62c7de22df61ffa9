package clusters

import "zcl-node/internal/zcl"

// Analog, Binary and Multistate Input/Output/Value share one attribute
// layout. The PresentValue type and a handful of kind-specific attributes are
// all that differ.
const (
	ObjectPresentValue  uint16 = 0x0055
	ObjectOutOfService  uint16 = 0x0051
	ObjectStatusFlags   uint16 = 0x006F
	ObjectReliability   uint16 = 0x0067
	ObjectRelinquishDef uint16 = 0x0068
)

// StatusFlags bits.
const (
	StatusFlagInAlarm      = 0x01
	StatusFlagFault        = 0x02
	StatusFlagOverridden   = 0x04
	StatusFlagOutOfService = 0x08
)

type objectRole int

const (
	roleInput objectRole = iota
	roleOutput
	roleValue
)

func (r objectRole) String() string {
	switch r {
	case roleOutput:
		return "Output"
	case roleValue:
		return "Value"
	}
	return "Input"
}

func object(id uint16, kind string, role objectRole, pv zcl.DataType, extra ...zcl.AttributeDef) zcl.ClusterDef {
	pvAccess := zcl.AccessRP
	if role != roleInput {
		pvAccess = zcl.AccessRWP
	}
	attrs := []zcl.AttributeDef{
		attr(0x001C, "Description", zcl.TypeCharStr, zcl.AccessRW),
		attr(ObjectOutOfService, "OutOfService", zcl.TypeBool, zcl.AccessRW, def(zcl.Bool(false))),
		attr(ObjectPresentValue, "PresentValue", pv, pvAccess|zcl.AccessPersist, report(1, 300, changeFor(pv))),
		attr(ObjectReliability, "Reliability", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(0x0C))),
		attr(ObjectStatusFlags, "StatusFlags", zcl.TypeBitmap8, zcl.AccessRP, bounds(zcl.M8(0), zcl.M8(0x0F))),
		attr(0x0100, "ApplicationType", zcl.TypeUint32, zcl.AccessRead),
		clusterRevision(1),
	}
	if role != roleInput {
		attrs = append(attrs, attr(ObjectRelinquishDef, "RelinquishDefault", pv, zcl.AccessRW))
	}
	return zcl.ClusterDef{
		ID:         id,
		Name:       kind + " " + role.String() + " (Basic)",
		Attributes: append(attrs, extra...),
	}
}

func analogLimits(role objectRole) []zcl.AttributeDef {
	a := []zcl.AttributeDef{
		attr(0x0075, "EngineeringUnits", zcl.TypeEnum16, zcl.AccessRW),
	}
	if role == roleValue {
		return a
	}
	return append(a,
		attr(0x0041, "MaxPresentValue", zcl.TypeFloat32, zcl.AccessRW),
		attr(0x0045, "MinPresentValue", zcl.TypeFloat32, zcl.AccessRW),
		attr(0x006A, "Resolution", zcl.TypeFloat32, zcl.AccessRW),
	)
}

func binaryText(role objectRole) []zcl.AttributeDef {
	a := []zcl.AttributeDef{
		attr(0x0004, "ActiveText", zcl.TypeCharStr, zcl.AccessRW),
		attr(0x002E, "InactiveText", zcl.TypeCharStr, zcl.AccessRW),
	}
	if role != roleValue {
		a = append(a, attr(0x0054, "Polarity", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(1))))
	}
	if role != roleInput {
		a = append(a,
			attr(0x0042, "MinimumOffTime", zcl.TypeUint32, zcl.AccessRW, invalidOK()),
			attr(0x0043, "MinimumOnTime", zcl.TypeUint32, zcl.AccessRW, invalidOK()),
		)
	}
	return a
}

func multistateText() []zcl.AttributeDef {
	return []zcl.AttributeDef{
		attr(0x000E, "StateText", zcl.TypeArray, zcl.AccessRW),
		attr(0x004A, "NumberOfStates", zcl.TypeUint16, zcl.AccessRW, def(zcl.U16(1)), bounds(zcl.U16(1), zcl.U16(0xFFFF))),
	}
}

var (
	AnalogInput  = object(0x000C, "Analog", roleInput, zcl.TypeFloat32, analogLimits(roleInput)...)
	AnalogOutput = object(0x000D, "Analog", roleOutput, zcl.TypeFloat32, analogLimits(roleOutput)...)
	AnalogValue  = object(0x000E, "Analog", roleValue, zcl.TypeFloat32, analogLimits(roleValue)...)

	BinaryInput  = object(0x000F, "Binary", roleInput, zcl.TypeBool, binaryText(roleInput)...)
	BinaryOutput = object(0x0010, "Binary", roleOutput, zcl.TypeBool, binaryText(roleOutput)...)
	BinaryValue  = object(0x0011, "Binary", roleValue, zcl.TypeBool, binaryText(roleValue)...)

	MultistateInput  = object(0x0012, "Multistate", roleInput, zcl.TypeUint16, multistateText()...)
	MultistateOutput = object(0x0013, "Multistate", roleOutput, zcl.TypeUint16, multistateText()...)
	MultistateValue  = object(0x0014, "Multistate", roleValue, zcl.TypeUint16, multistateText()...)
)
