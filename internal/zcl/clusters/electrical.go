package clusters

import "zcl-node/internal/zcl"

// Electrical Measurement ids read by the metering bridge.
const (
	ElectricalRMSVoltage          uint16 = 0x0505
	ElectricalRMSCurrent          uint16 = 0x0508
	ElectricalActivePower         uint16 = 0x050B
	ElectricalACVoltageMultiplier uint16 = 0x0600
	ElectricalACVoltageDivisor    uint16 = 0x0601
	ElectricalACPowerMultiplier   uint16 = 0x0604
	ElectricalACPowerDivisor      uint16 = 0x0605
)

// acPhase builds the per-phase AC block. Phase A lives at 0x05xx, phases B
// and C repeat the layout at 0x09xx and 0x0Axx.
func acPhase(base uint16, suffix string) []zcl.AttributeDef {
	n := func(s string) string { return s + suffix }
	return []zcl.AttributeDef{
		attr(base+0x01, n("LineCurrent"), zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(base+0x02, n("ActiveCurrent"), zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(base+0x03, n("ReactiveCurrent"), zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(base+0x05, n("RMSVoltage"), zcl.TypeUint16, zcl.AccessRP, invalidOK(), report(5, 300, zcl.U16(1))),
		attr(base+0x06, n("RMSVoltageMin"), zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(base+0x07, n("RMSVoltageMax"), zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(base+0x08, n("RMSCurrent"), zcl.TypeUint16, zcl.AccessRP, invalidOK(), report(5, 300, zcl.U16(1))),
		attr(base+0x09, n("RMSCurrentMin"), zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(base+0x0A, n("RMSCurrentMax"), zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(base+0x0B, n("ActivePower"), zcl.TypeInt16, zcl.AccessRP, invalidOK(), report(5, 300, zcl.S16(1))),
		attr(base+0x0C, n("ActivePowerMin"), zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(base+0x0D, n("ActivePowerMax"), zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(base+0x0E, n("ReactivePower"), zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(base+0x0F, n("ApparentPower"), zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(base+0x10, n("PowerFactor"), zcl.TypeInt8, zcl.AccessRead, bounds(zcl.S8(-100), zcl.S8(100))),
		attr(base+0x11, n("AverageRMSVoltageMeasurementPeriod"), zcl.TypeUint16, zcl.AccessRW),
		attr(base+0x12, n("AverageRMSOverVoltageCounter"), zcl.TypeUint16, zcl.AccessRW),
		attr(base+0x13, n("AverageRMSUnderVoltageCounter"), zcl.TypeUint16, zcl.AccessRW),
		attr(base+0x14, n("RMSExtremeOverVoltagePeriod"), zcl.TypeUint16, zcl.AccessRW),
		attr(base+0x15, n("RMSExtremeUnderVoltagePeriod"), zcl.TypeUint16, zcl.AccessRW),
		attr(base+0x16, n("RMSVoltageSagPeriod"), zcl.TypeUint16, zcl.AccessRW),
		attr(base+0x17, n("RMSVoltageSwellPeriod"), zcl.TypeUint16, zcl.AccessRW),
	}
}

func electricalAttributes() []zcl.AttributeDef {
	one := def(zcl.U16(1))
	a := []zcl.AttributeDef{
		attr(0x0000, "MeasurementType", zcl.TypeBitmap32, zcl.AccessRead),

		attr(0x0100, "DCVoltage", zcl.TypeInt16, zcl.AccessRP, invalidOK()),
		attr(0x0101, "DCVoltageMin", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0102, "DCVoltageMax", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0103, "DCCurrent", zcl.TypeInt16, zcl.AccessRP, invalidOK()),
		attr(0x0104, "DCCurrentMin", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0105, "DCCurrentMax", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0106, "DCPower", zcl.TypeInt16, zcl.AccessRP, invalidOK()),
		attr(0x0107, "DCPowerMin", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0108, "DCPowerMax", zcl.TypeInt16, zcl.AccessRead, invalidOK()),

		attr(0x0200, "DCVoltageMultiplier", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0201, "DCVoltageDivisor", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0202, "DCCurrentMultiplier", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0203, "DCCurrentDivisor", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0204, "DCPowerMultiplier", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0205, "DCPowerDivisor", zcl.TypeUint16, zcl.AccessRP, one),

		attr(0x0300, "ACFrequency", zcl.TypeUint16, zcl.AccessRP, invalidOK()),
		attr(0x0301, "ACFrequencyMin", zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(0x0302, "ACFrequencyMax", zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(0x0303, "NeutralCurrent", zcl.TypeUint16, zcl.AccessRP, invalidOK()),
		attr(0x0304, "TotalActivePower", zcl.TypeInt32, zcl.AccessRP),
		attr(0x0305, "TotalReactivePower", zcl.TypeInt32, zcl.AccessRP),
		attr(0x0306, "TotalApparentPower", zcl.TypeUint32, zcl.AccessRP),
	}
	for i, name := range []string{"1st", "3rd", "5th", "7th", "9th", "11th"} {
		a = append(a, attr(0x0307+uint16(i), "Measured"+name+"HarmonicCurrent", zcl.TypeInt16, zcl.AccessRP, invalidOK()))
	}
	for i, name := range []string{"1st", "3rd", "5th", "7th", "9th", "11th"} {
		a = append(a, attr(0x030D+uint16(i), "MeasuredPhase"+name+"HarmonicCurrent", zcl.TypeInt16, zcl.AccessRP, invalidOK()))
	}
	a = append(a,
		attr(0x0400, "ACFrequencyMultiplier", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0401, "ACFrequencyDivisor", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0402, "PowerMultiplier", zcl.TypeUint32, zcl.AccessRP, def(zcl.U32(1))),
		attr(0x0403, "PowerDivisor", zcl.TypeUint32, zcl.AccessRP, def(zcl.U32(1))),
		attr(0x0404, "HarmonicCurrentMultiplier", zcl.TypeInt8, zcl.AccessRP),
		attr(0x0405, "PhaseHarmonicCurrentMultiplier", zcl.TypeInt8, zcl.AccessRP),

		attr(ElectricalACVoltageMultiplier, "ACVoltageMultiplier", zcl.TypeUint16, zcl.AccessRP, one),
		attr(ElectricalACVoltageDivisor, "ACVoltageDivisor", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0602, "ACCurrentMultiplier", zcl.TypeUint16, zcl.AccessRP, one),
		attr(0x0603, "ACCurrentDivisor", zcl.TypeUint16, zcl.AccessRP, one),
		attr(ElectricalACPowerMultiplier, "ACPowerMultiplier", zcl.TypeUint16, zcl.AccessRP, one),
		attr(ElectricalACPowerDivisor, "ACPowerDivisor", zcl.TypeUint16, zcl.AccessRP, one),

		attr(0x0700, "DCOverloadAlarmsMask", zcl.TypeBitmap8, zcl.AccessRW),
		attr(0x0701, "DCVoltageOverload", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(-1))),
		attr(0x0702, "DCCurrentOverload", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(-1))),
		attr(0x0800, "ACAlarmsMask", zcl.TypeBitmap16, zcl.AccessRW),
		attr(0x0801, "ACVoltageOverload", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(-1))),
		attr(0x0802, "ACCurrentOverload", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(-1))),
		attr(0x0803, "ACActivePowerOverload", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(-1))),
		attr(0x0804, "ACReactivePowerOverload", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(-1))),
		attr(0x0805, "AverageRMSOverVoltage", zcl.TypeInt16, zcl.AccessRead),
		attr(0x0806, "AverageRMSUnderVoltage", zcl.TypeInt16, zcl.AccessRead),
		attr(0x0807, "RMSExtremeOverVoltage", zcl.TypeInt16, zcl.AccessRW),
		attr(0x0808, "RMSExtremeUnderVoltage", zcl.TypeInt16, zcl.AccessRW),
		attr(0x0809, "RMSVoltageSag", zcl.TypeInt16, zcl.AccessRW),
		attr(0x080A, "RMSVoltageSwell", zcl.TypeInt16, zcl.AccessRW),
		clusterRevision(3),
	)
	a = append(a, acPhase(0x0500, "")...)
	a = append(a, acPhase(0x0900, "PhB")...)
	return append(a, acPhase(0x0A00, "PhC")...)
}

var ElectricalMeasurement = zcl.ClusterDef{
	ID:         0x0B04,
	Name:       "Electrical Measurement",
	Attributes: electricalAttributes(),
	Commands: []zcl.CommandDef{
		request(0x00, "GetProfileInfo", 0x00),
		request(0x01, "GetMeasurementProfile", 0x01,
			field("AttributeID", zcl.TypeAttrID),
			field("StartTime", zcl.TypeUTC),
			field("NumberOfIntervals", zcl.TypeUint8),
		),
		notify(0x00, "GetProfileInfoResponse", noResponse,
			field("ProfileCount", zcl.TypeUint8),
			field("ProfileIntervalPeriod", zcl.TypeEnum8),
			field("MaxNumberOfIntervals", zcl.TypeUint8),
			rest("ListOfAttributes", zcl.TypeAttrID),
		),
		notify(0x01, "GetMeasurementProfileResponse", noResponse,
			field("StartTime", zcl.TypeUTC),
			field("Status", zcl.TypeEnum8),
			field("ProfileIntervalPeriod", zcl.TypeEnum8),
			field("NumberOfIntervalsDelivered", zcl.TypeUint8),
			field("AttributeID", zcl.TypeAttrID),
			// interval values, typed as the profiled attribute
			octets("Intervals", ""),
		),
	},
}
