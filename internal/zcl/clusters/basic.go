package clusters

import "zcl-node/internal/zcl"

// Basic PowerSource values.
const (
	PowerSourceUnknown  = 0x00
	PowerSourceMains    = 0x01
	PowerSourceBattery  = 0x03
	PowerSourceDC       = 0x04
	PowerSourceBackedUp = 0x80 // bit 7: secondary battery present

	BasicCmdResetToFactoryDefaults uint8 = 0x00

	BasicManufacturerName uint16 = 0x0004
	BasicModelIdentifier  uint16 = 0x0005
	BasicSWBuildID        uint16 = 0x4000
)

var Basic = zcl.ClusterDef{
	ID:   0x0000,
	Name: "Basic",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "ZCLVersion", zcl.TypeUint8, zcl.AccessRead|zcl.AccessSingle, def(zcl.U8(0x08))),
		attr(0x0001, "ApplicationVersion", zcl.TypeUint8, zcl.AccessRead|zcl.AccessSingle),
		attr(0x0002, "StackVersion", zcl.TypeUint8, zcl.AccessRead|zcl.AccessSingle),
		attr(0x0003, "HWVersion", zcl.TypeUint8, zcl.AccessRead|zcl.AccessSingle),
		attr(0x0004, "ManufacturerName", zcl.TypeCharStr, zcl.AccessRead|zcl.AccessSingle),
		attr(0x0005, "ModelIdentifier", zcl.TypeCharStr, zcl.AccessRead|zcl.AccessSingle),
		attr(0x0006, "DateCode", zcl.TypeCharStr, zcl.AccessRead|zcl.AccessSingle),
		attr(0x0007, "PowerSource", zcl.TypeEnum8, zcl.AccessRead|zcl.AccessSingle, def(zcl.E8(PowerSourceUnknown))),
		attr(0x0008, "GenericDeviceClass", zcl.TypeEnum8, zcl.AccessRead, def(zcl.E8(0xFF))),
		attr(0x0009, "GenericDeviceType", zcl.TypeEnum8, zcl.AccessRead, def(zcl.E8(0xFF))),
		attr(0x000A, "ProductCode", zcl.TypeOctetStr, zcl.AccessRead),
		attr(0x000B, "ProductURL", zcl.TypeCharStr, zcl.AccessRead),
		attr(0x000C, "ManufacturerVersionDetails", zcl.TypeCharStr, zcl.AccessRead),
		attr(0x000D, "SerialNumber", zcl.TypeCharStr, zcl.AccessRead),
		attr(0x000E, "ProductLabel", zcl.TypeCharStr, zcl.AccessRead),
		attr(0x0010, "LocationDescription", zcl.TypeCharStr, zcl.AccessRW|zcl.AccessPersist),
		attr(0x0011, "PhysicalEnvironment", zcl.TypeEnum8, zcl.AccessRW|zcl.AccessPersist),
		attr(0x0012, "DeviceEnabled", zcl.TypeBool, zcl.AccessRW|zcl.AccessPersist, def(zcl.Bool(true))),
		attr(0x0013, "AlarmMask", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x03))),
		attr(0x0014, "DisableLocalConfig", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x03))),
		attr(0x4000, "SWBuildID", zcl.TypeCharStr, zcl.AccessRead|zcl.AccessSingle),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(BasicCmdResetToFactoryDefaults, "ResetToFactoryDefaults", noResponse),
	},
}

var PowerConfiguration = zcl.ClusterDef{
	ID:   0x0001,
	Name: "Power Configuration",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "MainsVoltage", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0001, "MainsFrequency", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0010, "MainsAlarmMask", zcl.TypeBitmap8, zcl.AccessRW),
		attr(0x0011, "MainsVoltageMinThreshold", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0012, "MainsVoltageMaxThreshold", zcl.TypeUint16, zcl.AccessRW, def(zcl.U16(0xFFFF))),
		attr(0x0013, "MainsVoltageDwellTripPoint", zcl.TypeUint16, zcl.AccessRW),
		// 100 mV units
		attr(0x0020, "BatteryVoltage", zcl.TypeUint8, zcl.AccessRP, invalidOK(), report(60, 3600, zcl.U8(1))),
		// 0.5 % units, 200 = 100 %
		attr(0x0021, "BatteryPercentageRemaining", zcl.TypeUint8, zcl.AccessRP, def(zcl.U8(0)), bounds(zcl.U8(0), zcl.U8(200)), report(60, 3600, zcl.U8(2))),
		attr(0x0030, "BatteryManufacturer", zcl.TypeCharStr, zcl.AccessRW),
		attr(0x0031, "BatterySize", zcl.TypeEnum8, zcl.AccessRW, def(zcl.E8(0xFF))),
		attr(0x0032, "BatteryAHrRating", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0033, "BatteryQuantity", zcl.TypeUint8, zcl.AccessRW),
		attr(0x0034, "BatteryRatedVoltage", zcl.TypeUint8, zcl.AccessRW),
		attr(0x0035, "BatteryAlarmMask", zcl.TypeBitmap8, zcl.AccessRW),
		attr(0x0036, "BatteryVoltageMinThreshold", zcl.TypeUint8, zcl.AccessRW),
		attr(0x003E, "BatteryAlarmState", zcl.TypeBitmap32, zcl.AccessRP),
		clusterRevision(2),
	},
}

var DeviceTemperatureConfiguration = zcl.ClusterDef{
	ID:   0x0002,
	Name: "Device Temperature Configuration",
	Attributes: []zcl.AttributeDef{
		// whole degC
		attr(0x0000, "CurrentTemperature", zcl.TypeInt16, zcl.AccessRead, bounds(zcl.S16(-200), zcl.S16(200))),
		attr(0x0001, "MinTempExperienced", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0002, "MaxTempExperienced", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0003, "OverTempTotalDwell", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0010, "DeviceTempAlarmMask", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x03))),
		attr(0x0011, "LowTempThreshold", zcl.TypeInt16, zcl.AccessRW, invalidOK(), bounds(zcl.S16(-200), zcl.S16(200))),
		attr(0x0012, "HighTempThreshold", zcl.TypeInt16, zcl.AccessRW, invalidOK(), bounds(zcl.S16(-200), zcl.S16(200))),
		attr(0x0013, "LowTempDwellTripPoint", zcl.TypeUint24, zcl.AccessRW, invalidOK()),
		attr(0x0014, "HighTempDwellTripPoint", zcl.TypeUint24, zcl.AccessRW, invalidOK()),
		clusterRevision(1),
	},
}

// Identify ids and TriggerEffect identifiers.
const (
	IdentifyTime             uint16 = 0x0000
	IdentifyCmdIdentify      uint8  = 0x00
	IdentifyCmdQuery         uint8  = 0x01
	IdentifyCmdTriggerEffect uint8  = 0x40
	IdentifyCmdQueryResponse uint8  = 0x00

	EffectBlink         = 0x00
	EffectBreathe       = 0x01
	EffectOkay          = 0x02
	EffectChannelChange = 0x0B
	EffectFinish        = 0xFE
	EffectStop          = 0xFF
)

var Identify = zcl.ClusterDef{
	ID:   0x0003,
	Name: "Identify",
	Attributes: []zcl.AttributeDef{
		attr(IdentifyTime, "IdentifyTime", zcl.TypeUint16, zcl.AccessRW),
		clusterRevision(2),
	},
	Commands: []zcl.CommandDef{
		request(IdentifyCmdIdentify, "Identify", noResponse, field("IdentifyTime", zcl.TypeUint16)),
		request(IdentifyCmdQuery, "IdentifyQuery", 0x00),
		request(IdentifyCmdTriggerEffect, "TriggerEffect", noResponse,
			field("EffectIdentifier", zcl.TypeEnum8),
			field("EffectVariant", zcl.TypeEnum8),
		),
		notify(0x00, "IdentifyQueryResponse", noResponse, field("Timeout", zcl.TypeUint16)),
	},
}

var Alarms = zcl.ClusterDef{
	ID:   0x0009,
	Name: "Alarms",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "AlarmCount", zcl.TypeUint16, zcl.AccessRead),
		clusterRevision(1),
	},
	Commands: []zcl.CommandDef{
		request(0x00, "ResetAlarm", noResponse, field("AlarmCode", zcl.TypeEnum8), field("ClusterID", zcl.TypeClusterID)),
		request(0x01, "ResetAllAlarms", noResponse),
		request(0x02, "GetAlarm", 0x01),
		request(0x03, "ResetAlarmLog", noResponse),
		notify(0x00, "Alarm", noResponse, field("AlarmCode", zcl.TypeEnum8), field("ClusterID", zcl.TypeClusterID)),
		notify(0x01, "GetAlarmResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			when(field("AlarmCode", zcl.TypeEnum8), statusOK),
			when(field("ClusterID", zcl.TypeClusterID), statusOK),
			when(field("TimeStamp", zcl.TypeUint32), statusOK),
		),
	},
}

var PollControl = zcl.ClusterDef{
	ID:   0x0020,
	Name: "Poll Control",
	Attributes: []zcl.AttributeDef{
		// quarter seconds
		attr(0x0000, "CheckInInterval", zcl.TypeUint32, zcl.AccessRW, def(zcl.U32(0x3840)), bounds(zcl.U32(0), zcl.U32(0x6E0000))),
		attr(0x0001, "LongPollInterval", zcl.TypeUint32, zcl.AccessRead, def(zcl.U32(0x14)), bounds(zcl.U32(0x04), zcl.U32(0x6E0000))),
		attr(0x0002, "ShortPollInterval", zcl.TypeUint16, zcl.AccessRead, def(zcl.U16(0x02)), bounds(zcl.U16(0x01), zcl.U16(0xFFFF))),
		attr(0x0003, "FastPollTimeout", zcl.TypeUint16, zcl.AccessRW, def(zcl.U16(0x28)), bounds(zcl.U16(0x01), zcl.U16(0xFFFF))),
		attr(0x0004, "CheckInIntervalMin", zcl.TypeUint32, zcl.AccessRead),
		attr(0x0005, "LongPollIntervalMin", zcl.TypeUint32, zcl.AccessRead),
		attr(0x0006, "FastPollTimeoutMax", zcl.TypeUint16, zcl.AccessRead),
		clusterRevision(2),
	},
	Commands: []zcl.CommandDef{
		request(0x00, "CheckInResponse", noResponse, field("StartFastPolling", zcl.TypeBool), field("FastPollTimeout", zcl.TypeUint16)),
		request(0x01, "FastPollStop", noResponse),
		request(0x02, "SetLongPollInterval", noResponse, field("NewLongPollInterval", zcl.TypeUint32)),
		request(0x03, "SetShortPollInterval", noResponse, field("NewShortPollInterval", zcl.TypeUint16)),
		notify(0x00, "CheckIn", 0x00),
	},
}
