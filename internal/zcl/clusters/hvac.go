package clusters

import "zcl-node/internal/zcl"

var PumpConfigurationAndControl = zcl.ClusterDef{
	ID:   0x0200,
	Name: "Pump Configuration and Control",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "MaxPressure", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0001, "MaxSpeed", zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(0x0002, "MaxFlow", zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(0x0010, "PumpStatus", zcl.TypeBitmap16, zcl.AccessRP),
		attr(0x0011, "EffectiveOperationMode", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(3))),
		attr(0x0012, "EffectiveControlMode", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(7))),
		attr(0x0013, "Capacity", zcl.TypeInt16, zcl.AccessRP, invalidOK(), report(1, 300, zcl.S16(10))),
		attr(0x0014, "Speed", zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(0x0020, "OperationMode", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(3))),
		attr(0x0021, "ControlMode", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(7))),
		attr(0x0022, "AlarmMask", zcl.TypeBitmap16, zcl.AccessRead),
		clusterRevision(3),
	},
}

// Thermostat attribute ids used by the setpoint check.
const (
	ThermostatLocalTemperature      uint16 = 0x0000
	ThermostatOccupancy             uint16 = 0x0002
	ThermostatAbsMinHeat            uint16 = 0x0003
	ThermostatAbsMaxHeat            uint16 = 0x0004
	ThermostatAbsMinCool            uint16 = 0x0005
	ThermostatAbsMaxCool            uint16 = 0x0006
	ThermostatOccupiedCooling       uint16 = 0x0011
	ThermostatOccupiedHeating       uint16 = 0x0012
	ThermostatUnoccupiedCooling     uint16 = 0x0013
	ThermostatUnoccupiedHeating     uint16 = 0x0014
	ThermostatMinHeatLimit          uint16 = 0x0015
	ThermostatMaxHeatLimit          uint16 = 0x0016
	ThermostatMinCoolLimit          uint16 = 0x0017
	ThermostatMaxCoolLimit          uint16 = 0x0018
	ThermostatMinSetpointDeadBand   uint16 = 0x0019
	ThermostatControlSequence       uint16 = 0x001B
	ThermostatSystemMode            uint16 = 0x001C
	ThermostatCmdSetpointRaiseLower uint8  = 0x00

	SetpointModeHeat = 0x00
	SetpointModeCool = 0x01
	SetpointModeBoth = 0x02
)

// Temperatures in 0.01 degC; the representable range is -273.15..327.67.
var (
	tempMin = zcl.S16(-27315)
	tempMax = zcl.S16(0x7FFF)
)

// transitions is the weekly schedule payload: each transition carries a heat
// and/or cool setpoint depending on the enclosing Mode bitmap.
func transitions() zcl.Param {
	return records("Transitions", "NumberOfTransitions",
		field("TransitionTime", zcl.TypeUint16),
		when(field("HeatSetpoint", zcl.TypeInt16), zcl.FieldSet("Mode", 0x01)),
		when(field("CoolSetpoint", zcl.TypeInt16), zcl.FieldSet("Mode", 0x02)),
	)
}

var Thermostat = zcl.ClusterDef{
	ID:   0x0201,
	Name: "Thermostat",
	Attributes: []zcl.AttributeDef{
		attr(ThermostatLocalTemperature, "LocalTemperature", zcl.TypeInt16, zcl.AccessRP, invalidOK(), bounds(tempMin, tempMax), report(10, 300, zcl.S16(50))),
		attr(0x0001, "OutdoorTemperature", zcl.TypeInt16, zcl.AccessRead, invalidOK(), bounds(tempMin, tempMax)),
		attr(ThermostatOccupancy, "Occupancy", zcl.TypeBitmap8, zcl.AccessRead, def(zcl.M8(0x01))),
		attr(ThermostatAbsMinHeat, "AbsMinHeatSetpointLimit", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(0x02BC)), bounds(tempMin, tempMax)),
		attr(ThermostatAbsMaxHeat, "AbsMaxHeatSetpointLimit", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(0x0BB8)), bounds(tempMin, tempMax)),
		attr(ThermostatAbsMinCool, "AbsMinCoolSetpointLimit", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(0x0640)), bounds(tempMin, tempMax)),
		attr(ThermostatAbsMaxCool, "AbsMaxCoolSetpointLimit", zcl.TypeInt16, zcl.AccessRead, def(zcl.S16(0x0C80)), bounds(tempMin, tempMax)),
		attr(0x0007, "PICoolingDemand", zcl.TypeUint8, zcl.AccessRP, bounds(zcl.U8(0), zcl.U8(0x64))),
		attr(0x0008, "PIHeatingDemand", zcl.TypeUint8, zcl.AccessRP, bounds(zcl.U8(0), zcl.U8(0x64))),
		attr(0x0009, "HVACSystemTypeConfiguration", zcl.TypeBitmap8, zcl.AccessRW),
		// 0.1 degC
		attr(0x0010, "LocalTemperatureCalibration", zcl.TypeInt8, zcl.AccessRW, bounds(zcl.S8(-25), zcl.S8(25))),
		attr(ThermostatOccupiedCooling, "OccupiedCoolingSetpoint", zcl.TypeInt16, zcl.AccessRW|zcl.AccessScene|zcl.AccessPersist, def(zcl.S16(0x0A28)), bounds(tempMin, tempMax), report(1, 300, zcl.S16(10))),
		attr(ThermostatOccupiedHeating, "OccupiedHeatingSetpoint", zcl.TypeInt16, zcl.AccessRW|zcl.AccessScene|zcl.AccessPersist, def(zcl.S16(0x07D0)), bounds(tempMin, tempMax), report(1, 300, zcl.S16(10))),
		attr(ThermostatUnoccupiedCooling, "UnoccupiedCoolingSetpoint", zcl.TypeInt16, zcl.AccessRW|zcl.AccessPersist, def(zcl.S16(0x0A28)), bounds(tempMin, tempMax)),
		attr(ThermostatUnoccupiedHeating, "UnoccupiedHeatingSetpoint", zcl.TypeInt16, zcl.AccessRW|zcl.AccessPersist, def(zcl.S16(0x07D0)), bounds(tempMin, tempMax)),
		attr(ThermostatMinHeatLimit, "MinHeatSetpointLimit", zcl.TypeInt16, zcl.AccessRW, def(zcl.S16(0x02BC)), bounds(tempMin, tempMax)),
		attr(ThermostatMaxHeatLimit, "MaxHeatSetpointLimit", zcl.TypeInt16, zcl.AccessRW, def(zcl.S16(0x0BB8)), bounds(tempMin, tempMax)),
		attr(ThermostatMinCoolLimit, "MinCoolSetpointLimit", zcl.TypeInt16, zcl.AccessRW, def(zcl.S16(0x0640)), bounds(tempMin, tempMax)),
		attr(ThermostatMaxCoolLimit, "MaxCoolSetpointLimit", zcl.TypeInt16, zcl.AccessRW, def(zcl.S16(0x0C80)), bounds(tempMin, tempMax)),
		// 0.1 degC, 1.0..2.5 degC
		attr(ThermostatMinSetpointDeadBand, "MinSetpointDeadBand", zcl.TypeInt8, zcl.AccessRW, def(zcl.S8(0x19)), bounds(zcl.S8(0x0A), zcl.S8(0x19))),
		attr(0x001A, "RemoteSensing", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x07))),
		attr(ThermostatControlSequence, "ControlSequenceOfOperation", zcl.TypeEnum8, zcl.AccessRW|zcl.AccessPersist, def(zcl.E8(0x04)), bounds(zcl.E8(0), zcl.E8(5))),
		attr(ThermostatSystemMode, "SystemMode", zcl.TypeEnum8, zcl.AccessRW|zcl.AccessScene|zcl.AccessPersist, def(zcl.E8(0x01)), bounds(zcl.E8(0), zcl.E8(9)), report(0, 600, zcl.Null())),
		attr(0x001D, "AlarmMask", zcl.TypeBitmap8, zcl.AccessRead),
		attr(0x001E, "ThermostatRunningMode", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(4))),
		attr(0x0020, "StartOfWeek", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(6))),
		attr(0x0021, "NumberOfWeeklyTransitions", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0022, "NumberOfDailyTransitions", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0023, "TemperatureSetpointHold", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(1))),
		// minutes, 0xFFFF = indefinitely
		attr(0x0024, "TemperatureSetpointHoldDuration", zcl.TypeUint16, zcl.AccessRW, invalidOK(), bounds(zcl.U16(0), zcl.U16(0x05A0))),
		attr(0x0025, "ThermostatProgrammingOperationMode", zcl.TypeBitmap8, zcl.AccessRP),
		attr(0x0029, "ThermostatRunningState", zcl.TypeBitmap16, zcl.AccessRead),
		attr(0x0030, "SetpointChangeSource", zcl.TypeEnum8, zcl.AccessRead),
		attr(0x0031, "SetpointChangeAmount", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
		attr(0x0032, "SetpointChangeSourceTimestamp", zcl.TypeUTC, zcl.AccessRead),
		attr(0x0040, "ACType", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(4))),
		attr(0x0041, "ACCapacity", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0042, "ACRefrigerantType", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(3))),
		attr(0x0043, "ACCompressorType", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(3))),
		attr(0x0044, "ACErrorCode", zcl.TypeBitmap32, zcl.AccessRW),
		attr(0x0045, "ACLouverPosition", zcl.TypeEnum8, zcl.AccessRW, def(zcl.E8(1)), bounds(zcl.E8(1), zcl.E8(5))),
		attr(0x0046, "ACCoilTemperature", zcl.TypeInt16, zcl.AccessRead, invalidOK(), bounds(tempMin, tempMax)),
		attr(0x0047, "ACCapacityFormat", zcl.TypeEnum8, zcl.AccessRW),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(ThermostatCmdSetpointRaiseLower, "SetpointRaiseLower", noResponse,
			field("Mode", zcl.TypeEnum8),
			// 0.1 degC steps
			field("Amount", zcl.TypeInt8),
		),
		request(0x01, "SetWeeklySchedule", noResponse,
			lengthOf("NumberOfTransitions", zcl.TypeUint8, "Transitions"),
			field("DayOfWeek", zcl.TypeBitmap8),
			field("Mode", zcl.TypeBitmap8),
			transitions(),
		),
		request(0x02, "GetWeeklySchedule", 0x00,
			field("DaysToReturn", zcl.TypeBitmap8),
			field("ModeToReturn", zcl.TypeBitmap8),
		),
		request(0x03, "ClearWeeklySchedule", noResponse),
		request(0x04, "GetRelayStatusLog", 0x01),

		notify(0x00, "GetWeeklyScheduleResponse", noResponse,
			lengthOf("NumberOfTransitions", zcl.TypeUint8, "Transitions"),
			field("DayOfWeek", zcl.TypeBitmap8),
			field("Mode", zcl.TypeBitmap8),
			transitions(),
		),
		notify(0x01, "GetRelayStatusLogResponse", noResponse,
			field("TimeOfDay", zcl.TypeUint16),
			field("RelayStatus", zcl.TypeBitmap8),
			field("LocalTemperature", zcl.TypeInt16),
			field("HumidityPercentage", zcl.TypeUint8),
			field("Setpoint", zcl.TypeInt16),
			field("UnreadEntries", zcl.TypeUint16),
		),
	},
}

var FanControl = zcl.ClusterDef{
	ID:   0x0202,
	Name: "Fan Control",
	Attributes: []zcl.AttributeDef{
		// off, low, medium, high, on, auto, smart
		attr(0x0000, "FanMode", zcl.TypeEnum8, zcl.AccessRW|zcl.AccessPersist, def(zcl.E8(0x05)), bounds(zcl.E8(0), zcl.E8(6))),
		attr(0x0001, "FanModeSequence", zcl.TypeEnum8, zcl.AccessRW, def(zcl.E8(0x02)), bounds(zcl.E8(0), zcl.E8(4))),
		clusterRevision(2),
	},
}

var ThermostatUserInterfaceConfiguration = zcl.ClusterDef{
	ID:   0x0204,
	Name: "Thermostat User Interface Configuration",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "TemperatureDisplayMode", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(1))),
		attr(0x0001, "KeypadLockout", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(5))),
		attr(0x0002, "ScheduleProgrammingVisibility", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(1))),
		clusterRevision(2),
	},
}
