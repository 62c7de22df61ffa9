package clusters

import "zcl-node/internal/zcl"

var IlluminanceMeasurement = measurement(0x0400, "Illuminance Measurement", zcl.TypeUint16,
	zcl.U16(0x0001), zcl.U16(0xFFFE), zcl.U16(0x0800),
	attr(0x0004, "LightSensorType", zcl.TypeEnum8, zcl.AccessRead, invalidOK()),
)

var IlluminanceLevelSensing = zcl.ClusterDef{
	ID:   0x0401,
	Name: "Illuminance Level Sensing",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "LevelStatus", zcl.TypeEnum8, zcl.AccessRP, bounds(zcl.E8(0), zcl.E8(2))),
		attr(0x0001, "LightSensorType", zcl.TypeEnum8, zcl.AccessRead, invalidOK()),
		attr(0x0010, "IlluminanceTargetLevel", zcl.TypeUint16, zcl.AccessRW, bounds(zcl.U16(0), zcl.U16(0xFFFE))),
		clusterRevision(2),
	},
}

// Temperature in 0.01 degC.
var TemperatureMeasurement = measurement(0x0402, "Temperature Measurement", zcl.TypeInt16,
	zcl.S16(-27315), zcl.S16(0x7FFE), zcl.U16(0x0800),
)

var PressureMeasurement = measurement(0x0403, "Pressure Measurement", zcl.TypeInt16,
	zcl.S16(-32767), zcl.S16(0x7FFE), zcl.U16(0x0800),
	attr(0x0010, "ScaledValue", zcl.TypeInt16, zcl.AccessRP, invalidOK()),
	attr(0x0011, "MinScaledValue", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
	attr(0x0012, "MaxScaledValue", zcl.TypeInt16, zcl.AccessRead, invalidOK()),
	attr(0x0013, "ScaledTolerance", zcl.TypeUint16, zcl.AccessRP, bounds(zcl.U16(0), zcl.U16(0x0800))),
	attr(0x0014, "Scale", zcl.TypeInt8, zcl.AccessRead, bounds(zcl.S8(-127), zcl.S8(127))),
)

var FlowMeasurement = measurement(0x0404, "Flow Measurement", zcl.TypeUint16,
	zcl.U16(0), zcl.U16(0xFFFD), zcl.U16(0x0800),
)

// Relative humidity in 0.01 %.
var RelativeHumidity = measurement(0x0405, "Relative Humidity Measurement", zcl.TypeUint16,
	zcl.U16(0), zcl.U16(0x2710), zcl.U16(0x0800),
)

var OccupancySensing = zcl.ClusterDef{
	ID:   0x0406,
	Name: "Occupancy Sensing",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "Occupancy", zcl.TypeBitmap8, zcl.AccessRP, report(0, 600, zcl.Null())),
		attr(0x0001, "OccupancySensorType", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(3))),
		attr(0x0002, "OccupancySensorTypeBitmap", zcl.TypeBitmap8, zcl.AccessRead),
		attr(0x0010, "PIROccupiedToUnoccupiedDelay", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0011, "PIRUnoccupiedToOccupiedDelay", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0012, "PIRUnoccupiedToOccupiedThreshold", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(1)), bounds(zcl.U8(1), zcl.U8(0xFE))),
		attr(0x0020, "UltrasonicOccupiedToUnoccupiedDelay", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0021, "UltrasonicUnoccupiedToOccupiedDelay", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0022, "UltrasonicUnoccupiedToOccupiedThreshold", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(1)), bounds(zcl.U8(1), zcl.U8(0xFE))),
		clusterRevision(2),
	},
}

var SoilMoisture = measurement(0x0408, "Soil Moisture", zcl.TypeUint16,
	zcl.U16(0), zcl.U16(0x2710), zcl.U16(0x0800),
)

// pH in 0.01 pH units.
var PHMeasurement = measurement(0x0409, "pH Measurement", zcl.TypeUint16,
	zcl.U16(0), zcl.U16(0x0578), zcl.U16(0x00C8),
)

var ECMeasurement = measurement(0x040A, "Electrical Conductivity Measurement", zcl.TypeUint16,
	zcl.U16(0), zcl.U16(0xFFFE), zcl.U16(0x0064),
)

// Wind speed in 0.01 m/s.
var WindSpeedMeasurement = measurement(0x040B, "Wind Speed Measurement", zcl.TypeUint16,
	zcl.U16(0), zcl.U16(0xFFFE), zcl.U16(0x0308),
)

var CarbonMonoxide = measurement(0x040C, "Carbon Monoxide (CO) Measurement", zcl.TypeFloat32,
	zcl.Float(zcl.TypeFloat32, 0), zcl.Float(zcl.TypeFloat32, 1), zcl.Float(zcl.TypeFloat32, 1),
)

// Carbon dioxide as a fraction, 1 = 1 000 000 ppm.
var CarbonDioxide = measurement(0x040D, "Carbon Dioxide (CO2) Measurement", zcl.TypeFloat32,
	zcl.Float(zcl.TypeFloat32, 0), zcl.Float(zcl.TypeFloat32, 1), zcl.Float(zcl.TypeFloat32, 1),
)

// PM2.5 in ug/m3.
var PM25Measurement = measurement(0x042A, "PM2.5 Measurement", zcl.TypeFloat32,
	zcl.Float(zcl.TypeFloat32, 0), zcl.Float(zcl.TypeFloat32, 999), zcl.Float(zcl.TypeFloat32, 999),
)

var FormaldehydeMeasurement = measurement(0x042B, "Formaldehyde Measurement", zcl.TypeFloat32,
	zcl.Float(zcl.TypeFloat32, 0), zcl.Float(zcl.TypeFloat32, 1), zcl.Float(zcl.TypeFloat32, 1),
)
