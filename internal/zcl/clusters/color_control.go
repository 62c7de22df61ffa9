package clusters

import "zcl-node/internal/zcl"

// ColorMode values.
const (
	ColorModeHueSaturation = 0x00
	ColorModeXY            = 0x01
	ColorModeTemperature   = 0x02
)

var ColorControl = zcl.ClusterDef{
	ID:   0x0300,
	Name: "Color Control",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "CurrentHue", zcl.TypeUint8, zcl.AccessRP|zcl.AccessScene, bounds(zcl.U8(0), zcl.U8(0xFE)), report(1, 300, zcl.U8(1))),
		attr(0x0001, "CurrentSaturation", zcl.TypeUint8, zcl.AccessRP|zcl.AccessScene, bounds(zcl.U8(0), zcl.U8(0xFE)), report(1, 300, zcl.U8(1))),
		attr(0x0002, "RemainingTime", zcl.TypeUint16, zcl.AccessRead, bounds(zcl.U16(0), zcl.U16(0xFFFE))),
		attr(0x0003, "CurrentX", zcl.TypeUint16, zcl.AccessRP|zcl.AccessScene, def(zcl.U16(0x616B)), bounds(zcl.U16(0), zcl.U16(0xFEFF)), report(1, 300, zcl.U16(1))),
		attr(0x0004, "CurrentY", zcl.TypeUint16, zcl.AccessRP|zcl.AccessScene, def(zcl.U16(0x607D)), bounds(zcl.U16(0), zcl.U16(0xFEFF)), report(1, 300, zcl.U16(1))),
		attr(0x0005, "DriftCompensation", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(4))),
		attr(0x0006, "CompensationText", zcl.TypeCharStr, zcl.AccessRead),
		attr(0x0007, "ColorTemperatureMireds", zcl.TypeUint16, zcl.AccessRP|zcl.AccessScene, def(zcl.U16(0x00FA)), bounds(zcl.U16(0), zcl.U16(0xFEFF)), report(1, 300, zcl.U16(1))),
		attr(0x0008, "ColorMode", zcl.TypeEnum8, zcl.AccessRead, def(zcl.E8(ColorModeXY)), bounds(zcl.E8(0), zcl.E8(2))),
		attr(0x000F, "Options", zcl.TypeBitmap8, zcl.AccessRW),
		attr(0x0010, "NumberOfPrimaries", zcl.TypeUint8, zcl.AccessRead, invalidOK(), bounds(zcl.U8(0), zcl.U8(6))),
		attr(0x4000, "EnhancedCurrentHue", zcl.TypeUint16, zcl.AccessRead|zcl.AccessScene),
		attr(0x4001, "EnhancedColorMode", zcl.TypeEnum8, zcl.AccessRead, def(zcl.E8(ColorModeXY)), bounds(zcl.E8(0), zcl.E8(3))),
		attr(0x4002, "ColorLoopActive", zcl.TypeUint8, zcl.AccessRead|zcl.AccessScene),
		attr(0x4003, "ColorLoopDirection", zcl.TypeUint8, zcl.AccessRead|zcl.AccessScene),
		attr(0x4004, "ColorLoopTime", zcl.TypeUint16, zcl.AccessRead|zcl.AccessScene, def(zcl.U16(0x0019))),
		attr(0x4005, "ColorLoopStartEnhancedHue", zcl.TypeUint16, zcl.AccessRead, def(zcl.U16(0x2300))),
		attr(0x4006, "ColorLoopStoredEnhancedHue", zcl.TypeUint16, zcl.AccessRead),
		attr(0x400A, "ColorCapabilities", zcl.TypeBitmap16, zcl.AccessRead, bounds(zcl.M16(0), zcl.M16(0x001F))),
		attr(0x400B, "ColorTempPhysicalMinMireds", zcl.TypeUint16, zcl.AccessRead, bounds(zcl.U16(0), zcl.U16(0xFEFF))),
		attr(0x400C, "ColorTempPhysicalMaxMireds", zcl.TypeUint16, zcl.AccessRead, def(zcl.U16(0xFEFF)), bounds(zcl.U16(0), zcl.U16(0xFEFF))),
		attr(0x400D, "CoupleColorTempToLevelMinMireds", zcl.TypeUint16, zcl.AccessRead),
		attr(0x4010, "StartUpColorTemperatureMireds", zcl.TypeUint16, zcl.AccessRW|zcl.AccessPersist, invalidOK(), bounds(zcl.U16(0), zcl.U16(0xFEFF))),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(0x00, "MoveToHue", noResponse, withOptions(
			field("Hue", zcl.TypeUint8),
			field("Direction", zcl.TypeEnum8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x01, "MoveHue", noResponse, withOptions(
			field("MoveMode", zcl.TypeEnum8),
			field("Rate", zcl.TypeUint8),
		)...),
		request(0x02, "StepHue", noResponse, withOptions(
			field("StepMode", zcl.TypeEnum8),
			field("StepSize", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint8),
		)...),
		request(0x03, "MoveToSaturation", noResponse, withOptions(
			field("Saturation", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x04, "MoveSaturation", noResponse, withOptions(
			field("MoveMode", zcl.TypeEnum8),
			field("Rate", zcl.TypeUint8),
		)...),
		request(0x05, "StepSaturation", noResponse, withOptions(
			field("StepMode", zcl.TypeEnum8),
			field("StepSize", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint8),
		)...),
		request(0x06, "MoveToHueAndSaturation", noResponse, withOptions(
			field("Hue", zcl.TypeUint8),
			field("Saturation", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x07, "MoveToColor", noResponse, withOptions(
			field("ColorX", zcl.TypeUint16),
			field("ColorY", zcl.TypeUint16),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x08, "MoveColor", noResponse, withOptions(
			field("RateX", zcl.TypeInt16),
			field("RateY", zcl.TypeInt16),
		)...),
		request(0x09, "StepColor", noResponse, withOptions(
			field("StepX", zcl.TypeInt16),
			field("StepY", zcl.TypeInt16),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x0A, "MoveToColorTemperature", noResponse, withOptions(
			field("ColorTemperatureMireds", zcl.TypeUint16),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x40, "EnhancedMoveToHue", noResponse, withOptions(
			field("EnhancedHue", zcl.TypeUint16),
			field("Direction", zcl.TypeEnum8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x41, "EnhancedMoveHue", noResponse, withOptions(
			field("MoveMode", zcl.TypeEnum8),
			field("Rate", zcl.TypeUint16),
		)...),
		request(0x42, "EnhancedStepHue", noResponse, withOptions(
			field("StepMode", zcl.TypeEnum8),
			field("StepSize", zcl.TypeUint16),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x43, "EnhancedMoveToHueAndSaturation", noResponse, withOptions(
			field("EnhancedHue", zcl.TypeUint16),
			field("Saturation", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(0x44, "ColorLoopSet", noResponse, withOptions(
			field("UpdateFlags", zcl.TypeBitmap8),
			field("Action", zcl.TypeEnum8),
			field("Direction", zcl.TypeEnum8),
			field("Time", zcl.TypeUint16),
			field("StartHue", zcl.TypeUint16),
		)...),
		request(0x47, "StopMoveStep", noResponse, zclOptions()...),
		request(0x4B, "MoveColorTemperature", noResponse, withOptions(
			field("MoveMode", zcl.TypeEnum8),
			field("Rate", zcl.TypeUint16),
			field("ColorTemperatureMinimumMireds", zcl.TypeUint16),
			field("ColorTemperatureMaximumMireds", zcl.TypeUint16),
		)...),
		request(0x4C, "StepColorTemperature", noResponse, withOptions(
			field("StepMode", zcl.TypeEnum8),
			field("StepSize", zcl.TypeUint16),
			field("TransitionTime", zcl.TypeUint16),
			field("ColorTemperatureMinimumMireds", zcl.TypeUint16),
			field("ColorTemperatureMaximumMireds", zcl.TypeUint16),
		)...),
	},
}

var BallastConfiguration = zcl.ClusterDef{
	ID:   0x0301,
	Name: "Ballast Configuration",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "PhysicalMinLevel", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(1)), bounds(zcl.U8(1), zcl.U8(0xFE))),
		attr(0x0001, "PhysicalMaxLevel", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(0xFE)), bounds(zcl.U8(1), zcl.U8(0xFE))),
		attr(0x0002, "BallastStatus", zcl.TypeBitmap8, zcl.AccessRead),
		attr(0x0010, "MinLevel", zcl.TypeUint8, zcl.AccessRW|zcl.AccessPersist, def(zcl.U8(1)), bounds(zcl.U8(1), zcl.U8(0xFE))),
		attr(0x0011, "MaxLevel", zcl.TypeUint8, zcl.AccessRW|zcl.AccessPersist, def(zcl.U8(0xFE)), bounds(zcl.U8(1), zcl.U8(0xFE))),
		attr(0x0014, "IntrinsicBallastFactor", zcl.TypeUint8, zcl.AccessRW, invalidOK()),
		attr(0x0015, "BallastFactorAdjustment", zcl.TypeUint8, zcl.AccessRW, invalidOK(), bounds(zcl.U8(100), zcl.U8(0xFE))),
		attr(0x0020, "LampQuantity", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0030, "LampType", zcl.TypeCharStr, zcl.AccessRW),
		attr(0x0031, "LampManufacturer", zcl.TypeCharStr, zcl.AccessRW),
		attr(0x0032, "LampRatedHours", zcl.TypeUint24, zcl.AccessRW, invalidOK()),
		attr(0x0033, "LampBurnHours", zcl.TypeUint24, zcl.AccessRW),
		attr(0x0034, "LampAlarmMode", zcl.TypeBitmap8, zcl.AccessRW),
		attr(0x0035, "LampBurnHoursTripPoint", zcl.TypeUint24, zcl.AccessRW, invalidOK()),
		clusterRevision(1),
	},
}
