package clusters

import "zcl-node/internal/zcl"

// TimeStatus bits.
const (
	TimeStatusMaster        = 0x01
	TimeStatusSynchronized  = 0x02
	TimeStatusMasterZoneDst = 0x04
	TimeStatusSuperseding   = 0x08
)

const secondsPerDay = 86400

var Time = zcl.ClusterDef{
	ID:   0x000A,
	Name: "Time",
	Attributes: []zcl.AttributeDef{
		// seconds since 2000-01-01 00:00 UTC
		attr(0x0000, "Time", zcl.TypeUTC, zcl.AccessRW, invalidOK()),
		attr(0x0001, "TimeStatus", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x0F))),
		attr(0x0002, "TimeZone", zcl.TypeInt32, zcl.AccessRW, bounds(zcl.S32(-secondsPerDay), zcl.S32(secondsPerDay))),
		attr(0x0003, "DstStart", zcl.TypeUint32, zcl.AccessRW, invalidOK()),
		attr(0x0004, "DstEnd", zcl.TypeUint32, zcl.AccessRW, invalidOK()),
		attr(0x0005, "DstShift", zcl.TypeInt32, zcl.AccessRW, bounds(zcl.S32(-secondsPerDay), zcl.S32(secondsPerDay))),
		attr(0x0006, "StandardTime", zcl.TypeUint32, zcl.AccessRead, invalidOK()),
		attr(0x0007, "LocalTime", zcl.TypeUint32, zcl.AccessRead, invalidOK()),
		attr(0x0008, "LastSetTime", zcl.TypeUTC, zcl.AccessRead, invalidOK()),
		attr(0x0009, "ValidUntilTime", zcl.TypeUTC, zcl.AccessRW, invalidOK()),
		clusterRevision(2),
	},
}

var Commissioning = zcl.ClusterDef{
	ID:   0x0015,
	Name: "Commissioning",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "ShortAddress", zcl.TypeUint16, zcl.AccessRW, bounds(zcl.U16(0), zcl.U16(0xFFF7))),
		attr(0x0001, "ExtendedPANId", zcl.TypeEUI64, zcl.AccessRW, invalidOK()),
		attr(0x0002, "PANId", zcl.TypeUint16, zcl.AccessRW, bounds(zcl.U16(0), zcl.U16(0xFFFE))),
		attr(0x0003, "ChannelMask", zcl.TypeBitmap32, zcl.AccessRW, def(zcl.M32(0x07FFF800))),
		attr(0x0004, "ProtocolVersion", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(0x02)), bounds(zcl.U8(0x02), zcl.U8(0x02))),
		attr(0x0005, "StackProfile", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(0x02)), bounds(zcl.U8(0x01), zcl.U8(0x02))),
		attr(0x0006, "StartupControl", zcl.TypeEnum8, zcl.AccessRW, def(zcl.E8(0x03)), bounds(zcl.E8(0), zcl.E8(3))),
		attr(0x0010, "TrustCenterAddress", zcl.TypeEUI64, zcl.AccessRW),
		attr(0x0011, "TrustCenterMasterKey", zcl.TypeKey128, zcl.AccessWrite),
		attr(0x0012, "NetworkKey", zcl.TypeKey128, zcl.AccessWrite),
		attr(0x0013, "UseInsecureJoin", zcl.TypeBool, zcl.AccessRW, def(zcl.Bool(true))),
		attr(0x0014, "PreconfiguredLinkKey", zcl.TypeKey128, zcl.AccessWrite),
		attr(0x0015, "NetworkKeySeqNum", zcl.TypeUint8, zcl.AccessRW),
		attr(0x0016, "NetworkKeyType", zcl.TypeEnum8, zcl.AccessRW),
		attr(0x0017, "NetworkManagerAddress", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0020, "ScanAttempts", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(0x05)), bounds(zcl.U8(0x01), zcl.U8(0xFF))),
		attr(0x0021, "TimeBetweenScans", zcl.TypeUint16, zcl.AccessRW, def(zcl.U16(0x0064)), bounds(zcl.U16(0x0001), zcl.U16(0xFFFF))),
		attr(0x0022, "RejoinInterval", zcl.TypeUint16, zcl.AccessRW, def(zcl.U16(0x003C)), bounds(zcl.U16(0x0001), zcl.U16(0xFFFF))),
		attr(0x0023, "MaxRejoinInterval", zcl.TypeUint16, zcl.AccessRW, def(zcl.U16(0x0E10)), bounds(zcl.U16(0x0001), zcl.U16(0xFFFF))),
		attr(0x0030, "IndirectPollRate", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0031, "ParentRetryThreshold", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0040, "ConcentratorFlag", zcl.TypeBool, zcl.AccessRW, def(zcl.Bool(false))),
		attr(0x0041, "ConcentratorRadius", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(0x0F))),
		attr(0x0042, "ConcentratorDiscoveryTime", zcl.TypeUint8, zcl.AccessRW),
		clusterRevision(1),
	},
	Commands: []zcl.CommandDef{
		request(0x00, "RestartDevice", 0x00,
			field("Options", zcl.TypeBitmap8),
			field("Delay", zcl.TypeUint8),
			field("Jitter", zcl.TypeUint8),
		),
		request(0x01, "SaveStartupParameters", 0x01, field("Options", zcl.TypeBitmap8), field("Index", zcl.TypeUint8)),
		request(0x02, "RestoreStartupParameters", 0x02, field("Options", zcl.TypeBitmap8), field("Index", zcl.TypeUint8)),
		request(0x03, "ResetStartupParameters", 0x03, field("Options", zcl.TypeBitmap8), field("Index", zcl.TypeUint8)),
		notify(0x00, "RestartDeviceResponse", noResponse, field("Status", zcl.TypeEnum8)),
		notify(0x01, "SaveStartupParametersResponse", noResponse, field("Status", zcl.TypeEnum8)),
		notify(0x02, "RestoreStartupParametersResponse", noResponse, field("Status", zcl.TypeEnum8)),
		notify(0x03, "ResetStartupParametersResponse", noResponse, field("Status", zcl.TypeEnum8)),
	},
}
