package clusters

import "zcl-node/internal/zcl"

// IAS Zone attribute ids.
const (
	IASZoneState                      uint16 = 0x0000
	IASZoneType                       uint16 = 0x0001
	IASZoneStatus                     uint16 = 0x0002
	IASZoneCIEAddress                 uint16 = 0x0010
	IASZoneID                         uint16 = 0x0011
	IASZoneSensitivityLevelsSupported uint16 = 0x0012
	IASZoneCurrentSensitivityLevel    uint16 = 0x0013
)

// IAS Zone command ids. Requests and notifications share the numbering.
const (
	IASZoneCmdEnrollResponse           uint8 = 0x00
	IASZoneCmdInitiateNormalMode       uint8 = 0x01
	IASZoneCmdInitiateTestMode         uint8 = 0x02
	IASZoneCmdStatusChangeNotification uint8 = 0x00
	IASZoneCmdEnrollRequest            uint8 = 0x01
)

// ZoneState values.
const (
	ZoneStateNotEnrolled = 0x00
	ZoneStateEnrolled    = 0x01
)

// ZoneStatus bits.
const (
	ZoneStatusAlarm1        = 0x0001
	ZoneStatusAlarm2        = 0x0002
	ZoneStatusTamper        = 0x0004
	ZoneStatusBattery       = 0x0008
	ZoneStatusSupervision   = 0x0010
	ZoneStatusRestore       = 0x0020
	ZoneStatusTrouble       = 0x0040
	ZoneStatusACMains       = 0x0080
	ZoneStatusTest          = 0x0100
	ZoneStatusBatteryDefect = 0x0200
)

// Enroll response codes.
const (
	EnrollSuccess        = 0x00
	EnrollNotSupported   = 0x01
	EnrollNoEnrollPermit = 0x02
	EnrollTooManyZones   = 0x03
)

// Zone types seen most often.
const (
	ZoneTypeStandardCIE       uint16 = 0x0000
	ZoneTypeMotion            uint16 = 0x000D
	ZoneTypeContactSwitch     uint16 = 0x0015
	ZoneTypeFireSensor        uint16 = 0x0028
	ZoneTypeWaterSensor       uint16 = 0x002A
	ZoneTypeGasSensor         uint16 = 0x002B
	ZoneTypePersonalEmergency uint16 = 0x002C
	ZoneTypeVibration         uint16 = 0x002D
	ZoneTypeRemoteControl     uint16 = 0x010F
	ZoneTypeKeyFob            uint16 = 0x0115
	ZoneTypeKeypad            uint16 = 0x021D
	ZoneTypeStandardWarning   uint16 = 0x0225
	ZoneTypeInvalid           uint16 = 0xFFFF
)

// UnenrolledZoneID is the ZoneID of a zone that has no CIE.
const UnenrolledZoneID = 0xFF

var IASZone = zcl.ClusterDef{
	ID:   0x0500,
	Name: "IAS Zone",
	Attributes: []zcl.AttributeDef{
		attr(IASZoneState, "ZoneState", zcl.TypeEnum8, zcl.AccessRead, def(zcl.E8(ZoneStateNotEnrolled)), bounds(zcl.E8(0), zcl.E8(1))),
		attr(IASZoneType, "ZoneType", zcl.TypeEnum16, zcl.AccessRead, invalidOK()),
		attr(IASZoneStatus, "ZoneStatus", zcl.TypeBitmap16, zcl.AccessRP, report(0, 0xFFFF, zcl.M16(0))),
		// all-ones until a CIE writes itself here
		attr(IASZoneCIEAddress, "IASCIEAddress", zcl.TypeEUI64, zcl.AccessRWP, invalidOK()),
		attr(IASZoneID, "ZoneID", zcl.TypeUint8, zcl.AccessRead|zcl.AccessPersist, def(zcl.U8(UnenrolledZoneID))),
		attr(IASZoneSensitivityLevelsSupported, "NumberOfZoneSensitivityLevelsSupported", zcl.TypeUint8, zcl.AccessRead,
			def(zcl.U8(2)), bounds(zcl.U8(2), zcl.U8(0xFF))),
		attr(IASZoneCurrentSensitivityLevel, "CurrentZoneSensitivityLevel", zcl.TypeUint8, zcl.AccessRWP),
		clusterRevision(2),
	},
	Commands: []zcl.CommandDef{
		request(IASZoneCmdEnrollResponse, "ZoneEnrollResponse", noResponse,
			field("EnrollResponseCode", zcl.TypeEnum8),
			field("ZoneID", zcl.TypeUint8),
		),
		request(IASZoneCmdInitiateNormalMode, "InitiateNormalOperationMode", noResponse),
		request(IASZoneCmdInitiateTestMode, "InitiateTestMode", noResponse,
			field("TestModeDuration", zcl.TypeUint8),
			field("CurrentZoneSensitivityLevel", zcl.TypeUint8),
		),

		notify(IASZoneCmdStatusChangeNotification, "ZoneStatusChangeNotification", noResponse,
			field("ZoneStatus", zcl.TypeBitmap16),
			field("ExtendedStatus", zcl.TypeBitmap8),
			// both absent from pre-ZCL6 zones
			optional("ZoneID", zcl.TypeUint8),
			optional("Delay", zcl.TypeUint16),
		),
		notify(IASZoneCmdEnrollRequest, "ZoneEnrollRequest", int(IASZoneCmdEnrollResponse),
			field("ZoneType", zcl.TypeEnum16),
			field("ManufacturerCode", zcl.TypeUint16),
		),
	},
}

// IAS ACE command ids.
const (
	ACECmdArm                 uint8 = 0x00
	ACECmdBypass              uint8 = 0x01
	ACECmdEmergency           uint8 = 0x02
	ACECmdFire                uint8 = 0x03
	ACECmdPanic               uint8 = 0x04
	ACECmdGetZoneIDMap        uint8 = 0x05
	ACECmdGetZoneInformation  uint8 = 0x06
	ACECmdGetPanelStatus      uint8 = 0x07
	ACECmdGetBypassedZoneList uint8 = 0x08
	ACECmdGetZoneStatus       uint8 = 0x09

	ACECmdArmResponse                uint8 = 0x00
	ACECmdGetZoneIDMapResponse       uint8 = 0x01
	ACECmdGetZoneInformationResponse uint8 = 0x02
	ACECmdZoneStatusChanged          uint8 = 0x03
	ACECmdPanelStatusChanged         uint8 = 0x04
	ACECmdGetPanelStatusResponse     uint8 = 0x05
	ACECmdSetBypassedZoneList        uint8 = 0x06
	ACECmdBypassResponse             uint8 = 0x07
	ACECmdGetZoneStatusResponse      uint8 = 0x08
)

// Arm modes.
const (
	ArmModeDisarm = 0x00
	ArmModeDay    = 0x01
	ArmModeNight  = 0x02
	ArmModeAll    = 0x03
)

// Arm notifications.
const (
	ArmNotifyAllDisarmed     = 0x00
	ArmNotifyDayArmed        = 0x01
	ArmNotifyNightArmed      = 0x02
	ArmNotifyAllArmed        = 0x03
	ArmNotifyInvalidCode     = 0x04
	ArmNotifyNotReady        = 0x05
	ArmNotifyAlreadyDisarmed = 0x06
)

// Panel status values.
const (
	PanelDisarmed    = 0x00
	PanelArmedStay   = 0x01
	PanelArmedNight  = 0x02
	PanelArmedAway   = 0x03
	PanelExitDelay   = 0x04
	PanelEntryDelay  = 0x05
	PanelNotReady    = 0x06
	PanelInAlarm     = 0x07
	PanelArmingStay  = 0x08
	PanelArmingNight = 0x09
	PanelArmingAway  = 0x0A
)

// ZoneIDMapSections is the number of 16-bit words in a Get Zone ID Map
// response, one bit per zone id 0..255.
const ZoneIDMapSections = 16

func panelStatus() []zcl.Param {
	return []zcl.Param{
		field("PanelStatus", zcl.TypeEnum8),
		field("SecondsRemaining", zcl.TypeUint8),
		field("AudibleNotification", zcl.TypeEnum8),
		field("AlarmStatus", zcl.TypeEnum8),
	}
}

var IASACE = zcl.ClusterDef{
	ID:   0x0501,
	Name: "IAS ACE",
	Attributes: []zcl.AttributeDef{
		clusterRevision(2),
	},
	Commands: []zcl.CommandDef{
		request(ACECmdArm, "Arm", int(ACECmdArmResponse),
			field("ArmMode", zcl.TypeEnum8),
			field("ArmDisarmCode", zcl.TypeCharStr),
			field("ZoneID", zcl.TypeUint8),
		),
		request(ACECmdBypass, "Bypass", int(ACECmdBypassResponse),
			lengthOf("NumberOfZones", zcl.TypeUint8, "ZoneIDs"),
			list("ZoneIDs", zcl.TypeUint8, "NumberOfZones"),
			field("ArmDisarmCode", zcl.TypeCharStr),
		),
		request(ACECmdEmergency, "Emergency", noResponse),
		request(ACECmdFire, "Fire", noResponse),
		request(ACECmdPanic, "Panic", noResponse),
		request(ACECmdGetZoneIDMap, "GetZoneIDMap", int(ACECmdGetZoneIDMapResponse)),
		request(ACECmdGetZoneInformation, "GetZoneInformation", int(ACECmdGetZoneInformationResponse),
			field("ZoneID", zcl.TypeUint8),
		),
		request(ACECmdGetPanelStatus, "GetPanelStatus", int(ACECmdGetPanelStatusResponse)),
		request(ACECmdGetBypassedZoneList, "GetBypassedZoneList", int(ACECmdSetBypassedZoneList)),
		request(ACECmdGetZoneStatus, "GetZoneStatus", int(ACECmdGetZoneStatusResponse),
			field("StartingZoneID", zcl.TypeUint8),
			field("MaxNumberOfZoneIDs", zcl.TypeUint8),
			field("ZoneStatusMaskFlag", zcl.TypeBool),
			field("ZoneStatusMask", zcl.TypeBitmap16),
		),

		notify(ACECmdArmResponse, "ArmResponse", noResponse, field("ArmNotification", zcl.TypeEnum8)),
		notify(ACECmdGetZoneIDMapResponse, "GetZoneIDMapResponse", noResponse,
			zcl.Param{Name: "ZoneIDMap", Type: zcl.TypeBitmap16, List: true, Len: ZoneIDMapSections},
		),
		notify(ACECmdGetZoneInformationResponse, "GetZoneInformationResponse", noResponse,
			field("ZoneID", zcl.TypeUint8),
			field("ZoneType", zcl.TypeEnum16),
			field("IEEEAddress", zcl.TypeEUI64),
			field("ZoneLabel", zcl.TypeCharStr),
		),
		notify(ACECmdZoneStatusChanged, "ZoneStatusChanged", noResponse,
			field("ZoneID", zcl.TypeUint8),
			field("ZoneStatus", zcl.TypeBitmap16),
			field("AudibleNotification", zcl.TypeEnum8),
			field("ZoneLabel", zcl.TypeCharStr),
		),
		notify(ACECmdPanelStatusChanged, "PanelStatusChanged", noResponse, panelStatus()...),
		notify(ACECmdGetPanelStatusResponse, "GetPanelStatusResponse", noResponse, panelStatus()...),
		notify(ACECmdSetBypassedZoneList, "SetBypassedZoneList", noResponse,
			lengthOf("NumberOfZones", zcl.TypeUint8, "ZoneIDs"),
			list("ZoneIDs", zcl.TypeUint8, "NumberOfZones"),
		),
		notify(ACECmdBypassResponse, "BypassResponse", noResponse,
			lengthOf("NumberOfZones", zcl.TypeUint8, "BypassResult"),
			list("BypassResult", zcl.TypeEnum8, "NumberOfZones"),
		),
		notify(ACECmdGetZoneStatusResponse, "GetZoneStatusResponse", noResponse,
			field("ZoneStatusComplete", zcl.TypeBool),
			lengthOf("NumberOfZones", zcl.TypeUint8, "Zones"),
			records("Zones", "NumberOfZones",
				field("ZoneID", zcl.TypeUint8),
				field("ZoneStatus", zcl.TypeBitmap16),
			),
		),
	},
}

// StartWarning WarningInfo layout: mode in bits 4-7, strobe in bits 2-3,
// siren level in bits 0-1.
const (
	WarningModeStop      = 0
	WarningModeBurglar   = 1
	WarningModeFire      = 2
	WarningModeEmergency = 3
)

// WarningInfo packs the StartWarning header byte.
func WarningInfo(mode, strobe, sirenLevel uint8) uint8 {
	return mode<<4 | (strobe&0x03)<<2 | sirenLevel&0x03
}

var IASWD = zcl.ClusterDef{
	ID:   0x0502,
	Name: "IAS WD",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "MaxDuration", zcl.TypeUint16, zcl.AccessRW|zcl.AccessPersist, def(zcl.U16(240)), bounds(zcl.U16(0), zcl.U16(0xFFFE))),
		clusterRevision(2),
	},
	Commands: []zcl.CommandDef{
		request(0x00, "StartWarning", noResponse,
			field("WarningInfo", zcl.TypeBitmap8),
			field("WarningDuration", zcl.TypeUint16),
			optional("StrobeDutyCycle", zcl.TypeUint8),
			optional("StrobeLevel", zcl.TypeEnum8),
		),
		// mode bits 4-7, strobe bit 3, level bits 0-1
		request(0x01, "Squawk", noResponse, field("SquawkInfo", zcl.TypeBitmap8)),
	},
}
