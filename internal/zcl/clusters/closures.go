package clusters

import "zcl-node/internal/zcl"

var ShadeConfiguration = zcl.ClusterDef{
	ID:   0x0100,
	Name: "Shade Configuration",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "PhysicalClosedLimit", zcl.TypeUint16, zcl.AccessRead, def(zcl.U16(1)), bounds(zcl.U16(0x0001), zcl.U16(0xFFFE))),
		attr(0x0001, "MotorStepSize", zcl.TypeUint8, zcl.AccessRead, bounds(zcl.U8(0x00), zcl.U8(0xFE))),
		attr(0x0002, "Status", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x0F))),
		attr(0x0010, "ClosedLimit", zcl.TypeUint16, zcl.AccessRW, def(zcl.U16(1)), bounds(zcl.U16(0x0001), zcl.U16(0xFFFE))),
		attr(0x0011, "Mode", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(2))),
		clusterRevision(1),
	},
}

// Door Lock state and command ids used by handlers.
const (
	LockStateNotFullyLocked = 0x00
	LockStateLocked         = 0x01
	LockStateUnlocked       = 0x02

	DoorLockAttrLockState  uint16 = 0x0000
	DoorLockAttrDoorState  uint16 = 0x0003
	DoorLockCmdLock        uint8  = 0x00
	DoorLockCmdUnlock      uint8  = 0x01
	DoorLockCmdToggle      uint8  = 0x02
	DoorLockCmdUnlockTimed uint8  = 0x03

	DoorLockCmdSetPINCode       uint8 = 0x05
	DoorLockCmdGetPINCode       uint8 = 0x06
	DoorLockCmdClearPINCode     uint8 = 0x07
	DoorLockCmdClearAllPINCodes uint8 = 0x08
)

func lockStatus(id uint8, name string) zcl.CommandDef {
	return notify(id, name, noResponse, field("Status", zcl.TypeEnum8))
}

var DoorLock = zcl.ClusterDef{
	ID:   0x0101,
	Name: "Door Lock",
	Attributes: []zcl.AttributeDef{
		attr(DoorLockAttrLockState, "LockState", zcl.TypeEnum8, zcl.AccessRP, invalidOK(), bounds(zcl.E8(0), zcl.E8(2)), report(0, 3600, zcl.Null())),
		attr(0x0001, "LockType", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(0x0A))),
		attr(0x0002, "ActuatorEnabled", zcl.TypeBool, zcl.AccessRead, def(zcl.Bool(true))),
		attr(DoorLockAttrDoorState, "DoorState", zcl.TypeEnum8, zcl.AccessRP, invalidOK(), bounds(zcl.E8(0), zcl.E8(4))),
		attr(0x0004, "DoorOpenEvents", zcl.TypeUint32, zcl.AccessRW),
		attr(0x0005, "DoorClosedEvents", zcl.TypeUint32, zcl.AccessRW),
		attr(0x0006, "OpenPeriod", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0010, "NumberOfLogRecordsSupported", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0011, "NumberOfTotalUsersSupported", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0012, "NumberOfPINUsersSupported", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0013, "NumberOfRFIDUsersSupported", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0014, "NumberOfWeekDaySchedulesSupportedPerUser", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0015, "NumberOfYearDaySchedulesSupportedPerUser", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0016, "NumberOfHolidaySchedulesSupported", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0017, "MaxPINCodeLength", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(0x08))),
		attr(0x0018, "MinPINCodeLength", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(0x04))),
		attr(0x0019, "MaxRFIDCodeLength", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(0x14))),
		attr(0x001A, "MinRFIDCodeLength", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(0x08))),
		attr(0x0020, "EnableLogging", zcl.TypeBool, zcl.AccessRW|zcl.AccessReport),
		attr(0x0021, "Language", zcl.TypeCharStr, zcl.AccessRW|zcl.AccessReport),
		attr(0x0022, "LEDSettings", zcl.TypeUint8, zcl.AccessRW|zcl.AccessReport, bounds(zcl.U8(0), zcl.U8(2))),
		attr(0x0023, "AutoRelockTime", zcl.TypeUint32, zcl.AccessRW|zcl.AccessReport),
		attr(0x0024, "SoundVolume", zcl.TypeUint8, zcl.AccessRW|zcl.AccessReport, bounds(zcl.U8(0), zcl.U8(2))),
		attr(0x0025, "OperatingMode", zcl.TypeEnum8, zcl.AccessRW|zcl.AccessReport, bounds(zcl.E8(0), zcl.E8(4))),
		attr(0x0026, "SupportedOperatingModes", zcl.TypeBitmap16, zcl.AccessRead, def(zcl.M16(0x0001))),
		attr(0x0027, "DefaultConfigurationRegister", zcl.TypeBitmap16, zcl.AccessRP),
		attr(0x0028, "EnableLocalProgramming", zcl.TypeBool, zcl.AccessRW|zcl.AccessReport, def(zcl.Bool(true))),
		attr(0x0029, "EnableOneTouchLocking", zcl.TypeBool, zcl.AccessRW|zcl.AccessReport),
		attr(0x002A, "EnableInsideStatusLED", zcl.TypeBool, zcl.AccessRW|zcl.AccessReport),
		attr(0x002B, "EnablePrivacyModeButton", zcl.TypeBool, zcl.AccessRW|zcl.AccessReport),
		attr(0x0030, "WrongCodeEntryLimit", zcl.TypeUint8, zcl.AccessRW|zcl.AccessReport, def(zcl.U8(3)), bounds(zcl.U8(1), zcl.U8(0xFF))),
		attr(0x0031, "UserCodeTemporaryDisableTime", zcl.TypeUint8, zcl.AccessRW|zcl.AccessReport, def(zcl.U8(10)), bounds(zcl.U8(1), zcl.U8(0xFF))),
		attr(0x0032, "SendPINOverTheAir", zcl.TypeBool, zcl.AccessRW|zcl.AccessReport),
		attr(0x0033, "RequirePINforRFOperation", zcl.TypeBool, zcl.AccessRW|zcl.AccessReport),
		attr(0x0034, "SecurityLevel", zcl.TypeEnum8, zcl.AccessRP),
		attr(0x0040, "AlarmMask", zcl.TypeBitmap16, zcl.AccessRW|zcl.AccessReport),
		attr(0x0041, "KeypadOperationEventMask", zcl.TypeBitmap16, zcl.AccessRW|zcl.AccessReport),
		attr(0x0042, "RFOperationEventMask", zcl.TypeBitmap16, zcl.AccessRW|zcl.AccessReport),
		attr(0x0043, "ManualOperationEventMask", zcl.TypeBitmap16, zcl.AccessRW|zcl.AccessReport),
		attr(0x0044, "RFIDOperationEventMask", zcl.TypeBitmap16, zcl.AccessRW|zcl.AccessReport),
		attr(0x0045, "KeypadProgrammingEventMask", zcl.TypeBitmap16, zcl.AccessRW|zcl.AccessReport),
		attr(0x0046, "RFProgrammingEventMask", zcl.TypeBitmap16, zcl.AccessRW|zcl.AccessReport),
		attr(0x0047, "RFIDProgrammingEventMask", zcl.TypeBitmap16, zcl.AccessRW|zcl.AccessReport),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(DoorLockCmdLock, "LockDoor", 0x00, optional("PINCode", zcl.TypeOctetStr)),
		request(DoorLockCmdUnlock, "UnlockDoor", 0x01, optional("PINCode", zcl.TypeOctetStr)),
		request(DoorLockCmdToggle, "Toggle", 0x02, optional("PINCode", zcl.TypeOctetStr)),
		request(DoorLockCmdUnlockTimed, "UnlockWithTimeout", 0x03,
			field("Timeout", zcl.TypeUint16),
			optional("PINCode", zcl.TypeOctetStr),
		),
		request(0x04, "GetLogRecord", 0x04, field("LogIndex", zcl.TypeUint16)),
		request(DoorLockCmdSetPINCode, "SetPINCode", 0x05,
			field("UserID", zcl.TypeUint16),
			field("UserStatus", zcl.TypeUint8),
			field("UserType", zcl.TypeEnum8),
			field("PIN", zcl.TypeOctetStr),
		),
		request(DoorLockCmdGetPINCode, "GetPINCode", 0x06, field("UserID", zcl.TypeUint16)),
		request(DoorLockCmdClearPINCode, "ClearPINCode", 0x07, field("UserID", zcl.TypeUint16)),
		request(DoorLockCmdClearAllPINCodes, "ClearAllPINCodes", 0x08),
		request(0x09, "SetUserStatus", 0x09, field("UserID", zcl.TypeUint16), field("UserStatus", zcl.TypeUint8)),
		request(0x0A, "GetUserStatus", 0x0A, field("UserID", zcl.TypeUint16)),

		lockStatus(0x00, "LockDoorResponse"),
		lockStatus(0x01, "UnlockDoorResponse"),
		lockStatus(0x02, "ToggleResponse"),
		lockStatus(0x03, "UnlockWithTimeoutResponse"),
		notify(0x04, "GetLogRecordResponse", noResponse,
			field("LogEntryID", zcl.TypeUint16),
			field("Timestamp", zcl.TypeUint32),
			field("EventType", zcl.TypeEnum8),
			field("Source", zcl.TypeUint8),
			field("EventIDOrAlarmCode", zcl.TypeUint8),
			field("UserID", zcl.TypeUint16),
			field("PIN", zcl.TypeOctetStr),
		),
		lockStatus(0x05, "SetPINCodeResponse"),
		notify(0x06, "GetPINCodeResponse", noResponse,
			field("UserID", zcl.TypeUint16),
			field("UserStatus", zcl.TypeUint8),
			field("UserType", zcl.TypeEnum8),
			field("Code", zcl.TypeOctetStr),
		),
		lockStatus(0x07, "ClearPINCodeResponse"),
		lockStatus(0x08, "ClearAllPINCodesResponse"),
		lockStatus(0x09, "SetUserStatusResponse"),
		notify(0x0A, "GetUserStatusResponse", noResponse,
			field("UserID", zcl.TypeUint16),
			field("UserStatus", zcl.TypeUint8),
		),
		notify(0x20, "OperationEventNotification", noResponse,
			field("OperationEventSource", zcl.TypeUint8),
			field("OperationEventCode", zcl.TypeUint8),
			field("UserID", zcl.TypeUint16),
			field("PIN", zcl.TypeOctetStr),
			field("LocalTime", zcl.TypeUint32),
			optional("Data", zcl.TypeCharStr),
		),
	},
}

// Window Covering ids used by handlers.
const (
	CoveringLiftPercentage   uint16 = 0x0008
	CoveringTiltPercentage   uint16 = 0x0009
	CoveringCmdUpOpen        uint8  = 0x00
	CoveringCmdDownClose     uint8  = 0x01
	CoveringCmdStop          uint8  = 0x02
	CoveringCmdGoToLiftValue uint8  = 0x04
	CoveringCmdGoToLiftPct   uint8  = 0x05
	CoveringCmdGoToTiltValue uint8  = 0x07
	CoveringCmdGoToTiltPct   uint8  = 0x08
)

var WindowCovering = zcl.ClusterDef{
	ID:   0x0102,
	Name: "Window Covering",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "WindowCoveringType", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(9))),
		attr(0x0001, "PhysicalClosedLimitLift", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0002, "PhysicalClosedLimitTilt", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0003, "CurrentPositionLift", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0004, "CurrentPositionTilt", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0005, "NumberOfActuationsLift", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0006, "NumberOfActuationsTilt", zcl.TypeUint16, zcl.AccessRead),
		// operational | online
		attr(0x0007, "ConfigStatus", zcl.TypeBitmap8, zcl.AccessRead, def(zcl.M8(0x03))),
		attr(CoveringLiftPercentage, "CurrentPositionLiftPercentage", zcl.TypeUint8, zcl.AccessRP|zcl.AccessScene, invalidOK(), bounds(zcl.U8(0), zcl.U8(100)), report(1, 300, zcl.U8(1))),
		attr(CoveringTiltPercentage, "CurrentPositionTiltPercentage", zcl.TypeUint8, zcl.AccessRP|zcl.AccessScene, invalidOK(), bounds(zcl.U8(0), zcl.U8(100)), report(1, 300, zcl.U8(1))),
		attr(0x0010, "InstalledOpenLimitLift", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0011, "InstalledClosedLimitLift", zcl.TypeUint16, zcl.AccessRead, def(zcl.U16(0xFFFF))),
		attr(0x0012, "InstalledOpenLimitTilt", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0013, "InstalledClosedLimitTilt", zcl.TypeUint16, zcl.AccessRead, def(zcl.U16(0xFFFF))),
		attr(0x0014, "VelocityLift", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0015, "AccelerationTimeLift", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0016, "DecelerationTimeLift", zcl.TypeUint16, zcl.AccessRW),
		attr(0x0017, "Mode", zcl.TypeBitmap8, zcl.AccessRW, def(zcl.M8(0x04)), bounds(zcl.M8(0), zcl.M8(0x0F))),
		attr(0x0018, "IntermediateSetpointsLift", zcl.TypeOctetStr, zcl.AccessRW, def(zcl.Octets(zcl.TypeOctetStr, []byte("1,0x0000")))),
		attr(0x0019, "IntermediateSetpointsTilt", zcl.TypeOctetStr, zcl.AccessRW, def(zcl.Octets(zcl.TypeOctetStr, []byte("1,0x0000")))),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(CoveringCmdUpOpen, "UpOpen", noResponse),
		request(CoveringCmdDownClose, "DownClose", noResponse),
		request(CoveringCmdStop, "Stop", noResponse),
		request(CoveringCmdGoToLiftValue, "GoToLiftValue", noResponse, field("LiftValue", zcl.TypeUint16)),
		request(CoveringCmdGoToLiftPct, "GoToLiftPercentage", noResponse, field("PercentageLiftValue", zcl.TypeUint8)),
		request(CoveringCmdGoToTiltValue, "GoToTiltValue", noResponse, field("TiltValue", zcl.TypeUint16)),
		request(CoveringCmdGoToTiltPct, "GoToTiltPercentage", noResponse, field("PercentageTiltValue", zcl.TypeUint8)),
	},
}

var BarrierControl = zcl.ClusterDef{
	ID:   0x0103,
	Name: "Barrier Control",
	Attributes: []zcl.AttributeDef{
		attr(0x0001, "MovingState", zcl.TypeEnum8, zcl.AccessRP, bounds(zcl.E8(0), zcl.E8(2))),
		attr(0x0002, "SafetyStatus", zcl.TypeBitmap16, zcl.AccessRP),
		attr(0x0003, "Capabilities", zcl.TypeBitmap8, zcl.AccessRead),
		attr(0x000A, "BarrierPosition", zcl.TypeUint8, zcl.AccessRP|zcl.AccessScene, invalidOK(), bounds(zcl.U8(0), zcl.U8(100))),
		clusterRevision(1),
	},
	Commands: []zcl.CommandDef{
		request(0x00, "GoToPercent", noResponse, field("PercentOpen", zcl.TypeUint8)),
		request(0x01, "Stop", noResponse),
	},
}
