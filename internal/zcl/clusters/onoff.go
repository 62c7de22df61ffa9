package clusters

import "zcl-node/internal/zcl"

// On/Off attribute and command ids used by handlers.
const (
	OnOffAttr              uint16 = 0x0000
	OnOffGlobalSceneCtrl   uint16 = 0x4000
	OnOffOnTime            uint16 = 0x4001
	OnOffOffWaitTime       uint16 = 0x4002
	OnOffStartUpOnOff      uint16 = 0x4003
	OnOffCmdOff            uint8  = 0x00
	OnOffCmdOn             uint8  = 0x01
	OnOffCmdToggle         uint8  = 0x02
	OnOffCmdOffWithEffect  uint8  = 0x40
	OnOffCmdOnWithRecall   uint8  = 0x41
	OnOffCmdOnWithTimedOff uint8  = 0x42
)

var OnOff = zcl.ClusterDef{
	ID:   0x0006,
	Name: "On/Off",
	Attributes: []zcl.AttributeDef{
		attr(OnOffAttr, "OnOff", zcl.TypeBool, zcl.AccessRP|zcl.AccessScene|zcl.AccessPersist, def(zcl.Bool(false)), report(0, 300, zcl.Null())),
		attr(OnOffGlobalSceneCtrl, "GlobalSceneControl", zcl.TypeBool, zcl.AccessRead, def(zcl.Bool(true))),
		// tenths of a second
		attr(OnOffOnTime, "OnTime", zcl.TypeUint16, zcl.AccessRW),
		attr(OnOffOffWaitTime, "OffWaitTime", zcl.TypeUint16, zcl.AccessRW),
		// 0xFF restores the previous value
		attr(OnOffStartUpOnOff, "StartUpOnOff", zcl.TypeEnum8, zcl.AccessRW|zcl.AccessPersist, invalidOK(), bounds(zcl.E8(0), zcl.E8(2))),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(OnOffCmdOff, "Off", noResponse),
		request(OnOffCmdOn, "On", noResponse),
		request(OnOffCmdToggle, "Toggle", noResponse),
		request(OnOffCmdOffWithEffect, "OffWithEffect", noResponse,
			field("EffectIdentifier", zcl.TypeEnum8),
			field("EffectVariant", zcl.TypeUint8),
		),
		request(OnOffCmdOnWithRecall, "OnWithRecallGlobalScene", noResponse),
		request(OnOffCmdOnWithTimedOff, "OnWithTimedOff", noResponse,
			field("OnOffControl", zcl.TypeBitmap8),
			field("OnTime", zcl.TypeUint16),
			field("OffWaitTime", zcl.TypeUint16),
		),
	},
}

var OnOffSwitchConfiguration = zcl.ClusterDef{
	ID:   0x0007,
	Name: "On/Off Switch Configuration",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "SwitchType", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(2))),
		attr(0x0010, "SwitchActions", zcl.TypeEnum8, zcl.AccessRW, bounds(zcl.E8(0), zcl.E8(2))),
		clusterRevision(1),
	},
}

// Level Control attribute and command ids used by handlers.
const (
	LevelCurrentLevel        uint16 = 0x0000
	LevelRemainingTime       uint16 = 0x0001
	LevelMinLevel            uint16 = 0x0002
	LevelMaxLevel            uint16 = 0x0003
	LevelCurrentFrequency    uint16 = 0x0004
	LevelOptions             uint16 = 0x000F
	LevelOnOffTransitionTime uint16 = 0x0010
	LevelOnLevel             uint16 = 0x0011
	LevelDefaultMoveRate     uint16 = 0x0014
	LevelStartUpCurrentLevel uint16 = 0x4000

	LevelCmdMoveToLevel          uint8 = 0x00
	LevelCmdMove                 uint8 = 0x01
	LevelCmdStep                 uint8 = 0x02
	LevelCmdStop                 uint8 = 0x03
	LevelCmdMoveToLevelWithOnOff uint8 = 0x04
	LevelCmdMoveWithOnOff        uint8 = 0x05
	LevelCmdStepWithOnOff        uint8 = 0x06
	LevelCmdStopWithOnOff        uint8 = 0x07
)

var LevelControl = zcl.ClusterDef{
	ID:   0x0008,
	Name: "Level Control",
	Attributes: []zcl.AttributeDef{
		attr(LevelCurrentLevel, "CurrentLevel", zcl.TypeUint8, zcl.AccessRP|zcl.AccessScene|zcl.AccessPersist, invalidOK(), def(zcl.U8(0xFF)), report(1, 300, zcl.U8(1))),
		attr(LevelRemainingTime, "RemainingTime", zcl.TypeUint16, zcl.AccessRead),
		attr(LevelMinLevel, "MinLevel", zcl.TypeUint8, zcl.AccessRead),
		attr(LevelMaxLevel, "MaxLevel", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(0xFF))),
		attr(LevelCurrentFrequency, "CurrentFrequency", zcl.TypeUint16, zcl.AccessRP),
		attr(0x0005, "MinFrequency", zcl.TypeUint16, zcl.AccessRead),
		attr(0x0006, "MaxFrequency", zcl.TypeUint16, zcl.AccessRead),
		attr(LevelOptions, "Options", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x03))),
		attr(LevelOnOffTransitionTime, "OnOffTransitionTime", zcl.TypeUint16, zcl.AccessRW),
		attr(LevelOnLevel, "OnLevel", zcl.TypeUint8, zcl.AccessRW, invalidOK(), def(zcl.U8(0xFF))),
		attr(0x0012, "OnTransitionTime", zcl.TypeUint16, zcl.AccessRW, invalidOK()),
		attr(0x0013, "OffTransitionTime", zcl.TypeUint16, zcl.AccessRW, invalidOK()),
		attr(LevelDefaultMoveRate, "DefaultMoveRate", zcl.TypeUint8, zcl.AccessRW, invalidOK()),
		attr(LevelStartUpCurrentLevel, "StartUpCurrentLevel", zcl.TypeUint8, zcl.AccessRW|zcl.AccessPersist, invalidOK()),
		clusterRevision(5),
	},
	Commands: []zcl.CommandDef{
		request(LevelCmdMoveToLevel, "MoveToLevel", noResponse, withOptions(
			field("Level", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(LevelCmdMove, "Move", noResponse, withOptions(
			field("MoveMode", zcl.TypeEnum8),
			field("Rate", zcl.TypeUint8),
		)...),
		request(LevelCmdStep, "Step", noResponse, withOptions(
			field("StepMode", zcl.TypeEnum8),
			field("StepSize", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(LevelCmdStop, "Stop", noResponse, zclOptions()...),
		request(LevelCmdMoveToLevelWithOnOff, "MoveToLevelWithOnOff", noResponse, withOptions(
			field("Level", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(LevelCmdMoveWithOnOff, "MoveWithOnOff", noResponse, withOptions(
			field("MoveMode", zcl.TypeEnum8),
			field("Rate", zcl.TypeUint8),
		)...),
		request(LevelCmdStepWithOnOff, "StepWithOnOff", noResponse, withOptions(
			field("StepMode", zcl.TypeEnum8),
			field("StepSize", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint16),
		)...),
		request(LevelCmdStopWithOnOff, "StopWithOnOff", noResponse, zclOptions()...),
		request(0x08, "MoveToClosestFrequency", noResponse, field("Frequency", zcl.TypeUint16)),
	},
}
