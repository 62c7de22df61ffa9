package clusters

import "zcl-node/internal/zcl"

// Groups command ids.
const (
	GroupsCmdAdd              uint8 = 0x00
	GroupsCmdView             uint8 = 0x01
	GroupsCmdGetMembership    uint8 = 0x02
	GroupsCmdRemove           uint8 = 0x03
	GroupsCmdRemoveAll        uint8 = 0x04
	GroupsCmdAddIfIdentifying uint8 = 0x05
)

var Groups = zcl.ClusterDef{
	ID:   0x0004,
	Name: "Groups",
	Attributes: []zcl.AttributeDef{
		// bit 7: group names supported
		attr(0x0000, "NameSupport", zcl.TypeBitmap8, zcl.AccessRead),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(GroupsCmdAdd, "AddGroup", 0x00,
			field("GroupID", zcl.TypeUint16),
			field("GroupName", zcl.TypeCharStr),
		),
		request(GroupsCmdView, "ViewGroup", 0x01, field("GroupID", zcl.TypeUint16)),
		request(GroupsCmdGetMembership, "GetGroupMembership", 0x02,
			lengthOf("GroupCount", zcl.TypeUint8, "GroupList"),
			list("GroupList", zcl.TypeUint16, "GroupCount"),
		),
		request(GroupsCmdRemove, "RemoveGroup", 0x03, field("GroupID", zcl.TypeUint16)),
		request(GroupsCmdRemoveAll, "RemoveAllGroups", noResponse),
		request(GroupsCmdAddIfIdentifying, "AddGroupIfIdentifying", noResponse,
			field("GroupID", zcl.TypeUint16),
			field("GroupName", zcl.TypeCharStr),
		),

		notify(0x00, "AddGroupResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("GroupID", zcl.TypeUint16),
		),
		notify(0x01, "ViewGroupResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("GroupID", zcl.TypeUint16),
			field("GroupName", zcl.TypeCharStr),
		),
		notify(0x02, "GetGroupMembershipResponse", noResponse,
			field("Capacity", zcl.TypeUint8),
			lengthOf("GroupCount", zcl.TypeUint8, "GroupList"),
			list("GroupList", zcl.TypeUint16, "GroupCount"),
		),
		notify(0x03, "RemoveGroupResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("GroupID", zcl.TypeUint16),
		),
	},
}

// extensionFieldSets is the per-cluster scene payload: cluster id, then a
// length-prefixed blob of attribute values.
func extensionFieldSets() zcl.Param {
	return records("ExtensionFieldSets", "",
		field("ClusterID", zcl.TypeClusterID),
		lengthOf("Length", zcl.TypeUint8, "Data"),
		octets("Data", "Length"),
	)
}

var Scenes = zcl.ClusterDef{
	ID:   0x0005,
	Name: "Scenes",
	Attributes: []zcl.AttributeDef{
		attr(0x0000, "SceneCount", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0001, "CurrentScene", zcl.TypeUint8, zcl.AccessRead),
		attr(0x0002, "CurrentGroup", zcl.TypeUint16, zcl.AccessRead, bounds(zcl.U16(0), zcl.U16(0xFFF7))),
		attr(0x0003, "SceneValid", zcl.TypeBool, zcl.AccessRead, def(zcl.Bool(false))),
		attr(0x0004, "NameSupport", zcl.TypeBitmap8, zcl.AccessRead),
		attr(0x0005, "LastConfiguredBy", zcl.TypeEUI64, zcl.AccessRead, invalidOK()),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(0x00, "AddScene", 0x00,
			field("GroupID", zcl.TypeUint16),
			field("SceneID", zcl.TypeUint8),
			field("TransitionTime", zcl.TypeUint16),
			field("SceneName", zcl.TypeCharStr),
			extensionFieldSets(),
		),
		request(0x01, "ViewScene", 0x01, field("GroupID", zcl.TypeUint16), field("SceneID", zcl.TypeUint8)),
		request(0x02, "RemoveScene", 0x02, field("GroupID", zcl.TypeUint16), field("SceneID", zcl.TypeUint8)),
		request(0x03, "RemoveAllScenes", 0x03, field("GroupID", zcl.TypeUint16)),
		request(0x04, "StoreScene", 0x04, field("GroupID", zcl.TypeUint16), field("SceneID", zcl.TypeUint8)),
		request(0x05, "RecallScene", noResponse,
			field("GroupID", zcl.TypeUint16),
			field("SceneID", zcl.TypeUint8),
			optional("TransitionTime", zcl.TypeUint16),
		),
		request(0x06, "GetSceneMembership", 0x06, field("GroupID", zcl.TypeUint16)),

		notify(0x00, "AddSceneResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("GroupID", zcl.TypeUint16),
			field("SceneID", zcl.TypeUint8),
		),
		notify(0x01, "ViewSceneResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("GroupID", zcl.TypeUint16),
			field("SceneID", zcl.TypeUint8),
			when(field("TransitionTime", zcl.TypeUint16), statusOK),
			when(field("SceneName", zcl.TypeCharStr), statusOK),
			when(extensionFieldSets(), statusOK),
		),
		notify(0x02, "RemoveSceneResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("GroupID", zcl.TypeUint16),
			field("SceneID", zcl.TypeUint8),
		),
		notify(0x03, "RemoveAllScenesResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("GroupID", zcl.TypeUint16),
		),
		notify(0x04, "StoreSceneResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("GroupID", zcl.TypeUint16),
			field("SceneID", zcl.TypeUint8),
		),
		notify(0x06, "GetSceneMembershipResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			field("Capacity", zcl.TypeUint8),
			field("GroupID", zcl.TypeUint16),
			when(lengthOf("SceneCount", zcl.TypeUint8, "SceneList"), statusOK),
			when(list("SceneList", zcl.TypeUint8, "SceneCount"), statusOK),
		),
	},
}
