package clusters

import "zcl-node/internal/zcl"

// TouchlinkCommissioning carries only the unicast utility commands. The
// inter-PAN commissioning commands belong to the lower stack.
var TouchlinkCommissioning = zcl.ClusterDef{
	ID:   0x1000,
	Name: "Touchlink Commissioning",
	Attributes: []zcl.AttributeDef{
		clusterRevision(1),
	},
	Commands: []zcl.CommandDef{
		request(0x41, "GetGroupIdentifiers", 0x41, field("StartIndex", zcl.TypeUint8)),
		request(0x42, "GetEndpointList", 0x42, field("StartIndex", zcl.TypeUint8)),

		notify(0x40, "EndpointInformation", noResponse,
			field("IEEEAddress", zcl.TypeEUI64),
			field("NetworkAddress", zcl.TypeUint16),
			field("EndpointID", zcl.TypeUint8),
			field("ProfileID", zcl.TypeUint16),
			field("DeviceID", zcl.TypeUint16),
			field("Version", zcl.TypeUint8),
		),
		notify(0x41, "GetGroupIdentifiersResponse", noResponse,
			field("Total", zcl.TypeUint8),
			field("StartIndex", zcl.TypeUint8),
			lengthOf("Count", zcl.TypeUint8, "Groups"),
			records("Groups", "Count",
				field("GroupID", zcl.TypeUint16),
				field("GroupType", zcl.TypeUint8),
			),
		),
		notify(0x42, "GetEndpointListResponse", noResponse,
			field("Total", zcl.TypeUint8),
			field("StartIndex", zcl.TypeUint8),
			lengthOf("Count", zcl.TypeUint8, "Endpoints"),
			records("Endpoints", "Count",
				field("NetworkAddress", zcl.TypeUint16),
				field("EndpointID", zcl.TypeUint8),
				field("ProfileID", zcl.TypeUint16),
				field("DeviceID", zcl.TypeUint16),
				field("Version", zcl.TypeUint8),
			),
		),
	},
}
