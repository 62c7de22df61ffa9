package clusters

import "zcl-node/internal/zcl"

// GPD application ids, carried in the low three bits of the options field.
const (
	GPAppSourceID = 0x00
	GPAppIEEE     = 0x02
)

// gpdApp matches payloads whose options field names application id app.
func gpdApp(app uint64) func(zcl.Args) bool {
	return func(a zcl.Args) bool { return a.Uint("Options")&0x07 == app }
}

// gpdID is the GPD addressing block that leads most GP commands.
func gpdID() []zcl.Param {
	return []zcl.Param{
		when(field("GPDSrcID", zcl.TypeUint32), gpdApp(GPAppSourceID)),
		when(field("GPDIEEE", zcl.TypeEUI64), gpdApp(GPAppIEEE)),
		when(field("Endpoint", zcl.TypeUint8), gpdApp(GPAppIEEE)),
	}
}

// proxyInfo is the trailing proxy address and link quality present when
// options bit 14 (notification) or bit 11 (commissioning) is set.
func proxyInfo(bit uint64) []zcl.Param {
	return []zcl.Param{
		when(field("GPPShortAddress", zcl.TypeUint16), zcl.FieldSet("Options", bit)),
		when(field("GPPDistance", zcl.TypeUint8), zcl.FieldSet("Options", bit)),
	}
}

func gpNotification(lead []zcl.Param, bit uint64) []zcl.Param {
	p := append(lead, gpdID()...)
	p = append(p,
		field("GPDSecurityFrameCounter", zcl.TypeUint32),
		field("GPDCommandID", zcl.TypeUint8),
		field("GPDCommandPayload", zcl.TypeOctetStr),
	)
	return append(p, proxyInfo(bit)...)
}

var GreenPower = zcl.ClusterDef{
	ID:   0x0021,
	Name: "Green Power",
	Attributes: []zcl.AttributeDef{
		// sink side
		attr(0x0000, "MaxSinkTableEntries", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(5))),
		attr(0x0001, "SinkTable", zcl.TypeOctetStr16, zcl.AccessRead),
		attr(0x0002, "CommunicationMode", zcl.TypeBitmap8, zcl.AccessRW, def(zcl.M8(0x01))),
		attr(0x0003, "CommissioningExitMode", zcl.TypeBitmap8, zcl.AccessRW, def(zcl.M8(0x02))),
		attr(0x0004, "CommissioningWindow", zcl.TypeUint16, zcl.AccessRW, def(zcl.U16(180))),
		attr(0x0005, "SecurityLevel", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x07))),
		attr(0x0006, "Functionality", zcl.TypeBitmap24, zcl.AccessRead),
		attr(0x0007, "ActiveFunctionality", zcl.TypeBitmap24, zcl.AccessRead, def(zcl.Uint(zcl.TypeBitmap24, 0xFFFFFF))),
		// proxy side
		attr(0x0010, "MaxProxyTableEntries", zcl.TypeUint8, zcl.AccessRead, def(zcl.U8(5))),
		attr(0x0011, "ProxyTable", zcl.TypeOctetStr16, zcl.AccessRead),
		attr(0x0012, "NotificationRetryNumber", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(2))),
		attr(0x0013, "NotificationRetryTimer", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(100))),
		attr(0x0014, "MaxSearchCounter", zcl.TypeUint8, zcl.AccessRW, def(zcl.U8(10))),
		attr(0x0015, "BlockedGPDID", zcl.TypeOctetStr16, zcl.AccessRead),
		attr(0x0016, "ProxyFunctionality", zcl.TypeBitmap24, zcl.AccessRead),
		attr(0x0017, "ProxyActiveFunctionality", zcl.TypeBitmap24, zcl.AccessRead, def(zcl.Uint(zcl.TypeBitmap24, 0xFFFFFF))),
		// shared
		attr(0x0020, "SharedSecurityKeyType", zcl.TypeBitmap8, zcl.AccessRW, bounds(zcl.M8(0), zcl.M8(0x07))),
		attr(0x0021, "SharedSecurityKey", zcl.TypeKey128, zcl.AccessRW),
		attr(0x0022, "LinkKey", zcl.TypeKey128, zcl.AccessRW),
		clusterRevision(1),
	},
	Commands: []zcl.CommandDef{
		request(0x00, "GPNotification", noResponse,
			gpNotification([]zcl.Param{field("Options", zcl.TypeBitmap16)}, 0x4000)...,
		),
		request(0x01, "GPPairingSearch", noResponse,
			append([]zcl.Param{field("Options", zcl.TypeBitmap16)}, gpdID()...)...,
		),
		request(0x04, "GPCommissioningNotification", noResponse,
			gpNotification([]zcl.Param{field("Options", zcl.TypeBitmap16)}, 0x0800)...,
		),

		notify(0x00, "GPNotificationResponse", noResponse,
			append([]zcl.Param{field("Options", zcl.TypeBitmap8)}, append(gpdID(),
				field("GPDSecurityFrameCounter", zcl.TypeUint32))...)...,
		),
		notify(0x02, "GPProxyCommissioningMode", noResponse,
			field("Options", zcl.TypeBitmap8),
			when(field("CommissioningWindow", zcl.TypeUint16), zcl.FieldSet("Options", 0x02)),
			when(field("Channel", zcl.TypeUint8), zcl.FieldSet("Options", 0x10)),
		),
		notify(0x06, "GPResponse", noResponse,
			append([]zcl.Param{
				field("Options", zcl.TypeBitmap8),
				field("TempMasterShortAddress", zcl.TypeUint16),
				field("TempMasterTxChannel", zcl.TypeBitmap8),
			}, append(gpdID(),
				field("GPDCommandID", zcl.TypeUint8),
				field("GPDCommandPayload", zcl.TypeOctetStr),
			)...)...,
		),
	},
}
