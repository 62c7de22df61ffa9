package clusters

import "zcl-node/internal/zcl"

const (
	DiagnosticsNumberOfResets  uint16 = 0x0000
	DiagnosticsLastMessageLQI  uint16 = 0x011C
	DiagnosticsLastMessageRSSI uint16 = 0x011D
)

// Stack counters from 0x0104 on are all uint16 and numbered consecutively.
var diagnosticsCounters = []string{
	"MacTxUcastRetry",
	"MacTxUcastFail",
	"APSRxBcast",
	"APSTxBcast",
	"APSRxUcast",
	"APSTxUcastSuccess",
	"APSTxUcastRetry",
	"APSTxUcastFail",
	"RouteDiscInitiated",
	"NeighborAdded",
	"NeighborRemoved",
	"NeighborStale",
	"JoinIndication",
	"ChildMoved",
	"NWKFCFailure",
	"APSFCFailure",
	"APSUnauthorizedKey",
	"NWKDecryptFailures",
	"APSDecryptFailures",
	"PacketBufferAllocateFailures",
	"RelayedUcast",
	"PhyToMACQueueLimitReached",
	"PacketValidateDropCount",
	"AverageMACRetryPerAPSMessageSent",
}

func diagnosticsAttributes() []zcl.AttributeDef {
	a := []zcl.AttributeDef{
		attr(DiagnosticsNumberOfResets, "NumberOfResets", zcl.TypeUint16, zcl.AccessRead|zcl.AccessPersist),
		attr(0x0001, "PersistentMemoryWrites", zcl.TypeUint16, zcl.AccessRead|zcl.AccessPersist),
		attr(0x0100, "MacRxBcast", zcl.TypeUint32, zcl.AccessRead),
		attr(0x0101, "MacTxBcast", zcl.TypeUint32, zcl.AccessRead),
		attr(0x0102, "MacRxUcast", zcl.TypeUint32, zcl.AccessRead),
		attr(0x0103, "MacTxUcast", zcl.TypeUint32, zcl.AccessRead),
	}
	for i, name := range diagnosticsCounters {
		a = append(a, attr(0x0104+uint16(i), name, zcl.TypeUint16, zcl.AccessRead))
	}
	return append(a,
		attr(DiagnosticsLastMessageLQI, "LastMessageLQI", zcl.TypeUint8, zcl.AccessRead),
		attr(DiagnosticsLastMessageRSSI, "LastMessageRSSI", zcl.TypeInt8, zcl.AccessRead, invalidOK()),
		clusterRevision(3),
	)
}

var Diagnostics = zcl.ClusterDef{
	ID:         0x0B05,
	Name:       "Diagnostics",
	Attributes: diagnosticsAttributes(),
}
