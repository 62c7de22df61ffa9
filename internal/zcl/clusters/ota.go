package clusters

import "zcl-node/internal/zcl"

// OTA Upgrade attribute ids.
const (
	OTAUpgradeServerID         uint16 = 0x0000
	OTAFileOffset              uint16 = 0x0001
	OTACurrentFileVersion      uint16 = 0x0002
	OTACurrentStackVersion     uint16 = 0x0003
	OTADownloadedFileVersion   uint16 = 0x0004
	OTADownloadedStackVersion  uint16 = 0x0005
	OTAImageUpgradeStatus      uint16 = 0x0006
	OTAManufacturerID          uint16 = 0x0007
	OTAImageTypeID             uint16 = 0x0008
	OTAMinimumBlockPeriod      uint16 = 0x0009
	OTAImageStamp              uint16 = 0x000A
	OTAUpgradeActivationPolicy uint16 = 0x000B
	OTAUpgradeTimeoutPolicy    uint16 = 0x000C
)

// OTA Upgrade command ids.
const (
	OTACmdImageNotify               uint8 = 0x00
	OTACmdQueryNextImageRequest     uint8 = 0x01
	OTACmdQueryNextImageResponse    uint8 = 0x02
	OTACmdImageBlockRequest         uint8 = 0x03
	OTACmdImagePageRequest          uint8 = 0x04
	OTACmdImageBlockResponse        uint8 = 0x05
	OTACmdUpgradeEndRequest         uint8 = 0x06
	OTACmdUpgradeEndResponse        uint8 = 0x07
	OTACmdQuerySpecificFileRequest  uint8 = 0x08
	OTACmdQuerySpecificFileResponse uint8 = 0x09
)

// ImageUpgradeStatus values.
const (
	OTAStatusNormal             = 0x00
	OTAStatusDownloadInProgress = 0x01
	OTAStatusDownloadComplete   = 0x02
	OTAStatusWaitingToUpgrade   = 0x03
	OTAStatusCountDown          = 0x04
	OTAStatusWaitForMore        = 0x05
	OTAStatusWaitingOnExternal  = 0x06
)

// ImageNotify payload types: each level adds one more field.
const (
	NotifyJitter       = 0x00
	NotifyManufacturer = 0x01
	NotifyImageType    = 0x02
	NotifyFileVersion  = 0x03
)

// Block and page request field control bits.
const (
	OTARequestNodeAddressPresent = 0x01
	OTABlockPeriodPresent        = 0x02
	OTAHardwareVersionPresent    = 0x01
)

// UpgradeTimeNow and UpgradeTimeWait are the UpgradeEndResponse UpgradeTime
// values for "upgrade immediately" and "wait for a further command".
const (
	UpgradeTimeNow  uint32 = 0x00000000
	UpgradeTimeWait uint32 = 0xFFFFFFFF
)

// imageID is the manufacturer / image type / version triple that names an
// image in almost every OTA command.
func imageID() []zcl.Param {
	return []zcl.Param{
		field("ManufacturerCode", zcl.TypeUint16),
		field("ImageType", zcl.TypeUint16),
		field("FileVersion", zcl.TypeUint32),
	}
}

func withImageID(lead []zcl.Param, tail ...zcl.Param) []zcl.Param {
	p := append(lead, imageID()...)
	return append(p, tail...)
}

var waitForData = zcl.FieldEquals("Status", uint64(zcl.StatusWaitForData))

var OTAUpgrade = zcl.ClusterDef{
	ID:   0x0019,
	Name: "OTA Upgrade",
	Attributes: []zcl.AttributeDef{
		attr(OTAUpgradeServerID, "UpgradeServerID", zcl.TypeEUI64, zcl.AccessRead, invalidOK()),
		attr(OTAFileOffset, "FileOffset", zcl.TypeUint32, zcl.AccessRead, invalidOK()),
		attr(OTACurrentFileVersion, "CurrentFileVersion", zcl.TypeUint32, zcl.AccessRead|zcl.AccessPersist, invalidOK()),
		attr(OTACurrentStackVersion, "CurrentZigbeeStackVersion", zcl.TypeUint16, zcl.AccessRead, def(zcl.U16(0x0002))),
		attr(OTADownloadedFileVersion, "DownloadedFileVersion", zcl.TypeUint32, zcl.AccessRead|zcl.AccessPersist, invalidOK()),
		attr(OTADownloadedStackVersion, "DownloadedZigbeeStackVersion", zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(OTAImageUpgradeStatus, "ImageUpgradeStatus", zcl.TypeEnum8, zcl.AccessRead|zcl.AccessPersist,
			def(zcl.E8(OTAStatusNormal)), bounds(zcl.E8(0), zcl.E8(OTAStatusWaitingOnExternal))),
		attr(OTAManufacturerID, "ManufacturerID", zcl.TypeUint16, zcl.AccessRead),
		attr(OTAImageTypeID, "ImageTypeID", zcl.TypeUint16, zcl.AccessRead, invalidOK()),
		attr(OTAMinimumBlockPeriod, "MinimumBlockPeriod", zcl.TypeUint16, zcl.AccessRead, bounds(zcl.U16(0), zcl.U16(0x0258))),
		attr(OTAImageStamp, "ImageStamp", zcl.TypeUint32, zcl.AccessRead),
		attr(OTAUpgradeActivationPolicy, "UpgradeActivationPolicy", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(1))),
		attr(OTAUpgradeTimeoutPolicy, "UpgradeTimeoutPolicy", zcl.TypeEnum8, zcl.AccessRead, bounds(zcl.E8(0), zcl.E8(1))),
		clusterRevision(3),
	},
	Commands: []zcl.CommandDef{
		request(OTACmdQueryNextImageRequest, "QueryNextImageRequest", int(OTACmdQueryNextImageResponse),
			withImageID([]zcl.Param{field("FieldControl", zcl.TypeUint8)},
				when(field("HardwareVersion", zcl.TypeUint16), zcl.FieldSet("FieldControl", OTAHardwareVersionPresent)),
			)...,
		),
		request(OTACmdImageBlockRequest, "ImageBlockRequest", int(OTACmdImageBlockResponse),
			withImageID([]zcl.Param{field("FieldControl", zcl.TypeUint8)},
				field("FileOffset", zcl.TypeUint32),
				field("MaximumDataSize", zcl.TypeUint8),
				when(field("RequestNodeAddress", zcl.TypeEUI64), zcl.FieldSet("FieldControl", OTARequestNodeAddressPresent)),
				when(field("MinimumBlockPeriod", zcl.TypeUint16), zcl.FieldSet("FieldControl", OTABlockPeriodPresent)),
			)...,
		),
		request(OTACmdImagePageRequest, "ImagePageRequest", int(OTACmdImageBlockResponse),
			withImageID([]zcl.Param{field("FieldControl", zcl.TypeUint8)},
				field("FileOffset", zcl.TypeUint32),
				field("MaximumDataSize", zcl.TypeUint8),
				field("PageSize", zcl.TypeUint16),
				field("ResponseSpacing", zcl.TypeUint16),
				when(field("RequestNodeAddress", zcl.TypeEUI64), zcl.FieldSet("FieldControl", OTARequestNodeAddressPresent)),
			)...,
		),
		request(OTACmdUpgradeEndRequest, "UpgradeEndRequest", int(OTACmdUpgradeEndResponse),
			withImageID([]zcl.Param{field("Status", zcl.TypeEnum8)})...,
		),
		request(OTACmdQuerySpecificFileRequest, "QuerySpecificFileRequest", int(OTACmdQuerySpecificFileResponse),
			withImageID([]zcl.Param{field("RequestNodeAddress", zcl.TypeEUI64)},
				field("ZigbeeStackVersion", zcl.TypeUint16),
			)...,
		),

		notify(OTACmdImageNotify, "ImageNotify", int(OTACmdQueryNextImageRequest),
			field("PayloadType", zcl.TypeEnum8),
			field("QueryJitter", zcl.TypeUint8),
			when(field("ManufacturerCode", zcl.TypeUint16), zcl.FieldAtLeast("PayloadType", NotifyManufacturer)),
			when(field("ImageType", zcl.TypeUint16), zcl.FieldAtLeast("PayloadType", NotifyImageType)),
			when(field("NewFileVersion", zcl.TypeUint32), zcl.FieldAtLeast("PayloadType", NotifyFileVersion)),
		),
		notify(OTACmdQueryNextImageResponse, "QueryNextImageResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			when(field("ManufacturerCode", zcl.TypeUint16), statusOK),
			when(field("ImageType", zcl.TypeUint16), statusOK),
			when(field("FileVersion", zcl.TypeUint32), statusOK),
			when(field("ImageSize", zcl.TypeUint32), statusOK),
		),
		notify(OTACmdImageBlockResponse, "ImageBlockResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			when(field("ManufacturerCode", zcl.TypeUint16), statusOK),
			when(field("ImageType", zcl.TypeUint16), statusOK),
			when(field("FileVersion", zcl.TypeUint32), statusOK),
			when(field("FileOffset", zcl.TypeUint32), statusOK),
			when(lengthOf("DataSize", zcl.TypeUint8, "ImageData"), statusOK),
			when(octets("ImageData", "DataSize"), statusOK),
			when(field("CurrentTime", zcl.TypeUTC), waitForData),
			when(field("RequestTime", zcl.TypeUTC), waitForData),
			when(field("MinimumBlockPeriod", zcl.TypeUint16), waitForData),
		),
		notify(OTACmdUpgradeEndResponse, "UpgradeEndResponse", noResponse,
			withImageID(nil,
				field("CurrentTime", zcl.TypeUTC),
				field("UpgradeTime", zcl.TypeUTC),
			)...,
		),
		notify(OTACmdQuerySpecificFileResponse, "QuerySpecificFileResponse", noResponse,
			field("Status", zcl.TypeEnum8),
			when(field("ManufacturerCode", zcl.TypeUint16), statusOK),
			when(field("ImageType", zcl.TypeUint16), statusOK),
			when(field("FileVersion", zcl.TypeUint32), statusOK),
			when(field("ImageSize", zcl.TypeUint32), statusOK),
		),
	},
}
