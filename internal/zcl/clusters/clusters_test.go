package clusters

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcl-node/internal/zcl"
)

func newRegistry(t *testing.T) *zcl.Registry {
	t.Helper()
	r := zcl.NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, RegisterAll(r))
	return r
}

func TestStandardCompiles(t *testing.T) {
	r := newRegistry(t)
	seen := map[uint16]string{}
	for _, c := range Standard() {
		if prev, ok := seen[c.ID]; ok {
			t.Errorf("cluster 0x%04X listed twice (%s, %s)", c.ID, prev, c.Name)
		}
		seen[c.ID] = c.Name
		require.NotNil(t, r.Cluster(c.ID), c.Name)
	}
	assert.Len(t, r.All(), len(seen))
}

func TestStandardTablesSorted(t *testing.T) {
	r := newRegistry(t)
	for _, def := range r.All() {
		attrs := r.Cluster(def.ID).Attributes()
		for i := 1; i < len(attrs); i++ {
			assert.LessOrEqual(t, attrs[i-1].ID, attrs[i].ID, def.Name)
		}
		assert.NotNil(t, r.Cluster(def.ID).Attribute(0xFFFD, 0), "%s has no ClusterRevision", def.Name)
	}
}

func TestDefaultsMatchType(t *testing.T) {
	r := newRegistry(t)
	for _, def := range r.All() {
		for _, a := range r.Cluster(def.ID).Attributes() {
			assert.Equal(t, a.Type, a.Default.Type(), "%s.%s", def.Name, a.Name)
			if a.Bounded() && !a.Default.IsInvalid() {
				assert.True(t, a.Default.InRange(a.Min, a.Max), "%s.%s default %v outside [%v, %v]",
					def.Name, a.Name, a.Default, a.Min, a.Max)
			}
		}
	}
}

func TestRequiredClustersPresent(t *testing.T) {
	r := newRegistry(t)
	for _, id := range []uint16{
		0x0000, 0x0003, 0x0004, 0x0005, 0x0006, 0x0007, 0x0008, 0x000A, 0x000C, 0x000D, 0x000E,
		0x000F, 0x0010, 0x0011, 0x0012, 0x0013, 0x0014, 0x0015, 0x0019, 0x0100, 0x0101, 0x0102,
		0x0201, 0x0202, 0x0204, 0x0300, 0x0400, 0x0402, 0x0403, 0x0404, 0x0405, 0x0406, 0x0409,
		0x040A, 0x040B, 0x040D, 0x042A, 0x0500, 0x0501, 0x0502, 0x0700, 0x0701, 0x0702, 0x0B01,
		0x0B04, 0x0B05,
	} {
		assert.NotNil(t, r.Cluster(id), "cluster 0x%04X", id)
	}
}

func TestIASZoneDefaults(t *testing.T) {
	r := newRegistry(t)
	cie, err := r.Attribute(IASZone.ID, IASZoneCIEAddress, 0)
	require.NoError(t, err)
	assert.Equal(t, zcl.TypeEUI64, cie.Type)
	assert.True(t, cie.Default.IsInvalid())
	assert.True(t, cie.IsWritable())
	assert.True(t, cie.IsPersistent())

	levels, err := r.Attribute(IASZone.ID, IASZoneSensitivityLevelsSupported, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), levels.Default.Uint())
	assert.False(t, zcl.U8(1).InRange(levels.Min, levels.Max))
}

func TestOTABlockResponseParse(t *testing.T) {
	r := newRegistry(t)
	def, err := r.Command(OTAUpgrade.ID, OTACmdImageBlockResponse, zcl.DirectionToClient, 0)
	require.NoError(t, err)

	data := bytes.Repeat([]byte{0x5A}, 64)
	payload := append([]byte{
		0x00,       // success
		0x1B, 0x13, // manufacturer
		0x01, 0x00, // image type
		0x02, 0x00, 0x01, 0x00, // file version
		0x00, 0x04, 0x00, 0x00, // offset
		0x40,
	}, data...)

	args, err := zcl.DecodePayload(def, payload)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x131B), args.Uint("ManufacturerCode"))
	assert.Equal(t, uint64(0x0001), args.Uint("ImageType"))
	assert.Equal(t, uint64(0x00010002), args.Uint("FileVersion"))
	assert.Equal(t, uint64(0x400), args.Uint("FileOffset"))
	assert.Equal(t, data, args.Bytes("ImageData"))
	assert.False(t, args.Has("CurrentTime"))

	_, err = zcl.DecodePayload(def, append(payload, 0x00))
	assert.ErrorIs(t, err, zcl.ErrTrailingBytes)
}

func TestOTABlockResponseWaitForData(t *testing.T) {
	r := newRegistry(t)
	def, err := r.Command(OTAUpgrade.ID, OTACmdImageBlockResponse, zcl.DirectionToClient, 0)
	require.NoError(t, err)

	args, err := zcl.DecodePayload(def, []byte{
		0x97,
		0x10, 0x00, 0x00, 0x00,
		0x40, 0x00, 0x00, 0x00,
		0xE8, 0x03,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x10), args.Uint("CurrentTime"))
	assert.Equal(t, uint64(0x40), args.Uint("RequestTime"))
	assert.Equal(t, uint64(1000), args.Uint("MinimumBlockPeriod"))
	assert.False(t, args.Has("ImageData"))
}

func TestOTAQueryNextImageHardwareVersion(t *testing.T) {
	r := newRegistry(t)
	def, err := r.Command(OTAUpgrade.ID, OTACmdQueryNextImageRequest, zcl.DirectionToServer, 0)
	require.NoError(t, err)

	base := []byte{0x00, 0x1B, 0x13, 0x01, 0x00, 0x02, 0x00, 0x01, 0x00}
	args, err := zcl.DecodePayload(def, base)
	require.NoError(t, err)
	assert.False(t, args.Has("HardwareVersion"))

	withHW := append([]byte{0x01}, base[1:]...)
	withHW = append(withHW, 0x03, 0x00)
	args, err = zcl.DecodePayload(def, withHW)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), args.Uint("HardwareVersion"))
}

func TestOTAImageNotifyPayloadTypes(t *testing.T) {
	r := newRegistry(t)
	def, err := r.Command(OTAUpgrade.ID, OTACmdImageNotify, zcl.DirectionToClient, 0)
	require.NoError(t, err)

	args, err := zcl.DecodePayload(def, []byte{NotifyJitter, 0x64})
	require.NoError(t, err)
	assert.Len(t, args, 2)

	args, err = zcl.DecodePayload(def, []byte{NotifyFileVersion, 0x64, 0x1B, 0x13, 0x01, 0x00, 0x03, 0x00, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint64(0x00010003), args.Uint("NewFileVersion"))
}

func TestWeeklyScheduleNestedPredicate(t *testing.T) {
	r := newRegistry(t)
	def, err := r.Command(Thermostat.ID, 0x01, zcl.DirectionToServer, 0)
	require.NoError(t, err)

	// two transitions, heat only
	payload := []byte{
		0x02, 0x01, 0x01,
		0x68, 0x01, 0xD0, 0x07,
		0x38, 0x04, 0x08, 0x07,
	}
	args, err := zcl.DecodePayload(def, payload)
	require.NoError(t, err)
	recs := args.Records("Transitions")
	require.Len(t, recs, 2)
	assert.Equal(t, int64(0x07D0), recs[0].Int("HeatSetpoint"))
	assert.False(t, recs[0].Has("CoolSetpoint"))
	assert.Equal(t, uint64(0x0438), recs[1].Uint("TransitionTime"))

	w := zcl.NewWriter(make([]byte, 64))
	require.NoError(t, zcl.EncodePayload(w, def, args))
	assert.Equal(t, payload, w.Bytes())

	// heat and cool: each record carries both setpoints
	both := []byte{0x01, 0x01, 0x03, 0x68, 0x01, 0xD0, 0x07, 0x28, 0x0A}
	args, err = zcl.DecodePayload(def, both)
	require.NoError(t, err)
	assert.Equal(t, int64(0x0A28), args.Records("Transitions")[0].Int("CoolSetpoint"))
}

func TestIASACEZoneIDMap(t *testing.T) {
	r := newRegistry(t)
	b, err := r.Build(IASACE.ID, ACECmdGetZoneIDMapResponse, zcl.DirectionToClient)
	require.NoError(t, err)

	sections := make([]zcl.Value, ZoneIDMapSections)
	for i := range sections {
		sections[i] = zcl.M16(0)
	}
	sections[0] = zcl.M16(0x0005)
	buf, err := b.Seq(3).List("ZoneIDMap", sections...).Finish(make([]byte, 64))
	require.NoError(t, err)
	assert.Len(t, buf, 3+2*ZoneIDMapSections)
	assert.Equal(t, []byte{0x05, 0x00}, buf[3:5])

	_, err = b.List("ZoneIDMap", sections[:4]...).Finish(make([]byte, 64))
	assert.ErrorIs(t, err, zcl.ErrInvalidField)
}

func TestIASACEGetZoneStatusResponse(t *testing.T) {
	r := newRegistry(t)
	def, err := r.Command(IASACE.ID, ACECmdGetZoneStatusResponse, zcl.DirectionToClient, 0)
	require.NoError(t, err)

	args, err := zcl.DecodePayload(def, []byte{0x01, 0x02, 0x00, 0x01, 0x00, 0x05, 0x04, 0x00})
	require.NoError(t, err)
	assert.True(t, args.Bool("ZoneStatusComplete"))
	zones := args.Records("Zones")
	require.Len(t, zones, 2)
	assert.Equal(t, uint64(5), zones[1].Uint("ZoneID"))
	assert.Equal(t, uint64(ZoneStatusTamper), zones[1].Uint("ZoneStatus"))
}

func TestZoneStatusChangeNotificationShortForm(t *testing.T) {
	r := newRegistry(t)
	def, err := r.Command(IASZone.ID, IASZoneCmdStatusChangeNotification, zcl.DirectionToClient, 0)
	require.NoError(t, err)

	args, err := zcl.DecodePayload(def, []byte{0x01, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint64(ZoneStatusAlarm1), args.Uint("ZoneStatus"))
	assert.False(t, args.Has("ZoneID"))
}

func TestDRLCSignatureFixedLength(t *testing.T) {
	r := newRegistry(t)
	def, err := r.Command(DemandResponseLoadControl.ID, DRLCCmdReportEventStatus, zcl.DirectionToServer, 0)
	require.NoError(t, err)
	var fixedLen int
	for _, p := range def.Params {
		if p.Name == "Signature" {
			fixedLen = p.Len
		}
	}
	assert.Equal(t, DRLCSignatureLen, fixedLen)
}

func TestTierBlockAttr(t *testing.T) {
	assert.Equal(t, uint16(0x0700), TierBlockAttr(MeteringSetBlockDelivered, 0, 0))
	assert.Equal(t, uint16(0x0710), TierBlockAttr(MeteringSetBlockDelivered, 1, 0))
	assert.Equal(t, uint16(0x07FF), TierBlockAttr(MeteringSetBlockDelivered, 15, 15))
	assert.Equal(t, uint16(0x0100), MeteringTierAttr(1, false))
	assert.Equal(t, uint16(0x0101), MeteringTierAttr(1, true))
	assert.Equal(t, uint16(0x015E), MeteringTierAttr(48, false))

	r := newRegistry(t)
	for _, id := range []uint16{TierBlockAttr(MeteringSetBlockDelivered, 3, 7), MeteringTierAttr(48, true)} {
		_, err := r.Attribute(Metering.ID, id, 0)
		assert.NoError(t, err, "attribute 0x%04X", id)
	}
}

func TestMeasurementLayout(t *testing.T) {
	r := newRegistry(t)
	for _, c := range []zcl.ClusterDef{TemperatureMeasurement, RelativeHumidity, PHMeasurement, CarbonDioxide, PM25Measurement} {
		for _, id := range []uint16{0x0000, 0x0001, 0x0002} {
			_, err := r.Attribute(c.ID, id, 0)
			assert.NoError(t, err, "%s 0x%04X", c.Name, id)
		}
		mv := r.Cluster(c.ID).Attribute(0x0000, 0)
		assert.True(t, mv.IsReportable(), c.Name)
	}
}

func TestObjectClusters(t *testing.T) {
	r := newRegistry(t)
	in := r.Cluster(AnalogInput.ID)
	out := r.Cluster(AnalogOutput.ID)
	assert.False(t, in.Attribute(ObjectPresentValue, 0).IsWritable())
	assert.True(t, out.Attribute(ObjectPresentValue, 0).IsWritable())
	assert.Nil(t, in.Attribute(ObjectRelinquishDef, 0))
	assert.NotNil(t, out.Attribute(ObjectRelinquishDef, 0))
	assert.Equal(t, zcl.TypeBool, r.Cluster(BinaryValue.ID).Attribute(ObjectPresentValue, 0).Type)
}
