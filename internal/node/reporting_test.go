package node

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcl-node/internal/ncp"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

var temperature = clusters.TemperatureMeasurement.ID

// tick advances the clock and evaluates reporting, as Run does on its ticker.
func (tn *testNode) tick(d time.Duration) {
	tn.clock.Advance(d)
	tn.ReportTick(tn.clock.Now())
}

func TestConfigureReportingChangeOnly(t *testing.T) {
	tn := newTestNode(t)
	require.NoError(t, tn.WriteAttribute(1, temperature, 0x0000, zcl.S16(0x0100)))

	// min 1 s, max 0, change 0x0064
	require.NoError(t, tn.deliver(t, temperature, 0x00, 0x60, 0x06, 0x00, 0x00, 0x00, 0x29, 0x01, 0x00, 0x00, 0x00, 0x64, 0x00))
	assert.Equal(t, [][]byte{{0x18, 0x60, 0x07, 0x00}}, tn.sent())

	require.NoError(t, tn.WriteAttribute(1, temperature, 0x0000, zcl.S16(0x0164)))
	reqs := tn.link.Drain()
	require.Len(t, reqs, 1)
	assert.Equal(t, []byte{0x18, 0x01, 0x0A, 0x00, 0x00, 0x29, 0x64, 0x01}, reqs[0].Payload)
	assert.Equal(t, peerAddr, reqs[0].DstAddr)
	assert.Equal(t, peerEP, reqs[0].DstEP)
	assert.Equal(t, temperature, reqs[0].Cluster)

	// below the reportable change, and no periodic reports
	require.NoError(t, tn.WriteAttribute(1, temperature, 0x0000, zcl.S16(0x0190)))
	tn.tick(time.Hour)
	assert.Empty(t, tn.sent())
}

func TestReadReportingConfiguration(t *testing.T) {
	tn := newTestNode(t)
	require.NoError(t, tn.deliver(t, temperature, 0x00, 0x60, 0x06, 0x00, 0x00, 0x00, 0x29, 0x01, 0x00, 0x00, 0x00, 0x64, 0x00))
	tn.sent()

	// MeasuredValue, Tolerance (not configured), MinMeasuredValue (not reportable)
	require.NoError(t, tn.deliver(t, temperature, 0x00, 0x61, 0x08,
		0x00, 0x00, 0x00,
		0x00, 0x03, 0x00,
		0x00, 0x01, 0x00))
	assert.Equal(t, [][]byte{{
		0x18, 0x61, 0x09,
		0x00, 0x00, 0x00, 0x00, 0x29, 0x01, 0x00, 0x00, 0x00, 0x64, 0x00,
		0x8B, 0x00, 0x03, 0x00,
		0x8C, 0x00, 0x01, 0x00,
	}}, tn.sent())
}

func TestConfigureReportingFailures(t *testing.T) {
	tn := newTestNode(t)
	require.NoError(t, tn.deliver(t, temperature, 0x00, 0x62, 0x06,
		// wrong type
		0x00, 0x00, 0x00, 0x21, 0x01, 0x00, 0x00, 0x00, 0x64, 0x00,
		// not reportable
		0x00, 0x01, 0x00, 0x29, 0x01, 0x00, 0x00, 0x00, 0x64, 0x00,
		// unknown attribute
		0x00, 0x34, 0x12, 0x29, 0x01, 0x00, 0x00, 0x00, 0x64, 0x00,
		// min above max
		0x00, 0x03, 0x00, 0x21, 0x0A, 0x00, 0x05, 0x00, 0x01, 0x00,
	))
	assert.Equal(t, [][]byte{{
		0x18, 0x62, 0x07,
		0x8D, 0x00, 0x00, 0x00,
		0x8C, 0x00, 0x01, 0x00,
		0x86, 0x00, 0x34, 0x12,
		0x87, 0x00, 0x03, 0x00,
	}}, tn.sent())
}

func TestMinimumIntervalDefersChange(t *testing.T) {
	tn := newTestNode(t)
	level := clusters.LevelControl.ID
	require.NoError(t, tn.ConfigureReporting(1, level, clusters.LevelCurrentLevel, 5, 0, zcl.U8(1)))

	require.NoError(t, tn.WriteAttribute(1, level, clusters.LevelCurrentLevel, zcl.U8(10)))
	reqs := tn.link.Drain()
	require.Len(t, reqs, 1)
	assert.Equal(t, Coordinator.Addr, reqs[0].DstAddr)
	assert.Equal(t, Coordinator.Endpoint, reqs[0].DstEP)

	require.NoError(t, tn.WriteAttribute(1, level, clusters.LevelCurrentLevel, zcl.U8(20)))
	tn.tick(2 * time.Second)
	assert.Empty(t, tn.sent())

	tn.tick(3 * time.Second)
	frames := tn.sent()
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x00, 0x00, 0x20, 0x14}, frames[0][3:])
}

func TestPeriodicReport(t *testing.T) {
	tn := newTestNode(t)
	require.NoError(t, tn.ConfigureReporting(1, clusters.OnOff.ID, clusters.OnOffAttr, 0, 10, zcl.Null()))

	tn.tick(9 * time.Second)
	assert.Empty(t, tn.sent())
	tn.tick(time.Second)
	frames := tn.sent()
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x0A, 0x00, 0x00, 0x10, 0x00}, frames[0][2:])

	tn.tick(10 * time.Second)
	assert.Len(t, tn.sent(), 1)
}

func TestReportsCoalescePerCluster(t *testing.T) {
	tn := newTestNode(t)
	level := clusters.LevelControl.ID
	require.NoError(t, tn.ConfigureReporting(1, level, clusters.LevelCurrentLevel, 0, 0, zcl.U8(1)))
	require.NoError(t, tn.ConfigureReporting(1, level, 0x0004, 0, 0, zcl.U16(1)))
	assert.Error(t, tn.ConfigureReporting(1, level, 0x1234, 0, 0, zcl.Null()))
	assert.Equal(t, zcl.StatusUnreportableAttribute, zcl.StatusOf(tn.ConfigureReporting(1, level, clusters.LevelOnLevel, 0, 0, zcl.Null())))

	require.NoError(t, tn.Do(func(tx *Tx) error {
		if err := tx.Set(1, level, 0x0004, zcl.U16(5)); err != nil {
			return err
		}
		return tx.Set(1, level, clusters.LevelCurrentLevel, zcl.U8(0x10))
	}))
	frames := tn.sent()
	require.Len(t, frames, 1)
	assert.Equal(t, []byte{0x00, 0x00, 0x20, 0x10, 0x04, 0x00, 0x21, 0x05, 0x00}, frames[0][3:])
}

func TestRemoveReportingConfiguration(t *testing.T) {
	tn := newTestNode(t)
	require.NoError(t, tn.ConfigureReporting(1, clusters.OnOff.ID, clusters.OnOffAttr, 0, 10, zcl.Null()))

	var got []uint16
	require.NoError(t, tn.ForEachReportable(1, func(cluster uint16, rc zcl.ReportingConfig) {
		got = append(got, rc.ID)
		assert.Equal(t, uint16(10), rc.Max)
	}))
	assert.Equal(t, []uint16{clusters.OnOffAttr}, got)

	require.NoError(t, tn.ConfigureReporting(1, clusters.OnOff.ID, clusters.OnOffAttr, 0, 0xFFFF, zcl.Null()))
	got = nil
	require.NoError(t, tn.ForEachReportable(1, func(cluster uint16, rc zcl.ReportingConfig) { got = append(got, rc.ID) }))
	assert.Empty(t, got)
	assert.Error(t, tn.ForEachReportable(7, func(uint16, zcl.ReportingConfig) {}))
}

func TestDefaultReporting(t *testing.T) {
	link := ncp.NewLoopback(4)
	n := New(testRegistry(t), link, WithLogger(testLogger()), WithClock(NewManualClock(testEpoch)))
	require.NoError(t, n.RegisterEndpoint(EndpointConfig{
		ID:               3,
		Servers:          []uint16{clusters.OnOff.ID, temperature},
		DefaultReporting: true,
	}))
	var got []uint16
	require.NoError(t, n.ForEachReportable(3, func(cluster uint16, rc zcl.ReportingConfig) { got = append(got, cluster) }))
	assert.Equal(t, []uint16{clusters.OnOff.ID, temperature}, got)
}

func TestReportingConfigPersisted(t *testing.T) {
	p := newMemPersister()
	tn := newTestNode(t, WithPersister(p))
	require.NoError(t, tn.deliver(t, temperature, 0x00, 0x60, 0x06, 0x00, 0x00, 0x00, 0x29, 0x01, 0x00, 0x00, 0x00, 0x64, 0x00))
	require.Contains(t, p.data, "report/01/0402/0000")

	again := newTestNode(t, WithPersister(p))
	var got []zcl.ReportingConfig
	require.NoError(t, again.ForEachReportable(1, func(cluster uint16, rc zcl.ReportingConfig) { got = append(got, rc) }))
	require.Len(t, got, 1)
	assert.Equal(t, uint16(1), got[0].Min)
	assert.Equal(t, int64(0x64), got[0].Change.Int())

	require.NoError(t, again.WriteAttribute(1, temperature, 0x0000, zcl.S16(0x0100)))
	reqs := again.link.Drain()
	require.Len(t, reqs, 1)
	assert.Equal(t, peerAddr, reqs[0].DstAddr)
}

func TestReceivedReportsAndTimeout(t *testing.T) {
	tn := newTestNode(t)
	var timeouts []TimeoutEvent
	var reports []ReportEvent
	tn.Events().On(EventReportTimeout, func(e Event) { timeouts = append(timeouts, e.Data.(TimeoutEvent)) })
	tn.Events().On(EventReportReceived, func(e Event) { reports = append(reports, e.Data.(ReportEvent)) })

	// expect the peer to report OTA client attribute 0x0006 within 30 s
	require.NoError(t, tn.Deliver(ncp.Indication{
		SrcAddr: peerAddr, SrcEP: peerEP, DstEP: 1,
		Cluster: clusters.OTAUpgrade.ID, Profile: ncp.ProfileHA,
		Payload: []byte{0x08, 0x70, 0x06, 0x01, 0x06, 0x00, 0x1E, 0x00},
	}))
	assert.Equal(t, [][]byte{{0x10, 0x70, 0x07, 0x00}}, tn.sent())

	tn.tick(20 * time.Second)
	require.NoError(t, tn.Deliver(ncp.Indication{
		SrcAddr: peerAddr, SrcEP: peerEP, DstEP: 1,
		Cluster: clusters.OTAUpgrade.ID, Profile: ncp.ProfileHA,
		Payload: []byte{0x18, 0x71, 0x0A, 0x06, 0x00, 0x30, 0x02},
	}))
	require.Len(t, reports, 1)
	assert.Equal(t, peerAddr, reports[0].Peer)
	assert.Equal(t, uint16(0x0006), reports[0].Records[0].ID)

	tn.tick(20 * time.Second)
	assert.Empty(t, timeouts)
	tn.tick(20 * time.Second)
	tn.tick(20 * time.Second)
	require.Len(t, timeouts, 1)
	assert.Equal(t, uint16(30), timeouts[0].Timeout)
}
