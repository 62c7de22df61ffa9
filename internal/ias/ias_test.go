package ias

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

const (
	zoneEP   uint8 = 1
	panelEP  uint8 = 2
	clientEP uint8 = 3

	cie uint64 = 0x00124B0001020304
)

type fixture struct {
	*node.Node
	reg    *zcl.Registry
	link   *ncp.Loopback
	clock  *node.ManualClock
	events []node.Event
	seq    uint8
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	reg := zcl.NewRegistry(logger)
	require.NoError(t, clusters.RegisterAll(reg))
	link := ncp.NewLoopback(64)
	clock := node.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	n := node.New(reg, link, node.WithLogger(logger), node.WithClock(clock))
	for _, ep := range []node.EndpointConfig{
		{ID: zoneEP, ProfileID: ncp.ProfileHA, DeviceID: 0x0402, Servers: []uint16{clusters.Basic.ID, clusters.IASZone.ID}},
		{ID: panelEP, ProfileID: ncp.ProfileHA, DeviceID: 0x0403, Servers: []uint16{clusters.IASACE.ID}},
		{ID: clientEP, ProfileID: ncp.ProfileHA, DeviceID: 0x0401, Clients: []uint16{clusters.IASACE.ID}},
	} {
		require.NoError(t, n.RegisterEndpoint(ep))
	}
	t.Cleanup(func() { n.Close() })
	f := &fixture{Node: n, reg: reg, link: link, clock: clock}
	n.Events().OnAll(func(e node.Event) { f.events = append(f.events, e) })
	return f
}

func (f *fixture) deliver(t *testing.T, ep uint8, cluster uint16, payload ...byte) {
	t.Helper()
	require.NoError(t, f.Deliver(ncp.Indication{
		SrcAddr: 0x0000,
		SrcEP:   1,
		DstEP:   ep,
		Cluster: cluster,
		Profile: ncp.ProfileHA,
		Payload: payload,
	}))
}

type frame struct {
	req  ncp.DataRequest
	def  *zcl.CommandDef
	f    zcl.Frame
	args zcl.Args
}

// sent decodes the cluster-specific frames sent since the last call and
// returns the raw payloads of profile-wide ones.
func (f *fixture) sent(t *testing.T) (cmds []frame, global [][]byte) {
	t.Helper()
	for _, r := range f.link.Drain() {
		fr, err := zcl.ParseFrame(r.Payload)
		require.NoError(t, err)
		if fr.IsGlobal() {
			global = append(global, r.Payload)
			continue
		}
		def, args, err := f.reg.DecodeCommand(r.Cluster, fr)
		require.NoError(t, err)
		cmds = append(cmds, frame{req: r, def: def, f: fr, args: args})
	}
	return cmds, global
}

func (f *fixture) only(t *testing.T, id uint8) frame {
	t.Helper()
	cmds, _ := f.sent(t)
	require.Len(t, cmds, 1)
	require.Equal(t, id, cmds[0].def.ID, "sent %s", cmds[0].def.Name)
	return cmds[0]
}

func (f *fixture) eventsOf(typ string) []any {
	var out []any
	for _, e := range f.events {
		if e.Type == typ {
			out = append(out, e.Data)
		}
	}
	return out
}

// pump loops every frame sent by the node back into it, as if a peer at
// 0x1234 hosted the destination endpoint. It stops when nothing is left.
func (f *fixture) pump(t *testing.T) {
	t.Helper()
	for i := 0; i < 64; i++ {
		reqs := f.link.Drain()
		if len(reqs) == 0 {
			return
		}
		for _, r := range reqs {
			require.NoError(t, f.Deliver(ncp.Indication{
				SrcAddr: 0x1234,
				SrcEP:   r.SrcEP,
				DstEP:   r.DstEP,
				Cluster: r.Cluster,
				Profile: r.Profile,
				Payload: r.Payload,
			}))
		}
	}
	t.Fatal("pump did not settle")
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func writeCIE(addr uint64) []byte {
	return append([]byte{0x00, 0x30, 0x02, 0x10, 0x00, byte(zcl.TypeEUI64)}, le64(addr)...)
}

func installZone(t *testing.T, f *fixture, auto bool) *Zones {
	t.Helper()
	z, err := InstallZones(f.Node, ZoneConfig{
		Endpoint:         zoneEP,
		ZoneType:         clusters.ZoneTypeContactSwitch,
		ManufacturerCode: 0x131B,
		AutoEnroll:       auto,
	})
	require.NoError(t, err)
	return z
}

func TestZoneEnrollment(t *testing.T) {
	f := newFixture(t)
	z := installZone(t, f, true)
	assert.Equal(t, NotEnrolled, z.State(zoneEP))
	v, err := f.ReadAttribute(zoneEP, clusters.IASZone.ID, clusters.IASZoneCIEAddress)
	require.NoError(t, err)
	assert.True(t, v.IsInvalid())

	f.deliver(t, zoneEP, clusters.IASZone.ID, writeCIE(cie)...)
	cmds, global := f.sent(t)
	assert.Equal(t, [][]byte{{0x18, 0x30, 0x04, 0x00}}, global)
	require.Len(t, cmds, 1)
	enroll := cmds[0]
	assert.Equal(t, clusters.IASZoneCmdEnrollRequest, enroll.def.ID)
	assert.Equal(t, []byte{0x15, 0x00, 0x1B, 0x13}, enroll.f.Payload)
	assert.Equal(t, zcl.DirectionToClient, enroll.f.Control.Direction)
	assert.Equal(t, ncp.AddrIEEE, enroll.req.Mode)
	assert.Equal(t, cie, enroll.req.DstIEEE)
	assert.Equal(t, EnrollRequested, z.State(zoneEP))

	f.deliver(t, zoneEP, clusters.IASZone.ID, 0x01, 0x31, clusters.IASZoneCmdEnrollResponse, clusters.EnrollSuccess, 0x07)
	_, global = f.sent(t)
	assert.Equal(t, [][]byte{{0x08, 0x31, 0x0B, 0x00, 0x00}}, global)
	assert.Equal(t, Enrolled, z.State(zoneEP))
	id, err := f.ReadAttribute(zoneEP, clusters.IASZone.ID, clusters.IASZoneID)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), id.Uint())
	st, err := f.ReadAttribute(zoneEP, clusters.IASZone.ID, clusters.IASZoneState)
	require.NoError(t, err)
	assert.Equal(t, uint64(clusters.ZoneStateEnrolled), st.Uint())

	states := f.eventsOf(EventZoneState)
	require.Len(t, states, 2)
	assert.Equal(t, Enrolled, states[1].(ZoneStateEvent).To)
	assert.Equal(t, uint8(7), states[1].(ZoneStateEvent).ZoneID)

	// rewriting the same address keeps the enrollment
	f.deliver(t, zoneEP, clusters.IASZone.ID, writeCIE(cie)...)
	cmds, _ = f.sent(t)
	assert.Empty(t, cmds)
	assert.Equal(t, Enrolled, z.State(zoneEP))
}

func TestZoneEnrollRefused(t *testing.T) {
	f := newFixture(t)
	z := installZone(t, f, true)
	f.deliver(t, zoneEP, clusters.IASZone.ID, writeCIE(cie)...)
	f.sent(t)

	f.deliver(t, zoneEP, clusters.IASZone.ID, 0x01, 0x32, clusters.IASZoneCmdEnrollResponse, clusters.EnrollNoEnrollPermit, 0x00)
	assert.Equal(t, NotEnrolled, z.State(zoneEP))
	states := f.eventsOf(EventZoneState)
	require.Len(t, states, 2)
	assert.Equal(t, uint8(clusters.EnrollNoEnrollPermit), states[1].(ZoneStateEvent).Code)
}

func TestZoneManualEnroll(t *testing.T) {
	f := newFixture(t)
	z := installZone(t, f, false)
	assert.Error(t, z.Enroll(zoneEP))

	f.deliver(t, zoneEP, clusters.IASZone.ID, writeCIE(cie)...)
	cmds, _ := f.sent(t)
	assert.Empty(t, cmds)
	assert.Equal(t, NotEnrolled, z.State(zoneEP))

	require.NoError(t, z.Enroll(zoneEP))
	f.only(t, clusters.IASZoneCmdEnrollRequest)
	assert.Equal(t, EnrollRequested, z.State(zoneEP))
}

func enrolledZone(t *testing.T, f *fixture) *Zones {
	t.Helper()
	z := installZone(t, f, true)
	f.deliver(t, zoneEP, clusters.IASZone.ID, writeCIE(cie)...)
	f.deliver(t, zoneEP, clusters.IASZone.ID, 0x01, 0x33, clusters.IASZoneCmdEnrollResponse, clusters.EnrollSuccess, 0x07)
	f.sent(t)
	require.Equal(t, Enrolled, z.State(zoneEP))
	return z
}

func TestZoneStatusNotification(t *testing.T) {
	f := newFixture(t)
	z := installZone(t, f, true)

	require.NoError(t, z.SetStatus(zoneEP, clusters.ZoneStatusAlarm1))
	cmds, _ := f.sent(t)
	assert.Empty(t, cmds, "not enrolled")
	ev := f.eventsOf(EventZoneStatus)
	require.Len(t, ev, 1)
	assert.False(t, ev[0].(ZoneStatusEvent).Notified)

	f.deliver(t, zoneEP, clusters.IASZone.ID, writeCIE(cie)...)
	f.deliver(t, zoneEP, clusters.IASZone.ID, 0x01, 0x33, clusters.IASZoneCmdEnrollResponse, clusters.EnrollSuccess, 0x07)
	f.sent(t)

	require.NoError(t, z.SetStatus(zoneEP, clusters.ZoneStatusAlarm1|clusters.ZoneStatusTamper))
	n := f.only(t, clusters.IASZoneCmdStatusChangeNotification)
	assert.Equal(t, []byte{0x05, 0x00, 0x00, 0x07, 0x00, 0x00}, n.f.Payload)
	assert.Equal(t, cie, n.req.DstIEEE)
	ev = f.eventsOf(EventZoneStatus)
	assert.True(t, ev[len(ev)-1].(ZoneStatusEvent).Notified)

	// unchanged status: nothing sent
	require.NoError(t, z.SetStatus(zoneEP, clusters.ZoneStatusAlarm1|clusters.ZoneStatusTamper))
	cmds, _ = f.sent(t)
	assert.Empty(t, cmds)
}

func TestZoneTestMode(t *testing.T) {
	f := newFixture(t)
	z := enrolledZone(t, f)

	// sensitivity level out of range
	f.deliver(t, zoneEP, clusters.IASZone.ID, 0x01, 0x40, clusters.IASZoneCmdInitiateTestMode, 0x05, 0x02)
	_, global := f.sent(t)
	assert.Equal(t, [][]byte{{0x08, 0x40, 0x0B, 0x02, 0x85}}, global)

	f.deliver(t, zoneEP, clusters.IASZone.ID, 0x01, 0x41, clusters.IASZoneCmdInitiateTestMode, 0x05, 0x01)
	n := f.only(t, clusters.IASZoneCmdStatusChangeNotification)
	assert.Equal(t, uint64(clusters.ZoneStatusTest), n.args.Uint("ZoneStatus"))
	assert.True(t, z.InTestMode(zoneEP))
	lvl, err := f.ReadAttribute(zoneEP, clusters.IASZone.ID, clusters.IASZoneCurrentSensitivityLevel)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), lvl.Uint())

	f.clock.Advance(4 * time.Second)
	assert.True(t, z.InTestMode(zoneEP))
	f.clock.Advance(time.Second)
	assert.False(t, z.InTestMode(zoneEP))
	n = f.only(t, clusters.IASZoneCmdStatusChangeNotification)
	assert.Equal(t, uint64(0), n.args.Uint("ZoneStatus"))

	// normal mode ends a running test early
	f.deliver(t, zoneEP, clusters.IASZone.ID, 0x01, 0x42, clusters.IASZoneCmdInitiateTestMode, 0x3C, 0x00)
	f.deliver(t, zoneEP, clusters.IASZone.ID, 0x01, 0x43, clusters.IASZoneCmdInitiateNormalMode)
	assert.False(t, z.InTestMode(zoneEP))
	f.sent(t)
	f.clock.Advance(time.Minute)
	cmds, _ := f.sent(t)
	assert.Empty(t, cmds)
}

func TestZoneCIECleared(t *testing.T) {
	f := newFixture(t)
	z := enrolledZone(t, f)

	f.deliver(t, zoneEP, clusters.IASZone.ID, writeCIE(0xFFFFFFFFFFFFFFFF)...)
	assert.Equal(t, NotEnrolled, z.State(zoneEP))
	id, err := f.ReadAttribute(zoneEP, clusters.IASZone.ID, clusters.IASZoneID)
	require.NoError(t, err)
	assert.Equal(t, uint64(clusters.UnenrolledZoneID), id.Uint())
	cmds, _ := f.sent(t)
	assert.Empty(t, cmds)
}

func TestInstallZonesNeedsCluster(t *testing.T) {
	f := newFixture(t)
	_, err := InstallZones(f.Node, ZoneConfig{Endpoint: panelEP})
	assert.Equal(t, zcl.StatusUnsupportedCluster, zcl.StatusOf(err))
}

func TestZoneUndividedWriteRollsBackEnroll(t *testing.T) {
	f := newFixture(t)
	z := installZone(t, f, true)

	payload := []byte{0x00, 0x10, zcl.FoundationWriteAttributesUndivided}
	payload = append(payload, 0x10, 0x00, byte(zcl.TypeEUI64))
	payload = append(payload, le64(cie)...)
	payload = append(payload, 0x00, 0x00, byte(zcl.TypeEnum8), 0x01)
	f.deliver(t, zoneEP, clusters.IASZone.ID, payload...)

	cmds, global := f.sent(t)
	assert.Equal(t, [][]byte{{0x18, 0x10, 0x04, 0x88, 0x00, 0x00}}, global)
	assert.Empty(t, cmds, "enroll request must not go out")
	v, err := f.ReadAttribute(zoneEP, clusters.IASZone.ID, clusters.IASZoneCIEAddress)
	require.NoError(t, err)
	assert.True(t, v.IsInvalid())
	assert.Equal(t, NotEnrolled, z.State(zoneEP))
	assert.Empty(t, f.eventsOf(EventZoneState))
	assert.Empty(t, f.eventsOf(node.EventAttributeChanged))

	// the same address written alone still enrolls
	f.deliver(t, zoneEP, clusters.IASZone.ID, writeCIE(cie)...)
	f.only(t, clusters.IASZoneCmdEnrollRequest)
	assert.Equal(t, EnrollRequested, z.State(zoneEP))
}
