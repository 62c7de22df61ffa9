package ota

import (
	"io"
	"log/slog"
	"os"
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
	testMfr     uint16 = 0x131B
	testType    uint16 = 0x0001
	testVersion uint32 = 0x00010002
)

var server = node.Destination{Mode: ncp.AddrShort, Addr: 0x0000, Endpoint: 1}

type fixture struct {
	n      *node.Node
	c      *Client
	reg    *zcl.Registry
	link   *ncp.Loopback
	clock  *node.ManualClock
	sink   FileSink
	events []node.Event
	seq    uint8
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	reg := zcl.NewRegistry(logger)
	require.NoError(t, clusters.RegisterAll(reg))
	link := ncp.NewLoopback(64)
	clock := node.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	n := node.New(reg, link, node.WithLogger(logger), node.WithClock(clock))
	require.NoError(t, n.RegisterEndpoint(node.EndpointConfig{
		ID:        1,
		ProfileID: ncp.ProfileHA,
		DeviceID:  0x0100,
		Servers:   []uint16{clusters.Basic.ID},
		Clients:   []uint16{clusters.OTAUpgrade.ID},
	}))
	t.Cleanup(func() { n.Close() })

	cfg.Endpoint = 1
	cfg.ManufacturerCode = testMfr
	cfg.ImageType = testType
	f := &fixture{n: n, reg: reg, link: link, clock: clock, sink: FileSink{Dir: t.TempDir()}}
	f.c = New(n, cfg, f.sink)
	n.Events().OnAll(func(e node.Event) { f.events = append(f.events, e) })
	return f
}

// testImage returns an OTA file of size bytes with a valid header.
func testImage(t *testing.T, size int) []byte {
	t.Helper()
	img := make([]byte, size)
	h := Header{
		ManufacturerCode: testMfr,
		ImageType:        testType,
		FileVersion:      testVersion,
		StackVersion:     0x0002,
		Description:      "test image",
		TotalSize:        uint32(size),
	}
	require.NoError(t, h.Encode(zcl.NewWriter(img)))
	for i := MinHeaderSize; i < size; i++ {
		img[i] = byte(i)
	}
	return img
}

// fromServer delivers a server to client OTA command.
func (f *fixture) fromServer(t *testing.T, id uint8, fill func(b *zcl.CommandBuilder)) {
	t.Helper()
	b, err := f.reg.Build(clusters.OTAUpgrade.ID, id, zcl.DirectionToClient)
	require.NoError(t, err)
	f.seq++
	b.Seq(f.seq).DisableDefaultResponse(true)
	fill(b)
	payload, err := b.Finish(make([]byte, b.Size()))
	require.NoError(t, err)
	require.NoError(t, f.n.Deliver(ncp.Indication{
		SrcAddr: server.Addr,
		SrcEP:   server.Endpoint,
		DstEP:   1,
		Cluster: clusters.OTAUpgrade.ID,
		Profile: ncp.ProfileHA,
		Payload: payload,
	}))
}

type sentCommand struct {
	def  *zcl.CommandDef
	hdr  zcl.Header
	args zcl.Args
}

// sent decodes every frame the client sent since the last call.
func (f *fixture) sent(t *testing.T) []sentCommand {
	t.Helper()
	var out []sentCommand
	for _, r := range f.link.Drain() {
		fr, err := zcl.ParseFrame(r.Payload)
		require.NoError(t, err)
		def, args, err := f.reg.DecodeCommand(r.Cluster, fr)
		require.NoError(t, err)
		out = append(out, sentCommand{def: def, hdr: fr.Header, args: args})
	}
	return out
}

func (f *fixture) only(t *testing.T, id uint8) sentCommand {
	t.Helper()
	cmds := f.sent(t)
	require.Len(t, cmds, 1)
	require.Equal(t, id, cmds[0].def.ID, "sent %s", cmds[0].def.Name)
	return cmds[0]
}

func (f *fixture) attr(t *testing.T, id uint16) zcl.Value {
	t.Helper()
	v, err := f.n.ReadAttribute(1, clusters.OTAUpgrade.ID, id)
	require.NoError(t, err)
	return v
}

func (f *fixture) failures() []FailureEvent {
	var out []FailureEvent
	for _, e := range f.events {
		if e.Type == EventFailed {
			out = append(out, e.Data.(FailureEvent))
		}
	}
	return out
}

func (f *fixture) offer(t *testing.T, size int) {
	t.Helper()
	f.fromServer(t, clusters.OTACmdQueryNextImageResponse, func(b *zcl.CommandBuilder) {
		b.Uint("Status", 0).
			Uint("ManufacturerCode", uint64(testMfr)).
			Uint("ImageType", uint64(testType)).
			Uint("FileVersion", uint64(testVersion)).
			Uint("ImageSize", uint64(size))
	})
}

func (f *fixture) block(t *testing.T, offset uint32, data []byte) {
	t.Helper()
	f.fromServer(t, clusters.OTACmdImageBlockResponse, func(b *zcl.CommandBuilder) {
		b.Uint("Status", 0).
			Uint("ManufacturerCode", uint64(testMfr)).
			Uint("ImageType", uint64(testType)).
			Uint("FileVersion", uint64(testVersion)).
			Uint("FileOffset", uint64(offset)).
			Bytes("ImageData", data)
	})
}

func TestDownloadAndUpgrade(t *testing.T) {
	var applied []Image
	f := newFixture(t, Config{Apply: func(img Image, path string) error {
		applied = append(applied, img)
		return nil
	}})
	img := testImage(t, 2048)

	require.NoError(t, f.c.Query(server, time.Minute))
	q := f.only(t, clusters.OTACmdQueryNextImageRequest)
	assert.Equal(t, uint64(testMfr), q.args.Uint("ManufacturerCode"))
	assert.False(t, q.args.Has("HardwareVersion"))
	assert.Equal(t, StateQuerying, f.c.State())

	f.offer(t, len(img))
	assert.Equal(t, StateDownloading, f.c.State())
	assert.Equal(t, uint64(clusters.OTAStatusDownloadInProgress), f.attr(t, clusters.OTAImageUpgradeStatus).Uint())

	var offsets []uint32
	for f.c.State() == StateDownloading {
		req := f.only(t, clusters.OTACmdImageBlockRequest)
		offset := uint32(req.args.Uint("FileOffset"))
		size := uint32(req.args.Uint("MaximumDataSize"))
		require.Equal(t, uint32(64), size)
		offsets = append(offsets, offset)
		f.block(t, offset, img[offset:offset+size])
		if offset == 0x400 {
			assert.Equal(t, uint64(0x440), f.attr(t, clusters.OTAFileOffset).Uint())
		}
	}
	assert.Len(t, offsets, 2048/64)
	assert.Contains(t, offsets, uint32(0x400))

	end := f.only(t, clusters.OTACmdUpgradeEndRequest)
	assert.Equal(t, uint64(zcl.StatusSuccess), end.args.Uint("Status"))
	assert.Equal(t, uint64(testVersion), end.args.Uint("FileVersion"))
	assert.Equal(t, StateWaitingForUpgrade, f.c.State())
	assert.Equal(t, uint64(testVersion), f.attr(t, clusters.OTADownloadedFileVersion).Uint())
	assert.Equal(t, uint64(clusters.OTAStatusDownloadComplete), f.attr(t, clusters.OTAImageUpgradeStatus).Uint())

	stored, err := os.ReadFile(f.sink.Path(Image{ManufacturerCode: testMfr, ImageType: testType, FileVersion: testVersion}))
	require.NoError(t, err)
	assert.Equal(t, img, stored)

	f.fromServer(t, clusters.OTACmdUpgradeEndResponse, func(b *zcl.CommandBuilder) {
		b.Uint("ManufacturerCode", uint64(testMfr)).
			Uint("ImageType", uint64(testType)).
			Uint("FileVersion", uint64(testVersion)).
			Uint("CurrentTime", 1000).
			Uint("UpgradeTime", 1005)
	})
	assert.Equal(t, uint64(clusters.OTAStatusCountDown), f.attr(t, clusters.OTAImageUpgradeStatus).Uint())
	f.clock.Advance(4 * time.Second)
	assert.Empty(t, applied)
	f.clock.Advance(time.Second)

	require.Len(t, applied, 1)
	assert.Equal(t, testVersion, applied[0].FileVersion)
	assert.Equal(t, StateIdle, f.c.State())
	assert.Equal(t, uint64(testVersion), f.attr(t, clusters.OTACurrentFileVersion).Uint())
	assert.Equal(t, uint64(clusters.OTAStatusNormal), f.attr(t, clusters.OTAImageUpgradeStatus).Uint())
	assert.Empty(t, f.failures())
}

func TestWaitForData(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.c.Query(server, time.Minute))
	f.sent(t)
	f.offer(t, 1024)
	f.only(t, clusters.OTACmdImageBlockRequest)

	f.fromServer(t, clusters.OTACmdImageBlockResponse, func(b *zcl.CommandBuilder) {
		b.Uint("Status", uint64(zcl.StatusWaitForData)).
			Uint("CurrentTime", 5000).
			Uint("RequestTime", 5003).
			Uint("MinimumBlockPeriod", 0)
	})
	assert.Empty(t, f.sent(t))
	assert.Equal(t, StateDownloading, f.c.State())

	f.clock.Advance(3 * time.Second)
	req := f.only(t, clusters.OTACmdImageBlockRequest)
	assert.Equal(t, uint64(0), req.args.Uint("FileOffset"))
}

func TestInvalidHeaderAbortsDownload(t *testing.T) {
	f := newFixture(t, Config{})
	img := testImage(t, 512)
	img[0] = 0x00

	require.NoError(t, f.c.Query(server, time.Minute))
	f.sent(t)
	f.offer(t, len(img))
	f.only(t, clusters.OTACmdImageBlockRequest)
	f.block(t, 0, img[:64])

	end := f.only(t, clusters.OTACmdUpgradeEndRequest)
	assert.Equal(t, uint64(zcl.StatusInvalidImage), end.args.Uint("Status"))
	assert.Equal(t, StateIdle, f.c.State())
	assert.True(t, f.attr(t, clusters.OTAFileOffset).IsInvalid())

	fails := f.failures()
	require.Len(t, fails, 1)
	assert.Equal(t, zcl.StatusInvalidImage, fails[0].Status)
	assert.Equal(t, StateDownloading, fails[0].State)
}

func TestDeadlineReturnsToIdle(t *testing.T) {
	f := newFixture(t, Config{ResponseTimeout: time.Minute})
	require.NoError(t, f.c.Query(server, 5*time.Second))
	f.offer(t, 1024)
	require.Equal(t, StateDownloading, f.c.State())

	f.clock.Advance(5 * time.Second)
	assert.Equal(t, StateIdle, f.c.State())
	fails := f.failures()
	require.Len(t, fails, 1)
	assert.Equal(t, zcl.StatusTimeout, fails[0].Status)
	assert.Equal(t, uint64(clusters.OTAStatusNormal), f.attr(t, clusters.OTAImageUpgradeStatus).Uint())
}

func TestBlockRequestRetries(t *testing.T) {
	f := newFixture(t, Config{ResponseTimeout: time.Second, Retries: 2})
	require.NoError(t, f.c.Query(server, time.Hour))
	f.sent(t)
	f.offer(t, 1024)
	f.only(t, clusters.OTACmdImageBlockRequest)

	f.clock.Advance(time.Second)
	f.only(t, clusters.OTACmdImageBlockRequest)
	f.clock.Advance(time.Second)
	f.only(t, clusters.OTACmdImageBlockRequest)
	assert.Equal(t, StateDownloading, f.c.State())

	f.clock.Advance(time.Second)
	assert.Equal(t, StateIdle, f.c.State())
	require.Len(t, f.failures(), 1)
}

func TestNoImageAvailable(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.c.Query(server, time.Minute))
	assert.ErrorIs(t, f.c.Query(server, time.Minute), ErrBusy)

	f.fromServer(t, clusters.OTACmdQueryNextImageResponse, func(b *zcl.CommandBuilder) {
		b.Uint("Status", uint64(zcl.StatusNoImageAvailable))
	})
	assert.Equal(t, StateIdle, f.c.State())
	fails := f.failures()
	require.Len(t, fails, 1)
	assert.Equal(t, zcl.StatusNoImageAvailable, fails[0].Status)
}

func TestOversizedImageRefused(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.c.Query(server, time.Minute))
	f.sent(t)

	f.offer(t, 0xFFFFFFFF)
	assert.Equal(t, StateIdle, f.c.State())
	assert.Empty(t, f.sent(t), "no block may be requested")
	assert.Nil(t, f.c.buf)
	fails := f.failures()
	require.Len(t, fails, 1)
	assert.Equal(t, zcl.StatusInsufficientSpace, fails[0].Status)
	assert.True(t, f.attr(t, clusters.OTAFileOffset).IsInvalid())

	// a configured limit applies the same way
	f = newFixture(t, Config{MaxImageSize: 1024})
	require.NoError(t, f.c.Query(server, time.Minute))
	f.sent(t)
	f.offer(t, 1025)
	assert.Equal(t, StateIdle, f.c.State())
	require.Len(t, f.failures(), 1)

	require.NoError(t, f.c.Query(server, time.Minute))
	f.sent(t)
	f.offer(t, 1024)
	assert.Equal(t, StateDownloading, f.c.State())
	f.only(t, clusters.OTACmdImageBlockRequest)
}

func TestImageNotify(t *testing.T) {
	f := newFixture(t, Config{HardwareVersion: 0x0003})

	// same version as installed: ignored
	f.fromServer(t, clusters.OTACmdImageNotify, func(b *zcl.CommandBuilder) {
		b.Uint("PayloadType", clusters.NotifyFileVersion).
			Uint("QueryJitter", 100).
			Uint("ManufacturerCode", uint64(testMfr)).
			Uint("ImageType", uint64(testType)).
			Uint("NewFileVersion", 0)
	})
	assert.Empty(t, f.sent(t))
	assert.Equal(t, StateIdle, f.c.State())

	f.fromServer(t, clusters.OTACmdImageNotify, func(b *zcl.CommandBuilder) {
		b.Uint("PayloadType", clusters.NotifyJitter).Uint("QueryJitter", 100)
	})
	q := f.only(t, clusters.OTACmdQueryNextImageRequest)
	assert.Equal(t, f.seq, q.hdr.Seq)
	assert.Equal(t, uint64(0x0003), q.args.Uint("HardwareVersion"))
	assert.Equal(t, StateQuerying, f.c.State())
}

func TestAbortDuringDownload(t *testing.T) {
	f := newFixture(t, Config{})
	require.NoError(t, f.c.Query(server, time.Minute))
	f.offer(t, 1024)
	f.sent(t)

	require.NoError(t, f.c.Abort())
	end := f.only(t, clusters.OTACmdUpgradeEndRequest)
	assert.Equal(t, uint64(zcl.StatusAbort), end.args.Uint("Status"))
	assert.Equal(t, StateIdle, f.c.State())
}
