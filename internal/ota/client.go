package ota

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// State is the client state.
type State uint8

const (
	StateIdle State = iota
	StateQuerying
	StateDownloading
	StateWaitingForUpgrade
	StateUpgrading
)

var stateNames = [...]string{"idle", "querying", "downloading", "waiting_for_upgrade", "upgrading"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Event names emitted through the node event bus.
const (
	EventState      = "ota_state"
	EventProgress   = "ota_progress"
	EventDownloaded = "ota_downloaded"
	EventUpgraded   = "ota_upgraded"
	EventFailed     = "ota_failed"
)

// StateEvent is the payload of EventState.
type StateEvent struct {
	Endpoint uint8 `json:"endpoint"`
	From     State `json:"from"`
	To       State `json:"to"`
}

// ProgressEvent is the payload of EventProgress, EventDownloaded and
// EventUpgraded.
type ProgressEvent struct {
	Endpoint uint8  `json:"endpoint"`
	Image    Image  `json:"image"`
	Offset   uint32 `json:"offset"`
	Path     string `json:"path,omitempty"`
}

// FailureEvent is the payload of EventFailed.
type FailureEvent struct {
	Endpoint uint8      `json:"endpoint"`
	Image    Image      `json:"image"`
	State    State      `json:"state"`
	Status   zcl.Status `json:"status"`
	Reason   string     `json:"reason"`
}

var ErrBusy = errors.New("ota: upgrade already in progress")

// Wildcards accepted in server commands.
const (
	anyManufacturer uint16 = 0xFFFF
	anyImageType    uint16 = 0xFFFF
	anyFileVersion  uint32 = 0xFFFFFFFF
)

// Config configures a Client.
type Config struct {
	Endpoint         uint8
	ManufacturerCode uint16
	ImageType        uint16
	// HardwareVersion is sent with queries when non-zero.
	HardwareVersion uint16
	// BlockSize is the MaximumDataSize of block requests.
	BlockSize uint8
	// ResponseTimeout bounds the wait for each server response.
	ResponseTimeout time.Duration
	// Retries is how often a block request is repeated before giving up.
	Retries int
	// Deadline bounds a download started by an Image Notify.
	Deadline time.Duration
	// MaxImageSize is the largest image accepted for download.
	MaxImageSize uint32
	// Apply installs a downloaded image when its upgrade time comes.
	Apply func(img Image, path string) error
}

func (c *Config) defaults() {
	if c.BlockSize == 0 {
		c.BlockSize = 64
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = 10 * time.Second
	}
	if c.Retries == 0 {
		c.Retries = 3
	}
	if c.Deadline == 0 {
		c.Deadline = 30 * time.Minute
	}
	if c.MaxImageSize == 0 {
		c.MaxImageSize = DefaultMaxImageSize
	}
}

// DefaultMaxImageSize bounds downloads when Config.MaxImageSize is zero.
const DefaultMaxImageSize = 16 << 20

// initialBufSize caps the buffer preallocated for a download; it grows as
// blocks arrive.
const initialBufSize = 64 << 10

// Client runs the OTA Upgrade client state machine on one endpoint. All of
// its state is touched with the node locked: from command handlers, timers
// and Do.
type Client struct {
	n      *node.Node
	cfg    Config
	sink   Sink
	logger *slog.Logger

	state   State
	server  node.Destination
	image   Image
	header  *Header
	buf     []byte
	path    string
	retries int

	deadline    func() bool
	deadlineGen uint64
	timer       func() bool
	timerGen    uint64
}

// New creates a client and installs its command handlers on n.
func New(n *node.Node, cfg Config, sink Sink) *Client {
	cfg.defaults()
	c := &Client{
		n:      n,
		cfg:    cfg,
		sink:   sink,
		logger: n.Logger().With("component", "ota"),
	}
	ota := clusters.OTAUpgrade.ID
	n.HandleCommand(ota, zcl.DirectionToClient, clusters.OTACmdImageNotify, c.onImageNotify)
	n.HandleCommand(ota, zcl.DirectionToClient, clusters.OTACmdQueryNextImageResponse, c.onQueryResponse)
	n.HandleCommand(ota, zcl.DirectionToClient, clusters.OTACmdImageBlockResponse, c.onBlockResponse)
	n.HandleCommand(ota, zcl.DirectionToClient, clusters.OTACmdUpgradeEndResponse, c.onUpgradeEndResponse)
	return c
}

// State returns the current state.
func (c *Client) State() State {
	var s State
	c.n.Do(func(*node.Tx) error { s = c.state; return nil })
	return s
}

// Image returns the image being downloaded or waiting for upgrade.
func (c *Client) Image() Image {
	var img Image
	c.n.Do(func(*node.Tx) error { img = c.image; return nil })
	return img
}

// Query asks server for the next image. The download must reach the
// waiting-for-upgrade state within deadline or the client gives up.
func (c *Client) Query(server node.Destination, deadline time.Duration) error {
	return c.n.Do(func(tx *node.Tx) error {
		if c.state != StateIdle {
			return ErrBusy
		}
		c.server = server
		c.arm(tx, deadline)
		return c.query(tx, nil)
	})
}

// Abort stops any transfer in progress.
func (c *Client) Abort() error {
	return c.n.Do(func(tx *node.Tx) error {
		switch c.state {
		case StateIdle:
		case StateDownloading:
			c.abortImage(tx, zcl.StatusAbort, "aborted")
		default:
			c.fail(tx, zcl.StatusAbort, "aborted")
		}
		return nil
	})
}

func (c *Client) setState(tx *node.Tx, s State) {
	if s == c.state {
		return
	}
	c.logger.Debug("state", "ep", c.cfg.Endpoint, "from", c.state, "to", s)
	tx.Emit(EventState, StateEvent{Endpoint: c.cfg.Endpoint, From: c.state, To: s})
	c.state = s
}

func (c *Client) set(tx *node.Tx, attr uint16, v zcl.Value) {
	if err := tx.Set(c.cfg.Endpoint, clusters.OTAUpgrade.ID, attr, v); err != nil {
		c.logger.Warn("attribute update", "attr", fmt.Sprintf("0x%04X", attr), "err", err)
	}
}

func (c *Client) currentVersion(tx *node.Tx) uint32 {
	v := tx.Value(c.cfg.Endpoint, clusters.OTAUpgrade.ID, clusters.OTACurrentFileVersion)
	if v.IsInvalid() || v.IsNull() {
		return 0
	}
	return uint32(v.Uint())
}

// arm starts the overall deadline.
func (c *Client) arm(tx *node.Tx, d time.Duration) {
	c.disarm()
	gen := c.deadlineGen
	c.deadline = tx.After(d, func(tx *node.Tx) {
		if gen != c.deadlineGen {
			return
		}
		c.deadline = nil
		if c.state == StateQuerying || c.state == StateDownloading {
			c.fail(tx, zcl.StatusTimeout, "deadline expired")
		}
	})
}

func (c *Client) disarm() {
	c.deadlineGen++
	if c.deadline != nil {
		c.deadline()
		c.deadline = nil
	}
}

// wait arms the response timer; fn runs unless the timer is stopped or
// replaced first.
func (c *Client) wait(tx *node.Tx, d time.Duration, fn func(tx *node.Tx)) {
	c.stopWait()
	gen := c.timerGen
	c.timer = tx.After(d, func(tx *node.Tx) {
		if gen != c.timerGen {
			return
		}
		c.timer = nil
		fn(tx)
	})
}

func (c *Client) stopWait() {
	c.timerGen++
	if c.timer != nil {
		c.timer()
		c.timer = nil
	}
}

func (c *Client) command(tx *node.Tx, id uint8, fill func(b *zcl.CommandBuilder)) error {
	b, err := tx.Build(clusters.OTAUpgrade.ID, id, zcl.DirectionToServer)
	if err != nil {
		return err
	}
	fill(b)
	_, err = tx.Command(node.Command{Endpoint: c.cfg.Endpoint, Dst: c.server, Frame: b})
	return err
}

func (c *Client) queryArgs(tx *node.Tx) zcl.Args {
	ctrl := uint64(0)
	if c.cfg.HardwareVersion != 0 {
		ctrl |= clusters.OTAHardwareVersionPresent
	}
	args := zcl.Args{}.
		Set("FieldControl", zcl.U8(uint8(ctrl))).
		Set("ManufacturerCode", zcl.U16(c.cfg.ManufacturerCode)).
		Set("ImageType", zcl.U16(c.cfg.ImageType)).
		Set("FileVersion", zcl.U32(c.currentVersion(tx)))
	if ctrl != 0 {
		args = args.Set("HardwareVersion", zcl.U16(c.cfg.HardwareVersion))
	}
	return args
}

// query sends Query Next Image Request, as the reply to notify when given.
func (c *Client) query(tx *node.Tx, notify *node.Request) error {
	var err error
	if notify != nil {
		err = tx.Reply(notify, clusters.OTACmdQueryNextImageRequest, c.queryArgs(tx))
	} else {
		err = c.command(tx, clusters.OTACmdQueryNextImageRequest, func(b *zcl.CommandBuilder) {
			b.Args(c.queryArgs(tx))
		})
	}
	if err != nil {
		c.fail(tx, zcl.StatusFailure, fmt.Sprintf("query: %v", err))
		return err
	}
	c.setState(tx, StateQuerying)
	c.wait(tx, c.cfg.ResponseTimeout, func(tx *node.Tx) {
		c.fail(tx, zcl.StatusTimeout, "no query next image response")
	})
	return nil
}

func (c *Client) onImageNotify(tx *node.Tx, req *node.Request) error {
	if req.Endpoint != c.cfg.Endpoint || c.state != StateIdle {
		return nil
	}
	a := req.Args
	kind := a.Uint("PayloadType")
	if kind > clusters.NotifyFileVersion {
		return zcl.Errorf(zcl.StatusInvalidField, "image notify payload type %d", kind)
	}
	jitter := a.Uint("QueryJitter")
	if jitter == 0 || jitter > 100 {
		return zcl.Errorf(zcl.StatusInvalidField, "query jitter %d", jitter)
	}
	if kind >= clusters.NotifyManufacturer && !matches16(uint16(a.Uint("ManufacturerCode")), c.cfg.ManufacturerCode, anyManufacturer) {
		return nil
	}
	if kind >= clusters.NotifyImageType && !matches16(uint16(a.Uint("ImageType")), c.cfg.ImageType, anyImageType) {
		return nil
	}
	if kind >= clusters.NotifyFileVersion && uint32(a.Uint("NewFileVersion")) == c.currentVersion(tx) {
		return nil
	}
	if uint64(rand.IntN(100)) >= jitter {
		return nil
	}
	c.server = node.Destination{Mode: ncp.AddrShort, Addr: req.Source.SrcAddr, Endpoint: req.Source.SrcEP}
	c.logger.Info("image notify", "server", fmt.Sprintf("0x%04X", req.Source.SrcAddr), "payload_type", kind)
	c.arm(tx, c.cfg.Deadline)
	if req.Source.Broadcast || req.Source.Group {
		return c.query(tx, nil)
	}
	return c.query(tx, req)
}

func matches16(got, want, wildcard uint16) bool {
	return got == want || got == wildcard
}

func (c *Client) onQueryResponse(tx *node.Tx, req *node.Request) error {
	if req.Endpoint != c.cfg.Endpoint || c.state != StateQuerying {
		return nil
	}
	c.stopWait()
	a := req.Args
	if st := zcl.Status(a.Uint("Status")); st != zcl.StatusSuccess {
		c.fail(tx, st, "no image offered")
		return nil
	}
	img := Image{
		ManufacturerCode: uint16(a.Uint("ManufacturerCode")),
		ImageType:        uint16(a.Uint("ImageType")),
		FileVersion:      uint32(a.Uint("FileVersion")),
		Size:             uint32(a.Uint("ImageSize")),
	}
	switch {
	case img.ManufacturerCode != c.cfg.ManufacturerCode || img.ImageType != c.cfg.ImageType:
		c.fail(tx, zcl.StatusInvalidImage, fmt.Sprintf("offered %s, not ours", img))
		return nil
	case img.Size < MinHeaderSize:
		c.fail(tx, zcl.StatusInvalidImage, fmt.Sprintf("image size %d below header size", img.Size))
		return nil
	case img.Size > c.cfg.MaxImageSize:
		c.fail(tx, zcl.StatusInsufficientSpace, fmt.Sprintf("image size %d above limit %d", img.Size, c.cfg.MaxImageSize))
		return nil
	}
	c.image = img
	c.header = nil
	c.buf = make([]byte, 0, min(img.Size, initialBufSize))
	c.retries = 0
	c.logger.Info("download started", "image", img.String(), "size", img.Size)
	c.set(tx, clusters.OTAImageTypeID, zcl.U16(img.ImageType))
	c.set(tx, clusters.OTAFileOffset, zcl.U32(0))
	c.set(tx, clusters.OTAImageUpgradeStatus, zcl.E8(clusters.OTAStatusDownloadInProgress))
	c.setState(tx, StateDownloading)
	c.requestBlock(tx)
	return nil
}

func (c *Client) requestBlock(tx *node.Tx) {
	offset := uint32(len(c.buf))
	err := c.command(tx, clusters.OTACmdImageBlockRequest, func(b *zcl.CommandBuilder) {
		b.Uint("FieldControl", 0).
			Uint("ManufacturerCode", uint64(c.image.ManufacturerCode)).
			Uint("ImageType", uint64(c.image.ImageType)).
			Uint("FileVersion", uint64(c.image.FileVersion)).
			Uint("FileOffset", uint64(offset)).
			Uint("MaximumDataSize", uint64(c.cfg.BlockSize))
	})
	if err != nil {
		c.fail(tx, zcl.StatusFailure, fmt.Sprintf("block request: %v", err))
		return
	}
	c.wait(tx, c.cfg.ResponseTimeout, func(tx *node.Tx) {
		c.retries++
		if c.retries > c.cfg.Retries {
			c.fail(tx, zcl.StatusTimeout, fmt.Sprintf("no block at offset %d", offset))
			return
		}
		c.logger.Debug("block request retry", "offset", offset, "attempt", c.retries)
		c.requestBlock(tx)
	})
}

func (c *Client) sameImage(a zcl.Args) bool {
	return uint16(a.Uint("ManufacturerCode")) == c.image.ManufacturerCode &&
		uint16(a.Uint("ImageType")) == c.image.ImageType &&
		uint32(a.Uint("FileVersion")) == c.image.FileVersion
}

func (c *Client) onBlockResponse(tx *node.Tx, req *node.Request) error {
	if req.Endpoint != c.cfg.Endpoint || c.state != StateDownloading {
		return nil
	}
	a := req.Args
	switch st := zcl.Status(a.Uint("Status")); st {
	case zcl.StatusSuccess:
	case zcl.StatusWaitForData:
		c.stopWait()
		period := a.Uint("MinimumBlockPeriod")
		c.set(tx, clusters.OTAMinimumBlockPeriod, zcl.U16(uint16(min(period, 0x0258))))
		d := delay(uint32(a.Uint("CurrentTime")), uint32(a.Uint("RequestTime")))
		d = max(d, time.Duration(period)*time.Millisecond)
		c.logger.Debug("server asked to wait", "delay", d)
		c.wait(tx, d, c.requestBlock)
		return nil
	default:
		c.fail(tx, st, "server stopped the transfer")
		return nil
	}

	if !c.sameImage(a) {
		return zcl.Errorf(zcl.StatusInvalidField, "block for another image")
	}
	offset := uint32(a.Uint("FileOffset"))
	if offset != uint32(len(c.buf)) {
		c.logger.Debug("block out of order", "offset", offset, "want", len(c.buf))
		return nil
	}
	data := a.Bytes("ImageData")
	if uint64(len(c.buf))+uint64(len(data)) > uint64(c.image.Size) {
		c.abortImage(tx, zcl.StatusInvalidImage, "block runs past the image size")
		return nil
	}
	c.stopWait()
	c.retries = 0
	c.buf = append(c.buf, data...)
	offset = uint32(len(c.buf))
	c.set(tx, clusters.OTAFileOffset, zcl.U32(offset))
	tx.Emit(EventProgress, ProgressEvent{Endpoint: c.cfg.Endpoint, Image: c.image, Offset: offset})

	if c.header == nil && len(c.buf) >= MinHeaderSize {
		h, err := ParseHeader(c.buf)
		switch {
		case errors.Is(err, zcl.ErrShortBuffer):
			// optional header fields still outstanding
		case err != nil:
			c.abortImage(tx, zcl.StatusInvalidImage, err.Error())
			return nil
		default:
			if err := h.Matches(c.image); err != nil {
				c.abortImage(tx, zcl.StatusInvalidImage, err.Error())
				return nil
			}
			c.header = &h
		}
	}

	if offset < c.image.Size {
		c.requestBlock(tx)
		return nil
	}
	c.downloaded(tx)
	return nil
}

// delay converts a server's CurrentTime / target time pair to a wait. A zero
// CurrentTime makes the target an offset in seconds.
func delay(current, target uint32) time.Duration {
	switch {
	case current == 0:
		return time.Duration(target) * time.Second
	case target > current:
		return time.Duration(target-current) * time.Second
	}
	return 0
}

func (c *Client) downloaded(tx *node.Tx) {
	if c.header == nil {
		c.abortImage(tx, zcl.StatusInvalidImage, "image ended inside its header")
		return
	}
	path, err := c.sink.Store(c.image, c.buf)
	if err != nil {
		c.abortImage(tx, zcl.StatusAbort, err.Error())
		return
	}
	c.path = path
	c.buf = nil
	c.disarm()
	c.logger.Info("download complete", "image", c.image.String(), "path", path)
	c.set(tx, clusters.OTADownloadedFileVersion, zcl.U32(c.image.FileVersion))
	c.set(tx, clusters.OTAImageUpgradeStatus, zcl.E8(clusters.OTAStatusDownloadComplete))
	tx.Emit(EventDownloaded, ProgressEvent{Endpoint: c.cfg.Endpoint, Image: c.image, Offset: c.image.Size, Path: path})
	if err := c.endRequest(tx, zcl.StatusSuccess); err != nil {
		c.fail(tx, zcl.StatusFailure, fmt.Sprintf("upgrade end request: %v", err))
		return
	}
	c.setState(tx, StateWaitingForUpgrade)
	c.wait(tx, c.cfg.ResponseTimeout, func(tx *node.Tx) {
		c.fail(tx, zcl.StatusTimeout, "no upgrade end response")
	})
}

func (c *Client) endRequest(tx *node.Tx, st zcl.Status) error {
	return c.command(tx, clusters.OTACmdUpgradeEndRequest, func(b *zcl.CommandBuilder) {
		b.Uint("Status", uint64(st)).
			Uint("ManufacturerCode", uint64(c.image.ManufacturerCode)).
			Uint("ImageType", uint64(c.image.ImageType)).
			Uint("FileVersion", uint64(c.image.FileVersion))
	})
}

// abortImage tells the server the image was refused and fails.
func (c *Client) abortImage(tx *node.Tx, st zcl.Status, reason string) {
	if err := c.endRequest(tx, st); err != nil {
		c.logger.Warn("upgrade end request", "err", err)
	}
	c.fail(tx, st, reason)
}

func (c *Client) onUpgradeEndResponse(tx *node.Tx, req *node.Request) error {
	if req.Endpoint != c.cfg.Endpoint || c.state != StateWaitingForUpgrade {
		return nil
	}
	a := req.Args
	if !matches16(uint16(a.Uint("ManufacturerCode")), c.image.ManufacturerCode, anyManufacturer) ||
		!matches16(uint16(a.Uint("ImageType")), c.image.ImageType, anyImageType) {
		return nil
	}
	if v := uint32(a.Uint("FileVersion")); v != c.image.FileVersion && v != anyFileVersion {
		return nil
	}
	c.stopWait()
	upgradeAt := uint32(a.Uint("UpgradeTime"))
	if upgradeAt == clusters.UpgradeTimeWait {
		c.set(tx, clusters.OTAImageUpgradeStatus, zcl.E8(clusters.OTAStatusWaitingToUpgrade))
		c.logger.Info("upgrade deferred until the server says so", "image", c.image.String())
		return nil
	}
	d := delay(uint32(a.Uint("CurrentTime")), upgradeAt)
	c.set(tx, clusters.OTAImageUpgradeStatus, zcl.E8(clusters.OTAStatusCountDown))
	c.logger.Info("upgrade scheduled", "image", c.image.String(), "in", d)
	c.wait(tx, d, c.upgrade)
	return nil
}

func (c *Client) upgrade(tx *node.Tx) {
	c.setState(tx, StateUpgrading)
	if c.cfg.Apply != nil {
		if err := c.cfg.Apply(c.image, c.path); err != nil {
			c.fail(tx, zcl.StatusFailure, fmt.Sprintf("apply: %v", err))
			return
		}
	}
	c.set(tx, clusters.OTACurrentFileVersion, zcl.U32(c.image.FileVersion))
	c.set(tx, clusters.OTAImageUpgradeStatus, zcl.E8(clusters.OTAStatusNormal))
	c.set(tx, clusters.OTAFileOffset, zcl.Invalid(zcl.TypeUint32))
	c.logger.Info("upgraded", "image", c.image.String())
	tx.Emit(EventUpgraded, ProgressEvent{Endpoint: c.cfg.Endpoint, Image: c.image, Offset: c.image.Size, Path: c.path})
	c.reset(tx)
}

// fail returns to idle, dropping any partial image.
func (c *Client) fail(tx *node.Tx, st zcl.Status, reason string) {
	c.logger.Warn("upgrade failed", "state", c.state, "image", c.image.String(), "status", st, "reason", reason)
	tx.Emit(EventFailed, FailureEvent{Endpoint: c.cfg.Endpoint, Image: c.image, State: c.state, Status: st, Reason: reason})
	c.set(tx, clusters.OTAImageUpgradeStatus, zcl.E8(clusters.OTAStatusNormal))
	c.set(tx, clusters.OTAFileOffset, zcl.Invalid(zcl.TypeUint32))
	c.reset(tx)
}

func (c *Client) reset(tx *node.Tx) {
	c.stopWait()
	c.disarm()
	c.buf = nil
	c.header = nil
	c.image = Image{}
	c.path = ""
	c.retries = 0
	c.setState(tx, StateIdle)
}
