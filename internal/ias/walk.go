package ias

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

var (
	ErrWalkBusy     = errors.New("ias: zone status walk already running")
	ErrWalkDeadline = errors.New("ias: zone status walk deadline expired")
)

// ZoneStatus is one record of a panel's Get Zone Status Response.
type ZoneStatus struct {
	ZoneID uint8  `json:"zone_id"`
	Status uint16 `json:"status"`
}

// WalkEvent is the payload of EventWalkDone and EventWalkFailed.
type WalkEvent struct {
	Endpoint uint8        `json:"endpoint"`
	Zones    []ZoneStatus `json:"zones"`
	Pages    int          `json:"pages"`
	Err      string       `json:"error,omitempty"`
}

// WalkOptions narrows a walk.
type WalkOptions struct {
	// PageSize is MaxNumberOfZoneIDs per request. Zero means 16.
	PageSize uint8
	// Mask, when non-zero, only returns zones with one of these ZoneStatus
	// bits set.
	Mask uint16
}

// ACEClient walks the zone statuses of a remote IAS ACE panel, one page per
// request, until the panel reports the list complete. It runs on an
// endpoint hosting the IAS ACE client cluster.
type ACEClient struct {
	n      *node.Node
	ep     uint8
	logger *slog.Logger

	running  bool
	server   node.Destination
	opts     WalkOptions
	seq      uint8
	zones    []ZoneStatus
	pages    int
	done     func([]ZoneStatus, error)
	deadline func() bool
	gen      uint64
}

// NewACEClient installs the Get Zone Status Response handler for ep.
func NewACEClient(n *node.Node, ep uint8) *ACEClient {
	c := &ACEClient{
		n:      n,
		ep:     ep,
		logger: n.Logger().With("component", "ias", "ep", ep),
	}
	n.HandleCommand(clusters.IASACE.ID, zcl.DirectionToClient, clusters.ACECmdGetZoneStatusResponse, c.onResponse)
	return c
}

// Running reports whether a walk is in progress.
func (c *ACEClient) Running() bool {
	var r bool
	c.n.Do(func(*node.Tx) error { r = c.running; return nil })
	return r
}

// WalkZoneStatus starts a walk of server's zone table. done runs once, with
// the node locked, when the panel reports the list complete or when
// deadline expires first.
func (c *ACEClient) WalkZoneStatus(server node.Destination, opts WalkOptions, deadline time.Duration, done func([]ZoneStatus, error)) error {
	if opts.PageSize == 0 {
		opts.PageSize = 16
	}
	return c.n.Do(func(tx *node.Tx) error {
		if c.running {
			return ErrWalkBusy
		}
		c.running = true
		c.server = server
		c.opts = opts
		c.zones = nil
		c.pages = 0
		c.done = done
		c.gen++
		gen := c.gen
		c.deadline = tx.After(deadline, func(tx *node.Tx) {
			if gen != c.gen || !c.running {
				return
			}
			c.deadline = nil
			c.finish(tx, ErrWalkDeadline)
		})
		if err := c.request(tx, 0); err != nil {
			c.finish(tx, err)
			return err
		}
		return nil
	})
}

func (c *ACEClient) request(tx *node.Tx, start uint8) error {
	b, err := tx.Build(clusters.IASACE.ID, clusters.ACECmdGetZoneStatus, zcl.DirectionToServer)
	if err != nil {
		return err
	}
	b.Uint("StartingZoneID", uint64(start)).
		Uint("MaxNumberOfZoneIDs", uint64(c.opts.PageSize)).
		Bool("ZoneStatusMaskFlag", c.opts.Mask != 0).
		Uint("ZoneStatusMask", uint64(c.opts.Mask))
	seq, err := tx.Command(node.Command{Endpoint: c.ep, Dst: c.server, Frame: b})
	if err != nil {
		return err
	}
	c.seq = seq
	c.logger.Debug("get zone status", "start", start, "seq", seq)
	return nil
}

func (c *ACEClient) onResponse(tx *node.Tx, req *node.Request) error {
	if req.Endpoint != c.ep || !c.running {
		return nil
	}
	if req.Header.Seq != c.seq || req.Source.SrcAddr != c.server.Addr {
		c.logger.Debug("stray zone status response", "seq", req.Header.Seq, "src", fmt.Sprintf("0x%04X", req.Source.SrcAddr))
		return nil
	}
	c.pages++
	recs := req.Args.Records("Zones")
	for _, r := range recs {
		c.zones = append(c.zones, ZoneStatus{ZoneID: uint8(r.Uint("ZoneID")), Status: uint16(r.Uint("ZoneStatus"))})
	}
	if req.Args.Bool("ZoneStatusComplete") || len(recs) == 0 {
		c.finish(tx, nil)
		return nil
	}
	last := c.zones[len(c.zones)-1].ZoneID
	if last == 0xFF {
		c.finish(tx, nil)
		return nil
	}
	if err := c.request(tx, last+1); err != nil {
		c.finish(tx, err)
	}
	return nil
}

func (c *ACEClient) finish(tx *node.Tx, err error) {
	c.gen++
	if c.deadline != nil {
		c.deadline()
		c.deadline = nil
	}
	c.running = false
	ev := WalkEvent{Endpoint: c.ep, Zones: c.zones, Pages: c.pages}
	if err != nil {
		ev.Err = err.Error()
		c.logger.Warn("zone status walk failed", "pages", c.pages, "zones", len(c.zones), "err", err)
		tx.Emit(EventWalkFailed, ev)
	} else {
		c.logger.Info("zone status walk complete", "pages", c.pages, "zones", len(c.zones))
		tx.Emit(EventWalkDone, ev)
	}
	if done := c.done; done != nil {
		c.done = nil
		done(c.zones, err)
	}
}
