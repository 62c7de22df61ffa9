// Package ias implements the Intruder Alarm System clusters: IAS Zone
// enrollment and status notification on the device side, an IAS ACE panel
// server backed by a zone table, and the client walk over a panel's zone
// statuses.
package ias

import (
	"fmt"
	"log/slog"
	"time"

	"zcl-node/internal/ncp"
	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// Event names emitted through the node event bus.
const (
	EventZoneState  = "ias_zone_state"
	EventZoneStatus = "ias_zone_status"
	EventPanel      = "ias_panel"
	EventAlarm      = "ias_alarm"
	EventWalkDone   = "ias_walk_done"
	EventWalkFailed = "ias_walk_failed"
)

// EnrollState is the enrollment progress of a zone.
type EnrollState uint8

const (
	NotEnrolled EnrollState = iota
	EnrollRequested
	Enrolled
)

var enrollStateNames = [...]string{"not_enrolled", "enroll_requested", "enrolled"}

func (s EnrollState) String() string {
	if int(s) < len(enrollStateNames) {
		return enrollStateNames[s]
	}
	return fmt.Sprintf("EnrollState(%d)", uint8(s))
}

func (s EnrollState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ZoneStateEvent is the payload of EventZoneState.
type ZoneStateEvent struct {
	Endpoint uint8       `json:"endpoint"`
	From     EnrollState `json:"from"`
	To       EnrollState `json:"to"`
	ZoneID   uint8       `json:"zone_id"`
	CIE      uint64      `json:"cie,omitempty"`
	Code     uint8       `json:"code,omitempty"`
}

// ZoneStatusEvent is the payload of EventZoneStatus.
type ZoneStatusEvent struct {
	Endpoint uint8  `json:"endpoint"`
	ZoneID   uint8  `json:"zone_id"`
	Status   uint16 `json:"status"`
	Notified bool   `json:"notified"`
}

// ZoneConfig describes one IAS Zone server endpoint.
type ZoneConfig struct {
	Endpoint         uint8
	ZoneType         uint16
	ManufacturerCode uint16
	// AutoEnroll sends a Zone Enroll Request as soon as a CIE writes its
	// address.
	AutoEnroll bool
	// CIEEndpoint is where enroll requests and notifications go on the
	// CIE. Zero means 1.
	CIEEndpoint uint8
}

type zone struct {
	cfg      ZoneConfig
	state    EnrollState
	testStop func() bool
	testGen  uint64
}

// Zones runs IAS Zone enrollment for every configured endpoint. Its state is
// only touched from node callbacks and Do.
type Zones struct {
	n      *node.Node
	logger *slog.Logger
	zones  map[uint8]*zone
}

// InstallZones registers the IAS Zone server behaviour on n for each config.
// Every endpoint must host the IAS Zone server cluster.
func InstallZones(n *node.Node, cfgs ...ZoneConfig) (*Zones, error) {
	z := &Zones{
		n:      n,
		logger: n.Logger().With("component", "ias"),
		zones:  make(map[uint8]*zone),
	}
	id := clusters.IASZone.ID
	err := n.Do(func(tx *node.Tx) error {
		for _, cfg := range cfgs {
			if !tx.HasCluster(cfg.Endpoint, id) {
				return zcl.Errorf(zcl.StatusUnsupportedCluster, "endpoint %d has no IAS Zone server", cfg.Endpoint)
			}
			if cfg.CIEEndpoint == 0 {
				cfg.CIEEndpoint = 1
			}
			zn := &zone{cfg: cfg}
			if tx.Value(cfg.Endpoint, id, clusters.IASZoneState).Uint() == clusters.ZoneStateEnrolled {
				zn.state = Enrolled
			}
			z.zones[cfg.Endpoint] = zn
			if err := tx.Set(cfg.Endpoint, id, clusters.IASZoneType, zcl.E16(cfg.ZoneType)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	n.OnWrite(id, z.onWrite)
	n.HandleCommand(id, zcl.DirectionToServer, clusters.IASZoneCmdEnrollResponse, z.onEnrollResponse)
	n.HandleCommand(id, zcl.DirectionToServer, clusters.IASZoneCmdInitiateNormalMode, z.onNormalMode)
	n.HandleCommand(id, zcl.DirectionToServer, clusters.IASZoneCmdInitiateTestMode, z.onTestMode)
	return z, nil
}

// State returns the enrollment state of the zone on ep.
func (z *Zones) State(ep uint8) EnrollState {
	var s EnrollState
	z.n.Do(func(*node.Tx) error {
		if zn := z.zones[ep]; zn != nil {
			s = zn.state
		}
		return nil
	})
	return s
}

// SetStatus replaces the ZoneStatus of ep. An enrolled zone notifies its CIE.
func (z *Zones) SetStatus(ep uint8, status uint16) error {
	return z.n.WriteAttribute(ep, clusters.IASZone.ID, clusters.IASZoneStatus, zcl.M16(status))
}

// Enroll sends a Zone Enroll Request to the CIE already written on ep.
func (z *Zones) Enroll(ep uint8) error {
	return z.n.Do(func(tx *node.Tx) error {
		zn := z.zones[ep]
		if zn == nil {
			return zcl.Errorf(zcl.StatusNotFound, "no IAS zone on endpoint %d", ep)
		}
		cie := tx.Value(ep, clusters.IASZone.ID, clusters.IASZoneCIEAddress)
		if cie.IsInvalid() || cie.IsNull() {
			return zcl.Errorf(zcl.StatusFailure, "endpoint %d has no CIE address", ep)
		}
		return z.requestEnroll(tx, zn, cie.Uint())
	})
}

func (z *Zones) cie(tx *node.Tx, zn *zone) node.Destination {
	addr := tx.Value(zn.cfg.Endpoint, clusters.IASZone.ID, clusters.IASZoneCIEAddress).Uint()
	return node.Destination{Mode: ncp.AddrIEEE, IEEE: addr, Endpoint: zn.cfg.CIEEndpoint}
}

func (z *Zones) setState(tx *node.Tx, zn *zone, s EnrollState, code uint8) {
	if zn.state == s {
		return
	}
	ep := zn.cfg.Endpoint
	id := uint8(tx.Value(ep, clusters.IASZone.ID, clusters.IASZoneID).Uint())
	z.logger.Info("zone enrollment", "ep", ep, "from", zn.state, "to", s, "zone_id", id)
	tx.Emit(EventZoneState, ZoneStateEvent{
		Endpoint: ep,
		From:     zn.state,
		To:       s,
		ZoneID:   id,
		CIE:      tx.Value(ep, clusters.IASZone.ID, clusters.IASZoneCIEAddress).Uint(),
		Code:     code,
	})
	prev := zn.state
	zn.state = s
	tx.OnRollback(func() { zn.state = prev })
}

func (z *Zones) requestEnroll(tx *node.Tx, zn *zone, cie uint64) error {
	b, err := tx.Build(clusters.IASZone.ID, clusters.IASZoneCmdEnrollRequest, zcl.DirectionToClient)
	if err != nil {
		return err
	}
	b.Uint("ZoneType", uint64(zn.cfg.ZoneType)).Uint("ManufacturerCode", uint64(zn.cfg.ManufacturerCode))
	dst := node.Destination{Mode: ncp.AddrIEEE, IEEE: cie, Endpoint: zn.cfg.CIEEndpoint}
	if _, err := tx.Command(node.Command{Endpoint: zn.cfg.Endpoint, Dst: dst, Frame: b}); err != nil {
		return err
	}
	z.setState(tx, zn, EnrollRequested, 0)
	return nil
}

func (z *Zones) onWrite(tx *node.Tx, c node.Change) error {
	zn := z.zones[c.Endpoint]
	if zn == nil {
		return nil
	}
	switch c.Attr.ID {
	case clusters.IASZoneCIEAddress:
		return z.cieChanged(tx, zn, c)
	case clusters.IASZoneStatus:
		return z.statusChanged(tx, zn, c)
	}
	return nil
}

func (z *Zones) cieChanged(tx *node.Tx, zn *zone, c node.Change) error {
	ep := zn.cfg.Endpoint
	if c.New.IsInvalid() {
		z.unenroll(tx, zn)
		return nil
	}
	if zn.state == Enrolled && c.Old.Uint() == c.New.Uint() {
		return nil
	}
	if zn.state != NotEnrolled {
		// another CIE took the zone over
		z.unenroll(tx, zn)
	}
	z.logger.Info("CIE address written", "ep", ep, "cie", fmt.Sprintf("%016X", c.New.Uint()), "origin", c.Origin)
	if !zn.cfg.AutoEnroll {
		return nil
	}
	return z.requestEnroll(tx, zn, c.New.Uint())
}

func (z *Zones) unenroll(tx *node.Tx, zn *zone) {
	ep := zn.cfg.Endpoint
	id := clusters.IASZone.ID
	if err := tx.Set(ep, id, clusters.IASZoneState, zcl.E8(clusters.ZoneStateNotEnrolled)); err != nil {
		z.logger.Warn("zone state update", "ep", ep, "err", err)
	}
	if err := tx.Set(ep, id, clusters.IASZoneID, zcl.U8(clusters.UnenrolledZoneID)); err != nil {
		z.logger.Warn("zone id update", "ep", ep, "err", err)
	}
	z.setState(tx, zn, NotEnrolled, 0)
}

// statusChanged sends Zone Status Change Notification for an enrolled zone.
func (z *Zones) statusChanged(tx *node.Tx, zn *zone, c node.Change) error {
	ep := zn.cfg.Endpoint
	zoneID := uint8(tx.Value(ep, clusters.IASZone.ID, clusters.IASZoneID).Uint())
	ev := ZoneStatusEvent{Endpoint: ep, ZoneID: zoneID, Status: uint16(c.New.Uint())}
	if zn.state == Enrolled {
		b, err := tx.Build(clusters.IASZone.ID, clusters.IASZoneCmdStatusChangeNotification, zcl.DirectionToClient)
		if err != nil {
			return err
		}
		b.Uint("ZoneStatus", c.New.Uint()).
			Uint("ExtendedStatus", 0).
			Uint("ZoneID", uint64(zoneID)).
			Uint("Delay", 0)
		if _, err := tx.Command(node.Command{Endpoint: ep, Dst: z.cie(tx, zn), Frame: b}); err != nil {
			return err
		}
		ev.Notified = true
	}
	tx.Emit(EventZoneStatus, ev)
	return nil
}

func (z *Zones) onEnrollResponse(tx *node.Tx, req *node.Request) error {
	zn := z.zones[req.Endpoint]
	if zn == nil {
		return zcl.Errorf(zcl.StatusUnsupClusterCommand, "no IAS zone on endpoint %d", req.Endpoint)
	}
	ep := req.Endpoint
	id := clusters.IASZone.ID
	code := uint8(req.Args.Uint("EnrollResponseCode"))
	if code != clusters.EnrollSuccess {
		z.logger.Warn("enrollment refused", "ep", ep, "code", code)
		z.setState(tx, zn, NotEnrolled, code)
		return nil
	}
	zoneID := uint8(req.Args.Uint("ZoneID"))
	if err := tx.Set(ep, id, clusters.IASZoneID, zcl.U8(zoneID)); err != nil {
		return err
	}
	if err := tx.Set(ep, id, clusters.IASZoneState, zcl.E8(clusters.ZoneStateEnrolled)); err != nil {
		return err
	}
	z.setState(tx, zn, Enrolled, code)
	return nil
}

func (z *Zones) onNormalMode(tx *node.Tx, req *node.Request) error {
	zn := z.zones[req.Endpoint]
	if zn == nil {
		return zcl.Errorf(zcl.StatusUnsupClusterCommand, "no IAS zone on endpoint %d", req.Endpoint)
	}
	return z.leaveTestMode(tx, zn)
}

func (z *Zones) onTestMode(tx *node.Tx, req *node.Request) error {
	zn := z.zones[req.Endpoint]
	if zn == nil {
		return zcl.Errorf(zcl.StatusUnsupClusterCommand, "no IAS zone on endpoint %d", req.Endpoint)
	}
	if zn.state != Enrolled {
		return zcl.Errorf(zcl.StatusFailure, "zone on endpoint %d is not enrolled", req.Endpoint)
	}
	ep := req.Endpoint
	id := clusters.IASZone.ID
	level := req.Args.Uint("CurrentZoneSensitivityLevel")
	if supported := tx.Value(ep, id, clusters.IASZoneSensitivityLevelsSupported).Uint(); level >= supported {
		return zcl.Errorf(zcl.StatusInvalidField, "sensitivity level %d of %d", level, supported)
	}
	if err := tx.Set(ep, id, clusters.IASZoneCurrentSensitivityLevel, zcl.U8(uint8(level))); err != nil {
		return err
	}
	status := uint16(tx.Value(ep, id, clusters.IASZoneStatus).Uint())
	if err := tx.Set(ep, id, clusters.IASZoneStatus, zcl.M16(status|clusters.ZoneStatusTest)); err != nil {
		return err
	}
	z.stopTest(zn)
	gen := zn.testGen
	d := time.Duration(req.Args.Uint("TestModeDuration")) * time.Second
	z.logger.Info("test mode", "ep", ep, "duration", d)
	zn.testStop = tx.After(d, func(tx *node.Tx) {
		if gen != zn.testGen {
			return
		}
		zn.testStop = nil
		if err := z.leaveTestMode(tx, zn); err != nil {
			z.logger.Warn("leave test mode", "ep", ep, "err", err)
		}
	})
	return nil
}

func (z *Zones) stopTest(zn *zone) {
	zn.testGen++
	if zn.testStop != nil {
		zn.testStop()
		zn.testStop = nil
	}
}

func (z *Zones) leaveTestMode(tx *node.Tx, zn *zone) error {
	z.stopTest(zn)
	ep := zn.cfg.Endpoint
	status := uint16(tx.Value(ep, clusters.IASZone.ID, clusters.IASZoneStatus).Uint())
	if status&clusters.ZoneStatusTest == 0 {
		return nil
	}
	return tx.Set(ep, clusters.IASZone.ID, clusters.IASZoneStatus, zcl.M16(status&^clusters.ZoneStatusTest))
}

// InTestMode reports whether the zone on ep is running a test.
func (z *Zones) InTestMode(ep uint8) bool {
	var on bool
	z.n.Do(func(tx *node.Tx) error {
		on = tx.Value(ep, clusters.IASZone.ID, clusters.IASZoneStatus).Uint()&clusters.ZoneStatusTest != 0
		return nil
	})
	return on
}
