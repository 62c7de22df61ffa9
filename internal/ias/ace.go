package ias

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// Bypass results.
const (
	BypassOK          = 0x00
	BypassNotBypassed = 0x01
	BypassNotAllowed  = 0x02
	BypassInvalidZone = 0x03
	BypassUnknownZone = 0x04
	BypassInvalidCode = 0x05
)

// Alarm kinds carried by EventAlarm.
const (
	AlarmEmergency = "emergency"
	AlarmFire      = "fire"
	AlarmPanic     = "panic"
)

// PanelEvent is the payload of EventPanel.
type PanelEvent struct {
	Endpoint         uint8 `json:"endpoint"`
	Status           uint8 `json:"status"`
	SecondsRemaining uint8 `json:"seconds_remaining"`
}

// AlarmEvent is the payload of EventAlarm.
type AlarmEvent struct {
	Endpoint uint8  `json:"endpoint"`
	Kind     string `json:"kind"`
	Source   uint16 `json:"source"`
}

// ZoneEntry is one zone in a panel's table.
type ZoneEntry struct {
	ID       uint8  `json:"id"`
	Type     uint16 `json:"type"`
	IEEE     uint64 `json:"ieee"`
	Label    string `json:"label"`
	Status   uint16 `json:"status"`
	Bypassed bool   `json:"bypassed"`
	// Unbypassable zones refuse Bypass.
	Unbypassable bool `json:"unbypassable,omitempty"`
}

// PanelConfig describes an IAS ACE server endpoint.
type PanelConfig struct {
	Endpoint uint8
	// Code is the arm/disarm code. Empty accepts any code.
	Code string
	// ExitDelay is how long the panel reports arming before it is armed.
	ExitDelay time.Duration
	Zones     []ZoneEntry
}

// Panel is an IAS ACE server answering from a zone table.
type Panel struct {
	n      *node.Node
	cfg    PanelConfig
	logger *slog.Logger

	zones  map[uint8]*ZoneEntry
	status uint8
	armAt  uint32 // ZCL UTC seconds, zero unless arming
	stop   func() bool
	gen    uint64
}

// InstallPanel registers the IAS ACE server on cfg.Endpoint.
func InstallPanel(n *node.Node, cfg PanelConfig) (*Panel, error) {
	p := &Panel{
		n:      n,
		cfg:    cfg,
		logger: n.Logger().With("component", "ias", "ep", cfg.Endpoint),
		zones:  make(map[uint8]*ZoneEntry),
		status: clusters.PanelDisarmed,
	}
	err := n.Do(func(tx *node.Tx) error {
		if !tx.HasCluster(cfg.Endpoint, clusters.IASACE.ID) {
			return zcl.Errorf(zcl.StatusUnsupportedCluster, "endpoint %d has no IAS ACE server", cfg.Endpoint)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, z := range cfg.Zones {
		if err := p.AddZone(z); err != nil {
			return nil, err
		}
	}
	ace := clusters.IASACE.ID
	for cmd, h := range map[uint8]node.CommandHandler{
		clusters.ACECmdArm:                 p.onArm,
		clusters.ACECmdBypass:              p.onBypass,
		clusters.ACECmdEmergency:           p.alarm(AlarmEmergency),
		clusters.ACECmdFire:                p.alarm(AlarmFire),
		clusters.ACECmdPanic:               p.alarm(AlarmPanic),
		clusters.ACECmdGetZoneIDMap:        p.onZoneIDMap,
		clusters.ACECmdGetZoneInformation:  p.onZoneInfo,
		clusters.ACECmdGetPanelStatus:      p.onPanelStatus,
		clusters.ACECmdGetBypassedZoneList: p.onBypassedList,
		clusters.ACECmdGetZoneStatus:       p.onZoneStatus,
	} {
		n.HandleCommand(ace, zcl.DirectionToServer, cmd, p.only(h))
	}
	return p, nil
}

// only restricts h to the panel's endpoint.
func (p *Panel) only(h node.CommandHandler) node.CommandHandler {
	return func(tx *node.Tx, req *node.Request) error {
		if req.Endpoint != p.cfg.Endpoint {
			return zcl.Errorf(zcl.StatusUnsupClusterCommand, "no IAS ACE panel on endpoint %d", req.Endpoint)
		}
		return h(tx, req)
	}
}

// AddZone adds or replaces a zone in the table.
func (p *Panel) AddZone(z ZoneEntry) error {
	if z.ID == clusters.UnenrolledZoneID {
		return fmt.Errorf("ias: zone id 0x%02X is reserved", z.ID)
	}
	return p.n.Do(func(*node.Tx) error {
		p.zones[z.ID] = &z
		return nil
	})
}

// RemoveZone drops zone id from the table.
func (p *Panel) RemoveZone(id uint8) {
	p.n.Do(func(*node.Tx) error {
		delete(p.zones, id)
		return nil
	})
}

// UpdateZoneStatus records a zone's latest ZoneStatus. An alarm on an
// armed, unbypassed zone puts the panel in alarm.
func (p *Panel) UpdateZoneStatus(id uint8, status uint16) error {
	return p.n.Do(func(tx *node.Tx) error {
		z := p.zones[id]
		if z == nil {
			return zcl.Errorf(zcl.StatusNotFound, "zone %d", id)
		}
		z.Status = status
		if alarmed(z) && armed(p.status) {
			p.logger.Warn("zone alarm while armed", "zone", id, "status", fmt.Sprintf("0x%04X", status))
			p.setStatus(tx, clusters.PanelInAlarm)
		}
		return nil
	})
}

// Zones returns the table ordered by zone id.
func (p *Panel) Zones() []ZoneEntry {
	var out []ZoneEntry
	p.n.Do(func(*node.Tx) error {
		for _, id := range p.ids() {
			out = append(out, *p.zones[id])
		}
		return nil
	})
	return out
}

// Status returns the panel status.
func (p *Panel) Status() uint8 {
	var s uint8
	p.n.Do(func(*node.Tx) error { s = p.status; return nil })
	return s
}

func (p *Panel) ids() []uint8 {
	ids := make([]uint8, 0, len(p.zones))
	for id := range p.zones {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func alarmed(z *ZoneEntry) bool {
	return !z.Bypassed && z.Status&(clusters.ZoneStatusAlarm1|clusters.ZoneStatusAlarm2) != 0
}

func armed(status uint8) bool {
	switch status {
	case clusters.PanelArmedStay, clusters.PanelArmedNight, clusters.PanelArmedAway:
		return true
	}
	return false
}

func (p *Panel) setStatus(tx *node.Tx, s uint8) {
	if s == p.status {
		return
	}
	p.logger.Info("panel status", "from", p.status, "to", s)
	p.status = s
	tx.Emit(EventPanel, PanelEvent{Endpoint: p.cfg.Endpoint, Status: s, SecondsRemaining: p.remaining()})
}

func (p *Panel) remaining() uint8 {
	now := p.n.Clock().Now()
	if p.armAt <= now {
		return 0
	}
	return uint8(min(p.armAt-now, 0xFF))
}

func (p *Panel) cancelArming() {
	p.gen++
	if p.stop != nil {
		p.stop()
		p.stop = nil
	}
	p.armAt = 0
}

func (p *Panel) codeOK(code string) bool {
	return p.cfg.Code == "" || code == p.cfg.Code
}

var armTargets = map[uint8]struct {
	arming, armed, notify uint8
}{
	clusters.ArmModeDay:   {clusters.PanelArmingStay, clusters.PanelArmedStay, clusters.ArmNotifyDayArmed},
	clusters.ArmModeNight: {clusters.PanelArmingNight, clusters.PanelArmedNight, clusters.ArmNotifyNightArmed},
	clusters.ArmModeAll:   {clusters.PanelArmingAway, clusters.PanelArmedAway, clusters.ArmNotifyAllArmed},
}

func (p *Panel) onArm(tx *node.Tx, req *node.Request) error {
	mode := uint8(req.Args.Uint("ArmMode"))
	code := string(req.Args.Bytes("ArmDisarmCode"))
	notify, err := p.arm(tx, mode, code)
	if err != nil {
		return err
	}
	return tx.Reply(req, clusters.ACECmdArmResponse, zcl.Args{}.Set("ArmNotification", zcl.E8(notify)))
}

func (p *Panel) arm(tx *node.Tx, mode uint8, code string) (uint8, error) {
	if !p.codeOK(code) {
		p.logger.Warn("arm with wrong code", "mode", mode)
		return clusters.ArmNotifyInvalidCode, nil
	}
	if mode == clusters.ArmModeDisarm {
		if p.status == clusters.PanelDisarmed {
			return clusters.ArmNotifyAlreadyDisarmed, nil
		}
		p.cancelArming()
		p.setStatus(tx, clusters.PanelDisarmed)
		return clusters.ArmNotifyAllDisarmed, nil
	}
	target, ok := armTargets[mode]
	if !ok {
		return 0, zcl.Errorf(zcl.StatusInvalidField, "arm mode %d", mode)
	}
	for _, id := range p.ids() {
		if alarmed(p.zones[id]) {
			p.logger.Info("arm refused, zone not ready", "zone", id)
			return clusters.ArmNotifyNotReady, nil
		}
	}
	p.cancelArming()
	if p.cfg.ExitDelay <= 0 {
		p.setStatus(tx, target.armed)
		return target.notify, nil
	}
	p.armAt = tx.Now() + uint32((p.cfg.ExitDelay+time.Second-1)/time.Second)
	p.setStatus(tx, target.arming)
	gen := p.gen
	p.stop = tx.After(p.cfg.ExitDelay, func(tx *node.Tx) {
		if gen != p.gen {
			return
		}
		p.stop = nil
		p.armAt = 0
		p.setStatus(tx, target.armed)
	})
	return target.notify, nil
}

func (p *Panel) onBypass(tx *node.Tx, req *node.Request) error {
	ids := req.Args.Value("ZoneIDs").Elems()
	codeOK := p.codeOK(string(req.Args.Bytes("ArmDisarmCode")))
	results := make([]zcl.Value, 0, len(ids))
	for _, v := range ids {
		id := uint8(v.Uint())
		z := p.zones[id]
		var r uint8
		switch {
		case !codeOK:
			r = BypassInvalidCode
		case id == clusters.UnenrolledZoneID:
			r = BypassInvalidZone
		case z == nil:
			r = BypassUnknownZone
		case z.Unbypassable:
			r = BypassNotAllowed
		default:
			z.Bypassed = true
			r = BypassOK
		}
		results = append(results, zcl.E8(r))
	}
	args := zcl.Args{}.Set("BypassResult", zcl.Array(zcl.TypeEnum8, results...))
	return tx.Reply(req, clusters.ACECmdBypassResponse, args)
}

func (p *Panel) alarm(kind string) node.CommandHandler {
	return func(tx *node.Tx, req *node.Request) error {
		p.logger.Warn("alarm raised", "kind", kind, "source", fmt.Sprintf("0x%04X", req.Source.SrcAddr))
		p.cancelArming()
		p.setStatus(tx, clusters.PanelInAlarm)
		tx.Emit(EventAlarm, AlarmEvent{Endpoint: p.cfg.Endpoint, Kind: kind, Source: req.Source.SrcAddr})
		return nil
	}
}

// zoneIDMap returns one bit per zone id, sixteen ids per word.
func (p *Panel) zoneIDMap() []zcl.Value {
	var words [clusters.ZoneIDMapSections]uint16
	for id := range p.zones {
		words[id/16] |= 1 << (id % 16)
	}
	out := make([]zcl.Value, len(words))
	for i, w := range words {
		out[i] = zcl.M16(w)
	}
	return out
}

func (p *Panel) onZoneIDMap(tx *node.Tx, req *node.Request) error {
	args := zcl.Args{}.Set("ZoneIDMap", zcl.Array(zcl.TypeBitmap16, p.zoneIDMap()...))
	return tx.Reply(req, clusters.ACECmdGetZoneIDMapResponse, args)
}

func (p *Panel) onZoneInfo(tx *node.Tx, req *node.Request) error {
	id := uint8(req.Args.Uint("ZoneID"))
	args := zcl.Args{}.Set("ZoneID", zcl.U8(id))
	if z := p.zones[id]; z != nil {
		args = args.Set("ZoneType", zcl.E16(z.Type)).
			Set("IEEEAddress", zcl.IEEE(z.IEEE)).
			Set("ZoneLabel", zcl.CharStr(z.Label))
	} else {
		args = args.Set("ZoneType", zcl.E16(clusters.ZoneTypeInvalid)).
			Set("IEEEAddress", zcl.Invalid(zcl.TypeEUI64)).
			Set("ZoneLabel", zcl.CharStr(""))
	}
	return tx.Reply(req, clusters.ACECmdGetZoneInformationResponse, args)
}

func (p *Panel) onPanelStatus(tx *node.Tx, req *node.Request) error {
	alarm := uint8(0)
	if p.status == clusters.PanelInAlarm {
		alarm = 1
	}
	args := zcl.Args{}.
		Set("PanelStatus", zcl.E8(p.status)).
		Set("SecondsRemaining", zcl.U8(p.remaining())).
		Set("AudibleNotification", zcl.E8(0)).
		Set("AlarmStatus", zcl.E8(alarm))
	return tx.Reply(req, clusters.ACECmdGetPanelStatusResponse, args)
}

func (p *Panel) onBypassedList(tx *node.Tx, req *node.Request) error {
	var ids []zcl.Value
	for _, id := range p.ids() {
		if p.zones[id].Bypassed {
			ids = append(ids, zcl.U8(id))
		}
	}
	args := zcl.Args{}.Set("ZoneIDs", zcl.Array(zcl.TypeUint8, ids...))
	return tx.Reply(req, clusters.ACECmdSetBypassedZoneList, args)
}

// onZoneStatus answers one page of the zone table starting at
// StartingZoneID. ZoneStatusComplete is set when no later zone matches.
func (p *Panel) onZoneStatus(tx *node.Tx, req *node.Request) error {
	a := req.Args
	start := uint8(a.Uint("StartingZoneID"))
	limit := int(a.Uint("MaxNumberOfZoneIDs"))
	masked := a.Bool("ZoneStatusMaskFlag")
	mask := uint16(a.Uint("ZoneStatusMask"))

	var recs []zcl.Args
	complete := true
	for _, id := range p.ids() {
		z := p.zones[id]
		if id < start || (masked && z.Status&mask == 0) {
			continue
		}
		if len(recs) == limit {
			complete = false
			break
		}
		recs = append(recs, zcl.Args{}.Set("ZoneID", zcl.U8(id)).Set("ZoneStatus", zcl.M16(z.Status)))
	}
	args := zcl.Args{
		{Name: "ZoneStatusComplete", Value: zcl.Bool(complete)},
		{Name: "Zones", Records: recs},
	}
	return tx.Reply(req, clusters.ACECmdGetZoneStatusResponse, args)
}
