package node

import (
	"fmt"
	"sort"

	"zcl-node/internal/ncp"
	"zcl-node/internal/zcl"
)

// reportState is the send-direction reporting configuration of one
// attribute instance together with what was last reported.
type reportState struct {
	min      uint16
	max      uint16
	change   zcl.Value // analog types only
	dst      Destination
	last     zcl.Value
	lastTime uint32 // last report, or configuration time before the first
	reported bool
	pending  bool // change seen inside the minimum interval
}

func newReportState(def *zcl.AttributeDef, min, max uint16, change zcl.Value, dst Destination, current zcl.Value, now uint32) *reportState {
	rs := &reportState{min: min, max: max, dst: dst, last: current, lastTime: now}
	if zcl.IsAnalog(def.Type) {
		rs.change = zcl.Uint(def.Type, 0)
		if c, err := change.As(def.Type); err == nil && !change.IsNull() {
			rs.change = c
		}
	}
	return rs
}

// worthy reports whether v differs enough from the last report: any change
// for discrete types, at least the reportable change for analog ones.
func (rs *reportState) worthy(def *zcl.AttributeDef, v zcl.Value) bool {
	if v.Equal(rs.last) {
		return false
	}
	if !zcl.IsAnalog(def.Type) || v.IsInvalid() || rs.last.IsInvalid() {
		return true
	}
	return v.Delta(rs.last) >= rs.change.Float()
}

func (rs *reportState) config(def *zcl.AttributeDef) zcl.ReportingConfig {
	return zcl.ReportingConfig{
		Direction: zcl.ReportDirectionSend,
		ID:        def.ID,
		Type:      def.Type,
		Min:       rs.min,
		Max:       rs.max,
		Change:    rs.change,
	}
}

type recvKey struct {
	ep      uint8
	cluster uint16
	attrKey
}

// recvState is a receive-direction configuration: the peer promised to
// report within timeout seconds.
type recvState struct {
	timeout  uint16
	lastSeen uint32
	expired  bool
}

type dueReport struct {
	ep   uint8
	ci   *clusterInst
	inst *instance
}

// changed evaluates reporting for an attribute the finished operation changed.
func (n *Node) changed(t *touch, now uint32) {
	rs := t.inst.report
	if rs == nil || !rs.worthy(t.inst.def, t.inst.value) {
		return
	}
	if rs.reported && now-rs.lastTime < uint32(rs.min) {
		rs.pending = true
		return
	}
	n.due = append(n.due, &dueReport{ep: t.ep, ci: t.ci, inst: t.inst})
}

// ReportTick sends reports that became due by now: periodic reports after
// the maximum interval and changes held back by the minimum interval. It
// also flags receive-direction configurations whose timeout expired.
func (n *Node) ReportTick(now uint32) {
	n.mu.Lock()
	defer n.unlock()
	if n.closed {
		return
	}
	for _, id := range n.epOrder {
		e := n.endpoints[id]
		for _, cid := range e.order {
			ci := e.clusters[cid]
			for _, k := range ci.order {
				inst := ci.attrs[k]
				rs := inst.report
				if rs == nil {
					continue
				}
				elapsed := now - rs.lastTime
				switch {
				case rs.pending && elapsed >= uint32(rs.min):
					rs.pending = false
					if rs.worthy(inst.def, inst.value) {
						n.due = append(n.due, &dueReport{ep: id, ci: ci, inst: inst})
					}
				case rs.max != 0 && elapsed >= uint32(rs.max):
					n.due = append(n.due, &dueReport{ep: id, ci: ci, inst: inst})
				}
			}
		}
	}
	for k, st := range n.receiving {
		if st.timeout == 0 || st.expired || now-st.lastSeen <= uint32(st.timeout) {
			continue
		}
		st.expired = true
		n.emit(EventReportTimeout, TimeoutEvent{Endpoint: k.ep, Cluster: k.cluster, Attribute: k.id, Timeout: st.timeout})
	}
	n.finish()
}

type reportGroup struct {
	ep      uint8
	ci      *clusterInst
	mfr     uint16
	dst     Destination
	members []*instance
}

// flushReports turns due reports into Report Attributes frames, one frame
// per (endpoint, cluster, manufacturer, destination), split only when a
// frame would exceed the frame size.
func (n *Node) flushReports(now uint32) {
	if len(n.due) == 0 {
		return
	}
	type key struct {
		ep      uint8
		cluster uint16
		mfr     uint16
		dst     Destination
	}
	seen := make(map[*instance]bool)
	index := make(map[key]*reportGroup)
	var groups []*reportGroup
	for _, d := range n.due {
		if seen[d.inst] || d.inst.report == nil {
			continue
		}
		seen[d.inst] = true
		k := key{d.ep, d.ci.def.ID, d.inst.def.Manufacturer, d.inst.report.dst}
		g := index[k]
		if g == nil {
			g = &reportGroup{ep: d.ep, ci: d.ci, mfr: k.mfr, dst: k.dst}
			index[k] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, d.inst)
	}
	n.due = n.due[:0]

	for _, g := range groups {
		sort.Slice(g.members, func(i, j int) bool { return g.members[i].def.ID < g.members[j].def.ID })
		n.sendReports(g, now)
	}
}

func (n *Node) sendReports(g *reportGroup, now uint32) {
	var (
		w    *zcl.Writer
		recs []zcl.AttributeRecord
	)
	open := func() {
		hdr := zcl.Header{
			Control: zcl.FrameControl{
				Type:                   zcl.FrameTypeGlobal,
				ManufacturerSpecific:   g.mfr != 0,
				Direction:              g.ci.dir(),
				DisableDefaultResponse: true,
			},
			Manufacturer: g.mfr,
			Seq:          n.nextSeq(),
			Command:      zcl.FoundationReportAttributes,
		}
		w = zcl.NewWriter(make([]byte, n.frameSize))
		_ = hdr.Encode(w)
		recs = nil
	}
	flush := func() {
		if len(recs) == 0 {
			return
		}
		req, err := n.dataRequest(g.ep, g.dst, g.ci.def.ID, w.Bytes())
		if err != nil {
			n.logger.Warn("report dropped", "ep", g.ep, "cluster", g.ci.def.Name, "err", err)
			return
		}
		n.queue(req, "ReportAttributes")
		n.emit(EventReportSent, ReportEvent{Endpoint: g.ep, Cluster: g.ci.def.ID, Peer: g.dst.Addr, PeerEP: g.dst.Endpoint, Records: recs})
	}

	open()
	for _, inst := range g.members {
		rec := zcl.AttributeRecord{ID: inst.def.ID, Value: inst.value}
		if err := zcl.EncodeAttributeRecords(w, []zcl.AttributeRecord{rec}); err != nil {
			flush()
			open()
			if err := zcl.EncodeAttributeRecords(w, []zcl.AttributeRecord{rec}); err != nil {
				n.logger.Warn("attribute too large to report", "cluster", g.ci.def.Name, "attr", fmt.Sprintf("0x%04X", rec.ID), "err", err)
				continue
			}
		}
		recs = append(recs, rec)
		rs := inst.report
		rs.last = inst.value
		rs.lastTime = now
		rs.reported = true
		rs.pending = false
	}
	flush()
}

// configure applies one Configure Reporting record. Send-direction reports
// go to dst.
func (n *Node) configure(ep uint8, ci *clusterInst, mfr uint16, rc zcl.ReportingConfig, dst Destination) error {
	now := n.clock.Now()
	if rc.Direction == zcl.ReportDirectionReceive {
		if def := ci.def.Attribute(rc.ID, mfr); def == nil || def.Access&zcl.AccessInternal != 0 {
			return zcl.Errorf(zcl.StatusUnsupportedAttribute, "attribute 0x%04X", rc.ID)
		}
		n.receiving[recvKey{ep, ci.def.ID, attrKey{rc.ID, mfr}}] = &recvState{timeout: rc.Timeout, lastSeen: now}
		return nil
	}

	inst := ci.attr(rc.ID, mfr)
	switch {
	case inst == nil || inst.def.Access&zcl.AccessInternal != 0:
		return zcl.Errorf(zcl.StatusUnsupportedAttribute, "attribute 0x%04X", rc.ID)
	case !inst.def.IsReportable():
		return zcl.Errorf(zcl.StatusUnreportableAttribute, "attribute 0x%04X", rc.ID)
	case rc.Type != inst.def.Type:
		return zcl.Errorf(zcl.StatusInvalidDataType, "attribute 0x%04X: got %s, want %s", rc.ID, rc.Type, inst.def.Type)
	case rc.Max == 0xFFFF:
		inst.report = nil
		n.storeReporting(ep, ci.def.ID, inst.def, nil)
		return nil
	case rc.Max != 0 && rc.Min > rc.Max:
		return zcl.Errorf(zcl.StatusInvalidValue, "attribute 0x%04X: min %d > max %d", rc.ID, rc.Min, rc.Max)
	}
	inst.report = newReportState(inst.def, rc.Min, rc.Max, rc.Change, dst, inst.value, now)
	n.storeReporting(ep, ci.def.ID, inst.def, inst.report)
	return nil
}

func (n *Node) configureReportingFrame(ep uint8, ci *clusterInst, req *Request, mfr uint16, payload []byte) error {
	cfgs, err := zcl.DecodeConfigureReporting(payload)
	if err != nil {
		return err
	}
	dst := Destination{Mode: ncp.AddrShort, Addr: req.Source.SrcAddr, Endpoint: req.Source.SrcEP}
	results := make([]zcl.StatusRecord, 0, len(cfgs))
	for _, rc := range cfgs {
		err := n.configure(ep, ci, mfr, rc, dst)
		results = append(results, zcl.StatusRecord{Status: zcl.StatusOf(err), Direction: rc.Direction, ID: rc.ID})
	}
	return n.respond(req, zcl.FoundationConfigReportingResp, true, func(w *zcl.Writer) error {
		return zcl.EncodeConfigureReportingResponse(w, results)
	})
}

func (n *Node) readReportingConfig(ep uint8, ci *clusterInst, req *Request, mfr uint16, payload []byte) error {
	keys, err := zcl.DecodeReadReportingConfig(payload)
	if err != nil {
		return err
	}
	recs := make([]zcl.ReportingConfig, 0, len(keys))
	for _, k := range keys {
		rc := zcl.ReportingConfig{Direction: k.Direction, ID: k.ID}
		if k.Direction == zcl.ReportDirectionReceive {
			st := n.receiving[recvKey{ep, ci.def.ID, attrKey{k.ID, mfr}}]
			switch {
			case ci.def.Attribute(k.ID, mfr) == nil:
				rc.Status = zcl.StatusUnsupportedAttribute
			case st == nil:
				rc.Status = zcl.StatusNotFound
			default:
				rc.Timeout = st.timeout
			}
			recs = append(recs, rc)
			continue
		}
		inst := ci.attr(k.ID, mfr)
		switch {
		case inst == nil || inst.def.Access&zcl.AccessInternal != 0:
			rc.Status = zcl.StatusUnsupportedAttribute
		case !inst.def.IsReportable():
			rc.Status = zcl.StatusUnreportableAttribute
		case inst.report == nil:
			rc.Status = zcl.StatusNotFound
		default:
			rc = inst.report.config(inst.def)
		}
		recs = append(recs, rc)
	}
	return n.respond(req, zcl.FoundationReadReportingConfigResp, true, func(w *zcl.Writer) error {
		return zcl.EncodeReadReportingConfigResponse(w, recs)
	})
}

func (n *Node) reportReceived(ep uint8, ci *clusterInst, req *Request, mfr uint16, payload []byte) error {
	recs, err := zcl.DecodeAttributeRecords(payload)
	if err != nil {
		return err
	}
	now := n.clock.Now()
	for _, rec := range recs {
		if st := n.receiving[recvKey{ep, ci.def.ID, attrKey{rec.ID, mfr}}]; st != nil {
			st.lastSeen = now
			st.expired = false
		}
	}
	n.emit(EventReportReceived, ReportEvent{
		Endpoint: ep,
		Cluster:  ci.def.ID,
		Peer:     req.Source.SrcAddr,
		PeerEP:   req.Source.SrcEP,
		Records:  recs,
	})
	return nil
}

// ConfigureReporting sets the send-direction reporting of a standard
// attribute locally. Reports go to the node's report target. max 0xFFFF
// removes the configuration; max 0 disables periodic reports.
func (n *Node) ConfigureReporting(ep uint8, cluster, attr uint16, min, max uint16, change zcl.Value) error {
	n.mu.Lock()
	defer n.unlock()
	if n.closed {
		return ErrClosed
	}
	ci, inst, err := n.lookupFull(ep, cluster, attr, 0)
	if err != nil {
		return err
	}
	rc := zcl.ReportingConfig{Direction: zcl.ReportDirectionSend, ID: attr, Type: inst.def.Type, Min: min, Max: max, Change: change}
	return n.configure(ep, ci, 0, rc, n.reportTarget)
}

// ForEachReportable calls fn for every attribute on ep with an active
// send-direction reporting configuration, in (cluster, attribute) order.
func (n *Node) ForEachReportable(ep uint8, fn func(cluster uint16, rc zcl.ReportingConfig)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	e := n.endpoints[ep]
	if e == nil {
		return zcl.Errorf(zcl.StatusNotFound, "endpoint %d not registered", ep)
	}
	for _, cid := range e.order {
		ci := e.clusters[cid]
		for _, k := range ci.order {
			if inst := ci.attrs[k]; inst.report != nil {
				fn(cid, inst.report.config(inst.def))
			}
		}
	}
	return nil
}

func reportPersistKey(ep uint8, cluster uint16, def *zcl.AttributeDef) string {
	key := fmt.Sprintf("report/%02X/%04X/%04X", ep, cluster, def.ID)
	if def.Manufacturer != 0 {
		key += fmt.Sprintf("/%04X", def.Manufacturer)
	}
	return key
}

// storeReporting persists a reporting configuration as destination mode (1),
// address (2), endpoint (1) and the Configure Reporting record. A nil state
// removes it.
func (n *Node) storeReporting(ep uint8, cluster uint16, def *zcl.AttributeDef, rs *reportState) {
	if n.persist == nil {
		return
	}
	key := reportPersistKey(ep, cluster, def)
	var data []byte
	if rs != nil {
		w := zcl.NewWriter(make([]byte, 4+16+8))
		_ = w.PutUint8(uint8(rs.dst.Mode))
		_ = w.PutUint16(rs.dst.Addr)
		_ = w.PutUint8(rs.dst.Endpoint)
		if err := zcl.EncodeConfigureReporting(w, []zcl.ReportingConfig{rs.config(def)}); err != nil {
			n.logger.Warn("encode reporting config failed", "key", key, "err", err)
			return
		}
		data = w.Bytes()
	}
	if err := n.persist.PersistWrite(key, data); err != nil {
		n.logger.Warn("persist reporting config failed", "key", key, "err", err)
	}
}

func (n *Node) loadReporting(ep uint8, cluster uint16, inst *instance, now uint32) (*reportState, bool) {
	if n.persist == nil {
		return nil, false
	}
	key := reportPersistKey(ep, cluster, inst.def)
	data, err := n.persist.PersistRead(key)
	if err != nil {
		n.logger.Warn("persisted reporting config unreadable", "key", key, "err", err)
		return nil, false
	}
	if len(data) < 4 {
		return nil, false
	}
	cfgs, err := zcl.DecodeConfigureReporting(data[4:])
	if err != nil || len(cfgs) != 1 || cfgs[0].Type != inst.def.Type {
		n.logger.Warn("persisted reporting config rejected", "key", key, "err", err)
		return nil, false
	}
	dst := Destination{
		Mode:     ncp.AddrMode(data[0]),
		Addr:     uint16(data[1]) | uint16(data[2])<<8,
		Endpoint: data[3],
	}
	rc := cfgs[0]
	return newReportState(inst.def, rc.Min, rc.Max, rc.Change, dst, inst.value, now), true
}
