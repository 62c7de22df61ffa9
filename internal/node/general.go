package node

import (
	"fmt"

	"zcl-node/internal/zcl"
)

func (n *Node) handleGeneral(ep uint8, ci *clusterInst, req *Request, f zcl.Frame) error {
	mfr := uint16(0)
	if f.Control.ManufacturerSpecific {
		mfr = f.Manufacturer
	}
	switch f.Command {
	case zcl.FoundationReadAttributes:
		return n.readAttributes(ci, req, mfr, f.Payload)
	case zcl.FoundationWriteAttributes, zcl.FoundationWriteAttributesNoResp:
		return n.writeAttributes(ep, ci, req, mfr, f, false)
	case zcl.FoundationWriteAttributesUndivided:
		return n.writeAttributes(ep, ci, req, mfr, f, true)
	case zcl.FoundationConfigReporting:
		return n.configureReportingFrame(ep, ci, req, mfr, f.Payload)
	case zcl.FoundationReadReportingConfig:
		return n.readReportingConfig(ep, ci, req, mfr, f.Payload)
	case zcl.FoundationReportAttributes:
		return n.reportReceived(ep, ci, req, mfr, f.Payload)
	case zcl.FoundationDefaultResponse:
		d, err := zcl.DecodeDefaultResponse(f.Payload)
		if err != nil {
			return err
		}
		n.emit(EventDefaultResponse, ResponseEvent{Endpoint: ep, Cluster: ci.def.ID, Source: req.Source.SrcAddr, Seq: f.Seq, Command: d.Command, Status: d.Status})
		return nil
	case zcl.FoundationDiscoverAttributes:
		return n.discoverAttributes(ci, req, mfr, f.Payload, false)
	case zcl.FoundationDiscoverAttributesExt:
		return n.discoverAttributes(ci, req, mfr, f.Payload, true)
	case zcl.FoundationDiscoverCommandsReceived:
		return n.discoverCommands(ci, req, mfr, f, true)
	case zcl.FoundationDiscoverCommandsGenerated:
		return n.discoverCommands(ci, req, mfr, f, false)
	}
	if zcl.IsFoundationResponse(f.Command) {
		n.emit(EventResponse, ResponseEvent{
			Endpoint: ep,
			Cluster:  ci.def.ID,
			Source:   req.Source.SrcAddr,
			Seq:      f.Seq,
			Command:  f.Command,
			Payload:  append([]byte(nil), f.Payload...),
		})
		return nil
	}
	return unsupportedCommand(f)
}

// readAttributes answers Read Attributes. Records that would overflow the
// frame are dropped from the tail; the requester reads them again.
func (n *Node) readAttributes(ci *clusterInst, req *Request, mfr uint16, payload []byte) error {
	ids, err := zcl.DecodeReadAttributes(payload)
	if err != nil {
		return err
	}
	budget := n.frameSize - req.Header.Size()
	recs := make([]zcl.ReadRecord, 0, len(ids))
	for _, id := range ids {
		rec := zcl.ReadRecord{ID: id}
		inst := ci.attr(id, mfr)
		switch {
		case inst == nil || inst.def.Access&zcl.AccessInternal != 0:
			rec.Status = zcl.StatusUnsupportedAttribute
		case !inst.def.IsReadable():
			rec.Status = zcl.StatusWriteOnly
		default:
			rec.Value = inst.value
		}
		size := zcl.ReadRecordSize(rec)
		if size > budget {
			n.logger.Debug("read response truncated", "cluster", ci.def.Name, "records", len(recs), "requested", len(ids))
			break
		}
		budget -= size
		recs = append(recs, rec)
	}
	return n.respond(req, zcl.FoundationReadAttributesResponse, true, func(w *zcl.Writer) error {
		return zcl.EncodeReadResponse(w, recs)
	})
}

// writeAttributes handles the three Write Attributes forms. Undivided writes
// are all-or-nothing: one failure rolls back every record of the frame.
func (n *Node) writeAttributes(ep uint8, ci *clusterInst, req *Request, mfr uint16, f zcl.Frame, undivided bool) error {
	recs, err := zcl.DecodeAttributeRecords(f.Payload)
	if err != nil {
		return err
	}
	sp := n.savepoint()
	results := make([]zcl.StatusRecord, 0, len(recs))
	failed := false
	for _, rec := range recs {
		err := n.write(ep, ci.def.ID, rec.ID, mfr, rec.Value, OriginRemote)
		st := zcl.StatusOf(err)
		if err != nil {
			failed = true
			n.logger.Debug("remote write rejected", "cluster", ci.def.Name, "attr", fmt.Sprintf("0x%04X", rec.ID), "status", st, "err", err)
		}
		results = append(results, zcl.StatusRecord{Status: st, ID: rec.ID})
	}
	if undivided && failed {
		n.rollback(sp)
	}
	if f.Command == zcl.FoundationWriteAttributesNoResp {
		return nil
	}
	return n.respond(req, zcl.FoundationWriteAttributesResp, true, func(w *zcl.Writer) error {
		return zcl.EncodeWriteResponse(w, results)
	})
}

func (n *Node) discoverAttributes(ci *clusterInst, req *Request, mfr uint16, payload []byte, extended bool) error {
	start, max, err := zcl.DecodeDiscoverAttributes(payload)
	if err != nil {
		return err
	}
	per := 3
	if extended {
		per = 4
	}
	room := (n.frameSize - req.Header.Size() - 1) / per
	if int(max) < room {
		room = int(max)
	}
	resp := zcl.DiscoverResponse{Complete: true}
	for _, k := range ci.order {
		def := ci.attrs[k].def
		if k.id < start || k.mfr != mfr || def.Access&zcl.AccessInternal != 0 {
			continue
		}
		if len(resp.Attributes) == room {
			resp.Complete = false
			break
		}
		resp.Attributes = append(resp.Attributes, zcl.DiscoveredAttribute{ID: def.ID, Type: def.Type, Access: def.Access})
	}
	cmd := zcl.FoundationDiscoverAttributesResp
	if extended {
		cmd = zcl.FoundationDiscoverAttributesExtResp
	}
	return n.respond(req, cmd, true, func(w *zcl.Writer) error {
		return zcl.EncodeDiscoverResponse(w, resp, extended)
	})
}

// discoverCommands lists the commands this endpoint accepts (received) or
// can emit (generated) on the cluster.
func (n *Node) discoverCommands(ci *clusterInst, req *Request, mfr uint16, f zcl.Frame, received bool) error {
	start, max, err := zcl.DecodeDiscoverCommands(f.Payload)
	if err != nil {
		return err
	}
	dir := f.Control.Direction
	if !received {
		dir = dir.Reverse()
	}
	room := n.frameSize - req.Header.Size() - 1
	if int(max) < room {
		room = int(max)
	}
	resp := zcl.DiscoverCommandsResponse{Complete: true}
	for _, c := range ci.def.Commands(dir) {
		if c.ID < start || c.Manufacturer != mfr {
			continue
		}
		if received && n.handlers[cmdKey{ci.def.ID, dir, c.ID, mfr}] == nil {
			continue
		}
		if len(resp.Commands) == room {
			resp.Complete = false
			break
		}
		resp.Commands = append(resp.Commands, c.ID)
	}
	cmd := zcl.FoundationDiscoverCommandsReceivedRsp
	if !received {
		cmd = zcl.FoundationDiscoverCommandsGenRsp
	}
	return n.respond(req, cmd, true, func(w *zcl.Writer) error {
		return zcl.EncodeDiscoverCommandsResponse(w, resp)
	})
}
