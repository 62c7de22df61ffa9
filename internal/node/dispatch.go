package node

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davecgh/go-spew/spew"

	"zcl-node/internal/ncp"
	"zcl-node/internal/zcl"
)

// Deliver handles one inbound APS frame: it routes the ZCL frame to every
// addressed endpoint, queues the responses and reports it produced and
// returns once they have been handed to the link. A frame whose header
// cannot be parsed is dropped with an error and no response.
func (n *Node) Deliver(ind ncp.Indication) error {
	n.mu.Lock()
	defer n.unlock()
	if n.closed {
		return ErrClosed
	}

	f, err := zcl.ParseFrame(ind.Payload)
	if err != nil {
		n.logger.Warn("malformed frame", "src", fmt.Sprintf("0x%04X", ind.SrcAddr),
			"cluster", fmt.Sprintf("0x%04X", ind.Cluster), "data", fmt.Sprintf("%X", ind.Payload), "err", err)
		n.emit(EventFrameError, ErrorEvent{Cluster: ind.Cluster, Peer: ind.SrcAddr, Error: err.Error()})
		return err
	}
	n.logger.Debug("frame received", "src", fmt.Sprintf("0x%04X", ind.SrcAddr), "ep", ind.DstEP,
		"cluster", fmt.Sprintf("0x%04X", ind.Cluster), "frame", f.String())

	targets := n.targets(ind)
	if len(targets) == 0 {
		n.logger.Debug("frame not addressed to a local endpoint", "ep", ind.DstEP, "group", ind.Group)
		return nil
	}
	var first error
	for _, ep := range targets {
		if err := n.dispatch(ep, ind, f); err != nil && first == nil {
			first = err
		}
		n.finish()
	}
	return first
}

// targets resolves the local endpoints a frame is addressed to. Broadcast
// endpoint and group deliveries only reach endpoints hosting the cluster.
func (n *Node) targets(ind ncp.Indication) []uint8 {
	var out []uint8
	switch {
	case ind.Group:
		for _, id := range n.epOrder {
			e := n.endpoints[id]
			if _, member := e.groups[ind.GroupAddr]; member && e.clusters[ind.Cluster] != nil {
				out = append(out, id)
			}
		}
	case ind.DstEP == EndpointBroadcast:
		for _, id := range n.epOrder {
			if n.endpoints[id].clusters[ind.Cluster] != nil {
				out = append(out, id)
			}
		}
	default:
		if n.endpoints[ind.DstEP] != nil {
			out = append(out, ind.DstEP)
		}
	}
	return out
}

func (n *Node) dispatch(ep uint8, ind ncp.Indication, f zcl.Frame) error {
	req := &Request{Endpoint: ep, Cluster: ind.Cluster, Source: ind, Header: f.Header}
	err := n.handle(ep, req, f)
	status := zcl.StatusOf(err)
	if err != nil {
		n.logger.Debug("frame failed", "ep", ep, "cluster", fmt.Sprintf("0x%04X", ind.Cluster),
			"cmd", fmt.Sprintf("0x%02X", f.Command), "status", status, "err", err)
	}
	n.defaultResponse(req, f, status)
	return err
}

func (n *Node) handle(ep uint8, req *Request, f zcl.Frame) error {
	ci := n.endpoints[ep].clusters[req.Cluster]
	if ci == nil {
		return fmt.Errorf("endpoint %d cluster 0x%04X: %w", ep, req.Cluster, zcl.ErrUnknownCluster)
	}
	if f.Control.Direction == zcl.DirectionToServer && !ci.server {
		return zcl.Errorf(zcl.StatusUnsupportedCluster, "endpoint %d cluster 0x%04X has no server side", ep, req.Cluster)
	}
	if f.Control.Direction == zcl.DirectionToClient && !ci.client {
		return zcl.Errorf(zcl.StatusUnsupportedCluster, "endpoint %d cluster 0x%04X has no client side", ep, req.Cluster)
	}
	if f.IsGlobal() {
		return n.handleGeneral(ep, ci, req, f)
	}
	return n.handleCommand(ep, ci, req, f)
}

func unsupportedCommand(f zcl.Frame) error {
	var st zcl.Status
	switch {
	case f.IsGlobal() && f.Control.ManufacturerSpecific:
		st = zcl.StatusUnsupManufGeneralCommand
	case f.IsGlobal():
		st = zcl.StatusUnsupGeneralCommand
	case f.Control.ManufacturerSpecific:
		st = zcl.StatusUnsupManufClusterCommand
	default:
		st = zcl.StatusUnsupClusterCommand
	}
	return zcl.Errorf(st, "command 0x%02X %s", f.Command, f.Control.Direction)
}

func (n *Node) handleCommand(ep uint8, ci *clusterInst, req *Request, f zcl.Frame) error {
	def := ci.def.Command(f.Command, f.Control.Direction, f.Manufacturer)
	if def == nil {
		return unsupportedCommand(f)
	}
	h := n.handlers[cmdKey{ci.def.ID, f.Control.Direction, f.Command, f.Manufacturer}]
	if h == nil {
		return unsupportedCommand(f)
	}
	args, err := zcl.DecodePayload(def, f.Payload)
	if err != nil {
		return fmt.Errorf("%s: %w", def.Name, err)
	}
	req.Def, req.Args = def, args
	if n.logger.Enabled(context.Background(), slog.LevelDebug) {
		n.logger.Debug("command", "ep", ep, "cluster", ci.def.Name, "cmd", def.Name, "args", spew.Sdump(args))
	}
	n.emit(EventCommandReceived, CommandEvent{
		Endpoint: ep,
		Cluster:  ci.def.ID,
		Command:  def.ID,
		Name:     def.Name,
		Source:   req.Source.SrcAddr,
		SourceEP: req.Source.SrcEP,
		Args:     args,
	})
	return n.guard(func() error { return h(&Tx{n: n}, req) })
}

// defaultResponse queues a Default Response to f when the rules call for one:
// never to a default response, a profile-wide response or a broadcast, never
// once a specific response went out, on failure always, on success only when
// the sender did not disable it.
func (n *Node) defaultResponse(req *Request, f zcl.Frame, status zcl.Status) {
	switch {
	case f.IsGlobal() && zcl.IsFoundationResponse(f.Command):
		return
	case f.IsGlobal() && f.Command == zcl.FoundationWriteAttributesNoResp:
		return
	case req.Source.Broadcast || req.Source.Group || req.Source.DstEP == EndpointBroadcast:
		return
	case req.responded:
		return
	case status == zcl.StatusSuccess && f.Control.DisableDefaultResponse:
		return
	}
	n.respond(req, zcl.FoundationDefaultResponse, false, func(w *zcl.Writer) error {
		return zcl.EncodeDefaultResponse(w, zcl.DefaultResponse{Command: f.Command, Status: status})
	})
}

// respond queues a profile-wide response to req: reversed direction, the
// request's sequence number and manufacturer code.
func (n *Node) respond(req *Request, cmd uint8, ddr bool, encode func(w *zcl.Writer) error) error {
	hdr := zcl.Header{
		Control: zcl.FrameControl{
			Type:                   zcl.FrameTypeGlobal,
			ManufacturerSpecific:   req.Header.Control.ManufacturerSpecific,
			Direction:              req.Header.Control.Direction.Reverse(),
			DisableDefaultResponse: ddr,
		},
		Manufacturer: req.Header.Manufacturer,
		Seq:          req.Header.Seq,
		Command:      cmd,
	}
	payload, err := n.globalFrame(hdr, encode)
	if err != nil {
		n.logger.Error("response does not fit", "cmd", zcl.FoundationName(cmd), "err", err)
		return err
	}
	n.queue(req.Source.Reply(payload), zcl.FoundationName(cmd))
	req.responded = true
	return nil
}
