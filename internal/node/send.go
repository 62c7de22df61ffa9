package node

import (
	"context"
	"fmt"

	"zcl-node/internal/ncp"
	"zcl-node/internal/zcl"
)

// Command is an outbound cluster-specific command from a local endpoint.
type Command struct {
	Endpoint uint8
	Dst      Destination
	Frame    *zcl.CommandBuilder
}

// finishFrame serialises b, bounded by the node frame size.
func (n *Node) finishFrame(b *zcl.CommandBuilder) ([]byte, error) {
	size := b.Size()
	if size > n.frameSize {
		return nil, fmt.Errorf("node: %s frame is %d bytes, limit %d: %w", b.Def().Name, size, n.frameSize, zcl.ErrShortBuffer)
	}
	return b.Finish(make([]byte, size))
}

func (n *Node) dataRequest(src uint8, dst Destination, cluster uint16, payload []byte) (ncp.DataRequest, error) {
	e := n.endpoints[src]
	if e == nil {
		return ncp.DataRequest{}, zcl.Errorf(zcl.StatusNotFound, "endpoint %d not registered", src)
	}
	mode := dst.Mode
	if mode == 0 {
		mode = ncp.AddrShort
	}
	return ncp.DataRequest{
		Mode:        mode,
		DstAddr:     dst.Addr,
		DstIEEE:     dst.IEEE,
		DstEP:       dst.Endpoint,
		SrcEP:       src,
		Cluster:     cluster,
		Profile:     e.cfg.ProfileID,
		AckRequired: mode != ncp.AddrGroup && dst.Addr < 0xFFF8,
		Payload:     payload,
	}, nil
}

func (n *Node) buildCommand(cmd Command) (ncp.DataRequest, error) {
	if cmd.Frame == nil {
		return ncp.DataRequest{}, fmt.Errorf("node: command without frame")
	}
	cmd.Frame.Seq(n.nextSeq())
	payload, err := n.finishFrame(cmd.Frame)
	if err != nil {
		return ncp.DataRequest{}, err
	}
	return n.dataRequest(cmd.Endpoint, cmd.Dst, cmd.Frame.Cluster(), payload)
}

// SendCommand assigns a sequence number to cmd, sends it and returns the
// sequence number. Anything queued by earlier operations goes out first.
func (n *Node) SendCommand(ctx context.Context, cmd Command) (uint8, error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return 0, ErrClosed
	}
	req, err := n.buildCommand(cmd)
	if err != nil {
		n.unlock()
		return 0, err
	}
	seq := cmd.Frame.Header().Seq
	n.unlock()

	n.sendMu.Lock()
	defer n.sendMu.Unlock()
	if _, err := n.link.Send(ctx, req); err != nil {
		return seq, fmt.Errorf("send %s: %w", cmd.Frame.Def().Name, err)
	}
	n.logger.Debug("command sent", "cmd", cmd.Frame.Def().Name, "seq", seq, "dst", fmt.Sprintf("0x%04X", req.DstAddr))
	return seq, nil
}

// SendGlobal sends a profile-wide command whose payload is written by encode.
func (n *Node) SendGlobal(ctx context.Context, src uint8, dst Destination, cluster uint16, cmd uint8, encode func(w *zcl.Writer) error) (uint8, error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return 0, ErrClosed
	}
	seq := n.nextSeq()
	hdr := zcl.Header{
		Control: zcl.FrameControl{Type: zcl.FrameTypeGlobal, Direction: zcl.DirectionToServer},
		Seq:     seq,
		Command: cmd,
	}
	payload, err := n.globalFrame(hdr, encode)
	var req ncp.DataRequest
	if err == nil {
		req, err = n.dataRequest(src, dst, cluster, payload)
	}
	n.unlock()
	if err != nil {
		return 0, err
	}

	n.sendMu.Lock()
	defer n.sendMu.Unlock()
	if _, err := n.link.Send(ctx, req); err != nil {
		return seq, fmt.Errorf("send %s: %w", zcl.FoundationName(cmd), err)
	}
	return seq, nil
}

// globalFrame serialises a profile-wide frame into a frame-size buffer.
func (n *Node) globalFrame(hdr zcl.Header, encode func(w *zcl.Writer) error) ([]byte, error) {
	w := zcl.NewWriter(make([]byte, n.frameSize))
	if err := hdr.Encode(w); err != nil {
		return nil, err
	}
	if encode != nil {
		if err := encode(w); err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}
