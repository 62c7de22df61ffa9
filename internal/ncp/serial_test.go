package ncp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeNCP answers every request with an ACK and a success response, and
// records the requests it saw.
type fakeNCP struct {
	conn     net.Conn
	requests chan *zbossFrame
	pktSeq   uint8
}

func newFakeNCP(t *testing.T) (*fakeNCP, *SerialLink) {
	t.Helper()
	host, dev := net.Pipe()
	f := &fakeNCP{conn: dev, requests: make(chan *zbossFrame, 8)}
	go f.serve()
	link := NewSerialLink(host, testLogger())
	t.Cleanup(func() {
		link.Close()
		dev.Close()
	})
	return f, link
}

func (f *fakeNCP) serve() {
	r := bufio.NewReader(f.conn)
	for {
		raw, err := readZBOSSFrame(r)
		if err != nil {
			return
		}
		frame, err := zbossDecodeFrame(raw)
		if err != nil || zbossLLIsACK(frame.LL.Flags) {
			continue
		}
		if _, err := f.conn.Write(zbossEncodeACK(zbossLLPktSeq(frame.LL.Flags))); err != nil {
			return
		}
		f.requests <- frame
		if frame.HL.CallID == zbossCmdNCPReset {
			continue
		}
		hl := []byte{zbossHLVersion, zbossHLResponse, 0, 0, frame.HL.TSN, 0, 0}
		binary.LittleEndian.PutUint16(hl[2:4], frame.HL.CallID)
		if frame.HL.CallID == zbossCmdGetModuleVersion {
			ver := make([]byte, 12)
			binary.LittleEndian.PutUint32(ver[0:4], 0x0102)
			binary.LittleEndian.PutUint32(ver[4:8], 0x030B0300)
			binary.LittleEndian.PutUint32(ver[8:12], 0x010E)
			hl = append(hl, ver...)
		}
		if _, err := f.conn.Write(zbossEncodeDataFrame(f.nextSeq(), hl)); err != nil {
			return
		}
	}
}

func (f *fakeNCP) nextSeq() uint8 {
	f.pktSeq = f.pktSeq%3 + 1
	return f.pktSeq
}

func (f *fakeNCP) indicate(callID uint16, payload []byte) error {
	hl := []byte{zbossHLVersion, zbossHLIndication, 0, 0}
	binary.LittleEndian.PutUint16(hl[2:4], callID)
	_, err := f.conn.Write(zbossEncodeDataFrame(f.nextSeq(), append(hl, payload...)))
	return err
}

func TestSerialLinkSend(t *testing.T) {
	f, link := newFakeNCP(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	zclData := []byte{0x08, 0x7A, 0x0B, 0x02, 0x00}
	id, err := link.Send(ctx, DataRequest{DstAddr: 0x1234, DstEP: 1, SrcEP: 1, Cluster: 0x0006, Payload: zclData})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id == 0 {
		t.Error("request id should be non-zero")
	}
	req := <-f.requests
	if req.HL.CallID != zbossCmdAPSDEDataReq {
		t.Fatalf("call id: got %s", zbossCmdName(req.HL.CallID))
	}
	if !bytes.Equal(req.Payload[apsReqFixedLen:], zclData) {
		t.Errorf("aps data: got %X, want %X", req.Payload[apsReqFixedLen:], zclData)
	}
}

func TestSerialLinkInitAndRegister(t *testing.T) {
	f, link := newFakeNCP(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	info, err := link.Init(ctx)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if info.StackVersion != "3.11.3.0" {
		t.Errorf("stack version: got %q", info.StackVersion)
	}
	<-f.requests

	sd := SimpleDescriptor{Endpoint: 1, ProfileID: ProfileHA, DeviceID: 0x0100, InClusters: []uint16{0x0006}}
	if err := link.RegisterEndpoint(ctx, sd); err != nil {
		t.Fatalf("RegisterEndpoint: %v", err)
	}
	req := <-f.requests
	if req.HL.CallID != zbossCmdAFSetSimpleDesc {
		t.Errorf("call id: got %s", zbossCmdName(req.HL.CallID))
	}
	if !bytes.Equal(req.Payload, buildSimpleDescPayload(sd)) {
		t.Errorf("simple desc payload: %X", req.Payload)
	}
}

func TestSerialLinkIndication(t *testing.T) {
	f, link := newFakeNCP(t)
	zclData := []byte{0x01, 0x7A, 0x02}
	if err := f.indicate(zbossCmdAPSDEDataInd, apsInd(0, 0x4321, 0, 1, 1, 0x0006, zclData)); err != nil {
		t.Fatalf("indicate: %v", err)
	}
	select {
	case ind := <-link.Indications():
		if ind.SrcAddr != 0x4321 || ind.Cluster != 0x0006 {
			t.Errorf("indication: %+v", ind)
		}
		if !bytes.Equal(ind.Payload, zclData) {
			t.Errorf("payload: got %X", ind.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no indication delivered")
	}
}

func TestSerialLinkReset(t *testing.T) {
	f, link := newFakeNCP(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- link.Reset(ctx) }()
	for i := 0; i < 3; i++ {
		<-f.requests
	}
	if err := f.indicate(zbossCmdNCPResetInd, nil); err != nil {
		t.Fatalf("indicate: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("Reset: %v", err)
	}
}

func TestSerialLinkClosed(t *testing.T) {
	_, link := newFakeNCP(t)
	link.Close()
	if _, err := link.Send(context.Background(), DataRequest{}); err == nil {
		t.Error("Send after Close should fail")
	}
	if _, ok := <-link.Indications(); ok {
		t.Error("indications channel should be closed")
	}
}
