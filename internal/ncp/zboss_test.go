package ncp

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"testing"
)

func TestCRC8KnownValues(t *testing.T) {
	// init=0xFF, no data, xorout=0xFF
	if zbossCRC8(nil) != 0x00 {
		t.Errorf("CRC8(nil) = 0x%02X, want 0x00", zbossCRC8(nil))
	}
	data := []byte{0x03, 0x00, 0x00, 0xC0}
	if zbossCRC8(data) != zbossCRC8(data) {
		t.Fatal("CRC8 not deterministic")
	}
}

func TestCRC16KnownValue(t *testing.T) {
	// CRC-16/KERMIT check value.
	if got := zbossCRC16([]byte("123456789")); got != 0x2189 {
		t.Errorf("CRC16 = 0x%04X, want 0x2189", got)
	}
}

func TestEncodeDecodeRequestRoundTrip(t *testing.T) {
	payload := []byte{0xAA, 0xBB, 0xCC}
	callID := zbossCmdAPSDEDataReq
	tsn := uint8(42)
	pktSeq := uint8(1)

	encoded := zbossEncodeRequest(callID, tsn, pktSeq, payload)
	if encoded[0] != zbossSig0 || encoded[1] != zbossSig1 {
		t.Fatalf("bad signature: 0x%02X%02X", encoded[0], encoded[1])
	}

	decoded, err := zbossDecodeFrame(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if decoded.HL.PacketType != zbossHLRequest {
		t.Errorf("PacketType: got %d, want %d", decoded.HL.PacketType, zbossHLRequest)
	}
	if decoded.HL.CallID != callID {
		t.Errorf("CallID: got 0x%04X, want 0x%04X", decoded.HL.CallID, callID)
	}
	if decoded.HL.TSN != tsn {
		t.Errorf("TSN: got %d, want %d", decoded.HL.TSN, tsn)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Errorf("Payload: got %X, want %X", decoded.Payload, payload)
	}
	if zbossLLPktSeq(decoded.LL.Flags) != pktSeq {
		t.Errorf("PktSeq: got %d, want %d", zbossLLPktSeq(decoded.LL.Flags), pktSeq)
	}
}

func TestEncodeDecodeACKRoundTrip(t *testing.T) {
	for seq := uint8(0); seq < 4; seq++ {
		decoded, err := zbossDecodeFrame(zbossEncodeACK(seq))
		if err != nil {
			t.Fatalf("seq=%d decode error: %v", seq, err)
		}
		if !zbossLLIsACK(decoded.LL.Flags) {
			t.Errorf("seq=%d: not an ACK frame", seq)
		}
		if got := zbossLLAckSeq(decoded.LL.Flags); got != seq {
			t.Errorf("seq=%d: AckSeq got %d", seq, got)
		}
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	if _, err := zbossDecodeFrame([]byte{0xDE, 0xAD}); err == nil {
		t.Error("expected error for short frame")
	}

	bad := make([]byte, 10)
	bad[0], bad[1] = 0xFF, 0xFF
	if _, err := zbossDecodeFrame(bad); err == nil {
		t.Error("expected error for bad signature")
	}

	ack := zbossEncodeACK(0)
	ack[6] ^= 0xFF
	if _, err := zbossDecodeFrame(ack); err == nil {
		t.Error("expected CRC8 error")
	}

	req := zbossEncodeRequest(zbossCmdGetModuleVersion, 1, 0, nil)
	req[7] ^= 0xFF
	if _, err := zbossDecodeFrame(req); err == nil {
		t.Error("expected CRC16 error")
	}
}

func TestReadFrameResync(t *testing.T) {
	frame := zbossEncodeRequest(zbossCmdNCPReset, 7, 2, []byte{0x00})
	stream := append([]byte{0x00, 0xDE, 0x11, 0xFF}, frame...)
	stream = append(stream, zbossEncodeACK(2)...)
	r := bufio.NewReader(bytes.NewReader(stream))

	got, err := readZBOSSFrame(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("frame: got %X, want %X", got, frame)
	}
	got, err = readZBOSSFrame(r)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if f, _ := zbossDecodeFrame(got); f == nil || !zbossLLIsACK(f.LL.Flags) {
		t.Errorf("second frame is not an ACK: %X", got)
	}
}

func TestLLFlagHelpers(t *testing.T) {
	flags := uint8(zbossFlagFirstFrag | zbossFlagLastFrag | (2 << zbossFlagPktSeqShift))
	if zbossLLPktSeq(flags) != 2 {
		t.Errorf("PktSeq: got %d, want 2", zbossLLPktSeq(flags))
	}
	if zbossLLIsACK(flags) {
		t.Error("should not be ACK")
	}
	ackFlags := uint8(zbossFlagACK | (3 << zbossFlagAckSeqShift))
	if !zbossLLIsACK(ackFlags) || zbossLLAckSeq(ackFlags) != 3 {
		t.Errorf("ACK flags decoded wrong: 0x%02X", ackFlags)
	}
}

func TestBuildAPSDEDataReq(t *testing.T) {
	zclData := []byte{0x18, 0x01, 0x0B, 0x02, 0x00}
	buf := buildAPSDEDataReq(DataRequest{
		DstAddr:     0x1234,
		DstEP:       1,
		SrcEP:       1,
		Cluster:     0x0006,
		AckRequired: true,
		Payload:     zclData,
	})

	if len(buf) != 24+len(zclData) {
		t.Fatalf("length: got %d, want %d", len(buf), 24+len(zclData))
	}
	if got := binary.LittleEndian.Uint16(buf[1:3]); got != uint16(len(zclData)) {
		t.Errorf("data_len: got %d, want %d", got, len(zclData))
	}
	if got := binary.LittleEndian.Uint16(buf[3:5]); got != 0x1234 {
		t.Errorf("dst_addr: got 0x%04X, want 0x1234", got)
	}
	if got := binary.LittleEndian.Uint16(buf[11:13]); got != ProfileHA {
		t.Errorf("profile: got 0x%04X, want default HA", got)
	}
	if got := binary.LittleEndian.Uint16(buf[13:15]); got != 0x0006 {
		t.Errorf("cluster_id: got 0x%04X, want 0x0006", got)
	}
	if buf[17] != DefaultRadius {
		t.Errorf("radius: got %d, want %d", buf[17], DefaultRadius)
	}
	if buf[18] != uint8(AddrShort) {
		t.Errorf("addr_mode: got 0x%02X, want 0x%02X", buf[18], AddrShort)
	}
	if buf[19] != zbossTxOptAck {
		t.Errorf("tx_options: got 0x%02X, want APS ACK", buf[19])
	}
	if !bytes.Equal(buf[24:], zclData) {
		t.Errorf("data: got %X", buf[24:])
	}
}

func TestBuildAPSDEDataReqGroup(t *testing.T) {
	buf := buildAPSDEDataReq(DataRequest{Mode: AddrGroup, DstAddr: 0x0007, Cluster: 0x0006, AckRequired: true})
	if buf[18] != uint8(AddrGroup) {
		t.Errorf("addr_mode: got 0x%02X", buf[18])
	}
	if buf[19] != 0 {
		t.Errorf("group frames must not request APS ACK, tx_options=0x%02X", buf[19])
	}
}

// apsInd builds an APSDE_DATA_IND payload the way the NCP sends it.
func apsInd(fc uint8, src, dst uint16, srcEP, dstEP uint8, cluster uint16, data []byte) []byte {
	buf := make([]byte, apsIndHdrSize+len(data))
	buf[0] = apsIndHdrSize - 3
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(data)))
	buf[3] = fc
	binary.LittleEndian.PutUint16(buf[4:6], src)
	binary.LittleEndian.PutUint16(buf[6:8], dst)
	buf[10] = dstEP
	buf[11] = srcEP
	binary.LittleEndian.PutUint16(buf[12:14], cluster)
	binary.LittleEndian.PutUint16(buf[14:16], ProfileHA)
	buf[21] = 0xB4
	buf[22] = 0xC4 // -60 dBm
	copy(buf[apsIndHdrSize:], data)
	return buf
}

func TestParseAPSDEDataInd(t *testing.T) {
	zclData := []byte{0x01, 0x7A, 0x02}
	ind, err := parseAPSDEDataInd(apsInd(0x00, 0xABCD, 0x0000, 2, 1, 0x0006, zclData))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ind.SrcAddr != 0xABCD || ind.SrcEP != 2 || ind.DstEP != 1 {
		t.Errorf("addressing: %+v", ind)
	}
	if ind.Cluster != 0x0006 || ind.Profile != ProfileHA {
		t.Errorf("cluster/profile: 0x%04X/0x%04X", ind.Cluster, ind.Profile)
	}
	if ind.LQI != 0xB4 || ind.RSSI != -60 {
		t.Errorf("link quality: lqi=%d rssi=%d", ind.LQI, ind.RSSI)
	}
	if ind.Broadcast {
		t.Error("unicast frame flagged broadcast")
	}
	if !bytes.Equal(ind.Payload, zclData) {
		t.Errorf("payload: got %X, want %X", ind.Payload, zclData)
	}

	ind, _ = parseAPSDEDataInd(apsInd(0x00, 0xABCD, 0xFFFD, 2, 0xFF, 0x0006, zclData))
	if !ind.Broadcast {
		t.Error("frame to 0xFFFD not flagged broadcast")
	}
	ind, _ = parseAPSDEDataInd(apsInd(apsDeliveryGroup, 0xABCD, 0x0000, 2, 1, 0x0006, zclData))
	if !ind.Broadcast || !ind.Group {
		t.Error("group delivery not flagged")
	}

	short := apsInd(0, 1, 0, 1, 1, 6, zclData)
	if _, err := parseAPSDEDataInd(short[:len(short)-1]); err == nil {
		t.Error("expected error for truncated data")
	}
}

func TestBuildSimpleDescPayload(t *testing.T) {
	buf := buildSimpleDescPayload(SimpleDescriptor{
		Endpoint:    1,
		ProfileID:   ProfileHA,
		DeviceID:    0x0100,
		Version:     1,
		InClusters:  []uint16{0x0000, 0x0006},
		OutClusters: []uint16{0x0019},
	})
	want := []byte{0x01, 0x04, 0x01, 0x00, 0x01, 0x01, 0x02, 0x01, 0x00, 0x00, 0x06, 0x00, 0x19, 0x00}
	if !bytes.Equal(buf, want) {
		t.Errorf("got %X, want %X", buf, want)
	}
}
