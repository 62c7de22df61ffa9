package ncp

// ZBOSS NCP serial protocol: LL/HL frame codec, CRC8/CRC16, command IDs.
// Reference: Wireshark ZBOSS NCP dissector (packet-zbncp.c/h).

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// --- LL (Low-Level) header constants ---

const (
	zbossSig0         = 0xDE
	zbossSig1         = 0xAD
	zbossLLHeaderSize = 7 // sig(2) + len(2) + type(1) + flags(1) + crc8(1)
	zbossBodyCRCSize  = 2 // CRC16 at start of body
	zbossMaxFrameSize = 512
)

// LL packet type (always 0x06 for ZBOSS NCP API HL; ACK vs DATA is in flags).
const zbossLLType uint8 = 0x06

// LL flags bitmask.
const (
	zbossFlagACK         = 0x01
	zbossFlagRetrans     = 0x02
	zbossFlagPktSeqMask  = 0x0C
	zbossFlagPktSeqShift = 2
	zbossFlagAckSeqMask  = 0x30
	zbossFlagAckSeqShift = 4
	zbossFlagFirstFrag   = 0x40
	zbossFlagLastFrag    = 0x80
)

// --- HL (High-Level) header constants ---

const (
	zbossHLVersion    uint8 = 0x00
	zbossHLRequest    uint8 = 0x00
	zbossHLResponse   uint8 = 0x01
	zbossHLIndication uint8 = 0x02
)

// Command IDs used by the APS data service.
const (
	zbossCmdGetModuleVersion uint16 = 0x0001
	zbossCmdNCPReset         uint16 = 0x0002
	zbossCmdNCPResetInd      uint16 = 0x002B
	zbossCmdAFSetSimpleDesc  uint16 = 0x0101
	zbossCmdAPSDEDataReq     uint16 = 0x0301
	zbossCmdAPSDEDataInd     uint16 = 0x0306
)

func zbossCmdName(id uint16) string {
	switch id {
	case zbossCmdGetModuleVersion:
		return "GetModuleVersion"
	case zbossCmdNCPReset:
		return "NCPReset"
	case zbossCmdNCPResetInd:
		return "NCPResetInd"
	case zbossCmdAFSetSimpleDesc:
		return "AFSetSimpleDesc"
	case zbossCmdAPSDEDataReq:
		return "APSDE_DataReq"
	case zbossCmdAPSDEDataInd:
		return "APSDE_DataInd"
	default:
		return fmt.Sprintf("0x%04X", id)
	}
}

// zbossStatusName returns a human-readable status description.
func zbossStatusName(cat, code uint8) string {
	if cat == 0 && code == 0 {
		return "OK"
	}
	catName := "Generic"
	switch cat {
	case 2:
		catName = "MAC"
	case 3:
		catName = "NWK"
	case 4:
		catName = "APS"
	case 5:
		catName = "ZDO"
	case 6:
		catName = "CBKE"
	}
	return fmt.Sprintf("%s/%d(0x%02X)", catName, code, code)
}

// APSDE tx options.
const (
	zbossTxOptAck = 0x04
)

// APS frame control delivery modes (bits 2-3).
const (
	apsDeliveryMask      = 0x0C
	apsDeliveryBroadcast = 0x08
	apsDeliveryGroup     = 0x0C
)

// zbossResetNoOption keeps NVRAM on NCPReset.
const zbossResetNoOption uint8 = 0x00

// --- Frame types ---

type zbossLLHeader struct {
	Length uint16
	Type   uint8
	Flags  uint8
}

type zbossHLHeader struct {
	Version    uint8
	PacketType uint8
	CallID     uint16
	TSN        uint8 // only for Request/Response
	StatusCat  uint8 // only for Response
	StatusCode uint8 // only for Response
}

type zbossFrame struct {
	LL      zbossLLHeader
	HL      zbossHLHeader
	Payload []byte
}

func zbossLLPktSeq(flags uint8) uint8 {
	return (flags >> zbossFlagPktSeqShift) & 0x03
}

func zbossLLAckSeq(flags uint8) uint8 {
	return (flags >> zbossFlagAckSeqShift) & 0x03
}

func zbossLLIsACK(flags uint8) bool {
	return flags&zbossFlagACK != 0
}

// --- CRC tables ---

var (
	crc8Table  [256]uint8  // CRC-8/KOOP: reflected poly 0xB2, init 0xFF, xorout 0xFF
	crc16Table [256]uint16 // CRC-16 reflected poly 0x8408, init 0, xorout 0
)

func init() {
	for i := 0; i < 256; i++ {
		c8 := uint8(i)
		c16 := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if c8&1 != 0 {
				c8 = (c8 >> 1) ^ 0xB2
			} else {
				c8 >>= 1
			}
			if c16&1 != 0 {
				c16 = (c16 >> 1) ^ 0x8408
			} else {
				c16 >>= 1
			}
		}
		crc8Table[i] = c8
		crc16Table[i] = c16
	}
}

func zbossCRC8(data []byte) uint8 {
	crc := uint8(0xFF)
	for _, b := range data {
		crc = crc8Table[crc^b]
	}
	return crc ^ 0xFF
}

func zbossCRC16(data []byte) uint16 {
	crc := uint16(0x0000)
	for _, b := range data {
		crc = (crc >> 8) ^ crc16Table[(crc^uint16(b))&0xFF]
	}
	return crc
}

// --- Encode ---

// zbossEncodeRequest builds a complete ZBOSS frame for an HL request.
// pktSeq is the 2-bit LL packet sequence number.
func zbossEncodeRequest(callID uint16, tsn uint8, pktSeq uint8, payload []byte) []byte {
	// HL header: version(1) + type(1) + callID(2) + tsn(1) = 5 bytes
	hlData := make([]byte, 5+len(payload))
	hlData[0] = zbossHLVersion
	hlData[1] = zbossHLRequest
	binary.LittleEndian.PutUint16(hlData[2:4], callID)
	hlData[4] = tsn
	copy(hlData[5:], payload)
	return zbossEncodeDataFrame(pktSeq, hlData)
}

// zbossEncodeDataFrame wraps HL data in an LL data frame.
func zbossEncodeDataFrame(pktSeq uint8, hlData []byte) []byte {
	// Size counts itself: size(2) + type(1) + flags(1) + crc8(1) + CRC16(2) + hlData
	llSize := uint16(5 + zbossBodyCRCSize + len(hlData))

	flags := uint8(zbossFlagFirstFrag | zbossFlagLastFrag)
	flags |= (pktSeq << zbossFlagPktSeqShift) & zbossFlagPktSeqMask

	frame := make([]byte, 2+int(llSize))
	frame[0] = zbossSig0
	frame[1] = zbossSig1
	binary.LittleEndian.PutUint16(frame[2:4], llSize)
	frame[4] = zbossLLType
	frame[5] = flags
	frame[6] = zbossCRC8(frame[2:6])
	binary.LittleEndian.PutUint16(frame[7:9], zbossCRC16(hlData))
	copy(frame[9:], hlData)
	return frame
}

// zbossEncodeACK builds an LL ACK frame (7 bytes, no body).
func zbossEncodeACK(ackSeq uint8) []byte {
	frame := make([]byte, zbossLLHeaderSize)
	frame[0] = zbossSig0
	frame[1] = zbossSig1
	binary.LittleEndian.PutUint16(frame[2:4], 5)
	frame[4] = zbossLLType
	frame[5] = zbossFlagACK | ((ackSeq << zbossFlagAckSeqShift) & zbossFlagAckSeqMask)
	frame[6] = zbossCRC8(frame[2:6])
	return frame
}

// --- Decode ---

// readZBOSSFrame reads one raw LL frame from r, resynchronising on the
// signature after garbage.
func readZBOSSFrame(r *bufio.Reader) ([]byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != zbossSig0 {
			continue
		}
		next, err := r.Peek(1)
		if err != nil {
			return nil, err
		}
		if next[0] != zbossSig1 {
			continue
		}
		_, _ = r.ReadByte()

		var size [2]byte
		if _, err := io.ReadFull(r, size[:]); err != nil {
			return nil, err
		}
		llSize := binary.LittleEndian.Uint16(size[:])
		if llSize < 5 || llSize > zbossMaxFrameSize {
			continue
		}
		frame := make([]byte, 2+int(llSize))
		frame[0], frame[1] = zbossSig0, zbossSig1
		copy(frame[2:4], size[:])
		if _, err := io.ReadFull(r, frame[4:]); err != nil {
			return nil, err
		}
		return frame, nil
	}
}

// zbossDecodeFrame parses a complete ZBOSS frame from raw bytes.
func zbossDecodeFrame(data []byte) (*zbossFrame, error) {
	if len(data) < zbossLLHeaderSize {
		return nil, fmt.Errorf("zboss: frame too short: %d bytes", len(data))
	}
	if data[0] != zbossSig0 || data[1] != zbossSig1 {
		return nil, fmt.Errorf("zboss: bad signature: 0x%02X%02X", data[0], data[1])
	}

	llSize := binary.LittleEndian.Uint16(data[2:4])
	llType := data[4]
	llFlags := data[5]
	llCRC := data[6]

	if got := zbossCRC8(data[2:6]); llCRC != got {
		return nil, fmt.Errorf("zboss: LL CRC8 mismatch: got 0x%02X, want 0x%02X", llCRC, got)
	}
	if llType != zbossLLType {
		return nil, fmt.Errorf("zboss: unexpected LL type: 0x%02X", llType)
	}
	if int(llSize)+2 > len(data) {
		return nil, fmt.Errorf("zboss: frame truncated: need %d, have %d", llSize+2, len(data))
	}

	f := &zbossFrame{LL: zbossLLHeader{Length: llSize, Type: llType, Flags: llFlags}}
	if zbossLLIsACK(llFlags) {
		return f, nil
	}

	body := data[zbossLLHeaderSize : 2+llSize]
	if len(body) < zbossBodyCRCSize {
		return nil, fmt.Errorf("zboss: body too short for CRC16: %d bytes", len(body))
	}
	bodyCRC := binary.LittleEndian.Uint16(body[0:2])
	hlData := body[2:]
	if got := zbossCRC16(hlData); bodyCRC != got {
		return nil, fmt.Errorf("zboss: body CRC16 mismatch: got 0x%04X, want 0x%04X", bodyCRC, got)
	}
	if len(hlData) < 4 {
		return nil, fmt.Errorf("zboss: HL data too short: %d bytes", len(hlData))
	}

	f.HL.Version = hlData[0]
	f.HL.PacketType = hlData[1]
	f.HL.CallID = binary.LittleEndian.Uint16(hlData[2:4])

	pos := 4
	switch f.HL.PacketType {
	case zbossHLRequest:
		if len(hlData) < 5 {
			return nil, fmt.Errorf("zboss: request HL too short for TSN")
		}
		f.HL.TSN = hlData[4]
		pos = 5
	case zbossHLResponse:
		if len(hlData) < 7 {
			return nil, fmt.Errorf("zboss: response HL too short")
		}
		f.HL.TSN = hlData[4]
		f.HL.StatusCat = hlData[5]
		f.HL.StatusCode = hlData[6]
		pos = 7
	case zbossHLIndication:
	default:
		return nil, fmt.Errorf("zboss: unknown HL packet type: 0x%02X", f.HL.PacketType)
	}

	if pos < len(hlData) {
		f.Payload = append([]byte(nil), hlData[pos:]...)
	}
	return f, nil
}

// --- APS data service ---

const apsReqFixedLen = 24

// buildAPSDEDataReq builds the APSDE_DATA_REQ payload.
func buildAPSDEDataReq(req DataRequest) []byte {
	// param_len(1) + data_len(2) + dst_addr(8) + profile_id(2) + cluster_id(2) +
	// dst_endpoint(1) + src_endpoint(1) + radius(1) + dst_addr_mode(1) +
	// tx_options(1) + use_alias(1) + alias_src_addr(2) + alias_seq_num(1) + data
	buf := make([]byte, apsReqFixedLen+len(req.Payload))
	buf[0] = apsReqFixedLen - 3 // fixed params excluding param_len+data_len
	binary.LittleEndian.PutUint16(buf[1:3], uint16(len(req.Payload)))
	mode := req.Mode
	if mode == 0 {
		mode = AddrShort
	}
	if mode == AddrIEEE {
		binary.LittleEndian.PutUint64(buf[3:11], req.DstIEEE)
	} else {
		binary.LittleEndian.PutUint16(buf[3:5], req.DstAddr)
	}
	profile := req.Profile
	if profile == 0 {
		profile = ProfileHA
	}
	radius := req.Radius
	if radius == 0 {
		radius = DefaultRadius
	}
	binary.LittleEndian.PutUint16(buf[11:13], profile)
	binary.LittleEndian.PutUint16(buf[13:15], req.Cluster)
	buf[15] = req.DstEP
	buf[16] = req.SrcEP
	buf[17] = radius
	buf[18] = uint8(mode)
	if req.AckRequired && mode != AddrGroup {
		buf[19] = zbossTxOptAck
	}
	copy(buf[apsReqFixedLen:], req.Payload)
	return buf
}

const apsIndHdrSize = 24

// parseAPSDEDataInd parses an APSDE_DATA_IND payload.
func parseAPSDEDataInd(payload []byte) (Indication, error) {
	// param_len(1) + data_len(2) + aps_fc(1) + src_nwk_addr(2) + dst_nwk_addr(2) +
	// group_addr(2) + dst_endpoint(1) + src_endpoint(1) + cluster_id(2) + profile_id(2) +
	// aps_counter(1) + src_mac_addr(2) + dst_mac_addr(2) + lqi(1) + rssi(1) + aps_key_attr(1) + data[]
	if len(payload) < apsIndHdrSize {
		return Indication{}, fmt.Errorf("zboss: APSDE_DATA_IND too short: %d bytes", len(payload))
	}
	dataLen := int(binary.LittleEndian.Uint16(payload[1:3]))
	if len(payload) < apsIndHdrSize+dataLen {
		return Indication{}, fmt.Errorf("zboss: APSDE_DATA_IND data truncated: need %d, have %d", dataLen, len(payload)-apsIndHdrSize)
	}
	fc := payload[3]
	ind := Indication{
		SrcAddr:   binary.LittleEndian.Uint16(payload[4:6]),
		DstAddr:   binary.LittleEndian.Uint16(payload[6:8]),
		GroupAddr: binary.LittleEndian.Uint16(payload[8:10]),
		DstEP:     payload[10],
		SrcEP:     payload[11],
		Cluster:   binary.LittleEndian.Uint16(payload[12:14]),
		Profile:   binary.LittleEndian.Uint16(payload[14:16]),
		LQI:       payload[21],
		RSSI:      int8(payload[22]),
		Payload:   append([]byte(nil), payload[apsIndHdrSize:apsIndHdrSize+dataLen]...),
	}
	switch fc & apsDeliveryMask {
	case apsDeliveryGroup:
		ind.Group = true
		ind.Broadcast = true
	case apsDeliveryBroadcast:
		ind.Broadcast = true
	}
	if ind.DstAddr >= 0xFFF8 {
		ind.Broadcast = true
	}
	return ind, nil
}

// buildSimpleDescPayload builds AF_SET_SIMPLE_DESC payload.
func buildSimpleDescPayload(sd SimpleDescriptor) []byte {
	buf := make([]byte, 8+len(sd.InClusters)*2+len(sd.OutClusters)*2)
	buf[0] = sd.Endpoint
	binary.LittleEndian.PutUint16(buf[1:3], sd.ProfileID)
	binary.LittleEndian.PutUint16(buf[3:5], sd.DeviceID)
	buf[5] = sd.Version
	buf[6] = uint8(len(sd.InClusters))
	buf[7] = uint8(len(sd.OutClusters))
	pos := 8
	for _, c := range sd.InClusters {
		binary.LittleEndian.PutUint16(buf[pos:pos+2], c)
		pos += 2
	}
	for _, c := range sd.OutClusters {
		binary.LittleEndian.PutUint16(buf[pos:pos+2], c)
		pos += 2
	}
	return buf
}
