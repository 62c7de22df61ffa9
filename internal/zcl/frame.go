package zcl

import "fmt"

// FrameType is the ZCL frame type carried in bits 0-1 of the frame control.
type FrameType uint8

const (
	FrameTypeGlobal  FrameType = 0x00 // profile-wide
	FrameTypeCluster FrameType = 0x01 // cluster-specific
)

// ZCL frame control bits.
const (
	frameTypeMask         = 0x03
	flagMfrSpecific       = 0x04
	flagServerToClient    = 0x08
	flagDisableDefaultRsp = 0x10
)

// DefaultFrameSize is the buffer size used when callers do not supply one.
const DefaultFrameSize = 256

// FrameControl is the decoded frame control octet.
type FrameControl struct {
	Type                   FrameType
	ManufacturerSpecific   bool
	Direction              CommandDirection
	DisableDefaultResponse bool
}

// Byte returns the wire encoding of the frame control.
func (fc FrameControl) Byte() uint8 {
	b := uint8(fc.Type) & frameTypeMask
	if fc.ManufacturerSpecific {
		b |= flagMfrSpecific
	}
	if fc.Direction == DirectionToClient {
		b |= flagServerToClient
	}
	if fc.DisableDefaultResponse {
		b |= flagDisableDefaultRsp
	}
	return b
}

// ParseFrameControl decodes a frame control octet. Reserved bits are ignored.
func ParseFrameControl(b uint8) FrameControl {
	fc := FrameControl{
		Type:                   FrameType(b & frameTypeMask),
		ManufacturerSpecific:   b&flagMfrSpecific != 0,
		Direction:              DirectionToServer,
		DisableDefaultResponse: b&flagDisableDefaultRsp != 0,
	}
	if b&flagServerToClient != 0 {
		fc.Direction = DirectionToClient
	}
	return fc
}

// Header is the ZCL frame header.
type Header struct {
	Control      FrameControl
	Manufacturer uint16 // valid only when Control.ManufacturerSpecific
	Seq          uint8
	Command      uint8
}

// Size returns the encoded header length.
func (h Header) Size() int {
	if h.Control.ManufacturerSpecific {
		return 5
	}
	return 3
}

// Encode writes the header to w.
func (h Header) Encode(w *Writer) error {
	start := w.Len()
	err := w.PutUint8(h.Control.Byte())
	if err == nil && h.Control.ManufacturerSpecific {
		err = w.PutUint16(h.Manufacturer)
	}
	if err == nil {
		err = w.PutUint8(h.Seq)
	}
	if err == nil {
		err = w.PutUint8(h.Command)
	}
	if err != nil {
		w.Truncate(start)
	}
	return err
}

// ParseHeader reads a header from r.
func ParseHeader(r *Reader) (Header, error) {
	start := r.Offset()
	var h Header
	fc, err := r.Uint8()
	if err != nil {
		return h, fmt.Errorf("zcl: frame control: %w", ErrMalformed)
	}
	h.Control = ParseFrameControl(fc)
	if h.Control.Type > FrameTypeCluster {
		r.off = start
		return h, fmt.Errorf("zcl: reserved frame type %d: %w", h.Control.Type, ErrMalformed)
	}
	if h.Control.ManufacturerSpecific {
		if h.Manufacturer, err = r.Uint16(); err != nil {
			r.off = start
			return h, fmt.Errorf("zcl: manufacturer code: %w", ErrMalformed)
		}
	}
	if h.Seq, err = r.Uint8(); err == nil {
		h.Command, err = r.Uint8()
	}
	if err != nil {
		r.off = start
		return h, fmt.Errorf("zcl: truncated header: %w", ErrMalformed)
	}
	return h, nil
}

// Frame is a ZCL frame: header plus undecoded payload.
type Frame struct {
	Header
	Payload []byte
}

// ParseFrame splits b into header and payload. The payload aliases b.
func ParseFrame(b []byte) (Frame, error) {
	r := NewReader(b)
	h, err := ParseHeader(r)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Header: h, Payload: r.Rest()}, nil
}

// MarshalTo writes the frame into buf and returns the written slice.
func (f Frame) MarshalTo(buf []byte) ([]byte, error) {
	w := NewWriter(buf)
	if err := f.Header.Encode(w); err != nil {
		return nil, err
	}
	if err := w.PutBytes(f.Payload); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Bytes returns the frame in a newly allocated slice.
func (f Frame) Bytes() []byte {
	b, _ := f.MarshalTo(make([]byte, f.Header.Size()+len(f.Payload)))
	return b
}

// IsGlobal reports whether the frame carries a profile-wide command.
func (f Frame) IsGlobal() bool { return f.Control.Type == FrameTypeGlobal }

func (f Frame) String() string {
	kind := "global"
	if f.Control.Type == FrameTypeCluster {
		kind = "cluster"
	}
	return fmt.Sprintf("%s cmd=0x%02X seq=%d dir=%s mfr=0x%04X len=%d", kind, f.Command, f.Seq, f.Control.Direction, f.Manufacturer, len(f.Payload))
}
