package zcl

import "fmt"

// Foundation ZCL command IDs (global, not cluster-specific).
const (
	FoundationReadAttributes              uint8 = 0x00
	FoundationReadAttributesResponse      uint8 = 0x01
	FoundationWriteAttributes             uint8 = 0x02
	FoundationWriteAttributesUndivided    uint8 = 0x03
	FoundationWriteAttributesResp         uint8 = 0x04
	FoundationWriteAttributesNoResp       uint8 = 0x05
	FoundationConfigReporting             uint8 = 0x06
	FoundationConfigReportingResp         uint8 = 0x07
	FoundationReadReportingConfig         uint8 = 0x08
	FoundationReadReportingConfigResp     uint8 = 0x09
	FoundationReportAttributes            uint8 = 0x0A
	FoundationDefaultResponse             uint8 = 0x0B
	FoundationDiscoverAttributes          uint8 = 0x0C
	FoundationDiscoverAttributesResp      uint8 = 0x0D
	FoundationDiscoverCommandsReceived    uint8 = 0x11
	FoundationDiscoverCommandsReceivedRsp uint8 = 0x12
	FoundationDiscoverCommandsGenerated   uint8 = 0x13
	FoundationDiscoverCommandsGenRsp      uint8 = 0x14
	FoundationDiscoverAttributesExt       uint8 = 0x15
	FoundationDiscoverAttributesExtResp   uint8 = 0x16
)

var foundationNames = map[uint8]string{
	FoundationReadAttributes:              "ReadAttributes",
	FoundationReadAttributesResponse:      "ReadAttributesResponse",
	FoundationWriteAttributes:             "WriteAttributes",
	FoundationWriteAttributesUndivided:    "WriteAttributesUndivided",
	FoundationWriteAttributesResp:         "WriteAttributesResponse",
	FoundationWriteAttributesNoResp:       "WriteAttributesNoResponse",
	FoundationConfigReporting:             "ConfigureReporting",
	FoundationConfigReportingResp:         "ConfigureReportingResponse",
	FoundationReadReportingConfig:         "ReadReportingConfiguration",
	FoundationReadReportingConfigResp:     "ReadReportingConfigurationResponse",
	FoundationReportAttributes:            "ReportAttributes",
	FoundationDefaultResponse:             "DefaultResponse",
	FoundationDiscoverAttributes:          "DiscoverAttributes",
	FoundationDiscoverAttributesResp:      "DiscoverAttributesResponse",
	FoundationDiscoverCommandsReceived:    "DiscoverCommandsReceived",
	FoundationDiscoverCommandsReceivedRsp: "DiscoverCommandsReceivedResponse",
	FoundationDiscoverCommandsGenerated:   "DiscoverCommandsGenerated",
	FoundationDiscoverCommandsGenRsp:      "DiscoverCommandsGeneratedResponse",
	FoundationDiscoverAttributesExt:       "DiscoverAttributesExtended",
	FoundationDiscoverAttributesExtResp:   "DiscoverAttributesExtendedResponse",
}

// FoundationName returns the name of a profile-wide command.
func FoundationName(cmd uint8) string {
	if n, ok := foundationNames[cmd]; ok {
		return n
	}
	return fmt.Sprintf("0x%02X", cmd)
}

// IsFoundationResponse reports whether cmd is a profile-wide response, which
// never triggers a default response.
func IsFoundationResponse(cmd uint8) bool {
	switch cmd {
	case FoundationReadAttributesResponse, FoundationWriteAttributesResp, FoundationConfigReportingResp,
		FoundationReadReportingConfigResp, FoundationDefaultResponse, FoundationDiscoverAttributesResp,
		FoundationDiscoverCommandsReceivedRsp, FoundationDiscoverCommandsGenRsp, FoundationDiscoverAttributesExtResp:
		return true
	}
	return false
}

// Reporting directions used in configure/read reporting records.
const (
	ReportDirectionSend    uint8 = 0x00 // the receiver sends reports
	ReportDirectionReceive uint8 = 0x01 // the receiver expects reports
)

// ReadRecord is one Read Attributes Response record. Value is present only
// when Status is success.
type ReadRecord struct {
	ID     uint16
	Status Status
	Value  Value
}

// AttributeRecord is an (id, typed value) pair as carried by Write Attributes
// and Report Attributes.
type AttributeRecord struct {
	ID    uint16
	Value Value
}

// StatusRecord is one Write Attributes / Configure Reporting response record.
type StatusRecord struct {
	Status    Status
	Direction uint8 // configure reporting only
	ID        uint16
}

// ReportingConfig is a Configure Reporting record and, with Status, a Read
// Reporting Configuration response record.
type ReportingConfig struct {
	Status    Status
	Direction uint8
	ID        uint16
	Type      DataType
	Min       uint16
	Max       uint16
	Change    Value // analog types only
	Timeout   uint16
}

// ReportingKey addresses one attribute in Read Reporting Configuration.
type ReportingKey struct {
	Direction uint8
	ID        uint16
}

// DefaultResponse is the payload of the Default Response command.
type DefaultResponse struct {
	Command uint8
	Status  Status
}

// DiscoveredAttribute is one Discover Attributes (Extended) response record.
type DiscoveredAttribute struct {
	ID     uint16
	Type   DataType
	Access Access // extended only
}

// DiscoverResponse is the payload of Discover Attributes (Extended) Response.
type DiscoverResponse struct {
	Complete   bool
	Attributes []DiscoveredAttribute
}

// DiscoverCommandsResponse is the payload of Discover Commands Received/Generated Response.
type DiscoverCommandsResponse struct {
	Complete bool
	Commands []uint8
}

func trailing(r *Reader, what string) error {
	if r.Len() != 0 {
		return fmt.Errorf("zcl: %s: %d unexpected bytes: %w", what, r.Len(), ErrTrailingBytes)
	}
	return nil
}

// DecodeReadAttributes parses a Read Attributes request.
func DecodeReadAttributes(b []byte) ([]uint16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("zcl: read attributes: odd payload length %d: %w", len(b), ErrMalformed)
	}
	r := NewReader(b)
	ids := make([]uint16, 0, len(b)/2)
	for r.Len() > 0 {
		id, _ := r.Uint16()
		ids = append(ids, id)
	}
	return ids, nil
}

// EncodeReadAttributes writes a Read Attributes request.
func EncodeReadAttributes(w *Writer, ids []uint16) error {
	start := w.Len()
	for _, id := range ids {
		if err := w.PutUint16(id); err != nil {
			w.Truncate(start)
			return err
		}
	}
	return nil
}

// EncodeReadResponse writes Read Attributes Response records.
func EncodeReadResponse(w *Writer, recs []ReadRecord) error {
	start := w.Len()
	for _, rec := range recs {
		if err := encodeReadRecord(w, rec); err != nil {
			w.Truncate(start)
			return err
		}
	}
	return nil
}

func encodeReadRecord(w *Writer, rec ReadRecord) error {
	if err := w.PutUint16(rec.ID); err != nil {
		return err
	}
	if err := w.PutUint8(uint8(rec.Status)); err != nil {
		return err
	}
	if rec.Status != StatusSuccess {
		return nil
	}
	if err := w.PutUint8(uint8(rec.Value.Type())); err != nil {
		return err
	}
	return EncodeValue(w, rec.Value)
}

// ReadRecordSize returns the encoded size of rec.
func ReadRecordSize(rec ReadRecord) int {
	if rec.Status != StatusSuccess {
		return 3
	}
	return 4 + rec.Value.Size()
}

// DecodeReadResponse parses Read Attributes Response records.
func DecodeReadResponse(b []byte) ([]ReadRecord, error) {
	r := NewReader(b)
	var recs []ReadRecord
	for r.Len() > 0 {
		var rec ReadRecord
		id, err := r.Uint16()
		if err != nil {
			return nil, fmt.Errorf("zcl: read response: %w", err)
		}
		st, err := r.Uint8()
		if err != nil {
			return nil, fmt.Errorf("zcl: read response 0x%04X: %w", id, err)
		}
		rec.ID, rec.Status = id, Status(st)
		if rec.Status == StatusSuccess {
			if rec.Value, err = decodeTyped(r); err != nil {
				return nil, fmt.Errorf("zcl: read response 0x%04X: %w", id, err)
			}
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func decodeTyped(r *Reader) (Value, error) {
	t, err := r.Uint8()
	if err != nil {
		return Value{}, err
	}
	if !DataType(t).Valid() {
		return Value{}, fmt.Errorf("type 0x%02X: %w", t, ErrInvalidType)
	}
	return DecodeValue(r, DataType(t))
}

// DecodeAttributeRecords parses Write Attributes or Report Attributes records.
func DecodeAttributeRecords(b []byte) ([]AttributeRecord, error) {
	r := NewReader(b)
	var recs []AttributeRecord
	for r.Len() > 0 {
		id, err := r.Uint16()
		if err != nil {
			return nil, fmt.Errorf("zcl: attribute record: %w", err)
		}
		v, err := decodeTyped(r)
		if err != nil {
			return nil, fmt.Errorf("zcl: attribute record 0x%04X: %w", id, err)
		}
		recs = append(recs, AttributeRecord{ID: id, Value: v})
	}
	return recs, nil
}

// EncodeAttributeRecords writes Write Attributes or Report Attributes records.
func EncodeAttributeRecords(w *Writer, recs []AttributeRecord) error {
	start := w.Len()
	for _, rec := range recs {
		err := w.PutUint16(rec.ID)
		if err == nil {
			err = w.PutUint8(uint8(rec.Value.Type()))
		}
		if err == nil {
			err = EncodeValue(w, rec.Value)
		}
		if err != nil {
			w.Truncate(start)
			return err
		}
	}
	return nil
}

// EncodeWriteResponse writes a Write Attributes Response. When every record
// succeeded the response is the single success status octet.
func EncodeWriteResponse(w *Writer, recs []StatusRecord) error {
	failed := failures(recs)
	if len(failed) == 0 {
		return w.PutUint8(uint8(StatusSuccess))
	}
	start := w.Len()
	for _, rec := range failed {
		err := w.PutUint8(uint8(rec.Status))
		if err == nil {
			err = w.PutUint16(rec.ID)
		}
		if err != nil {
			w.Truncate(start)
			return err
		}
	}
	return nil
}

// DecodeWriteResponse parses a Write Attributes Response. A lone success
// octet yields no records.
func DecodeWriteResponse(b []byte) ([]StatusRecord, error) {
	if len(b) == 1 && Status(b[0]) == StatusSuccess {
		return nil, nil
	}
	if len(b)%3 != 0 {
		return nil, fmt.Errorf("zcl: write response: length %d: %w", len(b), ErrMalformed)
	}
	r := NewReader(b)
	var recs []StatusRecord
	for r.Len() > 0 {
		st, _ := r.Uint8()
		id, _ := r.Uint16()
		recs = append(recs, StatusRecord{Status: Status(st), ID: id})
	}
	return recs, nil
}

func failures(recs []StatusRecord) []StatusRecord {
	var out []StatusRecord
	for _, rec := range recs {
		if rec.Status != StatusSuccess {
			out = append(out, rec)
		}
	}
	return out
}

// DecodeConfigureReporting parses Configure Reporting records.
func DecodeConfigureReporting(b []byte) ([]ReportingConfig, error) {
	r := NewReader(b)
	var recs []ReportingConfig
	for r.Len() > 0 {
		var rc ReportingConfig
		if err := decodeReportingBody(r, &rc, true); err != nil {
			return nil, fmt.Errorf("zcl: configure reporting: %w", err)
		}
		recs = append(recs, rc)
	}
	return recs, nil
}

// EncodeConfigureReporting writes Configure Reporting records.
func EncodeConfigureReporting(w *Writer, recs []ReportingConfig) error {
	start := w.Len()
	for _, rc := range recs {
		if err := encodeReportingBody(w, rc); err != nil {
			w.Truncate(start)
			return err
		}
	}
	return nil
}

// decodeReportingBody reads direction, id and the direction-specific fields.
func decodeReportingBody(r *Reader, rc *ReportingConfig, header bool) error {
	if header {
		dir, err := r.Uint8()
		if err != nil {
			return err
		}
		id, err := r.Uint16()
		if err != nil {
			return err
		}
		rc.Direction, rc.ID = dir, id
	}
	switch rc.Direction {
	case ReportDirectionSend:
		t, err := r.Uint8()
		if err != nil {
			return err
		}
		rc.Type = DataType(t)
		if !rc.Type.Valid() {
			return fmt.Errorf("attribute 0x%04X type 0x%02X: %w", rc.ID, t, ErrInvalidType)
		}
		if rc.Min, err = r.Uint16(); err != nil {
			return err
		}
		if rc.Max, err = r.Uint16(); err != nil {
			return err
		}
		if IsAnalog(rc.Type) {
			if rc.Change, err = DecodeValue(r, rc.Type); err != nil {
				return err
			}
		}
	case ReportDirectionReceive:
		t, err := r.Uint16()
		if err != nil {
			return err
		}
		rc.Timeout = t
	default:
		return fmt.Errorf("attribute 0x%04X direction %d: %w", rc.ID, rc.Direction, ErrInvalidField)
	}
	return nil
}

func encodeReportingBody(w *Writer, rc ReportingConfig) error {
	if err := w.PutUint8(rc.Direction); err != nil {
		return err
	}
	if err := w.PutUint16(rc.ID); err != nil {
		return err
	}
	if rc.Direction == ReportDirectionReceive {
		return w.PutUint16(rc.Timeout)
	}
	if err := w.PutUint8(uint8(rc.Type)); err != nil {
		return err
	}
	if err := w.PutUint16(rc.Min); err != nil {
		return err
	}
	if err := w.PutUint16(rc.Max); err != nil {
		return err
	}
	if !IsAnalog(rc.Type) {
		return nil
	}
	change, err := rc.Change.As(rc.Type)
	if err != nil {
		return err
	}
	return EncodeValue(w, change)
}

// EncodeConfigureReportingResponse writes a Configure Reporting Response,
// collapsing to a single success octet when nothing failed.
func EncodeConfigureReportingResponse(w *Writer, recs []StatusRecord) error {
	failed := failures(recs)
	if len(failed) == 0 {
		return w.PutUint8(uint8(StatusSuccess))
	}
	start := w.Len()
	for _, rec := range failed {
		err := w.PutUint8(uint8(rec.Status))
		if err == nil {
			err = w.PutUint8(rec.Direction)
		}
		if err == nil {
			err = w.PutUint16(rec.ID)
		}
		if err != nil {
			w.Truncate(start)
			return err
		}
	}
	return nil
}

// DecodeConfigureReportingResponse parses a Configure Reporting Response.
func DecodeConfigureReportingResponse(b []byte) ([]StatusRecord, error) {
	if len(b) == 1 && Status(b[0]) == StatusSuccess {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("zcl: configure reporting response: length %d: %w", len(b), ErrMalformed)
	}
	r := NewReader(b)
	var recs []StatusRecord
	for r.Len() > 0 {
		st, _ := r.Uint8()
		dir, _ := r.Uint8()
		id, _ := r.Uint16()
		recs = append(recs, StatusRecord{Status: Status(st), Direction: dir, ID: id})
	}
	return recs, nil
}

// DecodeReadReportingConfig parses Read Reporting Configuration records.
func DecodeReadReportingConfig(b []byte) ([]ReportingKey, error) {
	if len(b)%3 != 0 {
		return nil, fmt.Errorf("zcl: read reporting configuration: length %d: %w", len(b), ErrMalformed)
	}
	r := NewReader(b)
	var keys []ReportingKey
	for r.Len() > 0 {
		dir, _ := r.Uint8()
		id, _ := r.Uint16()
		keys = append(keys, ReportingKey{Direction: dir, ID: id})
	}
	return keys, nil
}

// EncodeReadReportingConfig writes Read Reporting Configuration records.
func EncodeReadReportingConfig(w *Writer, keys []ReportingKey) error {
	start := w.Len()
	for _, k := range keys {
		err := w.PutUint8(k.Direction)
		if err == nil {
			err = w.PutUint16(k.ID)
		}
		if err != nil {
			w.Truncate(start)
			return err
		}
	}
	return nil
}

// EncodeReadReportingConfigResponse writes Read Reporting Configuration
// Response records. Failed records carry only status, direction and id.
func EncodeReadReportingConfigResponse(w *Writer, recs []ReportingConfig) error {
	start := w.Len()
	for _, rc := range recs {
		err := w.PutUint8(uint8(rc.Status))
		if err == nil {
			if rc.Status == StatusSuccess {
				err = encodeReportingBody(w, rc)
			} else {
				err = w.PutUint8(rc.Direction)
				if err == nil {
					err = w.PutUint16(rc.ID)
				}
			}
		}
		if err != nil {
			w.Truncate(start)
			return err
		}
	}
	return nil
}

// DecodeReadReportingConfigResponse parses Read Reporting Configuration Response records.
func DecodeReadReportingConfigResponse(b []byte) ([]ReportingConfig, error) {
	r := NewReader(b)
	var recs []ReportingConfig
	for r.Len() > 0 {
		var rc ReportingConfig
		st, err := r.Uint8()
		if err == nil {
			rc.Status = Status(st)
			rc.Direction, err = r.Uint8()
		}
		if err == nil {
			rc.ID, err = r.Uint16()
		}
		if err == nil && rc.Status == StatusSuccess {
			err = decodeReportingBody(r, &rc, false)
		}
		if err != nil {
			return nil, fmt.Errorf("zcl: read reporting configuration response: %w", err)
		}
		recs = append(recs, rc)
	}
	return recs, nil
}

// EncodeDefaultResponse writes a Default Response payload.
func EncodeDefaultResponse(w *Writer, d DefaultResponse) error {
	start := w.Len()
	err := w.PutUint8(d.Command)
	if err == nil {
		err = w.PutUint8(uint8(d.Status))
	}
	if err != nil {
		w.Truncate(start)
	}
	return err
}

// DecodeDefaultResponse parses a Default Response payload.
func DecodeDefaultResponse(b []byte) (DefaultResponse, error) {
	if len(b) != 2 {
		return DefaultResponse{}, fmt.Errorf("zcl: default response: length %d: %w", len(b), ErrMalformed)
	}
	return DefaultResponse{Command: b[0], Status: Status(b[1])}, nil
}

// DecodeDiscoverAttributes parses a Discover Attributes (Extended) request.
func DecodeDiscoverAttributes(b []byte) (start uint16, max uint8, err error) {
	r := NewReader(b)
	if start, err = r.Uint16(); err == nil {
		max, err = r.Uint8()
	}
	if err == nil {
		err = trailing(r, "discover attributes")
	}
	return start, max, err
}

// EncodeDiscoverAttributes writes a Discover Attributes (Extended) request.
func EncodeDiscoverAttributes(w *Writer, start uint16, max uint8) error {
	if w.Available() < 3 {
		return fmt.Errorf("zcl: discover attributes: %w", ErrShortBuffer)
	}
	w.PutUint16(start)
	return w.PutUint8(max)
}

// EncodeDiscoverResponse writes a Discover Attributes Response, or the
// extended form carrying access bits when extended is set.
func EncodeDiscoverResponse(w *Writer, d DiscoverResponse, extended bool) error {
	start := w.Len()
	complete := uint8(0)
	if d.Complete {
		complete = 1
	}
	err := w.PutUint8(complete)
	for _, a := range d.Attributes {
		if err == nil {
			err = w.PutUint16(a.ID)
		}
		if err == nil {
			err = w.PutUint8(uint8(a.Type))
		}
		if err == nil && extended {
			err = w.PutUint8(uint8(a.Access & (AccessRead | AccessWrite | AccessReport)))
		}
	}
	if err != nil {
		w.Truncate(start)
	}
	return err
}

// DecodeDiscoverResponse parses a Discover Attributes (Extended) Response.
func DecodeDiscoverResponse(b []byte, extended bool) (DiscoverResponse, error) {
	var d DiscoverResponse
	r := NewReader(b)
	complete, err := r.Uint8()
	if err != nil {
		return d, fmt.Errorf("zcl: discover response: %w", err)
	}
	d.Complete = complete != 0
	recLen := 3
	if extended {
		recLen = 4
	}
	if r.Len()%recLen != 0 {
		return d, fmt.Errorf("zcl: discover response: length %d: %w", len(b), ErrMalformed)
	}
	for r.Len() > 0 {
		var a DiscoveredAttribute
		a.ID, _ = r.Uint16()
		t, _ := r.Uint8()
		a.Type = DataType(t)
		if extended {
			acc, _ := r.Uint8()
			a.Access = Access(acc)
		}
		d.Attributes = append(d.Attributes, a)
	}
	return d, nil
}

// DecodeDiscoverCommands parses a Discover Commands Received/Generated request.
func DecodeDiscoverCommands(b []byte) (start, max uint8, err error) {
	if len(b) != 2 {
		return 0, 0, fmt.Errorf("zcl: discover commands: length %d: %w", len(b), ErrMalformed)
	}
	return b[0], b[1], nil
}

// EncodeDiscoverCommands writes a Discover Commands Received/Generated request.
func EncodeDiscoverCommands(w *Writer, start, max uint8) error {
	return w.PutBytes([]byte{start, max})
}

// EncodeDiscoverCommandsResponse writes a Discover Commands Received/Generated Response.
func EncodeDiscoverCommandsResponse(w *Writer, d DiscoverCommandsResponse) error {
	complete := uint8(0)
	if d.Complete {
		complete = 1
	}
	if w.Available() < 1+len(d.Commands) {
		return fmt.Errorf("zcl: discover commands response: %w", ErrShortBuffer)
	}
	w.PutUint8(complete)
	return w.PutBytes(d.Commands)
}

// DecodeDiscoverCommandsResponse parses a Discover Commands Received/Generated Response.
func DecodeDiscoverCommandsResponse(b []byte) (DiscoverCommandsResponse, error) {
	if len(b) < 1 {
		return DiscoverCommandsResponse{}, fmt.Errorf("zcl: discover commands response: %w", ErrMalformed)
	}
	return DiscoverCommandsResponse{Complete: b[0] != 0, Commands: append([]uint8(nil), b[1:]...)}, nil
}
