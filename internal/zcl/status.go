package zcl

import (
	"context"
	"errors"
	"fmt"
)

// Status is a ZCL status code as carried on the wire.
type Status uint8

// ZCL status codes
const (
	StatusSuccess                  Status = 0x00
	StatusFailure                  Status = 0x01
	StatusNotAuthorized            Status = 0x7E
	StatusMalformedCommand         Status = 0x80
	StatusUnsupClusterCommand      Status = 0x81
	StatusUnsupGeneralCommand      Status = 0x82
	StatusUnsupManufClusterCommand Status = 0x83
	StatusUnsupManufGeneralCommand Status = 0x84
	StatusInvalidField             Status = 0x85
	StatusUnsupportedAttribute     Status = 0x86
	StatusInvalidValue             Status = 0x87
	StatusReadOnly                 Status = 0x88
	StatusInsufficientSpace        Status = 0x89
	StatusDuplicateExists          Status = 0x8A
	StatusNotFound                 Status = 0x8B
	StatusUnreportableAttribute    Status = 0x8C
	StatusInvalidDataType          Status = 0x8D
	StatusWriteOnly                Status = 0x8F
	StatusInconsistent             Status = 0x92
	StatusActionDenied             Status = 0x93
	StatusTimeout                  Status = 0x94
	StatusAbort                    Status = 0x95
	StatusInvalidImage             Status = 0x96
	StatusWaitForData              Status = 0x97
	StatusNoImageAvailable         Status = 0x98
	StatusRequireMoreImage         Status = 0x99
	StatusNotificationPending      Status = 0x9A
	StatusHardwareFailure          Status = 0xC0
	StatusSoftwareFailure          Status = 0xC1
	StatusCalibrationError         Status = 0xC2
	StatusUnsupportedCluster       Status = 0xC3
	StatusLimitReached             Status = 0xC4
)

var statusNames = map[Status]string{
	StatusSuccess:                  "SUCCESS",
	StatusFailure:                  "FAILURE",
	StatusNotAuthorized:            "NOT_AUTHORIZED",
	StatusMalformedCommand:         "MALFORMED_COMMAND",
	StatusUnsupClusterCommand:      "UNSUP_CLUSTER_COMMAND",
	StatusUnsupGeneralCommand:      "UNSUP_GENERAL_COMMAND",
	StatusUnsupManufClusterCommand: "UNSUP_MANUF_CLUSTER_COMMAND",
	StatusUnsupManufGeneralCommand: "UNSUP_MANUF_GENERAL_COMMAND",
	StatusInvalidField:             "INVALID_FIELD",
	StatusUnsupportedAttribute:     "UNSUPPORTED_ATTRIBUTE",
	StatusInvalidValue:             "INVALID_VALUE",
	StatusReadOnly:                 "READ_ONLY",
	StatusInsufficientSpace:        "INSUFFICIENT_SPACE",
	StatusDuplicateExists:          "DUPLICATE_EXISTS",
	StatusNotFound:                 "NOT_FOUND",
	StatusUnreportableAttribute:    "UNREPORTABLE_ATTRIBUTE",
	StatusInvalidDataType:          "INVALID_DATA_TYPE",
	StatusWriteOnly:                "WRITE_ONLY",
	StatusInconsistent:             "INCONSISTENT",
	StatusActionDenied:             "ACTION_DENIED",
	StatusTimeout:                  "TIMEOUT",
	StatusAbort:                    "ABORT",
	StatusInvalidImage:             "INVALID_IMAGE",
	StatusWaitForData:              "WAIT_FOR_DATA",
	StatusNoImageAvailable:         "NO_IMAGE_AVAILABLE",
	StatusRequireMoreImage:         "REQUIRE_MORE_IMAGE",
	StatusNotificationPending:      "NOTIFICATION_PENDING",
	StatusHardwareFailure:          "HARDWARE_FAILURE",
	StatusSoftwareFailure:          "SOFTWARE_FAILURE",
	StatusCalibrationError:         "CALIBRATION_ERROR",
	StatusUnsupportedCluster:       "UNSUPPORTED_CLUSTER",
	StatusLimitReached:             "LIMIT_REACHED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("0x%02X", uint8(s))
}

// Decode errors.
var (
	ErrShortBuffer   = errors.New("short buffer")
	ErrOverflow      = errors.New("overflow")
	ErrTrailingBytes = errors.New("trailing bytes")
	ErrInvalidType   = errors.New("invalid type")
	ErrInvalidField  = errors.New("invalid field")
	ErrMalformed     = errors.New("malformed frame")
)

// Registry errors.
var (
	ErrUnknownCluster   = errors.New("unknown cluster")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrUnknownCommand   = errors.New("unknown command")
)

// StatusError is an error that maps to a specific wire status.
type StatusError struct {
	Status Status
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return "zcl: status " + e.Status.String()
	}
	return fmt.Sprintf("zcl: %s: %v", e.Status, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Errorf returns a StatusError carrying s and a formatted cause.
func Errorf(s Status, format string, args ...any) error {
	return &StatusError{Status: s, Err: fmt.Errorf(format, args...)}
}

// StatusOf maps err to the status emitted on the wire. A nil error is success.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	switch {
	case errors.Is(err, ErrShortBuffer), errors.Is(err, ErrTrailingBytes), errors.Is(err, ErrMalformed):
		return StatusMalformedCommand
	case errors.Is(err, ErrInvalidField), errors.Is(err, ErrOverflow):
		return StatusInvalidField
	case errors.Is(err, ErrInvalidType):
		return StatusInvalidDataType
	case errors.Is(err, ErrUnknownCluster):
		return StatusUnsupportedCluster
	case errors.Is(err, ErrUnknownAttribute):
		return StatusUnsupportedAttribute
	case errors.Is(err, ErrUnknownCommand):
		return StatusUnsupClusterCommand
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, context.Canceled):
		return StatusAbort
	}
	return StatusFailure
}
