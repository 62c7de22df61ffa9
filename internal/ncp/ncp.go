// Package ncp is the boundary between the ZCL node and the lower Zigbee stack.
// Backends: an in-memory loopback for tests and a ZBOSS NCP over a serial port.
package ncp

import (
	"context"
	"errors"
)

// ErrClosed is returned by a link after Close.
var ErrClosed = errors.New("ncp: link closed")

// AddrMode selects how DataRequest.DstAddr is interpreted.
type AddrMode uint8

const (
	AddrGroup AddrMode = 0x01
	AddrShort AddrMode = 0x02
	AddrIEEE  AddrMode = 0x03
)

// ProfileHA is the Home Automation profile id.
const ProfileHA uint16 = 0x0104

// DefaultRadius is the APS radius used when a request leaves it zero.
const DefaultRadius uint8 = 30

// Link is a lower-stack APS data service.
type Link interface {
	// Send queues an APSDE-DATA.request and returns its request id.
	Send(ctx context.Context, req DataRequest) (uint8, error)
	// Indications delivers inbound APSDE-DATA.indications in arrival order.
	Indications() <-chan Indication
	// RegisterEndpoint announces a local endpoint to the stack.
	RegisterEndpoint(ctx context.Context, sd SimpleDescriptor) error
	Close() error
}

// DataRequest is an outbound APS data frame.
type DataRequest struct {
	Mode        AddrMode
	DstAddr     uint16 // short or group address
	DstIEEE     uint64 // AddrIEEE only
	DstEP       uint8
	SrcEP       uint8
	Cluster     uint16
	Profile     uint16
	Radius      uint8
	AckRequired bool
	Payload     []byte
}

// Indication is an inbound APS data frame.
type Indication struct {
	SrcAddr   uint16
	SrcEP     uint8
	DstAddr   uint16
	DstEP     uint8
	GroupAddr uint16 // valid when Group is set
	Group     bool
	Cluster   uint16
	Profile   uint16
	Broadcast bool // delivered by broadcast or group addressing
	Payload   []byte
	LQI       uint8
	RSSI      int8
}

// Reply returns a unicast request addressed back to the sender of ind.
func (ind Indication) Reply(payload []byte) DataRequest {
	return DataRequest{
		Mode:        AddrShort,
		DstAddr:     ind.SrcAddr,
		DstEP:       ind.SrcEP,
		SrcEP:       ind.DstEP,
		Cluster:     ind.Cluster,
		Profile:     ind.Profile,
		AckRequired: true,
		Payload:     payload,
	}
}

// SimpleDescriptor describes a local endpoint.
type SimpleDescriptor struct {
	Endpoint    uint8
	ProfileID   uint16
	DeviceID    uint16
	Version     uint8
	InClusters  []uint16
	OutClusters []uint16
}

// Info holds firmware/stack version information from the NCP.
type Info struct {
	FWVersion       uint32
	StackVersion    string // e.g. "3.11.3.0"
	ProtocolVersion uint32
}
