package store

import "time"

// Entry is one persisted key and its raw value.
type Entry struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// NodeState records what the node looked like the last time it ran.
type NodeState struct {
	Version   string           `json:"version"`
	StartedAt time.Time        `json:"started_at"`
	Starts    int              `json:"starts"`
	Endpoints []EndpointRecord `json:"endpoints,omitempty"`
	// Images lists OTA images that were downloaded and applied.
	Images []ImageRecord `json:"images,omitempty"`
}

// EndpointRecord is a registered endpoint.
type EndpointRecord struct {
	ID        uint8    `json:"id"`
	ProfileID uint16   `json:"profile_id"`
	DeviceID  uint16   `json:"device_id"`
	Servers   []uint16 `json:"servers"`
	Clients   []uint16 `json:"clients,omitempty"`
}

// ImageRecord is an applied OTA image.
type ImageRecord struct {
	Endpoint  uint8     `json:"endpoint"`
	Image     string    `json:"image"`
	Path      string    `json:"path"`
	AppliedAt time.Time `json:"applied_at"`
}
