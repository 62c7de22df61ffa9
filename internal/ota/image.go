// Package ota implements the client side of the OTA Upgrade cluster: the
// query / download / upgrade state machine, OTA file header validation and
// storage of completed images.
package ota

import (
	"errors"
	"fmt"

	"zcl-node/internal/zcl"
)

// FileIdentifier starts every OTA upgrade file.
const FileIdentifier uint32 = 0x0BEEF11E

// HeaderVersion is the only header layout this package reads.
const HeaderVersion uint16 = 0x0100

// MinHeaderSize is the size of a header without optional fields.
const MinHeaderSize = 56

// Header field control bits.
const (
	HeaderSecurityCredentials = 0x0001
	HeaderDeviceSpecific      = 0x0002
	HeaderHardwareVersions    = 0x0004
)

var (
	ErrBadIdentifier = errors.New("ota: not an OTA file")
	ErrBadHeader     = errors.New("ota: invalid header")
)

// Image names an image as the server offered it.
type Image struct {
	ManufacturerCode uint16 `json:"manufacturer_code"`
	ImageType        uint16 `json:"image_type"`
	FileVersion      uint32 `json:"file_version"`
	Size             uint32 `json:"size"`
}

func (img Image) String() string {
	return fmt.Sprintf("%04X-%04X-%08X", img.ManufacturerCode, img.ImageType, img.FileVersion)
}

// Header is the OTA upgrade file header.
type Header struct {
	Version             uint16
	Length              uint16
	FieldControl        uint16
	ManufacturerCode    uint16
	ImageType           uint16
	FileVersion         uint32
	StackVersion        uint16
	Description         string
	TotalSize           uint32
	SecurityCredentials uint8
	Destination         uint64
	MinHardwareVersion  uint16
	MaxHardwareVersion  uint16
}

// ParseHeader reads the header at the start of b.
func ParseHeader(b []byte) (Header, error) {
	var h Header
	r := zcl.NewReader(b)
	id, err := r.Uint32()
	if err != nil {
		return h, err
	}
	if id != FileIdentifier {
		return h, fmt.Errorf("%w: identifier 0x%08X", ErrBadIdentifier, id)
	}
	fields := []any{&h.Version, &h.Length, &h.FieldControl, &h.ManufacturerCode, &h.ImageType, &h.FileVersion, &h.StackVersion}
	for _, f := range fields {
		if err := read(r, f); err != nil {
			return h, err
		}
	}
	if h.Version != HeaderVersion {
		return h, fmt.Errorf("%w: version 0x%04X", ErrBadHeader, h.Version)
	}
	desc, err := r.Bytes(32)
	if err != nil {
		return h, err
	}
	h.Description = trimNul(desc)
	if err := read(r, &h.TotalSize); err != nil {
		return h, err
	}
	if h.FieldControl&HeaderSecurityCredentials != 0 {
		if err := read(r, &h.SecurityCredentials); err != nil {
			return h, err
		}
	}
	if h.FieldControl&HeaderDeviceSpecific != 0 {
		v, err := r.UintN(8)
		if err != nil {
			return h, err
		}
		h.Destination = v
	}
	if h.FieldControl&HeaderHardwareVersions != 0 {
		if err := read(r, &h.MinHardwareVersion); err != nil {
			return h, err
		}
		if err := read(r, &h.MaxHardwareVersion); err != nil {
			return h, err
		}
	}
	if int(h.Length) < r.Offset() {
		return h, fmt.Errorf("%w: length %d shorter than its fields (%d)", ErrBadHeader, h.Length, r.Offset())
	}
	if h.TotalSize < uint32(h.Length) {
		return h, fmt.Errorf("%w: total size %d below header length %d", ErrBadHeader, h.TotalSize, h.Length)
	}
	return h, nil
}

func read(r *zcl.Reader, dst any) error {
	var err error
	switch p := dst.(type) {
	case *uint8:
		*p, err = r.Uint8()
	case *uint16:
		*p, err = r.Uint16()
	case *uint32:
		*p, err = r.Uint32()
	default:
		err = fmt.Errorf("ota: cannot read %T", dst)
	}
	return err
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// HeaderSize returns the encoded size of h.
func (h Header) HeaderSize() int {
	n := MinHeaderSize
	if h.FieldControl&HeaderSecurityCredentials != 0 {
		n++
	}
	if h.FieldControl&HeaderDeviceSpecific != 0 {
		n += 8
	}
	if h.FieldControl&HeaderHardwareVersions != 0 {
		n += 4
	}
	return n
}

// Encode writes h. Length is taken from HeaderSize when zero.
func (h Header) Encode(w *zcl.Writer) error {
	if h.Version == 0 {
		h.Version = HeaderVersion
	}
	if h.Length == 0 {
		h.Length = uint16(h.HeaderSize())
	}
	var desc [32]byte
	copy(desc[:], h.Description)
	steps := []func() error{
		func() error { return w.PutUint32(FileIdentifier) },
		func() error { return w.PutUint16(h.Version) },
		func() error { return w.PutUint16(h.Length) },
		func() error { return w.PutUint16(h.FieldControl) },
		func() error { return w.PutUint16(h.ManufacturerCode) },
		func() error { return w.PutUint16(h.ImageType) },
		func() error { return w.PutUint32(h.FileVersion) },
		func() error { return w.PutUint16(h.StackVersion) },
		func() error { return w.PutBytes(desc[:]) },
		func() error { return w.PutUint32(h.TotalSize) },
	}
	if h.FieldControl&HeaderSecurityCredentials != 0 {
		steps = append(steps, func() error { return w.PutUint8(h.SecurityCredentials) })
	}
	if h.FieldControl&HeaderDeviceSpecific != 0 {
		steps = append(steps, func() error { return w.PutUintN(8, h.Destination) })
	}
	if h.FieldControl&HeaderHardwareVersions != 0 {
		steps = append(steps,
			func() error { return w.PutUint16(h.MinHardwareVersion) },
			func() error { return w.PutUint16(h.MaxHardwareVersion) },
		)
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Matches reports whether the header describes img.
func (h Header) Matches(img Image) error {
	switch {
	case h.ManufacturerCode != img.ManufacturerCode:
		return fmt.Errorf("%w: manufacturer 0x%04X, offered 0x%04X", ErrBadHeader, h.ManufacturerCode, img.ManufacturerCode)
	case h.ImageType != img.ImageType:
		return fmt.Errorf("%w: image type 0x%04X, offered 0x%04X", ErrBadHeader, h.ImageType, img.ImageType)
	case h.FileVersion != img.FileVersion:
		return fmt.Errorf("%w: file version 0x%08X, offered 0x%08X", ErrBadHeader, h.FileVersion, img.FileVersion)
	case h.TotalSize != img.Size:
		return fmt.Errorf("%w: total size %d, offered %d", ErrBadHeader, h.TotalSize, img.Size)
	}
	return nil
}
