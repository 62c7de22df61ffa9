package ota

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcl-node/internal/zcl"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{
		FieldControl:        HeaderSecurityCredentials | HeaderHardwareVersions,
		ManufacturerCode:    0x131B,
		ImageType:           0x0001,
		FileVersion:         0x00010002,
		StackVersion:        0x0002,
		Description:         "lamp",
		TotalSize:           4096,
		SecurityCredentials: 0x01,
		MinHardwareVersion:  0x0001,
		MaxHardwareVersion:  0x0005,
	}
	require.Equal(t, 61, h.HeaderSize())
	buf := make([]byte, h.HeaderSize())
	require.NoError(t, h.Encode(zcl.NewWriter(buf)))
	assert.Equal(t, []byte{0x1E, 0xF1, 0xEE, 0x0B, 0x00, 0x01, 0x3D, 0x00}, buf[:8])

	got, err := ParseHeader(buf)
	require.NoError(t, err)
	h.Version = HeaderVersion
	h.Length = 61
	assert.Equal(t, h, got)
	assert.NoError(t, got.Matches(Image{ManufacturerCode: 0x131B, ImageType: 0x0001, FileVersion: 0x00010002, Size: 4096}))
	assert.ErrorIs(t, got.Matches(Image{ManufacturerCode: 0x131B, ImageType: 0x0001, FileVersion: 0x00010003, Size: 4096}), ErrBadHeader)
}

func TestParseHeaderErrors(t *testing.T) {
	h := Header{ManufacturerCode: 0x131B, TotalSize: 100}
	buf := make([]byte, MinHeaderSize)
	require.NoError(t, h.Encode(zcl.NewWriter(buf)))

	_, err := ParseHeader(buf[:20])
	assert.ErrorIs(t, err, zcl.ErrShortBuffer)

	bad := append([]byte(nil), buf...)
	bad[3] = 0x0C
	_, err = ParseHeader(bad)
	assert.ErrorIs(t, err, ErrBadIdentifier)

	small := Header{TotalSize: 10}
	require.NoError(t, small.Encode(zcl.NewWriter(buf)))
	_, err = ParseHeader(buf)
	assert.ErrorIs(t, err, ErrBadHeader)

	// hardware versions announced but missing
	buf[8] = HeaderHardwareVersions
	_, err = ParseHeader(buf)
	assert.ErrorIs(t, err, zcl.ErrShortBuffer)
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	s := FileSink{Dir: dir}
	img := Image{ManufacturerCode: 0x131B, ImageType: 0x0001, FileVersion: 0x00010002}

	path, err := s.Store(img, []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "131B-0001-00010002.zigbee"), path)

	_, err = s.Store(img, []byte("second"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
