package ota

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// Sink receives completed images.
type Sink interface {
	Store(img Image, data []byte) (string, error)
}

// FileSink writes each completed image to Dir, named after the image.
// The file appears atomically, so a crash mid-write never leaves a
// truncated image behind.
type FileSink struct {
	Dir string
}

// Path returns where img is stored.
func (s FileSink) Path(img Image) string {
	return filepath.Join(s.Dir, img.String()+".zigbee")
}

func (s FileSink) Store(img Image, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("ota: image dir: %w", err)
	}
	path := s.Path(img)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("ota: write %s: %w", path, err)
	}
	return path, nil
}
