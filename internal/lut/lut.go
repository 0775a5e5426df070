// Package lut applies a precomputed 3D color lookup table, used to
// linearize HDR-tuned frames before they reach simple strip hardware.
package lut

import (
	"fmt"
	"io"
	"os"

	"github.com/lumisync/lumisync/internal/device"
)

const (
	dim      = 256
	channels = 3

	// Size is the byte length of one full table: every RGB combination maps
	// to a replacement triple.
	Size = dim * dim * dim * channels
)

// Table is a loaded lookup table. A nil Table applies the identity mapping,
// so callers never need to branch on whether a LUT was configured.
type Table struct {
	data []byte
}

// New wraps raw table bytes. The slice must hold exactly one full table.
func New(data []byte) (*Table, error) {
	if len(data) != Size {
		return nil, fmt.Errorf("lut: table is %d bytes, want %d", len(data), Size)
	}
	return &Table{data: data}, nil
}

// Load reads the first table from a .3d file. Files may carry several tables
// back to back; only the first is used.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := make([]byte, Size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("lut: reading %s: %w", path, err)
	}
	return &Table{data: data}, nil
}

// Apply maps one color through the table.
func (t *Table) Apply(c device.Color) device.Color {
	if t == nil {
		return c
	}
	idx := (int(c.R) + int(c.G)<<8 + int(c.B)<<16) * channels
	return device.Color{R: t.data[idx], G: t.data[idx+1], B: t.data[idx+2]}
}

// ApplyAll maps a frame in place.
func (t *Table) ApplyAll(colors []device.Color) {
	if t == nil {
		return
	}
	for i, c := range colors {
		colors[i] = t.Apply(c)
	}
}
