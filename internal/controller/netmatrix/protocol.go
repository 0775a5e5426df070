// Package netmatrix drives networked LED matrix panels over a small UDP
// datagram protocol. Panels announce themselves over mDNS with their grid
// dimensions; every frame is a single full-frame datagram, so a lost packet
// costs one frame and nothing else.
package netmatrix

import (
	"encoding/binary"

	"github.com/lumisync/lumisync/internal/device"
)

// Command bytes. Each datagram starts with one.
const (
	cmdUpdate  = 0x11 // count u16 LE, then (index u16 LE, r, g, b) per pixel
	cmdRefresh = 0x13 // latch the staged frame
	cmdFill    = 0x15 // r, g, b for every pixel
)

// updatePixelSize is the wire size of one pixel record in an update datagram.
const updatePixelSize = 5

// EncodeUpdate appends a full-frame update datagram to dst and returns the
// extended slice. Pixel index i addresses the panel's i-th LED.
func EncodeUpdate(colors []device.Color, dst []byte) []byte {
	dst = append(dst, cmdUpdate)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(colors)))
	for i, c := range colors {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(i))
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}

// EncodeFill builds a fill datagram painting every pixel the same color.
func EncodeFill(c device.Color) []byte {
	return []byte{cmdFill, c.R, c.G, c.B}
}

// EncodeRefresh builds the latch datagram.
func EncodeRefresh() []byte {
	return []byte{cmdRefresh}
}

// UpdateSize is the wire length of a full-frame update for n pixels.
func UpdateSize(n int) int { return 3 + updatePixelSize*n }
