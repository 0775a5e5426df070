// Package serialstrip drives ambient-light strips speaking the simple
// header protocol over a USB serial adapter: a 4-byte magic header, a
// big-endian LED count, then raw RGB triples.
package serialstrip

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/lumisync/lumisync/internal/device"
)

// Frame header magic.
var frameHeader = [4]byte{0x41, 0x64, 0x61, 0x00}

// handshakeMagic is the probe string a compatible device answers to.
const handshakeMagic = "Moni-A"

const handshakeSettle = 50 * time.Millisecond

// FrameSize is the wire length of a frame carrying n LEDs.
func FrameSize(n int) int { return 6 + 3*n }

// EncodeFrame appends the wire frame for colors to dst and returns the
// extended slice. Pass dst[:0] to reuse a packet buffer across frames.
func EncodeFrame(colors []device.Color, dst []byte) []byte {
	dst = append(dst, frameHeader[:]...)
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(colors)))
	for _, c := range colors {
		dst = append(dst, c.R, c.G, c.B)
	}
	return dst
}

// Identity is a device's handshake response.
type Identity struct {
	Model  string
	Serial string
}

var errNoResponse = errors.New("no handshake response")

// Handshake probes rw for a compatible device: it writes the magic string,
// waits briefly for the firmware to answer, then reads one response of up to
// 1024 bytes and parses `MODEL,SERIAL\r\n`. Devices that stay silent or
// answer with anything else are not an error condition for discovery;
// callers skip them.
//
// The serial field is hex-encoded (uppercase), matching the vendor tool's
// treatment of the raw response bytes.
func Handshake(rw io.ReadWriter) (Identity, error) {
	if _, err := io.WriteString(rw, handshakeMagic); err != nil {
		return Identity{}, err
	}

	time.Sleep(handshakeSettle)

	buf := make([]byte, 1024)
	n, err := rw.Read(buf)
	if err != nil || n == 0 {
		return Identity{}, errNoResponse
	}

	return parseHandshake(buf[:n])
}

func parseHandshake(resp []byte) (Identity, error) {
	s := string(resp)
	comma := strings.IndexByte(s, ',')
	if comma < 0 {
		return Identity{}, errors.New("malformed handshake response")
	}

	model := s[:comma]
	serial := strings.TrimRight(s[comma+1:], "\r\n")

	return Identity{
		Model:  model,
		Serial: strings.ToUpper(hex.EncodeToString([]byte(serial))),
	}, nil
}
