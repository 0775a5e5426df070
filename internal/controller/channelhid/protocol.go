// Package channelhid drives multi-channel HID LED controllers. Four wire
// format generations share one payload shape — a per-channel LED-count
// header followed by the concatenated RGB stream — but differ in how much of
// it fits into a single HID report, so payloads are split into numbered
// sub-packets the firmware reassembles from a running remaining-length pair.
package channelhid

import "encoding/binary"

// Generation selects the wire format of a device family.
type Generation uint8

const (
	Gen1 Generation = 1
	Gen2 Generation = 2
	Gen3 Generation = 3
	Gen4 Generation = 4
)

// subPacketHeaderSize covers report id, sequence, total and the two
// remaining-length bytes.
const subPacketHeaderSize = 5

// sequenceBase offsets the sequence and total counters on the wire.
const sequenceBase = 100

// keepaliveCommand is resent while no frames flow so the firmware does not
// blank itself. See Controller's keepalive loop.
const keepaliveCommand = 0x65

// PayloadCap is the RGB payload capacity of one sub-packet.
func (g Generation) PayloadCap() int {
	switch g {
	case Gen4:
		return 1020
	case Gen2:
		return 60
	default:
		return 63
	}
}

// ReportSize is the full report buffer length, report id included.
func (g Generation) ReportSize() int {
	return g.PayloadCap() + subPacketHeaderSize
}

// headerChannels is the number of channel slots in the LED-count header.
func (g Generation) headerChannels() int {
	if g == Gen4 {
		return 36
	}
	return 16
}

// EncodePayload builds the reassembled payload for a frame: one big-endian
// u16 LED count per header slot, then r,g,b for every LED in channel order.
func EncodePayload(g Generation, channelLEDs []int, rgb []byte) []byte {
	slots := g.headerChannels()
	out := make([]byte, 0, slots*2+len(rgb))
	for i := 0; i < slots; i++ {
		n := 0
		if i < len(channelLEDs) {
			n = channelLEDs[i]
		}
		out = binary.BigEndian.AppendUint16(out, uint16(n))
	}
	return append(out, rgb...)
}

// SplitPackets slices payload into ready-to-write HID reports. Every report
// carries: report id 0, a sequence byte, the total-packet byte, and the
// big-endian count of payload bytes still outstanding after this sub-packet,
// so the device knows when the frame is complete. Reports are zero-padded to
// the generation's fixed size.
func SplitPackets(g Generation, payload []byte) [][]byte {
	cap := g.PayloadCap()
	total := (len(payload) + cap - 1) / cap
	if total < 1 {
		total = 1
	}

	packets := make([][]byte, 0, total)
	for i := 0; i < total; i++ {
		start := i * cap
		end := start + cap
		if end > len(payload) {
			end = len(payload)
		}
		remaining := len(payload) - end

		report := make([]byte, g.ReportSize())
		report[0] = 0x00
		report[1] = byte(sequenceBase + i)
		report[2] = byte(sequenceBase - 1 + total)
		report[3] = byte(remaining >> 8)
		report[4] = byte(remaining & 0xFF)
		copy(report[subPacketHeaderSize:], payload[start:end])

		packets = append(packets, report)
	}
	return packets
}

// keepaliveReportSize is fixed across generations; the firmware only reads
// the command byte.
const keepaliveReportSize = 65

// KeepalivePacket is the minimal report that resets the device's idle
// timeout.
func KeepalivePacket() []byte {
	report := make([]byte, keepaliveReportSize)
	report[0] = 0x00
	report[1] = keepaliveCommand
	return report
}
