package channelhid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadCaps(t *testing.T) {
	assert.Equal(t, 1020, Gen4.PayloadCap())
	assert.Equal(t, 63, Gen3.PayloadCap())
	assert.Equal(t, 60, Gen2.PayloadCap())
	assert.Equal(t, 63, Gen1.PayloadCap())
}

func TestEncodePayloadHeaderSlots(t *testing.T) {
	rgb := []byte{1, 2, 3}

	p := EncodePayload(Gen4, []int{10, 300}, rgb)
	require.Len(t, p, 36*2+3)
	assert.Equal(t, []byte{0x00, 0x0A}, p[0:2])
	assert.Equal(t, []byte{0x01, 0x2C}, p[2:4])
	// unused slots stay zero
	assert.Equal(t, []byte{0x00, 0x00}, p[4:6])
	assert.Equal(t, rgb, p[36*2:])

	p = EncodePayload(Gen2, []int{10}, rgb)
	assert.Len(t, p, 16*2+3)
}

func TestSplitPacketsSingleFullPacket(t *testing.T) {
	payload := make([]byte, 1020)
	payload[0] = 0xAA
	payload[1019] = 0xBB

	packets := SplitPackets(Gen4, payload)
	require.Len(t, packets, 1)

	p := packets[0]
	require.Len(t, p, 1025)
	assert.Equal(t, byte(0x00), p[0])
	assert.Equal(t, byte(100), p[1])
	assert.Equal(t, byte(100), p[2])
	// nothing remains after the only packet
	assert.Equal(t, byte(0), p[3])
	assert.Equal(t, byte(0), p[4])
	assert.Equal(t, byte(0xAA), p[5])
	assert.Equal(t, byte(0xBB), p[1024])
}

func TestSplitPacketsOneByteOverflow(t *testing.T) {
	payload := make([]byte, 1021)
	payload[1020] = 0xCC

	packets := SplitPackets(Gen4, payload)
	require.Len(t, packets, 2)

	first, second := packets[0], packets[1]
	assert.Equal(t, byte(100), first[1])
	assert.Equal(t, byte(101), first[2])
	// one payload byte outstanding after the first packet
	assert.Equal(t, byte(0), first[3])
	assert.Equal(t, byte(1), first[4])

	assert.Equal(t, byte(101), second[1])
	assert.Equal(t, byte(101), second[2])
	assert.Equal(t, byte(0), second[3])
	assert.Equal(t, byte(0), second[4])
	assert.Equal(t, byte(0xCC), second[5])
	// tail is zero padded
	assert.Equal(t, byte(0), second[6])
}

func TestSplitPacketsRemainingLengthCountsDown(t *testing.T) {
	payload := make([]byte, 150)
	packets := SplitPackets(Gen3, payload)
	require.Len(t, packets, 3)

	// 150 = 63 + 63 + 24
	assert.Equal(t, byte(0), packets[0][3])
	assert.Equal(t, byte(87), packets[0][4])
	assert.Equal(t, byte(0), packets[1][3])
	assert.Equal(t, byte(24), packets[1][4])
	assert.Equal(t, byte(0), packets[2][3])
	assert.Equal(t, byte(0), packets[2][4])
}

func TestSplitPacketsWideRemainingLength(t *testing.T) {
	// 600 bytes at 63 per packet leaves 537 = 0x0219 after the first.
	payload := make([]byte, 600)
	packets := SplitPackets(Gen1, payload)

	assert.Equal(t, byte(0x02), packets[0][3])
	assert.Equal(t, byte(0x19), packets[0][4])
}

func TestSplitPacketsEmptyPayload(t *testing.T) {
	packets := SplitPackets(Gen2, nil)
	require.Len(t, packets, 1)
	assert.Equal(t, byte(100), packets[0][1])
	assert.Equal(t, byte(100), packets[0][2])
}

func TestKeepalivePacket(t *testing.T) {
	// one fixed report size for every generation
	p := KeepalivePacket()
	require.Len(t, p, 65)
	assert.Equal(t, byte(0x00), p[0])
	assert.Equal(t, byte(0x65), p[1])
	for _, b := range p[2:] {
		require.Zero(t, b)
	}
}
