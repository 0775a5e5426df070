package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeFPSMediumFrame(t *testing.T) {
	// 100 LEDs: 6 + 100*3 = 306 bytes. 11520/306 ~= 37.6 -> 36 FPS.
	r := NewRateLimitedWriter(&bytes.Buffer{}, 115200, 306)
	assert.InDelta(t, 36.0, r.SafeFPS(), 0.1)
}

func TestSafeFPSSmallFrame(t *testing.T) {
	// 10 LEDs: 36 bytes. 11520/36 = 320 -> 319 FPS.
	r := NewRateLimitedWriter(&bytes.Buffer{}, 115200, 36)
	assert.InDelta(t, 319.0, r.SafeFPS(), 0.1)
}

func TestSafeFPSLargeFrame(t *testing.T) {
	// 500 LEDs: 1506 bytes. 11520/1506 ~= 7.65 -> 6 FPS.
	r := NewRateLimitedWriter(&bytes.Buffer{}, 115200, 1506)
	assert.InDelta(t, 6.0, r.SafeFPS(), 0.1)
}

func TestSafeFPSNeverBelowOne(t *testing.T) {
	r := NewRateLimitedWriter(&bytes.Buffer{}, 9600, 100000)
	assert.InDelta(t, 1.0, r.SafeFPS(), 0.001)
}

func TestWriteThrottledDropsSecondFrame(t *testing.T) {
	var sink bytes.Buffer
	r := NewRateLimitedWriter(&sink, 115200, 306)

	frame := make([]byte, 306)
	n, err := r.WriteThrottled(frame)
	require.NoError(t, err)
	assert.Equal(t, 306, n)

	// Second call lands well inside the ~27ms interval: dropped, sink untouched.
	n, err = r.WriteThrottled(frame)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 306, sink.Len())
}

func TestWriteAllThrottledDropReportsFalse(t *testing.T) {
	var sink bytes.Buffer
	r := NewRateLimitedWriter(&sink, 115200, 1506)

	ok, err := r.WriteAllThrottled(make([]byte, 1506))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.WriteAllThrottled(make([]byte, 1506))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1506, sink.Len())
}

func TestSetFrameSizeRecomputes(t *testing.T) {
	r := NewRateLimitedWriter(&bytes.Buffer{}, 115200, 306)
	before := r.MinInterval()
	r.SetFrameSize(36)
	assert.Less(t, r.MinInterval(), before)
	assert.InDelta(t, 319.0, r.SafeFPS(), 0.1)
}
