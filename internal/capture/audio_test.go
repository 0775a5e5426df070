package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource counts starts and stops and lets tests inject samples.
type fakeSource struct {
	starts int
	stops  int
	push   func([]float32)
}

func (f *fakeSource) Start(push func([]float32)) error {
	f.starts++
	f.push = push
	return nil
}

func (f *fakeSource) Stop() error {
	f.stops++
	return nil
}

func (f *fakeSource) SampleRate() int { return 44100 }

func TestRefcountedStartStop(t *testing.T) {
	src := &fakeSource{}
	audio := NewAudio(src)

	h1, err := audio.Acquire()
	require.NoError(t, err)
	h2, err := audio.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 1, src.starts)

	h1.Release()
	assert.Equal(t, 0, src.stops)
	h2.Release()
	assert.Equal(t, 1, src.stops)

	// a fresh acquire restarts the source
	h3, err := audio.Acquire()
	require.NoError(t, err)
	assert.Equal(t, 2, src.starts)
	h3.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	src := &fakeSource{}
	audio := NewAudio(src)

	h1, err := audio.Acquire()
	require.NoError(t, err)
	h2, err := audio.Acquire()
	require.NoError(t, err)

	h1.Release()
	h1.Release()
	assert.Equal(t, 0, src.stops, "double release must not steal the second handle's reference")
	h2.Release()
	assert.Equal(t, 1, src.stops)
}

func TestReadRecentOrdering(t *testing.T) {
	src := &fakeSource{}
	audio := NewAudio(src)

	h, err := audio.Acquire()
	require.NoError(t, err)
	defer h.Release()

	src.push([]float32{1, 2, 3, 4, 5})

	dst := make([]float32, 3)
	h.ReadRecent(dst)
	assert.Equal(t, []float32{3, 4, 5}, dst)
}

func TestReadRecentPadsUnfilled(t *testing.T) {
	src := &fakeSource{}
	audio := NewAudio(src)

	h, err := audio.Acquire()
	require.NoError(t, err)
	defer h.Release()

	src.push([]float32{7, 8})

	dst := make([]float32, 4)
	h.ReadRecent(dst)
	assert.Equal(t, []float32{0, 0, 7, 8}, dst)
}

func TestReadRecentAfterWrap(t *testing.T) {
	src := &fakeSource{}
	audio := NewAudio(src)

	h, err := audio.Acquire()
	require.NoError(t, err)
	defer h.Release()

	block := make([]float32, ringSize)
	for i := range block {
		block[i] = float32(i)
	}
	src.push(block)
	src.push([]float32{-1, -2})

	dst := make([]float32, 4)
	h.ReadRecent(dst)
	assert.Equal(t, []float32{float32(ringSize - 2), float32(ringSize - 1), -1, -2}, dst)
}

func TestSilentFallback(t *testing.T) {
	audio := NewAudio(nil)

	h, err := audio.Acquire()
	require.NoError(t, err)
	defer h.Release()

	assert.Equal(t, 48000, h.SampleRate())

	dst := []float32{9, 9}
	h.ReadRecent(dst)
	assert.Equal(t, []float32{0, 0}, dst)
}
