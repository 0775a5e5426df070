// Package capture provides shared access to sampled input streams. Several
// effects may visualize audio at once, but the platform capture pipeline is
// expensive, so one backing source is refcounted across all acquirers.
package capture

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// ringSize holds roughly a third of a second at 48kHz, comfortably more
// than any effect reads per frame.
const ringSize = 1 << 14

// Source is a backing capture pipeline. Start delivers sample blocks to
// push from the source's own goroutine until Stop returns.
type Source interface {
	Start(push func(samples []float32)) error
	Stop() error
	SampleRate() int
}

// Audio refcounts one Source behind any number of handles. The source runs
// while at least one handle is live.
type Audio struct {
	src Source

	mu     sync.Mutex
	refs   int
	ring   [ringSize]float32
	pos    int
	filled int
}

// NewAudio wraps src; a nil src gets the silent fallback so effects render
// a flat spectrum instead of failing.
func NewAudio(src Source) *Audio {
	if src == nil {
		src = silentSource{}
	}
	return &Audio{src: src}
}

// Acquire starts the source if this is the first live handle.
func (a *Audio) Acquire() (*Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.refs == 0 {
		if err := a.src.Start(a.push); err != nil {
			return nil, err
		}
		log.Debug().Int("sample_rate", a.src.SampleRate()).Msg("audio capture started")
	}
	a.refs++
	return &Handle{audio: a}, nil
}

func (a *Audio) push(samples []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range samples {
		a.ring[a.pos] = s
		a.pos = (a.pos + 1) % ringSize
	}
	a.filled += len(samples)
	if a.filled > ringSize {
		a.filled = ringSize
	}
}

func (a *Audio) release() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.refs--
	if a.refs > 0 {
		return
	}
	if err := a.src.Stop(); err != nil {
		log.Warn().Err(err).Msg("audio capture stop failed")
	}
	a.pos = 0
	a.filled = 0
	for i := range a.ring {
		a.ring[i] = 0
	}
	log.Debug().Msg("audio capture stopped")
}

// readRecent copies the newest len(dst) samples, oldest first. Positions
// never written yet read as silence.
func (a *Audio) readRecent(dst []float32) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(dst)
	if n > ringSize {
		for i := range dst[:n-ringSize] {
			dst[i] = 0
		}
		dst = dst[n-ringSize:]
		n = ringSize
	}

	avail := a.filled
	if avail > n {
		avail = n
	}
	for i := 0; i < n-avail; i++ {
		dst[i] = 0
	}
	start := (a.pos - avail + ringSize) % ringSize
	for i := 0; i < avail; i++ {
		dst[n-avail+i] = a.ring[(start+i)%ringSize]
	}
}

// Handle is one acquirer's view of the shared stream.
type Handle struct {
	audio *Audio

	once sync.Once
}

// ReadRecent fills dst with the newest samples, oldest first.
func (h *Handle) ReadRecent(dst []float32) {
	h.audio.readRecent(dst)
}

func (h *Handle) SampleRate() int {
	return h.audio.src.SampleRate()
}

// Release drops the reference. The backing source stops with the last
// handle. Safe to call more than once.
func (h *Handle) Release() {
	h.once.Do(h.audio.release)
}

// silentSource produces nothing; the ring stays at zero.
type silentSource struct{}

func (silentSource) Start(func([]float32)) error { return nil }
func (silentSource) Stop() error                 { return nil }
func (silentSource) SampleRate() int             { return 48000 }
