package manager

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lumisync/lumisync/internal/device"
)

// tickInterval is the render period, roughly 60 frames per second.
const tickInterval = 16 * time.Millisecond

// runner owns one render loop for one (controller, effect) pair. The mutex
// serializes ticks against live parameter and brightness updates, so a
// param change never lands mid-write.
type runner struct {
	port     string
	effectID string
	ctrl     device.Controller
	eff      device.Effect

	// onFail is invoked after the loop dies on a write failure, so the
	// manager can drop its bookkeeping for this runner.
	onFail func(*runner)

	mu         sync.Mutex
	brightness uint8

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func startRunner(port, effectID string, ctrl device.Controller, eff device.Effect, brightness uint8, onFail func(*runner)) *runner {
	if w, h := ctrl.VirtualLayout(); w > 0 {
		eff.Resize(w, h)
	}

	r := &runner{
		port:       port,
		effectID:   effectID,
		ctrl:       ctrl,
		eff:        eff,
		onFail:     onFail,
		brightness: brightness,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go r.loop()
	return r
}

func (r *runner) loop() {
	err := r.render()
	r.closeEffect()
	close(r.done)

	// onFail takes the manager's lock; it must run after done closes or a
	// concurrent halt holding that lock would deadlock against it
	if err != nil && r.onFail != nil {
		r.onFail(r)
	}
}

func (r *runner) render() error {
	// sized once; controllers pad or truncate defensively anyway
	buf := make([]device.Color, r.ctrl.Length())

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-r.stop:
			return nil
		case <-ticker.C:
		}

		r.mu.Lock()
		r.eff.Tick(time.Since(start), buf)
		if r.brightness < 100 {
			for i := range buf {
				buf[i] = buf[i].Scale(uint16(r.brightness), 100)
			}
		}
		err := r.ctrl.Update(buf)
		r.mu.Unlock()

		if err != nil {
			// fatal for this runner only; the controller stays in the table
			// so a later start can retry the device
			log.Warn().Err(err).Str("port", r.port).Str("effect", r.effectID).Msg("render write failed, stopping effect")
			return err
		}
	}
}

func (r *runner) closeEffect() {
	if closer, ok := r.eff.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Str("effect", r.effectID).Msg("effect close failed")
		}
	}
}

// halt cancels the loop and joins it. After halt returns the controller is
// no longer being written to. Idempotent.
func (r *runner) halt() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *runner) updateParams(raw json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eff.UpdateParams(raw)
}

func (r *runner) setBrightness(value uint8) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brightness = value
}
