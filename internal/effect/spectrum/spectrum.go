// Package spectrum is an audio-reactive visualizer: the frequency spectrum
// of the shared capture stream is painted as a radial pattern around the
// center of the layout, hue rotating over time.
package spectrum

import (
	"encoding/json"
	"math"
	"math/cmplx"
	"time"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/rs/zerolog/log"

	"github.com/lumisync/lumisync/internal/capture"
	"github.com/lumisync/lumisync/internal/device"
)

const (
	fftSize = 1024
	bins    = 256

	// smoothing factor for the filtered spectrum; higher holds peaks longer
	decay = 0.85

	defaultSpeed   = 50.0
	defaultAvgSize = 4
)

type Effect struct {
	audio         *capture.Audio
	handle        *capture.Handle
	acquireLogged bool

	speed   float64
	avgSize int

	width  int
	height int

	plan    *algofft.Plan[complex128]
	window  []float64
	samples []float32
	in      []complex128
	out     []complex128

	raw      [bins]float64
	filtered [bins]float64
}

func New(audio *capture.Audio) *Effect {
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		// power-of-two size; only reachable if the library changes
		log.Error().Err(err).Msg("fft plan init failed")
	}

	window := make([]float64, fftSize)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
	}

	return &Effect{
		audio:   audio,
		speed:   defaultSpeed,
		avgSize: defaultAvgSize,
		plan:    plan,
		window:  window,
		samples: make([]float32, fftSize),
		in:      make([]complex128, fftSize),
		out:     make([]complex128, fftSize),
	}
}

func (e *Effect) ID() string   { return "spectrum" }
func (e *Effect) Name() string { return "Spectrum" }

func (e *Effect) Tick(elapsed time.Duration, buffer []device.Color) {
	if len(buffer) == 0 {
		return
	}
	e.processAudio()

	width, height := e.width, e.height
	if width == 0 {
		width = len(buffer)
	}
	if height == 0 {
		height = 1
	}

	amp := 0.0
	for i := 0; i < bins; i += e.avgSize {
		amp += e.filtered[i]
	}
	hueOffset := elapsed.Seconds() * e.speed

	cx, cy := float64(width)*0.5, float64(height)*0.5
	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if i >= len(buffer) {
				return
			}
			angle := math.Abs(math.Atan2(float64(x)-cx, float64(y)-cy))

			bin := int(bins * angle / (2 * math.Pi))
			if bin > bins-1 {
				bin = bins - 1
			}
			level := e.filtered[bin]

			hue := math.Mod(angle/math.Pi*360+hueOffset, 360)
			value := math.Min(math.Pow(level, 1/(amp+1)), 1)
			buffer[i] = device.HSV(hue, 1, value)
			i++
		}
	}
}

// processAudio pulls the newest samples, runs a Hann-windowed FFT and folds
// the magnitudes into the smoothed bin array.
func (e *Effect) processAudio() {
	if e.handle == nil {
		h, err := e.audio.Acquire()
		if err != nil {
			// retried every tick; log only the first failure
			if !e.acquireLogged {
				log.Warn().Err(err).Msg("audio capture unavailable")
				e.acquireLogged = true
			}
			return
		}
		e.handle = h
		e.acquireLogged = false
	}
	if e.plan == nil {
		return
	}

	e.handle.ReadRecent(e.samples)
	for i, s := range e.samples {
		e.in[i] = complex(float64(s)*e.window[i], 0)
	}
	if err := e.plan.Forward(e.out, e.in); err != nil {
		return
	}

	norm := math.Sqrt(float64(fftSize))
	// positive frequencies only, downsampled onto the bin array
	step := float64(fftSize/2) / float64(bins)
	for i := 0; i < bins; i++ {
		k := int(float64(i) * step)
		e.raw[i] = cmplx.Abs(e.out[k]) / norm
	}

	for i := 0; i < bins; i++ {
		e.filtered[i] = e.filtered[i]*decay + e.raw[i]*(1-decay)
	}
}

func (e *Effect) Resize(width, height int) {
	e.width = width
	e.height = height
}

func (e *Effect) UpdateParams(raw json.RawMessage) {
	var p struct {
		Speed   *float64 `json:"speed"`
		AvgSize *float64 `json:"avg_size"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if p.Speed != nil {
		e.speed = *p.Speed
	}
	if p.AvgSize != nil && *p.AvgSize >= 1 {
		e.avgSize = int(*p.AvgSize)
	}
}

// Close releases the capture handle; the backing source stops with the last
// listener.
func (e *Effect) Close() error {
	if e.handle != nil {
		e.handle.Release()
		e.handle = nil
	}
	return nil
}

func Info(audio *capture.Audio) device.EffectInfo {
	return device.EffectInfo{
		ID:          "spectrum",
		Name:        "Spectrum",
		Description: "Audio-reactive radial spectrum",
		Group:       "Audio",
		Icon:        "AudioLines",
		Params: []device.Param{
			{
				Key:     "speed",
				Label:   "Hue speed",
				Kind:    device.ParamSlider,
				Min:     0,
				Max:     100,
				Step:    1,
				Default: defaultSpeed,
			},
			{
				Key:     "avg_size",
				Label:   "Amplitude averaging",
				Kind:    device.ParamSlider,
				Min:     1,
				Max:     16,
				Step:    1,
				Default: float64(defaultAvgSize),
			},
			{
				Key:     "source",
				Label:   "Audio source",
				Kind:    device.ParamSelect,
				Default: 0.0,
				LoadOptions: func() ([]device.SelectOption, error) {
					return []device.SelectOption{{Value: 0, Label: "System audio"}}, nil
				},
			},
		},
		New: func() device.Effect { return New(audio) },
	}
}
