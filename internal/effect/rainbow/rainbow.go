// Package rainbow scrolls a hue gradient across the device. On a matrix
// layout each row gets a small phase shift so orientation is visible.
package rainbow

import (
	"encoding/json"
	"math"
	"time"

	"github.com/lumisync/lumisync/internal/device"
)

const defaultSpeed = 2.5

type Effect struct {
	speed  float64
	width  int
	height int
}

func New() *Effect {
	return &Effect{speed: defaultSpeed}
}

func (e *Effect) ID() string   { return "rainbow" }
func (e *Effect) Name() string { return "Rainbow" }

func (e *Effect) Tick(elapsed time.Duration, buffer []device.Color) {
	if len(buffer) == 0 {
		return
	}

	width, height := e.width, e.height
	if width == 0 {
		width = len(buffer)
	}
	if height == 0 {
		height = 1
	}

	offset := math.Mod(float64(elapsed.Milliseconds())*e.speed/10, 360)

	i := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if i >= len(buffer) {
				return
			}
			hue := math.Mod(float64(x)*360/float64(width)+offset+float64(y)*20, 360)
			buffer[i] = device.HSV(hue, 1, 1)
			i++
		}
	}
}

func (e *Effect) Resize(width, height int) {
	e.width = width
	e.height = height
}

func (e *Effect) UpdateParams(raw json.RawMessage) {
	var p struct {
		Speed *float64 `json:"speed"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if p.Speed != nil {
		e.speed = *p.Speed
	}
}

func Info() device.EffectInfo {
	return device.EffectInfo{
		ID:          "rainbow",
		Name:        "Rainbow",
		Description: "Scrolling hue gradient",
		Group:       "Basic",
		Icon:        "Rainbow",
		Params: []device.Param{{
			Key:     "speed",
			Label:   "Speed",
			Kind:    device.ParamSlider,
			Min:     0,
			Max:     5,
			Step:    0.1,
			Default: defaultSpeed,
		}},
		New: func() device.Effect { return New() },
	}
}
