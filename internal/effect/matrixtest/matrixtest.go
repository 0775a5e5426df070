// Package matrixtest renders a diagnostic pattern: four colored quadrants
// with a scan line moving down, so a miswired matrix map is obvious at a
// glance.
package matrixtest

import (
	"encoding/json"
	"time"

	"github.com/lumisync/lumisync/internal/device"
)

type Effect struct {
	width  int
	height int
}

func New() *Effect { return &Effect{} }

func (e *Effect) ID() string   { return "matrix_test" }
func (e *Effect) Name() string { return "Matrix Test" }

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

	halfW, halfH := width/2, height/2
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			idx := y*width + x
			if idx >= len(buffer) {
				break
			}

			switch {
			case y < halfH && x < halfW:
				buffer[idx] = device.Color{R: 255}
			case y < halfH:
				buffer[idx] = device.Color{G: 255}
			case x < halfW:
				buffer[idx] = device.Color{B: 255}
			default:
				buffer[idx] = device.Color{R: 255, G: 255, B: 255}
			}
		}
	}

	// white scan line sweeping downwards
	lineY := int(elapsed.Milliseconds()/50) % height
	for x := 0; x < width; x++ {
		idx := lineY*width + x
		if idx >= len(buffer) {
			break
		}
		buffer[idx] = device.Color{R: 255, G: 255, B: 255}
	}
}

func (e *Effect) Resize(width, height int) {
	e.width = width
	e.height = height
}

func (*Effect) UpdateParams(json.RawMessage) {}

func Info() device.EffectInfo {
	return device.EffectInfo{
		ID:          "matrix_test",
		Name:        "Matrix Test",
		Description: "Quadrant and scan line diagnostic pattern",
		Group:       "Diagnostic",
		Icon:        "Grid",
		New:         func() device.Effect { return New() },
	}
}
