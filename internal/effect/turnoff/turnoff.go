// Package turnoff renders black. It exists so "off" flows through the same
// scheduling path as any other effect.
package turnoff

import (
	"encoding/json"
	"time"

	"github.com/lumisync/lumisync/internal/device"
)

type Effect struct{}

func New() *Effect { return &Effect{} }

func (*Effect) ID() string   { return "turn_off" }
func (*Effect) Name() string { return "Turn Off" }

func (*Effect) Tick(_ time.Duration, buffer []device.Color) {
	for i := range buffer {
		buffer[i] = device.Color{}
	}
}

func (*Effect) Resize(int, int)              {}
func (*Effect) UpdateParams(json.RawMessage) {}

func Info() device.EffectInfo {
	return device.EffectInfo{
		ID:          "turn_off",
		Name:        "Turn Off",
		Description: "All LEDs off",
		Group:       "Basic",
		Icon:        "Power",
		New:         func() device.Effect { return New() },
	}
}
