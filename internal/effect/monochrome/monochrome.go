// Package monochrome fills the device with one solid color.
package monochrome

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/lumisync/lumisync/internal/device"
)

const defaultColor = "#ffffff"

type Effect struct {
	color device.Color
}

func New() *Effect {
	c, _ := ParseColor(defaultColor)
	return &Effect{color: c}
}

func (e *Effect) ID() string   { return "monochrome" }
func (e *Effect) Name() string { return "Monochrome" }

func (e *Effect) Tick(_ time.Duration, buffer []device.Color) {
	for i := range buffer {
		buffer[i] = e.color
	}
}

func (e *Effect) Resize(int, int) {}

func (e *Effect) UpdateParams(raw json.RawMessage) {
	var p struct {
		Color *string `json:"color"`
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	if p.Color != nil {
		if c, ok := ParseColor(*p.Color); ok {
			e.color = c
		}
	}
}

// ParseColor accepts CSS-style color strings: #rgb, #rrggbb, #rrggbbaa
// (alpha dropped) and rgb(r, g, b) with numeric components.
func ParseColor(value string) (device.Color, bool) {
	if c, ok := parseHex(value); ok {
		return c, true
	}
	return parseRGBFunc(value)
}

func parseHex(value string) (device.Color, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 8 {
		hex = hex[:6]
	}

	nibble := func(s string) (uint8, bool) {
		v, err := strconv.ParseUint(s, 16, 8)
		return uint8(v), err == nil
	}

	switch len(hex) {
	case 6:
		r, ok1 := nibble(hex[0:2])
		g, ok2 := nibble(hex[2:4])
		b, ok3 := nibble(hex[4:6])
		if ok1 && ok2 && ok3 {
			return device.Color{R: r, G: g, B: b}, true
		}
	case 3:
		r, ok1 := nibble(hex[0:1])
		g, ok2 := nibble(hex[1:2])
		b, ok3 := nibble(hex[2:3])
		if ok1 && ok2 && ok3 {
			return device.Color{R: r * 17, G: g * 17, B: b * 17}, true
		}
	}
	return device.Color{}, false
}

func parseRGBFunc(value string) (device.Color, bool) {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(strings.ToLower(trimmed), "rgb") {
		return device.Color{}, false
	}

	open := strings.IndexByte(trimmed, '(')
	end := strings.LastIndexByte(trimmed, ')')
	if open < 0 || end < open {
		return device.Color{}, false
	}

	parts := strings.Split(trimmed[open+1:end], ",")
	if len(parts) < 3 {
		return device.Color{}, false
	}

	component := func(raw string) (uint8, bool) {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return 0, false
		}
		return uint8(math.Min(math.Max(math.Round(v), 0), 255)), true
	}

	r, ok1 := component(parts[0])
	g, ok2 := component(parts[1])
	b, ok3 := component(parts[2])
	if !ok1 || !ok2 || !ok3 {
		return device.Color{}, false
	}
	return device.Color{R: r, G: g, B: b}, true
}

func Info() device.EffectInfo {
	return device.EffectInfo{
		ID:          "monochrome",
		Name:        "Monochrome",
		Description: "Solid color fill",
		Group:       "Basic",
		Icon:        "Palette",
		Params: []device.Param{{
			Key:     "color",
			Label:   "Color",
			Kind:    device.ParamColor,
			Default: defaultColor,
		}},
		New: func() device.Effect { return New() },
	}
}
