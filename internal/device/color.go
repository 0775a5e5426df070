package device

// Color is a single RGB sample. The zero value is black.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Scale returns the color with every channel scaled by num/den, rounding down.
// den must be non-zero.
func (c Color) Scale(num, den uint16) Color {
	return Color{
		R: uint8(uint16(c.R) * num / den),
		G: uint8(uint16(c.G) * num / den),
		B: uint8(uint16(c.B) * num / den),
	}
}

// HSV converts hue (degrees, wraps), saturation and value (0..1) to a Color.
func HSV(h, s, v float64) Color {
	for h < 0 {
		h += 360
	}
	for h >= 360 {
		h -= 360
	}

	c := v * s
	hh := h / 60
	x := c * (1 - abs(mod2(hh)-1))
	m := v - c

	var r, g, b float64
	switch {
	case hh < 1:
		r, g, b = c, x, 0
	case hh < 2:
		r, g, b = x, c, 0
	case hh < 3:
		r, g, b = 0, c, x
	case hh < 4:
		r, g, b = 0, x, c
	case hh < 5:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return Color{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func mod2(v float64) float64 {
	for v >= 2 {
		v -= 2
	}
	return v
}
