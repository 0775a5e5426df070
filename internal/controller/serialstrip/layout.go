package serialstrip

import (
	"math"
	"strings"

	"github.com/lumisync/lumisync/internal/device"
)

// Known model layouts. The firmware only reports a model id during the
// handshake; LED counts and physical arrangement come from this table.
// Unlisted models fall back to a 100-LED linear strip.
type modelLayout struct {
	// zone LED counts, in physical wiring order
	zones []int
	shape layoutShape
}

type layoutShape int

const (
	shapeStrip layoutShape = iota
	// two vertical bars left/right of a screen
	shapeSides
	// right side up, across the top, left side down; perimeter4 adds the
	// bottom row. Corner cells stay empty.
	shapePerimeter3
	shapePerimeter4
)

const fallbackLEDCount = 100

var modelLayouts = map[string]modelLayout{
	"LS0201": {zones: []int{20, 20}, shape: shapeSides},
	"LS0202": {zones: []int{30, 30}, shape: shapeSides},
	"LS0121": {zones: []int{13, 24, 13}, shape: shapePerimeter3},
	"LS0124": {zones: []int{16, 30, 16}, shape: shapePerimeter3},
	"LS0132": {zones: []int{18, 32, 18, 32}, shape: shapePerimeter4},
	"LS0134": {zones: []int{21, 38, 21, 38}, shape: shapePerimeter4},
	"LS0402": {zones: []int{60}, shape: shapeStrip},
	"LS0403": {zones: []int{120}, shape: shapeStrip},
	"LS0404": {zones: []int{200}, shape: shapeStrip},
}

// layoutForModel resolves the default layout for a handshake model string.
// The model may arrive with a vendor prefix; the table key is the last
// whitespace-separated token.
func layoutForModel(model string) (outputType device.SegmentType, total int, matrix *device.MatrixMap) {
	key := model
	if i := strings.LastIndexByte(model, ' '); i >= 0 {
		key = model[i+1:]
	}

	l, ok := modelLayouts[strings.TrimSpace(key)]
	if !ok {
		return device.SegmentLinear, fallbackLEDCount, nil
	}

	for _, z := range l.zones {
		total += z
	}
	if l.shape == shapeStrip {
		return device.SegmentLinear, total, nil
	}

	m := buildPerimeterMap(l)
	return device.SegmentMatrix, total, &m
}

// buildPerimeterMap lays the zones out around a virtual screen rectangle so
// the sparse physical arrangement renders as a dense grid. Cells without an
// LED stay NoLED.
func buildPerimeterMap(l modelLayout) device.MatrixMap {
	zone := func(i int) int {
		if i < len(l.zones) {
			return l.zones[i]
		}
		return 0
	}
	z1, z2, z3, z4 := zone(0), zone(1), zone(2), zone(3)

	var width, height int
	switch l.shape {
	case shapeSides:
		height = max(z1, z2) + 2
		width = int(math.Round(16.0 / 9.0 * float64(height)))
		if width < 3 {
			width = 3
		}
	case shapePerimeter3:
		height = max(z1, z3) + 1
		width = z2 + 2
	default: // shapePerimeter4
		height = max(z1, z3) + 2
		width = max(z2, z4) + 2
	}

	m := device.MatrixMap{Width: width, Height: height, Map: make([]int, width*height)}
	for i := range m.Map {
		m.Map[i] = device.NoLED
	}

	next := 0
	set := func(y, x int) {
		if y < 0 || x < 0 || y >= height || x >= width {
			return
		}
		m.Map[y*width+x] = next
		next++
	}

	switch l.shape {
	case shapeSides:
		// zone 1: left bar, bottom to top; zone 2: right bar, top to bottom
		for placed, y := 0, height-2; placed < z1 && y >= 1; placed, y = placed+1, y-1 {
			set(y, 0)
		}
		for placed, y := 0, 1; placed < z2 && y <= height-2; placed, y = placed+1, y+1 {
			set(y, width-1)
		}
	default:
		// zone 1: right side, bottom to top
		startY := height - 2
		if l.shape == shapePerimeter3 {
			startY = height - 1
		}
		for placed, y := 0, startY; placed < z1 && y >= 1; placed, y = placed+1, y-1 {
			set(y, width-1)
		}
		// zone 2: top row, right to left
		for placed, x := 0, width-2; placed < z2 && x >= 1; placed, x = placed+1, x-1 {
			set(0, x)
		}
		// zone 3: left side, top to bottom
		endY := height - 2
		if l.shape == shapePerimeter3 {
			endY = height - 1
		}
		for placed, y := 0, 1; placed < z3 && y <= endY; placed, y = placed+1, y+1 {
			set(y, 0)
		}
		// zone 4: bottom row, left to right
		if l.shape == shapePerimeter4 {
			for placed, x := 0, 1; placed < z4 && x <= width-2; placed, x = placed+1, x+1 {
				set(height-1, x)
			}
		}
	}

	return m
}
