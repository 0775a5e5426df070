package spistrip

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisync/lumisync/internal/device"
)

// fakeDrawer records what Update paints.
type fakeDrawer struct {
	bounds image.Rectangle
	drawn  *image.NRGBA
	halted bool
}

func (f *fakeDrawer) String() string          { return "fake" }
func (f *fakeDrawer) Halt() error             { f.halted = true; return nil }
func (f *fakeDrawer) ColorModel() color.Model { return color.NRGBAModel }
func (f *fakeDrawer) Bounds() image.Rectangle { return f.bounds }

func (f *fakeDrawer) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	f.drawn = image.NewNRGBA(r)
	for x := r.Min.X; x < r.Max.X; x++ {
		f.drawn.Set(x, 0, src.At(x, 0))
	}
	return nil
}

func newTestController(leds int) (*Controller, *fakeDrawer) {
	d := &fakeDrawer{bounds: image.Rect(0, 0, leds, 1)}
	return newController(Config{LEDCount: leds}, d, "spitest"), d
}

func TestUpdateDrawsFrame(t *testing.T) {
	c, d := newTestController(3)

	err := c.Update([]device.Color{{R: 1, G: 2, B: 3}, {R: 4, G: 5, B: 6}})
	require.NoError(t, err)
	require.NotNil(t, d.drawn)

	assert.Equal(t, color.NRGBA{R: 1, G: 2, B: 3, A: 0xFF}, d.drawn.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 4, G: 5, B: 6, A: 0xFF}, d.drawn.NRGBAAt(1, 0))
	// short frames pad with black
	assert.Equal(t, color.NRGBA{A: 0xFF}, d.drawn.NRGBAAt(2, 0))
}

func TestUpdateTruncatesLongFrames(t *testing.T) {
	c, d := newTestController(2)

	err := c.Update(make([]device.Color, 10))
	require.NoError(t, err)
	assert.Equal(t, 2, d.drawn.Bounds().Dx())
}

func TestClearHaltsDriver(t *testing.T) {
	c, d := newTestController(2)
	require.NoError(t, c.Clear())
	assert.True(t, d.halted)
}

func TestZoneShape(t *testing.T) {
	c, _ := newTestController(30)
	zones := c.Zones()
	require.Len(t, zones, 1)
	assert.Equal(t, device.SegmentLinear, zones[0].OutputType)
	assert.Equal(t, 30, zones[0].LEDCount)
	assert.Equal(t, 30, c.Length())
}
