// Package spistrip drives an NRZ (WS2812-class) LED strip attached to a
// local SPI bus. The waveform is owned by the periph.io driver; this package
// only shapes frames, optionally through a color lookup table.
package spistrip

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"

	"github.com/lumisync/lumisync/internal/device"
	"github.com/lumisync/lumisync/internal/lut"
)

// nrzFreq is the WS2812 data rate.
const nrzFreq = 800 * physic.KiloHertz

// Config describes the locally attached strip. SPI hardware cannot be
// probed for LED count, so it comes from the application config.
type Config struct {
	// SPI port name; empty selects the first available port.
	Port string
	// Number of LEDs on the strip.
	LEDCount int
	// Optional path to a .3d lookup table applied before each write.
	LUTPath string
}

// Controller renders frames into an image the NRZ driver serializes onto
// the bus. Drawer access is serialized; Clear may race a render loop
// otherwise.
type Controller struct {
	port     string
	ledCount int
	table    *lut.Table

	mu     sync.Mutex
	drawer display.Drawer
	img    *image.NRGBA

	frame []device.Color
}

func newController(cfg Config, drawer display.Drawer, portName string) *Controller {
	var table *lut.Table
	if cfg.LUTPath != "" {
		t, err := lut.Load(cfg.LUTPath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.LUTPath).Msg("lut load failed, rendering without it")
		} else {
			table = t
		}
	}

	return &Controller{
		port:     portName,
		ledCount: cfg.LEDCount,
		table:    table,
		drawer:   drawer,
		img:      image.NewNRGBA(image.Rect(0, 0, cfg.LEDCount, 1)),
		frame:    make([]device.Color, cfg.LEDCount),
	}
}

func (c *Controller) PortName() string { return c.port }
func (c *Controller) Model() string    { return "NRZ SPI Strip" }
func (c *Controller) Description() string {
	return "WS2812-class strip on the local SPI bus"
}
func (c *Controller) SerialID() string { return "" }
func (c *Controller) Length() int      { return c.ledCount }
func (c *Controller) DeviceType() device.DeviceType {
	return device.TypeLedStrip
}

func (c *Controller) Zones() []device.Zone {
	return []device.Zone{{
		ID:         "strip",
		Name:       "Strip",
		OutputType: device.SegmentLinear,
		LEDCount:   c.ledCount,
		Capabilities: device.OutputCapabilities{
			Editable:            true,
			MinTotalLEDs:        1,
			MaxTotalLEDs:        c.ledCount,
			AllowedSegmentTypes: []device.SegmentType{device.SegmentLinear},
		},
	}}
}

func (c *Controller) VirtualLayout() (int, int) {
	return device.LinearLayout(c.ledCount)
}

func (c *Controller) Update(colors []device.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := copy(c.frame, colors)
	for i := n; i < len(c.frame); i++ {
		c.frame[i] = device.Color{}
	}
	c.table.ApplyAll(c.frame)

	for i, col := range c.frame {
		c.img.SetNRGBA(i, 0, color.NRGBA{R: col.R, G: col.G, B: col.B, A: 0xFF})
	}
	if err := c.drawer.Draw(c.drawer.Bounds(), c.img, image.Point{}); err != nil {
		return fmt.Errorf("spi draw on %s: %w", c.port, err)
	}
	return nil
}

func (c *Controller) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawer.Halt()
}

func (c *Controller) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drawer.Halt()
}

// Info returns the registration record for the local strip. Unlike the bus
// families this needs configuration, so registration happens with the
// application config in hand.
func Info(cfg Config) device.ControllerInfo {
	return device.ControllerInfo{
		Name:        "SPI Strip",
		Description: "Locally attached NRZ LED strip",
		Probe:       func() []device.Controller { return probe(cfg) },
	}
}

func probe(cfg Config) []device.Controller {
	if cfg.LEDCount <= 0 {
		return nil
	}

	if _, err := host.Init(); err != nil {
		log.Warn().Err(err).Msg("periph host init failed")
		return nil
	}

	port, err := spireg.Open(cfg.Port)
	if err != nil {
		log.Debug().Err(err).Msg("no spi port available")
		return nil
	}

	dev, err := nrzled.NewSPI(port, &nrzled.Opts{
		NumPixels: cfg.LEDCount,
		Channels:  3,
		Freq:      nrzFreq,
	})
	if err != nil {
		log.Warn().Err(err).Msg("nrzled init failed")
		_ = port.Close()
		return nil
	}
	_ = dev.Halt()

	log.Info().Str("port", dev.String()).Int("leds", cfg.LEDCount).Msg("spi strip attached")
	return []device.Controller{newController(cfg, dev, dev.String())}
}
