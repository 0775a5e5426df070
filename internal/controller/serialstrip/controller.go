package serialstrip

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/lumisync/lumisync/internal/device"
	"github.com/lumisync/lumisync/internal/transport"
)

const (
	baudRate    = 115200
	readTimeout = 200 * time.Millisecond

	// CH340-class USB serial adapter used by these strips.
	usbVID = "1A86"
	usbPID = "7523"
)

// Controller drives one serial strip. Writes go through a rate limiter sized
// to the frame the strip's LED count produces; frames arriving faster than
// the link can carry are dropped rather than queued.
type Controller struct {
	portName string
	model    string
	serial   string

	port    serial.Port
	limiter *transport.RateLimitedWriter

	zones    []device.Zone
	ledCount int

	frame  []device.Color
	packet []byte
}

func newController(portName string, id Identity, port serial.Port) *Controller {
	outputType, ledCount, matrix := layoutForModel(id.Model)

	caps := device.OutputCapabilities{
		Editable:            outputType != device.SegmentMatrix,
		MinTotalLEDs:        ledCount,
		MaxTotalLEDs:        ledCount,
		AllowedTotalLEDs:    []int{ledCount},
		AllowedSegmentTypes: []device.SegmentType{device.SegmentSingle, device.SegmentLinear, device.SegmentMatrix},
	}
	if outputType == device.SegmentMatrix {
		caps.AllowedSegmentTypes = []device.SegmentType{device.SegmentMatrix}
	}

	return &Controller{
		portName: portName,
		model:    id.Model,
		serial:   id.Serial,
		port:     port,
		limiter:  transport.NewRateLimitedWriter(port, baudRate, FrameSize(ledCount)),
		zones: []device.Zone{{
			ID:           "out1",
			Name:         "Output 1",
			OutputType:   outputType,
			LEDCount:     ledCount,
			Matrix:       matrix,
			Capabilities: caps,
		}},
		ledCount: ledCount,
		frame:    make([]device.Color, ledCount),
		packet:   make([]byte, 0, FrameSize(ledCount)),
	}
}

func (c *Controller) PortName() string { return c.portName }
func (c *Controller) Model() string    { return c.model }
func (c *Controller) Description() string {
	return "Serial ambient light strip"
}
func (c *Controller) SerialID() string              { return c.serial }
func (c *Controller) Length() int                   { return c.ledCount }
func (c *Controller) DeviceType() device.DeviceType { return device.TypeLight }

func (c *Controller) Zones() []device.Zone {
	out := make([]device.Zone, len(c.zones))
	copy(out, c.zones)
	return out
}

func (c *Controller) VirtualLayout() (int, int) {
	if m := c.zones[0].Matrix; m != nil {
		return m.Width, m.Height
	}
	return device.LinearLayout(c.ledCount)
}

// Update encodes and sends one frame. Input buffers shorter than the strip
// are padded with black, longer ones truncated; the wire frame always
// carries exactly Length LEDs.
func (c *Controller) Update(colors []device.Color) error {
	n := copy(c.frame, colors)
	for i := n; i < len(c.frame); i++ {
		c.frame[i] = device.Color{}
	}

	c.packet = EncodeFrame(c.frame, c.packet[:0])
	if _, err := c.limiter.WriteAllThrottled(c.packet); err != nil {
		return fmt.Errorf("serial write on %s: %w", c.portName, err)
	}
	return nil
}

func (c *Controller) Clear() error { return device.ClearController(c) }

func (c *Controller) Disconnect() error {
	return c.port.Close()
}

// Info returns the registration record for this family.
func Info() device.ControllerInfo {
	return device.ControllerInfo{
		Name:        "Serial Strip",
		Description: "Header-protocol LED strips on USB serial adapters",
		Probe:       probe,
	}
}

func probe() []device.Controller {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		log.Warn().Err(err).Msg("serial enumeration failed")
		return nil
	}

	var found []device.Controller
	for _, p := range ports {
		if !p.IsUSB || !strings.EqualFold(p.VID, usbVID) || !strings.EqualFold(p.PID, usbPID) {
			continue
		}

		port, err := serial.Open(p.Name, &serial.Mode{BaudRate: baudRate})
		if err != nil {
			continue
		}
		if err := port.SetReadTimeout(readTimeout); err != nil {
			_ = port.Close()
			continue
		}

		id, err := Handshake(port)
		if err != nil {
			// Silent or foreign device on a matching adapter; not an error.
			_ = port.Close()
			continue
		}

		log.Info().Str("port", p.Name).Str("model", id.Model).Msg("serial strip discovered")
		found = append(found, newController(p.Name, id, port))
	}
	return found
}
