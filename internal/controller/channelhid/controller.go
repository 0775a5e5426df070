package channelhid

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sstallion/go-hid"

	"github.com/lumisync/lumisync/internal/device"
)

// keepaliveInterval is how often the idle watchdog wakes up; keepaliveAfter
// is how long a device may go without a frame before a keepalive is due.
const (
	keepaliveInterval = 500 * time.Millisecond
	keepaliveAfter    = time.Second
)

type deviceID struct {
	vid uint16
	pid uint16
}

type deviceConfig struct {
	model          string
	channels       int
	ledsPerChannel int
	generation     Generation
}

// supportedDevices maps USB ids to wire format and channel topology. The
// firmware reports nothing useful at runtime, so everything is keyed off the
// product id.
var supportedDevices = map[deviceID]deviceConfig{
	// fourth generation hubs
	{0x2486, 0x3608}: {"CH8 Hub Mk4", 8, 10, Gen4},
	{0x2486, 0x3616}: {"CH16 Hub Mk4", 16, 10, Gen4},
	{0x2486, 0x3628}: {"CH32 Hub Mk4", 32, 10, Gen4},
	{0x2486, 0x3636}: {"CH36 Hub Mk4", 36, 10, Gen4},
	{0x2486, 0x3204}: {"CH4 Hub Mk4", 4, 10, Gen4},
	{0x2486, 0x3216}: {"CH16 Hub Mk4F", 16, 10, Gen4},
	{0x2486, 0x3208}: {"CH8 Hub Mk5", 8, 10, Gen4},
	{0x2486, 0x3215}: {"CH16 Hub Mk5", 16, 10, Gen4},
	{0x2486, 0x3217}: {"CH16 Hub Mk5F", 16, 10, Gen4},
	{0x2486, 0x3228}: {"CH32 Hub Mk5", 32, 10, Gen4},
	{0x2486, 0x3229}: {"CH32 Hub Mk5F", 32, 10, Gen4},
	{0x2486, 0x3232}: {"CH32 Hub Mk5S", 32, 10, Gen4},

	// third generation
	{0x2023, 0x1209}: {"CH8 Hub Mk3", 8, 10, Gen3},
	{0x2023, 0x1221}: {"CH16 Hub Mk3", 16, 10, Gen3},
	{0x2023, 0x1226}: {"CH30 Hub Mk3", 30, 10, Gen3},
	{0x1368, 0x6077}: {"CH8 Elite", 8, 10, Gen3},
	{0x1368, 0x6078}: {"CH8 Elite", 8, 10, Gen3},
	{0x1368, 0x6079}: {"CH8 Elite", 8, 10, Gen3},

	// second generation
	{0x2023, 0x1208}: {"CH8 Hub Mk2", 8, 10, Gen2},
	{0x2023, 0x1220}: {"CH16 Hub Mk2", 16, 10, Gen2},
	{0x2023, 0x1210}: {"CH16 Hub Mk2 AB", 16, 10, Gen2},
	{0x2023, 0x1211}: {"CH6 Hub Mk2 CD", 6, 10, Gen2},
	{0x2023, 0x1215}: {"CH6 Sleeve Hub", 6, 10, Gen2},

	// first generation
	{0x2023, 0x1408}: {"CH8 Hub Mk1", 8, 10, Gen1},
	{0x2023, 0x1410}: {"CH10 Hub Mk1", 10, 10, Gen1},
	{0x2023, 0x1412}: {"CH12 Hub Mk1", 12, 10, Gen1},
}

// Controller drives one multi-channel HID hub. The HID handle is shared
// between Update and the keepalive goroutine, so all writes take mu.
type Controller struct {
	cfg    deviceConfig
	path   string
	serial string

	mu        sync.Mutex
	dev       *hid.Device
	lastFrame time.Time

	stop chan struct{}
	done chan struct{}

	zones       []device.Zone
	channelLEDs []int

	frame []device.Color
	rgb   []byte
}

func newController(dev *hid.Device, cfg deviceConfig, path, serial string) *Controller {
	total := cfg.channels * cfg.ledsPerChannel

	zones := make([]device.Zone, cfg.channels)
	channelLEDs := make([]int, cfg.channels)
	for i := range zones {
		zones[i] = device.Zone{
			ID:         fmt.Sprintf("ch%d", i+1),
			Name:       fmt.Sprintf("Channel %d", i+1),
			OutputType: device.SegmentLinear,
			LEDCount:   cfg.ledsPerChannel,
			Capabilities: device.OutputCapabilities{
				Editable:            true,
				MinTotalLEDs:        0,
				MaxTotalLEDs:        cfg.ledsPerChannel,
				AllowedSegmentTypes: []device.SegmentType{device.SegmentLinear},
			},
		}
		channelLEDs[i] = cfg.ledsPerChannel
	}

	c := &Controller{
		cfg:         cfg,
		path:        path,
		serial:      serial,
		dev:         dev,
		lastFrame:   time.Now(),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		zones:       zones,
		channelLEDs: channelLEDs,
		frame:       make([]device.Color, total),
		rgb:         make([]byte, total*3),
	}
	go c.keepalive()
	return c
}

// keepalive resends the idle command whenever no frame has gone out for a
// while; the firmware blanks its outputs otherwise.
func (c *Controller) keepalive() {
	defer close(c.done)

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	packet := KeepalivePacket()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if time.Since(c.lastFrame) > keepaliveAfter && c.dev != nil {
			if _, err := c.dev.Write(packet); err != nil {
				log.Warn().Err(err).Str("path", c.path).Msg("hid keepalive failed")
			}
		}
		c.mu.Unlock()
	}
}

func (c *Controller) PortName() string { return c.path }
func (c *Controller) Model() string    { return c.cfg.model }
func (c *Controller) Description() string {
	return "Multi-channel HID LED hub"
}
func (c *Controller) SerialID() string { return c.serial }
func (c *Controller) Length() int      { return len(c.frame) }
func (c *Controller) DeviceType() device.DeviceType {
	return device.TypeLedStrip
}

func (c *Controller) Zones() []device.Zone {
	out := make([]device.Zone, len(c.zones))
	copy(out, c.zones)
	return out
}

func (c *Controller) VirtualLayout() (int, int) {
	return device.LinearLayout(len(c.frame))
}

// Update sends one frame as a split sub-packet burst. Buffers shorter than
// the hub's channel capacity are padded with black, longer ones truncated.
func (c *Controller) Update(colors []device.Color) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.dev == nil {
		return fmt.Errorf("hid device %s is disconnected", c.path)
	}
	c.lastFrame = time.Now()

	n := copy(c.frame, colors)
	for i := n; i < len(c.frame); i++ {
		c.frame[i] = device.Color{}
	}
	for i, col := range c.frame {
		c.rgb[i*3] = col.R
		c.rgb[i*3+1] = col.G
		c.rgb[i*3+2] = col.B
	}

	payload := EncodePayload(c.cfg.generation, c.channelLEDs, c.rgb)
	for _, packet := range SplitPackets(c.cfg.generation, payload) {
		if _, err := c.dev.Write(packet); err != nil {
			return fmt.Errorf("hid write on %s: %w", c.path, err)
		}
	}
	return nil
}

func (c *Controller) Clear() error { return device.ClearController(c) }

// Disconnect stops the keepalive goroutine and releases the HID handle.
// Safe to call more than once.
func (c *Controller) Disconnect() error {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
	<-c.done

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return nil
	}
	err := c.dev.Close()
	c.dev = nil
	return err
}

// Info returns the registration record for this family.
func Info() device.ControllerInfo {
	return device.ControllerInfo{
		Name:        "Channel HID Hub",
		Description: "Multi-channel LED hubs on USB HID",
		Probe:       probe,
	}
}

func probe() []device.Controller {
	var found []device.Controller

	err := hid.Enumerate(hid.VendorIDAny, hid.ProductIDAny, func(info *hid.DeviceInfo) error {
		cfg, ok := supportedDevices[deviceID{info.VendorID, info.ProductID}]
		if !ok {
			return nil
		}

		dev, err := hid.OpenPath(info.Path)
		if err != nil {
			log.Warn().Err(err).Str("path", info.Path).Msg("hid open failed")
			return nil
		}

		log.Info().
			Str("path", info.Path).
			Str("model", cfg.model).
			Int("generation", int(cfg.generation)).
			Msg("hid hub discovered")
		found = append(found, newController(dev, cfg, info.Path, info.SerialNbr))
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("hid enumeration failed")
	}
	return found
}
