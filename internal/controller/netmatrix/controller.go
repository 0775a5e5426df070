package netmatrix

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/rs/zerolog/log"

	"github.com/lumisync/lumisync/internal/device"
)

const (
	// serviceType is the mDNS service the panels advertise.
	serviceType   = "_ledmatrix._udp"
	serviceDomain = "local."

	browseTimeout = 2 * time.Second
)

// panelInfo is the metadata a panel publishes in its mDNS TXT record.
type panelInfo struct {
	name   string
	serial string
	width  int
	height int
}

// Controller drives one discovered panel. The socket is connected, so a
// vanished panel surfaces as a write error in the owning render loop.
type Controller struct {
	info panelInfo
	addr string
	conn net.Conn

	zones []device.Zone

	frame  []device.Color
	packet []byte
}

func newController(info panelInfo, conn net.Conn, addr string) *Controller {
	n := info.width * info.height
	matrix := device.DenseMatrixMap(info.width, info.height)

	return &Controller{
		info: info,
		addr: addr,
		conn: conn,
		zones: []device.Zone{{
			ID:         "panel",
			Name:       "Panel",
			OutputType: device.SegmentMatrix,
			LEDCount:   n,
			Matrix:     &matrix,
			Capabilities: device.OutputCapabilities{
				Editable:            false,
				MinTotalLEDs:        n,
				MaxTotalLEDs:        n,
				AllowedTotalLEDs:    []int{n},
				AllowedSegmentTypes: []device.SegmentType{device.SegmentMatrix},
			},
		}},
		frame:  make([]device.Color, n),
		packet: make([]byte, 0, UpdateSize(n)),
	}
}

func (c *Controller) PortName() string { return c.addr }
func (c *Controller) Model() string    { return c.info.name }
func (c *Controller) Description() string {
	return "Networked LED matrix panel"
}
func (c *Controller) SerialID() string { return c.info.serial }
func (c *Controller) Length() int      { return len(c.frame) }
func (c *Controller) DeviceType() device.DeviceType {
	return device.TypeMatrix
}

func (c *Controller) Zones() []device.Zone {
	out := make([]device.Zone, len(c.zones))
	copy(out, c.zones)
	return out
}

func (c *Controller) VirtualLayout() (int, int) {
	return c.info.width, c.info.height
}

// Update replaces the whole frame in one datagram. Short buffers are padded
// with black, long ones truncated; the panel latches on receipt.
func (c *Controller) Update(colors []device.Color) error {
	n := copy(c.frame, colors)
	for i := n; i < len(c.frame); i++ {
		c.frame[i] = device.Color{}
	}

	c.packet = EncodeUpdate(c.frame, c.packet[:0])
	if _, err := c.conn.Write(c.packet); err != nil {
		return fmt.Errorf("udp write to %s: %w", c.addr, err)
	}
	return nil
}

// Clear blanks the panel with a fill and latches it, which is far cheaper
// than a full-frame update.
func (c *Controller) Clear() error {
	if _, err := c.conn.Write(EncodeFill(device.Color{})); err != nil {
		return fmt.Errorf("udp write to %s: %w", c.addr, err)
	}
	if _, err := c.conn.Write(EncodeRefresh()); err != nil {
		return fmt.Errorf("udp write to %s: %w", c.addr, err)
	}
	return nil
}

func (c *Controller) Disconnect() error {
	// Best effort blank; the panel keeps the last frame otherwise.
	_ = c.Clear()
	return c.conn.Close()
}

// Info returns the registration record for this family.
func Info() device.ControllerInfo {
	return device.ControllerInfo{
		Name:        "Network Matrix",
		Description: "UDP LED matrix panels discovered over mDNS",
		Probe:       probe,
	}
}

func probe() []device.Controller {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		log.Warn().Err(err).Msg("mdns resolver init failed")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), browseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	var found []device.Controller
	done := make(chan struct{})
	go func() {
		defer close(done)
		for entry := range entries {
			if c := controllerFromEntry(entry); c != nil {
				found = append(found, c)
			}
		}
	}()

	if err := resolver.Browse(ctx, serviceType, serviceDomain, entries); err != nil {
		log.Warn().Err(err).Msg("mdns browse failed")
		return nil
	}
	<-ctx.Done()
	<-done
	return found
}

func controllerFromEntry(entry *zeroconf.ServiceEntry) device.Controller {
	info, err := parseTXT(entry.Instance, entry.Text)
	if err != nil {
		log.Debug().Err(err).Str("instance", entry.Instance).Msg("skipping mdns entry")
		return nil
	}

	var ip net.IP
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0]
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0]
	} else {
		return nil
	}

	addr := net.JoinHostPort(ip.String(), strconv.Itoa(entry.Port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("udp dial failed")
		return nil
	}

	log.Info().
		Str("addr", addr).
		Str("name", info.name).
		Int("width", info.width).
		Int("height", info.height).
		Msg("matrix panel discovered")
	return newController(info, conn, addr)
}

// parseTXT extracts the panel geometry from key=value TXT entries. Panels
// that do not publish a usable width and height are not ours.
func parseTXT(instance string, txt []string) (panelInfo, error) {
	info := panelInfo{name: instance}
	for _, kv := range txt {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch key {
		case "name":
			if value != "" {
				info.name = value
			}
		case "serial":
			info.serial = value
		case "width":
			info.width, _ = strconv.Atoi(value)
		case "height":
			info.height, _ = strconv.Atoi(value)
		}
	}

	if info.width <= 0 || info.height <= 0 {
		return panelInfo{}, fmt.Errorf("missing panel dimensions in TXT record")
	}
	if info.width*info.height > int(^uint16(0)) {
		return panelInfo{}, fmt.Errorf("panel %dx%d exceeds pixel index range", info.width, info.height)
	}
	return info, nil
}
