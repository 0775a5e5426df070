// Package manager orchestrates devices and effects: it owns the controller
// table, per-device brightness, and the set of live render loops. Each
// device is keyed by its transport address (the port), and at most one
// effect runs per port at a time.
package manager

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/lumisync/lumisync/internal/device"
)

const defaultBrightness = 100

var (
	ErrPortNotFound   = errors.New("device not found")
	ErrEffectNotFound = errors.New("effect not found")
	ErrNoActiveEffect = errors.New("no active effect")
)

// Device is the read model returned by scans: the controller joined with
// the brightness and active-effect tables. Derived on demand, never stored.
type Device struct {
	Port            string            `json:"port"`
	Model           string            `json:"model"`
	Description     string            `json:"description"`
	SerialID        string            `json:"serial_id"`
	Type            device.DeviceType `json:"type"`
	Length          int               `json:"length"`
	Zones           []device.Zone     `json:"zones"`
	VirtualWidth    int               `json:"virtual_width"`
	VirtualHeight   int               `json:"virtual_height"`
	Brightness      uint8             `json:"brightness"`
	CurrentEffectID string            `json:"current_effect_id,omitempty"`
}

// StoredState is the persisted per-device slice the config layer hands back
// at start-up.
type StoredState struct {
	Brightness uint8
	EffectID   string
}

type Manager struct {
	registry *device.Registry

	ctrlMu      sync.Mutex
	controllers map[string]device.Controller

	brightMu   sync.Mutex
	brightness map[string]uint8

	// activeMu guards both the active-effect ids and their runners; they
	// change together.
	activeMu sync.Mutex
	active   map[string]string
	runners  map[string]*runner
}

func New(registry *device.Registry) *Manager {
	return &Manager{
		registry:    registry,
		controllers: make(map[string]device.Controller),
		brightness:  make(map[string]uint8),
		active:      make(map[string]string),
		runners:     make(map[string]*runner),
	}
}

// ScanDevices probes every registered driver and merges discoveries into
// the controller table. Merging is additive and keyed by port: a port
// already tracked keeps its live handle and whatever is animating on it,
// and the duplicate handle is released. Running effects are never touched.
func (m *Manager) ScanDevices() []Device {
	discovered := m.registry.ProbeControllers()

	m.ctrlMu.Lock()
	for _, c := range discovered {
		port := c.PortName()
		if _, known := m.controllers[port]; known {
			if err := c.Disconnect(); err != nil {
				log.Debug().Err(err).Str("port", port).Msg("duplicate handle close failed")
			}
			continue
		}
		m.controllers[port] = c
		log.Info().Str("port", port).Str("model", c.Model()).Msg("device added")
	}
	m.ctrlMu.Unlock()

	return m.Devices()
}

// Devices projects the current tables without probing hardware.
func (m *Manager) Devices() []Device {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()

	out := make([]Device, 0, len(m.controllers))
	for port, c := range m.controllers {
		w, h := c.VirtualLayout()
		out = append(out, Device{
			Port:            port,
			Model:           c.Model(),
			Description:     c.Description(),
			SerialID:        c.SerialID(),
			Type:            c.DeviceType(),
			Length:          c.Length(),
			Zones:           c.Zones(),
			VirtualWidth:    w,
			VirtualHeight:   h,
			Brightness:      m.storedBrightness(port),
			CurrentEffectID: m.activeEffect(port),
		})
	}
	return out
}

// StartEffect replaces whatever runs on port with a fresh instance of the
// effect. The previous runner is fully joined before the new one spawns, so
// two effects never interleave writes on one transport. An unknown effect
// id fails before the current effect is disturbed.
func (m *Manager) StartEffect(port, effectID string) error {
	ctrl, err := m.controller(port)
	if err != nil {
		return err
	}

	eff, err := m.registry.NewEffect(effectID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrEffectNotFound, effectID)
	}

	m.activeMu.Lock()
	defer m.activeMu.Unlock()

	if old := m.runners[port]; old != nil {
		old.halt()
	}

	r := startRunner(port, effectID, ctrl, eff, m.storedBrightness(port), m.reapRunner)
	m.runners[port] = r
	m.active[port] = effectID

	log.Info().Str("port", port).Str("effect", effectID).Msg("effect started")
	return nil
}

// StopEffect cancels the active effect and blanks the device. A port with
// nothing running is not an error.
func (m *Manager) StopEffect(port string) error {
	ctrl, err := m.controller(port)
	if err != nil {
		return err
	}

	m.activeMu.Lock()
	if r := m.runners[port]; r != nil {
		r.halt()
		delete(m.runners, port)
	}
	delete(m.active, port)
	m.activeMu.Unlock()

	if err := ctrl.Clear(); err != nil {
		return fmt.Errorf("clearing %s: %w", port, err)
	}
	return nil
}

// UpdateEffectParams forwards a JSON fragment to the live effect instance.
func (m *Manager) UpdateEffectParams(port string, raw json.RawMessage) error {
	if _, err := m.controller(port); err != nil {
		return err
	}

	m.activeMu.Lock()
	r := m.runners[port]
	m.activeMu.Unlock()

	if r == nil {
		return fmt.Errorf("%w on %s", ErrNoActiveEffect, port)
	}
	r.updateParams(raw)
	return nil
}

// SetBrightness stores the port's brightness so it survives effect
// switches, and pushes it into the live runner if one exists.
func (m *Manager) SetBrightness(port string, value uint8) error {
	if _, err := m.controller(port); err != nil {
		return err
	}

	m.brightMu.Lock()
	m.brightness[port] = value
	m.brightMu.Unlock()

	m.activeMu.Lock()
	r := m.runners[port]
	m.activeMu.Unlock()

	if r != nil {
		r.setBrightness(value)
	}
	return nil
}

// ListEffects returns the registered effect catalog in registration order.
func (m *Manager) ListEffects() []device.EffectInfo {
	return m.registry.Effects()
}

// Restore replays persisted per-device state: brightness always, the last
// effect when the device is currently present.
func (m *Manager) Restore(states map[string]StoredState) {
	for port, s := range states {
		m.brightMu.Lock()
		m.brightness[port] = s.Brightness
		m.brightMu.Unlock()

		if s.EffectID == "" {
			continue
		}
		if err := m.StartEffect(port, s.EffectID); err != nil {
			log.Debug().Err(err).Str("port", port).Msg("restore skipped")
		}
	}
}

// State snapshots what Restore consumes, for persistence on shutdown.
func (m *Manager) State() map[string]StoredState {
	m.ctrlMu.Lock()
	ports := make([]string, 0, len(m.controllers))
	for port := range m.controllers {
		ports = append(ports, port)
	}
	m.ctrlMu.Unlock()

	out := make(map[string]StoredState, len(ports))
	for _, port := range ports {
		out[port] = StoredState{
			Brightness: m.storedBrightness(port),
			EffectID:   m.activeEffect(port),
		}
	}
	return out
}

// Close stops every runner and releases every controller.
func (m *Manager) Close() {
	m.activeMu.Lock()
	for port, r := range m.runners {
		r.halt()
		delete(m.runners, port)
		delete(m.active, port)
	}
	m.activeMu.Unlock()

	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()
	for port, c := range m.controllers {
		if err := c.Disconnect(); err != nil {
			log.Warn().Err(err).Str("port", port).Msg("disconnect failed")
		}
		delete(m.controllers, port)
	}
}

// reapRunner drops the table entries of a runner that died on its own, so
// the port stops reporting an active effect. Identity is checked: a
// replacement started in the meantime is left alone.
func (m *Manager) reapRunner(r *runner) {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	if m.runners[r.port] != r {
		return
	}
	delete(m.runners, r.port)
	delete(m.active, r.port)
	log.Debug().Str("port", r.port).Str("effect", r.effectID).Msg("dead runner removed")
}

func (m *Manager) controller(port string) (device.Controller, error) {
	m.ctrlMu.Lock()
	defer m.ctrlMu.Unlock()
	c, ok := m.controllers[port]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPortNotFound, port)
	}
	return c, nil
}

func (m *Manager) storedBrightness(port string) uint8 {
	m.brightMu.Lock()
	defer m.brightMu.Unlock()
	if b, ok := m.brightness[port]; ok {
		return b
	}
	return defaultBrightness
}

func (m *Manager) activeEffect(port string) string {
	m.activeMu.Lock()
	defer m.activeMu.Unlock()
	return m.active[port]
}
