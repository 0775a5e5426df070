package device

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Registry is the process-wide catalog of controller drivers and effect
// families. All registration happens at start-up, before any other call;
// entries are never removed.
type Registry struct {
	drivers []ControllerInfo
	effects map[string]EffectInfo
	order   []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{effects: map[string]EffectInfo{}}
}

// RegisterController adds one hardware family.
func (r *Registry) RegisterController(info ControllerInfo) {
	if info.Probe == nil {
		return
	}
	r.drivers = append(r.drivers, info)
}

// RegisterEffect adds one effect family. A duplicate id replaces the earlier
// entry without changing list order.
func (r *Registry) RegisterEffect(info EffectInfo) {
	if info.ID == "" || info.New == nil {
		return
	}
	if _, ok := r.effects[info.ID]; !ok {
		r.order = append(r.order, info.ID)
	}
	r.effects[info.ID] = info
}

// ControllerDrivers lists the registered hardware families.
func (r *Registry) ControllerDrivers() []ControllerInfo {
	out := make([]ControllerInfo, len(r.drivers))
	copy(out, r.drivers)
	return out
}

// Effects lists registered effect families in registration order.
func (r *Registry) Effects() []EffectInfo {
	out := make([]EffectInfo, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.effects[id])
	}
	return out
}

// EffectInfoByID looks up one effect family.
func (r *Registry) EffectInfoByID(id string) (EffectInfo, bool) {
	info, ok := r.effects[id]
	return info, ok
}

// ProbeControllers asks every driver for live hardware and concatenates the
// results. A driver that finds nothing (or fails internally) contributes
// zero controllers and does not stop the scan of the remaining drivers.
// Order within one driver follows the transport's enumeration order.
func (r *Registry) ProbeControllers() []Controller {
	var found []Controller
	for _, d := range r.drivers {
		log.Debug().Str("driver", d.Name).Msg("probing controller driver")
		got := d.Probe()
		log.Debug().Str("driver", d.Name).Int("found", len(got)).Msg("probe finished")
		found = append(found, got...)
	}
	return found
}

// NewEffect instantiates a fresh effect by id.
func (r *Registry) NewEffect(id string) (Effect, error) {
	info, ok := r.effects[id]
	if !ok {
		return nil, fmt.Errorf("effect %q not found", id)
	}
	return info.New(), nil
}
