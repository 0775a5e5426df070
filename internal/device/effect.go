package device

import (
	"encoding/json"
	"time"
)

// Effect fills a color buffer once per tick. Implementations keep only
// in-memory animation state and are created fresh for every activation.
//
// Tick must treat an empty buffer as a no-op. UpdateParams merges recognized
// keys from a JSON object and silently ignores unknown or malformed fields.
// Effects that hold a shared capture handle additionally implement io.Closer
// and release the handle there; the runner closes them on stop.
type Effect interface {
	ID() string
	Name() string
	Tick(elapsed time.Duration, buffer []Color)

	// Resize informs layout-aware effects of the logical grid. Effects that
	// render purely by buffer index may ignore it.
	Resize(width, height int)

	UpdateParams(params json.RawMessage)
}

// ParamKind enumerates the widget kinds the UI layer renders for a
// parameter.
type ParamKind string

const (
	ParamSlider ParamKind = "slider"
	ParamToggle ParamKind = "toggle"
	ParamColor  ParamKind = "color"
	ParamSelect ParamKind = "select"
)

// SelectOption is one choice of a select parameter.
type SelectOption struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// ParamDependency describes when a parameter is shown, based on the value of
// another parameter of the same effect.
type ParamDependency struct {
	Key       string   `json:"key"`
	Equals    *float64 `json:"equals,omitempty"`
	NotEquals *float64 `json:"not_equals,omitempty"`
	// Hide removes the parameter from the UI when the condition fails;
	// otherwise it is shown disabled.
	Hide bool `json:"hide"`
}

// Param is a declarative description of one effect parameter. It is consumed
// only by the UI layer; effects read their parameters from UpdateParams.
type Param struct {
	Key   string    `json:"key"`
	Label string    `json:"label"`
	Kind  ParamKind `json:"kind"`

	// Slider fields.
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Step float64 `json:"step,omitempty"`

	// Default holds the slider/select/toggle/color default, depending on Kind.
	Default any `json:"default,omitempty"`

	// Options holds static select choices. LoadOptions, when set, loads them
	// dynamically at list time instead.
	Options     []SelectOption                 `json:"options,omitempty"`
	LoadOptions func() ([]SelectOption, error) `json:"-"`

	Dependency *ParamDependency `json:"dependency,omitempty"`
}

// EffectInfo is the immutable registration record for one effect family.
type EffectInfo struct {
	ID          string
	Name        string
	Description string
	Group       string
	Icon        string
	Params      []Param
	New         func() Effect
}

// DefaultParams returns the declared default for every parameter, keyed by
// parameter key.
func (e EffectInfo) DefaultParams() map[string]any {
	out := make(map[string]any, len(e.Params))
	for _, p := range e.Params {
		if p.Default != nil {
			out[p.Key] = p.Default
		}
	}
	return out
}

// ControllerInfo is the immutable registration record for one hardware
// family. Probe enumerates live hardware; it is best-effort and returns only
// the controllers it could open.
type ControllerInfo struct {
	Name        string
	Description string
	Probe       func() []Controller
}
