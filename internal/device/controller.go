package device

// DeviceType is a coarse classification used by the UI layer for grouping.
type DeviceType string

const (
	TypeLedStrip DeviceType = "led_strip"
	TypeMatrix   DeviceType = "matrix"
	TypeLight    DeviceType = "light"
	TypeVirtual  DeviceType = "virtual"
	TypeUnknown  DeviceType = "unknown"
)

// SegmentType describes the layout of a zone or segment.
type SegmentType string

const (
	SegmentSingle SegmentType = "single"
	SegmentLinear SegmentType = "linear"
	SegmentMatrix SegmentType = "matrix"
)

// MatrixMap maps a virtual width*height grid onto physical LED indices.
// Map is row-major with length Width*Height; a cell holding NoLED has no
// physical LED behind it, which is how non-rectangular arrangements
// (perimeter frames, rings) are rendered as a dense grid.
type MatrixMap struct {
	Width  int   `json:"width"`
	Height int   `json:"height"`
	Map    []int `json:"map"`
}

// NoLED marks an empty cell in a MatrixMap.
const NoLED = -1

// DenseMatrixMap builds a full w*h map where cell i drives LED i.
func DenseMatrixMap(w, h int) MatrixMap {
	m := MatrixMap{Width: w, Height: h, Map: make([]int, w*h)}
	for i := range m.Map {
		m.Map[i] = i
	}
	return m
}

// OutputCapabilities records the edit limits for a zone.
type OutputCapabilities struct {
	Editable            bool          `json:"editable"`
	MinTotalLEDs        int           `json:"min_total_leds"`
	MaxTotalLEDs        int           `json:"max_total_leds"`
	AllowedTotalLEDs    []int         `json:"allowed_total_leds,omitempty"`
	AllowedSegmentTypes []SegmentType `json:"allowed_segment_types"`
}

// Zone is one addressable LED sub-range of a controller. A controller
// exposes an ordered list of zones whose LEDCount sum equals its Length.
type Zone struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	OutputType   SegmentType        `json:"output_type"`
	LEDCount     int                `json:"led_count"`
	Matrix       *MatrixMap         `json:"matrix,omitempty"`
	Capabilities OutputCapabilities `json:"capabilities"`
}

// Controller is a live handle to one lighting device. Implementations own
// exactly one transport handle and are identified by PortName within the
// manager. Update must tolerate buffers whose length differs from Length
// (truncate or pad as the protocol requires) and must surface transport
// failures as errors rather than panicking. Callers must not assume Update
// is non-blocking.
type Controller interface {
	PortName() string
	Model() string
	Description() string
	SerialID() string

	// Length is the total addressable LED count (sum of zone LED counts).
	Length() int
	DeviceType() DeviceType
	Zones() []Zone

	// VirtualLayout reports the logical grid effects render into.
	// Non-matrix devices report (Length, 1).
	VirtualLayout() (width, height int)

	Update(colors []Color) error
	Clear() error
	Disconnect() error
}

// ZonesLength sums the LED counts of zones.
func ZonesLength(zones []Zone) int {
	n := 0
	for _, z := range zones {
		n += z.LEDCount
	}
	return n
}

// ClearController writes an all-black frame of the controller's full length.
// Families without a dedicated clear command use this as their Clear.
func ClearController(c Controller) error {
	n := c.Length()
	if n < 1 {
		n = 1
	}
	return c.Update(make([]Color, n))
}

// LinearLayout is the VirtualLayout of any non-matrix controller.
func LinearLayout(length int) (int, int) { return length, 1 }
