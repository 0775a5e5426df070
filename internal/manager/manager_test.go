package manager

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumisync/lumisync/internal/device"
)

// fakeController records every frame and watches for interleaved writers.
type fakeController struct {
	port   string
	length int

	mu          sync.Mutex
	frames      [][]device.Color
	writing     bool
	interleaved bool
	failWrites  bool
	clears      int
	disconnects int
}

func (f *fakeController) PortName() string              { return f.port }
func (f *fakeController) Model() string                 { return "Fake" }
func (f *fakeController) Description() string           { return "test device" }
func (f *fakeController) SerialID() string              { return "0000" }
func (f *fakeController) Length() int                   { return f.length }
func (f *fakeController) DeviceType() device.DeviceType { return device.TypeVirtual }
func (f *fakeController) Zones() []device.Zone          { return nil }
func (f *fakeController) VirtualLayout() (int, int)     { return device.LinearLayout(f.length) }

func (f *fakeController) Update(colors []device.Color) error {
	f.mu.Lock()
	if f.writing {
		f.interleaved = true
	}
	f.writing = true
	fail := f.failWrites
	frame := make([]device.Color, len(colors))
	copy(frame, colors)
	f.frames = append(f.frames, frame)
	f.writing = false
	f.mu.Unlock()

	if fail {
		return errors.New("transport gone")
	}
	return nil
}

func (f *fakeController) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

func (f *fakeController) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeController) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeController) lastFrame() []device.Color {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return nil
	}
	return f.frames[len(f.frames)-1]
}

// fillEffect paints a constant color and remembers parameter payloads.
type fillEffect struct {
	id    string
	color device.Color

	mu     sync.Mutex
	params []json.RawMessage
	closed bool
}

func (e *fillEffect) ID() string   { return e.id }
func (e *fillEffect) Name() string { return e.id }

func (e *fillEffect) Tick(_ time.Duration, buffer []device.Color) {
	for i := range buffer {
		buffer[i] = e.color
	}
}

func (e *fillEffect) Resize(int, int) {}

func (e *fillEffect) UpdateParams(raw json.RawMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = append(e.params, raw)
}

func (e *fillEffect) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func newTestManager(ctrl *fakeController, effects ...*fillEffect) *Manager {
	reg := device.NewRegistry()
	reg.RegisterController(device.ControllerInfo{
		Name:  "fake",
		Probe: func() []device.Controller { return []device.Controller{ctrl} },
	})
	for _, e := range effects {
		e := e
		reg.RegisterEffect(device.EffectInfo{
			ID:  e.id,
			New: func() device.Effect { return e },
		})
	}
	return New(reg)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestStartEffectUnknownPort(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 4}
	m := newTestManager(ctrl, &fillEffect{id: "solid", color: device.Color{R: 255}})
	defer m.Close()
	m.ScanDevices()

	err := m.StartEffect("nope", "solid")
	assert.ErrorIs(t, err, ErrPortNotFound)
	assert.Zero(t, ctrl.frameCount())
}

func TestStartEffectUnknownEffectKeepsCurrent(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 4}
	m := newTestManager(ctrl, &fillEffect{id: "solid", color: device.Color{R: 255}})
	defer m.Close()
	m.ScanDevices()

	require.NoError(t, m.StartEffect("p1", "solid"))
	waitFor(t, func() bool { return ctrl.frameCount() > 0 })

	err := m.StartEffect("p1", "bogus")
	assert.ErrorIs(t, err, ErrEffectNotFound)

	before := ctrl.frameCount()
	waitFor(t, func() bool { return ctrl.frameCount() > before })
}

func TestReplaceLeavesOneRunner(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 2}
	a := &fillEffect{id: "a", color: device.Color{R: 255}}
	b := &fillEffect{id: "b", color: device.Color{G: 255}}
	m := newTestManager(ctrl, a, b)
	defer m.Close()
	m.ScanDevices()

	require.NoError(t, m.StartEffect("p1", "a"))
	waitFor(t, func() bool { return ctrl.frameCount() > 2 })
	require.NoError(t, m.StartEffect("p1", "b"))

	// every frame after the switch belongs to b
	mark := ctrl.frameCount()
	waitFor(t, func() bool { return ctrl.frameCount() > mark+2 })

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	for _, frame := range ctrl.frames[mark:] {
		assert.Equal(t, device.Color{G: 255}, frame[0])
	}
	assert.False(t, ctrl.interleaved, "two runners wrote concurrently")

	a.mu.Lock()
	assert.True(t, a.closed, "replaced effect must be released")
	a.mu.Unlock()
}

func TestBrightnessSeedsNewEffect(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 1}
	m := newTestManager(ctrl, &fillEffect{id: "solid", color: device.Color{R: 255, G: 100, B: 10}})
	defer m.Close()
	m.ScanDevices()

	require.NoError(t, m.SetBrightness("p1", 50))
	require.NoError(t, m.StartEffect("p1", "solid"))
	waitFor(t, func() bool { return ctrl.frameCount() > 0 })

	assert.Equal(t, device.Color{R: 127, G: 50, B: 5}, ctrl.lastFrame()[0])
}

func TestSetBrightnessPushesLive(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 1}
	m := newTestManager(ctrl, &fillEffect{id: "solid", color: device.Color{R: 200}})
	defer m.Close()
	m.ScanDevices()

	require.NoError(t, m.StartEffect("p1", "solid"))
	waitFor(t, func() bool { return ctrl.frameCount() > 0 })
	assert.Equal(t, device.Color{R: 200}, ctrl.lastFrame()[0])

	require.NoError(t, m.SetBrightness("p1", 0))
	waitFor(t, func() bool { return ctrl.lastFrame()[0] == (device.Color{}) })
}

func TestScanIsAdditiveAndIdempotent(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 4}
	m := newTestManager(ctrl, &fillEffect{id: "solid", color: device.Color{R: 1}})
	defer m.Close()

	first := m.ScanDevices()
	second := m.ScanDevices()

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "p1", second[0].Port)
	// the rediscovered duplicate handle was released, the original kept
	assert.Equal(t, 1, ctrl.disconnects)
}

func TestUpdateEffectParams(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 2}
	eff := &fillEffect{id: "solid", color: device.Color{R: 9}}
	m := newTestManager(ctrl, eff)
	defer m.Close()
	m.ScanDevices()

	err := m.UpdateEffectParams("p1", []byte(`{"x":1}`))
	assert.ErrorIs(t, err, ErrNoActiveEffect)

	require.NoError(t, m.StartEffect("p1", "solid"))
	require.NoError(t, m.UpdateEffectParams("p1", []byte(`{"x":1}`)))

	eff.mu.Lock()
	defer eff.mu.Unlock()
	require.Len(t, eff.params, 1)
	assert.JSONEq(t, `{"x":1}`, string(eff.params[0]))
}

func TestStopEffectClears(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 2}
	m := newTestManager(ctrl, &fillEffect{id: "solid", color: device.Color{R: 9}})
	defer m.Close()
	m.ScanDevices()

	require.NoError(t, m.StartEffect("p1", "solid"))
	waitFor(t, func() bool { return ctrl.frameCount() > 0 })
	require.NoError(t, m.StopEffect("p1"))

	ctrl.mu.Lock()
	clears := ctrl.clears
	ctrl.mu.Unlock()
	assert.Equal(t, 1, clears)

	// no more frames after stop returned
	n := ctrl.frameCount()
	time.Sleep(5 * tickInterval)
	assert.Equal(t, n, ctrl.frameCount())

	devs := m.Devices()
	require.Len(t, devs, 1)
	assert.Empty(t, devs[0].CurrentEffectID)
}

func TestWriteFailureStopsRunnerKeepsDevice(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 2, failWrites: true}
	m := newTestManager(ctrl, &fillEffect{id: "solid", color: device.Color{R: 9}})
	defer m.Close()
	m.ScanDevices()

	require.NoError(t, m.StartEffect("p1", "solid"))
	waitFor(t, func() bool { return ctrl.frameCount() == 1 })

	time.Sleep(5 * tickInterval)
	assert.Equal(t, 1, ctrl.frameCount(), "runner must stop after the first failed write")

	// the dead runner leaves the tables: the port reports nothing active
	waitFor(t, func() bool {
		devs := m.Devices()
		return len(devs) == 1 && devs[0].CurrentEffectID == ""
	})
	err := m.UpdateEffectParams("p1", []byte(`{"x":1}`))
	assert.ErrorIs(t, err, ErrNoActiveEffect)

	// the device entry survives, so a retry is possible
	ctrl.mu.Lock()
	ctrl.failWrites = false
	ctrl.mu.Unlock()
	require.NoError(t, m.StartEffect("p1", "solid"))
	waitFor(t, func() bool { return ctrl.frameCount() > 1 })
}

func TestRestoreSeedsStateAndStartsEffect(t *testing.T) {
	ctrl := &fakeController{port: "p1", length: 1}
	m := newTestManager(ctrl, &fillEffect{id: "solid", color: device.Color{R: 100}})
	defer m.Close()
	m.ScanDevices()

	m.Restore(map[string]StoredState{
		"p1":   {Brightness: 10, EffectID: "solid"},
		"gone": {Brightness: 70, EffectID: "solid"},
	})

	waitFor(t, func() bool { return ctrl.frameCount() > 0 })
	assert.Equal(t, device.Color{R: 10}, ctrl.lastFrame()[0])

	devs := m.Devices()
	require.Len(t, devs, 1)
	assert.Equal(t, "solid", devs[0].CurrentEffectID)
	assert.Equal(t, uint8(10), devs[0].Brightness)
}
