package renderer_test

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/math"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
	"github.com/spaghettifunk/rekindle/engine/renderer/software"
)

func init() {
	core.SetLogOutput(io.Discard)
}

type fixture struct {
	session *renderer.Session
	driver  *software.Driver
	host    *renderer.HeadlessHost
	sleeps  []time.Duration
}

func newFixture(t *testing.T, config renderer.SessionConfig, driverConfig software.Config) *fixture {
	t.Helper()
	f := &fixture{
		driver: software.New(driverConfig),
		host:   renderer.NewHeadlessHost(640, 480),
	}
	if config.Sleep == nil {
		config.Sleep = func(d time.Duration) { f.sleeps = append(f.sleeps, d) }
	}
	session, err := renderer.NewSession(&config, f.driver, f.host, metadata.DefaultDeviceSettings())
	require.NoError(t, err)
	f.session = session
	return f
}

func outOfMemory(int, metadata.PresentParameters) error {
	return fmt.Errorf("create: %w", core.ErrOutOfVideoMemory)
}

func TestNewSessionRequiresDriverAndHost(t *testing.T) {
	_, err := renderer.NewSession(nil, nil, renderer.NewHeadlessHost(1, 1), metadata.DefaultDeviceSettings())
	assert.Error(t, err)
	_, err = renderer.NewSession(nil, software.New(software.Config{}), nil, metadata.DefaultDeviceSettings())
	assert.Error(t, err)
}

func TestSessionDefaults(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	s := f.session
	assert.Equal(t, renderer.DefaultBackBufferCount, s.BackBufferCount())
	assert.Equal(t, renderer.DrawStateDisabled, s.State())
	assert.Nil(t, s.Device())

	s.SetBackBufferCount(5)
	assert.Equal(t, 2, s.BackBufferCount())
	s.SetBackBufferCount(0)
	assert.Equal(t, 1, s.BackBufferCount())
}

func TestSetupCreatesWindowedDevice(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	require.NoError(t, f.session.Setup())

	assert.Equal(t, renderer.DrawStateReadyToDraw, f.session.State())
	attempts := f.driver.Attempts()
	require.Len(t, attempts, 1)
	params := attempts[0].Params
	assert.True(t, params.Windowed)
	assert.Equal(t, 640, params.BackBufferWidth)
	assert.Equal(t, 480, params.BackBufferHeight)
	assert.Equal(t, 2, params.BackBufferCount)
	assert.Equal(t, metadata.PresentIntervalOne, params.PresentInterval)
	assert.Equal(t, metadata.SwapEffectDiscard, params.SwapEffect)
	assert.True(t, params.EnableAutoDepthStencil)
	assert.Equal(t, metadata.FormatD16, params.AutoDepthStencilFormat)
	assert.Zero(t, params.Flags&metadata.PresentFlagLockableBackBuffer)
	assert.Equal(t, metadata.CreateHardwareVertexProcessing, attempts[0].Flags)

	// the fresh device was cleared once
	assert.Equal(t, 1, f.driver.Last().Clears())
	assert.Empty(t, f.sleeps)
	assert.False(t, f.host.CoverShown())
}

func TestSetupEventsOrder(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	var events []string
	for _, code := range []renderer.EventCode{renderer.EventLoaded, renderer.EventLost, renderer.EventRestored, renderer.EventResizing} {
		code := code
		f.session.Subscribe(code, func(s *renderer.Session) error {
			events = append(events, code.String())
			return nil
		})
	}

	require.NoError(t, f.session.Setup())
	assert.Equal(t, []string{"resizing", "loaded", "restored"}, events)

	events = nil
	require.NoError(t, f.session.ForceDeviceUpdate())
	assert.Equal(t, []string{"lost", "resizing", "restored"}, events)
	assert.True(t, f.driver.Devices()[0].Closed())
}

func TestSetupListenerErrorsAreJoined(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	first := errors.New("first")
	second := errors.New("second")
	f.session.Subscribe(renderer.EventRestored, func(*renderer.Session) error { return first })
	f.session.Subscribe(renderer.EventRestored, func(*renderer.Session) error { return second })

	err := f.session.Setup()
	assert.ErrorIs(t, err, core.ErrRestoreIncomplete)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, renderer.DrawStateReadyToDraw, f.session.State())
	assert.NotNil(t, f.session.Device())
}

func TestCreationRetriesTransientFailure(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{RetryDelay: 7 * time.Millisecond}, software.Config{})
	f.driver.OnCreate = func(attempt int, _ metadata.PresentParameters) error {
		if attempt == 0 {
			return errors.New("device busy")
		}
		return nil
	}

	require.NoError(t, f.session.Setup())
	assert.Len(t, f.driver.Attempts(), 2)
	assert.Equal(t, []time.Duration{7 * time.Millisecond}, f.sleeps)
}

func TestCreationFallbacksOnOutOfMemory(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{FullScreen: true}, software.Config{})
	f.driver.OnCreate = outOfMemory

	err := f.session.Setup()
	var creationErr *core.DeviceCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.True(t, creationErr.OutOfMemory)
	assert.Equal(t, 4, creationErr.Attempts)
	assert.ErrorIs(t, err, core.ErrOutOfVideoMemory)

	attempts := f.driver.Attempts()
	require.Len(t, attempts, 4)
	type step struct {
		backBuffers int
		windowed    bool
	}
	var got []step
	for _, a := range attempts {
		got = append(got, step{a.Params.BackBufferCount, a.Params.Windowed})
	}
	assert.Equal(t, []step{{2, false}, {1, false}, {1, true}, {1, true}}, got)
	assert.Equal(t, 1024, attempts[0].Params.BackBufferWidth)
	assert.Equal(t, []time.Duration{renderer.DefaultRetryDelay}, f.sleeps)

	// the session falls back to windowed mode without a device
	assert.False(t, f.session.FullScreen())
	assert.Nil(t, f.session.Device())
	assert.Equal(t, renderer.DrawStateDisabled, f.session.State())
}

func TestCreationDropsBackBufferFirst(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	f.driver.OnCreate = func(attempt int, p metadata.PresentParameters) error {
		if p.BackBufferCount > 1 {
			return outOfMemory(attempt, p)
		}
		return nil
	}

	require.NoError(t, f.session.Setup())
	assert.Len(t, f.driver.Attempts(), 2)
	assert.Equal(t, 1, f.session.BackBufferCount())
	assert.False(t, f.session.SimulateFullScreen())
}

func TestCreationSkipsStepsAlreadyApplied(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{BackBufferCount: 1, SimulateFullScreen: true}, software.Config{})
	f.driver.OnCreate = outOfMemory

	err := f.session.Setup()
	var creationErr *core.DeviceCreationError
	require.ErrorAs(t, err, &creationErr)
	assert.Equal(t, 2, creationErr.Attempts)
}

func TestCreationFailsOnClear(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	f.driver.OnClear = func(d *software.Device) error {
		if len(f.driver.Devices()) == 1 {
			return errors.New("clear failed")
		}
		return nil
	}

	require.NoError(t, f.session.Setup())
	devices := f.driver.Devices()
	require.Len(t, devices, 2)
	assert.True(t, devices[0].Closed())
	assert.Same(t, devices[1], f.session.Device())
}

func TestNullReferenceDeviceIsRejected(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{
		DeviceType:  metadata.DeviceTypeNullReference,
		AdapterName: "null adapter",
	})

	err := f.session.Setup()
	var unsupported *core.UnsupportedDeviceError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "null adapter", unsupported.Device)
	assert.Nil(t, f.session.Device())
	assert.True(t, f.driver.Last().Closed())
}

func TestInvalidVertexProcessing(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	settings := metadata.DefaultDeviceSettings()
	settings.VertexProcessing = metadata.VertexProcessing(99)
	require.NoError(t, f.session.SetDeviceSettings(settings))

	err := f.session.Setup()
	assert.ErrorIs(t, err, core.ErrInvalidVertexProcessing)
	assert.Empty(t, f.driver.Attempts())
}

func TestRender2DRequestsLockableBackBuffer(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	f.session.Subscribe(renderer.EventRender2D, func(*renderer.Session) error { return nil })
	require.NoError(t, f.session.Setup())
	assert.NotZero(t, f.driver.Last().PresentParameters().Flags&metadata.PresentFlagLockableBackBuffer)
}

func TestSuspendSelectsImmediatePresent(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	f.session.NotifySuspend()
	require.NoError(t, f.session.Setup())
	assert.Equal(t, metadata.PresentIntervalImmediate, f.driver.Last().PresentParameters().PresentInterval)
}

func TestForceDeviceUpdateBeforeSetupIsDeferred(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	require.NoError(t, f.session.ForceDeviceUpdate())
	assert.True(t, f.session.UpdatePending())
	assert.Empty(t, f.driver.Attempts())

	require.NoError(t, f.session.RenderFrame())
	assert.False(t, f.session.UpdatePending())
	assert.NotNil(t, f.session.Device())
}

func TestScreenCoordinates(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	assert.Equal(t, math.Vec3{}, f.session.ViewToScreen(math.NewVec3(1, 1, 0)))
	require.NoError(t, f.session.Setup())

	assert.Equal(t, math.NewVec2(640, 480), f.session.ViewportSize())
	assert.InDelta(t, 2.0/640, f.session.ScreenPixel().X, 1e-7)

	center := f.session.ViewToScreen(math.NewVec3(320, 240, 0))
	assert.InDelta(t, 0, center.X, 1e-6)
	assert.InDelta(t, 0, center.Y, 1e-6)
	corner := f.session.ViewToScreen(math.NewVec3(0, 0, 0))
	assert.Equal(t, math.NewVec3(-1, 1, 0), corner)

	back := f.session.ScreenToView(math.NewVec3(1, -1, 0))
	assert.Equal(t, math.NewVec3(640, 480, 0), back)
	pixel := f.session.ScreenToViewPixel(math.NewVec2(-1, 1))
	assert.InDelta(t, 0, pixel.X, 1e-4)
	assert.InDelta(t, 0, pixel.Y, 1e-4)
}

func TestShutdownClosesSession(t *testing.T) {
	f := newFixture(t, renderer.SessionConfig{}, software.Config{})
	require.NoError(t, f.session.Setup())
	lost := 0
	f.session.Subscribe(renderer.EventLost, func(*renderer.Session) error { lost++; return nil })

	require.NoError(t, f.session.Shutdown())
	assert.Equal(t, 1, lost)
	assert.Equal(t, renderer.DrawStateExit, f.session.State())
	assert.Nil(t, f.session.Device())
	assert.ErrorIs(t, f.session.Setup(), core.ErrSessionClosed)
	assert.NoError(t, f.session.RenderFrame())
	assert.Equal(t, int64(0), f.driver.UsedVideoMemory())
}
