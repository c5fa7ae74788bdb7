package renderer

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/math"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

/** @brief Lifecycle and frame events a session fires. */
type EventCode int

const (
	// EventLoaded fires once, after the first successful device creation.
	EventLoaded EventCode = iota
	// EventLost fires before every device destruction.
	EventLost
	// EventRestored fires after every successful device creation, including the first.
	EventRestored
	// EventResizing fires after every successful creation, before EventRestored.
	EventResizing
	// EventRenderPre replaces the default clear when anything subscribes.
	EventRenderPre
	EventRender3D
	// EventRender2D runs after the scene ends. Subscribing requests a lockable back buffer.
	EventRender2D
	eventCodeCount
)

func (c EventCode) String() string {
	switch c {
	case EventLoaded:
		return "loaded"
	case EventLost:
		return "lost"
	case EventRestored:
		return "restored"
	case EventResizing:
		return "resizing"
	case EventRenderPre:
		return "render-pre"
	case EventRender3D:
		return "render-3d"
	case EventRender2D:
		return "render-2d"
	}
	return fmt.Sprintf("EventCode(%d)", int(c))
}

/**
 * @brief Callback subscribed to a session event. Runs on the UI goroutine.
 */
type Listener func(s *Session) error

const (
	DefaultRetryDelay      = 50 * time.Millisecond
	DefaultPresentInterval = 5 * time.Millisecond
	DefaultBackBufferCount = 2
	// DefaultSetupRetryInterval spaces automatic retries after a failed creation.
	DefaultSetupRetryInterval = time.Second
)

type SessionConfig struct {
	FullScreen         bool
	SimulateFullScreen bool
	// BackBufferCount is clamped to 1..2. Zero selects the default.
	BackBufferCount int
	AutoResize      bool
	// RetryDelay is the pause before retrying a failed device creation.
	RetryDelay time.Duration
	// PresentInterval is the pause between two iterations of the present loop.
	PresentInterval time.Duration
	// SetupRetryInterval is the wait before a failed creation is tried again
	// from the frame loop.
	SetupRetryInterval time.Duration
	// Counters receives live-instance counts. A fresh set is used when nil.
	Counters *core.InstanceCounters
	// Sleep replaces time.Sleep, tests use it to skip retry delays.
	Sleep func(time.Duration)
}

/**
 * @brief Owns the single device of a host surface, runs device creation with
 * its fallbacks and tells subscribers when the device goes and comes back.
 */
type Session struct {
	driver   Driver
	host     Host
	counters *core.InstanceCounters
	sleep    func(time.Duration)

	retryDelay         time.Duration
	presentInterval    time.Duration
	setupRetryInterval time.Duration

	listeners [eventCodeCount]*core.Registry[Listener]

	device   Device
	settings metadata.DeviceSettings

	fullScreenRequest  bool
	fullScreenCurrent  bool
	simulateFullScreen bool
	backBufferCount    int
	autoResize         bool
	everSuspended      atomic.Bool

	setUp       bool
	loaded      bool
	inRender    bool
	forceUpdate atomic.Bool
	// set while the last creation left the session without a device
	setupFailed bool
	nextRetry   time.Time

	state drawState
	loop  *Loop
	fps   atomic.Int32

	screenPixel        math.Vec2
	inverseScreenPixel math.Vec2
	viewportSize       math.Vec2

	saved savedScreen
}

func NewSession(config *SessionConfig, driver Driver, host Host, settings metadata.DeviceSettings) (*Session, error) {
	if driver == nil {
		return nil, fmt.Errorf("session requires a driver")
	}
	if host == nil {
		return nil, fmt.Errorf("session requires a host")
	}
	if config == nil {
		config = &SessionConfig{}
	}
	s := &Session{
		driver:             driver,
		host:               host,
		counters:           config.Counters,
		sleep:              config.Sleep,
		retryDelay:         config.RetryDelay,
		presentInterval:    config.PresentInterval,
		setupRetryInterval: config.SetupRetryInterval,
		settings:           settings,
		fullScreenRequest:  config.FullScreen,
		simulateFullScreen: config.SimulateFullScreen,
		autoResize:         config.AutoResize,
	}
	if s.counters == nil {
		s.counters = core.NewInstanceCounters()
	}
	if s.sleep == nil {
		s.sleep = time.Sleep
	}
	if s.retryDelay <= 0 {
		s.retryDelay = DefaultRetryDelay
	}
	if s.presentInterval <= 0 {
		s.presentInterval = DefaultPresentInterval
	}
	if s.setupRetryInterval <= 0 {
		s.setupRetryInterval = DefaultSetupRetryInterval
	}
	s.SetBackBufferCount(config.BackBufferCount)
	if config.BackBufferCount == 0 {
		s.backBufferCount = DefaultBackBufferCount
	}
	for i := range s.listeners {
		s.listeners[i] = core.NewRegistry[Listener]()
	}
	s.state.Store(DrawStateDisabled)
	return s, nil
}

// Subscribe adds a listener. Listeners of one event run in subscription order.
func (s *Session) Subscribe(code EventCode, listener Listener) core.Handle {
	return s.listeners[code].Register(listener)
}

// Unsubscribe removes a listener, returning false if the handle is unknown.
func (s *Session) Unsubscribe(code EventCode, h core.Handle) bool {
	return s.listeners[code].Unregister(h)
}

// Subscribers counts the listeners of an event.
func (s *Session) Subscribers(code EventCode) int {
	return s.listeners[code].Len()
}

/**
 * @brief Runs every listener of code, even after one fails. Errors are joined.
 */
func (s *Session) fire(code EventCode) error {
	var errs []error
	s.listeners[code].Each(func(_ core.Handle, l Listener) bool {
		if err := l(s); err != nil {
			errs = append(errs, err)
		}
		return true
	})
	return errors.Join(errs...)
}

// Device is nil while no usable device exists.
func (s *Session) Device() Device { return s.device }

func (s *Session) Counters() *core.InstanceCounters { return s.counters }

func (s *Session) State() DrawState { return s.state.Load() }

func (s *Session) Host() Host { return s.host }

// DeviceSettings returns a copy of the settings used for the next creation.
func (s *Session) DeviceSettings() metadata.DeviceSettings { return s.settings }

/**
 * @brief Replaces the device settings. The fullscreen request follows the
 * Windowed flag and the device is recreated.
 */
func (s *Session) SetDeviceSettings(settings metadata.DeviceSettings) error {
	s.settings = settings
	if s.fullScreenRequest != !settings.Windowed {
		return s.SetFullScreen(!settings.Windowed)
	}
	return s.ForceDeviceUpdate()
}

// FullScreen reports the requested mode, which may not be applied yet.
func (s *Session) FullScreen() bool { return s.fullScreenRequest }

// SetFullScreen recreates the device when the request changes.
func (s *Session) SetFullScreen(fullScreen bool) error {
	if s.fullScreenRequest == fullScreen {
		return nil
	}
	s.fullScreenRequest = fullScreen
	return s.ForceDeviceUpdate()
}

func (s *Session) SimulateFullScreen() bool { return s.simulateFullScreen }

// SetSimulateFullScreen takes effect on the next device creation.
func (s *Session) SetSimulateFullScreen(simulate bool) { s.simulateFullScreen = simulate }

func (s *Session) BackBufferCount() int { return s.backBufferCount }

// SetBackBufferCount clamps n to 1..2. It takes effect on the next device creation.
func (s *Session) SetBackBufferCount(n int) {
	s.backBufferCount = min(2, max(1, n))
}

func (s *Session) AutoResize() bool { return s.autoResize }

// SetAutoResize keeps the surface sized to the form client area in windowed mode.
func (s *Session) SetAutoResize(autoResize bool) { s.autoResize = autoResize }

/**
 * @brief Recreates the device now if the session is set up and no frame is
 * being produced, otherwise on the next frame. After a failed creation the
 * update always waits for the next frame, without the retry interval.
 */
func (s *Session) ForceDeviceUpdate() error {
	if s.setUp && !s.inRender && !s.setupFailed {
		return s.Setup()
	}
	s.nextRetry = time.Time{}
	s.forceUpdate.Store(true)
	return nil
}

// UpdatePending reports whether a device update waits for the next frame.
func (s *Session) UpdatePending() bool { return s.forceUpdate.Load() }

// retryPending reports a deferred update the present loop must ask a frame for.
func (s *Session) retryPending() bool {
	return s.forceUpdate.Load() && s.state.Load() == DrawStateDisabled
}

/**
 * @brief Records that the machine went to sleep. Windowed devices created
 * afterwards present immediately instead of waiting for vertical sync.
 */
func (s *Session) NotifySuspend() {
	s.everSuspended.Store(true)
}

// FPS is the number of frames presented during the last full second.
func (s *Session) FPS() int { return int(s.fps.Load()) }

// ViewportSize is the viewport of the current device in pixels.
func (s *Session) ViewportSize() math.Vec2 { return s.viewportSize }

// ScreenPixel is the size of one pixel in unit screen coordinates.
func (s *Session) ScreenPixel() math.Vec2 { return s.screenPixel }

// ViewToScreen converts viewport coordinates (mouse) to unit coordinates -1..1.
func (s *Session) ViewToScreen(point math.Vec3) math.Vec3 {
	if s.device == nil {
		return math.Vec3{}
	}
	vp := s.device.Viewport()
	return math.NewVec3(
		point.X/float32(vp.Width)*2-1,
		-(point.Y/float32(vp.Height)*2 - 1),
		0)
}

// ScreenToView converts unit coordinates -1..1 to viewport coordinates.
func (s *Session) ScreenToView(point math.Vec3) math.Vec3 {
	if s.device == nil {
		return math.Vec3{}
	}
	vp := s.device.Viewport()
	return math.NewVec3(
		(point.X+1)*float32(vp.Width)/2,
		(-point.Y+1)*float32(vp.Height)/2,
		0)
}

// ScreenToViewPixel is ScreenToView using the scale computed at the last resize.
func (s *Session) ScreenToViewPixel(screen math.Vec2) math.Vec2 {
	return math.NewVec2((screen.X+1)*s.inverseScreenPixel.X, (-screen.Y+1)*s.inverseScreenPixel.Y)
}

func (s *Session) setDrawStateAfterPresenting(next DrawState) bool {
	if s.loop == nil || !s.loop.started {
		// nobody presents, a pending frame is simply dropped
		if cur := s.state.Load(); cur == DrawStateExit && next != DrawStateExit {
			return false
		}
		s.state.Store(next)
		return true
	}
	return s.state.storeAfterPresenting(next, s.sleep)
}

/**
 * @brief Fires EventLost and closes the device. The draw state must be
 * Disabled or Exit.
 */
func (s *Session) deleteDevice() error {
	if s.device == nil {
		return nil
	}
	core.LogDebug("releasing device (%s)", s.driver.Name())
	err := s.fire(EventLost)
	if cerr := s.device.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	s.device = nil
	return err
}

/**
 * @brief Recomputes the pixel scale from the device viewport and fires
 * EventResizing.
 */
func (s *Session) resizeInternal() error {
	if s.device == nil {
		return nil
	}
	vp := s.device.Viewport()
	w, h := float32(max(vp.Width, 1)), float32(max(vp.Height, 1))
	s.screenPixel = math.NewVec2(2/w, 2/h)
	s.inverseScreenPixel = math.NewVec2(1/s.screenPixel.X, 1/s.screenPixel.Y)
	s.viewportSize = math.NewVec2(w, h)
	return s.fire(EventResizing)
}

/**
 * @brief Stops the present loop, waits for it, then releases the device.
 * The session cannot be set up again.
 */
func (s *Session) Shutdown() error {
	s.setDrawStateAfterPresenting(DrawStateExit)
	if s.loop != nil {
		s.loop.wait()
		s.loop = nil
	}
	if err := s.deleteDevice(); err != nil {
		core.LogError(err.Error())
		return err
	}
	return nil
}
