package renderer

import (
	"errors"
	"fmt"
	"time"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

type createResult int

const (
	createOK createResult = iota
	createOutOfMemory
	createFailed
)

func (r createResult) String() string {
	switch r {
	case createOK:
		return "ok"
	case createOutOfMemory:
		return "out of video memory"
	}
	return "failed"
}

/**
 * @brief One device creation attempt. applies decides from the previous
 * attempt whether the step runs; prepare changes the parameters first.
 */
type creationStep struct {
	name    string
	applies func(s *Session, last createResult) bool
	prepare func(s *Session)
	delay   bool
}

/**
 * @brief Device creation fallbacks, in order. A transient failure is retried
 * as is; running out of video memory first drops the second back buffer,
 * then falls back to a window covering the screen.
 */
var creationSteps = []creationStep{
	{
		name:    "initial",
		applies: func(*Session, createResult) bool { return true },
	},
	{
		name:    "retry",
		applies: func(_ *Session, last createResult) bool { return last == createFailed },
		delay:   true,
	},
	{
		name: "single back buffer",
		applies: func(s *Session, last createResult) bool {
			return last == createOutOfMemory && s.backBufferCount >= 2
		},
		prepare: func(s *Session) { s.backBufferCount = 1 },
	},
	{
		name: "simulated fullscreen",
		applies: func(s *Session, last createResult) bool {
			return last == createOutOfMemory && !s.simulateFullScreen
		},
		prepare: func(s *Session) { s.simulateFullScreen = true },
	},
	{
		name:    "final retry",
		applies: func(_ *Session, last createResult) bool { return last != createOK },
		delay:   true,
	},
}

func classifyCreateError(err error) createResult {
	switch {
	case err == nil:
		return createOK
	case errors.Is(err, core.ErrOutOfVideoMemory):
		return createOutOfMemory
	}
	return createFailed
}

type creationOutcome struct {
	device   Device
	result   createResult
	err      error
	attempts int
}

/**
 * @brief Runs the creation steps until one yields a device. The outcome
 * carries the result and error of the last attempt.
 */
func (s *Session) runCreationSteps() creationOutcome {
	out := creationOutcome{result: createFailed}
	for _, step := range creationSteps {
		if out.attempts > 0 && !step.applies(s, out.result) {
			continue
		}
		if step.prepare != nil {
			step.prepare(s)
		}
		if step.delay {
			s.sleep(s.retryDelay)
		}
		out.attempts++
		out.device, out.err = s.createDevice()
		out.result = classifyCreateError(out.err)
		if out.result == createOK {
			core.LogDebug("device created on step %q (%d back buffers, simulated fullscreen %t)", step.name, s.backBufferCount, s.simulateFullScreen)
			return out
		}
		core.LogDebug("device creation step %q: %s: %v", step.name, out.result, out.err)
	}
	return out
}

/**
 * @brief A single device creation attempt with the current parameters. The
 * device is cleared once so a device that fails on first use is caught here.
 */
func (s *Session) createDevice() (Device, error) {
	st := s.settings
	params := metadata.PresentParameters{
		Windowed:               !s.fullScreenRequest || s.simulateFullScreen,
		MultisampleType:        st.MultisampleType,
		MultisampleQuality:     st.MultisampleQuality,
		SwapEffect:             metadata.SwapEffectDiscard,
		EnableAutoDepthStencil: st.UsesDepthBuffer,
		BackBufferFormat:       st.BackBufferFormat,
		BackBufferCount:        s.backBufferCount,
	}
	if st.UsesDepthBuffer {
		params.AutoDepthStencilFormat = st.DepthStencilFormat
	}
	if s.listeners[EventRender2D].Len() > 0 {
		params.Flags = metadata.PresentFlagLockableBackBuffer
	}
	if params.Windowed {
		size := s.host.SurfaceBounds().Size()
		params.BackBufferWidth = size.Width
		params.BackBufferHeight = size.Height
		params.PresentInterval = metadata.PresentIntervalOne
		if s.everSuspended.Load() {
			params.PresentInterval = metadata.PresentIntervalImmediate
		}
	} else {
		params.BackBufferWidth = st.DisplayMode.Width
		params.BackBufferHeight = st.DisplayMode.Height
		params.PresentInterval = metadata.PresentIntervalOne
	}

	flags, err := st.VertexProcessing.CreateFlags()
	if err != nil {
		return nil, err
	}
	device, err := s.driver.CreateDevice(st, flags, params)
	if err != nil {
		return nil, err
	}
	if err := device.Clear(metadata.ClearTarget|metadata.ClearZBuffer, st.BackColor, 1.0, 0); err != nil {
		_ = device.Close()
		return nil, err
	}
	return device, nil
}

/**
 * @brief Destroys the current device and creates a new one, trying the
 * fallbacks of creationSteps in order. Subscribers see EventLost before the
 * old device goes away and EventResizing, EventLoaded (first time only) and
 * EventRestored once the new device exists.
 *
 * A *core.DeviceCreationError is returned when every attempt failed and a
 * *core.UnsupportedDeviceError when only a null reference device could be
 * created; in both cases the session falls back to windowed mode and has no
 * device. Listener failures after a successful creation are returned
 * wrapped in core.ErrRestoreIncomplete, the session is ready to draw anyway.
 */
func (s *Session) Setup() error {
	if s.state.Load() == DrawStateExit {
		return core.ErrSessionClosed
	}
	s.setUp = true
	if !s.setDrawStateAfterPresenting(DrawStateDisabled) {
		return core.ErrSessionClosed
	}

	cover := s.fullScreenCurrent || s.fullScreenRequest
	if cover {
		s.host.ShowCover()
	}

	if err := s.deleteDevice(); err != nil {
		core.LogWarn("releasing the previous device: %v", err)
	}
	s.applyScreenParameters()

	s.settings.Windowed = !s.fullScreenRequest
	out := s.runCreationSteps()
	device := out.device

	if cover {
		s.host.HideCover()
	}

	if device == nil {
		s.fullScreenRequest = false
		s.applyScreenParameters()
		err := &core.DeviceCreationError{
			OutOfMemory: out.result == createOutOfMemory,
			Attempts:    out.attempts,
			Err:         out.err,
		}
		core.LogError(err.Error())
		// the frame loop tries again once the interval has passed
		s.setupFailed = true
		s.nextRetry = time.Now().Add(s.setupRetryInterval)
		s.forceUpdate.Store(true)
		return err
	}

	if caps := device.Caps(); caps.DeviceType == metadata.DeviceTypeNullReference {
		_ = device.Close()
		s.fullScreenRequest = false
		s.applyScreenParameters()
		err := &core.UnsupportedDeviceError{Device: caps.AdapterName}
		core.LogError(err.Error())
		s.setupFailed = true
		return err
	}

	s.device = device
	s.setupFailed = false
	s.forceUpdate.Store(false)
	var errs []error
	if err := s.resizeInternal(); err != nil {
		errs = append(errs, err)
	}
	if !s.loaded {
		if err := s.fire(EventLoaded); err != nil {
			errs = append(errs, err)
		}
	}
	s.loaded = true
	if err := s.fire(EventRestored); err != nil {
		errs = append(errs, err)
	}

	s.state.Store(DrawStateReadyToDraw)
	core.LogDebug("device ready: %s, %d attempt(s), windowed %t", s.driver.Name(), out.attempts, device.PresentParameters().Windowed)

	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", core.ErrRestoreIncomplete, errors.Join(errs...))
		core.LogError(err.Error())
		return err
	}
	return nil
}
