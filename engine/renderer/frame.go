package renderer

import (
	"errors"
	"time"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

/**
 * @brief Produces one frame on the UI goroutine. Calls made while a frame
 * is already being produced return immediately.
 */
func (s *Session) RenderFrame() error {
	if s.inRender {
		return nil
	}
	s.inRender = true
	defer func() { s.inRender = false }()
	return s.renderControl()
}

func (s *Session) renderControl() error {
	state := s.state.Load()
	if state == DrawStateExit {
		return nil
	}

	if s.forceUpdate.Load() {
		if s.setupFailed && time.Now().Before(s.nextRetry) {
			return nil
		}
		s.forceUpdate.Store(false)
		if err := s.Setup(); err != nil {
			return err
		}
		state = s.state.Load()
	}

	if state == DrawStateDeviceLost {
		var err error
		if state, err = s.probeLostDevice(); err != nil {
			return err
		}
	}

	if state != DrawStateReadyToDraw {
		return nil
	}

	if s.autoResize && !s.fullScreenCurrent {
		s.fitSurfaceToClient()
	}

	if s.fullScreenCurrent && !s.host.SurfaceFocused() {
		s.host.FocusSurface()
	}

	device := s.device
	if s.listeners[EventRenderPre].Len() == 0 {
		if err := device.Clear(metadata.ClearTarget|metadata.ClearZBuffer, s.settings.BackColor, 1.0, 0); err != nil {
			return err
		}
	} else if err := s.fire(EventRenderPre); err != nil {
		return err
	}

	if err := device.BeginScene(); err != nil {
		return err
	}
	errs := []error{s.fire(EventRender3D)}
	errs = append(errs, device.EndScene())
	errs = append(errs, s.fire(EventRender2D))

	// the present goroutine takes it from here
	s.state.CompareAndSwap(DrawStateReadyToDraw, DrawStateReadyToPresent)
	return errors.Join(errs...)
}

/**
 * @brief Checks whether a device that failed to present can be used again.
 * A device that is still lost skips the frame; one that needs a reset, or
 * is gone, is recreated.
 */
func (s *Session) probeLostDevice() (DrawState, error) {
	if s.device == nil {
		err := s.Setup()
		return s.state.Load(), err
	}
	switch status := s.device.TestCooperativeLevel(); status {
	case metadata.DeviceStatusLost:
		return DrawStateDeviceLost, nil
	case metadata.DeviceStatusOK:
		core.LogDebug("device usable again")
		s.state.CompareAndSwap(DrawStateDeviceLost, DrawStateReadyToDraw)
		return s.state.Load(), nil
	default:
		core.LogWarn("device %s, recreating", status)
		err := s.Setup()
		return s.state.Load(), err
	}
}

/**
 * @brief Moves the surface to the top left corner of the form and sizes it
 * to the client area. A new size needs a new back buffer, so the device is
 * recreated on the next frame.
 */
func (s *Session) fitSurfaceToClient() {
	bounds := s.host.SurfaceBounds()
	client := s.host.ClientSize()
	if bounds.X == 0 && bounds.Y == 0 && bounds.Size() == client {
		return
	}
	next := metadata.Rect{Width: bounds.Width, Height: bounds.Height}
	if !client.Empty() {
		next.Width, next.Height = client.Width, client.Height
	}
	s.host.SetSurfaceBounds(next)
	if s.host.SurfaceBounds().Size() != bounds.Size() {
		s.forceUpdate.Store(true)
	}
}
