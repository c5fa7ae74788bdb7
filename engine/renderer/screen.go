package renderer

import "github.com/spaghettifunk/rekindle/engine/renderer/metadata"

// Form and surface settings to put back when leaving fullscreen.
type savedScreen struct {
	border         metadata.BorderStyle
	bounds         metadata.Rect
	menu           any
	visible        bool
	surfaceBounds  metadata.Rect
	surfaceVisible bool
	owned          []OwnedWindow
}

/**
 * @brief Applies the requested fullscreen or windowed mode to the host.
 * Windows owned by the form are detached while fullscreen so an invisible
 * dialog cannot swallow input, and attached again on the way back.
 */
func (s *Session) applyScreenParameters() {
	h := s.host

	if !s.fullScreenCurrent {
		// form settings are only taken from a normal window, or on first use
		if h.FormState() == metadata.WindowStateNormal || s.saved.bounds.Size() == (metadata.Size{}) {
			s.saved.border = h.BorderStyle()
			s.saved.bounds = h.Bounds()
			s.saved.menu = h.Menu()
			s.saved.visible = h.Visible()
		}
		s.saved.surfaceBounds = h.SurfaceBounds()
		s.saved.surfaceVisible = h.SurfaceVisible()
	}

	if !s.fullScreenCurrent && s.fullScreenRequest {
		s.saved.owned = h.OwnedWindows()
		for _, w := range s.saved.owned {
			h.DetachOwned(w)
		}

		if h.FormState() == metadata.WindowStateMinimized {
			h.SetFormState(metadata.WindowStateNormal)
		}
		h.SetBorderStyle(metadata.BorderNone)
		h.SetMenu(nil)
		h.SetVisible(true)
		dm := s.settings.DisplayMode
		h.SetSurfaceBounds(metadata.Rect{Width: dm.Width, Height: dm.Height})
		h.SetSurfaceVisible(true)
		h.BringToFront()
	}

	if s.fullScreenCurrent && !s.fullScreenRequest {
		h.SetBorderStyle(s.saved.border)
		h.SetBounds(s.saved.bounds)
		if s.saved.menu != nil {
			h.SetMenu(s.saved.menu)
		}

		h.SetSurfaceBounds(s.saved.surfaceBounds)
		h.SetSurfaceVisible(s.saved.surfaceVisible)

		h.SetVisible(s.saved.visible)
		h.BringToFront()
		h.Focus()

		newOwned := h.OwnedWindows()
		for _, w := range s.saved.owned {
			h.AttachOwned(w)
			w.BringToFront()
			w.Focus()
		}
		s.saved.owned = nil

		// a window opened while fullscreen gets the focus
		for _, w := range newOwned {
			w.BringToFront()
			w.Focus()
		}
	}

	s.fullScreenCurrent = s.fullScreenRequest
}
