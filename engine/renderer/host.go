package renderer

import (
	"sync"

	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

// MinSurfaceSize is the smallest width and height a surface may shrink to.
const MinSurfaceSize = 8

/** @brief A window owned by the host window, such as a tool palette. */
type OwnedWindow interface {
	BringToFront()
	Focus()
}

/**
 * @brief The top level window (form) and the drawing surface inside it.
 * All methods are called on the UI goroutine.
 */
type Host interface {
	// ClientSize is the drawable area of the form.
	ClientSize() metadata.Size

	FormState() metadata.WindowState
	SetFormState(state metadata.WindowState)
	BorderStyle() metadata.BorderStyle
	SetBorderStyle(style metadata.BorderStyle)
	Bounds() metadata.Rect
	SetBounds(bounds metadata.Rect)
	// Menu is opaque to the session, it is only saved and put back.
	Menu() any
	SetMenu(menu any)
	Visible() bool
	SetVisible(visible bool)
	BringToFront()
	Focus()

	SurfaceBounds() metadata.Rect
	SetSurfaceBounds(bounds metadata.Rect)
	SurfaceVisible() bool
	SetSurfaceVisible(visible bool)
	SurfaceFocused() bool
	FocusSurface()

	OwnedWindows() []OwnedWindow
	DetachOwned(w OwnedWindow)
	AttachOwned(w OwnedWindow)

	// ShowCover puts a black window over the screen while the display mode changes.
	ShowCover()
	HideCover()
}

/**
 * @brief An in-memory Host. Used for offscreen sessions and tests; every
 * mutation is appended to Calls.
 */
type HeadlessHost struct {
	mu sync.Mutex

	clientSize     metadata.Size
	state          metadata.WindowState
	border         metadata.BorderStyle
	bounds         metadata.Rect
	menu           any
	visible        bool
	surface        metadata.Rect
	surfaceVisible bool
	surfaceFocused bool
	owned          []OwnedWindow
	coverShown     bool

	Calls []string
}

func NewHeadlessHost(width, height int) *HeadlessHost {
	return &HeadlessHost{
		clientSize:     metadata.Size{Width: width, Height: height},
		bounds:         metadata.Rect{Width: width, Height: height},
		visible:        true,
		surface:        metadata.Rect{Width: width, Height: height},
		surfaceVisible: true,
	}
}

func (h *HeadlessHost) record(call string) {
	h.Calls = append(h.Calls, call)
}

// ResetCalls empties the call log.
func (h *HeadlessHost) ResetCalls() {
	h.mu.Lock()
	h.Calls = nil
	h.mu.Unlock()
}

// SetClientSize simulates the user resizing the form.
func (h *HeadlessHost) SetClientSize(size metadata.Size) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clientSize = size
}

func (h *HeadlessHost) ClientSize() metadata.Size {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clientSize
}

func (h *HeadlessHost) FormState() metadata.WindowState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *HeadlessHost) SetFormState(state metadata.WindowState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
	h.record("SetFormState")
}

func (h *HeadlessHost) BorderStyle() metadata.BorderStyle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.border
}

func (h *HeadlessHost) SetBorderStyle(style metadata.BorderStyle) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.border = style
	h.record("SetBorderStyle")
}

func (h *HeadlessHost) Bounds() metadata.Rect {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bounds
}

func (h *HeadlessHost) SetBounds(bounds metadata.Rect) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bounds = bounds
	h.record("SetBounds")
}

func (h *HeadlessHost) Menu() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.menu
}

func (h *HeadlessHost) SetMenu(menu any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.menu = menu
	h.record("SetMenu")
}

func (h *HeadlessHost) Visible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

func (h *HeadlessHost) SetVisible(visible bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = visible
	h.record("SetVisible")
}

func (h *HeadlessHost) BringToFront() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.record("BringToFront")
}

func (h *HeadlessHost) Focus() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.surfaceFocused = false
	h.record("Focus")
}

func (h *HeadlessHost) SurfaceBounds() metadata.Rect {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surface
}

func (h *HeadlessHost) SetSurfaceBounds(bounds metadata.Rect) {
	h.mu.Lock()
	defer h.mu.Unlock()
	bounds.Width = max(bounds.Width, MinSurfaceSize)
	bounds.Height = max(bounds.Height, MinSurfaceSize)
	h.surface = bounds
	h.record("SetSurfaceBounds")
}

func (h *HeadlessHost) SurfaceVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surfaceVisible
}

func (h *HeadlessHost) SetSurfaceVisible(visible bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.surfaceVisible = visible
	h.record("SetSurfaceVisible")
}

func (h *HeadlessHost) SurfaceFocused() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.surfaceFocused
}

func (h *HeadlessHost) FocusSurface() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.surfaceFocused = true
	h.record("FocusSurface")
}

// AddOwned makes w an owned window of the form.
func (h *HeadlessHost) AddOwned(w OwnedWindow) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.owned = append(h.owned, w)
}

func (h *HeadlessHost) OwnedWindows() []OwnedWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]OwnedWindow, len(h.owned))
	copy(out, h.owned)
	return out
}

func (h *HeadlessHost) DetachOwned(w OwnedWindow) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, o := range h.owned {
		if o == w {
			h.owned = append(h.owned[:i], h.owned[i+1:]...)
			break
		}
	}
	h.record("DetachOwned")
}

func (h *HeadlessHost) AttachOwned(w OwnedWindow) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.owned = append(h.owned, w)
	h.record("AttachOwned")
}

func (h *HeadlessHost) ShowCover() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.coverShown = true
	h.record("ShowCover")
}

func (h *HeadlessHost) HideCover() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.coverShown = false
	h.record("HideCover")
}

// CoverShown reports whether the cover window is currently up.
func (h *HeadlessHost) CoverShown() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.coverShown
}
