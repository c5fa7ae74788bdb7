package platform

import (
	"runtime"
	"time"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

var keyMap = map[glfw.Key]core.KeyCode{
	glfw.KeyEnter:  core.KEY_ENTER,
	glfw.KeyEscape: core.KEY_ESCAPE,
	glfw.KeySpace:  core.KEY_SPACE,
	glfw.KeyF:      core.KEY_F,
	glfw.KeyL:      core.KEY_L,
	glfw.KeyS:      core.KEY_S,
	glfw.KeyF5:     core.KEY_F5,
	glfw.KeyF11:    core.KEY_F11,
}

func translateKey(key glfw.Key) (core.KeyCode, bool) {
	code, ok := keyMap[key]
	return code, ok
}

/**
 * @brief The application window. It is the host of a render session: the
 * form is the glfw window and the drawing surface is its framebuffer.
 * Every method must be called from the main goroutine.
 */
type Platform struct {
	Window *glfw.Window
	input  *core.InputState

	menu           any
	border         metadata.BorderStyle
	surface        metadata.Rect
	surfaceVisible bool
	owned          []renderer.OwnedWindow
	cover          *glfw.Window
	resized        bool
}

var _ renderer.Host = (*Platform)(nil)

func New(input *core.InputState) *Platform {
	return &Platform{input: input, surfaceVisible: true}
}

func (p *Platform) Startup(applicationName string, x, y, width, height int) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(width, height, applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetSizeLimits(renderer.MinSurfaceSize, renderer.MinSurfaceSize, glfw.DontCare, glfw.DontCare)
	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetPos(x, y)
	p.Window.Show()

	fw, fh := p.Window.GetFramebufferSize()
	p.surface = metadata.Rect{Width: fw, Height: fh}
	return nil
}

func (p *Platform) Shutdown() error {
	p.HideCover()
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events, waiting at most timeout for
// one to arrive. It returns false once the window was asked to close.
func (p *Platform) PumpMessages(timeout time.Duration) bool {
	if timeout > 0 {
		glfw.WaitEventsTimeout(timeout.Seconds())
	} else {
		glfw.PollEvents()
	}
	return !p.Window.ShouldClose()
}

// Wake unblocks a PumpMessages call. Safe from any goroutine.
func (p *Platform) Wake() {
	glfw.PostEmptyEvent()
}

// RequestClose makes the next PumpMessages return false.
func (p *Platform) RequestClose() {
	p.Window.SetShouldClose(true)
}

// Resized reports, once, that the framebuffer changed size since the last call.
func (p *Platform) Resized() bool {
	r := p.resized
	p.resized = false
	return r
}

func GetAbsoluteTime() float64 {
	return glfw.GetTime()
}

// VulkanProcAddr is the instance loader used by the Vulkan driver.
func VulkanProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// DisplayMode is the current video mode of the primary monitor.
func DisplayMode() (metadata.DisplayMode, bool) {
	monitor := glfw.GetPrimaryMonitor()
	if monitor == nil {
		return metadata.DisplayMode{}, false
	}
	mode := monitor.GetVideoMode()
	if mode == nil {
		return metadata.DisplayMode{}, false
	}
	format := metadata.FormatX8R8G8B8
	if mode.RedBits+mode.GreenBits+mode.BlueBits <= 16 {
		format = metadata.FormatR5G6B5
	}
	return metadata.DisplayMode{
		Width:       mode.Width,
		Height:      mode.Height,
		RefreshRate: mode.RefreshRate,
		Format:      format,
	}, true
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	code, ok := translateKey(key)
	if !ok || action == glfw.Repeat {
		return
	}
	p.input.ProcessKey(code, action == glfw.Press)
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if width == 0 || height == 0 {
		// minimized
		return
	}
	p.surface.Width, p.surface.Height = width, height
	p.resized = true
}

func (p *Platform) ClientSize() metadata.Size {
	w, h := p.Window.GetFramebufferSize()
	return metadata.Size{Width: w, Height: h}
}

func (p *Platform) FormState() metadata.WindowState {
	switch {
	case p.Window.GetAttrib(glfw.Iconified) == glfw.True:
		return metadata.WindowStateMinimized
	case p.Window.GetAttrib(glfw.Maximized) == glfw.True:
		return metadata.WindowStateMaximized
	}
	return metadata.WindowStateNormal
}

func (p *Platform) SetFormState(state metadata.WindowState) {
	switch state {
	case metadata.WindowStateMinimized:
		p.Window.Iconify()
	case metadata.WindowStateMaximized:
		p.Window.Maximize()
	default:
		p.Window.Restore()
	}
}

func (p *Platform) BorderStyle() metadata.BorderStyle { return p.border }

func (p *Platform) SetBorderStyle(style metadata.BorderStyle) {
	p.border = style
	p.Window.SetAttrib(glfw.Decorated, boolHint(style != metadata.BorderNone))
	p.Window.SetAttrib(glfw.Resizable, boolHint(style == metadata.BorderSizable))
}

func (p *Platform) Bounds() metadata.Rect {
	x, y := p.Window.GetPos()
	w, h := p.Window.GetSize()
	return metadata.Rect{X: x, Y: y, Width: w, Height: h}
}

func (p *Platform) SetBounds(bounds metadata.Rect) {
	if p.Window.GetMonitor() != nil {
		p.Window.SetMonitor(nil, bounds.X, bounds.Y, bounds.Width, bounds.Height, glfw.DontCare)
		return
	}
	p.Window.SetPos(bounds.X, bounds.Y)
	p.Window.SetSize(bounds.Width, bounds.Height)
}

// The window has no native menu; the value is only kept for the session.
func (p *Platform) Menu() any        { return p.menu }
func (p *Platform) SetMenu(menu any) { p.menu = menu }

func (p *Platform) Visible() bool {
	return p.Window.GetAttrib(glfw.Visible) == glfw.True
}

func (p *Platform) SetVisible(visible bool) {
	if visible {
		p.Window.Show()
	} else {
		p.Window.Hide()
	}
}

func (p *Platform) BringToFront() {
	p.Window.Focus()
}

func (p *Platform) Focus() {
	p.Window.Focus()
}

func (p *Platform) SurfaceBounds() metadata.Rect { return p.surface }

/**
 * @brief The surface always fills the window. A surface bigger than the
 * client area of an undecorated window means fullscreen, so the window
 * moves onto the primary monitor.
 */
func (p *Platform) SetSurfaceBounds(bounds metadata.Rect) {
	bounds.Width = max(bounds.Width, renderer.MinSurfaceSize)
	bounds.Height = max(bounds.Height, renderer.MinSurfaceSize)
	p.surface = bounds

	if p.border == metadata.BorderNone && p.Window.GetMonitor() == nil {
		if monitor := glfw.GetPrimaryMonitor(); monitor != nil {
			p.Window.SetMonitor(monitor, 0, 0, bounds.Width, bounds.Height, glfw.DontCare)
			return
		}
	}
	if p.Window.GetMonitor() == nil {
		p.Window.SetSize(bounds.Width, bounds.Height)
	}
}

func (p *Platform) SurfaceVisible() bool { return p.surfaceVisible }

func (p *Platform) SetSurfaceVisible(visible bool) { p.surfaceVisible = visible }

func (p *Platform) SurfaceFocused() bool {
	return p.Window.GetAttrib(glfw.Focused) == glfw.True
}

func (p *Platform) FocusSurface() {
	p.Window.Focus()
}

// AddOwned registers a tool window that follows the main window.
func (p *Platform) AddOwned(w renderer.OwnedWindow) {
	p.owned = append(p.owned, w)
}

func (p *Platform) OwnedWindows() []renderer.OwnedWindow {
	out := make([]renderer.OwnedWindow, len(p.owned))
	copy(out, p.owned)
	return out
}

func (p *Platform) DetachOwned(w renderer.OwnedWindow) {
	for i, o := range p.owned {
		if o == w {
			p.owned = append(p.owned[:i], p.owned[i+1:]...)
			return
		}
	}
}

func (p *Platform) AttachOwned(w renderer.OwnedWindow) {
	p.owned = append(p.owned, w)
}

// ShowCover opens an undecorated, always on top window over the primary monitor.
func (p *Platform) ShowCover() {
	if p.cover != nil {
		return
	}
	mode, ok := DisplayMode()
	if !ok {
		return
	}
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Decorated, glfw.False)
	glfw.WindowHint(glfw.Floating, glfw.True)
	glfw.WindowHint(glfw.FocusOnShow, glfw.False)
	cover, err := glfw.CreateWindow(mode.Width, mode.Height, "", nil, nil)
	if err != nil {
		core.LogWarn("cover window: %s", err)
		return
	}
	cover.SetPos(0, 0)
	p.cover = cover
}

func (p *Platform) HideCover() {
	if p.cover == nil {
		return
	}
	p.cover.Destroy()
	p.cover = nil
}

func boolHint(b bool) int {
	if b {
		return glfw.True
	}
	return glfw.False
}
