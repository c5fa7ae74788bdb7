package software

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

/**
 * @brief A device whose objects live in host memory. Safe for the UI
 * goroutine and the present goroutine to use at the same time.
 */
type Device struct {
	driver *Driver

	mu             sync.Mutex
	caps           metadata.Caps
	params         metadata.PresentParameters
	viewport       metadata.Viewport
	swapChainBytes int64
	status         metadata.DeviceStatus
	closed         bool
	inScene        bool
	clearHook      func() error

	live      int
	presents  int
	clears    int
	lastClear metadata.Color32
}

func (d *Device) Caps() metadata.Caps { return d.caps }

func (d *Device) PresentParameters() metadata.PresentParameters { return d.params }

func (d *Device) Viewport() metadata.Viewport { return d.viewport }

// SetStatus simulates the operating system taking the device away
// (DeviceStatusLost) or handing it back (NotReset, OK).
func (d *Device) SetStatus(status metadata.DeviceStatus) {
	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
}

// Lose is SetStatus(DeviceStatusLost).
func (d *Device) Lose() { d.SetStatus(metadata.DeviceStatusLost) }

func (d *Device) TestCooperativeLevel() metadata.DeviceStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return metadata.DeviceStatusRemoved
	}
	return d.status
}

func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// LiveObjects counts buffers and textures not yet released.
func (d *Device) LiveObjects() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *Device) Presents() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.presents
}

func (d *Device) Clears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clears
}

func (d *Device) usable() error {
	if d.closed {
		return core.ErrNoDevice
	}
	return nil
}

func (d *Device) Clear(flags metadata.ClearFlags, color metadata.Color32, z float32, stencil uint32) error {
	d.mu.Lock()
	hook := d.clearHook
	d.clearHook = nil
	if err := d.usable(); err != nil {
		d.mu.Unlock()
		return err
	}
	d.mu.Unlock()
	if hook != nil {
		if err := hook(); err != nil {
			return err
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clears++
	if flags&metadata.ClearTarget != 0 {
		d.lastClear = color
	}
	return nil
}

func (d *Device) BeginScene() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if d.inScene {
		return fmt.Errorf("begin scene: scene already started")
	}
	d.inScene = true
	return nil
}

func (d *Device) EndScene() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.inScene {
		return fmt.Errorf("end scene: no scene started")
	}
	d.inScene = false
	return nil
}

func (d *Device) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	switch d.status {
	case metadata.DeviceStatusOK:
		d.presents++
		return nil
	case metadata.DeviceStatusNotReset:
		return core.ErrDeviceNotReset
	}
	return core.ErrDeviceLost
}

/**
 * @brief Closes the device. Objects still alive keep their memory until
 * released but can no longer be read or written.
 */
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()
	d.driver.release(d.swapChainBytes)
	return nil
}

func (d *Device) allocate(size int64, pool metadata.Pool) error {
	d.mu.Lock()
	err := d.usable()
	d.mu.Unlock()
	if err != nil {
		return err
	}
	if budgeted(pool) {
		if err := d.driver.reserve(size); err != nil {
			return err
		}
	}
	d.mu.Lock()
	d.live++
	d.mu.Unlock()
	return nil
}

func (d *Device) free(size int64, pool metadata.Pool) {
	if budgeted(pool) {
		d.driver.release(size)
	}
	d.mu.Lock()
	d.live--
	d.mu.Unlock()
}

func (d *Device) CreateVertexBuffer(desc metadata.BufferDesc) (renderer.Buffer, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("vertex buffer size %d", desc.Size)
	}
	return d.newBuffer(desc)
}

func (d *Device) CreateIndexBuffer(desc metadata.BufferDesc) (renderer.Buffer, error) {
	if desc.IndexFormat != metadata.FormatIndex16 && desc.IndexFormat != metadata.FormatIndex32 {
		return nil, fmt.Errorf("index format %s", desc.IndexFormat)
	}
	if desc.Size < 0 {
		return nil, fmt.Errorf("index buffer size %d", desc.Size)
	}
	return d.newBuffer(desc)
}

func (d *Device) newBuffer(desc metadata.BufferDesc) (*buffer, error) {
	if err := d.allocate(int64(desc.Size), desc.Pool); err != nil {
		return nil, err
	}
	return &buffer{device: d, desc: desc, data: make([]byte, desc.Size)}, nil
}

func (d *Device) CreateTexture(desc metadata.TextureDesc) (renderer.Texture, error) {
	if desc.Width <= 0 || desc.Height <= 0 {
		return nil, fmt.Errorf("texture size %dx%d", desc.Width, desc.Height)
	}
	if desc.Width > d.caps.MaxTextureWidth || desc.Height > d.caps.MaxTextureHeight {
		return nil, fmt.Errorf("texture size %dx%d exceeds %dx%d", desc.Width, desc.Height, d.caps.MaxTextureWidth, d.caps.MaxTextureHeight)
	}
	if desc.Format == metadata.FormatUnknown || desc.Format.IsDepth() {
		return nil, fmt.Errorf("texture format %s", desc.Format)
	}
	chain := metadata.MipChainLength(desc.Width, desc.Height)
	if desc.Levels <= 0 || desc.Levels > chain {
		desc.Levels = chain
	}
	levels := make([][]byte, desc.Levels)
	var total int64
	for i := range levels {
		levels[i] = make([]byte, metadata.MipLevelDesc(desc.Width, desc.Height, i, desc.Format).Size())
		total += int64(len(levels[i]))
	}
	if err := d.allocate(total, desc.Pool); err != nil {
		return nil, err
	}
	return &texture{device: d, desc: desc, levels: levels, size: total}, nil
}

func (d *Device) CreateMesh(desc metadata.MeshDesc) (renderer.Mesh, error) {
	if desc.FaceCount <= 0 || desc.VertexCount <= 0 {
		return nil, fmt.Errorf("mesh with %d faces and %d vertices", desc.FaceCount, desc.VertexCount)
	}
	if desc.VertexFormat.Stride() == 0 {
		return nil, fmt.Errorf("mesh vertex format %s", desc.VertexFormat)
	}
	return renderer.ComposeMesh(d, desc)
}
