package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

const (
	DefaultMaxTextureSize = 4096
	driverName            = "software"
)

type Config struct {
	// VideoMemory is the budget in bytes shared by every device. Zero is unlimited.
	VideoMemory int64
	// DeviceType reported in the caps of created devices. Defaults to the requested type.
	DeviceType     metadata.DeviceType
	AdapterName    string
	MaxTextureSize int
}

/**
 * @brief One call to CreateDevice, as seen by the driver.
 */
type Attempt struct {
	Settings metadata.DeviceSettings
	Flags    metadata.CreateFlags
	Params   metadata.PresentParameters
	Err      error
}

/**
 * @brief A driver keeping every GPU object in host memory. Video memory is
 * a byte budget, and failures can be injected with OnCreate and
 * Device.SetStatus so device loss is reproducible.
 */
type Driver struct {
	mu       sync.Mutex
	config   Config
	attempts []Attempt
	devices  []*Device
	used     atomic.Int64

	// OnCreate runs before a device is created; a non nil error fails the attempt.
	OnCreate func(attempt int, params metadata.PresentParameters) error
	// OnClear fails the clear of a freshly created device when it returns an error.
	OnClear func(d *Device) error
}

func New(config Config) *Driver {
	if config.MaxTextureSize <= 0 {
		config.MaxTextureSize = DefaultMaxTextureSize
	}
	if config.AdapterName == "" {
		config.AdapterName = "Software Adapter"
	}
	return &Driver{config: config}
}

func (d *Driver) Name() string { return driverName }

func (d *Driver) CreateDevice(settings metadata.DeviceSettings, flags metadata.CreateFlags, params metadata.PresentParameters) (renderer.Device, error) {
	d.mu.Lock()
	n := len(d.attempts)
	hook := d.OnCreate
	d.mu.Unlock()

	err := d.createCheck(n, hook, params)

	d.mu.Lock()
	d.attempts = append(d.attempts, Attempt{Settings: settings, Flags: flags, Params: params, Err: err})
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	devType := d.config.DeviceType
	if devType == 0 {
		devType = settings.DeviceType
	}
	dev := &Device{
		driver: d,
		caps: metadata.Caps{
			DeviceType:       devType,
			AdapterOrdinal:   settings.AdapterOrdinal,
			AdapterName:      d.config.AdapterName,
			MaxTextureWidth:  d.config.MaxTextureSize,
			MaxTextureHeight: d.config.MaxTextureSize,
			VideoMemory:      d.config.VideoMemory,
		},
		params: params,
		viewport: metadata.Viewport{
			Width:  params.BackBufferWidth,
			Height: params.BackBufferHeight,
			MaxZ:   1,
		},
		swapChainBytes: swapChainSize(params),
	}
	if err := d.reserve(dev.swapChainBytes); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.devices = append(d.devices, dev)
	d.mu.Unlock()
	core.LogDebug("software device %dx%d created, %d back buffer(s)", params.BackBufferWidth, params.BackBufferHeight, params.BackBufferCount)

	if d.OnClear != nil {
		dev.clearHook = func() error { return d.OnClear(dev) }
	}
	return dev, nil
}

func (d *Driver) createCheck(n int, hook func(int, metadata.PresentParameters) error, params metadata.PresentParameters) error {
	if hook != nil {
		if err := hook(n, params); err != nil {
			return err
		}
	}
	if params.BackBufferWidth <= 0 || params.BackBufferHeight <= 0 {
		return fmt.Errorf("invalid back buffer size %dx%d", params.BackBufferWidth, params.BackBufferHeight)
	}
	return nil
}

// Attempts lists every CreateDevice call in order.
func (d *Driver) Attempts() []Attempt {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Attempt, len(d.attempts))
	copy(out, d.attempts)
	return out
}

// Devices lists every device created so far, closed ones included.
func (d *Driver) Devices() []*Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Device, len(d.devices))
	copy(out, d.devices)
	return out
}

// Last is the most recently created device, or nil.
func (d *Driver) Last() *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.devices) == 0 {
		return nil
	}
	return d.devices[len(d.devices)-1]
}

// UsedVideoMemory is the number of budgeted bytes currently allocated.
func (d *Driver) UsedVideoMemory() int64 {
	return d.used.Load()
}

// SetVideoMemory changes the budget for future allocations.
func (d *Driver) SetVideoMemory(bytes int64) {
	d.mu.Lock()
	d.config.VideoMemory = bytes
	d.mu.Unlock()
}

func (d *Driver) reserve(bytes int64) error {
	d.mu.Lock()
	budget := d.config.VideoMemory
	d.mu.Unlock()
	for {
		used := d.used.Load()
		if budget > 0 && used+bytes > budget {
			return fmt.Errorf("%w: %d bytes requested, %d of %d in use", core.ErrOutOfVideoMemory, bytes, used, budget)
		}
		if d.used.CompareAndSwap(used, used+bytes) {
			return nil
		}
	}
}

func (d *Driver) release(bytes int64) {
	d.used.Add(-bytes)
}

func swapChainSize(p metadata.PresentParameters) int64 {
	format := p.BackBufferFormat
	if format == metadata.FormatUnknown {
		format = metadata.FormatX8R8G8B8
	}
	size := int64(format.LevelSize(p.BackBufferWidth, p.BackBufferHeight)) * int64(max(p.BackBufferCount, 1))
	if p.EnableAutoDepthStencil {
		size += int64(p.AutoDepthStencilFormat.LevelSize(p.BackBufferWidth, p.BackBufferHeight))
	}
	return size
}

func budgeted(pool metadata.Pool) bool {
	return pool == metadata.PoolDefault || pool == metadata.PoolManaged
}
