package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

const driverName = "vulkan"

type Config struct {
	AppName string
	// ProcAddr is the loader entry point, usually
	// glfw.GetVulkanGetInstanceProcAddress(). The system loader is used when nil.
	ProcAddr unsafe.Pointer
	// Validation enables VK_LAYER_KHRONOS_validation when it is installed.
	Validation bool
}

/**
 * @brief Creates headless Vulkan devices. The instance is created on the
 * first CreateDevice so that constructing the driver never touches the
 * loader.
 */
type Driver struct {
	mu       sync.Mutex
	config   Config
	instance vk.Instance
	ready    bool
}

func New(config Config) *Driver {
	if config.AppName == "" {
		config.AppName = "rekindle"
	}
	return &Driver{config: config}
}

func (d *Driver) Name() string { return driverName }

func (d *Driver) ensureInstance() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready {
		return nil
	}
	if d.config.ProcAddr != nil {
		vk.SetGetInstanceProcAddr(d.config.ProcAddr)
	} else if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
		return fmt.Errorf("load vulkan: %w", err)
	}
	if err := vk.Init(); err != nil {
		return fmt.Errorf("init vulkan: %w", err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(d.config.AppName),
		PEngineName:        safeString("rekindle"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}
	if d.config.Validation {
		layers := availableLayers()
		if _, ok := layers["VK_LAYER_KHRONOS_validation"]; ok {
			createInfo.EnabledLayerCount = 1
			createInfo.PpEnabledLayerNames = safeStrings([]string{"VK_LAYER_KHRONOS_validation"})
		} else {
			core.LogWarn("validation layer not installed, continuing without it")
		}
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return resultError("create instance", res)
	}
	vk.InitInstance(instance)
	d.instance = instance
	d.ready = true
	core.LogInfo("vulkan instance created")
	return nil
}

func availableLayers() map[string]struct{} {
	var count uint32
	vk.EnumerateInstanceLayerProperties(&count, nil)
	props := make([]vk.LayerProperties, count)
	vk.EnumerateInstanceLayerProperties(&count, props)
	out := make(map[string]struct{}, count)
	for i := range props {
		props[i].Deref()
		out[cString(props[i].LayerName[:])] = struct{}{}
	}
	return out
}

// Close destroys the instance. Every device must be closed first.
func (d *Driver) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ready {
		vk.DestroyInstance(d.instance, nil)
		d.ready = false
	}
}

type physicalDevice struct {
	handle      vk.PhysicalDevice
	name        string
	deviceType  vk.PhysicalDeviceType
	maxTexture  int
	queueFamily uint32
}

/**
 * @brief Picks the adapter at ordinal among the devices that expose a
 * graphics queue.
 */
func (d *Driver) selectPhysicalDevice(ordinal int) (physicalDevice, error) {
	var count uint32
	if res := vk.EnumeratePhysicalDevices(d.instance, &count, nil); res != vk.Success {
		return physicalDevice{}, resultError("enumerate physical devices", res)
	}
	if count == 0 {
		return physicalDevice{}, fmt.Errorf("no vulkan capable adapter: %w", core.ErrNoDevice)
	}
	handles := make([]vk.PhysicalDevice, count)
	vk.EnumeratePhysicalDevices(d.instance, &count, handles)

	var usable []physicalDevice
	for _, h := range handles {
		family, ok := graphicsQueueFamily(h)
		if !ok {
			continue
		}
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(h, &props)
		props.Deref()
		props.Limits.Deref()
		usable = append(usable, physicalDevice{
			handle:      h,
			name:        cString(props.DeviceName[:]),
			deviceType:  props.DeviceType,
			maxTexture:  int(props.Limits.MaxImageDimension2D),
			queueFamily: family,
		})
	}
	if ordinal < 0 || ordinal >= len(usable) {
		return physicalDevice{}, fmt.Errorf("adapter %d of %d: %w", ordinal, len(usable), core.ErrNoDevice)
	}
	return usable[ordinal], nil
}

func graphicsQueueFamily(h vk.PhysicalDevice) (uint32, bool) {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(h, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(h, &count, families)
	for i := range families {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			return uint32(i), true
		}
	}
	return 0, false
}

// deviceTypeOf maps the adapter kind onto the device types the session knows.
func deviceTypeOf(t vk.PhysicalDeviceType) metadata.DeviceType {
	if t == vk.PhysicalDeviceTypeCpu {
		return metadata.DeviceTypeSoftware
	}
	return metadata.DeviceTypeHardware
}

func (d *Driver) CreateDevice(settings metadata.DeviceSettings, flags metadata.CreateFlags, params metadata.PresentParameters) (renderer.Device, error) {
	if settings.DeviceType == metadata.DeviceTypeNullReference {
		return nil, fmt.Errorf("%s driver has no null reference device", driverName)
	}
	if err := d.ensureInstance(); err != nil {
		return nil, err
	}
	physical, err := d.selectPhysicalDevice(settings.AdapterOrdinal)
	if err != nil {
		return nil, err
	}
	dev, err := newDevice(physical, settings, params)
	if err != nil {
		return nil, err
	}
	core.LogInfo("vulkan device '%s' created, %dx%d, %d back buffer(s), flags %#x",
		physical.name, params.BackBufferWidth, params.BackBufferHeight, params.BackBufferCount, uint32(flags))
	return dev, nil
}
