package vulkan

import (
	"fmt"
	"sync"
	"time"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

const presentTimeout = uint64(time.Second)

/**
 * @brief A logical Vulkan device without a presentation surface. The back
 * buffer is a host visible allocation that Clear fills on the GPU, and
 * Present submits the frame's commands and waits for them to retire.
 */
type Device struct {
	ctx        *context
	caps       metadata.Caps
	params     metadata.PresentParameters
	viewport   metadata.Viewport
	commands   *commandBuffer
	frame      *fence
	backBuffer *allocation

	mu      sync.Mutex
	closed  bool
	lost    bool
	inScene bool
	objects map[releaser]struct{}
}

type releaser interface{ Release() }

func newDevice(physical physicalDevice, settings metadata.DeviceSettings, params metadata.PresentParameters) (*Device, error) {
	ctx := &context{
		Physical:    physical.handle,
		QueueFamily: physical.queueFamily,
		Locks:       newLockPool(),
	}
	vk.GetPhysicalDeviceMemoryProperties(ctx.Physical, &ctx.Memory)
	ctx.Memory.Deref()

	queueInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: ctx.QueueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}
	deviceInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{queueInfo},
	}
	var logical vk.Device
	if res := vk.CreateDevice(ctx.Physical, &deviceInfo, ctx.Allocator, &logical); res != vk.Success {
		return nil, resultError("create device", res)
	}
	ctx.Logical = logical
	var queue vk.Queue
	vk.GetDeviceQueue(logical, ctx.QueueFamily, 0, &queue)
	ctx.Queue = queue

	d := &Device{
		ctx: ctx,
		caps: metadata.Caps{
			DeviceType:       deviceTypeOf(physical.deviceType),
			AdapterOrdinal:   settings.AdapterOrdinal,
			AdapterName:      physical.name,
			MaxTextureWidth:  physical.maxTexture,
			MaxTextureHeight: physical.maxTexture,
			VideoMemory:      ctx.DeviceLocalBytes(),
		},
		params: params,
		viewport: metadata.Viewport{
			Width:  params.BackBufferWidth,
			Height: params.BackBufferHeight,
			MaxZ:   1,
		},
		objects: make(map[releaser]struct{}),
	}
	if err := d.init(); err != nil {
		d.destroy()
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.ctx.QueueFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(d.ctx.Logical, &poolInfo, d.ctx.Allocator, &pool); res != vk.Success {
		return resultError("create command pool", res)
	}
	d.ctx.CommandPool = pool

	var err error
	if d.commands, err = allocateCommandBuffer(d.ctx); err != nil {
		return err
	}
	if d.frame, err = newFence(d.ctx, true); err != nil {
		return err
	}
	// Every back buffer plus the depth surface is charged against device memory.
	d.backBuffer, err = allocate(d.ctx, int(swapChainSize(d.params)), vk.BufferUsageTransferDstBit|vk.BufferUsageTransferSrcBit)
	return err
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

func (d *Device) Caps() metadata.Caps { return d.caps }

func (d *Device) PresentParameters() metadata.PresentParameters { return d.params }

func (d *Device) Viewport() metadata.Viewport { return d.viewport }

func (d *Device) usable() error {
	if d.closed {
		return core.ErrNoDevice
	}
	if d.lost {
		return core.ErrDeviceLost
	}
	return nil
}

func (d *Device) markLost(err error) error {
	if deviceLost(err) {
		d.lost = true
	}
	return err
}

/**
 * @brief Clears the color target. Inside a scene the fill is recorded into
 * the frame; outside it runs on its own and completes before returning.
 * The depth and stencil planes are not backed by an attachment.
 */
func (d *Device) Clear(flags metadata.ClearFlags, color metadata.Color32, z float32, stencil uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if flags&metadata.ClearTarget == 0 {
		return nil
	}
	size := vk.DeviceSize(metadata.GetAligned(uint64(d.backBuffer.size), fillAlignment))
	if size == 0 {
		return nil
	}
	fill := func(cmd vk.CommandBuffer) {
		vk.CmdFillBuffer(cmd, d.backBuffer.handle, 0, size, uint32(color))
	}
	if d.inScene {
		fill(d.commands.Handle)
		return nil
	}
	return d.markLost(runSingleUse(d.ctx, fill))
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
	// The previous frame must have retired before its command buffer is reused.
	if err := d.frame.Wait(d.ctx, presentTimeout); err != nil {
		return d.markLost(err)
	}
	if err := d.commands.Begin(false); err != nil {
		return d.markLost(err)
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
	return d.markLost(d.commands.End())
}

func (d *Device) Present() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.usable(); err != nil {
		return err
	}
	if err := d.frame.Reset(d.ctx); err != nil {
		return d.markLost(err)
	}
	if err := d.commands.Submit(d.ctx, d.frame.Handle); err != nil {
		return d.markLost(err)
	}
	err := d.frame.Wait(d.ctx, presentTimeout)
	d.commands.Reset()
	return d.markLost(err)
}

// A lost Vulkan device never comes back; the session has to recreate it.
func (d *Device) TestCooperativeLevel() metadata.DeviceStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.lost {
		return metadata.DeviceStatusRemoved
	}
	return metadata.DeviceStatusOK
}

func (d *Device) track(r releaser) {
	d.mu.Lock()
	d.objects[r] = struct{}{}
	d.mu.Unlock()
}

func (d *Device) untrack(r releaser) {
	d.mu.Lock()
	delete(d.objects, r)
	d.mu.Unlock()
}

func (d *Device) isClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

/**
 * @brief Waits for the queue and destroys the device. Objects still alive
 * are released first, since Vulkan forbids destroying a device that owns them.
 */
func (d *Device) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	leftovers := make([]releaser, 0, len(d.objects))
	for r := range d.objects {
		leftovers = append(leftovers, r)
	}
	d.mu.Unlock()

	if len(leftovers) > 0 {
		core.LogWarn("closing vulkan device with %d live object(s)", len(leftovers))
	}
	for _, r := range leftovers {
		r.Release()
	}

	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.destroy()
	return nil
}

func (d *Device) destroy() {
	if d.ctx.Logical == nil {
		return
	}
	vk.DeviceWaitIdle(d.ctx.Logical)
	if d.backBuffer != nil {
		d.backBuffer.free(d.ctx)
	}
	if d.commands != nil {
		d.commands.Free(d.ctx)
	}
	if d.frame != nil {
		d.frame.Destroy(d.ctx)
	}
	if d.ctx.CommandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(d.ctx.Logical, d.ctx.CommandPool, d.ctx.Allocator)
		d.ctx.CommandPool = vk.NullCommandPool
	}
	vk.DestroyDevice(d.ctx.Logical, d.ctx.Allocator)
	d.ctx.Logical = nil
}

func (d *Device) CreateVertexBuffer(desc metadata.BufferDesc) (renderer.Buffer, error) {
	if desc.Size <= 0 {
		return nil, fmt.Errorf("vertex buffer size %d", desc.Size)
	}
	return d.newBuffer(desc, vk.BufferUsageVertexBufferBit)
}

func (d *Device) CreateIndexBuffer(desc metadata.BufferDesc) (renderer.Buffer, error) {
	if desc.IndexFormat != metadata.FormatIndex16 && desc.IndexFormat != metadata.FormatIndex32 {
		return nil, fmt.Errorf("index format %s", desc.IndexFormat)
	}
	if desc.Size < 0 {
		return nil, fmt.Errorf("index buffer size %d", desc.Size)
	}
	return d.newBuffer(desc, vk.BufferUsageIndexBufferBit)
}

func (d *Device) newBuffer(desc metadata.BufferDesc, usage vk.BufferUsageFlagBits) (*buffer, error) {
	d.mu.Lock()
	err := d.usable()
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	mem, err := allocate(d.ctx, desc.Size, usage|vk.BufferUsageTransferDstBit)
	if err != nil {
		return nil, fmt.Errorf("create %d byte buffer: %w", desc.Size, err)
	}
	b := &buffer{device: d, desc: desc, mem: mem}
	d.track(b)
	return b, nil
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
	d.mu.Lock()
	err := d.usable()
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	chain := metadata.MipChainLength(desc.Width, desc.Height)
	if desc.Levels <= 0 || desc.Levels > chain {
		desc.Levels = chain
	}
	offsets := levelOffsets(desc)
	mem, err := allocate(d.ctx, offsets[desc.Levels], vk.BufferUsageTransferDstBit|vk.BufferUsageTransferSrcBit)
	if err != nil {
		return nil, fmt.Errorf("create %dx%d texture: %w", desc.Width, desc.Height, err)
	}
	t := &texture{device: d, desc: desc, mem: mem, offsets: offsets}
	d.track(t)
	return t, nil
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

// levelOffsets packs the mip chain; every level starts on a word.
func levelOffsets(desc metadata.TextureDesc) []int {
	offsets := make([]int, desc.Levels+1)
	for i := 0; i < desc.Levels; i++ {
		end := offsets[i] + metadata.MipLevelDesc(desc.Width, desc.Height, i, desc.Format).Size()
		offsets[i+1] = int(metadata.GetAligned(uint64(end), fillAlignment))
	}
	return offsets
}
