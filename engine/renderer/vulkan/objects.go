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

const hostMemory = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)

/**
 * @brief A buffer bound to its own host visible, coherent memory. Reads and
 * writes map the range, copy and unmap.
 */
type allocation struct {
	handle vk.Buffer
	memory vk.DeviceMemory
	size   int
}

// vkCmdFillBuffer works on whole words.
const fillAlignment = 4

func allocate(ctx *context, size int, usage vk.BufferUsageFlagBits) (*allocation, error) {
	// Zero sized buffers are invalid in Vulkan; keep a word so empty index buffers exist.
	physical := int(metadata.GetAligned(uint64(max(size, 1)), fillAlignment))
	var handle vk.Buffer
	res := vk.CreateBuffer(ctx.Logical, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(physical),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, ctx.Allocator, &handle)
	if res != vk.Success {
		return nil, resultError("create buffer", res)
	}

	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(ctx.Logical, handle, &reqs)
	reqs.Deref()
	index, err := ctx.FindMemoryIndex(reqs.MemoryTypeBits, hostMemory)
	if err != nil {
		vk.DestroyBuffer(ctx.Logical, handle, ctx.Allocator)
		return nil, err
	}
	var memory vk.DeviceMemory
	res = vk.AllocateMemory(ctx.Logical, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: index,
	}, ctx.Allocator, &memory)
	if res != vk.Success {
		vk.DestroyBuffer(ctx.Logical, handle, ctx.Allocator)
		return nil, resultError("allocate memory", res)
	}
	if res := vk.BindBufferMemory(ctx.Logical, handle, memory, 0); res != vk.Success {
		vk.FreeMemory(ctx.Logical, memory, ctx.Allocator)
		vk.DestroyBuffer(ctx.Logical, handle, ctx.Allocator)
		return nil, resultError("bind buffer memory", res)
	}
	return &allocation{handle: handle, memory: memory, size: size}, nil
}

func (a *allocation) read(ctx *context, offset, n int) ([]byte, error) {
	out := make([]byte, n)
	if n == 0 {
		return out, nil
	}
	err := ctx.Locks.SafeCall(groupMemory, func() error {
		var data unsafe.Pointer
		if res := vk.MapMemory(ctx.Logical, a.memory, vk.DeviceSize(offset), vk.DeviceSize(n), 0, &data); res != vk.Success {
			return resultError("map memory", res)
		}
		copy(out, unsafe.Slice((*byte)(data), n))
		vk.UnmapMemory(ctx.Logical, a.memory)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *allocation) write(ctx *context, offset int, src []byte) error {
	if len(src) == 0 {
		return nil
	}
	return ctx.Locks.SafeCall(groupMemory, func() error {
		var data unsafe.Pointer
		if res := vk.MapMemory(ctx.Logical, a.memory, vk.DeviceSize(offset), vk.DeviceSize(len(src)), 0, &data); res != vk.Success {
			return resultError("map memory", res)
		}
		vk.Memcopy(data, src)
		vk.UnmapMemory(ctx.Logical, a.memory)
		return nil
	})
}

func (a *allocation) free(ctx *context) {
	if a.handle != vk.NullBuffer {
		vk.DestroyBuffer(ctx.Logical, a.handle, ctx.Allocator)
		a.handle = vk.NullBuffer
	}
	if a.memory != vk.NullDeviceMemory {
		vk.FreeMemory(ctx.Logical, a.memory, ctx.Allocator)
		a.memory = vk.NullDeviceMemory
	}
}

type buffer struct {
	device *Device
	desc   metadata.BufferDesc

	mu       sync.Mutex
	mem      *allocation
	released bool
}

func (b *buffer) Size() int { return b.desc.Size }

func (b *buffer) check() error {
	if b.released {
		return fmt.Errorf("buffer released")
	}
	if b.device.isClosed() {
		return core.ErrNoDevice
	}
	return nil
}

func (b *buffer) Read() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(); err != nil {
		return nil, err
	}
	return b.mem.read(b.device.ctx, 0, b.desc.Size)
}

func (b *buffer) Write(data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(); err != nil {
		return err
	}
	if err := renderer.CheckWrite(len(data), b.desc.Size); err != nil {
		return err
	}
	return b.mem.write(b.device.ctx, 0, data)
}

func (b *buffer) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	b.mem.free(b.device.ctx)
	b.mu.Unlock()
	b.device.untrack(b)
}

/**
 * @brief Mip levels packed one after the other in a single allocation.
 * offsets[i] is where level i starts, aligned to a word; offsets[len-1]
 * is the total size.
 */
type texture struct {
	device  *Device
	desc    metadata.TextureDesc
	offsets []int

	mu       sync.Mutex
	mem      *allocation
	released bool
}

func (t *texture) Desc() metadata.TextureDesc { return t.desc }

func (t *texture) LevelCount() int { return t.desc.Levels }

func (t *texture) LevelDesc(level int) metadata.LevelDesc {
	return metadata.MipLevelDesc(t.desc.Width, t.desc.Height, level, t.desc.Format)
}

func (t *texture) check(level int) error {
	if t.released {
		return fmt.Errorf("texture released")
	}
	if t.device.isClosed() {
		return core.ErrNoDevice
	}
	if level < 0 || level >= t.desc.Levels {
		return fmt.Errorf("texture level %d of %d", level, t.desc.Levels)
	}
	return nil
}

func (t *texture) ReadLevel(level int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(level); err != nil {
		return nil, err
	}
	return t.mem.read(t.device.ctx, t.offsets[level], t.LevelDesc(level).Size())
}

func (t *texture) WriteLevel(level int, data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(level); err != nil {
		return err
	}
	if err := renderer.CheckWrite(len(data), t.LevelDesc(level).Size()); err != nil {
		return err
	}
	return t.mem.write(t.device.ctx, t.offsets[level], data)
}

func (t *texture) Release() {
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.released = true
	t.mem.free(t.device.ctx)
	t.mu.Unlock()
	t.device.untrack(t)
}
