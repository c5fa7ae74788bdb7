package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

/**
 * @brief Handles shared by everything created on one logical device.
 */
type context struct {
	Physical    vk.PhysicalDevice
	Logical     vk.Device
	Allocator   *vk.AllocationCallbacks
	Queue       vk.Queue
	QueueFamily uint32
	CommandPool vk.CommandPool
	Memory      vk.PhysicalDeviceMemoryProperties
	Locks       *lockPool
}

/**
 * @brief Finds a memory type allowed by typeFilter whose flags include every
 * bit of propertyFlags.
 */
func (c *context) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < c.Memory.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		c.Memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && c.Memory.MemoryTypes[i].PropertyFlags&propertyFlags == propertyFlags {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type matches filter %#x and flags %#x", typeFilter, uint32(propertyFlags))
}

// DeviceLocalBytes sums the heaps living on the device itself.
func (c *context) DeviceLocalBytes() int64 {
	var total int64
	for i := uint32(0); i < c.Memory.MemoryHeapCount; i++ {
		c.Memory.MemoryHeaps[i].Deref()
		if vk.MemoryHeapFlagBits(c.Memory.MemoryHeaps[i].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			total += int64(c.Memory.MemoryHeaps[i].Size)
		}
	}
	return total
}
