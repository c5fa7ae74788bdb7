package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

type commandBufferState int

const (
	commandBufferNotAllocated commandBufferState = iota
	commandBufferReady
	commandBufferRecording
	commandBufferRecordingEnded
	commandBufferSubmitted
)

func (s commandBufferState) String() string {
	switch s {
	case commandBufferReady:
		return "ready"
	case commandBufferRecording:
		return "recording"
	case commandBufferRecordingEnded:
		return "recording ended"
	case commandBufferSubmitted:
		return "submitted"
	}
	return "not allocated"
}

type commandBuffer struct {
	Handle vk.CommandBuffer
	State  commandBufferState
}

func allocateCommandBuffer(ctx *context) (*commandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        ctx.CommandPool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}
	handles := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(ctx.Logical, &info, handles); res != vk.Success {
		return nil, resultError("allocate command buffer", res)
	}
	return &commandBuffer{Handle: handles[0], State: commandBufferReady}, nil
}

func (c *commandBuffer) Free(ctx *context) {
	if c.State == commandBufferNotAllocated {
		return
	}
	vk.FreeCommandBuffers(ctx.Logical, ctx.CommandPool, 1, []vk.CommandBuffer{c.Handle})
	c.Handle = nil
	c.State = commandBufferNotAllocated
}

func (c *commandBuffer) Begin(singleUse bool) error {
	if c.State == commandBufferRecording {
		return fmt.Errorf("begin command buffer: already %s", c.State)
	}
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if singleUse {
		info.Flags |= vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if res := vk.BeginCommandBuffer(c.Handle, &info); res != vk.Success {
		return resultError("begin command buffer", res)
	}
	c.State = commandBufferRecording
	return nil
}

func (c *commandBuffer) End() error {
	if c.State != commandBufferRecording {
		return fmt.Errorf("end command buffer: %s", c.State)
	}
	if res := vk.EndCommandBuffer(c.Handle); res != vk.Success {
		return resultError("end command buffer", res)
	}
	c.State = commandBufferRecordingEnded
	return nil
}

// Submit queues the recorded commands; f is signaled when they complete.
func (c *commandBuffer) Submit(ctx *context, f vk.Fence) error {
	info := vk.SubmitInfo{
		SType: vk.StructureTypeSubmitInfo,
	}
	if c.State == commandBufferRecordingEnded {
		info.CommandBufferCount = 1
		info.PCommandBuffers = []vk.CommandBuffer{c.Handle}
	}
	err := ctx.Locks.SafeCall(groupQueue, func() error {
		return resultError("queue submit", vk.QueueSubmit(ctx.Queue, 1, []vk.SubmitInfo{info}, f))
	})
	if err != nil {
		return err
	}
	c.State = commandBufferSubmitted
	return nil
}

// Reset puts a submitted buffer back to ready once its fence has signaled.
func (c *commandBuffer) Reset() {
	if c.State != commandBufferNotAllocated {
		c.State = commandBufferReady
	}
}

/**
 * @brief Records commands into a temporary buffer, submits them and waits
 * for the queue to go idle.
 */
func runSingleUse(ctx *context, record func(cmd vk.CommandBuffer)) error {
	cmd, err := allocateCommandBuffer(ctx)
	if err != nil {
		return err
	}
	defer cmd.Free(ctx)
	if err := cmd.Begin(true); err != nil {
		return err
	}
	record(cmd.Handle)
	if err := cmd.End(); err != nil {
		return err
	}
	if err := cmd.Submit(ctx, vk.NullFence); err != nil {
		return err
	}
	return ctx.Locks.SafeCall(groupQueue, func() error {
		return resultError("queue wait idle", vk.QueueWaitIdle(ctx.Queue))
	})
}
