package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/rekindle/engine/core"
)

type fence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func newFence(ctx *context, createSignaled bool) (*fence, error) {
	f := &fence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if f.IsSignaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if res := vk.CreateFence(ctx.Logical, &info, ctx.Allocator, &handle); res != vk.Success {
		return nil, resultError("create fence", res)
	}
	f.Handle = handle
	return f, nil
}

func (f *fence) Destroy(ctx *context) {
	if f.Handle != vk.NullFence {
		vk.DestroyFence(ctx.Logical, f.Handle, ctx.Allocator)
		f.Handle = vk.NullFence
	}
	f.IsSignaled = false
}

/**
 * @brief Waits for the fence. A timeout is reported as an error so the
 * caller can treat a hung queue like any other failed present.
 */
func (f *fence) Wait(ctx *context, timeoutNs uint64) error {
	if f.IsSignaled {
		return nil
	}
	res := vk.WaitForFences(ctx.Logical, 1, []vk.Fence{f.Handle}, vk.True, timeoutNs)
	switch res {
	case vk.Success:
		f.IsSignaled = true
		return nil
	case vk.Timeout:
		core.LogWarn("fence wait timed out after %dns", timeoutNs)
		return fmt.Errorf("fence wait: %s", ResultString(res))
	}
	err := resultError("fence wait", res)
	core.LogError(err.Error())
	return err
}

func (f *fence) Reset(ctx *context) error {
	if !f.IsSignaled {
		return nil
	}
	if res := vk.ResetFences(ctx.Logical, 1, []vk.Fence{f.Handle}); res != vk.Success {
		return resultError("reset fence", res)
	}
	f.IsSignaled = false
	return nil
}
