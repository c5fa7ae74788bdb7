package vulkan

import (
	"errors"
	"sync"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

func TestResultErrorClassification(t *testing.T) {
	cases := []struct {
		result vk.Result
		want   error
	}{
		{vk.ErrorOutOfDeviceMemory, core.ErrOutOfVideoMemory},
		{vk.ErrorOutOfHostMemory, core.ErrOutOfVideoMemory},
		{vk.ErrorOutOfPoolMemory, core.ErrOutOfVideoMemory},
		{vk.ErrorDeviceLost, core.ErrDeviceLost},
		{vk.ErrorSurfaceLost, core.ErrDeviceLost},
		{vk.ErrorOutOfDate, core.ErrDeviceNotReset},
	}
	for _, tc := range cases {
		t.Run(ResultString(tc.result), func(t *testing.T) {
			err := resultError("allocate memory", tc.result)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Contains(t, err.Error(), "allocate memory")
			assert.Contains(t, err.Error(), ResultString(tc.result))
		})
	}
}

func TestResultErrorPlainFailures(t *testing.T) {
	assert.NoError(t, resultError("create fence", vk.Success))

	err := resultError("create instance", vk.ErrorIncompatibleDriver)
	require.Error(t, err)
	assert.Equal(t, "create instance: VK_ERROR_INCOMPATIBLE_DRIVER", err.Error())
	assert.False(t, errors.Is(err, core.ErrOutOfVideoMemory))
	assert.False(t, deviceLost(err))

	assert.True(t, deviceLost(resultError("queue submit", vk.ErrorDeviceLost)))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "VK_SUCCESS", ResultString(vk.Success))
	assert.Equal(t, "VK_ERROR_DEVICE_LOST", ResultString(vk.ErrorDeviceLost))
	assert.Equal(t, "VK_RESULT(-424242)", ResultString(vk.Result(-424242)))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "main\x00", safeString("main"))
	assert.Equal(t, "main\x00", safeString("main\x00"))
	assert.Equal(t, []string{"a\x00", "b\x00"}, safeStrings([]string{"a", "b"}))

	name := make([]byte, 16)
	copy(name, "llvmpipe")
	assert.Equal(t, "llvmpipe", cString(name))
	assert.Equal(t, "full", cString([]byte("full")))
}

func TestDeviceTypeOf(t *testing.T) {
	assert.Equal(t, metadata.DeviceTypeSoftware, deviceTypeOf(vk.PhysicalDeviceTypeCpu))
	assert.Equal(t, metadata.DeviceTypeHardware, deviceTypeOf(vk.PhysicalDeviceTypeDiscreteGpu))
	assert.Equal(t, metadata.DeviceTypeHardware, deviceTypeOf(vk.PhysicalDeviceTypeIntegratedGpu))
}

func TestSwapChainSize(t *testing.T) {
	params := metadata.PresentParameters{
		BackBufferWidth:  8,
		BackBufferHeight: 4,
		BackBufferCount:  2,
	}
	assert.Equal(t, int64(8*4*4*2), swapChainSize(params))

	params.EnableAutoDepthStencil = true
	params.AutoDepthStencilFormat = metadata.FormatD16
	assert.Equal(t, int64(8*4*4*2+8*4*2), swapChainSize(params))
}

func TestLevelOffsetsAreWordAligned(t *testing.T) {
	desc := metadata.TextureDesc{Width: 4, Height: 4, Levels: 3, Format: metadata.FormatL8}
	// 16, 4 and 1 bytes
	assert.Equal(t, []int{0, 16, 20, 24}, levelOffsets(desc))

	desc.Format = metadata.FormatA8R8G8B8
	assert.Equal(t, []int{0, 64, 80, 84}, levelOffsets(desc))
}

func TestCommandBufferStateNames(t *testing.T) {
	assert.Equal(t, "not allocated", commandBufferNotAllocated.String())
	assert.Equal(t, "recording", commandBufferRecording.String())

	c := &commandBuffer{State: commandBufferNotAllocated}
	c.Reset()
	assert.Equal(t, commandBufferNotAllocated, c.State)
	c.State = commandBufferSubmitted
	c.Reset()
	assert.Equal(t, commandBufferReady, c.State)
	assert.Error(t, c.End())
}

func TestLockPoolSerializesGroups(t *testing.T) {
	p := newLockPool()
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.SafeCall(groupQueue, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Same(t, p.get(groupQueue), p.get(groupQueue))
	assert.NotSame(t, p.get(groupQueue), p.get(groupMemory))

	want := errors.New("boom")
	assert.Equal(t, want, p.SafeCall(groupMemory, func() error { return want }))
}
