package vkc

import (
	"math"
	"time"

	vk "github.com/vulkan-go/vulkan"
)

type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

func (d *Device) CreateFence() (*Fence, error) {
	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}

	var fence vk.Fence
	err := vkCheck("vkCreateFence", vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return nil, err
	}
	return &Fence{Device: d, VKFence: fence}, nil
}

// Wait blocks until the fence signals. A negative timeout waits forever;
// otherwise ErrTimeout is returned when the bound elapses first.
func (f *Fence) Wait(timeout time.Duration) error {
	var ns uint64 = math.MaxUint64
	if timeout >= 0 {
		ns = uint64(timeout.Nanoseconds())
	}
	result := vk.WaitForFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}, vk.True, ns)
	if result == vk.Timeout {
		return ErrTimeout
	}
	return vkCheck("vkWaitForFences", result)
}

// Signaled reports the fence state without blocking.
func (f *Fence) Signaled() bool {
	return vk.GetFenceStatus(f.Device.VKDevice, f.VKFence) == vk.Success
}

// Reset returns the fence to the unsignaled state so it can be reused.
func (f *Fence) Reset() error {
	return vkCheck("vkResetFences", vk.ResetFences(f.Device.VKDevice, 1, []vk.Fence{f.VKFence}))
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
}
