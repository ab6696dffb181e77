package vkc

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// DeviceMemory maps to Vulkan DeviceMemory and can either be memory on the
// host or on the device. A DeviceMemory is exclusively owned by the wrapper
// that allocated it (a Buffer, here) and is freed exactly once.
type DeviceMemory struct {
	Device         *Device
	VKDeviceMemory vk.DeviceMemory
	Size           uint64
	mapped         bool
}

// Destroy frees this memory
func (d *DeviceMemory) Destroy() {
	vk.FreeMemory(d.Device.VKDevice, d.VKDeviceMemory, nil)
}

// IsMapped returns true if the device memory is currently mapped
func (d *DeviceMemory) IsMapped() bool {
	return d.mapped
}

// Map maps size bytes starting at offset into host address space. Vulkan
// allows at most one active mapping per allocation.
func (d *DeviceMemory) Map(offset, size uint64) (unsafe.Pointer, error) {
	if d.mapped {
		return nil, &StateError{Op: "Map", State: "already mapped"}
	}
	var res unsafe.Pointer
	err := vkCheck("vkMapMemory", vk.MapMemory(d.Device.VKDevice, d.VKDeviceMemory, vk.DeviceSize(offset), vk.DeviceSize(size), 0, &res))
	if err != nil {
		return nil, err
	}
	d.mapped = true
	return res, nil
}

// Unmap this memory
func (d *DeviceMemory) Unmap() {
	if !d.mapped {
		return
	}
	vk.UnmapMemory(d.Device.VKDevice, d.VKDeviceMemory)
	d.mapped = false
}

// Flush makes host writes to the range visible to the device. The range must
// satisfy the non-coherent atom size rules; callers go through MappedRegion,
// which aligns for them.
func (d *DeviceMemory) Flush(offset, size uint64) error {
	r := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: d.VKDeviceMemory,
		Offset: vk.DeviceSize(offset),
		Size:   vk.DeviceSize(size),
	}
	return vkCheck("vkFlushMappedMemoryRanges", vk.FlushMappedMemoryRanges(d.Device.VKDevice, 1, []vk.MappedMemoryRange{r}))
}

// Invalidate makes device writes to the range visible to the host.
func (d *DeviceMemory) Invalidate(offset, size uint64) error {
	r := vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: d.VKDeviceMemory,
		Offset: vk.DeviceSize(offset),
		Size:   vk.DeviceSize(size),
	}
	return vkCheck("vkInvalidateMappedMemoryRanges", vk.InvalidateMappedMemoryRanges(d.Device.VKDevice, 1, []vk.MappedMemoryRange{r}))
}
