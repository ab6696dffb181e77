package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Device is a logical device configured for compute work. It owns one compute
// queue and one internal command pool used for transfer operations; both live
// exactly as long as the Device. Buffers and ComputePrograms hold a non-owning
// back-reference to their Device and must not outlive it.
type Device struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device
	Info           *DeviceInfo
	Queue          *Queue
	QueueFamily    *QueueFamily

	// TimestampsSupported is true when the compute queue family reports valid
	// timestamp bits and the device has a nonzero timestamp period.
	TimestampsSupported bool

	transferPool *CommandPool
	destroyed    bool
}

type CreateDeviceOptions struct {
	EnabledExtensions []string
	EnabledLayers     []string
}

// CreateComputeDevice builds a logical device around the physical device's
// compute queue family. It fails with ErrNoComputeQueue when the device has
// no compute-capable family.
func (p *PhysicalDevice) CreateComputeDevice() (*Device, error) {
	return p.CreateComputeDeviceWithOptions(nil)
}

func (p *PhysicalDevice) CreateComputeDeviceWithOptions(options *CreateDeviceOptions) (*Device, error) {
	family, err := p.ComputeFamily()
	if err != nil {
		return nil, err
	}

	queueCreateInfo := vk.DeviceQueueCreateInfo{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: uint32(family.Index),
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}

	var deviceFeatures vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VKPhysicalDevice, &deviceFeatures)

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos:    []vk.DeviceQueueCreateInfo{queueCreateInfo},
		PEnabledFeatures:     []vk.PhysicalDeviceFeatures{deviceFeatures},
	}

	if options != nil {
		if options.EnabledExtensions != nil {
			deviceCreateInfo.EnabledExtensionCount = uint32(len(options.EnabledExtensions))
			deviceCreateInfo.PpEnabledExtensionNames = safeStrings(options.EnabledExtensions)
		}
		if options.EnabledLayers != nil {
			deviceCreateInfo.EnabledLayerCount = uint32(len(options.EnabledLayers))
			deviceCreateInfo.PpEnabledLayerNames = safeStrings(options.EnabledLayers)
		}
	}

	var ldevice vk.Device
	err = vkCheck("vkCreateDevice", vk.CreateDevice(p.VKPhysicalDevice, &deviceCreateInfo, nil, &ldevice))
	if err != nil {
		return nil, err
	}

	device := &Device{
		PhysicalDevice: p,
		VKDevice:       ldevice,
		Info:           p.Info(),
		QueueFamily:    family,
	}

	var vkq vk.Queue
	vk.GetDeviceQueue(ldevice, uint32(family.Index), 0, &vkq)
	device.Queue = &Queue{Device: device, QueueFamily: family, VKQueue: vkq}

	device.TimestampsSupported = family.TimestampValidBits() > 0 && device.Info.TimestampPeriod > 0

	pool, err := device.CreateCommandPool(family)
	if err != nil {
		vk.DestroyDevice(ldevice, nil)
		return nil, fmt.Errorf("creating transfer command pool: %w", err)
	}
	device.transferPool = pool

	return device, nil
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

func (d *Device) WaitIdle() error {
	return vkCheck("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.VKDevice))
}

// Destroy waits for the device to go idle and releases the transfer pool and
// the device itself. Safe to call more than once.
func (d *Device) Destroy() {
	if d.destroyed {
		return
	}
	vk.DeviceWaitIdle(d.VKDevice)
	if d.transferPool != nil {
		d.transferPool.Destroy()
		d.transferPool = nil
	}
	vk.DestroyDevice(d.VKDevice, nil)
	d.destroyed = true
}

// Allocate allocates device memory of the given size from a memory type that
// matches memoryTypeBits and carries all of the requested property flags.
func (d *Device) Allocate(sizeInBytes uint64, memoryTypeBits uint32, memoryProperties vk.MemoryPropertyFlags) (*DeviceMemory, error) {
	typeIndex, err := d.Info.SelectMemory(memoryTypeBits, memoryProperties)
	if err != nil {
		return nil, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(sizeInBytes),
		MemoryTypeIndex: typeIndex,
	}

	var deviceMemory vk.DeviceMemory
	err = vkCheck("vkAllocateMemory", vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory))
	if err != nil {
		return nil, err
	}

	return &DeviceMemory{
		Device:         d,
		VKDeviceMemory: deviceMemory,
		Size:           sizeInBytes,
	}, nil
}
