package vkc

import (
	vk "github.com/vulkan-go/vulkan"
)

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties

	info *DeviceInfo
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

// MemoryTypeInfo is one entry of the device's memory-type table, copied out of
// the driver structures so selection can run on plain go values.
type MemoryTypeInfo struct {
	PropertyFlags vk.MemoryPropertyFlags
	HeapIndex     uint32
}

// DeviceInfo is the read-only descriptor of a physical device: the limit
// constants and capability flags the rest of the package consults. It is
// queried exactly once per PhysicalDevice and cached.
type DeviceInfo struct {
	Name     string
	Type     vk.PhysicalDeviceType
	VendorID uint32

	MaxPushConstantsSize    uint32
	MaxWorkgroupSize        [3]uint32
	MaxWorkgroupInvocations uint32
	MaxWorkgroupCount       [3]uint32

	MinUniformBufferOffsetAlignment uint64
	MinStorageBufferOffsetAlignment uint64
	NonCoherentAtomSize             uint64

	TimestampPeriod float32

	RobustBufferAccess bool

	MemoryTypes []MemoryTypeInfo
}

// Info queries and caches the device descriptor. Subsequent calls return the
// cached copy; the driver state it reflects is immutable anyway.
func (p *PhysicalDevice) Info() *DeviceInfo {
	if p.info != nil {
		return p.info
	}

	props := p.VKPhysicalDeviceProperties
	limits := props.Limits
	limits.Deref()

	var features vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VKPhysicalDevice, &features)
	features.Deref()

	info := &DeviceInfo{
		Name:     p.DeviceName,
		Type:     props.DeviceType,
		VendorID: props.VendorID,

		MaxPushConstantsSize:    limits.MaxPushConstantsSize,
		MaxWorkgroupSize:        limits.MaxComputeWorkGroupSize,
		MaxWorkgroupInvocations: limits.MaxComputeWorkGroupInvocations,
		MaxWorkgroupCount:       limits.MaxComputeWorkGroupCount,

		MinUniformBufferOffsetAlignment: uint64(limits.MinUniformBufferOffsetAlignment),
		MinStorageBufferOffsetAlignment: uint64(limits.MinStorageBufferOffsetAlignment),
		NonCoherentAtomSize:             uint64(limits.NonCoherentAtomSize),

		TimestampPeriod: limits.TimestampPeriod,

		RobustBufferAccess: features.RobustBufferAccess == vk.True,
	}

	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	info.MemoryTypes = make([]MemoryTypeInfo, 0, memoryProperties.MemoryTypeCount)
	var i uint32
	for i = 0; i < memoryProperties.MemoryTypeCount; i++ {
		mt := memoryProperties.MemoryTypes[i]
		mt.Deref()
		info.MemoryTypes = append(info.MemoryTypes, MemoryTypeInfo{
			PropertyFlags: mt.PropertyFlags,
			HeapIndex:     mt.HeapIndex,
		})
	}

	p.info = info
	return info
}

// SelectMemory returns the index of the first memory type whose bit is set in
// typeBits and whose property flags are a superset of required. It never
// returns an index missing any requested flag.
func (d *DeviceInfo) SelectMemory(typeBits uint32, required vk.MemoryPropertyFlags) (uint32, error) {
	for i, mt := range d.MemoryTypes {
		if typeBits&(1<<uint(i)) != 0 && mt.PropertyFlags&required == required {
			return uint32(i), nil
		}
	}
	return 0, ErrNoSuitableMemoryType
}

// QueueFamilies enumerates the queue families of this device.
func (p *PhysicalDevice) QueueFamilies() (QueueFamilySlice, error) {
	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, nil)
	if queueFamilyCount == 0 {
		return nil, nil
	}

	queues := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, queues)

	ret := make([]*QueueFamily, queueFamilyCount)
	for i, queue := range queues {
		ret[i] = &QueueFamily{Index: i, PhysicalDevice: p, VKQueueFamilyProperties: queue}
		ret[i].VKQueueFamilyProperties.Deref()
	}
	return ret, nil
}

// ComputeFamily picks the queue family dispatches will run on, preferring a
// family that supports compute but not graphics when one exists.
func (p *PhysicalDevice) ComputeFamily() (*QueueFamily, error) {
	families, err := p.QueueFamilies()
	if err != nil {
		return nil, err
	}
	compute := families.FilterCompute()
	if len(compute) == 0 {
		return nil, ErrNoComputeQueue
	}
	for _, qf := range compute {
		if !qf.IsGraphics() {
			return qf, nil
		}
	}
	return compute[0], nil
}

// HasComputeQueue reports whether any queue family of this device supports compute.
func (p *PhysicalDevice) HasComputeQueue() bool {
	families, err := p.QueueFamilies()
	if err != nil {
		return false
	}
	return len(families.FilterCompute()) > 0
}

// SupportedExtensions lists device extensions exposed by the driver.
func (p *PhysicalDevice) SupportedExtensions() ([]string, error) {
	var count uint32
	err := vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, nil))
	if err != nil {
		return nil, err
	}
	ext := make([]vk.ExtensionProperties, count)
	err = vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, ext))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, count)
	for _, e := range ext {
		e.Deref()
		names = append(names, vk.ToString(e.ExtensionName[:]))
	}
	return names, nil
}

// VendorName returns a readable vendor name from the PCI vendor ID, based on
// vulkan.gpuinfo.org entries.
func (p *PhysicalDevice) VendorName() string {
	switch p.Info().VendorID {
	case 0x10DE:
		return "NVIDIA"
	case 0x1002:
		return "AMD"
	case 0x8086:
		return "Intel"
	case 0x106B:
		return "Apple"
	case 0x13B5:
		return "ARM"
	case 0x5143:
		return "Qualcomm"
	default:
		return "UNKNOWN"
	}
}

// DeviceTypeString names a physical device type for diagnostics.
func DeviceTypeString(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated GPU"
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete GPU"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual GPU"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	default:
		return "other"
	}
}

func scoreDeviceType(t vk.PhysicalDeviceType) int {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return 500
	case vk.PhysicalDeviceTypeVirtualGpu:
		return 250
	case vk.PhysicalDeviceTypeCpu:
		return 100
	default:
		return 10
	}
}

type deviceCandidate struct {
	index      int
	deviceType vk.PhysicalDeviceType
	hasCompute bool
}

// pickDevice applies the selection policy over pre-queried candidates. A
// caller-preferred index wins if it names a device with a compute queue;
// otherwise the highest-scoring compute-capable candidate is chosen.
func pickDevice(candidates []deviceCandidate, preferred int) (int, error) {
	if preferred >= 0 && preferred < len(candidates) && candidates[preferred].hasCompute {
		return preferred, nil
	}
	best := -1
	bestScore := -1
	for _, c := range candidates {
		if !c.hasCompute {
			continue
		}
		if score := scoreDeviceType(c.deviceType); score > bestScore {
			best = c.index
			bestScore = score
		}
	}
	if best < 0 {
		return -1, ErrNoComputeQueue
	}
	return best, nil
}

// SelectPhysicalDevice selects a device for compute work. preferred names a
// device index to use if it is valid and compute capable; pass a negative
// value to score all devices (discrete > integrated > cpu > other).
func SelectPhysicalDevice(devices []*PhysicalDevice, preferred int) (*PhysicalDevice, error) {
	candidates := make([]deviceCandidate, len(devices))
	for i, d := range devices {
		candidates[i] = deviceCandidate{
			index:      i,
			deviceType: d.Info().Type,
			hasCompute: d.HasComputeQueue(),
		}
	}
	idx, err := pickDevice(candidates, preferred)
	if err != nil {
		return nil, err
	}
	return devices[idx], nil
}
