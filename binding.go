package vkc

import (
	vk "github.com/vulkan-go/vulkan"
)

// BufferBinding declares one descriptor a compute program reads or writes: a
// buffer range bound at (set, binding). The binding set is frozen when the
// program is built; a Buffer must outlive every program bound to it.
type BufferBinding struct {
	Set     int
	Binding int
	Type    vk.DescriptorType
	Buffer  *Buffer
	Offset  uint64
	// Range is the bound size in bytes; zero means the remainder of the
	// buffer past Offset.
	Range uint64
}

func (b *BufferBinding) resolvedRange() uint64 {
	if b.Range == 0 {
		return b.Buffer.Size - b.Offset
	}
	return b.Range
}

// minOffsetAlignment returns the device's minimum buffer-offset alignment for
// a descriptor type. Uniform and storage limits differ.
func minOffsetAlignment(info *DeviceInfo, dtype vk.DescriptorType) uint64 {
	if dtype == vk.DescriptorTypeUniformBuffer {
		return info.MinUniformBufferOffsetAlignment
	}
	return info.MinStorageBufferOffsetAlignment
}

// validateBindings checks every entry before any GPU object exists: supported
// descriptor type, offset alignment appropriate to the type, and the bound
// range inside its buffer.
func validateBindings(info *DeviceInfo, bindings []BufferBinding) error {
	for i, b := range bindings {
		if b.Buffer == nil {
			return configErrorf("binding %d (set=%d binding=%d) has no buffer", i, b.Set, b.Binding)
		}
		if b.Set < 0 || b.Binding < 0 {
			return configErrorf("binding %d has negative set or binding index", i)
		}
		if b.Type != vk.DescriptorTypeStorageBuffer && b.Type != vk.DescriptorTypeUniformBuffer {
			return configErrorf("binding %d has unsupported descriptor type %d", i, b.Type)
		}
		if align := minOffsetAlignment(info, b.Type); align > 0 && b.Offset%align != 0 {
			return configErrorf("binding %d offset %d is not aligned to %d", i, b.Offset, align)
		}
		if b.Offset >= b.Buffer.Size {
			return &RangeError{Op: "binding offset", Offset: b.Offset, Len: 0, Size: b.Buffer.Size}
		}
		if r := b.resolvedRange(); r > b.Buffer.Size || b.Offset > b.Buffer.Size-r {
			return &RangeError{Op: "binding range", Offset: b.Offset, Len: r, Size: b.Buffer.Size}
		}
	}
	return nil
}

// groupBindingsBySet buckets the flat binding list by set index. Set indices
// below the highest used index but with no entries appear as empty groups, so
// the caller can emit placeholder layouts and keep set numbering contiguous.
func groupBindingsBySet(bindings []BufferBinding) [][]BufferBinding {
	maxSet := -1
	for _, b := range bindings {
		if b.Set > maxSet {
			maxSet = b.Set
		}
	}
	if maxSet < 0 {
		return nil
	}

	groups := make([][]BufferBinding, maxSet+1)
	for _, b := range bindings {
		groups[b.Set] = append(groups[b.Set], b)
	}
	return groups
}

// descriptorCounts tallies how many descriptors of each type the binding list
// needs, for sizing the descriptor pool.
func descriptorCounts(bindings []BufferBinding) map[vk.DescriptorType]int {
	counts := make(map[vk.DescriptorType]int)
	for _, b := range bindings {
		counts[b.Type]++
	}
	return counts
}
