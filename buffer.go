package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// UsageClass selects what a buffer will be bound as.
type UsageClass int

const (
	// UsageStorage is a shader storage buffer, also copyable in both directions.
	UsageStorage UsageClass = iota
	// UsageUniform is a shader uniform buffer, copyable into.
	UsageUniform
	// UsageStaging is a host-side buffer used to feed or drain device-local buffers.
	UsageStaging
	// UsageTransfer is a copy source/destination with no shader binding.
	UsageTransfer
)

func (u UsageClass) String() string {
	switch u {
	case UsageStorage:
		return "storage"
	case UsageUniform:
		return "uniform"
	case UsageStaging:
		return "staging"
	case UsageTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

func (u UsageClass) bufferUsageFlags() vk.BufferUsageFlags {
	switch u {
	case UsageUniform:
		return vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit | vk.BufferUsageTransferDstBit | vk.BufferUsageTransferSrcBit)
	case UsageStaging, UsageTransfer:
		return vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	default:
		return vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit | vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	}
}

// HostAccess declares which mapping directions a buffer must support.
type HostAccess int

const (
	// HostAccessNone requests device-local memory; the buffer is never mapped.
	HostAccessNone HostAccess = iota
	HostAccessWrite
	HostAccessRead
	HostAccessReadWrite
)

func (h HostAccess) String() string {
	switch h {
	case HostAccessNone:
		return "none"
	case HostAccessWrite:
		return "write"
	case HostAccessRead:
		return "read"
	case HostAccessReadWrite:
		return "read-write"
	default:
		return "unknown"
	}
}

func (h HostAccess) canWrite() bool {
	return h == HostAccessWrite || h == HostAccessReadWrite
}

func (h HostAccess) canRead() bool {
	return h == HostAccessRead || h == HostAccessReadWrite
}

// fallbackChain derives the memory property flags to try, in order, for a
// host-access mode. Device-local is requested alone and has no fallback.
func fallbackChain(access HostAccess) []vk.MemoryPropertyFlags {
	if access == HostAccessNone {
		return []vk.MemoryPropertyFlags{
			vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		}
	}
	return []vk.MemoryPropertyFlags{
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCachedBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit),
	}
}

// Buffer owns one vk.Buffer handle and its backing allocation. The allocation
// is exclusive to this Buffer and freed exactly once by Destroy.
type Buffer struct {
	Device   *Device
	VKBuffer vk.Buffer
	Memory   *DeviceMemory
	Size     uint64
	Usage    UsageClass
	Access   HostAccess

	// MemoryFlags are the property flags of the memory type the allocation
	// actually landed on after the fallback chain ran.
	MemoryFlags vk.MemoryPropertyFlags
	// Coherent is true when the allocation is host-coherent and therefore
	// needs no explicit flush/invalidate calls.
	Coherent bool

	destroyed bool
}

// CreateBuffer allocates a buffer of the given size. The host-access mode
// drives memory placement: HostAccessNone requests device-local memory with
// no fallback, any host access tries host-visible+coherent first, then
// host-visible+cached, then plain host-visible.
func (d *Device) CreateBuffer(sizeInBytes uint64, usage UsageClass, access HostAccess) (*Buffer, error) {
	if sizeInBytes == 0 {
		return nil, configErrorf("buffer size cannot be zero")
	}

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(sizeInBytes),
		Usage:       usage.bufferUsageFlags(),
		SharingMode: vk.SharingModeExclusive,
	}

	var vkBuffer vk.Buffer
	err := vkCheck("vkCreateBuffer", vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &vkBuffer))
	if err != nil {
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.VKDevice, vkBuffer, &memoryRequirements)
	memoryRequirements.Deref()

	var memory *DeviceMemory
	var resolved vk.MemoryPropertyFlags
	var lastErr error
	for _, props := range fallbackChain(access) {
		memory, lastErr = d.Allocate(uint64(memoryRequirements.Size), memoryRequirements.MemoryTypeBits, props)
		if lastErr == nil {
			resolved = props
			break
		}
	}
	if memory == nil {
		vk.DestroyBuffer(d.VKDevice, vkBuffer, nil)
		if access == HostAccessNone {
			return nil, fmt.Errorf("device-local allocation failed: %w", lastErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrOutOfMemory, lastErr)
	}

	err = vkCheck("vkBindBufferMemory", vk.BindBufferMemory(d.VKDevice, vkBuffer, memory.VKDeviceMemory, 0))
	if err != nil {
		memory.Destroy()
		vk.DestroyBuffer(d.VKDevice, vkBuffer, nil)
		return nil, err
	}

	// Record the flags of the memory type we actually landed on, so callers
	// can see whether the fallback chain downgraded them.
	idx, _ := d.Info.SelectMemory(memoryRequirements.MemoryTypeBits, resolved)
	actual := d.Info.MemoryTypes[idx].PropertyFlags

	return &Buffer{
		Device:      d,
		VKBuffer:    vkBuffer,
		Memory:      memory,
		Size:        sizeInBytes,
		Usage:       usage,
		Access:      access,
		MemoryFlags: actual,
		Coherent:    actual&vk.MemoryPropertyFlags(vk.MemoryPropertyHostCoherentBit) != 0,
	}, nil
}

// Destroy releases the buffer handle and its allocation. Safe to call more
// than once.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	if b.Memory != nil {
		b.Memory.Unmap()
		b.Memory.Destroy()
		b.Memory = nil
	}
	vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
	b.destroyed = true
}

func (b *Buffer) validateRange(op string, offset, length uint64) error {
	// Phrased to avoid offset+length wrapping around for huge inputs.
	if length == 0 || length > b.Size || offset > b.Size-length {
		return &RangeError{Op: op, Offset: offset, Len: length, Size: b.Size}
	}
	return nil
}

// MapWrite maps [offset, offset+length) for host writing. The underlying
// mapping is expanded to the device's non-coherent atom size; the returned
// region's pointer is shifted to the requested offset. Releasing the region
// flushes the aligned range (a no-op on coherent memory) and unmaps.
func (b *Buffer) MapWrite(offset, length uint64) (*MappedRegion, error) {
	if !b.Access.canWrite() {
		return nil, &AccessModeError{Op: "MapWrite", Mode: b.Access}
	}
	return b.mapRange("MapWrite", offset, length, true)
}

// MapRead maps [offset, offset+length) for host reading. The aligned range is
// invalidated immediately upon mapping, before any read, so device writes
// completed prior to the call are visible.
func (b *Buffer) MapRead(offset, length uint64) (*MappedRegion, error) {
	if !b.Access.canRead() {
		return nil, &AccessModeError{Op: "MapRead", Mode: b.Access}
	}
	return b.mapRange("MapRead", offset, length, false)
}

func (b *Buffer) mapRange(op string, offset, length uint64, write bool) (*MappedRegion, error) {
	if b.destroyed {
		return nil, &StateError{Op: op, State: "buffer destroyed"}
	}
	if err := b.validateRange(op, offset, length); err != nil {
		return nil, err
	}

	alignedOffset, alignedLen := alignedRange(offset, length, b.Device.Info.NonCoherentAtomSize, b.Size)

	ptr, err := b.Memory.Map(alignedOffset, alignedLen)
	if err != nil {
		return nil, err
	}

	region := &MappedRegion{
		buffer:        b,
		base:          ptr,
		offset:        offset,
		length:        length,
		alignedOffset: alignedOffset,
		alignedLen:    alignedLen,
		write:         write,
	}

	if !write && !b.Coherent {
		if err := b.Memory.Invalidate(alignedOffset, alignedLen); err != nil {
			b.Memory.Unmap()
			return nil, err
		}
	}

	return region, nil
}

// CopyTo records a device-side copy of length bytes from this buffer into dst
// and blocks until it completes.
func (b *Buffer) CopyTo(dst *Buffer, length, srcOffset, dstOffset uint64) error {
	handle, err := b.CopyToAsync(dst, length, srcOffset, dstOffset)
	if err != nil {
		return err
	}
	return handle.Wait(-1)
}

// CopyToAsync is CopyTo without the blocking wait; the returned SubmitHandle
// must be waited on, which also reclaims the transient command buffer.
func (b *Buffer) CopyToAsync(dst *Buffer, length, srcOffset, dstOffset uint64) (*SubmitHandle, error) {
	if err := b.validateRange("copy source", srcOffset, length); err != nil {
		return nil, err
	}
	if err := dst.validateRange("copy destination", dstOffset, length); err != nil {
		return nil, err
	}

	pool := b.Device.transferPool
	cb, err := pool.AllocateBuffer()
	if err != nil {
		return nil, err
	}
	cleanup := func() { pool.FreeBuffer(cb) }

	if err := cb.BeginOneTime(); err != nil {
		cleanup()
		return nil, err
	}
	cb.CmdCopyBuffer(b.VKBuffer, dst.VKBuffer, length, srcOffset, dstOffset)
	cb.CmdMemoryBarrier(vk.PipelineStageTransferBit, vk.PipelineStageHostBit,
		vk.AccessTransferWriteBit, vk.AccessHostReadBit)
	if err := cb.End(); err != nil {
		cleanup()
		return nil, err
	}

	fence, err := b.Device.CreateFence()
	if err != nil {
		cleanup()
		return nil, err
	}

	if err := b.Device.Queue.SubmitWithFence(fence, cb); err != nil {
		fence.Destroy()
		cleanup()
		return nil, err
	}

	return &SubmitHandle{device: b.Device, fence: fence, command: cb, pool: pool}, nil
}

// Store copies data into the buffer at dstOffset. Host-visible buffers are
// written through a mapping; device-local buffers go through a transient
// staging buffer and a device-side copy.
func (b *Buffer) Store(data []byte, dstOffset uint64) error {
	if err := b.validateRange("Store", dstOffset, uint64(len(data))); err != nil {
		return err
	}

	if b.Access.canWrite() {
		region, err := b.MapWrite(dstOffset, uint64(len(data)))
		if err != nil {
			return err
		}
		copy(region.Bytes(), data)
		return region.Release()
	}

	staging, err := b.Device.CreateBuffer(uint64(len(data)), UsageStaging, HostAccessWrite)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	if err := staging.Store(data, 0); err != nil {
		return err
	}
	return staging.CopyTo(b, uint64(len(data)), 0, dstOffset)
}

// Load copies length bytes starting at srcOffset out of the buffer. The
// staging path mirrors Store for buffers the host cannot map.
func (b *Buffer) Load(dst []byte, srcOffset uint64) error {
	if err := b.validateRange("Load", srcOffset, uint64(len(dst))); err != nil {
		return err
	}

	if b.Access.canRead() {
		region, err := b.MapRead(srcOffset, uint64(len(dst)))
		if err != nil {
			return err
		}
		copy(dst, region.Bytes())
		return region.Release()
	}

	staging, err := b.Device.CreateBuffer(uint64(len(dst)), UsageStaging, HostAccessRead)
	if err != nil {
		return err
	}
	defer staging.Destroy()

	if err := b.CopyTo(staging, uint64(len(dst)), srcOffset, 0); err != nil {
		return err
	}
	return staging.Load(dst, 0)
}

// Fill overwrites the buffer from offset to its end with the 32-bit word,
// using the device transfer queue. offset must be a multiple of 4.
func (b *Buffer) Fill(word uint32, offset uint64) error {
	if offset%4 != 0 {
		return configErrorf("fill offset %d is not a multiple of 4", offset)
	}
	if err := b.validateRange("Fill", offset, b.Size-offset); err != nil {
		return err
	}

	pool := b.Device.transferPool
	cb, err := pool.AllocateBuffer()
	if err != nil {
		return err
	}
	defer pool.FreeBuffer(cb)

	if err := cb.BeginOneTime(); err != nil {
		return err
	}
	cb.CmdFillBuffer(b.VKBuffer, offset, b.Size-offset, word)
	if err := cb.End(); err != nil {
		return err
	}

	fence, err := b.Device.CreateFence()
	if err != nil {
		return err
	}
	defer fence.Destroy()

	if err := b.Device.Queue.SubmitWithFence(fence, cb); err != nil {
		return err
	}
	return fence.Wait(-1)
}

// Clear zeroes the entire buffer.
func (b *Buffer) Clear() error {
	return b.Fill(0, 0)
}
