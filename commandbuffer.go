package vkc

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// CommandBuffer describes a sequence of commands that will be executed upon
// being sent to a device queue. Only the compute-relevant subset of the Vulkan
// command surface is wrapped; the native buffer is reachable through VK() for
// anything else.
type CommandBuffer struct {
	VKCommandBuffer vk.CommandBuffer
}

// VK is a utility function for accessing the native vulkan command buffer
func (c *CommandBuffer) VK() vk.CommandBuffer {
	return c.VKCommandBuffer
}

// Reset this command buffer
func (c *CommandBuffer) Reset() error {
	return vkCheck("vkResetCommandBuffer", vk.ResetCommandBuffer(c.VKCommandBuffer, 0))
}

// Begin capturing work for this command buffer
func (c *CommandBuffer) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	return vkCheck("vkBeginCommandBuffer", vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// BeginOneTime begins capturing work for this command buffer, with the
// stipulation that it will only be submitted once before being reset or freed.
func (c *CommandBuffer) BeginOneTime() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	return vkCheck("vkBeginCommandBuffer", vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// End describing work for this command buffer
func (c *CommandBuffer) End() error {
	return vkCheck("vkEndCommandBuffer", vk.EndCommandBuffer(c.VKCommandBuffer))
}

func (c *CommandBuffer) CmdBindComputePipeline(p *ComputePipeline) {
	vk.CmdBindPipeline(c.VKCommandBuffer, vk.PipelineBindPointCompute, p.VKPipeline)
}

func (c *CommandBuffer) CmdBindDescriptorSets(layout *PipelineLayout, firstSet int, descriptorSets ...*DescriptorSet) {
	sets := make([]vk.DescriptorSet, len(descriptorSets))
	for i := range descriptorSets {
		sets[i] = descriptorSets[i].VKDescriptorSet
	}
	vk.CmdBindDescriptorSets(c.VKCommandBuffer, vk.PipelineBindPointCompute,
		layout.VKPipelineLayout, uint32(firstSet), uint32(len(descriptorSets)), sets, 0, nil)
}

func (c *CommandBuffer) CmdDispatch(x, y, z uint32) {
	vk.CmdDispatch(c.VKCommandBuffer, x, y, z)
}

// CmdPushConstants records a write of data into the compute push-constant
// range at the given byte offset.
func (c *CommandBuffer) CmdPushConstants(layout *PipelineLayout, offset uint32, data []byte) {
	if len(data) == 0 {
		return
	}
	vk.CmdPushConstants(c.VKCommandBuffer, layout.VKPipelineLayout,
		vk.ShaderStageFlags(vk.ShaderStageComputeBit), offset, uint32(len(data)), unsafe.Pointer(&data[0]))
}

// CmdMemoryBarrier records a global memory barrier between the two stages.
func (c *CommandBuffer) CmdMemoryBarrier(srcStage, dstStage vk.PipelineStageFlagBits, srcAccess, dstAccess vk.AccessFlagBits) {
	barrier := vk.MemoryBarrier{
		SType:         vk.StructureTypeMemoryBarrier,
		SrcAccessMask: vk.AccessFlags(srcAccess),
		DstAccessMask: vk.AccessFlags(dstAccess),
	}
	vk.CmdPipelineBarrier(c.VKCommandBuffer,
		vk.PipelineStageFlags(srcStage), vk.PipelineStageFlags(dstStage), 0,
		1, []vk.MemoryBarrier{barrier}, 0, nil, 0, nil)
}

// CmdCopyBuffer records a buffer-to-buffer copy of size bytes.
func (c *CommandBuffer) CmdCopyBuffer(src, dst vk.Buffer, size, srcOffset, dstOffset uint64) {
	vk.CmdCopyBuffer(c.VKCommandBuffer, src, dst, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}})
}

// CmdFillBuffer records a fill of the buffer range with the 32-bit word.
func (c *CommandBuffer) CmdFillBuffer(dst vk.Buffer, offset, size uint64, word uint32) {
	vk.CmdFillBuffer(c.VKCommandBuffer, dst, vk.DeviceSize(offset), vk.DeviceSize(size), word)
}

func (c *CommandBuffer) CmdResetQueryPool(pool vk.QueryPool, firstQuery, queryCount uint32) {
	vk.CmdResetQueryPool(c.VKCommandBuffer, pool, firstQuery, queryCount)
}

func (c *CommandBuffer) CmdWriteTimestamp(stage vk.PipelineStageFlagBits, pool vk.QueryPool, query uint32) {
	vk.CmdWriteTimestamp(c.VKCommandBuffer, stage, pool, query)
}
