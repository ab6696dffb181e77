package vkc

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
}

func (q *Queue) WaitIdle() error {
	return vkCheck("vkQueueWaitIdle", vk.QueueWaitIdle(q.VKQueue))
}

// SubmitWaitIdle submits the command buffers and blocks until the queue drains.
func (q *Queue) SubmitWaitIdle(buffers ...*CommandBuffer) error {
	if err := q.submit(nil, buffers); err != nil {
		return err
	}
	return q.WaitIdle()
}

// SubmitWithFence submits the command buffers; fence signals on completion.
func (q *Queue) SubmitWithFence(fence *Fence, buffers ...*CommandBuffer) error {
	return q.submit(fence, buffers)
}

func (q *Queue) submit(fence *Fence, buffers []*CommandBuffer) error {
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(buffers)),
		PCommandBuffers:    b,
	}

	var vkFence vk.Fence = vk.NullFence
	if fence != nil {
		vkFence = fence.VKFence
	}

	return vkCheck("vkQueueSubmit", vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, vkFence))
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s}", q.Device.String(), q.QueueFamily.String())
}
