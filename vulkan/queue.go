package vulkan

import (
	"fmt"

	"github.com/celer/vkframe"
	vk "github.com/vulkan-go/vulkan"
)

type Queue struct {
	Device      *Device
	QueueFamily *QueueFamily
	VKQueue     vk.Queue
}

func (q *Queue) WaitIdle() error {
	return vk.Error(vk.QueueWaitIdle(q.VKQueue))
}

// SubmitWaitIdle submits buffers and blocks until the queue is idle. It is
// meant for one off uploads, not for the frame loop.
func (q *Queue) SubmitWaitIdle(buffers ...*CommandBuffer) error {
	b := make([]vk.CommandBuffer, len(buffers))
	for i := range buffers {
		b[i] = buffers[i].VKCommandBuffer
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(b)),
		PCommandBuffers:    b,
	}

	err := vk.Error(vk.QueueSubmit(q.VKQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence))
	if err != nil {
		return err
	}

	return q.WaitIdle()
}

// Submit submits one command buffer, waiting on info.Wait at the color
// attachment output stage and signaling info.Signal and info.Fence.
func (q *Queue) Submit(info vkframe.SubmitInfo) error {
	cb := info.CommandBuffer.(*CommandBuffer)

	waitStages := make([]vk.PipelineStageFlags, len(info.Wait))
	for i := range waitStages {
		waitStages[i] = vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	}

	fence := vk.NullFence
	if info.Fence != nil {
		fence = info.Fence.(*Fence).VKFence
	}

	submitInfo := []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   uint32(len(info.Wait)),
		PWaitSemaphores:      vkSemaphores(info.Wait),
		PWaitDstStageMask:    waitStages,
		SignalSemaphoreCount: uint32(len(info.Signal)),
		PSignalSemaphores:    vkSemaphores(info.Signal),
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.VKCommandBuffer},
	}}

	return vk.Error(vk.QueueSubmit(q.VKQueue, 1, submitInfo, fence))
}

func (q *Queue) String() string {
	return fmt.Sprintf("{Device: %s QueueFamily: %s}", q.Device.String(), q.QueueFamily.String())
}
