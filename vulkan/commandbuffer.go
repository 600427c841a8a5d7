package vulkan

import (
	vk "github.com/vulkan-go/vulkan"
)

// CommandBuffers describe a sequence of commands that will be executed
// upon being sent to a device queue. Not all available vulkan commands
// are wrapped by this package. It is expected that the calling application
// must call the native vulkan command APIs.
type CommandBuffer struct {
	Pool            *CommandPool
	VKCommandBuffer vk.CommandBuffer
}

// Reset this command buffer
func (c *CommandBuffer) Reset() error {
	return vk.Error(vk.ResetCommandBuffer(c.VKCommandBuffer, 0))
}

// Begin capturing work for this command buffer
func (c *CommandBuffer) Begin() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = 0
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// BeginOneTime begins capturing work for this command buffer, with the stipulation that it will only be used once (instead of put back in the pool of command buffers)
func (c *CommandBuffer) BeginOneTime() error {
	var beginInfo = vk.CommandBufferBeginInfo{}
	beginInfo.SType = vk.StructureTypeCommandBufferBeginInfo
	beginInfo.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	return vk.Error(vk.BeginCommandBuffer(c.VKCommandBuffer, &beginInfo))
}

// CmdBeginRenderPass begins renderPass on framebuffer, clearing the color
// attachment to color and the depth attachment to 1.
func (c *CommandBuffer) CmdBeginRenderPass(renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, color [4]float32) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(color[:])
	clearValues[1].SetDepthStencil(1, 0)

	renderPassBeginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(c.VKCommandBuffer, &renderPassBeginInfo, vk.SubpassContentsInline)
}

func (c *CommandBuffer) CmdEndRenderPass() {
	vk.CmdEndRenderPass(c.VKCommandBuffer)
}

// CmdCopyBuffer copies size bytes between two buffers.
func (c *CommandBuffer) CmdCopyBuffer(src, dst *Buffer, srcOffset, dstOffset, size uint64) {
	vk.CmdCopyBuffer(c.VKCommandBuffer, src.VKBuffer, dst.VKBuffer, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(srcOffset),
		DstOffset: vk.DeviceSize(dstOffset),
		Size:      vk.DeviceSize(size),
	}})
}

// End describing work for this command buffer
func (c *CommandBuffer) End() error {
	return vk.Error(vk.EndCommandBuffer(c.VKCommandBuffer))
}

// Destroy returns the command buffer to its pool.
func (c *CommandBuffer) Destroy() {
	if c.Pool != nil {
		c.Pool.FreeBuffer(c)
	}
}
