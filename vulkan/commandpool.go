package vulkan

import (
	vk "github.com/vulkan-go/vulkan"
)

type CommandPool struct {
	Device        *Device
	QueueFamily   *QueueFamily
	VKCommandPool vk.CommandPool
}

func (c *CommandPool) Destroy() {
	vk.DestroyCommandPool(c.Device.VKDevice, c.VKCommandPool, nil)
}

func (c *CommandPool) AllocateBuffers(count int) ([]*CommandBuffer, error) {
	var commandBufferAllocateInfo = vk.CommandBufferAllocateInfo{}
	commandBufferAllocateInfo.SType = vk.StructureTypeCommandBufferAllocateInfo
	commandBufferAllocateInfo.CommandPool = c.VKCommandPool
	commandBufferAllocateInfo.Level = vk.CommandBufferLevelPrimary
	commandBufferAllocateInfo.CommandBufferCount = uint32(count)

	cmdBuffers := make([]vk.CommandBuffer, count)

	err := vk.Error(vk.AllocateCommandBuffers(c.Device.VKDevice, &commandBufferAllocateInfo, cmdBuffers))
	if err != nil {
		return nil, err
	}

	ret := make([]*CommandBuffer, count)
	for i := range ret {
		ret[i] = &CommandBuffer{Pool: c, VKCommandBuffer: cmdBuffers[i]}
	}

	return ret, nil
}

func (c *CommandPool) AllocateBuffer() (*CommandBuffer, error) {
	ret, err := c.AllocateBuffers(1)
	if err != nil {
		return nil, err
	}
	return ret[0], nil
}

func (c *CommandPool) FreeBuffer(b *CommandBuffer) {
	vk.FreeCommandBuffers(c.Device.VKDevice, c.VKCommandPool, 1, []vk.CommandBuffer{b.VKCommandBuffer})
}

// CreateCommandPool creates a pool whose buffers can be reset individually,
// which the frame loop relies on to re-record a frame slot's buffer.
func (d *Device) CreateCommandPool(q *QueueFamily) (*CommandPool, error) {
	var commandPoolCreateInfo = vk.CommandPoolCreateInfo{}
	commandPoolCreateInfo.SType = vk.StructureTypeCommandPoolCreateInfo
	commandPoolCreateInfo.Flags = vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit)
	commandPoolCreateInfo.QueueFamilyIndex = uint32(q.Index)

	var commandPool vk.CommandPool

	err := vk.Error(vk.CreateCommandPool(d.VKDevice, &commandPoolCreateInfo, nil, &commandPool))
	if err != nil {
		return nil, err
	}

	return &CommandPool{
		Device:        d,
		QueueFamily:   q,
		VKCommandPool: commandPool,
	}, nil
}
