package vulkan

import (
	"fmt"
	"time"

	"github.com/celer/vkframe"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// Device is a logical device together with the queues and command pool the
// frame loop submits through. It implements vkframe.Device.
type Device struct {
	PhysicalDevice *PhysicalDevice
	VKDevice       vk.Device

	GraphicsQueue *Queue
	PresentQueue  *Queue
	CommandPool   *CommandPool
}

var _ vkframe.Device = (*Device)(nil)

func (d *Device) Destroy() {
	if d.CommandPool != nil {
		d.CommandPool.Destroy()
		d.CommandPool = nil
	}
	vk.DestroyDevice(d.VKDevice, nil)
}

func (d *Device) String() string {
	return fmt.Sprintf("{ PhysicalDevice: %s }", d.PhysicalDevice)
}

// WaitIdle blocks until every queue of the device is idle.
func (d *Device) WaitIdle() error {
	return vk.Error(vk.DeviceWaitIdle(d.VKDevice))
}

func (d *Device) GetQueue(qf *QueueFamily) *Queue {
	var vkq vk.Queue

	vk.GetDeviceQueue(d.VKDevice, uint32(qf.Index), 0, &vkq)

	return &Queue{
		QueueFamily: qf,
		Device:      d,
		VKQueue:     vkq,
	}
}

// AllocateCommandBuffer allocates a primary command buffer from the graphics
// command pool.
func (d *Device) AllocateCommandBuffer() (vkframe.CommandBuffer, error) {
	if d.CommandPool == nil {
		return nil, fmt.Errorf("device has no command pool")
	}
	cb, err := d.CommandPool.AllocateBuffer()
	if err != nil {
		return nil, err
	}
	return cb, nil
}

// Submit submits info to the graphics queue. Every wait semaphore waits at the
// color attachment output stage.
func (d *Device) Submit(info vkframe.SubmitInfo) error {
	return d.GraphicsQueue.Submit(info)
}

// WaitForFence waits for f. A vk.Timeout result is reported as
// vkframe.ErrFenceTimeout and vk.ErrorDeviceLost as vkframe.ErrDeviceLost.
func (d *Device) WaitForFence(f vkframe.Fence, timeout time.Duration) error {
	fence := f.(*Fence)
	res := vk.WaitForFences(d.VKDevice, 1, []vk.Fence{fence.VKFence}, vk.True, uint64(timeout.Nanoseconds()))
	switch res {
	case vk.Success:
		return nil
	case vk.Timeout:
		vkframe.Logger().Warn("fence wait timed out", zap.Duration("timeout", timeout))
		return fmt.Errorf("after %s: %w", timeout, vkframe.ErrFenceTimeout)
	case vk.ErrorDeviceLost:
		return fmt.Errorf("%w: %w", vkframe.ErrDeviceLost, vk.Error(res))
	}
	return vk.Error(res)
}

func (d *Device) ResetFence(f vkframe.Fence) error {
	fence := f.(*Fence)
	return vk.Error(vk.ResetFences(d.VKDevice, 1, []vk.Fence{fence.VKFence}))
}

type AllocationRequirements struct {
	Size           int
	MemoryTypeBits uint32
}

func (d *Device) AllocateForBuffer(b *Buffer, memoryProperties vk.MemoryPropertyFlagBits) (*DeviceMemory, error) {
	ar := b.AllocationRequirements()
	return d.Allocate(ar.Size, ar.MemoryTypeBits, memoryProperties)
}

// Allocate allocates sizeInBytes of device memory from the first memory type
// allowed by memoryTypeBits that has memoryProperties.
func (d *Device) Allocate(sizeInBytes int, memoryTypeBits uint32, memoryProperties vk.MemoryPropertyFlagBits) (*DeviceMemory, error) {
	var allocateInfo = vk.MemoryAllocateInfo{}
	allocateInfo.SType = vk.StructureTypeMemoryAllocateInfo
	allocateInfo.AllocationSize = vk.DeviceSize(sizeInBytes)

	var err error

	allocateInfo.MemoryTypeIndex, err = d.PhysicalDevice.FindMemoryType(
		memoryTypeBits,
		memoryProperties)
	if err != nil {
		return nil, err
	}

	var deviceMemory vk.DeviceMemory

	err = vk.Error(vk.AllocateMemory(d.VKDevice, &allocateInfo, nil, &deviceMemory))
	if err != nil {
		return nil, fmt.Errorf("allocating %d bytes: %w", sizeInBytes, err)
	}

	return &DeviceMemory{
		Size:           uint64(sizeInBytes),
		Device:         d,
		VKDeviceMemory: deviceMemory,
	}, nil
}
