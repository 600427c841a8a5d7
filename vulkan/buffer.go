package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// Buffer are used to map hunks of data that are then bound to resources used by the pipeline
// and command buffers to render data.
type Buffer struct {
	Device   *Device
	VKBuffer vk.Buffer
	Size     uint64
}

func (d *Device) CreateBufferWithOptions(sizeInBytes uint64, usage vk.BufferUsageFlags, sharing vk.SharingMode) (*Buffer, error) {
	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(sizeInBytes),
		Usage:       usage,
		SharingMode: sharing,
	}

	var buffer vk.Buffer
	err := vk.Error(vk.CreateBuffer(d.VKDevice, &bufferCreateInfo, nil, &buffer))
	if err != nil {
		return nil, err
	}

	return &Buffer{
		VKBuffer: buffer,
		Device:   d,
		Size:     sizeInBytes,
	}, nil
}

// CreateAndBindBufferAndMemory creates a buffer backed by its own memory
// allocation.
func (d *Device) CreateAndBindBufferAndMemory(size uint64, usage vk.BufferUsageFlags, mprops vk.MemoryPropertyFlagBits, sharing vk.SharingMode) (*Buffer, *DeviceMemory, error) {
	buffer, err := d.CreateBufferWithOptions(size, usage, sharing)
	if err != nil {
		return nil, nil, err
	}
	memory, err := d.AllocateForBuffer(buffer, mprops)
	if err != nil {
		buffer.Destroy()
		return nil, nil, err
	}
	if err := buffer.Bind(memory, 0); err != nil {
		memory.Destroy()
		buffer.Destroy()
		return nil, nil, err
	}
	return buffer, memory, nil
}

func (b *Buffer) VKMemoryRequirements() vk.MemoryRequirements {
	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(b.Device.VKDevice, b.VKBuffer, &memoryRequirements)
	memoryRequirements.Deref()
	return memoryRequirements
}

func (b *Buffer) AllocationRequirements() *AllocationRequirements {
	mr := b.VKMemoryRequirements()
	return &AllocationRequirements{
		Size:           int(mr.Size),
		MemoryTypeBits: mr.MemoryTypeBits,
	}
}

func (b *Buffer) Bind(memory *DeviceMemory, offset uint64) error {
	return vk.Error(vk.BindBufferMemory(b.Device.VKDevice, b.VKBuffer, memory.VKDeviceMemory, vk.DeviceSize(offset)))
}

func (b *Buffer) String() string {
	return fmt.Sprintf("{ Size: %d }", b.Size)
}

func (b *Buffer) Destroy() {
	vk.DestroyBuffer(b.Device.VKDevice, b.VKBuffer, nil)
}
