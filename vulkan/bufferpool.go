package vulkan

import (
	"errors"
	"fmt"

	"github.com/celer/vkframe"
	units "github.com/docker/go-units"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// ErrPoolExhausted is returned when a pool has no gap large enough for a
// buffer.
var ErrPoolExhausted = errors.New("insufficient storage space in buffer pool")

// BufferPool sub allocates buffers from a single device memory allocation.
// Vulkan limits the number of memory allocations an application may make, so
// buffers that live as long as the pool should come from one.
//
// Host visible pools are persistently mapped and their buffers expose their
// bytes directly. Device local pools need a staging copy.
type BufferPool struct {
	Device           *Device
	Name             string
	Usage            vk.BufferUsageFlagBits
	MemoryProperties vk.MemoryPropertyFlagBits
	Size             uint64
	Allocator        *LinearAllocator
	Memory           *DeviceMemory
	NeedsStaging     bool
}

// CreateHostBufferPool creates a host visible, coherent pool.
func (d *Device) CreateHostBufferPool(name string, size uint64, usage vk.BufferUsageFlagBits) (*BufferPool, error) {
	return d.CreateBufferPool(name, size, vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit, usage)
}

// CreateBufferPool allocates size bytes of memory with mprops suitable for
// buffers with usage.
func (d *Device) CreateBufferPool(name string, size uint64, mprops vk.MemoryPropertyFlagBits, usage vk.BufferUsageFlagBits) (*BufferPool, error) {
	p := &BufferPool{
		Device:           d,
		Name:             name,
		Usage:            usage,
		MemoryProperties: mprops,
		Size:             size,
		Allocator:        &LinearAllocator{Size: size},
		NeedsStaging:     mprops&vk.MemoryPropertyHostVisibleBit == 0,
	}

	if p.NeedsStaging {
		usage |= vk.BufferUsageTransferDstBit
		p.Usage = usage
	}

	// a throwaway buffer tells us which memory types the pool's buffers accept
	probe, err := d.CreateBufferWithOptions(size, vk.BufferUsageFlags(usage), vk.SharingModeExclusive)
	if err != nil {
		return nil, fmt.Errorf("buffer pool %q: %w", name, err)
	}
	mr := probe.VKMemoryRequirements()
	probe.Destroy()

	memory, err := d.Allocate(int(size), mr.MemoryTypeBits, mprops)
	if err != nil {
		return nil, fmt.Errorf("buffer pool %q: %w", name, err)
	}
	p.Memory = memory

	if !p.NeedsStaging {
		if _, err := memory.Map(); err != nil {
			memory.Destroy()
			return nil, fmt.Errorf("mapping buffer pool %q: %w", name, err)
		}
	}

	vkframe.Logger().Debug("buffer pool created",
		zap.String("pool", name),
		zap.String("size", units.BytesSize(float64(size))),
		zap.Bool("staging", p.NeedsStaging))
	return p, nil
}

// AllocateBuffer creates a buffer of size bytes bound to a range of the pool.
func (p *BufferPool) AllocateBuffer(size uint64, usage vk.BufferUsageFlagBits) (*BufferResource, error) {
	buffer, err := p.Device.CreateBufferWithOptions(size, vk.BufferUsageFlags(usage|p.Usage), vk.SharingModeExclusive)
	if err != nil {
		return nil, err
	}

	mr := buffer.VKMemoryRequirements()

	allocation := p.Allocator.Allocate(uint64(mr.Size), uint64(mr.Alignment))
	if allocation == nil {
		buffer.Destroy()
		return nil, fmt.Errorf("pool %q, %s of %s used, requested %s: %w", p.Name,
			units.BytesSize(float64(p.Allocator.Used())), units.BytesSize(float64(p.Size)),
			units.BytesSize(float64(size)), ErrPoolExhausted)
	}

	if err := buffer.Bind(p.Memory, allocation.Offset); err != nil {
		p.Allocator.Free(allocation)
		buffer.Destroy()
		return nil, err
	}

	return &BufferResource{
		Buffer:     *buffer,
		Pool:       p,
		Allocation: allocation,
	}, nil
}

// Destroy frees the pool's memory. Buffers allocated from the pool must be
// destroyed first.
func (p *BufferPool) Destroy() {
	if used := p.Allocator.Used(); used > 0 {
		vkframe.Logger().Warn("buffer pool destroyed with live buffers",
			zap.String("pool", p.Name), zap.String("used", units.BytesSize(float64(used))))
	}
	p.Allocator.Reset()
	if p.Memory != nil {
		p.Memory.Destroy()
		p.Memory = nil
	}
}

// BufferResource is a buffer, for example a vertex buffer or a UBO, which has
// been allocated from a BufferPool.
type BufferResource struct {
	Buffer
	Pool       *BufferPool
	Allocation *Allocation
}

// RequiresStaging reports whether the buffer lives in device local memory and
// must be filled through a staging copy.
func (r *BufferResource) RequiresStaging() bool {
	return r.Pool.NeedsStaging
}

// VKMappedMemoryRange describes the buffer's range for flushing.
func (r *BufferResource) VKMappedMemoryRange() vk.MappedMemoryRange {
	return vk.MappedMemoryRange{
		SType:  vk.StructureTypeMappedMemoryRange,
		Memory: r.Pool.Memory.VKDeviceMemory,
		Offset: vk.DeviceSize(r.Allocation.Offset),
		Size:   vk.DeviceSize(r.Allocation.Size),
	}
}

// Bytes returns the mapped bytes of the buffer, or nil if the pool is not
// host visible.
func (r *BufferResource) Bytes() []byte {
	if r.RequiresStaging() || r.Pool.Memory == nil || r.Pool.Memory.Ptr == nil {
		return nil
	}
	all := toBytes(r.Pool.Memory.Ptr, int(r.Pool.Size))
	return all[r.Allocation.Offset : r.Allocation.Offset+r.Buffer.Size]
}

// Write copies data to the start of the buffer. Pools without coherent
// memory are flushed after the copy.
func (r *BufferResource) Write(data []byte) error {
	b := r.Bytes()
	if b == nil {
		return fmt.Errorf("buffer in pool %q is not host visible", r.Pool.Name)
	}
	if len(data) > len(b) {
		return fmt.Errorf("writing %d bytes to a %d byte buffer", len(data), len(b))
	}
	copy(b, data)

	if r.Pool.MemoryProperties&vk.MemoryPropertyHostCoherentBit == 0 {
		ranges := []vk.MappedMemoryRange{r.VKMappedMemoryRange()}
		if err := vk.Error(vk.FlushMappedMemoryRanges(r.Pool.Device.VKDevice, 1, ranges)); err != nil {
			return fmt.Errorf("flushing buffer in pool %q: %w", r.Pool.Name, err)
		}
	}
	return nil
}

// Upload fills the buffer with data. Host visible buffers are written in
// place; device local ones go through a temporary staging buffer and a one
// time copy on the graphics queue, which blocks until the copy is done.
func (r *BufferResource) Upload(data []byte) error {
	if !r.RequiresStaging() {
		return r.Write(data)
	}
	if uint64(len(data)) > r.Buffer.Size {
		return fmt.Errorf("uploading %d bytes to a %d byte buffer", len(data), r.Buffer.Size)
	}

	d := r.Pool.Device
	staging, memory, err := d.CreateAndBindBufferAndMemory(uint64(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit,
		vk.SharingModeExclusive)
	if err != nil {
		return fmt.Errorf("creating staging buffer: %w", err)
	}
	defer func() {
		staging.Destroy()
		memory.Destroy()
	}()

	if err := memory.MapCopyUnmap(data); err != nil {
		return fmt.Errorf("filling staging buffer: %w", err)
	}

	cb, err := d.CommandPool.AllocateBuffer()
	if err != nil {
		return err
	}
	defer cb.Destroy()

	if err := cb.BeginOneTime(); err != nil {
		return err
	}
	cb.CmdCopyFromStaging(staging, r)
	if err := cb.End(); err != nil {
		return err
	}

	vkframe.Logger().Debug("staged upload",
		zap.String("pool", r.Pool.Name),
		zap.String("size", units.BytesSize(float64(len(data)))))
	return d.GraphicsQueue.SubmitWaitIdle(cb)
}

// CmdCopyFromStaging records a copy of the whole staging buffer into r.
func (c *CommandBuffer) CmdCopyFromStaging(staging *Buffer, r *BufferResource) {
	c.CmdCopyBuffer(staging, &r.Buffer, 0, 0, staging.Size)
}

// Destroy returns the buffer's range to the pool and destroys the buffer.
func (r *BufferResource) Destroy() {
	if r.Allocation != nil {
		r.Pool.Allocator.Free(r.Allocation)
		r.Allocation = nil
	}
	if r.Buffer.VKBuffer != vk.NullBuffer {
		r.Buffer.Destroy()
		r.Buffer.VKBuffer = vk.NullBuffer
	}
}
