package vulkan

import (
	"fmt"

	"github.com/celer/vkframe"
	"go.uber.org/zap"
)

// Allocation is a sub range of a larger memory block.
type Allocation struct {
	Offset uint64
	Size   uint64
}

func (a *Allocation) String() string {
	return fmt.Sprintf("[%d %d]", a.Offset, a.Size)
}

// Allocator hands out ranges of a fixed size block.
type Allocator interface {
	Free(a *Allocation)
	Allocate(size uint64, align uint64) *Allocation
}

// LinearAllocator is a first fit allocator over a block of Size bytes. Its
// allocations are kept sorted by offset.
type LinearAllocator struct {
	Size   uint64
	allocs []*Allocation
}

func makeAlignUp(a uint64, align uint64) uint64 {
	if align <= 1 {
		return a
	}
	m := a % align
	if m == 0 {
		return a
	}
	return (a - m) + align
}

// Free returns fa to the allocator. Freeing an allocation twice is a no-op.
func (p *LinearAllocator) Free(fa *Allocation) {
	for i, a := range p.allocs {
		if a == fa {
			p.allocs = append(p.allocs[:i], p.allocs[i+1:]...)
			return
		}
	}
}

func (p *LinearAllocator) insert(i int, na *Allocation) *Allocation {
	p.allocs = append(p.allocs, nil)
	copy(p.allocs[i+1:], p.allocs[i:])
	p.allocs[i] = na
	return na
}

// Allocate returns the first aligned range of size bytes that fits, or nil if
// the block has no such gap.
func (p *LinearAllocator) Allocate(size uint64, align uint64) *Allocation {
	if size == 0 || size > p.Size {
		vkframe.Logger().Debug("allocation does not fit block",
			zap.Uint64("size", size), zap.Uint64("block", p.Size))
		return nil
	}

	var low uint64
	for i, c := range p.allocs {
		l := makeAlignUp(low, align)
		if l <= c.Offset && c.Offset-l >= size {
			return p.insert(i, &Allocation{Offset: l, Size: size})
		}
		low = c.Offset + c.Size
	}

	l := makeAlignUp(low, align)
	if l <= p.Size && p.Size-l >= size {
		return p.insert(len(p.allocs), &Allocation{Offset: l, Size: size})
	}

	vkframe.Logger().Debug("no gap left for allocation",
		zap.Uint64("size", size),
		zap.Uint64("align", align),
		zap.Stringer("allocs", p))
	return nil
}

// Used returns the number of bytes currently allocated.
func (p *LinearAllocator) Used() uint64 {
	var n uint64
	for _, a := range p.allocs {
		n += a.Size
	}
	return n
}

// Reset frees every allocation.
func (p *LinearAllocator) Reset() {
	p.allocs = nil
}

func (p *LinearAllocator) String() string {
	return fmt.Sprintf("%v", p.allocs)
}
