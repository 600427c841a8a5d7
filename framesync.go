package vkframe

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// FrameSync is the synchronization bundle of one frame in flight.
type FrameSync struct {
	// Fence is signaled when the GPU finishes the last submission of
	// CommandBuffer.
	Fence Fence
	// AcquireSemaphore is signaled by the presentation engine when the
	// acquired image is ready to be rendered to.
	AcquireSemaphore Semaphore
	CommandBuffer    CommandBuffer
}

func (f *FrameSync) destroy() {
	if f.CommandBuffer != nil {
		f.CommandBuffer.Destroy()
	}
	if f.AcquireSemaphore != nil {
		f.AcquireSemaphore.Destroy()
	}
	if f.Fence != nil {
		f.Fence.Destroy()
	}
}

// FrameRing holds one FrameSync per frame in flight.
type FrameRing struct {
	dev  Device
	sets []*FrameSync
}

// NewFrameRing creates n frame sync sets. Fences start signaled so the first
// wait on each slot returns immediately.
func NewFrameRing(dev Device, n int) (*FrameRing, error) {
	if n < 1 {
		return nil, fmt.Errorf("frames in flight must be at least 1, got %d", n)
	}
	r := &FrameRing{dev: dev, sets: make([]*FrameSync, 0, n)}
	for i := 0; i < n; i++ {
		fs, err := newFrameSync(dev)
		if err != nil {
			r.destroySets()
			return nil, fmt.Errorf("creating frame sync %d: %w", i, err)
		}
		r.sets = append(r.sets, fs)
	}
	return r, nil
}

func newFrameSync(dev Device) (*FrameSync, error) {
	fs := &FrameSync{}
	var err error
	if fs.Fence, err = dev.CreateFence(true); err != nil {
		return nil, err
	}
	if fs.AcquireSemaphore, err = dev.CreateSemaphore(); err != nil {
		fs.destroy()
		return nil, err
	}
	if fs.CommandBuffer, err = dev.AllocateCommandBuffer(); err != nil {
		fs.destroy()
		return nil, err
	}
	return fs, nil
}

// At returns the sync set for frame, cycling modulo the ring length.
func (r *FrameRing) At(frame uint64) *FrameSync {
	return r.sets[frame%uint64(len(r.sets))]
}

// Len returns the number of frames in flight.
func (r *FrameRing) Len() int {
	return len(r.sets)
}

// Destroy waits for every fence and destroys the ring.
func (r *FrameRing) Destroy(timeout time.Duration) {
	for i, fs := range r.sets {
		if err := r.dev.WaitForFence(fs.Fence, timeout); err != nil {
			Logger().Warn("frame fence wait failed during teardown", zap.Int("frame", i), zap.Error(err))
		}
	}
	r.destroySets()
}

func (r *FrameRing) destroySets() {
	for i := len(r.sets) - 1; i >= 0; i-- {
		r.sets[i].destroy()
	}
	r.sets = nil
}

// PresentSemaphores holds one render-finished semaphore per swapchain image.
// Its size follows the swapchain image count, which is independent of the
// number of frames in flight.
type PresentSemaphores struct {
	dev  Device
	sems []Semaphore
}

// NewPresentSemaphores creates m semaphores.
func NewPresentSemaphores(dev Device, m int) (*PresentSemaphores, error) {
	p := &PresentSemaphores{dev: dev}
	if err := p.Rebuild(m); err != nil {
		return nil, err
	}
	return p, nil
}

// Rebuild destroys the current semaphores and creates m new ones. The caller
// must ensure none are in use by the GPU.
func (p *PresentSemaphores) Rebuild(m int) error {
	p.Destroy()
	sems := make([]Semaphore, 0, m)
	for i := 0; i < m; i++ {
		s, err := p.dev.CreateSemaphore()
		if err != nil {
			for _, c := range sems {
				c.Destroy()
			}
			return fmt.Errorf("creating present semaphore %d: %w", i, err)
		}
		sems = append(sems, s)
	}
	p.sems = sems
	return nil
}

// For returns the semaphore of swapchain image imageIndex.
func (p *PresentSemaphores) For(imageIndex int) Semaphore {
	return p.sems[imageIndex]
}

func (p *PresentSemaphores) Len() int {
	return len(p.sems)
}

func (p *PresentSemaphores) Destroy() {
	for _, s := range p.sems {
		s.Destroy()
	}
	p.sems = nil
}
