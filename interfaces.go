package vkframe

import (
	"fmt"
	"time"
)

// Destroyable is implemented by every object whose lifetime is managed by a
// SlotTable. Destroy releases the underlying GPU object and must only be
// called once.
type Destroyable interface {
	Destroy()
}

// Fence is a GPU to CPU synchronization primitive.
type Fence interface {
	Destroyable
}

// Semaphore is a GPU to GPU ordering primitive. It is never waited on from
// the CPU.
type Semaphore interface {
	Destroyable
}

// CommandBuffer records work that is later submitted to a device queue.
type CommandBuffer interface {
	Destroyable
	Reset() error
	Begin() error
	End() error
}

// SubmitInfo describes one queue submission.
type SubmitInfo struct {
	CommandBuffer CommandBuffer
	Wait          []Semaphore
	Signal        []Semaphore
	// Fence is signaled once the GPU finishes executing CommandBuffer.
	Fence Fence
}

// Device is the subset of a logical device and its graphics queue the frame
// pipeline needs.
type Device interface {
	CreateFence(signaled bool) (Fence, error)
	CreateSemaphore() (Semaphore, error)
	AllocateCommandBuffer() (CommandBuffer, error)

	// WaitForFence blocks until f is signaled or timeout elapses. A timeout
	// must be reported as an error wrapping ErrFenceTimeout.
	WaitForFence(f Fence, timeout time.Duration) error
	ResetFence(f Fence) error

	Submit(info SubmitInfo) error
	WaitIdle() error
}

// Extent is a two dimensional size in pixels.
type Extent struct {
	Width  uint32
	Height uint32
}

// IsZero reports whether either dimension is zero, which is the case for a
// minimized window.
func (e Extent) IsZero() bool {
	return e.Width == 0 || e.Height == 0
}

func (e Extent) String() string {
	return fmt.Sprintf("%dx%d", e.Width, e.Height)
}

// Surface is the window the swapchain presents to.
type Surface interface {
	Extent() Extent
	Minimized() bool
	// OnResize registers fn to be called whenever the surface size changes.
	OnResize(fn func(Extent))
}

// PresentResult is the outcome of an acquire or present call on the
// presentation engine.
type PresentResult int

const (
	ResultReady PresentResult = iota
	ResultSuboptimal
	ResultOutOfDate
)

func (r PresentResult) String() string {
	switch r {
	case ResultReady:
		return "ready"
	case ResultSuboptimal:
		return "suboptimal"
	case ResultOutOfDate:
		return "out-of-date"
	}
	return fmt.Sprintf("PresentResult(%d)", int(r))
}

// SwapchainInfo describes the image ring currently held by a presentation
// engine.
type SwapchainInfo struct {
	Extent     Extent
	ImageCount int
	Format     string
}

// PresentationEngine is the platform side of a swapchain. Build replaces any
// previously built ring; Release destroys the current one.
type PresentationEngine interface {
	Build(extent Extent) (SwapchainInfo, error)
	Acquire(signal Semaphore, timeout time.Duration) (int, PresentResult, error)
	Present(imageIndex int, wait Semaphore) (PresentResult, error)
	Release()
}
