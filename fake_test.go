package vkframe

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// fakeFence signals by closing its channel. Reset installs a fresh channel.
type fakeFence struct {
	mu        sync.Mutex
	ch        chan struct{}
	destroyed bool
}

func newFakeFence(signaled bool) *fakeFence {
	f := &fakeFence{ch: make(chan struct{})}
	if signaled {
		close(f.ch)
	}
	return f
}

func (f *fakeFence) wait() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch
}

func (f *fakeFence) signaled() bool {
	select {
	case <-f.wait():
		return true
	default:
		return false
	}
}

func (f *fakeFence) signal() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
	default:
		close(f.ch)
	}
}

func (f *fakeFence) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.ch:
		f.ch = make(chan struct{})
	default:
	}
}

func (f *fakeFence) Destroy() {
	f.mu.Lock()
	f.destroyed = true
	f.mu.Unlock()
}

type fakeSemaphore struct {
	id        int
	destroyed bool
}

func (s *fakeSemaphore) Destroy() { s.destroyed = true }

type fakeCommandBuffer struct {
	dev       *fakeDevice
	id        int
	busy      atomic.Bool
	recording bool
	resets    int
	destroyed bool
}

// Reset counts an overwrite if the GPU is still executing the previous
// submission of this buffer.
func (c *fakeCommandBuffer) Reset() error {
	if c.busy.Load() {
		c.dev.overwrites.Add(1)
	}
	c.resets++
	return nil
}

func (c *fakeCommandBuffer) Begin() error {
	if c.recording {
		return errors.New("already recording")
	}
	c.recording = true
	return nil
}

func (c *fakeCommandBuffer) End() error {
	if !c.recording {
		return errors.New("not recording")
	}
	c.recording = false
	return nil
}

func (c *fakeCommandBuffer) Destroy() { c.destroyed = true }

// fakeDevice executes submissions on a goroutine that signals the fence after
// gpuDelay.
type fakeDevice struct {
	mu       sync.Mutex
	gpuDelay time.Duration
	// hang keeps submitted fences unsignaled forever.
	hang      bool
	submitErr error
	fenceErr  error

	nextID  int
	submits []SubmitInfo
	pending sync.WaitGroup

	overwrites atomic.Int32
	waitIdles  atomic.Int32
	semaphores []*fakeSemaphore
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{}
}

func (d *fakeDevice) CreateFence(signaled bool) (Fence, error) {
	return newFakeFence(signaled), nil
}

func (d *fakeDevice) CreateSemaphore() (Semaphore, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	s := &fakeSemaphore{id: d.nextID}
	d.semaphores = append(d.semaphores, s)
	return s, nil
}

func (d *fakeDevice) AllocateCommandBuffer() (CommandBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return &fakeCommandBuffer{dev: d, id: d.nextID}, nil
}

func (d *fakeDevice) WaitForFence(f Fence, timeout time.Duration) error {
	if d.fenceErr != nil {
		return d.fenceErr
	}
	select {
	case <-f.(*fakeFence).wait():
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("after %s: %w", timeout, ErrFenceTimeout)
	}
}

func (d *fakeDevice) ResetFence(f Fence) error {
	f.(*fakeFence).reset()
	return nil
}

func (d *fakeDevice) Submit(info SubmitInfo) error {
	if d.submitErr != nil {
		return d.submitErr
	}
	f := info.Fence.(*fakeFence)
	cb := info.CommandBuffer.(*fakeCommandBuffer)

	d.mu.Lock()
	d.submits = append(d.submits, info)
	hang := d.hang
	delay := d.gpuDelay
	d.mu.Unlock()

	cb.busy.Store(true)
	if hang {
		return nil
	}
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		time.Sleep(delay)
		cb.busy.Store(false)
		f.signal()
	}()
	return nil
}

func (d *fakeDevice) WaitIdle() error {
	d.waitIdles.Add(1)
	d.pending.Wait()
	return nil
}

func (d *fakeDevice) submitted() []SubmitInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]SubmitInfo(nil), d.submits...)
}

type fakeSurface struct {
	extent    Extent
	minimized bool
	listeners []func(Extent)
}

func newFakeSurface(w, h uint32) *fakeSurface {
	return &fakeSurface{extent: Extent{Width: w, Height: h}}
}

func (s *fakeSurface) Extent() Extent  { return s.extent }
func (s *fakeSurface) Minimized() bool { return s.minimized }
func (s *fakeSurface) OnResize(fn func(Extent)) {
	s.listeners = append(s.listeners, fn)
}

func (s *fakeSurface) resize(w, h uint32) {
	s.extent = Extent{Width: w, Height: h}
	for _, fn := range s.listeners {
		fn(s.extent)
	}
}

// fakeEngine hands out images round robin and replays scripted results.
type fakeEngine struct {
	images   int
	builds   int
	releases int
	acquires int
	presents int
	extent   Extent

	acquireResults []PresentResult
	presentResults []PresentResult
	acquireErr     error
	buildErr       error

	next int
	// epoch of the ring each acquired image index came from
	acquiredEpoch map[int]int
	staleUse      int
	presented     []int
}

func newFakeEngine(images int) *fakeEngine {
	return &fakeEngine{images: images, acquiredEpoch: make(map[int]int)}
}

func (e *fakeEngine) Build(extent Extent) (SwapchainInfo, error) {
	if e.buildErr != nil {
		return SwapchainInfo{}, e.buildErr
	}
	e.builds++
	e.extent = extent
	e.next = 0
	return SwapchainInfo{Extent: extent, ImageCount: e.images, Format: "B8G8R8A8_UNORM"}, nil
}

func (e *fakeEngine) Acquire(signal Semaphore, timeout time.Duration) (int, PresentResult, error) {
	e.acquires++
	if e.acquireErr != nil {
		return -1, ResultReady, e.acquireErr
	}
	res := ResultReady
	if len(e.acquireResults) > 0 {
		res = e.acquireResults[0]
		e.acquireResults = e.acquireResults[1:]
	}
	if res == ResultOutOfDate {
		return -1, res, nil
	}
	idx := e.next
	e.next = (e.next + 1) % e.images
	e.acquiredEpoch[idx] = e.builds
	return idx, res, nil
}

func (e *fakeEngine) Present(imageIndex int, wait Semaphore) (PresentResult, error) {
	e.presents++
	if e.acquiredEpoch[imageIndex] != e.builds {
		e.staleUse++
	}
	e.presented = append(e.presented, imageIndex)
	res := ResultReady
	if len(e.presentResults) > 0 {
		res = e.presentResults[0]
		e.presentResults = e.presentResults[1:]
	}
	return res, nil
}

func (e *fakeEngine) Release() { e.releases++ }

// fakeResource records its destruction order into a shared log.
type fakeResource struct {
	name      string
	log       *[]string
	destroyed int
}

func (r *fakeResource) Destroy() {
	r.destroyed++
	if r.log != nil {
		*r.log = append(*r.log, r.name)
	}
}

type otherResource struct{}

func (otherResource) Destroy() {}
