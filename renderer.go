package vkframe

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Status is the outcome of one Render call.
type Status int

const (
	StatusOK Status = iota
	// StatusOutOfDate means the frame was skipped because the swapchain had
	// to be recreated, or the surface is minimized.
	StatusOutOfDate
	// StatusSuboptimal means the frame was presented but the swapchain will
	// be recreated before the next one.
	StatusSuboptimal
	// StatusFatal means the device is lost. The render loop must stop.
	StatusFatal
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOutOfDate:
		return "out-of-date"
	case StatusSuboptimal:
		return "suboptimal"
	case StatusFatal:
		return "fatal"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// FrameContext is passed to the record callback once per rendered frame.
type FrameContext struct {
	// Frame is the frame-in-flight slot, in [0, FramesInFlight).
	Frame int
	// ImageIndex is the acquired swapchain image. It is generally different
	// from Frame.
	ImageIndex    int
	Extent        Extent
	CommandBuffer CommandBuffer
	// DescriptorSet is the set bound for Frame with BindDescriptorSets, or
	// nil.
	DescriptorSet any
}

// RecordFunc records the commands of one frame. The command buffer is
// already begun and is ended by the renderer after RecordFunc returns.
type RecordFunc func(FrameContext) error

// Renderer runs the wait, acquire, record, submit, present cycle over a fixed
// number of frames in flight. It must be driven from a single goroutine.
type Renderer struct {
	dev       Device
	swapchain *Swapchain
	cfg       RendererConfig
	record    RecordFunc

	frames  *FrameRing
	present *PresentSemaphores
	sets    []any
	unhook  func()

	submitCount uint64
	fatal       error
}

// NewRenderer creates the frame ring and the per-image present semaphores.
// The present semaphores are rebuilt whenever the swapchain is.
func NewRenderer(dev Device, sc *Swapchain, cfg RendererConfig, record RecordFunc) (*Renderer, error) {
	if record == nil {
		return nil, errors.New("no record function has been configured")
	}
	if cfg.FramesInFlight == 0 {
		cfg.FramesInFlight = DefaultConfig().Renderer.FramesInFlight
	}
	if cfg.FenceTimeout <= 0 {
		cfg.FenceTimeout = DefaultConfig().Renderer.FenceTimeout
	}

	frames, err := NewFrameRing(dev, cfg.FramesInFlight)
	if err != nil {
		return nil, err
	}

	r := &Renderer{
		dev:       dev,
		swapchain: sc,
		cfg:       cfg,
		record:    record,
		frames:    frames,
		present:   &PresentSemaphores{dev: dev},
	}

	r.unhook, err = sc.AddHooks(func(info SwapchainInfo) error {
		return r.present.Rebuild(info.ImageCount)
	}, r.present.Destroy)
	if err != nil {
		r.unhook()
		r.present.Destroy()
		frames.destroySets()
		return nil, err
	}
	return r, nil
}

// BindDescriptorSets makes frame f receive sets[f % len(sets)] in its
// FrameContext.
func (r *Renderer) BindDescriptorSets(sets ...any) {
	r.sets = sets
}

func (r *Renderer) fail(err error) (Status, error) {
	r.fatal = err
	Logger().Error("render loop failed", zap.Error(err), zap.Uint64("submit_count", r.submitCount))
	return StatusFatal, err
}

// Render draws one frame. OutOfDate and Suboptimal are recovered internally
// and only reported as status. A fatal error is returned unchanged by every
// later call.
func (r *Renderer) Render() (Status, error) {
	if r.fatal != nil {
		return StatusFatal, r.fatal
	}

	frame := r.Frame()
	fs := r.frames.At(r.submitCount)

	if err := r.dev.WaitForFence(fs.Fence, r.cfg.FenceTimeout.Std()); err != nil {
		return r.fail(deviceLost(fmt.Sprintf("waiting for frame %d fence", frame), err))
	}

	img, err := r.swapchain.Acquire(fs.AcquireSemaphore)
	if err != nil {
		if errors.Is(err, ErrSurfaceMinimized) {
			return StatusOutOfDate, err
		}
		return r.fail(err)
	}
	if img.Status == StatusOutOfDate {
		return StatusOutOfDate, nil
	}

	// The fence is only reset once work is certain to be submitted, so an
	// early return above never leaves the slot unsignaled.
	if err := r.dev.ResetFence(fs.Fence); err != nil {
		return r.fail(deviceLost("resetting frame fence", err))
	}

	if err := r.recordFrame(frame, img.Index, fs); err != nil {
		return r.fail(deviceLost("recording frame", err))
	}

	renderDone := r.present.For(img.Index)
	err = r.dev.Submit(SubmitInfo{
		CommandBuffer: fs.CommandBuffer,
		Wait:          []Semaphore{fs.AcquireSemaphore},
		Signal:        []Semaphore{renderDone},
		Fence:         fs.Fence,
	})
	if err != nil {
		return r.fail(fmt.Errorf("frame %d: %w: %w", frame, ErrSubmitFailed, err))
	}
	r.submitCount++

	status, err := r.swapchain.Present(img.Index, renderDone)
	if err != nil {
		return r.fail(err)
	}
	if status == StatusOK && img.Status == StatusSuboptimal {
		status = StatusSuboptimal
	}
	return status, nil
}

func (r *Renderer) recordFrame(frame, imageIndex int, fs *FrameSync) error {
	cb := fs.CommandBuffer
	if err := cb.Reset(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	if err := cb.Begin(); err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	fc := FrameContext{
		Frame:         frame,
		ImageIndex:    imageIndex,
		Extent:        r.swapchain.Info().Extent,
		CommandBuffer: cb,
	}
	if len(r.sets) > 0 {
		fc.DescriptorSet = r.sets[frame%len(r.sets)]
	}
	if err := r.record(fc); err != nil {
		return err
	}
	if err := cb.End(); err != nil {
		return fmt.Errorf("end: %w", err)
	}
	return nil
}

// Frame returns the frame-in-flight slot the next Render will use.
func (r *Renderer) Frame() int {
	return int(r.submitCount % uint64(r.frames.Len()))
}

// SubmitCount returns the number of frames submitted so far.
func (r *Renderer) SubmitCount() uint64 { return r.submitCount }

func (r *Renderer) FramesInFlight() int { return r.frames.Len() }

// FrameSync returns the sync set used for the given submission number.
func (r *Renderer) FrameSync(submission uint64) *FrameSync {
	return r.frames.At(submission)
}

// Err returns the fatal error that stopped the renderer, if any.
func (r *Renderer) Err() error { return r.fatal }

// Destroy waits for the GPU, detaches the renderer from its swapchain and
// destroys the frame ring and the present semaphores.
func (r *Renderer) Destroy() {
	if r.unhook != nil {
		r.unhook()
		r.unhook = nil
	}
	if err := r.dev.WaitIdle(); err != nil {
		Logger().Warn("wait idle failed during renderer teardown", zap.Error(err))
	}
	r.frames.Destroy(r.cfg.FenceTimeout.Std())
	r.present.Destroy()
}
