package vkframe

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SwapchainState is the state of a Swapchain.
type SwapchainState int

const (
	StateReady SwapchainState = iota
	StateRecreating
)

func (s SwapchainState) String() string {
	if s == StateRecreating {
		return "recreating"
	}
	return "ready"
}

// AcquiredImage is the result of a successful acquire.
type AcquiredImage struct {
	Index  int
	Status Status
}

// Swapchain drives a PresentationEngine and rebuilds it, together with any
// size dependent attachments, whenever the surface becomes incompatible.
type Swapchain struct {
	dev     Device
	surface Surface
	engine  PresentationEngine
	opts    SwapchainOptions

	info        SwapchainInfo
	state       SwapchainState
	dirty       bool
	built       bool
	recreations int

	hooks []*swapchainHook
}

// swapchainHook is one registered rebuild/release pair. Either may be nil.
type swapchainHook struct {
	rebuild func(SwapchainInfo) error
	release func()
}

// NewSwapchain builds the initial image ring. It returns ErrSurfaceMinimized
// if the surface currently has no area.
func NewSwapchain(dev Device, surface Surface, engine PresentationEngine, opts SwapchainOptions) (*Swapchain, error) {
	s := &Swapchain{
		dev:     dev,
		surface: surface,
		engine:  engine,
		opts:    opts,
	}
	if s.opts.AcquireTimeout <= 0 {
		s.opts.AcquireTimeout = DefaultConfig().Swapchain.AcquireTimeout
	}
	if s.opts.MinimizedPoll <= 0 {
		s.opts.MinimizedPoll = DefaultConfig().Swapchain.MinimizedPoll
	}
	if err := s.build(); err != nil {
		return nil, err
	}
	surface.OnResize(func(e Extent) {
		Logger().Debug("surface resized", zap.Stringer("extent", e))
		s.dirty = true
	})
	return s, nil
}

func (s *Swapchain) visible() bool {
	return !s.surface.Minimized() && !s.surface.Extent().IsZero()
}

func (s *Swapchain) build() error {
	if !s.visible() {
		return ErrSurfaceMinimized
	}
	extent := s.surface.Extent()
	info, err := s.engine.Build(extent)
	if err != nil {
		return fmt.Errorf("building swapchain at %s: %w", extent, err)
	}
	s.info = info
	s.built = true
	for _, h := range s.hooks {
		if h.rebuild == nil {
			continue
		}
		if err := h.rebuild(info); err != nil {
			return fmt.Errorf("rebuilding swapchain attachments: %w", err)
		}
	}
	Logger().Debug("swapchain built", zap.Stringer("extent", info.Extent), zap.Int("images", info.ImageCount))
	return nil
}

func (s *Swapchain) release() {
	if !s.built {
		return
	}
	hooks := s.hooks
	for i := len(hooks) - 1; i >= 0; i-- {
		if hooks[i].release != nil {
			hooks[i].release()
		}
	}
	s.engine.Release()
	s.built = false
}

// AddHooks registers a rebuild and a release hook for size dependent
// attachments and returns a func that unregisters both. Either hook may be
// nil. Rebuild hooks run in registration order, right away for the current
// ring and after every recreation; release hooks run in reverse order before
// the ring is released.
//
// If the immediate rebuild fails the hooks stay registered and the caller
// should call remove.
func (s *Swapchain) AddHooks(rebuild func(SwapchainInfo) error, release func()) (remove func(), err error) {
	h := &swapchainHook{rebuild: rebuild, release: release}
	s.hooks = append(s.hooks, h)
	remove = func() { s.removeHook(h) }
	if s.built && rebuild != nil {
		return remove, rebuild(s.info)
	}
	return remove, nil
}

func (s *Swapchain) removeHook(h *swapchainHook) {
	kept := make([]*swapchainHook, 0, len(s.hooks))
	for _, other := range s.hooks {
		if other != h {
			kept = append(kept, other)
		}
	}
	s.hooks = kept
}

// OnRebuild registers fn as a rebuild hook for the life of the swapchain.
func (s *Swapchain) OnRebuild(fn func(SwapchainInfo) error) error {
	_, err := s.AddHooks(fn, nil)
	return err
}

// OnRelease registers fn as a release hook for the life of the swapchain.
func (s *Swapchain) OnRelease(fn func()) {
	s.AddHooks(nil, fn)
}

// Hooks returns the number of registered hook pairs.
func (s *Swapchain) Hooks() int { return len(s.hooks) }

// Recreate forces the GPU idle, destroys the old ring and its attachments and
// builds a new one at the surface's current extent.
func (s *Swapchain) Recreate() error {
	s.state = StateRecreating
	s.dirty = true

	if !s.visible() {
		return ErrSurfaceMinimized
	}

	if err := s.dev.WaitIdle(); err != nil {
		return deviceLost("waiting for idle before swapchain recreation", err)
	}

	s.release()
	if err := s.build(); err != nil {
		return err
	}

	s.recreations++
	s.dirty = false
	s.state = StateReady
	Logger().Info("swapchain recreated",
		zap.Stringer("extent", s.info.Extent),
		zap.Int("images", s.info.ImageCount),
		zap.Int("recreations", s.recreations))
	return nil
}

// Acquire requests the next presentable image, signaling signal once it is
// ready. An out-of-date ring is recreated immediately and reported with
// StatusOutOfDate and no image.
func (s *Swapchain) Acquire(signal Semaphore) (AcquiredImage, error) {
	if s.dirty || s.state == StateRecreating {
		if err := s.Recreate(); err != nil {
			return AcquiredImage{Index: -1, Status: StatusOutOfDate}, err
		}
	}
	if !s.visible() {
		s.dirty = true
		return AcquiredImage{Index: -1, Status: StatusOutOfDate}, ErrSurfaceMinimized
	}

	idx, res, err := s.engine.Acquire(signal, s.opts.AcquireTimeout.Std())
	if err != nil {
		return AcquiredImage{Index: -1, Status: StatusFatal}, deviceLost("acquiring swapchain image", err)
	}

	switch res {
	case ResultOutOfDate:
		if err := s.Recreate(); err != nil {
			return AcquiredImage{Index: -1, Status: StatusOutOfDate}, err
		}
		return AcquiredImage{Index: -1, Status: StatusOutOfDate}, nil
	case ResultSuboptimal:
		s.dirty = true
		return AcquiredImage{Index: idx, Status: StatusSuboptimal}, nil
	}
	return AcquiredImage{Index: idx, Status: StatusOK}, nil
}

// Present queues imageIndex for presentation once wait is signaled. An
// out-of-date or suboptimal result marks the ring for recreation before the
// next acquire.
func (s *Swapchain) Present(imageIndex int, wait Semaphore) (Status, error) {
	res, err := s.engine.Present(imageIndex, wait)
	if err != nil {
		return StatusFatal, deviceLost("presenting swapchain image", err)
	}
	switch res {
	case ResultOutOfDate:
		s.dirty = true
		return StatusOutOfDate, nil
	case ResultSuboptimal:
		s.dirty = true
		return StatusSuboptimal, nil
	}
	return StatusOK, nil
}

// WaitUntilVisible calls poll every interval until the surface has a non-zero
// extent. It gives up after timeout with ErrSurfaceMinimized. A non-positive
// interval uses the MinimizedPoll option.
func (s *Swapchain) WaitUntilVisible(poll func(), interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = s.opts.MinimizedPoll.Std()
	}
	deadline := time.Now().Add(timeout)
	for !s.visible() {
		if time.Now().After(deadline) {
			return ErrSurfaceMinimized
		}
		if poll != nil {
			poll()
		}
		time.Sleep(interval)
	}
	return nil
}

// MarkDirty schedules a recreation before the next acquire.
func (s *Swapchain) MarkDirty() { s.dirty = true }

func (s *Swapchain) Dirty() bool           { return s.dirty }
func (s *Swapchain) State() SwapchainState { return s.state }
func (s *Swapchain) Info() SwapchainInfo   { return s.info }
func (s *Swapchain) Recreations() int      { return s.recreations }

// Destroy waits for the GPU and releases the ring and its attachments.
func (s *Swapchain) Destroy() {
	if err := s.dev.WaitIdle(); err != nil {
		Logger().Warn("wait idle failed during swapchain teardown", zap.Error(err))
	}
	s.release()
}
