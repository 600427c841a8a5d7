package vulkan

import (
	"fmt"
	"math"
	"time"

	"github.com/celer/vkframe"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// Swapchain is the native swapchain of one Build of a PresentationEngine.
type Swapchain struct {
	Extent      vk.Extent2D
	Format      vk.Format
	PresentMode vk.PresentMode
	Device      *Device
	VKSwapchain vk.Swapchain
}

func (s *Swapchain) Destroy() {
	vk.DestroySwapchain(s.Device.VKDevice, s.VKSwapchain, nil)
}

func (s *Swapchain) GetImages() ([]*Image, error) {
	var imageCount uint32
	err := vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, nil))
	if err != nil {
		return nil, err
	}

	swapchainImages := make([]vk.Image, imageCount)
	err = vk.Error(vk.GetSwapchainImages(s.Device.VKDevice, s.VKSwapchain, &imageCount, swapchainImages))
	if err != nil {
		return nil, err
	}

	ret := make([]*Image, imageCount)
	for i := range swapchainImages {
		ret[i] = &Image{
			Device:   s.Device,
			VKImage:  swapchainImages[i],
			VKFormat: s.Format,
			Extent:   s.Extent,
		}
	}

	return ret, nil
}

type CreateSwapchainOptions struct {
	OldSwapchain              *Swapchain
	ActualSize                vk.Extent2D
	DesiredNumSwapchainImages int
	PreferMailbox             bool
}

// desiredImageCount returns want clamped to caps, or one more than the
// minimum when want is 0 so the application never waits on the driver for an
// image.
func desiredImageCount(want int, caps *vk.SurfaceCapabilities) int {
	if want <= 0 {
		want = int(caps.MinImageCount) + 1
	}
	return clampImageCount(want, caps)
}

func clampImageCount(n int, caps *vk.SurfaceCapabilities) int {
	if n < int(caps.MinImageCount) {
		n = int(caps.MinImageCount)
	}
	// a max of 0 means no limit
	if caps.MaxImageCount > 0 && n > int(caps.MaxImageCount) {
		n = int(caps.MaxImageCount)
	}
	return n
}

func clampExtent(want vk.Extent2D, caps *vk.SurfaceCapabilities) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	clamp := func(v, lo, hi uint32) uint32 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	return vk.Extent2D{
		Width:  clamp(want.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width),
		Height: clamp(want.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height),
	}
}

func (d *Device) CreateSwapchain(surface vk.Surface, options *CreateSwapchainOptions) (*Swapchain, error) {
	if options == nil {
		options = &CreateSwapchainOptions{}
	}

	modes, err := d.PhysicalDevice.GetSurfacePresentModes(surface)
	if err != nil {
		return nil, err
	}
	presentMode := modes.Choose(options.PreferMailbox)

	formats, err := d.PhysicalDevice.GetSurfaceFormats(surface)
	if err != nil {
		return nil, err
	}
	format, err := formats.Choose()
	if err != nil {
		return nil, err
	}

	caps, err := d.PhysicalDevice.GetSurfaceCapabilities(surface)
	if err != nil {
		return nil, err
	}

	swapchainSize := clampExtent(options.ActualSize, caps)
	if swapchainSize.Width == 0 || swapchainSize.Height == 0 {
		return nil, vkframe.ErrSurfaceMinimized
	}

	desiredSwapChainImages := desiredImageCount(options.DesiredNumSwapchainImages, caps)

	createInfo := &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          surface,
		MinImageCount:    uint32(desiredSwapChainImages),
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      swapchainSize,
		PresentMode:      presentMode,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageArrayLayers: 1,
		Clipped:          vk.True,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		OldSwapchain:     vk.NullSwapchain,
	}

	if options.OldSwapchain != nil {
		createInfo.OldSwapchain = options.OldSwapchain.VKSwapchain
	}

	graphics, present := d.GraphicsQueue.QueueFamily.Index, d.PresentQueue.QueueFamily.Index
	if graphics != present {
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{uint32(graphics), uint32(present)}
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var swapchain vk.Swapchain
	err = vk.Error(vk.CreateSwapchain(d.VKDevice, createInfo, nil, &swapchain))
	if err != nil {
		return nil, err
	}

	return &Swapchain{
		VKSwapchain: swapchain,
		Device:      d,
		Extent:      swapchainSize,
		Format:      format.Format,
		PresentMode: presentMode,
	}, nil
}

// PresentationEngine owns the native swapchain, its images and their views.
// It implements vkframe.PresentationEngine.
type PresentationEngine struct {
	Device  *Device
	Surface vk.Surface
	Options vkframe.SwapchainOptions

	Swapchain  *Swapchain
	Images     []*Image
	ImageViews []*ImageView

	// retired is the swapchain replaced by the last Build. It is handed to
	// the driver as the old swapchain and destroyed once the new one exists.
	retired *Swapchain
}

var _ vkframe.PresentationEngine = (*PresentationEngine)(nil)

func (d *Device) NewPresentationEngine(surface vk.Surface, opts vkframe.SwapchainOptions) *PresentationEngine {
	return &PresentationEngine{Device: d, Surface: surface, Options: opts}
}

// Build creates a swapchain at extent, clamped to the surface capabilities,
// and a color view for each of its images.
func (e *PresentationEngine) Build(extent vkframe.Extent) (vkframe.SwapchainInfo, error) {
	sc, err := e.Device.CreateSwapchain(e.Surface, &CreateSwapchainOptions{
		OldSwapchain:              e.retired,
		ActualSize:                vk.Extent2D{Width: extent.Width, Height: extent.Height},
		DesiredNumSwapchainImages: e.Options.DesiredImages,
		PreferMailbox:             e.Options.PreferMailbox,
	})
	if e.retired != nil {
		e.retired.Destroy()
		e.retired = nil
	}
	if err != nil {
		return vkframe.SwapchainInfo{}, err
	}
	e.Swapchain = sc

	e.Images, err = sc.GetImages()
	if err != nil {
		e.Release()
		return vkframe.SwapchainInfo{}, err
	}

	e.ImageViews = make([]*ImageView, 0, len(e.Images))
	for i, image := range e.Images {
		view, err := image.CreateImageView()
		if err != nil {
			e.Release()
			return vkframe.SwapchainInfo{}, fmt.Errorf("creating view for swapchain image %d: %w", i, err)
		}
		e.ImageViews = append(e.ImageViews, view)
	}

	info := e.Info()
	vkframe.Logger().Debug("native swapchain created",
		zap.Stringer("extent", info.Extent),
		zap.Int("images", info.ImageCount),
		zap.String("format", info.Format),
		zap.Int32("present_mode", int32(sc.PresentMode)))
	return info, nil
}

// Info describes the current swapchain.
func (e *PresentationEngine) Info() vkframe.SwapchainInfo {
	if e.Swapchain == nil {
		return vkframe.SwapchainInfo{}
	}
	return vkframe.SwapchainInfo{
		Extent:     vkframe.Extent{Width: e.Swapchain.Extent.Width, Height: e.Swapchain.Extent.Height},
		ImageCount: len(e.Images),
		Format:     formatName(e.Swapchain.Format),
	}
}

// Acquire acquires the next image, signaling signal once it can be rendered
// to.
func (e *PresentationEngine) Acquire(signal vkframe.Semaphore, timeout time.Duration) (int, vkframe.PresentResult, error) {
	var imageIndex uint32
	res := vk.AcquireNextImage(e.Device.VKDevice, e.Swapchain.VKSwapchain, uint64(timeout.Nanoseconds()),
		signal.(*Semaphore).VKSemaphore, vk.NullFence, &imageIndex)

	switch res {
	case vk.Success:
		return int(imageIndex), vkframe.ResultReady, nil
	case vk.Suboptimal:
		return int(imageIndex), vkframe.ResultSuboptimal, nil
	case vk.ErrorOutOfDate:
		return -1, vkframe.ResultOutOfDate, nil
	case vk.Timeout, vk.NotReady:
		return -1, vkframe.ResultReady, fmt.Errorf("acquire after %s: %w", timeout, vk.Error(res))
	}
	return -1, vkframe.ResultReady, vk.Error(res)
}

// Present queues imageIndex on the present queue once wait is signaled.
func (e *PresentationEngine) Present(imageIndex int, wait vkframe.Semaphore) (vkframe.PresentResult, error) {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{e.Swapchain.VKSwapchain},
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.(*Semaphore).VKSemaphore},
		PImageIndices:      []uint32{uint32(imageIndex)},
	}

	res := vk.QueuePresent(e.Device.PresentQueue.VKQueue, &presentInfo)
	switch res {
	case vk.Success:
		return vkframe.ResultReady, nil
	case vk.Suboptimal:
		return vkframe.ResultSuboptimal, nil
	case vk.ErrorOutOfDate:
		return vkframe.ResultOutOfDate, nil
	}
	return vkframe.ResultReady, vk.Error(res)
}

// Release destroys the image views. The swapchain itself is kept as the old
// swapchain of the next Build, or destroyed by Destroy.
func (e *PresentationEngine) Release() {
	for _, view := range e.ImageViews {
		view.Destroy()
	}
	e.ImageViews = nil
	// swapchain images are owned by the swapchain
	e.Images = nil
	if e.Swapchain != nil {
		e.retired = e.Swapchain
		e.Swapchain = nil
	}
}

// Destroy releases the current ring and destroys any retired swapchain.
func (e *PresentationEngine) Destroy() {
	e.Release()
	if e.retired != nil {
		e.retired.Destroy()
		e.retired = nil
	}
}

func formatName(f vk.Format) string {
	switch f {
	case vk.FormatB8g8r8a8Unorm:
		return "B8G8R8A8_UNORM"
	case vk.FormatB8g8r8a8Srgb:
		return "B8G8R8A8_SRGB"
	case vk.FormatR8g8b8a8Unorm:
		return "R8G8B8A8_UNORM"
	case vk.FormatR8g8b8a8Srgb:
		return "R8G8B8A8_SRGB"
	}
	return fmt.Sprintf("Format(%d)", int32(f))
}
