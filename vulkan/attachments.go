package vulkan

import (
	"fmt"

	"github.com/celer/vkframe"
	vk "github.com/vulkan-go/vulkan"
)

// DepthFormat is the format of the depth attachment.
const DepthFormat = vk.FormatD32Sfloat

// Attachments holds everything whose size or format follows the swapchain:
// the render pass, a depth image and one framebuffer per swapchain image.
// Register it with vkframe.Swapchain.OnRebuild and OnRelease.
type Attachments struct {
	Device *Device
	Engine *PresentationEngine

	// ConfigureRenderPass may customize the render pass before it is created.
	ConfigureRenderPass func(info *vk.RenderPassCreateInfo)

	VKRenderPass   vk.RenderPass
	DepthImage     *BoundImage
	DepthImageView *ImageView
	Framebuffers   []vk.Framebuffer
	Extent         vk.Extent2D
}

func (d *Device) NewAttachments(engine *PresentationEngine) *Attachments {
	return &Attachments{Device: d, Engine: engine}
}

// Attach registers a with sc so it is rebuilt with every swapchain.
func (a *Attachments) Attach(sc *vkframe.Swapchain) error {
	sc.OnRelease(a.Release)
	return sc.OnRebuild(a.Rebuild)
}

// VKRenderPassCreateInfo describes a single subpass render pass with a
// cleared color attachment of the swapchain format and a depth attachment.
func (a *Attachments) VKRenderPassCreateInfo(colorFormat vk.Format) vk.RenderPassCreateInfo {
	attachmentDescriptions := []vk.AttachmentDescription{
		{
			Format:         colorFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutPresentSrc,
		},
		{
			Format:         DepthFormat,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		},
	}

	depthAttachmentRef := vk.AttachmentReference{
		Attachment: 1,
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	colorAttachments := []vk.AttachmentReference{{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}}

	subpassDescriptions := []vk.SubpassDescription{{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       colorAttachments,
		PDepthStencilAttachment: &depthAttachmentRef,
	}}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	return vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      subpassDescriptions,
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
}

// Rebuild creates the attachments for the engine's current swapchain.
func (a *Attachments) Rebuild(info vkframe.SwapchainInfo) error {
	sc := a.Engine.Swapchain
	if sc == nil {
		return fmt.Errorf("presentation engine has no swapchain")
	}
	a.Extent = sc.Extent

	if err := a.createRenderPass(sc.Format); err != nil {
		return err
	}
	if err := a.createDepthImage(); err != nil {
		a.Release()
		return err
	}
	if err := a.createFramebuffers(); err != nil {
		a.Release()
		return err
	}
	return nil
}

func (a *Attachments) createRenderPass(colorFormat vk.Format) error {
	info := a.VKRenderPassCreateInfo(colorFormat)
	if a.ConfigureRenderPass != nil {
		a.ConfigureRenderPass(&info)
	}

	var renderPass vk.RenderPass
	err := vk.Error(vk.CreateRenderPass(a.Device.VKDevice, &info, nil, &renderPass))
	if err != nil {
		return fmt.Errorf("creating render pass: %w", err)
	}
	a.VKRenderPass = renderPass
	return nil
}

func (a *Attachments) createDepthImage() error {
	var err error
	a.DepthImage, err = a.Device.CreateBoundImage(a.Extent, DepthFormat, vk.ImageTilingOptimal,
		vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit), vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return fmt.Errorf("creating depth image: %w", err)
	}

	a.DepthImageView, err = a.DepthImage.CreateImageViewWithAspectMask(vk.ImageAspectFlags(vk.ImageAspectDepthBit))
	if err != nil {
		return fmt.Errorf("creating depth image view: %w", err)
	}
	return nil
}

func (a *Attachments) createFramebuffers() error {
	views := a.Engine.ImageViews
	a.Framebuffers = make([]vk.Framebuffer, 0, len(views))
	for i, view := range views {
		attachments := []vk.ImageView{
			view.VKImageView,
			a.DepthImageView.VKImageView,
		}
		fbCreateInfo := vk.FramebufferCreateInfo{
			SType:           vk.StructureTypeFramebufferCreateInfo,
			RenderPass:      a.VKRenderPass,
			Layers:          1,
			AttachmentCount: uint32(len(attachments)),
			PAttachments:    attachments,
			Width:           a.Extent.Width,
			Height:          a.Extent.Height,
		}
		var fb vk.Framebuffer
		err := vk.Error(vk.CreateFramebuffer(a.Device.VKDevice, &fbCreateInfo, nil, &fb))
		if err != nil {
			return fmt.Errorf("creating framebuffer %d: %w", i, err)
		}
		a.Framebuffers = append(a.Framebuffers, fb)
	}
	return nil
}

// Framebuffer returns the framebuffer of swapchain image imageIndex.
func (a *Attachments) Framebuffer(imageIndex int) vk.Framebuffer {
	return a.Framebuffers[imageIndex]
}

// BeginRenderPass begins the render pass on the framebuffer of imageIndex,
// clearing it to color.
func (a *Attachments) BeginRenderPass(cb *CommandBuffer, imageIndex int, color [4]float32) {
	cb.CmdBeginRenderPass(a.VKRenderPass, a.Framebuffer(imageIndex), a.Extent, color)
}

// Release destroys the attachments in reverse creation order.
func (a *Attachments) Release() {
	for _, fb := range a.Framebuffers {
		vk.DestroyFramebuffer(a.Device.VKDevice, fb, nil)
	}
	a.Framebuffers = nil

	if a.DepthImageView != nil {
		a.DepthImageView.Destroy()
		a.DepthImageView = nil
	}
	if a.DepthImage != nil {
		a.DepthImage.Destroy()
		a.DepthImage = nil
	}
	if a.VKRenderPass != vk.NullRenderPass {
		vk.DestroyRenderPass(a.Device.VKDevice, a.VKRenderPass, nil)
		a.VKRenderPass = vk.NullRenderPass
	}
}
