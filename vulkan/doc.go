/*
Package vulkan implements the vkframe interfaces on top of github.com/vulkan-go/vulkan and
GLFW windows.

The types are thin wrappers: each holds the native handle in a field prefixed with VK so
applications can call the native Vulkan APIs directly whenever this package does not expose
an option.

Setup

	ctx := vkframe.NewContext(cfg)
	gfx, err := vulkan.Bootstrap(ctx, vulkan.NewWindow(glfwWindow), vulkan.Version{Major: 0, Minor: 1})
	sc, engine, err := gfx.NewSwapchain(ctx)
	att := gfx.Device.NewAttachments(engine)
	att.Attach(sc)
	r, err := vkframe.NewRenderer(gfx.Device, sc, cfg.Renderer, record)

Bootstrap pushes the instance, surface and device teardown onto the context, so a single
ctx.ResetInstance releases the swapchain, every resource created through
vkframe.CreateResource and finally the device, in that order.

Types

	Device			logical device, graphics and present queues, command pool (vkframe.Device)
	PresentationEngine	native swapchain, its images and image views (vkframe.PresentationEngine)
	Window			GLFW window framebuffer size and minimize state (vkframe.Surface)
	Attachments		render pass, depth image and framebuffers rebuilt with the swapchain
	BufferPool		one device memory allocation sub allocated with a LinearAllocator
	BoundImage		an image with its own memory allocation

Memory

Vulkan limits the number of memory allocations per device. A BufferPool allocates one block
and places buffers inside it; a host visible pool stays mapped for its whole life, so
BufferResource.Bytes can be written every frame.
*/
package vulkan
