package vulkan

import (
	"fmt"

	"github.com/celer/vkframe"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// Graphics is the set of long lived objects needed to render to a window.
type Graphics struct {
	Instance       *Instance
	PhysicalDevice *PhysicalDevice
	Device         *Device
	Surface        vk.Surface
	Window         *Window
}

// Bootstrap creates the instance, the window surface and a logical device
// with graphics and present queues and a command pool. Their teardown is
// pushed onto ctx, so ctx.ResetInstance destroys them after every resource
// created later. vk.Init must have been called.
func Bootstrap(ctx *vkframe.Context, window *Window, version Version) (*Graphics, error) {
	log := ctx.Logger()

	app := &App{Name: ctx.Config.AppName, EngineName: "vkframe", Version: version}
	for _, ext := range window.RequiredExtensions() {
		app.EnableExtension(ext)
	}
	if ctx.Config.Debug {
		app.EnableDebugging()
	}

	instance, err := app.CreateInstance()
	if err != nil {
		return nil, err
	}
	ctx.Defer(instance.Destroy)

	if ctx.Config.Debug {
		if err := instance.UseDefaultDebugCallback(); err != nil {
			log.Warn("debug callback unavailable", zap.Error(err))
		}
	}

	surface, err := window.CreateSurface(instance)
	if err != nil {
		return nil, err
	}
	ctx.Defer(func() { vk.DestroySurface(instance.VKInstance, surface, nil) })

	physicalDevices, err := instance.PhysicalDevices()
	if err != nil {
		return nil, fmt.Errorf("error getting devices: %w", err)
	}

	pdevice, graphics, present, err := pickPhysicalDevice(physicalDevices, surface)
	if err != nil {
		return nil, err
	}

	ldevice, err := pdevice.CreateLogicalDeviceWithOptions(QueueFamilySlice{graphics, present}, &CreateDeviceOptions{
		EnabledExtensions: []string{"VK_KHR_swapchain"},
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create device: %w", err)
	}
	ctx.Defer(ldevice.Destroy)

	ldevice.GraphicsQueue = ldevice.GetQueue(graphics)
	ldevice.PresentQueue = ldevice.GetQueue(present)

	ldevice.CommandPool, err = ldevice.CreateCommandPool(graphics)
	if err != nil {
		return nil, fmt.Errorf("unable to create command pool: %w", err)
	}

	log.Info("device ready",
		zap.String("device", pdevice.DeviceName),
		zap.Int("graphics_family", graphics.Index),
		zap.Int("present_family", present.Index))

	return &Graphics{
		Instance:       instance,
		PhysicalDevice: pdevice,
		Device:         ldevice,
		Surface:        surface,
		Window:         window,
	}, nil
}

// pickPhysicalDevice returns the first device that can present to surface
// and supports swapchains, preferring discrete GPUs.
func pickPhysicalDevice(devices []*PhysicalDevice, surface vk.Surface) (*PhysicalDevice, *QueueFamily, *QueueFamily, error) {
	if len(devices) == 0 {
		return nil, nil, nil, fmt.Errorf("no devices found")
	}

	type candidate struct {
		device            *PhysicalDevice
		graphics, present *QueueFamily
	}
	var best *candidate
	for _, d := range devices {
		if !d.SupportsExtension("VK_KHR_swapchain") {
			continue
		}
		families, err := d.QueueFamilies()
		if err != nil {
			vkframe.Logger().Warn("skipping device", zap.String("device", d.DeviceName), zap.Error(err))
			continue
		}
		g, p, err := SelectQueues(families, surface)
		if err != nil {
			continue
		}
		if best == nil || (d.IsDiscrete() && !best.device.IsDiscrete()) {
			best = &candidate{device: d, graphics: g, present: p}
		}
	}
	if best == nil {
		return nil, nil, nil, fmt.Errorf("no device among %d can present to the window", len(devices))
	}
	return best.device, best.graphics, best.present, nil
}

// NewSwapchain creates the presentation engine for g's surface and the
// swapchain driving it. The engine's retired swapchain is destroyed through
// ctx.
func (g *Graphics) NewSwapchain(ctx *vkframe.Context) (*vkframe.Swapchain, *PresentationEngine, error) {
	engine := g.Device.NewPresentationEngine(g.Surface, ctx.Config.Swapchain)
	sc, err := vkframe.NewSwapchain(g.Device, g.Window, engine, ctx.Config.Swapchain)
	if err != nil {
		return nil, nil, err
	}
	ctx.Defer(func() {
		sc.Destroy()
		engine.Destroy()
	})
	return sc, engine, nil
}
