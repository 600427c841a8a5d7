package vulkan

import (
	"fmt"

	"github.com/celer/vkframe"
	"github.com/vulkan-go/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Window adapts a GLFW window to vkframe.Surface. Sizes are framebuffer
// sizes in pixels, which differ from the window size on high DPI displays.
type Window struct {
	GLFW *glfw.Window

	listeners []func(vkframe.Extent)
}

var _ vkframe.Surface = (*Window)(nil)

// NewWindow wraps w and installs its framebuffer size callback.
func NewWindow(w *glfw.Window) *Window {
	win := &Window{GLFW: w}
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		e := vkframe.Extent{Width: uint32(width), Height: uint32(height)}
		for _, fn := range win.listeners {
			fn(e)
		}
	})
	return win
}

func (w *Window) Extent() vkframe.Extent {
	width, height := w.GLFW.GetFramebufferSize()
	return vkframe.Extent{Width: uint32(width), Height: uint32(height)}
}

func (w *Window) Minimized() bool {
	return w.GLFW.GetAttrib(glfw.Iconified) == glfw.True
}

func (w *Window) OnResize(fn func(vkframe.Extent)) {
	w.listeners = append(w.listeners, fn)
}

// RequiredExtensions returns the instance extensions GLFW needs to create a
// surface for this window.
func (w *Window) RequiredExtensions() []string {
	return w.GLFW.GetRequiredInstanceExtensions()
}

// CreateSurface creates the window's Vulkan surface on instance.
func (w *Window) CreateSurface(instance *Instance) (vk.Surface, error) {
	surface, err := w.GLFW.CreateWindowSurface(instance.VKInstance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("creating window surface: %w", err)
	}
	return vk.SurfaceFromPointer(surface), nil
}
