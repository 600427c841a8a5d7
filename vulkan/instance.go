package vulkan

import (
	"fmt"
	"unsafe"

	"github.com/celer/vkframe"
	vk "github.com/vulkan-go/vulkan"
	"go.uber.org/zap"
)

// Version is used to specify versions of components
type Version struct {
	Major int
	Minor int
	Patch int
}

// VKVersion returns a Vulkan compatible version representation
func (v *Version) VKVersion() uint32 {
	return vk.MakeVersion(v.Major, v.Minor, v.Patch)
}

// App is used to provide information about this specific application to Vulkan
type App struct {
	// Name the name of the application
	Name string
	// Engine the name of the engine associated with the application
	EngineName string
	// Version the version of the application
	Version Version
	// APIVersion the expected minimum version of the Vulkan API (i.e. 1.0.0)
	APIVersion Version

	// EnabledLayers the enabled layers
	EnabledLayers []string

	// EnabledExtensions the enabled extensions
	EnabledExtensions []string
}

// SupportedLayers returns a list of supported layers for use by Vulkan.
// vk.Init must have been called.
func SupportedLayers() ([]string, error) {
	var instanceLayerLen uint32
	err := vk.Error(vk.EnumerateInstanceLayerProperties(&instanceLayerLen, nil))
	if err != nil {
		return nil, err
	}
	instanceLayer := make([]vk.LayerProperties, instanceLayerLen)
	err = vk.Error(vk.EnumerateInstanceLayerProperties(&instanceLayerLen, instanceLayer))
	if err != nil {
		return nil, err
	}
	layerNames := make([]string, 0, len(instanceLayer))
	for _, layer := range instanceLayer {
		layer.Deref()
		layerNames = append(layerNames, vk.ToString(layer.LayerName[:]))
	}
	return layerNames, nil
}

// SupportedExtensions returns a list of supported instance extensions.
// vk.Init must have been called.
func SupportedExtensions() ([]string, error) {
	var instanceExtLen uint32
	err := vk.Error(vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, nil))
	if err != nil {
		return nil, err
	}
	instanceExt := make([]vk.ExtensionProperties, instanceExtLen)
	err = vk.Error(vk.EnumerateInstanceExtensionProperties("", &instanceExtLen, instanceExt))
	if err != nil {
		return nil, err
	}
	extNames := make([]string, 0, len(instanceExt))
	for _, ext := range instanceExt {
		ext.Deref()
		extNames = append(extNames, vk.ToString(ext.ExtensionName[:]))
	}
	return extNames, nil
}

// EnableDebugging enables the Khronos validation layer and the debug report
// extension. A missing layer is logged and otherwise ignored.
func (a *App) EnableDebugging() {
	if _, err := a.EnableLayer("VK_LAYER_KHRONOS_validation"); err != nil {
		vkframe.Logger().Warn("validation disabled", zap.Error(err))
		return
	}
	a.EnableExtension("VK_EXT_debug_report")
}

// EnableLayer enables a specific layer
func (a *App) EnableLayer(layer string) (*App, error) {
	layers, err := SupportedLayers()
	if err != nil {
		return a, fmt.Errorf("error getting supported layers: %w", err)
	}
	for _, l := range layers {
		if l == layer {
			a.EnabledLayers = append(a.EnabledLayers, layer)
			return a, nil
		}
	}
	return a, fmt.Errorf("validation layer '%s' not found", layer)
}

// EnableExtension enables an extension for use by the application
func (a *App) EnableExtension(extension string) *App {
	for _, e := range a.EnabledExtensions {
		if e == extension {
			return a
		}
	}
	a.EnabledExtensions = append(a.EnabledExtensions, extension)
	return a
}

// VKApplicationInfo creates a structure representing this application in a Vulkan friendly format
func (a *App) VKApplicationInfo() vk.ApplicationInfo {
	if a.APIVersion.Major < 1 {
		a.APIVersion.Major = 1
	}

	return vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         a.APIVersion.VKVersion(),
		ApplicationVersion: a.Version.VKVersion(),
		PApplicationName:   safeString(a.Name),
		PEngineName:        safeString(a.EngineName),
	}
}

// CreateInstance creates the Vulkan Instance
func (a *App) CreateInstance() (*Instance, error) {
	appInfo := a.VKApplicationInfo()

	extensions := safeStrings(append([]string(nil), a.EnabledExtensions...))
	layers := safeStrings(append([]string(nil), a.EnabledLayers...))

	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	instance := &Instance{}

	err := vk.Error(vk.CreateInstance(&createInfo, nil, &instance.VKInstance))
	if err != nil {
		return nil, fmt.Errorf("creating instance: %w", err)
	}
	if err := vk.InitInstance(instance.VKInstance); err != nil {
		vk.DestroyInstance(instance.VKInstance, nil)
		return nil, fmt.Errorf("loading instance functions: %w", err)
	}

	vkframe.Logger().Debug("instance created",
		zap.Strings("layers", a.EnabledLayers),
		zap.Strings("extensions", a.EnabledExtensions))

	return instance, nil
}

// Instance is an instance of the Vulkan subsystem
type Instance struct {
	// VKInstance is the native Vulkan instance object
	VKInstance vk.Instance

	debugCallback vk.DebugReportCallback
}

// PhysicalDevices returns a list of physical devices known to Vulkan
func (i *Instance) PhysicalDevices() ([]*PhysicalDevice, error) {
	var deviceCount uint32
	err := vk.Error(vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, nil))
	if err != nil {
		return nil, err
	}

	if deviceCount == 0 {
		return nil, nil
	}

	devices := make([]vk.PhysicalDevice, deviceCount)
	err = vk.Error(vk.EnumeratePhysicalDevices(i.VKInstance, &deviceCount, devices))
	if err != nil {
		return nil, err
	}

	ret := make([]*PhysicalDevice, deviceCount)
	for j, device := range devices {
		ret[j] = &PhysicalDevice{VKPhysicalDevice: device}

		vk.GetPhysicalDeviceProperties(device, &ret[j].VKPhysicalDeviceProperties)

		ret[j].VKPhysicalDeviceProperties.Deref()
		ret[j].DeviceName = vk.ToString(ret[j].VKPhysicalDeviceProperties.DeviceName[:])
	}
	return ret, nil
}

// UseDefaultDebugCallback routes validation messages to the package logger.
func (i *Instance) UseDefaultDebugCallback() error {
	return i.SetDebugCallback(DefaultDebugCallback)
}

func (i *Instance) SetDebugCallback(callback vk.DebugReportCallbackFunc) error {
	var debugCallback vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(i.VKInstance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: callback,
	}, nil, &debugCallback)
	if err := vk.Error(ret); err != nil {
		return err
	}
	i.debugCallback = debugCallback
	return nil
}

// DefaultDebugCallback logs a validation message at a level matching its
// flags.
func DefaultDebugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	log := vkframe.Logger().With(
		zap.String("layer", pLayerPrefix),
		zap.Int32("code", messageCode))

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		log.Error(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		log.Warn(pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		log.Warn(pMessage, zap.Bool("performance", true))
	case flags&vk.DebugReportFlags(vk.DebugReportDebugBit) != 0:
		log.Debug(pMessage)
	default:
		log.Info(pMessage)
	}
	return vk.Bool32(vk.False)
}

func (i *Instance) Destroy() {
	if i.debugCallback != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(i.VKInstance, i.debugCallback, nil)
		i.debugCallback = vk.NullDebugReportCallback
	}
	vk.DestroyInstance(i.VKInstance, nil)
}
