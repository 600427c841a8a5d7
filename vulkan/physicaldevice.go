package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type VKPresentModes []vk.PresentMode

func (v VKPresentModes) Filter(f vk.PresentMode) VKPresentModes {
	ret := make(VKPresentModes, 0)
	for _, s := range v {
		if f == s {
			ret = append(ret, s)
		}
	}
	return ret
}

// Choose returns mailbox if preferMailbox is set and it is available, and
// FIFO otherwise. FIFO is the only mode every implementation supports.
func (v VKPresentModes) Choose(preferMailbox bool) vk.PresentMode {
	if preferMailbox {
		if m := v.Filter(vk.PresentModeMailbox); len(m) > 0 {
			return m[0]
		}
	}
	return vk.PresentModeFifo
}

type VKSurfaceFormats []vk.SurfaceFormat

func (v VKSurfaceFormats) Filter(f func(f vk.SurfaceFormat) bool) VKSurfaceFormats {
	ret := make(VKSurfaceFormats, 0)
	for _, s := range v {
		s.Deref()
		if f(s) {
			ret = append(ret, s)
		}
	}
	return ret
}

// Choose returns B8G8R8A8_UNORM if the surface supports it, or the first
// format otherwise.
func (v VKSurfaceFormats) Choose() (vk.SurfaceFormat, error) {
	if len(v) == 0 {
		return vk.SurfaceFormat{}, fmt.Errorf("surface reports no formats")
	}
	f := v.Filter(func(f vk.SurfaceFormat) bool {
		return f.Format == vk.FormatB8g8r8a8Unorm
	})
	if len(f) > 0 {
		return f[0], nil
	}
	first := v[0]
	first.Deref()
	if first.Format == vk.FormatUndefined {
		first.Format = vk.FormatB8g8r8a8Unorm
	}
	return first, nil
}

type PhysicalDevice struct {
	DeviceName                 string
	VKPhysicalDevice           vk.PhysicalDevice
	VKPhysicalDeviceProperties vk.PhysicalDeviceProperties
}

func (p *PhysicalDevice) GetSurfacePresentModes(surface vk.Surface) (VKPresentModes, error) {
	var count uint32
	err := vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.PresentMode, count)
	err = vk.Error(vk.GetPhysicalDeviceSurfacePresentModes(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (p *PhysicalDevice) GetSurfaceFormats(surface vk.Surface) (VKSurfaceFormats, error) {
	var count uint32
	err := vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, nil))
	if err != nil {
		return nil, err
	}

	f := make([]vk.SurfaceFormat, count)
	err = vk.Error(vk.GetPhysicalDeviceSurfaceFormats(p.VKPhysicalDevice, surface, &count, f))
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (p *PhysicalDevice) GetSurfaceCapabilities(surface vk.Surface) (*vk.SurfaceCapabilities, error) {
	var caps vk.SurfaceCapabilities
	err := vk.Error(vk.GetPhysicalDeviceSurfaceCapabilities(p.VKPhysicalDevice, surface, &caps))
	if err != nil {
		return nil, err
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	return &caps, nil
}

func (p *PhysicalDevice) String() string {
	return p.DeviceName
}

// IsDiscrete reports whether the device is a discrete GPU.
func (p *PhysicalDevice) IsDiscrete() bool {
	return p.VKPhysicalDeviceProperties.DeviceType == vk.PhysicalDeviceTypeDiscreteGpu
}

func (p *PhysicalDevice) QueueFamilies() (QueueFamilySlice, error) {
	var queueFamilyCount uint32

	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, nil)

	if queueFamilyCount == 0 {
		return nil, nil
	}

	queues := make([]vk.QueueFamilyProperties, queueFamilyCount)

	vk.GetPhysicalDeviceQueueFamilyProperties(p.VKPhysicalDevice, &queueFamilyCount, queues)

	ret := make([]*QueueFamily, queueFamilyCount)
	for i, queue := range queues {
		ret[i] = &QueueFamily{Index: i, PhysicalDevice: p, VKQueueFamilyProperties: queue}
		ret[i].VKQueueFamilyProperties.Deref()
	}

	return ret, nil
}

type CreateDeviceOptions struct {
	EnabledExtensions []string
	EnabledLayers     []string
}

// CreateLogicalDeviceWithOptions creates a device with one queue from each of
// qfs. Families with the same index are only requested once.
func (p *PhysicalDevice) CreateLogicalDeviceWithOptions(qfs QueueFamilySlice, options *CreateDeviceOptions) (*Device, error) {
	seen := make(map[int]bool)
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, 0, len(qfs))
	for _, q := range qfs {
		if seen[q.Index] {
			continue
		}
		seen[q.Index] = true
		queueCreateInfos = append(queueCreateInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: uint32(q.Index),
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	deviceFeatures := p.VKPhysicalDeviceFeatures()

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: uint32(len(queueCreateInfos)),
		PQueueCreateInfos:    queueCreateInfos,
		PEnabledFeatures:     []vk.PhysicalDeviceFeatures{deviceFeatures},
	}

	if options != nil {
		if options.EnabledExtensions != nil {
			deviceCreateInfo.EnabledExtensionCount = uint32(len(options.EnabledExtensions))
			deviceCreateInfo.PpEnabledExtensionNames = safeStrings(options.EnabledExtensions)
		}
		if options.EnabledLayers != nil {
			deviceCreateInfo.EnabledLayerCount = uint32(len(options.EnabledLayers))
			deviceCreateInfo.PpEnabledLayerNames = safeStrings(options.EnabledLayers)
		}
	}

	var ldevice vk.Device

	err := vk.Error(vk.CreateDevice(p.VKPhysicalDevice, &deviceCreateInfo, nil, &ldevice))
	if err != nil {
		return nil, err
	}

	return &Device{PhysicalDevice: p, VKDevice: ldevice}, nil
}

func (p *PhysicalDevice) VKPhysicalDeviceFeatures() vk.PhysicalDeviceFeatures {
	var deviceFeatures vk.PhysicalDeviceFeatures
	vk.GetPhysicalDeviceFeatures(p.VKPhysicalDevice, &deviceFeatures)
	return deviceFeatures
}

func (p *PhysicalDevice) VKPhysicalDeviceMemoryProperties() vk.PhysicalDeviceMemoryProperties {
	var memoryProperties vk.PhysicalDeviceMemoryProperties

	vk.GetPhysicalDeviceMemoryProperties(p.VKPhysicalDevice, &memoryProperties)
	return memoryProperties
}

// FindMemoryType returns the index of the first memory type allowed by
// memoryTypeBits that has every bit of properties.
func (p *PhysicalDevice) FindMemoryType(memoryTypeBits uint32, properties vk.MemoryPropertyFlagBits) (uint32, error) {
	memoryProperties := p.VKPhysicalDeviceMemoryProperties()
	mp := &memoryProperties
	mp.Deref()

	var i uint32
	for i = 0; i < mp.MemoryTypeCount; i++ {
		mt := mp.MemoryTypes[i]

		mt.Deref()
		if memoryTypeBits&(1<<i) != 0 &&
			vk.MemoryPropertyFlagBits(mt.PropertyFlags)&properties == properties {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no memory type matches bits %#x with properties %#x", memoryTypeBits, uint32(properties))
}

func (p *PhysicalDevice) SupportedExtensions() ([]string, error) {
	var count uint32
	err := vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, nil))
	if err != nil {
		return nil, err
	}

	ext := make([]vk.ExtensionProperties, count)

	err = vk.Error(vk.EnumerateDeviceExtensionProperties(p.VKPhysicalDevice, "", &count, ext))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ext))
	for _, e := range ext {
		e.Deref()
		names = append(names, vk.ToString(e.ExtensionName[:]))
	}
	return names, nil
}

// SupportsExtension reports whether the device exposes the named extension.
func (p *PhysicalDevice) SupportsExtension(name string) bool {
	names, err := p.SupportedExtensions()
	if err != nil {
		return false
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
