package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type QueueFamilySlice []*QueueFamily

func (ql QueueFamilySlice) Filter(f func(q *QueueFamily) bool) QueueFamilySlice {
	ret := make([]*QueueFamily, 0)
	for _, q := range ql {
		if f(q) {
			ret = append(ret, q)
		}
	}
	return ret
}

func (ql QueueFamilySlice) FilterGraphics() QueueFamilySlice {
	return ql.Filter(func(q *QueueFamily) bool {
		return q.IsGraphics()
	})
}

type QueueFamily struct {
	Index                   int
	PhysicalDevice          *PhysicalDevice
	VKQueueFamilyProperties vk.QueueFamilyProperties
}

func (q *QueueFamily) IsCompute() bool {
	return q.VKQueueFamilyProperties.QueueFlags&vk.QueueFlags(vk.QueueComputeBit) == vk.QueueFlags(vk.QueueComputeBit)
}

func (q *QueueFamily) IsGraphics() bool {
	return q.VKQueueFamilyProperties.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) == vk.QueueFlags(vk.QueueGraphicsBit)
}

func (q *QueueFamily) IsTransfer() bool {
	return q.VKQueueFamilyProperties.QueueFlags&vk.QueueFlags(vk.QueueTransferBit) == vk.QueueFlags(vk.QueueTransferBit)
}

func (q *QueueFamily) SupportsPresent(surface vk.Surface) bool {
	var supportsPresent vk.Bool32
	vk.GetPhysicalDeviceSurfaceSupport(q.PhysicalDevice.VKPhysicalDevice, uint32(q.Index), surface, &supportsPresent)
	return supportsPresent == vk.True
}

func (q *QueueFamily) String() string {
	return fmt.Sprintf("{ Index: %d Compute: %v Graphics: %v Transfer: %v }", q.Index, q.IsCompute(), q.IsGraphics(), q.IsTransfer())
}

// SelectQueues picks the graphics and present families for surface. A family
// that can do both is preferred so that swapchain images need no sharing.
func SelectQueues(families QueueFamilySlice, surface vk.Surface) (graphics, present *QueueFamily, err error) {
	return selectQueues(families, func(q *QueueFamily) bool {
		return q.SupportsPresent(surface)
	})
}

func selectQueues(families QueueFamilySlice, canPresent func(q *QueueFamily) bool) (graphics, present *QueueFamily, err error) {
	both := families.Filter(func(q *QueueFamily) bool {
		return q.IsGraphics() && canPresent(q)
	})
	if len(both) > 0 {
		return both[0], both[0], nil
	}
	g := families.FilterGraphics()
	p := families.Filter(canPresent)
	if len(g) == 0 || len(p) == 0 {
		return nil, nil, fmt.Errorf("no graphics and present capable queues found")
	}
	return g[0], p[0], nil
}
