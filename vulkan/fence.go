package vulkan

import (
	"github.com/celer/vkframe"
	vk "github.com/vulkan-go/vulkan"
)

type Fence struct {
	Device  *Device
	VKFence vk.Fence
}

func (f *Fence) Destroy() {
	vk.DestroyFence(f.Device.VKDevice, f.VKFence, nil)
}

// CreateFence creates a fence, optionally in the signaled state so the first
// wait on it returns immediately.
func (d *Device) CreateFence(signaled bool) (vkframe.Fence, error) {
	var fence vk.Fence
	var fenceCreateInfo = vk.FenceCreateInfo{}
	fenceCreateInfo.SType = vk.StructureTypeFenceCreateInfo
	if signaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	err := vk.Error(vk.CreateFence(d.VKDevice, &fenceCreateInfo, nil, &fence))
	if err != nil {
		return nil, err
	}
	return &Fence{Device: d, VKFence: fence}, nil
}
