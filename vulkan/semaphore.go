package vulkan

import (
	"github.com/celer/vkframe"
	vk "github.com/vulkan-go/vulkan"
)

type Semaphore struct {
	Device      *Device
	VKSemaphore vk.Semaphore
}

func (s *Semaphore) Destroy() {
	vk.DestroySemaphore(s.Device.VKDevice, s.VKSemaphore, nil)
}

// CreateSemaphore creates a binary semaphore.
func (d *Device) CreateSemaphore() (vkframe.Semaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	var sema vk.Semaphore

	err := vk.Error(vk.CreateSemaphore(d.VKDevice, &semaphoreCreateInfo, nil, &sema))
	if err != nil {
		return nil, err
	}
	return &Semaphore{Device: d, VKSemaphore: sema}, nil
}

func vkSemaphores(sems []vkframe.Semaphore) []vk.Semaphore {
	ret := make([]vk.Semaphore, len(sems))
	for i := range sems {
		ret[i] = sems[i].(*Semaphore).VKSemaphore
	}
	return ret
}
