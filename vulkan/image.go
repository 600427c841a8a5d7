package vulkan

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

type Image struct {
	Device   *Device
	VKImage  vk.Image
	VKFormat vk.Format
	Extent   vk.Extent2D
}

func (i *Image) GetMemoryRequirements() vk.MemoryRequirements {
	var memRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(i.Device.VKDevice, i.VKImage, &memRequirements)
	memRequirements.Deref()
	return memRequirements
}

func (d *Device) CreateImage(extent vk.Extent2D, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags) (*Image, error) {
	var imageInfo = vk.ImageCreateInfo{}
	imageInfo.SType = vk.StructureTypeImageCreateInfo
	imageInfo.ImageType = vk.ImageType2d
	imageInfo.Extent.Width = extent.Width
	imageInfo.Extent.Height = extent.Height
	imageInfo.Extent.Depth = 1
	imageInfo.MipLevels = 1
	imageInfo.ArrayLayers = 1
	imageInfo.Format = format
	imageInfo.Tiling = tiling
	imageInfo.InitialLayout = vk.ImageLayoutUndefined
	imageInfo.Usage = usage
	imageInfo.Samples = vk.SampleCount1Bit
	imageInfo.SharingMode = vk.SharingModeExclusive

	var image vk.Image

	err := vk.Error(vk.CreateImage(d.VKDevice, &imageInfo, nil, &image))
	if err != nil {
		return nil, err
	}

	return &Image{
		Device:   d,
		VKImage:  image,
		VKFormat: format,
		Extent:   extent,
	}, nil
}

func (i *Image) Destroy() {
	vk.DestroyImage(i.Device.VKDevice, i.VKImage, nil)
}

// BoundImage is an image with its own dedicated memory allocation.
type BoundImage struct {
	Image
	DeviceMemory *DeviceMemory
}

func (d *Device) CreateBoundImage(extent vk.Extent2D, format vk.Format, tiling vk.ImageTiling, usage vk.ImageUsageFlags, props vk.MemoryPropertyFlagBits) (*BoundImage, error) {
	i, err := d.CreateImage(extent, format, tiling, usage)
	if err != nil {
		return nil, err
	}

	mr := i.GetMemoryRequirements()

	mem, err := d.Allocate(int(mr.Size), mr.MemoryTypeBits, props)
	if err != nil {
		i.Destroy()
		return nil, err
	}

	err = vk.Error(vk.BindImageMemory(d.VKDevice, i.VKImage, mem.VKDeviceMemory, 0))
	if err != nil {
		mem.Destroy()
		i.Destroy()
		return nil, fmt.Errorf("binding image memory: %w", err)
	}

	return &BoundImage{Image: *i, DeviceMemory: mem}, nil
}

// Destroy destroys the image and frees its memory.
func (b *BoundImage) Destroy() {
	b.Image.Destroy()
	b.DeviceMemory.Destroy()
}
