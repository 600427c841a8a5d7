package vulkan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestClampExtent(t *testing.T) {
	bounds := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 64, Height: 64},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 2160},
	}

	tests := []struct {
		name string
		caps vk.SurfaceCapabilities
		want vk.Extent2D
		got  vk.Extent2D
	}{
		{
			name: "surface dictates its extent",
			caps: vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{Width: 1280, Height: 720}},
			want: vk.Extent2D{Width: 800, Height: 600},
			got:  vk.Extent2D{Width: 1280, Height: 720},
		},
		{
			name: "minimized surface",
			caps: vk.SurfaceCapabilities{CurrentExtent: vk.Extent2D{}},
			want: vk.Extent2D{Width: 800, Height: 600},
			got:  vk.Extent2D{},
		},
		{
			name: "window size within bounds",
			caps: bounds,
			want: vk.Extent2D{Width: 800, Height: 600},
			got:  vk.Extent2D{Width: 800, Height: 600},
		},
		{
			name: "clamped to minimum",
			caps: bounds,
			want: vk.Extent2D{Width: 10, Height: 600},
			got:  vk.Extent2D{Width: 64, Height: 600},
		},
		{
			name: "clamped to maximum",
			caps: bounds,
			want: vk.Extent2D{Width: 8000, Height: 5000},
			got:  vk.Extent2D{Width: 4096, Height: 2160},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.got, clampExtent(tt.want, &tt.caps))
		})
	}
}

func TestDesiredImageCount(t *testing.T) {
	tests := []struct {
		name     string
		want     int
		min, max uint32
		got      int
	}{
		{name: "default is one above minimum", want: 0, min: 2, max: 8, got: 3},
		{name: "default capped by maximum", want: 0, min: 3, max: 3, got: 3},
		{name: "requested within range", want: 4, min: 2, max: 8, got: 4},
		{name: "raised to minimum", want: 1, min: 2, max: 8, got: 2},
		{name: "lowered to maximum", want: 10, min: 2, max: 8, got: 8},
		{name: "zero maximum means no limit", want: 16, min: 2, max: 0, got: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := vk.SurfaceCapabilities{MinImageCount: tt.min, MaxImageCount: tt.max}
			assert.Equal(t, tt.got, desiredImageCount(tt.want, &caps))
		})
	}
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "B8G8R8A8_UNORM", formatName(vk.FormatB8g8r8a8Unorm))
	assert.Equal(t, "R8G8B8A8_SRGB", formatName(vk.FormatR8g8b8a8Srgb))
	assert.Equal(t, "Format(126)", formatName(vk.FormatD32Sfloat))
}
