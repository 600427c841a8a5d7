package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

func family(index int, flags vk.QueueFlagBits) *QueueFamily {
	return &QueueFamily{
		Index:                   index,
		VKQueueFamilyProperties: vk.QueueFamilyProperties{QueueFlags: vk.QueueFlags(flags)},
	}
}

func presentOn(indices ...int) func(q *QueueFamily) bool {
	return func(q *QueueFamily) bool {
		for _, i := range indices {
			if q.Index == i {
				return true
			}
		}
		return false
	}
}

func TestSelectQueues(t *testing.T) {
	families := QueueFamilySlice{
		family(0, vk.QueueTransferBit),
		family(1, vk.QueueGraphicsBit|vk.QueueComputeBit),
		family(2, vk.QueueGraphicsBit),
		family(3, vk.QueueComputeBit),
	}

	tests := []struct {
		name               string
		present            []int
		graphics, presentQ int
	}{
		{name: "shared family preferred", present: []int{0, 2}, graphics: 2, presentQ: 2},
		{name: "first shared family", present: []int{1, 2}, graphics: 1, presentQ: 1},
		{name: "separate families", present: []int{3}, graphics: 1, presentQ: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, p, err := selectQueues(families, presentOn(tt.present...))
			require.NoError(t, err)
			assert.Equal(t, tt.graphics, g.Index)
			assert.Equal(t, tt.presentQ, p.Index)
		})
	}
}

func TestSelectQueuesNone(t *testing.T) {
	_, _, err := selectQueues(QueueFamilySlice{family(0, vk.QueueGraphicsBit)}, presentOn())
	assert.Error(t, err)

	_, _, err = selectQueues(QueueFamilySlice{family(0, vk.QueueComputeBit)}, presentOn(0))
	assert.Error(t, err)
}

func TestQueueFamilyFlags(t *testing.T) {
	q := family(4, vk.QueueGraphicsBit|vk.QueueTransferBit)
	assert.True(t, q.IsGraphics())
	assert.True(t, q.IsTransfer())
	assert.False(t, q.IsCompute())
	assert.Equal(t, "{ Index: 4 Compute: false Graphics: true Transfer: true }", q.String())
}
