package gpu

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vk "github.com/vulkan-go/vulkan"
)

// Every allocated command buffer must be owned by a slot before sync objects are
// created, so that destroying the slots on failure frees all of them.
func TestNewSlotsOwnEveryCommandBuffer(t *testing.T) {
	backing := make([]byte, 3)
	buffers := make([]vk.CommandBuffer, len(backing))
	for i := range buffers {
		buffers[i] = vk.CommandBuffer(unsafe.Pointer(&backing[i]))
	}

	dev := &DeviceContext{}
	slots := newSlots(dev, buffers)

	require.Len(t, slots, len(buffers))
	for i, slot := range slots {
		assert.True(t, buffers[i] == slot.commandBuffer, "slot %d", i)
		assert.Same(t, dev, slot.dev)
		assert.Equal(t, vk.Semaphore(vk.NullHandle), slot.imageAvailable)
		assert.Equal(t, vk.Semaphore(vk.NullHandle), slot.renderFinished)
		assert.Equal(t, vk.NullFence, slot.inFlight)
	}
}
