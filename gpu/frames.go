package gpu

import (
	"math"

	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/frame"
)

// FrameSlot holds what one frame in flight needs: a semaphore signaled when its
// image is acquired, one signaled when rendering is done, a fence for the CPU to
// wait on and a command buffer. It implements frame.Slot.
type FrameSlot struct {
	dev *DeviceContext

	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       vk.Fence
	commandBuffer  vk.CommandBuffer
}

var _ frame.Slot = (*FrameSlot)(nil)

// NewFrameSlots creates k slots. Their fences start signaled so the first wait on
// each returns at once.
func NewFrameSlots(dev *DeviceContext, k int) ([]*FrameSlot, error) {
	if k < 1 {
		return nil, errors.Newf("frames in flight must be at least 1, got %d", k)
	}

	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        dev.CommandPool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: uint32(k),
	}

	commandBuffers := make([]vk.CommandBuffer, k)
	res := vk.AllocateCommandBuffers(dev.Device, &allocInfo, commandBuffers)
	if err := vkError(res, "failed to allocate command buffers"); err != nil {
		return nil, err
	}

	// Every buffer belongs to a slot before anything else can fail, so destroying
	// the slots frees all of them.
	slots := newSlots(dev, commandBuffers)
	for i, slot := range slots {
		if err := slot.createSyncObjects(); err != nil {
			DestroyFrameSlots(slots)
			return nil, errors.Wrapf(err, "frame slot %d", i)
		}
	}

	return slots, nil
}

// newSlots wraps each command buffer in a slot without sync objects.
func newSlots(dev *DeviceContext, commandBuffers []vk.CommandBuffer) []*FrameSlot {
	slots := make([]*FrameSlot, len(commandBuffers))
	for i, commandBuffer := range commandBuffers {
		slots[i] = &FrameSlot{
			dev:            dev,
			imageAvailable: vk.Semaphore(vk.NullHandle),
			renderFinished: vk.Semaphore(vk.NullHandle),
			inFlight:       vk.NullFence,
			commandBuffer:  commandBuffer,
		}
	}
	return slots
}

// DestroyFrameSlots releases the slots and their command buffers. The device must
// be idle.
func DestroyFrameSlots(slots []*FrameSlot) {
	for _, slot := range slots {
		slot.destroy()
	}
}

// Slots returns slots as the interface the frame scheduler takes.
func Slots(slots []*FrameSlot) []frame.Slot {
	out := make([]frame.Slot, len(slots))
	for i, slot := range slots {
		out[i] = slot
	}
	return out
}

func (s *FrameSlot) ImageAvailable() vk.Semaphore { return s.imageAvailable }
func (s *FrameSlot) RenderFinished() vk.Semaphore { return s.renderFinished }

// Wait blocks on the slot's fence.
func (s *FrameSlot) Wait() error {
	res := vk.WaitForFences(s.dev.Device, 1, []vk.Fence{s.inFlight}, vk.True, math.MaxUint64)
	return vkError(res, "waiting for in-flight fence")
}

// Reset unsignals the slot's fence.
func (s *FrameSlot) Reset() error {
	return vkError(vk.ResetFences(s.dev.Device, 1, []vk.Fence{s.inFlight}), "resetting in-flight fence")
}

// Begin resets the command buffer and starts recording.
func (s *FrameSlot) Begin() (frame.Recorder, error) {
	res := vk.ResetCommandBuffer(s.commandBuffer, 0)
	if err := vkError(res, "cannot reset command buffer"); err != nil {
		return nil, err
	}

	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: 0,
	}
	res = vk.BeginCommandBuffer(s.commandBuffer, &beginInfo)
	if err := vkError(res, "cannot add begin command to the buffer"); err != nil {
		return nil, err
	}

	return recorder{cmd: s.commandBuffer}, nil
}

// End finishes recording.
func (s *FrameSlot) End() error {
	return vkError(vk.EndCommandBuffer(s.commandBuffer), "recording commands to buffer failed")
}

// Submit enqueues the recorded commands. They wait for the acquired image before
// writing color and signal the render finished semaphore and the fence.
func (s *FrameSlot) Submit() error {
	signalSemaphores := []vk.Semaphore{s.renderFinished}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{s.imageAvailable},
		PWaitDstStageMask: []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{s.commandBuffer},
		PSignalSemaphores:    signalSemaphores,
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
	}

	res := vk.QueueSubmit(s.dev.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, s.inFlight)
	return vkError(res, "queue submit error")
}

func (s *FrameSlot) createSyncObjects() error {
	semaphoreInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}

	fenceInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}

	var imageAvailable vk.Semaphore
	res := vk.CreateSemaphore(s.dev.Device, &semaphoreInfo, nil, &imageAvailable)
	if err := vkError(res, "failed to create image available semaphore"); err != nil {
		return err
	}
	s.imageAvailable = imageAvailable

	var renderFinished vk.Semaphore
	res = vk.CreateSemaphore(s.dev.Device, &semaphoreInfo, nil, &renderFinished)
	if err := vkError(res, "failed to create render finished semaphore"); err != nil {
		return err
	}
	s.renderFinished = renderFinished

	var fence vk.Fence
	res = vk.CreateFence(s.dev.Device, &fenceInfo, nil, &fence)
	if err := vkError(res, "failed to create in-flight fence"); err != nil {
		return err
	}
	s.inFlight = fence

	return nil
}

func (s *FrameSlot) destroy() {
	device := s.dev.Device
	if s.imageAvailable != vk.Semaphore(vk.NullHandle) {
		vk.DestroySemaphore(device, s.imageAvailable, nil)
		s.imageAvailable = vk.Semaphore(vk.NullHandle)
	}
	if s.renderFinished != vk.Semaphore(vk.NullHandle) {
		vk.DestroySemaphore(device, s.renderFinished, nil)
		s.renderFinished = vk.Semaphore(vk.NullHandle)
	}
	if s.inFlight != vk.NullFence {
		vk.DestroyFence(device, s.inFlight, nil)
		s.inFlight = vk.NullFence
	}
	if s.commandBuffer != nil {
		vk.FreeCommandBuffers(device, s.dev.CommandPool, 1, []vk.CommandBuffer{s.commandBuffer})
		s.commandBuffer = nil
	}
}
