// Package frame drives the per-frame protocol between CPU command recording and GPU
// execution: wait for a frame slot, acquire an image, record, submit, present and
// advance. The GPU objects themselves are reached through the small interfaces
// declared here, so the protocol does not depend on how they are implemented.
package frame

import (
	vk "github.com/vulkan-go/vulkan"
)

// Recorder records the commands of one frame into a command buffer.
type Recorder interface {
	BeginRenderPass(renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, clear [4]float32)
	BindPipeline(pipeline vk.Pipeline)
	BindVertexBuffer(buffer vk.Buffer, offset vk.DeviceSize)
	BindIndexBuffer(buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType)
	SetViewport(viewport vk.Viewport)
	SetScissor(scissor vk.Rect2D)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32)
	EndRenderPass()
}

// Signals are the GPU-side semaphores of a frame slot.
type Signals interface {
	// ImageAvailable is signaled by the presentation engine once the acquired
	// image can be rendered to.
	ImageAvailable() vk.Semaphore
	// RenderFinished is signaled when the frame's commands complete and is
	// waited on by presentation.
	RenderFinished() vk.Semaphore
}

// Slot is one frame in flight: its synchronization primitives and its command
// buffer.
type Slot interface {
	Signals

	// Wait blocks until the work last submitted from this slot has completed.
	// A slot that never submitted counts as completed.
	Wait() error
	// Reset marks the slot's completion fence unsignaled.
	Reset() error
	// Begin resets the command buffer and starts recording into it.
	Begin() (Recorder, error)
	// End finishes recording.
	End() error
	// Submit enqueues the recorded commands on the graphics queue. They wait on
	// ImageAvailable and signal RenderFinished and the completion fence.
	Submit() error
}

// Chain is the presentable image chain of a surface.
type Chain interface {
	// Acquire requests the next image, signaling slot.ImageAvailable.
	Acquire(slot Signals) (image uint32, status Status, err error)
	// Present queues image for presentation after slot.RenderFinished.
	Present(slot Signals, image uint32) (Status, error)
	// Rebuild recreates the chain and everything that depends on its images.
	Rebuild() error

	Framebuffer(image uint32) vk.Framebuffer
	Extent() vk.Extent2D
	ImageCount() int
}

// Pass is the compiled render pass and pipeline every frame binds.
type Pass struct {
	RenderPass vk.RenderPass
	Pipeline   vk.Pipeline
}

// DrawData describes the indexed geometry drawn each frame.
type DrawData struct {
	VertexBuffer vk.Buffer
	IndexBuffer  vk.Buffer
	IndexType    vk.IndexType
	IndexCount   uint32
}

// Target is the image a frame renders into.
type Target struct {
	Framebuffer vk.Framebuffer
	Extent      vk.Extent2D
	Clear       [4]float32
}

// Events is the part of the window the frame loop polls between frames.
type Events interface {
	ShouldClose() bool
	PollEvents()
}

// Record issues the commands of one frame: a single render pass over the target that
// clears it and draws all of draw's indices once.
func Record(rec Recorder, target Target, pass Pass, draw DrawData) {
	rec.BeginRenderPass(pass.RenderPass, target.Framebuffer, target.Extent, target.Clear)
	rec.BindPipeline(pass.Pipeline)

	rec.BindVertexBuffer(draw.VertexBuffer, 0)
	rec.BindIndexBuffer(draw.IndexBuffer, 0, draw.IndexType)

	rec.SetViewport(vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(target.Extent.Width),
		Height:   float32(target.Extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	})
	rec.SetScissor(vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: target.Extent,
	})

	rec.DrawIndexed(draw.IndexCount, 1, 0, 0, 0)
	rec.EndRenderPass()
}
