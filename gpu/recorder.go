package gpu

import (
	vk "github.com/vulkan-go/vulkan"
)

// recorder records into a command buffer that is between begin and end.
type recorder struct {
	cmd vk.CommandBuffer
}

func (r recorder) BeginRenderPass(
	renderPass vk.RenderPass,
	framebuffer vk.Framebuffer,
	extent vk.Extent2D,
	clear [4]float32,
) {
	renderPassInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: 1,
		PClearValues:    []vk.ClearValue{vk.NewClearValue(clear[:])},
	}

	vk.CmdBeginRenderPass(r.cmd, &renderPassInfo, vk.SubpassContentsInline)
}

func (r recorder) BindPipeline(pipeline vk.Pipeline) {
	vk.CmdBindPipeline(r.cmd, vk.PipelineBindPointGraphics, pipeline)
}

func (r recorder) BindVertexBuffer(buffer vk.Buffer, offset vk.DeviceSize) {
	vk.CmdBindVertexBuffers(r.cmd, 0, 1, []vk.Buffer{buffer}, []vk.DeviceSize{offset})
}

func (r recorder) BindIndexBuffer(buffer vk.Buffer, offset vk.DeviceSize, indexType vk.IndexType) {
	vk.CmdBindIndexBuffer(r.cmd, buffer, offset, indexType)
}

func (r recorder) SetViewport(viewport vk.Viewport) {
	vk.CmdSetViewport(r.cmd, 0, 1, []vk.Viewport{viewport})
}

func (r recorder) SetScissor(scissor vk.Rect2D) {
	vk.CmdSetScissor(r.cmd, 0, 1, []vk.Rect2D{scissor})
}

func (r recorder) DrawIndexed(
	indexCount, instanceCount, firstIndex uint32,
	vertexOffset int32,
	firstInstance uint32,
) {
	vk.CmdDrawIndexed(r.cmd, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
}

func (r recorder) EndRenderPass() {
	vk.CmdEndRenderPass(r.cmd)
}
