package gpu

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
	"golang.org/x/exp/slog"

	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/frame"
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/geometry"
	"github.com/jm-soriano72/Global-Ilumination-Surfels-sub001/shaders"
)

// PipelineState owns the render pass, the pipeline layout and the graphics
// pipeline. It is built once and does not depend on the chain's extent.
type PipelineState struct {
	dev *DeviceContext

	RenderPass vk.RenderPass
	Layout     vk.PipelineLayout
	Pipeline   vk.Pipeline
}

// NewPipelineState builds the render pass for images of the given format and the
// pipeline drawing vertices laid out as layout. Every failure is marked with
// ErrPipelineBuildFailed.
func NewPipelineState(
	dev *DeviceContext,
	format vk.Format,
	set shaders.Set,
	layout geometry.Layout,
) (*PipelineState, error) {
	p := &PipelineState{
		dev:        dev,
		RenderPass: vk.RenderPass(vk.NullHandle),
		Layout:     vk.PipelineLayout(vk.NullHandle),
		Pipeline:   vk.Pipeline(vk.NullHandle),
	}

	if err := p.createRenderPass(format); err != nil {
		return nil, errors.Mark(err, ErrPipelineBuildFailed)
	}

	if err := p.createGraphicsPipeline(set, layout); err != nil {
		p.Destroy()
		return nil, errors.Mark(err, ErrPipelineBuildFailed)
	}

	dev.log.Debug("graphics pipeline created",
		slog.Int("vertex_shader_size", len(set.Vertex.Code)),
		slog.Int("fragment_shader_size", len(set.Fragment.Code)),
		slog.Int("vertex_stride", int(layout.Stride)),
	)

	return p, nil
}

// Pass returns what the frame loop binds every frame.
func (p *PipelineState) Pass() frame.Pass {
	return frame.Pass{RenderPass: p.RenderPass, Pipeline: p.Pipeline}
}

// Destroy releases the pipeline, its layout and the render pass.
func (p *PipelineState) Destroy() {
	device := p.dev.Device
	if p.Pipeline != vk.Pipeline(vk.NullHandle) {
		vk.DestroyPipeline(device, p.Pipeline, nil)
		p.Pipeline = vk.Pipeline(vk.NullHandle)
	}
	if p.Layout != vk.PipelineLayout(vk.NullHandle) {
		vk.DestroyPipelineLayout(device, p.Layout, nil)
		p.Layout = vk.PipelineLayout(vk.NullHandle)
	}
	if p.RenderPass != vk.RenderPass(vk.NullHandle) {
		vk.DestroyRenderPass(device, p.RenderPass, nil)
		p.RenderPass = vk.RenderPass(vk.NullHandle)
	}
}

func (p *PipelineState) createRenderPass(format vk.Format) error {
	colorAttachmentRef := vk.AttachmentReference{
		Attachment: 0,
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: 1,
		PColorAttachments:    []vk.AttachmentReference{colorAttachmentRef},
	}

	renderPassInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.AttachmentDescription{colorAttachment(format)},
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{subpassDependency()},
	}

	var renderPass vk.RenderPass
	res := vk.CreateRenderPass(p.dev.Device, &renderPassInfo, nil, &renderPass)
	if err := vkError(res, "failed to create render pass"); err != nil {
		return err
	}
	p.RenderPass = renderPass

	return nil
}

func (p *PipelineState) createGraphicsPipeline(set shaders.Set, layout geometry.Layout) error {
	vertexShaderModule, err := p.createShaderModule(set.Vertex)
	if err != nil {
		return errors.Wrap(err, "creating vertex shader module")
	}
	defer vk.DestroyShaderModule(p.dev.Device, vertexShaderModule, nil)

	fragmentShaderModule, err := p.createShaderModule(set.Fragment)
	if err != nil {
		return errors.Wrap(err, "creating fragment shader module")
	}
	defer vk.DestroyShaderModule(p.dev.Device, fragmentShaderModule, nil)

	shaderStages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertexShaderModule,
			PName:  set.Vertex.Entry + "\x00",
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragmentShaderModule,
			PName:  set.Fragment.Entry + "\x00",
		},
	}

	binding, attributes := vertexInput(layout)
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{binding},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := inputAssemblyState()

	dynamic := dynamicStates()
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamic)),
		PDynamicStates:    dynamic,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := rasterizationState()
	multisampling := multisampleState()

	colorBlending := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments: []vk.PipelineColorBlendAttachmentState{
			blendAttachment(),
		},
	}

	pipelineLayoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 0,
	}

	var pipelineLayout vk.PipelineLayout
	res := vk.CreatePipelineLayout(p.dev.Device, &pipelineLayoutInfo, nil, &pipelineLayout)
	if err := vkError(res, "failed to create pipeline layout"); err != nil {
		return err
	}
	p.Layout = pipelineLayout

	pipelineInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(shaderStages)),
		PStages:             shaderStages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  nil,
		PColorBlendState:    &colorBlending,
		PDynamicState:       &dynamicState,
		Layout:              p.Layout,
		RenderPass:          p.RenderPass,
		Subpass:             0,
		BasePipelineHandle:  vk.Pipeline(vk.NullHandle),
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	res = vk.CreateGraphicsPipelines(
		p.dev.Device,
		vk.PipelineCache(vk.NullHandle),
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineInfo},
		nil,
		pipelines,
	)
	if err := vkError(res, "failed to create graphics pipeline"); err != nil {
		return err
	}
	p.Pipeline = pipelines[0]

	return nil
}

func (p *PipelineState) createShaderModule(stage shaders.Stage) (vk.ShaderModule, error) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(stage.Code)),
		PCode:    stage.Words(),
	}

	var shaderModule vk.ShaderModule
	res := vk.CreateShaderModule(p.dev.Device, &createInfo, nil, &shaderModule)
	return shaderModule, vk.Error(res)
}
