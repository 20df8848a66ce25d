package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// bytesToBytecode reads SPIR-V as little-endian 32-bit words.
func bytesToBytecode(b []byte) ([]uint32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, errors.Newf("shader bytecode length %d is not a positive multiple of 4", len(b))
	}

	byteCode := make([]uint32, len(b)/4)
	for i := 0; i < len(byteCode); i++ {
		byteIndex := i * 4
		byteCode[i] = 0
		byteCode[i] |= uint32(b[byteIndex])
		byteCode[i] |= uint32(b[byteIndex+1]) << 8
		byteCode[i] |= uint32(b[byteIndex+2]) << 16
		byteCode[i] |= uint32(b[byteIndex+3]) << 24
	}

	return byteCode, nil
}

func renderPassCreateInfo(format core1_0.Format) core1_0.RenderPassCreateInfo {
	return core1_0.RenderPassCreateInfo{
		Attachments: []core1_0.AttachmentDescription{
			{
				Format:         format,
				Samples:        core1_0.Samples1,
				LoadOp:         core1_0.AttachmentLoadOpClear,
				StoreOp:        core1_0.AttachmentStoreOpStore,
				StencilLoadOp:  core1_0.AttachmentLoadOpDontCare,
				StencilStoreOp: core1_0.AttachmentStoreOpDontCare,
				InitialLayout:  core1_0.ImageLayoutUndefined,
				FinalLayout:    khr_swapchain.ImageLayoutPresentSrc,
			},
		},
		Subpasses: []core1_0.SubpassDescription{
			{
				PipelineBindPoint: core1_0.PipelineBindPointGraphics,
				ColorAttachments: []core1_0.AttachmentReference{
					{
						Attachment: 0,
						Layout:     core1_0.ImageLayoutColorAttachmentOptimal,
					},
				},
			},
		},
		SubpassDependencies: []core1_0.SubpassDependency{
			{
				SrcSubpass: core1_0.SubpassExternal,
				DstSubpass: 0,

				SrcStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				SrcAccessMask: 0,

				DstStageMask:  core1_0.PipelineStageColorAttachmentOutput,
				DstAccessMask: core1_0.AccessColorAttachmentWrite,
			},
		},
	}
}

func createRenderPass(driver core1_0.CoreDeviceDriver, format core1_0.Format) (core1_0.RenderPass, error) {
	renderPass, _, err := driver.CreateRenderPass(nil, renderPassCreateInfo(format))
	if err != nil {
		return core1_0.RenderPass{}, creationFailed(err, "render pass")
	}

	return renderPass, nil
}

func createShaderModule(driver core1_0.CoreDeviceDriver, code []byte) (core1_0.ShaderModule, error) {
	byteCode, err := bytesToBytecode(code)
	if err != nil {
		return core1_0.ShaderModule{}, err
	}

	shader, _, err := driver.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: byteCode,
	})
	return shader, err
}

// graphicsPipeline is a pipeline and the layout it was built against.
type graphicsPipeline struct {
	layout   core1_0.PipelineLayout
	pipeline core1_0.Pipeline
}

func createGraphicsPipeline(driver core1_0.CoreDeviceDriver, renderPass core1_0.RenderPass, extent core1_0.Extent2D, vertexShader, fragmentShader []byte) (*graphicsPipeline, error) {
	vertShader, err := createShaderModule(driver, vertexShader)
	if err != nil {
		return nil, creationFailed(err, "vertex shader module")
	}
	defer driver.DestroyShaderModule(vertShader, nil)

	fragShader, err := createShaderModule(driver, fragmentShader)
	if err != nil {
		return nil, creationFailed(err, "fragment shader module")
	}
	defer driver.DestroyShaderModule(fragShader, nil)

	vertexInput := &core1_0.PipelineVertexInputStateCreateInfo{
		VertexBindingDescriptions:   vertexBindingDescriptions(),
		VertexAttributeDescriptions: vertexAttributeDescriptions(),
	}

	inputAssembly := &core1_0.PipelineInputAssemblyStateCreateInfo{
		Topology:               core1_0.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: false,
	}

	vertStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageVertex,
		Module: vertShader,
		Name:   "main",
	}

	fragStage := core1_0.PipelineShaderStageCreateInfo{
		Stage:  core1_0.StageFragment,
		Module: fragShader,
		Name:   "main",
	}

	viewport := &core1_0.PipelineViewportStateCreateInfo{
		Viewports: []core1_0.Viewport{
			{
				X:        0,
				Y:        0,
				Width:    float32(extent.Width),
				Height:   float32(extent.Height),
				MinDepth: 0,
				MaxDepth: 1,
			},
		},
		Scissors: []core1_0.Rect2D{
			{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: extent,
			},
		},
	}

	rasterization := &core1_0.PipelineRasterizationStateCreateInfo{
		DepthClampEnable:        false,
		RasterizerDiscardEnable: false,

		PolygonMode: core1_0.PolygonModeFill,
		CullMode:    core1_0.CullModeBack,
		FrontFace:   core1_0.FrontFaceClockwise,

		DepthBiasEnable: false,

		LineWidth: 1.0,
	}

	multisample := &core1_0.PipelineMultisampleStateCreateInfo{
		SampleShadingEnable:  false,
		RasterizationSamples: core1_0.Samples1,
		MinSampleShading:     1.0,
	}

	colorBlend := &core1_0.PipelineColorBlendStateCreateInfo{
		LogicOpEnabled: false,
		LogicOp:        core1_0.LogicOpCopy,

		BlendConstants: [4]float32{0, 0, 0, 0},
		Attachments: []core1_0.PipelineColorBlendAttachmentState{
			{
				BlendEnabled:   false,
				ColorWriteMask: core1_0.ColorComponentRed | core1_0.ColorComponentGreen | core1_0.ColorComponentBlue | core1_0.ColorComponentAlpha,
			},
		},
	}

	layout, _, err := driver.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{})
	if err != nil {
		return nil, creationFailed(err, "pipeline layout")
	}

	pipelines, _, err := driver.CreateGraphicsPipelines(nil, nil,
		core1_0.GraphicsPipelineCreateInfo{
			Stages: []core1_0.PipelineShaderStageCreateInfo{
				vertStage,
				fragStage,
			},
			VertexInputState:   vertexInput,
			InputAssemblyState: inputAssembly,
			ViewportState:      viewport,
			RasterizationState: rasterization,
			MultisampleState:   multisample,
			ColorBlendState:    colorBlend,
			Layout:             layout,
			RenderPass:         renderPass,
			Subpass:            0,
			BasePipelineIndex:  -1,
		},
	)
	if err != nil {
		driver.DestroyPipelineLayout(layout, nil)
		return nil, creationFailed(err, "graphics pipeline")
	}

	return &graphicsPipeline{
		layout:   layout,
		pipeline: pipelines[0],
	}, nil
}

func (p *graphicsPipeline) destroy(driver core1_0.CoreDeviceDriver) {
	driver.DestroyPipeline(p.pipeline, nil)
	driver.DestroyPipelineLayout(p.layout, nil)
}

func createFramebuffers(driver core1_0.CoreDeviceDriver, renderPass core1_0.RenderPass, swapchain *Swapchain) ([]core1_0.Framebuffer, error) {
	var framebuffers []core1_0.Framebuffer
	for _, image := range swapchain.Images {
		framebuffer, _, err := driver.CreateFramebuffer(nil, core1_0.FramebufferCreateInfo{
			RenderPass: renderPass,
			Layers:     1,
			Attachments: []core1_0.ImageView{
				image.View,
			},
			Width:  swapchain.Extent.Width,
			Height: swapchain.Extent.Height,
		})
		if err != nil {
			destroyFramebuffers(driver, framebuffers)
			return nil, creationFailed(err, "framebuffer")
		}

		framebuffers = append(framebuffers, framebuffer)
	}

	return framebuffers, nil
}

func destroyFramebuffers(driver core1_0.CoreDeviceDriver, framebuffers []core1_0.Framebuffer) {
	for _, framebuffer := range framebuffers {
		driver.DestroyFramebuffer(framebuffer, nil)
	}
}

func createCommandPool(driver core1_0.CoreDeviceDriver, queueFamily int) (core1_0.CommandPool, error) {
	pool, _, err := driver.CreateCommandPool(nil, core1_0.CommandPoolCreateInfo{
		QueueFamilyIndex: queueFamily,
	})
	if err != nil {
		return core1_0.CommandPool{}, creationFailed(err, "command pool")
	}

	return pool, nil
}
