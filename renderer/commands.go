package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// renderTarget is what a recorded frame draws into.
type renderTarget struct {
	renderPass   core1_0.RenderPass
	framebuffers []core1_0.Framebuffer
	extent       core1_0.Extent2D
	pipeline     core1_0.Pipeline
	clearColor   [4]float32
}

// recordCommands records one command buffer per framebuffer. Each clears the
// framebuffer, binds the pipeline and issues one indexed draw per mesh.
func recordCommands(device CommandDevice, buffers []core1_0.CommandBuffer, target renderTarget, meshes []*Mesh) error {
	if len(buffers) != len(target.framebuffers) {
		return errors.AssertionFailedf("%d command buffers for %d framebuffers", len(buffers), len(target.framebuffers))
	}

	for bufferIdx, buffer := range buffers {
		err := device.BeginCommandBuffer(buffer, 0)
		if err != nil {
			return creationFailed(err, "command buffer recording")
		}

		err = device.CmdBeginRenderPass(buffer, core1_0.RenderPassBeginInfo{
			RenderPass:  target.renderPass,
			Framebuffer: target.framebuffers[bufferIdx],
			RenderArea: core1_0.Rect2D{
				Offset: core1_0.Offset2D{X: 0, Y: 0},
				Extent: target.extent,
			},
			ClearValues: []core1_0.ClearValue{
				core1_0.ClearValueFloat(target.clearColor),
			},
		})
		if err != nil {
			return creationFailed(err, "render pass commands")
		}

		device.CmdBindPipeline(buffer, target.pipeline)

		for _, mesh := range meshes {
			device.CmdBindVertexBuffer(buffer, mesh.VertexBuffer())
			device.CmdBindIndexBuffer(buffer, mesh.IndexBuffer())
			device.CmdDrawIndexed(buffer, mesh.IndexCount())
		}

		device.CmdEndRenderPass(buffer)

		err = device.EndCommandBuffer(buffer)
		if err != nil {
			return creationFailed(err, "command buffer recording")
		}
	}

	return nil
}
