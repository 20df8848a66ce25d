package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// BufferDevice creates buffers together with the single allocation that
// backs them. CreateBuffer binds the memory before returning and
// DestroyBuffer releases both halves.
type BufferDevice interface {
	CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*GPUBuffer, error)
	DestroyBuffer(buffer *GPUBuffer)
	MapBuffer(buffer *GPUBuffer) ([]byte, error)
	UnmapBuffer(buffer *GPUBuffer)
}

// CommandDevice allocates and records command buffers.
type CommandDevice interface {
	AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]core1_0.CommandBuffer, error)
	FreeCommandBuffers(buffers ...core1_0.CommandBuffer)
	BeginCommandBuffer(buffer core1_0.CommandBuffer, flags core1_0.CommandBufferUsageFlags) error
	EndCommandBuffer(buffer core1_0.CommandBuffer) error

	CmdCopyBuffer(buffer core1_0.CommandBuffer, src, dst *GPUBuffer, size int) error
	CmdBeginRenderPass(buffer core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error
	CmdBindPipeline(buffer core1_0.CommandBuffer, pipeline core1_0.Pipeline)
	CmdBindVertexBuffer(buffer core1_0.CommandBuffer, vertices *GPUBuffer)
	CmdBindIndexBuffer(buffer core1_0.CommandBuffer, indices *GPUBuffer)
	CmdDrawIndexed(buffer core1_0.CommandBuffer, indexCount int)
	CmdEndRenderPass(buffer core1_0.CommandBuffer)
}

// QueueDevice submits recorded work.
type QueueDevice interface {
	// QueueSubmit submits one batch. fence may be nil.
	QueueSubmit(queue core1_0.Queue, fence *core1_0.Fence, submit core1_0.SubmitInfo) error
	QueueWaitIdle(queue core1_0.Queue) error
	// WaitIdle blocks until every queue on the device is idle.
	WaitIdle() error
}

// SyncDevice creates and waits on synchronization primitives. Fence waits
// never time out.
type SyncDevice interface {
	CreateSemaphore() (core1_0.Semaphore, error)
	DestroySemaphore(semaphore core1_0.Semaphore)
	CreateFence(signaled bool) (core1_0.Fence, error)
	DestroyFence(fence core1_0.Fence)
	WaitForFence(fence core1_0.Fence) error
	ResetFence(fence core1_0.Fence) error
}

// SwapchainDevice drives the presentable image chain.
type SwapchainDevice interface {
	CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error)
	DestroySwapchain(swapchain khr_swapchain.Swapchain)
	SwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error)
	CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error)
	DestroyImageView(view core1_0.ImageView)

	// AcquireNextImage returns the index of the next presentable image and
	// arranges for signal to be signaled once it is available.
	AcquireNextImage(swapchain khr_swapchain.Swapchain, signal core1_0.Semaphore) (int, error)
	QueuePresent(queue core1_0.Queue, present khr_swapchain.PresentInfo) error
}

// Device is everything the renderer needs from a logical device.
type Device interface {
	BufferDevice
	CommandDevice
	QueueDevice
	SyncDevice
	SwapchainDevice
}

// transferDevice is the subset used by Transfer.
type transferDevice interface {
	BufferDevice
	CommandDevice
	QueueDevice
}

// frameDevice is the subset used by FrameScheduler.
type frameDevice interface {
	QueueDevice
	SyncDevice
	SwapchainDevice
}
