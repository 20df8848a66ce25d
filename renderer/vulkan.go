package renderer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

// vulkanDevice implements Device on a live logical device.
type vulkanDevice struct {
	driver      core1_0.CoreDeviceDriver
	swapchains  khr_swapchain.ExtensionDriver
	memoryTypes []core1_0.MemoryPropertyFlags
}

var _ Device = (*vulkanDevice)(nil)

func newVulkanDevice(instanceDriver core1_0.CoreInstanceDriver, physicalDevice core1_0.PhysicalDevice, driver core1_0.CoreDeviceDriver) *vulkanDevice {
	memProperties := instanceDriver.GetPhysicalDeviceMemoryProperties(physicalDevice)

	memoryTypes := make([]core1_0.MemoryPropertyFlags, 0, len(memProperties.MemoryTypes))
	for _, memoryType := range memProperties.MemoryTypes {
		memoryTypes = append(memoryTypes, memoryType.PropertyFlags)
	}

	return &vulkanDevice{
		driver:      driver,
		swapchains:  khr_swapchain.CreateExtensionDriverFromCoreDriver(driver),
		memoryTypes: memoryTypes,
	}
}

func (d *vulkanDevice) CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*GPUBuffer, error) {
	buffer, _, err := d.driver.CreateBuffer(nil, core1_0.BufferCreateInfo{
		Size:        size,
		Usage:       usage,
		SharingMode: core1_0.SharingModeExclusive,
	})
	if err != nil {
		return nil, err
	}

	memRequirements := d.driver.GetBufferMemoryRequirements(buffer)
	memoryTypeIndex, err := findMemoryType(d.memoryTypes, memRequirements.MemoryTypeBits, properties)
	if err != nil {
		d.driver.DestroyBuffer(buffer, nil)
		return nil, err
	}

	memory, _, err := d.driver.AllocateMemory(nil, core1_0.MemoryAllocateInfo{
		AllocationSize:  memRequirements.Size,
		MemoryTypeIndex: memoryTypeIndex,
	})
	if err != nil {
		d.driver.DestroyBuffer(buffer, nil)
		return nil, err
	}

	_, err = d.driver.BindBufferMemory(buffer, memory, 0)
	if err != nil {
		d.driver.DestroyBuffer(buffer, nil)
		d.driver.FreeMemory(memory, nil)
		return nil, err
	}

	return &GPUBuffer{
		Buffer: buffer,
		Memory: memory,
		Size:   size,
		Usage:  usage,
	}, nil
}

func (d *vulkanDevice) DestroyBuffer(buffer *GPUBuffer) {
	d.driver.DestroyBuffer(buffer.Buffer, nil)
	d.driver.FreeMemory(buffer.Memory, nil)
}

func (d *vulkanDevice) MapBuffer(buffer *GPUBuffer) ([]byte, error) {
	memoryPtr, _, err := d.driver.MapMemory(buffer.Memory, 0, buffer.Size, 0)
	if err != nil {
		return nil, err
	}

	return unsafe.Slice((*byte)(memoryPtr), buffer.Size), nil
}

func (d *vulkanDevice) UnmapBuffer(buffer *GPUBuffer) {
	d.driver.UnmapMemory(buffer.Memory)
}

func (d *vulkanDevice) AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]core1_0.CommandBuffer, error) {
	buffers, _, err := d.driver.AllocateCommandBuffers(core1_0.CommandBufferAllocateInfo{
		CommandPool:        pool,
		Level:              core1_0.CommandBufferLevelPrimary,
		CommandBufferCount: count,
	})
	return buffers, err
}

func (d *vulkanDevice) FreeCommandBuffers(buffers ...core1_0.CommandBuffer) {
	if len(buffers) == 0 {
		return
	}
	d.driver.FreeCommandBuffers(buffers...)
}

func (d *vulkanDevice) BeginCommandBuffer(buffer core1_0.CommandBuffer, flags core1_0.CommandBufferUsageFlags) error {
	_, err := d.driver.BeginCommandBuffer(buffer, core1_0.CommandBufferBeginInfo{
		Flags: flags,
	})
	return err
}

func (d *vulkanDevice) EndCommandBuffer(buffer core1_0.CommandBuffer) error {
	_, err := d.driver.EndCommandBuffer(buffer)
	return err
}

func (d *vulkanDevice) CmdCopyBuffer(buffer core1_0.CommandBuffer, src, dst *GPUBuffer, size int) error {
	return d.driver.CmdCopyBuffer(buffer, src.Buffer, dst.Buffer,
		core1_0.BufferCopy{
			SrcOffset: 0,
			DstOffset: 0,
			Size:      size,
		},
	)
}

func (d *vulkanDevice) CmdBeginRenderPass(buffer core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error {
	return d.driver.CmdBeginRenderPass(buffer, core1_0.SubpassContentsInline, info)
}

func (d *vulkanDevice) CmdBindPipeline(buffer core1_0.CommandBuffer, pipeline core1_0.Pipeline) {
	d.driver.CmdBindPipeline(buffer, core1_0.PipelineBindPointGraphics, pipeline)
}

func (d *vulkanDevice) CmdBindVertexBuffer(buffer core1_0.CommandBuffer, vertices *GPUBuffer) {
	d.driver.CmdBindVertexBuffers(buffer, 0, []core1_0.Buffer{vertices.Buffer}, []int{0})
}

func (d *vulkanDevice) CmdBindIndexBuffer(buffer core1_0.CommandBuffer, indices *GPUBuffer) {
	d.driver.CmdBindIndexBuffer(buffer, indices.Buffer, 0, core1_0.IndexTypeUInt32)
}

func (d *vulkanDevice) CmdDrawIndexed(buffer core1_0.CommandBuffer, indexCount int) {
	d.driver.CmdDrawIndexed(buffer, indexCount, 1, 0, 0, 0)
}

func (d *vulkanDevice) CmdEndRenderPass(buffer core1_0.CommandBuffer) {
	d.driver.CmdEndRenderPass(buffer)
}

func (d *vulkanDevice) QueueSubmit(queue core1_0.Queue, fence *core1_0.Fence, submit core1_0.SubmitInfo) error {
	_, err := d.driver.QueueSubmit(queue, fence, submit)
	return err
}

func (d *vulkanDevice) QueueWaitIdle(queue core1_0.Queue) error {
	_, err := d.driver.QueueWaitIdle(queue)
	return err
}

func (d *vulkanDevice) WaitIdle() error {
	_, err := d.driver.DeviceWaitIdle()
	return err
}

func (d *vulkanDevice) CreateSemaphore() (core1_0.Semaphore, error) {
	semaphore, _, err := d.driver.CreateSemaphore(nil, core1_0.SemaphoreCreateInfo{})
	return semaphore, err
}

func (d *vulkanDevice) DestroySemaphore(semaphore core1_0.Semaphore) {
	d.driver.DestroySemaphore(semaphore, nil)
}

func (d *vulkanDevice) CreateFence(signaled bool) (core1_0.Fence, error) {
	var flags core1_0.FenceCreateFlags
	if signaled {
		flags = core1_0.FenceCreateSignaled
	}

	fence, _, err := d.driver.CreateFence(nil, core1_0.FenceCreateInfo{
		Flags: flags,
	})
	return fence, err
}

func (d *vulkanDevice) DestroyFence(fence core1_0.Fence) {
	d.driver.DestroyFence(fence, nil)
}

func (d *vulkanDevice) WaitForFence(fence core1_0.Fence) error {
	_, err := d.driver.WaitForFences(true, common.NoTimeout, fence)
	return err
}

func (d *vulkanDevice) ResetFence(fence core1_0.Fence) error {
	_, err := d.driver.ResetFences(fence)
	return err
}

func (d *vulkanDevice) CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	swapchain, _, err := d.swapchains.CreateSwapchain(nil, info)
	return swapchain, err
}

func (d *vulkanDevice) DestroySwapchain(swapchain khr_swapchain.Swapchain) {
	d.swapchains.DestroySwapchain(swapchain, nil)
}

func (d *vulkanDevice) SwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	images, _, err := d.swapchains.GetSwapchainImages(swapchain)
	return images, err
}

func (d *vulkanDevice) CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	view, _, err := d.driver.CreateImageView(nil, info)
	return view, err
}

func (d *vulkanDevice) DestroyImageView(view core1_0.ImageView) {
	d.driver.DestroyImageView(view, nil)
}

func (d *vulkanDevice) AcquireNextImage(swapchain khr_swapchain.Swapchain, signal core1_0.Semaphore) (int, error) {
	imageIndex, res, err := d.swapchains.AcquireNextImage(swapchain, common.NoTimeout, &signal, nil)
	if res == khr_swapchain.VKErrorOutOfDate {
		return 0, errors.New("swapchain out of date")
	} else if err != nil {
		return 0, err
	}

	return imageIndex, nil
}

func (d *vulkanDevice) QueuePresent(queue core1_0.Queue, present khr_swapchain.PresentInfo) error {
	res, err := d.swapchains.QueuePresent(queue, present)
	if res == khr_swapchain.VKSuboptimal {
		return nil
	} else if res == khr_swapchain.VKErrorOutOfDate {
		return errors.New("swapchain out of date")
	}

	return err
}

// queryPhysicalDeviceCaps snapshots physicalDevice against surface. Surface
// support is only queried when the device offers the swapchain extension.
func queryPhysicalDeviceCaps(instanceDriver core1_0.CoreInstanceDriver, surfaceExtension khr_surface.ExtensionDriver, surface khr_surface.Surface, physicalDevice core1_0.PhysicalDevice) (*PhysicalDeviceCaps, error) {
	caps := &PhysicalDeviceCaps{Device: physicalDevice}

	properties, err := instanceDriver.GetPhysicalDeviceProperties(physicalDevice)
	if err != nil {
		return nil, err
	}
	caps.Name = properties.DeviceName
	caps.CacheUUID = properties.PipelineCacheUUID

	queueFamilies := instanceDriver.GetPhysicalDeviceQueueFamilyProperties(physicalDevice)
	for queueFamilyIdx, queueFamily := range queueFamilies {
		supported, _, err := surfaceExtension.GetPhysicalDeviceSurfaceSupport(surface, physicalDevice, queueFamilyIdx)
		if err != nil {
			return nil, err
		}

		caps.QueueFamilies = append(caps.QueueFamilies, QueueFamily{
			Flags:          queueFamily.QueueFlags,
			QueueCount:     queueFamily.QueueCount,
			PresentSupport: supported,
		})
	}

	extensions, _, err := instanceDriver.EnumerateDeviceExtensionProperties(physicalDevice)
	if err != nil {
		return nil, err
	}
	caps.Extensions = make(map[string]struct{}, len(extensions))
	for name := range extensions {
		caps.Extensions[name] = struct{}{}
	}

	if !hasDeviceExtensions(caps, deviceExtensions) {
		return caps, nil
	}

	caps.Swapchain, err = querySwapchainSupport(surfaceExtension, surface, physicalDevice)
	if err != nil {
		return nil, err
	}

	return caps, nil
}

func querySwapchainSupport(surfaceExtension khr_surface.ExtensionDriver, surface khr_surface.Surface, physicalDevice core1_0.PhysicalDevice) (*SwapchainSupportDetails, error) {
	var details SwapchainSupportDetails
	var err error

	details.Capabilities, _, err = surfaceExtension.GetPhysicalDeviceSurfaceCapabilities(surface, physicalDevice)
	if err != nil {
		return nil, err
	}

	details.Formats, _, err = surfaceExtension.GetPhysicalDeviceSurfaceFormats(surface, physicalDevice)
	if err != nil {
		return nil, err
	}

	details.PresentModes, _, err = surfaceExtension.GetPhysicalDeviceSurfacePresentModes(surface, physicalDevice)
	if err != nil {
		return nil, err
	}

	return &details, nil
}
