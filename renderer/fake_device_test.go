package renderer

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var errInjected = errors.New("injected failure")

type fakeCopy struct {
	src, dst *GPUBuffer
	size     int
}

// fakeDevice is an in-memory Device. Buffer contents live in host slices,
// recorded copies run when the command buffer is submitted, and every call
// is appended to ops.
type fakeDevice struct {
	ops []string

	buffers        map[*GPUBuffer][]byte
	mapped         map[*GPUBuffer]bool
	createdByUse   map[core1_0.BufferUsageFlags]int
	destroyed      []*GPUBuffer
	doubleDestroy  int
	pending        []fakeCopy
	mappedAtSubmit bool

	allocatedCommandBuffers int
	freedCommandBuffers     int

	semaphores int
	fences     int
	signaled   []bool

	swapchainImages  int
	swapchainInfo    *khr_swapchain.SwapchainCreateInfo
	swapchainsLive   int
	viewInfos        []core1_0.ImageViewCreateInfo
	viewsLive        int
	acquireIndices   []int
	acquireCalls     int
	submits          []core1_0.SubmitInfo
	submitFenceArmed []bool
	presents         []khr_swapchain.PresentInfo

	// failOn maps an operation name to the 1-based call number that fails.
	failOn map[string]int
	calls  map[string]int

	// shortMap makes MapBuffer return fewer bytes than the buffer holds.
	shortMap bool
}

var _ Device = (*fakeDevice)(nil)

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		buffers:         map[*GPUBuffer][]byte{},
		mapped:          map[*GPUBuffer]bool{},
		createdByUse:    map[core1_0.BufferUsageFlags]int{},
		failOn:          map[string]int{},
		calls:           map[string]int{},
		swapchainImages: 3,
	}
}

func (d *fakeDevice) call(op string) error {
	d.ops = append(d.ops, op)
	d.calls[op]++
	if n, ok := d.failOn[op]; ok && n == d.calls[op] {
		return errors.Wrap(errInjected, op)
	}
	return nil
}

func (d *fakeDevice) liveBuffers() int {
	return len(d.buffers)
}

func (d *fakeDevice) contents(buffer *GPUBuffer) []byte {
	return d.buffers[buffer]
}

func (d *fakeDevice) CreateBuffer(size int, usage core1_0.BufferUsageFlags, properties core1_0.MemoryPropertyFlags) (*GPUBuffer, error) {
	err := d.call("CreateBuffer")
	if err != nil {
		return nil, err
	}

	buffer := &GPUBuffer{Size: size, Usage: usage}
	d.buffers[buffer] = make([]byte, size)
	d.createdByUse[usage]++
	return buffer, nil
}

func (d *fakeDevice) DestroyBuffer(buffer *GPUBuffer) {
	d.ops = append(d.ops, "DestroyBuffer")
	_, live := d.buffers[buffer]
	if !live {
		d.doubleDestroy++
		return
	}
	delete(d.buffers, buffer)
	delete(d.mapped, buffer)
	d.destroyed = append(d.destroyed, buffer)
}

func (d *fakeDevice) MapBuffer(buffer *GPUBuffer) ([]byte, error) {
	err := d.call("MapBuffer")
	if err != nil {
		return nil, err
	}

	d.mapped[buffer] = true
	if d.shortMap {
		return d.buffers[buffer][:buffer.Size/2], nil
	}
	return d.buffers[buffer], nil
}

func (d *fakeDevice) UnmapBuffer(buffer *GPUBuffer) {
	d.ops = append(d.ops, "UnmapBuffer")
	delete(d.mapped, buffer)
}

func (d *fakeDevice) AllocateCommandBuffers(pool core1_0.CommandPool, count int) ([]core1_0.CommandBuffer, error) {
	err := d.call("AllocateCommandBuffers")
	if err != nil {
		return nil, err
	}

	d.allocatedCommandBuffers += count
	return make([]core1_0.CommandBuffer, count), nil
}

func (d *fakeDevice) FreeCommandBuffers(buffers ...core1_0.CommandBuffer) {
	d.ops = append(d.ops, "FreeCommandBuffers")
	d.freedCommandBuffers += len(buffers)
}

func (d *fakeDevice) BeginCommandBuffer(buffer core1_0.CommandBuffer, flags core1_0.CommandBufferUsageFlags) error {
	return d.call("BeginCommandBuffer")
}

func (d *fakeDevice) EndCommandBuffer(buffer core1_0.CommandBuffer) error {
	return d.call("EndCommandBuffer")
}

func (d *fakeDevice) CmdCopyBuffer(buffer core1_0.CommandBuffer, src, dst *GPUBuffer, size int) error {
	err := d.call("CmdCopyBuffer")
	if err != nil {
		return err
	}

	d.pending = append(d.pending, fakeCopy{src: src, dst: dst, size: size})
	return nil
}

func (d *fakeDevice) CmdBeginRenderPass(buffer core1_0.CommandBuffer, info core1_0.RenderPassBeginInfo) error {
	return d.call("CmdBeginRenderPass")
}

func (d *fakeDevice) CmdBindPipeline(buffer core1_0.CommandBuffer, pipeline core1_0.Pipeline) {
	d.ops = append(d.ops, "CmdBindPipeline")
}

func (d *fakeDevice) CmdBindVertexBuffer(buffer core1_0.CommandBuffer, vertices *GPUBuffer) {
	d.ops = append(d.ops, "CmdBindVertexBuffer")
}

func (d *fakeDevice) CmdBindIndexBuffer(buffer core1_0.CommandBuffer, indices *GPUBuffer) {
	d.ops = append(d.ops, "CmdBindIndexBuffer")
}

func (d *fakeDevice) CmdDrawIndexed(buffer core1_0.CommandBuffer, indexCount int) {
	d.ops = append(d.ops, "CmdDrawIndexed")
}

func (d *fakeDevice) CmdEndRenderPass(buffer core1_0.CommandBuffer) {
	d.ops = append(d.ops, "CmdEndRenderPass")
}

func (d *fakeDevice) QueueSubmit(queue core1_0.Queue, fence *core1_0.Fence, submit core1_0.SubmitInfo) error {
	err := d.call("QueueSubmit")
	if err != nil {
		return err
	}

	if len(d.mapped) > 0 {
		d.mappedAtSubmit = true
	}
	for _, c := range d.pending {
		copy(d.buffers[c.dst], d.buffers[c.src][:c.size])
	}
	d.pending = nil

	d.submits = append(d.submits, submit)
	d.submitFenceArmed = append(d.submitFenceArmed, fence != nil)
	return nil
}

func (d *fakeDevice) QueueWaitIdle(queue core1_0.Queue) error {
	return d.call("QueueWaitIdle")
}

func (d *fakeDevice) WaitIdle() error {
	return d.call("WaitIdle")
}

func (d *fakeDevice) CreateSemaphore() (core1_0.Semaphore, error) {
	err := d.call("CreateSemaphore")
	if err != nil {
		return core1_0.Semaphore{}, err
	}

	d.semaphores++
	return core1_0.Semaphore{}, nil
}

func (d *fakeDevice) DestroySemaphore(semaphore core1_0.Semaphore) {
	d.ops = append(d.ops, "DestroySemaphore")
	d.semaphores--
}

func (d *fakeDevice) CreateFence(signaled bool) (core1_0.Fence, error) {
	err := d.call("CreateFence")
	if err != nil {
		return core1_0.Fence{}, err
	}

	d.fences++
	d.signaled = append(d.signaled, signaled)
	return core1_0.Fence{}, nil
}

func (d *fakeDevice) DestroyFence(fence core1_0.Fence) {
	d.ops = append(d.ops, "DestroyFence")
	d.fences--
}

func (d *fakeDevice) WaitForFence(fence core1_0.Fence) error {
	return d.call("WaitForFence")
}

func (d *fakeDevice) ResetFence(fence core1_0.Fence) error {
	return d.call("ResetFence")
}

func (d *fakeDevice) CreateSwapchain(info khr_swapchain.SwapchainCreateInfo) (khr_swapchain.Swapchain, error) {
	err := d.call("CreateSwapchain")
	if err != nil {
		return khr_swapchain.Swapchain{}, err
	}

	d.swapchainInfo = &info
	d.swapchainsLive++
	return khr_swapchain.Swapchain{}, nil
}

func (d *fakeDevice) DestroySwapchain(swapchain khr_swapchain.Swapchain) {
	d.ops = append(d.ops, "DestroySwapchain")
	d.swapchainsLive--
}

func (d *fakeDevice) SwapchainImages(swapchain khr_swapchain.Swapchain) ([]core1_0.Image, error) {
	err := d.call("SwapchainImages")
	if err != nil {
		return nil, err
	}

	return make([]core1_0.Image, d.swapchainImages), nil
}

func (d *fakeDevice) CreateImageView(info core1_0.ImageViewCreateInfo) (core1_0.ImageView, error) {
	err := d.call("CreateImageView")
	if err != nil {
		return core1_0.ImageView{}, err
	}

	d.viewInfos = append(d.viewInfos, info)
	d.viewsLive++
	return core1_0.ImageView{}, nil
}

func (d *fakeDevice) DestroyImageView(view core1_0.ImageView) {
	d.ops = append(d.ops, "DestroyImageView")
	d.viewsLive--
}

func (d *fakeDevice) AcquireNextImage(swapchain khr_swapchain.Swapchain, signal core1_0.Semaphore) (int, error) {
	err := d.call("AcquireNextImage")
	if err != nil {
		return 0, err
	}

	call := d.acquireCalls
	d.acquireCalls++
	if len(d.acquireIndices) > 0 {
		return d.acquireIndices[call%len(d.acquireIndices)], nil
	}
	return call % d.swapchainImages, nil
}

func (d *fakeDevice) QueuePresent(queue core1_0.Queue, present khr_swapchain.PresentInfo) error {
	err := d.call("QueuePresent")
	if err != nil {
		return err
	}

	d.presents = append(d.presents, present)
	return nil
}

// opsMatching filters ops down to the names given, preserving order.
func (d *fakeDevice) opsMatching(names ...string) []string {
	keep := map[string]bool{}
	for _, name := range names {
		keep[name] = true
	}

	var matched []string
	for _, op := range d.ops {
		if keep[op] {
			matched = append(matched, op)
		}
	}
	return matched
}
