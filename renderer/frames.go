package renderer

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

type SlotState int

const (
	SlotIdle SlotState = iota
	SlotAcquiring
	SlotSubmitted
	SlotPresented
)

var slotStateNames = map[SlotState]string{
	SlotIdle:      "Idle",
	SlotAcquiring: "Acquiring",
	SlotSubmitted: "Submitted",
	SlotPresented: "Presented",
}

func (s SlotState) String() string {
	name, ok := slotStateNames[s]
	if !ok {
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
	return name
}

// FrameSlot is the synchronization state owned by one frame in flight.
type FrameSlot struct {
	ImageAvailable core1_0.Semaphore
	RenderFinished core1_0.Semaphore
	InFlight       core1_0.Fence

	State SlotState

	// Uses counts completed acquire/submit/present cycles on this slot.
	Uses int
}

// FrameScheduler drives the acquire, submit, present cycle over a fixed
// number of frame slots. It is not safe for concurrent use.
type FrameScheduler struct {
	device frameDevice

	swapchain      khr_swapchain.Swapchain
	graphicsQueue  core1_0.Queue
	presentQueue   core1_0.Queue
	commandBuffers []core1_0.CommandBuffer

	// imageSlots records which slot last submitted each image, or -1.
	imageSlots []int

	slots        []FrameSlot
	currentFrame int
	frameCount   uint64
}

func newFrameScheduler(device frameDevice, framesInFlight int) (*FrameScheduler, error) {
	if framesInFlight < 1 {
		return nil, errors.Newf("frames in flight must be at least 1, got %d", framesInFlight)
	}

	scheduler := &FrameScheduler{device: device}

	for i := 0; i < framesInFlight; i++ {
		slot, err := scheduler.createSlot()
		if err != nil {
			scheduler.destroy()
			return nil, creationFailed(err, fmt.Sprintf("synchronization for frame %d", i))
		}

		scheduler.slots = append(scheduler.slots, slot)
	}

	return scheduler, nil
}

func (s *FrameScheduler) createSlot() (FrameSlot, error) {
	var slot FrameSlot
	var err error

	slot.ImageAvailable, err = s.device.CreateSemaphore()
	if err != nil {
		return slot, err
	}

	slot.RenderFinished, err = s.device.CreateSemaphore()
	if err != nil {
		s.device.DestroySemaphore(slot.ImageAvailable)
		return slot, err
	}

	// Signaled so the first wait on every slot returns immediately.
	slot.InFlight, err = s.device.CreateFence(true)
	if err != nil {
		s.device.DestroySemaphore(slot.RenderFinished)
		s.device.DestroySemaphore(slot.ImageAvailable)
		return slot, err
	}

	return slot, nil
}

// bind points the scheduler at a swapchain and the command buffers recorded
// for its images, indexed by image.
func (s *FrameScheduler) bind(swapchain khr_swapchain.Swapchain, graphicsQueue, presentQueue core1_0.Queue, commandBuffers []core1_0.CommandBuffer) {
	s.swapchain = swapchain
	s.graphicsQueue = graphicsQueue
	s.presentQueue = presentQueue
	s.commandBuffers = commandBuffers

	s.imageSlots = make([]int, len(commandBuffers))
	for i := range s.imageSlots {
		s.imageSlots[i] = -1
	}
}

// Draw renders and presents one frame.
func (s *FrameScheduler) Draw() error {
	_, err := s.drawFrame()
	return err
}

// drawFrame runs one cycle on the current slot and returns the swapchain
// image it rendered to.
func (s *FrameScheduler) drawFrame() (int, error) {
	slot := &s.slots[s.currentFrame]

	err := s.device.WaitForFence(slot.InFlight)
	if err != nil {
		return 0, runtimeFailure(err, "wait for frame fence")
	}
	slot.State = SlotIdle

	err = s.device.ResetFence(slot.InFlight)
	if err != nil {
		return 0, runtimeFailure(err, "reset frame fence")
	}

	slot.State = SlotAcquiring
	imageIndex, err := s.device.AcquireNextImage(s.swapchain, slot.ImageAvailable)
	if err != nil {
		return 0, runtimeFailure(err, "acquire swapchain image")
	}

	if imageIndex < 0 || imageIndex >= len(s.commandBuffers) {
		return imageIndex, runtimeFailure(errors.Newf("image index %d outside %d recorded command buffers", imageIndex, len(s.commandBuffers)), "acquire swapchain image")
	}

	// The image's command buffer may still be pending from another slot.
	previous := s.imageSlots[imageIndex]
	if previous >= 0 && previous != s.currentFrame {
		err = s.device.WaitForFence(s.slots[previous].InFlight)
		if err != nil {
			return imageIndex, runtimeFailure(err, "wait for image fence")
		}
	}
	s.imageSlots[imageIndex] = s.currentFrame

	err = s.device.QueueSubmit(s.graphicsQueue, &slot.InFlight, core1_0.SubmitInfo{
		WaitSemaphores:   []core1_0.Semaphore{slot.ImageAvailable},
		WaitDstStageMask: []core1_0.PipelineStageFlags{core1_0.PipelineStageColorAttachmentOutput},
		CommandBuffers:   []core1_0.CommandBuffer{s.commandBuffers[imageIndex]},
		SignalSemaphores: []core1_0.Semaphore{slot.RenderFinished},
	})
	if err != nil {
		return imageIndex, runtimeFailure(err, "submit frame")
	}
	slot.State = SlotSubmitted

	err = s.device.QueuePresent(s.presentQueue, khr_swapchain.PresentInfo{
		WaitSemaphores: []core1_0.Semaphore{slot.RenderFinished},
		Swapchains:     []khr_swapchain.Swapchain{s.swapchain},
		ImageIndices:   []int{imageIndex},
	})
	if err != nil {
		return imageIndex, runtimeFailure(err, "present frame")
	}
	slot.State = SlotPresented
	slot.Uses++

	s.frameCount++
	s.currentFrame = (s.currentFrame + 1) % len(s.slots)

	return imageIndex, nil
}

// CurrentFrame is the slot the next Draw will use.
func (s *FrameScheduler) CurrentFrame() int {
	return s.currentFrame
}

func (s *FrameScheduler) FramesInFlight() int {
	return len(s.slots)
}

// FrameCount is the number of frames presented so far.
func (s *FrameScheduler) FrameCount() uint64 {
	return s.frameCount
}

func (s *FrameScheduler) Slot(index int) FrameSlot {
	return s.slots[index]
}

// destroy releases every slot's primitives. The device must be idle.
func (s *FrameScheduler) destroy() {
	for _, slot := range s.slots {
		s.device.DestroyFence(slot.InFlight)
		s.device.DestroySemaphore(slot.RenderFinished)
		s.device.DestroySemaphore(slot.ImageAvailable)
	}
	s.slots = nil
}
