package renderer

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/veandco/go-sdl2/sdl"
	"github.com/vkngwrapper/core/v3"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
	vkng_sdl2 "github.com/vkngwrapper/integrations/sdl2/v3"
	"golang.org/x/exp/slog"
)

const DefaultMaxFramesInFlight = 2

var DefaultClearColor = [4]float32{0.6, 0.65, 0.4, 1.0}

type Options struct {
	ApplicationName  string
	EnableValidation bool

	// MaxFramesInFlight defaults to DefaultMaxFramesInFlight when zero.
	MaxFramesInFlight int

	// VertexShader and FragmentShader are SPIR-V blobs.
	VertexShader   []byte
	FragmentShader []byte

	ClearColor [4]float32
	Meshes     []MeshData

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ApplicationName == "" {
		o.ApplicationName = "meshrender"
	}
	if o.MaxFramesInFlight == 0 {
		o.MaxFramesInFlight = DefaultMaxFramesInFlight
	}
	if o.ClearColor == ([4]float32{}) {
		o.ClearColor = DefaultClearColor
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return o
}

// Renderer owns every Vulkan object needed to draw a fixed set of meshes
// into an SDL window. Methods must be called from the thread that created
// the window.
type Renderer struct {
	options Options
	logger  *slog.Logger

	release releaseStack

	physicalDevice *PhysicalDeviceCaps
	swapchain      *Swapchain
	meshes         []*Mesh
	scheduler      *FrameScheduler
}

func New(options Options) *Renderer {
	options = options.withDefaults()
	return &Renderer{
		options: options,
		logger:  options.Logger,
	}
}

// Init creates everything from the instance to the per-frame
// synchronization. On failure all objects created so far are released and
// the Renderer may be initialized again.
func (r *Renderer) Init(window *sdl.Window) error {
	if r.scheduler != nil {
		return errors.AssertionFailedf("renderer already initialized")
	}

	err := r.init(window)
	if err != nil {
		r.logger.Error("renderer initialization failed", slog.Any("error", err))
		r.release.releaseAll(r.logger)
		r.reset()
		return err
	}

	r.logger.Info("renderer initialized",
		slog.String("device", r.physicalDevice.Name),
		slog.String("cacheUUID", r.physicalDevice.CacheUUID.String()),
		slog.Int("images", len(r.swapchain.Images)),
		slog.Int("width", r.swapchain.Extent.Width),
		slog.Int("height", r.swapchain.Extent.Height),
		slog.Int("meshes", len(r.meshes)),
		slog.Int("framesInFlight", r.scheduler.FramesInFlight()))
	return nil
}

func (r *Renderer) init(window *sdl.Window) error {
	globalDriver, err := core.CreateDriverFromProcAddr(sdl.VulkanGetVkGetInstanceProcAddr())
	if err != nil {
		return creationFailed(err, "vulkan loader")
	}

	instanceDriver, err := createInstance(globalDriver, r.options.ApplicationName, window.VulkanGetInstanceExtensions(), r.options.EnableValidation, r.logger)
	if err != nil {
		return err
	}
	r.release.push("instance", func() { instanceDriver.DestroyInstance(nil) })

	if r.options.EnableValidation {
		debugDriver, messenger, err := createDebugMessenger(instanceDriver, r.logger)
		if err != nil {
			return err
		}
		r.release.push("debug messenger", func() { debugDriver.DestroyDebugUtilsMessenger(messenger, nil) })
	}

	surfaceExtension := khr_surface.CreateExtensionDriverFromCoreDriver(instanceDriver)
	surface, err := vkng_sdl2.CreateSurface(instanceDriver.Instance(), surfaceExtension, window)
	if err != nil {
		return creationFailed(err, "window surface")
	}
	r.release.push("surface", func() { surfaceExtension.DestroySurface(surface, nil) })

	physicalDevices, _, err := instanceDriver.EnumeratePhysicalDevices()
	if err != nil {
		return creationFailed(err, "physical device list")
	}
	if len(physicalDevices) == 0 {
		return capabilityAbsentf("no GPU supports the Vulkan instance")
	}

	var candidates []*PhysicalDeviceCaps
	for _, physicalDevice := range physicalDevices {
		caps, err := queryPhysicalDeviceCaps(instanceDriver, surfaceExtension, surface, physicalDevice)
		if err != nil {
			return creationFailed(err, "physical device query")
		}
		candidates = append(candidates, caps)
	}

	caps, indices, err := pickPhysicalDevice(candidates, deviceExtensions)
	if err != nil {
		return err
	}
	r.physicalDevice = caps

	deviceDriver, err := createLogicalDevice(instanceDriver, caps, indices)
	if err != nil {
		return err
	}
	r.release.push("logical device", func() { deviceDriver.DestroyDevice(nil) })

	graphicsQueue := deviceDriver.GetQueue(*indices.GraphicsFamily, 0)
	presentQueue := deviceDriver.GetQueue(*indices.PresentFamily, 0)
	device := newVulkanDevice(instanceDriver, caps.Device, deviceDriver)

	drawableWidth, drawableHeight := window.VulkanGetDrawableSize()
	swapchain, err := setupSwapchain(device, &r.release, surface, caps.Swapchain, indices, int(drawableWidth), int(drawableHeight))
	if err != nil {
		return err
	}
	r.swapchain = swapchain

	renderPass, err := createRenderPass(deviceDriver, swapchain.SurfaceFormat.Format)
	if err != nil {
		return err
	}
	r.release.push("render pass", func() { deviceDriver.DestroyRenderPass(renderPass, nil) })

	pipeline, err := createGraphicsPipeline(deviceDriver, renderPass, swapchain.Extent, r.options.VertexShader, r.options.FragmentShader)
	if err != nil {
		return err
	}
	r.release.push("graphics pipeline", func() { pipeline.destroy(deviceDriver) })

	framebuffers, err := createFramebuffers(deviceDriver, renderPass, swapchain)
	if err != nil {
		return err
	}
	r.release.push("framebuffers", func() { destroyFramebuffers(deviceDriver, framebuffers) })

	commandPool, err := createCommandPool(deviceDriver, *indices.GraphicsFamily)
	if err != nil {
		return err
	}
	r.release.push("command pool", func() { deviceDriver.DestroyCommandPool(commandPool, nil) })

	meshes, scheduler, err := setupFrameLoop(device, &r.release, r.logger, frameLoopSetup{
		commandPool:   commandPool,
		graphicsQueue: graphicsQueue,
		presentQueue:  presentQueue,
		swapchain:     swapchain.Handle,
		target: renderTarget{
			renderPass:   renderPass,
			framebuffers: framebuffers,
			extent:       swapchain.Extent,
			pipeline:     pipeline.pipeline,
			clearColor:   r.options.ClearColor,
		},
		meshes:         r.options.Meshes,
		framesInFlight: r.options.MaxFramesInFlight,
	})
	if err != nil {
		return err
	}

	r.meshes = meshes
	r.scheduler = scheduler
	return nil
}

// setupSwapchain builds the swapchain and pushes its teardown.
func setupSwapchain(device SwapchainDevice, release *releaseStack, surface khr_surface.Surface, support *SwapchainSupportDetails, indices QueueFamilyIndices, drawableWidth, drawableHeight int) (*Swapchain, error) {
	swapchain, err := buildSwapchain(device, surface, support, indices, drawableWidth, drawableHeight)
	if err != nil {
		return nil, err
	}

	release.push("swapchain", func() { swapchain.destroy(device) })
	return swapchain, nil
}

// frameLoopSetup is what the frame loop draws with once the pipeline and
// framebuffers exist.
type frameLoopSetup struct {
	commandPool   core1_0.CommandPool
	graphicsQueue core1_0.Queue
	presentQueue  core1_0.Queue
	swapchain     khr_swapchain.Swapchain
	target        renderTarget

	meshes         []MeshData
	framesInFlight int
}

// setupFrameLoop uploads the meshes, records one command buffer per
// framebuffer and creates the frame slots, pushing each onto release as it
// is created. Its last entry waits for the device to go idle, so it runs
// before any of them is destroyed.
func setupFrameLoop(device Device, release *releaseStack, logger *slog.Logger, setup frameLoopSetup) ([]*Mesh, *FrameScheduler, error) {
	// The graphics family always supports transfer.
	transfer := NewTransfer(device, setup.commandPool, setup.graphicsQueue)

	var meshes []*Mesh
	for meshIdx, data := range setup.meshes {
		mesh, err := NewMesh(transfer, data)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "mesh %d", meshIdx)
		}
		meshes = append(meshes, mesh)
		release.push(fmt.Sprintf("mesh %d", meshIdx), mesh.Destroy)
	}

	commandBuffers, err := device.AllocateCommandBuffers(setup.commandPool, len(setup.target.framebuffers))
	if err != nil {
		return nil, nil, creationFailed(err, "command buffers")
	}
	release.push("command buffers", func() { device.FreeCommandBuffers(commandBuffers...) })

	err = recordCommands(device, commandBuffers, setup.target, meshes)
	if err != nil {
		return nil, nil, err
	}

	scheduler, err := newFrameScheduler(device, setup.framesInFlight)
	if err != nil {
		return nil, nil, err
	}
	release.push("frame synchronization", scheduler.destroy)
	scheduler.bind(setup.swapchain, setup.graphicsQueue, setup.presentQueue, commandBuffers)

	release.push("wait idle", func() {
		err := device.WaitIdle()
		if err != nil {
			logger.Error("device did not go idle before teardown", slog.Any("error", err))
		}
	})

	return meshes, scheduler, nil
}

// Draw renders and presents one frame. Any error is fatal: the Renderer
// must be cleaned up.
func (r *Renderer) Draw() error {
	if r.scheduler == nil {
		return errors.AssertionFailedf("draw called on an uninitialized renderer")
	}

	return r.scheduler.Draw()
}

// FrameCount is the number of frames presented since Init.
func (r *Renderer) FrameCount() uint64 {
	if r.scheduler == nil {
		return 0
	}
	return r.scheduler.FrameCount()
}

// DeviceName names the selected physical device, or is empty before Init.
func (r *Renderer) DeviceName() string {
	if r.physicalDevice == nil {
		return ""
	}
	return r.physicalDevice.Name
}

// Cleanup waits for the device to go idle and destroys everything Init
// created, in reverse order. It is safe to call more than once.
func (r *Renderer) Cleanup() {
	if r.release.len() == 0 {
		return
	}

	r.release.releaseAll(r.logger)
	r.reset()
}

func (r *Renderer) reset() {
	r.physicalDevice = nil
	r.swapchain = nil
	r.meshes = nil
	r.scheduler = nil
}
