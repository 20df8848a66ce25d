package renderer

import (
	"math"

	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var preferredSurfaceFormat = khr_surface.SurfaceFormat{
	Format:     core1_0.FormatR8G8B8A8UnsignedNormalized,
	ColorSpace: khr_surface.ColorSpaceSRGBNonlinear,
}

type SwapchainImage struct {
	Image core1_0.Image
	View  core1_0.ImageView
}

// Swapchain is a built presentable image chain. Images holds the images the
// surface actually returned, which may be more than were requested.
type Swapchain struct {
	Handle        khr_swapchain.Swapchain
	SurfaceFormat khr_surface.SurfaceFormat
	PresentMode   khr_surface.PresentMode
	Extent        core1_0.Extent2D
	Images        []SwapchainImage

	live bool
}

func chooseImageCount(capabilities *khr_surface.SurfaceCapabilities) int {
	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && capabilities.MaxImageCount < imageCount {
		imageCount = capabilities.MaxImageCount
	}

	return imageCount
}

func chooseSurfaceFormat(availableFormats []khr_surface.SurfaceFormat) khr_surface.SurfaceFormat {
	// A lone undefined entry means the surface takes any format.
	if len(availableFormats) == 1 && availableFormats[0].Format == core1_0.FormatUndefined {
		return preferredSurfaceFormat
	}

	for _, format := range availableFormats {
		if format.Format == preferredSurfaceFormat.Format && format.ColorSpace == preferredSurfaceFormat.ColorSpace {
			return format
		}
	}

	return availableFormats[0]
}

func choosePresentMode(availablePresentModes []khr_surface.PresentMode) khr_surface.PresentMode {
	for _, presentMode := range availablePresentModes {
		if presentMode == khr_surface.PresentModeMailbox {
			return presentMode
		}
	}

	return khr_surface.PresentModeFIFO
}

// variableExtent reports whether width is the "size decided by the
// swapchain" sentinel.
func variableExtent(width int) bool {
	return width == -1 || int64(width) == math.MaxUint32
}

func clampDimension(value, lower, upper int) int {
	if value < lower {
		value = lower
	}
	if value > upper {
		value = upper
	}
	return value
}

func chooseExtent(capabilities *khr_surface.SurfaceCapabilities, drawableWidth, drawableHeight int) core1_0.Extent2D {
	if !variableExtent(capabilities.CurrentExtent.Width) {
		return capabilities.CurrentExtent
	}

	return core1_0.Extent2D{
		Width:  clampDimension(drawableWidth, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width),
		Height: clampDimension(drawableHeight, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height),
	}
}

func imageSharing(indices QueueFamilyIndices) (core1_0.SharingMode, []int) {
	if indices.Shared() {
		return core1_0.SharingModeExclusive, nil
	}

	return core1_0.SharingModeConcurrent, []int{*indices.GraphicsFamily, *indices.PresentFamily}
}

// buildSwapchain creates the swapchain and one color view per image. On
// failure nothing created here survives.
func buildSwapchain(device SwapchainDevice, surface khr_surface.Surface, support *SwapchainSupportDetails, indices QueueFamilyIndices, drawableWidth, drawableHeight int) (*Swapchain, error) {
	surfaceFormat := chooseSurfaceFormat(support.Formats)
	presentMode := choosePresentMode(support.PresentModes)
	extent := chooseExtent(support.Capabilities, drawableWidth, drawableHeight)
	imageCount := chooseImageCount(support.Capabilities)
	sharingMode, queueFamilyIndices := imageSharing(indices)

	handle, err := device.CreateSwapchain(khr_swapchain.SwapchainCreateInfo{
		Surface: surface,

		MinImageCount:    imageCount,
		ImageFormat:      surfaceFormat.Format,
		ImageColorSpace:  surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       core1_0.ImageUsageColorAttachment,

		ImageSharingMode:   sharingMode,
		QueueFamilyIndices: queueFamilyIndices,

		PreTransform:   support.Capabilities.CurrentTransform,
		CompositeAlpha: khr_surface.CompositeAlphaOpaque,
		PresentMode:    presentMode,
		Clipped:        true,
	})
	if err != nil {
		return nil, creationFailed(err, "swapchain")
	}

	swapchain := &Swapchain{
		Handle:        handle,
		SurfaceFormat: surfaceFormat,
		PresentMode:   presentMode,
		Extent:        extent,
		live:          true,
	}

	images, err := device.SwapchainImages(handle)
	if err != nil {
		swapchain.destroy(device)
		return nil, creationFailed(err, "swapchain images")
	}

	for _, image := range images {
		// Components left zero: identity swizzle.
		view, err := device.CreateImageView(core1_0.ImageViewCreateInfo{
			Image:    image,
			ViewType: core1_0.ImageViewType2D,
			Format:   surfaceFormat.Format,
			SubresourceRange: core1_0.ImageSubresourceRange{
				AspectMask:     core1_0.ImageAspectColor,
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		})
		if err != nil {
			swapchain.destroy(device)
			return nil, creationFailed(err, "swapchain image view")
		}

		swapchain.Images = append(swapchain.Images, SwapchainImage{Image: image, View: view})
	}

	return swapchain, nil
}

// destroy releases the image views, then the swapchain itself. The images
// belong to the swapchain and are not destroyed individually.
func (s *Swapchain) destroy(device SwapchainDevice) {
	for _, image := range s.Images {
		device.DestroyImageView(image.View)
	}
	s.Images = nil

	if s.live {
		device.DestroySwapchain(s.Handle)
		s.Handle = khr_swapchain.Swapchain{}
		s.live = false
	}
}
