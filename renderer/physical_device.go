package renderer

import (
	"github.com/google/uuid"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_surface"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

var deviceExtensions = []string{khr_swapchain.ExtensionName}

type QueueFamilyIndices struct {
	GraphicsFamily *int
	PresentFamily  *int
}

func (i QueueFamilyIndices) IsComplete() bool {
	return i.GraphicsFamily != nil && i.PresentFamily != nil
}

// Shared reports whether graphics and presentation use the same family.
// Only meaningful when IsComplete.
func (i QueueFamilyIndices) Shared() bool {
	return *i.GraphicsFamily == *i.PresentFamily
}

// QueueFamily is what the selector needs to know about one queue family.
type QueueFamily struct {
	Flags          core1_0.QueueFlags
	QueueCount     int
	PresentSupport bool
}

type SwapchainSupportDetails struct {
	Capabilities *khr_surface.SurfaceCapabilities
	Formats      []khr_surface.SurfaceFormat
	PresentModes []khr_surface.PresentMode
}

// PhysicalDeviceCaps is a snapshot of one candidate device, taken against a
// particular surface.
type PhysicalDeviceCaps struct {
	Device    core1_0.PhysicalDevice
	Name      string
	CacheUUID uuid.UUID

	QueueFamilies []QueueFamily
	Extensions    map[string]struct{}

	// Swapchain is nil when the device lacks the swapchain extension.
	Swapchain *SwapchainSupportDetails
}

func findQueueFamilies(families []QueueFamily) QueueFamilyIndices {
	indices := QueueFamilyIndices{}

	for familyIdx, family := range families {
		if indices.GraphicsFamily == nil && family.QueueCount > 0 && (family.Flags&core1_0.QueueGraphics) != 0 {
			graphicsIdx := familyIdx
			indices.GraphicsFamily = &graphicsIdx
		}

		if indices.PresentFamily == nil && family.QueueCount > 0 && family.PresentSupport {
			presentIdx := familyIdx
			indices.PresentFamily = &presentIdx
		}

		if indices.IsComplete() {
			break
		}
	}

	return indices
}

func hasDeviceExtensions(caps *PhysicalDeviceCaps, required []string) bool {
	for _, extension := range required {
		_, hasExtension := caps.Extensions[extension]
		if !hasExtension {
			return false
		}
	}

	return true
}

func isDeviceSuitable(caps *PhysicalDeviceCaps, required []string) bool {
	indices := findQueueFamilies(caps.QueueFamilies)
	if !indices.IsComplete() {
		return false
	}

	if !hasDeviceExtensions(caps, required) {
		return false
	}

	return caps.Swapchain != nil && len(caps.Swapchain.Formats) > 0 && len(caps.Swapchain.PresentModes) > 0
}

// pickPhysicalDevice returns the first suitable candidate in enumeration
// order. There is no ranking between suitable devices.
func pickPhysicalDevice(candidates []*PhysicalDeviceCaps, required []string) (*PhysicalDeviceCaps, QueueFamilyIndices, error) {
	for _, caps := range candidates {
		if isDeviceSuitable(caps, required) {
			return caps, findQueueFamilies(caps.QueueFamilies), nil
		}
	}

	return nil, QueueFamilyIndices{}, capabilityAbsentf("failed to find a suitable GPU among %d candidates", len(candidates))
}
