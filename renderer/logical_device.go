package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_portability_subset"
)

// uniqueQueueFamilies lists graphics then present, without repeats.
func uniqueQueueFamilies(indices QueueFamilyIndices) []int {
	families := []int{*indices.GraphicsFamily}
	if !indices.Shared() {
		families = append(families, *indices.PresentFamily)
	}

	return families
}

// deviceExtensionNames adds the portability subset to the required device
// extensions when the device advertises it.
func deviceExtensionNames(caps *PhysicalDeviceCaps) []string {
	var extensionNames []string
	extensionNames = append(extensionNames, deviceExtensions...)

	_, supported := caps.Extensions[khr_portability_subset.ExtensionName]
	if supported {
		extensionNames = append(extensionNames, khr_portability_subset.ExtensionName)
	}

	return extensionNames
}

func queueCreateInfos(indices QueueFamilyIndices) []core1_0.DeviceQueueCreateInfo {
	var queueFamilyOptions []core1_0.DeviceQueueCreateInfo
	queuePriority := float32(1.0)
	for _, queueFamily := range uniqueQueueFamilies(indices) {
		queueFamilyOptions = append(queueFamilyOptions, core1_0.DeviceQueueCreateInfo{
			QueueFamilyIndex: queueFamily,
			QueuePriorities:  []float32{queuePriority},
		})
	}

	return queueFamilyOptions
}

func createLogicalDevice(instanceDriver core1_0.CoreInstanceDriver, caps *PhysicalDeviceCaps, indices QueueFamilyIndices) (core1_0.CoreDeviceDriver, error) {
	deviceDriver, _, err := instanceDriver.CreateDevice(caps.Device, nil, core1_0.DeviceCreateInfo{
		QueueCreateInfos:      queueCreateInfos(indices),
		EnabledFeatures:       &core1_0.PhysicalDeviceFeatures{},
		EnabledExtensionNames: deviceExtensionNames(caps),
	})
	if err != nil {
		return nil, creationFailed(err, "logical device")
	}

	return deviceDriver, nil
}
