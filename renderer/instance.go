package renderer

import (
	"context"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/extensions/v3/khr_portability_enumeration"
	"golang.org/x/exp/slog"
)

var validationLayers = []string{"VK_LAYER_KHRONOS_validation"}

// missingNames returns the entries of required that are not keys of
// available, sorted.
func missingNames[V any](available map[string]V, required []string) []string {
	var missing []string
	for _, name := range required {
		_, has := available[name]
		if !has {
			missing = append(missing, name)
		}
	}

	sort.Strings(missing)
	return missing
}

func createInstance(globalDriver core1_0.GlobalDriver, applicationName string, windowExtensions []string, enableValidation bool, logger *slog.Logger) (core1_0.CoreInstanceDriver, error) {
	instanceOptions := core1_0.InstanceCreateInfo{
		ApplicationName:    applicationName,
		ApplicationVersion: common.CreateVersion(1, 0, 0),
		EngineName:         "meshrender",
		EngineVersion:      common.CreateVersion(1, 0, 0),
		APIVersion:         common.Vulkan1_2,
	}

	extensions, _, err := globalDriver.AvailableExtensions()
	if err != nil {
		return nil, creationFailed(err, "instance extension list")
	}

	missing := missingNames(extensions, windowExtensions)
	if len(missing) > 0 {
		return nil, capabilityAbsentf("instance does not support window extensions %v", missing)
	}
	instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, windowExtensions...)

	if enableValidation {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, ext_debug_utils.ExtensionName)
	}

	_, enumerationSupported := extensions[khr_portability_enumeration.ExtensionName]
	if enumerationSupported {
		instanceOptions.EnabledExtensionNames = append(instanceOptions.EnabledExtensionNames, khr_portability_enumeration.ExtensionName)
		instanceOptions.Flags |= khr_portability_enumeration.InstanceCreateEnumeratePortability
	}

	if enableValidation {
		layers, _, err := globalDriver.AvailableLayers()
		if err != nil {
			return nil, creationFailed(err, "instance layer list")
		}

		missing := missingNames(layers, validationLayers)
		if len(missing) > 0 {
			err := capabilityAbsentf("validation layers %v not available", missing)
			return nil, errors.WithHint(err, "install the LunarG Vulkan SDK or disable validation")
		}
		instanceOptions.EnabledLayerNames = append(instanceOptions.EnabledLayerNames, validationLayers...)

		// Covers instance creation and destruction, which the messenger cannot.
		instanceOptions.Next = debugMessengerOptions(logger)
	}

	instanceDriver, _, err := globalDriver.CreateInstance(nil, instanceOptions)
	if err != nil {
		return nil, creationFailed(err, "instance")
	}

	logger.Debug("created instance",
		slog.Int("extensions", len(instanceOptions.EnabledExtensionNames)),
		slog.Bool("validation", enableValidation),
		slog.Bool("portability", enumerationSupported))

	return instanceDriver, nil
}

func debugMessengerOptions(logger *slog.Logger) ext_debug_utils.DebugUtilsMessengerCreateInfo {
	return ext_debug_utils.DebugUtilsMessengerCreateInfo{
		MessageSeverity: ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning,
		MessageType:     ext_debug_utils.TypeGeneral | ext_debug_utils.TypeValidation | ext_debug_utils.TypePerformance,
		UserCallback:    logValidationMessage(logger),
	}
}

// logValidationMessage routes validation layer output to logger. Errors log
// at error level, everything else at warn.
func logValidationMessage(logger *slog.Logger) func(ext_debug_utils.DebugUtilsMessageTypeFlags, ext_debug_utils.DebugUtilsMessageSeverityFlags, *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	return func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
		level := slog.LevelWarn
		if severity&ext_debug_utils.SeverityError != 0 {
			level = slog.LevelError
		}

		logger.Log(context.Background(), level, data.Message,
			slog.Any("severity", severity),
			slog.Any("type", msgType))
		return false
	}
}

func createDebugMessenger(instanceDriver core1_0.CoreInstanceDriver, logger *slog.Logger) (ext_debug_utils.ExtensionDriver, ext_debug_utils.DebugUtilsMessenger, error) {
	debugDriver := ext_debug_utils.CreateExtensionDriverFromCoreDriver(instanceDriver)
	messenger, _, err := debugDriver.CreateDebugUtilsMessenger(nil, debugMessengerOptions(logger))
	if err != nil {
		return debugDriver, ext_debug_utils.DebugUtilsMessenger{}, creationFailed(err, "debug messenger")
	}

	return debugDriver, messenger, nil
}
