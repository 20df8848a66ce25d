package renderer

import (
	"github.com/vkngwrapper/core/v3/core1_0"
)

// findMemoryType returns the first memory type, in index order, that is
// allowed by typeFilter and carries every flag in properties.
func findMemoryType(memoryTypes []core1_0.MemoryPropertyFlags, typeFilter uint32, properties core1_0.MemoryPropertyFlags) (int, error) {
	for i, flags := range memoryTypes {
		typeBit := uint32(1) << uint(i)

		if (typeFilter&typeBit) != 0 && (flags&properties) == properties {
			return i, nil
		}
	}

	return 0, capabilityAbsentf("no memory type matches type filter %#x with properties %s", typeFilter, properties)
}
