package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func TestFindMemoryType(t *testing.T) {
	types := []core1_0.MemoryPropertyFlags{
		core1_0.MemoryPropertyDeviceLocal,
		core1_0.MemoryPropertyHostVisible,
		core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
		core1_0.MemoryPropertyDeviceLocal | core1_0.MemoryPropertyHostVisible | core1_0.MemoryPropertyHostCoherent,
	}

	t.Run("FirstSuperset", func(t *testing.T) {
		index, err := findMemoryType(types, 0xF, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
		require.NoError(t, err)
		require.Equal(t, 2, index)
	})

	t.Run("RespectsTypeFilter", func(t *testing.T) {
		index, err := findMemoryType(types, 0x8, core1_0.MemoryPropertyHostVisible)
		require.NoError(t, err)
		require.Equal(t, 3, index)
	})

	t.Run("DeviceLocal", func(t *testing.T) {
		index, err := findMemoryType(types, 0xF, core1_0.MemoryPropertyDeviceLocal)
		require.NoError(t, err)
		require.Equal(t, 0, index)
	})

	t.Run("NoMatch", func(t *testing.T) {
		_, err := findMemoryType(types, 0x1, core1_0.MemoryPropertyHostVisible)
		require.Error(t, err)
		require.True(t, errors.Is(err, ErrCapabilityAbsent))
	})
}
