package renderer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
	"github.com/vkngwrapper/extensions/v3/khr_swapchain"
)

func TestBytesToBytecode(t *testing.T) {
	// SPIR-V magic number followed by a version word.
	code, err := bytesToBytecode([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	require.NoError(t, err)
	require.Equal(t, []uint32{0x07230203, 0x00010000}, code)

	_, err = bytesToBytecode([]byte{0x03, 0x02, 0x23})
	require.Error(t, err)

	_, err = bytesToBytecode(nil)
	require.Error(t, err)
}

func TestRenderPassCreateInfo(t *testing.T) {
	info := renderPassCreateInfo(core1_0.FormatB8G8R8A8UnsignedNormalized)

	require.Len(t, info.Attachments, 1)
	attachment := info.Attachments[0]
	require.Equal(t, core1_0.FormatB8G8R8A8UnsignedNormalized, attachment.Format)
	require.Equal(t, core1_0.AttachmentLoadOpClear, attachment.LoadOp)
	require.Equal(t, core1_0.AttachmentStoreOpStore, attachment.StoreOp)
	require.Equal(t, core1_0.ImageLayoutUndefined, attachment.InitialLayout)
	require.Equal(t, khr_swapchain.ImageLayoutPresentSrc, attachment.FinalLayout)

	require.Len(t, info.Subpasses, 1)
	require.Len(t, info.Subpasses[0].ColorAttachments, 1)
	require.Len(t, info.SubpassDependencies, 1)
	require.Equal(t, core1_0.SubpassExternal, info.SubpassDependencies[0].SrcSubpass)
}
