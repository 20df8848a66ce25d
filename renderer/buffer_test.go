package renderer

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/core1_0"
)

func triangle() []Vertex {
	return []Vertex{
		{Position: mgl32.Vec3{0, -0.5, 0}, Color: mgl32.Vec3{1, 0, 0}},
		{Position: mgl32.Vec3{0.5, 0.5, 0}, Color: mgl32.Vec3{0, 1, 0}},
		{Position: mgl32.Vec3{-0.5, 0.5, 0}, Color: mgl32.Vec3{0, 0, 1}},
	}
}

func TestUploadRoundTrip(t *testing.T) {
	device := newFakeDevice()
	transfer := NewTransfer(device, core1_0.CommandPool{}, core1_0.Queue{})

	vertices := triangle()
	buffer, err := transfer.Upload(vertices, core1_0.BufferUsageVertexBuffer)
	require.NoError(t, err)

	expected, err := encode(vertices)
	require.NoError(t, err)
	require.Len(t, expected, 3*6*4)
	require.Equal(t, expected, device.contents(buffer))
	require.Equal(t, len(expected), buffer.Size)
	require.Equal(t, core1_0.BufferUsageTransferDst|core1_0.BufferUsageVertexBuffer, buffer.Usage)

	// Only the destination survives.
	require.Equal(t, 1, device.liveBuffers())
	require.Equal(t, 1, device.createdByUse[core1_0.BufferUsageTransferSrc])
	require.Len(t, device.destroyed, 1)
	require.Equal(t, core1_0.BufferUsageTransferSrc, device.destroyed[0].Usage)
	require.False(t, device.mappedAtSubmit)
	require.Equal(t, device.allocatedCommandBuffers, device.freedCommandBuffers)
}

func TestUploadProtocolOrder(t *testing.T) {
	device := newFakeDevice()
	transfer := NewTransfer(device, core1_0.CommandPool{}, core1_0.Queue{})

	_, err := transfer.Upload([]uint32{0, 1, 2}, core1_0.BufferUsageIndexBuffer)
	require.NoError(t, err)

	require.Equal(t, []string{
		"CreateBuffer",
		"MapBuffer",
		"UnmapBuffer",
		"CreateBuffer",
		"AllocateCommandBuffers",
		"BeginCommandBuffer",
		"CmdCopyBuffer",
		"EndCommandBuffer",
		"QueueSubmit",
		"QueueWaitIdle",
		"FreeCommandBuffers",
		"DestroyBuffer",
	}, device.ops)

	require.Len(t, device.submits, 1)
	require.Empty(t, device.submits[0].WaitSemaphores)
	require.Empty(t, device.submits[0].SignalSemaphores)
	require.False(t, device.submitFenceArmed[0])
}

func TestUploadEmptyPayload(t *testing.T) {
	device := newFakeDevice()
	transfer := NewTransfer(device, core1_0.CommandPool{}, core1_0.Queue{})

	_, err := transfer.UploadBytes(nil, core1_0.BufferUsageVertexBuffer)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidMesh))
	require.Empty(t, device.ops)
}

func TestUploadFailuresReleaseEverything(t *testing.T) {
	testCases := []struct {
		name  string
		setup func(d *fakeDevice)
	}{
		{name: "StagingCreate", setup: func(d *fakeDevice) { d.failOn["CreateBuffer"] = 1 }},
		{name: "StagingMap", setup: func(d *fakeDevice) { d.failOn["MapBuffer"] = 1 }},
		{name: "ShortMapping", setup: func(d *fakeDevice) { d.shortMap = true }},
		{name: "DestinationCreate", setup: func(d *fakeDevice) { d.failOn["CreateBuffer"] = 2 }},
		{name: "CommandAllocate", setup: func(d *fakeDevice) { d.failOn["AllocateCommandBuffers"] = 1 }},
		{name: "Begin", setup: func(d *fakeDevice) { d.failOn["BeginCommandBuffer"] = 1 }},
		{name: "Copy", setup: func(d *fakeDevice) { d.failOn["CmdCopyBuffer"] = 1 }},
		{name: "Submit", setup: func(d *fakeDevice) { d.failOn["QueueSubmit"] = 1 }},
		{name: "WaitIdle", setup: func(d *fakeDevice) { d.failOn["QueueWaitIdle"] = 1 }},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			device := newFakeDevice()
			testCase.setup(device)
			transfer := NewTransfer(device, core1_0.CommandPool{}, core1_0.Queue{})

			buffer, err := transfer.Upload(triangle(), core1_0.BufferUsageVertexBuffer)
			require.Error(t, err)
			require.Nil(t, buffer)
			require.True(t, errors.Is(err, ErrCreationFailed), "%+v", err)

			require.Zero(t, device.liveBuffers())
			require.Zero(t, device.doubleDestroy)
			require.Empty(t, device.mapped)
			require.Equal(t, device.allocatedCommandBuffers, device.freedCommandBuffers)
		})
	}
}

func TestUploadDrainsDeviceWhenQueueWaitFails(t *testing.T) {
	device := newFakeDevice()
	device.failOn["QueueWaitIdle"] = 1
	transfer := NewTransfer(device, core1_0.CommandPool{}, core1_0.Queue{})

	_, err := transfer.Upload(triangle(), core1_0.BufferUsageVertexBuffer)
	require.True(t, errors.Is(err, ErrCreationFailed))
	require.Equal(t, []string{
		"QueueSubmit",
		"QueueWaitIdle",
		"WaitIdle",
		"FreeCommandBuffers",
		"DestroyBuffer",
		"DestroyBuffer",
	}, device.opsMatching("QueueSubmit", "QueueWaitIdle", "WaitIdle", "FreeCommandBuffers", "DestroyBuffer"))
	require.Zero(t, device.liveBuffers())
}
