package renderer

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v3/common"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// GPUBuffer is a device buffer and the one allocation bound to it. The two
// halves are created and destroyed together by a BufferDevice.
type GPUBuffer struct {
	Buffer core1_0.Buffer
	Memory core1_0.DeviceMemory
	Size   int
	Usage  core1_0.BufferUsageFlags
}

// Transfer copies host data into device-local buffers through short-lived
// staging buffers. Each upload blocks until the transfer queue is idle.
type Transfer struct {
	device transferDevice
	pool   core1_0.CommandPool
	queue  core1_0.Queue
}

// NewTransfer returns a Transfer that records on pool and submits to queue.
// The pool's queue family must support transfer operations.
func NewTransfer(device transferDevice, pool core1_0.CommandPool, queue core1_0.Queue) *Transfer {
	return &Transfer{
		device: device,
		pool:   pool,
		queue:  queue,
	}
}

func encode(data any) ([]byte, error) {
	buf := &bytes.Buffer{}
	err := binary.Write(buf, common.ByteOrder, data)
	if err != nil {
		return nil, errors.Wrap(err, "encode buffer payload")
	}

	return buf.Bytes(), nil
}

// Upload encodes data and copies it into a new device-local buffer usable as
// usage. data must be a fixed-size value or slice accepted by binary.Write.
func (t *Transfer) Upload(data any, usage core1_0.BufferUsageFlags) (*GPUBuffer, error) {
	payload, err := encode(data)
	if err != nil {
		return nil, err
	}

	return t.UploadBytes(payload, usage)
}

// UploadBytes copies payload into a new device-local buffer usable as usage.
func (t *Transfer) UploadBytes(payload []byte, usage core1_0.BufferUsageFlags) (*GPUBuffer, error) {
	size := len(payload)
	if size == 0 {
		return nil, errors.Mark(errors.New("upload: empty payload"), ErrInvalidMesh)
	}

	staging, err := t.device.CreateBuffer(size, core1_0.BufferUsageTransferSrc, core1_0.MemoryPropertyHostVisible|core1_0.MemoryPropertyHostCoherent)
	if err != nil {
		return nil, creationFailed(err, "staging buffer")
	}
	defer t.device.DestroyBuffer(staging)

	err = t.writeStaging(staging, payload)
	if err != nil {
		return nil, err
	}

	dst, err := t.device.CreateBuffer(size, core1_0.BufferUsageTransferDst|usage, core1_0.MemoryPropertyDeviceLocal)
	if err != nil {
		return nil, creationFailed(err, "device-local buffer")
	}

	err = t.copyBuffer(staging, dst, size)
	if err != nil {
		t.device.DestroyBuffer(dst)
		return nil, err
	}

	return dst, nil
}

func (t *Transfer) writeStaging(staging *GPUBuffer, payload []byte) error {
	mapped, err := t.device.MapBuffer(staging)
	if err != nil {
		return creationFailed(err, "staging buffer mapping")
	}
	defer t.device.UnmapBuffer(staging)

	if len(mapped) < len(payload) {
		return errors.Mark(errors.Newf("staging mapping holds %d bytes, payload is %d", len(mapped), len(payload)), ErrCreationFailed)
	}

	copy(mapped, payload)
	return nil
}

func (t *Transfer) copyBuffer(src, dst *GPUBuffer, size int) error {
	buffers, err := t.device.AllocateCommandBuffers(t.pool, 1)
	if err != nil {
		return creationFailed(err, "transfer command buffer")
	}
	buffer := buffers[0]
	defer t.device.FreeCommandBuffers(buffer)

	err = t.device.BeginCommandBuffer(buffer, core1_0.CommandBufferUsageOneTimeSubmit)
	if err != nil {
		return creationFailed(err, "transfer command recording")
	}

	err = t.device.CmdCopyBuffer(buffer, src, dst, size)
	if err != nil {
		return creationFailed(err, "transfer copy command")
	}

	err = t.device.EndCommandBuffer(buffer)
	if err != nil {
		return creationFailed(err, "transfer command recording")
	}

	err = t.device.QueueSubmit(t.queue, nil, core1_0.SubmitInfo{
		CommandBuffers: []core1_0.CommandBuffer{buffer},
	})
	if err != nil {
		return creationFailed(err, "transfer submission")
	}

	err = t.device.QueueWaitIdle(t.queue)
	if err != nil {
		// The copy may still be reading src and writing dst.
		return creationFailed(errors.CombineErrors(err, t.device.WaitIdle()), "transfer completion")
	}

	return nil
}
