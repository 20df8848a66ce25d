package renderer

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
)

type Vertex struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
}

func vertexBindingDescriptions() []core1_0.VertexInputBindingDescription {
	v := Vertex{}
	return []core1_0.VertexInputBindingDescription{
		{
			Binding:   0,
			Stride:    int(unsafe.Sizeof(v)),
			InputRate: core1_0.VertexInputRateVertex,
		},
	}
}

func vertexAttributeDescriptions() []core1_0.VertexInputAttributeDescription {
	v := Vertex{}
	return []core1_0.VertexInputAttributeDescription{
		{
			Binding:  0,
			Location: 0,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Position)),
		},
		{
			Binding:  0,
			Location: 1,
			Format:   core1_0.FormatR32G32B32SignedFloat,
			Offset:   int(unsafe.Offsetof(v.Color)),
		},
	}
}

// MeshData is host-side geometry waiting to be uploaded. A nil Indices
// slice draws the vertices in order.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// Mesh is geometry resident in device-local memory.
type Mesh struct {
	device BufferDevice

	vertexBuffer *GPUBuffer
	vertexCount  int
	indexBuffer  *GPUBuffer
	indexCount   int
}

// NewMesh uploads data through transfer. Both buffers are released if
// either upload fails.
func NewMesh(transfer *Transfer, data MeshData) (*Mesh, error) {
	if len(data.Vertices) == 0 {
		return nil, errors.Mark(errors.New("mesh has no vertices"), ErrInvalidMesh)
	}

	indices := data.Indices
	if indices == nil {
		indices = sequentialIndices(len(data.Vertices))
	}
	if len(indices) == 0 {
		return nil, errors.Mark(errors.New("mesh has an empty index list"), ErrInvalidMesh)
	}

	for _, index := range indices {
		if int(index) >= len(data.Vertices) {
			return nil, errors.Mark(errors.Newf("index %d out of range for %d vertices", index, len(data.Vertices)), ErrInvalidMesh)
		}
	}

	vertexBuffer, err := transfer.Upload(data.Vertices, core1_0.BufferUsageVertexBuffer)
	if err != nil {
		return nil, errors.Wrap(err, "vertex buffer")
	}

	indexBuffer, err := transfer.Upload(indices, core1_0.BufferUsageIndexBuffer)
	if err != nil {
		transfer.device.DestroyBuffer(vertexBuffer)
		return nil, errors.Wrap(err, "index buffer")
	}

	return &Mesh{
		device:       transfer.device,
		vertexBuffer: vertexBuffer,
		vertexCount:  len(data.Vertices),
		indexBuffer:  indexBuffer,
		indexCount:   len(indices),
	}, nil
}

func sequentialIndices(count int) []uint32 {
	indices := make([]uint32, count)
	for i := range indices {
		indices[i] = uint32(i)
	}
	return indices
}

func (m *Mesh) VertexCount() int {
	return m.vertexCount
}

func (m *Mesh) VertexBuffer() *GPUBuffer {
	return m.vertexBuffer
}

func (m *Mesh) IndexCount() int {
	return m.indexCount
}

func (m *Mesh) IndexBuffer() *GPUBuffer {
	return m.indexBuffer
}

// Destroy releases both buffers. The device must be idle.
func (m *Mesh) Destroy() {
	if m.indexBuffer != nil {
		m.device.DestroyBuffer(m.indexBuffer)
		m.indexBuffer = nil
	}

	if m.vertexBuffer != nil {
		m.device.DestroyBuffer(m.vertexBuffer)
		m.vertexBuffer = nil
	}
}
