package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/meshrender/renderer"
	"golang.org/x/sync/errgroup"
)

type assets struct {
	vertexShader   []byte
	fragmentShader []byte
	meshes         []renderer.MeshData
}

// loadAssets reads shaders and meshes concurrently. Nothing here touches
// the device.
func loadAssets(ctx context.Context, cfg Config) (*assets, error) {
	loaded := &assets{
		meshes: make([]renderer.MeshData, len(cfg.Meshes)),
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		loaded.vertexShader, err = readAsset(groupCtx, cfg.VertexShader)
		return errors.Wrap(err, "vertex shader")
	})
	group.Go(func() error {
		var err error
		loaded.fragmentShader, err = readAsset(groupCtx, cfg.FragmentShader)
		return errors.Wrap(err, "fragment shader")
	})

	color := mgl32.Vec3(cfg.MeshColor)
	for i, path := range cfg.Meshes {
		idx, meshPath := i, path
		group.Go(func() error {
			mesh, err := loadOBJFile(groupCtx, meshPath, color)
			if err != nil {
				return errors.Wrapf(err, "mesh %s", meshPath)
			}

			loaded.meshes[idx] = mesh
			return nil
		})
	}

	err := group.Wait()
	if err != nil {
		return nil, err
	}

	if len(loaded.meshes) == 0 {
		loaded.meshes = defaultMeshes()
	}

	return loaded, nil
}

// readAsset reads a whole file unless ctx was canceled by a failed sibling.
func readAsset(ctx context.Context, path string) ([]byte, error) {
	err := ctx.Err()
	if err != nil {
		return nil, err
	}

	return os.ReadFile(path)
}

func loadOBJFile(ctx context.Context, path string, color mgl32.Vec3) (renderer.MeshData, error) {
	err := ctx.Err()
	if err != nil {
		return renderer.MeshData{}, err
	}

	meshFile, err := os.Open(path)
	if err != nil {
		return renderer.MeshData{}, err
	}
	defer meshFile.Close()

	return decodeOBJ(meshFile, color)
}

// decodeOBJ triangulates every face of every object as a fan and shares
// vertices that the file indexes more than once. Materials are ignored.
func decodeOBJ(meshReader io.Reader, color mgl32.Vec3) (renderer.MeshData, error) {
	decoder, err := obj.DecodeReader(meshReader, strings.NewReader(""))
	if err != nil {
		return renderer.MeshData{}, err
	}

	var mesh renderer.MeshData
	uniqueVertices := make(map[int]uint32)

	addVertex := func(face obj.Face, faceIndex int) error {
		vertInd := face.Vertices[faceIndex]
		index, vertexExists := uniqueVertices[vertInd]

		if !vertexExists {
			if vertInd < 0 || vertInd*3+2 >= len(decoder.Vertices) {
				return errors.Newf("face references vertex %d of %d", vertInd+1, len(decoder.Vertices)/3)
			}

			index = uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, renderer.Vertex{
				Position: mgl32.Vec3{
					decoder.Vertices[vertInd*3],
					decoder.Vertices[vertInd*3+1],
					decoder.Vertices[vertInd*3+2],
				},
				Color: color,
			})
			uniqueVertices[vertInd] = index
		}

		mesh.Indices = append(mesh.Indices, index)
		return nil
	}

	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				for _, faceIndex := range [3]int{0, i - 1, i} {
					err = addVertex(face, faceIndex)
					if err != nil {
						return renderer.MeshData{}, err
					}
				}
			}
		}
	}

	if len(mesh.Vertices) == 0 {
		return mesh, errors.New("no faces")
	}

	return mesh, nil
}

// defaultMeshes is two overlapping quads, wound clockwise in framebuffer
// space.
func defaultMeshes() []renderer.MeshData {
	quadIndices := []uint32{0, 1, 2, 2, 3, 0}

	return []renderer.MeshData{
		{
			Vertices: []renderer.Vertex{
				{Position: mgl32.Vec3{-0.4, 0.4, 0.0}, Color: mgl32.Vec3{1.0, 0.0, 0.0}},
				{Position: mgl32.Vec3{-0.4, -0.4, 0.0}, Color: mgl32.Vec3{0.0, 1.0, 0.0}},
				{Position: mgl32.Vec3{0.4, -0.4, 0.0}, Color: mgl32.Vec3{0.0, 0.0, 1.0}},
				{Position: mgl32.Vec3{0.4, 0.4, 0.0}, Color: mgl32.Vec3{1.0, 1.0, 0.0}},
			},
			Indices: quadIndices,
		},
		{
			Vertices: []renderer.Vertex{
				{Position: mgl32.Vec3{-0.25, 0.6, 0.0}, Color: mgl32.Vec3{1.0, 0.0, 0.0}},
				{Position: mgl32.Vec3{-0.25, -0.6, 0.0}, Color: mgl32.Vec3{0.0, 1.0, 0.0}},
				{Position: mgl32.Vec3{0.25, -0.6, 0.0}, Color: mgl32.Vec3{0.0, 0.0, 1.0}},
				{Position: mgl32.Vec3{0.25, 0.6, 0.0}, Color: mgl32.Vec3{1.0, 1.0, 0.0}},
			},
			Indices: quadIndices,
		},
	}
}
