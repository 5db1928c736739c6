// Package model builds renderable meshes from imported scenes and owns their
// GPU resources.
package model

import (
	"github.com/Faultbox/glmodel/internal/engine/texture"
)

// Vertex is one mesh vertex, laid out for direct upload:
// location 0 position, 1 normal, 2 texture coordinate.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// MeshBuffers holds the GPU objects of an uploaded mesh.
type MeshBuffers struct {
	VAO        uint32
	VBO        uint32
	EBO        uint32
	IndexCount int32
}

// TextureBinding assigns a texture to a unit and sampler uniform for one draw.
type TextureBinding struct {
	Unit    int32
	Uniform string
	ID      uint32
}

// Device is the GPU capability models are built on: texture upload plus
// mesh buffer creation and drawing. All calls happen on the GL thread.
type Device interface {
	texture.Uploader
	CreateMesh(vertices []Vertex, indices []uint32) MeshBuffers
	DeleteMesh(buf MeshBuffers)
	DrawMesh(buf MeshBuffers, bindings []TextureBinding, program uint32)
}

// Mesh is a renderable mesh. Textures are shared with other meshes of the
// same model and owned by the model's texture loader.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Textures []texture.Texture
	Buffers  MeshBuffers
	bindings []TextureBinding
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Center returns the middle of the box.
func (b Bounds) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// Size returns the extent along each axis.
func (b Bounds) Size() [3]float32 {
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

func emptyBounds() Bounds {
	return Bounds{
		Min: [3]float32{1e10, 1e10, 1e10},
		Max: [3]float32{-1e10, -1e10, -1e10},
	}
}

func (b *Bounds) extend(p [3]float32) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}
