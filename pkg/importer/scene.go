// Package importer reads 3D asset files into a format-neutral scene graph.
//
// The scene layout follows the usual importer model: a tree of nodes that
// reference meshes by index, a flat mesh list, a flat material list and any
// textures embedded inside the asset itself.
package importer

import (
	"fmt"
	"strconv"
)

// TextureType identifies a material texture slot.
type TextureType int

const (
	TextureDiffuse TextureType = iota
	TextureBaseColor
	TextureSpecular
	TextureNormal
	TextureEmissive
)

// String returns the slot name.
func (t TextureType) String() string {
	switch t {
	case TextureDiffuse:
		return "diffuse"
	case TextureBaseColor:
		return "base_color"
	case TextureSpecular:
		return "specular"
	case TextureNormal:
		return "normal"
	case TextureEmissive:
		return "emissive"
	default:
		return fmt.Sprintf("TextureType(%d)", int(t))
	}
}

// SceneFlags describe the state of an imported scene.
type SceneFlags uint32

// SceneIncomplete is set when the asset parsed but produced nothing drawable.
const SceneIncomplete SceneFlags = 1 << 0

// Scene is the result of importing one asset file.
type Scene struct {
	Root      *Node
	Meshes    []*Mesh
	Materials []*Material
	// Textures holds images stored inside the asset. Material slots refer to
	// them as "*N" where N is the index into this slice.
	Textures []EmbeddedTexture
	Flags    SceneFlags
	// SkippedFaces counts faces dropped at import for referencing
	// vertices the file does not define.
	SkippedFaces int
}

// Incomplete reports whether the scene was flagged incomplete.
func (s *Scene) Incomplete() bool {
	return s.Flags&SceneIncomplete != 0
}

// EmbeddedTexture returns the embedded image for a "*N" reference.
func (s *Scene) EmbeddedTexture(ref string) ([]byte, bool) {
	idx, ok := ParseEmbeddedRef(ref)
	if !ok || idx < 0 || idx >= len(s.Textures) {
		return nil, false
	}
	return s.Textures[idx].Data, true
}

// Node is one element of the scene hierarchy.
type Node struct {
	Name     string
	Meshes   []int
	Children []*Node
}

// AddChild appends a child node.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// Face is one polygon as a list of vertex indices.
type Face []uint32

// Mesh holds raw vertex attributes for one material.
// Normals and TexCoords are nil when the source does not provide them.
type Mesh struct {
	Name       string
	Positions  [][3]float32
	Normals    [][3]float32
	TexCoords  [][2]float32
	Tangents   [][3]float32
	Bitangents [][3]float32
	Faces      []Face
	// MaterialIndex indexes Scene.Materials, or is -1 for none.
	MaterialIndex int
}

// HasNormals reports whether the mesh carries per-vertex normals.
func (m *Mesh) HasNormals() bool {
	return len(m.Normals) == len(m.Positions) && len(m.Normals) > 0
}

// HasTexCoords reports whether the mesh carries a first UV channel.
func (m *Mesh) HasTexCoords() bool {
	return len(m.TexCoords) == len(m.Positions) && len(m.TexCoords) > 0
}

// Material groups texture references by slot.
type Material struct {
	Name     string
	Textures map[TextureType][]string
}

// NewMaterial creates an empty material.
func NewMaterial(name string) *Material {
	return &Material{
		Name:     name,
		Textures: make(map[TextureType][]string),
	}
}

// AddTexture appends a texture reference to a slot.
func (m *Material) AddTexture(t TextureType, path string) {
	if m.Textures == nil {
		m.Textures = make(map[TextureType][]string)
	}
	m.Textures[t] = append(m.Textures[t], path)
}

// TextureCount returns the number of references in a slot.
func (m *Material) TextureCount(t TextureType) int {
	return len(m.Textures[t])
}

// Texture returns the i-th reference of a slot, exactly as stored in the asset.
func (m *Material) Texture(t TextureType, i int) string {
	refs := m.Textures[t]
	if i < 0 || i >= len(refs) {
		return ""
	}
	return refs[i]
}

// EmbeddedTexture is an image stored inside the asset file.
type EmbeddedTexture struct {
	Name     string
	MimeType string
	Data     []byte
}

// EmbeddedRef returns the material reference string for embedded texture idx.
func EmbeddedRef(idx int) string {
	return fmt.Sprintf("*%d", idx)
}

// ParseEmbeddedRef parses a "*N" reference.
func ParseEmbeddedRef(ref string) (int, bool) {
	if len(ref) < 2 || ref[0] != '*' {
		return 0, false
	}
	digits := ref[1:]
	if digits[0] < '0' || digits[0] > '9' {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
