package importer

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Flags select post-processing steps applied after parsing.
type Flags uint32

const (
	// Triangulate splits polygons with more than three corners into triangles.
	Triangulate Flags = 1 << iota
	// GenSmoothNormals generates per-vertex normals for meshes that have none.
	GenSmoothNormals
	// FlipUVs flips the vertical texture axis (v -> 1-v).
	FlipUVs
	// CalcTangentSpace computes per-vertex tangents and bitangents.
	CalcTangentSpace
)

// DefaultFlags is the post-processing set used by the model loader.
const DefaultFlags = Triangulate | GenSmoothNormals | FlipUVs | CalcTangentSpace

// Errors returned by ReadFile.
var (
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrNoMeshes          = errors.New("asset contains no meshes")
)

// decodeFunc parses one asset file into a scene without post-processing.
type decodeFunc func(path string) (*Scene, error)

var decoders = map[string]decodeFunc{
	".obj":  decodeOBJ,
	".gltf": decodeGLTF,
	".glb":  decodeGLTF,
}

// Supported reports whether ReadFile knows the file's extension.
func Supported(path string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extensions returns the supported file extensions without the dot.
func Extensions() []string {
	return []string{"obj", "gltf", "glb"}
}

// ReadFile imports an asset file and applies the requested post-processing.
// A scene that parses but yields no meshes is returned with SceneIncomplete set.
func ReadFile(path string, flags Flags) (*Scene, error) {
	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	scene, err := decode(path)
	if err != nil {
		return nil, fmt.Errorf("importing %s: %w", path, err)
	}

	if len(scene.Meshes) == 0 {
		scene.Flags |= SceneIncomplete
	}

	PostProcess(scene, flags)
	return scene, nil
}
