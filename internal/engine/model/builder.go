package model

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/glmodel/internal/engine/texture"
	"github.com/Faultbox/glmodel/pkg/importer"
)

// DiffuseType is the sampler kind used for the primary colour texture.
const DiffuseType = "texture_diffuse"

// BuildResult is BuildMesh's output.
type BuildResult struct {
	Mesh *Mesh
	// SkippedFaces counts faces dropped for not having exactly three corners
	// or for referencing vertices that do not exist.
	SkippedFaces int
}

// BuildMesh converts an imported mesh into a Mesh and resolves its textures.
// Missing normals stay zero, missing texture coordinates default to (0,0).
func BuildMesh(src *importer.Mesh, mat *importer.Material, textures *texture.Loader, log *zap.Logger) BuildResult {
	if log == nil {
		log = zap.NewNop()
	}

	hasNormals := src.HasNormals()
	hasUVs := src.HasTexCoords()

	mesh := &Mesh{
		Name:     src.Name,
		Vertices: make([]Vertex, len(src.Positions)),
	}
	for i, p := range src.Positions {
		v := Vertex{Position: p}
		if hasNormals {
			v.Normal = src.Normals[i]
		}
		if hasUVs {
			v.TexCoord = src.TexCoords[i]
		}
		mesh.Vertices[i] = v
	}

	var res BuildResult
	mesh.Indices = make([]uint32, 0, len(src.Faces)*3)
	count := uint32(len(mesh.Vertices))
	nonTriangles := 0
	for _, f := range src.Faces {
		if len(f) != 3 {
			nonTriangles++
			continue
		}
		if f[0] >= count || f[1] >= count || f[2] >= count {
			res.SkippedFaces++
			log.Warn("face references missing vertex",
				zap.String("mesh", src.Name),
				zap.Uint32s("indices", f),
				zap.Int("vertices", len(mesh.Vertices)),
			)
			continue
		}
		mesh.Indices = append(mesh.Indices, f[0], f[1], f[2])
	}
	if nonTriangles > 0 {
		// points, lines, or polygons imported without Triangulate
		res.SkippedFaces += nonTriangles
		log.Warn("skipped non-triangle faces",
			zap.String("mesh", src.Name),
			zap.Int("faces", nonTriangles),
		)
	}

	if mat != nil && textures != nil {
		mesh.Textures = materialTextures(mat, textures)
	}
	mesh.bindings = SamplerBindings(mesh.Textures)

	res.Mesh = mesh
	return res
}

// materialTextures loads the diffuse slot, or the base colour slot when the
// material has no diffuse references.
func materialTextures(mat *importer.Material, textures *texture.Loader) []texture.Texture {
	out := loadSlot(mat, importer.TextureDiffuse, DiffuseType, textures)
	if len(out) == 0 {
		out = loadSlot(mat, importer.TextureBaseColor, DiffuseType, textures)
	}
	return out
}

func loadSlot(mat *importer.Material, slot importer.TextureType, typeName string, textures *texture.Loader) []texture.Texture {
	n := mat.TextureCount(slot)
	if n == 0 {
		return nil
	}
	out := make([]texture.Texture, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, textures.Load(mat.Texture(slot, i), typeName))
	}
	return out
}

// SamplerBindings assigns texture units in order and names each sampler
// <type><n>, numbering from 1 per type: texture_diffuse1, texture_diffuse2, ...
func SamplerBindings(textures []texture.Texture) []TextureBinding {
	if len(textures) == 0 {
		return nil
	}
	counts := make(map[string]int)
	out := make([]TextureBinding, len(textures))
	for i, tex := range textures {
		counts[tex.Type]++
		out[i] = TextureBinding{
			Unit:    int32(i),
			Uniform: tex.Type + strconv.Itoa(counts[tex.Type]),
			ID:      tex.ID,
		}
	}
	return out
}
