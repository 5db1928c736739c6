package importer

import (
	"github.com/go-gl/mathgl/mgl32"
)

// PostProcess applies the selected steps to every mesh of the scene.
// Triangulation runs first so that normal and tangent generation see triangles.
func PostProcess(scene *Scene, flags Flags) {
	for _, m := range scene.Meshes {
		if flags&Triangulate != 0 {
			TriangulateMesh(m)
		}
		if flags&GenSmoothNormals != 0 && !m.HasNormals() {
			GenerateSmoothNormals(m)
		}
		if flags&FlipUVs != 0 {
			FlipTexCoords(m)
		}
		if flags&CalcTangentSpace != 0 {
			CalcTangents(m)
		}
	}
}

// TriangulateMesh fan-splits every polygon with more than three corners.
// Points and lines are left alone.
func TriangulateMesh(m *Mesh) {
	needsSplit := false
	for _, f := range m.Faces {
		if len(f) > 3 {
			needsSplit = true
			break
		}
	}
	if !needsSplit {
		return
	}

	faces := make([]Face, 0, len(m.Faces)*2)
	for _, f := range m.Faces {
		if len(f) <= 3 {
			faces = append(faces, f)
			continue
		}
		for i := 2; i < len(f); i++ {
			faces = append(faces, Face{f[0], f[i-1], f[i]})
		}
	}
	m.Faces = faces
}

// GenerateSmoothNormals builds area-weighted vertex normals, averaged across
// vertices that share a position so that seams split on UVs still shade smoothly.
func GenerateSmoothNormals(m *Mesh) {
	normals := make([]mgl32.Vec3, len(m.Positions))

	for _, f := range m.Faces {
		if len(f) != 3 || !m.validFace(f) {
			continue
		}
		p0 := mgl32.Vec3(m.Positions[f[0]])
		p1 := mgl32.Vec3(m.Positions[f[1]])
		p2 := mgl32.Vec3(m.Positions[f[2]])
		// Unnormalized cross product weights by triangle area.
		n := p1.Sub(p0).Cross(p2.Sub(p0))
		for _, idx := range f {
			normals[idx] = normals[idx].Add(n)
		}
	}

	// Weld by quantized position
	const epsilon float32 = 0.0001
	welded := make(map[[3]int32]mgl32.Vec3)
	keyOf := func(p [3]float32) [3]int32 {
		return [3]int32{int32(p[0] / epsilon), int32(p[1] / epsilon), int32(p[2] / epsilon)}
	}
	for i, p := range m.Positions {
		k := keyOf(p)
		welded[k] = welded[k].Add(normals[i])
	}

	m.Normals = make([][3]float32, len(m.Positions))
	for i, p := range m.Positions {
		n := welded[keyOf(p)]
		if n.Len() < 1e-12 {
			continue
		}
		m.Normals[i] = n.Normalize()
	}
}

// FlipTexCoords converts between top-left and bottom-left UV origins.
func FlipTexCoords(m *Mesh) {
	for i := range m.TexCoords {
		m.TexCoords[i][1] = 1 - m.TexCoords[i][1]
	}
}

// CalcTangents computes per-vertex tangents and bitangents from positions,
// normals and the first UV channel. Meshes missing either are skipped.
func CalcTangents(m *Mesh) {
	if !m.HasNormals() || !m.HasTexCoords() {
		return
	}

	tangents := make([]mgl32.Vec3, len(m.Positions))
	bitangents := make([]mgl32.Vec3, len(m.Positions))

	for _, f := range m.Faces {
		if len(f) != 3 || !m.validFace(f) {
			continue
		}
		p0, p1, p2 := mgl32.Vec3(m.Positions[f[0]]), mgl32.Vec3(m.Positions[f[1]]), mgl32.Vec3(m.Positions[f[2]])
		uv0, uv1, uv2 := m.TexCoords[f[0]], m.TexCoords[f[1]], m.TexCoords[f[2]]

		e1 := p1.Sub(p0)
		e2 := p2.Sub(p0)
		du1, dv1 := uv1[0]-uv0[0], uv1[1]-uv0[1]
		du2, dv2 := uv2[0]-uv0[0], uv2[1]-uv0[1]

		denom := du1*dv2 - du2*dv1
		if denom == 0 {
			continue // degenerate UV triangle
		}
		r := 1 / denom
		t := e1.Mul(dv2 * r).Sub(e2.Mul(dv1 * r))
		b := e2.Mul(du1 * r).Sub(e1.Mul(du2 * r))

		for _, idx := range f {
			tangents[idx] = tangents[idx].Add(t)
			bitangents[idx] = bitangents[idx].Add(b)
		}
	}

	m.Tangents = make([][3]float32, len(m.Positions))
	m.Bitangents = make([][3]float32, len(m.Positions))
	for i := range m.Positions {
		n := mgl32.Vec3(m.Normals[i])
		t := tangents[i].Sub(n.Mul(n.Dot(tangents[i])))
		if t.Len() < 1e-6 {
			// Any axis perpendicular to the normal
			if abs32(n.X()) < 0.9 {
				t = mgl32.Vec3{1, 0, 0}.Sub(n.Mul(n.X()))
			} else {
				t = mgl32.Vec3{0, 1, 0}.Sub(n.Mul(n.Y()))
			}
		}
		t = t.Normalize()

		b := bitangents[i]
		if b.Len() < 1e-6 {
			b = n.Cross(t)
		}
		m.Tangents[i] = t
		m.Bitangents[i] = b.Normalize()
	}
}

func (m *Mesh) validFace(f Face) bool {
	for _, idx := range f {
		if int(idx) >= len(m.Positions) {
			return false
		}
	}
	return true
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
