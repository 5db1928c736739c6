package importer

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/g3n/engine/loader/obj"
)

// decodeOBJ reads a Wavefront OBJ file and the material library it names.
// Each OBJ object becomes a child node of the root; an object's faces are
// split into one mesh per material, in order of first use.
func decodeOBJ(path string) (*Scene, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	// An empty mtl path is fine: the decoder then falls back to default
	// materials on its own.
	mtl := findMaterialLibrary(path)
	dec, err := obj.Decode(path, mtl)
	if err != nil {
		return nil, err
	}
	return sceneFromOBJ(dec, name, diffuseMaps(mtl)), nil
}

// findMaterialLibrary returns the material library an OBJ file refers to,
// resolved next to the OBJ file, or the same-named .mtl file. It returns ""
// when neither exists.
func findMaterialLibrary(path string) string {
	dir := filepath.Dir(path)
	var candidates []string

	if f, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if rest, ok := strings.CutPrefix(line, "mtllib "); ok {
				candidates = append(candidates, filepath.Join(dir, strings.TrimSpace(rest)))
				break
			}
		}
		f.Close()
	}
	candidates = append(candidates, strings.TrimSuffix(path, filepath.Ext(path))+".mtl")

	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}

// mapOptionArgs is the number of arguments each texture map option takes.
// -o, -s and -t take up to three numbers.
var mapOptionArgs = map[string]int{
	"-blendu":  1,
	"-blendv":  1,
	"-boost":   1,
	"-cc":      1,
	"-clamp":   1,
	"-bm":      1,
	"-imfchan": 1,
	"-texres":  1,
	"-type":    1,
	"-mm":      2,
	"-o":       3,
	"-s":       3,
	"-t":       3,
}

// diffuseMaps reads the map_Kd file names of an MTL file, keyed by material.
// The OBJ decoder keeps only the first word of a map statement, which breaks
// paths containing spaces and maps with options.
func diffuseMaps(mtlPath string) map[string]string {
	maps := make(map[string]string)
	if mtlPath == "" {
		return maps
	}
	f, err := os.Open(mtlPath)
	if err != nil {
		return maps
	}
	defer f.Close()

	var current string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		keyword, rest := cutField(strings.TrimSpace(scanner.Text()))
		switch keyword {
		case "newmtl":
			current, _ = cutField(rest)
		case "map_Kd":
			if p := mapPath(rest); p != "" && current != "" {
				maps[current] = p
			}
		}
	}
	return maps
}

// mapPath strips leading options from the arguments of a map statement and
// returns the file name with its inner spacing intact.
func mapPath(args string) string {
	rest := strings.TrimSpace(args)
	for strings.HasPrefix(rest, "-") {
		opt, after := cutField(rest)
		n, ok := mapOptionArgs[opt]
		if !ok {
			break
		}
		rest = after
		for i := 0; i < n && rest != ""; i++ {
			tok, after := cutField(rest)
			if n == 3 && i > 0 {
				if _, err := strconv.ParseFloat(tok, 32); err != nil {
					break
				}
			}
			rest = after
		}
	}
	return rest
}

// cutField splits s at its first run of blanks.
func cutField(s string) (field, rest string) {
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i:], " \t")
}

func sceneFromOBJ(dec *obj.Decoder, name string, diffuse map[string]string) *Scene {
	scene := &Scene{Root: &Node{Name: name}}

	// Materials in name order so indices are stable between runs
	names := make([]string, 0, len(dec.Materials))
	for n := range dec.Materials {
		names = append(names, n)
	}
	sort.Strings(names)
	matIndex := make(map[string]int, len(names))
	for _, n := range names {
		src := dec.Materials[n]
		mat := NewMaterial(n)
		if src != nil && src.MapKd != "" {
			texPath := src.MapKd
			if full, ok := diffuse[n]; ok {
				texPath = full
			}
			mat.AddTexture(TextureDiffuse, texPath)
		}
		matIndex[n] = len(scene.Materials)
		scene.Materials = append(scene.Materials, mat)
	}

	for _, object := range dec.Objects {
		node := &Node{Name: object.Name}

		var order []string
		builders := make(map[string]*objMeshBuilder)
		for _, face := range object.Faces {
			b, ok := builders[face.Material]
			if !ok {
				idx, known := matIndex[face.Material]
				if !known {
					idx = -1
				}
				b = newOBJMeshBuilder(dec, object.Name, idx)
				builders[face.Material] = b
				order = append(order, face.Material)
			}
			b.addFace(face)
		}

		for _, matName := range order {
			scene.SkippedFaces += builders[matName].skipped
			mesh := builders[matName].mesh()
			if len(mesh.Faces) == 0 {
				continue
			}
			node.Meshes = append(node.Meshes, len(scene.Meshes))
			scene.Meshes = append(scene.Meshes, mesh)
		}
		scene.Root.AddChild(node)
	}

	return scene
}

// objMeshBuilder collects the corners of one (object, material) pair,
// deduplicating on the (position, uv, normal) index triple.
type objMeshBuilder struct {
	dec     *obj.Decoder
	m       *Mesh
	corners map[[3]int]uint32
	skipped int

	hasUV     bool
	hasNormal bool
}

func newOBJMeshBuilder(dec *obj.Decoder, name string, matIdx int) *objMeshBuilder {
	return &objMeshBuilder{
		dec:     dec,
		m:       &Mesh{Name: name, MaterialIndex: matIdx},
		corners: make(map[[3]int]uint32),
	}
}

func (b *objMeshBuilder) addFace(face obj.Face) {
	if len(face.Vertices) == 0 {
		return
	}
	// Reject the whole face before any corner is emitted
	for _, vi := range face.Vertices {
		if vi < 0 || vi >= len(b.dec.Vertices)/3 {
			b.skipped++
			return
		}
	}
	out := make(Face, 0, len(face.Vertices))
	for i, vi := range face.Vertices {
		uvi, ni := -1, -1
		if i < len(face.Uvs) && face.Uvs[i] >= 0 && face.Uvs[i] < len(b.dec.Uvs)/2 {
			uvi = face.Uvs[i]
		}
		if i < len(face.Normals) && face.Normals[i] >= 0 && face.Normals[i] < len(b.dec.Normals)/3 {
			ni = face.Normals[i]
		}
		out = append(out, b.corner(vi, uvi, ni))
	}
	b.m.Faces = append(b.m.Faces, out)
}

func (b *objMeshBuilder) corner(vi, uvi, ni int) uint32 {
	key := [3]int{vi, uvi, ni}
	if idx, ok := b.corners[key]; ok {
		return idx
	}

	v := b.dec.Vertices
	pos := [3]float32{v[vi*3], v[vi*3+1], v[vi*3+2]}

	var uv [2]float32
	if uvi >= 0 {
		uv = [2]float32{b.dec.Uvs[uvi*2], b.dec.Uvs[uvi*2+1]}
		b.hasUV = true
	}
	var n [3]float32
	if ni >= 0 {
		nv := b.dec.Normals
		n = [3]float32{nv[ni*3], nv[ni*3+1], nv[ni*3+2]}
		b.hasNormal = true
	}

	idx := uint32(len(b.m.Positions))
	b.m.Positions = append(b.m.Positions, pos)
	b.m.TexCoords = append(b.m.TexCoords, uv)
	b.m.Normals = append(b.m.Normals, n)
	b.corners[key] = idx
	return idx
}

// mesh drops attribute streams that no corner actually provided.
func (b *objMeshBuilder) mesh() *Mesh {
	if !b.hasUV {
		b.m.TexCoords = nil
	}
	if !b.hasNormal {
		b.m.Normals = nil
	}
	return b.m
}
