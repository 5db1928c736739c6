package importer

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const quadOBJ = `# two objects, one quad each
mtllib trees.mtl
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
o trunk
usemtl bark
f 1/1 2/2 3/3 4/4
o leaves
usemtl leaf
f 1/1 2/2 3/3
usemtl bark
f 1/1 3/3 4/4
`

const treesMTL = `newmtl bark
Kd 0.5 0.3 0.1
map_Kd C:\Users\artist\textures\Bark.jpg

newmtl leaf
Kd 0.1 0.6 0.1
map_Kd leaves/Leaf.png
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestReadFile_OBJ(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trees.obj", quadOBJ)
	writeFile(t, dir, "trees.mtl", treesMTL)

	scene, err := ReadFile(path, Triangulate)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if scene.Incomplete() {
		t.Fatal("scene flagged incomplete")
	}
	if scene.Root == nil || len(scene.Root.Children) != 2 {
		t.Fatalf("expected root with 2 object nodes, got %+v", scene.Root)
	}

	trunk := scene.Root.Children[0]
	leaves := scene.Root.Children[1]
	if len(trunk.Meshes) != 1 {
		t.Errorf("trunk: expected 1 mesh, got %d", len(trunk.Meshes))
	}
	// leaves uses two materials
	if len(leaves.Meshes) != 2 {
		t.Errorf("leaves: expected 2 meshes, got %d", len(leaves.Meshes))
	}

	quad := scene.Meshes[trunk.Meshes[0]]
	if len(quad.Faces) != 2 {
		t.Errorf("quad should triangulate into 2 faces, got %d", len(quad.Faces))
	}
	for _, f := range quad.Faces {
		if len(f) != 3 {
			t.Errorf("face has %d corners after triangulation", len(f))
		}
	}
	if len(quad.Positions) != 4 {
		t.Errorf("expected 4 deduplicated corners, got %d", len(quad.Positions))
	}
	if !quad.HasTexCoords() {
		t.Error("expected texture coordinates")
	}
	if quad.HasNormals() {
		t.Error("expected no normals without GenSmoothNormals")
	}

	mat := scene.Materials[quad.MaterialIndex]
	if mat.Name != "bark" {
		t.Errorf("expected material bark, got %s", mat.Name)
	}
	if got := mat.Texture(TextureDiffuse, 0); got != `C:\Users\artist\textures\Bark.jpg` {
		t.Errorf("diffuse path should be kept verbatim, got %q", got)
	}
	if mat.TextureCount(TextureBaseColor) != 0 {
		t.Error("OBJ materials have no base color slot")
	}
}

func TestReadFile_OBJWithoutMaterialLibrary(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tri.obj", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n")

	scene, err := ReadFile(path, DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(scene.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(scene.Meshes))
	}
	m := scene.Meshes[0]
	if !m.HasNormals() {
		t.Fatal("GenSmoothNormals should have produced normals")
	}
	for i, n := range m.Normals {
		if math.Abs(float64(n[2])-1) > 1e-5 {
			t.Errorf("normal %d: expected +Z, got %v", i, n)
		}
	}
	if m.HasTexCoords() {
		t.Error("no UVs expected")
	}
}

func TestReadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(dir, "model.fbx"), DefaultFlags)
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := ReadFile(filepath.Join(dir, "missing.obj"), DefaultFlags); err == nil {
			t.Error("expected error for missing file")
		}
		if _, err := ReadFile(filepath.Join(dir, "missing.glb"), DefaultFlags); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("corrupt gltf", func(t *testing.T) {
		path := writeFile(t, dir, "broken.gltf", "{ this is not json")
		if _, err := ReadFile(path, DefaultFlags); err == nil {
			t.Error("expected error for corrupt glTF")
		}
	})

	t.Run("obj without faces is incomplete", func(t *testing.T) {
		path := writeFile(t, dir, "empty.obj", "# nothing here\n")
		scene, err := ReadFile(path, DefaultFlags)
		if err != nil {
			t.Fatalf("ReadFile: %v", err)
		}
		if !scene.Incomplete() {
			t.Error("expected SceneIncomplete for a scene without meshes")
		}
	})
}

func TestReadFile_CorruptGLTFIndices(t *testing.T) {
	const asset = `"asset":{"version":"2.0"}`
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name:    "position accessor out of range",
			doc:     `{` + asset + `,"meshes":[{"primitives":[{"attributes":{"POSITION":5}}]}]}`,
			wantErr: true,
		},
		{
			name: "buffer view out of range",
			doc: `{` + asset + `,"accessors":[{"bufferView":4,"componentType":5126,"count":3,"type":"VEC3"}],` +
				`"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}]}`,
			wantErr: true,
		},
		{
			name: "byte offset past buffer view",
			doc: `{` + asset + `,"buffers":[{"byteLength":36,"uri":"data:application/octet-stream;base64,` +
				`AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAA"}],` +
				`"bufferViews":[{"buffer":0,"byteLength":36}],` +
				`"accessors":[{"bufferView":0,"byteOffset":400,"componentType":5126,"count":3,"type":"VEC3"}],` +
				`"meshes":[{"primitives":[{"attributes":{"POSITION":0}}]}]}`,
			wantErr: true,
		},
		{
			name: "indices accessor out of range",
			doc: `{` + asset + `,"buffers":[{"byteLength":36,"uri":"data:application/octet-stream;base64,` +
				`AAAAAAAAAAAAAAAAAACAPwAAAAAAAAAAAAAAAAAAgD8AAAAA"}],` +
				`"bufferViews":[{"buffer":0,"byteLength":36}],` +
				`"accessors":[{"bufferView":0,"componentType":5126,"count":3,"type":"VEC3"}],` +
				`"meshes":[{"primitives":[{"attributes":{"POSITION":0},"indices":9}]}]}`,
			wantErr: true,
		},
		{
			name:    "negative node mesh",
			doc:     `{` + asset + `,"nodes":[{"mesh":-1,"children":[-3]}]}`,
			wantErr: false,
		},
	}
	dir := t.TempDir()
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, fmt.Sprintf("corrupt%d.gltf", i), tt.doc)
			scene, err := ReadFile(path, DefaultFlags)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an import error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			if !scene.Incomplete() {
				t.Error("expected SceneIncomplete")
			}
		})
	}
}

func TestReadFile_GLBSkipsBrokenImage(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Images = append(doc.Images, &gltf.Image{MimeType: "image/png", BufferView: gltf.Index(42)})
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(0)})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "broken",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Primitives: []*gltf.Primitive{{
			Attributes: map[string]int{"POSITION": pos},
			Material:   gltf.Index(0),
		}},
	})
	doc.Nodes = append(doc.Nodes, &gltf.Node{Mesh: gltf.Index(0)})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	path := filepath.Join(t.TempDir(), "broken.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("failed to save glb: %v", err)
	}

	scene, err := ReadFile(path, DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(scene.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(scene.Meshes))
	}
	if n := scene.Materials[0].TextureCount(TextureBaseColor); n != 0 {
		t.Errorf("unreadable image should be dropped, got %d base color textures", n)
	}
	if len(scene.Textures) != 0 {
		t.Errorf("expected no embedded textures, got %d", len(scene.Textures))
	}
}

func TestReadFile_OBJMapPathWithSpaces(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "trees.obj", quadOBJ)
	writeFile(t, dir, "trees.mtl", `newmtl bark
map_Kd C:\Users\John Doe\tex\Bark Dark.jpg

newmtl leaf
map_Kd -s 1 1 1 -bm 0.5   leaves/Leaf  Big.png
`)

	scene, err := ReadFile(path, Triangulate)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := map[string]string{
		"bark": `C:\Users\John Doe\tex\Bark Dark.jpg`,
		"leaf": "leaves/Leaf  Big.png",
	}
	for _, mat := range scene.Materials {
		if got := mat.Texture(TextureDiffuse, 0); got != want[mat.Name] {
			t.Errorf("%s: diffuse path %q, want %q", mat.Name, got, want[mat.Name])
		}
	}
}

func TestMapPath(t *testing.T) {
	tests := []struct {
		args string
		want string
	}{
		{"wood.png", "wood.png"},
		{"  My Wood.png  ", "My Wood.png"},
		{"-clamp on wood.png", "wood.png"},
		{"-o 0.5 wood.png", "wood.png"},
		{"-o 0.5 0.5 0.5 -s 2 2 wood.png", "wood.png"},
		{"-mm 0 1 -blendu off\twood dark.png", "wood dark.png"},
		{"-unknown wood.png", "-unknown wood.png"},
	}
	for _, tt := range tests {
		if got := mapPath(tt.args); got != tt.want {
			t.Errorf("mapPath(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestReadFile_OBJSkipsWholeInvalidFace(t *testing.T) {
	obj := "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\nf 2 3 9\n"
	path := writeFile(t, t.TempDir(), "bad.obj", obj)

	scene, err := ReadFile(path, 0)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if scene.SkippedFaces != 1 {
		t.Errorf("expected 1 skipped face, got %d", scene.SkippedFaces)
	}
	if len(scene.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(scene.Meshes))
	}
	m := scene.Meshes[0]
	if len(m.Faces) != 1 || len(m.Positions) != 3 {
		t.Errorf("invalid face left %d faces and %d vertices", len(m.Faces), len(m.Positions))
	}
}

func writeTestGLB(t *testing.T, dir string) string {
	t.Helper()
	doc := gltf.NewDocument()

	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {1, 0.25}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 0, 2, 3})

	doc.Images = append(doc.Images, &gltf.Image{URI: "wood%20grain.png"})
	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(0)})
	doc.Materials = append(doc.Materials, &gltf.Material{
		Name: "wood",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	})
	doc.Meshes = append(doc.Meshes, &gltf.Mesh{
		Name: "plank",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{"POSITION": pos, "TEXCOORD_0": uv},
			Material:   gltf.Index(0),
		}},
	})
	doc.Nodes = append(doc.Nodes,
		&gltf.Node{Name: "parent", Mesh: gltf.Index(0), Children: []int{1}},
		&gltf.Node{Name: "child", Mesh: gltf.Index(0)},
	)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	path := filepath.Join(dir, "plank.glb")
	if err := gltf.SaveBinary(doc, path); err != nil {
		t.Fatalf("failed to save glb: %v", err)
	}
	return path
}

func TestReadFile_GLB(t *testing.T) {
	path := writeTestGLB(t, t.TempDir())

	scene, err := ReadFile(path, DefaultFlags)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(scene.Meshes) != 1 {
		t.Fatalf("expected 1 mesh, got %d", len(scene.Meshes))
	}

	if len(scene.Root.Children) != 1 {
		t.Fatalf("expected 1 top-level node, got %d", len(scene.Root.Children))
	}
	parent := scene.Root.Children[0]
	if parent.Name != "parent" || len(parent.Children) != 1 || parent.Children[0].Name != "child" {
		t.Errorf("hierarchy not preserved: %+v", parent)
	}

	m := scene.Meshes[0]
	if len(m.Faces) != 2 {
		t.Errorf("expected 2 triangles, got %d", len(m.Faces))
	}
	if !m.HasNormals() {
		t.Error("expected generated normals")
	}
	if len(m.Tangents) != len(m.Positions) {
		t.Error("expected tangents for every vertex")
	}
	// Converted to bottom-left at import and flipped back by FlipUVs
	if got := m.TexCoords[2][1]; math.Abs(float64(got)-0.25) > 1e-6 {
		t.Errorf("expected v=0.25 after round trip, got %v", got)
	}

	mat := scene.Materials[m.MaterialIndex]
	if mat.TextureCount(TextureDiffuse) != 0 {
		t.Error("glTF materials have no diffuse slot")
	}
	if got := mat.Texture(TextureBaseColor, 0); got != "wood grain.png" {
		t.Errorf("expected unescaped base color URI, got %q", got)
	}
}

func TestParseEmbeddedRef(t *testing.T) {
	tests := []struct {
		ref    string
		want   int
		wantOK bool
	}{
		{"*0", 0, true},
		{"*12", 12, true},
		{"*", 0, false},
		{"0", 0, false},
		{"*1a", 0, false},
		{"*-1", 0, false},
		{"*+1", 0, false},
		{"*18446744073709551615", 0, false},
		{"wood.png", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseEmbeddedRef(tt.ref)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseEmbeddedRef(%q) = %d, %v; want %d, %v", tt.ref, got, ok, tt.want, tt.wantOK)
		}
	}
	scene := &Scene{Textures: []EmbeddedTexture{{Data: []byte{1}}}}
	if _, ok := scene.EmbeddedTexture("*18446744073709551615"); ok {
		t.Error("overflowing reference should not resolve")
	}
	if data, ok := scene.EmbeddedTexture("*0"); !ok || len(data) != 1 {
		t.Error("expected embedded texture 0")
	}
	if EmbeddedRef(3) != "*3" {
		t.Errorf("EmbeddedRef(3) = %q", EmbeddedRef(3))
	}
}

func TestSupported(t *testing.T) {
	for _, p := range []string{"a.obj", "b.GLTF", "dir/c.glb"} {
		if !Supported(p) {
			t.Errorf("%s should be supported", p)
		}
	}
	if Supported("d.fbx") {
		t.Error("fbx should not be supported")
	}
}
