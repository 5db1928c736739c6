package model

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/glmodel/internal/engine/texture"
	"github.com/Faultbox/glmodel/pkg/importer"
)

// Status summarizes how a load went.
type Status int

const (
	// StatusComplete means every mesh and texture loaded.
	StatusComplete Status = iota
	// StatusPartial means the model is usable but some textures are missing
	// or some faces were dropped.
	StatusPartial
	// StatusFailed means the scene could not be imported; the model is empty.
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Report is the structured outcome of Load.
type Report struct {
	Status Status
	// ImportErr is set when Status is StatusFailed.
	ImportErr error
	// TextureErr combines every texture that could not be loaded.
	TextureErr   error
	Meshes       int
	SkippedFaces int
	Textures     texture.Stats
}

// Err returns the import and texture errors combined.
func (r Report) Err() error {
	return multierr.Combine(r.ImportErr, r.TextureErr)
}

// Config configures Load.
type Config struct {
	Device Device
	// Flags defaults to importer.DefaultFlags when zero.
	Flags importer.Flags
	// TextureSubdir defaults to texture.DefaultSubdir.
	TextureSubdir string
	// Decode overrides texture file decoding.
	Decode texture.DecodeFunc
	Logger *zap.Logger
}

// Model is a loaded scene: a flat list of meshes plus the textures they use.
// Meshes are created once by Load and not modified afterwards.
type Model struct {
	Meshes []*Mesh
	// Dir is the directory textures are resolved against.
	Dir string

	device   Device
	textures *texture.Loader
	bounds   Bounds
	report   Report
	released bool
}

// Load imports the file at path and builds its meshes.
// Load never fails: when the file cannot be imported the returned model has
// no meshes and Report describes why.
func Load(path string, cfg Config) *Model {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	flags := cfg.Flags
	if flags == 0 {
		flags = importer.DefaultFlags
	}

	m := &Model{
		Dir:    Dir(path),
		device: cfg.Device,
		bounds: emptyBounds(),
	}

	scene, err := importer.ReadFile(path, flags)
	if err == nil {
		switch {
		case scene.Incomplete():
			err = fmt.Errorf("importing %s: %w", path, importer.ErrNoMeshes)
		case scene.Root == nil:
			err = fmt.Errorf("importing %s: scene has no root node", path)
		}
	}
	if err != nil {
		log.Error("model import failed", zap.String("path", path), zap.Error(err))
		m.report = Report{Status: StatusFailed, ImportErr: err}
		return m
	}

	m.textures = texture.NewLoader(texture.LoaderConfig{
		Dir:      m.Dir,
		Subdir:   cfg.TextureSubdir,
		Uploader: cfg.Device,
		Decode:   cfg.Decode,
		Embedded: scene.EmbeddedTexture,
		Logger:   log,
	})

	skipped := scene.SkippedFaces
	walk(scene.Root, func(n *importer.Node) {
		for _, idx := range n.Meshes {
			if idx < 0 || idx >= len(scene.Meshes) {
				log.Warn("node references missing mesh", zap.String("node", n.Name), zap.Int("mesh", idx))
				continue
			}
			src := scene.Meshes[idx]
			var mat *importer.Material
			if src.MaterialIndex >= 0 && src.MaterialIndex < len(scene.Materials) {
				mat = scene.Materials[src.MaterialIndex]
			}
			res := BuildMesh(src, mat, m.textures, log)
			skipped += res.SkippedFaces
			m.addMesh(res.Mesh)
		}
	})

	m.report = Report{
		Status:       StatusComplete,
		TextureErr:   m.textures.Err(),
		Meshes:       len(m.Meshes),
		SkippedFaces: skipped,
		Textures:     m.textures.Stats(),
	}
	if m.report.TextureErr != nil || skipped > 0 {
		m.report.Status = StatusPartial
	}

	log.Info("model loaded",
		zap.String("path", path),
		zap.Int("meshes", len(m.Meshes)),
		zap.Int("textures", m.textures.Len()),
		zap.Stringer("status", m.report.Status),
	)
	return m
}

func (m *Model) addMesh(mesh *Mesh) {
	for _, v := range mesh.Vertices {
		m.bounds.extend(v.Position)
	}
	if m.device != nil && len(mesh.Indices) > 0 {
		mesh.Buffers = m.device.CreateMesh(mesh.Vertices, mesh.Indices)
	}
	m.Meshes = append(m.Meshes, mesh)
}

// walk visits nodes depth-first, pre-order: a node before its children,
// children in order. It uses an explicit stack instead of recursion.
func walk(root *importer.Node, visit func(*importer.Node)) {
	if root == nil {
		return
	}
	stack := []*importer.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(n)
		for i := len(n.Children) - 1; i >= 0; i-- {
			if n.Children[i] != nil {
				stack = append(stack, n.Children[i])
			}
		}
	}
}

// Dir returns the directory part of a model path: everything before the last
// '/' or '\', or "" when there is no separator.
func Dir(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[:i]
	}
	return ""
}

// Draw issues one draw call per mesh with the given shader program.
func (m *Model) Draw(program uint32) {
	if m.device == nil || m.released {
		return
	}
	for _, mesh := range m.Meshes {
		if mesh.Buffers.IndexCount == 0 {
			continue
		}
		m.device.DrawMesh(mesh.Buffers, mesh.bindings, program)
	}
}

// Release frees every GPU object owned by the model. Safe to call twice.
func (m *Model) Release() {
	if m.released {
		return
	}
	m.released = true
	if m.device != nil {
		for _, mesh := range m.Meshes {
			if mesh.Buffers.VAO != 0 || mesh.Buffers.VBO != 0 || mesh.Buffers.EBO != 0 {
				m.device.DeleteMesh(mesh.Buffers)
				mesh.Buffers = MeshBuffers{}
			}
		}
	}
	if m.textures != nil {
		m.textures.Release()
	}
}

// Report returns the outcome of Load.
func (m *Model) Report() Report {
	return m.report
}

// Bounds returns the bounding box of all vertices. For an empty model Min is
// greater than Max.
func (m *Model) Bounds() Bounds {
	return m.bounds
}

// Empty reports whether the model has no meshes.
func (m *Model) Empty() bool {
	return len(m.Meshes) == 0
}

// TextureCount returns the number of distinct texture references loaded.
func (m *Model) TextureCount() int {
	if m.textures == nil {
		return 0
	}
	return m.textures.Len()
}
