package gpu

import (
	"image"
	"sync"

	"github.com/Faultbox/glmodel/internal/engine/model"
)

// HeadlessStats counts what a Headless device has been asked to do.
type HeadlessStats struct {
	Textures      int
	EmptyTextures int
	TextureBytes  int
	Meshes        int
	Vertices      int
	Triangles     int
	Draws         int
	// Live is the number of objects created and not yet deleted.
	Live int
}

// Headless is a device that keeps no GPU state. It hands out unique ids and
// tracks object lifetimes so loads can be inspected without a window.
type Headless struct {
	mu    sync.Mutex
	next  uint32
	live  map[uint32]struct{}
	stats HeadlessStats
}

// NewHeadless returns an empty headless device.
func NewHeadless() *Headless {
	return &Headless{next: 1, live: make(map[uint32]struct{})}
}

func (h *Headless) alloc() uint32 {
	id := h.next
	h.next++
	h.live[id] = struct{}{}
	return id
}

func (h *Headless) free(id uint32) {
	delete(h.live, id)
}

// UploadTexture records a texture upload.
func (h *Headless) UploadTexture(img *image.NRGBA) uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Textures++
	h.stats.TextureBytes += len(img.Pix)
	return h.alloc()
}

// AllocTexture records an empty texture.
func (h *Headless) AllocTexture() uint32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.EmptyTextures++
	return h.alloc()
}

// DeleteTexture releases a texture id.
func (h *Headless) DeleteTexture(id uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.free(id)
}

// CreateMesh records a mesh upload.
func (h *Headless) CreateMesh(vertices []model.Vertex, indices []uint32) model.MeshBuffers {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(vertices) == 0 || len(indices) == 0 {
		return model.MeshBuffers{}
	}
	h.stats.Meshes++
	h.stats.Vertices += len(vertices)
	h.stats.Triangles += len(indices) / 3
	return model.MeshBuffers{
		VAO:        h.alloc(),
		VBO:        h.alloc(),
		EBO:        h.alloc(),
		IndexCount: int32(len(indices)),
	}
}

// DeleteMesh releases the ids of a mesh.
func (h *Headless) DeleteMesh(buf model.MeshBuffers) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.free(buf.VAO)
	h.free(buf.VBO)
	h.free(buf.EBO)
}

// DrawMesh counts a draw call.
func (h *Headless) DrawMesh(buf model.MeshBuffers, bindings []model.TextureBinding, program uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats.Draws++
}

// Stats returns the counters so far.
func (h *Headless) Stats() HeadlessStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := h.stats
	s.Live = len(h.live)
	return s
}
