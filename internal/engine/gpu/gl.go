// Package gpu implements model.Device on OpenGL and without a GPU.
package gpu

import (
	"image"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/glmodel/internal/engine/model"
)

// GL uploads textures and meshes to the current OpenGL context.
// All methods must be called on the thread owning the context.
type GL struct {
	// Anisotropy is the max anisotropic filtering level; 0 disables it.
	Anisotropy float32

	uniforms map[uniformKey]int32
}

type uniformKey struct {
	program uint32
	name    string
}

// NewGL returns a device for the current context.
func NewGL() *GL {
	return &GL{uniforms: make(map[uniformKey]int32)}
}

// UploadTexture creates a mipmapped, repeating texture from a 4-channel image.
func (d *GL) UploadTexture(img *image.NRGBA) uint32 {
	w, h := int32(img.Bounds().Dx()), int32(img.Bounds().Dy())
	if w == 0 || h == 0 {
		return d.AllocTexture()
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, w, h, 0, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&img.Pix[0]))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	if d.Anisotropy > 0 {
		gl.TexParameterf(gl.TEXTURE_2D, gl.TEXTURE_MAX_ANISOTROPY, d.Anisotropy)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id
}

// AllocTexture creates a texture object with no image attached.
func (d *GL) AllocTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

// DeleteTexture frees a texture object.
func (d *GL) DeleteTexture(id uint32) {
	if id != 0 {
		gl.DeleteTextures(1, &id)
	}
}

// CreateMesh uploads interleaved vertices and triangle indices.
// Attribute 0 is the position, 1 the normal and 2 the texture coordinate.
func (d *GL) CreateMesh(vertices []model.Vertex, indices []uint32) model.MeshBuffers {
	var buf model.MeshBuffers
	if len(vertices) == 0 || len(indices) == 0 {
		return buf
	}

	gl.GenVertexArrays(1, &buf.VAO)
	gl.BindVertexArray(buf.VAO)

	gl.GenBuffers(1, &buf.VBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, buf.VBO)
	stride := int32(unsafe.Sizeof(model.Vertex{}))
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*int(stride), unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

	gl.GenBuffers(1, &buf.EBO)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, buf.EBO)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, unsafe.Pointer(&indices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, unsafe.Offsetof(model.Vertex{}.Position))
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, unsafe.Offsetof(model.Vertex{}.Normal))
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, unsafe.Offsetof(model.Vertex{}.TexCoord))
	gl.EnableVertexAttribArray(2)

	gl.BindVertexArray(0)
	buf.IndexCount = int32(len(indices))
	return buf
}

// DeleteMesh frees the buffers of an uploaded mesh.
func (d *GL) DeleteMesh(buf model.MeshBuffers) {
	if buf.EBO != 0 {
		gl.DeleteBuffers(1, &buf.EBO)
	}
	if buf.VBO != 0 {
		gl.DeleteBuffers(1, &buf.VBO)
	}
	if buf.VAO != 0 {
		gl.DeleteVertexArrays(1, &buf.VAO)
	}
}

// DrawMesh binds each texture to its unit, points the sampler uniform at
// that unit and draws the mesh's triangles. The program must be in use.
func (d *GL) DrawMesh(buf model.MeshBuffers, bindings []model.TextureBinding, program uint32) {
	for _, b := range bindings {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(b.Unit))
		if loc := d.uniform(program, b.Uniform); loc >= 0 {
			gl.Uniform1i(loc, b.Unit)
		}
		gl.BindTexture(gl.TEXTURE_2D, b.ID)
	}

	gl.BindVertexArray(buf.VAO)
	gl.DrawElements(gl.TRIANGLES, buf.IndexCount, gl.UNSIGNED_INT, nil)
	gl.BindVertexArray(0)

	gl.ActiveTexture(gl.TEXTURE0)
}

func (d *GL) uniform(program uint32, name string) int32 {
	key := uniformKey{program, name}
	if loc, ok := d.uniforms[key]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(program, gl.Str(name+"\x00"))
	d.uniforms[key] = loc
	return loc
}
