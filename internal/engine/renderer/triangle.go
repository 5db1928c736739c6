package renderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glmodel/internal/engine/shader"
)

const triangleVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aColor;

uniform mat4 uTransform;

out vec3 vertexColor;

void main() {
	gl_Position = uTransform * vec4(aPos, 1.0);
	vertexColor = aColor;
}
`

const triangleFragmentShader = `
#version 410 core

in vec3 vertexColor;
out vec4 FragColor;

void main() {
	FragColor = vec4(vertexColor, 1.0);
}
`

// triangleVertices are position (x, y, z) followed by colour (r, g, b).
var triangleVertices = []float32{
	0.0, 0.5, 0.0, 1.0, 0.0, 0.0,
	-0.5, -0.5, 0.0, 0.0, 1.0, 0.0,
	0.5, -0.5, 0.0, 0.0, 0.0, 1.0,
}

// Triangle is a per-vertex coloured triangle that can be rotated about Z.
type Triangle struct {
	program *shader.Program
	vao     uint32
	vbo     uint32
}

// NewTriangle compiles the triangle program and uploads its vertices.
func NewTriangle() (*Triangle, error) {
	program, err := shader.New(triangleVertexShader, triangleFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("triangle shader: %w", err)
	}
	t := &Triangle{program: program}

	gl.GenVertexArrays(1, &t.vao)
	gl.BindVertexArray(t.vao)

	gl.GenBuffers(1, &t.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, t.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(triangleVertices)*4, unsafe.Pointer(&triangleVertices[0]), gl.STATIC_DRAW)

	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 6*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, 6*4, 3*4)
	gl.EnableVertexAttribArray(1)

	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	gl.BindVertexArray(0)
	return t, nil
}

// Rotation returns the transform for a triangle turned by angle radians about Z.
func Rotation(angle float32) mgl32.Mat4 {
	return mgl32.HomogRotate3DZ(angle)
}

// Draw draws the triangle rotated by angle radians.
func (t *Triangle) Draw(angle float32) {
	t.program.Use()
	t.program.SetMat4("uTransform", Rotation(angle))
	gl.BindVertexArray(t.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

// Delete frees the triangle's GL objects.
func (t *Triangle) Delete() {
	if t.vao != 0 {
		gl.DeleteVertexArrays(1, &t.vao)
	}
	if t.vbo != 0 {
		gl.DeleteBuffers(1, &t.vbo)
	}
	t.program.Delete()
}
