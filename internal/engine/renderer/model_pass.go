package renderer

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/glmodel/internal/engine/model"
	"github.com/Faultbox/glmodel/internal/engine/shader"
)

const modelVertexShader = `
#version 410 core

layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoords;

uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;

out vec3 Normal;
out vec3 FragPos;
out vec2 TexCoords;

void main() {
	FragPos = vec3(model * vec4(aPos, 1.0));
	Normal = mat3(transpose(inverse(model))) * aNormal;
	TexCoords = aTexCoords;
	gl_Position = projection * view * vec4(FragPos, 1.0);
}
`

// Unlit: the diffuse texture is shown as is. Nearly transparent texels are
// discarded so foliage cut-outs work without sorting.
const modelFragmentShader = `
#version 410 core

in vec3 Normal;
in vec3 FragPos;
in vec2 TexCoords;

uniform sampler2D texture_diffuse1;

out vec4 FragColor;

void main() {
	vec4 texColor = texture(texture_diffuse1, TexCoords);
	if (texColor.a < 0.1)
		discard;
	FragColor = texColor;
}
`

// ModelPass draws textured models.
type ModelPass struct {
	program *shader.Program
}

// NewModelPass compiles the textured-model program.
func NewModelPass() (*ModelPass, error) {
	program, err := shader.New(modelVertexShader, modelFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("model shader: %w", err)
	}
	return &ModelPass{program: program}, nil
}

// Draw renders m with the given transforms.
func (p *ModelPass) Draw(m *model.Model, world, view, projection mgl32.Mat4) {
	p.program.Use()
	p.program.SetMat4("projection", projection)
	p.program.SetMat4("view", view)
	p.program.SetMat4("model", world)
	m.Draw(p.program.ID)
}

// Delete frees the program.
func (p *ModelPass) Delete() {
	p.program.Delete()
}
