package shadowmap

import (
	_ "embed"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-csm/internal/engine/framebuffer"
	"github.com/Faultbox/midgard-csm/internal/engine/shader"
	"github.com/Faultbox/midgard-csm/internal/engine/shadow"
)

//go:embed shaders/fullscreen.vert
var fullscreenVertexShader string

//go:embed shaders/blur.frag
var blurFragmentShader string

// GaussianBlur is a separable 9-tap blur for variance shadow maps. The
// horizontal pass renders into a scratch framebuffer, the vertical pass
// back into the target.
type GaussianBlur struct {
	program   uint32
	vao       uint32
	locSource int32
	locStep   int32
	scratch   *framebuffer.Framebuffer
}

// NewGaussianBlur compiles the blur program. It needs a current GL context.
func NewGaussianBlur() (*GaussianBlur, error) {
	program, err := shader.CompileProgram(fullscreenVertexShader, blurFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("compiling blur shader: %w", err)
	}

	b := &GaussianBlur{
		program:   program,
		locSource: shader.GetUniform(program, "uSource"),
		locStep:   shader.GetUniform(program, "uStep"),
	}
	// Core profile needs a bound VAO even without vertex attributes.
	gl.GenVertexArrays(1, &b.vao)
	return b, nil
}

// Blur blurs the moments texture of t in place.
func (b *GaussianBlur) Blur(t shadow.Target) error {
	size := t.Size()
	if b.scratch == nil {
		fb, err := framebuffer.New(size, size, framebuffer.FormatRG32F)
		if err != nil {
			return err
		}
		b.scratch = fb
	} else {
		b.scratch.Resize(size, size)
	}

	depthTest := gl.IsEnabled(gl.DEPTH_TEST)
	cullFace := gl.IsEnabled(gl.CULL_FACE)
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)

	gl.UseProgram(b.program)
	gl.BindVertexArray(b.vao)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.Uniform1i(b.locSource, 0)
	texel := 1 / float32(size)

	// Horizontal: target -> scratch
	restore := b.scratch.Bind()
	gl.BindTexture(gl.TEXTURE_2D, t.Texture())
	gl.Uniform2f(b.locStep, texel, 0)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	restore()

	// Vertical: scratch -> target
	t.Bind()
	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.BindTexture(gl.TEXTURE_2D, b.scratch.Texture())
	gl.Uniform2f(b.locStep, 0, texel)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	t.Unbind()

	gl.BindTexture(gl.TEXTURE_2D, 0)
	gl.BindVertexArray(0)
	gl.UseProgram(0)
	if depthTest {
		gl.Enable(gl.DEPTH_TEST)
	}
	if cullFace {
		gl.Enable(gl.CULL_FACE)
	}
	return nil
}

// Destroy releases the GL resources.
func (b *GaussianBlur) Destroy() {
	if b.scratch != nil {
		b.scratch.Destroy()
		b.scratch = nil
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
	if b.program != 0 {
		gl.DeleteProgram(b.program)
		b.program = 0
	}
}
