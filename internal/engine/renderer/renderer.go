// Package renderer draws the shadowed scene with OpenGL: the caster pass for
// each cascade, the lit pass that samples the cascades and debug lines.
package renderer

import (
	_ "embed"
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csm/internal/engine/shader"
	"github.com/Faultbox/midgard-csm/internal/engine/shadow"
	"github.com/Faultbox/midgard-csm/internal/scenefile"
	"github.com/Faultbox/midgard-csm/pkg/math"
)

var (
	//go:embed shaders/scene.vert
	sceneVertexShader string
	//go:embed shaders/scene.frag
	sceneFragmentShader string
	//go:embed shaders/caster.vert
	casterVertexShader string
	//go:embed shaders/caster.frag
	casterFragmentShader string
	//go:embed shaders/lines.vert
	linesVertexShader string
	//go:embed shaders/lines.frag
	linesFragmentShader string
)

// Texture units of the cascade samplers. Depth and moment samplers use
// separate units since one unit cannot serve two sampler types.
const (
	depthUnitBase  = 1
	momentUnitBase = depthUnitBase + shadow.MaxSplitCount
)

// Config holds renderer configuration.
type Config struct {
	Width  int32
	Height int32
}

// Frame is what the lit pass needs from the cascade shadow map.
type Frame struct {
	View          math.Mat4
	Projection    math.Mat4
	LightDir      math.Vec3
	Form          shadow.Form
	DepthBias     float32
	SplitCount    int
	SplitFar      [shadow.MaxSplitCount]float32
	LightViewProj [shadow.MaxSplitCount]math.Mat4
	Textures      [shadow.MaxSplitCount]uint32
	ShowSplits    bool
	SplitTints    [shadow.MaxSplitCount][3]float32
}

type mesh struct {
	vao, vbo, ebo uint32
	count         int32
}

type sceneProgram struct {
	id            uint32
	view          int32
	projection    int32
	lightDir      int32
	splitCount    int32
	splitFar      int32
	lightViewProj int32
	depthMaps     int32
	momentMaps    int32
	variance      int32
	depthBias     int32
	showSplits    int32
	splitTint     int32
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	config Config
	log    *zap.Logger

	scene sceneProgram

	casterProgram       uint32
	casterLightViewProj int32
	casterVariance      int32

	linesProgram  uint32
	linesViewProj int32
	linesColor    int32
	linesVAO      uint32
	linesVBO      uint32

	meshes []mesh
}

// New initializes OpenGL and compiles the shaders.
// It must be called after the OpenGL context is created.
func New(cfg Config, log *zap.Logger) (*Renderer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Renderer{
		config: cfg,
		log:    log,
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)
	gl.ClearColor(0.55, 0.65, 0.8, 1.0)

	if err := r.createPrograms(); err != nil {
		r.Close()
		return nil, err
	}

	gl.GenVertexArrays(1, &r.linesVAO)
	gl.GenBuffers(1, &r.linesVBO)
	gl.BindVertexArray(r.linesVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.linesVBO)
	gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 3*4, nil)
	gl.EnableVertexAttribArray(0)
	gl.BindVertexArray(0)

	r.Resize(cfg.Width, cfg.Height)
	return r, nil
}

func (r *Renderer) createPrograms() error {
	var err error

	if r.scene.id, err = shader.CompileProgram(sceneVertexShader, sceneFragmentShader); err != nil {
		return fmt.Errorf("scene shader: %w", err)
	}
	p := &r.scene
	p.view = shader.GetUniform(p.id, "uView")
	p.projection = shader.GetUniform(p.id, "uProjection")
	p.lightDir = shader.GetUniform(p.id, "uLightDir")
	p.splitCount = shader.GetUniform(p.id, "uSplitCount")
	p.splitFar = shader.GetUniform(p.id, "uSplitFar")
	p.lightViewProj = shader.GetUniform(p.id, "uLightViewProj")
	p.depthMaps = shader.GetUniform(p.id, "uDepthMaps")
	p.momentMaps = shader.GetUniform(p.id, "uMomentMaps")
	p.variance = shader.GetUniform(p.id, "uVariance")
	p.depthBias = shader.GetUniform(p.id, "uDepthBias")
	p.showSplits = shader.GetUniform(p.id, "uShowSplits")
	p.splitTint = shader.GetUniform(p.id, "uSplitTint")

	gl.UseProgram(p.id)
	var depthUnits, momentUnits [shadow.MaxSplitCount]int32
	for i := range depthUnits {
		depthUnits[i] = int32(depthUnitBase + i)
		momentUnits[i] = int32(momentUnitBase + i)
	}
	gl.Uniform1iv(p.depthMaps, shadow.MaxSplitCount, &depthUnits[0])
	gl.Uniform1iv(p.momentMaps, shadow.MaxSplitCount, &momentUnits[0])

	if r.casterProgram, err = shader.CompileProgram(casterVertexShader, casterFragmentShader); err != nil {
		return fmt.Errorf("caster shader: %w", err)
	}
	if r.casterLightViewProj, err = shader.RequireUniform(r.casterProgram, "uLightViewProj"); err != nil {
		return fmt.Errorf("caster shader: %w", err)
	}
	r.casterVariance = shader.GetUniform(r.casterProgram, "uVariance")

	if r.linesProgram, err = shader.CompileProgram(linesVertexShader, linesFragmentShader); err != nil {
		return fmt.Errorf("lines shader: %w", err)
	}
	if r.linesViewProj, err = shader.RequireUniform(r.linesProgram, "uViewProj"); err != nil {
		return fmt.Errorf("lines shader: %w", err)
	}
	if r.linesColor, err = shader.RequireUniform(r.linesProgram, "uColor"); err != nil {
		return fmt.Errorf("lines shader: %w", err)
	}

	gl.UseProgram(0)
	r.log.Debug("shader programs created",
		zap.Uint32("scene", r.scene.id),
		zap.Uint32("caster", r.casterProgram),
		zap.Uint32("lines", r.linesProgram),
	)
	return nil
}

// Upload replaces the GPU meshes with the scene's.
func (r *Renderer) Upload(s *scenefile.Scene) {
	r.releaseMeshes()

	for _, m := range s.Meshes {
		if len(m.Indices) == 0 {
			continue
		}
		vertices := make([]float32, 0, len(m.Positions)*6)
		for i, p := range m.Positions {
			n := math.Vec3{Y: 1}
			if i < len(m.Normals) {
				n = m.Normals[i]
			}
			vertices = append(vertices, p.X, p.Y, p.Z, n.X, n.Y, n.Z)
		}

		var g mesh
		gl.GenVertexArrays(1, &g.vao)
		gl.BindVertexArray(g.vao)

		gl.GenBuffers(1, &g.vbo)
		gl.BindBuffer(gl.ARRAY_BUFFER, g.vbo)
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STATIC_DRAW)

		gl.GenBuffers(1, &g.ebo)
		gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, g.ebo)
		gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(m.Indices)*4, unsafe.Pointer(&m.Indices[0]), gl.STATIC_DRAW)

		gl.VertexAttribPointer(0, 3, gl.FLOAT, false, 6*4, nil)
		gl.EnableVertexAttribArray(0)
		gl.VertexAttribPointer(1, 3, gl.FLOAT, false, 6*4, unsafe.Pointer(uintptr(3*4)))
		gl.EnableVertexAttribArray(1)

		gl.BindVertexArray(0)
		g.count = int32(len(m.Indices))
		r.meshes = append(r.meshes, g)
	}

	r.log.Info("scene uploaded",
		zap.String("scene", s.Name),
		zap.Int("meshes", len(r.meshes)),
		zap.Int("triangles", s.Triangles()),
	)
}

// DrawCasters renders depth (or depth moments) of every mesh into the bound
// shadow target. It has the shape of shadow.DrawCastersFunc.
func (r *Renderer) DrawCasters(_ shadow.SplitCamera, effect *shadow.Effect) {
	gl.UseProgram(r.casterProgram)
	shader.SetMat4(r.casterLightViewProj, effect.LightViewProjection)
	gl.Uniform1i(r.casterVariance, boolInt(effect.Form == shadow.FormVariance))

	// Thin geometry such as the ground plane has no back faces to cull.
	gl.Disable(gl.CULL_FACE)
	r.drawMeshes()
	gl.UseProgram(0)
}

// DrawScene renders the lit scene sampling the cascades.
func (r *Renderer) DrawScene(f *Frame) {
	p := &r.scene
	gl.UseProgram(p.id)
	gl.Enable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)

	shader.SetMat4(p.view, f.View)
	shader.SetMat4(p.projection, f.Projection)
	gl.Uniform3f(p.lightDir, f.LightDir.X, f.LightDir.Y, f.LightDir.Z)
	gl.Uniform1i(p.splitCount, int32(f.SplitCount))
	gl.Uniform1fv(p.splitFar, shadow.MaxSplitCount, &f.SplitFar[0])
	shader.SetMat4Array(p.lightViewProj, f.LightViewProj[:])
	gl.Uniform1i(p.variance, boolInt(f.Form == shadow.FormVariance))
	gl.Uniform1f(p.depthBias, f.DepthBias)
	gl.Uniform1i(p.showSplits, boolInt(f.ShowSplits))
	gl.Uniform3fv(p.splitTint, shadow.MaxSplitCount, &f.SplitTints[0][0])

	base := uint32(depthUnitBase)
	if f.Form == shadow.FormVariance {
		base = momentUnitBase
	}
	for i, tex := range f.Textures {
		gl.ActiveTexture(gl.TEXTURE0 + base + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, tex)
	}
	gl.ActiveTexture(gl.TEXTURE0)

	r.drawMeshes()
	gl.UseProgram(0)
}

// DrawLines draws a line list of [x, y, z] vertices in one color.
func (r *Renderer) DrawLines(vertices []float32, color [3]float32, viewProj math.Mat4) {
	if len(vertices) < 6 {
		return
	}
	gl.UseProgram(r.linesProgram)
	shader.SetMat4(r.linesViewProj, viewProj)
	gl.Uniform3f(r.linesColor, color[0], color[1], color[2])

	gl.BindVertexArray(r.linesVAO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.linesVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, unsafe.Pointer(&vertices[0]), gl.STREAM_DRAW)
	gl.DrawArrays(gl.LINES, 0, int32(len(vertices)/3))
	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

func (r *Renderer) drawMeshes() {
	for _, m := range r.meshes {
		gl.BindVertexArray(m.vao)
		gl.DrawElements(gl.TRIANGLES, m.count, gl.UNSIGNED_INT, nil)
	}
	gl.BindVertexArray(0)
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int32) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, width, height)
	r.log.Debug("renderer resized",
		zap.Int32("width", width),
		zap.Int32("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Viewport(0, 0, r.config.Width, r.config.Height)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

func (r *Renderer) releaseMeshes() {
	for _, m := range r.meshes {
		gl.DeleteVertexArrays(1, &m.vao)
		gl.DeleteBuffers(1, &m.vbo)
		gl.DeleteBuffers(1, &m.ebo)
	}
	r.meshes = r.meshes[:0]
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	r.releaseMeshes()
	if r.linesVAO != 0 {
		gl.DeleteVertexArrays(1, &r.linesVAO)
	}
	if r.linesVBO != 0 {
		gl.DeleteBuffers(1, &r.linesVBO)
	}
	for _, p := range []uint32{r.scene.id, r.casterProgram, r.linesProgram} {
		if p != 0 {
			gl.DeleteProgram(p)
		}
	}
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
