// Package shadowmap provides OpenGL render targets and blur passes for
// cascaded shadow maps.
package shadowmap

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/Faultbox/midgard-csm/internal/engine/shadow"
)

// Map is an OpenGL shadow map render target.
//
// shadow.FormBasic maps hold a single depth texture set up for sampler2DShadow
// comparisons. shadow.FormVariance maps render depth moments into an RG32F color
// texture backed by a depth renderbuffer.
type Map struct {
	FBO          uint32      // Framebuffer object
	Tex          uint32      // Sampled texture (depth or moments)
	DepthRBO     uint32      // Depth renderbuffer (variance only)
	Resolution   int32       // Shadow map resolution (width = height)
	form         shadow.Form // Contents of Tex
	prevViewport [4]int32    // Saved viewport for restore
}

// NewMap creates a shadow map of the given form and resolution.
// Resolution should be a power of 2 (e.g., 1024, 2048, 4096).
func NewMap(resolution int32, form shadow.Form) (*Map, error) {
	if resolution <= 0 {
		resolution = shadow.DefaultMapSize
	}

	sm := &Map{
		Resolution: resolution,
		form:       form,
	}

	gl.GenFramebuffers(1, &sm.FBO)
	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.FBO)
	gl.GenTextures(1, &sm.Tex)
	gl.BindTexture(gl.TEXTURE_2D, sm.Tex)

	switch form {
	case shadow.FormVariance:
		sm.createMoments()
	default:
		sm.createDepth()
	}

	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		sm.Destroy()
		return nil, fmt.Errorf("shadow map framebuffer incomplete: 0x%x", status)
	}

	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	return sm, nil
}

func (sm *Map) createDepth() {
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT24, sm.Resolution, sm.Resolution, 0,
		gl.DEPTH_COMPONENT, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	// Clamp to border with white (1.0) to avoid shadow outside frustum
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_BORDER)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_BORDER)
	borderColor := []float32{1.0, 1.0, 1.0, 1.0}
	gl.TexParameterfv(gl.TEXTURE_2D, gl.TEXTURE_BORDER_COLOR, &borderColor[0])

	// Enable shadow comparison mode for sampler2DShadow
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)

	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, sm.Tex, 0)

	// No color buffer for shadow pass
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)
}

func (sm *Map) createMoments() {
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RG32F, sm.Resolution, sm.Resolution, 0,
		gl.RG, gl.FLOAT, nil)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, sm.Tex, 0)

	gl.GenRenderbuffers(1, &sm.DepthRBO)
	gl.BindRenderbuffer(gl.RENDERBUFFER, sm.DepthRBO)
	gl.RenderbufferStorage(gl.RENDERBUFFER, gl.DEPTH_COMPONENT24, sm.Resolution, sm.Resolution)
	gl.FramebufferRenderbuffer(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, sm.DepthRBO)
}

// Bind binds the shadow map framebuffer for rendering the caster pass.
// Sets the viewport to match the shadow map resolution.
func (sm *Map) Bind() {
	// Save current viewport for restore
	gl.GetIntegerv(gl.VIEWPORT, &sm.prevViewport[0])

	gl.BindFramebuffer(gl.FRAMEBUFFER, sm.FBO)
	gl.Viewport(0, 0, sm.Resolution, sm.Resolution)

	if sm.form == shadow.FormVariance {
		// Farthest depth and its square
		gl.ClearColor(1, 1, 0, 0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	} else {
		gl.Clear(gl.DEPTH_BUFFER_BIT)
	}

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	// Enable front-face culling to reduce shadow acne
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.FRONT)
}

// Unbind unbinds the shadow map framebuffer.
// Restores viewport and back-face culling.
func (sm *Map) Unbind() {
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	gl.Viewport(sm.prevViewport[0], sm.prevViewport[1], sm.prevViewport[2], sm.prevViewport[3])
	gl.CullFace(gl.BACK)
}

// Texture returns the texture to sample in the lighting pass.
func (sm *Map) Texture() uint32 {
	return sm.Tex
}

// Size returns the resolution in texels.
func (sm *Map) Size() int32 {
	return sm.Resolution
}

// Form returns what the texture holds.
func (sm *Map) Form() shadow.Form {
	return sm.form
}

// BindTexture binds the shadow map texture to the specified texture unit.
func (sm *Map) BindTexture(textureUnit uint32) {
	gl.ActiveTexture(textureUnit)
	gl.BindTexture(gl.TEXTURE_2D, sm.Tex)
}

// ReadDepth reads the stored depth of every texel back from the GPU, row by
// row from the bottom. Variance maps return their first moment.
func (sm *Map) ReadDepth() []float32 {
	n := int(sm.Resolution) * int(sm.Resolution)
	gl.BindTexture(gl.TEXTURE_2D, sm.Tex)
	defer gl.BindTexture(gl.TEXTURE_2D, 0)

	if sm.form == shadow.FormVariance {
		moments := make([]float32, 2*n)
		gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RG, gl.FLOAT, gl.Ptr(moments))
		depths := make([]float32, n)
		for i := range depths {
			depths[i] = moments[2*i]
		}
		return depths
	}

	depths := make([]float32, n)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.DEPTH_COMPONENT, gl.FLOAT, gl.Ptr(depths))
	return depths
}

// Destroy releases all GPU resources associated with this shadow map.
func (sm *Map) Destroy() {
	if sm.FBO != 0 {
		gl.DeleteFramebuffers(1, &sm.FBO)
		sm.FBO = 0
	}
	if sm.Tex != 0 {
		gl.DeleteTextures(1, &sm.Tex)
		sm.Tex = 0
	}
	if sm.DepthRBO != 0 {
		gl.DeleteRenderbuffers(1, &sm.DepthRBO)
		sm.DepthRBO = 0
	}
}

// IsValid returns true if the shadow map was created successfully.
func (sm *Map) IsValid() bool {
	return sm != nil && sm.FBO != 0 && sm.Tex != 0
}

// NewTarget is a shadow.TargetFactory for OpenGL shadow maps.
// It needs a current GL context.
func NewTarget(size int32, form shadow.Form) (shadow.Target, error) {
	sm, err := NewMap(size, form)
	if err != nil {
		return nil, err
	}
	return sm, nil
}
