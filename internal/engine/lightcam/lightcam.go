// Package lightcam computes light view and projection matrices for
// directional shadow maps.
//
// Every camera consumes the same inputs (the eye view and projection, the
// light direction and the scene bounds) and produces a light view and a light
// projection. Degenerate inputs never fail: a camera falls back to a simpler
// fit instead.
package lightcam

import (
	"fmt"
	"strings"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

// Params holds the per-split inputs of a light camera.
type Params struct {
	EyeView       math.Mat4
	EyeProjection math.Mat4
	// LightDirection is the direction the light travels, e.g. (0,-1,0) for a
	// sun straight overhead. It does not need to be normalized.
	LightDirection math.Vec3
	SceneBox       math.Box
}

// Result holds the matrices produced by a light camera.
type Result struct {
	LightView       math.Mat4
	LightProjection math.Mat4
}

// ViewProjection returns LightProjection * LightView.
func (r Result) ViewProjection() math.Mat4 {
	return r.LightProjection.Mul(r.LightView)
}

// LightCamera turns eye and scene parameters into light matrices.
type LightCamera interface {
	Update(p Params) Result
}

// Builder is the capability the cascade renderer needs from a light camera.
type Builder interface {
	Build(p Params) (lightView, lightProjection math.Mat4)
}

// CameraBuilder adapts a LightCamera to the Builder interface.
type CameraBuilder struct {
	Camera LightCamera
}

// NewBuilder wraps cam in a Builder.
func NewBuilder(cam LightCamera) *CameraBuilder {
	return &CameraBuilder{Camera: cam}
}

// Build runs the wrapped camera.
func (b *CameraBuilder) Build(p Params) (lightView, lightProjection math.Mat4) {
	r := b.Camera.Update(p)
	return r.LightView, r.LightProjection
}

// Kind selects a light camera implementation.
type Kind int

const (
	KindBasic     Kind = iota // Whole-scene orthographic fit
	KindFocused               // Fit to the visible receiver volume
	KindLiSPSM                // Focused plus perspective warp
	KindOldLiSPSM             // Perspective warp, older formulation
)

var kindNames = map[Kind]string{
	KindBasic:     "basic",
	KindFocused:   "focused",
	KindLiSPSM:    "lispsm",
	KindOldLiSPSM: "oldlispsm",
}

// String returns the configuration name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", int(k))
}

// ParseKind parses a configuration name (case-insensitive).
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown light camera %q (want basic, focused, lispsm or oldlispsm)", s)
}

// New returns a camera of the given kind with default settings.
// Unknown kinds yield a LiSPSM camera.
func New(kind Kind) LightCamera {
	switch kind {
	case KindBasic:
		return &BasicCamera{}
	case KindFocused:
		return &FocusedCamera{}
	case KindOldLiSPSM:
		return NewOldLiSPSMCamera()
	default:
		return NewLiSPSMCamera()
	}
}

// eye holds the quantities derived from the eye matrices.
type eye struct {
	view      math.Mat4
	position  math.Vec3
	direction math.Vec3
	near      float32
	frustum   math.Frustum
}

func newEye(view, projection math.Mat4) eye {
	inv := view.Inverse()
	e := eye{
		view:      view,
		position:  inv.Translation(),
		direction: inv.TransformDirection(math.Vec3{Z: -1}).Normalize(),
		frustum:   math.NewFrustum(projection.Mul(view)),
	}

	// Near distance is the view depth of the near face center.
	f := e.frustum.Corners
	nearCenter := f[math.NearBottomLeft].Add(f[math.NearTopRight]).Scale(0.5)
	e.near = -view.TransformPoint(nearCenter).Z
	if !(e.near > 0) {
		e.near = minNear
	}
	return e
}

// minNear replaces non-positive near distances from unusual projections.
const minNear = 1e-3

// lightDirection returns the normalized travel direction, defaulting to
// straight down for a zero vector.
func lightDirection(p Params) math.Vec3 {
	l := p.LightDirection.Normalize()
	if l == (math.Vec3{}) {
		return math.Vec3{Y: -1}
	}
	return l
}
