package lightcam

import (
	gomath "math"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

// DegeneracyPolicy decides what a warping camera does when the eye looks
// nearly along the light direction.
type DegeneracyPolicy int

const (
	// DegeneracyFallback returns the unwarped result when |E·L| is within
	// 0.01 of 1.
	DegeneracyFallback DegeneracyPolicy = iota
	// DegeneracyClampN keeps going and disables the warp (n = 0) when the
	// angle between eye and light is too small to compute n.
	DegeneracyClampN
)

const (
	// parallelThreshold is how close |E·L| may get to 1 before the fallback.
	parallelThreshold = 0.01
	// minSinGamma is the smallest sin(γ) for which n is computed.
	minSinGamma = 1e-3
	// minWarpW is the smallest homogeneous w accepted after the warp.
	minWarpW = 1e-6
)

// Warp configures the perspective warp of the LiSPSM cameras.
type Warp struct {
	// UseNewNFormula picks the n formula based on the eye near plane and
	// receiver depth in light space over the original one.
	UseNewNFormula bool
	// UseExplicitN uses ExplicitN as the warp near distance.
	UseExplicitN bool
	ExplicitN    float32
	// Policy handles a light direction parallel to the eye direction.
	Policy DegeneracyPolicy
}

// LiSPSMCamera warps the focused light projection with a perspective along
// the eye direction so texels are denser close to the eye.
type LiSPSMCamera struct {
	Warp
	focused FocusedCamera
	scratch []math.Vec3
}

// NewLiSPSMCamera returns a camera using the new n formula and falling back
// to the focused result for parallel eye and light.
func NewLiSPSMCamera() *LiSPSMCamera {
	return &LiSPSMCamera{Warp: Warp{UseNewNFormula: true, Policy: DegeneracyFallback}}
}

// NearCameraPoint returns the receiver point closest to the eye from the last update.
func (c *LiSPSMCamera) NearCameraPoint() (math.Vec3, bool) {
	return c.focused.NearCameraPoint, c.focused.HasNearCameraPoint
}

// Update implements LightCamera.
func (c *LiSPSMCamera) Update(p Params) Result {
	e := newEye(p.EyeView, p.EyeProjection)
	l := lightDirection(p)
	points := c.focused.volume.update(e, l, p.SceneBox)
	c.focused.NearCameraPoint, c.focused.HasNearCameraPoint = c.focused.volume.nearCameraPoint(e)

	if len(points) > 0 {
		if r, ok := c.Warp.apply(e, l, points, &c.scratch); ok {
			return r
		}
	}
	return focus(e, l, points)
}

// OldLiSPSMCamera applies the perspective warp directly in light space
// without the focused axis alignment. It defaults to the original n formula
// and clamps n instead of falling back.
type OldLiSPSMCamera struct {
	Warp
	volume  receiverVolume
	scratch []math.Vec3
}

// NewOldLiSPSMCamera returns a camera with the original defaults.
func NewOldLiSPSMCamera() *OldLiSPSMCamera {
	return &OldLiSPSMCamera{Warp: Warp{Policy: DegeneracyClampN}}
}

// Update implements LightCamera.
func (c *OldLiSPSMCamera) Update(p Params) Result {
	e := newEye(p.EyeView, p.EyeProjection)
	l := lightDirection(p)
	points := c.volume.update(e, l, p.SceneBox)

	view := math.LookDir(e.position, l, math.UpFor(l))
	if len(points) == 0 {
		return Result{LightView: view, LightProjection: math.Identity()}
	}
	if r, ok := c.Warp.apply(e, l, points, &c.scratch); ok {
		return r
	}
	return Result{LightView: view, LightProjection: fit(points, view)}
}

// apply computes the warped light matrices for the receiver points.
// ok is false when the configuration is degenerate and the caller should
// use its unwarped result.
func (w Warp) apply(e eye, l math.Vec3, points []math.Vec3, scratch *[]math.Vec3) (Result, bool) {
	eDotL := float64(e.direction.Dot(l))
	if w.Policy == DegeneracyFallback && 1-gomath.Abs(eDotL) <= parallelThreshold {
		return Result{}, false
	}
	sinGamma := float32(gomath.Sqrt(gomath.Max(0, 1-eDotL*eDotL)))

	up := l.Cross(e.direction).Cross(l)
	if up.Length() < 1e-6 {
		up = math.Perpendicular(l)
	}
	up = up.Normalize()

	base := math.LookDir(e.position, l, up)
	bounds := math.TransformedBounds(points, base)
	d := bounds.Max.Y - bounds.Min.Y
	if !(d > minExtent) {
		return Result{}, false
	}

	var n float32
	switch {
	case w.UseExplicitN:
		n = w.ExplicitN
	case sinGamma < minSinGamma:
		n = 0
	default:
		n = nearDistance(e.near, d, sinGamma, w.UseNewNFormula)
	}
	if !(n > 0) || !isFinite(n) {
		// No warp.
		return Result{LightView: base, LightProjection: fit(points, base)}, true
	}
	f := n + d

	// The warp center sits behind the eye, n - near along up.
	pos := e.position.Sub(up.Scale(n - e.near))
	view := math.LookDir(pos, l, up)
	warp := math.YPerspective(n, f)
	warpView := warp.Mul(view)

	warped := (*scratch)[:0]
	for _, p := range points {
		h := warpView.MulVec4(math.Vec4{p.X, p.Y, p.Z, 1})
		if h[3] <= minWarpW {
			*scratch = warped
			return Result{}, false
		}
		warped = append(warped, math.Vec3{X: h[0] / h[3], Y: h[1] / h[3], Z: h[2] / h[3]})
	}
	*scratch = warped

	proj := math.FitOrtho(math.BoxFromPoints(warped)).Mul(warp)
	if !proj.IsFinite() || !view.IsFinite() {
		return Result{}, false
	}
	return Result{LightView: view, LightProjection: proj}, true
}

// nearDistance returns the warp near distance n for receiver depth d.
func nearDistance(near, d, sinGamma float32, newFormula bool) float32 {
	zN := float64(near / sinGamma)
	sg := float64(sinGamma)
	if newFormula {
		z0 := -zN
		z1 := -(zN + float64(d)*sg)
		return float32(float64(d) / (gomath.Sqrt(z1/z0) - 1))
	}
	zF := zN + float64(d)*sg
	return float32((zN + gomath.Sqrt(zF*zN)) / sg)
}

// fit returns the orthographic projection around points seen through view.
func fit(points []math.Vec3, view math.Mat4) math.Mat4 {
	return math.FitOrtho(math.TransformedBounds(points, view))
}

// minExtent is the smallest receiver depth along the warp axis.
const minExtent = 1e-4

func isFinite(x float32) bool {
	f := float64(x)
	return !gomath.IsNaN(f) && !gomath.IsInf(f, 0)
}
