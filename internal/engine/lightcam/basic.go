package lightcam

import "github.com/Faultbox/midgard-csm/pkg/math"

// BasicCamera fits an orthographic projection around the whole scene box,
// ignoring where the eye looks. It is the uniform fallback.
type BasicCamera struct{}

// Update implements LightCamera.
func (c *BasicCamera) Update(p Params) Result {
	l := lightDirection(p)

	bounds := p.SceneBox
	if bounds.IsEmpty() {
		// Nothing to shadow; cover the eye frustum instead.
		f := newEye(p.EyeView, p.EyeProjection).frustum
		bounds = math.BoxFromPoints(f.Corners[:])
	}
	center := bounds.Center()
	radius := max(bounds.Radius(), minNear)

	// Position light far enough to encompass entire scene
	lightDistance := radius * 2
	lightPos := center.Sub(l.Scale(lightDistance))
	view := math.LookAt(lightPos, center, math.UpFor(l))

	// Add padding to avoid edge artifacts
	padding := radius * 0.1
	halfSize := radius + padding
	near := float32(0.1)
	far := lightDistance + radius + padding

	return Result{
		LightView:       view,
		LightProjection: math.Ortho(-halfSize, halfSize, -halfSize, halfSize, near, far),
	}
}
