package lightcam

import (
	"github.com/Faultbox/midgard-csm/internal/engine/convex"
	"github.com/Faultbox/midgard-csm/pkg/math"
)

var (
	// swapAxes maps (x, y, z) to (x, z, -y) so the light travels along -Y.
	swapAxes = math.Mat4{
		1, 0, 0, 0,
		0, 0, -1, 0,
		0, 1, 0, 0,
		0, 0, 0, 1,
	}
	// unswapAxes is the inverse of swapAxes.
	unswapAxes = math.Mat4{
		1, 0, 0, 0,
		0, 0, 1, 0,
		0, -1, 0, 0,
		0, 0, 0, 1,
	}
	// clipRemap flips Z so the unit cube fit follows GL clip-space depth.
	clipRemap = math.Ortho(-1, 1, -1, 1, -1, 1)
)

// receiverVolume builds the point set of body B: the eye frustum clipped by
// the scene box, plus where each of its vertices leaves the box when moving
// toward the light. The bounded part (without extrusion) is kept in lvs.
type receiverVolume struct {
	lvs    convex.Body
	points []math.Vec3
}

// update rebuilds the volume and returns its points. The slice is reused on
// the next call. An empty result means nothing in the scene is visible.
func (v *receiverVolume) update(e eye, l math.Vec3, box math.Box) []math.Vec3 {
	v.points = v.points[:0]
	v.lvs.Define(e.frustum)
	if !box.IsEmpty() {
		v.lvs.ClipBox(box)
	}
	if v.lvs.IsEmpty() {
		return nil
	}
	v.points = v.lvs.AppendPoints(v.points)
	if box.IsEmpty() {
		return v.points
	}

	grown := box.Grow(math.PlaneTolerance)
	toLight := l.Negate()
	bounded := len(v.points)
	for _, p := range v.points[:bounded] {
		ray := math.Ray{Origin: p, Direction: toLight}
		if _, tmax, ok := ray.IntersectBox(grown); ok && tmax > 0 {
			v.points = append(v.points, ray.At(tmax))
		}
	}
	return v.points
}

// nearCameraPoint returns the vertex of the bounded volume closest to the eye
// along its view axis.
func (v *receiverVolume) nearCameraPoint(e eye) (math.Vec3, bool) {
	var best math.Vec3
	bestZ := float32(0)
	found := false
	for _, poly := range v.lvs.Polygons() {
		for _, p := range poly.Vertices {
			z := e.view.TransformPoint(p).Z
			if !found || z > bestZ {
				best, bestZ, found = p, z, true
			}
		}
	}
	return best, found
}

// FocusedCamera fits the light projection to the part of the scene that can
// cast shadows onto what the eye sees.
type FocusedCamera struct {
	volume receiverVolume

	// NearCameraPoint is the receiver point closest to the eye, valid when
	// HasNearCameraPoint is set. Updated by every call to Update.
	NearCameraPoint    math.Vec3
	HasNearCameraPoint bool
}

// Update implements LightCamera.
func (c *FocusedCamera) Update(p Params) Result {
	e := newEye(p.EyeView, p.EyeProjection)
	l := lightDirection(p)
	points := c.volume.update(e, l, p.SceneBox)
	c.NearCameraPoint, c.HasNearCameraPoint = c.volume.nearCameraPoint(e)
	return focus(e, l, points)
}

// focus computes the unwarped light matrices for the receiver points.
func focus(e eye, l math.Vec3, points []math.Vec3) Result {
	lightView := math.LookDir(e.position, l, math.UpFor(l))
	if len(points) == 0 {
		return Result{LightView: lightView, LightProjection: math.Identity()}
	}

	swapped := swapAxes.Mul(lightView)

	// Look along the eye direction flattened onto the light plane.
	look := math.Identity()
	dir := swapped.TransformDirection(e.direction)
	dir.Y = 0
	if dir.Length() > 1e-6 {
		look = math.LookDir(math.Vec3{}, dir, math.Vec3{Y: 1})
	}

	toCube := look.Mul(swapped)
	cube := math.UnitCube(math.TransformedBounds(points, toCube))

	proj := clipRemap.Mul(unswapAxes).Mul(cube).Mul(look).Mul(swapAxes)
	return Result{LightView: lightView, LightProjection: proj}
}
