package convex

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

// testFrustum is a camera at the origin looking down -Z with a 90 degree FOV,
// near 1 and far 10.
func testFrustum() math.Frustum {
	view := math.LookAt(math.Vec3{}, math.Vec3{Z: -1}, math.Vec3{Y: 1})
	proj := math.Perspective(float32(gomath.Pi/2), 1, 1, 10)
	return math.NewFrustum(proj.Mul(view))
}

func unitCube() *Body {
	f := math.Frustum{}
	// An orthographic "frustum" is a box; reuse Define to build it.
	box := math.Box{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	corners := box.Corners()
	f.Corners = [8]math.Vec3{
		corners[4], corners[5], corners[6], corners[7],
		corners[0], corners[1], corners[2], corners[3],
	}
	var b Body
	b.Define(f)
	return &b
}

func requireOutwardFaces(t *testing.T, b *Body) {
	t.Helper()
	points := b.AppendPoints(nil)
	var center math.Vec3
	for _, p := range points {
		center = center.Add(p)
	}
	center = center.Scale(1 / float32(len(points)))
	for i, poly := range b.Polygons() {
		require.GreaterOrEqual(t, len(poly.Vertices), 3, "polygon %d", i)
		n := poly.Normal()
		assert.Greater(t, n.Dot(poly.Centroid().Sub(center)), float32(0), "polygon %d faces inward", i)
	}
}

func requireInside(t *testing.T, b *Body, planes ...math.Plane) {
	t.Helper()
	for _, poly := range b.Polygons() {
		for _, v := range poly.Vertices {
			for _, pl := range planes {
				assert.LessOrEqual(t, pl.Distance(v), float32(math.PointTolerance), "vertex %v outside %v", v, pl)
			}
		}
	}
}

func TestDefineBuildsSixOutwardQuads(t *testing.T) {
	var b Body
	b.Define(testFrustum())

	require.Equal(t, 6, b.Len())
	for _, poly := range b.Polygons() {
		assert.Len(t, poly.Vertices, 4)
	}
	requireOutwardFaces(t, &b)

	// The near face comes first and faces the camera (+Z).
	assert.True(t, math.DirectionsEqual(b.Polygons()[0].Normal(), math.Vec3{Z: 1}))
	// The far face faces away from it.
	assert.True(t, math.DirectionsEqual(b.Polygons()[1].Normal(), math.Vec3{Z: -1}))
}

func TestClipPlaneOutsideEmptiesBody(t *testing.T) {
	b := unitCube()
	b.ClipPlane(math.NewPlane(math.Vec3{Y: -1}, math.Vec3{Y: 5}))

	assert.True(t, b.IsEmpty())
	assert.Empty(t, b.AppendPoints(nil))
}

func TestClipPlaneInsideLeavesBodyUnchanged(t *testing.T) {
	b := unitCube()
	before := b.AppendPoints(nil)

	b.ClipPlane(math.NewPlane(math.Vec3{Y: 1}, math.Vec3{Y: 5}))

	assert.Equal(t, 6, b.Len())
	assert.Equal(t, before, b.AppendPoints(nil))
}

func TestClipPlaneHalvesCube(t *testing.T) {
	b := unitCube()
	pl := math.NewPlane(math.Vec3{X: 1}, math.Vec3{})
	b.ClipPlane(pl)

	// Four side faces are cut, one is removed, and a cap closes the cut.
	require.Equal(t, 6, b.Len())
	requireOutwardFaces(t, b)
	requireInside(t, b, pl)

	bounds := b.Bounds()
	assert.InDelta(t, 0, bounds.Max.X, 1e-5)
	assert.InDelta(t, -1, bounds.Min.X, 1e-5)

	capping := b.Polygons()[b.Len()-1]
	assert.Len(t, capping.Vertices, 4)
	assert.True(t, math.DirectionsEqual(capping.Normal(), pl.Normal))
}

func TestClipPlaneCutsCorner(t *testing.T) {
	b := unitCube()
	pl := math.NewPlane(math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: 0.5, Y: 0.5, Z: 0.5})
	b.ClipPlane(pl)

	// Cutting one corner off a cube adds a triangular face.
	require.Equal(t, 7, b.Len())
	capping := b.Polygons()[b.Len()-1]
	assert.Len(t, capping.Vertices, 3)
	requireOutwardFaces(t, b)
	requireInside(t, b, pl)
}

func TestClipPlaneIsIdempotent(t *testing.T) {
	planes := []math.Plane{
		math.NewPlane(math.Vec3{X: 1}, math.Vec3{X: 0.25}),
		math.NewPlane(math.Vec3{X: 1, Y: 1, Z: 1}, math.Vec3{X: 0.5, Y: 0.5, Z: 0.5}),
		math.NewPlane(math.Vec3{Y: -1, Z: 0.3}, math.Vec3{Y: -0.2}),
	}
	for _, pl := range planes {
		once := unitCube()
		once.ClipPlane(pl)

		twice := unitCube()
		twice.ClipPlane(pl)
		twice.ClipPlane(pl)

		require.Equal(t, once.Len(), twice.Len())
		a := once.AppendPoints(nil)
		b := twice.AppendPoints(nil)
		require.Equal(t, len(a), len(b))
		for i := range a {
			assert.True(t, math.PointsEqual(a[i], b[i]), "point %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestClipBoxKeepsVerticesInside(t *testing.T) {
	boxes := []math.Box{
		{Min: math.Vec3{X: -2, Y: -2, Z: -6}, Max: math.Vec3{X: 2, Y: 2, Z: -3}},
		{Min: math.Vec3{X: 0, Y: -50, Z: -50}, Max: math.Vec3{X: 50, Y: 0.5, Z: 50}},
		{Min: math.Vec3{X: -3, Y: -1, Z: -20}, Max: math.Vec3{X: 3, Y: 1, Z: -2}},
	}
	for _, box := range boxes {
		var b Body
		b.Define(testFrustum())
		b.ClipBox(box)

		require.False(t, b.IsEmpty(), "box %v", box)
		planes := box.Planes()
		requireInside(t, &b, planes[:]...)
		requireOutwardFaces(t, &b)
		for _, p := range b.AppendPoints(nil) {
			assert.True(t, box.Contains(p, math.PointTolerance), "point %v outside %v", p, box)
		}
	}
}

func TestClipBoxNonRestrictiveIsNoOp(t *testing.T) {
	f := testFrustum()
	var b Body
	b.Define(f)
	b.ClipBox(math.Box{Min: math.Vec3{X: -100, Y: -100, Z: -100}, Max: math.Vec3{X: 100, Y: 100, Z: 100}})

	require.Equal(t, 6, b.Len())
	points := b.AppendPoints(nil)
	require.Len(t, points, 8)
	for _, corner := range f.Corners {
		found := false
		for _, p := range points {
			if math.PointsEqual(p, corner) {
				found = true
				break
			}
		}
		assert.True(t, found, "corner %v missing", corner)
	}
}

func TestClipBoxDisjointEmptiesBody(t *testing.T) {
	var b Body
	b.Define(testFrustum())
	// Entirely behind the camera.
	b.ClipBox(math.Box{Min: math.Vec3{X: -5, Y: -5, Z: 5}, Max: math.Vec3{X: 5, Y: 5, Z: 10}})

	assert.True(t, b.IsEmpty())
}

// An open body (a cube without its top face) yields an intersection chain
// that cannot be closed. The unclosed remainder is dropped without failing.
func TestClipPlaneDanglingChain(t *testing.T) {
	b := unitCube()
	top := -1
	for i, poly := range b.Polygons() {
		if math.DirectionsEqual(poly.Normal(), math.Vec3{Y: 1}) {
			top = i
		}
	}
	require.NotEqual(t, -1, top)
	b.polygons = append(b.polygons[:top], b.polygons[top+1:]...)

	pl := math.NewPlane(math.Vec3{X: 1}, math.Vec3{X: 0.5})
	require.NotPanics(t, func() { b.ClipPlane(pl) })

	// Bottom, front, back and left survive; a cap may or may not be produced
	// depending on where the chain starts.
	assert.GreaterOrEqual(t, b.Len(), 4)
	assert.LessOrEqual(t, b.Len(), 5)
	for _, poly := range b.Polygons() {
		assert.GreaterOrEqual(t, len(poly.Vertices), 3)
	}
	requireInside(t, b, pl)
}

func TestFindAndRemoveEdge(t *testing.T) {
	edges := []Edge{
		{A: math.Vec3{X: 0}, B: math.Vec3{X: 1}},
		{A: math.Vec3{X: 2}, B: math.Vec3{X: 1}},
	}

	next, ok := findAndRemoveEdge(&edges, math.Vec3{X: 1.0001})
	require.True(t, ok)
	assert.Len(t, edges, 1)
	assert.True(t, next == math.Vec3{X: 0} || next == math.Vec3{X: 2})

	_, ok = findAndRemoveEdge(&edges, math.Vec3{X: 7})
	assert.False(t, ok)
	assert.Len(t, edges, 1)
}

func TestPolygonNormalAndReverse(t *testing.T) {
	p := NewPolygon(
		math.Vec3{X: 0, Y: 0},
		math.Vec3{X: 1, Y: 0},
		math.Vec3{X: 1, Y: 1},
		math.Vec3{X: 0, Y: 1},
	)
	assert.True(t, math.DirectionsEqual(p.Normal(), math.Vec3{Z: 1}))

	p.Reverse()
	assert.True(t, math.DirectionsEqual(p.Normal(), math.Vec3{Z: -1}))
	assert.Equal(t, math.Vec3{X: 0.5, Y: 0.5}, p.Centroid())
}
