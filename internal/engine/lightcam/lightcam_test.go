package lightcam

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

const ndcTolerance = 1e-3

// sceneParams is an eye at the origin looking down -Z (60° FOV, near 1,
// far 100) over a 100 unit scene cube.
func sceneParams(light math.Vec3) Params {
	return Params{
		EyeView:        math.LookAt(math.Vec3{}, math.Vec3{Z: -1}, math.Vec3{Y: 1}),
		EyeProjection:  math.Perspective(float32(gomath.Pi/3), 1, 1, 100),
		LightDirection: light,
		SceneBox: math.Box{
			Min: math.Vec3{X: -50, Y: -50, Z: -50},
			Max: math.Vec3{X: 50, Y: 50, Z: 50},
		},
	}
}

var lightDirections = []math.Vec3{
	{Y: -1},
	{X: 1, Y: -1, Z: 0.3},
	{X: 0.2, Y: -1, Z: -0.5},
	{X: -1, Y: -0.2, Z: 0.1},
}

func receiverPoints(p Params) []math.Vec3 {
	var v receiverVolume
	return v.update(newEye(p.EyeView, p.EyeProjection), lightDirection(p), p.SceneBox)
}

func requireInClipCube(t *testing.T, r Result, points []math.Vec3) {
	t.Helper()
	require.True(t, r.LightView.IsFinite(), "light view not finite")
	require.True(t, r.LightProjection.IsFinite(), "light projection not finite")

	vp := r.ViewProjection()
	for _, p := range points {
		h := vp.MulVec4(math.Vec4{p.X, p.Y, p.Z, 1})
		require.Greater(t, h[3], float32(0), "point %v behind projection", p)
		for axis := 0; axis < 3; axis++ {
			ndc := h[axis] / h[3]
			assert.LessOrEqual(t, math.Abs(ndc), float32(1+ndcTolerance), "point %v axis %d -> %f", p, axis, ndc)
		}
	}
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{KindBasic, KindFocused, KindLiSPSM, KindOldLiSPSM} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind(" LiSPSM ")
	require.NoError(t, err)
	assert.Equal(t, KindLiSPSM, got)

	_, err = ParseKind("cascaded")
	assert.Error(t, err)
	assert.Equal(t, "Unknown(42)", Kind(42).String())
}

func TestNewReturnsKind(t *testing.T) {
	assert.IsType(t, &BasicCamera{}, New(KindBasic))
	assert.IsType(t, &FocusedCamera{}, New(KindFocused))
	assert.IsType(t, &LiSPSMCamera{}, New(KindLiSPSM))
	assert.IsType(t, &OldLiSPSMCamera{}, New(KindOldLiSPSM))
}

func TestNewEye(t *testing.T) {
	view := math.LookAt(math.Vec3{X: 1, Y: 2, Z: 3}, math.Vec3{X: 1, Y: 2, Z: -10}, math.Vec3{Y: 1})
	proj := math.Perspective(float32(gomath.Pi/2), 1.5, 0.5, 40)

	e := newEye(view, proj)
	assert.InDelta(t, 1, e.position.X, 1e-4)
	assert.InDelta(t, 2, e.position.Y, 1e-4)
	assert.InDelta(t, 3, e.position.Z, 1e-4)
	assert.True(t, math.DirectionsEqual(e.direction, math.Vec3{Z: -1}))
	assert.InDelta(t, 0.5, e.near, 1e-3)
}

func TestReceiverVolumeExtrudesTowardLight(t *testing.T) {
	p := sceneParams(math.Vec3{Y: -1})
	points := receiverPoints(p)
	require.NotEmpty(t, points)

	top := false
	for _, pt := range points {
		assert.True(t, p.SceneBox.Contains(pt, 1e-2), "point %v outside scene", pt)
		if pt.Y > 50-1e-2 {
			top = true
		}
	}
	// Rays toward an overhead light leave the box through its top face.
	assert.True(t, top)
}

func TestCamerasMapReceiversIntoClipCube(t *testing.T) {
	for _, kind := range []Kind{KindFocused, KindLiSPSM, KindOldLiSPSM} {
		for _, l := range lightDirections {
			p := sceneParams(l)
			r := New(kind).Update(p)
			requireInClipCube(t, r, receiverPoints(p))
		}
	}
}

func TestBasicCameraCoversScene(t *testing.T) {
	for _, l := range lightDirections {
		p := sceneParams(l)
		r := (&BasicCamera{}).Update(p)
		corners := p.SceneBox.Corners()
		requireInClipCube(t, r, corners[:])
	}
}

func TestFocusedEmptyVolumeKeepsUnwarpedView(t *testing.T) {
	p := sceneParams(math.Vec3{Y: -1})
	// Entirely behind the eye.
	p.SceneBox = math.Box{Min: math.Vec3{X: -5, Y: -5, Z: 10}, Max: math.Vec3{X: 5, Y: 5, Z: 20}}

	c := &FocusedCamera{}
	r := c.Update(p)

	assert.Equal(t, math.Identity(), r.LightProjection)
	assert.True(t, r.LightView.ApproxEqual(math.LookDir(math.Vec3{}, math.Vec3{Y: -1}, math.Vec3{Z: 1}), 1e-6))
	assert.False(t, c.HasNearCameraPoint)
}

func TestFocusedNearCameraPoint(t *testing.T) {
	c := &FocusedCamera{}
	p := sceneParams(math.Vec3{Y: -1})
	c.Update(p)

	require.True(t, c.HasNearCameraPoint)
	z := p.EyeView.TransformPoint(c.NearCameraPoint).Z
	assert.InDelta(t, -1, z, 1e-3)
}

func TestLiSPSMParallelFallsBackToFocused(t *testing.T) {
	for _, l := range []math.Vec3{{Z: -1}, {Z: 1}, {X: 0.005, Z: -1}} {
		p := sceneParams(l)
		want := (&FocusedCamera{}).Update(p)
		got := NewLiSPSMCamera().Update(p)

		assert.True(t, want.LightView.ApproxEqual(got.LightView, 1e-5), "light %v", l)
		assert.True(t, want.LightProjection.ApproxEqual(got.LightProjection, 1e-5), "light %v", l)
	}
}

func TestOldLiSPSMParallelClampsN(t *testing.T) {
	p := sceneParams(math.Vec3{Z: -1})
	r := NewOldLiSPSMCamera().Update(p)

	requireInClipCube(t, r, receiverPoints(p))
	// No warp: the projection stays affine.
	assert.Equal(t, float32(0), r.LightProjection[3])
	assert.Equal(t, float32(0), r.LightProjection[7])
	assert.Equal(t, float32(1), r.LightProjection[15])
}

func TestLiSPSMWarpsPerpendicularLight(t *testing.T) {
	p := sceneParams(math.Vec3{Y: -1})
	r := NewLiSPSMCamera().Update(p)

	requireInClipCube(t, r, receiverPoints(p))
	// The warp puts the view Y axis into w.
	assert.NotEqual(t, float32(0), r.LightProjection[7])
}

func TestExplicitN(t *testing.T) {
	c := NewLiSPSMCamera()
	c.UseExplicitN = true
	c.ExplicitN = 5

	p := sceneParams(math.Vec3{X: 0.3, Y: -1})
	requireInClipCube(t, c.Update(p), receiverPoints(p))

	// A non-positive n disables the warp.
	c.ExplicitN = 0
	r := c.Update(p)
	requireInClipCube(t, r, receiverPoints(p))
	assert.Equal(t, float32(1), r.LightProjection[15])
}

func TestNearDistanceFormulasAgree(t *testing.T) {
	cases := []struct {
		near, d, sinGamma float32
		want              float32
	}{
		{near: 1, d: 99, sinGamma: 1, want: 11},
		{near: 1, d: 10, sinGamma: 0.5, want: 11.4833},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, nearDistance(tc.near, tc.d, tc.sinGamma, true), 1e-3)
		assert.InDelta(t, tc.want, nearDistance(tc.near, tc.d, tc.sinGamma, false), 1e-3)
	}
}

func TestCameraBuilder(t *testing.T) {
	p := sceneParams(math.Vec3{X: 1, Y: -1, Z: 0.3})
	want := (&FocusedCamera{}).Update(p)

	var b Builder = NewBuilder(&FocusedCamera{})
	view, proj := b.Build(p)
	assert.Equal(t, want.LightView, view)
	assert.Equal(t, want.LightProjection, proj)
}

func TestZeroLightDirectionDefaultsDown(t *testing.T) {
	p := sceneParams(math.Vec3{})
	want := (&FocusedCamera{}).Update(sceneParams(math.Vec3{Y: -1}))
	got := (&FocusedCamera{}).Update(p)
	assert.Equal(t, want, got)
}
