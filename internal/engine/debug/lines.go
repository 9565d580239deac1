// Package debug builds visualization geometry for inspecting shadow cascades.
package debug

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

// LinesPerBox is the number of vertices BoxLines emits (12 edges × 2).
const LinesPerBox = 24

// boxEdges indexes Box.Corners-ordered corners.
var boxEdges = [12][2]int{
	{0, 1}, {1, 2}, {2, 3}, {3, 0}, // z min
	{4, 5}, {5, 6}, {6, 7}, {7, 4}, // z max
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

// SplitColors tints each cascade in overlays and line drawings.
var SplitColors = [...][3]float32{
	{1.0, 0.35, 0.35},
	{0.35, 1.0, 0.35},
	{0.35, 0.55, 1.0},
}

// SplitColor returns the tint of split i, wrapping around.
func SplitColor(i int) [3]float32 {
	if i < 0 {
		i = -i
	}
	return SplitColors[i%len(SplitColors)]
}

// BoxLines appends the wireframe of b as line-list vertices [x, y, z].
// An empty box appends nothing.
func BoxLines(dst []float32, b math.Box) []float32 {
	if b.IsEmpty() {
		return dst
	}
	return cornerLines(dst, b.Corners())
}

// FrustumLines appends the wireframe of the volume a view-projection matrix
// maps onto the clip cube. Light matrices give the light's shadow volume,
// eye split matrices give the split frustum. Singular matrices append nothing.
func FrustumLines(dst []float32, viewProj math.Mat4) []float32 {
	if mgl32.Mat4(viewProj).Det() == 0 || !viewProj.IsFinite() {
		return dst
	}
	inv := viewProj.Inverse()
	unit := math.Box{Min: math.Vec3{X: -1, Y: -1, Z: -1}, Max: math.Vec3{X: 1, Y: 1, Z: 1}}
	corners := unit.Corners()
	for i, c := range corners {
		corners[i] = inv.TransformPoint(c)
	}
	return cornerLines(dst, corners)
}

func cornerLines(dst []float32, c [8]math.Vec3) []float32 {
	for _, e := range boxEdges {
		a, b := c[e[0]], c[e[1]]
		dst = append(dst, a.X, a.Y, a.Z, b.X, b.Y, b.Z)
	}
	return dst
}
