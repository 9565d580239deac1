package math

import "math"

// Tolerances shared by the geometry code.
const (
	// PointTolerance is the distance below which two points are considered equal.
	PointTolerance = 1e-3
	// DirectionTolerance is the angle in radians below which two directions are equal.
	DirectionTolerance = math.Pi / 180
	// PlaneTolerance is the signed distance a point may lie beyond a plane and
	// still count as inside.
	PlaneTolerance = 1e-4
)

// Plane is the set of points p with Normal·p + D = 0.
// The normal points to the outside half-space.
type Plane struct {
	Normal Vec3
	D      float32
}

// NewPlane returns the plane through point with the given normal.
func NewPlane(normal, point Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, D: -n.Dot(point)}
}

// Distance returns the signed distance from p; positive is outside.
func (pl Plane) Distance(p Vec3) float32 {
	return pl.Normal.Dot(p) + pl.D
}

// PointsEqual reports whether a and b are within PointTolerance.
func PointsEqual(a, b Vec3) bool {
	return a.Distance(b) <= PointTolerance
}

// DirectionsEqual reports whether the angle between a and b is within
// DirectionTolerance. Zero vectors are never equal to anything.
func DirectionsEqual(a, b Vec3) bool {
	la, lb := a.Length(), b.Length()
	if la == 0 || lb == 0 {
		return false
	}
	cos := float64(a.Dot(b) / (la * lb))
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) <= DirectionTolerance
}
