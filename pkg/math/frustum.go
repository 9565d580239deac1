package math

// Frustum corner indices. Near corners map to NDC z = -1, far corners to z = +1.
const (
	NearBottomLeft = iota
	NearBottomRight
	NearTopRight
	NearTopLeft
	FarBottomLeft
	FarBottomRight
	FarTopRight
	FarTopLeft
)

var ndcCorners = [8]Vec4{
	{-1, -1, -1, 1},
	{1, -1, -1, 1},
	{1, 1, -1, 1},
	{-1, 1, -1, 1},
	{-1, -1, 1, 1},
	{1, -1, 1, 1},
	{1, 1, 1, 1},
	{-1, 1, 1, 1},
}

// Frustum is the world-space view volume of a view-projection matrix.
type Frustum struct {
	Matrix  Mat4
	Corners [8]Vec3
}

// NewFrustum unprojects the NDC cube through the inverse of viewProj.
func NewFrustum(viewProj Mat4) Frustum {
	f := Frustum{Matrix: viewProj}
	inv := viewProj.Inverse()
	for i, c := range ndcCorners {
		p := inv.MulVec4(c)
		if p[3] != 0 {
			p[0] /= p[3]
			p[1] /= p[3]
			p[2] /= p[3]
		}
		f.Corners[i] = Vec3{p[0], p[1], p[2]}
	}
	return f
}

// Center returns the average of the eight corners.
func (f Frustum) Center() Vec3 {
	var c Vec3
	for _, p := range f.Corners {
		c = c.Add(p)
	}
	return c.Scale(1.0 / 8)
}
