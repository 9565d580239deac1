package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Mat4 is a 4x4 matrix in column-major order (OpenGL compatible).
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]
//
// The memory layout matches mgl32.Mat4, so conversions are free.
type Mat4 [16]float32

// Vec4 is a 4-component vector.
type Vec4 [4]float32

// Identity returns an identity matrix.
func Identity() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Perspective returns a perspective projection matrix.
// fovY is in radians, aspect is width/height.
func Perspective(fovY, aspect, near, far float32) Mat4 {
	return Mat4(mgl32.Perspective(fovY, aspect, near, far))
}

// Ortho returns an orthographic projection matrix.
// left, right, bottom, top define the view volume boundaries.
// near and far are distances along -Z and map to -1 and +1.
func Ortho(left, right, bottom, top, near, far float32) Mat4 {
	return Mat4(mgl32.Ortho(left, right, bottom, top, near, far))
}

// LookAt returns a view matrix looking from eye to center with up direction.
func LookAt(eye, center, up Vec3) Mat4 {
	return Mat4(mgl32.LookAtV(eye.Vec(), center.Vec(), up.Vec()))
}

// LookDir returns a view matrix at eye looking along dir.
// dir maps to -Z and the component of up orthogonal to dir maps to +Y.
func LookDir(eye, dir, up Vec3) Mat4 {
	return LookAt(eye, eye.Add(dir), up)
}

// Translate returns a translation matrix.
func Translate(x, y, z float32) Mat4 {
	return Mat4(mgl32.Translate3D(x, y, z))
}

// Scale returns a scale matrix.
func Scale(x, y, z float32) Mat4 {
	return Mat4(mgl32.Scale3D(x, y, z))
}

// Mul multiplies this matrix by another (m * other).
func (m Mat4) Mul(other Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(other)))
}

// MulVec4 multiplies the matrix by a Vec4.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4(mgl32.Mat4(m).Mul4x1(mgl32.Vec4(v)))
}

// TransformPoint transforms a point (w=1) and applies the perspective divide.
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	r := m.MulVec4(Vec4{p.X, p.Y, p.Z, 1})
	if r[3] != 0 && r[3] != 1 {
		return Vec3{r[0] / r[3], r[1] / r[3], r[2] / r[3]}
	}
	return Vec3{r[0], r[1], r[2]}
}

// TransformDirection transforms a direction vector (ignores translation).
func (m Mat4) TransformDirection(d Vec3) Vec3 {
	return Vec3{
		m[0]*d.X + m[4]*d.Y + m[8]*d.Z,
		m[1]*d.X + m[5]*d.Y + m[9]*d.Z,
		m[2]*d.X + m[6]*d.Y + m[10]*d.Z,
	}
}

// Translation returns the translation column.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// Inverse returns the inverse of the matrix.
// Returns identity if the matrix is singular.
func (m Mat4) Inverse() Mat4 {
	g := mgl32.Mat4(m)
	if g.Det() == 0 {
		return Identity()
	}
	return Mat4(g.Inv())
}

// IsFinite reports whether every element is a finite number.
func (m Mat4) IsFinite() bool {
	for _, v := range m {
		if !isFinite(v) {
			return false
		}
	}
	return true
}

// ApproxEqual reports whether every element differs by at most tol.
func (m Mat4) ApproxEqual(other Mat4, tol float32) bool {
	for i := range m {
		if Abs(m[i]-other[i]) > tol {
			return false
		}
	}
	return true
}

// Ptr returns a pointer to the first element (for OpenGL uniform calls).
func (m *Mat4) Ptr() *float32 {
	return &m[0]
}

// YPerspective returns a projection that applies a perspective divide along
// the Y axis only: y' = (f+n)/(f-n)*y - 2fn/(f-n), w' = y. X and Z pass through
// unscaled. Points with y in [n, f] land in [-1, 1] after the divide.
func YPerspective(n, f float32) Mat4 {
	m := Identity()
	m[5] = (f + n) / (f - n)
	m[7] = 1
	m[13] = -2 * f * n / (f - n)
	m[15] = 0
	return m
}

// FitOrtho returns the orthographic projection mapping b onto the clip cube.
// b is given in view space; its largest Z is closest to the viewer and maps to -1.
// Degenerate extents are widened so the result stays finite.
func FitOrtho(b Box) Mat4 {
	b = b.Widen(minExtent)
	return Ortho(b.Min.X, b.Max.X, b.Min.Y, b.Max.Y, -b.Max.Z, -b.Min.Z)
}

// UnitCube returns the scale-and-translate matrix mapping b onto [-1, 1]^3
// without changing axis orientation.
func UnitCube(b Box) Mat4 {
	b = b.Widen(minExtent)
	size := b.Max.Sub(b.Min)
	sum := b.Max.Add(b.Min)
	return Mat4{
		2 / size.X, 0, 0, 0,
		0, 2 / size.Y, 0, 0,
		0, 0, 2 / size.Z, 0,
		-sum.X / size.X, -sum.Y / size.Y, -sum.Z / size.Z, 1,
	}
}

// PerspectiveParams recovers the parameters of a matrix built by Perspective.
func PerspectiveParams(m Mat4) (fovY, aspect, near, far float32) {
	m0, m5 := float64(m[0]), float64(m[5])
	m10, m14 := float64(m[10]), float64(m[14])

	fovY = float32(2 * math.Atan(1/m5))
	aspect = float32(m5 / m0)
	near = float32(m14 / (m10 - 1))
	far = float32(m14 / (m10 + 1))
	return fovY, aspect, near, far
}
