// Package camera provides the orbiting eye camera whose frustum the shadow
// cascades cover.
package camera

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

// Lens describes the perspective projection of the eye.
type Lens struct {
	FOV  float32 // Vertical field of view, radians
	Near float32
	Far  float32
}

// Projection returns the perspective matrix for the given aspect ratio.
func (l Lens) Projection(aspect float32) math.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return math.Perspective(l.FOV, aspect, l.Near, l.Far)
}

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3
	Lens   Lens

	// Spherical coordinates
	Distance float32
	Pitch    float32 // Vertical angle, radians
	Yaw      float32 // Horizontal angle, radians

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates an orbit camera. Angles are in degrees.
func NewOrbitCamera(lens Lens, distance, yawDeg, pitchDeg float32) *OrbitCamera {
	c := &OrbitCamera{
		Lens:            lens,
		Distance:        distance,
		Yaw:             mgl32.DegToRad(yawDeg),
		Pitch:           mgl32.DegToRad(pitchDeg),
		MinDistance:     lens.Near * 2,
		MaxDistance:     lens.Far,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
	c.clamp()
	return c
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	sp, cp := gomath.Sincos(float64(c.Pitch))
	sy, cy := gomath.Sincos(float64(c.Yaw))
	offset := math.Vec3{
		X: float32(cp * sy),
		Y: float32(sp),
		Z: float32(cp * cy),
	}
	return c.Center.Add(offset.Scale(c.Distance))
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the lens projection for the given aspect ratio.
func (c *OrbitCamera) ProjectionMatrix(aspect float32) math.Mat4 {
	return c.Lens.Projection(aspect)
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch += deltaY * c.DragSensitivity
	c.clamp()
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance -= delta * c.Distance * c.ZoomSensitivity
	c.clamp()
}

// HandleMovement pans the center point on the XZ plane relative to the yaw.
func (c *OrbitCamera) HandleMovement(forward, right, up float32) {
	// Speed scales with distance for consistent feel
	speed := c.Distance * 0.01

	sy, cy := gomath.Sincos(float64(c.Yaw))
	fwd := math.Vec3{X: float32(-sy), Z: float32(-cy)}
	side := math.Vec3{X: float32(cy), Z: float32(-sy)}

	move := fwd.Scale(forward).Add(side.Scale(right)).Add(math.Vec3{Y: up})
	c.Center = c.Center.Add(move.Scale(speed))
}

// FitToBounds centers the camera on b and backs off far enough to see it.
func (c *OrbitCamera) FitToBounds(b math.Box) {
	if b.IsEmpty() {
		return
	}
	c.Center = b.Center()
	c.Distance = b.Radius() * 1.5
	c.clamp()
}

func (c *OrbitCamera) clamp() {
	c.Pitch = mgl32.Clamp(c.Pitch, c.MinPitch, c.MaxPitch)
	if c.MaxDistance > c.MinDistance {
		c.Distance = mgl32.Clamp(c.Distance, c.MinDistance, c.MaxDistance)
	}
}
