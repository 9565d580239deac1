// Package lighting provides the directional sun that drives the shadow
// cascades.
package lighting

import (
	gomath "math"

	"github.com/charmbracelet/harmonica"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

// SunDirection converts azimuth and elevation angles in degrees to the
// direction sunlight travels. Azimuth rotates around Y starting at +Z,
// elevation is measured up from the horizon.
func SunDirection(azimuth, elevation float32) math.Vec3 {
	sa, ca := gomath.Sincos(float64(mgl32.DegToRad(azimuth)))
	se, ce := gomath.Sincos(float64(mgl32.DegToRad(elevation)))

	toSun := math.Vec3{
		X: float32(ce * sa),
		Y: float32(se),
		Z: float32(ce * ca),
	}
	return toSun.Negate().Normalize()
}

// SunAngles is the inverse of SunDirection.
func SunAngles(dir math.Vec3) (azimuth, elevation float32) {
	toSun := dir.Negate().Normalize()
	elevation = mgl32.RadToDeg(float32(gomath.Asin(float64(mgl32.Clamp(toSun.Y, -1, 1)))))
	azimuth = mgl32.RadToDeg(float32(gomath.Atan2(float64(toSun.X), float64(toSun.Z))))
	return azimuth, elevation
}

// Sun sweeps across the sky, easing toward its target angles on a spring.
type Sun struct {
	Azimuth   float64
	Elevation float64

	TargetAzimuth   float64
	TargetElevation float64

	// Degrees per second added to the target azimuth while running
	Speed   float64
	Running bool

	azVel, elVel float64
	spring       harmonica.Spring
	fps          int
}

// NewSun creates a sun facing along dir, stepped at fps updates per second.
func NewSun(dir math.Vec3, fps int) *Sun {
	if fps <= 0 {
		fps = 60
	}
	az, el := SunAngles(dir)
	return &Sun{
		Azimuth:         float64(az),
		Elevation:       float64(el),
		TargetAzimuth:   float64(az),
		TargetElevation: float64(el),
		Speed:           10,
		spring:          harmonica.NewSpring(harmonica.FPS(fps), 3.0, 1.0),
		fps:             fps,
	}
}

// Update advances the sun one frame.
func (s *Sun) Update() {
	if s.Running {
		s.TargetAzimuth += s.Speed / float64(s.fps)
	}
	s.Azimuth, s.azVel = s.spring.Update(s.Azimuth, s.azVel, s.TargetAzimuth)
	s.Elevation, s.elVel = s.spring.Update(s.Elevation, s.elVel, s.TargetElevation)
}

// SetTarget moves the sun toward new angles in degrees. Elevation stays
// within [1, 89] so the light never grazes the horizon or points straight down.
func (s *Sun) SetTarget(azimuth, elevation float64) {
	s.TargetAzimuth = azimuth
	s.TargetElevation = gomath.Max(1, gomath.Min(89, elevation))
}

// Direction returns the current direction sunlight travels.
func (s *Sun) Direction() math.Vec3 {
	return SunDirection(float32(s.Azimuth), float32(s.Elevation))
}
