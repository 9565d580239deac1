package config

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/midgard-csm/internal/engine/camera"
	"github.com/Faultbox/midgard-csm/internal/engine/lightcam"
	"github.com/Faultbox/midgard-csm/internal/engine/shadow"
	"github.com/Faultbox/midgard-csm/pkg/math"
)

// Direction returns the configured light travel direction.
func (s ShadowConfig) Direction() math.Vec3 {
	d := s.LightDirection
	return math.Vec3{X: d[0], Y: d[1], Z: d[2]}
}

// NewLightCamera builds the configured light camera. NewNFormula only affects
// the lispsm camera; ExplicitN applies to both warping cameras.
func (s ShadowConfig) NewLightCamera() lightcam.LightCamera {
	kind, err := lightcam.ParseKind(s.LightCamera)
	if err != nil {
		kind = lightcam.KindLiSPSM
	}
	cam := lightcam.New(kind)

	switch c := cam.(type) {
	case *lightcam.LiSPSMCamera:
		c.UseNewNFormula = s.NewNFormula
		c.UseExplicitN = s.ExplicitN > 0
		c.ExplicitN = s.ExplicitN
	case *lightcam.OldLiSPSMCamera:
		c.UseExplicitN = s.ExplicitN > 0
		c.ExplicitN = s.ExplicitN
	}
	return cam
}

// Options converts the settings into cascade options. The caller supplies
// the render target factory and the caster callback.
func (s ShadowConfig) Options() shadow.Options {
	form, err := shadow.ParseForm(s.Form)
	if err != nil {
		form = shadow.FormBasic
	}
	opts := shadow.DefaultOptions()
	opts.SplitCount = s.SplitCount
	opts.SplitLambda = s.SplitLambda
	opts.MapSize = int32(s.MapSize)
	opts.Form = form
	opts.LightDirection = s.Direction()
	opts.DepthBias = s.DepthBias
	opts.Builder = lightcam.NewBuilder(s.NewLightCamera())
	return opts
}

// Lens returns the eye projection settings.
func (c CameraConfig) Lens() camera.Lens {
	return camera.Lens{
		FOV:  mgl32.DegToRad(c.FOV),
		Near: c.Near,
		Far:  c.Far,
	}
}

// NewOrbitCamera returns the eye camera placed by the config.
func (c CameraConfig) NewOrbitCamera() *camera.OrbitCamera {
	return camera.NewOrbitCamera(c.Lens(), c.Distance, c.Yaw, c.Pitch)
}

// Box returns the configured scene bounds.
func (s SceneConfig) Box() math.Box {
	return math.Box{
		Min: math.Vec3{X: s.Min[0], Y: s.Min[1], Z: s.Min[2]},
		Max: math.Vec3{X: s.Max[0], Y: s.Max[1], Z: s.Max[2]},
	}
}

// Aspect returns the window width over height.
func (g GraphicsConfig) Aspect() float32 {
	if g.Height <= 0 {
		return 1
	}
	return float32(g.Width) / float32(g.Height)
}
