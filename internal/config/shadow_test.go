package config

import (
	"testing"

	"github.com/Faultbox/midgard-csm/internal/engine/lightcam"
	"github.com/Faultbox/midgard-csm/internal/engine/shadow"
	"github.com/Faultbox/midgard-csm/pkg/math"
)

func TestNewLightCamera(t *testing.T) {
	tests := []struct {
		name  string
		kind  string
		check func(*testing.T, lightcam.LightCamera)
	}{
		{"basic", "basic", func(t *testing.T, c lightcam.LightCamera) {
			if _, ok := c.(*lightcam.BasicCamera); !ok {
				t.Errorf("expected *BasicCamera, got %T", c)
			}
		}},
		{"focused", "Focused", func(t *testing.T, c lightcam.LightCamera) {
			if _, ok := c.(*lightcam.FocusedCamera); !ok {
				t.Errorf("expected *FocusedCamera, got %T", c)
			}
		}},
		{"lispsm", "lispsm", func(t *testing.T, c lightcam.LightCamera) {
			l, ok := c.(*lightcam.LiSPSMCamera)
			if !ok {
				t.Fatalf("expected *LiSPSMCamera, got %T", c)
			}
			if l.UseNewNFormula {
				t.Error("expected new n formula to follow the config")
			}
			if !l.UseExplicitN || l.ExplicitN != 4 {
				t.Errorf("expected explicit n 4, got %v %v", l.UseExplicitN, l.ExplicitN)
			}
		}},
		{"oldlispsm", "oldlispsm", func(t *testing.T, c lightcam.LightCamera) {
			o, ok := c.(*lightcam.OldLiSPSMCamera)
			if !ok {
				t.Fatalf("expected *OldLiSPSMCamera, got %T", c)
			}
			if o.Policy != lightcam.DegeneracyClampN {
				t.Error("expected old camera to keep its clamp policy")
			}
			if o.ExplicitN != 4 {
				t.Errorf("expected explicit n 4, got %v", o.ExplicitN)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default().Shadow
			s.LightCamera = tt.kind
			s.NewNFormula = false
			s.ExplicitN = 4
			tt.check(t, s.NewLightCamera())
		})
	}
}

func TestShadowOptions(t *testing.T) {
	s := Default().Shadow
	s.Form = "variance"
	s.SplitCount = 2
	s.MapSize = 512

	opts := s.Options()
	if opts.Form != shadow.FormVariance {
		t.Errorf("expected variance form, got %v", opts.Form)
	}
	if opts.SplitCount != 2 || opts.MapSize != 512 {
		t.Errorf("unexpected options %+v", opts)
	}
	if opts.Builder == nil {
		t.Error("expected a light camera builder")
	}
	if opts.LightDirection != (math.Vec3{X: 0.3, Y: -1, Z: 0.2}) {
		t.Errorf("unexpected light direction %v", opts.LightDirection)
	}
}

func TestSceneBox(t *testing.T) {
	b := Default().Scene.Box()
	if b.Min != (math.Vec3{X: -50, Y: -50, Z: -50}) || b.Max != (math.Vec3{X: 50, Y: 50, Z: 50}) {
		t.Errorf("unexpected scene box %+v", b)
	}
}

func TestCameraLens(t *testing.T) {
	cam := Default().Camera.NewOrbitCamera()
	if cam.Lens.Near != 1 || cam.Lens.Far != 100 {
		t.Errorf("unexpected lens %+v", cam.Lens)
	}
	if cam.Distance != 30 {
		t.Errorf("expected orbit distance 30, got %f", cam.Distance)
	}
}
