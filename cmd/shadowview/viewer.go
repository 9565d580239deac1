package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csm/internal/config"
	"github.com/Faultbox/midgard-csm/internal/engine/camera"
	"github.com/Faultbox/midgard-csm/internal/engine/debug"
	"github.com/Faultbox/midgard-csm/internal/engine/input"
	"github.com/Faultbox/midgard-csm/internal/engine/lightcam"
	"github.com/Faultbox/midgard-csm/internal/engine/lighting"
	"github.com/Faultbox/midgard-csm/internal/engine/renderer"
	"github.com/Faultbox/midgard-csm/internal/engine/shadow"
	"github.com/Faultbox/midgard-csm/internal/engine/window"
	"github.com/Faultbox/midgard-csm/internal/logger"
	"github.com/Faultbox/midgard-csm/internal/scenefile"
)

const lambdaStep = 0.1

// depthReader is implemented by GPU shadow maps that can be read back.
type depthReader interface {
	ReadDepth() []float32
	Size() int32
}

type viewer struct {
	cfg      *config.Config
	win      *window.Window
	rend     *renderer.Renderer
	csm      *shadow.CascadeShadowMap
	scene    *scenefile.Scene
	cam      *camera.OrbitCamera
	sun      *lighting.Sun
	snapshot *debug.DepthSnapshot
	log      *zap.Logger

	showDebug bool
	lines     []float32
	frame     renderer.Frame
}

func (v *viewer) handleInput(f *input.Frame) {
	if f.DragX != 0 || f.DragY != 0 {
		v.cam.HandleDrag(f.DragX, f.DragY)
	}
	if f.Zoom != 0 {
		v.cam.HandleZoom(f.Zoom)
	}
	if f.Forward != 0 || f.Right != 0 || f.Up != 0 {
		v.cam.HandleMovement(f.Forward, f.Right, f.Up)
	}

	for _, cmd := range f.Commands {
		v.apply(cmd)
	}
}

func (v *viewer) apply(cmd input.Command) {
	var err error
	switch cmd {
	case input.CommandCycleLightCamera:
		kind, _ := lightcam.ParseKind(v.cfg.Shadow.LightCamera)
		kind = (kind + 1) % (lightcam.KindOldLiSPSM + 1)
		v.cfg.Shadow.LightCamera = kind.String()
		v.csm.SetBuilder(lightcam.NewBuilder(v.cfg.Shadow.NewLightCamera()))
		v.log.Info("light camera changed", zap.Stringer("kind", kind))

	case input.CommandToggleForm:
		form := shadow.FormVariance
		if v.csm.Form() == shadow.FormVariance {
			form = shadow.FormBasic
		}
		err = v.csm.SetForm(form)
		v.log.Info("shadow form changed", zap.Stringer("form", form))

	case input.CommandMoreSplits:
		err = v.csm.SetSplitCount(v.csm.SplitCount() + 1)
	case input.CommandFewerSplits:
		err = v.csm.SetSplitCount(v.csm.SplitCount() - 1)

	case input.CommandRaiseLambda:
		err = v.csm.SetSplitLambda(min(v.csm.SplitLambda()+lambdaStep, 1))
	case input.CommandLowerLambda:
		err = v.csm.SetSplitLambda(max(v.csm.SplitLambda()-lambdaStep, 0))

	case input.CommandToggleSun:
		v.sun.Running = !v.sun.Running
	case input.CommandToggleDebug:
		v.showDebug = !v.showDebug
	case input.CommandDumpState:
		v.dumpState()
	}

	if err != nil {
		v.log.Warn("command rejected", zap.Int("command", int(cmd)), zap.Error(err))
	}
}

func (v *viewer) drawFrame() error {
	v.sun.Update()
	if err := v.csm.SetLightDirection(v.sun.Direction()); err != nil {
		v.log.Warn("invalid sun direction", logger.Vec3("dir", v.sun.Direction()), zap.Error(err))
	}

	eye := shadow.Eye{
		View:       v.cam.ViewMatrix(),
		Projection: v.cam.ProjectionMatrix(v.win.Aspect()),
	}

	if err := v.csm.Draw(eye, v.scene.Bounds); err != nil {
		return fmt.Errorf("drawing shadow maps: %w", err)
	}

	v.rend.Begin()
	v.fillFrame(eye)
	v.rend.DrawScene(&v.frame)

	if v.showDebug {
		v.drawDebug(eye)
	}
	return nil
}

func (v *viewer) fillFrame(eye shadow.Eye) {
	f := &v.frame
	f.View = eye.View
	f.Projection = eye.Projection
	f.LightDir = v.csm.LightDirection()
	f.Form = v.csm.Form()
	f.DepthBias = v.cfg.Shadow.DepthBias
	f.SplitCount = v.csm.SplitCount()
	f.ShowSplits = v.showDebug

	for i := range shadow.MaxSplitCount {
		f.SplitFar[i], _ = v.csm.SplitDistance(i + 1)
		f.LightViewProj[i], _ = v.csm.LightViewProjection(i)
		f.Textures[i], _ = v.csm.Texture(i)
		f.SplitTints[i] = debug.SplitColor(i)
	}
}

func (v *viewer) drawDebug(eye shadow.Eye) {
	viewProj := eye.Projection.Mul(eye.View)

	v.lines = debug.BoxLines(v.lines[:0], v.scene.Bounds)
	v.rend.DrawLines(v.lines, [3]float32{1, 1, 0}, viewProj)

	for i := 0; i < v.csm.SplitCount(); i++ {
		lvp, err := v.csm.LightViewProjection(i)
		if err != nil {
			continue
		}
		v.lines = debug.FrustumLines(v.lines[:0], lvp)
		v.rend.DrawLines(v.lines, debug.SplitColor(i), viewProj)
	}
}

// dumpState logs the cascade matrices and writes every split's depth to PNG.
func (v *viewer) dumpState() {
	v.log.Info("cascade state",
		zap.Int("splits", v.csm.SplitCount()),
		zap.Float32("lambda", v.csm.SplitLambda()),
		zap.Stringer("form", v.csm.Form()),
		zap.String("light_camera", v.cfg.Shadow.LightCamera),
		logger.Vec3("light_dir", v.csm.LightDirection()),
		logger.Vec3("eye", v.cam.Position()),
	)

	for i := 0; i < v.csm.SplitCount(); i++ {
		near, _ := v.csm.SplitDistance(i)
		far, _ := v.csm.SplitDistance(i + 1)
		lvp, _ := v.csm.LightViewProjection(i)
		v.log.Info("split",
			zap.Int("index", i),
			zap.Float32("near", near),
			zap.Float32("far", far),
			logger.Mat4("light_view_proj", lvp),
		)

		t, err := v.csm.Target(i)
		if err != nil || t == nil {
			continue
		}
		r, ok := t.(depthReader)
		if !ok {
			continue
		}
		path, err := v.snapshot.Save(i, r.ReadDepth(), int(r.Size()))
		if err != nil {
			v.log.Warn("depth snapshot failed", zap.Int("split", i), zap.Error(err))
			continue
		}
		v.log.Info("depth snapshot saved", zap.String("path", path))
	}
}

func (v *viewer) title(fps float64) string {
	return fmt.Sprintf("%s | %s | %s | %d splits | λ %.1f | %.0f fps",
		windowTitle, v.cfg.Shadow.LightCamera, v.csm.Form(), v.csm.SplitCount(), v.csm.SplitLambda(), fps)
}
