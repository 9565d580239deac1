// Package shadow renders cascaded shadow maps for a directional light.
//
// A CascadeShadowMap splits the eye view into depth ranges, fits a light
// camera to each range and asks the caller to draw shadow casters into one
// render target per split.
package shadow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-csm/internal/engine/lightcam"
	"github.com/Faultbox/midgard-csm/internal/engine/pssm"
	"github.com/Faultbox/midgard-csm/pkg/math"
)

const (
	// MaxSplitCount is the largest number of cascades.
	MaxSplitCount = pssm.MaxSplitCount

	// DefaultMapSize is the default shadow map resolution.
	DefaultMapSize = 2048
	// MaxMapSize is the largest accepted shadow map resolution.
	MaxMapSize = 16384

	// DefaultDepthBias is the constant bias applied to shadow comparisons.
	DefaultDepthBias float32 = 0.001
)

var (
	// ErrOutOfRange is returned for split indices and settings outside their
	// valid range. It matches pssm.ErrOutOfRange.
	ErrOutOfRange = pssm.ErrOutOfRange
	// ErrDestroyed is returned by Draw after Destroy.
	ErrDestroyed = errors.New("cascade shadow map destroyed")
)

// Form selects what a shadow map stores.
type Form int

const (
	FormBasic    Form = iota // Depth only
	FormVariance             // Depth moments, blurred after rendering
)

// String returns the configuration name of the form.
func (f Form) String() string {
	switch f {
	case FormBasic:
		return "basic"
	case FormVariance:
		return "variance"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ParseForm parses a configuration name (case-insensitive).
func ParseForm(s string) (Form, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "basic":
		return FormBasic, nil
	case "variance":
		return FormVariance, nil
	default:
		return 0, fmt.Errorf("unknown shadow map form %q (want basic or variance)", s)
	}
}

// Target is a render target for one split.
type Target interface {
	Bind()
	Unbind()
	Texture() uint32
	Size() int32
	Destroy()
}

// TargetFactory creates a square render target.
type TargetFactory func(size int32, form Form) (Target, error)

// Blurrer smooths a variance shadow map in place.
type Blurrer interface {
	Blur(t Target) error
}

// Eye is the camera whose view is shadowed.
type Eye struct {
	View       math.Mat4
	Projection math.Mat4 // Must be a perspective projection
}

// SplitCamera describes the eye sub-frustum of one split.
type SplitCamera struct {
	Index      int
	View       math.Mat4
	Projection math.Mat4
	Near, Far  float32
}

// Effect holds what a caster shader needs to render one split.
type Effect struct {
	Split               int
	Form                Form
	LightView           math.Mat4
	LightProjection     math.Mat4
	LightViewProjection math.Mat4
	DepthBias           float32
}

// DrawCastersFunc renders shadow casters into the bound target.
type DrawCastersFunc func(cam SplitCamera, effect *Effect)

// Options configures a CascadeShadowMap.
type Options struct {
	SplitCount     int
	SplitLambda    float32
	MapSize        int32
	Form           Form
	LightDirection math.Vec3
	DepthBias      float32

	// Builder computes light matrices. Defaults to a LiSPSM camera.
	Builder lightcam.Builder
	// NewTarget creates render targets lazily on the first Draw. Required.
	NewTarget TargetFactory
	// Blurrer is used for FormVariance. Without one, variance maps are left unblurred.
	Blurrer Blurrer
	// DrawCasters is required.
	DrawCasters DrawCastersFunc
	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultOptions returns three splits, lambda 0.5, 2048 texel depth maps and
// an overhead light.
func DefaultOptions() Options {
	return Options{
		SplitCount:     pssm.DefaultSplitCount,
		SplitLambda:    pssm.DefaultSplitLambda,
		MapSize:        DefaultMapSize,
		Form:           FormBasic,
		LightDirection: math.Vec3{Y: -1},
		DepthBias:      DefaultDepthBias,
	}
}

// CascadeShadowMap renders one shadow map per eye depth split.
type CascadeShadowMap struct {
	id  uuid.UUID
	log *zap.Logger

	splits    *pssm.Cameras
	builder   lightcam.Builder
	newTarget TargetFactory
	blurrer   Blurrer
	draw      DrawCastersFunc

	form      Form
	mapSize   int32
	lightDir  math.Vec3
	depthBias float32

	targets       [MaxSplitCount]Target
	distances     [MaxSplitCount + 1]float32
	lightViewProj [MaxSplitCount]math.Mat4
	destroyed     bool
}

// New creates a cascade shadow map. No render targets are created until the
// first Draw.
func New(opts Options) (*CascadeShadowMap, error) {
	if opts.DrawCasters == nil {
		return nil, errors.New("shadow: DrawCasters callback is required")
	}
	if opts.NewTarget == nil {
		return nil, errors.New("shadow: NewTarget factory is required")
	}

	c := &CascadeShadowMap{
		id:        uuid.New(),
		splits:    pssm.New(),
		builder:   opts.Builder,
		newTarget: opts.NewTarget,
		blurrer:   opts.Blurrer,
		draw:      opts.DrawCasters,
		depthBias: opts.DepthBias,
	}
	if c.builder == nil {
		c.builder = defaultBuilder()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	c.log = log.With(zap.Stringer("csm", c.id))

	if err := c.SetSplitCount(opts.SplitCount); err != nil {
		return nil, err
	}
	if err := c.SetSplitLambda(opts.SplitLambda); err != nil {
		return nil, err
	}
	if err := c.SetShadowMapSize(opts.MapSize); err != nil {
		return nil, err
	}
	if err := c.SetForm(opts.Form); err != nil {
		return nil, err
	}
	if err := c.SetLightDirection(opts.LightDirection); err != nil {
		return nil, err
	}
	for i := range c.lightViewProj {
		c.lightViewProj[i] = math.Identity()
	}

	c.log.Debug("cascade shadow map created",
		zap.Int("splits", opts.SplitCount),
		zap.Int32("size", opts.MapSize),
		zap.Stringer("form", opts.Form))
	return c, nil
}

func defaultBuilder() lightcam.Builder {
	return lightcam.NewBuilder(lightcam.NewLiSPSMCamera())
}

// ID returns the instance identifier used in log fields.
func (c *CascadeShadowMap) ID() uuid.UUID {
	return c.id
}

// Draw renders every split for the eye. sceneBox bounds everything that can
// cast or receive shadows.
func (c *CascadeShadowMap) Draw(eye Eye, sceneBox math.Box) error {
	if c.destroyed {
		return ErrDestroyed
	}

	c.splits.Update(eye.View, eye.Projection, sceneBox)
	c.distances = [MaxSplitCount + 1]float32{}
	copy(c.distances[:], c.splits.Distances())

	count := c.splits.SplitCount()
	for i := 0; i < count; i++ {
		proj, err := c.splits.SplitProjection(i)
		if err != nil {
			return err
		}

		lightView, lightProj := c.builder.Build(lightcam.Params{
			EyeView:        eye.View,
			EyeProjection:  proj,
			LightDirection: c.lightDir,
			SceneBox:       sceneBox,
		})
		c.lightViewProj[i] = lightProj.Mul(lightView)
		if !c.lightViewProj[i].IsFinite() {
			c.log.Warn("non-finite light matrix", zap.Int("split", i))
		}

		target, err := c.target(i)
		if err != nil {
			return err
		}

		target.Bind()
		c.draw(SplitCamera{
			Index:      i,
			View:       eye.View,
			Projection: proj,
			Near:       c.distances[i],
			Far:        c.distances[i+1],
		}, &Effect{
			Split:               i,
			Form:                c.form,
			LightView:           lightView,
			LightProjection:     lightProj,
			LightViewProjection: c.lightViewProj[i],
			DepthBias:           c.depthBias,
		})
		target.Unbind()

		if c.form == FormVariance && c.blurrer != nil {
			if err := c.blurrer.Blur(target); err != nil {
				return fmt.Errorf("blurring split %d: %w", i, err)
			}
		}
	}
	return nil
}

// target returns the render target of split i, creating it if needed.
func (c *CascadeShadowMap) target(i int) (Target, error) {
	if c.targets[i] != nil {
		return c.targets[i], nil
	}
	t, err := c.newTarget(c.mapSize, c.form)
	if err != nil {
		return nil, fmt.Errorf("creating shadow target %d: %w", i, err)
	}
	c.targets[i] = t
	c.log.Debug("shadow target created",
		zap.Int("split", i),
		zap.Int32("size", c.mapSize),
		zap.Stringer("form", c.form))
	return t, nil
}

// Texture returns the texture of split i, or 0 if it has not been drawn.
func (c *CascadeShadowMap) Texture(i int) (uint32, error) {
	if i < 0 || i >= MaxSplitCount {
		return 0, fmt.Errorf("%w: split %d not in [0, %d)", ErrOutOfRange, i, MaxSplitCount)
	}
	if c.targets[i] == nil {
		return 0, nil
	}
	return c.targets[i].Texture(), nil
}

// Target returns the render target of split i, or nil if it has not been
// drawn.
func (c *CascadeShadowMap) Target(i int) (Target, error) {
	if i < 0 || i >= MaxSplitCount {
		return nil, fmt.Errorf("%w: split %d not in [0, %d)", ErrOutOfRange, i, MaxSplitCount)
	}
	return c.targets[i], nil
}

// SplitDistance returns split distance i (0..MaxSplitCount) from the last Draw.
func (c *CascadeShadowMap) SplitDistance(i int) (float32, error) {
	if i < 0 || i > MaxSplitCount {
		return 0, fmt.Errorf("%w: split distance %d not in [0, %d]", ErrOutOfRange, i, MaxSplitCount)
	}
	return c.distances[i], nil
}

// LightViewProjection returns the light view-projection of split i from the
// last Draw.
func (c *CascadeShadowMap) LightViewProjection(i int) (math.Mat4, error) {
	if i < 0 || i >= MaxSplitCount {
		return math.Mat4{}, fmt.Errorf("%w: split %d not in [0, %d)", ErrOutOfRange, i, MaxSplitCount)
	}
	return c.lightViewProj[i], nil
}

// SplitCount returns the number of splits.
func (c *CascadeShadowMap) SplitCount() int {
	return c.splits.SplitCount()
}

// SetSplitCount sets the number of splits (1..MaxSplitCount).
func (c *CascadeShadowMap) SetSplitCount(n int) error {
	return c.splits.SetSplitCount(n)
}

// SplitLambda returns the split blend factor.
func (c *CascadeShadowMap) SplitLambda() float32 {
	return c.splits.SplitLambda()
}

// SetSplitLambda sets the split blend factor (0..1).
func (c *CascadeShadowMap) SetSplitLambda(lambda float32) error {
	return c.splits.SetSplitLambda(lambda)
}

// ShadowMapSize returns the render target resolution.
func (c *CascadeShadowMap) ShadowMapSize() int32 {
	return c.mapSize
}

// SetShadowMapSize sets the render target resolution. Existing targets are
// released and recreated on the next Draw.
func (c *CascadeShadowMap) SetShadowMapSize(size int32) error {
	if size < 1 || size > MaxMapSize {
		return fmt.Errorf("%w: shadow map size %d not in [1, %d]", ErrOutOfRange, size, MaxMapSize)
	}
	if size != c.mapSize {
		c.releaseTargets()
		c.mapSize = size
	}
	return nil
}

// Form returns the shadow map form.
func (c *CascadeShadowMap) Form() Form {
	return c.form
}

// SetForm sets the shadow map form. Existing targets are released.
func (c *CascadeShadowMap) SetForm(f Form) error {
	if f != FormBasic && f != FormVariance {
		return fmt.Errorf("%w: shadow map form %d", ErrOutOfRange, int(f))
	}
	if f != c.form {
		c.releaseTargets()
		c.form = f
	}
	return nil
}

// LightDirection returns the normalized light travel direction.
func (c *CascadeShadowMap) LightDirection() math.Vec3 {
	return c.lightDir
}

// SetLightDirection sets the direction the light travels. It is normalized;
// zero and non-finite vectors are rejected.
func (c *CascadeShadowMap) SetLightDirection(dir math.Vec3) error {
	n := dir.Normalize()
	if n == (math.Vec3{}) || !n.IsFinite() {
		return fmt.Errorf("%w: light direction %v", ErrOutOfRange, dir)
	}
	c.lightDir = n
	return nil
}

// SetBuilder replaces the light camera. nil restores the default.
func (c *CascadeShadowMap) SetBuilder(b lightcam.Builder) {
	if b == nil {
		b = defaultBuilder()
	}
	c.builder = b
}

// SetDepthBias sets the bias passed to caster shaders.
func (c *CascadeShadowMap) SetDepthBias(bias float32) {
	c.depthBias = bias
}

// Destroy releases all render targets. It is safe to call more than once.
func (c *CascadeShadowMap) Destroy() {
	if c.destroyed {
		return
	}
	c.releaseTargets()
	c.destroyed = true
	c.log.Debug("cascade shadow map destroyed")
}

func (c *CascadeShadowMap) releaseTargets() {
	for i, t := range c.targets {
		if t != nil {
			t.Destroy()
			c.targets[i] = nil
		}
	}
}
