package shadow

import (
	"errors"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Faultbox/midgard-csm/internal/engine/lightcam"
	"github.com/Faultbox/midgard-csm/pkg/math"
)

type fakeTarget struct {
	size      int32
	form      Form
	tex       uint32
	binds     int
	unbinds   int
	destroyed int
}

func (t *fakeTarget) Bind()           { t.binds++ }
func (t *fakeTarget) Unbind()         { t.unbinds++ }
func (t *fakeTarget) Texture() uint32 { return t.tex }
func (t *fakeTarget) Size() int32     { return t.size }
func (t *fakeTarget) Destroy()        { t.destroyed++ }

type fakeFactory struct {
	created []*fakeTarget
	err     error
}

func (f *fakeFactory) New(size int32, form Form) (Target, error) {
	if f.err != nil {
		return nil, f.err
	}
	t := &fakeTarget{size: size, form: form, tex: uint32(len(f.created) + 1)}
	f.created = append(f.created, t)
	return t, nil
}

type fakeBlurrer struct {
	blurred []Target
	err     error
}

func (b *fakeBlurrer) Blur(t Target) error {
	b.blurred = append(b.blurred, t)
	return b.err
}

type drawCall struct {
	cam    SplitCamera
	effect Effect
}

type harness struct {
	factory *fakeFactory
	blurrer *fakeBlurrer
	calls   []drawCall
	opts    Options
}

func newHarness(t *testing.T) *harness {
	h := &harness{factory: &fakeFactory{}, blurrer: &fakeBlurrer{}}
	h.opts = DefaultOptions()
	h.opts.NewTarget = h.factory.New
	h.opts.Blurrer = h.blurrer
	h.opts.Logger = zaptest.NewLogger(t)
	h.opts.DrawCasters = func(cam SplitCamera, effect *Effect) {
		h.calls = append(h.calls, drawCall{cam: cam, effect: *effect})
	}
	return h
}

func (h *harness) build(t *testing.T) *CascadeShadowMap {
	t.Helper()
	c, err := New(h.opts)
	require.NoError(t, err)
	return c
}

// testEye looks down -Z from the origin with near 1 and far 100.
func testEye() Eye {
	return Eye{
		View:       math.LookAt(math.Vec3{}, math.Vec3{Z: -1}, math.Vec3{Y: 1}),
		Projection: math.Perspective(float32(gomath.Pi/3), 1, 1, 100),
	}
}

var testScene = math.Box{
	Min: math.Vec3{X: -50, Y: -50, Z: -50},
	Max: math.Vec3{X: 50, Y: 50, Z: 50},
}

func TestNewRequiresDrawCasters(t *testing.T) {
	opts := DefaultOptions()
	_, err := New(opts)
	assert.Error(t, err)
}

func TestNewValidatesOptions(t *testing.T) {
	cases := map[string]func(*Options){
		"split count":  func(o *Options) { o.SplitCount = 4 },
		"split lambda": func(o *Options) { o.SplitLambda = 2 },
		"map size":     func(o *Options) { o.MapSize = 0 },
		"form":         func(o *Options) { o.Form = Form(7) },
		"light":        func(o *Options) { o.LightDirection = math.Vec3{} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			mutate(&h.opts)
			_, err := New(h.opts)
			assert.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestDrawEndToEnd(t *testing.T) {
	h := newHarness(t)
	c := h.build(t)

	require.NoError(t, c.Draw(testEye(), testScene))

	d0, err := c.SplitDistance(0)
	require.NoError(t, err)
	assert.InDelta(t, 1, d0, 1e-4)
	d3, err := c.SplitDistance(3)
	require.NoError(t, err)
	assert.InDelta(t, 51, d3, 1e-2)

	for i := 0; i < 3; i++ {
		m, err := c.LightViewProjection(i)
		require.NoError(t, err)
		assert.True(t, m.IsFinite(), "split %d", i)
		assert.NotEqual(t, math.Identity(), m, "split %d", i)
	}

	require.Len(t, h.calls, 3)
	for i, call := range h.calls {
		assert.Equal(t, i, call.cam.Index)
		assert.Equal(t, i, call.effect.Split)
		assert.Equal(t, FormBasic, call.effect.Form)
		assert.Equal(t, DefaultDepthBias, call.effect.DepthBias)

		near, _ := c.SplitDistance(i)
		far, _ := c.SplitDistance(i + 1)
		assert.Equal(t, near, call.cam.Near)
		assert.Equal(t, far, call.cam.Far)
		assert.Less(t, call.cam.Near, call.cam.Far)

		lvp, _ := c.LightViewProjection(i)
		assert.Equal(t, lvp, call.effect.LightViewProjection)
		assert.Equal(t, call.effect.LightProjection.Mul(call.effect.LightView), lvp)
	}

	require.Len(t, h.factory.created, 3)
	for i, target := range h.factory.created {
		assert.Equal(t, 1, target.binds, "target %d", i)
		assert.Equal(t, 1, target.unbinds, "target %d", i)
		assert.Equal(t, int32(DefaultMapSize), target.size)
		assert.Equal(t, FormBasic, target.form)

		tex, err := c.Texture(i)
		require.NoError(t, err)
		assert.Equal(t, target.tex, tex)
	}
	assert.Empty(t, h.blurrer.blurred)
}

func TestDrawReusesTargets(t *testing.T) {
	h := newHarness(t)
	c := h.build(t)

	require.NoError(t, c.Draw(testEye(), testScene))
	require.NoError(t, c.Draw(testEye(), testScene))

	assert.Len(t, h.factory.created, 3)
	assert.Len(t, h.calls, 6)
	for _, target := range h.factory.created {
		assert.Equal(t, 2, target.binds)
	}
}

func TestVarianceBlursEverySplit(t *testing.T) {
	h := newHarness(t)
	h.opts.Form = FormVariance
	h.opts.SplitCount = 2
	c := h.build(t)

	require.NoError(t, c.Draw(testEye(), testScene))

	require.Len(t, h.blurrer.blurred, 2)
	for i, target := range h.factory.created {
		assert.Equal(t, FormVariance, target.form)
		assert.Same(t, target, h.blurrer.blurred[i])
	}
	for _, call := range h.calls {
		assert.Equal(t, FormVariance, call.effect.Form)
	}
}

func TestVarianceWithoutBlurrer(t *testing.T) {
	h := newHarness(t)
	h.opts.Form = FormVariance
	h.opts.Blurrer = nil
	c := h.build(t)

	assert.NoError(t, c.Draw(testEye(), testScene))
	assert.Len(t, h.calls, 3)
}

func TestDrawPropagatesErrors(t *testing.T) {
	targetErr := errors.New("out of video memory")
	h := newHarness(t)
	h.factory.err = targetErr
	c := h.build(t)
	assert.ErrorIs(t, c.Draw(testEye(), testScene), targetErr)

	blurErr := errors.New("blur failed")
	h = newHarness(t)
	h.opts.Form = FormVariance
	h.blurrer.err = blurErr
	c = h.build(t)
	assert.ErrorIs(t, c.Draw(testEye(), testScene), blurErr)
}

func TestGetterRanges(t *testing.T) {
	c := newHarness(t).build(t)

	_, err := c.Texture(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = c.Texture(MaxSplitCount)
	assert.ErrorIs(t, err, ErrOutOfRange)
	tex, err := c.Texture(0)
	require.NoError(t, err)
	assert.Zero(t, tex)

	_, err = c.Target(MaxSplitCount)
	assert.ErrorIs(t, err, ErrOutOfRange)
	target, err := c.Target(0)
	require.NoError(t, err)
	assert.Nil(t, target)

	_, err = c.SplitDistance(-1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = c.SplitDistance(MaxSplitCount + 1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = c.SplitDistance(MaxSplitCount)
	assert.NoError(t, err)

	_, err = c.LightViewProjection(MaxSplitCount)
	assert.ErrorIs(t, err, ErrOutOfRange)
	m, err := c.LightViewProjection(0)
	require.NoError(t, err)
	assert.Equal(t, math.Identity(), m)
}

func TestSettersReleaseTargets(t *testing.T) {
	h := newHarness(t)
	c := h.build(t)
	require.NoError(t, c.Draw(testEye(), testScene))
	first := h.factory.created

	require.NoError(t, c.SetShadowMapSize(DefaultMapSize))
	for _, target := range first {
		assert.Zero(t, target.destroyed, "same size must keep targets")
	}

	require.NoError(t, c.SetShadowMapSize(1024))
	for _, target := range first {
		assert.Equal(t, 1, target.destroyed)
	}
	assert.Equal(t, int32(1024), c.ShadowMapSize())

	require.NoError(t, c.Draw(testEye(), testScene))
	require.Len(t, h.factory.created, 6)
	assert.Equal(t, int32(1024), h.factory.created[3].size)

	require.NoError(t, c.SetForm(FormVariance))
	for _, target := range h.factory.created[3:] {
		assert.Equal(t, 1, target.destroyed)
	}
	assert.ErrorIs(t, c.SetShadowMapSize(MaxMapSize+1), ErrOutOfRange)
	assert.ErrorIs(t, c.SetForm(Form(-1)), ErrOutOfRange)
	assert.Equal(t, FormVariance, c.Form())
}

func TestSetLightDirection(t *testing.T) {
	c := newHarness(t).build(t)

	require.NoError(t, c.SetLightDirection(math.Vec3{X: 3, Y: -4}))
	dir := c.LightDirection()
	assert.InDelta(t, 0.6, dir.X, 1e-6)
	assert.InDelta(t, -0.8, dir.Y, 1e-6)

	assert.ErrorIs(t, c.SetLightDirection(math.Vec3{}), ErrOutOfRange)
	assert.Equal(t, dir, c.LightDirection())
}

func TestSplitSettings(t *testing.T) {
	c := newHarness(t).build(t)

	require.NoError(t, c.SetSplitCount(1))
	assert.Equal(t, 1, c.SplitCount())
	assert.ErrorIs(t, c.SetSplitCount(0), ErrOutOfRange)

	require.NoError(t, c.SetSplitLambda(0.9))
	assert.Equal(t, float32(0.9), c.SplitLambda())
	assert.ErrorIs(t, c.SetSplitLambda(-1), ErrOutOfRange)
}

type recordingBuilder struct {
	params []lightcam.Params
	view   math.Mat4
	proj   math.Mat4
}

func (b *recordingBuilder) Build(p lightcam.Params) (math.Mat4, math.Mat4) {
	b.params = append(b.params, p)
	return b.view, b.proj
}

func TestCustomBuilder(t *testing.T) {
	b := &recordingBuilder{
		view: math.Translate(1, 2, 3),
		proj: math.Scale(2, 2, 2),
	}
	h := newHarness(t)
	h.opts.Builder = b
	h.opts.LightDirection = math.Vec3{X: 1, Y: -1}
	c := h.build(t)
	eye := testEye()

	require.NoError(t, c.Draw(eye, testScene))

	require.Len(t, b.params, 3)
	for i, p := range b.params {
		assert.Equal(t, eye.View, p.EyeView)
		assert.Equal(t, h.calls[i].cam.Projection, p.EyeProjection)
		assert.Equal(t, testScene, p.SceneBox)
		assert.Equal(t, c.LightDirection(), p.LightDirection)

		m, err := c.LightViewProjection(i)
		require.NoError(t, err)
		assert.Equal(t, b.proj.Mul(b.view), m)
	}

	// nil restores the default camera.
	c.SetBuilder(nil)
	require.NoError(t, c.Draw(eye, testScene))
	assert.Len(t, b.params, 3)
}

func TestDestroyIsIdempotent(t *testing.T) {
	h := newHarness(t)
	c := h.build(t)
	require.NoError(t, c.Draw(testEye(), testScene))

	c.Destroy()
	c.Destroy()

	for _, target := range h.factory.created {
		assert.Equal(t, 1, target.destroyed)
	}
	assert.ErrorIs(t, c.Draw(testEye(), testScene), ErrDestroyed)
}

func TestInstancesHaveDistinctIDs(t *testing.T) {
	h := newHarness(t)
	a := h.build(t)
	b := h.build(t)
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestParseForm(t *testing.T) {
	for _, f := range []Form{FormBasic, FormVariance} {
		got, err := ParseForm(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}
	_, err := ParseForm("exponential")
	assert.Error(t, err)
}
