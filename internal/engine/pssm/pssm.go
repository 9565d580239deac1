// Package pssm splits the eye view depth range into parallel-split shadow map
// cascades using the practical split scheme.
package pssm

import (
	"errors"
	"fmt"
	gomath "math"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

const (
	// MaxSplitCount is the largest supported number of splits.
	MaxSplitCount = 3

	// DefaultSplitCount and DefaultSplitLambda are used by New.
	DefaultSplitCount  = 3
	DefaultSplitLambda = 0.5

	// minRange keeps the adjusted far distance strictly beyond near.
	minRange = 1e-3
)

// ErrOutOfRange is returned for split counts, lambdas or indices outside
// their valid range.
var ErrOutOfRange = errors.New("value out of range")

// Cameras computes split distances and per-split eye projections.
type Cameras struct {
	splitCount  int
	splitLambda float32

	view        math.Mat4
	near, far   float32
	distances   [MaxSplitCount + 1]float32
	projections [MaxSplitCount]math.Mat4
}

// New returns split cameras with 3 splits and lambda 0.5.
func New() *Cameras {
	return &Cameras{
		splitCount:  DefaultSplitCount,
		splitLambda: DefaultSplitLambda,
		view:        math.Identity(),
	}
}

// SplitCount returns the number of splits.
func (c *Cameras) SplitCount() int {
	return c.splitCount
}

// SetSplitCount sets the number of splits (1..MaxSplitCount).
func (c *Cameras) SetSplitCount(n int) error {
	if n < 1 || n > MaxSplitCount {
		return fmt.Errorf("%w: split count %d not in [1, %d]", ErrOutOfRange, n, MaxSplitCount)
	}
	c.splitCount = n
	return nil
}

// SplitLambda returns the blend between uniform (0) and logarithmic (1) splits.
func (c *Cameras) SplitLambda() float32 {
	return c.splitLambda
}

// SetSplitLambda sets the split blend factor (0..1).
func (c *Cameras) SetSplitLambda(lambda float32) error {
	if !(lambda >= 0 && lambda <= 1) {
		return fmt.Errorf("%w: split lambda %g not in [0, 1]", ErrOutOfRange, lambda)
	}
	c.splitLambda = lambda
	return nil
}

// Update recomputes split distances and projections for an eye using a
// perspective projection. The far distance is shortened to the farthest
// scene box corner when the scene ends before the far plane.
func (c *Cameras) Update(view, projection math.Mat4, sceneBox math.Box) {
	fovY, aspect, near, far := math.PerspectiveParams(projection)
	c.view = view
	c.near = near
	c.far = adjustedFar(view, near, far, sceneBox)

	n, f := float64(c.near), float64(c.far)
	m := c.splitCount
	lambda := float64(c.splitLambda)

	c.distances = [MaxSplitCount + 1]float32{}
	c.distances[0] = c.near
	c.distances[m] = c.far
	for i := 1; i < m; i++ {
		t := float64(i) / float64(m)
		log := n * gomath.Pow(f/n, t)
		uniform := n + (f-n)*t
		c.distances[i] = float32(lambda*log + (1-lambda)*uniform)
	}

	c.projections = [MaxSplitCount]math.Mat4{}
	for i := 0; i < m; i++ {
		c.projections[i] = math.Perspective(fovY, aspect, c.distances[i], c.distances[i+1])
	}
}

// adjustedFar returns min(far, near - the smallest view-space Z of the box
// corners), floored so the range stays positive.
func adjustedFar(view math.Mat4, near, far float32, box math.Box) float32 {
	if box.IsEmpty() {
		return far
	}
	minZ := float32(gomath.MaxFloat32)
	for _, corner := range box.Corners() {
		minZ = min(minZ, view.TransformPoint(corner).Z)
	}
	return max(min(far, near-minZ), near+minRange)
}

// Near returns the eye near distance from the last update.
func (c *Cameras) Near() float32 {
	return c.near
}

// Far returns the adjusted far distance from the last update.
func (c *Cameras) Far() float32 {
	return c.far
}

// View returns the eye view from the last update.
func (c *Cameras) View() math.Mat4 {
	return c.view
}

// Distances returns the SplitCount+1 split distances.
func (c *Cameras) Distances() []float32 {
	return c.distances[:c.splitCount+1]
}

// Projections returns the SplitCount per-split projections.
func (c *Cameras) Projections() []math.Mat4 {
	return c.projections[:c.splitCount]
}

// SplitDistance returns distance i (0..SplitCount).
func (c *Cameras) SplitDistance(i int) (float32, error) {
	if i < 0 || i > c.splitCount {
		return 0, fmt.Errorf("%w: split distance %d not in [0, %d]", ErrOutOfRange, i, c.splitCount)
	}
	return c.distances[i], nil
}

// SplitProjection returns the eye projection of split i (0..SplitCount-1).
func (c *Cameras) SplitProjection(i int) (math.Mat4, error) {
	if i < 0 || i >= c.splitCount {
		return math.Mat4{}, fmt.Errorf("%w: split %d not in [0, %d)", ErrOutOfRange, i, c.splitCount)
	}
	return c.projections[i], nil
}
