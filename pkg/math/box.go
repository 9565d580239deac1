package math

import "math"

// minExtent is the smallest box extent a projection fit will accept.
const minExtent = 1e-4

// Box is an axis-aligned bounding box.
type Box struct {
	Min Vec3
	Max Vec3
}

// EmptyBox returns an inverted box that any Extend call will replace.
func EmptyBox() Box {
	return Box{
		Min: Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		Max: Vec3{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// BoxFromPoints returns the bounds of points.
func BoxFromPoints(points []Vec3) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// TransformedBounds returns the bounds of points after transforming each by m
// (with perspective divide).
func TransformedBounds(points []Vec3, m Mat4) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.Extend(m.TransformPoint(p))
	}
	return b
}

// IsEmpty reports whether the box contains no points.
func (b Box) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// Extend returns the box grown to include p.
func (b Box) Extend(p Vec3) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Center returns the center point of the box.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the extent along each axis.
func (b Box) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Radius returns the distance from center to corner (half-diagonal).
func (b Box) Radius() float32 {
	return b.Size().Length() / 2
}

// Contains reports whether p lies inside the box, allowing tol slack.
func (b Box) Contains(p Vec3, tol float32) bool {
	return p.X >= b.Min.X-tol && p.X <= b.Max.X+tol &&
		p.Y >= b.Min.Y-tol && p.Y <= b.Max.Y+tol &&
		p.Z >= b.Min.Z-tol && p.Z <= b.Max.Z+tol
}

// Corners returns the eight corner points.
func (b Box) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
	}
}

// Widen returns the box with every axis at least extent wide, grown about its center.
func (b Box) Widen(extent float32) Box {
	widen := func(lo, hi float32) (float32, float32) {
		// Large coordinates need a relative floor or float32 rounding collapses the range.
		e := max(extent, (Abs(lo)+Abs(hi))*1e-5)
		if hi-lo >= e {
			return lo, hi
		}
		mid := (lo + hi) / 2
		return mid - e/2, mid + e/2
	}
	b.Min.X, b.Max.X = widen(b.Min.X, b.Max.X)
	b.Min.Y, b.Max.Y = widen(b.Min.Y, b.Max.Y)
	b.Min.Z, b.Max.Z = widen(b.Min.Z, b.Max.Z)
	return b
}

// Planes returns the six outward-facing planes of the box in the order
// near (+Z at Max), far (-Z at Min), left (-X at Min), right (+X at Max),
// bottom (-Y at Min), top (+Y at Max).
func (b Box) Planes() [6]Plane {
	return [6]Plane{
		{Normal: Vec3{0, 0, 1}, D: -b.Max.Z},
		{Normal: Vec3{0, 0, -1}, D: b.Min.Z},
		{Normal: Vec3{-1, 0, 0}, D: b.Min.X},
		{Normal: Vec3{1, 0, 0}, D: -b.Max.X},
		{Normal: Vec3{0, -1, 0}, D: b.Min.Y},
		{Normal: Vec3{0, 1, 0}, D: -b.Max.Y},
	}
}

// Grow returns the box expanded by d on every side.
func (b Box) Grow(d float32) Box {
	g := Vec3{d, d, d}
	return Box{Min: b.Min.Sub(g), Max: b.Max.Add(g)}
}
