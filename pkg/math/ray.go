package math

import "math"

// Ray represents a ray in 3D space with origin and direction.
// Direction need not be normalized; distances are in units of its length.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// At returns the point at parameter t.
func (r Ray) At(t float32) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// IntersectPlane returns the parameter where the ray meets the plane.
// ok is false when the ray is parallel to the plane.
func (r Ray) IntersectPlane(pl Plane) (t float32, ok bool) {
	denom := pl.Normal.Dot(r.Direction)
	if denom == 0 {
		return 0, false
	}
	return -pl.Distance(r.Origin) / denom, true
}

// IntersectBox clips the ray against the box slabs and returns the entry and
// exit parameters. ok is false if the ray misses the box. A ray starting inside
// the box has tmin < 0.
func (r Ray) IntersectBox(box Box) (tmin, tmax float32, ok bool) {
	tmin = float32(-math.MaxFloat32)
	tmax = float32(math.MaxFloat32)

	slab := func(origin, dir, lo, hi float32) bool {
		if dir == 0 {
			return origin >= lo && origin <= hi
		}
		t1 := (lo - origin) / dir
		t2 := (hi - origin) / dir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		return tmin <= tmax
	}

	if !slab(r.Origin.X, r.Direction.X, box.Min.X, box.Max.X) ||
		!slab(r.Origin.Y, r.Direction.Y, box.Min.Y, box.Max.Y) ||
		!slab(r.Origin.Z, r.Direction.Z, box.Min.Z, box.Max.Z) {
		return 0, 0, false
	}
	return tmin, tmax, true
}
