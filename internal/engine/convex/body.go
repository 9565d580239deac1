package convex

import "github.com/Faultbox/midgard-csm/pkg/math"

// frustumFaces lists the corner indices of the near, far, left, right, bottom
// and top faces. Define reorders each so its normal faces outward.
var frustumFaces = [6][4]int{
	{math.NearBottomLeft, math.NearBottomRight, math.NearTopRight, math.NearTopLeft},
	{math.FarBottomLeft, math.FarBottomRight, math.FarTopRight, math.FarTopLeft},
	{math.NearBottomLeft, math.NearTopLeft, math.FarTopLeft, math.FarBottomLeft},
	{math.NearBottomRight, math.FarBottomRight, math.FarTopRight, math.NearTopRight},
	{math.NearBottomLeft, math.FarBottomLeft, math.FarBottomRight, math.NearBottomRight},
	{math.NearTopLeft, math.NearTopRight, math.FarTopRight, math.FarTopLeft},
}

// Body is a closed convex polytope made of planar polygons.
// An empty body means everything was clipped away.
type Body struct {
	polygons []*Polygon
	edges    []Edge
}

// Define replaces the body with the six faces of a view frustum.
func (b *Body) Define(f math.Frustum) {
	b.polygons = b.polygons[:0]
	center := f.Center()
	for _, face := range frustumFaces {
		poly := NewPolygon(
			f.Corners[face[0]],
			f.Corners[face[1]],
			f.Corners[face[2]],
			f.Corners[face[3]],
		)
		if poly.Normal().Dot(poly.Centroid().Sub(center)) < 0 {
			poly.Reverse()
		}
		b.polygons = append(b.polygons, poly)
	}
}

// Polygons returns the current faces. The slice is owned by the body.
func (b *Body) Polygons() []*Polygon {
	return b.polygons
}

// Len returns the number of faces.
func (b *Body) Len() int {
	return len(b.polygons)
}

// IsEmpty reports whether the body was clipped away entirely.
func (b *Body) IsEmpty() bool {
	return len(b.polygons) == 0
}

// AppendPoints appends the distinct vertices of the body to dst.
func (b *Body) AppendPoints(dst []math.Vec3) []math.Vec3 {
	start := len(dst)
	for _, poly := range b.polygons {
	next:
		for _, v := range poly.Vertices {
			for _, seen := range dst[start:] {
				if math.PointsEqual(seen, v) {
					continue next
				}
			}
			dst = append(dst, v)
		}
	}
	return dst
}

// Bounds returns the axis-aligned bounds of the body.
func (b *Body) Bounds() math.Box {
	box := math.EmptyBox()
	for _, poly := range b.polygons {
		for _, v := range poly.Vertices {
			box = box.Extend(v)
		}
	}
	return box
}

// ClipBox clips the body against the six faces of box.
func (b *Body) ClipBox(box math.Box) {
	for _, pl := range box.Planes() {
		b.ClipPlane(pl)
	}
}

// ClipPlane removes the part of the body on the outside of pl (the side its
// normal points to) and closes the cut with a capping polygon.
func (b *Body) ClipPlane(pl math.Plane) {
	b.edges = b.edges[:0]

	kept := b.polygons[:0]
	for _, poly := range b.polygons {
		if clipPolygon(poly, pl, &b.edges) {
			kept = append(kept, poly)
		}
	}
	for i := len(kept); i < len(b.polygons); i++ {
		b.polygons[i] = nil
	}
	b.polygons = kept

	if len(b.edges) < 3 {
		return
	}
	if capping := b.chainEdges(pl); capping != nil {
		b.polygons = append(b.polygons, capping)
	}
}

// chainEdges links the collected intersection edges tip to tail into one
// polygon lying on pl. If the chain breaks before all edges are used the
// remaining edges are dropped.
func (b *Body) chainEdges(pl math.Plane) *Polygon {
	edges := b.edges
	first := edges[len(edges)-1]
	edges = edges[:len(edges)-1]

	vertices := []math.Vec3{first.A, first.B}
	tip := first.B
	for len(edges) > 0 {
		next, ok := findAndRemoveEdge(&edges, tip)
		if !ok {
			break
		}
		if math.PointsEqual(next, vertices[0]) {
			break
		}
		if math.PointsEqual(next, tip) {
			continue
		}
		vertices = append(vertices, next)
		tip = next
	}
	if len(vertices) < 3 {
		return nil
	}

	capping := NewPolygon(vertices...)
	n := capping.Normal()
	if n == (math.Vec3{}) {
		return nil
	}
	if !math.DirectionsEqual(n, pl.Normal) {
		capping.Reverse()
	}
	return capping
}

// clipPolygon clips poly in place against pl and records the cut segment in
// edges. It reports whether the polygon still has at least three vertices.
func clipPolygon(poly *Polygon, pl math.Plane, edges *[]Edge) bool {
	in := poly.Vertices
	if len(in) == 0 {
		return false
	}

	out := make([]math.Vec3, 0, len(in)+1)
	var cuts [2]math.Vec3
	numCuts := 0
	cut := func(a, b math.Vec3) {
		p := intersect(a, b, pl)
		out = appendDistinct(out, p)
		if numCuts < len(cuts) {
			cuts[numCuts] = p
		}
		numCuts++
	}

	prev := in[len(in)-1]
	prevOut := pl.Distance(prev) > math.PlaneTolerance
	for _, cur := range in {
		curOut := pl.Distance(cur) > math.PlaneTolerance
		switch {
		case prevOut && curOut:
		case prevOut:
			cut(prev, cur)
			out = appendDistinct(out, cur)
		case curOut:
			cut(prev, cur)
		default:
			out = appendDistinct(out, cur)
		}
		prev, prevOut = cur, curOut
	}
	if len(out) > 1 && math.PointsEqual(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}

	if numCuts >= 2 && !math.PointsEqual(cuts[0], cuts[1]) {
		*edges = append(*edges, Edge{A: cuts[0], B: cuts[1]})
	}

	poly.Vertices = out
	return len(out) >= 3
}

// intersect returns where the segment a→b crosses pl.
func intersect(a, b math.Vec3, pl math.Plane) math.Vec3 {
	ray := math.Ray{Origin: a, Direction: b.Sub(a)}
	t, ok := ray.IntersectPlane(pl)
	if !ok {
		return a
	}
	return ray.At(min(max(t, 0), 1))
}

func appendDistinct(dst []math.Vec3, p math.Vec3) []math.Vec3 {
	if n := len(dst); n > 0 && math.PointsEqual(dst[n-1], p) {
		return dst
	}
	return append(dst, p)
}
