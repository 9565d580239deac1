// Package convex represents convex polytopes as sets of planar polygons and
// clips them against half-spaces.
package convex

import "github.com/Faultbox/midgard-csm/pkg/math"

// Polygon is a planar polygon. Vertex order is the winding: counter-clockwise
// when seen from the side its normal points to.
type Polygon struct {
	Vertices []math.Vec3
}

// NewPolygon creates a polygon from vertices in winding order.
func NewPolygon(vertices ...math.Vec3) *Polygon {
	return &Polygon{Vertices: vertices}
}

// Normal returns the unit normal of the polygon using Newell's method,
// or the zero vector for degenerate polygons.
func (p *Polygon) Normal() math.Vec3 {
	var n math.Vec3
	count := len(p.Vertices)
	for i, cur := range p.Vertices {
		next := p.Vertices[(i+1)%count]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n.Normalize()
}

// Centroid returns the average of the vertices.
func (p *Polygon) Centroid() math.Vec3 {
	var c math.Vec3
	if len(p.Vertices) == 0 {
		return c
	}
	for _, v := range p.Vertices {
		c = c.Add(v)
	}
	return c.Scale(1 / float32(len(p.Vertices)))
}

// Reverse flips the winding in place.
func (p *Polygon) Reverse() {
	v := p.Vertices
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

// Edge is a segment produced where a clip plane cuts a polygon.
type Edge struct {
	A, B math.Vec3
}

// findAndRemoveEdge looks for an edge with an endpoint at tip, removes it from
// edges and returns its other endpoint.
func findAndRemoveEdge(edges *[]Edge, tip math.Vec3) (math.Vec3, bool) {
	list := *edges
	for i, e := range list {
		var other math.Vec3
		switch {
		case math.PointsEqual(e.A, tip):
			other = e.B
		case math.PointsEqual(e.B, tip):
			other = e.A
		default:
			continue
		}
		list[i] = list[len(list)-1]
		*edges = list[:len(list)-1]
		return other, true
	}
	return math.Vec3{}, false
}
