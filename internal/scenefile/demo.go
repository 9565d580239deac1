package scenefile

import "github.com/Faultbox/midgard-csm/pkg/math"

// Demo builds a ground plane spanning [-extent, extent] on XZ with a grid of
// boxes of increasing height, for use when no scene file is configured.
func Demo(extent float32) *Scene {
	s := &Scene{Name: "demo", Bounds: math.EmptyBox()}

	s.add(quadMesh("ground",
		math.Vec3{X: -extent, Z: extent},
		math.Vec3{X: extent, Z: extent},
		math.Vec3{X: extent, Z: -extent},
		math.Vec3{X: -extent, Z: -extent}))

	const grid = 5
	step := 2 * extent / grid
	half := step * 0.2
	for i := 0; i < grid; i++ {
		for j := 0; j < grid; j++ {
			c := math.Vec3{
				X: -extent + step*(float32(i)+0.5),
				Z: -extent + step*(float32(j)+0.5),
			}
			h := step * 0.25 * float32(1+(i+j)%4)
			s.add(boxMesh("box", math.Box{
				Min: math.Vec3{X: c.X - half, Y: 0, Z: c.Z - half},
				Max: math.Vec3{X: c.X + half, Y: h, Z: c.Z + half},
			}))
		}
	}
	return s
}

func (s *Scene) add(m Mesh) {
	for _, p := range m.Positions {
		s.Bounds = s.Bounds.Extend(p)
	}
	s.Meshes = append(s.Meshes, m)
}

// quadMesh returns a flat quad wound counter-clockwise as given.
func quadMesh(name string, a, b, c, d math.Vec3) Mesh {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	return Mesh{
		Name:      name,
		Positions: []math.Vec3{a, b, c, d},
		Normals:   []math.Vec3{n, n, n, n},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
	}
}

// boxMesh returns a box with flat-shaded faces wound outward.
func boxMesh(name string, b math.Box) Mesh {
	c := b.Corners()
	faces := [6][4]int{
		{0, 3, 2, 1}, // -Z
		{4, 5, 6, 7}, // +Z
		{0, 4, 7, 3}, // -X
		{1, 2, 6, 5}, // +X
		{0, 1, 5, 4}, // -Y
		{3, 7, 6, 2}, // +Y
	}

	m := Mesh{Name: name}
	for _, f := range faces {
		q := quadMesh(name, c[f[0]], c[f[1]], c[f[2]], c[f[3]])
		base := uint32(len(m.Positions))
		m.Positions = append(m.Positions, q.Positions...)
		m.Normals = append(m.Normals, q.Normals...)
		for _, ix := range q.Indices {
			m.Indices = append(m.Indices, base+ix)
		}
	}
	return m
}
