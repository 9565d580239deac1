// Package scenefile loads glTF scenes into flat world-space triangle meshes
// and reports their bounds.
package scenefile

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-csm/pkg/math"
)

// ErrNoGeometry is returned when a scene holds no triangle positions.
var ErrNoGeometry = errors.New("scene has no geometry")

// Mesh is one glTF primitive baked into world space.
type Mesh struct {
	Name      string
	Positions []math.Vec3
	Normals   []math.Vec3
	Indices   []uint32
}

// Scene is every triangle primitive reachable from the default scene.
type Scene struct {
	Name   string
	Meshes []Mesh
	Bounds math.Box
}

// Triangles returns the total triangle count.
func (s *Scene) Triangles() int {
	n := 0
	for i := range s.Meshes {
		n += len(s.Meshes[i].Indices) / 3
	}
	return n
}

// Load reads a .gltf or .glb file.
func Load(path string) (*Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	s, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if s.Name == "" {
		s.Name = filepath.Base(path)
	}
	return s, nil
}

// Bounds returns the world-space bounds of the file at path.
func Bounds(path string) (math.Box, error) {
	s, err := Load(path)
	if err != nil {
		return math.EmptyBox(), err
	}
	return s.Bounds, nil
}

// FromDocument walks the default scene graph of doc. Documents without
// scenes contribute every root node.
func FromDocument(doc *gltf.Document) (*Scene, error) {
	s := &Scene{Bounds: math.EmptyBox()}

	for _, root := range rootNodes(doc) {
		if err := s.visit(doc, root, mgl32.Ident4(), 0); err != nil {
			return nil, err
		}
	}
	if s.Bounds.IsEmpty() {
		return nil, ErrNoGeometry
	}
	return s, nil
}

func rootNodes(doc *gltf.Document) []int {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil && *doc.Scene < len(doc.Scenes) {
			idx = *doc.Scene
		}
		return doc.Scenes[idx].Nodes
	}

	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if c < len(child) {
				child[c] = true
			}
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !child[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// maxDepth bounds the node walk so cyclic documents terminate.
const maxDepth = 64

func (s *Scene) visit(doc *gltf.Document, idx int, parent mgl32.Mat4, depth int) error {
	if idx < 0 || idx >= len(doc.Nodes) {
		return fmt.Errorf("node %d out of range", idx)
	}
	if depth > maxDepth {
		return fmt.Errorf("node %d: hierarchy deeper than %d", idx, maxDepth)
	}
	node := doc.Nodes[idx]
	world := parent.Mul4(localTransform(node))

	if node.Mesh != nil {
		if *node.Mesh >= len(doc.Meshes) {
			return fmt.Errorf("node %d: mesh %d out of range", idx, *node.Mesh)
		}
		if err := s.addMesh(doc, doc.Meshes[*node.Mesh], world); err != nil {
			return fmt.Errorf("node %d: %w", idx, err)
		}
	}
	for _, c := range node.Children {
		if err := s.visit(doc, c, world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func localTransform(n *gltf.Node) mgl32.Mat4 {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var out mgl32.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	sc := n.ScaleOrDefault()
	rot := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
	return mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2])).
		Mul4(rot.Normalize().Mat4()).
		Mul4(mgl32.Scale3D(float32(sc[0]), float32(sc[1]), float32(sc[2])))
}

func (s *Scene) addMesh(doc *gltf.Document, m *gltf.Mesh, world mgl32.Mat4) error {
	normalMat := world.Mat3().Inv().Transpose()

	for pi, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok || posIdx >= len(doc.Accessors) {
			continue
		}

		raw, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return fmt.Errorf("mesh %q primitive %d: read positions: %w", m.Name, pi, err)
		}

		out := Mesh{
			Name:      m.Name,
			Positions: make([]math.Vec3, len(raw)),
		}
		for i, p := range raw {
			wp := mgl32.TransformCoordinate(mgl32.Vec3(p), world)
			out.Positions[i] = math.FromVec(wp)
			s.Bounds = s.Bounds.Extend(out.Positions[i])
		}

		if prim.Indices != nil && *prim.Indices < len(doc.Accessors) {
			out.Indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return fmt.Errorf("mesh %q primitive %d: read indices: %w", m.Name, pi, err)
			}
		} else {
			out.Indices = make([]uint32, len(raw)-len(raw)%3)
			for i := range out.Indices {
				out.Indices[i] = uint32(i)
			}
		}
		for _, ix := range out.Indices {
			if int(ix) >= len(out.Positions) {
				return fmt.Errorf("mesh %q primitive %d: index %d out of range", m.Name, pi, ix)
			}
		}

		if nIdx, ok := prim.Attributes[gltf.NORMAL]; ok && nIdx < len(doc.Accessors) {
			rawN, err := modeler.ReadNormal(doc, doc.Accessors[nIdx], nil)
			if err != nil {
				return fmt.Errorf("mesh %q primitive %d: read normals: %w", m.Name, pi, err)
			}
			if len(rawN) == len(raw) {
				out.Normals = make([]math.Vec3, len(rawN))
				for i, n := range rawN {
					out.Normals[i] = math.FromVec(normalMat.Mul3x1(mgl32.Vec3(n))).Normalize()
				}
			}
		}
		if out.Normals == nil {
			out.Normals = smoothNormals(out.Positions, out.Indices)
		}

		s.Meshes = append(s.Meshes, out)
	}
	return nil
}

// smoothNormals averages area-weighted face normals at each vertex.
func smoothNormals(pos []math.Vec3, idx []uint32) []math.Vec3 {
	normals := make([]math.Vec3, len(pos))
	for i := 0; i+2 < len(idx); i += 3 {
		a, b, c := pos[idx[i]], pos[idx[i+1]], pos[idx[i+2]]
		n := b.Sub(a).Cross(c.Sub(a))
		for _, k := range idx[i : i+3] {
			normals[k] = normals[k].Add(n)
		}
	}
	for i := range normals {
		normals[i] = normals[i].Normalize()
	}
	return normals
}
