// Package scene is a small retained-mode scene graph: named nodes with
// transforms, triangle meshes and flat materials, a perspective camera,
// layer-filtered ray picking, clip playback and a particle ground grid.
//
// Nothing here talks to the GPU; the host renderer walks the graph each frame.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Layers is a visibility/picking bit mask. Layer 0 is the default layer of
// every node; interactive meshes are moved to their own layer.
type Layers uint32

// Set makes the mask contain only layer n.
func (l *Layers) Set(n int) { *l = 1 << uint(n) }

// Enable adds layer n to the mask.
func (l *Layers) Enable(n int) { *l |= 1 << uint(n) }

// Test reports whether the masks share any layer.
func (l Layers) Test(o Layers) bool { return l&o != 0 }

// LayerMask returns a mask containing only layer n.
func LayerMask(n int) Layers { return 1 << uint(n) }

// MaterialKind selects the shading the renderer applies.
type MaterialKind int

const (
	MaterialBasic MaterialKind = iota // unlit flat color
	MaterialLambert
	MaterialStandard
	MaterialFresnel
)

// Material holds the surface properties of a mesh node.
type Material struct {
	Kind       MaterialKind
	Color      Color
	Opacity    float32
	Metalness  float32
	Roughness  float32
	DoubleSide bool
	Additive   bool

	// Wire draws the triangle edges on top of the surface when set.
	Wire *Wireframe

	// Fresnel points at the shared uniforms of a fresnel material.
	Fresnel *FresnelUniforms
}

// Wireframe is an edge overlay drawn over a mesh.
type Wireframe struct {
	Color   Color
	Opacity float32
}

// Mesh is an indexed triangle list in node-local space.
type Mesh struct {
	Positions []mgl32.Vec3
	Indices   []uint32
}

// Triangles returns the number of triangles in the mesh.
func (m *Mesh) Triangles() int {
	if m == nil {
		return 0
	}
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Positions) / 3
}

// Triangle returns the local-space corners of triangle i.
func (m *Mesh) Triangle(i int) (a, b, c mgl32.Vec3) {
	if len(m.Indices) > 0 {
		return m.Positions[m.Indices[3*i]], m.Positions[m.Indices[3*i+1]], m.Positions[m.Indices[3*i+2]]
	}
	return m.Positions[3*i], m.Positions[3*i+1], m.Positions[3*i+2]
}

// Node is an element of the scene graph.
type Node struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Visible  bool
	Layers   Layers

	Mesh     *Mesh
	Material *Material

	Parent   *Node
	Children []*Node
}

// NewNode returns a visible node with identity transform on layer 0.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		Visible:  true,
		Layers:   LayerMask(0),
	}
}

// NewMeshNode returns a node carrying mesh and a basic white material.
func NewMeshNode(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	n.Material = &Material{Kind: MaterialBasic, Color: White, Opacity: 1}
	return n
}

// Add appends child to n and returns the child.
func (n *Node) Add(child *Node) *Node {
	if child.Parent != nil {
		child.Parent.remove(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
	return child
}

func (n *Node) remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// IsMesh reports whether the node draws geometry.
func (n *Node) IsMesh() bool { return n.Mesh != nil }

// Traverse calls fn for n and every descendant, depth first.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// Meshes calls fn for every mesh node in the subtree.
func (n *Node) Meshes(fn func(*Node)) {
	n.Traverse(func(c *Node) {
		if c.IsMesh() {
			fn(c)
		}
	})
}

// FindByName returns the first node in the subtree named name.
func (n *Node) FindByName(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if f := c.FindByName(name); f != nil {
			return f
		}
	}
	return nil
}

// Contains reports whether o is n or one of its descendants.
func (n *Node) Contains(o *Node) bool {
	for p := o; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// LocalMatrix composes translation, rotation and scale.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z())
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(n.Rotation.Mat4()).Mul4(s)
}

// WorldMatrix returns the node transform composed with all ancestors.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// SetColor recolors every mesh in the subtree.
func (n *Node) SetColor(c Color) {
	n.Meshes(func(m *Node) {
		if m.Material != nil {
			m.Material.Color = c
		}
	})
}

// SetLayer moves every mesh in the subtree to layer l only.
func (n *Node) SetLayer(l int) {
	n.Meshes(func(m *Node) { m.Layers.Set(l) })
}
