package scene

import (
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const rayEpsilon = 1e-7

// Ray is a half line in world space; Dir is unit length.
type Ray struct {
	Origin mgl32.Vec3
	Dir    mgl32.Vec3
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 { return r.Origin.Add(r.Dir.Mul(t)) }

// Hit is one ray/mesh intersection.
type Hit struct {
	Node     *Node
	Distance float32
	Point    mgl32.Vec3
}

// Raycaster picks mesh nodes on a set of layers.
type Raycaster struct {
	Ray    Ray
	Layers Layers
}

// NewRaycaster tests layer 0 only until Layers is changed.
func NewRaycaster(r Ray) *Raycaster {
	return &Raycaster{Ray: r, Layers: LayerMask(0)}
}

// Intersect returns the hits in the subtrees of roots, nearest first.
// Invisible subtrees and meshes outside the raycaster layers are skipped.
func (rc *Raycaster) Intersect(roots ...*Node) []Hit {
	var hits []Hit
	for _, root := range roots {
		if root == nil {
			continue
		}
		rc.intersectNode(root, &hits)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	return hits
}

// First returns the nearest hit, if any.
func (rc *Raycaster) First(roots ...*Node) (Hit, bool) {
	hits := rc.Intersect(roots...)
	if len(hits) == 0 {
		return Hit{}, false
	}
	return hits[0], true
}

func (rc *Raycaster) intersectNode(n *Node, hits *[]Hit) {
	if !n.Visible {
		return
	}
	if n.IsMesh() && n.Layers.Test(rc.Layers) {
		if h, ok := rc.intersectMesh(n); ok {
			*hits = append(*hits, h)
		}
	}
	for _, c := range n.Children {
		rc.intersectNode(c, hits)
	}
}

func (rc *Raycaster) intersectMesh(n *Node) (Hit, bool) {
	world := n.WorldMatrix()
	best := math32.Inf(1)
	for i := 0; i < n.Mesh.Triangles(); i++ {
		a, b, c := n.Mesh.Triangle(i)
		a = mgl32.TransformCoordinate(a, world)
		b = mgl32.TransformCoordinate(b, world)
		c = mgl32.TransformCoordinate(c, world)
		if t, ok := intersectTriangle(rc.Ray, a, b, c); ok && t < best {
			best = t
		}
	}
	if math32.IsInf(best, 1) {
		return Hit{}, false
	}
	return Hit{Node: n, Distance: best, Point: rc.Ray.At(best)}, true
}

// intersectTriangle is the Möller–Trumbore test; both faces count.
func intersectTriangle(r Ray, a, b, c mgl32.Vec3) (float32, bool) {
	e1 := b.Sub(a)
	e2 := c.Sub(a)
	p := r.Dir.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t <= rayEpsilon {
		return 0, false
	}
	return t, true
}
