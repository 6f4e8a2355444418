package game

import (
	"image"
	"image/color"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/iburimskiy/bodo-installation/internal/scene"
)

const (
	ambientLight = 0.5
	maxVertices  = 65534
)

var lightDir = mgl32.Vec3{5, 10, 7.5}.Normalize()

var (
	whiteImage    = ebiten.NewImage(3, 3)
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

// face is one projected triangle ready to rasterize.
type face struct {
	pts      [3]mgl32.Vec2
	depth    float32
	color    scene.Color
	alpha    float32
	additive bool
	wire     *scene.Wireframe
}

// renderer rasterizes the scene graph with flat shading and painter's
// ordering.
type renderer struct {
	faces    []face
	vertices []ebiten.Vertex
	indices  []uint16
}

func (r *renderer) draw(dst *ebiten.Image, cam *scene.Camera, root *scene.Node, floor *scene.Points) {
	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	vp := cam.ViewProjection()

	if floor != nil {
		drawPoints(dst, cam, vp, floor, w, h)
	}

	r.faces = r.faces[:0]
	r.collect(root, cam, vp, w, h)
	sort.SliceStable(r.faces, func(i, j int) bool { return r.faces[i].depth > r.faces[j].depth })

	additive := false
	for _, f := range r.faces {
		if f.additive != additive {
			r.flush(dst, additive)
			additive = f.additive
		}
		if len(r.vertices)+3 > maxVertices {
			r.flush(dst, additive)
		}
		r.push(f)
		if f.wire != nil {
			r.flush(dst, additive)
			strokeFace(dst, f)
		}
	}
	r.flush(dst, additive)
}

func (r *renderer) collect(n *scene.Node, cam *scene.Camera, vp mgl32.Mat4, w, h int) {
	if !n.Visible {
		return
	}
	if n.IsMesh() && n.Material != nil && cam.Layers.Test(n.Layers) {
		r.collectMesh(n, cam, vp, w, h)
	}
	for _, c := range n.Children {
		r.collect(c, cam, vp, w, h)
	}
}

func (r *renderer) collectMesh(n *scene.Node, cam *scene.Camera, vp mgl32.Mat4, w, h int) {
	world := n.WorldMatrix()
	mat := n.Material
	for i := 0; i < n.Mesh.Triangles(); i++ {
		a, b, c := n.Mesh.Triangle(i)
		wa := world.Mul4x1(a.Vec4(1)).Vec3()
		wb := world.Mul4x1(b.Vec4(1)).Vec3()
		wc := world.Mul4x1(c.Vec4(1)).Vec3()

		normal := wb.Sub(wa).Cross(wc.Sub(wa))
		if normal.Len() == 0 {
			continue
		}
		normal = normal.Normalize()
		center := wa.Add(wb).Add(wc).Mul(1.0 / 3)
		view := cam.Position.Sub(center).Normalize()
		if normal.Dot(view) < 0 {
			if !mat.DoubleSide {
				continue
			}
			normal = normal.Mul(-1)
		}

		var f face
		var depth float32
		ok := true
		for k, p := range [3]mgl32.Vec3{wa, wb, wc} {
			ndc, d := cam.Project(vp, p)
			if d <= cam.Near {
				ok = false
				break
			}
			f.pts[k] = mgl32.Vec2{(ndc.X() + 1) / 2 * float32(w), (1 - ndc.Y()) / 2 * float32(h)}
			depth += d
		}
		if !ok {
			continue
		}
		f.depth = depth / 3
		f.color, f.alpha = shade(mat, normal, view)
		f.additive = mat.Additive
		f.wire = mat.Wire
		r.faces = append(r.faces, f)
	}
}

// shade returns the flat color of a face lit by the scene's ambient and
// directional light.
func shade(m *scene.Material, normal, view mgl32.Vec3) (scene.Color, float32) {
	switch m.Kind {
	case scene.MaterialFresnel:
		if m.Fresnel == nil {
			return m.Color, m.Opacity
		}
		return m.Fresnel.Shade(m.Fresnel.Reflection(normal, view))
	case scene.MaterialBasic:
		return m.Color, m.Opacity
	}
	diffuse := mgl32.Clamp(normal.Dot(lightDir), 0, 1)
	light := ambientLight + diffuse
	if m.Kind == scene.MaterialStandard {
		// rough metals reflect less of the key light
		light = ambientLight + diffuse*(1-0.5*m.Metalness)*(1-0.3*m.Roughness)
		half := lightDir.Add(view).Normalize()
		spec := mgl32.Clamp(normal.Dot(half), 0, 1)
		spec *= spec * spec * spec * (1 - m.Roughness)
		return m.Color.Scale(light).Mix(scene.White, spec*m.Metalness), m.Opacity
	}
	return m.Color.Scale(light), m.Opacity
}

func (r *renderer) push(f face) {
	base := uint16(len(r.vertices))
	for _, p := range f.pts {
		r.vertices = append(r.vertices, ebiten.Vertex{
			DstX:   p.X(),
			DstY:   p.Y(),
			SrcX:   1,
			SrcY:   1,
			ColorR: f.color.R,
			ColorG: f.color.G,
			ColorB: f.color.B,
			ColorA: f.alpha,
		})
	}
	r.indices = append(r.indices, base, base+1, base+2)
}

func (r *renderer) flush(dst *ebiten.Image, additive bool) {
	if len(r.indices) == 0 {
		return
	}
	op := &ebiten.DrawTrianglesOptions{AntiAlias: true}
	if additive {
		op.Blend = ebiten.BlendLighter
	}
	dst.DrawTriangles(r.vertices, r.indices, whiteSubImage, op)
	r.vertices = r.vertices[:0]
	r.indices = r.indices[:0]
}

func strokeFace(dst *ebiten.Image, f face) {
	c := f.wire.Color.NRGBA(f.wire.Opacity)
	for k := 0; k < 3; k++ {
		a, b := f.pts[k], f.pts[(k+1)%3]
		vector.StrokeLine(dst, a.X(), a.Y(), b.X(), b.Y(), 1, c, true)
	}
}

func drawPoints(dst *ebiten.Image, cam *scene.Camera, vp mgl32.Mat4, p *scene.Points, w, h int) {
	c := p.Color.NRGBA(p.Opacity)
	for _, q := range p.Particles {
		ndc, d := cam.Project(vp, p.Position.Add(q))
		if d <= cam.Near || ndc.X() < -1 || ndc.X() > 1 || ndc.Y() < -1 || ndc.Y() > 1 {
			continue
		}
		x := (ndc.X() + 1) / 2 * float32(w)
		y := (1 - ndc.Y()) / 2 * float32(h)
		// Size is in world units; scale it by distance like a perspective point sprite.
		size := max(1, p.Size*float32(h)/d*10)
		vector.DrawFilledRect(dst, x-size/2, y-size/2, size, size, c, false)
	}
}
