package assets

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// OpenModel reads a .glb/.gltf file into a scene subtree plus its clips.
func OpenModel(path string) (*scene.Node, []scene.Clip, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return Decode(doc)
}

// Decode converts the default scene of doc into a node tree rooted at an
// unnamed group. Triangle primitives of a mesh are merged into one Mesh on
// the node that references it; other primitive modes are dropped. Every
// index in doc is checked, so a malformed document yields an error.
func Decode(doc *gltf.Document) (*scene.Node, []scene.Clip, error) {
	root := scene.NewNode("")
	nodes := map[int]*scene.Node{}

	if len(doc.Scenes) > 0 {
		si := 0
		if doc.Scene != nil {
			si = *doc.Scene
		}
		if si < 0 || si >= len(doc.Scenes) || doc.Scenes[si] == nil {
			return nil, nil, fmt.Errorf("scene %d out of range", si)
		}
		sc := doc.Scenes[si]
		root.Name = sc.Name
		for _, idx := range sc.Nodes {
			n, err := decodeNode(doc, idx, nodes)
			if err != nil {
				return nil, nil, err
			}
			root.Add(n)
		}
	}

	clips, err := decodeClips(doc, nodes)
	if err != nil {
		return nil, nil, err
	}
	return root, clips, nil
}

// decodeNode decodes node idx and its subtree. nodes collects every decoded
// node by index; meeting an index twice means a cycle or a shared child.
func decodeNode(doc *gltf.Document, idx int, nodes map[int]*scene.Node) (*scene.Node, error) {
	if idx < 0 || idx >= len(doc.Nodes) || doc.Nodes[idx] == nil {
		return nil, fmt.Errorf("node %d out of range", idx)
	}
	if _, seen := nodes[idx]; seen {
		return nil, fmt.Errorf("node %d referenced twice", idx)
	}
	gn := doc.Nodes[idx]
	n := scene.NewNode(gn.Name)
	nodes[idx] = n

	if hasMatrix(gn.Matrix) {
		n.Position, n.Rotation, n.Scale = decompose(gn.Matrix)
	} else {
		n.Position = mgl32.Vec3{float32(gn.Translation[0]), float32(gn.Translation[1]), float32(gn.Translation[2])}
		r := gn.Rotation
		if q := (mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}); q.Len() > 0 {
			n.Rotation = q
		}
		s := gn.Scale
		if v := (mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}); v != (mgl32.Vec3{}) {
			n.Scale = v
		}
	}

	if gn.Mesh != nil {
		mi := *gn.Mesh
		if mi < 0 || mi >= len(doc.Meshes) || doc.Meshes[mi] == nil {
			return nil, fmt.Errorf("node %q: mesh %d out of range", gn.Name, mi)
		}
		mesh, err := decodeMesh(doc, doc.Meshes[mi])
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", gn.Name, err)
		}
		if mesh.Triangles() > 0 {
			n.Mesh = mesh
			n.Material = &scene.Material{Kind: scene.MaterialStandard, Color: scene.White, Opacity: 1}
		}
	}

	for _, c := range gn.Children {
		child, err := decodeNode(doc, c, nodes)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

// hasMatrix reports whether m carries a transform. Decoded nodes default to
// identity, nodes built in code to all zeros.
func hasMatrix(m [16]float64) bool {
	return m != gltf.DefaultMatrix && m != [16]float64{}
}

// decompose splits a column-major affine matrix into TRS.
func decompose(m [16]float64) (mgl32.Vec3, mgl32.Quat, mgl32.Vec3) {
	var mat mgl32.Mat4
	for i, v := range m {
		mat[i] = float32(v)
	}
	t := mat.Col(3).Vec3()
	s := mgl32.Vec3{mat.Col(0).Vec3().Len(), mat.Col(1).Vec3().Len(), mat.Col(2).Vec3().Len()}
	if mat.Det() < 0 {
		s[0] = -s[0]
	}
	var rot mgl32.Mat4
	for c := 0; c < 3; c++ {
		if s[c] == 0 {
			return t, mgl32.QuatIdent(), s
		}
		col := mat.Col(c).Vec3().Mul(1 / s[c])
		rot.SetCol(c, col.Vec4(0))
	}
	rot.SetCol(3, mgl32.Vec4{0, 0, 0, 1})
	return t, mgl32.Mat4ToQuat(rot).Normalize(), s
}

func accessor(doc *gltf.Document, idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(doc.Accessors) || doc.Accessors[idx] == nil {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return doc.Accessors[idx], nil
}

func decodeMesh(doc *gltf.Document, gm *gltf.Mesh) (*scene.Mesh, error) {
	mesh := &scene.Mesh{}
	for _, prim := range gm.Primitives {
		if prim == nil || prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		posAcc, err := accessor(doc, posIdx)
		if err != nil {
			return nil, fmt.Errorf("mesh %q positions: %w", gm.Name, err)
		}
		pos, err := modeler.ReadPosition(doc, posAcc, nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %q positions: %w", gm.Name, err)
		}

		base := uint32(len(mesh.Positions))
		for _, p := range pos {
			mesh.Positions = append(mesh.Positions, mgl32.Vec3(p))
		}

		if prim.Indices == nil {
			for i := range pos {
				mesh.Indices = append(mesh.Indices, base+uint32(i))
			}
			continue
		}
		idxAcc, err := accessor(doc, *prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("mesh %q indices: %w", gm.Name, err)
		}
		idx, err := modeler.ReadIndices(doc, idxAcc, nil)
		if err != nil {
			return nil, fmt.Errorf("mesh %q indices: %w", gm.Name, err)
		}
		for _, i := range idx {
			if int(i) >= len(pos) {
				return nil, fmt.Errorf("mesh %q: index %d out of range", gm.Name, i)
			}
			mesh.Indices = append(mesh.Indices, base+i)
		}
		if len(idx)%3 != 0 {
			mesh.Indices = mesh.Indices[:len(mesh.Indices)-len(idx)%3]
		}
	}
	return mesh, nil
}

// decodeClips reads every animation. A clip lasts as long as its longest
// sampler input. Channels are bound to the decoded nodes; channels aimed at
// nodes outside the scene, at morph weights, or with non-float outputs are
// skipped.
func decodeClips(doc *gltf.Document, nodes map[int]*scene.Node) ([]scene.Clip, error) {
	clips := make([]scene.Clip, 0, len(doc.Animations))
	for i, a := range doc.Animations {
		if a == nil {
			continue
		}
		clip := scene.Clip{Name: a.Name}
		if clip.Name == "" {
			clip.Name = fmt.Sprintf("clip%d", i)
		}
		times := make([][]float32, len(a.Samplers))
		for si, s := range a.Samplers {
			if s == nil {
				return nil, fmt.Errorf("animation %q: sampler %d missing", clip.Name, si)
			}
			ts, err := readTimes(doc, s.Input)
			if err != nil {
				return nil, fmt.Errorf("animation %q: %w", clip.Name, err)
			}
			times[si] = ts
			for _, t := range ts {
				clip.Duration = max(clip.Duration, t)
			}
		}
		for _, ch := range a.Channels {
			if ch == nil {
				continue
			}
			tr, ok, err := decodeTrack(doc, a, ch, times, nodes)
			if err != nil {
				return nil, fmt.Errorf("animation %q: %w", clip.Name, err)
			}
			if ok {
				clip.Tracks = append(clip.Tracks, tr)
			}
		}
		clips = append(clips, clip)
	}
	return clips, nil
}

func readTimes(doc *gltf.Document, idx int) ([]float32, error) {
	acc, err := accessor(doc, idx)
	if err != nil {
		return nil, err
	}
	raw, err := modeler.ReadAccessor(doc, acc, nil)
	if err != nil {
		return nil, err
	}
	ts, ok := raw.([]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d: keyframe times are not float scalars", idx)
	}
	return ts, nil
}

func decodeTrack(doc *gltf.Document, a *gltf.Animation, ch *gltf.AnimationChannel, times [][]float32, nodes map[int]*scene.Node) (scene.Track, bool, error) {
	var tr scene.Track
	if ch.Sampler < 0 || ch.Sampler >= len(a.Samplers) {
		return tr, false, fmt.Errorf("sampler %d out of range", ch.Sampler)
	}
	if ch.Target.Node == nil {
		return tr, false, nil
	}
	target, ok := nodes[*ch.Target.Node]
	if !ok {
		return tr, false, nil
	}
	switch ch.Target.Path {
	case gltf.TRSTranslation:
		tr.Path = scene.TrackTranslation
	case gltf.TRSRotation:
		tr.Path = scene.TrackRotation
	case gltf.TRSScale:
		tr.Path = scene.TrackScale
	default:
		return tr, false, nil
	}

	s := a.Samplers[ch.Sampler]
	acc, err := accessor(doc, s.Output)
	if err != nil {
		return tr, false, err
	}
	raw, err := modeler.ReadAccessor(doc, acc, nil)
	if err != nil {
		return tr, false, err
	}
	var values [][4]float32
	switch v := raw.(type) {
	case [][3]float32:
		values = make([][4]float32, len(v))
		for i, x := range v {
			values[i] = [4]float32{x[0], x[1], x[2], 0}
		}
	case [][4]float32:
		values = v
	default:
		return tr, false, nil
	}
	if s.Interpolation == gltf.InterpolationCubicSpline {
		// in-tangent, value, out-tangent per keyframe
		keep := make([][4]float32, 0, len(values)/3)
		for i := 1; i < len(values); i += 3 {
			keep = append(keep, values[i])
		}
		values = keep
	}
	ts := times[ch.Sampler]
	if len(values) != len(ts) {
		return tr, false, fmt.Errorf("sampler %d: %d keyframes, %d values", ch.Sampler, len(ts), len(values))
	}

	tr.Target = target
	tr.Step = s.Interpolation == gltf.InterpolationStep
	tr.Times = ts
	tr.Values = values
	return tr, true, nil
}
