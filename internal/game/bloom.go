package game

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/colorm"
)

// bloom renders the scene offscreen, then adds a blurred copy of its bright
// parts back on top.
type bloom struct {
	strength  float32
	threshold float32
	radius    float32

	scene  *ebiten.Image
	bright *ebiten.Image
	levels [2]*ebiten.Image
}

// target returns the offscreen image the scene is drawn into.
func (b *bloom) target(w, h int) *ebiten.Image {
	if b.scene == nil || b.scene.Bounds().Dx() != w || b.scene.Bounds().Dy() != h {
		b.resize(w, h)
	}
	b.scene.Clear()
	return b.scene
}

func (b *bloom) resize(w, h int) {
	for _, img := range []*ebiten.Image{b.scene, b.bright, b.levels[0], b.levels[1]} {
		if img != nil {
			img.Deallocate()
		}
	}
	b.scene = ebiten.NewImage(w, h)
	b.bright = ebiten.NewImage(w, h)
	f := b.downscale()
	for i := range b.levels {
		b.levels[i] = ebiten.NewImage(max(1, w/f), max(1, h/f))
		f *= 2
	}
}

// downscale maps the radius to the first blur level's reduction; a wider
// radius samples coarser.
func (b *bloom) downscale() int {
	r := b.radius
	if r <= 0.05 {
		return 2
	}
	return max(2, int(1/r))
}

// composite draws the scene and its glow onto dst.
func (b *bloom) composite(dst *ebiten.Image) {
	dst.DrawImage(b.scene, nil)
	if b.strength <= 0 {
		return
	}

	var cm colorm.ColorM
	k := 1 / float64(max(1-b.threshold, 0.01))
	cm.Scale(k, k, k, 1)
	t := -float64(b.threshold) * k
	cm.Translate(t, t, t, 0)
	b.bright.Clear()
	colorm.DrawImage(b.bright, b.scene, cm, &colorm.DrawImageOptions{})

	src := b.bright
	for _, lvl := range b.levels {
		lvl.Clear()
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear}
		op.GeoM.Scale(
			float64(lvl.Bounds().Dx())/float64(src.Bounds().Dx()),
			float64(lvl.Bounds().Dy())/float64(src.Bounds().Dy()),
		)
		lvl.DrawImage(src, op)
		src = lvl
	}

	w, h := dst.Bounds().Dx(), dst.Bounds().Dy()
	for _, lvl := range b.levels {
		op := &ebiten.DrawImageOptions{Filter: ebiten.FilterLinear, Blend: ebiten.BlendLighter}
		op.GeoM.Scale(float64(w)/float64(lvl.Bounds().Dx()), float64(h)/float64(lvl.Bounds().Dy()))
		s := b.strength / float32(len(b.levels))
		op.ColorScale.Scale(s, s, s, 1)
		dst.DrawImage(lvl, op)
	}
}
