package game

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"

	"github.com/iburimskiy/bodo-installation/internal/scene"
)

func TestShadeBasicIsUnlit(t *testing.T) {
	m := &scene.Material{Kind: scene.MaterialBasic, Color: scene.Hex(0x462cab), Opacity: 0.4}
	c, a := shade(m, mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, 1})
	assert.Equal(t, m.Color, c)
	assert.Equal(t, float32(0.4), a)
}

func TestShadeLambertFacesLight(t *testing.T) {
	m := &scene.Material{Kind: scene.MaterialLambert, Color: scene.Hex(0x808080), Opacity: 1}
	lit, _ := shade(m, lightDir, mgl32.Vec3{0, 0, 1})
	away, _ := shade(m, lightDir.Mul(-1), mgl32.Vec3{0, 0, 1})

	assert.Greater(t, lit.R, away.R)
	assert.InDelta(t, m.Color.R*ambientLight, away.R, 1e-6)
}

func TestBloomDownscale(t *testing.T) {
	assert.Equal(t, 2, (&bloom{radius: 0}).downscale())
	assert.Equal(t, 4, (&bloom{radius: 0.25}).downscale())
	assert.Equal(t, 2, (&bloom{radius: 1}).downscale())
}
