package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeBoundingBox(t *testing.T) {
	pts := []Vec3{{1, 2, 3}, {-1, 5, 0}, {4, -2, 1}}
	ext := ComputeBoundingBox(pts)
	assert.Equal(t, Vec3{-1, -2, 0}, ext.Min)
	assert.Equal(t, Vec3{4, 5, 3}, ext.Max)
	assert.Equal(t, Vec3{1.5, 1.5, 1.5}, ext.Center())

	assert.Equal(t, Extents3D{}, ComputeBoundingBox(nil))
}

func TestComputeBoundingSphere(t *testing.T) {
	pts := []Vec3{{-1, 0, 0}, {1, 0, 0}, {0, 2, 0}, {0, -2, 0}}
	s := ComputeBoundingSphere(pts)
	assert.True(t, s.Center.Compare(Vec3{}, K_FLOAT_EPSILON))
	assert.InDelta(t, 2.0, s.Radius, 1e-6)

	for _, p := range pts {
		assert.LessOrEqual(t, p.Distance(s.Center), s.Radius+1e-6)
	}
}

func TestCircumscribedSphere(t *testing.T) {
	ext := Extents3D{Min: Vec3{0, 0, 0}, Max: Vec3{2, 2, 1}}
	s := ext.CircumscribedSphere()
	assert.Equal(t, Vec3{1, 1, 0.5}, s.Center)
	assert.InDelta(t, 1.5, s.Radius, 1e-6)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 2, Clamp(5, 1, 2))
	assert.Equal(t, 1, Clamp(-3, 1, 2))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}
