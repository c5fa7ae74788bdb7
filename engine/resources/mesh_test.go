package resources

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/math"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

func positionBytes(t *testing.T, points []math.Vec3) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, points))
	return buf.Bytes()
}

func newPointMesh(t *testing.T, session *renderer.Session, points []math.Vec3) *Mesh {
	t.Helper()
	m, err := NewMesh(session, metadata.MeshDesc{
		FaceCount:    1,
		VertexCount:  len(points),
		VertexFormat: metadata.VertexFormatPosition,
	})
	require.NoError(t, err)
	require.NoError(t, m.SetVertexData(positionBytes(t, points)))
	return m
}

func TestMeshEvacuateRestore(t *testing.T) {
	session, _ := newTestSession(t)
	m, err := NewMesh(session, metadata.MeshDesc{
		FaceCount:    2,
		VertexCount:  4,
		VertexFormat: metadata.VertexFormatPositionTextured,
	})
	require.NoError(t, err)

	indices := []byte{0, 0, 1, 0, 2, 0, 2, 0, 3, 0, 0, 0}
	vertices := pattern(4*metadata.VertexFormatPositionTextured.Stride(), 3)
	require.NoError(t, m.SetIndexData(indices))
	require.NoError(t, m.SetVertexData(vertices))
	require.NoError(t, m.SetAttributes([]uint32{0, 1}))

	require.NoError(t, m.evacuate())
	assert.True(t, m.Evacuated())
	assert.Nil(t, m.DeviceMesh())
	assert.Empty(t, m.Vertices())
	_, err = m.BoundingBox()
	assert.ErrorIs(t, err, core.ErrResourceEvacuated)

	require.NoError(t, m.restore())
	assert.True(t, m.Live())

	gotIndices, err := m.IndexData()
	require.NoError(t, err)
	assert.Equal(t, indices, gotIndices)
	gotVertices, err := m.VertexData()
	require.NoError(t, err)
	assert.Equal(t, vertices, gotVertices)
	attributes, err := m.Attributes()
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 1}, attributes)
}

func TestMeshBounds(t *testing.T) {
	session, _ := newTestSession(t)
	m := newPointMesh(t, session, []math.Vec3{
		math.NewVec3(-1, 0, 0), math.NewVec3(3, 2, 0), math.NewVec3(1, -2, 4),
	})

	box, err := m.BoundingBox()
	require.NoError(t, err)
	assert.Equal(t, math.NewVec3(-1, -2, 0), box.Min)
	assert.Equal(t, math.NewVec3(3, 2, 4), box.Max)

	sphere, err := m.BoundingSphere()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sphere.Center.X, 1e-5)
	assert.InDelta(t, 0.0, sphere.Center.Y, 1e-5)

	// new vertices invalidate the cached bounds
	require.NoError(t, m.SetVertexData(positionBytes(t, []math.Vec3{
		math.NewVec3(0, 0, 0), math.NewVec3(1, 1, 1), math.NewVec3(2, 2, 2),
	})))
	box, err = m.BoundingBox()
	require.NoError(t, err)
	assert.Equal(t, math.NewVec3(2, 2, 2), box.Max)
}

func TestMeshBoundingSphereMin(t *testing.T) {
	session, _ := newTestSession(t)

	t.Run("box sphere is smaller", func(t *testing.T) {
		points := make([]math.Vec3, 0, 10)
		for i := 0; i < 9; i++ {
			points = append(points, math.NewVec3(1, 0, 0))
		}
		points = append(points, math.NewVec3(-1, 0, 0))
		m := newPointMesh(t, session, points)
		defer m.Dispose()

		sphere, err := m.BoundingSphere()
		require.NoError(t, err)
		assert.InDelta(t, 1.8, sphere.Radius, 1e-5)

		minSphere, err := m.BoundingSphereMin()
		require.NoError(t, err)
		assert.InDelta(t, 1.0, minSphere.Radius, 1e-5)
		assert.InDelta(t, 0.0, minSphere.Center.X, 1e-5)
	})

	t.Run("centroid sphere is smaller", func(t *testing.T) {
		m := newPointMesh(t, session, []math.Vec3{
			math.NewVec3(1, 0, 0), math.NewVec3(-1, 0, 0),
			math.NewVec3(0, 1, 0), math.NewVec3(0, -1, 0),
		})
		defer m.Dispose()

		minSphere, err := m.BoundingSphereMin()
		require.NoError(t, err)
		assert.InDelta(t, 1.0, minSphere.Radius, 1e-5)
	})

	t.Run("tie goes to the box", func(t *testing.T) {
		m := newPointMesh(t, session, []math.Vec3{math.NewVec3(-2, 0, 0), math.NewVec3(2, 0, 0)})
		defer m.Dispose()

		box, err := m.BoundingBox()
		require.NoError(t, err)
		minSphere, err := m.BoundingSphereMin()
		require.NoError(t, err)
		assert.Equal(t, box.CircumscribedSphere(), minSphere)
	})
}

func TestMeshSetMeshOverridesBounds(t *testing.T) {
	session, driver := newTestSession(t)
	m := newPointMesh(t, session, []math.Vec3{math.NewVec3(0, 0, 0)})
	defer m.Dispose()

	replacement, err := driver.Last().CreateMesh(metadata.MeshDesc{
		FaceCount: 1, VertexCount: 3, VertexFormat: metadata.VertexFormatPosition,
	})
	require.NoError(t, err)
	require.NoError(t, m.SetMesh(replacement, math.NewVec3(1, 1, 1), 5, math.NewVec3(-1, -1, -1), math.NewVec3(3, 3, 3)))

	assert.Equal(t, 3, m.Desc().VertexCount)
	sphere, err := m.BoundingSphereMin()
	require.NoError(t, err)
	assert.Equal(t, math.Sphere{Center: math.NewVec3(1, 1, 1), Radius: 5}, sphere)
	box, err := m.BoundingBox()
	require.NoError(t, err)
	assert.Equal(t, math.NewVec3(3, 3, 3), box.Max)

	assert.Error(t, m.ReplaceMesh(nil))
}

func TestMeshSubsets(t *testing.T) {
	session, _ := newTestSession(t)
	m := newPointMesh(t, session, []math.Vec3{math.NewVec3(0, 0, 0)})
	defer m.Dispose()

	assert.Equal(t, 0, m.SubsetCount())
	assert.NotNil(t, m.Materials())
	assert.NotNil(t, m.Textures())

	materials := []metadata.Material{{Diffuse: metadata.ColorWhite}, {Diffuse: metadata.ColorBlack}}
	require.NoError(t, m.SetSubsets(materials, nil))
	assert.Equal(t, 2, m.SubsetCount())
	assert.Len(t, m.Textures(), 2)

	assert.Error(t, m.SetSubsets(materials, make([]*Texture, 1)))
}

func TestMeshCloneSharesDuplicateTextures(t *testing.T) {
	session, _ := newTestSession(t)
	counters := session.Counters()

	m, err := NewMesh(session, metadata.MeshDesc{
		FaceCount:    3,
		VertexCount:  3,
		VertexFormat: metadata.VertexFormatPositionColored,
	})
	require.NoError(t, err)
	m.OwnsTextures = true

	a, err := NewTexture(session, metadata.TextureDesc{Width: 4, Height: 4, Levels: 1, Format: metadata.FormatA8R8G8B8})
	require.NoError(t, err)
	b, err := NewTexture(session, metadata.TextureDesc{Width: 4, Height: 4, Levels: 1, Format: metadata.FormatA8R8G8B8})
	require.NoError(t, err)
	require.NoError(t, m.SetSubsets(make([]metadata.Material, 4), []*Texture{a, a, b, nil}))

	vertices := []metadata.PositionColored{
		{X: 0, Y: 1, Z: 2, Color: metadata.ColorWhite},
		{X: 3, Y: 4, Z: 5, Color: metadata.ColorBlack},
		{X: 6, Y: 7, Z: 8, Color: metadata.FromRGB(1, 2, 3)},
	}
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, vertices))
	require.NoError(t, m.SetVertexData(buf.Bytes()))
	require.NoError(t, m.SetIndexData([]byte{0, 0, 1, 0, 2, 0}))

	clone, err := m.Clone(metadata.MeshOptionsUse32Bit, metadata.VertexFormatPosition, metadata.FormatA8R8G8B8, metadata.UsageNone, metadata.PoolManaged)
	require.NoError(t, err)

	textures := clone.Textures()
	require.Len(t, textures, 4)
	assert.Same(t, textures[0], textures[1])
	assert.NotSame(t, a, textures[0])
	assert.NotSame(t, textures[0], textures[2])
	assert.Nil(t, textures[3])
	assert.EqualValues(t, 4, counters.Live(core.ResourceKindTexture))

	assert.Equal(t, []math.Vec3{
		math.NewVec3(0, 1, 2), math.NewVec3(3, 4, 5), math.NewVec3(6, 7, 8),
	}, clone.Vertices())

	indices, err := clone.IndexData()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0}, indices[:12])

	m.Dispose()
	assert.EqualValues(t, 2, counters.Live(core.ResourceKindTexture))
	assert.True(t, textures[0].Live())
	clone.Dispose()
	assert.EqualValues(t, 0, counters.Total())
}

func TestMeshDisposeKeepsForeignTextures(t *testing.T) {
	session, _ := newTestSession(t)
	m := newPointMesh(t, session, []math.Vec3{math.NewVec3(0, 0, 0)})
	tex, err := NewTexture(session, metadata.TextureDesc{Width: 2, Height: 2, Levels: 1, Format: metadata.FormatA8R8G8B8})
	require.NoError(t, err)
	require.NoError(t, m.SetSubsets(make([]metadata.Material, 1), []*Texture{tex}))

	m.Dispose()
	m.Dispose()
	assert.True(t, tex.Live())
	assert.Empty(t, m.Textures())
	_, err = m.BoundingSphere()
	assert.ErrorIs(t, err, core.ErrResourceDisposed)
	tex.Dispose()
}
