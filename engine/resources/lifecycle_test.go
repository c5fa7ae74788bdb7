package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
	"github.com/spaghettifunk/rekindle/engine/renderer/software"
)

func TestVertexBufferSurvivesDeviceLoss(t *testing.T) {
	session, driver := newTestSession(t)
	counters := session.Counters()

	vb, err := NewVertexBuffer(session, metadata.VertexFormatPositionColored, 100, metadata.UsageWriteOnly, metadata.PoolDefault)
	require.NoError(t, err)
	data := pattern(vb.Size(), 42)
	require.NoError(t, vb.SetData(data))
	first := driver.Last()

	// listeners run in subscription order, so this one sees the handle after its own
	var liveDuringLoss, evacuatedDuringLoss bool
	var objectsDuringLoss int
	session.Subscribe(renderer.EventLost, func(*renderer.Session) error {
		liveDuringLoss = vb.Live()
		evacuatedDuringLoss = vb.Evacuated()
		objectsDuringLoss = first.LiveObjects()
		return nil
	})

	recreate(t, session)

	assert.False(t, liveDuringLoss)
	assert.True(t, evacuatedDuringLoss)
	assert.Equal(t, 0, objectsDuringLoss)
	assert.True(t, first.Closed())
	assert.NotSame(t, first, driver.Last())

	assert.True(t, vb.Live())
	assert.False(t, vb.Evacuated())
	got, err := vb.Data()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	vb.Dispose()
	assert.EqualValues(t, 0, counters.Total())
	assert.Equal(t, 0, driver.Last().LiveObjects())
}

func TestRestoreFailureKeepsShadow(t *testing.T) {
	session, driver := newTestSession(t)
	swapChain := driver.UsedVideoMemory()

	vb, err := NewVertexBuffer(session, metadata.VertexFormatPositionColored, 100, metadata.UsageNone, metadata.PoolDefault)
	require.NoError(t, err)
	data := pattern(vb.Size(), 5)
	require.NoError(t, vb.SetData(data))

	driver.SetVideoMemory(swapChain + 16)
	err = session.ForceDeviceUpdate()
	require.ErrorIs(t, err, core.ErrRestoreIncomplete)
	var allocErr *core.AllocationError
	assert.ErrorAs(t, err, &allocErr)
	assert.Equal(t, renderer.DrawStateReadyToDraw, session.State())
	assert.False(t, vb.Live())
	assert.True(t, vb.Evacuated())

	driver.SetVideoMemory(0)
	require.NoError(t, session.ForceDeviceUpdate())
	got, err := vb.Data()
	require.NoError(t, err)
	assert.Equal(t, data, got)
	vb.Dispose()
}

func TestCreateWithoutDevice(t *testing.T) {
	session, err := renderer.NewSession(nil, software.New(software.Config{}), renderer.NewHeadlessHost(64, 64), metadata.DefaultDeviceSettings())
	require.NoError(t, err)

	_, err = NewIndexBuffer(session, metadata.FormatIndex16, 3, metadata.UsageNone, metadata.PoolDefault)
	assert.ErrorIs(t, err, core.ErrNoDevice)
	_, err = NewTexture(session, metadata.TextureDesc{Width: 1, Height: 1, Format: metadata.FormatA8R8G8B8})
	assert.ErrorIs(t, err, core.ErrNoDevice)
	_, err = NewMesh(session, metadata.MeshDesc{FaceCount: 1, VertexCount: 1, VertexFormat: metadata.VertexFormatPosition})
	assert.ErrorIs(t, err, core.ErrNoDevice)
	assert.EqualValues(t, 0, session.Counters().Total())
}

func TestEveryKindSurvivesShutdownAndDispose(t *testing.T) {
	session, _ := newTestSession(t)
	counters := session.Counters()

	vb, err := NewVertexBuffer(session, metadata.VertexFormatPosition, 3, metadata.UsageNone, metadata.PoolDefault)
	require.NoError(t, err)
	ib, err := NewIndexBuffer(session, metadata.FormatIndex32, 3, metadata.UsageNone, metadata.PoolDefault)
	require.NoError(t, err)
	tex, err := NewTexture(session, metadata.TextureDesc{Width: 8, Height: 8, Format: metadata.FormatA8R8G8B8})
	require.NoError(t, err)
	mesh, err := NewMesh(session, metadata.MeshDesc{FaceCount: 1, VertexCount: 3, VertexFormat: metadata.VertexFormatPosition})
	require.NoError(t, err)
	assert.Equal(t, "vertex buffer=1 index buffer=1 texture=1 mesh=1", counters.String())

	// shutdown evacuates everything, and nothing comes back
	require.NoError(t, session.Shutdown())
	assert.True(t, vb.Evacuated())
	assert.True(t, ib.Evacuated())
	assert.True(t, tex.Evacuated())
	assert.True(t, mesh.Evacuated())
	assert.ErrorIs(t, session.Setup(), core.ErrSessionClosed)

	vb.Dispose()
	ib.Dispose()
	tex.Dispose()
	mesh.Dispose()
	assert.EqualValues(t, 0, counters.Total())
	for code := renderer.EventLoaded; code <= renderer.EventRender2D; code++ {
		assert.Equal(t, 0, session.Subscribers(code), code.String())
	}
}
