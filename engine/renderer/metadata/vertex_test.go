package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/core"
)

func TestVertexFormatLayout(t *testing.T) {
	assert.Equal(t, 16, VertexFormatPositionColored.Stride())
	assert.Equal(t, 20, VertexFormatPositionTextured.Stride())
	assert.Equal(t, 32, VertexFormatPositionNormalTextured.Stride())

	assert.Equal(t, 0, VertexFormatPositionNormalTextured.Offset(VertexFormatPosition))
	assert.Equal(t, 12, VertexFormatPositionNormalTextured.Offset(VertexFormatNormal))
	assert.Equal(t, 24, VertexFormatPositionNormalTextured.Offset(VertexFormatTexture1))
	assert.Equal(t, -1, VertexFormatPositionTextured.Offset(VertexFormatDiffuse))
	assert.Equal(t, "position|tex1", VertexFormatPositionTextured.String())
}

func TestConvertVertices(t *testing.T) {
	src := make([]byte, 2*VertexFormatPositionTextured.Stride())
	for i := range src {
		src[i] = byte(i + 1)
	}
	dst := ConvertVertices(src, VertexFormatPositionTextured, VertexFormatPositionNormalTextured, 2)
	require.Len(t, dst, 64)

	// position copied, normal zeroed, uv copied
	assert.Equal(t, src[0:12], dst[0:12])
	assert.Equal(t, make([]byte, 12), dst[12:24])
	assert.Equal(t, src[12:20], dst[24:32])
	assert.Equal(t, src[20:32], dst[32:44])
	assert.Equal(t, src[32:40], dst[56:64])
}

func TestVertexProcessingFlags(t *testing.T) {
	f, err := VertexProcessingPureHardware.CreateFlags()
	require.NoError(t, err)
	assert.Equal(t, CreateHardwareVertexProcessing|CreatePureDevice, f)

	_, err = VertexProcessing(42).CreateFlags()
	assert.ErrorIs(t, err, core.ErrInvalidVertexProcessing)

	v, err := ParseVertexProcessing("mixed")
	require.NoError(t, err)
	assert.Equal(t, VertexProcessingMixed, v)
}

func TestMipChain(t *testing.T) {
	assert.Equal(t, 1, MipChainLength(1, 1))
	assert.Equal(t, 4, MipChainLength(8, 2))
	d := MipLevelDesc(8, 2, 2, FormatA8R8G8B8)
	assert.Equal(t, LevelDesc{Width: 2, Height: 1, Format: FormatA8R8G8B8}, d)
	assert.Equal(t, 8, d.Size())
}

func TestGetAligned(t *testing.T) {
	assert.Equal(t, uint64(0), GetAligned(0, 4))
	assert.Equal(t, uint64(4), GetAligned(1, 4))
	assert.Equal(t, uint64(8), GetAligned(8, 4))
	assert.Equal(t, uint64(256), GetAligned(129, 256))
}
