package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 200, A: 255})
		}
	}
	return img
}

func TestBuildImageByteOrder(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 4})

	data := BuildImage(img, metadata.ImageResourceParams{})
	require.Len(t, data.Levels, 1)
	assert.Equal(t, []uint8{3, 2, 1, 4}, data.Levels[0].Pixels)
	assert.True(t, data.HasTransparency)
}

func TestBuildImageMipChain(t *testing.T) {
	data := BuildImage(gradient(8, 2), metadata.ImageResourceParams{GenerateMips: true})

	require.Len(t, data.Levels, metadata.MipChainLength(8, 2))
	sizes := [][2]int{{8, 2}, {4, 1}, {2, 1}, {1, 1}}
	for i, want := range sizes {
		assert.Equal(t, want[0], data.Levels[i].Width, "level %d", i)
		assert.Equal(t, want[1], data.Levels[i].Height, "level %d", i)
		assert.Len(t, data.Levels[i].Pixels, want[0]*want[1]*4)
	}
	assert.False(t, data.HasTransparency)
}

func TestBuildImageFlipY(t *testing.T) {
	img := gradient(2, 3)
	data := BuildImage(img, metadata.ImageResourceParams{FlipY: true})

	// Green grows with y, so the first row now carries the last row's value.
	px := data.Levels[0].Pixels
	assert.Equal(t, uint8(20), px[1])
	assert.Equal(t, uint8(0), px[len(px)-4+1])
}

func TestImageLoaderDecodesFiles(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "grad.png")
	f, err := os.Create(pngPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, gradient(4, 4)))
	require.NoError(t, f.Close())

	bmpPath := filepath.Join(dir, "grad.bmp")
	f, err = os.Create(bmpPath)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, gradient(4, 4)))
	require.NoError(t, f.Close())

	loader := &ImageLoader{}
	for _, path := range []string{pngPath, bmpPath} {
		res, err := loader.Load(path, nil)
		require.NoError(t, err, path)
		data, ok := res.Data.(*metadata.ImageResourceData)
		require.True(t, ok)
		assert.Len(t, data.Levels, 3)
		assert.Equal(t, uint64(4*4*4+2*2*4+4), res.DataSize)

		require.NoError(t, loader.Unload(res))
		assert.Nil(t, res.Data)
	}

	res, err := loader.Load(pngPath, &metadata.ImageResourceParams{})
	require.NoError(t, err)
	assert.Len(t, res.Data.(*metadata.ImageResourceData).Levels, 1)
}

func TestImageLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	loader := &ImageLoader{}

	_, err := loader.Load(filepath.Join(dir, "missing.png"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	junk := filepath.Join(dir, "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	_, err = loader.Load(junk, nil)
	assert.ErrorContains(t, err, "decode image")
}

func TestBinaryLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quad.vb")
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o644))

	res, err := (&BinaryLoader{}).Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, res.Data)
	assert.Equal(t, uint64(3), res.DataSize)
}
