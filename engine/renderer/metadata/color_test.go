package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColor32Channels(t *testing.T) {
	c := NewColor32(0x80, 0x10, 0x20, 0x30)
	assert.Equal(t, Color32(0x80102030), c)
	assert.EqualValues(t, 0x80, c.A())
	assert.EqualValues(t, 0x10, c.R())
	assert.EqualValues(t, 0x20, c.G())
	assert.EqualValues(t, 0x30, c.B())
	assert.Equal(t, Color32(0xFF102030), c.WithAlpha(0xFF))
	assert.Equal(t, Color32(0xFFFFFFFF), ColorWhite)
}

func TestColor32Fade(t *testing.T) {
	from := NewColor32(0, 0, 0, 0)
	to := NewColor32(0xFF, 0xFF, 0xFF, 0xFF)

	assert.Equal(t, from, from.Fade(to, 0))
	assert.Equal(t, to, from.Fade(to, 1))

	half := from.Fade(to, 0.5)
	assert.EqualValues(t, 0x7F, half.R())

	split := from.FadeSplit(to, 1, 0)
	assert.EqualValues(t, 0xFF, split.A())
	assert.EqualValues(t, 0, split.R())
}

func TestFromFloatsSaturates(t *testing.T) {
	c := FromFloats(2, -1, 0.5, 1)
	assert.EqualValues(t, 255, c.A())
	assert.EqualValues(t, 0, c.R())
	assert.EqualValues(t, 128, c.G())
	assert.EqualValues(t, 255, c.B())
}

func TestFormatBitsPerPixel(t *testing.T) {
	assert.Equal(t, 8, FormatL8.BitsPerPixel())
	assert.Equal(t, 16, FormatA4R4G4B4.BitsPerPixel())
	assert.Equal(t, 32, FormatA8R8G8B8.BitsPerPixel())
	assert.Equal(t, 32, FormatUnknown.BitsPerPixel())
	assert.Equal(t, 4*4*4, FormatX8R8G8B8.LevelSize(4, 4))
	assert.Equal(t, "A8R8G8B8", FormatA8R8G8B8.String())
}
