package resources

import (
	"encoding/binary"

	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

// pixelCodec reads and writes one pixel of a format as an ARGB color.
type pixelCodec struct {
	size   int
	decode func(p []byte) metadata.Color32
	encode func(p []byte, c metadata.Color32)
}

func expand(v uint32, bits uint) uint8 {
	top := uint32(1)<<bits - 1
	return uint8(v * 255 / top)
}

func shrink(v uint8, bits uint) uint32 {
	top := uint32(1)<<bits - 1
	return (uint32(v)*top + 127) / 255
}

var pixelCodecs = map[metadata.Format]pixelCodec{
	metadata.FormatA8R8G8B8: {4,
		func(p []byte) metadata.Color32 { return metadata.Color32(binary.LittleEndian.Uint32(p)) },
		func(p []byte, c metadata.Color32) { binary.LittleEndian.PutUint32(p, uint32(c)) },
	},
	metadata.FormatX8R8G8B8: {4,
		func(p []byte) metadata.Color32 { return metadata.Color32(binary.LittleEndian.Uint32(p)).WithAlpha(0xFF) },
		func(p []byte, c metadata.Color32) { binary.LittleEndian.PutUint32(p, uint32(c.WithAlpha(0xFF))) },
	},
	metadata.FormatA8B8G8R8: {4,
		func(p []byte) metadata.Color32 { return metadata.NewColor32(p[3], p[0], p[1], p[2]) },
		func(p []byte, c metadata.Color32) { p[0], p[1], p[2], p[3] = c.R(), c.G(), c.B(), c.A() },
	},
	metadata.FormatX8B8G8R8: {4,
		func(p []byte) metadata.Color32 { return metadata.NewColor32(0xFF, p[0], p[1], p[2]) },
		func(p []byte, c metadata.Color32) { p[0], p[1], p[2], p[3] = c.R(), c.G(), c.B(), 0xFF },
	},
	metadata.FormatR5G6B5: {2,
		func(p []byte) metadata.Color32 {
			v := uint32(binary.LittleEndian.Uint16(p))
			return metadata.NewColor32(0xFF, expand(v>>11, 5), expand(v>>5&0x3F, 6), expand(v&0x1F, 5))
		},
		func(p []byte, c metadata.Color32) {
			binary.LittleEndian.PutUint16(p, uint16(shrink(c.R(), 5)<<11|shrink(c.G(), 6)<<5|shrink(c.B(), 5)))
		},
	},
	metadata.FormatX1R5G5B5: {2,
		func(p []byte) metadata.Color32 {
			v := uint32(binary.LittleEndian.Uint16(p))
			return metadata.NewColor32(0xFF, expand(v>>10&0x1F, 5), expand(v>>5&0x1F, 5), expand(v&0x1F, 5))
		},
		func(p []byte, c metadata.Color32) {
			binary.LittleEndian.PutUint16(p, uint16(shrink(c.R(), 5)<<10|shrink(c.G(), 5)<<5|shrink(c.B(), 5)))
		},
	},
	metadata.FormatA1R5G5B5: {2,
		func(p []byte) metadata.Color32 {
			v := uint32(binary.LittleEndian.Uint16(p))
			return metadata.NewColor32(expand(v>>15, 1), expand(v>>10&0x1F, 5), expand(v>>5&0x1F, 5), expand(v&0x1F, 5))
		},
		func(p []byte, c metadata.Color32) {
			binary.LittleEndian.PutUint16(p, uint16(shrink(c.A(), 1)<<15|shrink(c.R(), 5)<<10|shrink(c.G(), 5)<<5|shrink(c.B(), 5)))
		},
	},
	metadata.FormatA4R4G4B4: {2,
		func(p []byte) metadata.Color32 {
			v := uint32(binary.LittleEndian.Uint16(p))
			return metadata.NewColor32(expand(v>>12, 4), expand(v>>8&0xF, 4), expand(v>>4&0xF, 4), expand(v&0xF, 4))
		},
		func(p []byte, c metadata.Color32) {
			binary.LittleEndian.PutUint16(p, uint16(shrink(c.A(), 4)<<12|shrink(c.R(), 4)<<8|shrink(c.G(), 4)<<4|shrink(c.B(), 4)))
		},
	},
	metadata.FormatA8: {1,
		func(p []byte) metadata.Color32 { return metadata.NewColor32(p[0], 0, 0, 0) },
		func(p []byte, c metadata.Color32) { p[0] = c.A() },
	},
	metadata.FormatL8: {1,
		func(p []byte) metadata.Color32 { return metadata.NewColor32(0xFF, p[0], p[0], p[0]) },
		func(p []byte, c metadata.Color32) { p[0] = uint8((uint32(c.R()) + uint32(c.G()) + uint32(c.B())) / 3) },
	},
}

// convertPixels re-encodes a level. ok is false when either format has no codec.
func convertPixels(src []byte, from, to metadata.Format, width, height int) ([]byte, bool) {
	if from == to {
		out := make([]byte, len(src))
		copy(out, src)
		return out, true
	}
	dec, ok := pixelCodecs[from]
	if !ok {
		return nil, false
	}
	enc, ok := pixelCodecs[to]
	if !ok {
		return nil, false
	}
	n := width * height
	out := make([]byte, n*enc.size)
	for i := 0; i < n; i++ {
		enc.encode(out[i*enc.size:], dec.decode(src[i*dec.size:]))
	}
	return out, true
}

// forEachPixel rewrites an A8R8G8B8 level in place.
func forEachPixel(level []byte, f func(c metadata.Color32) metadata.Color32) {
	for i := 0; i+4 <= len(level); i += 4 {
		c := metadata.Color32(binary.LittleEndian.Uint32(level[i:]))
		binary.LittleEndian.PutUint32(level[i:], uint32(f(c)))
	}
}

/**
 * @brief Alpha for SetAlphaFade. Color sums at or above maxColor*3 get
 * maxAlpha, at or below minColor*3 get minAlpha, in between interpolate.
 */
func fadeAlpha(c metadata.Color32, minAlpha, maxAlpha, minColor, maxColor int) uint8 {
	minColor *= 3
	maxColor *= 3
	sum := int(c.R()) + int(c.G()) + int(c.B())
	var alpha int
	switch {
	case sum >= maxColor:
		alpha = maxAlpha
	case sum <= minColor:
		alpha = minAlpha
	default:
		alpha = (sum-minColor)*(maxAlpha-minAlpha)/(maxColor-minColor) + minAlpha
	}
	return uint8(alpha)
}
