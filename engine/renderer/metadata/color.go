package metadata

import "fmt"

/**
 * @brief A 32 bit ARGB color packed as 0xAARRGGBB, the layout of an
 * A8R8G8B8 pixel.
 */
type Color32 uint32

func NewColor32(a, r, g, b uint8) Color32 {
	return Color32(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// FromRGB returns an opaque color.
func FromRGB(r, g, b uint8) Color32 {
	return NewColor32(0xFF, r, g, b)
}

/**
 * @brief Builds a color from channels in [0, 1]. Values outside the range
 * saturate.
 */
func FromFloats(a, r, g, b float32) Color32 {
	return NewColor32(unitToByte(a), unitToByte(r), unitToByte(g), unitToByte(b))
}

var (
	ColorBlack = FromRGB(0, 0, 0)
	ColorWhite = FromRGB(0xFF, 0xFF, 0xFF)
)

func (c Color32) A() uint8 { return uint8(c >> 24) }
func (c Color32) R() uint8 { return uint8(c >> 16) }
func (c Color32) G() uint8 { return uint8(c >> 8) }
func (c Color32) B() uint8 { return uint8(c) }

// WithAlpha keeps the color channels and replaces alpha.
func (c Color32) WithAlpha(a uint8) Color32 {
	return c&0x00FFFFFF | Color32(a)<<24
}

func (c Color32) String() string {
	return fmt.Sprintf("%d, %d, %d (%d)", c.R(), c.G(), c.B(), c.A())
}

/**
 * @brief Interpolates every channel toward `to`. percent 0 returns c,
 * percent 1 returns `to`.
 */
func (c Color32) Fade(to Color32, percent float32) Color32 {
	return c.FadeSplit(to, percent, percent)
}

// FadeSplit interpolates alpha and the color channels by separate amounts.
func (c Color32) FadeSplit(to Color32, alphaPercent, colorPercent float32) Color32 {
	af := int(alphaPercent * 256)
	cf := int(colorPercent * 256)
	return NewColor32(
		lerpChannel(c.A(), to.A(), af),
		lerpChannel(c.R(), to.R(), cf),
		lerpChannel(c.G(), to.G(), cf),
		lerpChannel(c.B(), to.B(), cf))
}

// factor is in 1/256 units
func lerpChannel(from, to uint8, factor int) uint8 {
	if factor < 0 {
		factor = 0
	} else if factor > 256 {
		factor = 256
	}
	return uint8((int(from)*(256-factor) + int(to)*factor) >> 8)
}

func unitToByte(v float32) uint8 {
	v *= 256
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
