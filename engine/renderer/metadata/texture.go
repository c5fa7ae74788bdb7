package metadata

/** @brief Creation parameters of a texture. */
type TextureDesc struct {
	Width  int
	Height int
	/** @brief Number of mip levels. Zero asks the driver for a full chain. */
	Levels int
	Format Format
	Usage  Usage
	Pool   Pool
}

/** @brief Dimensions of a single mip level. */
type LevelDesc struct {
	Width  int
	Height int
	Format Format
}

func (d LevelDesc) Size() int {
	return d.Format.LevelSize(d.Width, d.Height)
}

// MipChainLength counts the levels down to 1x1.
func MipChainLength(width, height int) int {
	n := 1
	for width > 1 || height > 1 {
		width = max(1, width/2)
		height = max(1, height/2)
		n++
	}
	return n
}

// MipLevelDesc is the size of level i of a chain starting at w×h.
func MipLevelDesc(width, height, level int, format Format) LevelDesc {
	for i := 0; i < level; i++ {
		width = max(1, width/2)
		height = max(1, height/2)
	}
	return LevelDesc{Width: width, Height: height, Format: format}
}
