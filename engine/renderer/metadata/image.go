package metadata

/**
 * @brief One decoded image level. Pixels are A8R8G8B8 stored little endian,
 * so the byte order in memory is B, G, R, A.
 */
type ImageLevel struct {
	Width  int
	Height int
	Pixels []uint8
}

/**
 * @brief A structure to hold image resource data.
 */
type ImageResourceData struct {
	/** @brief Level 0 first, each following level half the size. */
	Levels []ImageLevel
	/** @brief True when at least one pixel is not fully opaque. */
	HasTransparency bool
}

/** @brief Parameters used when loading an image. */
type ImageResourceParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
	/** @brief Generate the mip chain down to 1x1. */
	GenerateMips bool
}
