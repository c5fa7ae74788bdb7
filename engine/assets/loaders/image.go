package loaders

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

/**
 * @brief Decodes png, jpeg, gif, bmp, tiff and webp files into A8R8G8B8
 * levels. Params is an optional *metadata.ImageResourceParams; without it
 * the full mip chain is generated.
 */
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*metadata.Resource, error) {
	p := metadata.ImageResourceParams{GenerateMips: true}
	if typed, ok := params.(*metadata.ImageResourceParams); ok && typed != nil {
		p = *typed
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	data := BuildImage(img, p)
	var size uint64
	for _, l := range data.Levels {
		size += uint64(len(l.Pixels))
	}
	return &metadata.Resource{
		Name:     format,
		FullPath: path,
		DataSize: size,
		Data:     data,
	}, nil
}

func (il *ImageLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	res.DataSize = 0
	return nil
}

/**
 * @brief Converts img to A8R8G8B8 level data. Each mip level is a bilinear
 * reduction of the previous one down to 1x1.
 */
func BuildImage(img image.Image, params metadata.ImageResourceParams) *metadata.ImageResourceData {
	b := img.Bounds()
	base := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)
	if params.FlipY {
		flipRows(base)
	}

	out := &metadata.ImageResourceData{}
	out.Levels = append(out.Levels, toLevel(base, &out.HasTransparency))
	if !params.GenerateMips {
		return out
	}
	current := base
	for current.Rect.Dx() > 1 || current.Rect.Dy() > 1 {
		next := image.NewNRGBA(image.Rect(0, 0, max(1, current.Rect.Dx()/2), max(1, current.Rect.Dy()/2)))
		draw.BiLinear.Scale(next, next.Bounds(), current, current.Bounds(), draw.Src, nil)
		out.Levels = append(out.Levels, toLevel(next, nil))
		current = next
	}
	return out
}

func flipRows(img *image.NRGBA) {
	h := img.Rect.Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

// toLevel reorders RGBA into the B, G, R, A byte order of A8R8G8B8.
func toLevel(img *image.NRGBA, transparent *bool) metadata.ImageLevel {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	pixels := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride : y*img.Stride+w*4]
		dst := pixels[y*w*4 : (y+1)*w*4]
		for x := 0; x < w*4; x += 4 {
			dst[x+0] = src[x+2]
			dst[x+1] = src[x+1]
			dst[x+2] = src[x+0]
			dst[x+3] = src[x+3]
			if transparent != nil && src[x+3] < 255 {
				*transparent = true
			}
		}
	}
	return metadata.ImageLevel{Width: w, Height: h, Pixels: pixels}
}
