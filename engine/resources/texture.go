package resources

import (
	"fmt"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

type textureLevel struct {
	desc metadata.LevelDesc
	data []byte
}

/**
 * @brief A texture that survives device loss. Every mip level is copied to
 * host memory on loss and written back on restore.
 */
type Texture struct {
	binding
	desc    metadata.TextureDesc
	texture renderer.Texture
	shadow  []textureLevel
	// Tag is not used by the engine.
	Tag any
}

func NewTexture(session *renderer.Session, desc metadata.TextureDesc) (*Texture, error) {
	device, err := deviceOf(session, core.ResourceKindTexture, "create")
	if err != nil {
		return nil, err
	}
	tex, err := device.CreateTexture(desc)
	if err != nil {
		err = allocationError(core.ResourceKindTexture, "create", err)
		core.LogError(err.Error())
		return nil, err
	}
	return wrapTexture(session, tex), nil
}

/**
 * @brief Creates an A8R8G8B8 texture holding the decoded levels of an image.
 */
func NewTextureFromImage(session *renderer.Session, image *metadata.ImageResourceData, usage metadata.Usage, pool metadata.Pool) (*Texture, error) {
	if image == nil || len(image.Levels) == 0 {
		return nil, allocationError(core.ResourceKindTexture, "create", fmt.Errorf("image has no levels"))
	}
	base := image.Levels[0]
	t, err := NewTexture(session, metadata.TextureDesc{
		Width:  base.Width,
		Height: base.Height,
		Levels: len(image.Levels),
		Format: metadata.FormatA8R8G8B8,
		Usage:  usage,
		Pool:   pool,
	})
	if err != nil {
		return nil, err
	}
	for i := 0; i < t.LevelCount() && i < len(image.Levels); i++ {
		if err := t.WriteLevel(i, image.Levels[i].Pixels); err != nil {
			t.Dispose()
			return nil, err
		}
	}
	return t, nil
}

func wrapTexture(session *renderer.Session, tex renderer.Texture) *Texture {
	t := &Texture{desc: tex.Desc(), texture: tex}
	t.bind(session, core.ResourceKindTexture, t.evacuate, t.restore)
	return t
}

// Desc describes level 0 and the level count of the texture.
func (t *Texture) Desc() metadata.TextureDesc { return t.desc }

func (t *Texture) Width() int  { return t.desc.Width }
func (t *Texture) Height() int { return t.desc.Height }

// DeviceTexture is nil while the device is lost.
func (t *Texture) DeviceTexture() renderer.Texture { return t.texture }

func (t *Texture) Live() bool      { return t.texture != nil }
func (t *Texture) Evacuated() bool { return t.shadow != nil }

func (t *Texture) LevelCount() int { return t.desc.Levels }

func (t *Texture) LevelDesc(level int) metadata.LevelDesc {
	return metadata.MipLevelDesc(t.desc.Width, t.desc.Height, level, t.desc.Format)
}

func (t *Texture) ReadLevel(level int) ([]byte, error) {
	if err := t.usable(t.texture != nil); err != nil {
		return nil, err
	}
	return t.texture.ReadLevel(level)
}

func (t *Texture) WriteLevel(level int, data []byte) error {
	if err := t.usable(t.texture != nil); err != nil {
		return err
	}
	return t.texture.WriteLevel(level, data)
}

// SetData writes level 0.
func (t *Texture) SetData(data []byte) error { return t.WriteLevel(0, data) }

// Data reads level 0.
func (t *Texture) Data() ([]byte, error) { return t.ReadLevel(0) }

func (t *Texture) evacuate() error {
	if t.disposed || t.texture == nil {
		return nil
	}
	var errs []error
	levels := make([]textureLevel, t.texture.LevelCount())
	for i := range levels {
		desc := t.texture.LevelDesc(i)
		data, err := t.texture.ReadLevel(i)
		if err != nil {
			data = make([]byte, desc.Size())
			errs = append(errs, err)
		}
		levels[i] = textureLevel{desc: desc, data: data}
	}
	t.shadow = levels
	t.texture.Release()
	t.texture = nil
	if len(errs) > 0 {
		return evacuationError(t.kind, errs[0])
	}
	return nil
}

func (t *Texture) restore() error {
	if t.disposed || t.texture != nil {
		return nil
	}
	device, err := deviceOf(t.session, t.kind, "restore")
	if err != nil {
		return err
	}
	desc := t.desc
	desc.Levels = len(t.shadow)
	tex, err := device.CreateTexture(desc)
	if err != nil {
		return allocationError(t.kind, "restore", err)
	}
	for i, level := range t.shadow {
		if err := tex.WriteLevel(i, level.data); err != nil {
			tex.Release()
			return allocationError(t.kind, "restore", err)
		}
	}
	t.texture = tex
	t.shadow = nil
	return nil
}

// Dispose releases the texture. Calling it again does nothing.
func (t *Texture) Dispose() {
	if !t.unbind() {
		return
	}
	if t.texture != nil {
		t.texture.Release()
		t.texture = nil
	}
	t.shadow = nil
}

/**
 * @brief Copies level 0 into a new single level texture on the same
 * session, converting the pixels when format differs.
 */
func (t *Texture) Clone(format metadata.Format, usage metadata.Usage, pool metadata.Pool) (*Texture, error) {
	src, err := t.ReadLevel(0)
	if err != nil {
		return nil, err
	}
	pixels, ok := convertPixels(src, t.desc.Format, format, t.desc.Width, t.desc.Height)
	if !ok {
		return nil, &core.UnsupportedFormatError{Op: "Clone", Have: t.desc.Format.String(), Want: format.String()}
	}
	clone, err := NewTexture(t.session, metadata.TextureDesc{
		Width:  t.desc.Width,
		Height: t.desc.Height,
		Levels: 1,
		Format: format,
		Usage:  usage,
		Pool:   pool,
	})
	if err != nil {
		return nil, err
	}
	if err := clone.WriteLevel(0, pixels); err != nil {
		clone.Dispose()
		return nil, err
	}
	clone.Tag = t.Tag
	return clone, nil
}

// transformPixels runs f over every pixel of level 0, which must be A8R8G8B8.
func (t *Texture) transformPixels(op string, f func(c metadata.Color32) metadata.Color32) error {
	if err := t.usable(t.texture != nil); err != nil {
		return err
	}
	if t.desc.Format != metadata.FormatA8R8G8B8 {
		return &core.UnsupportedFormatError{Op: op, Have: t.desc.Format.String(), Want: metadata.FormatA8R8G8B8.String()}
	}
	level, err := t.texture.ReadLevel(0)
	if err != nil {
		return err
	}
	forEachPixel(level, f)
	return t.texture.WriteLevel(0, level)
}

// SetAlphaFromGray turns a gray image into white with the gray level as alpha.
func (t *Texture) SetAlphaFromGray() error {
	return t.transformPixels("SetAlphaFromGray", func(c metadata.Color32) metadata.Color32 {
		alpha := (uint32(c.R()) + uint32(c.G()) + uint32(c.B())) / 3
		return metadata.ColorWhite.WithAlpha(uint8(alpha))
	})
}

// SetAlphaConstant stamps alpha on every pixel and keeps the colors.
func (t *Texture) SetAlphaConstant(alpha uint8) error {
	return t.transformPixels("SetAlphaConstant", func(c metadata.Color32) metadata.Color32 {
		return c.WithAlpha(alpha)
	})
}

// SetAlphaColor replaces the colors of every pixel and keeps the alpha.
func (t *Texture) SetAlphaColor(color metadata.Color32) error {
	return t.transformPixels("SetAlphaColor", func(c metadata.Color32) metadata.Color32 {
		return color.WithAlpha(c.A())
	})
}

/**
 * @brief Derives alpha from brightness. All parameters are 0..255; minColor
 * and maxColor are usually close together (16, 32) to get a soft edge.
 */
func (t *Texture) SetAlphaFade(minAlpha, maxAlpha, minColor, maxColor int) error {
	return t.transformPixels("SetAlphaFade", func(c metadata.Color32) metadata.Color32 {
		return c.WithAlpha(fadeAlpha(c, minAlpha, maxAlpha, minColor, maxColor))
	})
}
