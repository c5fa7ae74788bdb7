package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/rekindle/engine/assets"
	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
	"github.com/spaghettifunk/rekindle/engine/resources"
)

const (
	DEFAULT_TEXTURE_NAME = "default"
	defaultTextureSize   = 16
	InvalidGeneration    = ^uint32(0)
)

var ErrTextureSystemFull = errors.New("texture system cannot hold any more textures")

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be loaded at once. */
	MaxTextureCount uint32
	/** @brief Flip images vertically when decoding. */
	FlipY bool
	Usage metadata.Usage
	Pool  metadata.Pool
}

type textureReference struct {
	texture     *resources.Texture
	references  int
	autoRelease bool
	// Incremented by every successful load. InvalidGeneration until the first.
	generation uint32
	loading    bool
	// Decoded levels waiting for a device.
	pending *metadata.ImageResourceData
}

/**
 * @brief Reference counted textures loaded from the asset directory. Files
 * are decoded on the job system; the upload happens in JobSystem.Update on
 * the UI goroutine. Until a texture is loaded its users get the default
 * texture. Not safe for concurrent use.
 */
type TextureSystem struct {
	config   TextureSystemConfig
	session  *renderer.Session
	jobs     *JobSystem
	assets   *assets.AssetManager
	restored core.Handle

	defaultTexture *resources.Texture
	defaultPixels  *metadata.ImageResourceData
	registered     map[string]*textureReference
}

func NewTextureSystem(config TextureSystemConfig, session *renderer.Session, js *JobSystem, am *assets.AssetManager) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}
	if session == nil || js == nil || am == nil {
		return nil, fmt.Errorf("func NewTextureSystem - session, job system and asset manager are required")
	}
	if config.Pool == metadata.PoolDefault {
		config.Pool = metadata.PoolManaged
	}
	return &TextureSystem{
		config:        config,
		session:       session,
		jobs:          js,
		assets:        am,
		registered:    make(map[string]*textureReference),
		defaultPixels: checkerboard(defaultTextureSize),
	}, nil
}

// checkerboard is a white and magenta pattern in 4x4 blocks.
func checkerboard(size int) *metadata.ImageResourceData {
	pixels := make([]uint8, size*size*4)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			i := (y*size + x) * 4
			pixels[i+0], pixels[i+1], pixels[i+2], pixels[i+3] = 255, 255, 255, 255
			if (x/4+y/4)%2 == 1 {
				pixels[i+1] = 0
			}
		}
	}
	return &metadata.ImageResourceData{Levels: []metadata.ImageLevel{{Width: size, Height: size, Pixels: pixels}}}
}

/**
 * @brief Creates the default texture and starts uploading textures whose
 * decode finished while no device was available.
 */
func (ts *TextureSystem) Initialize() error {
	ts.restored = ts.session.Subscribe(renderer.EventRestored, func(*renderer.Session) error {
		return ts.uploadPending()
	})
	return ts.uploadPending()
}

func (ts *TextureSystem) uploadPending() error {
	var errs []error
	if ts.defaultTexture == nil {
		t, err := resources.NewTextureFromImage(ts.session, ts.defaultPixels, ts.config.Usage, ts.config.Pool)
		if err != nil && !errors.Is(err, core.ErrNoDevice) {
			errs = append(errs, err)
		}
		ts.defaultTexture = t
	}
	for name, ref := range ts.registered {
		if ref.pending == nil {
			continue
		}
		if err := ts.upload(name, ref, ref.pending); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ts *TextureSystem) Shutdown() error {
	ts.session.Unsubscribe(renderer.EventRestored, ts.restored)
	for name, ref := range ts.registered {
		if ref.texture != nil {
			ref.texture.Dispose()
		}
		delete(ts.registered, name)
	}
	if ts.defaultTexture != nil {
		ts.defaultTexture.Dispose()
		ts.defaultTexture = nil
	}
	return nil
}

func (ts *TextureSystem) DefaultTexture() *resources.Texture { return ts.defaultTexture }

/**
 * @brief Acquires the texture with the given name, loading it on the first
 * reference. Returns the default texture until the load completes.
 */
func (ts *TextureSystem) Acquire(name string, autoRelease bool) (*resources.Texture, error) {
	if name == DEFAULT_TEXTURE_NAME {
		core.LogWarn("texture system Acquire called for default texture. Use DefaultTexture for texture 'default'")
		return ts.defaultTexture, nil
	}
	ref, ok := ts.registered[name]
	if !ok {
		if uint32(len(ts.registered)) >= ts.config.MaxTextureCount {
			core.LogError("Texture system cannot hold anymore textures. Adjust configuration to allow more.")
			return nil, ErrTextureSystemFull
		}
		// This can only be changed the first time a texture is loaded.
		ref = &textureReference{autoRelease: autoRelease, generation: InvalidGeneration}
		ts.registered[name] = ref
		if err := ts.load(name, ref); err != nil {
			delete(ts.registered, name)
			return nil, err
		}
	}
	ref.references++
	return ts.textureOf(ref), nil
}

func (ts *TextureSystem) textureOf(ref *textureReference) *resources.Texture {
	if ref.texture != nil {
		return ref.texture
	}
	return ts.defaultTexture
}

// Get returns the loaded texture, or the default one while it is loading.
func (ts *TextureSystem) Get(name string) *resources.Texture {
	ref, ok := ts.registered[name]
	if !ok {
		return ts.defaultTexture
	}
	return ts.textureOf(ref)
}

// Generation counts completed loads; InvalidGeneration before the first.
func (ts *TextureSystem) Generation(name string) uint32 {
	if ref, ok := ts.registered[name]; ok {
		return ref.generation
	}
	return InvalidGeneration
}

func (ts *TextureSystem) References(name string) int {
	if ref, ok := ts.registered[name]; ok {
		return ref.references
	}
	return 0
}

/**
 * @brief Drops one reference. Auto released textures are disposed when the
 * count reaches zero.
 */
func (ts *TextureSystem) Release(name string) {
	// Ignore release requests for the default texture.
	if name == DEFAULT_TEXTURE_NAME {
		return
	}
	ref, ok := ts.registered[name]
	if !ok {
		core.LogWarn("Tried to release non-existent texture: '%s'", name)
		return
	}
	if ref.references == 0 {
		core.LogWarn("Tried to release texture '%s' whose reference count was already 0", name)
		return
	}
	ref.references--
	if ref.references == 0 && ref.autoRelease {
		if ref.texture != nil {
			ref.texture.Dispose()
		}
		delete(ts.registered, name)
		core.LogDebug("Released texture '%s', unloaded because reference count=0 and autoRelease=true.", name)
	}
}

/**
 * @brief Loads the file of a registered texture again. Used when the asset
 * changes on disk; unknown names are ignored.
 */
func (ts *TextureSystem) Reload(name string) error {
	for registered, ref := range ts.registered {
		if registered == name || ts.matches(registered, name) {
			return ts.load(registered, ref)
		}
	}
	return nil
}

func (ts *TextureSystem) matches(registered, path string) bool {
	info, ok := ts.assets.Find(registered, metadata.ResourceTypeImage)
	return ok && info.Path == path
}

func (ts *TextureSystem) load(name string, ref *textureReference) error {
	if ref.loading {
		return nil
	}
	ref.loading = true
	params := &metadata.ImageResourceParams{FlipY: ts.config.FlipY, GenerateMips: true}
	err := ts.jobs.Submit(metadata.JobTask{
		JobType: metadata.JOB_TYPE_RESOURCE_LOAD | metadata.JOB_TYPE_GPU_RESOURCE,
		// Only handles loading from disk to CPU. GPU upload is handled after completion of this job.
		OnStart: func(interface{}) (interface{}, error) {
			res, err := ts.assets.LoadAsset(name, metadata.ResourceTypeImage, params)
			if err != nil {
				return nil, err
			}
			return res.Data, nil
		},
		OnComplete: func(result interface{}) {
			ref.loading = false
			if ts.registered[name] != ref {
				// Released while loading.
				return
			}
			data, ok := result.(*metadata.ImageResourceData)
			if !ok {
				core.LogError("texture '%s' loaded as %T", name, result)
				return
			}
			if err := ts.upload(name, ref, data); err != nil {
				core.LogError(err.Error())
			}
		},
		OnFailure: func(err error) {
			ref.loading = false
			core.LogError("Failed to load texture '%s': %s", name, err)
		},
	})
	if err != nil {
		ref.loading = false
	}
	return err
}

// upload replaces the texture of ref. Without a device the data is kept
// until the session restores one.
func (ts *TextureSystem) upload(name string, ref *textureReference, data *metadata.ImageResourceData) error {
	t, err := resources.NewTextureFromImage(ts.session, data, ts.config.Usage, ts.config.Pool)
	if errors.Is(err, core.ErrNoDevice) {
		ref.pending = data
		return nil
	}
	if err != nil {
		return fmt.Errorf("upload texture '%s': %w", name, err)
	}
	ref.pending = nil
	if ref.texture != nil {
		ref.texture.Dispose()
	}
	ref.texture = t
	ref.generation++
	core.LogDebug("Successfully loaded texture '%s' (generation %d).", name, ref.generation)
	return nil
}
