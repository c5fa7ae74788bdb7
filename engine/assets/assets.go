package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/rekindle/engine/assets/loaders"
	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrClosed        = errors.New("asset manager closed")
)

// Changes buffered before new ones are dropped.
const changeBacklog = 64

type AssetInfo struct {
	// Path relative to the assets directory, slash separated.
	Path       string
	Type       metadata.ResourceType
	LastLoaded time.Time
}

/**
 * @brief Indexes the files under an assets directory and keeps the index up
 * to date with fsnotify. Names of created or rewritten assets are published
 * on Changes so loaded copies can be refreshed.
 */
type AssetManager struct {
	baseDir string
	assets  map[string]AssetInfo
	loaders map[metadata.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	started  bool
	changes  chan string
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[metadata.ResourceType]Loader),
		fsnotify: fsWatch,
		changes:  make(chan string, changeBacklog),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

func (am *AssetManager) Initialize(assetsDir string) error {
	abs, err := filepath.Abs(assetsDir)
	if err != nil {
		return err
	}
	am.baseDir = abs

	// Register loaders
	am.RegisterLoader(metadata.ResourceTypeImage, &loaders.ImageLoader{})
	am.RegisterLoader(metadata.ResourceTypeBinary, &loaders.BinaryLoader{})
	am.RegisterLoader(metadata.ResourceTypeText, &loaders.BinaryLoader{})

	if err := am.watchRecursive(abs, false); err != nil {
		return err
	}
	am.mutex.Lock()
	am.started = true
	am.mutex.Unlock()
	go am.start()
	core.LogInfo("asset manager watching '%s', %d asset(s) indexed", abs, am.Count())
	return nil
}

// RegisterLoader sets the loader of an asset type, replacing any previous one.
func (am *AssetManager) RegisterLoader(assetType metadata.ResourceType, loader Loader) {
	am.mutex.Lock()
	am.loaders[assetType] = loader
	am.mutex.Unlock()
}

// Changes delivers the relative path of every asset created or modified on disk.
func (am *AssetManager) Changes() <-chan string { return am.changes }

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

/**
 * @brief Resolves a name to an indexed asset of the given type. The name is
 * tried as is, then with any extension, so "textures/wall" finds
 * "textures/wall.png".
 */
func (am *AssetManager) Find(name string, resourceType metadata.ResourceType) (AssetInfo, bool) {
	name = filepath.ToSlash(name)
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	if a, ok := am.assets[name]; ok && a.Type == resourceType {
		return a, true
	}
	for p, a := range am.assets {
		if a.Type == resourceType && strings.TrimSuffix(p, filepath.Ext(p)) == name {
			return a, true
		}
	}
	return AssetInfo{}, false
}

// LoadAsset loads an asset using the loader of its type.
func (am *AssetManager) LoadAsset(name string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	asset, ok := am.Find(name, resourceType)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrAssetNotFound, name, resourceType)
	}

	am.mutex.Lock()
	loader, loaderExists := am.loaders[asset.Type]
	asset.LastLoaded = time.Now()
	am.assets[asset.Path] = asset
	am.mutex.Unlock()
	if !loaderExists {
		return nil, fmt.Errorf("no loader registered for asset type: %s", asset.Type)
	}

	res, err := loader.Load(filepath.Join(am.baseDir, filepath.FromSlash(asset.Path)), params)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", asset.Path, err)
	}
	res.Name = asset.Path
	return res, nil
}

func (am *AssetManager) UnloadAsset(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	am.mutex.RLock()
	asset, ok := am.assets[res.Name]
	loader := am.loaders[asset.Type]
	am.mutex.RUnlock()
	if !ok || loader == nil {
		res.Data = nil
		return nil
	}
	return loader.Unload(res)
}

// Shutdown stops watching. The Changes channel is closed once the watcher exits.
func (am *AssetManager) Shutdown() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	started := am.started
	am.mutex.Unlock()

	close(am.done)
	if started {
		<-am.stopped
		return nil
	}
	close(am.changes)
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer func() {
		am.fsnotify.Close()
		close(am.changes)
		close(am.stopped)
	}()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError(err.Error())

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := am.watchRecursive(e.Name, false); err != nil {
				core.LogWarn("failed to watch '%s': %s", e.Name, err)
			}
		}
		return
	}
	// Handle create or modify events
	if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		if rel, ok := am.handleFileEvent(e.Name); ok {
			select {
			case am.changes <- rel:
			default:
				core.LogDebug("asset change backlog full, dropping '%s'", rel)
			}
		}
	}
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		am.removeAsset(e.Name)
	}
}

// watchRecursive adds all directories under the given one to the watch list
// and indexes the files it finds.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

func (am *AssetManager) relative(path string) (string, bool) {
	rel, err := filepath.Rel(am.baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (string, bool) {
	assetType := determineAssetType(path)
	if assetType == metadata.ResourceTypeCustom {
		return "", false
	}
	rel, ok := am.relative(path)
	if !ok {
		return "", false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.assets[rel] = AssetInfo{Path: rel, Type: assetType}
	return rel, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	rel, ok := am.relative(path)
	if !ok {
		return
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, rel)
}

func determineAssetType(path string) metadata.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return metadata.ResourceTypeImage
	case ".bin", ".vb", ".ib":
		return metadata.ResourceTypeBinary
	case ".txt", ".toml", ".cfg":
		return metadata.ResourceTypeText
	default:
		return metadata.ResourceTypeCustom
	}
}
