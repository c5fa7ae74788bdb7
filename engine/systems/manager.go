package systems

import (
	"errors"
	"runtime"

	"github.com/spaghettifunk/rekindle/engine/assets"
	"github.com/spaghettifunk/rekindle/engine/renderer"
)

type SystemManagerConfig struct {
	// Workers of the job system. Defaults to the number of CPUs.
	JobWorkers      int
	JobQueueSize    int
	MaxTextureCount uint32
	FlipTexturesY   bool
}

type SystemManager struct {
	JobSystem     *JobSystem
	TextureSystem *TextureSystem
}

func NewSystemManager(config SystemManagerConfig, session *renderer.Session, am *assets.AssetManager) (*SystemManager, error) {
	if config.JobWorkers <= 0 {
		config.JobWorkers = runtime.NumCPU()
	}
	if config.JobQueueSize <= 0 {
		config.JobQueueSize = 64
	}
	if config.MaxTextureCount == 0 {
		config.MaxTextureCount = 1024
	}
	js, err := NewJobSystem(config.JobWorkers, config.JobQueueSize)
	if err != nil {
		return nil, err
	}
	ts, err := NewTextureSystem(TextureSystemConfig{
		MaxTextureCount: config.MaxTextureCount,
		FlipY:           config.FlipTexturesY,
	}, session, js, am)
	if err != nil {
		_ = js.Shutdown()
		return nil, err
	}
	return &SystemManager{
		JobSystem:     js,
		TextureSystem: ts,
	}, nil
}

func (sm *SystemManager) Initialize() error {
	return sm.TextureSystem.Initialize()
}

// Update runs the callbacks of finished jobs. Call once per frame on the UI goroutine.
func (sm *SystemManager) Update() {
	sm.JobSystem.Update()
}

func (sm *SystemManager) Shutdown() error {
	// Jobs finish first so no upload lands after the textures are gone.
	jobErr := sm.JobSystem.Shutdown()
	return errors.Join(jobErr, sm.TextureSystem.Shutdown())
}
