package engine

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/spaghettifunk/rekindle/engine/assets"
	"github.com/spaghettifunk/rekindle/engine/config"
	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/platform"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
	"github.com/spaghettifunk/rekindle/engine/renderer/software"
	"github.com/spaghettifunk/rekindle/engine/renderer/vulkan"
	"github.com/spaghettifunk/rekindle/engine/systems"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

// How long the main loop waits for window events before checking the
// dispatcher and the watchers again.
const eventWait = 10 * time.Millisecond

type Engine struct {
	currentStage  Stage
	gameInstance  *Game
	config        *config.Config
	isRunning     atomic.Bool
	isSuspended   bool
	input         *core.InputState
	platform      *platform.Platform
	dispatcher    *renderer.Dispatcher
	session       *renderer.Session
	loop          *renderer.Loop
	assetManager  *assets.AssetManager
	systemManager *systems.SystemManager
	watcher       *config.Watcher
	clock         *core.Clock
	metrics       *core.Metrics
	lastTime      float64
	delta         float64
	lastReport    float64
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = &ApplicationConfig{}
	}
	cfg, err := loadConfig(g.ApplicationConfig)
	if err != nil {
		return nil, err
	}
	core.SetLogLevel(cfg.Application.LogLevel)

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	input := core.NewInputState()
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		input:        input,
		platform:     platform.New(input),
		dispatcher:   renderer.NewDispatcher(renderer.DefaultDispatchCapacity),
		assetManager: am,
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
	}, nil
}

// loadConfig reads the configuration file, falling back to the defaults when
// no path is set or the file does not exist yet.
func loadConfig(app *ApplicationConfig) (*config.Config, error) {
	cfg := config.Default()
	if app.ConfigPath != "" {
		loaded, err := config.Load(app.ConfigPath)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist):
			core.LogWarn("configuration '%s' not found, using defaults", app.ConfigPath)
		default:
			return nil, err
		}
	}
	if app.Override != nil {
		app.Override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// newDriver builds the driver named by the [driver] table.
func newDriver(cfg *config.Config, procAddr func() unsafe.Pointer) (renderer.Driver, error) {
	switch cfg.Driver.Name {
	case config.DriverSoftware:
		return software.New(software.Config{VideoMemory: cfg.Driver.VideoMemory}), nil
	case config.DriverVulkan:
		vc := vulkan.Config{
			AppName:    cfg.Application.Name,
			Validation: cfg.Driver.Validation,
		}
		if procAddr != nil {
			vc.ProcAddr = procAddr()
		}
		return vulkan.New(vc), nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Driver.Name)
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.config
	app := cfg.Application

	if err := e.platform.Startup(app.Name, app.X, app.Y, app.Width, app.Height); err != nil {
		return err
	}

	driver, err := newDriver(cfg, platform.VulkanProcAddr)
	if err != nil {
		return err
	}
	settings, err := cfg.DeviceSettings()
	if err != nil {
		return err
	}
	if settings.DisplayMode.Width == 0 || settings.DisplayMode.Height == 0 {
		if mode, ok := platform.DisplayMode(); ok {
			settings.DisplayMode = mode
		}
	}

	e.session, err = renderer.NewSession(cfg.SessionConfig(), driver, e.platform, settings)
	if err != nil {
		return err
	}
	e.dispatcher.SetNotify(e.platform.Wake)
	e.loop = renderer.NewLoop(e.session, e.dispatcher)

	e.session.Subscribe(renderer.EventLost, func(s *renderer.Session) error {
		core.LogWarn("device lost, %s", s.Counters())
		return nil
	})
	e.session.Subscribe(renderer.EventRestored, func(s *renderer.Session) error {
		core.LogInfo("device restored")
		return nil
	})
	e.session.Subscribe(renderer.EventResizing, func(s *renderer.Session) error {
		size := s.Host().SurfaceBounds().Size()
		core.LogDebug("surface resize: %d, %d", size.Width, size.Height)
		if e.gameInstance.FnOnResize == nil {
			return nil
		}
		return e.gameInstance.FnOnResize(size.Width, size.Height)
	})
	e.session.Subscribe(renderer.EventRender3D, func(s *renderer.Session) error {
		if e.gameInstance.FnRender == nil {
			return nil
		}
		return e.gameInstance.FnRender(s, e.delta)
	})

	if err := e.assetManager.Initialize(app.AssetsDir); err != nil {
		return err
	}

	e.systemManager, err = systems.NewSystemManager(systems.SystemManagerConfig{FlipTexturesY: true}, e.session, e.assetManager)
	if err != nil {
		return err
	}

	// The session retries a failed creation from the frame loop; the game still starts.
	if err := e.session.Setup(); err != nil {
		core.LogError("device setup: %s", err)
	}
	if err := e.systemManager.Initialize(); err != nil {
		return err
	}

	e.gameInstance.SystemManager = e.systemManager
	e.gameInstance.Session = e.session
	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(); err != nil {
			return err
		}
	}

	if path := e.gameInstance.ApplicationConfig.ConfigPath; path != "" {
		if w, err := config.Watch(path); err != nil {
			core.LogWarn("configuration hot reload disabled: %s", err)
		} else {
			e.watcher = w
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	e.loop.Start()

	for e.isRunning.Load() {
		if !e.platform.PumpMessages(eventWait) {
			e.isRunning.Store(false)
			break
		}
		frameStartTime := platform.GetAbsoluteTime()

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		e.delta = currentTime - e.lastTime

		e.updateSuspended()
		e.handleInput()
		e.handleChanges()

		// frames requested by the present goroutine run here
		e.dispatcher.Drain()
		e.systemManager.Update()

		if !e.isSuspended && e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e.delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				e.isRunning.Store(false)
				break
			}
		}

		e.metrics.Update(platform.GetAbsoluteTime() - frameStartTime)
		if currentTime-e.lastReport >= 5 {
			_, avg := e.metrics.Frame()
			core.LogDebug("presented %d fps, main loop %.2f ms, %s", e.session.FPS(), avg, e.session.Counters())
			e.lastReport = currentTime
		}

		e.input.Update()
		e.lastTime = currentTime
	}
	return nil
}

// Quit stops Run. Safe from any goroutine.
func (e *Engine) Quit() {
	e.isRunning.Store(false)
	if e.platform.Window != nil {
		e.platform.Wake()
	}
}

func (e *Engine) updateSuspended() {
	minimized := e.platform.FormState() == metadata.WindowStateMinimized
	if minimized == e.isSuspended {
		return
	}
	e.isSuspended = minimized
	if minimized {
		core.LogInfo("window minimized, suspending application")
		e.session.NotifySuspend()
	} else {
		core.LogInfo("window restored, resuming application")
	}
}

func (e *Engine) handleInput() {
	if e.input.WasKeyPressed(core.KEY_ESCAPE) {
		core.LogInfo("escape pressed, shutting down")
		e.platform.RequestClose()
	}
	if e.input.WasKeyPressed(core.KEY_F11) {
		if err := e.session.SetFullScreen(!e.session.FullScreen()); err != nil {
			core.LogError("toggle fullscreen: %s", err)
		}
	}
	if e.input.WasKeyPressed(core.KEY_F5) {
		if err := e.session.ForceDeviceUpdate(); err != nil {
			core.LogError("device update: %s", err)
		}
	}
}

// handleChanges applies reloaded configuration and changed assets without blocking.
func (e *Engine) handleChanges() {
	var updates <-chan *config.Config
	if e.watcher != nil {
		updates = e.watcher.Updates()
	}
	for {
		select {
		case cfg, ok := <-updates:
			if !ok {
				e.watcher = nil
				updates = nil
				continue
			}
			if override := e.gameInstance.ApplicationConfig.Override; override != nil {
				override(cfg)
			}
			if err := applyConfig(e.session, e.config, cfg); err != nil {
				core.LogError("apply configuration: %s", err)
				continue
			}
			e.config = cfg

		case path := <-e.assetManager.Changes():
			if err := e.systemManager.TextureSystem.Reload(path); err != nil {
				core.LogError("reload '%s': %s", path, err)
			}

		default:
			return
		}
	}
}

/**
 * @brief Pushes a reloaded configuration into a running session. Device
 * settings that changed recreate the device; everything else takes effect on
 * the next creation.
 */
func applyConfig(session *renderer.Session, old, cfg *config.Config) error {
	if cfg.Application.LogLevel != old.Application.LogLevel {
		core.SetLogLevel(cfg.Application.LogLevel)
	}
	session.SetAutoResize(cfg.Session.AutoResize)
	session.SetSimulateFullScreen(cfg.Session.SimulateFullScreen)
	session.SetBackBufferCount(cfg.Session.BackBufferCount)

	if cfg.Device == old.Device && cfg.Session.FullScreen == old.Session.FullScreen {
		return nil
	}
	settings, err := cfg.DeviceSettings()
	if err != nil {
		return err
	}
	if cfg.Session.FullScreen {
		settings.Windowed = false
	}
	return session.SetDeviceSettings(settings)
}

func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown
	var errs []error
	if e.watcher != nil {
		errs = append(errs, e.watcher.Close())
	}
	if e.gameInstance.FnShutdown != nil {
		errs = append(errs, e.gameInstance.FnShutdown())
	}
	if e.systemManager != nil {
		errs = append(errs, e.systemManager.Shutdown())
	}
	if e.session != nil {
		errs = append(errs, e.session.Shutdown())
	}
	errs = append(errs, e.assetManager.Shutdown())
	if e.platform.Window != nil {
		errs = append(errs, e.platform.Shutdown())
	}
	return errors.Join(errs...)
}

func (e *Engine) Stage() Stage { return e.currentStage }
