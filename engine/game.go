package engine

import (
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by the engine before FnInitialize runs.
	SystemManager *systems.SystemManager
	Session       *renderer.Session
	State         interface{}
	FnInitialize  Initialize
	FnUpdate      Update
	FnRender      Render
	FnOnResize    OnResize
	FnShutdown    Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render draws the 3D part of a frame. The device is in a scene.
type Render func(session *renderer.Session, deltaTime float64) error
type OnResize func(width, height int) error
type Shutdown func() error
