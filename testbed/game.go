package testbed

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/spaghettifunk/rekindle/engine"
	"github.com/spaghettifunk/rekindle/engine/config"
	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
	"github.com/spaghettifunk/rekindle/engine/resources"
)

const crateTexture = "textures/crate"

var (
	red   = metadata.FromRGB(0xFF, 0, 0)
	green = metadata.FromRGB(0, 0xFF, 0)
	blue  = metadata.FromRGB(0, 0, 0xFF)
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	time float64

	triangle *resources.VertexBuffer
	quad     *resources.Mesh
	crate    *resources.Texture
}

func NewTestGame(configPath string) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: &engine.ApplicationConfig{
				ConfigPath: configPath,
				Override: func(cfg *config.Config) {
					if cfg.Application.Name == "rekindle" {
						cfg.Application.Name = "Rekindle Testbed"
					}
				},
			},
			State: &gameState{},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Initialize() error {
	core.LogInfo("initializing testbed...")
	state := g.state()

	triangle, err := resources.NewVertexBuffer(g.Session, metadata.VertexFormatPositionColored, 3, metadata.UsageDynamic, metadata.PoolDefault)
	if err != nil {
		return err
	}
	state.triangle = triangle

	quad, err := resources.NewMesh(g.Session, metadata.MeshDesc{
		FaceCount:    2,
		VertexCount:  4,
		Options:      metadata.MeshOptionsManaged,
		VertexFormat: metadata.VertexFormatPositionTextured,
	})
	if err != nil {
		return err
	}
	state.quad = quad
	if err := writeQuad(quad); err != nil {
		return err
	}

	// falls back to the default texture until the file is loaded
	crate, err := g.SystemManager.TextureSystem.Acquire(crateTexture, true)
	if err != nil {
		core.LogWarn("testbed: %s", err)
		crate = g.SystemManager.TextureSystem.DefaultTexture()
	}
	state.crate = crate
	if err := quad.SetSubsets([]metadata.Material{{Diffuse: metadata.ColorWhite}}, []*resources.Texture{crate}); err != nil {
		return err
	}

	if sphere, err := quad.BoundingSphere(); err == nil {
		core.LogDebug("quad bounds: center %v radius %.2f", sphere.Center, sphere.Radius)
	}
	return nil
}

func writeQuad(quad *resources.Mesh) error {
	vertices := []metadata.PositionTextured{
		{X: -1, Y: -1, U: 0, V: 1},
		{X: 1, Y: -1, U: 1, V: 1},
		{X: 1, Y: 1, U: 1, V: 0},
		{X: -1, Y: 1, U: 0, V: 0},
	}
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, vertices); err != nil {
		return err
	}
	if err := quad.SetVertexData(buf.Bytes()); err != nil {
		return err
	}
	buf.Reset()
	if err := binary.Write(&buf, binary.LittleEndian, []uint16{0, 1, 2, 0, 2, 3}); err != nil {
		return err
	}
	return quad.SetIndexData(buf.Bytes())
}

func (g *TestGame) Update(deltaTime float64) error {
	g.state().time += deltaTime
	return nil
}

/**
 * @brief Pulses the triangle colors. Writes made while the device is lost
 * fail with ErrResourceEvacuated and are skipped until it comes back.
 */
func (g *TestGame) Render(session *renderer.Session, deltaTime float64) error {
	state := g.state()
	percent := float32(state.time - float64(int(state.time)))
	if int(state.time)%2 == 1 {
		percent = 1 - percent
	}
	vertices := []metadata.PositionColored{
		{X: 0, Y: 1, Color: red.Fade(blue, percent)},
		{X: 1, Y: -1, Color: green.Fade(red, percent)},
		{X: -1, Y: -1, Color: blue.Fade(green, percent)},
	}
	if err := state.triangle.SetVertices(vertices); err != nil && !errors.Is(err, core.ErrResourceEvacuated) {
		return err
	}
	return nil
}

func (g *TestGame) OnResize(width, height int) error {
	core.LogDebug("testbed resized to %dx%d", width, height)
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.state()
	if state.crate != nil && state.crate != g.SystemManager.TextureSystem.DefaultTexture() {
		g.SystemManager.TextureSystem.Release(crateTexture)
	}
	if state.quad != nil {
		state.quad.Dispose()
	}
	if state.triangle != nil {
		state.triangle.Dispose()
	}
	return nil
}
