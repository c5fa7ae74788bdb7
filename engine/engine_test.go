package engine

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/config"
	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/software"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig(&ApplicationConfig{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")})
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	path := filepath.Join(t.TempDir(), "engine.toml")
	saved := config.Default()
	saved.Application.Name = "from file"
	require.NoError(t, saved.Save(path))

	cfg, err = loadConfig(&ApplicationConfig{
		ConfigPath: path,
		Override:   func(c *config.Config) { c.Driver.VideoMemory = 4096 },
	})
	require.NoError(t, err)
	assert.Equal(t, "from file", cfg.Application.Name)
	assert.EqualValues(t, 4096, cfg.Driver.VideoMemory)

	_, err = loadConfig(&ApplicationConfig{
		Override: func(c *config.Config) { c.Driver.Name = "d3d" },
	})
	assert.Error(t, err)
}

func TestNewDriver(t *testing.T) {
	cfg := config.Default()
	d, err := newDriver(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "software", d.Name())

	cfg.Driver.Name = config.DriverVulkan
	d, err = newDriver(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "vulkan", d.Name())

	cfg.Driver.Name = "glide"
	_, err = newDriver(cfg, nil)
	assert.Error(t, err)
}

func TestApplyConfig(t *testing.T) {
	old := config.Default()
	settings, err := old.DeviceSettings()
	require.NoError(t, err)
	session, err := renderer.NewSession(old.SessionConfig(), software.New(software.Config{}), renderer.NewHeadlessHost(64, 64), settings)
	require.NoError(t, err)

	same := config.Default()
	same.Session.BackBufferCount = 1
	same.Session.AutoResize = false
	require.NoError(t, applyConfig(session, old, same))
	assert.Equal(t, 1, session.BackBufferCount())
	assert.False(t, session.AutoResize())
	assert.False(t, session.UpdatePending())

	changed := config.Default()
	changed.Device.BackColor = "#FF0000"
	require.NoError(t, applyConfig(session, old, changed))
	assert.True(t, session.UpdatePending())
	assert.Equal(t, uint8(0xFF), session.DeviceSettings().BackColor.R())

	fullscreen := config.Default()
	fullscreen.Session.FullScreen = true
	require.NoError(t, applyConfig(session, changed, fullscreen))
	assert.True(t, session.FullScreen())
}
