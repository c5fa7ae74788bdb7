package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

func init() {
	core.SetLogOutput(io.Discard)
}

func TestDefaultMatchesDeviceDefaults(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	settings, err := cfg.DeviceSettings()
	require.NoError(t, err)
	assert.Equal(t, metadata.DefaultDeviceSettings(), settings)

	sc := cfg.SessionConfig()
	assert.Equal(t, 2, sc.BackBufferCount)
	assert.Equal(t, 50*time.Millisecond, sc.RetryDelay)
	assert.Equal(t, 5*time.Millisecond, sc.PresentInterval)
	assert.True(t, sc.AutoResize)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[application]
name = "testbed"
log_level = "debug"

[device]
type = "software"
back_buffer_format = "r5g6b5"
vertex_processing = "mixed"
windowed = false
back_color = "#336699"

[session]
fullscreen = true
back_buffer_count = 1
retry_delay_ms = 10

[driver]
name = "vulkan"
validation = true
`))
	require.NoError(t, err)
	assert.Equal(t, "testbed", cfg.Application.Name)
	assert.Equal(t, 1280, cfg.Application.Width)

	settings, err := cfg.DeviceSettings()
	require.NoError(t, err)
	assert.Equal(t, metadata.DeviceTypeSoftware, settings.DeviceType)
	assert.Equal(t, metadata.FormatR5G6B5, settings.BackBufferFormat)
	assert.Equal(t, metadata.FormatR5G6B5, settings.DisplayMode.Format)
	assert.Equal(t, metadata.VertexProcessingMixed, settings.VertexProcessing)
	assert.False(t, settings.Windowed)
	assert.Equal(t, metadata.FromRGB(0x33, 0x66, 0x99), settings.BackColor)

	sc := cfg.SessionConfig()
	assert.True(t, sc.FullScreen)
	assert.Equal(t, 1, sc.BackBufferCount)
	assert.Equal(t, 10*time.Millisecond, sc.RetryDelay)
	assert.Equal(t, DriverVulkan, cfg.Driver.Name)
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown key":       "[application]\ncolour = 1\n",
		"syntax":            "[application\n",
		"driver":            "[driver]\nname = \"d3d\"\n",
		"device type":       "[device]\ntype = \"quantum\"\n",
		"vertex processing": "[device]\nvertex_processing = \"gpu\"\n",
		"depth format":      "[device]\ndepth_stencil_format = \"A8R8G8B8\"\n",
		"color":             "[device]\nback_color = \"blue\"\n",
		"size":              "[application]\nwidth = 0\n",
		"log level":         "[application]\nlog_level = \"loud\"\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("[device]\nvertex_processing = \"gpu\"\n"))
	assert.ErrorIs(t, err, core.ErrInvalidVertexProcessing)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	cfg := Default()
	cfg.Driver.VideoMemory = 1 << 20
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, Default().Save(path))

	w, err := Watch(path)
	require.NoError(t, err)
	defer w.Close()

	// Invalid content is skipped.
	require.NoError(t, os.WriteFile(path, []byte("[driver]\nname = \"d3d\"\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("[session]\nback_buffer_count = 1\n"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-w.Updates():
			if cfg.Session.BackBufferCount == 1 {
				return
			}
		case <-deadline:
			t.Fatal("no reload delivered")
		}
	}
}

func TestWatcherClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, Default().Save(path))
	w, err := Watch(path)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	_, ok := <-w.Updates()
	assert.False(t, ok)
}
