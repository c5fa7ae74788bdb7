package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/rekindle/engine/core"
	"github.com/spaghettifunk/rekindle/engine/renderer"
	"github.com/spaghettifunk/rekindle/engine/renderer/metadata"
)

const (
	DriverSoftware = "software"
	DriverVulkan   = "vulkan"
)

type Config struct {
	Application ApplicationConfig `toml:"application"`
	Device      DeviceConfig      `toml:"device"`
	Session     SessionConfig     `toml:"session"`
	Driver      DriverConfig      `toml:"driver"`
}

type ApplicationConfig struct {
	// The application name used in windowing.
	Name string `toml:"name"`
	// Window starting position.
	X int `toml:"x"`
	Y int `toml:"y"`
	// Window starting size.
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	LogLevel  string `toml:"log_level"`
	AssetsDir string `toml:"assets_dir"`
}

type DeviceConfig struct {
	Adapter            int    `toml:"adapter"`
	Type               string `toml:"type"`
	BackBufferFormat   string `toml:"back_buffer_format"`
	DepthStencilFormat string `toml:"depth_stencil_format"`
	MultisampleType    int    `toml:"multisample_type"`
	MultisampleQuality int    `toml:"multisample_quality"`
	VertexProcessing   string `toml:"vertex_processing"`
	// Fullscreen display mode.
	Width           int    `toml:"width"`
	Height          int    `toml:"height"`
	RefreshRate     int    `toml:"refresh_rate"`
	UsesDepthBuffer bool   `toml:"uses_depth_buffer"`
	Windowed        bool   `toml:"windowed"`
	BackColor       string `toml:"back_color"`
}

type SessionConfig struct {
	FullScreen         bool `toml:"fullscreen"`
	SimulateFullScreen bool `toml:"simulate_fullscreen"`
	BackBufferCount    int  `toml:"back_buffer_count"`
	AutoResize         bool `toml:"auto_resize"`
	RetryDelayMS       int  `toml:"retry_delay_ms"`
	PresentIntervalMS  int  `toml:"present_interval_ms"`
}

type DriverConfig struct {
	// software or vulkan.
	Name string `toml:"name"`
	// Video memory budget of the software driver in bytes. Zero is unlimited.
	VideoMemory int64 `toml:"video_memory"`
	// Enable the Vulkan validation layer.
	Validation bool `toml:"validation"`
}

// Default is the configuration used for every key a file leaves out.
func Default() *Config {
	settings := metadata.DefaultDeviceSettings()
	return &Config{
		Application: ApplicationConfig{
			Name:      "rekindle",
			X:         100,
			Y:         100,
			Width:     1280,
			Height:    720,
			LogLevel:  "info",
			AssetsDir: "assets",
		},
		Device: DeviceConfig{
			Adapter:            settings.AdapterOrdinal,
			Type:               settings.DeviceType.String(),
			BackBufferFormat:   settings.BackBufferFormat.String(),
			DepthStencilFormat: settings.DepthStencilFormat.String(),
			VertexProcessing:   settings.VertexProcessing.String(),
			Width:              settings.DisplayMode.Width,
			Height:             settings.DisplayMode.Height,
			RefreshRate:        settings.DisplayMode.RefreshRate,
			UsesDepthBuffer:    settings.UsesDepthBuffer,
			Windowed:           settings.Windowed,
			BackColor:          "#000000",
		},
		Session: SessionConfig{
			BackBufferCount:   renderer.DefaultBackBufferCount,
			AutoResize:        true,
			RetryDelayMS:      int(renderer.DefaultRetryDelay / time.Millisecond),
			PresentIntervalMS: int(renderer.DefaultPresentInterval / time.Millisecond),
		},
		Driver: DriverConfig{
			Name: DriverSoftware,
		},
	}
}

// Load reads a TOML file over the defaults. Unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("unknown configuration keys:\n%s", strict.String())
		}
		var decode *toml.DecodeError
		if errors.As(err, &decode) {
			row, col := decode.Position()
			return nil, fmt.Errorf("line %d column %d: %s", row, col, decode.Error())
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Application.Width <= 0 || c.Application.Height <= 0 {
		errs = append(errs, fmt.Errorf("func Validate - application size must be > 0, got %dx%d", c.Application.Width, c.Application.Height))
	}
	if !core.ValidLogLevel(c.Application.LogLevel) {
		errs = append(errs, fmt.Errorf("func Validate - unknown log level %q", c.Application.LogLevel))
	}
	if c.Driver.Name != DriverSoftware && c.Driver.Name != DriverVulkan {
		errs = append(errs, fmt.Errorf("func Validate - driver must be %q or %q, got %q", DriverSoftware, DriverVulkan, c.Driver.Name))
	}
	if c.Driver.VideoMemory < 0 {
		errs = append(errs, fmt.Errorf("func Validate - driver video memory must be >= 0"))
	}
	if c.Session.RetryDelayMS < 0 || c.Session.PresentIntervalMS < 0 {
		errs = append(errs, fmt.Errorf("func Validate - session delays must be >= 0"))
	}
	if _, err := c.DeviceSettings(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

/**
 * @brief Converts the [device] table into device settings.
 */
func (c *Config) DeviceSettings() (metadata.DeviceSettings, error) {
	d := c.Device
	deviceType, err := parseDeviceType(d.Type)
	if err != nil {
		return metadata.DeviceSettings{}, err
	}
	backBuffer, err := parseFormat(d.BackBufferFormat)
	if err != nil {
		return metadata.DeviceSettings{}, err
	}
	depth, err := parseFormat(d.DepthStencilFormat)
	if err != nil {
		return metadata.DeviceSettings{}, err
	}
	if !depth.IsDepth() {
		return metadata.DeviceSettings{}, fmt.Errorf("func DeviceSettings - %s is not a depth format", depth)
	}
	vp, err := metadata.ParseVertexProcessing(d.VertexProcessing)
	if err != nil {
		return metadata.DeviceSettings{}, err
	}
	color, err := parseColor(d.BackColor)
	if err != nil {
		return metadata.DeviceSettings{}, err
	}
	return metadata.DeviceSettings{
		AdapterOrdinal:     d.Adapter,
		DeviceType:         deviceType,
		BackBufferFormat:   backBuffer,
		DepthStencilFormat: depth,
		MultisampleType:    metadata.MultisampleType(d.MultisampleType),
		MultisampleQuality: d.MultisampleQuality,
		VertexProcessing:   vp,
		DisplayMode: metadata.DisplayMode{
			Width:       d.Width,
			Height:      d.Height,
			RefreshRate: d.RefreshRate,
			Format:      backBuffer,
		},
		UsesDepthBuffer: d.UsesDepthBuffer,
		Windowed:        d.Windowed,
		BackColor:       color,
	}, nil
}

// SessionConfig builds the session options; counters and sleep stay unset.
func (c *Config) SessionConfig() *renderer.SessionConfig {
	return &renderer.SessionConfig{
		FullScreen:         c.Session.FullScreen,
		SimulateFullScreen: c.Session.SimulateFullScreen,
		BackBufferCount:    c.Session.BackBufferCount,
		AutoResize:         c.Session.AutoResize,
		RetryDelay:         time.Duration(c.Session.RetryDelayMS) * time.Millisecond,
		PresentInterval:    time.Duration(c.Session.PresentIntervalMS) * time.Millisecond,
	}
}

func parseDeviceType(s string) (metadata.DeviceType, error) {
	for t := metadata.DeviceTypeHardware; t <= metadata.DeviceTypeNullReference; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("func DeviceSettings - unknown device type %q", s)
}

func parseFormat(s string) (metadata.Format, error) {
	for f := metadata.FormatUnknown + 1; f <= metadata.FormatIndex32; f++ {
		if strings.EqualFold(f.String(), s) {
			return f, nil
		}
	}
	return metadata.FormatUnknown, fmt.Errorf("func DeviceSettings - unknown format %q", s)
}

// parseColor accepts #RRGGBB and #AARRGGBB.
func parseColor(s string) (metadata.Color32, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return 0, fmt.Errorf("func DeviceSettings - color %q must be #RRGGBB or #AARRGGBB", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("func DeviceSettings - color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v |= 0xFF000000
	}
	return metadata.Color32(v), nil
}
