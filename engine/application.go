package engine

import "github.com/spaghettifunk/rekindle/engine/config"

type ApplicationConfig struct {
	// Path of the TOML configuration. When empty the defaults are used and
	// nothing is watched.
	ConfigPath string
	// Override runs on every loaded configuration, including hot reloads.
	Override func(cfg *config.Config)
}
