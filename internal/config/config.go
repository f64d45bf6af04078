// Package config resolves hud's data root and loads its optional TOML
// config file, following the usual precedence: explicit flag, then
// environment variable, then config file, then a platform default.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config is the optional config.toml schema. Every field has a sane
// zero-value default, so a missing or empty file is equivalent to the
// default Config.
type Config struct {
	// DataRoot overrides where sessions.json, lock directories, and the
	// other sidecars live. Empty means DefaultDataRoot().
	DataRoot string `toml:"data_root,omitempty"`

	Resolver ResolverConfig `toml:"resolver"`
	Serve    ServeConfig    `toml:"serve"`
}

// ResolverConfig exposes the two staleness windows as config rather than
// compiled-in constants, for operators running unusually slow or fast hook
// chains.
type ResolverConfig struct {
	LockStaleSeconds    int `toml:"lock_stale_seconds,omitempty"`
	FallbackFreshSeconds int `toml:"fallback_fresh_seconds,omitempty"`
}

// ServeConfig configures the dashboard query API.
type ServeConfig struct {
	Addr string `toml:"addr,omitempty"`
}

// defaultConfig returns a Config with every default populated, i.e. what
// Load returns when no config.toml exists.
func defaultConfig() Config {
	return Config{
		Resolver: ResolverConfig{LockStaleSeconds: 300, FallbackFreshSeconds: 30},
		Serve:    ServeConfig{Addr: "127.0.0.1:7447"},
	}
}

// Load reads path and merges it onto defaultConfig(). A missing file is not
// an error — it yields the defaults. A malformed file is returned as an
// error, since unlike the session store's tolerant-load discipline, a
// config typo should surface to the operator rather than silently degrade.
func Load(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultConfigPath returns the conventional config.toml location: XDG
// config dir if set, else ~/.config/hud/config.toml.
func DefaultConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hud", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hud", "config.toml")
}

// DefaultDataRoot resolves the data root in the usual precedence order:
// HUD_DATA_ROOT env var, then the config's data_root, then a platform
// default under the user's home directory.
func DefaultDataRoot(cfg Config) string {
	if env := os.Getenv("HUD_DATA_ROOT"); env != "" {
		return env
	}
	if cfg.DataRoot != "" {
		return cfg.DataRoot
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "hud")
	}
	return filepath.Join(home, ".local", "state", "hud")
}
