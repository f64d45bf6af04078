package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Resolver.LockStaleSeconds != 300 || cfg.Serve.Addr != "127.0.0.1:7447" {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "data_root = \"/tmp/hud-data\"\n\n[serve]\naddr = \"0.0.0.0:9000\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DataRoot != "/tmp/hud-data" || cfg.Serve.Addr != "0.0.0.0:9000" {
		t.Errorf("got %+v", cfg)
	}
	// Untouched sections keep their defaults.
	if cfg.Resolver.LockStaleSeconds != 300 {
		t.Errorf("expected default resolver config to survive a partial file, got %+v", cfg.Resolver)
	}
}

func TestLoadMalformedFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("not = [valid"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed TOML")
	}
}

func TestDefaultDataRootHonorsEnv(t *testing.T) {
	t.Setenv("HUD_DATA_ROOT", "/custom/root")
	if got := DefaultDataRoot(Config{}); got != "/custom/root" {
		t.Errorf("got %q", got)
	}
}
