package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveLoadProfile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultProfile("dev")
	cfg.HTTP.Enabled = true
	if err := Save(filepath.Join(dir, FileName), cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadProfile(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ProfileName != "dev" || loaded.IPC.SocketPath != "ipc.sock" {
		t.Fatalf("unexpected config %+v", loaded)
	}
	if !loaded.HTTP.Enabled || loaded.HTTP.Listen != "127.0.0.1:8000" || !loaded.Journal.Enabled {
		t.Fatalf("unexpected sections %+v", loaded)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	if err := Save(filepath.Join(dir, FileName), DefaultProfile("dev")); err != nil {
		t.Fatalf("save: %v", err)
	}
	t.Setenv("TALKLINER_SOCKET", "/tmp/other.sock")
	t.Setenv("TALKLINER_LOG_LEVEL", "debug")
	cfg, err := LoadProfile(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IPC.SocketPath != "/tmp/other.sock" || cfg.Logging.Level != "debug" {
		t.Fatalf("env override not applied: %+v", cfg)
	}
}

func TestLoadDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte("profileName = \"minimal\"\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IPC.SocketPath != "ipc.sock" || cfg.HTTP.AllowOrigin != "*" || cfg.Logging.Level != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Journal.Enabled {
		t.Fatal("journal should be off unless configured")
	}
}

func TestValidate(t *testing.T) {
	t.Run("profile name required", func(t *testing.T) {
		cfg := DefaultProfile("")
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("bad log level", func(t *testing.T) {
		cfg := DefaultProfile("dev")
		cfg.Logging.Level = "verbose"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("journal path required when enabled", func(t *testing.T) {
		cfg := DefaultProfile("dev")
		cfg.Journal.DBPath = ""
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("bad listen address", func(t *testing.T) {
		cfg := DefaultProfile("dev")
		cfg.HTTP.Listen = "not an address"
		if err := cfg.Validate(); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestLoadProfileMissing(t *testing.T) {
	if _, err := LoadProfile(t.TempDir()); !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestResolvePath(t *testing.T) {
	if got := ResolvePath("/p", "ipc.sock"); got != filepath.Join("/p", "ipc.sock") {
		t.Fatalf("unexpected %s", got)
	}
	if got := ResolvePath("/p", "/abs/ipc.sock"); got != "/abs/ipc.sock" {
		t.Fatalf("unexpected %s", got)
	}
	if got := ResolvePath("/p", ""); got != "" {
		t.Fatalf("unexpected %s", got)
	}
}

func TestLoadOrDefaultAppliesEnvWithoutFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TALKLINER_HTTP_ENABLED", "true")
	t.Setenv("TALKLINER_SOCKET", "other.sock")
	cfg, found, err := LoadOrDefault(dir, "fallback")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatal("expected defaults, not a file")
	}
	if cfg.ProfileName != "fallback" || !cfg.HTTP.Enabled || cfg.IPC.SocketPath != "other.sock" {
		t.Fatalf("env override not applied to defaults: %+v", cfg)
	}
	if !cfg.Journal.Enabled || cfg.Logging.FileMaxSize != 10 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadOrDefaultPrefersFile(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultProfile("saved")
	cfg.IPC.SocketPath = "saved.sock"
	if err := Save(filepath.Join(dir, FileName), cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, found, err := LoadOrDefault(dir, "ignored")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found || loaded.ProfileName != "saved" || loaded.IPC.SocketPath != "saved.sock" {
		t.Fatalf("unexpected config found=%v %+v", found, loaded)
	}
}

func TestSaveLoadKeepsZeroMaxSize(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultProfile("dev")
	cfg.Logging.FileMaxSize = 0
	if err := Save(filepath.Join(dir, FileName), cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadProfile(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Logging.FileMaxSize != 0 {
		t.Fatalf("fileMaxSizeMB = 0 loaded as %d", loaded.Logging.FileMaxSize)
	}
}
