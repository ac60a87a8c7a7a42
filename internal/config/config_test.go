package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  origin: https://oqto.example.com
auth:
  token: abc123
session:
  harness: pi
  cwd: /work
connection:
  backoff_base: 500ms
  max_reconnects: 10
logging:
  level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Origin != "https://oqto.example.com" {
		t.Errorf("origin = %q", cfg.Server.Origin)
	}
	if cfg.Session.Harness != "pi" || cfg.Session.Cwd != "/work" {
		t.Errorf("session = %+v", cfg.Session)
	}
	if cfg.Connection.MaxReconnects != 10 {
		t.Errorf("max_reconnects = %d", cfg.Connection.MaxReconnects)
	}
	if got := Duration(cfg.Connection.BackoffBase, time.Second); got != 500*time.Millisecond {
		t.Errorf("backoff_base = %v", got)
	}
}

func TestLoadMissingOrigin(t *testing.T) {
	path := writeConfig(t, `
auth:
  token: abc123
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for missing origin")
	}
}

func TestLoadMissingAuth(t *testing.T) {
	path := writeConfig(t, `
server:
  origin: https://oqto.example.com
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error when neither token nor token_file is set")
	}
}

func TestLoadBadDuration(t *testing.T) {
	path := writeConfig(t, `
server:
  origin: https://oqto.example.com
auth:
  token: abc
connection:
  request_timeout: not-a-duration
`)
	if _, err := Load(path); err == nil {
		t.Fatal("want error for bad duration")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  origin: https://file.example.com
auth:
  token: from-file
`)
	t.Setenv("OQTO_ORIGIN", "https://env.example.com")
	t.Setenv("OQTO_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Origin != "https://env.example.com" {
		t.Errorf("origin = %q, want env override", cfg.Server.Origin)
	}
	if cfg.Auth.Token != "from-env" {
		t.Errorf("token = %q, want env override", cfg.Auth.Token)
	}
}

func TestLoadOrDefaultWithoutFile(t *testing.T) {
	t.Setenv("OQTO_ORIGIN", "https://env.example.com")
	t.Setenv("OQTO_TOKEN", "tok")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Server.Origin != "https://env.example.com" {
		t.Errorf("origin = %q", cfg.Server.Origin)
	}
}

func TestDurationFallback(t *testing.T) {
	if got := Duration("", 3*time.Second); got != 3*time.Second {
		t.Errorf("empty = %v", got)
	}
	if got := Duration("junk", 3*time.Second); got != 3*time.Second {
		t.Errorf("junk = %v", got)
	}
	if got := Duration("2m", 3*time.Second); got != 2*time.Minute {
		t.Errorf("2m = %v", got)
	}
}
