package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if key, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(key, envPrefix) {
			t.Setenv(key, "")
			_ = os.Unsetenv(key)
		}
	}
	// .env is read from the working directory.
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sync.Mode != ModePanel || cfg.Sync.PollInterval != 5*time.Second || cfg.Sync.PageSize != 30 {
		t.Fatalf("unexpected defaults: %+v", cfg.Sync)
	}
	if cfg.Server.Addr != "127.0.0.1:8087" || cfg.API.Timeout != 20*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `api:
  base_url: https://portal.example.com/
  token: secret
user:
  id: carol
sync:
  mode: Widget
  poll_interval: 2s
  page_size: 10
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORTALCHAT_USER_ID", "dana")
	t.Setenv("PORTALCHAT_SYNC_PEEK_LIMIT", "7")
	t.Setenv("PORTALCHAT_NOTIFY", "yes")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.API.BaseURL != "https://portal.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.API.BaseURL)
	}
	if cfg.User.ID != "dana" {
		t.Fatalf("expected env to override user, got %q", cfg.User.ID)
	}
	if cfg.Sync.Mode != ModeWidget || cfg.Sync.PollInterval != 2*time.Second || cfg.Sync.PageSize != 10 {
		t.Fatalf("unexpected sync config: %+v", cfg.Sync)
	}
	if cfg.Sync.PeekLimit != 7 || !cfg.Notify.Enabled {
		t.Fatalf("expected env overrides, got %+v", cfg)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	clearEnv(t)

	if err := os.WriteFile(".env", []byte("PORTALCHAT_USER_ID=erin\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("PORTALCHAT_USER_ID") })

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.User.ID != "erin" {
		t.Fatalf("expected user from .env, got %q", cfg.User.ID)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	clearEnv(t)

	cases := map[string]string{
		"PORTALCHAT_SYNC_MODE":          "sidebar",
		"PORTALCHAT_SYNC_POLL_INTERVAL": "10ms",
		"PORTALCHAT_SYNC_PAGE_SIZE":     "many",
		"PORTALCHAT_API_TIMEOUT":        "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := LoadConfig(""); err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, value)
			}
		})
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.User.ID = "carol"
	cfg.Sync.Mode = ModeWidget
	if err := WriteConfig(path, cfg); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.User.ID != "carol" || loaded.Sync.Mode != ModeWidget {
		t.Fatalf("unexpected config: %+v", loaded)
	}
}
