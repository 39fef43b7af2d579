package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "PORTALCHAT_"

// Sync modes.
const (
	ModePanel  = "panel"
	ModeWidget = "widget"
)

// Config is the client configuration, merged from file, .env and environment.
type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Token   string        `yaml:"token"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	User struct {
		ID string `yaml:"id"`
	} `yaml:"user"`
	Sync struct {
		Mode         string        `yaml:"mode"`
		PollInterval time.Duration `yaml:"poll_interval"`
		MatchWindow  time.Duration `yaml:"match_window"`
		PageSize     int           `yaml:"page_size"`
		InitialLimit int           `yaml:"initial_limit"`
		PeekLimit    int           `yaml:"peek_limit"`
	} `yaml:"sync"`
	Local struct {
		DBPath string `yaml:"db_path"`
	} `yaml:"local"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Notify struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"notify"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	var cfg Config
	cfg.API.Timeout = 20 * time.Second
	cfg.Sync.Mode = ModePanel
	cfg.Sync.PollInterval = 5 * time.Second
	cfg.Sync.MatchWindow = 60 * time.Second
	cfg.Sync.PageSize = 30
	cfg.Sync.InitialLimit = 50
	cfg.Sync.PeekLimit = 20
	cfg.Log.Mode = "development"
	cfg.Server.Addr = "127.0.0.1:8087"
	return cfg
}

// DefaultConfigPath returns $HOME/.config/portalchat/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "portalchat", "config.yaml"), nil
}

// DefaultDBPath returns the local SQLite path used when none is configured.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "portalchat.db"
	}
	return filepath.Join(home, ".config", "portalchat", "portalchat.db")
}

// LoadConfig reads the YAML file at path (a missing file is not an error),
// loads .env from the working directory and applies PORTALCHAT_* overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, err
		}
	}

	_ = godotenv.Load(".env")
	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, cfg.Validate()
}

// WriteConfig writes cfg as YAML to path, creating parent directories.
func WriteConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Sync.Mode {
	case ModePanel, ModeWidget:
	default:
		return fmt.Errorf("invalid sync mode %q (want %s or %s)", c.Sync.Mode, ModePanel, ModeWidget)
	}
	if c.Sync.PollInterval < 100*time.Millisecond {
		return fmt.Errorf("sync.poll_interval too small: %s", c.Sync.PollInterval)
	}
	if c.Sync.MatchWindow < 0 {
		return fmt.Errorf("sync.match_window cannot be negative")
	}
	return nil
}

func (c *Config) normalize() {
	defaults := DefaultConfig()
	c.Sync.Mode = strings.ToLower(strings.TrimSpace(c.Sync.Mode))
	if c.Sync.Mode == "" {
		c.Sync.Mode = defaults.Sync.Mode
	}
	if c.Sync.PollInterval == 0 {
		c.Sync.PollInterval = defaults.Sync.PollInterval
	}
	if c.Sync.PageSize <= 0 {
		c.Sync.PageSize = defaults.Sync.PageSize
	}
	if c.Sync.InitialLimit <= 0 {
		c.Sync.InitialLimit = defaults.Sync.InitialLimit
	}
	if c.Sync.PeekLimit <= 0 {
		c.Sync.PeekLimit = defaults.Sync.PeekLimit
	}
	if c.API.Timeout <= 0 {
		c.API.Timeout = defaults.API.Timeout
	}
	if c.Log.Mode == "" {
		c.Log.Mode = defaults.Log.Mode
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
}

func applyEnvOverrides(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = d
		return nil
	}
	num := func(key string, dst *int) error {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
		return nil
	}

	str("API_BASE_URL", &cfg.API.BaseURL)
	str("API_TOKEN", &cfg.API.Token)
	str("USER_ID", &cfg.User.ID)
	str("SYNC_MODE", &cfg.Sync.Mode)
	str("LOCAL_DB_PATH", &cfg.Local.DBPath)
	str("LOG_MODE", &cfg.Log.Mode)
	str("METRICS_ADDR", &cfg.Metrics.Addr)
	str("SERVER_ADDR", &cfg.Server.Addr)
	if v, ok := os.LookupEnv(envPrefix + "NOTIFY"); ok {
		vl := strings.ToLower(strings.TrimSpace(v))
		cfg.Notify.Enabled = vl == "1" || vl == "true" || vl == "yes"
	}

	for _, err := range []error{
		dur("API_TIMEOUT", &cfg.API.Timeout),
		dur("SYNC_POLL_INTERVAL", &cfg.Sync.PollInterval),
		dur("SYNC_MATCH_WINDOW", &cfg.Sync.MatchWindow),
		num("SYNC_PAGE_SIZE", &cfg.Sync.PageSize),
		num("SYNC_INITIAL_LIMIT", &cfg.Sync.InitialLimit),
		num("SYNC_PEEK_LIMIT", &cfg.Sync.PeekLimit),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}
