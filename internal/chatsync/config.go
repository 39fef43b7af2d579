package chatsync

import (
	"time"

	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/store"
)

// Config tunes the engine. Zero values take the defaults below.
type Config struct {
	Mode   string // core.ModePanel or core.ModeWidget
	UserID string
	// InitialRoom is activated by Start when present in the listing;
	// otherwise the first room in display order is.
	InitialRoom  string
	PollInterval time.Duration
	MatchWindow  time.Duration
	PageSize     int
	InitialLimit int
	PeekLimit    int
}

const (
	defaultPollInterval = 5 * time.Second
	defaultPageSize     = 30
	defaultInitialLimit = 50
	defaultPeekLimit    = 20
)

// ConfigFrom maps the client configuration onto engine settings.
func ConfigFrom(cfg core.Config) Config {
	return Config{
		Mode:         cfg.Sync.Mode,
		UserID:       cfg.User.ID,
		PollInterval: cfg.Sync.PollInterval,
		MatchWindow:  cfg.Sync.MatchWindow,
		PageSize:     cfg.Sync.PageSize,
		InitialLimit: cfg.Sync.InitialLimit,
		PeekLimit:    cfg.Sync.PeekLimit,
	}
}

func (c Config) withDefaults() Config {
	if c.Mode != core.ModeWidget {
		c.Mode = core.ModePanel
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.MatchWindow <= 0 {
		c.MatchWindow = store.DefaultMatchWindow
	}
	if c.PageSize <= 0 {
		c.PageSize = defaultPageSize
	}
	if c.InitialLimit <= 0 {
		c.InitialLimit = defaultInitialLimit
	}
	if c.PeekLimit <= 0 {
		c.PeekLimit = defaultPeekLimit
	}
	return c
}
