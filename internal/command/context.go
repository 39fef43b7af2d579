package command

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/db"
	"github.com/bizportal/portalchat/internal/logger"
	"github.com/bizportal/portalchat/internal/remote"
	"github.com/bizportal/portalchat/internal/types"
	"github.com/spf13/cobra"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Config   core.Config
	UserID   string
	JSONMode bool
	Log      *logger.Logger
	Backend  chatsync.Backend

	// DB and DBPath are set in local mode only.
	DB     *sql.DB
	DBPath string
}

// Local reports whether the context reads a local database.
func (c *CommandContext) Local() bool {
	return c.DB != nil
}

// Close releases the database and flushes the logger.
func (c *CommandContext) Close() {
	if c.DB != nil {
		_ = c.DB.Close()
	}
	c.Log.Sync()
}

// loadConfig reads the config flagged with --config, or the default path.
func loadConfig(cmd *cobra.Command) (core.Config, string, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		path, err = core.DefaultConfigPath()
		if err != nil {
			return core.Config{}, "", err
		}
	}
	cfg, err := core.LoadConfig(path)
	return cfg, path, err
}

// GetContext resolves configuration, identity and backend for a command.
// --local, or an empty api.base_url, selects the SQLite backend.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	return getContext(cmd, nil)
}

// GetContextWithLogger is GetContext using log instead of a stderr logger.
func GetContextWithLogger(cmd *cobra.Command, log *logger.Logger) (*CommandContext, error) {
	return getContext(cmd, log)
}

func getContext(cmd *cobra.Command, log *logger.Logger) (*CommandContext, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	jsonMode, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")
	localPath, _ := cmd.Flags().GetString("local")
	if as, _ := cmd.Flags().GetString("as"); strings.TrimSpace(as) != "" {
		cfg.User.ID = strings.TrimSpace(as)
	}
	if cfg.User.ID == "" {
		return nil, errors.New("no user id: set user.id in the config, PORTALCHAT_USER_ID, or pass --as")
	}

	if log == nil {
		log, err = logger.New(cfg.Log.Mode)
		if err != nil {
			return nil, err
		}
		log.SetQuiet(!verbose, cfg.Log.Mode)
	}

	ctx := &CommandContext{
		Config:   cfg,
		UserID:   cfg.User.ID,
		JSONMode: jsonMode,
		Log:      log,
	}

	if localPath != "" || cfg.API.BaseURL == "" {
		if localPath == "" {
			localPath = cfg.Local.DBPath
		}
		if localPath == "" {
			localPath = core.DefaultDBPath()
		}
		conn, err := db.Open(localPath)
		if err != nil {
			return nil, err
		}
		ctx.DB = conn
		ctx.DBPath = localPath
		ctx.Backend = db.NewService(conn, cfg.User.ID)
		log.Debug("using local database", "path", localPath, "user", cfg.User.ID)
		return ctx, nil
	}

	token := cfg.API.Token
	if token == "" {
		token = cfg.User.ID
	}
	client, err := remote.NewClient(cfg.API.BaseURL, token, cfg.API.Timeout)
	if err != nil {
		return nil, err
	}
	ctx.Backend = client
	log.Debug("using remote api", "base_url", cfg.API.BaseURL, "user", cfg.User.ID)
	return ctx, nil
}

// newEngine builds an engine over the context backend. It is not started.
func (c *CommandContext) newEngine(initialRoom string, opts ...chatsync.Option) *chatsync.Engine {
	cfg := chatsync.ConfigFrom(c.Config)
	cfg.InitialRoom = initialRoom
	opts = append([]chatsync.Option{chatsync.WithLogger(c.Log)}, opts...)
	return chatsync.New(c.Backend, cfg, opts...)
}

// resolveRoom finds a room by id or name, preferring exact id matches.
func resolveRoom(ctx context.Context, c *CommandContext, ref string) (types.RoomSummary, error) {
	rooms, err := c.Backend.ListRooms(ctx)
	if err != nil {
		return types.RoomSummary{}, err
	}
	ref = strings.TrimPrefix(strings.TrimSpace(ref), "#")
	for _, room := range rooms {
		if room.ID == ref {
			return room, nil
		}
	}
	var matches []types.RoomSummary
	for _, room := range rooms {
		if strings.EqualFold(room.Name, ref) {
			matches = append(matches, room)
		}
	}
	switch len(matches) {
	case 0:
		return types.RoomSummary{}, fmt.Errorf("room %q: %w", ref, db.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return types.RoomSummary{}, fmt.Errorf("room name %q is ambiguous; use the room id", ref)
	}
}
