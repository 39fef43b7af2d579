package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bizportal/portalchat/internal/chat"
	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/logger"
	"github.com/bizportal/portalchat/internal/watcher"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewChatCmd creates the chat command.
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [room]",
		Short: "Interactive chat",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonMode, _ := cmd.Flags().GetBool("json"); jsonMode {
				return writeCommandError(cmd, fmt.Errorf("--json not supported for interactive chat"))
			}
			widget, _ := cmd.Flags().GetBool("widget")
			noNotify, _ := cmd.Flags().GetBool("no-notify")
			logPath, _ := cmd.Flags().GetString("log-file")

			// The UI owns the terminal, so logs go to a file.
			if logPath == "" {
				logPath = filepath.Join(os.TempDir(), "portalchat.log")
			}
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			log, err := logger.NewFile(cfg.Log.Mode, logPath)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			ctx, err := GetContextWithLogger(cmd, log)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			if widget {
				ctx.Config.Sync.Mode = core.ModeWidget
			}

			initial := ""
			if len(args) == 1 {
				room, err := resolveRoom(cmd.Context(), ctx, args[0])
				if err != nil {
					return writeCommandError(cmd, err)
				}
				initial = room.ID
			}

			engine := ctx.newEngine(initial)
			defer engine.Close()
			if err := engine.Start(cmd.Context()); err != nil {
				return writeCommandError(cmd, err)
			}

			runCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, gctx := errgroup.WithContext(runCtx)
			if ctx.Local() {
				w, err := watcher.New(ctx.DBPath, 0, func() { _ = engine.NudgeAll() }, ctx.Log)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				defer w.Close()
				g.Go(func() error { return w.Run(gctx) })
			}

			title := ctx.UserID
			if ctx.Local() {
				title += " (local)"
			}
			g.Go(func() error {
				// Quitting the UI stops the watcher too.
				defer cancel()
				return chat.Run(gctx, chat.Options{
					Engine: engine,
					UserID: ctx.UserID,
					Title:  title,
					Notify: ctx.Config.Notify.Enabled && !noNotify,
					Log:    ctx.Log,
				})
			})
			if err := g.Wait(); err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("widget", false, "poll only the active room")
	cmd.Flags().Bool("no-notify", false, "disable desktop notifications")
	cmd.Flags().String("log-file", "", "write logs to this file (default $TMPDIR/portalchat.log)")
	return cmd
}
