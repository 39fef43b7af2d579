package command

import (
	"context"
	"fmt"
	"time"

	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/types"
	"github.com/spf13/cobra"
)

const historyTimeout = 30 * time.Second

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <room>",
		Short: "Show messages in a room",
		Long: `Show the latest messages in a room.

--since accepts a relative duration (30m, 2h, 1d), "today", "yesterday"
or a date (2006-01-02). --older loads that many extra pages of history
before the latest messages.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			sinceExpr, _ := cmd.Flags().GetString("since")
			older, _ := cmd.Flags().GetInt("older")

			runCtx, cancel := context.WithTimeout(cmd.Context(), historyTimeout)
			defer cancel()

			room, err := resolveRoom(runCtx, ctx, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			var messages []types.Message
			if sinceExpr != "" {
				since, err := core.ParseTimeExpression(sinceExpr, time.Now())
				if err != nil {
					return writeCommandError(cmd, err)
				}
				result, err := ctx.Backend.FetchMessages(runCtx, room.ID, types.FetchOptions{Since: since, Limit: limit})
				if err != nil {
					return writeCommandError(cmd, err)
				}
				messages = result.Messages
			} else {
				messages, err = loadHistory(runCtx, ctx, room.ID, limit, older)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			if ctx.JSONMode {
				if messages == nil {
					messages = []types.Message{}
				}
				return writeJSON(cmd.OutOrStdout(), messages)
			}
			out := cmd.OutOrStdout()
			if len(messages) == 0 {
				fmt.Fprintln(out, "No messages")
				return nil
			}
			now := time.Now()
			for _, msg := range messages {
				fmt.Fprintln(out, FormatMessage(msg, ctx.UserID, now))
			}
			return nil
		},
	}

	cmd.Flags().IntP("limit", "n", 0, "number of latest messages to load (default sync.initial_limit)")
	cmd.Flags().String("since", "", "only messages after this time")
	cmd.Flags().Int("older", 0, "extra pages of older history to load")
	return cmd
}

// loadHistory runs a widget-mode engine on one room until its initial fetch
// and the requested older pages have landed.
func loadHistory(ctx context.Context, c *CommandContext, roomID string, limit, older int) ([]types.Message, error) {
	cfg := chatsync.ConfigFrom(c.Config)
	cfg.Mode = core.ModeWidget
	cfg.InitialRoom = roomID
	if limit > 0 {
		cfg.InitialLimit = limit
	}
	engine := chatsync.New(c.Backend, cfg, chatsync.WithLogger(c.Log))
	defer engine.Close()

	sub := engine.Subscribe(0)
	defer sub.Close()

	if err := engine.Start(ctx); err != nil {
		return nil, err
	}
	if err := waitLoaded(ctx, engine, sub, roomID); err != nil {
		return nil, err
	}
	for i := 0; i < older; i++ {
		page, err := engine.LoadOlder(ctx, roomID)
		if err != nil {
			return nil, err
		}
		if !page.HasMore {
			break
		}
	}
	return engine.Messages(roomID), nil
}

func waitLoaded(ctx context.Context, engine *chatsync.Engine, sub *chatsync.Subscription, roomID string) error {
	for !engine.Loaded(roomID) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for room %s: %w", roomID, ctx.Err())
		case _, ok := <-sub.Events():
			if !ok {
				return chatsync.ErrClosed
			}
		}
	}
	return nil
}
