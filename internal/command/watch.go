package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bizportal/portalchat/internal/chatsync"
	"github.com/bizportal/portalchat/internal/types"
	"github.com/bizportal/portalchat/internal/watcher"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [room]",
		Short: "Stream new messages as they arrive",
		Long: `Stream new messages as they arrive.

With a room, prints every message that lands in it. Without one, prints
new-message notifications from all your rooms.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			roomID := ""
			if len(args) == 1 {
				room, err := resolveRoom(runCtx, ctx, args[0])
				if err != nil {
					return writeCommandError(cmd, err)
				}
				roomID = room.ID
			}

			engine := ctx.newEngine(roomID)
			defer engine.Close()
			sub := engine.Subscribe(0)
			defer sub.Close()

			if err := engine.Start(runCtx); err != nil {
				return writeCommandError(cmd, err)
			}
			if err := runWatch(runCtx, cmd, ctx, engine, sub, roomID); err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}
	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, c *CommandContext, engine *chatsync.Engine, sub *chatsync.Subscription, roomID string) error {
	g, gctx := errgroup.WithContext(ctx)
	if c.Local() {
		w, err := watcher.New(c.DBPath, 0, func() { _ = engine.NudgeAll() }, c.Log)
		if err != nil {
			return err
		}
		defer w.Close()
		g.Go(func() error { return w.Run(gctx) })
	}
	g.Go(func() error {
		return printEvents(gctx, cmd, c, engine, sub, roomID)
	})
	return g.Wait()
}

// printEvents prints each confirmed message once. Messages present when the
// room first loads are treated as already seen.
func printEvents(ctx context.Context, cmd *cobra.Command, c *CommandContext, engine *chatsync.Engine, sub *chatsync.Subscription, roomID string) error {
	out := cmd.OutOrStdout()
	seen := make(map[string]bool)
	primed := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			switch {
			case roomID == "" && ev.Kind == chatsync.EventNewMessage && ev.Message != nil:
				if err := emit(out, c, roomLabel(engine, ev.RoomID), *ev.Message); err != nil {
					return err
				}
			case roomID != "" && ev.RoomID == roomID && ev.Kind == chatsync.EventMessages && !ev.Older:
				if !engine.Loaded(roomID) {
					continue
				}
				for _, msg := range engine.Messages(roomID) {
					if msg.IsOptimistic() || seen[msg.ID] {
						continue
					}
					seen[msg.ID] = true
					if !primed {
						continue
					}
					if err := emit(out, c, "", msg); err != nil {
						return err
					}
				}
				primed = true
			}
		}
	}
}

func roomLabel(engine *chatsync.Engine, roomID string) string {
	room, ok := engine.Room(roomID)
	if !ok {
		return roomID
	}
	if room.Type == types.RoomTypeGroup {
		return "#" + room.Name
	}
	return room.Name
}

func emit(out io.Writer, c *CommandContext, label string, msg types.Message) error {
	if c.JSONMode {
		return writeJSON(out, msg)
	}
	line := FormatMessage(msg, c.UserID, time.Now())
	if label != "" {
		line = fmt.Sprintf("%s%s%s %s", bold, label, reset, line)
	}
	_, err := fmt.Fprintln(out, line)
	return err
}
