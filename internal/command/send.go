package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/core"
	"github.com/bizportal/portalchat/internal/types"
	"github.com/spf13/cobra"
)

// NewSendCmd creates the send command.
func NewSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <room> <message...>",
		Short: "Send a message to a room",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			draft := types.Draft{Body: strings.Join(args[1:], " ")}
			if draft.Empty() {
				return writeCommandError(cmd, fmt.Errorf("message cannot be empty"))
			}

			room, err := resolveRoom(cmd.Context(), ctx, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}

			msg, err := ctx.Backend.SendMessage(cmd.Context(), room.ID, draft, core.NewClientID())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			ctx.Log.Debug("message sent", "room", room.ID, "id", msg.ID)

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), msg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), FormatMessage(*msg, ctx.UserID, time.Now()))
			return nil
		},
	}
	return cmd
}
