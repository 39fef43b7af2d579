package command

import (
	"fmt"
	"time"

	"github.com/bizportal/portalchat/internal/types"
	"github.com/spf13/cobra"
)

// NewRoomsCmd creates the rooms command.
func NewRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rooms",
		Aliases: []string{"ls"},
		Short:   "List your rooms",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			rooms, err := ctx.Backend.ListRooms(cmd.Context())
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if rooms == nil {
				rooms = []types.RoomSummary{}
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), rooms)
			}
			out := cmd.OutOrStdout()
			if len(rooms) == 0 {
				fmt.Fprintln(out, "No rooms")
				return nil
			}
			now := time.Now()
			for _, room := range rooms {
				fmt.Fprintln(out, FormatRoom(room, now))
			}
			return nil
		},
	}
	return cmd
}
