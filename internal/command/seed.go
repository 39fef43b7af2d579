package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bizportal/portalchat/internal/db"
	"github.com/spf13/cobra"
)

var errLocalOnly = errors.New("this command needs a local database (pass --local or leave api.base_url empty)")

// NewSeedCmd creates the seed command.
func NewSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo rooms in the local database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			if !ctx.Local() {
				return writeCommandError(cmd, errLocalOnly)
			}

			rooms, err := db.Seed(ctx.DB, ctx.UserID)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), rooms)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Seeded %d rooms in %s for %s\n", len(rooms), ctx.DBPath, ctx.UserID)
			for _, room := range rooms {
				fmt.Fprintf(out, "  %s  %s\n", room.ID, room.Name)
			}
			return nil
		},
	}
	return cmd
}

// NewPostCmd creates the post command.
func NewPostCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post <room> <message...> --from <user>",
		Short: "Write a message into the local database as another user",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()
			if !ctx.Local() {
				return writeCommandError(cmd, errLocalOnly)
			}

			from, _ := cmd.Flags().GetString("from")
			from = strings.TrimSpace(from)
			if from == "" {
				return writeCommandError(cmd, fmt.Errorf("--from is required"))
			}
			body := strings.Join(args[1:], " ")
			if strings.TrimSpace(body) == "" {
				return writeCommandError(cmd, fmt.Errorf("message cannot be empty"))
			}

			room, err := db.FindRoom(ctx.DB, ctx.UserID, args[0])
			if err != nil {
				return writeCommandError(cmd, err)
			}
			msg, err := db.Post(ctx.DB, room.ID, from, body)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), msg)
			}
			fmt.Fprintln(cmd.OutOrStdout(), FormatMessage(msg, ctx.UserID, time.Now()))
			return nil
		},
	}
	cmd.Flags().String("from", "", "sender user id")
	return cmd
}
