package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewReactCmd creates the react command.
func NewReactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "react <msgid> <emoji>",
		Short: "Toggle a reaction on a message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			id, symbol := strings.TrimPrefix(args[0], "#"), strings.TrimSpace(args[1])
			if symbol == "" {
				return writeCommandError(cmd, fmt.Errorf("reaction cannot be empty"))
			}
			if err := ctx.Backend.AddReaction(cmd.Context(), id, symbol); err != nil {
				return writeCommandError(cmd, err)
			}
			return writeResult(cmd, ctx, map[string]string{"id": id, "reaction": symbol}, fmt.Sprintf("Reacted %s to %s", symbol, id))
		},
	}
	return cmd
}

// NewEditCmd creates the edit command.
func NewEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <msgid> <message...>",
		Short: "Edit a message you sent",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			id := strings.TrimPrefix(args[0], "#")
			body := strings.Join(args[1:], " ")
			if strings.TrimSpace(body) == "" {
				return writeCommandError(cmd, fmt.Errorf("message cannot be empty"))
			}
			if err := ctx.Backend.EditMessage(cmd.Context(), id, body); err != nil {
				return writeCommandError(cmd, err)
			}
			return writeResult(cmd, ctx, map[string]string{"id": id, "body": body}, fmt.Sprintf("Edited %s", id))
		},
	}
	return cmd
}

// NewRmCmd creates the rm command.
func NewRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm <msgid>",
		Aliases: []string{"delete"},
		Short:   "Delete a message you sent",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer ctx.Close()

			id := strings.TrimPrefix(args[0], "#")
			if err := ctx.Backend.DeleteMessage(cmd.Context(), id); err != nil {
				return writeCommandError(cmd, err)
			}
			return writeResult(cmd, ctx, map[string]string{"id": id, "deleted": "true"}, fmt.Sprintf("Deleted %s", id))
		},
	}
	return cmd
}

func writeResult(cmd *cobra.Command, ctx *CommandContext, payload any, text string) error {
	if ctx.JSONMode {
		return writeJSON(cmd.OutOrStdout(), payload)
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}
