// Package command implements the portalchat command line.
package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "portalchat"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "portalchat - terminal client for business portal chat",
		Long:          "portalchat keeps your portal conversations in sync and lets you read and reply from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "", "config file (default $HOME/.config/portalchat/config.yaml)")
	cmd.PersistentFlags().String("local", "", "use the SQLite database at this path instead of the API")
	cmd.PersistentFlags().String("as", "", "act as this user id")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output")

	cmd.AddCommand(
		NewRoomsCmd(),
		NewHistoryCmd(),
		NewSendCmd(),
		NewReactCmd(),
		NewEditCmd(),
		NewRmCmd(),
		NewWatchCmd(),
		NewChatCmd(),
		NewServeCmd(),
		NewSeedCmd(),
		NewPostCmd(),
		NewConfigCmd(),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd(Version).Execute()
}
