package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bizportal/portalchat/internal/db"
	"github.com/bizportal/portalchat/internal/remote"
	"github.com/spf13/cobra"
)

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	switch {
	case isSchemaError(err):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: the local database looks out of date. Move it aside and run: portalchat seed")
	case isAuthError(err):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: check api.token in your config or PORTALCHAT_API_TOKEN")
	case errors.Is(err, db.ErrNotFound) || remote.IsNotFound(err):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: list rooms with: portalchat rooms, message ids with: portalchat history <room>")
	}

	return reportedError{err}
}

// reportedError marks errors already written to the command's stderr.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already printed by a command.
func IsReported(err error) bool {
	var reported reportedError
	return errors.As(err, &reported)
}

// isSchemaError checks if an error is a SQLite schema mismatch.
func isSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column")
}

func isAuthError(err error) bool {
	var apiErr *remote.APIError
	return errors.As(err, &apiErr) && (apiErr.Status == 401)
}
