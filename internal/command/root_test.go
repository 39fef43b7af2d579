package command

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func executeCommand(cmd *cobra.Command, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCommandVersion(t *testing.T) {
	cmd := NewRootCmd("test")

	output, err := executeCommand(cmd, "--version")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(output, "portalchat version test") {
		t.Fatalf("expected version output, got %q", output)
	}
}

func TestRootCommandHelp(t *testing.T) {
	cmd := NewRootCmd("test")

	output, err := executeCommand(cmd)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !strings.Contains(output, "portal conversations") {
		t.Fatalf("expected help output, got %q", output)
	}
}

func TestCommandRequiresUser(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("PORTALCHAT_USER_ID", "")
	dir := t.TempDir()

	cmd := NewRootCmd("test")
	output, err := executeCommand(cmd, "--config", dir+"/config.yaml", "--local", dir+"/chat.db", "rooms")
	if err == nil {
		t.Fatal("expected error without a user id")
	}
	if !strings.Contains(output, "Error: no user id") {
		t.Fatalf("expected error output, got %q", output)
	}
}
