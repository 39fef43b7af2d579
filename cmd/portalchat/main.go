package main

import (
	"fmt"
	"os"

	"github.com/bizportal/portalchat/internal/command"
)

func main() {
	if err := command.Execute(); err != nil {
		if !command.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
