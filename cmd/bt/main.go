package main

import (
	"fmt"
	"os"

	"blender-engine/cmd/cli"
	"blender-engine/cmd/tui"
)

func main() {
	// If no arguments (or just the program name) are provided, run the TUI.
	// Otherwise, run the CLI (which will handle the arguments).
	if len(os.Args) <= 1 {
		agent, err := cli.DefaultAgent()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		tui.RunTUI(agent)
	} else {
		cli.RunCLI()
	}
}
