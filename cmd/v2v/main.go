// Package main is the entry point for the v2v voice chat client.
//
// Usage:
//
//	v2v [flags] <command> [subcommand] [args]
//
// Commands:
//
//	chat      - Interactive voice chat
//	say       - Speak text with the configured speaker
//	replay    - Play a recorded utterance script through the controller
//	sessions  - Backend sessions (list, new, show)
//	config    - Configuration management (contexts)
//	doctor    - Check the backend and speech capabilities
//	cache     - Synthesized speech cache (stats, clear)
//	version   - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/haivivi/v2v/cmd/v2v/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
