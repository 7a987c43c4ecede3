// cmd/shortlist/main.go
//
// This is the entry point for the shortlist CLI.
// When you run `shortlist` from any directory, this is what executes.
//
// Flow:
// 1. Create the .shortlist workspace next to the current directory
// 2. Load config.yaml (plus SHORTLIST_* environment overrides)
// 3. Launch the TUI

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/candidatesuite/shortlist/internal/config"
	"github.com/candidatesuite/shortlist/internal/tui"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	if err := config.InitShortlistDir(cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing .shortlist directory: %v\n", err)
		os.Exit(1)
	}

	app, err := tui.NewApp(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// tea.NewProgram creates a new bubbletea application; AltScreen keeps the
	// terminal scrollback clean while the board is up.
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
