// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package tui

import (
	"fmt"
	"os"

	"blender-engine/internal/engine"
	"blender-engine/internal/logger"
	"blender-engine/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

// RunTUI runs the interactive session against agent.
func RunTUI(agent *engine.BlenderAgent) {
	logger.InitLogger(true)
	m := ui.NewModel(agent)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Alas, there's been an error: %v\n", err)
		os.Exit(1)
	}
}
