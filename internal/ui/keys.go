// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// This file defines the keyboard bindings for the interactive session.

package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the interactive session.
type KeyMap struct {
	// Prompt
	Submit   key.Binding // Run the typed command
	PrevLine key.Binding // Previous history entry
	NextLine key.Binding // Next history entry

	// Output scrolling
	PgUp   key.Binding
	PgDown key.Binding
	Clear  key.Binding // Clear the output pane

	// Cancel stops a running command; Quit leaves the session when idle.
	Cancel key.Binding
	Quit   key.Binding
}

// DefaultKeyMap provides the default keybindings.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "run"),
	),
	PrevLine: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous"),
	),
	NextLine: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next"),
	),
	PgUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll up"),
	),
	PgDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "scroll down"),
	),
	Clear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "ctrl+d"),
		key.WithHelp("ctrl+c", "quit"),
	),
}
