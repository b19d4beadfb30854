// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui's commands.go file contains the Bubble Tea commands that run
// Blender in the background and feed its output back into the Update loop.

package ui

import (
	"context"

	"blender-engine/internal/runner"

	tea "github.com/charmbracelet/bubbletea"
)

// runStepCmd starts step and hands its channels to the model.
func runStepCmd(ctx context.Context, step runner.Step) tea.Cmd {
	return func() tea.Msg {
		// Interactive runs always stream over channels; the TUI owns the terminal.
		outChan, errChan := runner.Run(ctx, step, false)
		return channelsAvailableMsg{outChan: outChan, errChan: errChan}
	}
}

// waitForOutputCmd waits for the next output line. A closed channel means the
// process has exited and its final error is ready.
func waitForOutputCmd(outChan <-chan runner.OutputLine) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-outChan
		if !ok {
			return outputClosedMsg{}
		}
		return outputLineMsg{line}
	}
}

// waitForErrorCmd waits for the final result of a run.
func waitForErrorCmd(errChan <-chan error) tea.Cmd {
	return func() tea.Msg {
		return stepFinishedMsg{<-errChan}
	}
}
