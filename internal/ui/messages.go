// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui's messages.go file defines the message types that drive the
// interactive session's Update loop.

package ui

import (
	"blender-engine/internal/runner"
)

// Run messages, in the order a Blender run produces them.
type channelsAvailableMsg struct {
	outChan <-chan runner.OutputLine
	errChan <-chan error
}
type outputLineMsg struct{ line runner.OutputLine }
type outputClosedMsg struct{}
type stepFinishedMsg struct{ err error }
