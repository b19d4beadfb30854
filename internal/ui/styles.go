// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle             = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	errorStyle             = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	stepStyle              = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	promptStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Bold(true)
	stderrStyle            = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	serverNameStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Italic(true)
	mainContentBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("238"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	footerKeyStyle = lipgloss.NewStyle().
			Inherit(footerStyle).
			Foreground(lipgloss.Color("39"))

	footerSeparatorStyle = lipgloss.NewStyle().
				Inherit(footerStyle).
				Foreground(lipgloss.Color("240"))
)
