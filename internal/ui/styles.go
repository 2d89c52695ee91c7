// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	statusDownStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	statusLoadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	serviceNameStyle   = lipgloss.NewStyle().Bold(true).Width(5)
	urlStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Underline(true)
	stderrStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))

	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("238")). // Light grey border
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250")).
			MarginTop(1)
)
