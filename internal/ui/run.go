// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"context"
	"fmt"

	"fmu-settings/internal/launcher"

	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the dashboard until events is closed. Ctrl+C is delivered as a
// key press while the terminal is in raw mode, so the dashboard is what
// turns it into cancel.
func Run(events <-chan launcher.Event, cancel context.CancelFunc) error {
	m := NewModel(events, cancel)
	p := tea.NewProgram(m, tea.WithoutSignalHandler())
	if _, err := p.Run(); err != nil {
		cancel()
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}
