// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"fmu-settings/internal/launcher"

	tea "github.com/charmbracelet/bubbletea"
)

// waitForEventCmd waits for the next launcher event.
func waitForEventCmd(events <-chan launcher.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return eventsClosedMsg{}
		}
		return eventMsg{ev}
	}
}
