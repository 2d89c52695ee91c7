// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the status dashboard.
type KeyMap struct {
	Quit      key.Binding // Stop both servers and exit
	ToggleLog key.Binding // Show or hide server output
}

// DefaultKeyMap provides the default keybindings.
var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
	ToggleLog: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "toggle output"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ToggleLog, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
