// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ui

import (
	"fmt"
	"strings"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FMU Settings"))
	b.WriteString("\n\n")

	for _, row := range m.services {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	switch {
	case m.shuttingDown:
		b.WriteString("\n")
		b.WriteString(statusStyle.Render("Shutting down FMU Settings..."))
		b.WriteString("\n")
	case m.ready:
		b.WriteString("\nOpen FMU Settings at ")
		b.WriteString(urlStyle.Render(m.url))
		b.WriteString("\n")
	}

	if m.showLogs && len(m.logs) > 0 {
		lines := make([]string, len(m.logs))
		for i, l := range m.logs {
			text := fmt.Sprintf("%s │ %s", l.service, l.text)
			if l.isError {
				text = stderrStyle.Render(text)
			}
			lines[i] = text
		}
		box := logBoxStyle
		if m.width > 4 {
			box = box.Width(m.width - 2)
		}
		b.WriteString("\n")
		b.WriteString(box.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(m.help.View(m.keys)))
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderRow(row *serviceRow) string {
	name := serviceNameStyle.Render(string(row.name))
	switch row.state {
	case serviceListening:
		return fmt.Sprintf("%s %s", name, successStyle.Render("running on "+row.addr))
	case serviceStopped:
		return fmt.Sprintf("%s %s", name, statusDownStyle.Render("stopped"))
	case serviceFailed:
		return fmt.Sprintf("%s %s", name, errorStyle.Render(row.err.Error()))
	default:
		label := "starting"
		if row.addr != "" {
			label = "starting on " + row.addr
		}
		return fmt.Sprintf("%s %s %s", name, m.spinner.View(), statusLoadingStyle.Render(label+"..."))
	}
}
