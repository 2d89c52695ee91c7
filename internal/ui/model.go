// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui implements the terminal dashboard shown while the full
// application runs: server status, the authorized URL and recent output.
package ui

import (
	"context"

	"fmu-settings/internal/launcher"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const maxLogLines = 12

// serviceState is where one server is in its lifecycle.
type serviceState int

const (
	serviceStarting serviceState = iota
	serviceListening
	serviceStopped
	serviceFailed
)

type serviceRow struct {
	name  launcher.Service
	addr  string
	state serviceState
	err   error
}

type logLine struct {
	service launcher.Service
	text    string
	isError bool
}

// Model is the Bubble Tea model of the dashboard.
type Model struct {
	events <-chan launcher.Event
	cancel context.CancelFunc

	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	services []*serviceRow
	url      string
	logs     []logLine
	showLogs bool

	ready        bool
	shuttingDown bool
	finished     bool
	width        int
}

// NewModel returns a dashboard fed by events. cancel is called when the user
// asks to quit; the dashboard then keeps running until events is closed.
func NewModel(events <-chan launcher.Event, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = statusStyle

	return Model{
		events:  events,
		cancel:  cancel,
		keys:    DefaultKeyMap,
		help:    help.New(),
		spinner: s,
		services: []*serviceRow{
			{name: launcher.ServiceAPI},
			{name: launcher.ServiceGUI},
		},
		showLogs: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForEventCmd(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			if !m.shuttingDown {
				m.shuttingDown = true
				m.cancel()
			}
		case key.Matches(msg, m.keys.ToggleLog):
			m.showLogs = !m.showLogs
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.apply(msg.ev)
		return m, waitForEventCmd(m.events)

	case eventsClosedMsg:
		m.finished = true
		return m, tea.Quit
	}
	return m, nil
}

// apply folds one launcher event into the model. Rows are pointers shared
// between copies of the model, which is fine because only Update mutates them.
func (m *Model) apply(ev launcher.Event) {
	switch ev.Kind {
	case launcher.EventStarting:
		if row := m.row(ev.Service); row != nil {
			row.addr = ev.Addr
			row.state = serviceStarting
		}
	case launcher.EventListening:
		if row := m.row(ev.Service); row != nil {
			row.addr = ev.Addr
			row.state = serviceListening
		}
	case launcher.EventReady:
		m.ready = true
		m.url = ev.URL
	case launcher.EventOutput:
		m.logs = append(m.logs, logLine{service: ev.Service, text: ev.Line.Line, isError: ev.Line.IsError})
		if len(m.logs) > maxLogLines {
			m.logs = m.logs[len(m.logs)-maxLogLines:]
		}
	case launcher.EventExited:
		if row := m.row(ev.Service); row != nil {
			row.err = ev.Err
			row.state = serviceStopped
			if ev.Err != nil {
				row.state = serviceFailed
			}
		}
	case launcher.EventShuttingDown:
		m.shuttingDown = true
	}
}

func (m *Model) row(svc launcher.Service) *serviceRow {
	for _, r := range m.services {
		if r.name == svc {
			return r
		}
	}
	return nil
}
