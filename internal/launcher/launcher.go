// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package launcher starts the FMU Settings API and GUI servers, alone or
// together, and supervises them until they stop.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"

	"fmu-settings/internal/auth"
	"fmu-settings/internal/browser"
	"fmu-settings/internal/config"
	"fmu-settings/internal/runner"
	"fmu-settings/internal/web"
)

// Service identifies one of the two servers.
type Service string

const (
	ServiceAPI Service = "API"
	ServiceGUI Service = "GUI"
)

// ErrUnregisteredPort is returned when the GUI port is not one the app registration knows.
var ErrUnregisteredPort = errors.New("is not known by the Azure App registration")

// APIOptions are the parameters of a standalone API launch.
type APIOptions struct {
	Token        string
	Host         string
	Port         int
	FrontendHost string // CORS host the GUI sends requests from
	FrontendPort int    // CORS port the GUI sends requests from
	Reload       bool
	LogLevel     string
}

// GUIOptions are the parameters of a standalone GUI launch.
type GUIOptions struct {
	Token    string
	Host     string
	Port     int
	LogLevel string
}

// AppOptions are the parameters of the full application: API and GUI together.
type AppOptions struct {
	Token    string
	Host     string
	APIPort  int
	GUIPort  int
	Reload   bool
	LogLevel string

	// OpenBrowser opens the authorized URL once both servers accept connections
	OpenBrowser bool

	// Events, when non-nil, receives progress. The caller must keep
	// receiving until RunApp returns; RunApp never closes it.
	Events chan<- Event

	// Stream sends child output as EventOutput instead of writing it to the terminal
	Stream bool
}

// Runner is the set of entry points the CLI dispatches to. Each call blocks
// until the service stops; a nil error means a clean shutdown.
type Runner interface {
	RunAPI(ctx context.Context, opts APIOptions) error
	RunGUI(ctx context.Context, opts GUIOptions) error
	RunApp(ctx context.Context, opts AppOptions) error
}

// Launcher is the Runner backed by external server processes.
type Launcher struct {
	cfg         config.Config
	openBrowser func(url string) error
}

var _ Runner = (*Launcher)(nil)

// New returns a Launcher that runs the services described in cfg.
func New(cfg config.Config) *Launcher {
	return &Launcher{cfg: cfg, openBrowser: browser.Open}
}

// RunAPI runs the API server in the foreground with output on the terminal.
func (l *Launcher) RunAPI(ctx context.Context, opts APIOptions) error {
	return cleanStop(ctx, runner.Run(ctx, l.apiCommand(opts), nil))
}

// RunGUI runs the GUI server in the foreground. The port must be registered.
func (l *Launcher) RunGUI(ctx context.Context, opts GUIOptions) error {
	if err := l.CheckGUIPort(opts.Port); err != nil {
		return err
	}
	return cleanStop(ctx, l.runGUI(ctx, opts, nil))
}

// CheckGUIPort rejects GUI ports outside the registered set.
func (l *Launcher) CheckGUIPort(port int) error {
	if l.cfg.IsRegisteredGUIPort(port) {
		return nil
	}
	known := make([]string, len(l.cfg.RegisteredGUIPorts))
	for i, p := range l.cfg.RegisteredGUIPorts {
		known[i] = strconv.Itoa(p)
	}
	return fmt.Errorf("port %d %w. Use one of %s", port, ErrUnregisteredPort, strings.Join(known, ", "))
}

func (l *Launcher) runGUI(ctx context.Context, opts GUIOptions, out chan<- runner.OutputLine) error {
	if l.cfg.GUI.StaticDir != "" {
		return web.Serve(ctx, net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)), l.cfg.GUI.StaticDir)
	}
	return runner.Run(ctx, l.guiCommand(opts), out)
}

func (l *Launcher) apiCommand(opts APIOptions) runner.Command {
	args := slices.Clone(l.cfg.API.Args)
	args = append(args,
		"--host", opts.Host,
		"--port", strconv.Itoa(opts.Port),
		"--frontend-host", opts.FrontendHost,
		"--frontend-port", strconv.Itoa(opts.FrontendPort),
		"--log-level", opts.LogLevel,
	)
	if opts.Reload {
		args = append(args, "--reload")
	}
	return runner.Command{
		Desc:      "API server",
		Path:      l.cfg.API.Command,
		Args:      args,
		Env:       serviceEnv(l.cfg.API.Env, opts.Token),
		WaitDelay: l.cfg.ShutdownGrace,
	}
}

func (l *Launcher) guiCommand(opts GUIOptions) runner.Command {
	args := slices.Clone(l.cfg.GUI.Args)
	args = append(args,
		"--host", opts.Host,
		"--port", strconv.Itoa(opts.Port),
		"--log-level", opts.LogLevel,
	)
	return runner.Command{
		Desc:      "GUI server",
		Path:      l.cfg.GUI.Command,
		Args:      args,
		Env:       serviceEnv(l.cfg.GUI.Env, opts.Token),
		WaitDelay: l.cfg.ShutdownGrace,
	}
}

// serviceEnv renders extra in key order, followed by the token, which always wins.
func serviceEnv(extra map[string]string, token string) []string {
	env := make([]string, 0, len(extra)+1)
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return append(env, auth.TokenEnv+"="+token)
}

// cleanStop turns the cancellation that ends a foreground run into success.
func cleanStop(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}
