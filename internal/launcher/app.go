// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package launcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"fmu-settings/internal/auth"
	"fmu-settings/internal/logger"
	"fmu-settings/internal/ports"
	"fmu-settings/internal/runner"

	"golang.org/x/sync/errgroup"
)

// readyPollInterval is how often RunApp dials the servers while they start.
const readyPollInterval = 100 * time.Millisecond

// EventKind classifies an Event.
type EventKind int

const (
	EventStarting     EventKind = iota // a service process is being launched
	EventListening                     // a service accepts connections on Addr
	EventReady                         // both services are up; URL is the authorized URL
	EventOutput                        // a line of child output (Stream mode only)
	EventExited                        // a service stopped; Err says why
	EventShuttingDown                  // the caller's context ended
)

// Event reports progress of RunApp.
type Event struct {
	Kind    EventKind
	Service Service
	Addr    string
	URL     string
	Line    runner.OutputLine
	Err     error

	// Opened is set on EventReady when the browser was launched with URL
	Opened bool
}

// ServiceExitError reports the service whose exit ended the application.
type ServiceExitError struct {
	Service Service
	Port    int
	Err     error // nil when the service exited cleanly, which is still a bug
}

func (e *ServiceExitError) Error() string {
	var exitErr *runner.ExitError
	switch {
	case e.Err == nil:
		return fmt.Sprintf("%s unexpectedly exited. Please report this as a bug", e.Service)
	case errors.As(e.Err, &exitErr) && exitErr.Code > 0:
		return fmt.Sprintf("%s exited with exit code %d. Usually this means that another application is already using port %d",
			e.Service, exitErr.Code, e.Port)
	default:
		return fmt.Sprintf("%s failed with: %v", e.Service, e.Err)
	}
}

func (e *ServiceExitError) Unwrap() error { return e.Err }

// ExitCode is the status the launcher should exit with.
func (e *ServiceExitError) ExitCode() int {
	var exitErr *runner.ExitError
	if errors.As(e.Err, &exitErr) && exitErr.Code > 0 {
		return exitErr.Code
	}
	return 1
}

// RunApp starts the API and GUI concurrently and supervises them. It returns
// nil once ctx ends and both servers have stopped, or a *ServiceExitError
// when either server stops on its own.
func (l *Launcher) RunApp(ctx context.Context, opts AppOptions) error {
	if err := l.CheckGUIPort(opts.GUIPort); err != nil {
		return err
	}

	emit := func(ev Event) {
		if opts.Events != nil {
			opts.Events <- ev
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	api := APIOptions{
		Token:        opts.Token,
		Host:         opts.Host,
		Port:         opts.APIPort,
		FrontendHost: opts.Host,
		FrontendPort: opts.GUIPort,
		Reload:       opts.Reload,
		LogLevel:     opts.LogLevel,
	}
	gui := GUIOptions{
		Token:    opts.Token,
		Host:     opts.Host,
		Port:     opts.GUIPort,
		LogLevel: opts.LogLevel,
	}

	supervise := func(svc Service, port int, run func(out chan<- runner.OutputLine) error) {
		g.Go(func() error {
			out, drained := l.forwardOutput(svc, opts, emit)
			emit(Event{Kind: EventStarting, Service: svc, Addr: hostPort(opts.Host, port)})

			err := run(out)
			if out != nil {
				close(out)
				<-drained
			}

			if gctx.Err() != nil {
				// Stopped because the caller or the other service ended the run.
				emit(Event{Kind: EventExited, Service: svc})
				return nil
			}
			exitErr := &ServiceExitError{Service: svc, Port: port, Err: err}
			logger.Error("service exited", "service", svc, "error", exitErr)
			emit(Event{Kind: EventExited, Service: svc, Err: exitErr})
			return exitErr
		})
	}

	supervise(ServiceAPI, opts.APIPort, func(out chan<- runner.OutputLine) error {
		return runner.Run(gctx, l.apiCommand(api), out)
	})
	supervise(ServiceGUI, opts.GUIPort, func(out chan<- runner.OutputLine) error {
		return l.runGUI(gctx, gui, out)
	})

	g.Go(func() error {
		return l.awaitReady(gctx, opts, emit)
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			emit(Event{Kind: EventShuttingDown})
		}
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		logger.Info("fmu-settings shut down")
		return nil
	}
	return err
}

// awaitReady waits for both ports to accept connections, then opens the browser.
func (l *Launcher) awaitReady(ctx context.Context, opts AppOptions, emit func(Event)) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.StartupTimeout)
	defer cancel()

	for _, s := range []struct {
		svc  Service
		port int
	}{{ServiceAPI, opts.APIPort}, {ServiceGUI, opts.GUIPort}} {
		if err := ports.WaitListening(waitCtx, opts.Host, s.port, readyPollInterval); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%s did not start listening on port %d within %s: %w", s.svc, s.port, l.cfg.StartupTimeout, err)
		}
		emit(Event{Kind: EventListening, Service: s.svc, Addr: hostPort(opts.Host, s.port)})
	}

	url := auth.AuthorizedURL(opts.Token, opts.Host, opts.GUIPort)
	opened := false
	if opts.OpenBrowser {
		if err := l.openBrowser(url); err != nil {
			logger.Warn("could not open browser", "error", err)
		} else {
			opened = true
		}
	}
	logger.Info("fmu-settings is running", "api_port", opts.APIPort, "gui_port", opts.GUIPort, "browser", opened)
	emit(Event{Kind: EventReady, URL: url, Opened: opened})
	return nil
}

// forwardOutput returns the channel a service writes its output to in Stream
// mode, and a channel closed once every line has been emitted. Both are nil
// when output should pass through to the terminal.
func (l *Launcher) forwardOutput(svc Service, opts AppOptions, emit func(Event)) (chan runner.OutputLine, <-chan struct{}) {
	if !opts.Stream || opts.Events == nil {
		return nil, nil
	}
	out := make(chan runner.OutputLine, 64)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for line := range out {
			emit(Event{Kind: EventOutput, Service: svc, Line: line})
		}
	}()
	return out, drained
}

func hostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
