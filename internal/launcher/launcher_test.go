// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package launcher

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"

	"fmu-settings/internal/config"
	"fmu-settings/internal/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHelperProcess is not a real test. It stands in for the external API and
// GUI servers, configured through HELPER_MODE.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	fs := flag.NewFlagSet("helper", flag.ContinueOnError)
	host := fs.String("host", "", "")
	port := fs.Int("port", 0, "")
	fs.String("frontend-host", "", "")
	fs.Int("frontend-port", 0, "")
	fs.String("log-level", "", "")
	fs.Bool("reload", false, "")
	if err := fs.Parse(args); err != nil {
		os.Exit(64)
	}

	switch os.Getenv("HELPER_MODE") {
	case "listen":
		ln, err := net.Listen("tcp", net.JoinHostPort(*host, strconv.Itoa(*port)))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(98)
		}
		defer ln.Close()
		go func() {
			for {
				conn, err := ln.Accept()
				if err != nil {
					return
				}
				_ = conn.Close()
			}
		}()
		fmt.Println("listening on", ln.Addr())
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
	case "exit":
		code, _ := strconv.Atoi(os.Getenv("HELPER_CODE"))
		os.Exit(code)
	}
	os.Exit(0)
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func helperService(mode string, env ...string) config.Service {
	svc := config.Service{
		Command: os.Args[0],
		Args:    []string{"-test.run=TestHelperProcess", "--"},
		Env:     map[string]string{"GO_WANT_HELPER_PROCESS": "1", "HELPER_MODE": mode},
	}
	for i := 0; i+1 < len(env); i += 2 {
		svc.Env[env[i]] = env[i+1]
	}
	return svc
}

func testLauncher(cfg config.Config) (*Launcher, *[]string) {
	l := New(cfg)
	var mu sync.Mutex
	opened := &[]string{}
	l.openBrowser = func(url string) error {
		mu.Lock()
		defer mu.Unlock()
		*opened = append(*opened, url)
		return nil
	}
	return l, opened
}

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("helper servers are stopped with an interrupt, which windows cannot deliver")
	}
}

func TestAPICommand(t *testing.T) {
	cfg := config.Default()
	cfg.API.Args = []string{"--workers", "2"}
	cfg.API.Env = map[string]string{"B": "2", "A": "1"}
	l := New(cfg)

	cmd := l.apiCommand(APIOptions{
		Token: "tok", Host: "localhost", Port: 8001,
		FrontendHost: "gui.local", FrontendPort: 3000,
		Reload: true, LogLevel: "debug",
	})

	assert.Equal(t, "fmu-settings-api", cmd.Path)
	assert.Equal(t, []string{
		"--workers", "2",
		"--host", "localhost",
		"--port", "8001",
		"--frontend-host", "gui.local",
		"--frontend-port", "3000",
		"--log-level", "debug",
		"--reload",
	}, cmd.Args)
	assert.Equal(t, []string{"A=1", "B=2", "FMU_SETTINGS_TOKEN=tok"}, cmd.Env)
	assert.Equal(t, cfg.ShutdownGrace, cmd.WaitDelay)

	cmd = l.apiCommand(APIOptions{Host: "localhost", Port: 8001, FrontendHost: "localhost", FrontendPort: 8000, LogLevel: "critical"})
	assert.NotContains(t, cmd.Args, "--reload")
	assert.Equal(t, []string{"--workers", "2"}, cfg.API.Args, "config args must not be mutated")
}

func TestGUICommand(t *testing.T) {
	cmd := New(config.Default()).guiCommand(GUIOptions{Token: "tok", Host: "localhost", Port: 5173, LogLevel: "info"})

	assert.Equal(t, "fmu-settings-gui", cmd.Path)
	assert.Equal(t, []string{"--host", "localhost", "--port", "5173", "--log-level", "info"}, cmd.Args)
	assert.Equal(t, []string{"FMU_SETTINGS_TOKEN=tok"}, cmd.Env)
}

func TestCheckGUIPort(t *testing.T) {
	l := New(config.Default())
	assert.NoError(t, l.CheckGUIPort(8000))

	err := l.CheckGUIPort(9999)
	require.ErrorIs(t, err, ErrUnregisteredPort)
	assert.Equal(t, "port 9999 is not known by the Azure App registration. Use one of 5173, 3000, 8000", err.Error())
}

func TestRunGUIRejectsUnregisteredPort(t *testing.T) {
	cfg := config.Default()
	cfg.GUI.Command = "/must/not/run"
	err := New(cfg).RunGUI(context.Background(), GUIOptions{Host: "localhost", Port: 1234})
	assert.ErrorIs(t, err, ErrUnregisteredPort)
}

func TestRunAPIPropagatesExitStatus(t *testing.T) {
	cfg := config.Default()
	cfg.API = helperService("exit", "HELPER_CODE", "4")

	err := New(cfg).RunAPI(context.Background(), APIOptions{Host: "127.0.0.1", Port: 1, FrontendHost: "127.0.0.1", FrontendPort: 2, LogLevel: "critical"})

	var exitErr *runner.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 4, exitErr.Code)
}

func TestRunAPICleanShutdown(t *testing.T) {
	skipOnWindows(t)
	cfg := config.Default()
	cfg.API = helperService("listen")
	port := freePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(cfg).RunAPI(ctx, APIOptions{Host: "127.0.0.1", Port: port, FrontendHost: "127.0.0.1", FrontendPort: 8000, LogLevel: "critical"})
	}()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 10*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("RunAPI did not return after cancel")
	}
}

func TestRunGUIServesStaticDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("gui"), 0o644))
	port := freePort(t)

	cfg := config.Default()
	cfg.GUI.StaticDir = dir
	cfg.RegisteredGUIPorts = []int{port}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(cfg).RunGUI(ctx, GUIOptions{Host: "127.0.0.1", Port: port}) }()

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

// collect drains events until RunApp's result arrives.
func collect(events <-chan Event, done <-chan error) ([]Event, error) {
	var got []Event
	for {
		select {
		case ev := <-events:
			got = append(got, ev)
		case err := <-done:
			for {
				select {
				case ev := <-events:
					got = append(got, ev)
				default:
					return got, err
				}
			}
		}
	}
}

func kinds(events []Event) []EventKind {
	var out []EventKind
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestRunAppStartsBothAndShutsDownCleanly(t *testing.T) {
	skipOnWindows(t)
	apiPort, guiPort := freePort(t), freePort(t)

	cfg := config.Default()
	cfg.API = helperService("listen")
	cfg.GUI.Service = helperService("listen")
	cfg.RegisteredGUIPorts = []int{guiPort}
	l, opened := testLauncher(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event)
	done := make(chan error, 1)
	go func() {
		done <- l.RunApp(ctx, AppOptions{
			Token: "tok", Host: "127.0.0.1", APIPort: apiPort, GUIPort: guiPort,
			LogLevel: "critical", OpenBrowser: true, Events: events, Stream: true,
		})
	}()

	var got []Event
	timeout := time.After(20 * time.Second)
wait:
	for {
		select {
		case ev := <-events:
			got = append(got, ev)
			if ev.Kind == EventReady {
				break wait
			}
		case err := <-done:
			t.Fatalf("RunApp returned early: %v", err)
		case <-timeout:
			t.Fatal("application never became ready")
		}
	}

	cancel()
	rest, err := collect(events, done)
	require.NoError(t, err)
	got = append(got, rest...)

	url := fmt.Sprintf("http://127.0.0.1:%d/#token=tok", guiPort)
	assert.Equal(t, []string{url}, *opened)
	assert.Contains(t, kinds(got), EventShuttingDown)
	assert.Contains(t, got, Event{Kind: EventReady, URL: url, Opened: true})
	assert.Contains(t, got, Event{Kind: EventExited, Service: ServiceAPI})
	assert.Contains(t, got, Event{Kind: EventExited, Service: ServiceGUI})

	var sawOutput bool
	for _, ev := range got {
		if ev.Kind == EventOutput && ev.Service == ServiceAPI {
			sawOutput = true
		}
	}
	assert.True(t, sawOutput, "API output should be streamed as events")
}

func TestRunAppBrowserFailureLeavesURLUnopened(t *testing.T) {
	skipOnWindows(t)
	apiPort, guiPort := freePort(t), freePort(t)

	cfg := config.Default()
	cfg.API = helperService("listen")
	cfg.GUI.Service = helperService("listen")
	cfg.RegisteredGUIPorts = []int{guiPort}
	l := New(cfg)
	l.openBrowser = func(string) error { return errors.New("no display") }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event)
	done := make(chan error, 1)
	go func() {
		done <- l.RunApp(ctx, AppOptions{
			Token: "tok", Host: "127.0.0.1", APIPort: apiPort, GUIPort: guiPort,
			LogLevel: "critical", OpenBrowser: true, Events: events,
		})
	}()

	var ready Event
	timeout := time.After(20 * time.Second)
	for ready.Kind != EventReady {
		select {
		case ev := <-events:
			if ev.Kind == EventReady {
				ready = ev
			}
		case err := <-done:
			t.Fatalf("RunApp returned early: %v", err)
		case <-timeout:
			t.Fatal("application never became ready")
		}
	}
	cancel()
	_, err := collect(events, done)
	require.NoError(t, err)

	assert.False(t, ready.Opened)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/#token=tok", guiPort), ready.URL)
}

func TestRunAppServiceFailureEndsApplication(t *testing.T) {
	skipOnWindows(t)
	apiPort, guiPort := freePort(t), freePort(t)

	cfg := config.Default()
	cfg.API = helperService("exit", "HELPER_CODE", "3")
	cfg.GUI.Service = helperService("listen")
	cfg.RegisteredGUIPorts = []int{guiPort}
	l, opened := testLauncher(cfg)

	events := make(chan Event)
	done := make(chan error, 1)
	go func() {
		done <- l.RunApp(context.Background(), AppOptions{
			Token: "tok", Host: "127.0.0.1", APIPort: apiPort, GUIPort: guiPort,
			LogLevel: "critical", OpenBrowser: true, Events: events,
		})
	}()

	got, err := collect(events, done)

	var exitErr *ServiceExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ServiceAPI, exitErr.Service)
	assert.Equal(t, 3, exitErr.ExitCode())
	assert.Contains(t, err.Error(), fmt.Sprintf("API exited with exit code 3. Usually this means that another application is already using port %d", apiPort))
	assert.Empty(t, *opened)
	assert.NotContains(t, kinds(got), EventShuttingDown)
}

func TestRunAppCleanExitIsABug(t *testing.T) {
	apiPort, guiPort := freePort(t), freePort(t)

	cfg := config.Default()
	cfg.API = helperService("listen")
	cfg.GUI.Service = helperService("exit", "HELPER_CODE", "0")
	cfg.RegisteredGUIPorts = []int{guiPort}
	l, _ := testLauncher(cfg)

	err := l.RunApp(context.Background(), AppOptions{
		Token: "tok", Host: "127.0.0.1", APIPort: apiPort, GUIPort: guiPort, LogLevel: "critical",
	})

	var exitErr *ServiceExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ServiceGUI, exitErr.Service)
	assert.Equal(t, "GUI unexpectedly exited. Please report this as a bug", err.Error())
	assert.Equal(t, 1, exitErr.ExitCode())
}

func TestRunAppMissingExecutable(t *testing.T) {
	guiPort := freePort(t)
	cfg := config.Default()
	cfg.API.Command = filepath.Join(t.TempDir(), "no-such-api")
	cfg.GUI.Service = helperService("listen")
	cfg.RegisteredGUIPorts = []int{guiPort}
	l, _ := testLauncher(cfg)

	err := l.RunApp(context.Background(), AppOptions{
		Token: "tok", Host: "127.0.0.1", APIPort: freePort(t), GUIPort: guiPort, LogLevel: "critical",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API failed with: failed to start API server")
}

func TestRunAppRejectsUnregisteredGUIPort(t *testing.T) {
	l, _ := testLauncher(config.Default())
	err := l.RunApp(context.Background(), AppOptions{Host: "localhost", APIPort: 8001, GUIPort: 9999})
	assert.ErrorIs(t, err, ErrUnregisteredPort)
}

func TestServiceExitErrorMessages(t *testing.T) {
	e := &ServiceExitError{Service: ServiceGUI, Port: 8000, Err: fmt.Errorf("boom")}
	assert.Equal(t, "GUI failed with: boom", e.Error())
	assert.Equal(t, 1, e.ExitCode())

	e = &ServiceExitError{Service: ServiceAPI, Port: 8001, Err: &runner.ExitError{Desc: "API server", Code: -1}}
	assert.Contains(t, e.Error(), "API failed with")
}
