// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fmu-settings/internal/auth"
	"fmu-settings/internal/config"
	"fmu-settings/internal/launcher"
	"fmu-settings/internal/logger"
	"fmu-settings/internal/ports"
	"fmu-settings/internal/runner"
	"fmu-settings/internal/ui"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// version is stamped at build time with -ldflags "-X fmu-settings/cmd/cli.version=...".
var version = "dev"

// Environment variables read when the matching flag is not given.
const (
	envPrintToken = "FMU_SETTINGS_PRINT_TOKEN"
	envPrintURL   = "FMU_SETTINGS_PRINT_URL"
	envLogLevel   = "FMU_SETTINGS_LOG_LEVEL"
)

// Exit statuses besides a failed server's own status.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// annotationNoConfig marks commands that must run even when the config file is broken.
const annotationNoConfig = "fmu-settings/no-config"

// Swapped out in tests.
var (
	newRunner     = func(cfg config.Config) launcher.Runner { return launcher.New(cfg) }
	generateToken = auth.GenerateToken
	ensurePort    = ports.Ensure
	isTerminal    = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }
	initLogger    = logger.InitLogger
	runDashboard  = ui.Run
)

// state is shared by every command of one invocation.
type state struct {
	configPath string
	logLevel   string
	host       string

	cfg    config.Config
	runner launcher.Runner
}

// usageError marks an invocation the command line itself got wrong.
type usageError struct {
	command string
	err     error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(cmd *cobra.Command, format string, a ...any) error {
	return &usageError{command: cmd.CommandPath(), err: fmt.Errorf(format, a...)}
}

// withUsage turns argument validation failures into usage errors.
func withUsage(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{command: cmd.CommandPath(), err: err}
		}
		return nil
	}
}

// NewRootCmd builds the fmu-settings command tree.
func NewRootCmd() *cobra.Command {
	s := &state{}

	var (
		apiPort     int
		guiPort     int
		reload      bool
		noBrowser   bool
		noDashboard bool
	)

	rootCmd := &cobra.Command{
		Use:   "fmu-settings",
		Short: "Launch the FMU Settings application",
		Long: `Starts the FMU Settings API and GUI servers and opens the application in
your browser. Use the api or gui subcommands to run a single server.

Defaults come from ~/.config/fmu-settings/config.yaml when it exists.`,
		Example: `  fmu-settings
  fmu-settings --gui-port 5173 --no-browser
  fmu-settings api --port 8001 --reload
  fmu-settings gui`,
		Version:           version,
		Args:              withUsage(cobra.NoArgs),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: s.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := launcher.AppOptions{
				Host:        s.host,
				APIPort:     s.cfg.APIPort,
				GUIPort:     s.cfg.GUIPort,
				Reload:      reload,
				LogLevel:    s.logLevel,
				OpenBrowser: s.cfg.OpenBrowser && !noBrowser,
			}
			if cmd.Flags().Changed("api-port") {
				opts.APIPort = apiPort
			}
			if cmd.Flags().Changed("gui-port") {
				opts.GUIPort = guiPort
			}
			if err := checkPort(cmd, "api-port", opts.APIPort); err != nil {
				return err
			}
			if err := checkPort(cmd, "gui-port", opts.GUIPort); err != nil {
				return err
			}
			if err := checkRegistered(cmd, s.cfg, "gui-port", opts.GUIPort); err != nil {
				return err
			}
			return s.runApp(cmd, opts, !noDashboard && isTerminal())
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{command: cmd.CommandPath(), err: err}
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&s.configPath, "config", "", "config file (default ~/.config/fmu-settings/config.yaml)")
	pf.StringVar(&s.host, "host", config.DefaultHost, "host the servers bind to")
	pf.StringVar(&s.logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warning, error or critical (env "+envLogLevel+")")

	f := rootCmd.Flags()
	f.IntVar(&apiPort, "api-port", config.DefaultAPIPort, "port the API server listens on")
	f.IntVar(&guiPort, "gui-port", config.DefaultGUIPort, "port the GUI server listens on")
	f.BoolVar(&reload, "reload", false, "restart the API server when its source changes")
	f.BoolVar(&noBrowser, "no-browser", false, "do not open the application in a browser")
	f.BoolVar(&noDashboard, "no-tui", false, "print plain progress instead of the dashboard")

	rootCmd.AddCommand(newAPICmd(s), newGUICmd(s), newConfigCmd(s))
	registerCompletions(rootCmd)
	return rootCmd
}

// setup loads the configuration, resolves the log level and starts logging.
func (s *state) setup(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[annotationNoConfig] == "" {
		cfg, err := config.Load(s.configPath)
		if err != nil {
			return err
		}
		s.cfg = cfg
	} else {
		s.cfg = config.Default()
	}

	if !cmd.Flags().Changed("log-level") {
		s.logLevel = s.cfg.LogLevel
		if env := os.Getenv(envLogLevel); env != "" {
			s.logLevel = env
		}
	}
	if err := config.ValidateLogLevel(s.logLevel); err != nil {
		return &usageError{command: cmd.CommandPath(), err: err}
	}
	// The servers only accept lower-case level names.
	s.logLevel = strings.ToLower(s.logLevel)
	if !cmd.Flags().Changed("host") {
		s.host = s.cfg.Host
	}

	// The dashboard owns the terminal in full mode, so logs go only to the file there.
	dashboard := !cmd.HasParent() && isTerminal() && !flagBool(cmd, "no-tui")
	initLogger(logger.Options{
		Level:  s.logLevel,
		Stderr: s.logLevel != config.DefaultLogLevel && !dashboard,
		File:   true,
	})
	logger.Debug("Starting", "command", cmd.CommandPath(), "config", s.configPath, "version", version)

	s.runner = newRunner(s.cfg)
	return nil
}

// runApp starts the full application and renders its progress until it stops.
func (s *state) runApp(cmd *cobra.Command, opts launcher.AppOptions, dashboard bool) error {
	if err := ensurePort(opts.Host, opts.APIPort); err != nil {
		return err
	}
	if err := ensurePort(opts.Host, opts.GUIPort); err != nil {
		return err
	}
	token, err := generateToken()
	if err != nil {
		return err
	}
	opts.Token = token

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	events := make(chan launcher.Event, 16)
	opts.Events = events
	opts.Stream = dashboard

	done := make(chan error, 1)
	go func() {
		done <- s.runner.RunApp(ctx, opts)
		close(events)
	}()

	if dashboard {
		if err := runDashboard(events, cancel); err != nil {
			printWarning(cmd.ErrOrStderr(), "%v", err)
			for range events {
			}
		}
	} else {
		renderEvents(cmd.OutOrStdout(), events)
	}
	return <-done
}

// checkPort rejects a port number outside 1-65535 as a usage error.
func checkPort(cmd *cobra.Command, flag string, port int) error {
	if err := config.ValidatePort(port); err != nil {
		return usageErrorf(cmd, "invalid value for '--%s': %v", flag, err)
	}
	return nil
}

// checkRegistered rejects a GUI port the app registration does not know as a usage error.
func checkRegistered(cmd *cobra.Command, cfg config.Config, flag string, port int) error {
	if err := launcher.New(cfg).CheckGUIPort(port); err != nil {
		return usageErrorf(cmd, "invalid value for '--%s': %w", flag, err)
	}
	return nil
}

func flagBool(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Value.String() == "true"
}

// envBool reports whether name is set to a non-empty value.
func envBool(name string) bool {
	return os.Getenv(name) != ""
}

// Execute runs the command line in args and returns the process exit status.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	logger.Error("Command failed", "error", err)
	printError(stderr, err)
	return exitCode(err)
}

// exitCode maps err onto the status the process exits with.
func exitCode(err error) int {
	var usageErr *usageError
	var serviceErr *launcher.ServiceExitError
	var exitErr *runner.ExitError
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &usageErr):
		return exitUsage
	case errors.As(err, &serviceErr):
		return serviceErr.ExitCode()
	case errors.As(err, &exitErr) && exitErr.Code > 0:
		return exitErr.Code
	default:
		return exitError
	}
}

// RunCLI runs fmu-settings with the process arguments and exits. SIGINT and
// SIGTERM stop the servers cleanly.
func RunCLI() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
