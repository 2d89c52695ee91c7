// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmu-settings/internal/auth"
	"fmu-settings/internal/config"
	"fmu-settings/internal/launcher"

	"github.com/spf13/cobra"
)

func newAPICmd(s *state) *cobra.Command {
	var (
		port       int
		guiHost    string
		guiPort    int
		reload     bool
		printToken bool
		printURL   bool
	)

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Start the FMU Settings API server",
		Long: `Starts only the API server. The GUI host and port are passed on so the
API accepts requests from the GUI.

--print-token and --print-url can also be switched on with the
` + envPrintToken + ` and ` + envPrintURL + ` environment variables.`,
		Example: "  fmu-settings api\n  fmu-settings api --port 8001 --reload\n  fmu-settings api --print-url",
		Args:    withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := launcher.APIOptions{
				Host:         s.host,
				Port:         s.cfg.APIPort,
				FrontendHost: guiHost,
				FrontendPort: s.cfg.GUIPort,
				Reload:       reload,
				LogLevel:     s.logLevel,
			}
			if cmd.Flags().Changed("port") {
				opts.Port = port
			}
			if cmd.Flags().Changed("gui-port") {
				opts.FrontendPort = guiPort
			}
			if !cmd.Flags().Changed("gui-host") {
				opts.FrontendHost = s.cfg.Host
			}
			if err := checkPort(cmd, "port", opts.Port); err != nil {
				return err
			}
			if err := checkPort(cmd, "gui-port", opts.FrontendPort); err != nil {
				return err
			}
			if err := checkRegistered(cmd, s.cfg, "gui-port", opts.FrontendPort); err != nil {
				return err
			}

			token, err := generateToken()
			if err != nil {
				return err
			}
			opts.Token = token

			out := cmd.OutOrStdout()
			if printToken || envBool(envPrintToken) {
				printInfo(out, "API Token: %s", token)
			}
			if printURL || envBool(envPrintURL) {
				printInfo(out, "Authorized URL: %s", auth.AuthorizedURL(token, opts.FrontendHost, opts.FrontendPort))
			}

			if err := ensurePort(opts.Host, opts.Port); err != nil {
				return err
			}
			printInfo(out, "Starting FMU Settings API server on %s", identifierColor.Sprintf("%s:%d", opts.Host, opts.Port))
			if err := s.runner.RunAPI(cmd.Context(), opts); err != nil {
				return err
			}
			printInfo(out, "API server stopped")
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&port, "port", config.DefaultAPIPort, "port the API server listens on")
	f.StringVar(&guiHost, "gui-host", config.DefaultHost, "host the GUI is served from, allowed by CORS")
	f.IntVar(&guiPort, "gui-port", config.DefaultGUIPort, "port the GUI is served from, allowed by CORS")
	f.BoolVar(&reload, "reload", false, "restart the API server when its source changes")
	f.BoolVar(&printToken, "print-token", false, "print the session token")
	f.BoolVar(&printURL, "print-url", false, "print the authorized GUI URL")
	return cmd
}
