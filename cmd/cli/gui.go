// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmu-settings/internal/config"
	"fmu-settings/internal/launcher"

	"github.com/spf13/cobra"
)

func newGUICmd(s *state) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:     "gui",
		Short:   "Start the FMU Settings GUI server",
		Long:    "Starts only the GUI server. The port must be one the app registration knows.",
		Example: "  fmu-settings gui\n  fmu-settings gui --port 5173",
		Args:    withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := launcher.GUIOptions{
				Host:     s.host,
				Port:     s.cfg.GUIPort,
				LogLevel: s.logLevel,
			}
			if cmd.Flags().Changed("port") {
				opts.Port = port
			}
			if err := checkPort(cmd, "port", opts.Port); err != nil {
				return err
			}
			if err := checkRegistered(cmd, s.cfg, "port", opts.Port); err != nil {
				return err
			}
			if err := ensurePort(opts.Host, opts.Port); err != nil {
				return err
			}

			token, err := generateToken()
			if err != nil {
				return err
			}
			opts.Token = token

			out := cmd.OutOrStdout()
			printInfo(out, "Starting FMU Settings GUI server on %s", identifierColor.Sprintf("%s:%d", opts.Host, opts.Port))
			if err := s.runner.RunGUI(cmd.Context(), opts); err != nil {
				return err
			}
			printInfo(out, "GUI server stopped")
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", config.DefaultGUIPort, "port the GUI server listens on")
	return cmd
}
