// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"errors"
	"fmt"
	"os"

	"fmu-settings/internal/config"
	"fmu-settings/internal/logger"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// dimColor is used for secondary text such as file paths.
var dimColor = color.New(color.Faint)

// newConfigCmd is the parent of the configuration file subcommands.
func newConfigCmd(s *state) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the fmu-settings configuration file",
		Long: `Shows and creates the configuration file that holds the default ports,
host, log level and the commands that start the API and GUI servers.`,
		Args: withUsage(cobra.NoArgs),
	}

	configPathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the location of the configuration file",
		Args:  withUsage(cobra.NoArgs),
		Annotations: map[string]string{
			annotationNoConfig: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path(s.configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Long:  "Prints the configuration in use: the file's values over the built-in defaults.",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(s.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	var force bool
	configInitCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default values",
		Args:  withUsage(cobra.NoArgs),
		Annotations: map[string]string{
			annotationNoConfig: "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path(s.configPath)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config file %s already exists, use --force to overwrite it", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to check config file %s: %w", path, err)
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}
			logger.Info("Wrote default config", "path", path)
			printSuccess(cmd.OutOrStdout(), "Wrote default configuration to %s", dimColor.Sprint(path))
			return nil
		},
	}
	configInitCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	configCmd.AddCommand(configPathCmd, configShowCmd, configInitCmd)
	return configCmd
}
