// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"strconv"

	"fmu-settings/internal/config"

	"github.com/spf13/cobra"
)

// guiPortCompletionFunc offers the registered GUI ports, read from the
// config file when it loads and from the defaults otherwise.
func guiPortCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		cfg = config.Default()
	}

	completions := make([]string, 0, len(cfg.RegisteredGUIPorts))
	for _, port := range cfg.RegisteredGUIPorts {
		completions = append(completions, strconv.Itoa(port))
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}

func logLevelCompletionFunc(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return config.LogLevels, cobra.ShellCompDirectiveNoFileComp
}

// registerCompletions attaches flag completions across the command tree.
func registerCompletions(rootCmd *cobra.Command) {
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", logLevelCompletionFunc)
	_ = rootCmd.RegisterFlagCompletionFunc("gui-port", guiPortCompletionFunc)

	for _, sub := range rootCmd.Commands() {
		switch sub.Name() {
		case "api":
			_ = sub.RegisterFlagCompletionFunc("gui-port", guiPortCompletionFunc)
		case "gui":
			_ = sub.RegisterFlagCompletionFunc("port", guiPortCompletionFunc)
		}
	}
}
