// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"errors"
	"fmt"
	"io"

	"fmu-settings/internal/launcher"
	"fmu-settings/internal/logger"
	"fmu-settings/internal/ports"

	"github.com/fatih/color"
)

var (
	infoColor       = color.New(color.FgCyan, color.Bold)
	successColor    = color.New(color.FgGreen, color.Bold)
	warningColor    = color.New(color.FgYellow, color.Bold)
	errorColor      = color.New(color.FgRed, color.Bold)
	reasonColor     = color.New(color.Faint)
	suggestionColor = color.New(color.FgCyan)
	identifierColor = color.New(color.FgBlue)
)

// notice is one labelled message with optional reason and suggestion lines.
type notice struct {
	Message    string
	Reason     string
	Suggestion string
}

func (n notice) print(w io.Writer, label string, c *color.Color) {
	c.Fprintf(w, "%s: ", label)
	fmt.Fprintln(w, n.Message)
	if n.Reason != "" {
		reasonColor.Fprintf(w, "  Reason: %s\n", n.Reason)
	}
	if n.Suggestion != "" {
		suggestionColor.Fprintf(w, "  → %s\n", n.Suggestion)
	}
}

func printInfo(w io.Writer, format string, a ...any) {
	notice{Message: fmt.Sprintf(format, a...)}.print(w, "Info", infoColor)
}

func printSuccess(w io.Writer, format string, a ...any) {
	notice{Message: fmt.Sprintf(format, a...)}.print(w, "Success", successColor)
}

func printWarning(w io.Writer, format string, a ...any) {
	notice{Message: fmt.Sprintf(format, a...)}.print(w, "Warning", warningColor)
}

// printError renders err, adding the reason and suggestion the known
// failure types carry.
func printError(w io.Writer, err error) {
	n := notice{Message: err.Error()}

	var usageErr *usageError
	var inUse *ports.InUseError
	var exitErr *launcher.ServiceExitError
	switch {
	case errors.As(err, &usageErr):
		n.Suggestion = fmt.Sprintf("Run '%s --help' for usage", usageErr.command)
	case errors.As(err, &inUse):
		n.Reason = inUse.Owner()
		n.Suggestion = "Stop the other process or choose another port"
	case errors.As(err, &exitErr):
		if path, perr := logger.LogFilePath(); perr == nil {
			n.Suggestion = "Details are logged to " + path
		}
	case errors.Is(err, launcher.ErrUnregisteredPort):
		n.Suggestion = "Pick a registered port with --gui-port"
	}
	n.print(w, "Error", errorColor)
}
