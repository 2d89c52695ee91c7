// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package util

import "strings"

// QuoteArgForShell quotes an argument for safe use in a POSIX shell command.
// Arguments made only of safe characters are returned unchanged; anything
// else is wrapped in single quotes with internal single quotes escaped.
func QuoteArgForShell(arg string) string {
	if arg == "" {
		return "''"
	}
	if strings.IndexFunc(arg, needsQuoting) < 0 {
		return arg
	}
	return `'` + strings.ReplaceAll(arg, "'", `'\''`) + `'`
}

// FormatCommand renders name and args as a copy-pasteable shell line.
func FormatCommand(name string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, QuoteArgForShell(name))
	for _, a := range args {
		parts = append(parts, QuoteArgForShell(a))
	}
	return strings.Join(parts, " ")
}

func needsQuoting(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case strings.ContainsRune("-_./:=,@+%", r):
		return false
	}
	return true
}
