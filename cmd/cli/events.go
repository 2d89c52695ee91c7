// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"fmt"
	"io"
	"time"

	"fmu-settings/internal/launcher"

	"github.com/briandowns/spinner"
)

// renderEvents prints full-mode progress as plain lines until events is closed.
func renderEvents(w io.Writer, events <-chan launcher.Event) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Color("cyan")
	s.Suffix = " Waiting for FMU Settings to start..."
	defer s.Stop()

	for ev := range events {
		switch ev.Kind {
		case launcher.EventStarting:
			s.Stop()
			printInfo(w, "Starting %s server on %s", ev.Service, identifierColor.Sprint(ev.Addr))
			s.Restart()
		case launcher.EventListening:
			s.Stop()
			fmt.Fprintf(w, "  %s server is listening on %s\n", ev.Service, identifierColor.Sprint(ev.Addr))
			s.Restart()
		case launcher.EventReady:
			s.Stop()
			printSuccess(w, "FMU Settings is running. Press CTRL+C to quit")
			if ev.Opened {
				fmt.Fprintln(w, "  Opened FMU Settings in your browser")
			} else {
				fmt.Fprintf(w, "  Open FMU Settings at %s\n", ev.URL)
			}
		case launcher.EventOutput:
			fmt.Fprintf(w, "[%s] %s\n", ev.Service, ev.Line.Line)
		case launcher.EventExited:
			s.Stop()
		case launcher.EventShuttingDown:
			s.Stop()
			fmt.Fprintln(w)
			printInfo(w, "Shutting down FMU Settings...")
		}
	}
}
