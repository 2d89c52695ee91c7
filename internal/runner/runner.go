// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package runner starts external server processes, forwards their output and
// translates their exit status into Go errors.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"fmu-settings/internal/logger"
	"fmu-settings/internal/util"
)

// DefaultWaitDelay applies when a Command sets no WaitDelay.
const DefaultWaitDelay = 5 * time.Second

// Command describes one process to run.
type Command struct {
	// Desc names the process in errors and logs, e.g. "API server"
	Desc string
	Path string
	Args []string

	// Env is appended to the parent environment as KEY=VALUE pairs
	Env []string
	Dir string

	// WaitDelay is how long the process gets after the interrupt before its
	// process group is killed. Zero means DefaultWaitDelay.
	WaitDelay time.Duration

	// Stdout and Stderr receive passthrough output. They default to the parent's streams.
	Stdout io.Writer
	Stderr io.Writer
}

type OutputLine struct {
	Line    string
	IsError bool // True if the line came from stderr
}

// ExitError reports a process that ran and exited unsuccessfully.
type ExitError struct {
	Desc string
	Code int // -1 when terminated by a signal
	Err  error
}

func (e *ExitError) Error() string {
	if e.Code < 0 {
		return fmt.Sprintf("%s was terminated: %v", e.Desc, e.Err)
	}
	return fmt.Sprintf("%s exited with status %d", e.Desc, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Run starts c and blocks until it exits or ctx is done.
//
// With a nil out channel output passes through to c.Stdout/c.Stderr (CLI
// mode). Otherwise each line is sent over out (TUI mode); Run never closes out.
// When ctx ends the process is interrupted, killed after c.WaitDelay, and
// Run returns ctx.Err().
func Run(ctx context.Context, c Command, out chan<- OutputLine) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Dir = c.Dir
	cmd.Cancel = func() error { return interrupt(cmd) }
	cmd.WaitDelay = c.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	isolate(cmd)

	var stdout, stderr *lineWriter
	if out == nil {
		cmd.Stdout = orDefault(c.Stdout, os.Stdout)
		cmd.Stderr = orDefault(c.Stderr, os.Stderr)
	} else {
		stdout = &lineWriter{ctx: ctx, out: out}
		stderr = &lineWriter{ctx: ctx, out: out, isError: true}
		cmd.Stdout = stdout
		cmd.Stderr = stderr
	}

	logger.Debug("starting process", "desc", c.Desc, "command", util.FormatCommand(c.Path, c.Args))

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.Desc, err)
	}
	logger.Info("process started", "desc", c.Desc, "pid", cmd.Process.Pid)

	cmdErr := cmd.Wait()
	// Whatever the process left running in its group goes with it.
	reap(cmd)
	if stdout != nil {
		stdout.Flush()
		stderr.Flush()
	}

	if ctx.Err() != nil {
		logger.Info("process stopped", "desc", c.Desc, "reason", ctx.Err())
		return ctx.Err()
	}

	if cmdErr != nil {
		var exitErr *exec.ExitError
		if errors.As(cmdErr, &exitErr) {
			logger.Error("process exited", "desc", c.Desc, "code", exitErr.ExitCode())
			return &ExitError{Desc: c.Desc, Code: exitErr.ExitCode(), Err: cmdErr}
		}
		return fmt.Errorf("%s failed: %w", c.Desc, cmdErr)
	}
	logger.Info("process exited", "desc", c.Desc, "code", 0)
	return nil
}

func orDefault(w, def io.Writer) io.Writer {
	if w != nil {
		return w
	}
	return def
}

// lineWriter splits written bytes into lines and sends them over out.
// Lines are dropped once ctx is done so a departed reader never blocks the child.
type lineWriter struct {
	ctx     context.Context
	out     chan<- OutputLine
	isError bool

	mu  sync.Mutex
	buf []byte
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.send(string(bytes.TrimRight(w.buf[:i], "\r")))
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

// Flush sends any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.buf) > 0 {
		w.send(string(w.buf))
		w.buf = nil
	}
}

func (w *lineWriter) send(line string) {
	select {
	case w.out <- OutputLine{Line: line, IsError: w.isError}:
	case <-w.ctx.Done():
	}
}
