//go:build windows

package runner

import "os/exec"

func isolate(cmd *exec.Cmd) {}

// interrupt kills the child; windows has no SIGINT to deliver to it.
func interrupt(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func reap(cmd *exec.Cmd) {}
