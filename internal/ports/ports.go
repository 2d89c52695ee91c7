// Package ports checks that the ports the servers need are usable and
// waits for the servers to start accepting connections on them.
package ports

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// InvalidPID marks a lookup that could not identify the owning process.
const InvalidPID = -1

// InUseError reports a port that another process already holds.
type InUseError struct {
	Port    int
	PID     int
	Command string
}

func (e *InUseError) Error() string {
	return fmt.Sprintf("fmu-settings requires port %d but it is currently in use", e.Port)
}

// Owner describes the holder of the port, or "" when it is unknown.
func (e *InUseError) Owner() string {
	if e.PID == InvalidPID {
		return ""
	}
	return fmt.Sprintf("Currently used by PID: %d, command: %s", e.PID, e.Command)
}

// lookupProcess is swapped out in tests.
var lookupProcess = ProcessOnPort

// Ensure returns nil when host:port can be bound, an *InUseError when
// something already listens there, and a wrapped error otherwise.
func Ensure(host string, port int) error {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err == nil {
		return ln.Close()
	}
	if !errors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("checking port %d on %s: %w", port, host, err)
	}
	pid, command := lookupProcess(port)
	return &InUseError{Port: port, PID: pid, Command: command}
}

// ProcessOnPort asks lsof and ps for the process listening on port.
// It returns InvalidPID when either tool is missing or finds nothing.
func ProcessOnPort(port int) (int, string) {
	out, err := exec.Command("lsof", "-i", fmt.Sprintf(":%d", port), "-t").Output()
	if err != nil {
		return InvalidPID, "unknown"
	}
	fields := strings.Fields(string(out))
	if len(fields) == 0 {
		return InvalidPID, "unknown"
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return InvalidPID, "unknown"
	}

	comm, err := exec.Command("ps", "-p", fields[0], "-o", "comm=").Output()
	if err != nil {
		return pid, "unknown"
	}
	return pid, strings.TrimSpace(string(comm))
}

// WaitListening polls host:port every interval until a TCP connection succeeds or ctx ends.
func WaitListening(ctx context.Context, host string, port int, interval time.Duration) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := net.Dialer{Timeout: interval}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn.Close()
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", addr, ctx.Err())
		case <-ticker.C:
		}
	}
}
