//go:build !windows

package lock

import (
	"golang.org/x/sys/unix"
)

// processExists implements kill(pid, 0): it reports whether a process with
// the given PID exists without sending it a real signal.
func processExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
