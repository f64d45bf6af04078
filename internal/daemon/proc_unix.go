//go:build unix

package daemon

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the lock-holder into its own process group so it
// survives the exit of the terminal or editor that spawned it.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}
